package ports

import (
	"context"
	"errors"
	"io"

	"JournalEngine/internal/domain"
)

// ErrNoChange may be returned from an Update closure to signal that the call
// turned out to be a no-op: the transaction is discarded and the change feed
// is not bumped, but the caller sees success.
var ErrNoChange = errors.New("no state change")

// Store is the persistence boundary for all engine state. Reads are
// snapshot-consistent per call and return the change-feed version they were
// taken at; mutations go through Update.
type Store interface {
	GetArticle(ctx context.Context, id uint64) (domain.Article, error)
	ListArticles(ctx context.Context) ([]domain.Article, uint64, error)
	ListArticlesByAuthor(ctx context.Context, author domain.Principal) ([]domain.Article, uint64, error)
	// ListReviewTasks returns articles pending action by the reviewer, per
	// domain.Article.PendingActionBy.
	ListReviewTasks(ctx context.Context, reviewer domain.Principal) ([]domain.Article, uint64, error)
	ListPublishedArticles(ctx context.Context) ([]domain.Article, uint64, error)

	GetProfile(ctx context.Context, principal domain.Principal) (domain.Profile, error)
	ListProfiles(ctx context.Context) ([]domain.Profile, uint64, error)

	// ListNotifications returns the recipient's notifications, newest first.
	ListNotifications(ctx context.Context, recipient domain.Principal) ([]domain.Notification, uint64, error)
	CountUnreadNotifications(ctx context.Context, recipient domain.Principal) (int, uint64, error)

	Version(ctx context.Context) (uint64, error)

	// Update runs fn inside a single transaction and bumps the change feed by
	// exactly one iff fn succeeds. A failed fn leaves every store and the feed
	// untouched. fn returning ErrNoChange discards the transaction without an
	// error and without a bump.
	Update(ctx context.Context, fn func(tx UpdateTx) error) error

	Close() error
}

// UpdateTx exposes the mutations available inside a Store.Update transaction.
type UpdateTx interface {
	// InsertArticle assigns the next article id, writes the record, and sets
	// article.ID before returning.
	InsertArticle(article *domain.Article) error
	// SaveArticle rewrites an existing article including reviewers and reviews.
	SaveArticle(article domain.Article) error

	// InsertProfile fails with AlreadyRegistered if the principal exists.
	InsertProfile(profile domain.Profile) error
	// AdjustReviewingCount adds delta to the profile's active-assignment
	// count, clamping at zero. It reports whether clamping occurred so the
	// caller can log the bookkeeping discrepancy.
	AdjustReviewingCount(principal domain.Principal, delta int) (clamped bool, err error)
	// AddReputation adds delta to the profile's reputation score.
	AddReputation(principal domain.Principal, delta int) error

	// InsertNotification assigns the next notification id and sets it on the
	// record before returning.
	InsertNotification(notification *domain.Notification) error
	// MarkNotificationsRead flips the given ids to read when they belong to
	// the recipient and are still unread, returning how many actually flipped.
	MarkNotificationsRead(recipient domain.Principal, ids []uint64) (int, error)
}

// ContentStore is the external content-addressed collaborator: store bytes,
// get back an opaque handle.
type ContentStore interface {
	Store(ctx context.Context, content io.Reader) (string, error)
}
