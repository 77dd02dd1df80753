package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/xo/dburl"

	// Database drivers selected through the DSN scheme.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"JournalEngine/internal/domain"
	"JournalEngine/internal/ports"
)

// SQLStore persists all engine state in a relational database. The DSN is
// parsed by dburl, so "sqlite:journal.db" and "postgres://..." both work.
type SQLStore struct {
	db     *sql.DB
	sb     sq.StatementBuilderType
	driver string
	logger *slog.Logger
}

var _ ports.Store = (*SQLStore)(nil)

// Open connects, creates the schema if needed, and seeds the change feed.
func Open(dsn string, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	u, err := dburl.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	db, err := sql.Open(u.Driver, u.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sb := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if u.Driver == "postgres" {
		sb = sb.PlaceholderFormat(sq.Dollar)
	}

	// sqlite allows one writer; a single pooled connection also keeps
	// :memory: databases on the connection that created the schema.
	if u.Driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}

	store := &SQLStore{db: db, sb: sb, driver: u.Driver, logger: logger}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	logger.Info("store opened", "driver", u.Driver)
	return store, nil
}

func (s *SQLStore) createSchema() error {
	statements := sqliteSchema
	if s.driver == "postgres" {
		statements = postgresSchema
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if i := strings.IndexByte(stmt, '\n'); i > 0 {
		return stmt[:i]
	}
	return stmt
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// GetArticle loads one article with its reviewers and reviews.
func (s *SQLStore) GetArticle(ctx context.Context, id uint64) (domain.Article, error) {
	articles, err := s.loadArticles(ctx, s.db, sq.Eq{"id": id})
	if err != nil {
		return domain.Article{}, err
	}
	if len(articles) == 0 {
		return domain.Article{}, domain.Errorf(domain.KindNotFound, "article %d not found", id)
	}
	return articles[0], nil
}

func (s *SQLStore) ListArticles(ctx context.Context) ([]domain.Article, uint64, error) {
	return s.listWithVersion(ctx, nil, nil)
}

func (s *SQLStore) ListArticlesByAuthor(ctx context.Context, author domain.Principal) ([]domain.Article, uint64, error) {
	return s.listWithVersion(ctx, sq.Eq{"author": string(author)}, nil)
}

func (s *SQLStore) ListReviewTasks(ctx context.Context, reviewer domain.Principal) ([]domain.Article, uint64, error) {
	sub := s.sb.Select("article_id").From("article_reviewers").Where(sq.Eq{"principal": string(reviewer)})
	subSQL, subArgs, err := sub.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build subquery: %w", err)
	}
	pred := sq.Expr("id IN ("+subSQL+")", subArgs...)

	keep := func(a domain.Article) bool { return a.PendingActionBy(reviewer) }
	return s.listWithVersion(ctx, pred, keep)
}

func (s *SQLStore) ListPublishedArticles(ctx context.Context) ([]domain.Article, uint64, error) {
	return s.listWithVersion(ctx, sq.Eq{"status": string(domain.StatusPublished)}, nil)
}

// listWithVersion runs the article query and the version read inside one
// transaction so the returned version matches the snapshot.
func (s *SQLStore) listWithVersion(ctx context.Context, pred sq.Sqlizer, keep func(domain.Article) bool) ([]domain.Article, uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin read: %w", err)
	}
	defer tx.Rollback()

	articles, err := s.loadArticles(ctx, tx, pred)
	if err != nil {
		return nil, 0, err
	}
	if keep != nil {
		kept := articles[:0]
		for _, a := range articles {
			if keep(a) {
				kept = append(kept, a)
			}
		}
		articles = kept
	}

	version, err := s.readVersion(ctx, tx)
	if err != nil {
		return nil, 0, err
	}
	return articles, version, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) loadArticles(ctx context.Context, q queryer, pred sq.Sqlizer) ([]domain.Article, error) {
	b := s.sb.Select("id", "author", "title", "keywords", "content_hash", "status", "submitted_at").
		From("articles").OrderBy("id")
	if pred != nil {
		b = b.Where(pred)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build articles query: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var (
		articles []domain.Article
		index    = map[uint64]int{}
		ids      []uint64
	)
	for rows.Next() {
		var (
			a        domain.Article
			keywords string
			status   string
		)
		if err := rows.Scan(&a.ID, &a.Author, &a.Title, &keywords, &a.ContentHash, &status, &a.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		a.Keywords = splitTags(keywords)
		a.Status = domain.Status(status)
		index[a.ID] = len(articles)
		ids = append(ids, a.ID)
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	if len(articles) == 0 {
		return nil, nil
	}

	if err := s.loadReviewers(ctx, q, ids, index, articles); err != nil {
		return nil, err
	}
	if err := s.loadReviews(ctx, q, ids, index, articles); err != nil {
		return nil, err
	}
	return articles, nil
}

func (s *SQLStore) loadReviewers(ctx context.Context, q queryer, ids []uint64, index map[uint64]int, articles []domain.Article) error {
	query, args, err := s.sb.Select("article_id", "principal").
		From("article_reviewers").
		Where(sq.Eq{"article_id": ids}).
		OrderBy("article_id", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("build reviewers query: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query reviewers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			articleID uint64
			principal string
		)
		if err := rows.Scan(&articleID, &principal); err != nil {
			return fmt.Errorf("scan reviewer: %w", err)
		}
		i := index[articleID]
		articles[i].Reviewers = append(articles[i].Reviewers, domain.Principal(principal))
	}
	return rows.Err()
}

func (s *SQLStore) loadReviews(ctx context.Context, q queryer, ids []uint64, index map[uint64]int, articles []domain.Article) error {
	query, args, err := s.sb.Select("article_id", "reviewer", "decision", "comments", "created_at").
		From("reviews").
		Where(sq.Eq{"article_id": ids}).
		OrderBy("article_id", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("build reviews query: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			articleID uint64
			r         domain.Review
			decision  string
		)
		if err := rows.Scan(&articleID, &r.Reviewer, &decision, &r.Comments, &r.At); err != nil {
			return fmt.Errorf("scan review: %w", err)
		}
		r.Decision = domain.Decision(decision)
		i := index[articleID]
		articles[i].Reviews = append(articles[i].Reviews, r)
	}
	return rows.Err()
}

func (s *SQLStore) GetProfile(ctx context.Context, principal domain.Principal) (domain.Profile, error) {
	query, args, err := s.sb.Select("principal", "name", "expertise", "reputation", "reviewing_count").
		From("profiles").Where(sq.Eq{"principal": string(principal)}).ToSql()
	if err != nil {
		return domain.Profile{}, fmt.Errorf("build profile query: %w", err)
	}

	var (
		p         domain.Profile
		expertise string
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&p.Principal, &p.Name, &expertise, &p.Reputation, &p.ReviewingCount)
	if err == sql.ErrNoRows {
		return domain.Profile{}, domain.Errorf(domain.KindNotFound, "profile %s not found", principal)
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("query profile: %w", err)
	}
	p.Expertise = splitTags(expertise)
	return p, nil
}

func (s *SQLStore) ListProfiles(ctx context.Context) ([]domain.Profile, uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin read: %w", err)
	}
	defer tx.Rollback()

	query, args, err := s.sb.Select("principal", "name", "expertise", "reputation", "reviewing_count").
		From("profiles").OrderBy("principal").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build profiles query: %w", err)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		var (
			p         domain.Profile
			expertise string
		)
		if err := rows.Scan(&p.Principal, &p.Name, &expertise, &p.Reputation, &p.ReviewingCount); err != nil {
			return nil, 0, fmt.Errorf("scan profile: %w", err)
		}
		p.Expertise = splitTags(expertise)
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate profiles: %w", err)
	}

	version, err := s.readVersion(ctx, tx)
	if err != nil {
		return nil, 0, err
	}
	return profiles, version, nil
}

func (s *SQLStore) ListNotifications(ctx context.Context, recipient domain.Principal) ([]domain.Notification, uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin read: %w", err)
	}
	defer tx.Rollback()

	query, args, err := s.sb.Select("id", "recipient", "message", "created_at", "is_read").
		From("notifications").
		Where(sq.Eq{"recipient": string(recipient)}).
		OrderBy("id DESC").
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build notifications query: %w", err)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.Recipient, &n.Message, &n.At, &n.IsRead); err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate notifications: %w", err)
	}

	version, err := s.readVersion(ctx, tx)
	if err != nil {
		return nil, 0, err
	}
	return notifications, version, nil
}

func (s *SQLStore) CountUnreadNotifications(ctx context.Context, recipient domain.Principal) (int, uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin read: %w", err)
	}
	defer tx.Rollback()

	query, args, err := s.sb.Select("COUNT(*)").From("notifications").
		Where(sq.Eq{"recipient": string(recipient), "is_read": false}).ToSql()
	if err != nil {
		return 0, 0, fmt.Errorf("build unread query: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, 0, fmt.Errorf("count unread: %w", err)
	}

	version, err := s.readVersion(ctx, tx)
	if err != nil {
		return 0, 0, err
	}
	return count, version, nil
}

func (s *SQLStore) Version(ctx context.Context) (uint64, error) {
	return s.readVersion(ctx, s.db)
}

func (s *SQLStore) readVersion(ctx context.Context, q queryer) (uint64, error) {
	query, args, err := s.sb.Select("version").From("change_feed").Where(sq.Eq{"id": 1}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build version query: %w", err)
	}
	var version uint64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&version); err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}
	return version, nil
}

// Update runs fn in a transaction and bumps the change feed in the same
// transaction, so readers can never see the new version without the new
// state or vice versa.
func (s *SQLStore) Update(ctx context.Context, fn func(tx ports.UpdateTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}

	utx := &sqlTx{store: s, tx: tx, ctx: ctx}
	if err := fn(utx); err != nil {
		tx.Rollback()
		if err == ports.ErrNoChange {
			return nil
		}
		return err
	}

	bump, args, err := s.sb.Update("change_feed").
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": 1}).ToSql()
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("build feed bump: %w", err)
	}
	if _, err := tx.ExecContext(ctx, bump, args...); err != nil {
		tx.Rollback()
		return fmt.Errorf("bump change feed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	return nil
}

func splitTags(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, ",")
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}
