package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"JournalEngine/internal/domain"
	"JournalEngine/internal/ports"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open("sqlite::memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLStoreArticleRoundTrip(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	submitted := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	article := domain.Article{
		Author:      "alice",
		Title:       "Entangled States",
		Keywords:    []string{"physics", "quantum"},
		ContentHash: "QmHash",
		Status:      domain.StatusSubmitted,
		SubmittedAt: submitted,
	}

	err := s.Update(ctx, func(tx ports.UpdateTx) error {
		return tx.InsertArticle(&article)
	})
	require.NoError(t, err)
	require.NotZero(t, article.ID)

	got, err := s.GetArticle(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, "Entangled States", got.Title)
	assert.Equal(t, []string{"physics", "quantum"}, got.Keywords)
	assert.Equal(t, domain.StatusSubmitted, got.Status)
	assert.Equal(t, domain.Principal("alice"), got.Author)
	assert.True(t, got.SubmittedAt.Equal(submitted))
	assert.Empty(t, got.Reviewers)

	version, err := s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), version)

	_, err = s.GetArticle(ctx, article.ID+100)
	assert.True(t, domain.IsKind(err, domain.KindNotFound), "got %v", err)
}

func TestSQLStoreSaveReviewersAndReviews(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	article := domain.Article{
		Author:      "alice",
		Title:       "T",
		ContentHash: "QmHash",
		Status:      domain.StatusSubmitted,
		SubmittedAt: time.Now().UTC(),
	}
	require.NoError(t, s.Update(ctx, func(tx ports.UpdateTx) error {
		return tx.InsertArticle(&article)
	}))

	article.Status = domain.StatusInReview
	article.Reviewers = []domain.Principal{"rev1", "rev2"}
	article.Reviews = []domain.Review{
		{Reviewer: "rev1", Decision: domain.DecisionAccept, Comments: "good", At: time.Now().UTC()},
	}
	require.NoError(t, s.Update(ctx, func(tx ports.UpdateTx) error {
		return tx.SaveArticle(article)
	}))

	got, err := s.GetArticle(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Principal{"rev1", "rev2"}, got.Reviewers)
	require.Len(t, got.Reviews, 1)
	assert.Equal(t, domain.DecisionAccept, got.Reviews[0].Decision)
	assert.Equal(t, "good", got.Reviews[0].Comments)

	tasks, version, err := s.ListReviewTasks(ctx, "rev2")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), version)
	require.Len(t, tasks, 1)
	assert.Equal(t, article.ID, tasks[0].ID)
}

func TestSQLStoreProfileBookkeeping(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(tx ports.UpdateTx) error {
		return tx.InsertProfile(domain.Profile{
			Principal: "rev1",
			Name:      "Reviewer One",
			Expertise: []string{"physics"},
		})
	}))

	err := s.Update(ctx, func(tx ports.UpdateTx) error {
		return tx.InsertProfile(domain.Profile{Principal: "rev1", Name: "Again"})
	})
	assert.True(t, domain.IsKind(err, domain.KindAlreadyRegistered), "got %v", err)

	require.NoError(t, s.Update(ctx, func(tx ports.UpdateTx) error {
		clamped, err := tx.AdjustReviewingCount("rev1", 1)
		require.NoError(t, err)
		assert.False(t, clamped)
		return tx.AddReputation("rev1", 1)
	}))

	profile, err := s.GetProfile(ctx, "rev1")
	require.NoError(t, err)
	assert.Equal(t, 1, profile.ReviewingCount)
	assert.Equal(t, 1, profile.Reputation)
	assert.Equal(t, []string{"physics"}, profile.Expertise)

	// Underflow past zero clamps and reports it.
	require.NoError(t, s.Update(ctx, func(tx ports.UpdateTx) error {
		clamped, err := tx.AdjustReviewingCount("rev1", -5)
		require.NoError(t, err)
		assert.True(t, clamped)
		return nil
	}))
	profile, err = s.GetProfile(ctx, "rev1")
	require.NoError(t, err)
	assert.Equal(t, 0, profile.ReviewingCount)

	_, err = s.GetProfile(ctx, "ghost")
	assert.True(t, domain.IsKind(err, domain.KindNotFound), "got %v", err)
}

func TestSQLStoreNotifications(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	var first, second domain.Notification
	require.NoError(t, s.Update(ctx, func(tx ports.UpdateTx) error {
		first = domain.Notification{Recipient: "alice", Message: "one", At: time.Now().UTC()}
		return tx.InsertNotification(&first)
	}))
	require.NoError(t, s.Update(ctx, func(tx ports.UpdateTx) error {
		second = domain.Notification{Recipient: "alice", Message: "two", At: time.Now().UTC()}
		return tx.InsertNotification(&second)
	}))

	notes, version, err := s.ListNotifications(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), version)
	require.Len(t, notes, 2)
	assert.Equal(t, "two", notes[0].Message, "newest first")

	unread, _, err := s.CountUnreadNotifications(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	require.NoError(t, s.Update(ctx, func(tx ports.UpdateTx) error {
		flipped, err := tx.MarkNotificationsRead("alice", []uint64{first.ID})
		require.NoError(t, err)
		assert.Equal(t, 1, flipped)
		return nil
	}))

	// Flipping again, or flipping someone else's ids, touches nothing.
	require.NoError(t, s.Update(ctx, func(tx ports.UpdateTx) error {
		flipped, err := tx.MarkNotificationsRead("alice", []uint64{first.ID})
		require.NoError(t, err)
		assert.Equal(t, 0, flipped)
		flipped, err = tx.MarkNotificationsRead("bob", []uint64{second.ID})
		require.NoError(t, err)
		assert.Equal(t, 0, flipped)
		return ports.ErrNoChange
	}))

	unread, _, err = s.CountUnreadNotifications(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	version, err = s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), version, "ErrNoChange must not bump the feed")
}

func TestSQLStoreFailedUpdateRollsBack(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Update(ctx, func(tx ports.UpdateTx) error {
		article := domain.Article{
			Author: "alice", Title: "T", ContentHash: "Qm",
			Status: domain.StatusSubmitted, SubmittedAt: time.Now().UTC(),
		}
		if err := tx.InsertArticle(&article); err != nil {
			return err
		}
		return domain.Errorf(domain.KindValidation, "forced failure")
	})
	require.Error(t, err)

	articles, version, err := s.ListArticles(ctx)
	require.NoError(t, err)
	assert.Empty(t, articles)
	assert.Equal(t, uint64(0), version)
}
