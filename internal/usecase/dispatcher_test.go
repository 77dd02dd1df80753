package usecase

import (
	"context"
	"testing"

	"JournalEngine/internal/domain"
)

func notificationIDs(ns []domain.Notification) []uint64 {
	ids := make([]uint64, len(ns))
	for i, n := range ns {
		ids[i] = n.ID
	}
	return ids
}

func TestNotificationsFanOut(t *testing.T) {
	t.Parallel()
	e := newEngine(t, testPolicy())
	ctx := context.Background()

	e.mustRegister(t, "rev1", "physics")
	article := e.mustSubmit(t, "author", "physics")
	if _, err := e.workflow.AssignReviewer(ctx, article.ID, "rev1"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	reviewerNotes, _, err := e.dispatcher.ListFor(ctx, "rev1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reviewerNotes) != 1 {
		t.Fatalf("reviewer notifications = %d, want 1", len(reviewerNotes))
	}
	if reviewerNotes[0].IsRead {
		t.Fatal("new notifications must start unread")
	}

	if _, err := e.workflow.SubmitReview(ctx, article.ID, "rev1", domain.DecisionAccept, "nice"); err != nil {
		t.Fatalf("review: %v", err)
	}
	authorNotes, _, err := e.dispatcher.ListFor(ctx, "author")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(authorNotes) == 0 {
		t.Fatal("author should be notified about the review")
	}
	// Newest first: the most recent notification leads the list.
	for i := 1; i < len(authorNotes); i++ {
		if authorNotes[i-1].ID < authorNotes[i].ID {
			t.Fatal("notifications must be ordered newest first")
		}
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	t.Parallel()
	e := newEngine(t, testPolicy())
	ctx := context.Background()

	e.mustRegister(t, "rev1", "physics")
	article := e.mustSubmit(t, "author", "physics")
	if _, err := e.workflow.AssignReviewer(ctx, article.ID, "rev1"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	notes, _, err := e.dispatcher.ListFor(ctx, "rev1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	ids := notificationIDs(notes)

	if err := e.dispatcher.MarkRead(ctx, "rev1", ids); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	afterFirst := e.version(t)

	unread, _, err := e.dispatcher.UnreadCount(ctx, "rev1")
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if unread != 0 {
		t.Fatalf("unread = %d, want 0", unread)
	}

	// Second call flips nothing: same end state, no feed bump.
	if err := e.dispatcher.MarkRead(ctx, "rev1", ids); err != nil {
		t.Fatalf("mark read again: %v", err)
	}
	if got := e.version(t); got != afterFirst {
		t.Fatalf("version = %d, want %d (idempotent no-op)", got, afterFirst)
	}
}

func TestMarkReadIgnoresForeignIDs(t *testing.T) {
	t.Parallel()
	e := newEngine(t, testPolicy())
	ctx := context.Background()

	e.mustRegister(t, "rev1", "physics")
	article := e.mustSubmit(t, "author", "physics")
	if _, err := e.workflow.AssignReviewer(ctx, article.ID, "rev1"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	notes, _, err := e.dispatcher.ListFor(ctx, "rev1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	ids := notificationIDs(notes)

	// A different identity marking someone else's notifications is a silent no-op.
	before := e.version(t)
	if err := e.dispatcher.MarkRead(ctx, "author", ids); err != nil {
		t.Fatalf("foreign mark read: %v", err)
	}
	if got := e.version(t); got != before {
		t.Fatalf("version = %d, want %d", got, before)
	}

	unread, _, err := e.dispatcher.UnreadCount(ctx, "rev1")
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if unread != len(ids) {
		t.Fatalf("unread = %d, want %d", unread, len(ids))
	}
}
