package domain

import "testing"

func TestStatusTransitions(t *testing.T) {
	t.Parallel()

	all := []Status{
		StatusSubmitted, StatusInReview, StatusPendingFinalDecision,
		StatusAccepted, StatusRejected, StatusPublished,
	}

	legal := map[Status]map[Status]bool{
		StatusSubmitted:            {StatusInReview: true},
		StatusInReview:             {StatusPendingFinalDecision: true, StatusAccepted: true, StatusRejected: true},
		StatusPendingFinalDecision: {StatusAccepted: true, StatusRejected: true},
		StatusAccepted:             {StatusPublished: true},
	}

	for _, from := range all {
		for _, to := range all {
			got := from.CanTransition(to)
			want := legal[from][to]
			if got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	terminal := map[Status]bool{
		StatusRejected:  true,
		StatusPublished: true,
	}
	for _, s := range []Status{
		StatusSubmitted, StatusInReview, StatusPendingFinalDecision,
		StatusAccepted, StatusRejected, StatusPublished,
	} {
		if got := s.Terminal(); got != terminal[s] {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, terminal[s])
		}
	}
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	if s, ok := ParseStatus("pending_final_decision"); !ok || s != StatusPendingFinalDecision {
		t.Fatalf("ParseStatus(pending_final_decision) = %q, %v", s, ok)
	}
	if _, ok := ParseStatus("in review"); ok {
		t.Fatal("expected ParseStatus to reject unknown value")
	}
}

func TestPendingActionBy(t *testing.T) {
	t.Parallel()

	article := Article{
		Status:    StatusInReview,
		Reviewers: []Principal{"alice", "bob"},
		Reviews:   []Review{{Reviewer: "bob", Decision: DecisionAccept, Comments: "fine"}},
	}

	if !article.PendingActionBy("alice") {
		t.Error("unreviewed assignment should be a pending task")
	}
	if !article.PendingActionBy("bob") {
		t.Error("reviewed but unfinalized article should remain a task")
	}
	if article.PendingActionBy("carol") {
		t.Error("unassigned identity should have no task")
	}

	article.Status = StatusPublished
	if !article.PendingActionBy("alice") {
		t.Error("assigned and unreviewed stays pending regardless of status")
	}
	if article.PendingActionBy("bob") {
		t.Error("reviewed and finalized should drop off the task feed")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	err := Errorf(KindDuplicateReview, "reviewer %s", "bob")
	if got := err.Error(); got != "DuplicateReview: reviewer bob" {
		t.Fatalf("unexpected message: %s", got)
	}
	if kind, ok := KindOf(err); !ok || kind != KindDuplicateReview {
		t.Fatalf("KindOf = %q, %v", kind, ok)
	}
	if !IsKind(err, KindDuplicateReview) {
		t.Fatal("IsKind should match")
	}
	if IsKind(err, KindNotFound) {
		t.Fatal("IsKind should not match a different kind")
	}
}
