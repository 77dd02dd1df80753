package domain

import "time"

// Principal identifies an authenticated caller. It is issued by the identity
// gateway and opaque to the engine.
type Principal string

// Status enumerates the lifecycle states of an article.
type Status string

const (
	StatusSubmitted            Status = "submitted"
	StatusInReview             Status = "in_review"
	StatusPendingFinalDecision Status = "pending_final_decision"
	StatusAccepted             Status = "accepted"
	StatusRejected             Status = "rejected"
	StatusPublished            Status = "published"
)

// legalEdges is the authoritative transition table. Anything not listed here
// is an illegal edge.
var legalEdges = map[Status][]Status{
	StatusSubmitted:            {StatusInReview},
	StatusInReview:             {StatusPendingFinalDecision, StatusAccepted, StatusRejected},
	StatusPendingFinalDecision: {StatusAccepted, StatusRejected},
	StatusAccepted:             {StatusPublished},
}

// ParseStatus maps the wire representation back to a Status.
func ParseStatus(value string) (Status, bool) {
	switch s := Status(value); s {
	case StatusSubmitted, StatusInReview, StatusPendingFinalDecision,
		StatusAccepted, StatusRejected, StatusPublished:
		return s, true
	}
	return "", false
}

// CanTransition reports whether moving to the given status follows a legal edge.
func (s Status) CanTransition(to Status) bool {
	for _, next := range legalEdges[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions exist from this status.
func (s Status) Terminal() bool {
	return len(legalEdges[s]) == 0
}

// Decision enumerates reviewer verdicts.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
	DecisionRevise Decision = "revise"
)

// ParseDecision maps the wire representation back to a Decision.
func ParseDecision(value string) (Decision, bool) {
	switch d := Decision(value); d {
	case DecisionAccept, DecisionReject, DecisionRevise:
		return d, true
	}
	return "", false
}

// Review is a single reviewer verdict on an article. Immutable once appended.
type Review struct {
	Reviewer Principal `json:"reviewer"`
	Decision Decision  `json:"decision"`
	Comments string    `json:"comments"`
	At       time.Time `json:"at"`
}

// Article is the central entity: a submitted document moving through review
// toward publication.
type Article struct {
	ID          uint64      `json:"id"`
	Author      Principal   `json:"author"`
	Title       string      `json:"title"`
	Keywords    []string    `json:"keywords"`
	ContentHash string      `json:"contentHash"`
	Status      Status      `json:"status"`
	Reviewers   []Principal `json:"reviewers"`
	Reviews     []Review    `json:"reviews"`
	SubmittedAt time.Time   `json:"submittedAt"`
}

// HasReviewer reports whether the identity is currently assigned.
func (a Article) HasReviewer(p Principal) bool {
	for _, r := range a.Reviewers {
		if r == p {
			return true
		}
	}
	return false
}

// ReviewBy returns the review submitted by the identity, if any.
func (a Article) ReviewBy(p Principal) (Review, bool) {
	for _, r := range a.Reviews {
		if r.Reviewer == p {
			return r, true
		}
	}
	return Review{}, false
}

// PendingActionBy reports whether the article should appear in the identity's
// review-task feed: either assigned and not yet reviewed, or reviewed while
// the article still awaits a final decision.
func (a Article) PendingActionBy(p Principal) bool {
	if !a.HasReviewer(p) {
		return false
	}
	if _, reviewed := a.ReviewBy(p); !reviewed {
		return true
	}
	return a.Status == StatusInReview || a.Status == StatusPendingFinalDecision
}

// Clone returns a deep copy so callers can hold snapshots without aliasing
// store-owned slices.
func (a Article) Clone() Article {
	out := a
	out.Keywords = append([]string(nil), a.Keywords...)
	out.Reviewers = append([]Principal(nil), a.Reviewers...)
	out.Reviews = append([]Review(nil), a.Reviews...)
	return out
}
