package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"JournalEngine/internal/domain"
	"JournalEngine/internal/ports"
)

// Policy bundles the workflow policy knobs. All of them come from
// configuration, not constants.
type Policy struct {
	// Quorum is the review count at which an in-review article advances to
	// pending final decision.
	Quorum int
	// AutoAssign is how many candidates automatic assignment attaches.
	AutoAssign int
	// TieBreak decides finalize ties and all-revise review sets.
	TieBreak domain.Decision
	// Moderators may call the privileged status override.
	Moderators map[domain.Principal]bool
}

// WorkflowDeps wires the workflow's collaborators.
type WorkflowDeps struct {
	Store      ports.Store
	Dispatcher *Dispatcher
	Policy     Policy
	Logger     *slog.Logger
}

// Workflow enforces the article state machine: legal status transitions,
// review bookkeeping, and the finalize/publish rules.
type Workflow struct {
	store      ports.Store
	dispatcher *Dispatcher
	policy     Policy
	logger     *slog.Logger
	locks      *keyedLock
}

// NewWorkflow constructs the state-machine component.
func NewWorkflow(deps WorkflowDeps) *Workflow {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		policy:     deps.Policy,
		logger:     logger,
		locks:      newKeyedLock(),
	}
}

// SubmitArticle creates a new article in the submitted state.
func (w *Workflow) SubmitArticle(ctx context.Context, author domain.Principal, title, contentHash string, keywords []string) (domain.Article, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Article{}, domain.Errorf(domain.KindValidation, "title must not be empty")
	}
	if strings.TrimSpace(contentHash) == "" {
		return domain.Article{}, domain.Errorf(domain.KindValidation, "contentHash must not be empty")
	}

	article := domain.Article{
		Author:      author,
		Title:       title,
		Keywords:    normalizeTags(keywords),
		ContentHash: contentHash,
		Status:      domain.StatusSubmitted,
		SubmittedAt: time.Now().UTC(),
	}

	err := w.store.Update(ctx, func(tx ports.UpdateTx) error {
		return tx.InsertArticle(&article)
	})
	if err != nil {
		return domain.Article{}, fmt.Errorf("create article: %w", err)
	}

	w.logger.Info("article submitted", "article", article.ID, "author", string(author))
	return article, nil
}

// AssignReviewer attaches a registered reviewer to an article, advancing
// Submitted -> InReview on the first assignment.
func (w *Workflow) AssignReviewer(ctx context.Context, articleID uint64, reviewer domain.Principal) (domain.Article, error) {
	unlock := w.locks.lock(articleID)
	defer unlock()

	article, err := w.store.GetArticle(ctx, articleID)
	if err != nil {
		return domain.Article{}, err
	}
	if _, err := w.store.GetProfile(ctx, reviewer); err != nil {
		return domain.Article{}, err
	}
	if article.Status.Terminal() {
		return domain.Article{}, domain.Errorf(domain.KindInvalidState, "article %d is %s", articleID, article.Status)
	}
	if article.HasReviewer(reviewer) {
		return domain.Article{}, domain.Errorf(domain.KindAlreadyAssigned, "%s already reviews article %d", reviewer, articleID)
	}

	article.Reviewers = append(article.Reviewers, reviewer)
	if article.Status == domain.StatusSubmitted {
		article.Status = domain.StatusInReview
	}

	err = w.store.Update(ctx, func(tx ports.UpdateTx) error {
		if err := tx.SaveArticle(article); err != nil {
			return err
		}
		if err := w.adjustReviewingCount(tx, reviewer, +1); err != nil {
			return err
		}
		msg := fmt.Sprintf("You have been assigned to review article #%d: %s", article.ID, article.Title)
		return w.dispatcher.Notify(tx, reviewer, msg)
	})
	if err != nil {
		return domain.Article{}, fmt.Errorf("assign reviewer: %w", err)
	}

	w.logger.Info("reviewer assigned", "article", article.ID, "reviewer", string(reviewer), "status", string(article.Status))
	return article, nil
}

// SubmitReview appends a reviewer verdict and advances the article to pending
// final decision the moment the quorum-th review lands.
func (w *Workflow) SubmitReview(ctx context.Context, articleID uint64, reviewer domain.Principal, decision domain.Decision, comments string) (domain.Article, error) {
	unlock := w.locks.lock(articleID)
	defer unlock()

	article, err := w.store.GetArticle(ctx, articleID)
	if err != nil {
		return domain.Article{}, err
	}
	if !article.HasReviewer(reviewer) {
		return domain.Article{}, domain.Errorf(domain.KindUnauthorized, "%s is not assigned to article %d", reviewer, articleID)
	}
	if _, reviewed := article.ReviewBy(reviewer); reviewed {
		return domain.Article{}, domain.Errorf(domain.KindDuplicateReview, "%s already reviewed article %d", reviewer, articleID)
	}
	if article.Status != domain.StatusInReview {
		return domain.Article{}, domain.Errorf(domain.KindInvalidState, "article %d is %s, not %s", articleID, article.Status, domain.StatusInReview)
	}
	if strings.TrimSpace(comments) == "" {
		return domain.Article{}, domain.Errorf(domain.KindValidation, "comments must not be empty")
	}

	article.Reviews = append(article.Reviews, domain.Review{
		Reviewer: reviewer,
		Decision: decision,
		Comments: comments,
		At:       time.Now().UTC(),
	})

	quorumReached := len(article.Reviews) >= w.policy.Quorum
	if quorumReached {
		article.Status = domain.StatusPendingFinalDecision
	}

	err = w.store.Update(ctx, func(tx ports.UpdateTx) error {
		if err := tx.SaveArticle(article); err != nil {
			return err
		}
		if err := w.adjustReviewingCount(tx, reviewer, -1); err != nil {
			return err
		}
		if err := tx.AddReputation(reviewer, 1); err != nil {
			return err
		}
		msg := fmt.Sprintf("Article #%d received a new review", article.ID)
		if err := w.dispatcher.Notify(tx, article.Author, msg); err != nil {
			return err
		}
		if quorumReached {
			msg := fmt.Sprintf("Article #%d is awaiting your final decision", article.ID)
			if err := w.dispatcher.Notify(tx, article.Author, msg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Article{}, fmt.Errorf("submit review: %w", err)
	}

	w.logger.Info("review submitted",
		"article", article.ID, "reviewer", string(reviewer),
		"decision", string(decision), "status", string(article.Status))
	return article, nil
}

// FinalizeDecision lets the author settle a pending article. The majority of
// non-revise reviews decides; ties and all-revise sets fall back to the
// configured tie-break.
func (w *Workflow) FinalizeDecision(ctx context.Context, articleID uint64, caller domain.Principal) (domain.Article, error) {
	unlock := w.locks.lock(articleID)
	defer unlock()

	article, err := w.store.GetArticle(ctx, articleID)
	if err != nil {
		return domain.Article{}, err
	}
	if article.Author != caller {
		return domain.Article{}, domain.Errorf(domain.KindUnauthorized, "only the author may finalize article %d", articleID)
	}
	if article.Status != domain.StatusPendingFinalDecision {
		return domain.Article{}, domain.Errorf(domain.KindInvalidState, "article %d is %s, not %s", articleID, article.Status, domain.StatusPendingFinalDecision)
	}

	article.Status = w.aggregateDecision(article.Reviews)

	err = w.store.Update(ctx, func(tx ports.UpdateTx) error {
		if err := tx.SaveArticle(article); err != nil {
			return err
		}
		msg := fmt.Sprintf("Article #%d has been %s", article.ID, article.Status)
		return w.dispatcher.Notify(tx, article.Author, msg)
	})
	if err != nil {
		return domain.Article{}, fmt.Errorf("finalize decision: %w", err)
	}

	w.logger.Info("decision finalized", "article", article.ID, "status", string(article.Status))
	return article, nil
}

// aggregateDecision counts accept against reject, ignoring revise verdicts.
func (w *Workflow) aggregateDecision(reviews []domain.Review) domain.Status {
	var accepts, rejects int
	for _, r := range reviews {
		switch r.Decision {
		case domain.DecisionAccept:
			accepts++
		case domain.DecisionReject:
			rejects++
		}
	}
	switch {
	case accepts > rejects:
		return domain.StatusAccepted
	case rejects > accepts:
		return domain.StatusRejected
	case w.policy.TieBreak == domain.DecisionAccept:
		return domain.StatusAccepted
	default:
		return domain.StatusRejected
	}
}

// PublishArticle moves an accepted article to its terminal published state
// and tells the participating reviewers.
func (w *Workflow) PublishArticle(ctx context.Context, articleID uint64, caller domain.Principal) (domain.Article, error) {
	unlock := w.locks.lock(articleID)
	defer unlock()

	article, err := w.store.GetArticle(ctx, articleID)
	if err != nil {
		return domain.Article{}, err
	}
	if article.Author != caller {
		return domain.Article{}, domain.Errorf(domain.KindUnauthorized, "only the author may publish article %d", articleID)
	}
	if article.Status != domain.StatusAccepted {
		return domain.Article{}, domain.Errorf(domain.KindInvalidState, "article %d is %s, not %s", articleID, article.Status, domain.StatusAccepted)
	}

	article.Status = domain.StatusPublished

	err = w.store.Update(ctx, func(tx ports.UpdateTx) error {
		if err := tx.SaveArticle(article); err != nil {
			return err
		}
		msg := fmt.Sprintf("Article #%d you reviewed has been published", article.ID)
		for _, reviewer := range article.Reviewers {
			if err := w.dispatcher.Notify(tx, reviewer, msg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Article{}, fmt.Errorf("publish article: %w", err)
	}

	w.logger.Info("article published", "article", article.ID)
	return article, nil
}

// UpdateArticleStatus is the privileged override path for moderators. The
// legal-edge table still applies; an illegal edge fails with
// InvalidTransition and mutates nothing.
func (w *Workflow) UpdateArticleStatus(ctx context.Context, articleID uint64, newStatus domain.Status, caller domain.Principal) (domain.Article, error) {
	if !w.policy.Moderators[caller] {
		return domain.Article{}, domain.Errorf(domain.KindUnauthorized, "%s is not a moderator", caller)
	}

	unlock := w.locks.lock(articleID)
	defer unlock()

	article, err := w.store.GetArticle(ctx, articleID)
	if err != nil {
		return domain.Article{}, err
	}
	if !article.Status.CanTransition(newStatus) {
		return domain.Article{}, domain.Errorf(domain.KindInvalidTransition, "article %d: %s -> %s is not a legal edge", articleID, article.Status, newStatus)
	}

	article.Status = newStatus

	err = w.store.Update(ctx, func(tx ports.UpdateTx) error {
		if err := tx.SaveArticle(article); err != nil {
			return err
		}
		msg := fmt.Sprintf("Article #%d status changed to %s", article.ID, article.Status)
		return w.dispatcher.Notify(tx, article.Author, msg)
	})
	if err != nil {
		return domain.Article{}, fmt.Errorf("update status: %w", err)
	}

	w.logger.Info("status overridden", "article", article.ID, "status", string(newStatus), "caller", string(caller))
	return article, nil
}

// adjustReviewingCount applies the internal bookkeeping delta, logging a
// warning when the store had to clamp an underflow.
func (w *Workflow) adjustReviewingCount(tx ports.UpdateTx, reviewer domain.Principal, delta int) error {
	clamped, err := tx.AdjustReviewingCount(reviewer, delta)
	if err != nil {
		return err
	}
	if clamped {
		w.logger.Warn("reviewingCount underflow clamped", "reviewer", string(reviewer), "delta", delta)
	}
	return nil
}

// GetArticle returns a single article.
func (w *Workflow) GetArticle(ctx context.Context, articleID uint64) (domain.Article, error) {
	return w.store.GetArticle(ctx, articleID)
}

// ListArticles returns every article with the read's feed version.
func (w *Workflow) ListArticles(ctx context.Context) ([]domain.Article, uint64, error) {
	return w.store.ListArticles(ctx)
}

// ListByAuthor returns the author's submissions.
func (w *Workflow) ListByAuthor(ctx context.Context, author domain.Principal) ([]domain.Article, uint64, error) {
	return w.store.ListArticlesByAuthor(ctx, author)
}

// ListReviewTasks returns the reviewer's open tasks.
func (w *Workflow) ListReviewTasks(ctx context.Context, reviewer domain.Principal) ([]domain.Article, uint64, error) {
	return w.store.ListReviewTasks(ctx, reviewer)
}

// ListPublished returns published articles.
func (w *Workflow) ListPublished(ctx context.Context) ([]domain.Article, uint64, error) {
	return w.store.ListPublishedArticles(ctx)
}

// CurrentVersion exposes the change feed for staleness checks.
func (w *Workflow) CurrentVersion(ctx context.Context) (uint64, error) {
	return w.store.Version(ctx)
}

// normalizeTags trims, lowercases, and de-duplicates keyword/expertise tags.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
