package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"JournalEngine/internal/domain"
	"JournalEngine/internal/ports"
)

// Scheduler selects reviewer candidates and delegates the actual attachment
// to the workflow state machine.
type Scheduler struct {
	store    ports.Store
	workflow *Workflow
	policy   Policy
	logger   *slog.Logger
}

// NewScheduler constructs the assignment scheduler.
func NewScheduler(store ports.Store, workflow *Workflow, policy Policy, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{store: store, workflow: workflow, policy: policy, logger: logger}
}

// Assign is the manual mode: validate eligibility of an explicit reviewer,
// then delegate to the state machine.
func (s *Scheduler) Assign(ctx context.Context, articleID uint64, reviewer domain.Principal) (domain.Article, error) {
	article, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return domain.Article{}, err
	}
	if article.Author == reviewer {
		return domain.Article{}, domain.Errorf(domain.KindValidation, "authors cannot review their own article")
	}
	if _, err := s.store.GetProfile(ctx, reviewer); err != nil {
		return domain.Article{}, err
	}
	return s.workflow.AssignReviewer(ctx, articleID, reviewer)
}

// AutoAssign ranks registered profiles by expertise overlap with the
// article's keywords (descending), then by current review load (ascending),
// excluding the author, already-assigned reviewers, and profiles with no
// matching expertise. The top candidates up to the configured fan-out are
// attached.
func (s *Scheduler) AutoAssign(ctx context.Context, articleID uint64) ([]domain.Principal, error) {
	article, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if article.Status.Terminal() {
		return nil, domain.Errorf(domain.KindInvalidState, "article %d is %s", articleID, article.Status)
	}

	profiles, _, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	candidates := rankCandidates(article, profiles)
	if len(candidates) == 0 {
		return nil, domain.Errorf(domain.KindNoEligibleReviewers, "no eligible reviewers for article %d", articleID)
	}
	if len(candidates) > s.policy.AutoAssign {
		candidates = candidates[:s.policy.AutoAssign]
	}

	assigned := make([]domain.Principal, 0, len(candidates))
	for _, c := range candidates {
		if _, err := s.workflow.AssignReviewer(ctx, articleID, c.principal); err != nil {
			// A racing manual assignment is not fatal to the batch.
			if domain.IsKind(err, domain.KindAlreadyAssigned) {
				s.logger.Info("candidate already assigned", "article", articleID, "reviewer", string(c.principal))
				continue
			}
			return assigned, err
		}
		assigned = append(assigned, c.principal)
	}

	s.logger.Info("auto assignment finished", "article", articleID, "assigned", len(assigned))
	return assigned, nil
}

type candidate struct {
	principal domain.Principal
	overlap   int
	load      int
}

func rankCandidates(article domain.Article, profiles []domain.Profile) []candidate {
	var out []candidate
	for _, p := range profiles {
		if p.Principal == article.Author || article.HasReviewer(p.Principal) {
			continue
		}
		overlap := p.ExpertiseOverlap(article.Keywords)
		if overlap == 0 {
			continue
		}
		out = append(out, candidate{principal: p.Principal, overlap: overlap, load: p.ReviewingCount})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].overlap != out[j].overlap {
			return out[i].overlap > out[j].overlap
		}
		if out[i].load != out[j].load {
			return out[i].load < out[j].load
		}
		return out[i].principal < out[j].principal
	})

	return out
}
