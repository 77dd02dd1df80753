package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"JournalEngine/internal/domain"
	"JournalEngine/internal/ports"
)

// Registry keeps one profile per identity.
type Registry struct {
	store  ports.Store
	logger *slog.Logger
}

// NewRegistry constructs the profile registry.
func NewRegistry(store ports.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: store, logger: logger}
}

// Register creates the profile for an identity. Reputation and the active
// review count start at zero and are maintained by the engine only.
func (r *Registry) Register(ctx context.Context, principal domain.Principal, name string, expertise []string) (domain.Profile, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Profile{}, domain.Errorf(domain.KindValidation, "name must not be empty")
	}

	profile := domain.Profile{
		Principal: principal,
		Name:      name,
		Expertise: normalizeTags(expertise),
	}

	err := r.store.Update(ctx, func(tx ports.UpdateTx) error {
		return tx.InsertProfile(profile)
	})
	if err != nil {
		if domain.IsKind(err, domain.KindAlreadyRegistered) {
			return domain.Profile{}, err
		}
		return domain.Profile{}, fmt.Errorf("register profile: %w", err)
	}

	r.logger.Info("profile registered", "principal", string(principal), "name", name)
	return profile, nil
}

// Get returns the identity's profile.
func (r *Registry) Get(ctx context.Context, principal domain.Principal) (domain.Profile, error) {
	return r.store.GetProfile(ctx, principal)
}

// List returns every registered profile with the read's feed version.
func (r *Registry) List(ctx context.Context) ([]domain.Profile, uint64, error) {
	return r.store.ListProfiles(ctx)
}
