package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"JournalEngine/internal/config"
	"JournalEngine/internal/domain"
	"JournalEngine/internal/httpapi"
	"JournalEngine/internal/infrastructure/ipfs"
	"JournalEngine/internal/infrastructure/storage"
	"JournalEngine/internal/logging"
	"JournalEngine/internal/ports"
	"JournalEngine/internal/usecase"
)

// Application wires config to stores, use cases, and the HTTP boundary.
type Application struct {
	cfg    config.Config
	store  ports.Store
	server *http.Server
	logger *slog.Logger
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	var (
		store ports.Store
		err   error
	)
	if cfg.Database.DSN == "" {
		baseLogger.Info("no database dsn configured, using in-memory store")
		store = storage.NewMemStore()
	} else {
		store, err = storage.Open(cfg.Database.DSN, baseLogger.With("component", "store"))
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}

	policy := policyFromConfig(cfg.Policy)
	dispatcher := usecase.NewDispatcher(store, baseLogger.With("component", "dispatcher"))
	workflow := usecase.NewWorkflow(usecase.WorkflowDeps{
		Store:      store,
		Dispatcher: dispatcher,
		Policy:     policy,
		Logger:     baseLogger.With("component", "workflow"),
	})
	scheduler := usecase.NewScheduler(store, workflow, policy, baseLogger.With("component", "scheduler"))
	registry := usecase.NewRegistry(store, baseLogger.With("component", "registry"))
	content := ipfs.NewClient(cfg.ContentStore.APIURL)

	api := httpapi.NewServer(httpapi.ServerDeps{
		Workflow:   workflow,
		Scheduler:  scheduler,
		Registry:   registry,
		Dispatcher: dispatcher,
		Content:    content,
		Logger:     baseLogger.With("component", "httpapi"),
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Application{cfg: cfg, store: store, server: server, logger: baseLogger}, nil
}

func policyFromConfig(pc config.PolicyConfig) usecase.Policy {
	tieBreak := domain.DecisionReject
	if pc.TieBreak == "accept" {
		tieBreak = domain.DecisionAccept
	}

	moderators := make(map[domain.Principal]bool, len(pc.Moderators))
	for _, m := range pc.Moderators {
		moderators[domain.Principal(m)] = true
	}

	return usecase.Policy{
		Quorum:     pc.Quorum,
		AutoAssign: pc.AutoAssign,
		TieBreak:   tieBreak,
		Moderators: moderators,
	}
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", a.cfg.Server.Addr)
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := a.server.Shutdown(shutdownCtx)
		if closeErr := a.store.Close(); err == nil {
			err = closeErr
		}
		return err
	case err := <-errCh:
		_ = a.store.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
