package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"JournalEngine/internal/domain"
	"JournalEngine/internal/ports"
	"JournalEngine/internal/usecase"
)

// principalHeader carries the caller identity. It is set by the identity
// gateway in front of the engine and trusted as already verified.
const principalHeader = "X-Principal"

// Server exposes the engine over HTTP+JSON.
type Server struct {
	workflow   *usecase.Workflow
	scheduler  *usecase.Scheduler
	registry   *usecase.Registry
	dispatcher *usecase.Dispatcher
	content    ports.ContentStore
	logger     *slog.Logger
}

// ServerDeps wires the engine components into the transport.
type ServerDeps struct {
	Workflow   *usecase.Workflow
	Scheduler  *usecase.Scheduler
	Registry   *usecase.Registry
	Dispatcher *usecase.Dispatcher
	Content    ports.ContentStore
	Logger     *slog.Logger
}

// NewServer constructs the HTTP boundary.
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		workflow:   deps.Workflow,
		scheduler:  deps.Scheduler,
		registry:   deps.Registry,
		dispatcher: deps.Dispatcher,
		content:    deps.Content,
		logger:     logger,
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	router := httprouter.New()

	router.POST("/api/articles", s.handle(s.submitArticle))
	router.GET("/api/articles", s.handle(s.listArticles))
	router.GET("/api/articles/:id", s.handle(s.getArticle))
	router.POST("/api/articles/:id/reviewers", s.handle(s.assignReviewer))
	router.POST("/api/articles/:id/auto-assign", s.handle(s.autoAssign))
	router.POST("/api/articles/:id/reviews", s.handle(s.submitReview))
	router.POST("/api/articles/:id/finalize", s.handle(s.finalizeDecision))
	router.POST("/api/articles/:id/publish", s.handle(s.publishArticle))
	router.POST("/api/articles/:id/status", s.handle(s.updateStatus))

	router.GET("/api/published", s.handle(s.listPublished))
	router.GET("/api/my/articles", s.handle(s.listMyArticles))
	router.GET("/api/my/review-tasks", s.handle(s.listReviewTasks))
	router.GET("/api/my/profile", s.handle(s.myProfile))

	router.POST("/api/profiles", s.handle(s.registerProfile))
	router.GET("/api/profiles", s.handle(s.listProfiles))
	router.GET("/api/profiles/:principal", s.handle(s.getProfile))

	router.GET("/api/notifications", s.handle(s.listNotifications))
	router.GET("/api/notifications/unread", s.handle(s.unreadCount))
	router.POST("/api/notifications/read", s.handle(s.markRead))

	router.GET("/api/version", s.handle(s.version))
	router.POST("/api/content", s.handle(s.uploadContent))

	return router
}

// handlerFunc is the error-returning shape every endpoint implements; handle
// adapts it to httprouter, resolving the caller identity first.
type handlerFunc func(r *http.Request, caller domain.Principal, params httprouter.Params) (any, error)

func (s *Server) handle(fn handlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		caller := domain.Principal(r.Header.Get(principalHeader))
		if caller == "" {
			s.writeError(w, r, domain.Errorf(domain.KindUnauthorized, "missing %s header", principalHeader))
			return
		}

		payload, err := fn(r, caller, params)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": payload})
	}
}

// writeError renders the tagged error result: {"err": "<Kind>: message"}.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind, ok := domain.KindOf(err)
	if !ok {
		s.logger.Error("internal error", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"err": "internal error"})
		return
	}
	writeJSON(w, statusFor(kind), map[string]any{"err": err.Error()})
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnauthorized:
		return http.StatusForbidden
	case domain.KindInvalidState, domain.KindInvalidTransition,
		domain.KindAlreadyAssigned, domain.KindAlreadyRegistered,
		domain.KindDuplicateReview, domain.KindNoEligibleReviewers:
		return http.StatusConflict
	case domain.KindStoreUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// listPayload pairs a listing with the change-feed version of the read so
// clients can compare against their last-seen version instead of re-fetching.
type listPayload struct {
	Version uint64 `json:"version"`
	Items   any    `json:"items"`
}
