package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"JournalEngine/internal/domain"
)

func articleID(params httprouter.Params) (uint64, error) {
	raw := params.ByName("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, domain.Errorf(domain.KindValidation, "invalid article id %q", raw)
	}
	return id, nil
}

func decodeBody(r *http.Request, into any) error {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return domain.Errorf(domain.KindValidation, "invalid request body: %v", err)
	}
	return nil
}

func (s *Server) submitArticle(r *http.Request, caller domain.Principal, _ httprouter.Params) (any, error) {
	var body struct {
		Title       string   `json:"title"`
		ContentHash string   `json:"contentHash"`
		Keywords    []string `json:"keywords"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	return s.workflow.SubmitArticle(r.Context(), caller, body.Title, body.ContentHash, body.Keywords)
}

func (s *Server) getArticle(r *http.Request, _ domain.Principal, params httprouter.Params) (any, error) {
	id, err := articleID(params)
	if err != nil {
		return nil, err
	}
	return s.workflow.GetArticle(r.Context(), id)
}

func (s *Server) listArticles(r *http.Request, _ domain.Principal, _ httprouter.Params) (any, error) {
	items, version, err := s.workflow.ListArticles(r.Context())
	if err != nil {
		return nil, err
	}
	return listPayload{Version: version, Items: items}, nil
}

func (s *Server) listPublished(r *http.Request, _ domain.Principal, _ httprouter.Params) (any, error) {
	items, version, err := s.workflow.ListPublished(r.Context())
	if err != nil {
		return nil, err
	}
	return listPayload{Version: version, Items: items}, nil
}

func (s *Server) listMyArticles(r *http.Request, caller domain.Principal, _ httprouter.Params) (any, error) {
	items, version, err := s.workflow.ListByAuthor(r.Context(), caller)
	if err != nil {
		return nil, err
	}
	return listPayload{Version: version, Items: items}, nil
}

func (s *Server) listReviewTasks(r *http.Request, caller domain.Principal, _ httprouter.Params) (any, error) {
	items, version, err := s.workflow.ListReviewTasks(r.Context(), caller)
	if err != nil {
		return nil, err
	}
	return listPayload{Version: version, Items: items}, nil
}

func (s *Server) assignReviewer(r *http.Request, _ domain.Principal, params httprouter.Params) (any, error) {
	id, err := articleID(params)
	if err != nil {
		return nil, err
	}
	var body struct {
		Reviewer string `json:"reviewer"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	if body.Reviewer == "" {
		return nil, domain.Errorf(domain.KindValidation, "reviewer must not be empty")
	}
	return s.scheduler.Assign(r.Context(), id, domain.Principal(body.Reviewer))
}

func (s *Server) autoAssign(r *http.Request, _ domain.Principal, params httprouter.Params) (any, error) {
	id, err := articleID(params)
	if err != nil {
		return nil, err
	}
	assigned, err := s.scheduler.AutoAssign(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"assigned": assigned}, nil
}

func (s *Server) submitReview(r *http.Request, caller domain.Principal, params httprouter.Params) (any, error) {
	id, err := articleID(params)
	if err != nil {
		return nil, err
	}
	var body struct {
		Decision string `json:"decision"`
		Comments string `json:"comments"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	decision, ok := domain.ParseDecision(body.Decision)
	if !ok {
		return nil, domain.Errorf(domain.KindValidation, "unknown decision %q", body.Decision)
	}
	return s.workflow.SubmitReview(r.Context(), id, caller, decision, body.Comments)
}

func (s *Server) finalizeDecision(r *http.Request, caller domain.Principal, params httprouter.Params) (any, error) {
	id, err := articleID(params)
	if err != nil {
		return nil, err
	}
	return s.workflow.FinalizeDecision(r.Context(), id, caller)
}

func (s *Server) publishArticle(r *http.Request, caller domain.Principal, params httprouter.Params) (any, error) {
	id, err := articleID(params)
	if err != nil {
		return nil, err
	}
	return s.workflow.PublishArticle(r.Context(), id, caller)
}

func (s *Server) updateStatus(r *http.Request, caller domain.Principal, params httprouter.Params) (any, error) {
	id, err := articleID(params)
	if err != nil {
		return nil, err
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	status, ok := domain.ParseStatus(body.Status)
	if !ok {
		return nil, domain.Errorf(domain.KindValidation, "unknown status %q", body.Status)
	}
	return s.workflow.UpdateArticleStatus(r.Context(), id, status, caller)
}

func (s *Server) registerProfile(r *http.Request, caller domain.Principal, _ httprouter.Params) (any, error) {
	var body struct {
		Name      string   `json:"name"`
		Expertise []string `json:"expertise"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	return s.registry.Register(r.Context(), caller, body.Name, body.Expertise)
}

func (s *Server) listProfiles(r *http.Request, _ domain.Principal, _ httprouter.Params) (any, error) {
	items, version, err := s.registry.List(r.Context())
	if err != nil {
		return nil, err
	}
	return listPayload{Version: version, Items: items}, nil
}

func (s *Server) getProfile(r *http.Request, _ domain.Principal, params httprouter.Params) (any, error) {
	return s.registry.Get(r.Context(), domain.Principal(params.ByName("principal")))
}

func (s *Server) myProfile(r *http.Request, caller domain.Principal, _ httprouter.Params) (any, error) {
	return s.registry.Get(r.Context(), caller)
}

func (s *Server) listNotifications(r *http.Request, caller domain.Principal, _ httprouter.Params) (any, error) {
	items, version, err := s.dispatcher.ListFor(r.Context(), caller)
	if err != nil {
		return nil, err
	}
	return listPayload{Version: version, Items: items}, nil
}

func (s *Server) unreadCount(r *http.Request, caller domain.Principal, _ httprouter.Params) (any, error) {
	count, version, err := s.dispatcher.UnreadCount(r.Context(), caller)
	if err != nil {
		return nil, err
	}
	return map[string]any{"version": version, "unread": count}, nil
}

func (s *Server) markRead(r *http.Request, caller domain.Principal, _ httprouter.Params) (any, error) {
	var body struct {
		IDs []uint64 `json:"ids"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	if err := s.dispatcher.MarkRead(r.Context(), caller, body.IDs); err != nil {
		return nil, err
	}
	return map[string]any{"marked": true}, nil
}

func (s *Server) version(r *http.Request, _ domain.Principal, _ httprouter.Params) (any, error) {
	v, err := s.workflow.CurrentVersion(r.Context())
	if err != nil {
		return nil, err
	}
	return map[string]any{"version": v}, nil
}

// uploadContent stores raw request bytes in the content-addressed store and
// returns the handle. Clients upload first, then submit the article with the
// returned hash.
func (s *Server) uploadContent(r *http.Request, _ domain.Principal, _ httprouter.Params) (any, error) {
	defer r.Body.Close()
	hash, err := s.content.Store(r.Context(), r.Body)
	if err != nil {
		return nil, err
	}
	return map[string]any{"contentHash": hash}, nil
}
