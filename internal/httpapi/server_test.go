package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"JournalEngine/internal/domain"
	"JournalEngine/internal/infrastructure/storage"
	"JournalEngine/internal/usecase"
)

// fakeContentStore hashes nothing; it returns a canned handle.
type fakeContentStore struct {
	hash string
	err  error
}

func (f *fakeContentStore) Store(ctx context.Context, content io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	_, _ = io.Copy(io.Discard, content)
	return f.hash, nil
}

func newTestHandler(t *testing.T, quorum int) http.Handler {
	t.Helper()

	store := storage.NewMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	policy := usecase.Policy{
		Quorum:     quorum,
		AutoAssign: 3,
		TieBreak:   domain.DecisionReject,
		Moderators: map[domain.Principal]bool{"mod": true},
	}
	dispatcher := usecase.NewDispatcher(store, logger)
	workflow := usecase.NewWorkflow(usecase.WorkflowDeps{
		Store: store, Dispatcher: dispatcher, Policy: policy, Logger: logger,
	})
	server := NewServer(ServerDeps{
		Workflow:   workflow,
		Scheduler:  usecase.NewScheduler(store, workflow, policy, logger),
		Registry:   usecase.NewRegistry(store, logger),
		Dispatcher: dispatcher,
		Content:    &fakeContentStore{hash: "QmFakeHash"},
		Logger:     logger,
	})
	return server.Router()
}

func doJSON(t *testing.T, handler http.Handler, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if caller != "" {
		req.Header.Set(principalHeader, caller)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeOK(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	var envelope struct {
		OK  json.RawMessage `json:"ok"`
		Err string          `json:"err"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	if envelope.Err != "" {
		t.Fatalf("unexpected error result: %s", envelope.Err)
	}
	if into != nil {
		if err := json.Unmarshal(envelope.OK, into); err != nil {
			t.Fatalf("decode ok payload: %v (%s)", err, envelope.OK)
		}
	}
}

func TestMissingPrincipalHeader(t *testing.T) {
	t.Parallel()
	handler := newTestHandler(t, 1)

	rec := doJSON(t, handler, http.MethodGet, "/api/articles", "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if !strings.Contains(rec.Body.String(), "Unauthorized") {
		t.Fatalf("body = %s, want Unauthorized error", rec.Body.String())
	}
}

func TestSubmitAssignReviewFlow(t *testing.T) {
	t.Parallel()
	handler := newTestHandler(t, 1)

	rec := doJSON(t, handler, http.MethodPost, "/api/profiles", "rev1",
		map[string]any{"name": "Reviewer One", "expertise": []string{"physics"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("register: status = %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/articles", "author",
		map[string]any{"title": "Quantum Gravity", "contentHash": "QmHash", "keywords": []string{"physics"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: status = %d (%s)", rec.Code, rec.Body.String())
	}
	var article domain.Article
	decodeOK(t, rec, &article)
	if article.ID == 0 || article.Status != domain.StatusSubmitted {
		t.Fatalf("unexpected article: %+v", article)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/articles/1/auto-assign", "author", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("auto-assign: status = %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/articles/1/reviews", "rev1",
		map[string]any{"decision": "accept", "comments": "Looks solid"})
	if rec.Code != http.StatusOK {
		t.Fatalf("review: status = %d (%s)", rec.Code, rec.Body.String())
	}
	decodeOK(t, rec, &article)
	if article.Status != domain.StatusPendingFinalDecision {
		t.Fatalf("status = %s, want %s", article.Status, domain.StatusPendingFinalDecision)
	}

	// Duplicate review surfaces as a conflict with the tagged error body.
	rec = doJSON(t, handler, http.MethodPost, "/api/articles/1/reviews", "rev1",
		map[string]any{"decision": "reject", "comments": "changed my mind"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate review: status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if !strings.Contains(rec.Body.String(), "DuplicateReview") {
		t.Fatalf("body = %s, want DuplicateReview", rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/articles/1/finalize", "author", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("finalize: status = %d (%s)", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/articles/1/publish", "author", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("publish: status = %d (%s)", rec.Code, rec.Body.String())
	}

	var published struct {
		Version uint64           `json:"version"`
		Items   []domain.Article `json:"items"`
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/published", "anyone", nil)
	decodeOK(t, rec, &published)
	if len(published.Items) != 1 || published.Items[0].Status != domain.StatusPublished {
		t.Fatalf("published list = %+v", published)
	}
	if published.Version == 0 {
		t.Fatal("listing must carry the change-feed version")
	}
}

func TestVersionEndpoint(t *testing.T) {
	t.Parallel()
	handler := newTestHandler(t, 1)

	rec := doJSON(t, handler, http.MethodGet, "/api/version", "anyone", nil)
	var payload struct {
		Version uint64 `json:"version"`
	}
	decodeOK(t, rec, &payload)
	if payload.Version != 0 {
		t.Fatalf("version = %d, want 0", payload.Version)
	}

	doJSON(t, handler, http.MethodPost, "/api/profiles", "rev1",
		map[string]any{"name": "R", "expertise": []string{"x"}})

	rec = doJSON(t, handler, http.MethodGet, "/api/version", "anyone", nil)
	decodeOK(t, rec, &payload)
	if payload.Version != 1 {
		t.Fatalf("version = %d, want 1", payload.Version)
	}
}

func TestUploadContent(t *testing.T) {
	t.Parallel()
	handler := newTestHandler(t, 1)

	req := httptest.NewRequest(http.MethodPost, "/api/content", strings.NewReader("raw article bytes"))
	req.Header.Set(principalHeader, "author")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var payload struct {
		ContentHash string `json:"contentHash"`
	}
	decodeOK(t, rec, &payload)
	if payload.ContentHash != "QmFakeHash" {
		t.Fatalf("contentHash = %q", payload.ContentHash)
	}
}

func TestNotificationsOverHTTP(t *testing.T) {
	t.Parallel()
	handler := newTestHandler(t, 1)

	doJSON(t, handler, http.MethodPost, "/api/profiles", "rev1",
		map[string]any{"name": "R", "expertise": []string{"physics"}})
	doJSON(t, handler, http.MethodPost, "/api/articles", "author",
		map[string]any{"title": "T", "contentHash": "Qm", "keywords": []string{"physics"}})
	doJSON(t, handler, http.MethodPost, "/api/articles/1/reviewers", "author",
		map[string]any{"reviewer": "rev1"})

	var notes struct {
		Version uint64                `json:"version"`
		Items   []domain.Notification `json:"items"`
	}
	rec := doJSON(t, handler, http.MethodGet, "/api/notifications", "rev1", nil)
	decodeOK(t, rec, &notes)
	if len(notes.Items) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notes.Items))
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/notifications/read", "rev1",
		map[string]any{"ids": []uint64{notes.Items[0].ID}})
	if rec.Code != http.StatusOK {
		t.Fatalf("mark read: status = %d (%s)", rec.Code, rec.Body.String())
	}

	var unread struct {
		Unread int `json:"unread"`
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/notifications/unread", "rev1", nil)
	decodeOK(t, rec, &unread)
	if unread.Unread != 0 {
		t.Fatalf("unread = %d, want 0", unread.Unread)
	}
}
