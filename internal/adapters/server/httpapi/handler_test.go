package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hylla/plank/internal/adapters/server/common"
)

// stubBoardService records requests and returns configured fixtures.
type stubBoardService struct {
	projects  []common.Project
	buckets   []common.Bucket
	items     []common.Item
	item      common.Item
	move      common.MoveResult
	rebalance common.RebalanceResult
	events    []common.ChangeEvent
	err       error

	lastCreateProject common.CreateProjectRequest
	lastCreateItem    common.CreateItemRequest
	lastMove          common.MoveItemRequest
	lastProjectID     string
	lastBucketKey     string
	lastItemID        string
	lastMode          string
	lastLimit         int
	lastArchived      bool
}

func (s *stubBoardService) ListProjects(_ context.Context, includeArchived bool) ([]common.Project, error) {
	s.lastArchived = includeArchived
	return s.projects, s.err
}

func (s *stubBoardService) CreateProject(_ context.Context, in common.CreateProjectRequest) (common.Project, error) {
	s.lastCreateProject = in
	if s.err != nil {
		return common.Project{}, s.err
	}
	return common.Project{ID: "p1", Name: in.Name, Board: in.Board}, nil
}

func (s *stubBoardService) ListBuckets(_ context.Context, projectID string) ([]common.Bucket, error) {
	s.lastProjectID = projectID
	return s.buckets, s.err
}

func (s *stubBoardService) ListItems(_ context.Context, projectID, bucketKey string) ([]common.Item, error) {
	s.lastProjectID, s.lastBucketKey = projectID, bucketKey
	return s.items, s.err
}

func (s *stubBoardService) CreateItem(_ context.Context, in common.CreateItemRequest) (common.Item, error) {
	s.lastCreateItem = in
	return s.item, s.err
}

func (s *stubBoardService) MoveItem(_ context.Context, in common.MoveItemRequest) (common.MoveResult, error) {
	s.lastMove = in
	return s.move, s.err
}

func (s *stubBoardService) RebalanceBucket(_ context.Context, projectID, bucketKey string) (common.RebalanceResult, error) {
	s.lastProjectID, s.lastBucketKey = projectID, bucketKey
	return s.rebalance, s.err
}

func (s *stubBoardService) DeleteItem(_ context.Context, itemID, mode string) error {
	s.lastItemID, s.lastMode = itemID, mode
	return s.err
}

func (s *stubBoardService) ListChangeEvents(_ context.Context, projectID string, limit int) ([]common.ChangeEvent, error) {
	s.lastProjectID, s.lastLimit = projectID, limit
	return s.events, s.err
}

// decodeBody decodes one JSON response body into the requested type.
func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return out
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func keyPtr(v float64) *float64 {
	return &v
}

// TestHandlerListProjects verifies list responses and query parsing.
func TestHandlerListProjects(t *testing.T) {
	svc := &stubBoardService{projects: []common.Project{{ID: "p1", Name: "Launch", Board: "kanban"}}}
	rec := serve(NewHandler(svc), http.MethodGet, "/projects?include_archived=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	got := decodeBody[struct {
		Projects []common.Project `json:"projects"`
	}](t, rec)
	if len(got.Projects) != 1 || got.Projects[0].ID != "p1" || !svc.lastArchived {
		t.Fatalf("unexpected response %#v (archived=%v)", got, svc.lastArchived)
	}
}

// TestHandlerCreateProject verifies strict JSON decoding and 201 responses.
func TestHandlerCreateProject(t *testing.T) {
	svc := &stubBoardService{}
	h := NewHandler(svc)

	rec := serve(h, http.MethodPost, "/projects", `{"name":"Roadmap","board":"planning","plan_start":"2024-01-01","plan_end":"2024-03-31"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.lastCreateProject.Board != "planning" || svc.lastCreateProject.PlanEnd != "2024-03-31" {
		t.Fatalf("unexpected request %#v", svc.lastCreateProject)
	}

	rec = serve(h, http.MethodPost, "/projects", `{"name":"x","color":"red"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
	rec = serve(h, http.MethodPost, "/projects", `{"name":"x"}{"name":"y"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for trailing content, got %d", rec.Code)
	}
}

// TestHandlerBucketAndItemRoutes verifies path parameters reach the service.
func TestHandlerBucketAndItemRoutes(t *testing.T) {
	svc := &stubBoardService{
		buckets: []common.Bucket{{Key: "2024-W01", Name: "Week of Jan 1, 2024"}},
		items:   []common.Item{{ID: "i1", BucketKey: "2024-W01", OrderKey: keyPtr(1000)}},
		item:    common.Item{ID: "i2", Title: "New"},
	}
	h := NewHandler(svc)

	rec := serve(h, http.MethodGet, "/projects/p9/buckets", "")
	if rec.Code != http.StatusOK || svc.lastProjectID != "p9" {
		t.Fatalf("unexpected buckets response %d / %q", rec.Code, svc.lastProjectID)
	}

	rec = serve(h, http.MethodGet, "/projects/p9/items?bucket=2024-W01", "")
	if rec.Code != http.StatusOK || svc.lastBucketKey != "2024-W01" {
		t.Fatalf("unexpected items response %d / %q", rec.Code, svc.lastBucketKey)
	}
	items := decodeBody[struct {
		Items []common.Item `json:"items"`
	}](t, rec)
	if len(items.Items) != 1 || *items.Items[0].OrderKey != 1000 {
		t.Fatalf("unexpected items %#v", items)
	}

	rec = serve(h, http.MethodPost, "/projects/p9/items", `{"title":"New","bucket_key":"2024-W01","project_id":"ignored"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.lastCreateItem.ProjectID != "p9" || svc.lastCreateItem.Title != "New" {
		t.Fatalf("unexpected create request %#v", svc.lastCreateItem)
	}

	rec = serve(h, http.MethodPost, "/projects/p9/buckets/2024-W01/rebalance", "")
	if rec.Code != http.StatusOK || svc.lastBucketKey != "2024-W01" {
		t.Fatalf("unexpected rebalance response %d / %q", rec.Code, svc.lastBucketKey)
	}

	rec = serve(h, http.MethodGet, "/projects/p9/events?limit=5", "")
	if rec.Code != http.StatusOK || svc.lastLimit != 5 {
		t.Fatalf("unexpected events response %d / %d", rec.Code, svc.lastLimit)
	}
	rec = serve(h, http.MethodGet, "/projects/p9/events?limit=many", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
}

// TestHandlerMoveItem verifies move decoding, including an empty body append.
func TestHandlerMoveItem(t *testing.T) {
	svc := &stubBoardService{move: common.MoveResult{Kind: "same_bucket", Item: common.Item{ID: "i1", OrderKey: keyPtr(2500)}}}
	h := NewHandler(svc)

	rec := serve(h, http.MethodPost, "/items/i1/move", `{"sibling_id":"i2","side":"after","to_bucket":"todo"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.lastMove.ItemID != "i1" || svc.lastMove.SiblingID != "i2" || svc.lastMove.Side != "after" {
		t.Fatalf("unexpected move request %#v", svc.lastMove)
	}
	got := decodeBody[common.MoveResult](t, rec)
	if got.Kind != "same_bucket" || *got.Item.OrderKey != 2500 {
		t.Fatalf("unexpected move response %#v", got)
	}

	rec = serve(h, http.MethodPost, "/items/i3/move", "")
	if rec.Code != http.StatusOK || svc.lastMove.ItemID != "i3" || svc.lastMove.SiblingID != "" {
		t.Fatalf("expected empty body append, got %d %#v", rec.Code, svc.lastMove)
	}

	rec = serve(h, http.MethodPost, "/items/i4/move", `{"to_bucket":"W2"}{"x":1}`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"invalid_request"`) {
		t.Fatalf("expected trailing content to be rejected, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.lastMove.ItemID != "i3" {
		t.Fatalf("expected rejected body to skip the service, got %#v", svc.lastMove)
	}
}

// TestHandlerDeleteItem verifies the mode query reaches the service.
func TestHandlerDeleteItem(t *testing.T) {
	svc := &stubBoardService{}
	rec := serve(NewHandler(svc), http.MethodDelete, "/items/i1?mode=hard", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if svc.lastItemID != "i1" || svc.lastMode != "hard" {
		t.Fatalf("unexpected delete request %q/%q", svc.lastItemID, svc.lastMode)
	}
}

// TestHandlerErrorMapping verifies transport categories map to status codes and codes.
func TestHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "invalid move", err: fmt.Errorf("move item: %w", errors.Join(common.ErrInvalidMove, errors.New("sibling gone"))), wantStatus: http.StatusBadRequest, wantCode: "invalid_move"},
		{name: "not found", err: fmt.Errorf("move item: %w", common.ErrNotFound), wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "invalid request", err: common.ErrInvalidRequest, wantStatus: http.StatusBadRequest, wantCode: "invalid_request"},
		{name: "unavailable", err: common.ErrUnavailable, wantStatus: http.StatusServiceUnavailable, wantCode: "service_unavailable"},
		{name: "internal", err: errors.New("disk full"), wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(NewHandler(&stubBoardService{err: tc.err}), http.MethodPost, "/items/i1/move", `{"side":"before","sibling_id":"i2"}`)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
			env := decodeBody[ErrorEnvelope](t, rec)
			if env.Error.Code != tc.wantCode {
				t.Fatalf("expected code %q, got %q", tc.wantCode, env.Error.Code)
			}
		})
	}
}

// TestHandlerRoutingFallbacks verifies structured 404/405/503 responses.
func TestHandlerRoutingFallbacks(t *testing.T) {
	h := NewHandler(&stubBoardService{})
	rec := serve(h, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if env := decodeBody[ErrorEnvelope](t, rec); env.Error.Code != "not_found" {
		t.Fatalf("unexpected envelope %#v", env)
	}

	rec = serve(h, http.MethodPut, "/projects", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}

	rec = serve(NewHandler(nil), http.MethodGet, "/projects", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
