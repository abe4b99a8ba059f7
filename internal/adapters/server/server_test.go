package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hylla/plank/internal/adapters/server/common"
)

// stubBoard returns fixed results for every board call.
type stubBoard struct {
	moveErr error
	move    common.MoveResult
}

func (s *stubBoard) ListProjects(context.Context, bool) ([]common.Project, error) {
	return []common.Project{{ID: "p1", Name: "Launch"}}, nil
}

func (s *stubBoard) CreateProject(context.Context, common.CreateProjectRequest) (common.Project, error) {
	return common.Project{}, nil
}

func (s *stubBoard) ListBuckets(context.Context, string) ([]common.Bucket, error) {
	return nil, nil
}

func (s *stubBoard) ListItems(context.Context, string, string) ([]common.Item, error) {
	return nil, nil
}

func (s *stubBoard) CreateItem(context.Context, common.CreateItemRequest) (common.Item, error) {
	return common.Item{}, nil
}

func (s *stubBoard) MoveItem(context.Context, common.MoveItemRequest) (common.MoveResult, error) {
	return s.move, s.moveErr
}

func (s *stubBoard) RebalanceBucket(_ context.Context, projectID, bucketKey string) (common.RebalanceResult, error) {
	return common.RebalanceResult{ProjectID: projectID, BucketKey: bucketKey, Updated: []common.KeyUpdate{{ItemID: "a", OrderKey: 1000}}}, nil
}

func (s *stubBoard) DeleteItem(context.Context, string, string) error {
	return nil
}

func (s *stubBoard) ListChangeEvents(context.Context, string, int) ([]common.ChangeEvent, error) {
	return nil, nil
}

// recordingLogger keeps "level msg" lines for assertions.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) add(level, msg string, keyvals []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprint(append([]any{level, msg}, keyvals...)...))
}

func (l *recordingLogger) Debug(msg string, keyvals ...any) { l.add("debug", msg, keyvals) }
func (l *recordingLogger) Info(msg string, keyvals ...any)  { l.add("info", msg, keyvals) }
func (l *recordingLogger) Warn(msg string, keyvals ...any)  { l.add("warn", msg, keyvals) }

func (l *recordingLogger) contains(fragment string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, fragment) {
			return true
		}
	}
	return false
}

func get(t *testing.T, h http.Handler, method, target string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader("")))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return rec.Code, string(body)
}

// TestNewHandlerDefaults verifies default endpoints and dependency validation.
func TestNewHandlerDefaults(t *testing.T) {
	_, cfg, err := NewHandler(Config{}, Dependencies{Board: &stubBoard{}})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	if cfg.HTTPBind != defaultBindAddress || cfg.APIEndpoint != "/api/v1" || cfg.MCPEndpoint != "/mcp" || cfg.ServerName != "plank" {
		t.Fatalf("unexpected normalized config %#v", cfg)
	}
	if _, _, err := NewHandler(Config{}, Dependencies{}); err == nil {
		t.Fatal("expected error for missing board dependency")
	}
}

// TestNormalizeConfigRejectsCollisions verifies colliding or reserved endpoints fail.
func TestNormalizeConfigRejectsCollisions(t *testing.T) {
	cases := []Config{
		{APIEndpoint: "/mcp"},
		{APIEndpoint: "metrics"},
		{MCPEndpoint: "/healthz/"},
	}
	for _, cfg := range cases {
		if _, err := normalizeConfig(cfg); err == nil {
			t.Fatalf("expected error for %#v", cfg)
		}
	}
	cfg, err := normalizeConfig(Config{APIEndpoint: "api/v2/", MCPEndpoint: " agents "})
	if err != nil {
		t.Fatalf("normalizeConfig() error = %v", err)
	}
	if cfg.APIEndpoint != "/api/v2" || cfg.MCPEndpoint != "/agents" {
		t.Fatalf("unexpected endpoints %#v", cfg)
	}
}

// TestHandlerHealthAndReadiness verifies liveness and probe-backed readiness.
func TestHandlerHealthAndReadiness(t *testing.T) {
	ready := errors.New("database locked")
	h, _, err := NewHandler(Config{}, Dependencies{
		Board: &stubBoard{},
		Ready: func(context.Context) error { return ready },
	})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	if code, _ := get(t, h, http.MethodGet, "/healthz"); code != http.StatusOK {
		t.Fatalf("healthz = %d, want 200", code)
	}
	if code, _ := get(t, h, http.MethodGet, "/readyz"); code != http.StatusServiceUnavailable {
		t.Fatalf("readyz = %d, want 503", code)
	}
	ready = nil
	if code, _ := get(t, h, http.MethodGet, "/readyz"); code != http.StatusOK {
		t.Fatalf("readyz = %d, want 200", code)
	}
}

// TestHandlerRoutesAPIAndCountsMoves verifies REST mounting and move metrics.
func TestHandlerRoutesAPIAndCountsMoves(t *testing.T) {
	board := &stubBoard{move: common.MoveResult{Kind: "cross_bucket", Rebalanced: []common.KeyUpdate{{ItemID: "b", OrderKey: 2000}}}}
	metrics := NewMetrics()
	h, _, err := NewHandler(Config{}, Dependencies{Board: board, Metrics: metrics})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	code, body := get(t, h, http.MethodGet, "/api/v1/projects")
	if code != http.StatusOK || !strings.Contains(body, `"p1"`) {
		t.Fatalf("projects = %d %s", code, body)
	}
	if code, _ := get(t, h, http.MethodPost, "/api/v1/items/i1/move"); code != http.StatusOK {
		t.Fatalf("move = %d, want 200", code)
	}
	board.moveErr = fmt.Errorf("move item: %w", common.ErrInvalidMove)
	if code, _ := get(t, h, http.MethodPost, "/api/v1/items/i1/move"); code != http.StatusBadRequest {
		t.Fatalf("invalid move = %d, want 400", code)
	}
	if code, _ := get(t, h, http.MethodPost, "/api/v1/projects/p1/buckets/c1/rebalance"); code != http.StatusOK {
		t.Fatalf("rebalance = %d, want 200", code)
	}

	code, body = get(t, h, http.MethodGet, "/metrics")
	if code != http.StatusOK {
		t.Fatalf("metrics = %d", code)
	}
	for _, want := range []string{
		`plank_moves_total{kind="cross_bucket"} 1`,
		`plank_rejected_moves_total{reason="invalid_move"} 1`,
		`plank_rebalances_total{trigger="move"} 1`,
		`plank_rebalances_total{trigger="manual"} 1`,
		`plank_http_request_duration_seconds_count{code="400",method="POST",surface="api"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, body)
		}
	}
}

// TestRunStopsOnContextCancel verifies graceful shutdown returns nil.
func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{HTTPBind: "127.0.0.1:0"}, Dependencies{Board: &stubBoard{}})
	}()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

// TestHandlerLogsRequestsAndProbeFailures verifies access lines and readiness warnings reach the logger.
func TestHandlerLogsRequestsAndProbeFailures(t *testing.T) {
	log := &recordingLogger{}
	h, _, err := NewHandler(Config{}, Dependencies{
		Board:  &stubBoard{},
		Ready:  func(context.Context) error { return errors.New("disk gone") },
		Logger: log,
	})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	get(t, h, http.MethodGet, "/api/v1/projects")
	get(t, h, http.MethodGet, "/readyz")
	if !log.contains("debughttp request") || !log.contains("/api/v1/projects") {
		t.Fatalf("expected access line, got %v", log.lines)
	}
	if !log.contains("warnreadiness probe failed") || !log.contains("disk gone") {
		t.Fatalf("expected readiness warning, got %v", log.lines)
	}
}

// TestRunLogsLifecycle verifies Run reports the bound address and a clean stop.
func TestRunLogsLifecycle(t *testing.T) {
	log := &recordingLogger{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{HTTPBind: "127.0.0.1:0"}, Dependencies{Board: &stubBoard{}, Logger: log})
	}()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !log.contains("http server listening") || !log.contains("127.0.0.1:") || !log.contains("http server stopped") {
		t.Fatalf("unexpected lifecycle log %v", log.lines)
	}
}

// TestRunReportsListenFailure verifies an unusable bind address fails before serving.
func TestRunReportsListenFailure(t *testing.T) {
	err := Run(context.Background(), Config{HTTPBind: "256.0.0.1:99999"}, Dependencies{Board: &stubBoard{}})
	if err == nil || !strings.Contains(err.Error(), "listen on") {
		t.Fatalf("expected listen error, got %v", err)
	}
}

// TestHandlerRateLimitsPerClient verifies 429 envelopes once a client spends its burst.
func TestHandlerRateLimitsPerClient(t *testing.T) {
	metrics := NewMetrics()
	h, _, err := NewHandler(Config{RateLimit: RateLimit{RPS: 0.5, Burst: 1}}, Dependencies{Board: &stubBoard{}, Metrics: metrics})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	if code, _ := get(t, h, http.MethodGet, "/api/v1/projects"); code != http.StatusOK {
		t.Fatalf("first request = %d, want 200", code)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil))
	if rec.Code != http.StatusTooManyRequests || !strings.Contains(rec.Body.String(), `"rate_limited"`) {
		t.Fatalf("second request = %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("unexpected Retry-After %q", rec.Header().Get("Retry-After"))
	}

	other := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	other.RemoteAddr = "198.51.100.7:4000"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Fatalf("other client = %d, want 200", rec.Code)
	}
	if code, _ := get(t, h, http.MethodGet, "/healthz"); code != http.StatusOK {
		t.Fatalf("healthz should bypass the limiter, got %d", code)
	}

	_, body := get(t, h, http.MethodGet, "/metrics")
	if !strings.Contains(body, `plank_rate_limited_requests_total{surface="api"} 1`) {
		t.Fatalf("metrics output missing rate limit counter:\n%s", body)
	}
	if _, err := normalizeConfig(Config{RateLimit: RateLimit{RPS: -1}}); err == nil {
		t.Fatal("expected negative rate limit to be rejected")
	}
}

// TestLimiterPoolEvictsIdleClients verifies keys idle past the TTL are dropped and active ones kept.
func TestLimiterPoolEvictsIdleClients(t *testing.T) {
	pool := newLimiterPool(RateLimit{RPS: 1})
	stopped, cancel := context.WithCancel(context.Background())
	cancel()
	pool.startSweeping(stopped)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	pool.now = func() time.Time { return now }
	pool.get("192.0.2.1")
	pool.get("192.0.2.2")
	now = now.Add(5 * time.Minute)
	pool.get("192.0.2.2")
	now = now.Add(6 * time.Minute)

	if removed := pool.sweep(); removed != 1 {
		t.Fatalf("sweep() removed %d, want 1", removed)
	}
	if pool.size() != 1 {
		t.Fatalf("expected the active client to stay, got %d keys", pool.size())
	}
	now = now.Add(defaultLimiterTTL)
	if removed := pool.sweep(); removed != 1 || pool.size() != 0 {
		t.Fatalf("expected every idle key gone, removed %d left %d", removed, pool.size())
	}
}

// TestLimiterPoolSweepsInBackground verifies the sweep loop runs until its context ends.
func TestLimiterPoolSweepsInBackground(t *testing.T) {
	pool := newLimiterPool(RateLimit{RPS: 1})
	pool.ttl = time.Millisecond
	pool.period = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.startSweeping(ctx)
	pool.get("192.0.2.9")

	deadline := time.Now().Add(2 * time.Second)
	for pool.size() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected idle key to be swept")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
