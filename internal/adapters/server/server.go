// Package server composes HTTP API and MCP transports into one process handler.
package server

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hylla/plank/internal/adapters/server/common"
	"github.com/hylla/plank/internal/adapters/server/httpapi"
	"github.com/hylla/plank/internal/adapters/server/mcpapi"
)

const (
	defaultBindAddress     = "127.0.0.1:8080"
	defaultShutdownTimeout = 5 * time.Second
)

// reservedPaths are served by the root mux and cannot host a transport.
var reservedPaths = []string{"/healthz", "/readyz", "/metrics"}

// Config defines serve-mode endpoint configuration.
type Config struct {
	HTTPBind      string
	APIEndpoint   string
	MCPEndpoint   string
	ServerName    string
	ServerVersion string
	// RateLimit applies per client address to the API and MCP surfaces.
	RateLimit RateLimit
}

// ReadinessProbe reports whether backing storage can serve requests.
type ReadinessProbe func(context.Context) error

// Logger receives lifecycle and per-request events.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}

// Dependencies defines app-facing adapters required by server transports.
type Dependencies struct {
	Board common.BoardService
	Ready ReadinessProbe
	// Metrics and Logger are optional.
	Metrics *Metrics
	Logger  Logger
}

func (d Dependencies) logger() Logger {
	if d.Logger == nil {
		return nopLogger{}
	}
	return d.Logger
}

// NewHandler composes one root HTTP mux containing health, metrics, REST API, and MCP endpoints.
func NewHandler(cfg Config, deps Dependencies) (http.Handler, Config, error) {
	handler, normalizedCfg, _, err := newHandler(cfg, deps)
	return handler, normalizedCfg, err
}

// newHandler also returns the rate-limit pool, nil when limiting is off, so Run can tie its sweep
// to the serve context.
func newHandler(cfg Config, deps Dependencies) (http.Handler, Config, *limiterPool, error) {
	normalizedCfg, err := normalizeConfig(cfg)
	if err != nil {
		return nil, Config{}, nil, err
	}
	if deps.Board == nil {
		return nil, Config{}, nil, fmt.Errorf("board dependency is required")
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	log := deps.logger()
	board := metrics.WrapBoard(deps.Board)

	mcpHandler, err := mcpapi.NewHandler(
		mcpapi.Config{
			ServerName:    normalizedCfg.ServerName,
			ServerVersion: normalizedCfg.ServerVersion,
			EndpointPath:  normalizedCfg.MCPEndpoint,
		},
		board,
	)
	if err != nil {
		return nil, Config{}, nil, fmt.Errorf("configure mcp handler: %w", err)
	}
	var pool *limiterPool
	if normalizedCfg.RateLimit.enabled() {
		pool = newLimiterPool(normalizedCfg.RateLimit)
	}
	surface := func(name string, h http.Handler) http.Handler {
		return observe(name, throttle(name, h, pool, metrics, log), metrics, log)
	}
	apiHandler := surface("api", http.StripPrefix(normalizedCfg.APIEndpoint, httpapi.NewHandler(board)))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", writeHealthStatus)
	mux.HandleFunc("/readyz", readinessHandler(deps.Ready, log))
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle(normalizedCfg.MCPEndpoint, surface("mcp", mcpHandler))
	mux.Handle(normalizedCfg.APIEndpoint, apiHandler)
	mux.Handle(normalizedCfg.APIEndpoint+"/", apiHandler)
	return mux, normalizedCfg, pool, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if ctx == nil {
		ctx = context.Background()
	}
	handler, normalizedCfg, pool, err := newHandler(cfg, deps)
	if err != nil {
		return fmt.Errorf("build server handler: %w", err)
	}
	log := deps.logger()
	if pool != nil {
		pool.startSweeping(ctx)
	}

	listener, err := net.Listen("tcp", normalizedCfg.HTTPBind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", normalizedCfg.HTTPBind, err)
	}
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	log.Info("http server listening",
		"addr", listener.Addr().String(),
		"api", normalizedCfg.APIEndpoint,
		"mcp", normalizedCfg.MCPEndpoint,
	)

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-serveErrCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("http server shutting down", "timeout", defaultShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	shutdownErr := httpServer.Shutdown(shutdownCtx)
	serveErr := <-serveErrCh
	if shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) {
		return fmt.Errorf("shutdown server: %w", shutdownErr)
	}
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return fmt.Errorf("serve after shutdown: %w", serveErr)
	}
	log.Info("http server stopped")
	return nil
}

// normalizeConfig applies defaults and validates endpoint collisions.
func normalizeConfig(cfg Config) (Config, error) {
	cfg.HTTPBind = strings.TrimSpace(cfg.HTTPBind)
	if cfg.HTTPBind == "" {
		cfg.HTTPBind = defaultBindAddress
	}
	cfg.APIEndpoint = normalizeEndpoint(cfg.APIEndpoint, "/api/v1")
	cfg.MCPEndpoint = normalizeEndpoint(cfg.MCPEndpoint, "/mcp")
	if cfg.APIEndpoint == cfg.MCPEndpoint {
		return Config{}, fmt.Errorf("api and mcp endpoints must differ")
	}
	for _, reserved := range reservedPaths {
		if cfg.APIEndpoint == reserved || cfg.MCPEndpoint == reserved {
			return Config{}, fmt.Errorf("endpoint %s is reserved", reserved)
		}
	}
	if cfg.RateLimit.RPS < 0 || cfg.RateLimit.Burst < 0 {
		return Config{}, fmt.Errorf("rate limit must not be negative")
	}
	cfg.ServerName = cmp.Or(strings.TrimSpace(cfg.ServerName), "plank")
	cfg.ServerVersion = cmp.Or(strings.TrimSpace(cfg.ServerVersion), "dev")
	return cfg, nil
}

// normalizeEndpoint returns "/"-prefixed path without a trailing slash, or fallback for empty and root.
func normalizeEndpoint(path string, fallback string) string {
	path = "/" + strings.Trim(strings.TrimSpace(path), "/")
	if path == "/" {
		return fallback
	}
	return path
}

// statusRecorder captures the response status for metrics and access logs.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps streamable MCP responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// observe times each request under surface and emits one debug access line.
func observe(surface string, next http.Handler, metrics *Metrics, log Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(started)
		metrics.ObserveRequest(surface, r.Method, rec.status, elapsed)
		log.Debug("http request",
			"surface", surface,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", elapsed,
		)
	})
}

// writeHealthStatus responds with a deterministic liveness payload.
func writeHealthStatus(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusOK, "ok")
}

// readinessHandler reports 503 while the probe fails.
func readinessHandler(probe ReadinessProbe, log Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if probe != nil {
			if err := probe(r.Context()); err != nil {
				log.Warn("readiness probe failed", "err", err)
				writeStatus(w, http.StatusServiceUnavailable, "unavailable")
				return
			}
		}
		writeStatus(w, http.StatusOK, "ok")
	}
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, "{\"status\":%q}\n", status)
}
