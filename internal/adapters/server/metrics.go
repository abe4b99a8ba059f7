package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hylla/plank/internal/adapters/server/common"
)

// Metrics holds the serve-mode collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	moves           *prometheus.CounterVec
	rebalances      *prometheus.CounterVec
	rejectedMoves   *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plank_moves_total",
			Help: "Completed item moves by kind.",
		}, []string{"kind"}),
		rebalances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plank_rebalances_total",
			Help: "Bucket rebalances by trigger.",
		}, []string{"trigger"}),
		rejectedMoves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plank_rejected_moves_total",
			Help: "Moves that were refused before anything was persisted.",
		}, []string{"reason"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plank_rate_limited_requests_total",
			Help: "Requests refused with 429 by surface.",
		}, []string{"surface"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "plank_http_request_duration_seconds",
			Help:    "HTTP request latency by surface.",
			Buckets: prometheus.DefBuckets,
		}, []string{"surface", "method", "code"}),
	}
	m.registry.MustRegister(
		m.moves,
		m.rebalances,
		m.rejectedMoves,
		m.rateLimited,
		m.requestDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one finished request under a surface label.
func (m *Metrics) ObserveRequest(surface, method string, status int, elapsed time.Duration) {
	m.requestDuration.WithLabelValues(surface, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// WrapBoard counts moves and rebalances that pass through board.
func (m *Metrics) WrapBoard(board common.BoardService) common.BoardService {
	return &instrumentedBoard{BoardService: board, metrics: m}
}

type instrumentedBoard struct {
	common.BoardService
	metrics *Metrics
}

func (b *instrumentedBoard) MoveItem(ctx context.Context, in common.MoveItemRequest) (common.MoveResult, error) {
	res, err := b.BoardService.MoveItem(ctx, in)
	if err != nil {
		b.metrics.rejectedMoves.WithLabelValues(rejectReason(err)).Inc()
		return res, err
	}
	b.metrics.moves.WithLabelValues(res.Kind).Inc()
	if len(res.Rebalanced) > 0 {
		b.metrics.rebalances.WithLabelValues("move").Inc()
	}
	return res, nil
}

func (b *instrumentedBoard) RebalanceBucket(ctx context.Context, projectID, bucketKey string) (common.RebalanceResult, error) {
	res, err := b.BoardService.RebalanceBucket(ctx, projectID, bucketKey)
	if err == nil && len(res.Updated) > 0 {
		b.metrics.rebalances.WithLabelValues("manual").Inc()
	}
	return res, err
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, common.ErrInvalidMove):
		return "invalid_move"
	case errors.Is(err, common.ErrNotFound):
		return "not_found"
	case errors.Is(err, common.ErrInvalidRequest):
		return "invalid_request"
	default:
		return "error"
	}
}
