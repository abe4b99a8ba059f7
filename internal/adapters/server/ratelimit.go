package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hylla/plank/internal/adapters/server/httpapi"
)

// RateLimit caps requests per client address. A zero RPS disables limiting.
type RateLimit struct {
	RPS   float64
	Burst int
}

func (l RateLimit) enabled() bool {
	return l.RPS > 0
}

const (
	defaultLimiterTTL  = 10 * time.Minute
	defaultSweepPeriod = time.Minute
)

type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

// limiterPool hands out one token bucket per client key and forgets keys idle for longer than ttl.
type limiterPool struct {
	mu     sync.Mutex
	m      map[string]*limiterEntry
	limit  RateLimit
	ttl    time.Duration
	period time.Duration
	now    func() time.Time
	sweeps sync.Once
}

func newLimiterPool(limit RateLimit) *limiterPool {
	if limit.Burst <= 0 {
		limit.Burst = max(1, int(limit.RPS))
	}
	return &limiterPool{
		m:      map[string]*limiterEntry{},
		limit:  limit,
		ttl:    defaultLimiterTTL,
		period: defaultSweepPeriod,
		now:    time.Now,
	}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.startSweeping(context.Background())

	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if e, ok := p.m[key]; ok {
		e.lastSeen = now
		return e.l
	}
	l := rate.NewLimiter(rate.Limit(p.limit.RPS), p.limit.Burst)
	p.m[key] = &limiterEntry{l: l, lastSeen: now}
	return l
}

// startSweeping runs the idle-key sweep until ctx ends. Only the first call starts it.
func (p *limiterPool) startSweeping(ctx context.Context) {
	p.sweeps.Do(func() {
		go func() {
			ticker := time.NewTicker(p.period)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.sweep()
				}
			}
		}()
	})
}

// sweep drops keys not seen within ttl and reports how many it dropped.
func (p *limiterPool) sweep() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := p.now().Add(-p.ttl)
	removed := 0
	for key, e := range p.m {
		if e.lastSeen.Before(cutoff) {
			delete(p.m, key)
			removed++
		}
	}
	return removed
}

func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}

// clientKey is the remote host without its port.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// throttle rejects over-budget requests with 429 before they reach next.
func throttle(surface string, next http.Handler, pool *limiterPool, metrics *Metrics, log Logger) http.Handler {
	if pool == nil {
		return next
	}
	retryAfter := strconv.Itoa(max(1, int(1/pool.limit.RPS)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if pool.get(key).Allow() {
			next.ServeHTTP(w, r)
			return
		}
		metrics.rateLimited.WithLabelValues(surface).Inc()
		log.Warn("rate limited", "surface", surface, "client", key, "path", r.URL.Path)
		w.Header().Set("Retry-After", retryAfter)
		httpapi.WriteError(w, http.StatusTooManyRequests, httpapi.APIError{
			Code:    "rate_limited",
			Message: "too many requests",
			Hint:    "retry after " + retryAfter + "s",
		})
	})
}
