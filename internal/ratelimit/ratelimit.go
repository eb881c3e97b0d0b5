// Package ratelimit provides the abuse gate for the Scrimhub API.
//
// Limits are organised into named buckets, each with its own window and
// threshold. Checks are keyed by user ID when the request is authenticated
// and by client IP otherwise. The limiter never blocks traffic because the
// counter store is down: store errors fail open with a degraded-mode log.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scrimhub/scrimhub/internal/access"
	"github.com/scrimhub/scrimhub/internal/metrics"
)

// Bucket defines one rate-limit class.
type Bucket struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Buckets is the limit catalogue. Credential endpoints get tight limits;
// the api bucket is the broad backstop for everything else.
var Buckets = map[string]Bucket{
	"login":          {Name: "login", Limit: 10, Window: 15 * time.Minute},
	"register":       {Name: "register", Limit: 5, Window: time.Hour},
	"password_reset": {Name: "password_reset", Limit: 5, Window: time.Hour},
	"api":            {Name: "api", Limit: 300, Window: time.Minute},
}

// Verdict is the outcome of one rate-limit check.
type Verdict struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	// Degraded means the counter store failed and the request was let
	// through unchecked.
	Degraded bool
}

// Store counts hits against a key within a bucket's window.
type Store interface {
	// Take records one hit and reports whether it fits under the limit.
	Take(ctx context.Context, key string, b Bucket) (allowed bool, remaining int, retryAfter time.Duration, err error)
}

// Limiter evaluates rate limits against a Store.
type Limiter struct {
	store    Store
	logger   *slog.Logger
	degraded atomic.Bool
}

// New creates a limiter over the given store.
func New(store Store, logger *slog.Logger) *Limiter {
	return &Limiter{store: store, logger: logger}
}

// Check records a hit for key in the named bucket. Unknown bucket names use
// the api bucket. A store failure allows the request and logs once per
// incident, not once per request.
func (l *Limiter) Check(ctx context.Context, bucketName, key string) Verdict {
	b, ok := Buckets[bucketName]
	if !ok {
		b = Buckets["api"]
	}

	allowed, remaining, retryAfter, err := l.store.Take(ctx, b.Name+":"+key, b)
	if err != nil {
		if l.degraded.CompareAndSwap(false, true) {
			l.logger.Warn("rate limiter degraded-mode: counter store failing, serving unchecked",
				"bucket", b.Name,
				"error", err,
			)
		}
		metrics.RateLimitTotal.WithLabelValues(b.Name, "degraded").Inc()
		return Verdict{Allowed: true, Degraded: true}
	}
	if l.degraded.CompareAndSwap(true, false) {
		l.logger.Info("rate limiter recovered", "bucket", b.Name)
	}

	if !allowed {
		metrics.RateLimitTotal.WithLabelValues(b.Name, "limited").Inc()
		return Verdict{Allowed: false, Remaining: 0, RetryAfter: retryAfter}
	}
	metrics.RateLimitTotal.WithLabelValues(b.Name, "allowed").Inc()
	return Verdict{Allowed: true, Remaining: remaining}
}

// Middleware gates a route on the named bucket. Behind Authenticate the key
// is the user ID, so one noisy client cannot exhaust an office NAT's budget;
// on public routes it is the client IP.
func (l *Limiter) Middleware(bucketName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if ac, ok := access.FromContext(c.Request.Context()); ok {
			key = ac.UserID
		}

		v := l.Check(c.Request.Context(), bucketName, key)
		if !v.Allowed {
			access.WriteRateLimited(c, v.RetryAfter)
			return
		}
		c.Next()
	}
}

// MemoryStore is an in-process token-bucket store for single-node
// deployments and as the fallback when Redis is not configured. Each key
// holds Limit tokens refilled continuously over the bucket's window.
type MemoryStore struct {
	mu      sync.Mutex
	clients map[string]*clientState
	now     func() time.Time
	stop    chan struct{}
}

type clientState struct {
	tokens    float64
	lastCheck time.Time
}

// NewMemoryStore creates a memory store and starts its cleanup loop.
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{
		clients: make(map[string]*clientState),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go m.cleanup()
	return m
}

// cleanup removes stale entries periodically.
func (m *MemoryStore) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			cutoff := m.now().Add(-2 * time.Hour)
			for key, state := range m.clients {
				if state.lastCheck.Before(cutoff) {
					delete(m.clients, key)
				}
			}
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

// Stop stops the cleanup goroutine.
func (m *MemoryStore) Stop() {
	close(m.stop)
}

func (m *MemoryStore) Take(_ context.Context, key string, b Bucket) (bool, int, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	refillPerSecond := float64(b.Limit) / b.Window.Seconds()

	state, exists := m.clients[key]
	if !exists {
		m.clients[key] = &clientState{
			tokens:    float64(b.Limit - 1),
			lastCheck: now,
		}
		return true, b.Limit - 1, 0, nil
	}

	state.tokens += now.Sub(state.lastCheck).Seconds() * refillPerSecond
	if state.tokens > float64(b.Limit) {
		state.tokens = float64(b.Limit)
	}
	state.lastCheck = now

	if state.tokens >= 1 {
		state.tokens--
		return true, int(state.tokens), 0, nil
	}

	retryAfter := time.Duration((1 - state.tokens) / refillPerSecond * float64(time.Second))
	return false, 0, retryAfter, nil
}

var _ Store = (*MemoryStore)(nil)
