package org

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/scrimhub/scrimhub/internal/metrics"
	"github.com/scrimhub/scrimhub/internal/traces"
)

// Sweeper periodically flips orgs whose trial window has lapsed from trial
// to expired. Expiry is also enforced at request time by the subscription
// gate, so the sweeper only has to keep stored state honest.
type Sweeper struct {
	store    Store
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
	stop     chan struct{}
	running  atomic.Bool
}

// NewSweeper creates a new trial-expiry sweeper.
func NewSweeper(store Store, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: time.Hour,
		logger:   logger,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Running reports whether the sweep loop is actively running.
func (s *Sweeper) Running() bool {
	return s.running.Load()
}

// Start begins the sweep loop. Call in a goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	s.running.Store(true)
	defer s.running.Store(false)

	s.safeSweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.safeSweep(ctx)
		}
	}
}

// Stop signals the sweeper to stop.
func (s *Sweeper) Stop() {
	select {
	case s.stop <- struct{}{}:
	default:
	}
}

func (s *Sweeper) safeSweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in trial sweeper", "panic", fmt.Sprint(r))
		}
	}()
	s.sweep(ctx)
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := s.now()

	ctx, span := traces.StartSpan(ctx, "org.SweepTrials")
	defer span.End()

	expired, err := s.store.ListTrialsExpired(ctx, now)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("failed to list expired trials", "error", err)
		return
	}
	span.SetAttributes(attribute.Int("trials.expired", len(expired)))

	for _, o := range expired {
		o.Status = StatusExpired
		o.UpdatedAt = now
		if err := s.store.Update(ctx, o); err != nil {
			s.logger.Warn("failed to expire trial",
				"orgId", o.ID,
				"error", err,
			)
			continue
		}
		metrics.TrialsExpiredTotal.Inc()
		s.logger.Info("trial expired",
			"orgId", o.ID,
			"slug", o.Slug,
			"trialEndedAt", o.TrialEndsAt,
		)
	}
}
