// Package scheduler runs reconciliation cycles on a timer and announces the
// matches they produce.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"namematch/internal/engine"
	"namematch/internal/model"
)

// Syncer is the part of the engine the scheduler drives.
type Syncer interface {
	Sync(ctx context.Context) engine.SyncResult
	Celebrations() []model.Match
	AcknowledgeCelebration(ctx context.Context, matchID string) bool
}

// Announcer delivers match announcements to the user. It reports whether
// the announcement reached anyone.
type Announcer interface {
	AnnounceMatch(m model.Match) bool
}

// Scheduler periodically reconciles with the remote store.
type Scheduler struct {
	engine    Syncer
	announcer Announcer
	log       *slog.Logger
	tick      time.Duration
}

// New creates a Scheduler with the default 5-second interval.
func New(e Syncer, announcer Announcer, log *slog.Logger) *Scheduler {
	return &Scheduler{
		engine:    e,
		announcer: announcer,
		log:       log,
		tick:      5 * time.Second,
	}
}

// SetTickInterval overrides the default 5-second sync interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res := s.engine.Sync(ctx)
	if res.Skipped {
		s.log.Debug("sync skipped")
	} else if res.Err != nil {
		s.log.Debug("sync cycle finished with errors", "error", res.Err)
	} else {
		s.log.Debug("sync cycle finished", "new_matches", len(res.NewMatches), "boosted", res.Boosted)
	}
	s.announce(ctx)
}

// announce delivers pending celebrations. Undelivered ones stay pending
// for the next cycle.
func (s *Scheduler) announce(ctx context.Context) {
	sent := 0
	for _, m := range s.engine.Celebrations() {
		if ctx.Err() != nil {
			return
		}
		if !s.announcer.AnnounceMatch(m) {
			continue
		}
		s.engine.AcknowledgeCelebration(ctx, m.ID)
		sent++

		// Rate limit: ~20 messages/sec max for Telegram
		time.Sleep(50 * time.Millisecond)
	}
	if sent > 0 {
		s.log.Info("announced matches", "count", sent)
	}
}
