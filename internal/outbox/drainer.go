package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"namematch/internal/remote"
)

const batchSize = 50

// Drainer replays queued ops against the remote store.
type Drainer struct {
	outbox  *Outbox
	client  *remote.Client
	limiter *rate.Limiter
	log     *slog.Logger
	tick    time.Duration
}

// NewDrainer creates a Drainer that performs at most perSecond remote
// writes per second.
func NewDrainer(o *Outbox, client *remote.Client, perSecond float64, log *slog.Logger) *Drainer {
	return &Drainer{
		outbox:  o,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		log:     log,
		tick:    2 * time.Second,
	}
}

// SetTickInterval overrides the default 2-second drain interval.
func (d *Drainer) SetTickInterval(t time.Duration) {
	d.tick = t
}

// Run drains the outbox on every tick and whenever new ops are enqueued,
// blocking until ctx is cancelled.
func (d *Drainer) Run(ctx context.Context) {
	d.Drain(ctx)

	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Drain(ctx)
		case <-d.outbox.wake:
			d.Drain(ctx)
		}
	}
}

// Drain performs one pass and returns the number of ops delivered. The
// pass stops at the first failing op so later ops never overtake it.
func (d *Drainer) Drain(ctx context.Context) int {
	sent := 0
	for ctx.Err() == nil {
		rows, err := d.outbox.store.Pending(ctx, batchSize)
		if err != nil {
			d.log.Error("list pending ops", "error", err)
			return sent
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			op, err := Decode(row)
			if err != nil {
				d.log.Error("drop undecodable op", "op_id", row.ID, "kind", row.Kind, "error", err)
				if !d.done(ctx, row.ID) {
					return sent
				}
				continue
			}
			if err := d.limiter.Wait(ctx); err != nil {
				return sent
			}
			if err := Execute(ctx, d.client, op); err != nil {
				if errors.Is(err, ErrInvalidOp) {
					d.log.Error("drop invalid op", "op_id", row.ID, "kind", op.Kind, "error", err)
					if !d.done(ctx, row.ID) {
						return sent
					}
					continue
				}
				d.fail(ctx, row.ID, row.Attempts, op.Kind, err)
				return sent
			}
			sent++
			if !d.done(ctx, row.ID) {
				return sent
			}
		}
		if len(rows) < batchSize {
			break
		}
	}
	if sent > 0 {
		d.log.Debug("drained outbox", "count", sent)
	}
	return sent
}

func (d *Drainer) done(ctx context.Context, id int64) bool {
	if err := d.outbox.store.Done(ctx, id); err != nil {
		d.log.Error("complete op", "op_id", id, "error", err)
		return false
	}
	return true
}

func (d *Drainer) fail(ctx context.Context, id int64, attempts int, kind Kind, cause error) {
	// Repeated failures of the same op are expected while offline.
	level := slog.LevelWarn
	if attempts > 0 {
		level = slog.LevelDebug
	}
	d.log.Log(ctx, level, "remote write failed", "op_id", id, "kind", kind, "attempts", attempts+1, "error", cause)
	if err := d.outbox.store.Fail(ctx, id, cause.Error()); err != nil {
		d.log.Error("record op failure", "op_id", id, "error", err)
	}
}
