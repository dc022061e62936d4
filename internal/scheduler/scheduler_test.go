package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"namematch/internal/engine"
	"namematch/internal/model"
)

type mockAnnouncer struct {
	mu        sync.Mutex
	announced []string
	offline   bool
}

func (m *mockAnnouncer) AnnounceMatch(match model.Match) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return false
	}
	m.announced = append(m.announced, match.ItemID)
	return true
}

func (m *mockAnnouncer) getAnnounced() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.announced...)
}

type mockEngine struct {
	mu           sync.Mutex
	syncs        int
	result       engine.SyncResult
	celebrations []model.Match
	acked        []string
}

func (m *mockEngine) Sync(context.Context) engine.SyncResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncs++
	return m.result
}

func (m *mockEngine) Celebrations() []model.Match {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Match(nil), m.celebrations...)
}

func (m *mockEngine) AcknowledgeCelebration(_ context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.celebrations {
		if c.ID == id {
			m.celebrations = append(m.celebrations[:i], m.celebrations[i+1:]...)
			m.acked = append(m.acked, id)
			return true
		}
	}
	return false
}

func (m *mockEngine) syncCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncs
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerAnnouncesCelebrations(t *testing.T) {
	eng := &mockEngine{celebrations: []model.Match{
		{ID: "m1", ItemID: "ava"},
		{ID: "m2", ItemID: "oliver"},
	}}
	ann := &mockAnnouncer{}

	sched := New(eng, ann, newLogger())
	sched.runOnce(context.Background())

	if diff := cmp.Diff([]string{"ava", "oliver"}, ann.getAnnounced()); diff != "" {
		t.Errorf("announced mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"m1", "m2"}, eng.acked); diff != "" {
		t.Errorf("acknowledged mismatch (-want +got):\n%s", diff)
	}

	// Nothing is announced twice.
	sched.runOnce(context.Background())
	if got := len(ann.getAnnounced()); got != 2 {
		t.Errorf("announced %d times, want 2", got)
	}
}

func TestSchedulerKeepsUndeliveredCelebrations(t *testing.T) {
	eng := &mockEngine{celebrations: []model.Match{{ID: "m1", ItemID: "ava"}}}
	ann := &mockAnnouncer{offline: true}

	sched := New(eng, ann, newLogger())
	sched.runOnce(context.Background())

	if len(eng.Celebrations()) != 1 {
		t.Fatal("undelivered celebration must stay pending")
	}

	ann.offline = false
	sched.runOnce(context.Background())
	if diff := cmp.Diff([]string{"ava"}, ann.getAnnounced()); diff != "" {
		t.Errorf("announced mismatch (-want +got):\n%s", diff)
	}
}

func TestSchedulerSurvivesSyncErrors(t *testing.T) {
	eng := &mockEngine{
		result:       engine.SyncResult{Err: errors.New("network down")},
		celebrations: []model.Match{{ID: "m1", ItemID: "kai"}},
	}
	ann := &mockAnnouncer{}

	sched := New(eng, ann, newLogger())
	sched.runOnce(context.Background())

	if eng.syncCount() != 1 {
		t.Errorf("syncs = %d, want 1", eng.syncCount())
	}
	if diff := cmp.Diff([]string{"kai"}, ann.getAnnounced()); diff != "" {
		t.Errorf("local celebrations are announced even when sync fails (-want +got):\n%s", diff)
	}
}

func TestSchedulerCancelledContext(t *testing.T) {
	eng := &mockEngine{celebrations: []model.Match{{ID: "m1", ItemID: "ava"}}}
	ann := &mockAnnouncer{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sched := New(eng, ann, newLogger())
	sched.runOnce(ctx)

	if eng.syncCount() != 0 {
		t.Error("no sync should run on a cancelled context")
	}
	if len(ann.getAnnounced()) != 0 {
		t.Error("nothing should be announced on a cancelled context")
	}
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	eng := &mockEngine{}
	sched := New(eng, &mockAnnouncer{}, newLogger())
	sched.SetTickInterval(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
	if eng.syncCount() < 2 {
		t.Errorf("expected the immediate sync plus ticks, got %d", eng.syncCount())
	}
}
