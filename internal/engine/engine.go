// Package engine owns all mutable local state of one device: the swipe
// ledger, the match set, the live queue, statistics and household
// membership. Every mutation, whether from the user or from a
// reconciliation cycle, runs under a single lock; readers get immutable
// snapshots.
package engine

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"namematch/internal/filter"
	"namematch/internal/ledger"
	"namematch/internal/matches"
	"namematch/internal/model"
	"namematch/internal/outbox"
	"namematch/internal/queue"
	"namematch/internal/remote"
	"namematch/internal/storage"
)

// Catalog is the read-only item source.
type Catalog interface {
	All() []model.Item
	ByID(id string) (model.Item, bool)
	ByIDs(ids []string) []model.Item
}

// Store persists engine state.
type Store interface {
	Load(ctx context.Context, key string, dst any) (bool, error)
	SaveAll(ctx context.Context, values map[string]any) error
	DeleteAll(ctx context.Context) error
}

// Outbox accepts remote writes for later delivery.
type Outbox interface {
	Enqueue(ctx context.Context, ops ...outbox.Op) error
	Clear(ctx context.Context) error
}

// Status is the state of the reconciliation state machine.
type Status string

// Sync states.
const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Snapshot is an immutable view of engine state.
type Snapshot struct {
	UserID       string
	Queue        []model.Item
	Statistics   model.Statistics
	Matches      []model.Match // most recent first
	Celebrations []model.Match
	Filter       filter.Predicate
	Household    *model.Household
	UndoDepth    int
	PartnerLiked int

	SyncStatus    Status
	LastSyncError string
	LastSyncAt    time.Time
}

// Top returns the card on display.
func (s *Snapshot) Top() (model.Item, bool) {
	if len(s.Queue) == 0 {
		return model.Item{}, false
	}
	return s.Queue[0], true
}

// Exhausted reports whether no cards are left under the current filter.
func (s *Snapshot) Exhausted() bool {
	return len(s.Queue) == 0
}

// PartnerJoined reports whether a second household member is present.
func (s *Snapshot) PartnerJoined() bool {
	return s.Household.PartnerJoined()
}

// Engine is the single writer of local state.
type Engine struct {
	catalog Catalog
	store   Store
	outbox  Outbox
	remote  *remote.Client
	log     *slog.Logger

	mu      sync.Mutex
	now     func() time.Time
	builder *queue.Builder

	userID           string
	ledger           *ledger.Ledger
	matches          *matches.Set
	queue            queue.Queue
	filter           filter.Predicate
	household        *model.Household
	stats            model.Statistics
	partnerSwipes    map[string]model.Swipe
	partnerDismissed map[string]bool
	status           Status
	lastErr          string
	lastSyncAt       time.Time

	syncing atomic.Bool
	snap    atomic.Pointer[Snapshot]
}

// New loads persisted state from store and builds the first queue.
func New(ctx context.Context, cat Catalog, store Store, ob Outbox, client *remote.Client, log *slog.Logger) *Engine {
	return NewWithRand(ctx, cat, store, ob, client, log, nil)
}

// NewWithRand creates an Engine whose queue sampling uses rnd (useful for testing).
func NewWithRand(ctx context.Context, cat Catalog, store Store, ob Outbox, client *remote.Client, log *slog.Logger, rnd *rand.Rand) *Engine {
	e := &Engine{
		catalog:          cat,
		store:            store,
		outbox:           ob,
		remote:           client,
		log:              log,
		now:              time.Now,
		builder:          queue.NewBuilder(cat, rnd),
		ledger:           ledger.New(),
		matches:          matches.New(),
		filter:           filter.Default(),
		partnerSwipes:    map[string]model.Swipe{},
		partnerDismissed: map[string]bool{},
		status:           StatusIdle,
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.load(ctx)
	e.refill()
	e.publish()
	return e
}

// SetClock overrides the time source.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// Snapshot returns the latest published state.
func (e *Engine) Snapshot() *Snapshot {
	return e.snap.Load()
}

// UserID returns the local user id.
func (e *Engine) UserID() string {
	return e.Snapshot().UserID
}

// load restores persisted state. Undecodable values fall back to defaults.
func (e *Engine) load(ctx context.Context) {
	var userID string
	e.loadKey(ctx, storage.KeyUser, &userID)
	if userID == "" {
		userID = uuid.NewString()
		e.log.Info("created local user", "user_id", userID)
	}
	e.userID = userID

	var swipes []model.Swipe
	e.loadKey(ctx, storage.KeySwipes, &swipes)
	e.ledger.Restore(swipes)

	var (
		active       []model.Match
		dismissed    []string
		celebrations []model.Match
	)
	e.loadKey(ctx, storage.KeyMatches, &active)
	e.loadKey(ctx, storage.KeyDismissed, &dismissed)
	e.loadKey(ctx, storage.KeyCelebrations, &celebrations)
	e.matches.Restore(active, dismissed, celebrations)

	pred := filter.Default()
	if e.loadKey(ctx, storage.KeyFilters, &pred) && len(pred.Genders) > 0 && len(pred.Popularities) > 0 {
		e.filter = pred
	}

	var h model.Household
	if e.loadKey(ctx, storage.KeyHousehold, &h) && h.Code != "" {
		e.household = &h
	}

	var stats model.Statistics
	e.loadKey(ctx, storage.KeyStatistics, &stats)
	e.stats = stats

	e.persist(ctx)
}

func (e *Engine) loadKey(ctx context.Context, key string, dst any) bool {
	found, err := e.store.Load(ctx, key, dst)
	if err != nil {
		e.log.Warn("discard persisted state", "key", key, "error", err)
		return false
	}
	return found
}

// persist writes every key. Failures are logged; in-memory state stays
// authoritative until the next successful write.
func (e *Engine) persist(ctx context.Context) {
	var h any
	if e.household != nil {
		h = e.household
	}
	err := e.store.SaveAll(ctx, map[string]any{
		storage.KeyUser:         e.userID,
		storage.KeySwipes:       e.ledger.All(),
		storage.KeyMatches:      e.matches.All(matches.ByRecent, nil),
		storage.KeyFilters:      e.filter,
		storage.KeyHousehold:    h,
		storage.KeyStatistics:   e.stats,
		storage.KeyDismissed:    e.matches.Dismissed(),
		storage.KeyCelebrations: e.matches.Celebrations(),
	})
	if err != nil {
		e.log.Error("persist state", "error", err)
	}
}

// enqueue hands ops to the outbox. Failures are logged and never undo the
// local mutation that produced them.
func (e *Engine) enqueue(ctx context.Context, ops ...outbox.Op) {
	if len(ops) == 0 {
		return
	}
	if err := e.outbox.Enqueue(ctx, ops...); err != nil {
		e.log.Error("enqueue remote write", "error", err)
	}
}

// publish stores a fresh snapshot. Callers hold mu.
func (e *Engine) publish() {
	s := &Snapshot{
		UserID:        e.userID,
		Queue:         e.queue.Items(),
		Statistics:    e.stats,
		Matches:       e.matches.All(matches.ByRecent, nil),
		Celebrations:  e.matches.Celebrations(),
		Filter:        e.filter.Clone(),
		UndoDepth:     e.ledger.UndoDepth(),
		PartnerLiked:  len(e.partnerLikedIDs()),
		SyncStatus:    e.status,
		LastSyncError: e.lastErr,
		LastSyncAt:    e.lastSyncAt,
	}
	if e.household != nil {
		h := *e.household
		h.MemberIDs = append([]string(nil), e.household.MemberIDs...)
		s.Household = &h
	}
	e.snap.Store(s)
}

// partnerLikedIDs returns the ids the partner currently likes.
func (e *Engine) partnerLikedIDs() map[string]bool {
	out := make(map[string]bool)
	for id, s := range e.partnerSwipes {
		if s.Liked {
			out[id] = true
		}
	}
	return out
}

// refill tops the queue up when it runs low.
func (e *Engine) refill() {
	if !e.queue.NeedsRefill() {
		return
	}
	items := e.builder.Build(queue.Input{
		Filter:       e.filter,
		Swiped:       e.ledger.SwipedIDs(),
		PartnerLiked: e.partnerLikedIDs(),
		Queued:       e.queue.IDs(),
	})
	e.queue.Append(items)
}

func (e *Engine) code() string {
	if e.household == nil {
		return ""
	}
	return e.household.Code
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
