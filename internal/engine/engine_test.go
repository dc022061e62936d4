package engine

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"namematch/internal/catalog"
	"namematch/internal/model"
	"namematch/internal/outbox"
	"namematch/internal/remote"
	"namematch/internal/storage"
)

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// clock hands out strictly increasing times.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func testItems() []model.Item {
	var items []model.Item
	add := func(g model.Gender, names ...string) {
		for _, n := range names {
			items = append(items, model.Item{ID: n, Name: n, Gender: g, Popularity: model.PopularityCommon})
		}
	}
	add(model.GenderFemale, "ava", "mia", "emma", "zoe", "lily", "ruby", "isla", "nora", "ella", "rose", "iris", "hazel")
	add(model.GenderMale, "oliver", "noah", "leo", "theo", "finn", "jack")
	add(model.GenderNeutral, "kai", "river", "sage")
	return items
}

// device is one engine with its own local database, sharing a remote store
// with other devices.
type device struct {
	t      *testing.T
	eng    *Engine
	store  *storage.SQLite
	outbox *outbox.Outbox
	drain  *outbox.Drainer
	client *remote.Client
	cat    *catalog.Index
	clk    *clock
}

func newDevice(t *testing.T, rs remote.Store, clk *clock) *device {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	d := &device{
		t:      t,
		store:  store,
		outbox: outbox.New(store),
		client: remote.NewClient(rs),
		cat:    catalog.NewIndex(testItems()),
		clk:    clk,
	}
	d.drain = outbox.NewDrainer(d.outbox, d.client, 1000, discardLog)
	d.eng = d.open()
	return d
}

// open builds an engine over the device's local database.
func (d *device) open() *Engine {
	e := NewWithRand(context.Background(), d.cat, d.store, d.outbox, d.client, discardLog, rand.New(rand.NewPCG(7, 11)))
	e.SetClock(d.clk.Now)
	return e
}

// flush delivers every queued remote write.
func (d *device) flush() {
	d.t.Helper()
	d.drain.Drain(context.Background())
	rows, err := d.outbox.Pending(context.Background(), 1)
	if err != nil {
		d.t.Fatalf("pending: %v", err)
	}
	if len(rows) != 0 {
		d.t.Fatalf("outbox not drained: %+v", rows[0])
	}
}

func (d *device) swipe(itemID string, liked bool) SwipeResult {
	d.t.Helper()
	res, ok := d.eng.Swipe(context.Background(), itemID, liked)
	if !ok {
		d.t.Fatalf("swipe %s: unknown item", itemID)
	}
	return res
}

func (d *device) sync() SyncResult {
	d.t.Helper()
	res := d.eng.Sync(context.Background())
	if res.Skipped {
		d.t.Fatal("sync skipped")
	}
	return res
}

func (d *device) snap() *Snapshot {
	return d.eng.Snapshot()
}

func (d *device) matchIDs() []string {
	var ids []string
	for _, m := range d.snap().Matches {
		ids = append(ids, m.ItemID)
	}
	return ids
}

// pair creates a household on a and joins b to it, with both sides flushed.
func pair(t *testing.T) (a, b *device, mem *remote.Memory) {
	t.Helper()
	mem = remote.NewMemory()
	clk := newClock()
	a = newDevice(t, mem, clk)
	b = newDevice(t, mem, clk)

	h, err := a.eng.CreateHousehold(context.Background())
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	a.flush()
	if err := b.eng.Join(context.Background(), h.Code); err != nil {
		t.Fatalf("join household: %v", err)
	}
	b.flush()
	return a, b, mem
}

// soloHousehold creates a household on a single device and registers a
// fake partner directly in the remote store.
func soloHousehold(t *testing.T) (d *device, mem *remote.Memory, code string) {
	t.Helper()
	mem = remote.NewMemory()
	d = newDevice(t, mem, newClock())
	h, err := d.eng.CreateHousehold(context.Background())
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	d.flush()
	if err := d.client.AddMember(context.Background(), h.Code, "partner", d.clk.Now()); err != nil {
		t.Fatalf("add partner: %v", err)
	}
	return d, mem, h.Code
}

func (d *device) partnerSwipe(code, itemID string, liked bool) {
	d.t.Helper()
	s := model.Swipe{ID: "p-" + itemID, ItemID: itemID, Liked: liked, UserID: "partner", CreatedAt: d.clk.Now()}
	if err := d.client.PutSwipe(context.Background(), code, s); err != nil {
		d.t.Fatalf("partner swipe: %v", err)
	}
}
