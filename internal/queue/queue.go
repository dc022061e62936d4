// Package queue derives and holds the ordered list of items presented to
// the user next.
package queue

import (
	"math/rand/v2"

	"namematch/internal/filter"
	"namematch/internal/model"
)

const (
	// MinSize is the size a build aims for.
	MinSize = 10
	// RefillThreshold triggers a refill once the queue gets shorter.
	RefillThreshold = 3
)

// Input is everything Build needs to know about the current state.
type Input struct {
	Filter       filter.Predicate
	Swiped       map[string]bool
	PartnerLiked map[string]bool
	// Queued are ids already waiting in the live queue.
	Queued map[string]bool
}

// Builder produces queue batches from the catalog.
type Builder struct {
	catalog Catalog
	rnd     *rand.Rand
}

// Catalog is the read-only item source.
type Catalog interface {
	All() []model.Item
	ByIDs(ids []string) []model.Item
}

// NewBuilder returns a Builder over catalog. A nil rnd uses a randomly
// seeded source.
func NewBuilder(catalog Catalog, rnd *rand.Rand) *Builder {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Builder{catalog: catalog, rnd: rnd}
}

// Build returns the boosted items followed by a random filtered fill.
//
// Boosted items are partner-liked items this user has not swiped and that
// are not already queued; they bypass the filter. The fill tops the batch
// up to MinSize with items matching the filter.
func (b *Builder) Build(in Input) []model.Item {
	boostIDs := make([]string, 0, len(in.PartnerLiked))
	for id := range in.PartnerLiked {
		if in.Swiped[id] || in.Queued[id] {
			continue
		}
		boostIDs = append(boostIDs, id)
	}
	boosted := b.catalog.ByIDs(boostIDs)
	b.shuffle(boosted)

	need := max(0, MinSize-len(boosted))
	if need == 0 {
		return boosted
	}

	taken := make(map[string]bool, len(boosted))
	for _, it := range boosted {
		taken[it.ID] = true
	}
	var pool []model.Item
	for _, it := range b.catalog.All() {
		if in.Swiped[it.ID] || in.Queued[it.ID] || taken[it.ID] {
			continue
		}
		if in.Filter.Matches(it) {
			pool = append(pool, it)
		}
	}
	return append(boosted, b.sample(pool, need)...)
}

// sample draws n items without replacement.
func (b *Builder) sample(pool []model.Item, n int) []model.Item {
	if n >= len(pool) {
		b.shuffle(pool)
		return pool
	}
	// Partial Fisher-Yates: the first n slots end up a uniform sample.
	for i := 0; i < n; i++ {
		j := i + b.rnd.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}

func (b *Builder) shuffle(items []model.Item) {
	b.rnd.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
}

// Queue is the live presentation queue. The first item is the card on
// display. Not safe for concurrent use.
type Queue struct {
	items []model.Item
}

// Items returns a copy of the queued items.
func (q *Queue) Items() []model.Item {
	return append([]model.Item(nil), q.items...)
}

// Len returns the queue length.
func (q *Queue) Len() int {
	return len(q.items)
}

// Top returns the card on display.
func (q *Queue) Top() (model.Item, bool) {
	if len(q.items) == 0 {
		return model.Item{}, false
	}
	return q.items[0], true
}

// IDs returns the set of queued ids.
func (q *Queue) IDs() map[string]bool {
	out := make(map[string]bool, len(q.items))
	for _, it := range q.items {
		out[it.ID] = true
	}
	return out
}

// Consume removes itemID from the queue wherever it is.
func (q *Queue) Consume(itemID string) bool {
	for i, it := range q.items {
		if it.ID == itemID {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Append adds items at the end, skipping ones already queued.
func (q *Queue) Append(items []model.Item) {
	ids := q.IDs()
	for _, it := range items {
		if !ids[it.ID] {
			ids[it.ID] = true
			q.items = append(q.items, it)
		}
	}
}

// InsertBoost places items right behind the displayed card (or at the
// front when the queue is empty), skipping ones already queued.
func (q *Queue) InsertBoost(items []model.Item) {
	ids := q.IDs()
	var fresh []model.Item
	for _, it := range items {
		if !ids[it.ID] {
			ids[it.ID] = true
			fresh = append(fresh, it)
		}
	}
	if len(fresh) == 0 {
		return
	}
	at := min(1, len(q.items))
	next := make([]model.Item, 0, len(q.items)+len(fresh))
	next = append(next, q.items[:at]...)
	next = append(next, fresh...)
	next = append(next, q.items[at:]...)
	q.items = next
}

// PushFront puts item on top, removing any other occurrence.
func (q *Queue) PushFront(item model.Item) {
	q.Consume(item.ID)
	q.items = append([]model.Item{item}, q.items...)
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.items = nil
}

// NeedsRefill reports whether the queue dropped below RefillThreshold.
func (q *Queue) NeedsRefill() bool {
	return len(q.items) < RefillThreshold
}

// Exhausted reports whether there is nothing left to show.
func (q *Queue) Exhausted() bool {
	return len(q.items) == 0
}
