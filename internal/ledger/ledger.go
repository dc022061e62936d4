// Package ledger keeps the local record of this user's swipe decisions and
// the bounded undo buffer.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"namematch/internal/model"
)

// UndoCapacity is the number of swipes that can be undone.
const UndoCapacity = 5

// Ledger is not safe for concurrent use; the engine serializes access.
type Ledger struct {
	swipes []model.Swipe
	index  map[string]int // item id -> position in swipes
	undo   []model.UndoEntry
	newID  func() string
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		index: map[string]int{},
		newID: uuid.NewString,
	}
}

// Restore replaces the ledger contents with persisted swipes. Duplicate
// swipes on the same item are collapsed to the most recent one. The undo
// buffer is not persisted and starts empty.
func (l *Ledger) Restore(swipes []model.Swipe) {
	l.swipes = nil
	l.index = map[string]int{}
	l.undo = nil
	for _, s := range swipes {
		if i, ok := l.index[s.ItemID]; ok {
			if s.CreatedAt.Before(l.swipes[i].CreatedAt) {
				continue
			}
			l.swipes[i] = s
			continue
		}
		l.index[s.ItemID] = len(l.swipes)
		l.swipes = append(l.swipes, s)
	}
}

// Record appends a swipe for item and pushes an undo entry. A previous
// swipe of the same item is replaced and returned so the caller can
// revert its statistics; the undo entry keeps it for UndoLast to restore.
func (l *Ledger) Record(item model.Item, liked bool, userID string, now time.Time) (model.Swipe, *model.Swipe) {
	s := model.Swipe{
		ID:        l.newID(),
		ItemID:    item.ID,
		Liked:     liked,
		UserID:    userID,
		CreatedAt: now,
	}

	var replaced *model.Swipe
	if i, ok := l.index[item.ID]; ok {
		old := l.swipes[i]
		replaced = &old
		l.removeAt(i)
		l.dropUndo(old.ID)
	}

	l.index[item.ID] = len(l.swipes)
	l.swipes = append(l.swipes, s)

	l.undo = append([]model.UndoEntry{{Swipe: s, Item: item, Replaced: replaced}}, l.undo...)
	if len(l.undo) > UndoCapacity {
		l.undo = l.undo[:UndoCapacity]
	}
	return s, replaced
}

// UndoLast pops the most recent undo entry and removes its swipe. The swipe
// it replaced, if any, becomes the item's current swipe again.
func (l *Ledger) UndoLast() (model.UndoEntry, bool) {
	if len(l.undo) == 0 {
		return model.UndoEntry{}, false
	}
	e := l.undo[0]
	l.undo = l.undo[1:]
	if i, ok := l.index[e.Swipe.ItemID]; ok && l.swipes[i].ID == e.Swipe.ID {
		l.removeAt(i)
	}
	if e.Replaced != nil {
		if _, ok := l.index[e.Replaced.ItemID]; !ok {
			l.index[e.Replaced.ItemID] = len(l.swipes)
			l.swipes = append(l.swipes, *e.Replaced)
		}
	}
	return e, true
}

// UndoDepth returns how many swipes can currently be undone.
func (l *Ledger) UndoDepth() int {
	return len(l.undo)
}

// Get returns the current swipe for an item.
func (l *Ledger) Get(itemID string) (model.Swipe, bool) {
	i, ok := l.index[itemID]
	if !ok {
		return model.Swipe{}, false
	}
	return l.swipes[i], true
}

// All returns the swipes in recording order.
func (l *Ledger) All() []model.Swipe {
	out := make([]model.Swipe, len(l.swipes))
	copy(out, l.swipes)
	return out
}

// Len returns the number of recorded swipes.
func (l *Ledger) Len() int {
	return len(l.swipes)
}

// LikedIDs returns the ids of liked items.
func (l *Ledger) LikedIDs() map[string]bool {
	out := make(map[string]bool)
	for _, s := range l.swipes {
		if s.Liked {
			out[s.ItemID] = true
		}
	}
	return out
}

// SwipedIDs returns the ids of every swiped item.
func (l *Ledger) SwipedIDs() map[string]bool {
	out := make(map[string]bool, len(l.swipes))
	for _, s := range l.swipes {
		out[s.ItemID] = true
	}
	return out
}

// Reset clears every swipe and the undo buffer.
func (l *Ledger) Reset() {
	l.Restore(nil)
}

func (l *Ledger) removeAt(i int) {
	delete(l.index, l.swipes[i].ItemID)
	l.swipes = append(l.swipes[:i], l.swipes[i+1:]...)
	for j := i; j < len(l.swipes); j++ {
		l.index[l.swipes[j].ItemID] = j
	}
}

func (l *Ledger) dropUndo(swipeID string) {
	kept := l.undo[:0]
	for _, e := range l.undo {
		if e.Swipe.ID != swipeID {
			kept = append(kept, e)
		}
	}
	l.undo = kept
}
