package engine

import (
	"context"

	"namematch/internal/filter"
	"namematch/internal/matches"
	"namematch/internal/model"
	"namematch/internal/outbox"
)

// SwipeResult describes a recorded swipe.
type SwipeResult struct {
	Swipe model.Swipe
	// Match is set when the swipe completed a mutual like.
	Match *model.Match
	// AlreadyMatched is set when nothing was recorded because the item is
	// an active match. Matches are only removed through RemoveMatch.
	AlreadyMatched bool
}

// Swipe records a like or pass on itemID. It reports false when the item
// is not in the catalog.
func (e *Engine) Swipe(ctx context.Context, itemID string, liked bool) (SwipeResult, bool) {
	item, ok := e.catalog.ByID(itemID)
	if !ok {
		return SwipeResult{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.matches.Has(item.ID) {
		return SwipeResult{AlreadyMatched: true}, true
	}

	now := e.now()
	code := e.code()
	s, replaced := e.ledger.Record(item, liked, e.userID, now)
	if replaced != nil {
		e.stats.RevertSwipe(replaced.Liked)
		if code != "" {
			e.enqueue(ctx, outbox.DeleteSwipeOp(replaced.ID))
		}
	}
	e.stats.ApplySwipe(liked)
	e.queue.Consume(item.ID)
	if code != "" {
		e.enqueue(ctx, outbox.PutSwipeOp(code, s))
	}

	res := SwipeResult{Swipe: s}
	if liked && e.partnerLikes(item.ID) && !e.partnerDismissed[item.ID] {
		if m, ok := e.matches.Create(item.ID, now); ok {
			e.stats.AddMatch()
			if code != "" {
				e.enqueue(ctx, outbox.PutMatchOp(code, item.ID, m.CreatedAt))
			}
			res.Match = &m
			e.log.Info("new match", "item_id", item.ID)
		}
	}

	e.refill()
	e.persist(ctx)
	e.publish()
	return res, true
}

func (e *Engine) partnerLikes(itemID string) bool {
	s, ok := e.partnerSwipes[itemID]
	return ok && s.Liked
}

// Undo reverts the most recent swipe. When that swipe replaced an earlier
// one, the earlier decision is restored and re-uploaded; otherwise the item
// goes back on top of the queue. Undoing a like removes and dismisses the
// item's match unless the restored decision is still a like.
func (e *Engine) Undo(ctx context.Context) (model.UndoEntry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.ledger.UndoLast()
	if !ok {
		return model.UndoEntry{}, false
	}

	code := e.code()
	e.stats.RevertSwipe(entry.Swipe.Liked)
	if code != "" {
		e.enqueue(ctx, outbox.DeleteSwipeOp(entry.Swipe.ID))
	}
	stillLiked := false
	if prev := entry.Replaced; prev != nil {
		e.stats.ApplySwipe(prev.Liked)
		if code != "" {
			e.enqueue(ctx, outbox.PutSwipeOp(code, *prev))
		}
		stillLiked = prev.Liked
	} else {
		e.queue.PushFront(entry.Item)
	}
	if entry.Swipe.Liked && !stillLiked && e.matches.Has(entry.Item.ID) {
		e.removeMatch(ctx, entry.Item.ID)
	}

	e.persist(ctx)
	e.publish()
	return entry, true
}

// ApplyFilter replaces the filter and rebuilds the queue from scratch.
func (e *Engine) ApplyFilter(ctx context.Context, p filter.Predicate) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.filter = p.Clone()
	e.queue.Clear()
	e.refill()
	e.persist(ctx)
	e.publish()
}

// Filter returns a copy of the current filter.
func (e *Engine) Filter() filter.Predicate {
	return e.Snapshot().Filter
}

// Matches returns the active matches in the given order.
func (e *Engine) Matches(order matches.Order) []model.Match {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.matches.All(order, e.itemName)
}

func (e *Engine) itemName(itemID string) string {
	if it, ok := e.catalog.ByID(itemID); ok {
		return it.Name
	}
	return itemID
}

// RemoveMatch deletes a match and dismisses it permanently.
func (e *Engine) RemoveMatch(ctx context.Context, itemID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.matches.Has(itemID) {
		return false
	}
	e.removeMatch(ctx, itemID)
	e.persist(ctx)
	e.publish()
	return true
}

// removeMatch dismisses itemID locally and advertises the dismissal. The
// marker and the match delete are independent writes. Callers hold mu.
func (e *Engine) removeMatch(ctx context.Context, itemID string) {
	if e.matches.Remove(itemID) {
		e.stats.RemoveMatch()
	}
	if code := e.code(); code != "" {
		e.enqueue(ctx,
			outbox.PutDismissalOp(code, itemID, e.userID, e.now()),
			outbox.DeleteMatchOp(code, itemID),
		)
	}
}

// SetRating sets or clears (nil) the rating of a match. Ratings outside
// 1-5 and unknown matches are ignored.
func (e *Engine) SetRating(ctx context.Context, itemID string, rating *int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.matches.SetRating(itemID, rating) {
		return false
	}
	e.persist(ctx)
	e.publish()
	return true
}

// SetNotes sets or clears the notes of a match. Blank notes clear.
func (e *Engine) SetNotes(ctx context.Context, itemID string, notes *string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.matches.SetNotes(itemID, notes) {
		return false
	}
	e.persist(ctx)
	e.publish()
	return true
}

// Celebrations returns matches waiting to be announced.
func (e *Engine) Celebrations() []model.Match {
	return e.Snapshot().Celebrations
}

// AcknowledgeCelebration marks a match announcement as delivered.
func (e *Engine) AcknowledgeCelebration(ctx context.Context, matchID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.matches.Acknowledge(matchID) {
		return false
	}
	e.persist(ctx)
	e.publish()
	return true
}
