package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"namematch/internal/household"
	"namematch/internal/matches"
	"namematch/internal/model"
	"namematch/internal/outbox"
	"namematch/internal/remote"
)

// SyncResult summarizes one reconciliation cycle.
type SyncResult struct {
	// Skipped is set when another cycle was already running or there is no
	// household to reconcile with.
	Skipped bool
	// Err joins the failures of individual steps. It is informational; the
	// same text is recorded as the last sync error.
	Err        error
	NewMatches []model.Match
	Boosted    int
}

// fetched holds the remote reads of one cycle. Each read fails on its own.
type fetched struct {
	members    []string
	membersErr error

	swipes    []model.Swipe
	swipesErr error

	dismissed    map[string]bool
	dismissedErr error

	matches    []remote.Match
	matchesErr error
}

// Sync runs one reconciliation cycle against the remote store. A call made
// while another cycle is in flight returns immediately with Skipped set.
// Failures are recorded on the engine and never abort local state.
func (e *Engine) Sync(ctx context.Context) SyncResult {
	if !e.syncing.CompareAndSwap(false, true) {
		return SyncResult{Skipped: true}
	}
	defer e.syncing.Store(false)

	e.mu.Lock()
	code, self := e.code(), e.userID
	if code == "" {
		e.mu.Unlock()
		return SyncResult{Skipped: true}
	}
	e.status = StatusSyncing
	e.publish()
	e.mu.Unlock()

	f := e.fetch(ctx, code, self)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.code() != code {
		// The household changed while the reads were in flight.
		e.status = StatusIdle
		e.publish()
		return SyncResult{Skipped: true}
	}

	res := e.apply(ctx, f)

	e.lastSyncAt = e.now()
	if res.Err != nil {
		e.status = StatusFailed
		e.lastErr = res.Err.Error()
		e.log.Warn("sync failed", "code", code, "error", res.Err)
	} else {
		e.status = StatusSuccess
		e.lastErr = ""
	}
	e.refill()
	e.persist(ctx)
	e.publish()
	return res
}

// fetch performs the remote reads concurrently without holding mu.
func (e *Engine) fetch(ctx context.Context, code, self string) fetched {
	var (
		f fetched
		g errgroup.Group
	)
	g.Go(func() error {
		f.members, f.membersErr = e.remote.Members(ctx, code)
		return nil
	})
	g.Go(func() error {
		f.swipes, f.swipesErr = e.remote.PartnerSwipes(ctx, code, self)
		return nil
	})
	g.Go(func() error {
		f.dismissed, f.dismissedErr = e.remote.PartnerDismissals(ctx, code, self)
		return nil
	})
	g.Go(func() error {
		f.matches, f.matchesErr = e.remote.Matches(ctx, code)
		return nil
	})
	_ = g.Wait()
	return f
}

// apply folds remote reads into local state in step order. Callers hold mu.
func (e *Engine) apply(ctx context.Context, f fetched) SyncResult {
	var (
		res  SyncResult
		errs []error
	)
	code := e.household.Code

	// 1. Membership.
	if f.membersErr != nil {
		errs = append(errs, f.membersErr)
	} else if err := e.applyMembers(f.members); err != nil {
		errs = append(errs, err)
	}

	// 2. Partner swipes, newest per item.
	prevLiked := e.partnerLikedIDs()
	if f.swipesErr != nil {
		errs = append(errs, f.swipesErr)
	} else {
		e.partnerSwipes = dedupeSwipes(f.swipes)
		e.stats.PartnerSwipeCount = len(e.partnerSwipes)
	}

	// 3. Newly partner-liked items jump the queue behind the displayed card.
	swiped := e.ledger.SwipedIDs()
	queued := e.queue.IDs()
	var boost []string
	for _, id := range sortedKeys(e.partnerLikedIDs()) {
		if !prevLiked[id] && !swiped[id] && !queued[id] {
			boost = append(boost, id)
		}
	}
	if items := e.catalog.ByIDs(boost); len(items) > 0 {
		e.queue.InsertBoost(items)
		res.Boosted = len(items)
	}

	// 4. Partner dismissals.
	if f.dismissedErr != nil {
		errs = append(errs, f.dismissedErr)
	} else {
		e.partnerDismissed = f.dismissed
	}

	// 5. Mutual likes.
	now := e.now()
	for _, id := range sortedKeys(e.partnerLikedIDs()) {
		mine, ok := e.ledger.Get(id)
		if !ok || !mine.Liked || e.partnerDismissed[id] {
			continue
		}
		if m, ok := e.matches.Create(id, now); ok {
			e.stats.AddMatch()
			e.enqueue(ctx, outbox.PutMatchOp(code, id, m.CreatedAt))
			res.NewMatches = append(res.NewMatches, m)
		}
	}

	// 6. Remote match list.
	if f.matchesErr != nil {
		errs = append(errs, f.matchesErr)
	} else {
		res.NewMatches = append(res.NewMatches, e.reconcileMatches(f.matches)...)
	}

	if len(res.NewMatches) > 0 {
		e.log.Info("sync found matches", "code", code, "count", len(res.NewMatches))
	}
	res.Err = errors.Join(errs...)
	return res
}

// applyMembers updates membership from the member rows. The local user is
// always counted even if its own row has not been uploaded yet.
func (e *Engine) applyMembers(members []string) error {
	if !slices.Contains(members, e.userID) {
		members = append(members, e.userID)
	}
	if len(members) > household.MaxMembers {
		return fmt.Errorf("%d members in %s: %w", len(members), e.household.Code, household.ErrTooManyMembers)
	}
	if !slices.Equal(members, e.household.MemberIDs) {
		e.log.Info("household membership changed", "code", e.household.Code, "members", len(members))
		e.household.MemberIDs = members
	}
	return nil
}

// reconcileMatches aligns local matches with the remote list. Matches the
// partner dismissed are dropped. Confirmed matches that disappeared
// remotely are dropped; unconfirmed ones are still waiting for their
// upload. Remote matches unknown locally are created unless either side
// dismissed them.
func (e *Engine) reconcileMatches(remoteMatches []remote.Match) []model.Match {
	present := make(map[string]remote.Match, len(remoteMatches))
	for _, m := range remoteMatches {
		present[m.ItemID] = m
	}

	for _, m := range e.matches.All(matches.ByRecent, nil) {
		_, onRemote := present[m.ItemID]
		switch {
		case e.partnerDismissed[m.ItemID]:
			e.dropMatch(m.ItemID)
		case onRemote:
			e.matches.MarkConfirmed(m.ItemID)
		case m.Confirmed:
			e.dropMatch(m.ItemID)
		}
	}

	var created []model.Match
	for _, rm := range remoteMatches {
		id := rm.ItemID
		if e.matches.Has(id) || e.matches.IsDismissed(id) || e.partnerDismissed[id] {
			continue
		}
		at := rm.MatchedAt
		if at.IsZero() {
			at = e.now()
		}
		if m, ok := e.matches.Create(id, at); ok {
			e.matches.MarkConfirmed(id)
			e.stats.AddMatch()
			m.Confirmed = true
			created = append(created, m)
		}
	}
	return created
}

func (e *Engine) dropMatch(itemID string) {
	if e.matches.Drop(itemID) {
		e.stats.RemoveMatch()
	}
}

// dedupeSwipes keeps the newest swipe per item.
func dedupeSwipes(swipes []model.Swipe) map[string]model.Swipe {
	out := make(map[string]model.Swipe, len(swipes))
	for _, s := range swipes {
		if prev, ok := out[s.ItemID]; ok && prev.CreatedAt.After(s.CreatedAt) {
			continue
		}
		out[s.ItemID] = s
	}
	return out
}
