package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"namematch/internal/filter"
	"namematch/internal/household"
	"namematch/internal/model"
	"namematch/internal/outbox"
)

// ErrInHousehold is returned when creating or joining while already a member.
var ErrInHousehold = errors.New("already in a household")

// CreateHousehold starts a new household with this user as its only
// member. The remote rows and the user's existing swipes are uploaded
// through the outbox.
func (e *Engine) CreateHousehold(ctx context.Context) (model.Household, error) {
	code, err := household.NewCode()
	if err != nil {
		return model.Household{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.household != nil {
		return model.Household{}, ErrInHousehold
	}

	now := e.now()
	h := model.Household{Code: code, MemberIDs: []string{e.userID}, CreatedAt: now}
	e.household = &h
	e.resetPartner()

	ops := []outbox.Op{
		outbox.PutHouseholdOp(h),
		outbox.PutMemberOp(code, e.userID, now),
	}
	e.enqueue(ctx, append(ops, e.swipeUploads(code)...)...)

	e.persist(ctx)
	e.publish()
	e.log.Info("created household", "code", code)
	return h, nil
}

// JoinHousehold joins the household with the given code. It reports false
// when the code is malformed, unknown, unreachable or the household is
// full; local state is untouched in that case.
func (e *Engine) JoinHousehold(ctx context.Context, code string) bool {
	return e.Join(ctx, code) == nil
}

// Join is JoinHousehold returning the reason for a failure.
func (e *Engine) Join(ctx context.Context, code string) error {
	code, err := household.NormalizeCode(code)
	if err != nil {
		return err
	}
	if e.Snapshot().Household != nil {
		return ErrInHousehold
	}
	self := e.UserID()

	// Remote lookups run without holding the lock.
	h, err := e.remote.GetHousehold(ctx, code)
	if err != nil {
		return fmt.Errorf("look up household: %w", err)
	}
	members, err := e.remote.Members(ctx, code)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	if !slices.Contains(members, self) && len(members) >= household.MaxMembers {
		return household.ErrHouseholdFull
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.household != nil {
		return ErrInHousehold
	}

	now := e.now()
	if !slices.Contains(members, e.userID) {
		members = append(members, e.userID)
	}
	h.Code = code
	h.MemberIDs = members
	e.household = &h
	e.resetPartner()

	ops := []outbox.Op{
		outbox.PutMemberOp(code, e.userID, now),
		outbox.PutHouseholdOp(h),
	}
	e.enqueue(ctx, append(ops, e.swipeUploads(code)...)...)

	e.persist(ctx)
	e.publish()
	e.log.Info("joined household", "code", code, "members", len(members))
	return nil
}

// LeaveHousehold removes this user from the household. Matches, dismissals
// and partner data are discarded; the user's own swipes are kept.
func (e *Engine) LeaveHousehold(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.household == nil {
		return false
	}
	code := e.household.Code
	e.enqueue(ctx, outbox.DeleteMemberOp(code, e.userID))

	e.household = nil
	e.resetPartner()
	e.matches.Reset()
	e.stats.MatchCount = 0
	e.queue.Clear()
	e.refill()

	e.persist(ctx)
	e.publish()
	e.log.Info("left household", "code", code)
	return true
}

// ResetAll discards every piece of local state, including queued remote
// writes, and leaves the household if there is one.
func (e *Engine) ResetAll(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.outbox.Clear(ctx); err != nil {
		e.log.Error("clear outbox", "error", err)
	}
	if e.household != nil {
		e.enqueue(ctx, outbox.DeleteMemberOp(e.household.Code, e.userID))
	}
	if err := e.store.DeleteAll(ctx); err != nil {
		e.log.Error("delete state", "error", err)
	}

	e.ledger.Reset()
	e.matches.Reset()
	e.filter = filter.Default()
	e.household = nil
	e.stats = model.Statistics{}
	e.resetPartner()
	e.status = StatusIdle
	e.lastErr = ""
	e.queue.Clear()
	e.refill()

	e.persist(ctx)
	e.publish()
	e.log.Info("reset local state")
}

// resetPartner forgets everything learned from the partner. Callers hold mu.
func (e *Engine) resetPartner() {
	e.partnerSwipes = map[string]model.Swipe{}
	e.partnerDismissed = map[string]bool{}
	e.stats.PartnerSwipeCount = 0
}

// swipeUploads re-uploads the user's swipes under code.
func (e *Engine) swipeUploads(code string) []outbox.Op {
	var ops []outbox.Op
	for _, s := range e.ledger.All() {
		ops = append(ops, outbox.PutSwipeOp(code, s))
	}
	return ops
}
