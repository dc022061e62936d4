// Package outbox queues remote writes durably so local mutations never wait
// on the network. A Drainer replays them against the remote store in order.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"namematch/internal/model"
	"namematch/internal/remote"
	"namematch/internal/storage"
)

// Kind identifies a remote write.
type Kind string

// Op kinds.
const (
	PutSwipe     Kind = "put_swipe"
	DeleteSwipe  Kind = "delete_swipe"
	PutMatch     Kind = "put_match"
	DeleteMatch  Kind = "delete_match"
	PutDismissal Kind = "put_dismissal"
	PutHousehold Kind = "put_household"
	PutMember    Kind = "put_member"
	DeleteMember Kind = "delete_member"
)

// ErrInvalidOp marks an op that can never succeed. The drainer drops it.
var ErrInvalidOp = errors.New("invalid op")

// Op is one remote write. Only the fields its Kind needs are set.
type Op struct {
	Kind      Kind             `json:"-"`
	Code      string           `json:"code,omitempty"`
	UserID    string           `json:"userId,omitempty"`
	ItemID    string           `json:"itemId,omitempty"`
	SwipeID   string           `json:"swipeId,omitempty"`
	Swipe     *model.Swipe     `json:"swipe,omitempty"`
	Household *model.Household `json:"household,omitempty"`
	At        time.Time        `json:"at,omitzero"`
}

// PutSwipeOp uploads s under code.
func PutSwipeOp(code string, s model.Swipe) Op {
	return Op{Kind: PutSwipe, Code: code, Swipe: &s}
}

// DeleteSwipeOp retracts an uploaded swipe.
func DeleteSwipeOp(swipeID string) Op {
	return Op{Kind: DeleteSwipe, SwipeID: swipeID}
}

// PutMatchOp records a match on itemID.
func PutMatchOp(code, itemID string, at time.Time) Op {
	return Op{Kind: PutMatch, Code: code, ItemID: itemID, At: at}
}

// DeleteMatchOp removes the match on itemID.
func DeleteMatchOp(code, itemID string) Op {
	return Op{Kind: DeleteMatch, Code: code, ItemID: itemID}
}

// PutDismissalOp advertises that userID dismissed itemID.
func PutDismissalOp(code, itemID, userID string, at time.Time) Op {
	return Op{Kind: PutDismissal, Code: code, ItemID: itemID, UserID: userID, At: at}
}

// PutHouseholdOp creates or replaces the household row.
func PutHouseholdOp(h model.Household) Op {
	return Op{Kind: PutHousehold, Code: h.Code, Household: &h}
}

// PutMemberOp adds userID to the household.
func PutMemberOp(code, userID string, at time.Time) Op {
	return Op{Kind: PutMember, Code: code, UserID: userID, At: at}
}

// DeleteMemberOp removes userID from the household.
func DeleteMemberOp(code, userID string) Op {
	return Op{Kind: DeleteMember, Code: code, UserID: userID}
}

// Execute performs op against client.
func Execute(ctx context.Context, client *remote.Client, op Op) error {
	switch op.Kind {
	case PutSwipe:
		if op.Swipe == nil {
			return fmt.Errorf("%s: missing swipe: %w", op.Kind, ErrInvalidOp)
		}
		return client.PutSwipe(ctx, op.Code, *op.Swipe)
	case DeleteSwipe:
		return client.DeleteSwipe(ctx, op.SwipeID)
	case PutMatch:
		return client.PutMatch(ctx, op.Code, op.ItemID, op.At)
	case DeleteMatch:
		return client.DeleteMatch(ctx, op.Code, op.ItemID)
	case PutDismissal:
		return client.PutDismissal(ctx, op.Code, op.ItemID, op.UserID, op.At)
	case PutHousehold:
		if op.Household == nil {
			return fmt.Errorf("%s: missing household: %w", op.Kind, ErrInvalidOp)
		}
		return client.PutHousehold(ctx, *op.Household)
	case PutMember:
		return client.AddMember(ctx, op.Code, op.UserID, op.At)
	case DeleteMember:
		return client.RemoveMember(ctx, op.Code, op.UserID)
	default:
		return fmt.Errorf("unknown op kind %q: %w", op.Kind, ErrInvalidOp)
	}
}

// Store is the subset of storage.Storage the outbox needs.
type Store interface {
	Enqueue(ctx context.Context, kind string, payload []byte) (int64, error)
	Pending(ctx context.Context, limit int) ([]storage.Op, error)
	Done(ctx context.Context, id int64) error
	Fail(ctx context.Context, id int64, reason string) error
	ClearOps(ctx context.Context) error
}

// Outbox accepts ops and wakes the drainer.
type Outbox struct {
	store Store
	wake  chan struct{}
}

// New returns an Outbox persisting into store.
func New(store Store) *Outbox {
	return &Outbox{store: store, wake: make(chan struct{}, 1)}
}

// Enqueue persists ops in order.
func (o *Outbox) Enqueue(ctx context.Context, ops ...Op) error {
	for _, op := range ops {
		payload, err := json.Marshal(op)
		if err != nil {
			return fmt.Errorf("encode %s: %w", op.Kind, err)
		}
		if _, err := o.store.Enqueue(ctx, string(op.Kind), payload); err != nil {
			return fmt.Errorf("enqueue %s: %w", op.Kind, err)
		}
	}
	if len(ops) > 0 {
		select {
		case o.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

// Clear drops every pending op.
func (o *Outbox) Clear(ctx context.Context) error {
	return o.store.ClearOps(ctx)
}

// Pending returns up to limit queued ops, oldest first.
func (o *Outbox) Pending(ctx context.Context, limit int) ([]storage.Op, error) {
	return o.store.Pending(ctx, limit)
}

// Decode rebuilds the Op stored in row.
func Decode(row storage.Op) (Op, error) {
	var op Op
	if err := json.Unmarshal(row.Payload, &op); err != nil {
		return Op{}, fmt.Errorf("decode op %d: %w", row.ID, err)
	}
	op.Kind = Kind(row.Kind)
	return op, nil
}
