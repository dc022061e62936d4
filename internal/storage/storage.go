// Package storage defines the device-local persistence interface and its
// implementations.
package storage

import (
	"context"
	"time"
)

// Keys under which engine state is persisted.
const (
	KeyUser         = "user"
	KeySwipes       = "swipes"
	KeyMatches      = "matches"
	KeyFilters      = "filters"
	KeyHousehold    = "household"
	KeyStatistics   = "statistics"
	KeyDismissed    = "dismissed"
	KeyCelebrations = "celebrations"
)

// Op is a pending remote write waiting in the outbox.
type Op struct {
	ID        int64
	Kind      string
	Payload   []byte
	Attempts  int
	LastError string
	CreatedAt time.Time
}

// Storage is the interface for all local persistence operations.
type Storage interface {
	// Load decodes the value stored under key into dst. A missing key
	// reports false and leaves dst untouched.
	Load(ctx context.Context, key string, dst any) (bool, error)
	Save(ctx context.Context, key string, v any) error
	// SaveAll writes several keys in one transaction.
	SaveAll(ctx context.Context, values map[string]any) error
	DeleteAll(ctx context.Context) error

	Enqueue(ctx context.Context, kind string, payload []byte) (int64, error)
	// Pending returns up to limit ops in insertion order.
	Pending(ctx context.Context, limit int) ([]Op, error)
	Done(ctx context.Context, id int64) error
	Fail(ctx context.Context, id int64, reason string) error
	ClearOps(ctx context.Context) error

	Close() error
}
