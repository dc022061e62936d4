// Package remote talks to the shared record store that household members
// synchronize through.
//
// The store is a generic record service: records of a few kinds, each a
// flat string map, created or replaced by id, queried with equality and
// inequality predicates, and deleted by id. There are no transactions
// across records. Client layers the household vocabulary on top.
package remote

import (
	"context"
	"errors"
	"sort"
	"time"
)

// Kind names a record type.
type Kind string

// Record kinds exchanged between household members.
const (
	KindHousehold Kind = "household"
	KindMember    Kind = "member"
	KindSwipe     Kind = "swipe"
	KindMatch     Kind = "match"
	KindDismissal Kind = "dismissed_match"
)

// Field names shared by several kinds.
const (
	FieldHouseholdCode = "householdCode"
	FieldUserID        = "userId"
	FieldNameID        = "nameId"
	FieldTimestamp     = "timestamp"
)

// TimeLayout formats timestamps so that string order is time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable is returned when the store cannot be reached.
	ErrUnavailable = errors.New("remote store unavailable")
)

// Record is a single stored row.
type Record struct {
	Kind   Kind
	ID     string
	Fields map[string]string
}

// Op is a predicate comparison.
type Op string

// Supported comparisons.
const (
	OpEq Op = "="
	OpNe Op = "!="
)

// Predicate compares one field with a value.
type Predicate struct {
	Field string
	Op    Op
	Value string
}

// Eq matches records whose field equals value.
func Eq(field, value string) Predicate {
	return Predicate{Field: field, Op: OpEq, Value: value}
}

// Ne matches records whose field differs from value (or is missing).
func Ne(field, value string) Predicate {
	return Predicate{Field: field, Op: OpNe, Value: value}
}

// Query selects records of one kind.
type Query struct {
	Kind    Kind
	Where   []Predicate
	OrderBy string
	Desc    bool
	// Limit of zero means no limit.
	Limit int
}

// Store is the remote record service.
type Store interface {
	// Put creates the record or replaces the one with the same kind and id.
	Put(ctx context.Context, r Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, kind Kind, id string) error
	Close() error
}

// Matches reports whether r satisfies every predicate of q.
func (q Query) Matches(r Record) bool {
	if r.Kind != q.Kind {
		return false
	}
	for _, p := range q.Where {
		v := r.Fields[p.Field]
		switch p.Op {
		case OpEq:
			if v != p.Value {
				return false
			}
		case OpNe:
			if v == p.Value {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// apply filters, sorts and limits records in memory.
func (q Query) apply(records []Record) []Record {
	var out []Record
	for _, r := range records {
		if q.Matches(r) {
			out = append(out, cloneRecord(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if q.OrderBy != "" {
			a, b := out[i].Fields[q.OrderBy], out[j].Fields[q.OrderBy]
			if a != b {
				if q.Desc {
					return a > b
				}
				return a < b
			}
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func cloneRecord(r Record) Record {
	fields := make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{Kind: r.Kind, ID: r.ID, Fields: fields}
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a TimeLayout timestamp, returning the zero time on error.
func ParseTime(s string) time.Time {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
