package remote

import (
	"context"
	"sync"
)

// Memory is an in-process Store. Several engines sharing one Memory behave
// like devices sharing a remote service.
type Memory struct {
	mu      sync.Mutex
	records map[Kind]map[string]Record
	fail    error
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{records: map[Kind]map[string]Record{}}
}

// SetFailure makes every subsequent call return err; nil restores service.
func (m *Memory) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// Put implements Store.
func (m *Memory) Put(ctx context.Context, r Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	byID, ok := m.records[r.Kind]
	if !ok {
		byID = map[string]Record{}
		m.records[r.Kind] = byID
	}
	byID[r.ID] = cloneRecord(r)
	return nil
}

// Query implements Store.
func (m *Memory) Query(ctx context.Context, q Query) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	all := make([]Record, 0, len(m.records[q.Kind]))
	for _, r := range m.records[q.Kind] {
		all = append(all, r)
	}
	return q.apply(all), nil
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, kind Kind, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	delete(m.records[kind], id)
	return nil
}

// Close implements Store.
func (m *Memory) Close() error {
	return nil
}

// Offline is a Store for devices without a configured remote. Every call
// fails with ErrUnavailable.
type Offline struct{}

// Put implements Store.
func (Offline) Put(context.Context, Record) error { return ErrUnavailable }

// Query implements Store.
func (Offline) Query(context.Context, Query) ([]Record, error) { return nil, ErrUnavailable }

// Delete implements Store.
func (Offline) Delete(context.Context, Kind, string) error { return ErrUnavailable }

// Close implements Store.
func (Offline) Close() error { return nil }
