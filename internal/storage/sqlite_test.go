package storage

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"namematch/internal/model"
)

var ignoreOpTimestamps = cmpopts.IgnoreFields(Op{}, "CreatedAt")

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadMissingKey(t *testing.T) {
	s := newTestDB(t)

	stats := model.Statistics{TotalSwipes: 7}
	found, err := s.Load(context.Background(), KeyStatistics, &stats)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Error("expected missing key")
	}
	if stats.TotalSwipes != 7 {
		t.Error("missing key must leave dst untouched")
	}
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	rating := 4
	tests := []struct {
		name string
		key  string
		in   any
		out  func() any
	}{
		{
			name: "statistics",
			key:  KeyStatistics,
			in:   &model.Statistics{TotalSwipes: 3, TotalLikes: 2, TotalPasses: 1, MatchCount: 1},
			out:  func() any { return &model.Statistics{} },
		},
		{
			name: "matches",
			key:  KeyMatches,
			in:   &[]model.Match{{ID: "m1", ItemID: "ava", Rating: &rating, Confirmed: true}},
			out:  func() any { return &[]model.Match{} },
		},
		{
			name: "dismissed",
			key:  KeyDismissed,
			in:   &[]string{"kai", "zoe"},
			out:  func() any { return &[]string{} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Save(ctx, tt.key, tt.in); err != nil {
				t.Fatalf("save: %v", err)
			}
			got := tt.out()
			found, err := s.Load(ctx, tt.key, got)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if !found {
				t.Fatal("expected key to be found")
			}
			if diff := cmp.Diff(tt.in, got); diff != "" {
				t.Errorf("Load mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSaveAllOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if err := s.Save(ctx, KeyUser, "first"); err != nil {
		t.Fatalf("save: %v", err)
	}
	err := s.SaveAll(ctx, map[string]any{
		KeyUser:      "second",
		KeyDismissed: []string{"ava"},
	})
	if err != nil {
		t.Fatalf("save all: %v", err)
	}

	var user string
	if _, err := s.Load(ctx, KeyUser, &user); err != nil {
		t.Fatalf("load: %v", err)
	}
	if user != "second" {
		t.Errorf("user = %q, want second", user)
	}

	if err := s.DeleteAll(ctx); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	found, err := s.Load(ctx, KeyUser, &user)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Error("expected no keys after DeleteAll")
	}
}

func TestLoadCorruptValue(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)`,
		KeyStatistics, "{not json", "2026-01-01T00:00:00Z",
	); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var stats model.Statistics
	found, err := s.Load(ctx, KeyStatistics, &stats)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !found {
		t.Error("corrupt key still exists")
	}
}

func TestOutbox(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	for _, kind := range []string{"put_swipe", "put_match", "delete_swipe"} {
		if _, err := s.Enqueue(ctx, kind, []byte(`{"k":"`+kind+`"}`)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	ops, err := s.Pending(ctx, 2)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	want := []Op{
		{ID: 1, Kind: "put_swipe", Payload: []byte(`{"k":"put_swipe"}`)},
		{ID: 2, Kind: "put_match", Payload: []byte(`{"k":"put_match"}`)},
	}
	if diff := cmp.Diff(want, ops, ignoreOpTimestamps); diff != "" {
		t.Errorf("Pending mismatch (-want +got):\n%s", diff)
	}

	if err := s.Fail(ctx, 1, "boom"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if err := s.Done(ctx, 2); err != nil {
		t.Fatalf("done: %v", err)
	}

	ops, err = s.Pending(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	want = []Op{
		{ID: 1, Kind: "put_swipe", Payload: []byte(`{"k":"put_swipe"}`), Attempts: 1, LastError: "boom"},
		{ID: 3, Kind: "delete_swipe", Payload: []byte(`{"k":"delete_swipe"}`)},
	}
	if diff := cmp.Diff(want, ops, ignoreOpTimestamps); diff != "" {
		t.Errorf("Pending after fail/done mismatch (-want +got):\n%s", diff)
	}

	if err := s.ClearOps(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	ops, err = s.Pending(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(ops) != 0 {
		t.Errorf("expected empty outbox, got %d ops", len(ops))
	}
}
