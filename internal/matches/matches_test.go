package matches

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"namematch/internal/model"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestSet() *Set {
	s := New()
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("m%d", n)
	}
	return s
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func itemIDs(ms []model.Match) []string {
	var out []string
	for _, m := range ms {
		out = append(out, m.ItemID)
	}
	return out
}

func TestCreateIsExactlyOnce(t *testing.T) {
	s := newTestSet()

	m, ok := s.Create("oliver", t0)
	if !ok {
		t.Fatal("first create should succeed")
	}
	if _, ok := s.Create("oliver", t0.Add(time.Second)); ok {
		t.Error("duplicate create should be a no-op")
	}
	if diff := cmp.Diff(1, s.Len()); diff != "" {
		t.Errorf("Len mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]model.Match{m}, s.Celebrations()); diff != "" {
		t.Errorf("Celebrations mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveDismissesForever(t *testing.T) {
	s := newTestSet()
	s.Create("oliver", t0)

	if !s.Remove("oliver") {
		t.Fatal("remove should report the deleted match")
	}
	if !s.IsDismissed("oliver") {
		t.Error("removed item should be dismissed")
	}
	if _, ok := s.Create("oliver", t0); ok {
		t.Error("dismissed item must not be recreated")
	}
	if len(s.Celebrations()) != 0 {
		t.Error("celebration of a removed match should be dropped")
	}
	if s.Remove("oliver") {
		t.Error("second remove should report nothing removed")
	}
}

func TestDropDoesNotDismiss(t *testing.T) {
	s := newTestSet()
	s.Create("kai", t0)

	if !s.Drop("kai") {
		t.Fatal("drop should succeed")
	}
	if s.IsDismissed("kai") {
		t.Error("dropped item should not be dismissed")
	}
	if _, ok := s.Create("kai", t0); !ok {
		t.Error("dropped item can match again")
	}
}

func TestSetRatingAndNotes(t *testing.T) {
	s := newTestSet()
	s.Create("ava", t0)

	tests := []struct {
		name   string
		rating *int
		ok     bool
		want   *int
	}{
		{name: "valid", rating: intPtr(4), ok: true, want: intPtr(4)},
		{name: "too high", rating: intPtr(6), ok: false, want: intPtr(4)},
		{name: "too low", rating: intPtr(0), ok: false, want: intPtr(4)},
		{name: "clear", rating: nil, ok: true, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.ok, s.SetRating("ava", tt.rating)); diff != "" {
				t.Errorf("SetRating ok mismatch (-want +got):\n%s", diff)
			}
			m, _ := s.Get("ava")
			if diff := cmp.Diff(tt.want, m.Rating); diff != "" {
				t.Errorf("rating mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if s.SetRating("missing", intPtr(3)) {
		t.Error("rating a missing match should fail")
	}

	s.SetNotes("ava", strPtr("grandma's name"))
	m, _ := s.Get("ava")
	if diff := cmp.Diff(strPtr("grandma's name"), m.Notes); diff != "" {
		t.Errorf("notes mismatch (-want +got):\n%s", diff)
	}
	s.SetNotes("ava", strPtr("   "))
	m, _ = s.Get("ava")
	if m.Notes != nil {
		t.Errorf("blank notes should normalize to nil, got %q", *m.Notes)
	}
}

func TestAllOrders(t *testing.T) {
	s := newTestSet()
	s.Create("zara", t0)
	s.Create("ava", t0.Add(time.Minute))
	s.Create("milo", t0.Add(2*time.Minute))
	s.SetRating("zara", intPtr(5))
	s.SetRating("ava", intPtr(3))

	names := map[string]string{"zara": "Zara", "ava": "Ava", "milo": "Milo"}
	lookup := func(id string) string { return names[id] }

	tests := []struct {
		order Order
		want  []string
	}{
		{order: ByRecent, want: []string{"milo", "ava", "zara"}},
		{order: ByRating, want: []string{"zara", "ava", "milo"}},
		{order: ByName, want: []string{"ava", "milo", "zara"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			if diff := cmp.Diff(tt.want, itemIDs(s.All(tt.order, lookup))); diff != "" {
				t.Errorf("All(%s) mismatch (-want +got):\n%s", tt.order, diff)
			}
		})
	}
}

func TestAcknowledge(t *testing.T) {
	s := newTestSet()
	a, _ := s.Create("ava", t0)
	b, _ := s.Create("kai", t0)

	if !s.Acknowledge(a.ID) {
		t.Fatal("acknowledge should succeed")
	}
	if s.Acknowledge(a.ID) {
		t.Error("celebration should be consumed exactly once")
	}
	if diff := cmp.Diff([]model.Match{b}, s.Celebrations()); diff != "" {
		t.Errorf("Celebrations mismatch (-want +got):\n%s", diff)
	}
}

func TestParseOrder(t *testing.T) {
	tests := map[string]Order{"": ByRecent, "Rating": ByRating, "name": ByName, "bogus": ByRecent}
	for in, want := range tests {
		if got := ParseOrder(in); got != want {
			t.Errorf("ParseOrder(%q) = %q, want %q", in, got, want)
		}
	}
}
