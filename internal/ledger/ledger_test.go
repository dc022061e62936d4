package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"namematch/internal/model"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestLedger() *Ledger {
	l := New()
	n := 0
	l.newID = func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}
	return l
}

func item(id string) model.Item {
	return model.Item{ID: id, Name: id}
}

func TestRecordAndUndo(t *testing.T) {
	l := newTestLedger()

	s, replaced := l.Record(item("oliver"), true, "me", t0)
	if replaced != nil {
		t.Fatalf("unexpected replaced swipe: %+v", replaced)
	}
	want := model.Swipe{ID: "s1", ItemID: "oliver", Liked: true, UserID: "me", CreatedAt: t0}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("Record mismatch (-want +got):\n%s", diff)
	}
	if !l.LikedIDs()["oliver"] || !l.SwipedIDs()["oliver"] {
		t.Error("oliver should be liked and swiped")
	}

	e, ok := l.UndoLast()
	if !ok {
		t.Fatal("expected undo entry")
	}
	if diff := cmp.Diff(want, e.Swipe); diff != "" {
		t.Errorf("undo swipe mismatch (-want +got):\n%s", diff)
	}
	if l.Len() != 0 {
		t.Errorf("expected empty ledger, got %d swipes", l.Len())
	}

	if _, ok := l.UndoLast(); ok {
		t.Error("undo on empty buffer should report nothing")
	}
}

func TestUndoBufferIsBounded(t *testing.T) {
	l := newTestLedger()
	for i := range 6 {
		l.Record(item(fmt.Sprintf("n%d", i)), i%2 == 0, "me", t0.Add(time.Duration(i)*time.Minute))
	}

	if diff := cmp.Diff(UndoCapacity, l.UndoDepth()); diff != "" {
		t.Errorf("UndoDepth mismatch (-want +got):\n%s", diff)
	}

	var undone []string
	for {
		e, ok := l.UndoLast()
		if !ok {
			break
		}
		undone = append(undone, e.Item.ID)
	}
	if diff := cmp.Diff([]string{"n5", "n4", "n3", "n2", "n1"}, undone); diff != "" {
		t.Errorf("undo order mismatch (-want +got):\n%s", diff)
	}

	// The oldest swipe stays recorded and cannot be undone.
	if diff := cmp.Diff([]string{"n0"}, swipeItems(l.All())); diff != "" {
		t.Errorf("remaining swipes mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordReplacesDuplicate(t *testing.T) {
	l := newTestLedger()
	l.Record(item("ava"), false, "me", t0)
	l.Record(item("kai"), true, "me", t0.Add(time.Minute))

	s, replaced := l.Record(item("ava"), true, "me", t0.Add(2*time.Minute))
	if replaced == nil || replaced.ID != "s1" {
		t.Fatalf("expected s1 replaced, got %+v", replaced)
	}
	if diff := cmp.Diff([]string{"kai", "ava"}, swipeItems(l.All())); diff != "" {
		t.Errorf("swipes mismatch (-want +got):\n%s", diff)
	}
	if got, _ := l.Get("ava"); got.ID != s.ID || !got.Liked {
		t.Errorf("Get(ava) = %+v", got)
	}

	// The stale undo entry for the replaced swipe is gone.
	if diff := cmp.Diff(2, l.UndoDepth()); diff != "" {
		t.Errorf("UndoDepth mismatch (-want +got):\n%s", diff)
	}

	// Undoing the replacement brings the earlier pass back.
	e, ok := l.UndoLast()
	if !ok || e.Swipe.ID != s.ID {
		t.Fatalf("UndoLast = %+v, %v", e, ok)
	}
	if e.Replaced == nil || e.Replaced.ID != "s1" {
		t.Errorf("undo entry replaced = %+v, want s1", e.Replaced)
	}
	got, ok := l.Get("ava")
	if !ok || got.ID != "s1" || got.Liked {
		t.Errorf("Get(ava) after undo = %+v, %v; want pass s1", got, ok)
	}
	if diff := cmp.Diff(2, l.Len()); diff != "" {
		t.Errorf("Len mismatch (-want +got):\n%s", diff)
	}
}

func TestRestoreDeduplicatesKeepingNewest(t *testing.T) {
	l := newTestLedger()
	l.Restore([]model.Swipe{
		{ID: "a", ItemID: "ava", Liked: true, CreatedAt: t0.Add(time.Hour)},
		{ID: "b", ItemID: "kai", Liked: false, CreatedAt: t0},
		{ID: "c", ItemID: "ava", Liked: false, CreatedAt: t0},
	})

	got, ok := l.Get("ava")
	if !ok || got.ID != "a" {
		t.Errorf("Get(ava) = %+v, %v; want swipe a", got, ok)
	}
	if diff := cmp.Diff(map[string]bool{"ava": true}, l.LikedIDs()); diff != "" {
		t.Errorf("LikedIDs mismatch (-want +got):\n%s", diff)
	}
	if l.UndoDepth() != 0 {
		t.Error("restored ledger should have empty undo buffer")
	}
}

func swipeItems(swipes []model.Swipe) []string {
	var out []string
	for _, s := range swipes {
		out = append(out, s.ItemID)
	}
	return out
}
