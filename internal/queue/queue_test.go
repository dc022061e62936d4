package queue

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"namematch/internal/catalog"
	"namematch/internal/filter"
	"namematch/internal/model"
)

func testCatalog(n int, gender model.Gender) []model.Item {
	items := make([]model.Item, 0, n)
	for i := range n {
		items = append(items, model.Item{
			ID:         fmt.Sprintf("%s%02d", gender, i),
			Name:       fmt.Sprintf("%s%02d", gender, i),
			Gender:     gender,
			Popularity: model.PopularityCommon,
		})
	}
	return items
}

func ids(items []model.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func set(ids ...string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func newTestBuilder(items []model.Item) *Builder {
	return NewBuilder(catalog.NewIndex(items), rand.New(rand.NewPCG(1, 2)))
}

func TestBuildBoostPrecedence(t *testing.T) {
	// 50 filter-eligible items plus 3 partner likes the filter rejects.
	items := append(testCatalog(50, model.GenderFemale), testCatalog(3, model.GenderMale)...)
	b := newTestBuilder(items)

	pred := filter.Default()
	pred.Genders = []model.Gender{model.GenderFemale}

	got := b.Build(Input{
		Filter:       pred,
		PartnerLiked: set("male00", "male01", "male02"),
	})

	if diff := cmp.Diff(MinSize, len(got)); diff != "" {
		t.Fatalf("queue length mismatch (-want +got):\n%s", diff)
	}
	head := ids(got[:3])
	sort.Strings(head)
	if diff := cmp.Diff([]string{"male00", "male01", "male02"}, head); diff != "" {
		t.Errorf("boosted head mismatch (-want +got):\n%s", diff)
	}
	for _, it := range got[3:] {
		if it.Gender != model.GenderFemale {
			t.Errorf("fill item %s does not match the filter", it.ID)
		}
	}
}

func TestBuildBoostedItemsNotRepeated(t *testing.T) {
	// Partner likes are also filter-eligible; they must not appear twice.
	items := testCatalog(50, model.GenderFemale)
	b := newTestBuilder(items)

	got := b.Build(Input{
		Filter:       filter.Default(),
		PartnerLiked: set("female00", "female01", "female02"),
	})

	if diff := cmp.Diff(MinSize, len(got)); diff != "" {
		t.Fatalf("queue length mismatch (-want +got):\n%s", diff)
	}
	seen := map[string]int{}
	for _, id := range ids(got) {
		seen[id]++
	}
	for id, n := range seen {
		if n > 1 {
			t.Errorf("%s appears %d times", id, n)
		}
	}
	head := ids(got[:3])
	sort.Strings(head)
	if diff := cmp.Diff([]string{"female00", "female01", "female02"}, head); diff != "" {
		t.Errorf("boosted head mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildExcludesSwipedAndQueued(t *testing.T) {
	items := testCatalog(12, model.GenderNeutral)
	b := newTestBuilder(items)

	got := b.Build(Input{
		Filter:       filter.Default(),
		Swiped:       set("neutral00", "neutral01", "neutral02"),
		Queued:       set("neutral03"),
		PartnerLiked: set("neutral01", "neutral03"),
	})

	want := []string{"neutral04", "neutral05", "neutral06", "neutral07", "neutral08", "neutral09", "neutral10", "neutral11"}
	gotIDs := ids(got)
	sort.Strings(gotIDs)
	if diff := cmp.Diff(want, gotIDs); diff != "" {
		t.Errorf("Build mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildManyBoostsSkipsFill(t *testing.T) {
	items := testCatalog(20, model.GenderMale)
	b := newTestBuilder(items)

	liked := map[string]bool{}
	for _, it := range items[:12] {
		liked[it.ID] = true
	}
	got := b.Build(Input{Filter: filter.Default(), PartnerLiked: liked})

	gotIDs := ids(got)
	sort.Strings(gotIDs)
	if diff := cmp.Diff(ids(items[:12]), gotIDs); diff != "" {
		t.Errorf("Build mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildExhausted(t *testing.T) {
	b := newTestBuilder(testCatalog(5, model.GenderMale))
	pred := filter.Default()
	pred.Genders = []model.Gender{model.GenderFemale}

	if got := b.Build(Input{Filter: pred}); len(got) != 0 {
		t.Errorf("expected empty queue, got %v", ids(got))
	}
}

func TestBuildEmptyCatalog(t *testing.T) {
	b := NewBuilder(catalog.NewIndex(nil), nil)
	if got := b.Build(Input{Filter: filter.Default(), PartnerLiked: set("ghost")}); len(got) != 0 {
		t.Errorf("expected empty queue, got %v", ids(got))
	}
}

func TestQueueOperations(t *testing.T) {
	a := model.Item{ID: "a"}
	bb := model.Item{ID: "b"}
	c := model.Item{ID: "c"}
	d := model.Item{ID: "d"}

	var q Queue
	q.InsertBoost([]model.Item{a})
	if diff := cmp.Diff([]string{"a"}, ids(q.Items())); diff != "" {
		t.Errorf("insert into empty queue mismatch (-want +got):\n%s", diff)
	}

	q.Append([]model.Item{bb, c, a})
	q.InsertBoost([]model.Item{d, c})
	if diff := cmp.Diff([]string{"a", "d", "b", "c"}, ids(q.Items())); diff != "" {
		t.Errorf("boost insert mismatch (-want +got):\n%s", diff)
	}

	if !q.Consume("d") || q.Consume("zzz") {
		t.Error("Consume reported wrong result")
	}
	q.PushFront(c)
	if diff := cmp.Diff([]string{"c", "a", "b"}, ids(q.Items())); diff != "" {
		t.Errorf("PushFront mismatch (-want +got):\n%s", diff)
	}
	if top, _ := q.Top(); top.ID != "c" {
		t.Errorf("Top = %s, want c", top.ID)
	}
	if q.NeedsRefill() {
		t.Error("3 items should not need a refill")
	}
	q.Consume("c")
	if !q.NeedsRefill() {
		t.Error("2 items should need a refill")
	}
	q.Clear()
	if _, ok := q.Top(); ok {
		t.Error("cleared queue should have no top")
	}
	if !q.Exhausted() {
		t.Error("cleared queue should be exhausted")
	}
}
