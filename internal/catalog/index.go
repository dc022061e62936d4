// Package catalog provides the read-only in-memory index over catalog names.
package catalog

import (
	"sort"
	"strings"

	"namematch/internal/model"
)

// Index answers lookups over a fixed list of items. It is never mutated
// after construction and is safe for concurrent use.
type Index struct {
	items []model.Item
	byID  map[string]int
}

// Counts holds category counts for display.
type Counts struct {
	Total        int
	ByGender     map[model.Gender]int
	ByPopularity map[model.Popularity]int
	ByOrigin     map[string]int
	ByStyle      map[string]int
	ByLetter     map[string]int
}

// NewIndex builds an index over items. Later duplicates of an id are ignored.
func NewIndex(items []model.Item) *Index {
	idx := &Index{byID: make(map[string]int, len(items))}
	for _, it := range items {
		if it.ID == "" {
			it.ID = model.ItemID(it.Name)
		}
		if _, dup := idx.byID[it.ID]; dup || it.ID == "" {
			continue
		}
		idx.byID[it.ID] = len(idx.items)
		idx.items = append(idx.items, it)
	}
	return idx
}

// Len returns the number of indexed items.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.items)
}

// All returns every item in catalog order.
func (x *Index) All() []model.Item {
	if x == nil {
		return nil
	}
	out := make([]model.Item, len(x.items))
	copy(out, x.items)
	return out
}

// ByID looks up a single item.
func (x *Index) ByID(id string) (model.Item, bool) {
	if x == nil {
		return model.Item{}, false
	}
	i, ok := x.byID[id]
	if !ok {
		return model.Item{}, false
	}
	return x.items[i], true
}

// ByIDs resolves ids in the given order, skipping unknown ones.
func (x *Index) ByIDs(ids []string) []model.Item {
	out := make([]model.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := x.ByID(id); ok {
			out = append(out, it)
		}
	}
	return out
}

// FindByName looks an item up by display name, case-insensitively.
func (x *Index) FindByName(name string) (model.Item, bool) {
	return x.ByID(model.ItemID(name))
}

// Counts tallies the catalog by category.
func (x *Index) Counts() Counts {
	c := Counts{
		ByGender:     map[model.Gender]int{},
		ByPopularity: map[model.Popularity]int{},
		ByOrigin:     map[string]int{},
		ByStyle:      map[string]int{},
		ByLetter:     map[string]int{},
	}
	if x == nil {
		return c
	}
	for _, it := range x.items {
		c.Total++
		c.ByGender[it.Gender]++
		c.ByPopularity[it.Popularity]++
		for _, o := range it.Origins {
			c.ByOrigin[o]++
		}
		for _, s := range it.Styles {
			c.ByStyle[s]++
		}
		if l := it.FirstLetter(); l != "" {
			c.ByLetter[l]++
		}
	}
	return c
}

// Origins returns the distinct origin tags, sorted.
func (x *Index) Origins() []string {
	return sortedKeys(x.Counts().ByOrigin)
}

// Styles returns the distinct style tags, sorted.
func (x *Index) Styles() []string {
	return sortedKeys(x.Counts().ByStyle)
}

// Merge appends the items of extra lists to base, skipping ids already
// present, and sorts the result by lowercase name.
func Merge(base []model.Item, extra ...[]model.Item) []model.Item {
	seen := make(map[string]bool, len(base))
	out := make([]model.Item, 0, len(base))
	add := func(items []model.Item) {
		for _, it := range items {
			if it.ID == "" {
				it.ID = model.ItemID(it.Name)
			}
			if seen[it.ID] {
				continue
			}
			seen[it.ID] = true
			out = append(out, it)
		}
	}
	add(base)
	for _, e := range extra {
		add(e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
