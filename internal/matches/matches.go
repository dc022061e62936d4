// Package matches keeps the local set of confirmed matches, the items whose
// matches were dismissed, and the celebrations waiting to be shown.
package matches

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"namematch/internal/model"
)

// Order selects how All sorts matches.
type Order string

// Supported orders.
const (
	ByRecent Order = "recent"
	ByRating Order = "rating"
	ByName   Order = "name"
)

// ParseOrder maps user input to an Order, defaulting to ByRecent.
func ParseOrder(s string) Order {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case ByRating:
		return ByRating
	case ByName:
		return ByName
	default:
		return ByRecent
	}
}

// Set is not safe for concurrent use; the engine serializes access.
type Set struct {
	active       map[string]*model.Match // item id -> match
	dismissed    map[string]bool
	celebrations []model.Match
	newID        func() string
}

// New returns an empty Set.
func New() *Set {
	return &Set{
		active:    map[string]*model.Match{},
		dismissed: map[string]bool{},
		newID:     uuid.NewString,
	}
}

// Restore loads persisted state.
func (s *Set) Restore(active []model.Match, dismissed []string, celebrations []model.Match) {
	s.active = make(map[string]*model.Match, len(active))
	for i := range active {
		m := active[i]
		if _, dup := s.active[m.ItemID]; dup {
			continue
		}
		s.active[m.ItemID] = &m
	}
	s.dismissed = make(map[string]bool, len(dismissed))
	for _, id := range dismissed {
		s.dismissed[id] = true
	}
	s.celebrations = append([]model.Match(nil), celebrations...)
}

// Create adds a match for itemID unless one is active or the item was
// dismissed. A created match is queued for celebration.
func (s *Set) Create(itemID string, now time.Time) (model.Match, bool) {
	if _, ok := s.active[itemID]; ok || s.dismissed[itemID] {
		return model.Match{}, false
	}
	m := &model.Match{ID: s.newID(), ItemID: itemID, CreatedAt: now}
	s.active[itemID] = m
	s.celebrations = append(s.celebrations, *m)
	return *m, true
}

// Remove deletes the match and dismisses its item permanently.
func (s *Set) Remove(itemID string) bool {
	_, ok := s.active[itemID]
	s.dismissed[itemID] = true
	if !ok {
		return false
	}
	s.drop(itemID)
	return true
}

// Drop deletes the match without dismissing its item.
func (s *Set) Drop(itemID string) bool {
	if _, ok := s.active[itemID]; !ok {
		return false
	}
	s.drop(itemID)
	return true
}

func (s *Set) drop(itemID string) {
	m := s.active[itemID]
	delete(s.active, itemID)
	s.Acknowledge(m.ID)
}

// Has reports whether an active match exists for itemID.
func (s *Set) Has(itemID string) bool {
	_, ok := s.active[itemID]
	return ok
}

// Get returns the active match for itemID.
func (s *Set) Get(itemID string) (model.Match, bool) {
	m, ok := s.active[itemID]
	if !ok {
		return model.Match{}, false
	}
	return *m, true
}

// MarkConfirmed records that the match exists in the remote store.
func (s *Set) MarkConfirmed(itemID string) {
	if m, ok := s.active[itemID]; ok {
		m.Confirmed = true
	}
}

// SetRating sets a 1–5 rating, or clears it when rating is nil.
func (s *Set) SetRating(itemID string, rating *int) bool {
	m, ok := s.active[itemID]
	if !ok {
		return false
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return false
	}
	if rating == nil {
		m.Rating = nil
		return true
	}
	v := *rating
	m.Rating = &v
	return true
}

// SetNotes replaces the note. An empty note is stored as nil.
func (s *Set) SetNotes(itemID string, notes *string) bool {
	m, ok := s.active[itemID]
	if !ok {
		return false
	}
	if notes == nil || strings.TrimSpace(*notes) == "" {
		m.Notes = nil
		return true
	}
	v := *notes
	m.Notes = &v
	return true
}

// IsDismissed reports whether itemID was dismissed locally.
func (s *Set) IsDismissed(itemID string) bool {
	return s.dismissed[itemID]
}

// Dismissed returns the dismissed item ids, sorted.
func (s *Set) Dismissed() []string {
	out := make([]string, 0, len(s.dismissed))
	for id := range s.dismissed {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of active matches.
func (s *Set) Len() int {
	return len(s.active)
}

// All returns the active matches sorted by order. name resolves an item
// id to its display name for ByName.
func (s *Set) All(order Order, name func(itemID string) string) []model.Match {
	out := make([]model.Match, 0, len(s.active))
	for _, m := range s.active {
		out = append(out, *m)
	}
	recent := func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ItemID < out[j].ItemID
	}
	switch order {
	case ByRating:
		sort.Slice(out, func(i, j int) bool {
			ri, rj := rating(out[i]), rating(out[j])
			if ri != rj {
				return ri > rj
			}
			return recent(i, j)
		})
	case ByName:
		if name == nil {
			name = func(id string) string { return id }
		}
		sort.Slice(out, func(i, j int) bool {
			ni, nj := strings.ToLower(name(out[i].ItemID)), strings.ToLower(name(out[j].ItemID))
			if ni != nj {
				return ni < nj
			}
			return out[i].ItemID < out[j].ItemID
		})
	default:
		sort.Slice(out, recent)
	}
	return out
}

// Celebrations returns matches created but not yet acknowledged, oldest first.
func (s *Set) Celebrations() []model.Match {
	return append([]model.Match(nil), s.celebrations...)
}

// Acknowledge consumes the celebration for matchID.
func (s *Set) Acknowledge(matchID string) bool {
	for i, c := range s.celebrations {
		if c.ID == matchID {
			s.celebrations = append(s.celebrations[:i], s.celebrations[i+1:]...)
			return true
		}
	}
	return false
}

// Reset clears matches, dismissals and celebrations.
func (s *Set) Reset() {
	s.Restore(nil, nil, nil)
}

func rating(m model.Match) int {
	if m.Rating == nil {
		return 0
	}
	return *m.Rating
}
