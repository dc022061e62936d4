// Package model defines the domain types used across the application.
package model

import (
	"slices"
	"strings"
	"time"
)

// Gender of a catalog name.
type Gender string

// Supported genders.
const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderNeutral Gender = "neutral"
)

// AllGenders lists every gender in display order.
var AllGenders = []Gender{GenderMale, GenderFemale, GenderNeutral}

// Valid reports whether g is one of AllGenders.
func (g Gender) Valid() bool {
	return slices.Contains(AllGenders, g)
}

// Popularity is one of four usage tiers of a name.
type Popularity string

// Supported popularity tiers.
const (
	PopularityPopular  Popularity = "popular"
	PopularityCommon   Popularity = "common"
	PopularityUncommon Popularity = "uncommon"
	PopularityRare     Popularity = "rare"
)

// AllPopularities lists every popularity tier from most to least used.
var AllPopularities = []Popularity{PopularityPopular, PopularityCommon, PopularityUncommon, PopularityRare}

// Valid reports whether p is one of AllPopularities.
func (p Popularity) Valid() bool {
	return slices.Contains(AllPopularities, p)
}

// Item is an immutable catalog entry.
type Item struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Gender     Gender     `json:"gender"`
	Origins    []string   `json:"origins"`
	Styles     []string   `json:"styles"`
	Meaning    string     `json:"meaning,omitempty"`
	Popularity Popularity `json:"popularity"`
}

// ItemID derives the catalog key for a display name.
func ItemID(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// FirstLetter returns the uppercased first letter of the name, or "" for an empty name.
func (i Item) FirstLetter() string {
	for _, r := range i.Name {
		return strings.ToUpper(string(r))
	}
	return ""
}

// Swipe is a single like/pass decision of one user on one item.
type Swipe struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"itemId"`
	Liked     bool      `json:"liked"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// UndoEntry pairs a swipe with the item it was made on. Replaced holds the
// earlier swipe on the same item that this one superseded, if any.
type UndoEntry struct {
	Swipe    Swipe
	Item     Item
	Replaced *Swipe
}

// Match is an item both household members liked.
type Match struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"itemId"`
	CreatedAt time.Time `json:"createdAt"`
	Rating    *int      `json:"rating,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	// Confirmed is set once the match has been seen in the remote store.
	Confirmed bool `json:"confirmed,omitempty"`
}

// Household pairs members sharing a join code.
type Household struct {
	Code      string    `json:"code"`
	MemberIDs []string  `json:"memberIds"`
	CreatedAt time.Time `json:"createdAt"`
}

// PartnerJoined reports whether a second member is present.
func (h *Household) PartnerJoined() bool {
	return h != nil && len(h.MemberIDs) >= 2
}

// PartnerIDs returns the member ids other than self.
func (h *Household) PartnerIDs(self string) []string {
	if h == nil {
		return nil
	}
	var ids []string
	for _, id := range h.MemberIDs {
		if id != self {
			ids = append(ids, id)
		}
	}
	return ids
}

// Statistics are derived counters kept alongside swipes and matches.
type Statistics struct {
	TotalSwipes       int `json:"totalSwipes"`
	TotalLikes        int `json:"totalLikes"`
	TotalPasses       int `json:"totalPasses"`
	MatchCount        int `json:"matchCount"`
	PartnerSwipeCount int `json:"partnerSwipeCount"`
}

// ApplySwipe counts a newly recorded swipe.
func (s *Statistics) ApplySwipe(liked bool) {
	s.TotalSwipes++
	if liked {
		s.TotalLikes++
	} else {
		s.TotalPasses++
	}
}

// RevertSwipe undoes ApplySwipe, clamping every counter at zero.
func (s *Statistics) RevertSwipe(liked bool) {
	s.TotalSwipes = decr(s.TotalSwipes)
	if liked {
		s.TotalLikes = decr(s.TotalLikes)
	} else {
		s.TotalPasses = decr(s.TotalPasses)
	}
}

// AddMatch counts a newly created match.
func (s *Statistics) AddMatch() {
	s.MatchCount++
}

// RemoveMatch counts a removed match, clamping at zero.
func (s *Statistics) RemoveMatch() {
	s.MatchCount = decr(s.MatchCount)
}

func decr(n int) int {
	if n <= 0 {
		return 0
	}
	return n - 1
}
