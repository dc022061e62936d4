// Package filter implements the catalog item visibility predicate.
package filter

import (
	"slices"
	"strings"

	"namematch/internal/model"
)

// Predicate selects which catalog items are visible in the swipe queue.
//
// Empty Origins, Styles or Letters mean "any". Genders and Popularities
// must keep at least one value; callers enforce that (see the Toggle helpers).
type Predicate struct {
	Genders      []model.Gender     `json:"genders"`
	Origins      []string           `json:"origins"`
	Styles       []string           `json:"styles"`
	Letters      []string           `json:"letters"`
	Popularities []model.Popularity `json:"popularities"`
}

// Default returns the predicate that shows every item.
func Default() Predicate {
	return Predicate{
		Genders:      slices.Clone(model.AllGenders),
		Popularities: slices.Clone(model.AllPopularities),
	}
}

// Clone returns a deep copy of p.
func (p Predicate) Clone() Predicate {
	return Predicate{
		Genders:      slices.Clone(p.Genders),
		Origins:      slices.Clone(p.Origins),
		Styles:       slices.Clone(p.Styles),
		Letters:      slices.Clone(p.Letters),
		Popularities: slices.Clone(p.Popularities),
	}
}

// Matches reports whether item satisfies every clause of the predicate.
func (p Predicate) Matches(item model.Item) bool {
	if !slices.Contains(p.Genders, item.Gender) {
		return false
	}
	if len(p.Origins) > 0 && !intersects(p.Origins, item.Origins) {
		return false
	}
	if len(p.Styles) > 0 && !intersects(p.Styles, item.Styles) {
		return false
	}
	if len(p.Letters) > 0 && !slices.Contains(p.Letters, item.FirstLetter()) {
		return false
	}
	return slices.Contains(p.Popularities, item.Popularity)
}

// ActiveFilterCount returns how many dimensions differ from the default.
func (p Predicate) ActiveFilterCount() int {
	n := 0
	if !sameSet(p.Genders, model.AllGenders) {
		n++
	}
	if len(p.Origins) > 0 {
		n++
	}
	if len(p.Styles) > 0 {
		n++
	}
	if len(p.Letters) > 0 {
		n++
	}
	if !sameSet(p.Popularities, model.AllPopularities) {
		n++
	}
	return n
}

// ToggleGender adds or removes g. It refuses to remove the last gender.
func (p *Predicate) ToggleGender(g model.Gender) bool {
	if !slices.Contains(model.AllGenders, g) {
		return false
	}
	next, ok := toggleRequired(p.Genders, g)
	if ok {
		p.Genders = next
	}
	return ok
}

// TogglePopularity adds or removes tier. It refuses to remove the last tier.
func (p *Predicate) TogglePopularity(tier model.Popularity) bool {
	if !slices.Contains(model.AllPopularities, tier) {
		return false
	}
	next, ok := toggleRequired(p.Popularities, tier)
	if ok {
		p.Popularities = next
	}
	return ok
}

// ToggleOrigin adds or removes an origin tag.
func (p *Predicate) ToggleOrigin(origin string) {
	p.Origins = toggle(p.Origins, strings.ToLower(strings.TrimSpace(origin)))
}

// ToggleStyle adds or removes a style tag.
func (p *Predicate) ToggleStyle(style string) {
	p.Styles = toggle(p.Styles, strings.ToLower(strings.TrimSpace(style)))
}

// ToggleLetter adds or removes a first letter.
func (p *Predicate) ToggleLetter(letter string) {
	p.Letters = toggle(p.Letters, strings.ToUpper(strings.TrimSpace(letter)))
}

func intersects(selected, values []string) bool {
	for _, v := range values {
		if slices.Contains(selected, v) {
			return true
		}
	}
	return false
}

func sameSet[T comparable](got, all []T) bool {
	if len(got) < len(all) {
		return false
	}
	for _, v := range all {
		if !slices.Contains(got, v) {
			return false
		}
	}
	return true
}

func toggle(set []string, v string) []string {
	if v == "" {
		return set
	}
	if i := slices.Index(set, v); i >= 0 {
		return slices.Delete(slices.Clone(set), i, i+1)
	}
	return append(slices.Clone(set), v)
}

func toggleRequired[T comparable](set []T, v T) ([]T, bool) {
	i := slices.Index(set, v)
	if i < 0 {
		return append(slices.Clone(set), v), true
	}
	if len(set) == 1 {
		return set, false
	}
	return slices.Delete(slices.Clone(set), i, i+1), true
}
