package bot

import (
	"fmt"
	"slices"
	"strings"

	"namematch/internal/catalog"
	"namematch/internal/engine"
	"namematch/internal/filter"
	"namematch/internal/model"
)

const timeLayout = "2006-01-02 15:04 UTC"

// FormatCard formats a catalog item as a swipe card.
func FormatCard(item model.Item) string {
	var b strings.Builder
	b.WriteString(item.Name)
	fmt.Fprintf(&b, "\n%s · %s", genderLabel(item.Gender), item.Popularity)
	if len(item.Origins) > 0 {
		fmt.Fprintf(&b, "\nOrigin: %s", strings.Join(item.Origins, ", "))
	}
	if len(item.Styles) > 0 {
		fmt.Fprintf(&b, "\nStyle: %s", strings.Join(item.Styles, ", "))
	}
	if item.Meaning != "" {
		fmt.Fprintf(&b, "\nMeaning: %s", item.Meaning)
	}
	return b.String()
}

// FormatMatchAnnouncement formats the message sent when a match is made.
func FormatMatchAnnouncement(item model.Item) string {
	return fmt.Sprintf("It's a match! You both like %s.\nSee all matches with /matches.", item.Name)
}

// FormatMatchList formats matches in the given order. name resolves an
// item id for display.
func FormatMatchList(matches []model.Match, name func(itemID string) string) string {
	if len(matches) == 0 {
		return "No matches yet. Keep swiping!"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Your matches (%d):\n", len(matches))
	for i, m := range matches {
		fmt.Fprintf(&b, "\n%d. %s", i+1, name(m.ItemID))
		if m.Rating != nil {
			fmt.Fprintf(&b, "  %s", stars(*m.Rating))
		}
		fmt.Fprintf(&b, "  (%s)", m.CreatedAt.UTC().Format("2006-01-02"))
		if m.Notes != nil {
			fmt.Fprintf(&b, "\n   %s", *m.Notes)
		}
	}
	return b.String()
}

// FormatFilters formats the active filter and the values available in the catalog.
func FormatFilters(p filter.Predicate, counts catalog.Counts, queued int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Filters (%d active):\n", p.ActiveFilterCount())

	genders := make([]string, 0, len(p.Genders))
	for _, g := range p.Genders {
		genders = append(genders, genderLabel(g))
	}
	fmt.Fprintf(&b, "\nGender: %s", strings.Join(genders, ", "))

	tiers := make([]string, 0, len(p.Popularities))
	for _, t := range p.Popularities {
		tiers = append(tiers, string(t))
	}
	fmt.Fprintf(&b, "\nPopularity: %s", strings.Join(tiers, ", "))
	fmt.Fprintf(&b, "\nOrigin: %s", anyOf(p.Origins))
	fmt.Fprintf(&b, "\nStyle: %s", anyOf(p.Styles))
	fmt.Fprintf(&b, "\nLetter: %s", anyOf(p.Letters))

	fmt.Fprintf(&b, "\n\n%d names in the catalog, %d waiting in your queue.", counts.Total, queued)
	if origins := sortedKeys(counts.ByOrigin); len(origins) > 0 {
		fmt.Fprintf(&b, "\nOrigins: %s", strings.Join(origins, ", "))
	}
	if styles := sortedKeys(counts.ByStyle); len(styles) > 0 {
		fmt.Fprintf(&b, "\nStyles: %s", strings.Join(styles, ", "))
	}
	b.WriteString("\n\nToggle with /gender, /popularity, /origin, /style, /letter. Reset with /clearfilters.")
	return b.String()
}

// FormatStats formats swipe and match counters.
func FormatStats(s *engine.Snapshot) string {
	st := s.Statistics
	var b strings.Builder
	b.WriteString("Your stats:\n")
	fmt.Fprintf(&b, "\nSwiped: %d (%d liked, %d passed)", st.TotalSwipes, st.TotalLikes, st.TotalPasses)
	fmt.Fprintf(&b, "\nMatches: %d", st.MatchCount)
	if s.Household != nil {
		fmt.Fprintf(&b, "\nPartner swiped: %d (%d liked)", st.PartnerSwipeCount, s.PartnerLiked)
	}
	fmt.Fprintf(&b, "\nNames in queue: %d", len(s.Queue))
	return b.String()
}

// FormatHousehold formats household membership and sync status.
func FormatHousehold(s *engine.Snapshot) string {
	if s.Household == nil {
		return "You are not in a household.\nUse /create to start one or /join <code> to join your partner."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Household %s\n", s.Household.Code)
	if s.PartnerJoined() {
		b.WriteString("\nPartner: joined")
	} else {
		fmt.Fprintf(&b, "\nPartner: not yet, share the code %s", s.Household.Code)
	}
	fmt.Fprintf(&b, "\nSync: %s", s.SyncStatus)
	if !s.LastSyncAt.IsZero() {
		fmt.Fprintf(&b, "\nLast sync: %s", s.LastSyncAt.UTC().Format(timeLayout))
	}
	if s.LastSyncError != "" {
		fmt.Fprintf(&b, "\nLast error: %s", s.LastSyncError)
	}
	return b.String()
}

func genderLabel(g model.Gender) string {
	switch g {
	case model.GenderMale:
		return "boy"
	case model.GenderFemale:
		return "girl"
	default:
		return "neutral"
	}
}

func stars(n int) string {
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

func anyOf(values []string) string {
	if len(values) == 0 {
		return "any"
	}
	return strings.Join(values, ", ")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
