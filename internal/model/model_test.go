package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestItemID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "mixed case", in: "Oliver", want: "oliver"},
		{name: "surrounding spaces", in: "  Mary Jane ", want: "mary jane"},
		{name: "already lower", in: "kai", want: "kai"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ItemID(tt.in)); diff != "" {
				t.Errorf("ItemID() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFirstLetter(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want string
	}{
		{name: "ascii", item: Item{Name: "oliver"}, want: "O"},
		{name: "accented", item: Item{Name: "élodie"}, want: "É"},
		{name: "empty", item: Item{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.item.FirstLetter()); diff != "" {
				t.Errorf("FirstLetter() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStatisticsNeverNegative(t *testing.T) {
	var s Statistics
	s.RevertSwipe(true)
	s.RevertSwipe(false)
	s.RemoveMatch()

	if diff := cmp.Diff(Statistics{}, s); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}

	s.ApplySwipe(true)
	s.ApplySwipe(false)
	s.AddMatch()
	s.RevertSwipe(true)

	want := Statistics{TotalSwipes: 1, TotalPasses: 1, MatchCount: 1}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestHouseholdPartner(t *testing.T) {
	var nilHousehold *Household
	if nilHousehold.PartnerJoined() {
		t.Error("nil household should not have a partner")
	}

	h := &Household{Code: "ABC234", MemberIDs: []string{"me"}}
	if h.PartnerJoined() {
		t.Error("single member household should not have a partner")
	}

	h.MemberIDs = append(h.MemberIDs, "you")
	if !h.PartnerJoined() {
		t.Error("two member household should have a partner")
	}
	if diff := cmp.Diff([]string{"you"}, h.PartnerIDs("me")); diff != "" {
		t.Errorf("PartnerIDs mismatch (-want +got):\n%s", diff)
	}
}

func TestEnumValid(t *testing.T) {
	for _, g := range AllGenders {
		if !g.Valid() {
			t.Errorf("%q should be valid", g)
		}
	}
	for _, p := range AllPopularities {
		if !p.Valid() {
			t.Errorf("%q should be valid", p)
		}
	}
	for _, g := range []Gender{"", "other", "Male"} {
		if g.Valid() {
			t.Errorf("gender %q should be invalid", g)
		}
	}
	for _, p := range []Popularity{"", "famous"} {
		if p.Valid() {
			t.Errorf("popularity %q should be invalid", p)
		}
	}
}
