package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"namematch/internal/model"
)

// Match is the shared part of a match. Rating and notes stay local.
type Match struct {
	ItemID    string
	MatchedAt time.Time
}

// Client maps household concepts onto Store records.
type Client struct {
	store Store
}

// NewClient wraps store.
func NewClient(store Store) *Client {
	return &Client{store: store}
}

// MemberID is the deterministic id of a member row.
func MemberID(code, userID string) string {
	return code + ":" + userID
}

// MatchID is the deterministic id of a match row.
func MatchID(code, itemID string) string {
	return code + ":" + itemID
}

// DismissalID is the deterministic id of a dismissal marker.
func DismissalID(code, itemID, userID string) string {
	return code + ":" + itemID + ":" + userID
}

// PutHousehold creates or replaces a household row.
func (c *Client) PutHousehold(ctx context.Context, h model.Household) error {
	return c.store.Put(ctx, Record{
		Kind: KindHousehold,
		ID:   h.Code,
		Fields: map[string]string{
			"code":             h.Code,
			FieldHouseholdCode: h.Code,
			"memberIds":        strings.Join(h.MemberIDs, ","),
			"createdAt":        FormatTime(h.CreatedAt),
		},
	})
}

// GetHousehold looks a household up by join code.
func (c *Client) GetHousehold(ctx context.Context, code string) (model.Household, error) {
	recs, err := c.store.Query(ctx, Query{
		Kind:  KindHousehold,
		Where: []Predicate{Eq("code", code)},
		Limit: 1,
	})
	if err != nil {
		return model.Household{}, fmt.Errorf("query household: %w", err)
	}
	if len(recs) == 0 {
		return model.Household{}, fmt.Errorf("household %s: %w", code, ErrNotFound)
	}
	f := recs[0].Fields
	h := model.Household{Code: f["code"], CreatedAt: ParseTime(f["createdAt"])}
	if ids := f["memberIds"]; ids != "" {
		h.MemberIDs = strings.Split(ids, ",")
	}
	return h, nil
}

// AddMember writes the member row for userID.
func (c *Client) AddMember(ctx context.Context, code, userID string, joinedAt time.Time) error {
	return c.store.Put(ctx, Record{
		Kind: KindMember,
		ID:   MemberID(code, userID),
		Fields: map[string]string{
			FieldHouseholdCode: code,
			FieldUserID:        userID,
			"joinedAt":         FormatTime(joinedAt),
		},
	})
}

// RemoveMember deletes the member row for userID.
func (c *Client) RemoveMember(ctx context.Context, code, userID string) error {
	return c.store.Delete(ctx, KindMember, MemberID(code, userID))
}

// Members returns the member user ids in join order.
func (c *Client) Members(ctx context.Context, code string) ([]string, error) {
	recs, err := c.store.Query(ctx, Query{
		Kind:    KindMember,
		Where:   []Predicate{Eq(FieldHouseholdCode, code)},
		OrderBy: "joinedAt",
	})
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.Fields[FieldUserID])
	}
	return ids, nil
}

// PutSwipe uploads a swipe under the household code.
func (c *Client) PutSwipe(ctx context.Context, code string, s model.Swipe) error {
	liked := "0"
	if s.Liked {
		liked = "1"
	}
	return c.store.Put(ctx, Record{
		Kind: KindSwipe,
		ID:   s.ID,
		Fields: map[string]string{
			FieldHouseholdCode: code,
			FieldNameID:        s.ItemID,
			"liked":            liked,
			FieldUserID:        s.UserID,
			FieldTimestamp:     FormatTime(s.CreatedAt),
		},
	})
}

// DeleteSwipe removes an uploaded swipe.
func (c *Client) DeleteSwipe(ctx context.Context, swipeID string) error {
	return c.store.Delete(ctx, KindSwipe, swipeID)
}

// PartnerSwipes returns every swipe in the household not made by self,
// oldest first. Duplicates are returned as stored.
func (c *Client) PartnerSwipes(ctx context.Context, code, self string) ([]model.Swipe, error) {
	recs, err := c.store.Query(ctx, Query{
		Kind:    KindSwipe,
		Where:   []Predicate{Eq(FieldHouseholdCode, code), Ne(FieldUserID, self)},
		OrderBy: FieldTimestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("query partner swipes: %w", err)
	}
	out := make([]model.Swipe, 0, len(recs))
	for _, r := range recs {
		out = append(out, model.Swipe{
			ID:        r.ID,
			ItemID:    r.Fields[FieldNameID],
			Liked:     r.Fields["liked"] == "1",
			UserID:    r.Fields[FieldUserID],
			CreatedAt: ParseTime(r.Fields[FieldTimestamp]),
		})
	}
	return out, nil
}

// PutMatch records a match. Both members may write it; the id makes the
// write idempotent.
func (c *Client) PutMatch(ctx context.Context, code, itemID string, matchedAt time.Time) error {
	return c.store.Put(ctx, Record{
		Kind: KindMatch,
		ID:   MatchID(code, itemID),
		Fields: map[string]string{
			FieldHouseholdCode: code,
			FieldNameID:        itemID,
			"matchedAt":        FormatTime(matchedAt),
		},
	})
}

// DeleteMatch removes a match.
func (c *Client) DeleteMatch(ctx context.Context, code, itemID string) error {
	return c.store.Delete(ctx, KindMatch, MatchID(code, itemID))
}

// Matches returns the household's matches, oldest first.
func (c *Client) Matches(ctx context.Context, code string) ([]Match, error) {
	recs, err := c.store.Query(ctx, Query{
		Kind:    KindMatch,
		Where:   []Predicate{Eq(FieldHouseholdCode, code)},
		OrderBy: "matchedAt",
	})
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	out := make([]Match, 0, len(recs))
	for _, r := range recs {
		out = append(out, Match{ItemID: r.Fields[FieldNameID], MatchedAt: ParseTime(r.Fields["matchedAt"])})
	}
	return out, nil
}

// PutDismissal advertises that userID dismissed the match on itemID.
func (c *Client) PutDismissal(ctx context.Context, code, itemID, userID string, at time.Time) error {
	return c.store.Put(ctx, Record{
		Kind: KindDismissal,
		ID:   DismissalID(code, itemID, userID),
		Fields: map[string]string{
			FieldHouseholdCode: code,
			FieldNameID:        itemID,
			FieldUserID:        userID,
			"dismissedAt":      FormatTime(at),
		},
	})
}

// PartnerDismissals returns the item ids dismissed by members other than self.
func (c *Client) PartnerDismissals(ctx context.Context, code, self string) (map[string]bool, error) {
	recs, err := c.store.Query(ctx, Query{
		Kind:  KindDismissal,
		Where: []Predicate{Eq(FieldHouseholdCode, code), Ne(FieldUserID, self)},
	})
	if err != nil {
		return nil, fmt.Errorf("query partner dismissals: %w", err)
	}
	out := make(map[string]bool, len(recs))
	for _, r := range recs {
		out[r.Fields[FieldNameID]] = true
	}
	return out, nil
}
