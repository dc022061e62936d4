package bot

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"namematch/internal/model"
)

// ParseCallbackData splits inline button data of the form action[:arg].
func ParseCallbackData(data string) (action, arg string, ok bool) {
	action, arg, _ = strings.Cut(data, ":")
	switch action {
	case actionLike, actionPass, cmdUnmatch:
		return action, arg, arg != ""
	case actionResetConfirm, actionNoop:
		return action, "", true
	default:
		return "", "", false
	}
}

// ResolveName finds the longest leading run of words in args that names a
// catalog item and returns the item with the remaining text.
func ResolveName(args string, find func(name string) (model.Item, bool)) (model.Item, string, bool) {
	fields := strings.Fields(args)
	for i := len(fields); i > 0; i-- {
		if it, ok := find(strings.Join(fields[:i], " ")); ok {
			return it, strings.Join(fields[i:], " "), true
		}
	}
	return model.Item{}, "", false
}

// ParseRating parses a 1-5 rating. "clear" returns nil.
func ParseRating(s string) (*int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "clear" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 5 {
		return nil, fmt.Errorf("rating must be a number from 1 to 5, or \"clear\"")
	}
	return &n, nil
}

// ParseGender accepts the catalog values plus boy/girl aliases.
func ParseGender(s string) (model.Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "boy", "m":
		return model.GenderMale, nil
	case "female", "girl", "f":
		return model.GenderFemale, nil
	case "neutral", "unisex", "n":
		return model.GenderNeutral, nil
	default:
		return "", fmt.Errorf("unknown gender %q, use: boy, girl, neutral", s)
	}
}

// ParsePopularity accepts one of the four popularity tiers.
func ParsePopularity(s string) (model.Popularity, error) {
	p := model.Popularity(strings.ToLower(strings.TrimSpace(s)))
	for _, tier := range model.AllPopularities {
		if p == tier {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown popularity %q, use: popular, common, uncommon, rare", s)
}

// ParseLetter accepts a single letter and returns it uppercased.
func ParseLetter(s string) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) != 1 {
		return "", fmt.Errorf("letter must be a single character")
	}
	return strings.ToUpper(s), nil
}

func normalizeTag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
