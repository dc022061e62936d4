package bot

import (
	"context"
	"errors"
	"fmt"
	"slices"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"namematch/internal/engine"
	"namematch/internal/filter"
	"namematch/internal/household"
	"namematch/internal/matches"
	"namematch/internal/model"
	"namematch/internal/remote"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to NameMatch!

Swipe through baby names with your partner. Names you both like become matches.

Quick start:
1. /next — show the next name
2. /create — start a household and share the code
3. /join <code> — join your partner's household

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Swiping:
/next — show the next name
/undo — undo the last swipe (up to 5)

Matches:
/matches [recent|rating|name] — list matches
/rate <name> <1-5|clear> — rate a match
/note <name> [text] — set or clear a note
/unmatch <name> — remove a match for good

Filters:
/filters — show the current filters
/gender <boy|girl|neutral> — toggle a gender
/popularity <popular|common|uncommon|rare> — toggle a tier
/origin <origin> — toggle an origin
/style <style> — toggle a style
/letter <letter> — toggle a first letter
/clearfilters — show every name again

Household:
/household — household and sync status
/create — create a household
/join <code> — join a household
/leave — leave the household
/sync — sync with your partner now

/stats — swipe counters
/reset — erase all local data`)
}

func (b *Bot) handleUndo(ctx context.Context, chatID int64) {
	entry, ok := b.engine.Undo(ctx)
	if !ok {
		b.reply(chatID, "Nothing to undo.")
		return
	}
	verb := "pass"
	if entry.Swipe.Liked {
		verb = "like"
	}
	text := fmt.Sprintf("Undid your %s on %s.", verb, entry.Item.Name)
	if prev := entry.Replaced; prev != nil {
		earlier := "pass"
		if prev.Liked {
			earlier = "like"
		}
		text += fmt.Sprintf(" Your earlier %s is back.", earlier)
	}
	b.reply(chatID, text)
	b.showCard(chatID)
}

func (b *Bot) handleMatches(chatID int64, args string) {
	list := b.engine.Matches(matches.ParseOrder(args))
	b.reply(chatID, FormatMatchList(list, func(id string) string { return b.itemFor(id).Name }))
}

func (b *Bot) handleRate(ctx context.Context, chatID int64, args string) {
	item, rest, ok := ResolveName(args, b.catalog.FindByName)
	if !ok || rest == "" {
		b.reply(chatID, "Usage: /rate <name> <1-5|clear>")
		return
	}
	rating, err := ParseRating(rest)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	if !b.engine.SetRating(ctx, item.ID, rating) {
		b.reply(chatID, fmt.Sprintf("%s is not one of your matches.", item.Name))
		return
	}
	if rating == nil {
		b.reply(chatID, fmt.Sprintf("Rating cleared for %s.", item.Name))
		return
	}
	b.reply(chatID, fmt.Sprintf("Rated %s %s.", item.Name, stars(*rating)))
}

func (b *Bot) handleNote(ctx context.Context, chatID int64, args string) {
	item, rest, ok := ResolveName(args, b.catalog.FindByName)
	if !ok {
		b.reply(chatID, "Usage: /note <name> [text]")
		return
	}
	var notes *string
	if rest != "" {
		notes = &rest
	}
	if !b.engine.SetNotes(ctx, item.ID, notes) {
		b.reply(chatID, fmt.Sprintf("%s is not one of your matches.", item.Name))
		return
	}
	if notes == nil {
		b.reply(chatID, fmt.Sprintf("Note cleared for %s.", item.Name))
		return
	}
	b.reply(chatID, fmt.Sprintf("Note saved for %s.", item.Name))
}

func (b *Bot) handleUnmatch(chatID int64, args string) {
	item, _, ok := ResolveName(args, b.catalog.FindByName)
	if !ok {
		b.reply(chatID, "Usage: /unmatch <name>")
		return
	}
	found := slices.ContainsFunc(b.engine.Snapshot().Matches, func(m model.Match) bool {
		return m.ItemID == item.ID
	})
	if !found {
		b.reply(chatID, fmt.Sprintf("%s is not one of your matches.", item.Name))
		return
	}
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Remove %s from your matches? It will not be matched again.", item.Name))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes, remove", cmdUnmatch+":"+item.ID),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", actionNoop),
		),
	)
	b.send(msg)
}

func (b *Bot) handleFilters(chatID int64) {
	snap := b.engine.Snapshot()
	b.reply(chatID, FormatFilters(snap.Filter, b.catalog.Counts(), len(snap.Queue)))
}

func (b *Bot) handleToggleFilter(ctx context.Context, chatID int64, dimension, args string) {
	if args == "" {
		b.reply(chatID, fmt.Sprintf("Usage: /%s <value>. See /filters for the available values.", dimension))
		return
	}

	p := b.engine.Filter()
	switch dimension {
	case "gender":
		g, err := ParseGender(args)
		if err != nil {
			b.reply(chatID, err.Error())
			return
		}
		if !p.ToggleGender(g) {
			b.reply(chatID, "At least one gender must stay selected.")
			return
		}
	case "popularity":
		tier, err := ParsePopularity(args)
		if err != nil {
			b.reply(chatID, err.Error())
			return
		}
		if !p.TogglePopularity(tier) {
			b.reply(chatID, "At least one popularity tier must stay selected.")
			return
		}
	case "origin":
		if !b.knownTag(args, p.Origins, b.catalog.Origins()) {
			b.reply(chatID, fmt.Sprintf("Unknown origin %q. See /filters for the available values.", args))
			return
		}
		p.ToggleOrigin(args)
	case "style":
		if !b.knownTag(args, p.Styles, b.catalog.Styles()) {
			b.reply(chatID, fmt.Sprintf("Unknown style %q. See /filters for the available values.", args))
			return
		}
		p.ToggleStyle(args)
	case "letter":
		l, err := ParseLetter(args)
		if err != nil {
			b.reply(chatID, err.Error())
			return
		}
		p.ToggleLetter(l)
	}

	b.applyFilter(ctx, chatID, p)
}

// knownTag accepts tags present in the catalog or currently selected.
func (b *Bot) knownTag(tag string, selected, available []string) bool {
	tag = normalizeTag(tag)
	return slices.Contains(selected, tag) || slices.Contains(available, tag)
}

func (b *Bot) handleClearFilters(ctx context.Context, chatID int64) {
	b.applyFilter(ctx, chatID, filter.Default())
}

func (b *Bot) applyFilter(ctx context.Context, chatID int64, p filter.Predicate) {
	b.engine.ApplyFilter(ctx, p)
	snap := b.engine.Snapshot()
	b.reply(chatID, FormatFilters(snap.Filter, b.catalog.Counts(), len(snap.Queue)))
}

func (b *Bot) handleStats(chatID int64) {
	b.reply(chatID, FormatStats(b.engine.Snapshot()))
}

func (b *Bot) handleHousehold(chatID int64) {
	b.reply(chatID, FormatHousehold(b.engine.Snapshot()))
}

func (b *Bot) handleCreate(ctx context.Context, chatID int64) {
	h, err := b.engine.CreateHousehold(ctx)
	if errors.Is(err, engine.ErrInHousehold) {
		b.reply(chatID, "You are already in a household. Use /leave first.")
		return
	}
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to create household: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Household created!\nShare this code with your partner: %s\nThey can join with /join %s", h.Code, h.Code))
}

func (b *Bot) handleJoin(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /join <code>")
		return
	}
	err := b.engine.Join(ctx, args)
	switch {
	case err == nil:
		code := b.engine.Snapshot().Household.Code
		b.reply(chatID, fmt.Sprintf("Joined household %s. Matches will appear as you both swipe.", code))
	case errors.Is(err, engine.ErrInHousehold):
		b.reply(chatID, "You are already in a household. Use /leave first.")
	case errors.Is(err, household.ErrInvalidCode):
		b.reply(chatID, fmt.Sprintf("%q is not a valid household code.", args))
	case errors.Is(err, remote.ErrNotFound):
		b.reply(chatID, "No household uses that code.")
	case errors.Is(err, household.ErrHouseholdFull):
		b.reply(chatID, "That household already has two members.")
	case errors.Is(err, remote.ErrUnavailable):
		b.reply(chatID, "The server cannot be reached right now. Try again later.")
	default:
		b.reply(chatID, fmt.Sprintf("Failed to join: %v", err))
	}
}

func (b *Bot) handleLeave(ctx context.Context, chatID int64) {
	if !b.engine.LeaveHousehold(ctx) {
		b.reply(chatID, "You are not in a household.")
		return
	}
	b.reply(chatID, "You left the household. Your own swipes are kept; matches were cleared.")
}

func (b *Bot) handleSync(ctx context.Context, chatID int64) {
	if b.engine.Snapshot().Household == nil {
		b.reply(chatID, "Create or join a household first.")
		return
	}
	res := b.engine.Sync(ctx)
	switch {
	case res.Skipped:
		b.reply(chatID, "A sync is already running.")
	case res.Err != nil:
		b.reply(chatID, fmt.Sprintf("Sync finished with errors: %v", res.Err))
	default:
		b.reply(chatID, fmt.Sprintf("Synced. %d new match(es).", len(res.NewMatches)))
	}
}

func (b *Bot) handleReset(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Erase all swipes, matches, filters and household membership on this device? This cannot be undone.")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes, reset", actionResetConfirm),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", actionNoop),
		),
	)
	b.send(msg)
}
