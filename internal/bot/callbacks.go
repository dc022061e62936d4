package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cmdNext    = "next"
	cmdUnmatch = "unmatch"

	actionLike         = "like"
	actionPass         = "pass"
	actionResetConfirm = "reset_confirm"
	actionNoop         = "noop"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	action, arg, ok := ParseCallbackData(cb.Data)
	if !ok {
		return
	}

	attrs := []any{"action", action, "item_id", arg, "chat_id", chatID}
	if cb.From != nil {
		attrs = append(attrs, "user_id", cb.From.ID, "username", cb.From.UserName)
	}
	b.log.Info("callback", attrs...)

	switch action {
	case actionLike:
		b.handleSwipe(ctx, chatID, arg, true)
	case actionPass:
		b.handleSwipe(ctx, chatID, arg, false)
	case cmdUnmatch:
		item := b.itemFor(arg)
		if !b.engine.RemoveMatch(ctx, arg) {
			b.reply(chatID, fmt.Sprintf("%s is not one of your matches.", item.Name))
			return
		}
		b.reply(chatID, fmt.Sprintf("Removed %s from your matches. It will not come back.", item.Name))
	case actionResetConfirm:
		b.engine.ResetAll(ctx)
		b.reply(chatID, "Everything was reset. Use /next to start swiping again.")
	case actionNoop:
	}
}

func (b *Bot) handleSwipe(ctx context.Context, chatID int64, itemID string, liked bool) {
	res, ok := b.engine.Swipe(ctx, itemID, liked)
	if !ok {
		b.reply(chatID, "That name is no longer in the catalog.")
		b.showCard(chatID)
		return
	}
	if res.AlreadyMatched {
		name := b.itemFor(itemID).Name
		b.reply(chatID, fmt.Sprintf("%s is already one of your matches. Use /unmatch %s to remove it.", name, name))
		b.showCard(chatID)
		return
	}
	if res.Match != nil {
		b.reply(chatID, FormatMatchAnnouncement(b.itemFor(res.Match.ItemID)))
		// Announced in place; the scheduler must not repeat it.
		b.engine.AcknowledgeCelebration(ctx, res.Match.ID)
	}
	b.showCard(chatID)
}

// showCard sends the name at the top of the queue with like/pass buttons.
func (b *Bot) showCard(chatID int64) {
	snap := b.engine.Snapshot()
	item, ok := snap.Top()
	if !ok {
		b.reply(chatID, "No more names match your filters. Use /filters to adjust them or /clearfilters to see everything.")
		return
	}
	msg := tgbotapi.NewMessage(chatID, FormatCard(item))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Pass", actionPass+":"+item.ID),
			tgbotapi.NewInlineKeyboardButtonData("Like", actionLike+":"+item.ID),
		),
	)
	b.send(msg)
}
