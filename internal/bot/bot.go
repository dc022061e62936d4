package bot

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"namematch/internal/catalog"
	"namematch/internal/config"
	"namematch/internal/engine"
	"namematch/internal/model"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram front end of the swipe engine.
type Bot struct {
	api     telegramAPI
	engine  *engine.Engine
	catalog *catalog.Index
	cfg     *config.Config
	log     *slog.Logger

	mu    sync.Mutex
	chats map[int64]bool
}

// New creates a Bot with the given Telegram token, engine, and config.
func New(token string, eng *engine.Engine, cat *catalog.Index, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:     api,
		engine:  eng,
		catalog: cat,
		cfg:     cfg,
		log:     log,
		chats:   map[int64]bool{},
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if cb := update.CallbackQuery; cb != nil {
		if cb.Message == nil || cb.From == nil || !b.cfg.IsUserAllowed(cb.From.ID) {
			return
		}
		b.remember(cb.Message.Chat.ID)
		b.handleCallback(ctx, cb)
		return
	}
	msg := update.Message
	if msg == nil || !msg.IsCommand() || msg.From == nil {
		return
	}
	if !b.cfg.IsUserAllowed(msg.From.ID) {
		b.reply(msg.Chat.ID, "Access denied.")
		return
	}
	b.remember(msg.Chat.ID)
	b.handleCommand(ctx, msg)
}

// AnnounceMatch tells every known chat about a new match. It reports
// whether at least one chat received the message.
func (b *Bot) AnnounceMatch(m model.Match) bool {
	text := FormatMatchAnnouncement(b.itemFor(m.ItemID))
	delivered := false
	for _, chatID := range b.knownChats() {
		if b.send(tgbotapi.NewMessage(chatID, text)) {
			delivered = true
		}
	}
	return delivered
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	b.send(msg)
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) send(c tgbotapi.Chattable) bool {
	if _, err := b.api.Send(c); err != nil {
		b.log.Error("send message", "error", err)
		return false
	}
	return true
}

func (b *Bot) remember(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.chats == nil {
		b.chats = map[int64]bool{}
	}
	b.chats[chatID] = true
}

// knownChats returns the private chats of allowed users plus every chat
// that talked to the bot since startup.
func (b *Bot) knownChats() []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := map[int64]bool{}
	for _, id := range b.cfg.AllowedUsers {
		set[id] = true
	}
	for id := range b.chats {
		set[id] = true
	}
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// itemFor resolves a catalog item, falling back to the bare id for names
// that are no longer in the catalog.
func (b *Bot) itemFor(itemID string) model.Item {
	if it, ok := b.catalog.ByID(itemID); ok {
		return it
	}
	return model.Item{ID: itemID, Name: itemID}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case cmdNext:
		b.showCard(chatID)
	case "undo":
		b.handleUndo(ctx, chatID)
	case "matches":
		b.handleMatches(chatID, args)
	case "rate":
		b.handleRate(ctx, chatID, args)
	case "note":
		b.handleNote(ctx, chatID, args)
	case cmdUnmatch:
		b.handleUnmatch(chatID, args)
	case "filters":
		b.handleFilters(chatID)
	case "gender", "popularity", "origin", "style", "letter":
		b.handleToggleFilter(ctx, chatID, cmd, args)
	case "clearfilters":
		b.handleClearFilters(ctx, chatID)
	case "stats":
		b.handleStats(chatID)
	case "household":
		b.handleHousehold(chatID)
	case "create":
		b.handleCreate(ctx, chatID)
	case "join":
		b.handleJoin(ctx, chatID, args)
	case "leave":
		b.handleLeave(ctx, chatID)
	case "sync":
		b.handleSync(ctx, chatID)
	case "reset":
		b.handleReset(chatID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
