package botline

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the slice of the Telegram client the routing core needs. It is
// satisfied by *tgbotapi.BotAPI; tests substitute a fake.
type API interface {
	// Send delivers a chattable that produces a message (text, photo, ...).
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)

	// Request delivers a chattable that produces no message
	// (callback answers, inline answers, ...).
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Chat wraps a platform chat with the bot's API handle so handlers can reply
// without holding a reference to the bot. The wrapper is the only side-effect
// sink handlers receive; it is built per invocation and not retained.
type Chat struct {
	*tgbotapi.Chat

	bot *Bot
}

func newChat(b *Bot, c *tgbotapi.Chat) *Chat {
	return &Chat{Chat: c, bot: b}
}

// Send sends a plain text message to this chat. The outbound call is
// attributed to the hook whose scope is active in ctx.
func (c *Chat) Send(ctx context.Context, text string) error {
	return c.send(ctx, text, "")
}

// SendHTML sends an HTML-formatted message to this chat.
func (c *Chat) SendHTML(ctx context.Context, text string) error {
	return c.send(ctx, text, tgbotapi.ModeHTML)
}

func (c *Chat) send(ctx context.Context, text, parseMode string) error {
	msg := tgbotapi.NewMessage(c.ID, text)
	msg.ParseMode = parseMode

	c.bot.log.DebugContext(ctx, "sending message",
		"chat_id", c.ID, "hook", hookScope(ctx))
	_, err := c.bot.api.Send(msg)
	return err
}

// CallbackQuery wraps a platform callback query and tracks whether it has
// been answered, so the dispatcher can issue the no-op acknowledgment that
// stops the client's loading indicator.
type CallbackQuery struct {
	*tgbotapi.CallbackQuery

	bot      *Bot
	answered bool
}

// IsInline reports whether the pressed button lives on an inline-origin
// message, one that is not addressable through a normal chat.
func (q *CallbackQuery) IsInline() bool {
	return q.InlineMessageID != "" && q.Message == nil
}

// Answer answers the callback query with an optional notification text.
func (q *CallbackQuery) Answer(ctx context.Context, text string, showAlert bool) error {
	q.answered = true
	q.bot.log.DebugContext(ctx, "answering callback query",
		"query_id", q.ID, "hook", hookScope(ctx))
	_, err := q.bot.api.Request(tgbotapi.CallbackConfig{
		CallbackQueryID: q.ID,
		Text:            text,
		ShowAlert:       showAlert,
	})
	return err
}

// ackIfNeeded sends a no-op answer unless the handler already answered.
func (q *CallbackQuery) ackIfNeeded(ctx context.Context) error {
	if q.answered {
		return nil
	}
	return q.Answer(ctx, "", false)
}
