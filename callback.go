package botline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// callbackTokenLen is the number of hex characters kept from the hash.
// Callback payloads are limited to 64 bytes on the wire, so the token must
// stay short while remaining collision-resistant across components.
const callbackTokenLen = 16

// callbackToken derives the wire-level identifier for a callback hook from
// its component name and declared callback name. The token is deterministic,
// so it stays stable across processes and deployments.
func callbackToken(component, name string) string {
	sum := sha256.Sum256([]byte(component + ":" + name))
	return hex.EncodeToString(sum[:])[:callbackTokenLen]
}

// packCallbackData joins a token and a payload into button callback data.
func packCallbackData(token, payload string) string {
	if payload == "" {
		return token
	}
	return token + ":" + payload
}

// splitCallbackData is the inverse of packCallbackData.
func splitCallbackData(data string) (token, payload string) {
	token, payload, _ = strings.Cut(data, ":")
	return token, payload
}

func (h *Hook) callCallback(ctx context.Context, b *Bot, upd tgbotapi.Update) (Outcome, error) {
	token, payload := splitCallbackData(upd.CallbackQuery.Data)
	if token != h.token {
		return NotApplicable, nil
	}

	q := &CallbackQuery{CallbackQuery: upd.CallbackQuery, bot: b}
	chat, msg := q.origin(b)

	if err := h.fn.(CallbackFunc)(ctx, q, chat, msg, payload); err != nil {
		return NotApplicable, err
	}
	if err := q.ackIfNeeded(ctx); err != nil {
		return NotApplicable, err
	}
	return Claimed, nil
}

// origin resolves the (chat, message) pair the handler receives. Buttons on
// inline-origin messages have no addressable chat, so a synthetic pair is
// built from the inline identifiers: a placeholder message id and date, and
// the shared inline-chat marker.
func (q *CallbackQuery) origin(b *Bot) (*Chat, *tgbotapi.Message) {
	if q.IsInline() {
		msg := &tgbotapi.Message{
			MessageID: 100,
			Date:      100,
			Chat:      &tgbotapi.Chat{ID: 0, Type: "inline"},
		}
		return newChat(b, msg.Chat), msg
	}
	return newChat(b, q.Message.Chat), q.Message
}
