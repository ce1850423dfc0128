package botline

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// The text matcher hooks only apply to messages that carry text. Claiming is
// decided by the matching rule; the handler itself returns no claim signal.

func (h *Hook) callMessageEquals(ctx context.Context, b *Bot, upd tgbotapi.Update) (Outcome, error) {
	msg, text, ok := h.matcherText(upd)
	if !ok {
		return NotApplicable, nil
	}

	if text != h.literal {
		return NotApplicable, nil
	}
	if err := h.fn.(MessageFunc)(ctx, newChat(b, msg.Chat), msg); err != nil {
		return NotApplicable, err
	}
	return Claimed, nil
}

func (h *Hook) callMessageContains(ctx context.Context, b *Bot, upd tgbotapi.Update) (Outcome, error) {
	msg, text, ok := h.matcherText(upd)
	if !ok {
		return NotApplicable, nil
	}

	chat := newChat(b, msg.Chat)
	found := false
	for _, token := range strings.Fields(text) {
		if token != h.literal {
			continue
		}
		found = true
		if err := h.fn.(MessageFunc)(ctx, chat, msg); err != nil {
			return NotApplicable, err
		}
		if !h.params.Multiple {
			break
		}
	}

	if !found {
		return NotApplicable, nil
	}
	return Claimed, nil
}

func (h *Hook) callMessageMatches(ctx context.Context, b *Bot, upd tgbotapi.Update) (Outcome, error) {
	msg, _, ok := h.matcherText(upd)
	if !ok {
		return NotApplicable, nil
	}

	// Non-overlapping matches, in order; first only unless Multiple.
	limit := 1
	if h.params.Multiple {
		limit = -1
	}
	matches := h.regex.FindAllStringSubmatch(msg.Text, limit)
	if matches == nil {
		return NotApplicable, nil
	}

	chat := newChat(b, msg.Chat)
	for _, m := range matches {
		if err := h.fn.(MatchesFunc)(ctx, chat, msg, m[1:]); err != nil {
			return NotApplicable, err
		}
	}
	return Claimed, nil
}

// matcherText extracts the message and the comparison text, applying the
// hook's case folding. ok is false when the message carries no text.
func (h *Hook) matcherText(upd tgbotapi.Update) (msg *tgbotapi.Message, text string, ok bool) {
	msg = upd.Message
	if msg.Text == "" {
		return nil, "", false
	}
	text = msg.Text
	if h.params.IgnoreCase {
		text = strings.ToLower(text)
	}
	return msg, text, true
}
