package botline

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Result is one inline query result fragment, in the platform's JSON shape
// (type, title, input_message_content, ...). The dispatcher assigns the
// positional "id" field; handlers must leave it unset.
type Result map[string]any

// InlineOptions configure an inline hook.
type InlineOptions struct {
	// Cache is the cache duration in seconds the platform may reuse the
	// answer for.
	Cache int

	// Private marks results as personal to the querying sender, disabling
	// cross-user caching.
	Private bool

	// Paginate is the page size: how many results each answer carries.
	Paginate int

	// Timer is the refresh interval in seconds for timed inline results.
	Timer int
}

func (h *Hook) callInline(ctx context.Context, b *Bot, upd tgbotapi.Update) (Outcome, error) {
	if b.store == nil {
		return NotApplicable, ErrNoStore
	}

	query := upd.InlineQuery
	sender := query.From.ID

	// An empty offset marks a new query session: drop the stale cursor
	// left behind by whichever worker served the previous session.
	if query.Offset == "" {
		if err := b.store.Purge(ctx, sender); err != nil {
			return NotApplicable, fmt.Errorf("purge pagination state: %w", err)
		}
	}

	offset, err := b.store.Get(ctx, sender)
	if err != nil {
		return NotApplicable, fmt.Errorf("read pagination offset: %w", err)
	}

	// Advance the cursor before answering, so a rapid duplicate request
	// sees the new offset instead of the one this request started from.
	next := offset + h.params.Paginate
	if err := b.store.Update(ctx, sender, next); err != nil {
		return NotApplicable, fmt.Errorf("write pagination offset: %w", err)
	}

	results := make([]any, 0, h.params.Paginate)
	i := 0
	for r := range h.fn.(InlineFunc)(ctx, query) {
		if i >= next {
			break
		}
		// Nil results are dropped without consuming a position.
		if r == nil {
			continue
		}
		if i >= offset {
			r["id"] = strconv.Itoa(i)
			results = append(results, r)
		}
		i++
	}

	if _, err := b.api.Request(tgbotapi.InlineConfig{
		InlineQueryID: query.ID,
		Results:       results,
		CacheTime:     h.params.Cache,
		IsPersonal:    h.params.Private,
		NextOffset:    strconv.Itoa(next),
	}); err != nil {
		return NotApplicable, fmt.Errorf("answer inline query: %w", err)
	}
	return Claimed, nil
}
