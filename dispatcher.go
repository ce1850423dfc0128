package botline

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Process feeds one update through the hook chain for its kind, walking the
// chain in registration order until a hook claims it. Handler errors
// propagate to the caller after the scope is released and the OnFailure
// callbacks have fired; recovery belongs to the worker supervisor.
//
// Within one process updates are handled strictly sequentially: Process does
// not start goroutines and runs every hook to completion. Parallelism comes
// from running more worker processes, each with its own Bot built by the
// same registration code.
func (b *Bot) Process(ctx context.Context, upd tgbotapi.Update) error {
	b.freeze()

	switch {
	case upd.Message != nil:
		return b.walk(ctx, b.messageChain, upd)
	case upd.EditedMessage != nil:
		return b.walk(ctx, b.edited, upd)
	case upd.ChannelPost != nil:
		return b.walk(ctx, b.posts, upd)
	case upd.EditedChannelPost != nil:
		return b.walk(ctx, b.postsEdited, upd)
	case upd.CallbackQuery != nil:
		return b.dispatchCallback(ctx, upd)
	case upd.InlineQuery != nil:
		return b.walk(ctx, b.inlines, upd)
	case upd.ShippingQuery != nil:
		return b.walk(ctx, b.shipping, upd)
	case upd.PreCheckoutQuery != nil:
		return b.walk(ctx, b.preCheckout, upd)
	default:
		b.log.DebugContext(ctx, "update carries no routable payload",
			"update_id", upd.UpdateID)
		return nil
	}
}

func (b *Bot) walk(ctx context.Context, chain []*Hook, upd tgbotapi.Update) error {
	for _, h := range chain {
		b.log.DebugContext(ctx, "processing update",
			"update_id", upd.UpdateID, "hook", h.name)

		outcome, err := b.invoke(ctx, h, upd)
		if err != nil {
			return err
		}
		if outcome == Claimed {
			b.log.DebugContext(ctx, "update processed",
				"update_id", upd.UpdateID, "hook", h.name)
			return nil
		}
	}

	b.log.DebugContext(ctx, "no hook processed the update",
		"update_id", upd.UpdateID)
	return nil
}

// invoke runs one hook inside its execution scope. The scope is released on
// every exit path, including propagated failures.
func (b *Bot) invoke(ctx context.Context, h *Hook, upd tgbotapi.Update) (Outcome, error) {
	ctx, release := h.scope(ctx, b)
	defer release()

	b.obs.dispatch(ctx, h.kind, h.name)

	start := time.Now()
	outcome, err := h.matchAndCall(ctx, b, upd)
	if err != nil {
		b.obs.failure(ctx, h.kind, h.name, err, time.Since(start))
		return NotApplicable, err
	}
	if outcome == Claimed {
		b.obs.claimed(ctx, h.kind, h.name, time.Since(start))
	}
	return outcome, nil
}

// dispatchCallback routes a button press to the hook owning the embedded
// token. A token nobody owns is acknowledged with a user-visible notice
// instead of an error: the button may belong to a retired deployment.
func (b *Bot) dispatchCallback(ctx context.Context, upd tgbotapi.Update) error {
	if err := b.walkClaimed(ctx, b.callbacks, upd); err == nil || err != errUnclaimed {
		return err
	}

	q := &CallbackQuery{CallbackQuery: upd.CallbackQuery, bot: b}
	b.log.DebugContext(ctx, "no hook owns the callback token",
		"update_id", upd.UpdateID)
	return q.Answer(ctx, "This button is not available anymore.", false)
}

// errUnclaimed is internal to callback dispatch: it marks a fully walked
// chain with no claim, which walk itself treats as a normal outcome.
var errUnclaimed = &unclaimedError{}

type unclaimedError struct{}

func (*unclaimedError) Error() string { return "no hook claimed the update" }

func (b *Bot) walkClaimed(ctx context.Context, chain []*Hook, upd tgbotapi.Update) error {
	for _, h := range chain {
		outcome, err := b.invoke(ctx, h, upd)
		if err != nil {
			return err
		}
		if outcome == Claimed {
			return nil
		}
	}
	return errUnclaimed
}

// callScoped runs fn inside the hook's execution scope, releasing it on
// every exit path.
func (b *Bot) callScoped(ctx context.Context, h *Hook, fn func(context.Context) error) error {
	ctx, release := h.scope(ctx, b)
	defer release()
	return fn(ctx)
}

// Tick invokes every timer hook once. Scheduling the ticks belongs to the
// worker runtime; this layer only runs the chain. The first error stops the
// run and propagates.
func (b *Bot) Tick(ctx context.Context) error {
	b.freeze()
	for _, h := range b.timers {
		err := b.callScoped(ctx, h, func(ctx context.Context) error {
			return h.fn.(TimerFunc)(ctx)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// NotifyChatUnavailable invokes every chat-unavailable hook with the chat id
// and the platform's reason. Called out-of-band, not through Process.
func (b *Bot) NotifyChatUnavailable(ctx context.Context, chatID int64, reason string) error {
	b.freeze()
	for _, h := range b.unavailable {
		err := b.callScoped(ctx, h, func(ctx context.Context) error {
			return h.fn.(ChatUnavailableFunc)(ctx, chatID, reason)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// PrepareMemories runs every memory preparer against the per-process scratch
// space during worker warm-up.
func (b *Bot) PrepareMemories(memory map[string]any) {
	b.freeze()
	for _, h := range b.preparers {
		h.fn.(MemoryFunc)(memory)
	}
}
