package botline

import (
	"context"
	"time"
)

// OnDispatchFunc is called just before a hook is fed an update.
type OnDispatchFunc func(ctx context.Context, kind Kind, hook string)

// OnClaimedFunc is called after a hook claims an update.
type OnClaimedFunc func(ctx context.Context, kind Kind, hook string, duration time.Duration)

// OnFailureFunc is called after a hook's handler fails.
type OnFailureFunc func(ctx context.Context, kind Kind, hook string, err error, duration time.Duration)

// observers holds all configured observability callbacks.
type observers struct {
	onDispatch []OnDispatchFunc
	onClaimed  []OnClaimedFunc
	onFailure  []OnFailureFunc
}

// WithOnDispatch adds a callback fired before every hook attempt. Multiple
// callbacks are called in order.
//
// Example:
//
//	botline.WithOnDispatch(func(ctx context.Context, kind botline.Kind, hook string) {
//	    metrics.Incr("bot.dispatch", "kind:"+string(kind))
//	})
func WithOnDispatch(fn OnDispatchFunc) Option {
	return func(b *Bot) {
		b.obs.onDispatch = append(b.obs.onDispatch, fn)
	}
}

// WithOnClaimed adds a callback fired after a hook claims an update.
// Multiple callbacks are called in order.
//
// Example:
//
//	botline.WithOnClaimed(func(ctx context.Context, kind botline.Kind, hook string, d time.Duration) {
//	    metrics.Timing("bot.claimed", d, "hook:"+hook)
//	})
func WithOnClaimed(fn OnClaimedFunc) Option {
	return func(b *Bot) {
		b.obs.onClaimed = append(b.obs.onClaimed, fn)
	}
}

// WithOnFailure adds a callback fired after a hook's handler fails, before
// the error propagates out of Process. Multiple callbacks are called in
// order.
//
// Example:
//
//	botline.WithOnFailure(func(ctx context.Context, kind botline.Kind, hook string, err error, d time.Duration) {
//	    logger.Error("hook failed", "hook", hook, "error", err)
//	})
func WithOnFailure(fn OnFailureFunc) Option {
	return func(b *Bot) {
		b.obs.onFailure = append(b.obs.onFailure, fn)
	}
}

func (o *observers) dispatch(ctx context.Context, kind Kind, hook string) {
	for _, fn := range o.onDispatch {
		fn(ctx, kind, hook)
	}
}

func (o *observers) claimed(ctx context.Context, kind Kind, hook string, d time.Duration) {
	for _, fn := range o.onClaimed {
		fn(ctx, kind, hook, d)
	}
}

func (o *observers) failure(ctx context.Context, kind Kind, hook string, err error, d time.Duration) {
	for _, fn := range o.onFailure {
		fn(ctx, kind, hook, err, d)
	}
}
