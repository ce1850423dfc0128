package botline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Component is a namespace grouping of hooks, e.g. one plugin module. Every
// component exposes the same registration surface as the bot itself; hooks
// registered through a named component get names qualified with its prefix.
// The unnamed root component contributes no prefix.
type Component struct {
	name string
	id   string
	bot  *Bot
}

// Component returns a new named component attached to the bot. Components
// with the same name get distinct identifiers.
func (b *Bot) Component(name string) *Component {
	c := &Component{name: name, id: uuid.NewString(), bot: b}
	b.components = append(b.components, c)
	return c
}

// Name returns the component's name; empty for the root component.
func (c *Component) Name() string { return c.name }

// ID returns the component's opaque identifier.
func (c *Component) ID() string { return c.id }

// qualify builds the hook name from the component prefix and the handler's
// function name.
func (c *Component) qualify(fn any) string {
	base := funcName(fn)
	if c.name == "" {
		return base
	}
	return c.name + "::" + base
}

// CommandOption adjusts a command registration.
type CommandOption func(*params)

// Help attaches documentation to a command. The first line shows up in the
// /help listing, the full text in "/help <command>".
func Help(doc string) CommandOption {
	return func(p *params) { p.Help = doc }
}

// Hidden keeps a command out of the /help listing.
func Hidden() CommandOption {
	return func(p *params) { p.Hidden = true }
}

// Order sets the command's position in the /help listing; commands with the
// same order sort alphabetically.
func Order(n int) CommandOption {
	return func(p *params) { p.Order = n }
}

// MatchOption adjusts a text matcher registration.
type MatchOption func(*params)

// IgnoreCase makes the comparison case-insensitive.
func IgnoreCase() MatchOption {
	return func(p *params) { p.IgnoreCase = true }
}

// Multiple invokes the handler once per occurrence instead of once per
// message.
func Multiple() MatchOption {
	return func(p *params) { p.Multiple = true }
}

// BeforeProcessing registers a hook that runs before every message
// processor.
func (c *Component) BeforeProcessing(fn ProcessorFunc) error {
	if fn == nil {
		return ErrNilHandler
	}
	return c.bot.add(&Hook{kind: KindBeforeProcessing, name: c.qualify(fn), component: c, fn: fn})
}

// Processor registers a cross-cutting message processor.
func (c *Component) Processor(fn ProcessorFunc) error {
	if fn == nil {
		return ErrNilHandler
	}
	return c.bot.add(&Hook{kind: KindProcessor, name: c.qualify(fn), component: c, fn: fn})
}

// Command registers a handler for /name. The name must match [a-zA-Z0-9_]+
// and be unique per bot; a duplicate fails with ErrCommandExists and leaves
// the earlier registration intact.
func (c *Component) Command(name string, fn CommandFunc, opts ...CommandOption) error {
	if fn == nil {
		return ErrNilHandler
	}
	spec, err := newCommandSpec(name)
	if err != nil {
		return err
	}

	p := params{Name: name}
	for _, opt := range opts {
		opt(&p)
	}

	h := &Hook{kind: KindCommand, name: c.qualify(fn), component: c, fn: fn, params: p, cmd: spec}
	return c.bot.addCommand(h)
}

// MessageEquals registers a handler invoked when a message's full text
// equals s.
func (c *Component) MessageEquals(s string, fn MessageFunc, opts ...MatchOption) error {
	return c.addMatcher(KindMessageEquals, s, fn, opts)
}

// MessageContains registers a handler invoked when a whitespace-separated
// token of the message equals s.
func (c *Component) MessageContains(s string, fn MessageFunc, opts ...MatchOption) error {
	return c.addMatcher(KindMessageContains, s, fn, opts)
}

func (c *Component) addMatcher(kind Kind, s string, fn MessageFunc, opts []MatchOption) error {
	if fn == nil {
		return ErrNilHandler
	}
	p := params{String: s}
	for _, opt := range opts {
		opt(&p)
	}

	h := &Hook{kind: kind, name: c.qualify(fn), component: c, fn: fn, params: p, literal: s}
	if p.IgnoreCase {
		h.literal = strings.ToLower(s)
	}
	return c.bot.add(h)
}

// MessageMatches registers a handler invoked for messages matching pattern.
// The pattern is compiled once, here; an invalid pattern fails registration.
func (c *Component) MessageMatches(pattern string, fn MatchesFunc, opts ...MatchOption) error {
	if fn == nil {
		return ErrNilHandler
	}
	p := params{Pattern: pattern}
	for _, opt := range opts {
		opt(&p)
	}

	compiled := pattern
	if p.IgnoreCase {
		compiled = "(?i)" + compiled
	}
	re, err := regexp.Compile(compiled)
	if err != nil {
		return fmt.Errorf("compile message pattern: %w", err)
	}

	return c.bot.add(&Hook{kind: KindMessageMatches, name: c.qualify(fn), component: c, fn: fn, params: p, regex: re})
}

// Callback registers a handler for button presses carrying this component's
// token for name.
func (c *Component) Callback(name string, fn CallbackFunc) error {
	if fn == nil {
		return ErrNilHandler
	}
	return c.bot.add(&Hook{
		kind:      KindCallback,
		name:      c.qualify(fn),
		component: c,
		fn:        fn,
		params:    params{Name: name},
		token:     callbackToken(c.name, name),
	})
}

// CallbackData builds the wire payload for a button bound to the callback
// registered under name, carrying data back to its handler.
func (c *Component) CallbackData(name, data string) string {
	return packCallbackData(callbackToken(c.name, name), data)
}

// Inline registers a handler producing paginated inline query results.
func (c *Component) Inline(fn InlineFunc, opts InlineOptions) error {
	if fn == nil {
		return ErrNilHandler
	}
	return c.bot.add(&Hook{
		kind:      KindInline,
		name:      c.qualify(fn),
		component: c,
		fn:        fn,
		params: params{
			Cache:    opts.Cache,
			Private:  opts.Private,
			Paginate: opts.Paginate,
			Timer:    opts.Timer,
		},
	})
}

// MessageEdited registers a handler for edited messages.
func (c *Component) MessageEdited(fn MessageFunc) error {
	return c.addLifecycle(KindMessageEdited, fn)
}

// ChannelPost registers a handler for channel posts.
func (c *Component) ChannelPost(fn MessageFunc) error {
	return c.addLifecycle(KindChannelPost, fn)
}

// ChannelPostEdited registers a handler for edited channel posts.
func (c *Component) ChannelPostEdited(fn MessageFunc) error {
	return c.addLifecycle(KindChannelPostEdited, fn)
}

func (c *Component) addLifecycle(kind Kind, fn MessageFunc) error {
	if fn == nil {
		return ErrNilHandler
	}
	return c.bot.add(&Hook{kind: kind, name: c.qualify(fn), component: c, fn: fn})
}

// Shipping registers a handler for shipping queries.
func (c *Component) Shipping(fn ShippingFunc) error {
	if fn == nil {
		return ErrNilHandler
	}
	return c.bot.add(&Hook{kind: KindShipping, name: c.qualify(fn), component: c, fn: fn})
}

// PreCheckout registers a handler for pre-checkout queries.
func (c *Component) PreCheckout(fn PreCheckoutFunc) error {
	if fn == nil {
		return ErrNilHandler
	}
	return c.bot.add(&Hook{kind: KindPreCheckout, name: c.qualify(fn), component: c, fn: fn})
}

// Timer registers a handler invoked on every scheduling tick.
func (c *Component) Timer(fn TimerFunc) error {
	if fn == nil {
		return ErrNilHandler
	}
	return c.bot.add(&Hook{kind: KindTimer, name: c.qualify(fn), component: c, fn: fn})
}

// ChatUnavailable registers a handler invoked when the platform reports a
// chat as unreachable.
func (c *Component) ChatUnavailable(fn ChatUnavailableFunc) error {
	if fn == nil {
		return ErrNilHandler
	}
	return c.bot.add(&Hook{kind: KindChatUnavailable, name: c.qualify(fn), component: c, fn: fn})
}

// PrepareMemory registers a handler invoked during worker warm-up with the
// per-process scratch space.
func (c *Component) PrepareMemory(fn MemoryFunc) error {
	if fn == nil {
		return ErrNilHandler
	}
	return c.bot.add(&Hook{kind: KindMemoryPreparer, name: c.qualify(fn), component: c, fn: fn})
}
