package botline

import (
	"context"
	"fmt"
	"iter"
	"reflect"
	"regexp"
	"runtime"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Kind identifies the trigger a hook is bound to. The set is closed: dispatch
// goes through a table keyed by kind rather than open-ended dynamic dispatch.
type Kind string

const (
	KindBeforeProcessing  Kind = "before_processing"
	KindProcessor         Kind = "process_message"
	KindMessageEquals     Kind = "message_equals"
	KindMessageContains   Kind = "message_contains"
	KindMessageMatches    Kind = "message_matches"
	KindCommand           Kind = "command"
	KindCallback          Kind = "callback"
	KindInline            Kind = "inline"
	KindMessageEdited     Kind = "message_edited"
	KindChannelPost       Kind = "channel_post"
	KindChannelPostEdited Kind = "channel_post_edited"
	KindShipping          Kind = "shipping_query"
	KindPreCheckout       Kind = "pre_checkout_query"
	KindTimer             Kind = "timer"
	KindChatUnavailable   Kind = "chat_unavailable"
	KindMemoryPreparer    Kind = "prepare_memory"
)

// Outcome is the result of feeding an update to a hook.
type Outcome int

const (
	// NotApplicable means the hook did not handle the update; the chain
	// moves on to the next hook.
	NotApplicable Outcome = iota

	// Claimed means the handler ran and the chain stops.
	Claimed
)

func (o Outcome) String() string {
	if o == Claimed {
		return "claimed"
	}
	return "not applicable"
}

// Handler signatures, one per trigger kind.
type (
	// ProcessorFunc is a cross-cutting message processor. Returning true
	// claims the update and stops the chain.
	ProcessorFunc func(ctx context.Context, chat *Chat, msg *tgbotapi.Message) (bool, error)

	// MessageFunc handles a message-bearing update.
	MessageFunc func(ctx context.Context, chat *Chat, msg *tgbotapi.Message) error

	// CommandFunc handles a /command message. args holds the words after
	// the command token.
	CommandFunc func(ctx context.Context, chat *Chat, msg *tgbotapi.Message, args []string) error

	// MatchesFunc handles a regexp match. matches holds the captured
	// groups of one match.
	MatchesFunc func(ctx context.Context, chat *Chat, msg *tgbotapi.Message, matches []string) error

	// CallbackFunc handles a callback-button press. data is the payload
	// that was packed next to the callback token.
	CallbackFunc func(ctx context.Context, query *CallbackQuery, chat *Chat, msg *tgbotapi.Message, data string) error

	// InlineFunc produces the lazy result sequence for an inline query.
	// The sequence may be effectively unbounded; the dispatcher pulls only
	// the current page.
	InlineFunc func(ctx context.Context, query *tgbotapi.InlineQuery) iter.Seq[Result]

	// ShippingFunc handles a shipping query. Returning true claims it.
	ShippingFunc func(ctx context.Context, query *tgbotapi.ShippingQuery) (bool, error)

	// PreCheckoutFunc handles a pre-checkout query. Returning true claims it.
	PreCheckoutFunc func(ctx context.Context, query *tgbotapi.PreCheckoutQuery) (bool, error)

	// TimerFunc runs on a scheduling tick, with no update context.
	TimerFunc func(ctx context.Context) error

	// ChatUnavailableFunc runs when the platform reports a chat as gone.
	ChatUnavailableFunc func(ctx context.Context, chatID int64, reason string) error

	// MemoryFunc runs during worker warm-up with the per-process scratch
	// space.
	MemoryFunc func(memory map[string]any)
)

// params holds the kind-specific construction parameters of a hook. It is
// data-only so a Descriptor can carry it between processes.
type params struct {
	Name       string `json:"name,omitempty"`
	Help       string `json:"help,omitempty"`
	Hidden     bool   `json:"hidden,omitempty"`
	Order      int    `json:"order,omitempty"`
	String     string `json:"string,omitempty"`
	Pattern    string `json:"pattern,omitempty"`
	IgnoreCase bool   `json:"ignore_case,omitempty"`
	Multiple   bool   `json:"multiple,omitempty"`
	Cache      int    `json:"cache,omitempty"`
	Private    bool   `json:"private,omitempty"`
	Paginate   int    `json:"paginate,omitempty"`
	Timer      int    `json:"timer,omitempty"`
}

// Hook is one registered handler bound to a trigger kind and a matching rule.
// Hooks are immutable after construction; compiled state (patterns, tokens)
// is built once at registration time and reused for every update.
type Hook struct {
	kind      Kind
	name      string // qualified: "component::func" or bare for the root
	component *Component
	fn        any
	params    params

	cmd     *commandSpec   // kind == KindCommand
	literal string         // equals/contains, case-folded when IgnoreCase
	regex   *regexp.Regexp // kind == KindMessageMatches
	token   string         // kind == KindCallback
}

// Kind returns the hook's trigger kind.
func (h *Hook) Kind() Kind { return h.kind }

// Name returns the hook's qualified name.
func (h *Hook) Name() string { return h.name }

// Component returns the component the hook belongs to.
func (h *Hook) Component() *Component { return h.component }

func (h *Hook) String() string {
	return fmt.Sprintf("<%s %q>", h.kind, h.name)
}

// Descriptor is the data-only reference form of a Hook: enough to find an
// equivalent hook in another process that ran the same registration code,
// without transmitting the live handler.
type Descriptor struct {
	Kind      Kind   `json:"kind"`
	Name      string `json:"name"`
	Component string `json:"component"`
	Params    params `json:"params"`
}

// Descriptor returns the hook's data-only reference form.
func (h *Hook) Descriptor() Descriptor {
	return Descriptor{
		Kind:      h.kind,
		Name:      h.name,
		Component: h.component.name,
		Params:    h.params,
	}
}

func (d Descriptor) key() string {
	return string(d.Kind) + "/" + d.Name
}

// matchAndCall feeds the update to the hook: evaluates the hook's matching
// rule and, on a match, invokes the handler. The dispatch table is keyed by
// kind so each variant's matching logic stays independent.
func (h *Hook) matchAndCall(ctx context.Context, b *Bot, upd tgbotapi.Update) (Outcome, error) {
	call, ok := kindCalls[h.kind]
	if !ok {
		return NotApplicable, fmt.Errorf("hook %s: kind %q is not dispatchable", h.name, h.kind)
	}
	return call(h, ctx, b, upd)
}

var kindCalls = map[Kind]func(*Hook, context.Context, *Bot, tgbotapi.Update) (Outcome, error){
	KindBeforeProcessing:  (*Hook).callProcessor,
	KindProcessor:         (*Hook).callProcessor,
	KindMessageEquals:     (*Hook).callMessageEquals,
	KindMessageContains:   (*Hook).callMessageContains,
	KindMessageMatches:    (*Hook).callMessageMatches,
	KindCommand:           (*Hook).callCommand,
	KindCallback:          (*Hook).callCallback,
	KindInline:            (*Hook).callInline,
	KindMessageEdited:     (*Hook).callMessageEdited,
	KindChannelPost:       (*Hook).callChannelPost,
	KindChannelPostEdited: (*Hook).callChannelPostEdited,
	KindShipping:          (*Hook).callShipping,
	KindPreCheckout:       (*Hook).callPreCheckout,
}

func (h *Hook) callProcessor(ctx context.Context, b *Bot, upd tgbotapi.Update) (Outcome, error) {
	msg := upd.Message
	handled, err := h.fn.(ProcessorFunc)(ctx, newChat(b, msg.Chat), msg)
	if err != nil {
		return NotApplicable, err
	}
	if handled {
		return Claimed, nil
	}
	return NotApplicable, nil
}

func (h *Hook) callMessageEdited(ctx context.Context, b *Bot, upd tgbotapi.Update) (Outcome, error) {
	return h.callUnconditional(ctx, b, upd.EditedMessage)
}

func (h *Hook) callChannelPost(ctx context.Context, b *Bot, upd tgbotapi.Update) (Outcome, error) {
	return h.callUnconditional(ctx, b, upd.ChannelPost)
}

func (h *Hook) callChannelPostEdited(ctx context.Context, b *Bot, upd tgbotapi.Update) (Outcome, error) {
	return h.callUnconditional(ctx, b, upd.EditedChannelPost)
}

func (h *Hook) callUnconditional(ctx context.Context, b *Bot, msg *tgbotapi.Message) (Outcome, error) {
	if err := h.fn.(MessageFunc)(ctx, newChat(b, msg.Chat), msg); err != nil {
		return NotApplicable, err
	}
	return Claimed, nil
}

func (h *Hook) callShipping(ctx context.Context, b *Bot, upd tgbotapi.Update) (Outcome, error) {
	handled, err := h.fn.(ShippingFunc)(ctx, upd.ShippingQuery)
	if err != nil {
		return NotApplicable, err
	}
	if handled {
		return Claimed, nil
	}
	return NotApplicable, nil
}

func (h *Hook) callPreCheckout(ctx context.Context, b *Bot, upd tgbotapi.Update) (Outcome, error) {
	handled, err := h.fn.(PreCheckoutFunc)(ctx, upd.PreCheckoutQuery)
	if err != nil {
		return NotApplicable, err
	}
	if handled {
		return Claimed, nil
	}
	return NotApplicable, nil
}

// hookScopeKey marks the hook a context is scoped to, so outbound platform
// calls made during an invocation are attributed to it.
type hookScopeKey struct{}

// hookScope returns the qualified name of the hook ctx is scoped to, or "".
func hookScope(ctx context.Context) string {
	name, _ := ctx.Value(hookScopeKey{}).(string)
	return name
}

// scope opens the hook's execution scope. The returned release function must
// run on every exit path, normal or not.
func (h *Hook) scope(ctx context.Context, b *Bot) (context.Context, func()) {
	ctx = context.WithValue(ctx, hookScopeKey{}, h.name)
	return ctx, func() {
		b.log.DebugContext(ctx, "hook scope released", "hook", h.name)
	}
}

// funcName derives a short name for a handler function, the way decorator
// frameworks pick up the decorated function's name.
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	name := runtime.FuncForPC(v.Pointer()).Name()
	name = name[strings.LastIndexByte(name, '/')+1:]
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}
