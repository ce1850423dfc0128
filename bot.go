package botline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/botline/botline/pagination"
)

// Bot routes inbound updates to registered hooks.
//
// Usage:
//  1. Create a bot with New
//  2. Register hooks on the bot or on named Components
//  3. Feed updates to Process
//
// Registration freezes on the first Process call; the hook chains are
// read-only afterward and may be walked concurrently or duplicated per
// worker process without coordination. Only the pagination store is shared
// across workers.
type Bot struct {
	api      API
	username string
	about    string
	owner    string
	log      *slog.Logger
	store    pagination.Store
	obs      observers

	root       *Component
	components []*Component

	commands map[string]*Hook // user-registered, unique per name
	defaults map[string]*Hook // built-in help/start, overridable
	registry map[string]*Hook // kind/name -> hook, for Rebuild

	before       []*Hook
	processors   []*Hook
	matchers     []*Hook
	callbacks    []*Hook
	inlines      []*Hook
	edited       []*Hook
	posts        []*Hook
	postsEdited  []*Hook
	shipping     []*Hook
	preCheckout  []*Hook
	timers       []*Hook
	unavailable  []*Hook
	preparers    []*Hook
	messageChain []*Hook // before + processors + matchers, built at freeze

	// Matches any command directed at this bot; built once in New.
	commandsRe *regexp.Regexp

	frozen atomic.Bool
}

// Option configures a Bot.
type Option func(*Bot)

// WithAbout sets the descriptive text shown by /start and /help.
func WithAbout(about string) Option {
	return func(b *Bot) { b.about = about }
}

// WithOwner sets the contact shown in the /help footer.
func WithOwner(owner string) Option {
	return func(b *Bot) { b.owner = owner }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(b *Bot) { b.log = log }
}

// WithPaginationStore sets the cross-process store backing inline
// pagination. Inline dispatch fails with ErrNoStore without one.
func WithPaginationStore(store pagination.Store) Option {
	return func(b *Bot) { b.store = store }
}

// New creates a Bot speaking through api. username is the bot's own
// username, used to disambiguate commands mentioning a specific bot.
func New(api API, username string, opts ...Option) *Bot {
	b := &Bot{
		api:      api,
		username: username,
		log:      slog.Default(),
		commands: make(map[string]*Hook),
		defaults: make(map[string]*Hook),
		registry: make(map[string]*Hook),
		commandsRe: regexp.MustCompile(
			`^/([a-zA-Z0-9_]+)(@` + regexp.QuoteMeta(username) + `)?( .*)?$`),
	}
	b.root = &Component{bot: b}
	for _, opt := range opts {
		opt(b)
	}

	// The command router is itself a processor, registered first.
	if err := b.root.Processor(b.routeCommand); err != nil {
		panic("botline: register command router: " + err.Error())
	}
	b.registerDefaultCommands()

	return b
}

// Root returns the bot's unnamed root component.
func (b *Bot) Root() *Component { return b.root }

// Registration surface of the root component, mirrored on the bot.

func (b *Bot) BeforeProcessing(fn ProcessorFunc) error { return b.root.BeforeProcessing(fn) }
func (b *Bot) Processor(fn ProcessorFunc) error        { return b.root.Processor(fn) }
func (b *Bot) Command(name string, fn CommandFunc, opts ...CommandOption) error {
	return b.root.Command(name, fn, opts...)
}
func (b *Bot) MessageEquals(s string, fn MessageFunc, opts ...MatchOption) error {
	return b.root.MessageEquals(s, fn, opts...)
}
func (b *Bot) MessageContains(s string, fn MessageFunc, opts ...MatchOption) error {
	return b.root.MessageContains(s, fn, opts...)
}
func (b *Bot) MessageMatches(pattern string, fn MatchesFunc, opts ...MatchOption) error {
	return b.root.MessageMatches(pattern, fn, opts...)
}
func (b *Bot) Callback(name string, fn CallbackFunc) error { return b.root.Callback(name, fn) }
func (b *Bot) Inline(fn InlineFunc, opts InlineOptions) error {
	return b.root.Inline(fn, opts)
}
func (b *Bot) MessageEdited(fn MessageFunc) error          { return b.root.MessageEdited(fn) }
func (b *Bot) ChannelPost(fn MessageFunc) error            { return b.root.ChannelPost(fn) }
func (b *Bot) ChannelPostEdited(fn MessageFunc) error      { return b.root.ChannelPostEdited(fn) }
func (b *Bot) Shipping(fn ShippingFunc) error              { return b.root.Shipping(fn) }
func (b *Bot) PreCheckout(fn PreCheckoutFunc) error        { return b.root.PreCheckout(fn) }
func (b *Bot) Timer(fn TimerFunc) error                    { return b.root.Timer(fn) }
func (b *Bot) ChatUnavailable(fn ChatUnavailableFunc) error {
	return b.root.ChatUnavailable(fn)
}
func (b *Bot) PrepareMemory(fn MemoryFunc) error { return b.root.PrepareMemory(fn) }

// add registers a hook into its chain and the registry.
func (b *Bot) add(h *Hook) error {
	if b.frozen.Load() {
		panic("botline: registration after dispatch started")
	}

	switch h.kind {
	case KindBeforeProcessing:
		b.before = append(b.before, h)
	case KindProcessor:
		b.processors = append(b.processors, h)
	case KindMessageEquals, KindMessageContains, KindMessageMatches:
		b.matchers = append(b.matchers, h)
	case KindCallback:
		b.callbacks = append(b.callbacks, h)
	case KindInline:
		b.inlines = append(b.inlines, h)
	case KindMessageEdited:
		b.edited = append(b.edited, h)
	case KindChannelPost:
		b.posts = append(b.posts, h)
	case KindChannelPostEdited:
		b.postsEdited = append(b.postsEdited, h)
	case KindShipping:
		b.shipping = append(b.shipping, h)
	case KindPreCheckout:
		b.preCheckout = append(b.preCheckout, h)
	case KindTimer:
		b.timers = append(b.timers, h)
	case KindChatUnavailable:
		b.unavailable = append(b.unavailable, h)
	case KindMemoryPreparer:
		b.preparers = append(b.preparers, h)
	default:
		return fmt.Errorf("unknown hook kind %q", h.kind)
	}

	// Later registrations win for descriptor resolution.
	b.registry[h.Descriptor().key()] = h

	b.log.Debug("hook registered", "kind", string(h.kind), "hook", h.name)
	return nil
}

// addCommand enforces the one-hook-per-command-name invariant at
// registration time, not at dispatch time.
func (b *Bot) addCommand(h *Hook) error {
	if b.frozen.Load() {
		panic("botline: registration after dispatch started")
	}
	name := h.params.Name
	if _, taken := b.commands[name]; taken {
		return fmt.Errorf("%w: /%s", ErrCommandExists, name)
	}
	b.commands[name] = h
	b.registry[h.Descriptor().key()] = h

	b.log.Debug("command registered", "command", "/"+name, "hook", h.name)
	return nil
}

// Rebuild resolves a data-only descriptor against this process's registry,
// returning the equivalent live hook. It fails when no hook with the same
// kind and qualified name was registered here, or when the construction
// parameters differ.
func (b *Bot) Rebuild(d Descriptor) (*Hook, error) {
	h, ok := b.registry[d.key()]
	if !ok {
		return nil, fmt.Errorf("no %s hook named %q registered", d.Kind, d.Name)
	}
	if h.params != d.Params {
		return nil, fmt.Errorf("hook %q registered with different parameters", d.Name)
	}
	return h, nil
}

// freeze seals registration and assembles the message chain: before hooks,
// then processors (command router first), then text matchers, each group in
// registration order.
func (b *Bot) freeze() {
	if !b.frozen.CompareAndSwap(false, true) {
		return
	}
	chain := make([]*Hook, 0, len(b.before)+len(b.processors)+len(b.matchers))
	chain = append(chain, b.before...)
	chain = append(chain, b.processors...)
	chain = append(chain, b.matchers...)
	b.messageChain = chain
}

// commandHook resolves a command name, letting user registrations override
// the built-ins.
func (b *Bot) commandHook(name string) (*Hook, bool) {
	if h, ok := b.commands[name]; ok {
		return h, true
	}
	h, ok := b.defaults[name]
	return h, ok
}

// routeCommand is the built-in processor owning command dispatch precedence.
func (b *Bot) routeCommand(ctx context.Context, chat *Chat, msg *tgbotapi.Message) (bool, error) {
	if msg.Text == "" {
		return false, nil
	}
	text := normalizeCommandText(msg.Text)

	m := b.commandsRe.FindStringSubmatch(text)
	if m == nil {
		return false, nil
	}
	name := m[1]
	mentioned := m[2] != ""

	// The resolved hook runs through its own invocation: its compiled
	// matcher decides applicability and outbound calls are attributed to
	// it, not to the router.
	if h, ok := b.commandHook(name); ok {
		outcome, err := b.invoke(ctx, h, tgbotapi.Update{Message: msg})
		if err != nil {
			return false, err
		}
		return outcome == Claimed, nil
	}

	// In one-to-one chats, and whenever this bot was mentioned
	// explicitly, an unknown command deserves a notice. Group chatter is
	// left alone.
	if chat.IsPrivate() || mentioned {
		err := chat.Send(ctx, strings.Join([]string{
			fmt.Sprintf("Unknow command /%s.", name),
			"Use /help for a list of commands.",
		}, "\n"))
		if err != nil {
			return false, err
		}
	}
	return false, nil
}

const (
	startHelp = "Start using the bot.\nIt shows a greeting message."
	helpHelp  = "Show this help message\nYou can also use '/help <command>' to get help about a command."
)

func (b *Bot) registerDefaultCommands() {
	start, err := newCommandSpec("start")
	if err != nil {
		panic("botline: " + err.Error())
	}
	help, err := newCommandSpec("help")
	if err != nil {
		panic("botline: " + err.Error())
	}

	b.defaults["start"] = &Hook{
		kind: KindCommand, name: "start", component: b.root,
		fn: CommandFunc(b.startCommand), params: params{Name: "start", Help: startHelp}, cmd: start,
	}
	b.defaults["help"] = &Hook{
		kind: KindCommand, name: "help", component: b.root,
		fn: CommandFunc(b.helpCommand), params: params{Name: "help", Help: helpHelp}, cmd: help,
	}
}

func (b *Bot) startCommand(ctx context.Context, chat *Chat, msg *tgbotapi.Message, args []string) error {
	var lines []string
	if b.about != "" {
		lines = append(lines, b.about)
	}
	lines = append(lines, "Use /help to get a list of all the commands")
	return chat.Send(ctx, strings.Join(lines, "\n"))
}

func (b *Bot) helpCommand(ctx context.Context, chat *Chat, msg *tgbotapi.Message, args []string) error {
	var lines []string
	switch {
	case len(args) > 1:
		lines = []string{"Error: the /help command allows up to one argument."}
	case len(args) == 1:
		if h, ok := b.commandHook(args[0]); ok {
			lines = b.commandHelp(h)
		} else {
			lines = []string{
				fmt.Sprintf("Error: Unknow command: /%s", args[0]),
				"Use /help for a list of commands.",
			}
		}
	default:
		lines = b.genericHelp()
	}

	return chat.Send(ctx, strings.Join(lines, "\n"))
}

// genericHelp lists every visible command with the first line of its
// documentation, sorted by (order, name).
func (b *Bot) genericHelp() []string {
	var lines []string
	if b.about != "" {
		lines = append(lines, b.about, "")
	}

	if len(b.commands) > 0 {
		lines = append(lines, "Available commands:")

		hooks := make([]*Hook, 0, len(b.defaults)+len(b.commands))
		for name := range b.defaults {
			if _, overridden := b.commands[name]; overridden {
				continue
			}
			hooks = append(hooks, b.defaults[name])
		}
		for _, h := range b.commands {
			hooks = append(hooks, h)
		}
		sort.Slice(hooks, func(i, j int) bool {
			if hooks[i].params.Order != hooks[j].params.Order {
				return hooks[i].params.Order < hooks[j].params.Order
			}
			return hooks[i].params.Name < hooks[j].params.Name
		})

		for _, h := range hooks {
			if h.params.Hidden {
				continue
			}
			lines = append(lines, fmt.Sprintf("/%s - %s", h.params.Name, h.helpSummary()))
		}
		lines = append(lines, "Use /help <command> if you need help about a specific command.")
	} else {
		lines = append(lines, "No commands available.")
	}

	if b.owner != "" {
		lines = append(lines, " ",
			fmt.Sprintf("Please contact %s if you have problems with this bot.", b.owner))
	}
	return lines
}

func (b *Bot) commandHelp(h *Hook) []string {
	var lines []string
	if h.params.Help != "" {
		lines = append(lines, fmt.Sprintf("/%s - %s", h.params.Name, h.params.Help))
	} else {
		lines = append(lines, fmt.Sprintf("No help messages for the /%s command.", h.params.Name))
	}

	if b.owner != "" {
		lines = append(lines, " ",
			fmt.Sprintf("Please contact %s if you have problems with this bot", b.owner))
	}
	return lines
}
