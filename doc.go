// Package botline is the routing core of a Telegram bot framework: it takes
// already-typed updates from the transport and decides which registered
// handler runs and with what arguments, guaranteeing that at most one
// logical handler claims a given update.
//
// # Quick Start
//
// Create a bot, register hooks, feed it updates:
//
//	api, _ := tgbotapi.NewBotAPI(token)
//	bot := botline.New(api, api.Self.UserName,
//	    botline.WithAbout("An example bot"),
//	    botline.WithOwner("@maintainer"),
//	)
//
//	bot.Command("echo", func(ctx context.Context, chat *botline.Chat, msg *tgbotapi.Message, args []string) error {
//	    return chat.Send(ctx, strings.Join(args, " "))
//	}, botline.Help("Echo the arguments back"))
//
//	for upd := range api.GetUpdatesChan(tgbotapi.NewUpdate(0)) {
//	    _ = bot.Process(ctx, upd)
//	}
//
// # Design
//
// The package separates concerns into three layers:
//
//   - Hooks: one variant per trigger kind (processors, commands, text
//     matchers, callbacks, inline queries, lifecycle events), each owning
//     its matching rule and call contract
//   - Dispatcher: selects the chain for the update's kind and walks it in
//     registration order; the first Claimed outcome stops the walk
//   - Components: namespace groupings so plugin modules register hooks
//     without clashing
//
// Matching state (command patterns, text literals, regexps, callback
// tokens) is compiled once at registration time and reused for every
// update, never rebuilt per dispatch.
//
// # Commands
//
// Commands are matched against /name or /name@botname; a mention of a
// different bot makes the hook not applicable. Built-in /help and /start
// commands are provided and can be overridden by registering a command with
// the same name. Registering two commands with the same name fails with
// ErrCommandExists. Unknown commands get a notice in private chats or when
// the bot is mentioned explicitly; group chatter is ignored.
//
// # Callback buttons
//
// Callback hooks are addressed by a short token derived from the component
// and callback names, so wire payloads stay small and stable:
//
//	comp := bot.Component("polls")
//	comp.Callback("vote", handleVote)
//	data := comp.CallbackData("vote", "option-3") // goes into the button
//
// # Inline queries
//
// Inline handlers return a lazy result sequence; the dispatcher materializes
// one page per query and tracks the per-sender offset in a pagination.Store.
// The store is shared by every worker process through the pagination
// package's coordinator protocol; see that package for the wiring.
//
//	bot := botline.New(api, username,
//	    botline.WithPaginationStore(pagination.NewClient("unix", sockPath)),
//	)
//	bot.Inline(results, botline.InlineOptions{Paginate: 5, Cache: 300, Private: true})
//
// # Concurrency
//
// A Bot is configured once and frozen on the first Process call. After the
// freeze the chains are read-only: multiple worker processes each build
// their own Bot by running the same registration code and dispatch
// independently. Only the pagination store is shared. Within one process
// dispatch is strictly sequential.
//
// # Errors
//
// A hook that does not match is not an error; the chain just moves on.
// Handler failures propagate out of Process after the OnFailure callbacks
// fire; this layer never swallows them, restart policy belongs to the
// worker supervisor. Registration failures (duplicate command, invalid
// name, nil handler) are returned by the registration call itself.
package botline
