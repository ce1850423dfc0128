package botline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var commandNameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// commandSpec is the compiled matcher for one command. The pattern is built
// once at registration and reused for every update.
type commandSpec struct {
	name string
	re   *regexp.Regexp
}

func newCommandSpec(name string) (*commandSpec, error) {
	if !commandNameRe.MatchString(name) {
		return nil, fmt.Errorf("%w: /%s", ErrInvalidCommandName, name)
	}
	return &commandSpec{
		name: name,
		re:   regexp.MustCompile(`^/` + name + `(@[a-zA-Z0-9_]+)?( .*)?$`),
	}, nil
}

// match evaluates the command against a message text. It reports the
// arguments and whether the command applies. A text carrying an explicit
// @mention of a different bot never applies.
func (s *commandSpec) match(text, selfUsername string) (args []string, ok bool) {
	text = normalizeCommandText(text)

	m := s.re.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	if m[1] != "" && m[1] != "@"+selfUsername {
		return nil, false
	}
	return splitCommandArgs(text), true
}

// normalizeCommandText folds tabs and newlines into spaces so multi-line
// messages still parse as one command line.
func normalizeCommandText(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.ReplaceAll(text, "\t", " ")
}

var commandArgsSplitRe = regexp.MustCompile(` +`)

// splitCommandArgs splits a normalized command line on runs of spaces and
// drops the leading /command token.
func splitCommandArgs(text string) []string {
	return commandArgsSplitRe.Split(text, -1)[1:]
}

func (h *Hook) callCommand(ctx context.Context, b *Bot, upd tgbotapi.Update) (Outcome, error) {
	msg := upd.Message
	if msg.Text == "" {
		return NotApplicable, nil
	}

	args, ok := h.cmd.match(msg.Text, b.username)
	if !ok {
		return NotApplicable, nil
	}

	if err := h.fn.(CommandFunc)(ctx, newChat(b, msg.Chat), msg, args); err != nil {
		return NotApplicable, err
	}
	return Claimed, nil
}

// helpSummary returns the first line of the command's documentation, for the
// /help listing.
func (h *Hook) helpSummary() string {
	if h.params.Help == "" {
		return "No description available."
	}
	line, _, _ := strings.Cut(h.params.Help, "\n")
	return strings.TrimSpace(line)
}
