package botline

import (
	"context"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/suite"
)

type HelpSurfaceSuite struct {
	suite.Suite

	api *fakeAPI
	bot *Bot
}

func TestHelpSurfaceSuite(t *testing.T) {
	suite.Run(t, new(HelpSurfaceSuite))
}

func (s *HelpSurfaceSuite) SetupTest() {
	s.api = &fakeAPI{}
	s.bot = newTestBot(s.api,
		WithAbout("A bot that does things."),
		WithOwner("@owner"),
	)

	noop := func(ctx context.Context, chat *Chat, msg *tgbotapi.Message, args []string) error {
		return nil
	}
	s.Require().NoError(s.bot.Command("zeta", noop, Help("Do the zeta thing\nLong form zeta documentation.")))
	s.Require().NoError(s.bot.Command("alpha", noop, Help("Do the alpha thing")))
	s.Require().NoError(s.bot.Command("secret", noop, Hidden()))
	s.Require().NoError(s.bot.Command("bare", noop))
}

// reply runs one private-chat message through the bot and returns the lines
// of the single reply.
func (s *HelpSurfaceSuite) reply(text string) []string {
	s.Require().NoError(s.bot.Process(context.Background(), messageUpdate("private", text)))

	texts := s.api.sentTexts()
	s.Require().Len(texts, 1)
	s.api.sent = nil
	return strings.Split(texts[0], "\n")
}

func (s *HelpSurfaceSuite) TestStart() {
	lines := s.reply("/start")
	s.Equal([]string{
		"A bot that does things.",
		"Use /help to get a list of all the commands",
	}, lines)
}

func (s *HelpSurfaceSuite) TestGenericHelp() {
	lines := s.reply("/help")
	s.Equal([]string{
		"A bot that does things.",
		"",
		"Available commands:",
		"/alpha - Do the alpha thing",
		"/bare - No description available.",
		"/help - Show this help message",
		"/start - Start using the bot.",
		"/zeta - Do the zeta thing",
		"Use /help <command> if you need help about a specific command.",
		" ",
		"Please contact @owner if you have problems with this bot.",
	}, lines)
}

func (s *HelpSurfaceSuite) TestGenericHelpHonorsOrder() {
	s.Require().NoError(s.bot.Command("last", func(ctx context.Context, chat *Chat, msg *tgbotapi.Message, args []string) error {
		return nil
	}, Help("Sorts after everything"), Order(10)))

	lines := s.reply("/help")
	s.Equal("/last - Sorts after everything", lines[len(lines)-4])
}

func (s *HelpSurfaceSuite) TestCommandHelp() {
	lines := s.reply("/help zeta")
	s.Equal([]string{
		"/zeta - Do the zeta thing",
		"Long form zeta documentation.",
		" ",
		"Please contact @owner if you have problems with this bot",
	}, lines)
}

func (s *HelpSurfaceSuite) TestCommandHelpWithoutDoc() {
	lines := s.reply("/help bare")
	s.Equal("No help messages for the /bare command.", lines[0])
}

func (s *HelpSurfaceSuite) TestUnknownCommandHelp() {
	lines := s.reply("/help nothere")
	s.Equal([]string{
		"Error: Unknow command: /nothere",
		"Use /help for a list of commands.",
	}, lines)
}

func (s *HelpSurfaceSuite) TestTooManyArguments() {
	lines := s.reply("/help one two")
	s.Equal([]string{"Error: the /help command allows up to one argument."}, lines)
}

func TestGenericHelp_NoUserCommands(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api)

	if err := b.Process(context.Background(), messageUpdate("private", "/help")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	texts := api.sentTexts()
	if len(texts) != 1 || texts[0] != "No commands available." {
		t.Errorf("sent = %v, want [No commands available.]", texts)
	}
}

func TestStart_WithoutAbout(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api)

	if err := b.Process(context.Background(), messageUpdate("private", "/start")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	texts := api.sentTexts()
	want := "Use /help to get a list of all the commands"
	if len(texts) != 1 || texts[0] != want {
		t.Errorf("sent = %v, want [%q]", texts, want)
	}
}

func TestComponentNamespacing(t *testing.T) {
	b := newTestBot(&fakeAPI{})

	c := b.Component("plugin")
	if c.Name() != "plugin" {
		t.Errorf("Name() = %q, want plugin", c.Name())
	}
	if c.ID() == "" {
		t.Error("component id is empty")
	}

	other := b.Component("plugin")
	if other.ID() == c.ID() {
		t.Error("two components share an id")
	}

	mustRegister(t, c.MessageEquals("x", func(ctx context.Context, chat *Chat, msg *tgbotapi.Message) error {
		return nil
	}))
	h := b.matchers[len(b.matchers)-1]
	if !strings.HasPrefix(h.Name(), "plugin::") {
		t.Errorf("hook name %q lacks the component prefix", h.Name())
	}
	if h.Component() != c {
		t.Error("hook not attached to its component")
	}
}
