package botline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// fakeAPI records outbound platform calls.
type fakeAPI struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendErr  error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.sendErr
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// sentTexts extracts the text of every recorded message send.
func (f *fakeAPI) sentTexts() []string {
	var texts []string
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			texts = append(texts, msg.Text)
		}
	}
	return texts
}

var _ API = (*fakeAPI)(nil)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBot(api *fakeAPI, opts ...Option) *Bot {
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(api, "testbot", opts...)
}

func messageUpdate(chatType, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 7,
		Message: &tgbotapi.Message{
			MessageID: 1,
			Text:      text,
			Chat:      &tgbotapi.Chat{ID: 42, Type: chatType},
			From:      &tgbotapi.User{ID: 99, UserName: "someone"},
		},
	}
}

func TestProcess_StopsOnFirstClaim(t *testing.T) {
	b := newTestBot(&fakeAPI{})

	var order []string
	processor := func(name string, claim bool) ProcessorFunc {
		return func(ctx context.Context, chat *Chat, msg *tgbotapi.Message) (bool, error) {
			order = append(order, name)
			return claim, nil
		}
	}

	mustRegister(t, b.Processor(processor("a", false)))
	mustRegister(t, b.Processor(processor("b", true)))
	mustRegister(t, b.Processor(processor("c", false)))

	if err := b.Process(context.Background(), messageUpdate("group", "hello")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"a", "b"}
	if len(order) != len(want) {
		t.Fatalf("invoked = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("invoked[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestProcess_BeforeHooksRunFirst(t *testing.T) {
	b := newTestBot(&fakeAPI{})

	var order []string
	mustRegister(t, b.Processor(func(ctx context.Context, chat *Chat, msg *tgbotapi.Message) (bool, error) {
		order = append(order, "processor")
		return false, nil
	}))
	// Registered after the processor, still runs before it.
	mustRegister(t, b.BeforeProcessing(func(ctx context.Context, chat *Chat, msg *tgbotapi.Message) (bool, error) {
		order = append(order, "before")
		return false, nil
	}))

	if err := b.Process(context.Background(), messageUpdate("group", "hello")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(order) != 2 || order[0] != "before" || order[1] != "processor" {
		t.Errorf("order = %v, want [before processor]", order)
	}
}

func TestProcess_HandlerErrorPropagates(t *testing.T) {
	b := newTestBot(&fakeAPI{})

	wantErr := errors.New("handler exploded")
	mustRegister(t, b.Processor(func(ctx context.Context, chat *Chat, msg *tgbotapi.Message) (bool, error) {
		return false, wantErr
	}))

	var later bool
	mustRegister(t, b.Processor(func(ctx context.Context, chat *Chat, msg *tgbotapi.Message) (bool, error) {
		later = true
		return false, nil
	}))

	err := b.Process(context.Background(), messageUpdate("group", "hello"))
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}
	if later {
		t.Error("chain continued past a failing hook")
	}
}

func TestProcess_EditedAndChannelChains(t *testing.T) {
	tests := []struct {
		name     string
		register func(b *Bot, fn MessageFunc) error
		update   tgbotapi.Update
	}{
		{
			name:     "edited message",
			register: (*Bot).MessageEdited,
			update: tgbotapi.Update{EditedMessage: &tgbotapi.Message{
				Text: "edit", Chat: &tgbotapi.Chat{ID: 1, Type: "private"},
			}},
		},
		{
			name:     "channel post",
			register: (*Bot).ChannelPost,
			update: tgbotapi.Update{ChannelPost: &tgbotapi.Message{
				Text: "post", Chat: &tgbotapi.Chat{ID: 2, Type: "channel"},
			}},
		},
		{
			name:     "edited channel post",
			register: (*Bot).ChannelPostEdited,
			update: tgbotapi.Update{EditedChannelPost: &tgbotapi.Message{
				Text: "edit", Chat: &tgbotapi.Chat{ID: 2, Type: "channel"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBot(&fakeAPI{})

			var got *tgbotapi.Message
			mustRegister(t, tt.register(b, func(ctx context.Context, chat *Chat, msg *tgbotapi.Message) error {
				got = msg
				return nil
			}))

			if err := b.Process(context.Background(), tt.update); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got == nil {
				t.Fatal("handler was not called")
			}
		})
	}
}

func TestProcess_ShippingAndPreCheckout(t *testing.T) {
	b := newTestBot(&fakeAPI{})

	var shippingCalls, checkoutCalls int
	mustRegister(t, b.Shipping(func(ctx context.Context, q *tgbotapi.ShippingQuery) (bool, error) {
		shippingCalls++
		return true, nil
	}))
	mustRegister(t, b.Shipping(func(ctx context.Context, q *tgbotapi.ShippingQuery) (bool, error) {
		shippingCalls += 100
		return false, nil
	}))
	mustRegister(t, b.PreCheckout(func(ctx context.Context, q *tgbotapi.PreCheckoutQuery) (bool, error) {
		checkoutCalls++
		return true, nil
	}))

	err := b.Process(context.Background(), tgbotapi.Update{ShippingQuery: &tgbotapi.ShippingQuery{ID: "s1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = b.Process(context.Background(), tgbotapi.Update{PreCheckoutQuery: &tgbotapi.PreCheckoutQuery{ID: "p1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if shippingCalls != 1 {
		t.Errorf("shipping chain did not stop on claim: calls = %d", shippingCalls)
	}
	if checkoutCalls != 1 {
		t.Errorf("pre-checkout calls = %d, want 1", checkoutCalls)
	}
}

func TestProcess_EmptyUpdateIsIgnored(t *testing.T) {
	b := newTestBot(&fakeAPI{})
	if err := b.Process(context.Background(), tgbotapi.Update{UpdateID: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegistrationAfterDispatchPanics(t *testing.T) {
	b := newTestBot(&fakeAPI{})
	if err := b.Process(context.Background(), tgbotapi.Update{UpdateID: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic on registration after dispatch")
		}
	}()
	_ = b.Processor(func(ctx context.Context, chat *Chat, msg *tgbotapi.Message) (bool, error) {
		return false, nil
	})
}

func TestOutOfBandHooks(t *testing.T) {
	t.Run("timer", func(t *testing.T) {
		b := newTestBot(&fakeAPI{})
		var ticks int
		mustRegister(t, b.Timer(func(ctx context.Context) error {
			ticks++
			return nil
		}))
		mustRegister(t, b.Timer(func(ctx context.Context) error {
			ticks++
			return nil
		}))

		if err := b.Tick(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ticks != 2 {
			t.Errorf("ticks = %d, want 2", ticks)
		}
	})

	t.Run("chat unavailable", func(t *testing.T) {
		b := newTestBot(&fakeAPI{})
		var gotID int64
		var gotReason string
		mustRegister(t, b.ChatUnavailable(func(ctx context.Context, chatID int64, reason string) error {
			gotID, gotReason = chatID, reason
			return nil
		}))

		if err := b.NotifyChatUnavailable(context.Background(), 77, "blocked"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotID != 77 || gotReason != "blocked" {
			t.Errorf("got (%d, %q), want (77, blocked)", gotID, gotReason)
		}
	})

	t.Run("memory preparer", func(t *testing.T) {
		b := newTestBot(&fakeAPI{})
		mustRegister(t, b.PrepareMemory(func(memory map[string]any) {
			memory["seed"] = 1
		}))

		mem := make(map[string]any)
		b.PrepareMemories(mem)
		if mem["seed"] != 1 {
			t.Errorf("memory = %v, want seed=1", mem)
		}
	})
}

func TestObservers(t *testing.T) {
	var dispatched, claimed []string
	var failures int

	api := &fakeAPI{}
	b := newTestBot(api,
		WithOnDispatch(func(ctx context.Context, kind Kind, hook string) {
			dispatched = append(dispatched, hook)
		}),
		WithOnClaimed(func(ctx context.Context, kind Kind, hook string, d time.Duration) {
			claimed = append(claimed, hook)
		}),
		WithOnFailure(func(ctx context.Context, kind Kind, hook string, err error, d time.Duration) {
			failures++
		}),
	)

	mustRegister(t, b.MessageEquals("hi", func(ctx context.Context, chat *Chat, msg *tgbotapi.Message) error {
		return nil
	}))

	if err := b.Process(context.Background(), messageUpdate("group", "hi")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(claimed) != 1 {
		t.Fatalf("claimed = %v, want one hook", claimed)
	}
	// The command router runs first, so at least two dispatch callbacks.
	if len(dispatched) < 2 {
		t.Errorf("dispatched = %v, want command router plus matcher", dispatched)
	}
	if failures != 0 {
		t.Errorf("failures = %d, want 0", failures)
	}
}

func TestNilHandlerRejected(t *testing.T) {
	b := newTestBot(&fakeAPI{})
	if err := b.Processor(nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("error = %v, want ErrNilHandler", err)
	}
	if err := b.Command("x", nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("error = %v, want ErrNilHandler", err)
	}
	if err := b.Callback("x", nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("error = %v, want ErrNilHandler", err)
	}
}

func mustRegister(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}
}
