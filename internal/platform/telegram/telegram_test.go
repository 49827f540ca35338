package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodkit/moodbot/internal/domain"
)

// fakeAPI — фейковый клиент Bot API.
type fakeAPI struct {
	mu      sync.Mutex
	me      tgbotapi.User
	updates chan tgbotapi.Update
	stopped bool
	sent    []tgbotapi.MessageConfig
	chats   map[int64]tgbotapi.Chat
	admins  map[int64][]tgbotapi.ChatMember
	sendErr error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		me:      tgbotapi.User{ID: 999, IsBot: true, UserName: "moodbot", FirstName: "Mood"},
		updates: make(chan tgbotapi.Update, 10),
		chats: map[int64]tgbotapi.Chat{
			100:  {ID: 100, Type: "private"},
			-200: {ID: -200, Type: "supergroup", Title: "team"},
		},
		admins: map[int64][]tgbotapi.ChatMember{
			-200: {
				{User: &tgbotapi.User{ID: 1, FirstName: "Alice", LastName: "Smith"}, Status: "creator"},
				{User: &tgbotapi.User{ID: 999, IsBot: true, UserName: "moodbot"}, Status: "administrator"},
			},
		},
	}
}

func (f *fakeAPI) GetMe() (tgbotapi.User, error) { return f.me, nil }

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	if c, ok := f.chats[config.ChatID]; ok {
		return c, nil
	}
	return tgbotapi.Chat{}, errors.New("Bad Request: chat not found")
}

func (f *fakeAPI) GetChatAdministrators(config tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error) {
	return f.admins[config.ChatID], nil
}

func newTestAdapter(t *testing.T) (*Adapter, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	a := New("token", withAPI(api), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, a.Connect(context.Background()))
	return a, api
}

func textUpdate(chatID, fromID int64, first, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		Date:      1700000000,
		Chat:      &tgbotapi.Chat{ID: chatID},
		From:      &tgbotapi.User{ID: fromID, FirstName: first},
		Text:      text,
	}}
}

func TestAdapter_Connect(t *testing.T) {
	a, _ := newTestAdapter(t)
	assert.Equal(t, domain.BotIdentity{ID: "999", Mention: "@moodbot"}, a.Self())
}

func TestAdapter_StartNormalizesUpdates(t *testing.T) {
	a, api := newTestAdapter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.Start(ctx) }()

	api.updates <- tgbotapi.Update{}
	api.updates <- textUpdate(-200, 2, "Bob", "history")
	edited := textUpdate(-200, 2, "Bob", "feel :happy: 4")
	edited.EditedMessage, edited.Message = edited.Message, nil
	api.updates <- edited

	first := <-a.Messages()
	assert.Equal(t, "-200", first.Channel)
	assert.Equal(t, "2", first.User)
	assert.Equal(t, "history", first.Text)
	assert.Equal(t, int64(1700000000), first.Unix())
	assert.False(t, first.Edited)
	assert.NotEmpty(t, first.ID)

	second := <-a.Messages()
	assert.True(t, second.Edited)
	assert.Equal(t, "feel :happy: 4", second.Text)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("adapter did not stop")
	}
	_, open := <-a.Messages()
	assert.False(t, open)
	assert.True(t, api.stopped)
}

func TestAdapter_ChannelMembership(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	a.normalize(textUpdate(-200, 2, "Bob", "hi"))
	a.normalize(textUpdate(-200, 3, "Carol", "hi"))
	a.normalize(textUpdate(-300, 4, "Dan", "hi"))

	cc, err := a.Channel(ctx, "-200")
	require.NoError(t, err)
	assert.True(t, cc.IsPublic)
	assert.Equal(t, []domain.ChatIdentity{"1", "2", "3", "999"}, cc.Members)

	bot, err := a.Profile(ctx, "999")
	require.NoError(t, err)
	assert.True(t, bot.IsBot)

	alice, err := a.Profile(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", alice.DisplayName)
	assert.Equal(t, "Alice", alice.FirstName)

	t.Run("left members are forgotten", func(t *testing.T) {
		a.normalize(tgbotapi.Update{Message: &tgbotapi.Message{
			Chat:           &tgbotapi.Chat{ID: -200},
			LeftChatMember: &tgbotapi.User{ID: 3},
		}})
		cc, err := a.Channel(ctx, "-200")
		require.NoError(t, err)
		assert.NotContains(t, cc.Members, "3")
	})

	t.Run("private chat", func(t *testing.T) {
		a.normalize(textUpdate(100, 5, "Eve", "history"))
		cc, err := a.Channel(ctx, "100")
		require.NoError(t, err)
		assert.False(t, cc.IsPublic)
		assert.Equal(t, []domain.ChatIdentity{"5"}, cc.Members)
	})

	t.Run("unknown chat", func(t *testing.T) {
		_, err := a.Channel(ctx, "-404")
		assert.Error(t, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := a.Profile(ctx, "12345")
		assert.ErrorIs(t, err, ErrUnknownUser)
	})
}

func TestAdapter_Send(t *testing.T) {
	a, api := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.Send(ctx, "-200", "*Alice* :smile_cat: 5"))
	require.Len(t, api.sent, 1)
	assert.Equal(t, int64(-200), api.sent[0].ChatID)
	assert.Equal(t, "*Alice* :smile_cat: 5", api.sent[0].Text)
	assert.Empty(t, api.sent[0].ParseMode)

	assert.Error(t, a.Send(ctx, "general", "hi"))

	api.sendErr = errors.New("Forbidden: bot was blocked by the user")
	assert.ErrorContains(t, a.Send(ctx, "100", "hi"), "blocked")
}

func TestAdapter_NotConnected(t *testing.T) {
	a := New("token")
	assert.ErrorIs(t, a.Send(context.Background(), "1", "hi"), ErrNotConnected)
	assert.ErrorIs(t, a.Start(context.Background()), ErrNotConnected)
}

func TestProfileStore(t *testing.T) {
	s := NewProfileStore()
	s.Remember(1, domain.Profile{ID: "b", DisplayName: "B"})
	s.Remember(1, domain.Profile{ID: "a", DisplayName: "A"})
	s.Remember(1, domain.Profile{ID: "a", DisplayName: "A2"})

	assert.Equal(t, []domain.ChatIdentity{"a", "b"}, s.Members(1))
	p, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "A2", p.DisplayName)

	s.Forget(1, "a")
	assert.Equal(t, []domain.ChatIdentity{"b"}, s.Members(1))
	assert.Empty(t, s.Members(2))
}
