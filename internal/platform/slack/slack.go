// Package slack подключает бота к Slack через Socket Mode.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/moodkit/moodbot/internal/domain"
	mlog "github.com/moodkit/moodbot/internal/log"
	"github.com/moodkit/moodbot/internal/ports"
)

const (
	subtypeChanged = "message_changed"
	membersPage    = 200
	messageBuffer  = 64
)

// ErrNotConnected — метод вызван до Connect.
var ErrNotConnected = errors.New("slack adapter is not connected")

// webAPI — используемая часть *slack.Client.
type webAPI interface {
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
	GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error)
	GetUsersInConversationContext(ctx context.Context, params *slack.GetUsersInConversationParameters) ([]string, string, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Option — функциональная опция для настройки Adapter.
type Option func(*Adapter)

// WithLogger устанавливает логгер адаптера.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithAPIURL переопределяет адрес Web API (например, фейковый сервер в тестах).
func WithAPIURL(url string) Option {
	return func(a *Adapter) {
		if url != "" {
			a.apiURL = url
		}
	}
}

// WithDebug включает отладочный вывод slack-go в логгер адаптера.
func WithDebug(debug bool) Option {
	return func(a *Adapter) {
		a.debug = debug
	}
}

// Adapter реализует ports.Platform поверх Slack Web API и Socket Mode.
type Adapter struct {
	botToken string
	appToken string
	apiURL   string
	debug    bool
	logger   *slog.Logger

	api      webAPI
	socket   *socketmode.Client
	ack      func(req socketmode.Request)
	messages chan domain.Message

	mu   sync.RWMutex
	self domain.BotIdentity
}

var _ ports.Platform = (*Adapter)(nil)

// New создает адаптер. botToken — xoxb-токен бота, appToken — xapp-токен
// приложения для Socket Mode.
func New(botToken, appToken string, opts ...Option) *Adapter {
	a := &Adapter{
		botToken: botToken,
		appToken: appToken,
		logger:   slog.Default(),
		messages: make(chan domain.Message, messageBuffer),
	}
	for _, opt := range opts {
		opt(a)
	}

	clientOpts := []slack.Option{
		slack.OptionAppLevelToken(appToken),
		slack.OptionLog(mlog.NewSlackAdapter(a.logger)),
		slack.OptionDebug(a.debug),
	}
	if a.apiURL != "" {
		clientOpts = append(clientOpts, slack.OptionAPIURL(a.apiURL))
	}
	client := slack.New(botToken, clientOpts...)
	a.api = client
	a.socket = socketmode.New(client,
		socketmode.OptionLog(mlog.NewSlackAdapter(a.logger)),
		socketmode.OptionDebug(a.debug),
	)
	a.ack = func(req socketmode.Request) { a.socket.Ack(req) }
	return a
}

// Connect проверяет токен и запоминает учетную запись бота.
func (a *Adapter) Connect(ctx context.Context) error {
	resp, err := a.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	a.mu.Lock()
	a.self = domain.BotIdentity{ID: resp.UserID, Mention: "<@" + resp.UserID + ">"}
	a.mu.Unlock()

	a.logger.Info("Logged in",
		slog.String("bot_user", resp.User),
		slog.String("bot_id", resp.UserID),
		slog.String("team", resp.Team),
	)
	return nil
}

// Self возвращает учетную запись бота.
func (a *Adapter) Self() domain.BotIdentity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.self
}

// Messages возвращает поток нормализованных сообщений.
func (a *Adapter) Messages() <-chan domain.Message {
	return a.messages
}

// Start держит соединение Socket Mode и переводит события сообщений в поток.
// Канал сообщений закрывается при выходе.
func (a *Adapter) Start(ctx context.Context) error {
	defer close(a.messages)
	if a.Self().ID == "" {
		return ErrNotConnected
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- a.socket.RunContext(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Context cancelled, stopping socket mode...")
			<-runErr
			return nil
		case err := <-runErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("socket mode stopped: %w", err)
			}
			return nil
		case evt := <-a.socket.Events:
			a.dispatch(ctx, evt)
		}
	}
}

// dispatch подтверждает событие Socket Mode и, если это текстовое сообщение,
// публикует его в поток.
func (a *Adapter) dispatch(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		a.logger.Info("Connecting to Slack with Socket Mode...")
		return
	case socketmode.EventTypeConnected:
		a.logger.Info("Now you can start talking!")
		return
	case socketmode.EventTypeConnectionError:
		a.logger.Warn("socket mode connection error, retrying")
		return
	case socketmode.EventTypeEventsAPI:
	default:
		return
	}

	if evt.Request != nil {
		a.ack(*evt.Request)
	}

	apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok || apiEvent.Type != slackevents.CallbackEvent {
		return
	}
	ev, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}

	msg, ok := normalize(ev)
	if !ok {
		return
	}
	select {
	case a.messages <- msg:
	case <-ctx.Done():
	}
}

// normalize приводит обычное и отредактированное сообщение к domain.Message.
// Служебные подтипы (вход в канал, удаление, сообщения ботов) отбрасываются.
func normalize(ev *slackevents.MessageEvent) (domain.Message, bool) {
	msg := domain.Message{ID: uuid.NewString(), Channel: ev.Channel}

	switch ev.SubType {
	case "":
		msg.User, msg.Text, msg.Timestamp = ev.User, ev.Text, parseTS(ev.TimeStamp)
	case subtypeChanged:
		if ev.Message == nil {
			return domain.Message{}, false
		}
		msg.User, msg.Text, msg.Timestamp = ev.Message.User, ev.Message.Text, parseTS(ev.Message.Timestamp)
		msg.Edited = true
	default:
		return domain.Message{}, false
	}

	if msg.User == "" || msg.Text == "" {
		return domain.Message{}, false
	}
	return msg, true
}

// parseTS разбирает метку Slack вида "1700000000.000200".
func parseTS(ts string) time.Time {
	secPart, fracPart, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Now()
	}
	micro, _ := strconv.ParseInt(fracPart, 10, 64)
	return time.Unix(sec, micro*int64(time.Microsecond))
}

// Send публикует текст в канал.
func (a *Adapter) Send(ctx context.Context, channelID, text string) error {
	if _, _, err := a.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}
	return nil
}

// Profile возвращает профиль пользователя Slack.
func (a *Adapter) Profile(ctx context.Context, id domain.ChatIdentity) (domain.Profile, error) {
	u, err := a.api.GetUserInfoContext(ctx, id)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("failed to get user info: %w", err)
	}

	name := u.RealName
	if name == "" {
		name = u.Profile.RealName
	}
	if name == "" {
		name = u.Name
	}
	return domain.Profile{
		ID:          u.ID,
		DisplayName: name,
		FirstName:   u.Profile.FirstName,
		Email:       u.Profile.Email,
		IsBot:       u.IsBot || u.ID == "USLACKBOT",
		Deleted:     u.Deleted,
	}, nil
}

// Channel возвращает вид канала и полный список его участников.
// Приватные каналы и личные сообщения считаются непубличными.
func (a *Adapter) Channel(ctx context.Context, channelID string) (domain.ChannelContext, error) {
	ch, err := a.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: channelID})
	if err != nil {
		return domain.ChannelContext{}, fmt.Errorf("failed to get conversation info: %w", err)
	}

	cc := domain.ChannelContext{ChannelID: channelID, IsPublic: ch.IsChannel && !ch.IsPrivate}

	params := &slack.GetUsersInConversationParameters{ChannelID: channelID, Limit: membersPage}
	for {
		ids, cursor, err := a.api.GetUsersInConversationContext(ctx, params)
		if err != nil {
			return domain.ChannelContext{}, fmt.Errorf("failed to get conversation members: %w", err)
		}
		cc.Members = append(cc.Members, ids...)
		if cursor == "" {
			break
		}
		params.Cursor = cursor
	}
	return cc, nil
}
