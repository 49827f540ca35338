// Package telegram подключает бота к Telegram через Bot API (long polling).
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/moodkit/moodbot/internal/domain"
	"github.com/moodkit/moodbot/internal/ports"
)

const (
	defaultPollTimeout = 60
	messageBuffer      = 64
)

var (
	// ErrUnknownUser — участник еще не писал ни в один чат с ботом.
	ErrUnknownUser = errors.New("telegram user is not known yet")
	// ErrNotConnected — метод вызван до Connect.
	ErrNotConnected = errors.New("telegram adapter is not connected")
)

// botAPI — используемая часть *tgbotapi.BotAPI.
type botAPI interface {
	GetMe() (tgbotapi.User, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetChatAdministrators(config tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error)
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

// WithHTTPClient задает HTTP-клиент для Bot API.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *Adapter) {
		if hc != nil {
			a.httpClient = hc
		}
	}
}

// WithEndpoint переопределяет адрес Bot API (формат tgbotapi.APIEndpoint).
func WithEndpoint(endpoint string) Option {
	return func(a *Adapter) {
		if endpoint != "" {
			a.endpoint = endpoint
		}
	}
}

// WithPollTimeout задает таймаут long polling в секундах.
func WithPollTimeout(seconds int) Option {
	return func(a *Adapter) {
		if seconds > 0 {
			a.pollTimeout = seconds
		}
	}
}

// withAPI подменяет клиент Bot API в тестах.
func withAPI(api botAPI) Option {
	return func(a *Adapter) {
		a.api = api
	}
}

// Adapter реализует ports.Platform поверх Telegram Bot API.
type Adapter struct {
	token       string
	endpoint    string
	httpClient  *http.Client
	pollTimeout int
	logger      *slog.Logger

	api      botAPI
	store    *ProfileStore
	messages chan domain.Message

	mu   sync.RWMutex
	self domain.BotIdentity
}

var _ ports.Platform = (*Adapter)(nil)

// New создает адаптер. Подключение выполняется в Connect.
func New(token string, opts ...Option) *Adapter {
	a := &Adapter{
		token:       token,
		endpoint:    tgbotapi.APIEndpoint,
		httpClient:  &http.Client{},
		pollTimeout: defaultPollTimeout,
		logger:      slog.Default(),
		store:       NewProfileStore(),
		messages:    make(chan domain.Message, messageBuffer),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Connect авторизует бота и запоминает его учетную запись.
func (a *Adapter) Connect(_ context.Context) error {
	if a.api == nil {
		api, err := tgbotapi.NewBotAPIWithClient(a.token, a.endpoint, a.httpClient)
		if err != nil {
			return fmt.Errorf("failed to create bot api: %w", err)
		}
		a.api = api
	}

	me, err := a.api.GetMe()
	if err != nil {
		return fmt.Errorf("failed to get bot account: %w", err)
	}

	a.mu.Lock()
	a.self = domain.BotIdentity{ID: userID(me.ID)}
	if me.UserName != "" {
		a.self.Mention = "@" + me.UserName
	}
	a.mu.Unlock()

	a.logger.Info("Authorized on account", slog.String("username", me.UserName))
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

// Start запускает основной цикл обработки обновлений от Telegram.
// Канал сообщений закрывается при выходе.
func (a *Adapter) Start(ctx context.Context) error {
	defer close(a.messages)
	if a.api == nil {
		return ErrNotConnected
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = a.pollTimeout
	updates := a.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Context cancelled, stopping updates...")
			a.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			msg, ok := a.normalize(update)
			if !ok {
				continue
			}
			select {
			case a.messages <- msg:
			case <-ctx.Done():
				a.api.StopReceivingUpdates()
				return nil
			}
		}
	}
}

// normalize приводит обычное и отредактированное сообщение к domain.Message
// и запоминает отправителя в составе чата.
func (a *Adapter) normalize(update tgbotapi.Update) (domain.Message, bool) {
	m := update.Message
	edited := false
	if m == nil {
		m = update.EditedMessage
		edited = true
	}
	if m == nil || m.Chat == nil {
		return domain.Message{}, false
	}

	for _, u := range m.NewChatMembers {
		a.store.Remember(m.Chat.ID, profileOf(u))
	}
	if m.LeftChatMember != nil {
		a.store.Forget(m.Chat.ID, userID(m.LeftChatMember.ID))
	}

	if m.From == nil || m.Text == "" {
		return domain.Message{}, false
	}
	a.store.Remember(m.Chat.ID, profileOf(*m.From))

	return domain.Message{
		ID:        uuid.NewString(),
		Channel:   strconv.FormatInt(m.Chat.ID, 10),
		User:      userID(m.From.ID),
		Text:      m.Text,
		Timestamp: m.Time(),
		Edited:    edited,
	}, true
}

// Send отправляет текст в чат.
func (a *Adapter) Send(_ context.Context, channelID, text string) error {
	if a.api == nil {
		return ErrNotConnected
	}
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", channelID, err)
	}
	// Без ParseMode: эмодзи-токены вроде :smile_cat: ломают разметку Markdown.
	if _, err := a.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Profile возвращает профиль участника, известного по сообщениям.
func (a *Adapter) Profile(_ context.Context, id domain.ChatIdentity) (domain.Profile, error) {
	if p, ok := a.store.Get(id); ok {
		return p, nil
	}
	return domain.Profile{}, fmt.Errorf("%w: %s", ErrUnknownUser, id)
}

// Channel возвращает тип чата и известный состав: администраторов и всех,
// кто писал в чат с момента запуска.
func (a *Adapter) Channel(_ context.Context, channelID string) (domain.ChannelContext, error) {
	if a.api == nil {
		return domain.ChannelContext{}, ErrNotConnected
	}
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return domain.ChannelContext{}, fmt.Errorf("invalid chat id %q: %w", channelID, err)
	}

	chat, err := a.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: chatID}})
	if err != nil {
		return domain.ChannelContext{}, fmt.Errorf("failed to get chat: %w", err)
	}

	cc := domain.ChannelContext{ChannelID: channelID, IsPublic: !chat.IsPrivate()}
	if !cc.IsPublic {
		cc.Members = a.store.Members(chatID)
		return cc, nil
	}

	admins, err := a.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: chatID}})
	if err != nil {
		// Состав без администраторов все равно полезен.
		a.logger.Warn("failed to get chat administrators",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
	for _, m := range admins {
		if m.User == nil || m.HasLeft() || m.WasKicked() {
			continue
		}
		a.store.Remember(chatID, profileOf(*m.User))
	}

	cc.Members = a.store.Members(chatID)
	return cc, nil
}

func userID(id int64) domain.ChatIdentity {
	return strconv.FormatInt(id, 10)
}

func profileOf(u tgbotapi.User) domain.Profile {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return domain.Profile{
		ID:          userID(u.ID),
		DisplayName: name,
		FirstName:   u.FirstName,
		IsBot:       u.IsBot,
	}
}
