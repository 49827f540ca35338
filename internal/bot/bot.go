// Package bot связывает поток входящих сообщений платформы с командами
// дневника настроения: классифицирует текст, выполняет команду и отправляет ответы.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/moodkit/moodbot/internal/command"
	"github.com/moodkit/moodbot/internal/core/services"
	"github.com/moodkit/moodbot/internal/domain"
	"github.com/moodkit/moodbot/internal/ports"
)

const defaultHistoryWindow = 7 * 24 * time.Hour

// Deps — внешние зависимости бота.
type Deps struct {
	Backend   ports.Backend
	Resolver  ports.UserResolver
	Directory ports.Directory
	Sender    ports.Sender
}

// Option — функциональная опция для настройки Bot.
type Option func(*Bot)

// WithLogger устанавливает логгер бота.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithHistoryWindow задает глубину окна для history, echo и quotes.
func WithHistoryWindow(d time.Duration) Option {
	return func(b *Bot) {
		if d > 0 {
			b.window = d
		}
	}
}

// WithCoordinator подменяет координатор рассылки по участникам.
func WithCoordinator(c *services.Coordinator) Option {
	return func(b *Bot) {
		if c != nil {
			b.fanout = c
		}
	}
}

// WithCodeBlocks включает блоки кода ``` вокруг таблиц. Нужны платформам,
// которые понимают такую разметку (Slack). По умолчанию включено.
func WithCodeBlocks(enabled bool) Option {
	return func(b *Bot) {
		b.codeBlocks = enabled
	}
}

// WithPhraseSource задает источник случайных чисел для приветствий.
func WithPhraseSource(intn func(n int) int) Option {
	return func(b *Bot) {
		b.intn = intn
	}
}

// Bot — диспетчер команд. Каждое входящее сообщение обрабатывается в
// собственной горутине: зависший сетевой вызов задерживает только свою цепочку.
type Bot struct {
	self       domain.BotIdentity
	backend    ports.Backend
	resolver   ports.UserResolver
	directory  ports.Directory
	sender     ports.Sender
	fanout     *services.Coordinator
	window     time.Duration
	intn       func(n int) int
	codeBlocks bool
	logger     *slog.Logger

	wg sync.WaitGroup
}

// New создает бота. self может быть пустым: пока учетная запись бота
// неизвестна, адресованным не считается ни одно сообщение, в том числе личное.
func New(self domain.BotIdentity, deps Deps, opts ...Option) *Bot {
	b := &Bot{
		self:       self,
		backend:    deps.Backend,
		resolver:   deps.Resolver,
		directory:  deps.Directory,
		sender:     deps.Sender,
		window:     defaultHistoryWindow,
		codeBlocks: true,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.fanout == nil {
		b.fanout = services.NewCoordinator(services.WithCoordinatorLogger(b.logger))
	}
	return b
}

// Run читает сообщения, пока канал открыт и контекст не отменен, затем
// дожидается завершения уже начатых цепочек.
func (b *Bot) Run(ctx context.Context, messages <-chan domain.Message) error {
	b.logger.Info("bot started", slog.String("bot_id", b.self.ID))
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Context cancelled, stopping bot...")
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				b.logger.Info("message stream closed, stopping bot")
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.Handle(ctx, msg)
			}()
		}
	}
}

// Handle обрабатывает одно сообщение синхронно.
func (b *Bot) Handle(ctx context.Context, msg domain.Message) {
	if msg.User == "" || (b.self.ID != "" && msg.User == b.self.ID) {
		return
	}

	inflight.Inc()
	defer inflight.Dec()

	logger := b.logger.With(
		slog.String("msg_id", msg.ID),
		slog.String("channel", msg.Channel),
		slog.String("user", msg.User),
	)

	text, mentioned := b.stripMention(msg.Text)

	channel, err := b.directory.Channel(ctx, msg.Channel)
	if err != nil {
		// Без сведений о канале считаем его общим и работаем только с отправителем.
		logger.Warn("failed to get channel info", slog.String("error", err.Error()))
		channel = domain.ChannelContext{ChannelID: msg.Channel, IsPublic: true}
	}

	direct := !channel.IsPublic
	addressed := (mentioned || direct) && b.self.ID != ""
	cmd := command.ClassifyAddressed(text, addressed)
	commandsTotal.WithLabelValues(cmd.Kind.String()).Inc()

	logger = logger.With(slog.String("command", cmd.Kind.String()))
	if msg.Edited {
		logger.Debug("handling edited message")
	}

	req := request{
		msg:       msg,
		channel:   channel,
		direct:    direct,
		addressed: addressed,
		logger:    logger,
	}
	b.execute(ctx, cmd, req)
}

// request — все, что исполнитель команды знает о сообщении.
type request struct {
	msg       domain.Message
	channel   domain.ChannelContext
	direct    bool
	addressed bool
	logger    *slog.Logger
}

// stripMention удаляет из текста все упоминания бота и сообщает, были ли они.
func (b *Bot) stripMention(text string) (string, bool) {
	if b.self.Mention == "" || !strings.Contains(text, b.self.Mention) {
		return text, false
	}
	return strings.ReplaceAll(text, b.self.Mention, " "), true
}

// reply отправляет ответ в канал сообщения. Ошибка отправки только логируется.
func (b *Bot) reply(ctx context.Context, req request, text string) {
	if err := b.sender.Send(ctx, req.msg.Channel, text); err != nil {
		repliesTotal.WithLabelValues("error").Inc()
		req.logger.Error("failed to send message", slog.String("error", err.Error()))
		return
	}
	repliesTotal.WithLabelValues("ok").Inc()
}
