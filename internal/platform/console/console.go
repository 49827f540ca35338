// Package console реализует локальную платформу: команды читаются построчно
// из stdin, ответы пишутся в stdout. Удобно для ручной проверки бота против
// настоящего бэкенда без Slack и Telegram.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"
	"golang.org/x/xerrors"

	"github.com/moodkit/moodbot/internal/domain"
	"github.com/moodkit/moodbot/internal/ports"
)

const (
	// ChannelID — единственный канал консоли. Он всегда личный.
	ChannelID = "console"
	// BotID — учетная запись бота в консоли.
	BotID = "console-bot"

	defaultUser = "console-user"
	prompt      = "> "
	replyPrefix = "moodbot: "
)

// ErrUnknownUser — профиль запрошен для участника, которого нет в консоли.
var ErrUnknownUser = errors.New("console user is not known")

// Option — функциональная опция для настройки Terminal.
type Option func(*Terminal)

// WithLogger устанавливает логгер.
func WithLogger(l *slog.Logger) Option {
	return func(t *Terminal) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithUser задает профиль участника, от имени которого вводятся команды.
func WithUser(id, name, email string) Option {
	return func(t *Terminal) {
		if id != "" {
			t.user.ID = id
		}
		if name != "" {
			t.user.DisplayName = name
			t.user.FirstName, _, _ = strings.Cut(name, " ")
		}
		t.user.Email = email
	}
}

// Terminal — консольная платформа. Он реализует интерфейс ports.Platform.
type Terminal struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
	logger      *slog.Logger
	user        domain.Profile
	now         func() time.Time

	outMu    sync.Mutex
	messages chan domain.Message
}

var _ ports.Platform = (*Terminal)(nil)

// NewTerminal создает консольную платформу поверх stdin/stdout.
func NewTerminal(opts ...Option) *Terminal {
	return newTerminal(os.Stdin, os.Stdout, opts...)
}

func newTerminal(in io.Reader, out io.Writer, opts ...Option) *Terminal {
	t := &Terminal{
		in:       bufio.NewReader(in),
		out:      out,
		logger:   slog.Default(),
		user:     domain.Profile{ID: defaultUser, DisplayName: defaultUser, FirstName: defaultUser},
		now:      time.Now,
		messages: make(chan domain.Message),
	}
	if f, ok := in.(*os.File); ok {
		t.interactive = term.IsTerminal(int(f.Fd()))
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Connect ничего не проверяет: консоль доступна всегда.
func (t *Terminal) Connect(_ context.Context) error {
	t.logger.Info("Console platform ready",
		slog.String("user", t.user.ID),
		slog.Bool("interactive", t.interactive),
	)
	return nil
}

// Self возвращает учетную запись бота.
func (t *Terminal) Self() domain.BotIdentity {
	return domain.BotIdentity{ID: BotID, Mention: "@moodbot"}
}

// Messages возвращает поток введенных строк.
func (t *Terminal) Messages() <-chan domain.Message {
	return t.messages
}

// Start читает строки до EOF или отмены контекста.
// Канал сообщений закрывается при выходе.
func (t *Terminal) Start(ctx context.Context) error {
	defer close(t.messages)

	lines := make(chan string)
	readErr := make(chan error, 1)
	// Чтение из stdin нельзя прервать, поэтому оно живет в отдельной горутине.
	go func() {
		defer close(lines)
		for {
			line, err := t.in.ReadString('\n')
			if line = strings.TrimSpace(line); line != "" {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- xerrors.Errorf("failed to read command: %w", err)
				}
				return
			}
		}
	}()

	t.showPrompt()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			msg := domain.Message{
				ID:        uuid.NewString(),
				Channel:   ChannelID,
				User:      t.user.ID,
				Text:      line,
				Timestamp: t.now(),
			}
			select {
			case t.messages <- msg:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Send печатает ответ бота.
func (t *Terminal) Send(_ context.Context, channelID, text string) error {
	if channelID != ChannelID {
		return fmt.Errorf("unknown console channel %q", channelID)
	}
	t.outMu.Lock()
	defer t.outMu.Unlock()
	if _, err := fmt.Fprintln(t.out, replyPrefix+text); err != nil {
		return xerrors.Errorf("failed to write reply: %w", err)
	}
	if t.interactive {
		fmt.Fprint(t.out, prompt)
	}
	return nil
}

// Profile возвращает профиль участника консоли или бота.
func (t *Terminal) Profile(_ context.Context, id domain.ChatIdentity) (domain.Profile, error) {
	switch id {
	case t.user.ID:
		return t.user, nil
	case BotID:
		return domain.Profile{ID: BotID, DisplayName: "moodbot", IsBot: true}, nil
	default:
		return domain.Profile{}, fmt.Errorf("%w: %s", ErrUnknownUser, id)
	}
}

// Channel описывает консоль как личный канал с одним участником.
func (t *Terminal) Channel(_ context.Context, channelID string) (domain.ChannelContext, error) {
	if channelID != ChannelID {
		return domain.ChannelContext{}, fmt.Errorf("unknown console channel %q", channelID)
	}
	return domain.ChannelContext{ChannelID: ChannelID, Members: []domain.ChatIdentity{t.user.ID}}, nil
}

func (t *Terminal) showPrompt() {
	if !t.interactive {
		return
	}
	t.outMu.Lock()
	defer t.outMu.Unlock()
	fmt.Fprint(t.out, prompt)
}
