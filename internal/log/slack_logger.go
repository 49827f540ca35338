package log

import (
	"log/slog"
	"strings"
)

// SlackAdapter направляет отладочный вывод slack-go (slack.OptionLog,
// socketmode.OptionLog) в slog.
type SlackAdapter struct {
	Logger *slog.Logger
}

// NewSlackAdapter создает адаптер, помечающий записи компонентом "slack".
func NewSlackAdapter(l *slog.Logger) *SlackAdapter {
	return &SlackAdapter{Logger: l.With(slog.String("component", "slack"))}
}

// Output реализует интерфейс slack.Logger. calldepth не используется.
func (a *SlackAdapter) Output(_ int, s string) error {
	a.Logger.Debug(strings.TrimSpace(s))
	return nil
}
