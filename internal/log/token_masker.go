// Package log содержит обвязку log/slog: маскировку секретов и адаптеры
// логгеров клиентских библиотек платформ.
package log

import (
	"context"
	"log/slog"
	"regexp"
)

// TokenMaskerHandler — обертка для slog.Handler, которая маскирует токены
// платформ в сообщении, атрибутах и ошибках.
type TokenMaskerHandler struct {
	handler slog.Handler
}

// NewTokenMaskerHandler создает новый обработчик с маскировкой токенов.
func NewTokenMaskerHandler(handler slog.Handler) *TokenMaskerHandler {
	return &TokenMaskerHandler{
		handler: handler,
	}
}

type tokenPattern struct {
	re   *regexp.Regexp
	mask string
}

var tokenPatterns = []tokenPattern{
	// Telegram: botID:token в URL запросов Bot API.
	{re: regexp.MustCompile(`\bbot\d+:[A-Za-z0-9_-]{35,}`), mask: "bot***:***masked-token***"},
	// Telegram: тот же токен без префикса bot (переменные окружения, конфиг).
	{re: regexp.MustCompile(`\b\d{6,}:[A-Za-z0-9_-]{35,}`), mask: "***:***masked-token***"},
	// Slack: bot, user и app-level токены.
	{re: regexp.MustCompile(`\bxox[abpors]-[A-Za-z0-9-]{10,}`), mask: "xox*-***masked-token***"},
	{re: regexp.MustCompile(`\bxapp-[A-Za-z0-9-]{10,}`), mask: "xapp-***masked-token***"},
}

// maskTokens заменяет найденные токены на маску.
func maskTokens(text string) string {
	for _, p := range tokenPatterns {
		text = p.re.ReplaceAllString(text, p.mask)
	}
	return text
}

// Enabled реализует интерфейс slog.Handler.
func (h *TokenMaskerHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle реализует интерфейс slog.Handler.
func (h *TokenMaskerHandler) Handle(ctx context.Context, record slog.Record) error {
	// Работаем с копией: slog может переиспользовать исходную запись.
	// Клон создается без атрибутов, их добавляем заново в маскированном виде.
	r := slog.NewRecord(record.Time, record.Level, maskTokens(record.Message), record.PC)

	record.Attrs(func(a slog.Attr) bool {
		r.AddAttrs(maskAttr(a))
		return true
	})

	return h.handler.Handle(ctx, r)
}

// WithAttrs реализует интерфейс slog.Handler.
func (h *TokenMaskerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		masked[i] = maskAttr(attr)
	}
	return &TokenMaskerHandler{
		handler: h.handler.WithAttrs(masked),
	}
}

// WithGroup реализует интерфейс slog.Handler.
func (h *TokenMaskerHandler) WithGroup(name string) slog.Handler {
	return &TokenMaskerHandler{
		handler: h.handler.WithGroup(name),
	}
}

func maskAttr(a slog.Attr) slog.Attr {
	return slog.Attr{Key: a.Key, Value: maskAttributeValue(a.Value)}
}

// maskAttributeValue рекурсивно маскирует значения атрибутов.
func maskAttributeValue(value slog.Value) slog.Value {
	switch value.Kind() {
	case slog.KindString:
		return slog.StringValue(maskTokens(value.String()))
	case slog.KindAny:
		// Ошибки клиентов платформ часто содержат URL с токеном.
		if err, ok := value.Any().(error); ok {
			return slog.StringValue(maskTokens(err.Error()))
		}
		return value
	case slog.KindLogValuer:
		return maskAttributeValue(value.Resolve())
	case slog.KindGroup:
		group := value.Group()
		masked := make([]slog.Attr, len(group))
		for i, attr := range group {
			masked[i] = maskAttr(attr)
		}
		return slog.GroupValue(masked...)
	default:
		return value
	}
}

// NewMaskedLogger создает новый экземпляр slog.Logger с маскировкой токенов.
func NewMaskedLogger(handler slog.Handler) *slog.Logger {
	return slog.New(NewTokenMaskerHandler(handler))
}
