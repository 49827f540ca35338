package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/moodkit/moodbot/internal/domain"
)

// SubjectFunc — цепочка работы для одного участника. Ответы цепочка
// отправляет сама, по мере готовности.
type SubjectFunc func(ctx context.Context, subject domain.ChatIdentity) error

// FanoutResult — итог выполнения рассылки по участникам.
type FanoutResult struct {
	Total  int
	Failed int
}

// CoordinatorOption — функциональная опция для настройки Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLimit ограничивает число одновременно выполняемых цепочек. 0 — без ограничений.
func WithLimit(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n >= 0 {
			c.limit = n
		}
	}
}

// WithCoordinatorLogger устанавливает логгер.
func WithCoordinatorLogger(l *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// Coordinator выполняет одну и ту же операцию для нескольких участников канала.
// Цепочки независимы: ошибка или паника в одной из них логируется и не
// отменяет и не задерживает остальные. Порядок ответов между участниками
// не гарантируется; порядок внутри одной цепочки сохраняется.
type Coordinator struct {
	limit int
	log   *slog.Logger
}

// NewCoordinator создает новый Coordinator.
func NewCoordinator(opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run запускает fn для каждого уникального участника и ждет завершения всех цепочек.
func (c *Coordinator) Run(ctx context.Context, subjects []domain.ChatIdentity, fn SubjectFunc) FanoutResult {
	unique := dedupe(subjects)
	if len(unique) == 0 {
		return FanoutResult{}
	}

	// Контекст не отменяется при ошибке: группа используется только для ожидания и лимита.
	var g errgroup.Group
	if c.limit > 0 {
		g.SetLimit(c.limit)
	}

	var failed atomic.Int64
	for _, subject := range unique {
		g.Go(func() error {
			if err := c.runOne(ctx, subject, fn); err != nil {
				failed.Add(1)
				c.log.WarnContext(ctx, "fan-out subject failed",
					slog.String("subject", subject),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := FanoutResult{Total: len(unique), Failed: int(failed.Load())}
	c.log.DebugContext(ctx, "fan-out finished", slog.Int("total", res.Total), slog.Int("failed", res.Failed))
	return res
}

func (c *Coordinator) runOne(ctx context.Context, subject domain.ChatIdentity, fn SubjectFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, subject)
}

func dedupe(subjects []domain.ChatIdentity) []domain.ChatIdentity {
	seen := make(map[domain.ChatIdentity]struct{}, len(subjects))
	out := make([]domain.ChatIdentity, 0, len(subjects))
	for _, s := range subjects {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
