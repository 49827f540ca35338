package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/moodkit/moodbot/internal/domain"
	"github.com/moodkit/moodbot/internal/ports"
)

var (
	// ErrUserNotFound — пользователь не найден даже после попытки создания.
	ErrUserNotFound = errors.New("backend user not found")
	// ErrAmbiguousUser — по одному идентификатору найдено несколько пользователей.
	ErrAmbiguousUser = errors.New("ambiguous backend user")
)

// ResolutionError — идентификатор платформы не удалось сопоставить ровно одному
// пользователю бэкенда.
type ResolutionError struct {
	Identity domain.ChatIdentity
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve user %s: %v", e.Identity, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// UserResolver находит пользователя бэкенда по идентификатору платформы и
// создает его при первом обращении.
//
// Одновременные сообщения от нового пользователя могут привести к двум
// попыткам создания. Резолвер их не дедуплицирует: уникальность обеспечивает
// бэкенд, а отказ бэкенда возвращается как ResolutionError.
type UserResolver struct {
	backend   ports.Backend
	directory ports.Directory
	log       *slog.Logger
}

var _ ports.UserResolver = (*UserResolver)(nil)

// ResolverOption — функциональная опция для настройки UserResolver.
type ResolverOption func(*UserResolver)

// WithResolverLogger устанавливает логгер резолвера.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *UserResolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewUserResolver создает новый UserResolver.
func NewUserResolver(backend ports.Backend, directory ports.Directory, opts ...ResolverOption) *UserResolver {
	r := &UserResolver{
		backend:   backend,
		directory: directory,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve возвращает числовой идентификатор пользователя бэкенда.
func (r *UserResolver) Resolve(ctx context.Context, id domain.ChatIdentity) (int64, error) {
	users, err := r.backend.FetchUsersBySlug(ctx, id)
	if err != nil {
		return 0, &ResolutionError{Identity: id, Err: err}
	}

	switch len(users) {
	case 1:
		return users[0].ID, nil
	case 0:
		// Первое обращение — создаем пользователя ниже.
	default:
		return 0, &ResolutionError{Identity: id, Err: fmt.Errorf("%w: %d matches", ErrAmbiguousUser, len(users))}
	}

	profile, err := r.directory.Profile(ctx, id)
	if err != nil {
		return 0, &ResolutionError{Identity: id, Err: fmt.Errorf("failed to get profile: %w", err)}
	}

	r.log.InfoContext(ctx, "creating backend user", slog.String("user", id))
	if err := r.backend.CreateUser(ctx, id, profile.DisplayName, profile.Email); err != nil {
		return 0, &ResolutionError{Identity: id, Err: err}
	}

	users, err = r.backend.FetchUsersBySlug(ctx, id)
	if err != nil {
		return 0, &ResolutionError{Identity: id, Err: err}
	}

	switch len(users) {
	case 1:
		return users[0].ID, nil
	case 0:
		// Созданный пользователь еще не виден. Повторный опрос не выполняем.
		return 0, &ResolutionError{Identity: id, Err: ErrUserNotFound}
	default:
		return 0, &ResolutionError{Identity: id, Err: fmt.Errorf("%w: %d matches", ErrAmbiguousUser, len(users))}
	}
}
