package ports

import (
	"context"

	"github.com/moodkit/moodbot/internal/domain"
)

// Backend определяет интерфейс сервиса дневника настроения.
// Каждый вызов — ровно один сетевой запрос, без повторов и кэширования.
type Backend interface {
	FetchAllUsers(ctx context.Context) ([]domain.BackendUser, error)
	FetchUsersBySlug(ctx context.Context, slug string) ([]domain.BackendUser, error)
	CreateUser(ctx context.Context, slug, name, email string) error
	CreateMood(ctx context.Context, userID, timestamp int64, label string, value int) (domain.Ack, error)
	CreateSnippet(ctx context.Context, userID, timestamp int64, content string) (domain.Ack, error)
	FetchMoods(ctx context.Context, userID, start, end int64) ([]domain.MoodEntry, error)
	// FetchAverages возвращает разнородный список, в котором среднее несёт не более одного элемента.
	FetchAverages(ctx context.Context, userID, start, end int64) ([]domain.Average, error)
	FetchSnippets(ctx context.Context, userID, start, end int64) ([]domain.Snippet, error)
}

// Directory определяет справочник платформы: профили участников и состав каналов.
type Directory interface {
	Profile(ctx context.Context, id domain.ChatIdentity) (domain.Profile, error)
	Channel(ctx context.Context, channelID string) (domain.ChannelContext, error)
}

// Sender отправляет текстовое сообщение в канал.
type Sender interface {
	Send(ctx context.Context, channelID, text string) error
}

// UserResolver сопоставляет идентификатор платформы с пользователем бэкенда.
type UserResolver interface {
	Resolve(ctx context.Context, id domain.ChatIdentity) (int64, error)
}

// Platform объединяет всё, что бот получает от адаптера платформы.
type Platform interface {
	Directory
	Sender
	// Connect аутентифицирует бота и определяет его учетную запись.
	Connect(ctx context.Context) error
	// Self возвращает учетную запись бота. Значение известно только после
	// Connect; до этого поля пусты.
	Self() domain.BotIdentity
	// Messages возвращает поток входящих сообщений. Канал закрывается при остановке.
	Messages() <-chan domain.Message
	// Start принимает события платформы и блокируется до отмены контекста.
	Start(ctx context.Context) error
}
