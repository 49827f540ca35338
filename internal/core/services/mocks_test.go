package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/moodkit/moodbot/internal/domain"
)

// mockBackend — мок для интерфейса ports.Backend.
type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) FetchAllUsers(ctx context.Context) ([]domain.BackendUser, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.([]domain.BackendUser), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) FetchUsersBySlug(ctx context.Context, slug string) ([]domain.BackendUser, error) {
	args := m.Called(ctx, slug)
	if res := args.Get(0); res != nil {
		return res.([]domain.BackendUser), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) CreateUser(ctx context.Context, slug, name, email string) error {
	args := m.Called(ctx, slug, name, email)
	return args.Error(0)
}

func (m *mockBackend) CreateMood(ctx context.Context, userID, timestamp int64, label string, value int) (domain.Ack, error) {
	args := m.Called(ctx, userID, timestamp, label, value)
	return args.Get(0).(domain.Ack), args.Error(1)
}

func (m *mockBackend) CreateSnippet(ctx context.Context, userID, timestamp int64, content string) (domain.Ack, error) {
	args := m.Called(ctx, userID, timestamp, content)
	return args.Get(0).(domain.Ack), args.Error(1)
}

func (m *mockBackend) FetchMoods(ctx context.Context, userID, start, end int64) ([]domain.MoodEntry, error) {
	args := m.Called(ctx, userID, start, end)
	if res := args.Get(0); res != nil {
		return res.([]domain.MoodEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) FetchAverages(ctx context.Context, userID, start, end int64) ([]domain.Average, error) {
	args := m.Called(ctx, userID, start, end)
	if res := args.Get(0); res != nil {
		return res.([]domain.Average), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBackend) FetchSnippets(ctx context.Context, userID, start, end int64) ([]domain.Snippet, error) {
	args := m.Called(ctx, userID, start, end)
	if res := args.Get(0); res != nil {
		return res.([]domain.Snippet), args.Error(1)
	}
	return nil, args.Error(1)
}

// stubDirectory — простая реализация ports.Directory на функциях.
type stubDirectory struct {
	profileFunc func(ctx context.Context, id domain.ChatIdentity) (domain.Profile, error)
}

func (d *stubDirectory) Profile(ctx context.Context, id domain.ChatIdentity) (domain.Profile, error) {
	if d.profileFunc != nil {
		return d.profileFunc(ctx, id)
	}
	return domain.Profile{ID: id, DisplayName: "User " + id, Email: id + "@example.com"}, nil
}

func (d *stubDirectory) Channel(ctx context.Context, channelID string) (domain.ChannelContext, error) {
	return domain.ChannelContext{ChannelID: channelID}, nil
}
