package backend_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodkit/moodbot/internal/backend"
	"github.com/moodkit/moodbot/internal/backend/backendtest"
	"github.com/moodkit/moodbot/internal/domain"
)

func newClient(t *testing.T, url string) *backend.Client {
	t.Helper()
	return backend.NewClient(url,
		backend.WithTimeout(2*time.Second),
		backend.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestClient_Users(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	client := newClient(t, srv.URL)
	ctx := context.Background()

	srv.AddUser("U1", "Ann", "ann@example.com")
	require.NoError(t, client.CreateUser(ctx, "U2", "Bob", "bob@example.com"))

	all, err := client.FetchAllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	bySlug, err := client.FetchUsersBySlug(ctx, "U2")
	require.NoError(t, err)
	require.Len(t, bySlug, 1)
	assert.Equal(t, "Bob", bySlug[0].Name)
	assert.Equal(t, "bob@example.com", bySlug[0].Email)

	t.Run("повторное создание возвращает BackendError", func(t *testing.T) {
		err := client.CreateUser(ctx, "U2", "Bob", "bob@example.com")
		var be *backend.Error
		require.ErrorAs(t, err, &be)
		assert.Equal(t, backend.OpCreateUser, be.Op)
		assert.Equal(t, http.StatusConflict, be.StatusCode)
		assert.ErrorIs(t, err, backend.ErrUnexpectedStatus)
	})
}

func TestClient_CreateMood_DayAligned(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	client := newClient(t, srv.URL)
	ctx := context.Background()

	ack, err := client.CreateMood(ctx, 7, 1508000000, ":smile:", 5)
	require.NoError(t, err)
	assert.True(t, ack.Created())
	assert.Equal(t, "Mood saved!", ack.Message)

	moods := srv.Moods()
	require.Len(t, moods, 1)
	assert.Equal(t, domain.DayAlign(1508000000), moods[0].Timestamp)
	assert.Equal(t, ":smile:", moods[0].Label)
	assert.Equal(t, 5, moods[0].Value)

	t.Run("вторая запись за тот же день не создаётся", func(t *testing.T) {
		ack, err := client.CreateMood(ctx, 7, 1508000000+600, ":smile:", 4)
		require.NoError(t, err)
		assert.False(t, ack.Created())
	})
}

func TestClient_CreateSnippet_NumericStatusCode(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	client := newClient(t, srv.URL)

	ack, err := client.CreateSnippet(context.Background(), 3, 1508000000, `"rough day"`)
	require.NoError(t, err)
	assert.True(t, ack.Created(), "StatusCode передан числом")

	snippets := srv.Snippets()
	require.Len(t, snippets, 1)
	assert.Equal(t, `"rough day"`, snippets[0].Content)
	assert.Equal(t, domain.DayAlign(1508000000), snippets[0].Timestamp)
}

func TestClient_FetchMoodsAndSnippets(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	client := newClient(t, srv.URL)
	ctx := context.Background()

	srv.AddMood(domain.MoodEntry{UserID: 1, Timestamp: 1000, Label: ":a:", Value: 2})
	srv.AddMood(domain.MoodEntry{UserID: 1, Timestamp: 5000, Label: ":b:", Value: 3})
	srv.AddMood(domain.MoodEntry{UserID: 2, Timestamp: 1000, Label: ":c:", Value: 4})
	srv.AddSnippet(domain.Snippet{UserID: 1, Timestamp: 1000, Content: "hi"})

	moods, err := client.FetchMoods(ctx, 1, 0, 2000)
	require.NoError(t, err)
	require.Len(t, moods, 1)
	assert.Equal(t, ":a:", moods[0].Label)

	snippets, err := client.FetchSnippets(ctx, 1, 0, 2000)
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, "hi", snippets[0].Content)
}

func TestClient_FetchAverages_Heterogeneous(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	client := newClient(t, srv.URL)

	srv.SetAverages(map[string]any{}, map[string]any{"average": 4.5}, map[string]any{"count": 2}, 17, "x")

	averages, err := client.FetchAverages(context.Background(), 1, 0, 10)
	require.NoError(t, err)
	require.Len(t, averages, 5)
	assert.Nil(t, averages[0].Average)
	require.NotNil(t, averages[1].Average)
	assert.Equal(t, 4.5, *averages[1].Average)
	assert.Nil(t, averages[2].Average)
	assert.Nil(t, averages[3].Average)
}

func TestClient_StringTypedFields(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/users":
			_, _ = w.Write([]byte(`[{"id":"42","slug":"U9","name":"Zed","email":"z@example.com"}]`))
		case "/moods":
			_, _ = w.Write([]byte(`[{"timestamp":"1507939200","label":":x:","value":"6"}]`))
		case "/average":
			_, _ = w.Write([]byte(`[{"average":"3.25"}]`))
		}
	}))
	defer ts.Close()
	client := newClient(t, ts.URL)
	ctx := context.Background()

	users, err := client.FetchUsersBySlug(ctx, "U9")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(42), users[0].ID)

	moods, err := client.FetchMoods(ctx, 42, 0, 1)
	require.NoError(t, err)
	require.Len(t, moods, 1)
	assert.Equal(t, int64(1507939200), moods[0].Timestamp)
	assert.Equal(t, 6, moods[0].Value)

	averages, err := client.FetchAverages(ctx, 42, 0, 1)
	require.NoError(t, err)
	require.Len(t, averages, 1)
	require.NotNil(t, averages[0].Average)
	assert.Equal(t, 3.25, *averages[0].Average)
}

func TestClient_Errors(t *testing.T) {
	t.Run("malformed payload", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		}))
		defer ts.Close()

		_, err := newClient(t, ts.URL).FetchAllUsers(context.Background())
		var be *backend.Error
		require.ErrorAs(t, err, &be)
		assert.Equal(t, backend.OpFetchAllUsers, be.Op)
		assert.ErrorIs(t, err, backend.ErrMalformedPayload)
	})

	t.Run("server error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer ts.Close()

		_, err := newClient(t, ts.URL).FetchMoods(context.Background(), 1, 0, 1)
		var be *backend.Error
		require.ErrorAs(t, err, &be)
		assert.Equal(t, backend.OpFetchMoods, be.Op)
		assert.Equal(t, http.StatusInternalServerError, be.StatusCode)
		assert.Contains(t, be.Error(), "boom")
	})

	t.Run("conflict on create mood is an ack", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "exists", http.StatusConflict)
		}))
		defer ts.Close()

		ack, err := newClient(t, ts.URL).CreateMood(context.Background(), 1, 1, ":x:", 1)
		require.NoError(t, err)
		assert.False(t, ack.Created())
	})

	t.Run("unreachable backend", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		url := ts.URL
		ts.Close()

		_, err := newClient(t, url).FetchAllUsers(context.Background())
		var be *backend.Error
		require.ErrorAs(t, err, &be)
		assert.Zero(t, be.StatusCode)
		assert.False(t, errors.Is(err, backend.ErrUnexpectedStatus))
	})
}
