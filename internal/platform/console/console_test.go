package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodkit/moodbot/internal/domain"
)

func newTestTerminal(in io.Reader, out io.Writer) *Terminal {
	t := newTerminal(in, out,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithUser("alice", "Alice Smith", "alice@example.com"),
	)
	t.now = func() time.Time { return time.Unix(1700000000, 0) }
	return t
}

func TestTerminal_StartReadsLines(t *testing.T) {
	term := newTestTerminal(strings.NewReader("history\n\n  feel :happy: 4  \nhelp"), io.Discard)
	require.NoError(t, term.Connect(context.Background()))

	done := make(chan error, 1)
	go func() { done <- term.Start(context.Background()) }()

	var got []domain.Message
	for msg := range term.Messages() {
		got = append(got, msg)
	}
	require.NoError(t, <-done)

	require.Len(t, got, 3)
	assert.Equal(t, "history", got[0].Text)
	assert.Equal(t, "feel :happy: 4", got[1].Text)
	assert.Equal(t, "help", got[2].Text)
	for _, msg := range got {
		assert.Equal(t, ChannelID, msg.Channel)
		assert.Equal(t, "alice", msg.User)
		assert.Equal(t, int64(1700000000), msg.Unix())
		assert.NotEmpty(t, msg.ID)
	}
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("device gone") }

func TestTerminal_StartReportsReadErrors(t *testing.T) {
	term := newTestTerminal(brokenReader{}, io.Discard)
	err := term.Start(context.Background())
	assert.ErrorContains(t, err, "device gone")
}

func TestTerminal_StartStopsOnCancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	term := newTestTerminal(r, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- term.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("terminal did not stop")
	}
}

func TestTerminal_Send(t *testing.T) {
	var out bytes.Buffer
	term := newTestTerminal(strings.NewReader(""), &out)

	require.NoError(t, term.Send(context.Background(), ChannelID, "No mood found!"))
	assert.Equal(t, "moodbot: No mood found!\n", out.String())

	assert.Error(t, term.Send(context.Background(), "general", "hi"))
}

func TestTerminal_Directory(t *testing.T) {
	term := newTestTerminal(strings.NewReader(""), io.Discard)
	ctx := context.Background()

	p, err := term.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.Profile{ID: "alice", DisplayName: "Alice Smith", FirstName: "Alice", Email: "alice@example.com"}, p)

	bot, err := term.Profile(ctx, BotID)
	require.NoError(t, err)
	assert.False(t, bot.Human())
	assert.Equal(t, BotID, term.Self().ID)

	_, err = term.Profile(ctx, "bob")
	assert.ErrorIs(t, err, ErrUnknownUser)

	cc, err := term.Channel(ctx, ChannelID)
	require.NoError(t, err)
	assert.False(t, cc.IsPublic)
	assert.Equal(t, []domain.ChatIdentity{"alice"}, cc.Members)

	_, err = term.Channel(ctx, "general")
	assert.Error(t, err)
}
