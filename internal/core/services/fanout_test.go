package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/moodkit/moodbot/internal/domain"
)

func TestMain(m *testing.M) {
	// Соединения keep-alive тестового HTTP-клиента закрываются асинхронно.
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

// replyRecorder собирает ответы, отправленные цепочками.
type replyRecorder struct {
	mu      sync.Mutex
	replies []string
}

func (r *replyRecorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, s)
}

func (r *replyRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.replies...)
}

func TestCoordinator_IsolatesFailures(t *testing.T) {
	c := NewCoordinator(WithCoordinatorLogger(discardLogger()))
	rec := &replyRecorder{}

	res := c.Run(context.Background(), []domain.ChatIdentity{"U1", "U2", "U3"}, func(ctx context.Context, s domain.ChatIdentity) error {
		if s == "U2" {
			return errors.New("resolver failed")
		}
		rec.add(s)
		return nil
	})

	assert.Equal(t, FanoutResult{Total: 3, Failed: 1}, res)
	assert.ElementsMatch(t, []string{"U1", "U3"}, rec.all())
}

func TestCoordinator_RecoversPanics(t *testing.T) {
	c := NewCoordinator(WithCoordinatorLogger(discardLogger()))
	rec := &replyRecorder{}

	res := c.Run(context.Background(), []domain.ChatIdentity{"A", "B"}, func(ctx context.Context, s domain.ChatIdentity) error {
		if s == "A" {
			panic("boom")
		}
		rec.add(s)
		return nil
	})

	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"B"}, rec.all())
}

func TestCoordinator_DeduplicatesSubjects(t *testing.T) {
	c := NewCoordinator(WithCoordinatorLogger(discardLogger()))
	var calls atomic.Int32

	res := c.Run(context.Background(), []domain.ChatIdentity{"U1", "U1", "", "U2", "U1"}, func(ctx context.Context, s domain.ChatIdentity) error {
		calls.Add(1)
		return nil
	})

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, int32(2), calls.Load())
}

// TestCoordinator_SlowSubjectDoesNotBlockOthers проверяет, что ответ быстрого
// участника отправляется до завершения медленного.
func TestCoordinator_SlowSubjectDoesNotBlockOthers(t *testing.T) {
	c := NewCoordinator(WithCoordinatorLogger(discardLogger()))
	release := make(chan struct{})
	fastDone := make(chan struct{})

	done := make(chan FanoutResult, 1)
	go func() {
		done <- c.Run(context.Background(), []domain.ChatIdentity{"slow", "fast"}, func(ctx context.Context, s domain.ChatIdentity) error {
			if s == "slow" {
				<-release
				return nil
			}
			close(fastDone)
			return nil
		})
	}()

	select {
	case <-fastDone:
	case <-time.After(2 * time.Second):
		t.Fatal("fast subject was blocked by the slow one")
	}
	close(release)

	select {
	case res := <-done:
		assert.Equal(t, 2, res.Total)
	case <-time.After(2 * time.Second):
		t.Fatal("fan-out did not finish")
	}
}

func TestCoordinator_ZeroLimitStartsEverySubject(t *testing.T) {
	c := NewCoordinator(WithLimit(0), WithCoordinatorLogger(discardLogger()))
	release := make(chan struct{})
	lastStarted := make(chan struct{})

	subjects := []domain.ChatIdentity{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8", "u9"}
	done := make(chan FanoutResult, 1)
	go func() {
		done <- c.Run(context.Background(), subjects, func(ctx context.Context, s domain.ChatIdentity) error {
			if s == "u9" {
				close(lastStarted)
				return nil
			}
			<-release
			return nil
		})
	}()

	select {
	case <-lastStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("ninth subject waited for hung chains")
	}
	close(release)

	select {
	case res := <-done:
		assert.Equal(t, len(subjects), res.Total)
		assert.Zero(t, res.Failed)
	case <-time.After(2 * time.Second):
		t.Fatal("fan-out did not finish")
	}
}

func TestCoordinator_Limit(t *testing.T) {
	c := NewCoordinator(WithLimit(2), WithCoordinatorLogger(discardLogger()))
	var inFlight, peak atomic.Int32

	subjects := []domain.ChatIdentity{"a", "b", "c", "d", "e", "f"}
	res := c.Run(context.Background(), subjects, func(ctx context.Context, s domain.ChatIdentity) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	require.Equal(t, len(subjects), res.Total)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestCoordinator_Empty(t *testing.T) {
	c := NewCoordinator()
	res := c.Run(context.Background(), nil, func(ctx context.Context, s domain.ChatIdentity) error {
		t.Fatal("must not be called")
		return nil
	})
	assert.Zero(t, res.Total)
}
