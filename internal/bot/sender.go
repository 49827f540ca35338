package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/moodkit/moodbot/internal/ports"
)

// channelTTL — время, после которого неиспользуемый лимитер канала удаляется.
const channelTTL = 10 * time.Minute

type channelLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ThrottledSender ограничивает частоту отправки сообщений в каждый канал
// отдельно. Ответы рассылки по участникам уходят в один канал почти
// одновременно, а платформы ограничивают частоту сообщений на канал.
type ThrottledSender struct {
	next  ports.Sender
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	channels map[string]*channelLimiter
	lookups  uint64
}

var _ ports.Sender = (*ThrottledSender)(nil)

// NewThrottledSender оборачивает next. rps <= 0 отключает ограничение;
// burst <= 0 приводится к 1.
func NewThrottledSender(next ports.Sender, rps float64, burst int) *ThrottledSender {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &ThrottledSender{
		next:     next,
		rps:      limit,
		burst:    burst,
		channels: make(map[string]*channelLimiter),
	}
}

// Send дожидается свободного слота для канала и передает сообщение дальше.
func (s *ThrottledSender) Send(ctx context.Context, channelID, text string) error {
	if err := s.limiter(channelID).Wait(ctx); err != nil {
		return fmt.Errorf("send throttled: %w", err)
	}
	return s.next.Send(ctx, channelID, text)
}

func (s *ThrottledSender) limiter(channelID string) *rate.Limiter {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Периодически удаляем лимитеры давно молчащих каналов.
	s.lookups++
	if s.lookups >= 1000 {
		for k, v := range s.channels {
			if now.Sub(v.lastSeen) >= channelTTL {
				delete(s.channels, k)
			}
		}
		s.lookups = 0
	}

	if v, ok := s.channels[channelID]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(s.rps, s.burst)
	s.channels[channelID] = &channelLimiter{limiter: lim, lastSeen: now}
	return lim
}
