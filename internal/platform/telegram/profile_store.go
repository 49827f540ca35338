package telegram

import (
	"sort"
	"sync"

	"github.com/moodkit/moodbot/internal/domain"
)

// ProfileStore — потокобезопасное in-memory хранилище участников, которых
// бот видел в чатах. Bot API не отдает полный список участников группы,
// поэтому состав канала собирается из отправителей сообщений.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[domain.ChatIdentity]domain.Profile
	members  map[int64]map[domain.ChatIdentity]struct{} // map[chatID]set[userID]
}

// NewProfileStore создает новый экземпляр ProfileStore.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles: make(map[domain.ChatIdentity]domain.Profile),
		members:  make(map[int64]map[domain.ChatIdentity]struct{}),
	}
}

// Remember сохраняет профиль участника и отмечает его в составе чата.
// Повторный вызов обновляет профиль.
func (s *ProfileStore) Remember(chatID int64, p domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
	set, ok := s.members[chatID]
	if !ok {
		set = make(map[domain.ChatIdentity]struct{})
		s.members[chatID] = set
	}
	set[p.ID] = struct{}{}
}

// Get извлекает профиль участника.
// Возвращает профиль и true, если участник известен, иначе — пустой профиль и false.
func (s *ProfileStore) Get(id domain.ChatIdentity) (domain.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	return p, ok
}

// Members возвращает известных участников чата в стабильном порядке.
func (s *ProfileStore) Members(chatID int64) []domain.ChatIdentity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.members[chatID]
	out := make([]domain.ChatIdentity, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Forget удаляет участника из состава чата (например, после выхода из группы).
func (s *ProfileStore) Forget(chatID int64, id domain.ChatIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members[chatID], id)
}
