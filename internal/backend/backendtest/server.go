// Package backendtest предоставляет in-memory реализацию REST API дневника
// настроения для тестов. Сервер соблюдает уникальность slug, как настоящий бэкенд.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/moodkit/moodbot/internal/domain"
)

// Server — фейковый бэкенд поверх httptest.Server.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	nextID   int64
	users    []domain.BackendUser
	moods    []domain.MoodEntry
	snippets []domain.Snippet
	averages []any
	calls    map[string]int
	hidden   bool
}

// New запускает фейковый бэкенд. Сервер закрывается вызывающей стороной.
func New() *Server {
	s := &Server{nextID: 1, calls: make(map[string]int)}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.count)

	r.Get("/users", s.listUsers)
	r.Post("/users", s.createUser)
	r.Get("/moods", s.listMoods)
	r.Post("/moods", s.createMood)
	r.Get("/average", s.listAverages)
	r.Get("/snippets", s.listSnippets)
	r.Post("/snippets", s.createSnippet)

	s.Server = httptest.NewServer(r)
	return s
}

// AddUser добавляет пользователя напрямую, минуя API.
func (s *Server) AddUser(slug, name, email string) domain.BackendUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := domain.BackendUser{ID: s.nextID, Slug: slug, Name: name, Email: email}
	s.nextID++
	s.users = append(s.users, u)
	return u
}

// HideUsers имитирует задержку видимости: поиск по slug перестает
// возвращать пользователей, хотя уникальность при создании соблюдается.
func (s *Server) HideUsers(hide bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden = hide
}

// AddMood добавляет запись настроения напрямую.
func (s *Server) AddMood(m domain.MoodEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moods = append(s.moods, m)
}

// AddSnippet добавляет заметку напрямую.
func (s *Server) AddSnippet(sn domain.Snippet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snippets = append(s.snippets, sn)
}

// SetAverages задает ответ /average как есть.
func (s *Server) SetAverages(items ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.averages = items
}

// Moods возвращает копию сохраненных записей настроения.
func (s *Server) Moods() []domain.MoodEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.MoodEntry(nil), s.moods...)
}

// Snippets возвращает копию сохраненных заметок.
func (s *Server) Snippets() []domain.Snippet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Snippet(nil), s.snippets...)
}

// Calls возвращает количество запросов "METHOD /path".
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")
	s.mu.Lock()
	out := make([]domain.BackendUser, 0, len(s.users))
	for _, u := range s.users {
		if slug == "" || u.Slug == slug {
			out = append(out, u)
		}
	}
	hide := s.hidden
	s.mu.Unlock()
	if hide && slug != "" {
		out = out[:0]
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	slug := r.PostForm.Get("slug")
	s.mu.Lock()
	for _, u := range s.users {
		if u.Slug == slug {
			s.mu.Unlock()
			http.Error(w, "slug already exists", http.StatusConflict)
			return
		}
	}
	u := domain.BackendUser{ID: s.nextID, Slug: slug, Name: r.PostForm.Get("name"), Email: r.PostForm.Get("email")}
	s.nextID++
	s.users = append(s.users, u)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) createMood(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	userID, _ := strconv.ParseInt(r.PostForm.Get("user_id"), 10, 64)
	ts, _ := strconv.ParseInt(r.PostForm.Get("timestamp"), 10, 64)
	value, _ := strconv.Atoi(r.PostForm.Get("value"))

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.moods {
		if m.UserID == userID && m.Timestamp == ts {
			writeJSON(w, http.StatusOK, map[string]string{"StatusCode": "400", "Message": "mood already exists"})
			return
		}
	}
	s.moods = append(s.moods, domain.MoodEntry{UserID: userID, Timestamp: ts, Label: r.PostForm.Get("label"), Value: value})
	writeJSON(w, http.StatusOK, map[string]string{"StatusCode": "200", "Message": "Mood saved!"})
}

func (s *Server) createSnippet(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	userID, _ := strconv.ParseInt(r.PostForm.Get("user_id"), 10, 64)
	ts, _ := strconv.ParseInt(r.PostForm.Get("timestamp"), 10, 64)

	s.mu.Lock()
	s.snippets = append(s.snippets, domain.Snippet{UserID: userID, Timestamp: ts, Content: r.PostForm.Get("content")})
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"StatusCode": 200, "Message": "Snippet saved!"})
}

func (s *Server) listMoods(w http.ResponseWriter, r *http.Request) {
	userID, start, end := rangeParams(r)
	s.mu.Lock()
	out := make([]domain.MoodEntry, 0)
	for _, m := range s.moods {
		if m.UserID == userID && m.Timestamp >= start && m.Timestamp <= end {
			out = append(out, m)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listSnippets(w http.ResponseWriter, r *http.Request) {
	userID, start, end := rangeParams(r)
	s.mu.Lock()
	out := make([]domain.Snippet, 0)
	for _, sn := range s.snippets {
		if sn.UserID == userID && sn.Timestamp >= start && sn.Timestamp <= end {
			out = append(out, sn)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listAverages(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := s.averages
	s.mu.Unlock()
	if out == nil {
		out = []any{}
	}
	writeJSON(w, http.StatusOK, out)
}

func rangeParams(r *http.Request) (userID, start, end int64) {
	q := r.URL.Query()
	userID, _ = strconv.ParseInt(q.Get("user_id"), 10, 64)
	start, _ = strconv.ParseInt(q.Get("start_date"), 10, 64)
	end, _ = strconv.ParseInt(q.Get("end_date"), 10, 64)
	return userID, start, end
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
