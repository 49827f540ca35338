package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/moodkit/moodbot/internal/domain"
)

// Бэкенд непоследователен в типах: идентификаторы и метки времени
// приходят то числом, то строкой. Ниже — типы, принимающие оба варианта.

type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = flexInt(i)
		return nil
	}
	// Допускаем дробную запись целого числа, например "1508025600.000".
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", s, err)
	}
	*f = flexInt(int64(v))
	return nil
}

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(data) == "null" {
		*f = ""
		return nil
	}
	*f = flexString(data)
	return nil
}

type userDTO struct {
	ID    flexInt `json:"id"`
	Slug  string  `json:"slug"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
}

func (u userDTO) toDomain() domain.BackendUser {
	return domain.BackendUser{ID: int64(u.ID), Slug: u.Slug, Name: u.Name, Email: u.Email}
}

type moodDTO struct {
	UserID    flexInt `json:"user_id"`
	Timestamp flexInt `json:"timestamp"`
	Label     string  `json:"label"`
	Value     flexInt `json:"value"`
}

func (m moodDTO) toDomain() domain.MoodEntry {
	return domain.MoodEntry{
		UserID:    int64(m.UserID),
		Timestamp: int64(m.Timestamp),
		Label:     m.Label,
		Value:     int(m.Value),
	}
}

type snippetDTO struct {
	UserID    flexInt `json:"user_id"`
	Timestamp flexInt `json:"timestamp"`
	Content   string  `json:"content"`
}

func (s snippetDTO) toDomain() domain.Snippet {
	return domain.Snippet{UserID: int64(s.UserID), Timestamp: int64(s.Timestamp), Content: s.Content}
}

type ackDTO struct {
	StatusCode flexString `json:"StatusCode"`
	Message    string     `json:"Message"`
}

// decodeAverages разбирает разнородный ответ /average. Элементы, не являющиеся
// объектами, сохраняются как пустые Average, чтобы позиции в списке не сдвигались.
func decodeAverages(raw []json.RawMessage) ([]domain.Average, error) {
	out := make([]domain.Average, 0, len(raw))
	for i, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			out = append(out, domain.Average{})
			continue
		}
		var obj struct {
			Average *flexFloat `json:"average"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		var avg domain.Average
		if obj.Average != nil {
			v := float64(*obj.Average)
			avg.Average = &v
		}
		out = append(out, avg)
	}
	return out, nil
}
