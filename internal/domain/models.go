package domain

import "time"

// SecondsPerDay — длина суток в секундах, используется для выравнивания меток времени.
const SecondsPerDay int64 = 86400

// ChatIdentity — непрозрачный идентификатор участника на платформе обмена сообщениями.
type ChatIdentity = string

// BackendUser представляет запись пользователя в сервисе дневника настроения.
type BackendUser struct {
	ID    int64  `json:"id"`
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// MoodEntry — одна запись настроения пользователя за день.
type MoodEntry struct {
	UserID    int64  `json:"user_id"`
	Timestamp int64  `json:"timestamp"`
	Label     string `json:"label"`
	Value     int    `json:"value"`
}

// Snippet — произвольная заметка, привязанная к дню.
type Snippet struct {
	UserID    int64  `json:"user_id"`
	Timestamp int64  `json:"timestamp"`
	Content   string `json:"content"`
}

// Average — элемент ответа /average. Поле Average заполнено только у одного
// элемента списка (если вообще заполнено), остальные элементы содержат прочие агрегаты.
type Average struct {
	Average *float64 `json:"average,omitempty"`
}

// Ack — подтверждение бэкенда на создание записи.
type Ack struct {
	StatusCode string `json:"StatusCode"`
	Message    string `json:"Message"`
}

// Created сообщает, что бэкенд принял новую запись.
// Любой другой код означает, что запись за этот день уже существует.
func (a Ack) Created() bool {
	return a.StatusCode == "200"
}

// Profile — данные участника из справочника платформы.
type Profile struct {
	ID          ChatIdentity
	DisplayName string
	FirstName   string
	Email       string
	IsBot       bool
	Deleted     bool
}

// Human сообщает, является ли участник живым человеком.
func (p Profile) Human() bool {
	return !p.IsBot && !p.Deleted
}

// ChannelContext описывает канал, из которого пришло сообщение.
// Ядро не кэширует этот объект и получает его заново для каждого сообщения.
type ChannelContext struct {
	ChannelID string
	IsPublic  bool
	Members   []ChatIdentity
}

// Message — нормализованное входящее сообщение.
// Отредактированные сообщения приводятся к этой же форме до классификации.
type Message struct {
	// ID — идентификатор корреляции для логов.
	ID        string
	Channel   string
	User      ChatIdentity
	Text      string
	Timestamp time.Time
	Edited    bool
}

// BotIdentity — собственная учетная запись бота на платформе.
// Mention — токен, которым пользователи обращаются к боту в тексте
// (например, "<@U123>" в Slack или "@moodbot" в Telegram).
type BotIdentity struct {
	ID      ChatIdentity
	Mention string
}

// Unix возвращает метку времени сообщения в секундах UTC.
func (m Message) Unix() int64 {
	return m.Timestamp.Unix()
}

// DayAlign отбрасывает время суток и возвращает начало дня UTC.
// Для отрицательных значений используется округление вниз.
func DayAlign(ts int64) int64 {
	rem := ts % SecondsPerDay
	if rem < 0 {
		rem += SecondsPerDay
	}
	return ts - rem
}
