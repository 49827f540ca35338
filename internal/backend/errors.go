package backend

import (
	"errors"
	"fmt"
)

// ErrUnexpectedStatus возвращается, когда бэкенд ответил статусом вне диапазона 2xx.
var ErrUnexpectedStatus = errors.New("unexpected status code")

// ErrMalformedPayload возвращается, когда тело ответа не удалось разобрать.
var ErrMalformedPayload = errors.New("malformed payload")

// Error — ошибка любого вызова клиента бэкенда.
// Содержит имя операции и исходную причину; вызывающая сторона решает,
// показывать ли её пользователю.
type Error struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("backend %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
