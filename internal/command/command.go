// Package command разбирает текст входящего сообщения в одну из фиксированных команд бота.
package command

import "fmt"

// Kind — вид команды.
type Kind int

const (
	Unrecognized Kind = iota
	Feel
	Felt
	InvalidFeel
	History
	Echo
	Quotes
	Users
	WhoAmI
	Help
	Hello
)

var kindNames = map[Kind]string{
	Unrecognized: "unrecognized",
	Feel:         "feel",
	Felt:         "felt",
	InvalidFeel:  "invalid_feel",
	History:      "history",
	Echo:         "echo",
	Quotes:       "quotes",
	Users:        "users",
	WhoAmI:       "whoami",
	Help:         "help",
	Hello:        "hello",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Command — результат классификации сообщения.
// Поля Emoji, Value и Snippet заполняются только для Feel и Felt,
// Usage — только для InvalidFeel.
type Command struct {
	Kind    Kind
	Emoji   string
	Value   int
	Snippet string
	Usage   string
}

// DayOffset возвращает сдвиг в секундах, применяемый к метке времени
// сообщения перед выравниванием на начало дня.
func (c Command) DayOffset() int64 {
	if c.Kind == Felt {
		return -86400
	}
	return 0
}

// FanOut сообщает, выполняется ли команда для всех участников канала.
func (c Command) FanOut() bool {
	switch c.Kind {
	case History, Echo, Quotes:
		return true
	default:
		return false
	}
}
