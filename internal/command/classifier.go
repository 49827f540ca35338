package command

import (
	"regexp"
	"strconv"
	"strings"
)

// FeelUsage — подсказка, возвращаемая при неверных аргументах feel/felt.
const FeelUsage = "Usage: `feel :emoji: <value 1-6> [snippet]` (or `felt` for yesterday), e.g. `feel :smile: 5 \"great day\"`"

var (
	emojiRegexp = regexp.MustCompile(`^:[\w-]+:$`)
	valueRegexp = regexp.MustCompile(`^[1-6]$`)
)

// Classify определяет команду по тексту сообщения, адресованного не боту напрямую.
func Classify(text string) Command {
	return ClassifyAddressed(text, false)
}

// ClassifyAddressed определяет команду по тексту сообщения.
// Первый токен (без учета регистра) выбирает семейство команды. Если бот
// упомянут явно, приветствием считается любой первый токен, начинающийся с "hello".
// Нераспознанный текст дает Unrecognized, а не ошибку.
func ClassifyAddressed(text string, addressed bool) Command {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return Command{Kind: Unrecognized}
	}

	first := strings.ToLower(tokens[0])
	switch first {
	case "users":
		return Command{Kind: Users}
	case "history":
		return Command{Kind: History}
	case "whoami":
		return Command{Kind: WhoAmI}
	case "echo":
		return Command{Kind: Echo}
	case "quotes":
		return Command{Kind: Quotes}
	case "help":
		return Command{Kind: Help}
	case "hello":
		return Command{Kind: Hello}
	}

	if addressed && strings.HasPrefix(first, "hello") {
		return Command{Kind: Hello}
	}

	if len(first) >= 4 {
		switch first[:4] {
		case "feel":
			return parseFeel(Feel, tokens[1:])
		case "felt":
			return parseFeel(Felt, tokens[1:])
		}
	}

	return Command{Kind: Unrecognized}
}

// parseFeel разбирает аргументы "[emoji] [value] [snippet...]".
// Эмодзи и оценка могут идти в любом порядке; остальные токены
// склеиваются одним пробелом в заметку.
func parseFeel(kind Kind, args []string) Command {
	invalid := Command{Kind: InvalidFeel, Usage: FeelUsage}
	if len(args) < 2 {
		return invalid
	}

	var emoji, value string
	switch {
	case emojiRegexp.MatchString(args[0]) && valueRegexp.MatchString(args[1]):
		emoji, value = args[0], args[1]
	case valueRegexp.MatchString(args[0]) && emojiRegexp.MatchString(args[1]):
		value, emoji = args[0], args[1]
	default:
		return invalid
	}

	v, err := strconv.Atoi(value)
	if err != nil || v < 1 || v > 6 {
		return invalid
	}

	return Command{
		Kind:    kind,
		Emoji:   emoji,
		Value:   v,
		Snippet: strings.Join(args[2:], " "),
	}
}
