package command

import "math/rand/v2"

// HelloPhrases — фиксированный набор ответов на приветствие.
var HelloPhrases = []string{
	"Hello! How are you feeling today?",
	"Hi there! Tell me how you feel with `feel :emoji: <1-6>`.",
	"Hey! Nice to see you.",
	"Hello! Don't forget to record your mood today.",
	"Hi! Type `help` to see what I can do.",
}

// PickPhrase выбирает фразу из набора. intn должна возвращать число из [0, n);
// nil означает генератор по умолчанию.
func PickPhrase(phrases []string, intn func(n int) int) string {
	if len(phrases) == 0 {
		return ""
	}
	if intn == nil {
		intn = rand.IntN
	}
	i := intn(len(phrases))
	if i < 0 || i >= len(phrases) {
		i = 0
	}
	return phrases[i]
}
