package bot

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/mattn/go-runewidth"

	"github.com/moodkit/moodbot/internal/domain"
)

// maxColWidth — предельная ширина колонки таблицы пользователей; более
// длинные значения переносятся на следующие строки.
const maxColWidth = 28

// renderUsers форматирует пользователей бэкенда как выровненную таблицу.
// При fenced таблица оборачивается в блок кода: Slack выводит его моноширинным
// шрифтом. Без разметки (Telegram, консоль) ограждения попали бы в текст как есть.
func renderUsers(users []domain.BackendUser, fenced bool) string {
	headers := []string{"id", "slug", "name", "email"}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			strconv.FormatInt(u.ID, 10),
			clean(u.Slug),
			clean(u.Name),
			clean(u.Email),
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		if widths[i] > maxColWidth {
			widths[i] = maxColWidth
		}
	}

	var sb strings.Builder
	if fenced {
		sb.WriteString("```\n")
	}
	writeRow(&sb, headers, widths)

	sb.WriteString("|")
	for _, w := range widths {
		sb.WriteString(strings.Repeat("-", w+2))
		sb.WriteString("|")
	}
	sb.WriteString("\n")

	for _, row := range rows {
		writeRow(&sb, row, widths)
	}
	if fenced {
		sb.WriteString("```")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// writeRow печатает одну логическую строку таблицы; ячейки, не влезающие
// в ширину колонки, занимают несколько физических строк.
func writeRow(sb *strings.Builder, cells []string, widths []int) {
	wrapped := make([][]string, len(cells))
	maxLines := 1
	for i, cell := range cells {
		wrapped[i] = wrapString(cell, widths[i])
		if len(wrapped[i]) > maxLines {
			maxLines = len(wrapped[i])
		}
	}

	for line := 0; line < maxLines; line++ {
		for i := range cells {
			part := ""
			if line < len(wrapped[i]) {
				part = wrapped[i][line]
			}
			sb.WriteString("| ")
			sb.WriteString(part)
			sb.WriteString(generatePadding(part, widths[i]))
			sb.WriteString(" ")
		}
		sb.WriteString("|\n")
	}
}

func clean(s string) string {
	s = strings.ToValidUTF8(s, "")
	return strings.ReplaceAll(s, "\n", " ")
}

// generatePadding добивает ячейку таблицы пользователей пробелами до ширины
// колонки. Имена участников бывают на китайском, японском или корейском:
// моноширинный шрифт блока кода в Slack рисует такие ячейки на позицию шире,
// чем считает runewidth, поэтому им добавляется один пробел.
func generatePadding(cell string, colWidth int) string {
	padding := colWidth - runewidth.StringWidth(cell)
	if padding >= 0 && hasEastAsianScript(cell) {
		padding++
	}
	if padding <= 0 {
		return ""
	}
	return strings.Repeat(" ", padding)
}

func hasEastAsianScript(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Han, unicode.Hangul, unicode.Hiragana, unicode.Katakana) {
			return true
		}
	}
	return false
}

// wrapString разбивает строку по ширине с учетом runewidth. Перенос идет
// по пробелам; слово длиннее ширины режется посередине.
func wrapString(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}

	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	var currentLine strings.Builder
	for _, word := range words {
		wordWidth := runewidth.StringWidth(word)

		if wordWidth > width {
			if currentLine.Len() > 0 {
				lines = append(lines, currentLine.String())
				currentLine.Reset()
			}
			lines = append(lines, splitRunes(word, width)...)
			continue
		}

		lineLen := runewidth.StringWidth(currentLine.String())
		if lineLen > 0 && lineLen+1+wordWidth > width {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
		}

		if currentLine.Len() > 0 {
			currentLine.WriteString(" ")
		}
		currentLine.WriteString(word)
	}

	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}
	return lines
}

func splitRunes(word string, width int) []string {
	var lines []string
	runes := []rune(word)
	for len(runes) > 0 {
		i := 0
		currentWidth := 0
		for i < len(runes) {
			rw := runewidth.RuneWidth(runes[i])
			if currentWidth+rw > width {
				break
			}
			currentWidth += rw
			i++
		}
		if i == 0 {
			// Символ шире колонки: выводим его отдельно, чтобы не зациклиться.
			i = 1
		}
		lines = append(lines, string(runes[:i]))
		runes = runes[i:]
	}
	return lines
}

// renderMoods форматирует записи настроения, по одной на строку.
func renderMoods(moods []domain.MoodEntry) string {
	var sb strings.Builder
	for _, m := range moods {
		sb.WriteString(time.Unix(m.Timestamp, 0).UTC().Format(historyDateLayout))
		sb.WriteString(" ")
		sb.WriteString(m.Label)
		sb.WriteString(" ")
		sb.WriteString(strconv.Itoa(m.Value))
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// renderQuotes форматирует заметки с подписью участника.
func renderQuotes(snippets []domain.Snippet, author string) string {
	var sb strings.Builder
	sb.WriteString(msgQuotesHeader)
	for _, s := range snippets {
		sb.WriteString("\n> ")
		sb.WriteString(s.Content)
		sb.WriteString(" - ")
		sb.WriteString(author)
	}
	return sb.String()
}

// renderAverage форматирует среднюю оценку без лишних нулей.
func renderAverage(name string, avg float64) string {
	return "In the past week, the average mood score of *" + name + "* is " +
		strconv.FormatFloat(avg, 'f', -1, 64)
}
