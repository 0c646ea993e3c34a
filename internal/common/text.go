package common

import (
	"strings"
	"unicode/utf8"
)

// TruncateText collapses whitespace and cuts text to at most max runes, backing
// off to the last word boundary and appending an ellipsis when it cuts.
func TruncateText(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:max])
	if i := strings.LastIndex(cut, " "); i > max/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:.-") + "…"
}
