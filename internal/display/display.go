// Package display renders record values for terminal output.
package display

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Placeholder is shown for empty values.
const Placeholder = "-"

// DefaultTruncateLength is the length TruncateText uses when given 0.
const DefaultTruncateLength = 50

// DateLayout is the layout FormatDate renders dates in.
const DateLayout = "1/2/2006"

// FormatDate renders a date or timestamp string as a calendar date. Anything
// after a "T" is ignored. Empty input renders as Placeholder; input that is not
// a date is returned unchanged.
func FormatDate(date string) string {
	if strings.TrimSpace(date) == "" {
		return Placeholder
	}
	day, _, _ := strings.Cut(date, "T")
	t, err := time.Parse(time.DateOnly, day)
	if err != nil {
		return date
	}
	return t.Format(DateLayout)
}

// TruncateText shortens text to at most length characters followed by "...".
// A length of 0 means DefaultTruncateLength. Empty text renders as Placeholder.
func TruncateText(text string, length int) string {
	if text == "" {
		return Placeholder
	}
	if length <= 0 {
		length = DefaultTruncateLength
	}
	if utf8.RuneCountInString(text) <= length {
		return text
	}
	runes := []rune(text)
	return string(runes[:length]) + "..."
}
