package ingestion

import "strings"

// CleanText collapses every run of whitespace to a single space, trims the
// ends and removes C0 control characters and DEL. CleanText is idempotent.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	stripped := strings.Map(func(r rune) rune {
		if isStrippedControl(r) {
			return -1
		}
		return r
	}, content)

	return strings.Join(strings.Fields(stripped), " ")
}

// isStrippedControl matches [\x00-\x08\x0B\x0C\x0E-\x1F\x7F]. Tab, LF and CR
// are whitespace and handled by the collapse step.
func isStrippedControl(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return false
	case r == 0x0B || r == 0x0C:
		return true
	case r < 0x20 || r == 0x7F:
		return true
	}
	return false
}

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

