package text

import (
	"strings"
	"unicode"
)

// IsSpace reports whether r separates words. It is unicode.IsSpace plus the ASCII
// separators FS, GS, RS and US (0x1c-0x1f). The cleaner keeps exactly these runes and
// the tokenizer splits on them, so cleaning never merges two words.
func IsSpace(r rune) bool {
	return unicode.IsSpace(r) || ('\x1c' <= r && r <= '\x1f')
}

func keep(r rune) bool {
	return ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') || IsSpace(r)
}

// Normalize lowercases s and deletes every character outside [a-z0-9] and whitespace.
// Deleted characters are not replaced, so "I'm" becomes "im".
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if keep(r) {
			return r
		}
		return -1
	}, strings.ToLower(s))
}
