package textutil

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseCount strips everything that is not an ASCII digit and parses the
// rest. Counts on listing pages come formatted ("1,234", "567文字"), so
// stripping first keeps the parse stable across markup changes. An input
// with no digits at all parses to 0.
func ParseCount(s string) int {
	var b strings.Builder
	for _, c := range []byte(s) {
		if c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return n
}

// TruncateBytes shortens s to at most maxBytes bytes of UTF-8 without
// splitting a multi-byte sequence. The suffix is appended only when
// something was actually cut, and counts against the limit.
func TruncateBytes(s string, maxBytes int, suffix string) string {
	if len(s) <= maxBytes {
		return s
	}
	budget := maxBytes - len(suffix)
	if budget < 0 {
		budget = 0
	}
	for len(s) > budget {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	return s + suffix
}
