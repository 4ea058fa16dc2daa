package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCount(t *testing.T) {
	cases := []struct {
		in     string
		expect int
	}{
		{"1,234", 1234},
		{"567文字", 567},
		{" 89 ", 89},
		{"", 0},
		{"no digits", 0},
		{"12 34", 1234},
	}
	for _, test := range cases {
		require.Equal(t, test.expect, ParseCount(test.in), "in=%q", test.in)
	}
}

func TestTruncateBytes(t *testing.T) {
	// short enough, returned unchanged
	require.Equal(t, "abc", TruncateBytes("abc", 10, "…"))

	// the suffix counts against the limit
	require.Equal(t, "abcdef…", TruncateBytes("abcdefghij", 9, "…"))

	// multi-byte runes are never split
	out := TruncateBytes("あいうえお", 10, "…")
	require.Equal(t, "あい…", out)
	require.LessOrEqual(t, len(out), 10)
}
