package characolor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestColorizeKnownCast(t *testing.T) {
	content := strings.Join([]string{
		"卯月「おはようございます、プロデューサーさん!」",
		"凛「……おはよう」",
		"未央「今日もがんばろー!」",
	}, "\n")

	out := Colorize(content)
	require.Contains(t, out, `<span style="color: `)
	require.Contains(t, out, `>卯月</span>「`)
	require.Contains(t, out, `>凛</span>「`)
}

func TestColorizeUnknownCast(t *testing.T) {
	content := strings.Join([]string{
		"太郎「こんにちは」",
		"花子「こんにちは」",
		"次郎「やあ」",
	}, "\n")

	require.Equal(t, content, Colorize(content))
}

func TestColorizePartialMatchBelowThreshold(t *testing.T) {
	// one known speaker out of three is not enough to pick a series
	content := strings.Join([]string{
		"卯月「おはよう」",
		"太郎「おはよう」",
		"花子「おはよう」",
	}, "\n")

	require.Equal(t, content, Colorize(content))
}

func TestColorizeIgnoresMidLineQuotes(t *testing.T) {
	content := "彼女は言った。卯月「違うよ」"
	require.Equal(t, content, Colorize(content))
}

func TestNormalizeDarkensLightColors(t *testing.T) {
	require.NotEqual(t, "#fed552", normalize("#fed552"))
	require.Equal(t, "#2681c8", normalize("#2681c8"))
}
