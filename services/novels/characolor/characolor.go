// Package characolor paints speaker names in novel text with the
// character's signature color, when the cast can be matched against a
// known series.
package characolor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// speakerRegex matches dialogue lines of the form 名前「セリフ」. The
// name is short and sits at the start of a line.
var speakerRegex = regexp.MustCompile(`(?m)^([^\s「」<>&]{1,12})「`)

// maxLightness keeps official colors readable on a light background.
const maxLightness = 0.55

// palettes maps a series to its characters' signature colors.
var palettes = map[string]map[string]string{
	"imas_cinderella": {
		"卯月":  "#f35c8e",
		"凛":   "#2681c8",
		"未央":  "#f8b646",
		"美嘉":  "#f74b81",
		"莉嘉":  "#f6a2b3",
		"加蓮":  "#e2a0c3",
		"奈緒":  "#a0522d",
		"アーニャ": "#b2cfe5",
		"みく":  "#e1415f",
	},
	"imas_million": {
		"未来":   "#eb613f",
		"静香":   "#6495cf",
		"翼":    "#fed552",
		"育":    "#9bce92",
		"可奈":   "#f5ad3b",
		"ジュリア": "#d7385f",
	},
	"bang_dream": {
		"香澄":  "#ff5522",
		"有咲":  "#bb6688",
		"りみ":  "#ff55bb",
		"沙綾":  "#ffdd44",
		"たえ":  "#0077dd",
		"友希那": "#881188",
		"紗夜":  "#00aabb",
	},
}

// normalize darkens a palette color that would be unreadable as text.
func normalize(hex string) string {
	c, err := colorful.Hex(hex)
	if err != nil {
		return hex
	}
	h, s, l := c.Hsl()
	if l <= maxLightness {
		return hex
	}
	return colorful.Hsl(h, s, maxLightness).Hex()
}

// matchSeries counts how many distinct speakers each palette knows and
// returns the best fit. A series only qualifies when it covers at least
// half of the speakers, otherwise coloring would be mostly noise.
func matchSeries(speakers map[string]bool) (map[string]string, bool) {
	best := ""
	bestMatches := 0
	for series, palette := range palettes {
		matches := 0
		for name := range speakers {
			if _, ok := palette[name]; ok {
				matches++
			}
		}
		if matches > bestMatches {
			best = series
			bestMatches = matches
		}
	}
	if best == "" || bestMatches*2 < len(speakers) {
		return nil, false
	}
	return palettes[best], true
}

// Colorize wraps recognized speaker names in colored spans. Content is
// returned unchanged when no series matches the cast well enough.
func Colorize(content string) string {
	speakers := map[string]bool{}
	for _, m := range speakerRegex.FindAllStringSubmatch(content, -1) {
		speakers[m[1]] = true
	}
	if len(speakers) == 0 {
		return content
	}
	palette, ok := matchSeries(speakers)
	if !ok {
		return content
	}

	return speakerRegex.ReplaceAllStringFunc(content, func(m string) string {
		name := strings.TrimSuffix(m, "「")
		hex, ok := palette[name]
		if !ok {
			return m
		}
		return fmt.Sprintf(`<span style="color: %s">%s</span>「`, normalize(hex), name)
	})
}
