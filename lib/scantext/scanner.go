// Package scantext provides cursor-based substring extraction over a raw
// text blob. It deliberately avoids building a parse tree: listing pages
// from the upstream site are large, their markup shifts, and anchor
// substrings survive those shifts better than a strict HTML parse.
package scantext

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMarkerNotFound = errors.New("marker not found")

// ExtractError reports which anchor marker of an Extract chain was missing.
type ExtractError struct {
	Marker string
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract: marker %q not found", e.Marker)
}

func (e *ExtractError) Unwrap() error { return ErrMarkerNotFound }

// Scanner walks forward through an immutable text buffer. The zero value is
// not usable, construct it with New.
type Scanner struct {
	text string
	pos  int
}

func New(text string) *Scanner {
	return &Scanner{text: text}
}

// Seek advances the cursor to just past the next occurrence of marker at or
// after the cursor. When the marker is absent it returns false and the
// cursor is no longer meaningful: the caller must stop scanning.
func (s *Scanner) Seek(marker string) bool {
	idx := strings.Index(s.text[s.pos:], marker)
	if idx < 0 {
		s.pos = len(s.text)
		return false
	}
	s.pos += idx + len(marker)
	return true
}

// Rest returns the unscanned tail of the buffer. Callers use it to carve
// out a sub-buffer (one repeating block of a listing, say) and scan that
// in isolation.
func (s *Scanner) Rest() string {
	return s.text[s.pos:]
}

// Extract chains forward searches for each marker starting at the current
// cursor, each subsequent search beginning just after the previous match,
// and returns the text strictly between the last two markers. The cursor is
// never mutated, so repeated Extract calls from the same position are
// independent lookaheads.
func (s *Scanner) Extract(markers ...string) (string, error) {
	if len(markers) < 2 {
		return "", fmt.Errorf("extract: need at least 2 markers, got %d", len(markers))
	}
	pos := s.pos
	start := 0
	for i, marker := range markers {
		idx := strings.Index(s.text[pos:], marker)
		if idx < 0 {
			return "", &ExtractError{Marker: marker}
		}
		if i == len(markers)-1 {
			start = pos + idx
			break
		}
		pos += idx + len(marker)
	}
	return s.text[pos:start], nil
}

// ExtractDefault is Extract for optional fields: a missing marker yields
// def instead of an error.
func (s *Scanner) ExtractDefault(def string, markers ...string) string {
	out, err := s.Extract(markers...)
	if err != nil {
		return def
	}
	return out
}
