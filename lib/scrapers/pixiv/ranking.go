package pixiv

import (
	"fmt"
	"strings"

	"novelview-backend/lib/scantext"
	"novelview-backend/lib/textutil"
)

// ExtractionMismatchError means a mandatory anchor was missing: the
// upstream page shape changed. It aborts the page it occurred on, never
// the records already extracted from other pages.
type ExtractionMismatchError struct {
	Field string
	Err   error
}

func (e *ExtractionMismatchError) Error() string {
	return fmt.Sprintf("pixiv: ranking page shape mismatch on field %q: %v", e.Field, e.Err)
}

func (e *ExtractionMismatchError) Unwrap() error { return e.Err }

// DefaultMaxRecords caps records per listing page; a malformed page must
// not turn into a runaway scan.
const DefaultMaxRecords = 100

// anchor tokens of the repeating ranking block. These are literal
// substrings, not selectors: the pages are too large and too unstable to
// parse as HTML, but the class names and data attributes have survived
// every markup shuffle so far.
const (
	anchorItem     = `_ranking-item`
	anchorID       = `data-id="`
	anchorTags     = `data-tags="`
	anchorTitle    = `alt="`
	anchorUserID   = `data-user-id="`
	anchorUserName = `class="user-name`
	anchorBookmark = `class="bookmark-count`
	anchorChars    = `class="chars`
	anchorCaption  = `class="novel-caption`
	attrEnd        = `"`
	tagOpenEnd     = `>`
	tagStart       = `<`
)

// ExtractRanking pulls the repeating record blocks out of one raw ranking
// page. rating comes from the requested mode, not from the markup, which
// does not encode it reliably. maxRecords <= 0 means DefaultMaxRecords.
func ExtractRanking(page string, maxRecords int, rating Rating) ([]Novel, error) {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}

	var novels []Novel
	scanner := scantext.New(page)
	for len(novels) < maxRecords && scanner.Seek(anchorItem) {
		// scope field extraction to this block so an optional field
		// missing here cannot match inside the next block
		block := scanner.Rest()
		if end := strings.Index(block, anchorItem); end >= 0 {
			block = block[:end]
		}

		novel, err := extractRecord(scantext.New(block), rating)
		if err != nil {
			return nil, err
		}
		novels = append(novels, novel)
	}
	return novels, nil
}

func extractRecord(block *scantext.Scanner, rating Rating) (Novel, error) {
	id, err := block.Extract(anchorID, attrEnd)
	if err != nil {
		return Novel{}, &ExtractionMismatchError{Field: "id", Err: err}
	}
	title, err := block.Extract(anchorTitle, attrEnd)
	if err != nil {
		return Novel{}, &ExtractionMismatchError{Field: "title", Err: err}
	}
	// the alt attribute is "<title>/<author>"
	title, _, _ = strings.Cut(title, "/")

	return Novel{
		ID:            id,
		Title:         title,
		Tags:          strings.Fields(block.ExtractDefault("", anchorTags, attrEnd)),
		Description:   block.ExtractDefault("", anchorCaption, tagOpenEnd, tagStart),
		Rating:        rating,
		BookmarkCount: textutil.ParseCount(block.ExtractDefault("", anchorBookmark, tagOpenEnd, tagStart)),
		TextCount:     textutil.ParseCount(block.ExtractDefault("", anchorChars, tagOpenEnd, tagStart)),
		UserID:        block.ExtractDefault("", anchorUserID, attrEnd),
		UserName:      block.ExtractDefault("", anchorUserName, tagOpenEnd, tagStart),
	}, nil
}
