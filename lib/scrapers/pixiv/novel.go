package pixiv

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractNovelDetail pulls the preload JSON blob out of a novel show
// page. Unlike the listing pages this one is small and well-formed, so a
// real HTML parse is fine here.
func ExtractNovelDetail(page string) (NovelDetail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return NovelDetail{}, err
	}

	content := doc.Find(`meta[name=preload-data]`).AttrOr("content", "")
	if content == "" {
		return NovelDetail{}, &ExtractionMismatchError{
			Field: "preload-data",
			Err:   fmt.Errorf("meta tag not found"),
		}
	}

	var preload struct {
		Novel map[string]NovelDetail `json:"novel"`
	}
	err = json.Unmarshal([]byte(content), &preload)
	if err != nil {
		return NovelDetail{}, fmt.Errorf("pixiv: parse preload data: %w", err)
	}

	// the object holds exactly the one novel the page shows
	for _, detail := range preload.Novel {
		return detail, nil
	}
	return NovelDetail{}, &ExtractionMismatchError{
		Field: "novel",
		Err:   fmt.Errorf("preload data holds no novel"),
	}
}
