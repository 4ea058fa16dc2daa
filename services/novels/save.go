package novels

import (
	"os"
	"path/filepath"
	"strings"

	"novelview-backend/lib/scrapers/pixiv"
	"novelview-backend/lib/textutil"
)

const maxFilenameBytes = 255

var filenameSanitizer = strings.NewReplacer(
	"/", "／",
	"\\", "＼",
	":", "：",
	"\x00", "",
)

// NovelFilename derives the on-disk name for a saved novel page. The
// name must fit common filesystem limits, so an overlong title is
// trimmed while the id suffix is kept intact.
func NovelFilename(detail *pixiv.NovelDetail) string {
	suffix := " - pixiv - " + detail.ID + ".html"
	title := filenameSanitizer.Replace(detail.Rating.Sign() + detail.Title)
	title = textutil.TruncateBytes(title, maxFilenameBytes-len(suffix), "…")
	return title + suffix
}

// SaveNovel writes a rendered novel page under dir and returns the
// path it was written to.
func SaveNovel(dir string, detail *pixiv.NovelDetail, page string) (string, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, NovelFilename(detail))
	err = os.WriteFile(path, []byte(page), 0o644)
	if err != nil {
		return "", err
	}
	return path, nil
}
