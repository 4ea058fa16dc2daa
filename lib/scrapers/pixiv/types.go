package pixiv

// Rating is the content restriction classification of a novel. Listing
// markup does not encode it reliably, so for scraped pages it is derived
// from the requested mode instead.
type Rating int

const (
	RatingAll Rating = 0
	RatingR18 Rating = 1
	RatingG   Rating = 2
)

// Sign is the short marker views prefix restricted titles with.
func (r Rating) Sign() string {
	switch r {
	case RatingR18:
		return "R "
	case RatingG:
		return "G "
	default:
		return ""
	}
}

// Novel is one listing record, as returned by both the ajax search API
// and the ranking page extractor. Optional fields are zero-valued rather
// than absent so records cache and render uniformly.
type Novel struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Tags          []string `json:"tags"`
	Description   string   `json:"description"`
	Rating        Rating   `json:"xRestrict"`
	BookmarkCount int      `json:"bookmarkCount"`
	TextCount     int      `json:"textCount"`
	UserID        string   `json:"userId"`
	UserName      string   `json:"userName"`
}

// Mode is one entry of the closed ranking-mode set. Dispatch on modes is
// table-driven so an unknown mode fails up front instead of turning into
// a malformed upstream request.
type Mode struct {
	Label string
	R18   bool
}

var Modes = map[string]Mode{
	"daily":           {Label: "デイリー"},
	"weekly":          {Label: "ウィークリー"},
	"monthly":         {Label: "マンスリー"},
	"rookie":          {Label: "ルーキー"},
	"weekly_original": {Label: "オリジナル"},
	"male":            {Label: "男子に人気"},
	"female":          {Label: "女子に人気"},
	"daily_r18":       {Label: "デイリー R-18", R18: true},
	"weekly_r18":      {Label: "ウィークリー R-18", R18: true},
	"male_r18":        {Label: "男子に人気 R-18", R18: true},
	"female_r18":      {Label: "女子に人気 R-18", R18: true},
}

// ModeNames lists the ranking modes in display order, non-R18 first.
var ModeNames = []string{
	"daily", "weekly", "monthly", "rookie", "weekly_original", "male", "female",
	"daily_r18", "weekly_r18", "male_r18", "female_r18",
}

// RatingForMode classifies records extracted from a listing requested
// with the given mode.
func RatingForMode(mode string) Rating {
	if Modes[mode].R18 {
		return RatingR18
	}
	return RatingAll
}

type searchResponse struct {
	Body struct {
		Novel struct {
			Data []Novel `json:"data"`
		} `json:"novel"`
	} `json:"body"`
}

type userNovelsResponse struct {
	Body struct {
		Works map[string]Novel `json:"works"`
	} `json:"body"`
}

type artworkPagesResponse struct {
	Body []struct {
		Urls struct {
			Original string `json:"original"`
		} `json:"urls"`
	} `json:"body"`
}

// NovelDetail is the preload payload of a novel page: the full text plus
// the metadata the reader view shows.
type NovelDetail struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	Description   string `json:"description"`
	Rating        Rating `json:"xRestrict"`
	BookmarkCount int    `json:"bookmarkCount"`
	CreateDate    string `json:"createDate"`
	UserID        string `json:"userId"`
	Tags          struct {
		Tags []struct {
			Tag string `json:"tag"`
		} `json:"tags"`
	} `json:"tags"`
	TextEmbeddedImages map[string]struct {
		Urls struct {
			Original string `json:"original"`
		} `json:"urls"`
	} `json:"textEmbeddedImages"`
}
