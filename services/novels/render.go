package novels

import (
	"fmt"
	"html/template"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"novelview-backend/lib/scrapers/pixiv"
)

// MakeURL builds a server-local link, percent-encoding values the way
// the views expect. Empty values are dropped.
func MakeURL(path string, params url.Values) string {
	query := url.Values{}
	for key, values := range params {
		for _, value := range values {
			if value != "" {
				query.Add(key, value)
			}
		}
	}
	link := "/" + strings.TrimPrefix(path, "/")
	if encoded := query.Encode(); encoded != "" {
		link += "?" + encoded
	}
	return link
}

func novelURL(id string) string {
	return MakeURL("novel", url.Values{"id": {id}})
}

func searchURL(query string) string {
	return MakeURL("search", url.Values{"q": {query}})
}

func userURL(id string) string {
	return MakeURL("user", url.Values{"id": {id}})
}

var (
	userLinkRegex  = regexp.MustCompile(`https://www\.pixiv\.net/users/([0-9]+)`)
	novelLinkRegex = regexp.MustCompile(`https://www\.pixiv\.net/novel/show\.php\?id=([0-9]+)`)
)

// RewriteLinks points upstream novel/user links inside a description back
// into this server. With addTag the replacement is a full anchor element.
func RewriteLinks(desc string, addTag bool) string {
	desc = userLinkRegex.ReplaceAllStringFunc(desc, func(m string) string {
		id := userLinkRegex.FindStringSubmatch(m)[1]
		if addTag {
			return fmt.Sprintf(`<a href="%s">user/%s</a>`, userURL(id), id)
		}
		return userURL(id)
	})
	desc = novelLinkRegex.ReplaceAllStringFunc(desc, func(m string) string {
		id := novelLinkRegex.FindStringSubmatch(m)[1]
		if addTag {
			return fmt.Sprintf(`<a href="%s">novel/%s</a>`, novelURL(id), id)
		}
		return novelURL(id)
	})
	return desc
}

var (
	openTagRegex      = regexp.MustCompile(`<[^>]*$`)
	balancedTagsRegex = regexp.MustCompile(`<\s*(/?)\s*(b|s|u|strong)\s*>`)
)

// CloseDanglingTags repairs a truncated HTML fragment: a chopped-open
// trailing tag is dropped and unbalanced inline tags get their close
// tags appended.
func CloseDanglingTags(fragment string) string {
	fragment = openTagRegex.ReplaceAllString(fragment, "")

	counts := map[string]int{}
	for _, m := range balancedTagsRegex.FindAllStringSubmatch(fragment, -1) {
		if m[1] == "/" {
			counts[m[2]]--
		} else {
			counts[m[2]]++
		}
	}
	for _, tag := range []string{"b", "s", "u", "strong"} {
		for i := 0; i < counts[tag]; i++ {
			fragment += "</" + tag + ">"
		}
	}
	return fragment
}

// descriptionPreview keeps the first few lines of a description, with
// links rewritten and truncation-damaged tags repaired.
func descriptionPreview(desc string) template.HTML {
	lines := strings.Split(RewriteLinks(desc, true), "<br />")
	if len(lines) > 5 {
		lines = lines[:5]
	}
	return template.HTML(CloseDanglingTags(strings.Join(lines, "<br>")))
}

// ListingPage is a rendered ranking/search/user view.
type ListingPage struct {
	Kind         string // "ranking", "search" or "user"
	Heading      string
	Compact      bool
	Query        string
	Mode         string
	Date         string // ISO, ranking only
	MaxDate      string
	UserID       string
	MinBookmarks int
	Page         int
	Npages       int
	HasCookie    bool
	Novels       []pixiv.Novel
}

func (p ListingPage) params() url.Values {
	switch p.Kind {
	case "search":
		return url.Values{
			"q":         {p.Query},
			"npages":    {strconv.Itoa(p.Npages)},
			"bookmarks": {strconv.Itoa(p.MinBookmarks)},
			"page":      {strconv.Itoa(p.Page)},
		}
	case "user":
		return url.Values{"id": {p.UserID}}
	default:
		return url.Values{"mode": {p.Mode}, "date": {p.Date}}
	}
}

func (p ListingPage) withCompact(params url.Values, compact bool) string {
	if compact {
		params.Set("compact", "1")
	}
	return MakeURL(p.Kind, params)
}

func (p ListingPage) ToggleURL() string {
	return p.withCompact(p.params(), !p.Compact)
}

func (p ListingPage) ToggleLabel() string {
	if p.Compact {
		return "詳細表示"
	}
	return "コンパクト表示"
}

func (p ListingPage) PrevURL() string {
	params := p.params()
	prev := p.Page - p.Npages
	if prev < 1 {
		prev = 1
	}
	params.Set("page", strconv.Itoa(prev))
	return p.withCompact(params, p.Compact)
}

func (p ListingPage) NextURL() string {
	params := p.params()
	params.Set("page", strconv.Itoa(p.Page+p.Npages))
	return p.withCompact(params, p.Compact)
}

type modeLink struct {
	URL      string
	Label    string
	Selected bool
}

func (p ListingPage) modeLinks(r18 bool) []modeLink {
	var links []modeLink
	for _, mode := range pixiv.ModeNames {
		info := pixiv.Modes[mode]
		if info.R18 != r18 {
			continue
		}
		label := info.Label
		if r18 {
			label = strings.TrimSuffix(label, " R-18")
		}
		params := url.Values{"mode": {mode}, "date": {p.Date}}
		links = append(links, modeLink{
			URL:      p.withCompact(params, p.Compact),
			Label:    label,
			Selected: mode == p.Mode,
		})
	}
	return links
}

func (p ListingPage) ModeLinks() []modeLink    { return p.modeLinks(false) }
func (p ListingPage) ModeLinksR18() []modeLink { return p.modeLinks(true) }

type listingEntry struct {
	pixiv.Novel
	Href        string
	Sign        string
	Description template.HTML
	TagLinks    []modeLink
}

func (p ListingPage) Entries() []listingEntry {
	entries := make([]listingEntry, 0, len(p.Novels))
	for _, novel := range p.Novels {
		entry := listingEntry{
			Novel: novel,
			Href:  novelURL(novel.ID),
			Sign:  novel.Rating.Sign(),
		}
		if !p.Compact {
			entry.Description = descriptionPreview(novel.Description)
			for _, tag := range novel.Tags {
				entry.TagLinks = append(entry.TagLinks, modeLink{URL: searchURL(tag), Label: tag})
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

var listingTmpl = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html lang="ja">
<head>
<title>{{.Heading}}</title>
<meta http-equiv="content-type" content="text/html; charset=utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>
body { max-width: 750px; margin: 1em auto; padding: 0 .5em; }
#main { margin: 1em 0 }
li p { margin: 1.5em 0 }
td:not(:nth-child(4)) { text-align: center; padding: 0 .35em }
td:nth-child(4)       { padding-left: 2em }
#ranking-modes { margin: .8em 0; font-size: small; line-height: 1.8 }
#ranking-modes a { margin-right: 1.4em }
#ranking-modes span { margin-right: 1.0em }
.ranking-selected { font-weight: bold }
</style>
</head>
<body>
<h1>{{.Heading}}</h1>
<form style="text-align: right; line-height: 1.5" action="/search">
<input type="text" name="q" placeholder="検索" value="{{.Query}}">
<input type="submit" value="🔍">
{{if .Compact}}<input type="hidden" name="compact" value="1">{{end}}
{{if eq .Kind "search"}}<br>
<select name="npages">
<option value="1"{{if eq .Npages 1}} selected{{end}}>1ページずつ
<option value="2"{{if eq .Npages 2}} selected{{end}}>2ページずつ
<option value="3"{{if eq .Npages 3}} selected{{end}}>3ページずつ
</select>
💙:<input type="text" name="bookmarks" value="{{.MinBookmarks}}" size="3">
{{end}}
</form>
{{if eq .Kind "ranking"}}
<p id="ranking-modes">
{{range .ModeLinks}}<a href="{{.URL}}"{{if .Selected}} class="ranking-selected"{{end}}>{{.Label}}</a>
{{end}}<br>
{{if .HasCookie}}<span>R-18:</span>
{{range .ModeLinksR18}}<a href="{{.URL}}"{{if .Selected}} class="ranking-selected"{{end}}>{{.Label}}</a>
{{end}}{{else}}R-18 ランキングを見るには cookies.txt が必要です。{{end}}
</p>
<form style="text-align: center; margin: .5em 0" action="/ranking">
<label for="date">日付:</label>
<input type="date" id="date" name="date" value="{{.Date}}" max="{{.MaxDate}}">
<input type="submit" value="🔍">
<input type="hidden" name="mode" value="{{.Mode}}">
{{if .Compact}}<input type="hidden" name="compact" value="1">{{end}}
</form>
{{end}}
<hr>
<div id="main">
{{if .Compact}}<table>
{{range .Entries}}<tr><td><a href="{{.Href}}">{{.ID}}</a></td><td>{{.Sign}}</td><td>{{.BookmarkCount}}</td><td>{{.Title}}</td></tr>
{{end}}</table>
{{else}}<ul>
{{range .Entries}}<li>{{.Title}} ({{.TextCount}}字) <a href="{{.Href}}">[{{.ID}}]</a><p>{{.Description}}</p>💙 {{.BookmarkCount}}<br>{{range $i, $t := .TagLinks}}{{if $i}}, {{end}}<a href="{{$t.URL}}">{{$t.Label}}</a>{{end}}</li><hr>
{{end}}</ul>
{{end}}
</div>
<div id="nav" style="display: flex">
<span style="flex: 1"><a href="{{.ToggleURL}}">{{.ToggleLabel}}</a></span>
<span style="flex: 1"></span>
{{if eq .Kind "search"}}<span style="flex: 1; text-align: right">
<a href="{{.PrevURL}}">前へ</a>
<a href="{{.NextURL}}">次へ</a>
</span>{{end}}
</div>
</body>
</html>
`))

// RenderListing renders a ranking/search/user view to HTML.
func RenderListing(page ListingPage) (string, error) {
	var b strings.Builder
	err := listingTmpl.Execute(&b, page)
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
