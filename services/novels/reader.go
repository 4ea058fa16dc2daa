package novels

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/codes"

	"novelview-backend/lib/scrapers/pixiv"
	"novelview-backend/services/novels/characolor"
)

var (
	newpageRegex  = regexp.MustCompile(`\[newpage\]`)
	chapterRegex  = regexp.MustCompile(`\[chapter:([^\]]*)\]`)
	rubyRegex     = regexp.MustCompile(`\[\[rb:\s*([^>\]]*?)\s*(?:>|&gt;)\s*([^\]]*?)\s*\]\]`)
	uploadedRegex = regexp.MustCompile(`\[uploadedimage:([0-9a-zA-Z]+)\]`)
	artworkRegex  = regexp.MustCompile(`\[pixivimage:([0-9]+)(?:-([0-9]+))?\]`)
)

// ReaderOptions controls how a novel body is rendered.
type ReaderOptions struct {
	// Colorize wraps recognized speaker names in per-character colors.
	Colorize bool
	// InlineImages embeds referenced illustrations as data URIs. Turning
	// it off leaves a plain placeholder so pages render offline.
	InlineImages bool
}

func dataURI(image []byte) string {
	return "data:image;base64," + base64.StdEncoding.EncodeToString(image)
}

func imageTag(src string) string {
	return fmt.Sprintf(`<figure style="text-align: center"><img src="%s" style="max-width: 90%%"></figure>`, src)
}

// renderContent turns pixiv novel markup into an HTML fragment. Image
// tags require network access, so failures degrade to a placeholder
// instead of failing the whole page.
func (s Service) renderContent(ctx context.Context, detail *pixiv.NovelDetail, opts ReaderOptions) template.HTML {
	content := html.EscapeString(detail.Content)

	content = newpageRegex.ReplaceAllString(content, "<hr>")
	content = chapterRegex.ReplaceAllString(content, "<h2>$1</h2>")
	content = rubyRegex.ReplaceAllString(content, "<ruby>$1<rt>$2</rt></ruby>")

	content = uploadedRegex.ReplaceAllStringFunc(content, func(m string) string {
		id := uploadedRegex.FindStringSubmatch(m)[1]
		embedded, ok := detail.TextEmbeddedImages[id]
		if !ok || !opts.InlineImages {
			return imagePlaceholder(id)
		}
		image, err := s.client.Image(ctx, embedded.Urls.Original)
		if err != nil {
			return imagePlaceholder(id)
		}
		return imageTag(dataURI(image))
	})
	content = artworkRegex.ReplaceAllStringFunc(content, func(m string) string {
		groups := artworkRegex.FindStringSubmatch(m)
		artworkID := groups[1]
		index := 0
		if groups[2] != "" {
			// the reference is 1-based
			n, _ := strconv.Atoi(groups[2])
			index = n - 1
		}
		if !opts.InlineImages {
			return imagePlaceholder(artworkID)
		}
		link, err := s.client.ArtworkImageURL(ctx, artworkID, index)
		if err != nil {
			return imagePlaceholder(artworkID)
		}
		image, err := s.client.Image(ctx, link)
		if err != nil {
			return imagePlaceholder(artworkID)
		}
		return imageTag(dataURI(image))
	})

	if opts.Colorize {
		content = characolor.Colorize(content)
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\n", "<br>\n")
	return template.HTML(content)
}

func imagePlaceholder(id string) string {
	return fmt.Sprintf(`<figure style="text-align: center">[画像 %s]</figure>`, id)
}

type readerPage struct {
	Detail      *pixiv.NovelDetail
	Sign        string
	Description template.HTML
	Content     template.HTML
	UserHref    string
	TagLinks    []modeLink
}

var readerTmpl = template.Must(template.New("reader").Parse(`<!DOCTYPE html>
<html lang="ja">
<head>
<title>{{.Sign}}{{.Detail.Title}}</title>
<meta http-equiv="content-type" content="text/html; charset=utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>
body { max-width: 700px; margin: 1em auto; padding: 0 .5em; line-height: 1.75 }
#desc { font-size: small; margin: 1em 0; padding: .5em 1em; border: 1px solid #aaa }
h2 { font-size: 1.1em }
</style>
</head>
<body>
<h1>{{.Sign}}{{.Detail.Title}}</h1>
<p><a href="{{.UserHref}}">{{.Detail.UserID}}</a> / 💙 {{.Detail.BookmarkCount}} / {{.Detail.CreateDate}}<br>
{{range $i, $t := .TagLinks}}{{if $i}}, {{end}}<a href="{{$t.URL}}">{{$t.Label}}</a>{{end}}</p>
{{if .Description}}<div id="desc">{{.Description}}</div>{{end}}
<hr>
<div id="content">
{{.Content}}
</div>
</body>
</html>
`))

// RenderNovel renders a full novel reading page.
func (s Service) RenderNovel(ctx context.Context, detail *pixiv.NovelDetail, opts ReaderOptions) (string, error) {
	ctx, span := tracer.Start(ctx, "RenderNovel")
	defer span.End()

	page := readerPage{
		Detail:      detail,
		Sign:        detail.Rating.Sign(),
		Description: template.HTML(RewriteLinks(detail.Description, true)),
		Content:     s.renderContent(ctx, detail, opts),
		UserHref:    userURL(detail.UserID),
	}
	for _, tag := range detail.Tags.Tags {
		page.TagLinks = append(page.TagLinks, modeLink{URL: searchURL(tag.Tag), Label: tag.Tag})
	}

	var b strings.Builder
	err := readerTmpl.Execute(&b, page)
	if err != nil {
		span.SetStatus(codes.Error, "render novel")
		return "", err
	}
	return b.String(), nil
}
