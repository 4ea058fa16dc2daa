// Package pixiv talks to the upstream novel site. Resource downloading
// breaks often (invalidated cookies, header requirements shifting), so
// every resource gets its own small, unit-testable method.
package pixiv

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"novelview-backend/lib/fetch"
	"novelview-backend/lib/restyutil"
	"novelview-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const DefaultBaseURL = "https://www.pixiv.net"

// the site 404s plain requests; mimic a browser
var baseHeaders = fetch.Headers{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language":           "ja,en-US;q=0.7,en;q=0.3",
	"Accept-Encoding":           "gzip",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Pragma":                    "no-cache",
	"Referer":                   "https://www.pixiv.net/",
	"Cache-Control":             "no-cache",
}

var restyInstrumentOutput restyutil.InstrumentOutput

func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}

type Client struct {
	fetcher *fetch.Client
	baseURL string
	cookie  string
}

type ClientOptions struct {
	// BaseUrl overrides the upstream origin, tests point it at a local
	// server
	BaseUrl string
	// Cookie is the session cookie header value, empty when the user
	// supplied no cookies.txt
	Cookie string
	// Fetcher overrides the default rate-limited client
	Fetcher *fetch.Client
}

func NewClient(opts ClientOptions) *Client {
	baseURL := opts.BaseUrl
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		httpClient := resty.New()
		httpClient.SetTimeout(time.Second * 30)
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
		telemetry.InstrumentResty(httpClient, "scrapers/pixiv/http")
		restyutil.InstrumentClient(httpClient, restyInstrumentOutput)
		fetcher = fetch.NewClient(fetch.Options{Http: httpClient})
	}

	return &Client{
		fetcher: fetcher,
		baseURL: baseURL,
		cookie:  opts.Cookie,
	}
}

func (c *Client) HasCookie() bool {
	return c.cookie != ""
}

func (c *Client) cookieHeader() fetch.Headers {
	if !c.HasCookie() {
		return fetch.Headers{}
	}
	return fetch.Headers{"Cookie": c.cookie}
}

// NovelPage fetches the raw HTML of one novel's show page.
func (c *Client) NovelPage(ctx context.Context, novelID string) (string, error) {
	link := fmt.Sprintf("%s/novel/show.php?id=%s", c.baseURL, novelID)
	return c.fetcher.Text(ctx, link, baseHeaders, c.cookieHeader())
}

// RankingPage fetches one page of the ranking listing for a mode and day.
// R18 modes require a session cookie; the cookie layer is only attached
// for those, matching what a browser sends.
func (c *Client) RankingPage(ctx context.Context, mode string, date time.Time, page int) (string, error) {
	info, ok := Modes[mode]
	if !ok {
		return "", fmt.Errorf("pixiv: unknown ranking mode %q", mode)
	}
	if info.R18 && !c.HasCookie() {
		return "", fmt.Errorf("pixiv: a cookie is needed to view the %s ranking", mode)
	}

	link := fmt.Sprintf("%s/novel/ranking.php?mode=%s&date=%s", c.baseURL, mode, date.Format("20060102"))
	if page > 1 {
		link += fmt.Sprintf("&page=%d", page)
	}

	cookie := fetch.Headers{}
	if info.R18 {
		cookie = c.cookieHeader()
	}
	return c.fetcher.Text(ctx, link, baseHeaders, cookie)
}

// SearchNovels queries the ajax search API for one page of results.
func (c *Client) SearchNovels(ctx context.Context, word string, page int) ([]Novel, error) {
	escaped := escapeWord(word)
	link := fmt.Sprintf(
		"%s/ajax/search/novels/%s?word=%s&order=date_d&mode=all&p=%d&s_mode=s_tag&lang=ja",
		c.baseURL, escaped, escaped, page,
	)
	var res searchResponse
	err := c.fetcher.JSON(ctx, link, &res, baseHeaders, c.cookieHeader())
	if err != nil {
		return nil, err
	}
	return res.Body.Novel.Data, nil
}

// UserNovelIDs resolves every novel id of one author, in the order the
// profile endpoint lists them.
func (c *Client) UserNovelIDs(ctx context.Context, userID string) ([]string, error) {
	link := fmt.Sprintf("%s/ajax/user/%s/profile/all?lang=ja", c.baseURL, userID)
	var res profileAllResponse
	err := c.fetcher.JSON(ctx, link, &res, baseHeaders, c.cookieHeader())
	if err != nil {
		return nil, err
	}
	return res.Body.Novels, nil
}

const userNovelsBatchLimit = 100

// UserNovels fetches the detail records for up to 100 novel ids of one
// author, returned in the order of ids.
func (c *Client) UserNovels(ctx context.Context, userID string, ids []string) ([]Novel, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("pixiv: at least 1 novel id is required")
	}
	if len(ids) > userNovelsBatchLimit {
		return nil, fmt.Errorf("pixiv: at most %d novel ids may be queried at once, got %d", userNovelsBatchLimit, len(ids))
	}

	params := make([]string, len(ids))
	for i, id := range ids {
		params[i] = "ids[]=" + id
	}
	link := fmt.Sprintf("%s/ajax/user/%s/profile/novels?%s", c.baseURL, userID, strings.Join(params, "&"))

	var res userNovelsResponse
	err := c.fetcher.JSON(ctx, link, &res, baseHeaders, c.cookieHeader())
	if err != nil {
		return nil, err
	}

	novels := make([]Novel, 0, len(ids))
	for _, id := range ids {
		if novel, ok := res.Body.Works[id]; ok {
			novels = append(novels, novel)
		}
	}
	return novels, nil
}

// ArtworkImageURL resolves the original image url of one page of an
// artwork referenced from a novel body.
func (c *Client) ArtworkImageURL(ctx context.Context, artworkID string, pageIndex int) (string, error) {
	link := fmt.Sprintf("%s/ajax/illust/%s/pages?lang=ja", c.baseURL, artworkID)
	var res artworkPagesResponse
	err := c.fetcher.JSON(ctx, link, &res, baseHeaders, c.cookieHeader(), fetch.Headers{"Accept": "application/json"})
	if err != nil {
		return "", err
	}
	if pageIndex < 0 || pageIndex >= len(res.Body) {
		return "", fmt.Errorf("pixiv: artwork %s has no page %d", artworkID, pageIndex)
	}
	return res.Body[pageIndex].Urls.Original, nil
}

// Image fetches raw image bytes (embedded novel images and artwork
// pages live on a separate image host).
func (c *Client) Image(ctx context.Context, link string) ([]byte, error) {
	return c.fetcher.Bytes(ctx, link, baseHeaders)
}

// the ajax search path wants %20 for spaces, not +
func escapeWord(word string) string {
	return strings.ReplaceAll(url.QueryEscape(word), "+", "%20")
}
