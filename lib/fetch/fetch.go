// Package fetch issues outbound HTTP requests with per-destination rate
// limiting, layered headers, and response decoding. It is the only layer
// of the scraper that talks to the network.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Headers is one layer of request headers. Layers are merged in argument
// order, a later layer's value for a name wins. The base browser header
// set comes first, cookie and per-request overrides after.
type Headers map[string]string

// FetchError is a non-2xx response or a transport-level failure. Callers
// decide whether to retry; this layer never does.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

type Client struct {
	http    *resty.Client
	limiter *limiter
}

type Options struct {
	// the resty client to issue requests with; when nil a default one
	// with a 30 second timeout is created
	Http *resty.Client
	// NoThrottle drops the inter-request delay. Only suites talking to
	// a local test server should set this.
	NoThrottle bool
}

func NewClient(opts Options) *Client {
	httpClient := opts.Http
	if httpClient == nil {
		httpClient = resty.New()
		httpClient.SetTimeout(time.Second * 30)
	}
	l := newLimiter()
	if opts.NoThrottle {
		l.sleep = func(time.Duration) {}
	}
	return &Client{
		http:    httpClient,
		limiter: l,
	}
}

// Text fetches link and decodes the body as text.
func (c *Client) Text(ctx context.Context, link string, layers ...Headers) (string, error) {
	link = EncodeURL(link)
	body, err := c.do(ctx, link, layers)
	if err != nil {
		return "", err
	}
	return decodeText(link, body)
}

// Bytes fetches link and returns the raw body.
func (c *Client) Bytes(ctx context.Context, link string, layers ...Headers) ([]byte, error) {
	return c.do(ctx, EncodeURL(link), layers)
}

// JSON fetches link and unmarshals the body into out.
func (c *Client) JSON(ctx context.Context, link string, out any, layers ...Headers) error {
	link = EncodeURL(link)
	body, err := c.do(ctx, link, layers)
	if err != nil {
		return err
	}
	err = json.Unmarshal(body, out)
	if err != nil {
		return fmt.Errorf("fetch %s: unmarshal response: %w", link, err)
	}
	return nil
}

// do issues a single GET for an already percent-encoded link. resty
// undoes a gzip Content-Encoding on its own, even when Accept-Encoding
// is pinned by a header layer, so the body is ready to use.
func (c *Client) do(ctx context.Context, link string, layers []Headers) ([]byte, error) {
	parsed, err := url.Parse(link)
	if err != nil {
		return nil, &FetchError{URL: link, Err: err}
	}
	c.limiter.wait(destination(parsed))

	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(mergeLayers(layers)).
		Get(link)
	if err != nil {
		return nil, &FetchError{URL: link, Err: err}
	}
	if !res.IsSuccess() {
		return nil, &FetchError{URL: link, StatusCode: res.StatusCode()}
	}
	return res.Body(), nil
}

func mergeLayers(layers []Headers) map[string]string {
	merged := map[string]string{}
	for _, layer := range layers {
		for name, value := range layer {
			merged[name] = value
		}
	}
	return merged
}

// destination is the rate-limiting bucket: scheme + host + port.
func destination(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

// bytes legal in a URI as-is; everything else (notably non-ASCII bytes in
// search terms embedded in paths) gets percent-encoded
const uriSafe = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~:/?#[]@!$&'()*+,;=%"

// EncodeURL percent-encodes every byte of link that may not appear
// verbatim in a URI. Already-encoded sequences are left alone.
func EncodeURL(link string) string {
	var b strings.Builder
	for _, c := range []byte(link) {
		if strings.IndexByte(uriSafe, c) >= 0 {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
