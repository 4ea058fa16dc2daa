package pixiv

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"novelview-backend/lib/fetch"
)

// built on an unthrottled fetcher so multi-request tests do not sleep
func newTestClient(baseURL, cookie string) *Client {
	return NewClient(ClientOptions{
		BaseUrl: baseURL,
		Cookie:  cookie,
		Fetcher: fetch.NewClient(fetch.Options{NoThrottle: true}),
	})
}

func TestSearchNovels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ajax/search/novels/%E6%A4%9C%E7%B4%A2%20%E8%AA%9E", r.URL.EscapedPath())
		require.Equal(t, "date_d", r.URL.Query().Get("order"))
		require.Equal(t, "2", r.URL.Query().Get("p"))

		fmt.Fprint(w, `{"body":{"novel":{"data":[
			{"id":"11","title":"甲","tags":["a","b"],"description":"d",
			 "xRestrict":0,"bookmarkCount":12,"textCount":3000,
			 "userId":"7","userName":"author"}
		]}}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")
	novels, err := client.SearchNovels(context.Background(), "検索 語", 2)
	require.NoError(t, err)
	require.Len(t, novels, 1)
	require.Equal(t, "11", novels[0].ID)
	require.Equal(t, "甲", novels[0].Title)
	require.Equal(t, []string{"a", "b"}, novels[0].Tags)
	require.Equal(t, 12, novels[0].BookmarkCount)
}

func TestUserNovelIDsPreservesOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ajax/user/7/profile/all", r.URL.Path)
		fmt.Fprint(w, `{"body":{"novels":{"30":{},"10":{},"20":{}}}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")
	ids, err := client.UserNovelIDs(context.Background(), "7")
	require.NoError(t, err)
	require.Equal(t, []string{"30", "10", "20"}, ids)
}

func TestUserNovelIDsEmptyProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"body":{"novels":[]}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")
	ids, err := client.UserNovelIDs(context.Background(), "7")
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestUserNovelsOrderAndLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"body":{"works":{
			"10":{"id":"10","title":"ten"},
			"20":{"id":"20","title":"twenty"}
		}}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")

	novels, err := client.UserNovels(context.Background(), "7", []string{"20", "10"})
	require.NoError(t, err)
	require.Len(t, novels, 2)
	require.Equal(t, "20", novels[0].ID)
	require.Equal(t, "10", novels[1].ID)

	_, err = client.UserNovels(context.Background(), "7", nil)
	require.Error(t, err)

	tooMany := make([]string, 101)
	_, err = client.UserNovels(context.Background(), "7", tooMany)
	require.Error(t, err)
}

func TestRankingPageValidation(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1", "")
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := client.RankingPage(context.Background(), "bogus", date, 1)
	require.ErrorContains(t, err, "unknown ranking mode")

	// r18 modes need a session cookie
	_, err = client.RankingPage(context.Background(), "daily_r18", date, 1)
	require.ErrorContains(t, err, "cookie")
}

func TestRankingPageRequest(t *testing.T) {
	var gotPath, gotQuery, gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotCookie = r.Header.Get("Cookie")
		fmt.Fprint(w, "<html></html>")
	}))
	defer server.Close()

	client := newTestClient(server.URL, "PHPSESSID=x")
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err := client.RankingPage(context.Background(), "daily", date, 1)
	require.NoError(t, err)
	require.Equal(t, "/novel/ranking.php", gotPath)
	require.Equal(t, "mode=daily&date=20240102", gotQuery)
	// non-r18 rankings are fetched without the session cookie
	require.Empty(t, gotCookie)

	_, err = client.RankingPage(context.Background(), "daily_r18", date, 2)
	require.NoError(t, err)
	require.Equal(t, "mode=daily_r18&date=20240102&page=2", gotQuery)
	require.Equal(t, "PHPSESSID=x", gotCookie)
}

func TestExtractNovelDetail(t *testing.T) {
	page := `<html><head>
<meta name="preload-data" id="meta-preload-data" content='{"novel":{"99":{
	"id":"99","title":"表題","content":"本文[newpage]続き",
	"description":"説明","xRestrict":1,"bookmarkCount":5,
	"createDate":"2024-01-02T03:04:05+09:00","userId":"7",
	"tags":{"tags":[{"tag":"タグ甲"},{"tag":"タグ乙"}]}
}}}'>
</head><body></body></html>`

	detail, err := ExtractNovelDetail(page)
	require.NoError(t, err)
	require.Equal(t, "99", detail.ID)
	require.Equal(t, "表題", detail.Title)
	require.Equal(t, "本文[newpage]続き", detail.Content)
	require.Equal(t, RatingR18, detail.Rating)
	require.Equal(t, "7", detail.UserID)
	require.Len(t, detail.Tags.Tags, 2)
}

func TestExtractNovelDetailMissingMeta(t *testing.T) {
	_, err := ExtractNovelDetail("<html><head></head></html>")
	var mismatch *ExtractionMismatchError
	require.ErrorAs(t, err, &mismatch)
}
