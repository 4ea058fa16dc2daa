package novels

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"novelview-backend/lib/fetch"
	"novelview-backend/lib/filecache"
	"novelview-backend/lib/scrapers/pixiv"
	"novelview-backend/lib/telemetry"
	"novelview-backend/lib/timezone"
)

func newTestService(t *testing.T, handler http.Handler, cacheDir string) Service {
	t.Helper()
	t.Cleanup(telemetry.SetupForTesting("test:services/novels"))
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewService(ServiceOptions{
		Client: pixiv.NewClient(pixiv.ClientOptions{
			BaseUrl: server.URL,
			Fetcher: fetch.NewClient(fetch.Options{NoThrottle: true}),
		}),
		Cache: filecache.New(cacheDir),
	})
}

func searchPayload(novels []pixiv.Novel) string {
	data, err := json.Marshal(novels)
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf(`{"body":{"novel":{"data":%s}}}`, data)
}

func TestSearchConcatenatesPagesInOrder(t *testing.T) {
	pages := map[string][]pixiv.Novel{
		"1": {
			{ID: "1", Title: "一", BookmarkCount: 5},
			{ID: "2", Title: "二", BookmarkCount: 50},
		},
		"2": {
			{ID: "3", Title: "三", BookmarkCount: 100},
		},
	}
	service := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchPayload(pages[r.URL.Query().Get("p")]))
	}), "")

	novels, err := service.Search(context.Background(), "word", 0, 1, 2)
	require.NoError(t, err)
	require.Len(t, novels, 3)
	require.Equal(t, "1", novels[0].ID)
	require.Equal(t, "3", novels[2].ID)

	// same pages with a bookmark threshold, order preserved
	novels, err = service.Search(context.Background(), "word", 10, 1, 2)
	require.NoError(t, err)
	require.Len(t, novels, 2)
	require.Equal(t, "2", novels[0].ID)
	require.Equal(t, "3", novels[1].ID)
}

func TestSearchUserBatchesAndPreservesOrder(t *testing.T) {
	const total = 150

	works := map[string]pixiv.Novel{}
	for i := total; i >= 1; i-- {
		id := strconv.Itoa(i)
		works[id] = pixiv.Novel{ID: id, BookmarkCount: i}
	}

	var batchRequests atomic.Int32
	service := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ajax/user/9/profile/all":
			// JSON objects keep their written order, so build the
			// payload by hand, descending
			fmt.Fprint(w, `{"body":{"novels":{`)
			for i := total; i >= 1; i-- {
				if i < total {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `"%d":{}`, i)
			}
			fmt.Fprint(w, `}}}`)
		case "/ajax/user/9/profile/novels":
			batchRequests.Add(1)
			ids := r.URL.Query()["ids[]"]
			require.LessOrEqual(t, len(ids), 100)
			batch := map[string]pixiv.Novel{}
			for _, id := range ids {
				batch[id] = works[id]
			}
			data, err := json.Marshal(batch)
			require.NoError(t, err)
			fmt.Fprintf(w, `{"body":{"works":%s}}`, data)
		default:
			t.Errorf("unexpected request: %s", r.URL.Path)
		}
	}), "")

	novels, err := service.SearchUser(context.Background(), "9", 0)
	require.NoError(t, err)
	require.Len(t, novels, total)
	require.EqualValues(t, 2, batchRequests.Load())

	// profile order survives the batching
	require.Equal(t, strconv.Itoa(total), novels[0].ID)
	require.Equal(t, "1", novels[total-1].ID)

	novels, err = service.SearchUser(context.Background(), "9", 100)
	require.NoError(t, err)
	require.Len(t, novels, total-99)
}

func rankingFixture(ids ...string) string {
	page := "<html><body>"
	for _, id := range ids {
		page += fmt.Sprintf(`
<section class="_ranking-item">
<img class="cover" alt="小説%s/作者" data-id="%s">
<span class="bookmark-count">10</span>
</section>`, id, id)
	}
	return page + "</body></html>"
}

func TestRankingCachesPerBucket(t *testing.T) {
	var hits atomic.Int32
	service := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/novel/ranking.php", r.URL.Path)
		hits.Add(1)
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, rankingFixture("201", "202"))
		} else {
			fmt.Fprint(w, rankingFixture("101", "102"))
		}
	}), t.TempDir())

	date := time.Date(2024, 5, 1, 0, 0, 0, 0, timezone.Location)
	novels, err := service.Ranking(context.Background(), "daily", date)
	require.NoError(t, err)
	require.Len(t, novels, 4)
	require.Equal(t, []string{"101", "102", "201", "202"},
		[]string{novels[0].ID, novels[1].ID, novels[2].ID, novels[3].ID})
	require.Equal(t, pixiv.RatingAll, novels[0].Rating)
	require.EqualValues(t, 2, hits.Load())

	// second load of the same bucket is served from the cache
	novels, err = service.Ranking(context.Background(), "daily", date)
	require.NoError(t, err)
	require.Len(t, novels, 4)
	require.EqualValues(t, 2, hits.Load())

	// another day is another bucket
	_, err = service.Ranking(context.Background(), "daily", date.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.EqualValues(t, 4, hits.Load())
}

func TestRankingCacheKeyHoldsModeAndDate(t *testing.T) {
	cacheDir := t.TempDir()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rankingFixture("1"))
	}))
	defer server.Close()
	service := NewService(ServiceOptions{
		Client: pixiv.NewClient(pixiv.ClientOptions{
			BaseUrl: server.URL,
			Fetcher: fetch.NewClient(fetch.Options{NoThrottle: true}),
		}),
		Cache: filecache.New(cacheDir),
	})

	date := time.Date(2024, 5, 1, 0, 0, 0, 0, timezone.Location)
	_, err := service.Ranking(context.Background(), "weekly", date)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(cacheDir, "pixiv-ranking-weekly-20240501"))
	require.NoError(t, err)
}

const novelPageFixture = `<html><head>
<meta name="preload-data" id="meta-preload-data" content='{"novel":{"88":{
"id":"88","title":"題","content":"本文",
"description":"説明","xRestrict":0,"bookmarkCount":3,
"createDate":"2024-05-01T00:00:00+09:00","userId":"7",
"tags":{"tags":[{"tag":"タグ"}]},"textEmbeddedImages":null}}}'>
</head><body></body></html>`

func TestNovelCaches(t *testing.T) {
	var hits atomic.Int32
	service := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/novel/show.php", r.URL.Path)
		require.Equal(t, "88", r.URL.Query().Get("id"))
		hits.Add(1)
		fmt.Fprint(w, novelPageFixture)
	}), t.TempDir())

	detail, err := service.Novel(context.Background(), "88")
	require.NoError(t, err)
	require.Equal(t, "題", detail.Title)
	require.Equal(t, "本文", detail.Content)
	require.Equal(t, "タグ", detail.Tags.Tags[0].Tag)

	detail, err = service.Novel(context.Background(), "88")
	require.NoError(t, err)
	require.Equal(t, "題", detail.Title)
	require.EqualValues(t, 1, hits.Load())
}

func TestFilterByBookmarks(t *testing.T) {
	novels := []pixiv.Novel{
		{ID: "a", BookmarkCount: 1},
		{ID: "b", BookmarkCount: 10},
		{ID: "c", BookmarkCount: 5},
	}

	require.Equal(t, novels, FilterByBookmarks(novels, 0))

	filtered := FilterByBookmarks(novels, 5)
	require.Len(t, filtered, 2)
	require.Equal(t, "b", filtered[0].ID)
	require.Equal(t, "c", filtered[1].ID)
}
