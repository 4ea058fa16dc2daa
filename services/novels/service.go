// Package novels aggregates listing and novel data from the upstream
// site: it runs the fetch+cache+extract cycles and hands ordered,
// threshold-filtered record lists to the views.
package novels

import (
	"context"
	"fmt"
	"time"

	"novelview-backend/lib/filecache"
	"novelview-backend/lib/scrapers/pixiv"
	"novelview-backend/lib/telemetry"

	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("novelview.services.novels")

const (
	// ranking data for a past day does not change, only the first load
	// of a fresh bucket ever needs the network again
	rankingExpiry = time.Hour
	novelExpiry   = 3 * 24 * time.Hour
	// the upstream ranking spreads one day over paginated chunks; the
	// first two cover what the views show
	rankingPages = 2
)

type Service struct {
	client *pixiv.Client
	cache  *filecache.Cache
}

type ServiceOptions struct {
	Client *pixiv.Client
	// Cache may be disabled (empty dir), every request then goes
	// upstream
	Cache *filecache.Cache
}

func NewService(opts ServiceOptions) Service {
	return Service{
		client: opts.Client,
		cache:  opts.Cache,
	}
}

func (s Service) Client() *pixiv.Client { return s.client }

// Search returns npages of live search results starting at page,
// concatenated in ascending page order and filtered by minBookmarks.
func (s Service) Search(ctx context.Context, query string, minBookmarks, page, npages int) ([]pixiv.Novel, error) {
	ctx, span := tracer.Start(ctx, "service:Search")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if npages < 1 {
		npages = 1
	}

	var novels []pixiv.Novel
	for i := 0; i < npages; i++ {
		data, err := s.client.SearchNovels(ctx, query, page+i)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to fetch search page")
			return nil, err
		}
		novels = append(novels, data...)
	}
	return FilterByBookmarks(novels, minBookmarks), nil
}

// SearchUser returns every novel of one author, in profile order,
// filtered by minBookmarks. Details are fetched in batches of at most
// 100 ids per request.
func (s Service) SearchUser(ctx context.Context, userID string, minBookmarks int) ([]pixiv.Novel, error) {
	ctx, span := tracer.Start(ctx, "service:SearchUser")
	defer span.End()

	ids, err := s.client.UserNovelIDs(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve novel ids")
		return nil, err
	}

	var novels []pixiv.Novel
	for start := 0; start < len(ids); start += 100 {
		end := start + 100
		if end > len(ids) {
			end = len(ids)
		}
		batch, err := s.client.UserNovels(ctx, userID, ids[start:end])
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to fetch novel batch")
			return nil, err
		}
		novels = append(novels, batch...)
	}
	return FilterByBookmarks(novels, minBookmarks), nil
}

// Ranking returns the full record list of one ranking bucket (mode +
// day). Buckets are cached under a key holding both, so distinct
// buckets never collide; a failed refresh falls back to the stale
// bucket one layer down.
func (s Service) Ranking(ctx context.Context, mode string, date time.Time) ([]pixiv.Novel, error) {
	ctx, span := tracer.Start(ctx, "service:Ranking")
	defer span.End()

	key := fmt.Sprintf("pixiv-ranking-%s-%s", mode, date.Format("20060102"))
	novels, err := filecache.GetOrCompute(ctx, s.cache, key, rankingExpiry, func(ctx context.Context) ([]pixiv.Novel, error) {
		var novels []pixiv.Novel
		for page := 1; page <= rankingPages; page++ {
			raw, err := s.client.RankingPage(ctx, mode, date, page)
			if err != nil {
				return nil, err
			}
			records, err := pixiv.ExtractRanking(raw, 0, pixiv.RatingForMode(mode))
			if err != nil {
				return nil, err
			}
			novels = append(novels, records...)
		}
		return novels, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load ranking bucket")
		return nil, err
	}
	return novels, nil
}

// Novel returns the full detail record of one novel.
func (s Service) Novel(ctx context.Context, novelID string) (pixiv.NovelDetail, error) {
	ctx, span := tracer.Start(ctx, "service:Novel")
	defer span.End()

	key := "pixiv-showPhp-" + novelID
	detail, err := filecache.GetOrCompute(ctx, s.cache, key, novelExpiry, func(ctx context.Context) (pixiv.NovelDetail, error) {
		page, err := s.client.NovelPage(ctx, novelID)
		if err != nil {
			return pixiv.NovelDetail{}, err
		}
		return pixiv.ExtractNovelDetail(page)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load novel")
		return pixiv.NovelDetail{}, err
	}
	return detail, nil
}

// FilterByBookmarks keeps the records with at least min bookmarks,
// preserving their relative order.
func FilterByBookmarks(novels []pixiv.Novel, min int) []pixiv.Novel {
	if min <= 0 {
		return novels
	}
	var out []pixiv.Novel
	for _, novel := range novels {
		if novel.BookmarkCount >= min {
			out = append(out, novel)
		}
	}
	return out
}
