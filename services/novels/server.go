package novels

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"novelview-backend/lib/fetch"
	"novelview-backend/lib/scrapers/pixiv"
	"novelview-backend/lib/timezone"
)

// ServerOptions configures the HTTP front of the service.
type ServerOptions struct {
	Service Service
	// AutoSaveDir, when set, writes every viewed novel to this
	// directory as a standalone HTML file.
	AutoSaveDir string
	// Colorize paints speaker names in novel text.
	Colorize bool
}

type server struct {
	service  Service
	autoSave string
	colorize bool
}

// NewHandler builds the HTTP handler exposing the reader views.
func NewHandler(opts ServerOptions) http.Handler {
	s := &server{
		service:  opts.Service,
		autoSave: opts.AutoSaveDir,
		colorize: opts.Colorize,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleIndex)
	r.Get("/ranking", s.handleRanking)
	r.Get("/search", s.handleSearch)
	r.Get("/user", s.handleUser)
	r.Get("/novel", s.handleNovel)
	return r
}

// writeError maps an upstream failure onto a client-facing status. A
// block or an upstream 404 is the client's problem to see, anything
// else is a gateway failure.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed",
		"path", r.URL.Path,
		"query", r.URL.RawQuery,
		"err", err,
	)
	status := http.StatusBadGateway
	var fetchErr *fetch.FetchError
	if errors.As(err, &fetchErr) && fetchErr.StatusCode == http.StatusNotFound {
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}

func writeHTML(w http.ResponseWriter, page string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, page)
}

func intParam(r *http.Request, name string, def int) int {
	value := r.URL.Query().Get(name)
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/ranking", http.StatusFound)
}

func (s *server) handleRanking(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("mode")
	if mode == "" {
		mode = "daily"
	}
	info, ok := pixiv.Modes[mode]
	if !ok {
		http.Error(w, "unknown ranking mode: "+mode, http.StatusBadRequest)
		return
	}
	date := timezone.ClampToYesterday(query.Get("date"))

	novels, err := s.service.Ranking(r.Context(), mode, date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := RenderListing(ListingPage{
		Kind:      "ranking",
		Heading:   info.Label + "ランキング " + date.Format("2006-01-02"),
		Compact:   query.Get("compact") != "",
		Mode:      mode,
		Date:      date.Format("2006-01-02"),
		MaxDate:   timezone.Yesterday().Format("2006-01-02"),
		HasCookie: s.service.Client().HasCookie(),
		Novels:    novels,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeHTML(w, page)
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	word := query.Get("q")
	if word == "" {
		http.Error(w, "missing search word", http.StatusBadRequest)
		return
	}
	page := intParam(r, "page", 1)
	npages := intParam(r, "npages", 1)
	if npages > 3 {
		npages = 3
	}
	minBookmarks := 0
	if v := query.Get("bookmarks"); v != "" {
		minBookmarks, _ = strconv.Atoi(v)
	}

	novels, err := s.service.Search(r.Context(), word, minBookmarks, page, npages)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rendered, err := RenderListing(ListingPage{
		Kind:         "search",
		Heading:      "検索: " + word,
		Compact:      query.Get("compact") != "",
		Query:        word,
		MinBookmarks: minBookmarks,
		Page:         page,
		Npages:       npages,
		HasCookie:    s.service.Client().HasCookie(),
		Novels:       novels,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeHTML(w, rendered)
}

func (s *server) handleUser(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userID := query.Get("id")
	if userID == "" {
		http.Error(w, "missing user id", http.StatusBadRequest)
		return
	}
	minBookmarks := 0
	if v := query.Get("bookmarks"); v != "" {
		minBookmarks, _ = strconv.Atoi(v)
	}

	novels, err := s.service.SearchUser(r.Context(), userID, minBookmarks)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rendered, err := RenderListing(ListingPage{
		Kind:         "user",
		Heading:      "ユーザー " + userID + " の小説",
		Compact:      query.Get("compact") != "",
		UserID:       userID,
		MinBookmarks: minBookmarks,
		HasCookie:    s.service.Client().HasCookie(),
		Novels:       novels,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeHTML(w, rendered)
}

func (s *server) handleNovel(w http.ResponseWriter, r *http.Request) {
	novelID := r.URL.Query().Get("id")
	if novelID == "" {
		http.Error(w, "missing novel id", http.StatusBadRequest)
		return
	}

	detail, err := s.service.Novel(r.Context(), novelID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.service.RenderNovel(r.Context(), &detail, ReaderOptions{
		Colorize:     s.colorize,
		InlineImages: true,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if s.autoSave != "" {
		path, err := SaveNovel(s.autoSave, &detail, page)
		if err != nil {
			slog.Error("autosave failed", "novel", novelID, "err", err)
		} else {
			slog.Info("saved novel", "path", path)
		}
	}
	writeHTML(w, page)
}
