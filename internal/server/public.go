package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Raulcadiz/CineCadiz/internal/catalog"
	"github.com/Raulcadiz/CineCadiz/internal/httpclient"
	"github.com/Raulcadiz/CineCadiz/internal/safeurl"
	"github.com/Raulcadiz/CineCadiz/internal/store"
)

// pageJSON is the paginated list envelope.
type pageJSON struct {
	Items   []catalog.ItemJSON `json:"items"`
	Total   int                `json:"total"`
	Page    int                `json:"page"`
	Pages   int                `json:"pages"`
	PerPage int                `json:"perPage"`
}

func itemsJSON(items []catalog.Item) []catalog.ItemJSON {
	out := make([]catalog.ItemJSON, len(items))
	for i, it := range items {
		out[i] = it.JSON()
	}
	return out
}

func queryInt(r *http.Request, name, deflt string) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		v = deflt
	}
	n, _ := strconv.Atoi(v)
	return n
}

// handleContent lists active items with the optional filters type, genre,
// year and q (text search), paginated via page and limit.
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	q := store.ItemQuery{
		Genre:   r.URL.Query().Get("genre"),
		Text:    strings.TrimSpace(r.URL.Query().Get("q")),
		Page:    queryInt(r, "page", "1"),
		PerPage: queryInt(r, "limit", "0"),
	}
	switch r.URL.Query().Get("type") {
	case "movie":
		q.Kind = catalog.KindMovie
	case "series":
		q.Kind = catalog.KindSeries
	}
	if y := r.URL.Query().Get("year"); y != "" {
		q.Year, _ = strconv.Atoi(y)
	}
	s.writePage(w, q)
}

func (s *Server) handleMovies(w http.ResponseWriter, r *http.Request) {
	s.writePage(w, store.ItemQuery{Kind: catalog.KindMovie, Page: queryInt(r, "page", "1")})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	s.writePage(w, store.ItemQuery{Kind: catalog.KindSeries, Page: queryInt(r, "page", "1")})
}

func (s *Server) writePage(w http.ResponseWriter, q store.ItemQuery) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 || q.PerPage > 100 {
		q.PerPage = defaultPerPage
	}
	items, total, err := s.store.QueryItems(q)
	if err != nil {
		s.storeError(w, err)
		return
	}
	pages := (total + q.PerPage - 1) / q.PerPage
	s.writeJSON(w, http.StatusOK, pageJSON{
		Items:   itemsJSON(items),
		Total:   total,
		Page:    q.Page,
		Pages:   pages,
		PerPage: q.PerPage,
	})
}

// handleContentItem returns one active item.
func (s *Server) handleContentItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	it, err := s.store.ItemByID(id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if !it.Active {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.writeJSON(w, http.StatusOK, it.JSON())
}

// handleTrending returns the most recently added items.
func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", "20")
	if limit < 1 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}
	items, err := s.store.Trending(limit)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, itemsJSON(items))
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.store.Genres()
	if err != nil {
		s.storeError(w, err)
		return
	}
	if genres == nil {
		genres = []string{}
	}
	s.writeJSON(w, http.StatusOK, genres)
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	years, err := s.store.Years()
	if err != nil {
		s.storeError(w, err)
		return
	}
	if years == nil {
		years = []int{}
	}
	s.writeJSON(w, http.StatusOK, years)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.CatalogStats()
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{
		"movies":    st.Movies,
		"series":    st.Series,
		"inactive":  st.Inactive,
		"playlists": st.Playlists,
		"feeds":     st.Feeds,
		"total":     st.Total,
	})
}

// imageRetryPolicy retries throttled poster fetches once, with waits short
// enough for an inline browser request.
var imageRetryPolicy = httpclient.RetryPolicy{
	Retry429:   true,
	Max429Wait: 2 * time.Second,
	Retry5xx:   true,
	Backoff5xx: 500 * time.Millisecond,
}

// handleProxyImage fetches an external poster on behalf of the browser.
// CinemaCity and several CDNs refuse hotlinked requests, so the proxy sends
// a browser agent and a site referer, and the response is cached client-side
// for a day.
func (s *Server) handleProxyImage(w http.ResponseWriter, r *http.Request) {
	rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if rawURL == "" || !safeurl.IsHTTPOrHTTPS(rawURL) {
		s.writeError(w, http.StatusBadRequest, "invalid url")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, rawURL, nil)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid url")
		return
	}
	req.Header.Set("User-Agent", httpclient.BrowserUserAgent)
	req.Header.Set("Referer", "https://cinemacity.cc/")

	resp, err := httpclient.DoWithRetry(r.Context(), httpclient.Default(), req, imageRetryPolicy)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "image unavailable")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		s.writeError(w, http.StatusNotFound, "image unavailable")
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, resp.Body); err != nil {
		s.log.Debug("image proxy copy aborted", "err", err)
	}
}
