package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Raulcadiz/CineCadiz/internal/catalog"
	"github.com/Raulcadiz/CineCadiz/internal/config"
	"github.com/Raulcadiz/CineCadiz/internal/fetch"
	"github.com/Raulcadiz/CineCadiz/internal/importer"
	"github.com/Raulcadiz/CineCadiz/internal/scanner"
	"github.com/Raulcadiz/CineCadiz/internal/store"
)

const testToken = "test-token"

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{AdminToken: testToken, ScanBatch: 100, ScanWorkers: 5}
	im := importer.New(st, fetch.New(0), config.LoadFilters(), log)
	sc := scanner.New(st, 2*time.Second, cfg.ScanWorkers, log)
	return New(st, im, sc, cfg, log), st
}

func seedItems(t *testing.T, st *store.Store) {
	t.Helper()
	p := catalog.Playlist{Name: "L", URL: "http://x/l.m3u"}
	if err := st.CreatePlaylist(&p); err != nil {
		t.Fatal(err)
	}
	a := catalog.Entry{Title: "Una Peli", Kind: catalog.KindMovie, Source: catalog.SourcePlaylist, Genre: "Acción", Year: 2020}
	a.SetStreamURL("http://x/a.mp4")
	b := catalog.Entry{Title: "Una Serie", Kind: catalog.KindSeries, Source: catalog.SourcePlaylist, Genre: "Drama", Year: 2021}
	b.SetStreamURL("http://x/b.mp4")
	if _, err := st.InsertEntries([]catalog.Entry{a, b}, &p.ID, nil, 0); err != nil {
		t.Fatal(err)
	}
}

func doJSON(t *testing.T, s *Server, method, path, token, body string, out any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("X-Admin-Token", token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec
}

func TestContentEndpoints(t *testing.T) {
	s, st := newTestServer(t)
	seedItems(t, st)

	var page pageJSON
	rec := doJSON(t, s, http.MethodGet, "/api/content", "", "", &page)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if page.Total != 2 || len(page.Items) != 2 || page.Page != 1 {
		t.Errorf("page = %+v", page)
	}

	doJSON(t, s, http.MethodGet, "/api/content?type=movie", "", "", &page)
	if page.Total != 1 || page.Items[0].Title != "Una Peli" {
		t.Errorf("movie filter page = %+v", page)
	}

	doJSON(t, s, http.MethodGet, "/api/content?q=serie&year=2021", "", "", &page)
	if page.Total != 1 || page.Items[0].Type != "series" {
		t.Errorf("search page = %+v", page)
	}

	doJSON(t, s, http.MethodGet, "/api/series", "", "", &page)
	if page.Total != 1 {
		t.Errorf("series shortcut = %+v", page)
	}

	var items []catalog.ItemJSON
	doJSON(t, s, http.MethodGet, "/api/trending?limit=1", "", "", &items)
	if len(items) != 1 {
		t.Errorf("trending = %+v", items)
	}

	var genres []string
	doJSON(t, s, http.MethodGet, "/api/genres", "", "", &genres)
	if len(genres) != 2 {
		t.Errorf("genres = %v", genres)
	}

	var years []int
	doJSON(t, s, http.MethodGet, "/api/years", "", "", &years)
	if len(years) != 2 || years[0] != 2021 {
		t.Errorf("years = %v", years)
	}

	var stats map[string]int
	doJSON(t, s, http.MethodGet, "/api/stats", "", "", &stats)
	if stats["movies"] != 1 || stats["series"] != 1 || stats["total"] != 2 {
		t.Errorf("stats = %v", stats)
	}
}

func TestContentItem(t *testing.T) {
	s, st := newTestServer(t)
	seedItems(t, st)

	items, _, err := st.QueryItems(store.ItemQuery{Kind: catalog.KindMovie})
	if err != nil || len(items) != 1 {
		t.Fatalf("seed lookup: %d, %v", len(items), err)
	}
	id := items[0].ID

	var item catalog.ItemJSON
	rec := doJSON(t, s, http.MethodGet, "/api/content/"+itoa(id), "", "", &item)
	if rec.Code != http.StatusOK || item.Title != "Una Peli" {
		t.Fatalf("status = %d, item = %+v", rec.Code, item)
	}
	if item.Year == nil || *item.Year != 2020 {
		t.Errorf("year = %v", item.Year)
	}

	// Deactivated items disappear from the public API.
	if _, err := st.ToggleItem(id); err != nil {
		t.Fatal(err)
	}
	rec = doJSON(t, s, http.MethodGet, "/api/content/"+itoa(id), "", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("inactive item status = %d; want 404", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/content/999", "", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing item status = %d; want 404", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/healthz", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestProxyImage(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Referer") == "" {
			t.Error("proxy must send a referer")
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer upstream.Close()

	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/proxy-image?url="+upstream.URL+"/poster.png", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "max-age=86400") {
		t.Errorf("cache control = %q", cc)
	}
	if rec.Body.String() != "png-bytes" {
		t.Errorf("body = %q", rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/proxy-image?url=ftp://x/y.png", "", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("ftp scheme status = %d; want 400", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, "/api/proxy-image", "", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing url status = %d; want 400", rec.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
