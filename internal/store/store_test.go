package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/Raulcadiz/CineCadiz/internal/catalog"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func movieEntry(title, url string) catalog.Entry {
	e := catalog.Entry{
		Title:  title,
		Kind:   catalog.KindMovie,
		Source: catalog.SourcePlaylist,
	}
	e.SetStreamURL(url)
	return e
}

func TestPlaylistCRUD(t *testing.T) {
	s := openTestStore(t)

	p := catalog.Playlist{Name: "Lista Uno", URL: "http://x/lista.m3u", FilterSpanish: true}
	if err := s.CreatePlaylist(&p); err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("ID not assigned")
	}

	got, err := s.PlaylistByID(p.ID)
	if err != nil {
		t.Fatalf("PlaylistByID: %v", err)
	}
	if got.Name != "Lista Uno" || !got.FilterSpanish || !got.Active {
		t.Errorf("playlist = %+v", got)
	}
	if got.LastImported != nil {
		t.Error("LastImported must start nil")
	}

	active, err := s.TogglePlaylist(p.ID)
	if err != nil || active {
		t.Fatalf("TogglePlaylist = %v, %v; want false, nil", active, err)
	}

	all, err := s.Playlists()
	if err != nil || len(all) != 1 {
		t.Fatalf("Playlists = %d, %v", len(all), err)
	}

	if err := s.DeletePlaylist(p.ID); err != nil {
		t.Fatalf("DeletePlaylist: %v", err)
	}
	if _, err := s.PlaylistByID(p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound; got %v", err)
	}
	if err := s.DeletePlaylist(p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: expected ErrNotFound; got %v", err)
	}
}

func TestFeedCRUD(t *testing.T) {
	s := openTestStore(t)

	f := catalog.Feed{Name: "CinemaCity", URL: "https://cinemacity.cc/rss.xml"}
	if err := s.CreateFeed(&f); err != nil {
		t.Fatalf("CreateFeed: %v", err)
	}

	byURL, err := s.FeedByURL(f.URL)
	if err != nil || byURL.ID != f.ID {
		t.Fatalf("FeedByURL = %+v, %v", byURL, err)
	}
	if _, err := s.FeedByURL("https://other/rss.xml"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound; got %v", err)
	}

	if err := s.DeleteFeed(f.ID); err != nil {
		t.Fatalf("DeleteFeed: %v", err)
	}
	if _, err := s.FeedByID(f.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound; got %v", err)
	}
}

func TestInsertEntries_dedupAndCounts(t *testing.T) {
	s := openTestStore(t)

	p := catalog.Playlist{Name: "L", URL: "http://x/l.m3u"}
	if err := s.CreatePlaylist(&p); err != nil {
		t.Fatal(err)
	}

	entries := []catalog.Entry{
		movieEntry("Uno", "http://x/1.mp4"),
		movieEntry("Dos", "http://x/2.mp4"),
		movieEntry("Uno bis", "http://x/1.mp4"), // same URL, must be ignored
	}
	added, err := s.InsertEntries(entries, &p.ID, nil, 2)
	if err != nil {
		t.Fatalf("InsertEntries: %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d; want 2", added)
	}

	existing, err := s.ExistingFingerprints([]string{
		entries[0].Fingerprint, "ffffffffffffffff",
	})
	if err != nil {
		t.Fatalf("ExistingFingerprints: %v", err)
	}
	if _, ok := existing[entries[0].Fingerprint]; !ok {
		t.Error("stored fingerprint not reported")
	}
	if len(existing) != 1 {
		t.Errorf("existing = %v", existing)
	}

	if err := s.FinishPlaylistImport(p.ID, ""); err != nil {
		t.Fatalf("FinishPlaylistImport: %v", err)
	}
	got, _ := s.PlaylistByID(p.ID)
	if got.TotalItems != 2 || got.ActiveItems != 2 {
		t.Errorf("counts = %d/%d; want 2/2", got.TotalItems, got.ActiveItems)
	}
	if got.LastImported == nil {
		t.Error("LastImported not set")
	}
}

func TestQueryItems(t *testing.T) {
	s := openTestStore(t)
	p := catalog.Playlist{Name: "L", URL: "http://x/l.m3u"}
	if err := s.CreatePlaylist(&p); err != nil {
		t.Fatal(err)
	}

	var entries []catalog.Entry
	for i := 0; i < 30; i++ {
		e := movieEntry(fmt.Sprintf("Peli %02d", i), fmt.Sprintf("http://x/%d.mp4", i))
		e.Genre = "Acción, Drama"
		e.Year = 2000 + i%3
		entries = append(entries, e)
	}
	serie := catalog.Entry{Title: "La Serie", Kind: catalog.KindSeries, Source: catalog.SourcePlaylist, Genre: "Comedia"}
	serie.SetStreamURL("http://x/serie.mp4")
	entries = append(entries, serie)

	if _, err := s.InsertEntries(entries, &p.ID, nil, 0); err != nil {
		t.Fatal(err)
	}

	items, total, err := s.QueryItems(ItemQuery{Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("QueryItems: %v", err)
	}
	if total != 31 || len(items) != 10 {
		t.Errorf("total = %d, page = %d; want 31, 10", total, len(items))
	}

	_, total, err = s.QueryItems(ItemQuery{Kind: catalog.KindSeries})
	if err != nil || total != 1 {
		t.Errorf("series total = %d, %v; want 1", total, err)
	}

	_, total, err = s.QueryItems(ItemQuery{Genre: "Drama"})
	if err != nil || total != 30 {
		t.Errorf("genre total = %d, %v; want 30", total, err)
	}

	_, total, err = s.QueryItems(ItemQuery{Year: 2001})
	if err != nil || total != 10 {
		t.Errorf("year total = %d, %v; want 10", total, err)
	}

	_, total, err = s.QueryItems(ItemQuery{Text: "serie"})
	if err != nil || total != 1 {
		t.Errorf("text total = %d, %v; want 1", total, err)
	}

	_, total, err = s.QueryItems(ItemQuery{Kind: catalog.KindMovie, Year: 2002, Text: "peli"})
	if err != nil || total != 10 {
		t.Errorf("combined total = %d, %v; want 10", total, err)
	}
}

func TestGenresYearsStats(t *testing.T) {
	s := openTestStore(t)
	p := catalog.Playlist{Name: "L", URL: "http://x/l.m3u"}
	if err := s.CreatePlaylist(&p); err != nil {
		t.Fatal(err)
	}

	a := movieEntry("A", "http://x/a.mp4")
	a.Genre = "Acción, Drama"
	a.Year = 2020
	b := catalog.Entry{Title: "B", Kind: catalog.KindSeries, Source: catalog.SourcePlaylist, Genre: "Drama , Comedia", Year: 2019}
	b.SetStreamURL("http://x/b.mp4")
	if _, err := s.InsertEntries([]catalog.Entry{a, b}, &p.ID, nil, 0); err != nil {
		t.Fatal(err)
	}

	genres, err := s.Genres()
	if err != nil {
		t.Fatalf("Genres: %v", err)
	}
	want := []string{"Acción", "Comedia", "Drama"}
	if len(genres) != len(want) {
		t.Fatalf("genres = %v", genres)
	}
	for i := range want {
		if genres[i] != want[i] {
			t.Errorf("genres = %v; want %v", genres, want)
			break
		}
	}

	years, err := s.Years()
	if err != nil || len(years) != 2 || years[0] != 2020 || years[1] != 2019 {
		t.Errorf("years = %v, %v", years, err)
	}

	st, err := s.CatalogStats()
	if err != nil {
		t.Fatalf("CatalogStats: %v", err)
	}
	if st.Movies != 1 || st.Series != 1 || st.Total != 2 || st.Playlists != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestToggleItem(t *testing.T) {
	s := openTestStore(t)
	p := catalog.Playlist{Name: "L", URL: "http://x/l.m3u"}
	if err := s.CreatePlaylist(&p); err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertEntries([]catalog.Entry{movieEntry("A", "http://x/a.mp4")}, &p.ID, nil, 0); err != nil {
		t.Fatal(err)
	}
	items, _, err := s.QueryItems(ItemQuery{})
	if err != nil || len(items) != 1 {
		t.Fatalf("QueryItems: %d, %v", len(items), err)
	}

	active, err := s.ToggleItem(items[0].ID)
	if err != nil || active {
		t.Fatalf("ToggleItem = %v, %v; want false", active, err)
	}
	if _, total, _ := s.QueryItems(ItemQuery{}); total != 0 {
		t.Errorf("inactive item still visible; total = %d", total)
	}
	if _, err := s.ItemByID(items[0].ID); err != nil {
		t.Errorf("ItemByID must return inactive items: %v", err)
	}
	if _, err := s.ToggleItem(99999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound; got %v", err)
	}
}

func TestScanBatchAndApply(t *testing.T) {
	s := openTestStore(t)
	p := catalog.Playlist{Name: "L", URL: "http://x/l.m3u"}
	if err := s.CreatePlaylist(&p); err != nil {
		t.Fatal(err)
	}

	entries := []catalog.Entry{
		movieEntry("A", "http://x/a.mp4"),
		movieEntry("B", "http://x/b.mp4"),
	}
	rssEntry := catalog.Entry{Title: "Web", Kind: catalog.KindMovie, Source: catalog.SourceFeed}
	rssEntry.SetStreamURL("https://cinemacity.cc/movies/web/")

	if _, err := s.InsertEntries(entries, &p.ID, nil, 0); err != nil {
		t.Fatal(err)
	}
	f := catalog.Feed{Name: "F", URL: "https://cinemacity.cc/rss.xml"}
	if err := s.CreateFeed(&f); err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertEntries([]catalog.Entry{rssEntry}, nil, &f.ID, 0); err != nil {
		t.Fatal(err)
	}

	targets, err := s.ScanBatch(10)
	if err != nil {
		t.Fatalf("ScanBatch: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("targets = %d; feed items must be excluded", len(targets))
	}

	// First target dies, second survives.
	results := map[int64]bool{targets[0].ID: false, targets[1].ID: true}
	if err := s.ApplyScanResults(time.Now().UTC(), results); err != nil {
		t.Fatalf("ApplyScanResults: %v", err)
	}

	dead, err := s.ItemByID(targets[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if dead.Active || dead.LastCheck == nil {
		t.Errorf("dead item = active %v, lastCheck %v", dead.Active, dead.LastCheck)
	}
	alive, _ := s.ItemByID(targets[1].ID)
	if !alive.Active || alive.LastCheck == nil {
		t.Errorf("alive item = active %v, lastCheck %v", alive.Active, alive.LastCheck)
	}

	if err := s.FinishPlaylistImport(p.ID, ""); err != nil {
		t.Fatal(err)
	}
	got, _ := s.PlaylistByID(p.ID)
	if got.ActiveItems != 1 || got.TotalItems != 2 {
		t.Errorf("counts = %d/%d; want 1/2", got.ActiveItems, got.TotalItems)
	}

	// Verified items move to the back of the queue.
	more := []catalog.Entry{movieEntry("C", "http://x/c.mp4")}
	if _, err := s.InsertEntries(more, &p.ID, nil, 0); err != nil {
		t.Fatal(err)
	}
	targets, err = s.ScanBatch(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 2 || targets[0].StreamURL != "http://x/c.mp4" {
		t.Errorf("never-verified item must come first; targets = %+v", targets)
	}
}
