package importer

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Raulcadiz/CineCadiz/internal/catalog"
	"github.com/Raulcadiz/CineCadiz/internal/config"
	"github.com/Raulcadiz/CineCadiz/internal/feed"
	"github.com/Raulcadiz/CineCadiz/internal/fetch"
	"github.com/Raulcadiz/CineCadiz/internal/store"
)

func testImporter(t *testing.T) (*Importer, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(st, fetch.New(0), config.LoadFilters(), log), st
}

// waitJob polls until the job finishes.
func waitJob(t *testing.T, im *Importer, jobID string) Status {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if job, ok := im.Job(jobID); ok && !job.Running {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", jobID)
	return Status{}
}

func TestStartPlaylist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#EXTM3U\n" +
			"#EXTINF:-1 group-title=\"Peliculas ES\",Una (2020)\nhttp://x/una.mp4\n" +
			"#EXTINF:-1 group-title=\"Peliculas ES\",Una otra vez (2020)\nhttp://x/una.mp4\n" +
			"#EXTINF:-1 group-title=\"Cine\",Dos (2021)\nhttp://x/dos.mp4\n"))
	}))
	defer srv.Close()

	im, st := testImporter(t)
	p := catalog.Playlist{Name: "L", URL: srv.URL}
	if err := st.CreatePlaylist(&p); err != nil {
		t.Fatal(err)
	}

	jobID, err := im.StartPlaylist(p.ID)
	if err != nil {
		t.Fatalf("StartPlaylist: %v", err)
	}
	job := waitJob(t, im, jobID)
	if job.Error != "" {
		t.Fatalf("job error: %s", job.Error)
	}
	// The repeated stream URL collapses into one item.
	if job.Parsed != 3 || job.Added != 2 {
		t.Errorf("parsed/added = %d/%d; want 3/2", job.Parsed, job.Added)
	}

	got, err := st.PlaylistByID(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalItems != 2 || got.LastError != "" || got.LastImported == nil {
		t.Errorf("playlist after import = %+v", got)
	}

	// A second import of the same list adds nothing.
	jobID, err = im.StartPlaylist(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	job = waitJob(t, im, jobID)
	if job.Added != 0 {
		t.Errorf("re-import added %d items", job.Added)
	}
}

func TestStartPlaylist_downloadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	im, st := testImporter(t)
	p := catalog.Playlist{Name: "L", URL: srv.URL}
	if err := st.CreatePlaylist(&p); err != nil {
		t.Fatal(err)
	}

	jobID, err := im.StartPlaylist(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	job := waitJob(t, im, jobID)
	if job.Error == "" {
		t.Fatal("expected job error")
	}

	got, _ := st.PlaylistByID(p.ID)
	if got.LastError == "" {
		t.Error("error not recorded on playlist")
	}
	if got.LastImported == nil {
		t.Error("failed imports must still stamp the attempt time")
	}
}

func TestStartPlaylist_unknownID(t *testing.T) {
	im, _ := testImporter(t)
	if _, err := im.StartPlaylist(42); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound; got %v", err)
	}
}

func TestStartFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<rss version="2.0"><channel>
  <item><title>Peli (2022)</title><link>https://cinemacity.cc/movies/peli/</link></item>
  <item><title>Serie</title><link>https://cinemacity.cc/tv-series/serie/</link></item>
</channel></rss>`))
	}))
	defer srv.Close()

	im, st := testImporter(t)
	f := catalog.Feed{Name: "CC", URL: srv.URL}
	if err := st.CreateFeed(&f); err != nil {
		t.Fatal(err)
	}

	jobID, err := im.StartFeed(f.ID)
	if err != nil {
		t.Fatalf("StartFeed: %v", err)
	}
	job := waitJob(t, im, jobID)
	if job.Error != "" || job.Added != 2 {
		t.Fatalf("job = %+v", job)
	}

	got, _ := st.FeedByID(f.ID)
	if got.TotalItems != 2 {
		t.Errorf("TotalItems = %d; want 2", got.TotalItems)
	}
}

func TestImportDefaults_skipsExisting(t *testing.T) {
	im, st := testImporter(t)
	for _, src := range feed.DefaultSources() {
		f := src
		if err := st.CreateFeed(&f); err != nil {
			t.Fatal(err)
		}
	}

	jobIDs, err := im.ImportDefaults()
	if err != nil {
		t.Fatalf("ImportDefaults: %v", err)
	}
	if len(jobIDs) != 0 {
		t.Errorf("started %d jobs for already-registered feeds", len(jobIDs))
	}
	feeds, _ := st.Feeds()
	if len(feeds) != len(feed.DefaultSources()) {
		t.Errorf("feeds duplicated: %d", len(feeds))
	}
}

func TestFinishedJobsPruned(t *testing.T) {
	im, _ := testImporter(t)

	running := im.newJob(catalog.SourcePlaylist, 1)
	var ids []string
	for i := 0; i < maxFinishedJobs+10; i++ {
		j := im.newJob(catalog.SourcePlaylist, 1)
		im.finishJob(j, 1, 0, "")
		ids = append(ids, j.ID)
	}

	im.mu.Lock()
	n := len(im.jobs)
	im.mu.Unlock()
	if n != maxFinishedJobs+1 {
		t.Errorf("jobs retained = %d; want %d finished plus the running one", n, maxFinishedJobs)
	}
	if _, ok := im.Job(ids[0]); ok {
		t.Error("oldest finished job should have been evicted")
	}
	if _, ok := im.Job(ids[len(ids)-1]); !ok {
		t.Error("newest finished job evicted")
	}
	if _, ok := im.Job(running.ID); !ok {
		t.Error("running job evicted")
	}
}

func TestJob_unknown(t *testing.T) {
	im, _ := testImporter(t)
	if _, ok := im.Job("nope"); ok {
		t.Fatal("unknown job reported as existing")
	}
}
