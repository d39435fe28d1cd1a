// Package importer runs playlist and feed imports in the background. Each
// import gets a job handle the admin UI can poll, and its outcome is also
// written onto the source row so the state survives restarts.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Raulcadiz/CineCadiz/internal/catalog"
	"github.com/Raulcadiz/CineCadiz/internal/config"
	"github.com/Raulcadiz/CineCadiz/internal/feed"
	"github.com/Raulcadiz/CineCadiz/internal/fetch"
	"github.com/Raulcadiz/CineCadiz/internal/metrics"
	"github.com/Raulcadiz/CineCadiz/internal/store"
)

// Batch sizes per source. Playlist imports arrive in the tens of thousands;
// feed imports in the hundreds.
const (
	playlistBatch = 500
	feedBatch     = 200
)

// maxFinishedJobs bounds how many completed job records stay pollable. The
// outcome also lives on the source row, so an evicted job loses nothing but
// its per-job counters.
const maxFinishedJobs = 50

// Status is a point-in-time snapshot of an import job.
type Status struct {
	ID         string         `json:"id"`
	Source     catalog.Source `json:"source"`
	TargetID   int64          `json:"targetId"`
	Running    bool           `json:"running"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
	Parsed     int            `json:"parsed"`
	Added      int            `json:"added"`
	Error      string         `json:"error,omitempty"`
}

// Importer fetches sources and persists their entries.
type Importer struct {
	store   *store.Store
	fetcher *fetch.Client
	filters config.Filters
	log     *slog.Logger

	mu   sync.Mutex
	jobs map[string]*Status
}

// New builds an Importer.
func New(st *store.Store, fc *fetch.Client, filters config.Filters, log *slog.Logger) *Importer {
	return &Importer{
		store:   st,
		fetcher: fc,
		filters: filters,
		log:     log,
		jobs:    make(map[string]*Status),
	}
}

// Job returns a snapshot of the given job, if it exists.
func (im *Importer) Job(id string) (Status, bool) {
	im.mu.Lock()
	defer im.mu.Unlock()
	j, ok := im.jobs[id]
	if !ok {
		return Status{}, false
	}
	return *j, true
}

// StartPlaylist launches a background import of the playlist and returns the
// job id. The playlist must exist.
func (im *Importer) StartPlaylist(id int64) (string, error) {
	p, err := im.store.PlaylistByID(id)
	if err != nil {
		return "", err
	}
	job := im.newJob(catalog.SourcePlaylist, p.ID)
	go im.runPlaylist(job, p)
	return job.ID, nil
}

// StartFeed launches a background import of the feed and returns the job id.
func (im *Importer) StartFeed(id int64) (string, error) {
	f, err := im.store.FeedByID(id)
	if err != nil {
		return "", err
	}
	job := im.newJob(catalog.SourceFeed, f.ID)
	go im.runFeed(job, f)
	return job.ID, nil
}

// ImportDefaults registers the built-in feed sources that are not in the
// database yet and starts an import for each new one. Returns the job ids.
func (im *Importer) ImportDefaults() ([]string, error) {
	var jobIDs []string
	for _, src := range feed.DefaultSources() {
		if _, err := im.store.FeedByURL(src.URL); err == nil {
			continue
		} else if err != store.ErrNotFound {
			return jobIDs, err
		}
		f := src
		if err := im.store.CreateFeed(&f); err != nil {
			return jobIDs, err
		}
		jobID, err := im.StartFeed(f.ID)
		if err != nil {
			return jobIDs, err
		}
		jobIDs = append(jobIDs, jobID)
	}
	return jobIDs, nil
}

func (im *Importer) newJob(src catalog.Source, targetID int64) *Status {
	job := &Status{
		ID:        uuid.NewString(),
		Source:    src,
		TargetID:  targetID,
		Running:   true,
		StartedAt: time.Now().UTC(),
	}
	im.mu.Lock()
	im.jobs[job.ID] = job
	im.mu.Unlock()
	return job
}

func (im *Importer) finishJob(job *Status, parsed, added int, errMsg string) {
	now := time.Now().UTC()
	im.mu.Lock()
	job.Running = false
	job.FinishedAt = &now
	job.Parsed = parsed
	job.Added = added
	job.Error = errMsg
	im.pruneFinishedLocked()
	im.mu.Unlock()

	result := "ok"
	if errMsg != "" {
		result = "error"
	}
	metrics.ImportsTotal.WithLabelValues(string(job.Source), result).Inc()
}

// pruneFinishedLocked evicts the oldest finished jobs beyond the retention
// cap. Running jobs are never evicted. Caller holds im.mu.
func (im *Importer) pruneFinishedLocked() {
	var finished []*Status
	for _, j := range im.jobs {
		if !j.Running {
			finished = append(finished, j)
		}
	}
	if len(finished) <= maxFinishedJobs {
		return
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].FinishedAt.Before(*finished[j].FinishedAt)
	})
	for _, j := range finished[:len(finished)-maxFinishedJobs] {
		delete(im.jobs, j.ID)
	}
}

func (im *Importer) runPlaylist(job *Status, p catalog.Playlist) {
	defer im.recoverJob(job, catalog.SourcePlaylist, p.ID)

	log := im.log.With("playlist", p.Name, "job", job.ID)
	log.Info("playlist import started", "url", p.URL)

	entries, err := im.fetcher.Playlist(context.Background(), p.URL, im.filters, p.FilterSpanish)
	if err != nil {
		log.Error("playlist download failed", "err", err)
		im.store.FinishPlaylistImport(p.ID, err.Error())
		im.finishJob(job, 0, 0, err.Error())
		return
	}

	fresh, err := im.dedup(entries)
	if err != nil {
		im.store.FinishPlaylistImport(p.ID, err.Error())
		im.finishJob(job, len(entries), 0, err.Error())
		return
	}

	added, err := im.store.InsertEntries(fresh, &p.ID, nil, playlistBatch)
	if err != nil {
		log.Error("playlist insert failed", "err", err)
		im.store.FinishPlaylistImport(p.ID, err.Error())
		im.finishJob(job, len(entries), added, err.Error())
		return
	}
	if err := im.store.FinishPlaylistImport(p.ID, ""); err != nil {
		im.finishJob(job, len(entries), added, err.Error())
		return
	}

	metrics.ItemsImported.WithLabelValues(string(catalog.SourcePlaylist)).Add(float64(added))
	log.Info("playlist import finished", "parsed", len(entries), "added", added)
	im.finishJob(job, len(entries), added, "")
}

func (im *Importer) runFeed(job *Status, f catalog.Feed) {
	defer im.recoverJob(job, catalog.SourceFeed, f.ID)

	log := im.log.With("feed", f.Name, "job", job.ID)
	log.Info("feed import started", "url", f.URL)

	entries, err := im.fetcher.Feed(context.Background(), f.URL)
	if err != nil {
		log.Error("feed download failed", "err", err)
		im.store.FinishFeedImport(f.ID, err.Error())
		im.finishJob(job, 0, 0, err.Error())
		return
	}

	fresh, err := im.dedup(entries)
	if err != nil {
		im.store.FinishFeedImport(f.ID, err.Error())
		im.finishJob(job, len(entries), 0, err.Error())
		return
	}

	added, err := im.store.InsertEntries(fresh, nil, &f.ID, feedBatch)
	if err != nil {
		log.Error("feed insert failed", "err", err)
		im.store.FinishFeedImport(f.ID, err.Error())
		im.finishJob(job, len(entries), added, err.Error())
		return
	}
	if err := im.store.FinishFeedImport(f.ID, ""); err != nil {
		im.finishJob(job, len(entries), added, err.Error())
		return
	}

	metrics.ItemsImported.WithLabelValues(string(catalog.SourceFeed)).Add(float64(added))
	log.Info("feed import finished", "parsed", len(entries), "added", added)
	im.finishJob(job, len(entries), added, "")
}

// dedup drops entries whose fingerprint is already stored, and duplicates
// within the download itself, keeping the first occurrence.
func (im *Importer) dedup(entries []catalog.Entry) ([]catalog.Entry, error) {
	fps := make([]string, len(entries))
	for i, e := range entries {
		fps[i] = e.Fingerprint
	}
	existing, err := im.store.ExistingFingerprints(fps)
	if err != nil {
		return nil, err
	}

	fresh := make([]catalog.Entry, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := existing[e.Fingerprint]; ok {
			continue
		}
		if _, ok := seen[e.Fingerprint]; ok {
			continue
		}
		seen[e.Fingerprint] = struct{}{}
		fresh = append(fresh, e)
	}
	return fresh, nil
}

// recoverJob turns a panic inside an import goroutine into a recorded
// failure instead of a crashed process.
func (im *Importer) recoverJob(job *Status, src catalog.Source, targetID int64) {
	r := recover()
	if r == nil {
		return
	}
	msg := fmt.Sprintf("import panic: %v", r)
	im.log.Error("import panicked", "job", job.ID, "err", msg)
	if src == catalog.SourcePlaylist {
		im.store.FinishPlaylistImport(targetID, msg)
	} else {
		im.store.FinishFeedImport(targetID, msg)
	}
	im.finishJob(job, 0, 0, msg)
}
