package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Raulcadiz/CineCadiz/internal/catalog"
	"github.com/Raulcadiz/CineCadiz/internal/config"
	"github.com/Raulcadiz/CineCadiz/internal/safeurl"
	"github.com/Raulcadiz/CineCadiz/internal/scanner"
)

// requireAdmin guards the admin API with the configured token, accepted as
// "Authorization: Bearer <token>" or "X-Admin-Token". With no token
// configured the whole admin surface stays off.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminToken == "" {
			s.writeError(w, http.StatusServiceUnavailable, "admin API disabled: no admin token configured")
			return
		}
		token := r.Header.Get("X-Admin-Token")
		if token == "" {
			token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// --- Playlists ---

func (s *Server) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.store.Playlists()
	if err != nil {
		s.storeError(w, err)
		return
	}
	out := make([]catalog.PlaylistJSON, len(playlists))
	for i, p := range playlists {
		out[i] = p.JSON()
	}
	s.writeJSON(w, http.StatusOK, out)
}

type createPlaylistRequest struct {
	Name          string `json:"name"`
	URL           string `json:"url"`
	FilterSpanish bool   `json:"filterSpanish"`
}

// handleCreatePlaylist registers an M3U source and immediately starts its
// first import in the background.
func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.URL = strings.TrimSpace(req.URL)
	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := safeurl.Validate(req.URL); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := catalog.Playlist{Name: req.Name, URL: req.URL, FilterSpanish: req.FilterSpanish}
	if err := s.store.CreatePlaylist(&p); err != nil {
		s.storeError(w, err)
		return
	}
	jobID, err := s.importer.StartPlaylist(p.ID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"playlist": p.JSON(),
		"jobId":    jobID,
	})
}

func (s *Server) handlePlaylistStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	p, err := s.store.PlaylistByID(id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p.JSON())
}

func (s *Server) handleRefreshPlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	jobID, err := s.importer.StartPlaylist(id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID})
}

func (s *Server) handleTogglePlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	active, err := s.store.TogglePlaylist(id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"active": active})
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.store.DeletePlaylist(id); err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// --- Feeds ---

func (s *Server) handleFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := s.store.Feeds()
	if err != nil {
		s.storeError(w, err)
		return
	}
	out := make([]catalog.FeedJSON, len(feeds))
	for i, f := range feeds {
		out[i] = f.JSON()
	}
	s.writeJSON(w, http.StatusOK, out)
}

type createFeedRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s *Server) handleCreateFeed(w http.ResponseWriter, r *http.Request) {
	var req createFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.URL = strings.TrimSpace(req.URL)
	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := safeurl.Validate(req.URL); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f := catalog.Feed{Name: req.Name, URL: req.URL}
	if err := s.store.CreateFeed(&f); err != nil {
		s.storeError(w, err)
		return
	}
	jobID, err := s.importer.StartFeed(f.ID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"feed":  f.JSON(),
		"jobId": jobID,
	})
}

func (s *Server) handleFeedStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	f, err := s.store.FeedByID(id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, f.JSON())
}

func (s *Server) handleRefreshFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	jobID, err := s.importer.StartFeed(id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID})
}

func (s *Server) handleDeleteFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.store.DeleteFeed(id); err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleImportDefaults(w http.ResponseWriter, r *http.Request) {
	jobIDs, err := s.importer.ImportDefaults()
	if err != nil {
		s.storeError(w, err)
		return
	}
	if jobIDs == nil {
		jobIDs = []string{}
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{"jobIds": jobIDs})
}

// --- Jobs ---

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.importer.Job(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown job")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

// --- Scan ---

// handleScan triggers a liveness scan in the background, honoring per-request
// batch and workers overrides. A scan already in flight answers 409.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	running, _ := s.scanner.Status()
	if running {
		s.writeError(w, http.StatusConflict, "scan already running")
		return
	}
	batch := queryInt(r, "batch", strconv.Itoa(s.cfg.ScanBatch))
	if batch < 1 {
		batch = s.cfg.ScanBatch
	}
	workers := queryInt(r, "workers", "0")
	if workers > 0 {
		workers = config.ClampWorkers(workers)
	}
	// The scan outlives the request, so it gets a fresh context.
	go func() {
		if _, err := s.scanner.Run(context.Background(), batch, workers); err != nil && err != scanner.ErrRunning {
			s.log.Error("manual scan failed", "err", err)
		}
	}()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	running, last := s.scanner.Status()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"running": running,
		"last":    last,
	})
}

// --- Content moderation ---

func (s *Server) handleToggleItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	active, err := s.store.ToggleItem(id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"active": active})
}
