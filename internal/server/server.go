// Package server provides the HTTP API: the public catalog endpoints the
// frontend consumes and the token-protected admin endpoints that manage
// sources and trigger scans.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Raulcadiz/CineCadiz/internal/config"
	"github.com/Raulcadiz/CineCadiz/internal/importer"
	"github.com/Raulcadiz/CineCadiz/internal/scanner"
	"github.com/Raulcadiz/CineCadiz/internal/store"
)

// defaultPerPage is the page size when the client does not ask for one.
const defaultPerPage = 24

// Server is the HTTP layer over the store, the importer and the scanner.
type Server struct {
	store    *store.Store
	importer *importer.Importer
	scanner  *scanner.Scanner
	cfg      config.Config
	log      *slog.Logger
	router   chi.Router
}

// New builds the server and its routes.
func New(st *store.Store, im *importer.Importer, sc *scanner.Scanner, cfg config.Config, log *slog.Logger) *Server {
	s := &Server{
		store:    st,
		importer: im,
		scanner:  sc,
		cfg:      cfg,
		log:      log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/content", s.handleContent)
		r.Get("/content/{id}", s.handleContentItem)
		r.Get("/movies", s.handleMovies)
		r.Get("/series", s.handleSeries)
		r.Get("/trending", s.handleTrending)
		r.Get("/genres", s.handleGenres)
		r.Get("/years", s.handleYears)
		r.Get("/stats", s.handleStats)
		r.Get("/proxy-image", s.handleProxyImage)
	})

	r.Route("/admin/api", func(r chi.Router) {
		r.Use(s.requireAdmin)

		r.Get("/playlists", s.handlePlaylists)
		r.Post("/playlists", s.handleCreatePlaylist)
		r.Get("/playlists/{id}", s.handlePlaylistStatus)
		r.Post("/playlists/{id}/refresh", s.handleRefreshPlaylist)
		r.Post("/playlists/{id}/toggle", s.handleTogglePlaylist)
		r.Delete("/playlists/{id}", s.handleDeletePlaylist)

		r.Get("/feeds", s.handleFeeds)
		r.Post("/feeds", s.handleCreateFeed)
		r.Get("/feeds/{id}", s.handleFeedStatus)
		r.Post("/feeds/{id}/refresh", s.handleRefreshFeed)
		r.Delete("/feeds/{id}", s.handleDeleteFeed)
		r.Post("/feeds/import-defaults", s.handleImportDefaults)

		r.Get("/jobs/{id}", s.handleJobStatus)

		r.Post("/scan", s.handleScan)
		r.Get("/scan/status", s.handleScanStatus)

		r.Post("/content/{id}/toggle", s.handleToggleItem)
	})

	s.router = r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("write response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// storeError maps store errors onto HTTP statuses.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	if err == store.ErrNotFound {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.log.Error("store failure", "err", err)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}
