// Command cinecadiz serves the CineCadiz catalog: it ingests M3U playlists
// and RSS feeds into SQLite, verifies stream liveness in the background, and
// exposes the public and admin HTTP APIs. Zero interaction after the
// environment is set.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Raulcadiz/CineCadiz/internal/config"
	"github.com/Raulcadiz/CineCadiz/internal/fetch"
	"github.com/Raulcadiz/CineCadiz/internal/importer"
	"github.com/Raulcadiz/CineCadiz/internal/scanner"
	"github.com/Raulcadiz/CineCadiz/internal/scheduler"
	"github.com/Raulcadiz/CineCadiz/internal/server"
	"github.com/Raulcadiz/CineCadiz/internal/store"
)

func main() {
	envFile := flag.String("env", "", "optional .env file loaded before reading the environment")
	flag.Parse()

	if *envFile != "" {
		if err := config.LoadEnvFile(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "load env file: %v\n", err)
			os.Exit(1)
		}
	}
	cfg := *config.Load()
	log := newLogger(cfg)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger: stdout, plus a size-rotated file when
// one is configured.
func newLogger(cfg config.Config) *slog.Logger {
	var w io.Writer = os.Stdout
	if cfg.LogFile != "" {
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		})
	}
	return slog.New(slog.NewTextHandler(w, nil))
}

func run(cfg config.Config, log *slog.Logger) error {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	log.Info("database open", "path", cfg.DBPath)

	if cfg.AdminToken == "" {
		log.Warn("no admin token configured, admin API disabled")
	}

	fetcher := fetch.New(cfg.DownloadTimeout)
	im := importer.New(st, fetcher, cfg.Filters, log)
	sc := scanner.New(st, cfg.ScanTimeout, cfg.ScanWorkers, log)
	srv := server.New(st, im, sc, cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoScan {
		go scheduler.New(sc, cfg.ScanInterval, cfg.ScanBatch, log).Run(ctx)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
