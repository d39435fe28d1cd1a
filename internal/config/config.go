// Package config loads the application configuration from the environment
// (optionally seeded from a .env file) and carries the classifier keyword
// lists as an immutable value passed into every classifier call.
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds server, store, download and scan settings.
type Config struct {
	Addr       string // listen address, e.g. ":8000"
	DBPath     string // sqlite file path
	AdminToken string // bearer token for /admin routes; empty disables admin

	// Playlist download budget. Connect timeout is fixed (10s); this caps the
	// total transfer time across streamed chunks so one slow provider cannot
	// stall an import indefinitely.
	DownloadTimeout time.Duration

	// Dead-link scanner.
	ScanInterval time.Duration // between automatic scans
	ScanTimeout  time.Duration // per-link probe timeout
	ScanBatch    int           // links per scan run
	ScanWorkers  int           // parallel probes, clamped to 5..80
	AutoScan     bool          // enable the periodic scan job

	// Logging.
	LogFile       string // "" = stdout only
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	Filters Filters
}

// Load reads configuration from the environment. Call LoadEnvFile(".env")
// first to seed the environment from a file.
func Load() *Config {
	c := &Config{
		Addr:            getEnv("CINECADIZ_ADDR", ":8000"),
		DBPath:          getEnv("CINECADIZ_DB", "./cinecadiz.db"),
		AdminToken:      os.Getenv("CINECADIZ_ADMIN_TOKEN"),
		DownloadTimeout: time.Duration(getEnvInt("CINECADIZ_DOWNLOAD_TIMEOUT", 300)) * time.Second,
		ScanInterval:    time.Duration(getEnvInt("CINECADIZ_SCAN_INTERVAL_HOURS", 24)) * time.Hour,
		ScanTimeout:     time.Duration(getEnvInt("CINECADIZ_SCAN_TIMEOUT", 8)) * time.Second,
		ScanBatch:       getEnvInt("CINECADIZ_SCAN_BATCH_SIZE", 100),
		ScanWorkers:     getEnvInt("CINECADIZ_SCAN_WORKERS", 40),
		AutoScan:        getEnvBool("CINECADIZ_AUTO_SCAN", false),
		LogFile:         os.Getenv("CINECADIZ_LOG_FILE"),
		LogMaxSizeMB:    getEnvInt("CINECADIZ_LOG_MAX_SIZE_MB", 20),
		LogMaxBackups:   getEnvInt("CINECADIZ_LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays:   getEnvInt("CINECADIZ_LOG_MAX_AGE_DAYS", 28),
		Filters:         LoadFilters(),
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = 300 * time.Second
	}
	if c.ScanTimeout <= 0 {
		c.ScanTimeout = 8 * time.Second
	}
	if c.ScanBatch <= 0 {
		c.ScanBatch = 100
	}
	c.ScanWorkers = ClampWorkers(c.ScanWorkers)
	return c
}

// ClampWorkers bounds a requested scan worker count to the sane 5..80 range.
func ClampWorkers(n int) int {
	if n < 5 {
		return 5
	}
	if n > 80 {
		return 80
	}
	return n
}

// LoadEnvFile reads path and sets environment variables for each "KEY=value"
// line. Skips blanks and # comments; missing file is not an error.
func LoadEnvFile(path string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := unquote(strings.TrimSpace(line[idx+1:]))
		if key != "" {
			os.Setenv(key, value)
		}
	}
	return sc.Err()
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"' || s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

// getEnvList returns a comma-separated env list, or defaultVal when unset.
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
