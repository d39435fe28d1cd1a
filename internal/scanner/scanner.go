// Package scanner verifies that imported stream URLs are still alive. A run
// has three phases: select a batch of the least recently verified playlist
// items, probe them in parallel without touching the database, then apply
// the results in one transaction. Items that fail the probe are deactivated
// rather than deleted, so a later re-import can resurrect them.
package scanner

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"

	"github.com/Raulcadiz/CineCadiz/internal/httpclient"
	"github.com/Raulcadiz/CineCadiz/internal/metrics"
	"github.com/Raulcadiz/CineCadiz/internal/store"
)

// ErrRunning is returned when a scan is triggered while one is in flight.
var ErrRunning = errors.New("scanner: scan already running")

// probeRate caps outbound probes per second across all workers so a scan
// does not look like a flood to upstream panels.
const probeRate = rate.Limit(50)

// Result summarises one finished scan run.
type Result struct {
	Checked   int           `json:"checked"`
	Alive     int           `json:"alive"`
	Dead      int           `json:"dead"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"-"`
}

// Scanner probes stream URLs and records the outcome.
type Scanner struct {
	store   *store.Store
	client  *http.Client
	workers int
	limiter *rate.Limiter
	log     *slog.Logger

	mu      sync.Mutex
	running bool
	last    *Result
}

// New builds a Scanner. timeout is the per-URL probe budget; workers is the
// parallel probe count (the caller clamps it to a sane range).
func New(st *store.Store, timeout time.Duration, workers int, log *slog.Logger) *Scanner {
	return &Scanner{
		store:   st,
		client:  httpclient.WithTimeout(timeout),
		workers: workers,
		limiter: rate.NewLimiter(probeRate, workers),
		log:     log,
	}
}

// Status reports whether a scan is running and the last completed result.
func (sc *Scanner) Status() (running bool, last *Result) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.last != nil {
		r := *sc.last
		last = &r
	}
	return sc.running, last
}

// Run executes one scan over up to batchSize items. workers overrides the
// configured parallelism for this run only; zero or negative keeps the
// default. Only one scan runs at a time; concurrent triggers get ErrRunning.
func (sc *Scanner) Run(ctx context.Context, batchSize, workers int) (Result, error) {
	if workers <= 0 {
		workers = sc.workers
	}

	sc.mu.Lock()
	if sc.running {
		sc.mu.Unlock()
		return Result{}, ErrRunning
	}
	sc.running = true
	sc.mu.Unlock()
	metrics.ScanRunning.Set(1)

	start := time.Now()
	res, err := sc.run(ctx, batchSize, workers)
	res.Duration = time.Since(start)
	res.Timestamp = time.Now().UTC()

	metrics.ScanRunning.Set(0)
	metrics.ScanDuration.Observe(res.Duration.Seconds())

	sc.mu.Lock()
	sc.running = false
	if err == nil {
		r := res
		sc.last = &r
	}
	sc.mu.Unlock()
	return res, err
}

func (sc *Scanner) run(ctx context.Context, batchSize, workers int) (Result, error) {
	targets, err := sc.store.ScanBatch(batchSize)
	if err != nil {
		return Result{}, err
	}
	if len(targets) == 0 {
		return Result{}, nil
	}
	sc.log.Info("scan started", "targets", len(targets), "workers", workers)

	var mu sync.Mutex
	results := make(map[int64]bool, len(targets))

	p := pool.New().WithMaxGoroutines(workers)
	for _, t := range targets {
		t := t
		p.Go(func() {
			alive := false
			if sc.limiter.Wait(ctx) == nil {
				alive = sc.probe(ctx, t.StreamURL)
			}
			mu.Lock()
			results[t.ID] = alive
			mu.Unlock()
		})
	}
	p.Wait()

	res := Result{Checked: len(results)}
	for _, alive := range results {
		if alive {
			res.Alive++
		} else {
			res.Dead++
		}
	}
	if err := sc.store.ApplyScanResults(time.Now().UTC(), results); err != nil {
		return res, err
	}

	metrics.ScanChecked.WithLabelValues("alive").Add(float64(res.Alive))
	metrics.ScanChecked.WithLabelValues("dead").Add(float64(res.Dead))
	sc.log.Info("scan finished", "checked", res.Checked, "alive", res.Alive, "dead", res.Dead)
	return res, nil
}

// probe reports whether rawURL still answers. HEAD first; panels that reject
// HEAD get a ranged GET so only the first KiB transfers. Probes against the
// same host are capped by the shared per-host semaphore, on top of the global
// rate limiter.
func (sc *Scanner) probe(ctx context.Context, rawURL string) bool {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		release := httpclient.GlobalHostSem.Acquire(u.Scheme + "://" + u.Host)
		defer release()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", httpclient.BrowserUserAgent)
	resp, err := sc.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	if resp.StatusCode < 400 {
		return true
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", httpclient.BrowserUserAgent)
	req.Header.Set("Range", "bytes=0-1023")
	resp, err = sc.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 400
}
