// Package metrics registers the Prometheus instrumentation shared by the
// importer, the scanner and the HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ImportsTotal counts completed import runs by source type ("m3u",
	// "rss") and result ("ok", "error").
	ImportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinecadiz_imports_total",
		Help: "Completed import runs by source type and result.",
	}, []string{"source", "result"})

	// ItemsImported counts new catalog items persisted per source type.
	ItemsImported = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinecadiz_items_imported_total",
		Help: "New catalog items persisted, by source type.",
	}, []string{"source"})

	// ScanChecked counts probed stream URLs by outcome ("alive", "dead").
	ScanChecked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinecadiz_scan_checked_total",
		Help: "Stream URLs probed by the liveness scanner, by outcome.",
	}, []string{"outcome"})

	// ScanDuration observes full scan runs.
	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cinecadiz_scan_duration_seconds",
		Help:    "Wall time of liveness scan runs.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	// ScanRunning is 1 while a scan is in flight.
	ScanRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cinecadiz_scan_running",
		Help: "Whether a liveness scan is currently running.",
	})
)
