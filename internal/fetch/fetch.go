// Package fetch downloads playlist and feed documents. Downloads stream with
// a total time budget so a crawling IPTV panel cannot stall an import
// forever, and text decoding tolerates the mixed encodings real-world M3U
// files ship with.
package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/Raulcadiz/CineCadiz/internal/catalog"
	"github.com/Raulcadiz/CineCadiz/internal/config"
	"github.com/Raulcadiz/CineCadiz/internal/feed"
	"github.com/Raulcadiz/CineCadiz/internal/httpclient"
	"github.com/Raulcadiz/CineCadiz/internal/m3u"
)

const (
	connectTimeout = 10 * time.Second
	headerTimeout  = 30 * time.Second
	chunkSize      = 128 * 1024
	DefaultBudget  = 300 * time.Second
)

// TimeoutError distinguishes which limit a slow server ran into: the connect
// timeout, the response-header wait, or the total download budget. Its
// message ends up on the source row for the admin UI.
type TimeoutError struct {
	Phase string // "connect", "headers" or "download"
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	switch e.Phase {
	case "connect":
		return fmt.Sprintf("connect timeout: no connection in %s", e.Limit)
	case "headers":
		return fmt.Sprintf("timeout waiting for response headers: server sent nothing in %s", e.Limit)
	}
	return fmt.Sprintf("download exceeded the %s budget: server too slow or file too large", e.Limit)
}

// HTTPError is a non-2xx response.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string { return fmt.Sprintf("HTTP error %d", e.Status) }

// ConnectionError wraps DNS and transport failures.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string { return fmt.Sprintf("connection error: %v", e.Err) }
func (e *ConnectionError) Unwrap() error { return e.Err }

// Client downloads documents with a total time budget per request.
type Client struct {
	hc     *http.Client
	budget time.Duration
}

// New builds a Client. The budget covers the whole download including body
// streaming; connect and response-header limits are fixed.
func New(budget time.Duration) *Client {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Client{
		hc: &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
				ResponseHeaderTimeout: headerTimeout,
				MaxIdleConnsPerHost:   httpclient.MaxIdleConnsPerHost,
				IdleConnTimeout:       httpclient.DefaultIdleConnTimeout,
			},
		},
		budget: budget,
	}
}

// Download fetches rawURL and returns the decompressed body bytes. Errors
// are classified so the caller can store a human-readable reason.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.budget)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	req.Header.Set("User-Agent", httpclient.BrowserUserAgent)
	// Advertising compression explicitly disables the transport's automatic
	// gzip handling, so both are decoded below.
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, c.classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &HTTPError{Status: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	switch resp.Header.Get("Content-Encoding") {
	case "br":
		body = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &ConnectionError{Err: err}
		}
		defer gz.Close()
		body = gz
	}

	var raw []byte
	buf := make([]byte, chunkSize)
	for {
		n, err := body.Read(buf)
		raw = append(raw, buf[:n]...)
		if err == io.EOF {
			return raw, nil
		}
		if err != nil {
			return nil, c.classify(ctx, err)
		}
	}
}

// classify maps a transport error onto the timeout/connection taxonomy. A
// dial timeout is reported against the connect limit; any other transport
// timeout means the connection was made but no headers arrived in time.
func (c *Client) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Phase: "download", Limit: c.budget}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && opErr.Timeout() {
		return &TimeoutError{Phase: "connect", Limit: connectTimeout}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Phase: "headers", Limit: headerTimeout}
	}
	return &ConnectionError{Err: err}
}

// Playlist downloads an M3U list, decodes it and applies the ingestion
// filters: live channels out, explicitly non-Spanish out, and optionally the
// strict Spanish-only filter.
func (c *Client) Playlist(ctx context.Context, url string, f config.Filters, filterSpanish bool) ([]catalog.Entry, error) {
	raw, err := c.Download(ctx, url)
	if err != nil {
		return nil, err
	}
	entries := m3u.Parse(DecodeText(raw))
	return m3u.ApplyFilters(entries, f, filterSpanish), nil
}

// Feed downloads and parses an RSS feed. The XML parser resolves declared
// encodings itself, so the raw bytes are passed through.
func (c *Client) Feed(ctx context.Context, url string) ([]catalog.Entry, error) {
	raw, err := c.Download(ctx, url)
	if err != nil {
		return nil, err
	}
	return feed.ParseBytes(raw)
}
