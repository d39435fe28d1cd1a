// Package catalog defines the normalized content model shared by the M3U
// parser, the RSS extractor, the importer and the query API.
package catalog

import (
	"net/url"
	"time"

	"github.com/Raulcadiz/CineCadiz/internal/textutil"
)

// Kind distinguishes movies from series. Live channels are filtered out
// during ingestion and never reach the catalog.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "series"
)

// Source records which ingestion path produced an item. Playlist items carry
// a playable media URL; feed items carry a web page URL and are therefore
// excluded from liveness scanning.
type Source string

const (
	SourcePlaylist Source = "m3u"
	SourceFeed     Source = "rss"
)

// Entry is one parsed content entry, not yet persisted. Produced by the M3U
// and RSS parsers, consumed by the classifier and the importer.
type Entry struct {
	Title       string
	Kind        Kind
	StreamURL   string
	Fingerprint string // SHA-256 of the trimmed StreamURL
	Source      Source
	Server      string // URL host, "" when the URL does not parse
	ArtworkURL  string
	Description string
	Year        int // 0 = unknown
	Genre       string
	GroupTitle  string
	Language    string
	Country     string
	Season      int     // 0 = unset
	Episode     int     // 0 = unset
	Rating      float64 // feed-only, 0 = unset
}

// SetStreamURL fills StreamURL, Fingerprint and Server in one step so the
// three fields can never disagree.
func (e *Entry) SetStreamURL(raw string) {
	e.StreamURL = raw
	e.Fingerprint = textutil.URLFingerprint(raw)
	if u, err := url.Parse(raw); err == nil {
		e.Server = u.Host
	} else {
		e.Server = ""
	}
}

// Item is a persisted catalog row: an Entry plus identity, liveness state and
// provenance. Exactly one of PlaylistID / FeedID is set.
type Item struct {
	ID          int64
	Title       string
	Kind        Kind
	StreamURL   string
	Fingerprint string
	Source      Source
	Server      string
	ArtworkURL  string
	Description string
	Year        int
	Genre       string
	GroupTitle  string
	Language    string
	Country     string
	Season      int
	Episode     int
	Rating      float64
	Active      bool
	AddedAt     time.Time
	LastCheck   *time.Time // nil = never verified
	PlaylistID  *int64
	FeedID      *int64
}

// Playlist is an imported M3U source.
type Playlist struct {
	ID            int64
	Name          string
	URL           string
	FilterSpanish bool // strict Spanish-only filter on import
	Active        bool
	CreatedAt     time.Time
	LastImported  *time.Time
	TotalItems    int
	ActiveItems   int
	LastError     string
}

// Feed is an imported RSS source. Feeds are curated single-language sources,
// so they carry no Spanish filter flag.
type Feed struct {
	ID           int64
	Name         string
	URL          string
	Active       bool
	CreatedAt    time.Time
	LastImported *time.Time
	TotalItems   int
	LastError    string
}
