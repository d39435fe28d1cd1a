package catalog

import (
	"strings"
	"time"
)

// ItemJSON is the API projection of an Item. Field names match what the
// frontend expects.
type ItemJSON struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Type        string   `json:"type"` // "movie" | "series"
	StreamURL   string   `json:"streamUrl"`
	Source      string   `json:"source"` // "m3u" plays inline, "rss" opens the page
	Server      string   `json:"server"`
	Image       string   `json:"image"`
	Description string   `json:"description"`
	Year        *int     `json:"year"`
	Genres      []string `json:"genres"`
	GroupTitle  string   `json:"groupTitle"`
	Season      *int     `json:"season"`
	Episode     *int     `json:"episode"`
	Active      bool     `json:"active"`
	AddedAt     string   `json:"addedAt"`
	LastCheck   *string  `json:"lastCheck"`
}

// JSON returns the API projection of i.
func (i Item) JSON() ItemJSON {
	out := ItemJSON{
		ID:          i.ID,
		Title:       i.Title,
		Type:        string(i.Kind),
		StreamURL:   i.StreamURL,
		Source:      string(i.Source),
		Server:      i.Server,
		Image:       i.ArtworkURL,
		Description: i.Description,
		Genres:      splitGenres(i.Genre),
		GroupTitle:  i.GroupTitle,
		Active:      i.Active,
		AddedAt:     i.AddedAt.UTC().Format(time.RFC3339),
	}
	if i.Year > 0 {
		y := i.Year
		out.Year = &y
	}
	if i.Season > 0 {
		s := i.Season
		out.Season = &s
	}
	if i.Episode > 0 {
		e := i.Episode
		out.Episode = &e
	}
	if i.LastCheck != nil {
		lc := i.LastCheck.UTC().Format(time.RFC3339)
		out.LastCheck = &lc
	}
	return out
}

func splitGenres(genre string) []string {
	if genre == "" {
		return []string{}
	}
	parts := strings.Split(genre, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// PlaylistJSON is the admin projection of a Playlist.
type PlaylistJSON struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	URL           string  `json:"url"`
	FilterSpanish bool    `json:"filterSpanish"`
	Active        bool    `json:"active"`
	CreatedAt     string  `json:"createdAt"`
	LastImported  *string `json:"lastImported"`
	TotalItems    int     `json:"totalItems"`
	ActiveItems   int     `json:"activeItems"`
	Error         *string `json:"error"`
}

// JSON returns the admin projection of p.
func (p Playlist) JSON() PlaylistJSON {
	out := PlaylistJSON{
		ID:            p.ID,
		Name:          p.Name,
		URL:           p.URL,
		FilterSpanish: p.FilterSpanish,
		Active:        p.Active,
		CreatedAt:     p.CreatedAt.UTC().Format(time.RFC3339),
		TotalItems:    p.TotalItems,
		ActiveItems:   p.ActiveItems,
	}
	if p.LastImported != nil {
		li := p.LastImported.UTC().Format(time.RFC3339)
		out.LastImported = &li
	}
	if p.LastError != "" {
		e := p.LastError
		out.Error = &e
	}
	return out
}

// FeedJSON is the admin projection of a Feed.
type FeedJSON struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	URL          string  `json:"url"`
	Active       bool    `json:"active"`
	CreatedAt    string  `json:"createdAt"`
	LastImported *string `json:"lastImported"`
	TotalItems   int     `json:"totalItems"`
	Error        *string `json:"error"`
}

// JSON returns the admin projection of f.
func (f Feed) JSON() FeedJSON {
	out := FeedJSON{
		ID:         f.ID,
		Name:       f.Name,
		URL:        f.URL,
		Active:     f.Active,
		CreatedAt:  f.CreatedAt.UTC().Format(time.RFC3339),
		TotalItems: f.TotalItems,
	}
	if f.LastImported != nil {
		li := f.LastImported.UTC().Format(time.RFC3339)
		out.LastImported = &li
	}
	if f.LastError != "" {
		e := f.LastError
		out.Error = &e
	}
	return out
}
