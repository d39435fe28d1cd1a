// Package m3u parses M3U/M3U8 playlists into catalog entries and classifies
// them (VOD vs live channel, Spanish vs foreign).
package m3u

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/Raulcadiz/CineCadiz/internal/catalog"
	"github.com/Raulcadiz/CineCadiz/internal/config"
	"github.com/Raulcadiz/CineCadiz/internal/textutil"
)

const maxLineSize = 1 << 20 // 1 MiB per line

var (
	// Any absolute URL with a plausible scheme: http, https, rtmp, rtsp, mms...
	schemeRe  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+\-.]*://`)
	yearRe    = regexp.MustCompile(`\((\d{4})\)`)
	yearSubRe = regexp.MustCompile(`\s*\(\d{4}\)\s*`)
	seRe      = regexp.MustCompile(`[Ss](\d{1,2})[Ee](\d{1,3})`)
)

// group-title keywords that force the series kind. Checked before the movie
// set; a group like "Series y Peliculas" classifies as series.
var seriesGroups = []string{
	"serie", "series", "show", "shows", "novela", "telenovela",
	"temporada", "temporadas", "dorama", "anime", "animacion",
	"animação", "cartoon", "docuseries",
}

// group-title keywords that confirm the movie kind.
var movieGroups = []string{
	"pelicula", "peliculas", "peli ", "pelis",
	"movie", "movies", "film", "films", "cine", "cinema",
	"documental", "documentales", "documentary",
}

// Parse reads an M3U document and returns one entry per EXTINF descriptor
// that is immediately followed by a URL line. Descriptors without a URL are
// dropped silently; that is normal noise in provider playlists, not an error.
func Parse(content string) []catalog.Entry {
	entries, _ := ParseReader(strings.NewReader(content))
	return entries
}

// ParseReader is the streaming form of Parse.
func ParseReader(r io.Reader) ([]catalog.Entry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineSize)
	var entries []catalog.Entry
	var pending *catalog.Entry
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.TrimPrefix(line, "\uFEFF") == "#EXTM3U" {
			continue
		}
		if strings.HasPrefix(strings.ToUpper(line), "#EXTINF") {
			e := parseEXTINF(line)
			pending = &e
			continue
		}
		if pending != nil && schemeRe.MatchString(line) {
			pending.SetStreamURL(line)
			entries = append(entries, *pending)
			pending = nil
		}
	}
	return entries, sc.Err()
}

// parseEXTINF extracts metadata from one #EXTINF descriptor line.
func parseEXTINF(line string) catalog.Entry {
	e := catalog.Entry{
		Kind:   catalog.KindMovie, // default until proven otherwise
		Source: catalog.SourcePlaylist,
	}

	// Title: everything after the last comma, overridden by tvg-name.
	if i := strings.LastIndex(line, ","); i >= 0 {
		e.Title = strings.TrimSpace(line[i+1:])
	}
	if name := textutil.Attr(line, "tvg-name"); name != "" {
		e.Title = name
	}

	e.ArtworkURL = textutil.Attr(line, "tvg-logo")
	e.Language = textutil.Attr(line, "tvg-language")
	e.Country = textutil.Attr(line, "tvg-country")
	e.GroupTitle = textutil.Attr(line, "group-title")
	e.Genre = textutil.Attr(line, "tvg-genre")

	if y, err := strconv.Atoi(textutil.Attr(line, "tvg-year")); err == nil {
		e.Year = y
	}

	season := textutil.Attr(line, "tvg-season")
	if season == "" {
		season = textutil.Attr(line, "season")
	}
	episode := textutil.Attr(line, "tvg-episode")
	if episode == "" {
		episode = textutil.Attr(line, "episode")
	}
	if n, err := strconv.Atoi(season); err == nil {
		e.Season = n
		e.Kind = catalog.KindSeries
	}
	if n, err := strconv.Atoi(episode); err == nil {
		e.Episode = n
	}

	// Year from a "(2024)" suffix in the title, stripped once extracted.
	if e.Year == 0 {
		if m := yearRe.FindStringSubmatch(e.Title); m != nil {
			e.Year, _ = strconv.Atoi(m[1])
			e.Title = strings.TrimSpace(yearSubRe.ReplaceAllString(e.Title, " "))
		}
	}

	// S01E01 in the title forces series; the attribute values win when both
	// are present.
	if m := seRe.FindStringSubmatch(e.Title); m != nil {
		e.Kind = catalog.KindSeries
		if e.Season == 0 {
			e.Season, _ = strconv.Atoi(m[1])
		}
		if e.Episode == 0 {
			e.Episode, _ = strconv.Atoi(m[2])
		}
	}

	if e.GroupTitle != "" {
		group := textutil.Normalize(e.GroupTitle)
		if containsAnyKeyword(group, seriesGroups) {
			e.Kind = catalog.KindSeries
		} else if containsAnyKeyword(group, movieGroups) {
			e.Kind = catalog.KindMovie
		}
	}
	return e
}

func containsAnyKeyword(normalized string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

// ApplyFilters runs the ingestion filter chain over parsed entries, in order:
// drop live channels, then drop explicitly foreign-tagged entries. When
// filterSpanish is set, only entries that are clearly Spanish survive.
func ApplyFilters(entries []catalog.Entry, filters config.Filters, filterSpanish bool) []catalog.Entry {
	out := make([]catalog.Entry, 0, len(entries))
	for _, e := range entries {
		if !IsVOD(e, filters) {
			continue
		}
		if IsExplicitlyNonSpanish(e, filters) {
			continue
		}
		if filterSpanish && !IsSpanish(e, filters) {
			continue
		}
		out = append(out, e)
	}
	return out
}
