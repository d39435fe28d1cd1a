package m3u

import (
	"strings"

	"github.com/Raulcadiz/CineCadiz/internal/catalog"
	"github.com/Raulcadiz/CineCadiz/internal/config"
	"github.com/Raulcadiz/CineCadiz/internal/textutil"
)

// IsVOD reports whether e looks like on-demand content (movie/series) rather
// than a live broadcast channel. Rules run in priority order, first match
// wins:
//
//  1. URL path confirms live → false
//  2. group-title contains a live-channel keyword → false
//  3. URL path confirms VOD → true
//  4. group-title contains a VOD keyword → true
//  5. title carries a (YYYY) or SxxEyy marker, or season/episode are set → true
//  6. no group-title at all → true (simple lists stay importable)
//  7. otherwise → false (an unrecognised channel category)
//
// When the live-channel filter is disabled everything passes.
func IsVOD(e catalog.Entry, f config.Filters) bool {
	if !f.FilterLiveChannels {
		return true
	}

	group := textutil.Normalize(e.GroupTitle)
	url := strings.ToLower(e.StreamURL)

	for _, p := range f.LiveURLPaths {
		if strings.Contains(url, p) {
			return false
		}
	}
	for _, kw := range f.LiveChannelGroups {
		if strings.Contains(group, textutil.Normalize(kw)) {
			return false
		}
	}
	for _, p := range f.VODURLPaths {
		if strings.Contains(url, p) {
			return true
		}
	}
	for _, kw := range f.VODConfirmedGroups {
		if strings.Contains(group, textutil.Normalize(kw)) {
			return true
		}
	}
	if yearRe.MatchString(e.Title) || seRe.MatchString(e.Title) {
		return true
	}
	if e.Season > 0 || e.Episode > 0 {
		return true
	}
	return group == ""
}

// IsSpanish reports whether e is clearly Spanish-language content: explicit
// language tag first, then country tag, then Spanish markers in group-title.
// Short group keywords (≤3 chars) require a whole-word match so codes like
// "es" never fire inside unrelated words.
func IsSpanish(e catalog.Entry, f config.Filters) bool {
	lang := textutil.Normalize(e.Language)
	country := textutil.Normalize(e.Country)
	group := textutil.Normalize(e.GroupTitle)

	for _, kw := range f.SpanishLanguages {
		if strings.Contains(lang, kw) {
			return true
		}
	}
	for _, kw := range f.SpanishCountries {
		if country == kw || strings.HasPrefix(country, kw) || strings.HasSuffix(country, kw) {
			return true
		}
	}
	for _, kw := range f.SpanishGroups {
		n := textutil.Normalize(kw)
		if len(n) <= 3 {
			if textutil.ContainsWord(group, n) {
				return true
			}
		} else if strings.Contains(group, n) {
			return true
		}
	}
	return false
}

// IsExplicitlyNonSpanish is the passive foreign filter: it only excludes
// entries whose language tag is present and not Spanish. Untagged entries
// always pass, which keeps Spanish lists that never set tvg-language
// importable while dropping content marked English, French, etc.
func IsExplicitlyNonSpanish(e catalog.Entry, f config.Filters) bool {
	lang := strings.TrimSpace(strings.ToLower(e.Language))
	if lang == "" {
		return false
	}
	for _, kw := range f.SpanishLanguages {
		if strings.Contains(lang, kw) {
			return false
		}
	}
	return true
}
