// Package textutil provides the low-level string primitives shared by the
// M3U parser and the content classifier: accent-insensitive normalisation,
// EXTINF attribute extraction, and word-bounded keyword matching.
package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"sync"

	"github.com/mozillazg/go-unidecode"
)

// Normalize lowercases s and folds accented characters to plain ASCII
// ("Película" → "pelicula"). All keyword comparisons in the classifier run on
// normalised text because playlist metadata is inconsistently accented.
func Normalize(s string) string {
	return unidecode.Unidecode(strings.ToLower(s))
}

var (
	attrMu sync.Mutex
	attrRe = map[string]*regexp.Regexp{}
)

// Attr extracts the quoted value of a `name="value"` attribute from an EXTINF
// line. The attribute name match is case-insensitive. Returns "" when absent.
func Attr(line, name string) string {
	attrMu.Lock()
	re, ok := attrRe[name]
	if !ok {
		re = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(name) + `="([^"]*)"`)
		attrRe[name] = re
	}
	attrMu.Unlock()
	m := re.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ContainsWord reports whether word occurs in haystack bounded by non-letter
// characters on both sides. Needed for short codes: "es" must match in
// "peliculas es" but not inside "best" or "descripcion". Both arguments are
// expected to be normalised already.
func ContainsWord(haystack, word string) bool {
	if word == "" {
		return false
	}
	for start := 0; ; {
		i := strings.Index(haystack[start:], word)
		if i < 0 {
			return false
		}
		i += start
		before := i == 0 || !isLetter(haystack[i-1])
		end := i + len(word)
		after := end == len(haystack) || !isLetter(haystack[end])
		if before && after {
			return true
		}
		start = i + 1
	}
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// URLFingerprint returns the SHA-256 hex digest of the trimmed URL. It is the
// global deduplication key for the whole catalog: two entries with the same
// fingerprint are the same content regardless of which source imported them.
func URLFingerprint(url string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(url)))
	return hex.EncodeToString(sum[:])
}
