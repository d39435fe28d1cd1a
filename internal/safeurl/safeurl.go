// Package safeurl vets user-supplied source URLs before we ever dial them.
package safeurl

import (
	"errors"
	"fmt"
	"net/url"
)

var errMissingHost = errors.New("url has no host")

// IsHTTPOrHTTPS returns true if u is a valid URL with scheme http or https.
// Used to reject file://, ftp://, and other schemes that could lead to SSRF or local file access.
func IsHTTPOrHTTPS(u string) bool {
	return Validate(u) == nil
}

// Validate checks that u is an absolute http(s) URL with a host, returning a
// descriptive error suitable for an API response.
func Validate(u string) error {
	parsed, err := url.Parse(u)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if s := parsed.Scheme; s != "http" && s != "https" {
		return fmt.Errorf("unsupported url scheme %q", s)
	}
	if parsed.Host == "" {
		return errMissingHost
	}
	return nil
}
