// Package mediaid extracts a canonical media identifier from a pasted URL.
package mediaid

import (
	"net/url"
	"regexp"
	"strings"
)

// shortLinkHost is the share-link domain whose first path segment is the id.
const shortLinkHost = "youtu.be"

// markerPattern is the fallback scan for malformed input: a known path or
// query marker followed by at least six identifier characters.
var markerPattern = regexp.MustCompile(`(youtu\.be/|v=|/embed/|/v/)([A-Za-z0-9_-]{6,})`)

// Extract returns the media identifier found in raw, trying URL parsing
// first and a marker scan second. It never panics; ok is false when neither
// strategy finds anything.
func Extract(raw string) (id string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		if strings.Contains(u.Hostname(), shortLinkHost) {
			seg := strings.TrimPrefix(u.Path, "/")
			if i := strings.IndexAny(seg, "/?"); i >= 0 {
				seg = seg[:i]
			}
			if seg != "" {
				return seg, true
			}
		}
		if v := u.Query().Get("v"); v != "" {
			return v, true
		}
		// Last non-empty path segment.
		parts := strings.Split(u.Path, "/")
		for i := len(parts) - 1; i >= 0; i-- {
			if parts[i] != "" {
				return parts[i], true
			}
		}
		return "", false
	}

	if m := markerPattern.FindStringSubmatch(raw); m != nil {
		return m[2], true
	}
	return "", false
}
