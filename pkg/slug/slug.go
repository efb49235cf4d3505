// Package slug contains helpers for deriving URL-safe listing
// identifiers from free text and for digging them out of deep-link
// payloads.
package slug

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// Slugify turns free text into a URL-safe identifier: lowercased,
// whitespace runs replaced with a single dash, everything outside
// [a-z0-9-_] dropped. Returns an empty string if nothing survives.
func Slugify(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))

	sb := &strings.Builder{}
	inSpace, inDash := false, false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			inSpace = true
		case r == '-':
			inDash = true
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_':
			if inSpace || inDash {
				sb.WriteByte('-')
				inSpace, inDash = false, false
			}
			sb.WriteRune(r)
		}
	}

	return strings.Trim(sb.String(), "-_")
}

// EnsureUnique returns candidate if taken reports it as free, otherwise
// the first of candidate-2, candidate-3, … that is.
func EnsureUnique(candidate string, taken func(string) bool) string {
	if !taken(candidate) {
		return candidate
	}

	for idx := 2; ; idx++ {
		s := fmt.Sprintf("%s-%d", candidate, idx)
		if !taken(s) {
			return s
		}
	}
}

// Extract digs a slug out of a deep-link payload. The payload may be a
// bare slug, a full bot URL with a start query parameter, a URL whose
// last path segment is the slug, or free text containing "start=".
// Malformed URLs are treated as plain text.
func Extract(payload string) string {
	txt := strings.TrimSpace(payload)
	if txt == "" {
		return ""
	}

	if u, ok := parseLink(txt); ok {
		if s := u.Query().Get("start"); s != "" {
			return strings.TrimSpace(s)
		}

		last := txt
		if idx := strings.LastIndex(u.Path, "/"); idx >= 0 {
			last = u.Path[idx+1:]
		} else if u.Path != "" {
			last = u.Path
		}
		last = strings.TrimSpace(last)

		if rest, found := strings.CutPrefix(last, "start="); found {
			return strings.TrimSpace(rest)
		}
		if last != "" {
			return last
		}
	}

	if _, rest, found := strings.Cut(txt, "start="); found {
		if fields := strings.Fields(rest); len(fields) > 0 {
			return fields[0]
		}
		return ""
	}

	return txt
}

// parseLink parses txt as a URL if it plausibly is one. Bare t.me links
// without a scheme are accepted, the way people paste them.
func parseLink(txt string) (*url.URL, bool) {
	switch {
	case strings.Contains(txt, "://"):
	case strings.HasPrefix(txt, "t.me/"), strings.HasPrefix(txt, "telegram.me/"):
		txt = "https://" + txt
	default:
		return nil, false
	}

	u, err := url.Parse(txt)
	if err != nil {
		return nil, false
	}

	return u, true
}

// NormalizeHandle extracts a telegram handle out of raw user input,
// which may be a bare handle, an @handle or a t.me link. Returns the
// handle in "@name" form, or false if the input doesn't contain a
// valid one.
func NormalizeHandle(raw string) (string, bool) {
	txt := strings.TrimSpace(raw)
	if txt == "" {
		return "", false
	}

	if strings.HasPrefix(txt, "http") {
		if u, err := url.Parse(txt); err == nil && u.Path != "" {
			txt = strings.TrimPrefix(u.Path, "/")
		}
	}

	txt = strings.TrimSpace(strings.ReplaceAll(txt, "@", ""))
	if fields := strings.Fields(txt); len(fields) > 0 {
		txt = fields[0]
	}

	if len(txt) < 3 || !isHandle(txt) {
		return "", false
	}

	return "@" + txt, true
}

func isHandle(s string) bool {
	for _, r := range s {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '_'
		if !ok {
			return false
		}
	}
	return s != ""
}
