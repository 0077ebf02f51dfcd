package urlutil

import (
	"net/url"
	"strings"
)

// Domain returns the lowercased hostname of an absolute URL.
// Anything that does not parse as an absolute URL with a host yields "".
func Domain(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !parsed.IsAbs() {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// Resolve parses href relative to base.
func Resolve(base url.URL, href string) (url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return url.URL{}, err
	}
	return *base.ResolveReference(ref), nil
}

// Join appends path to origin, keeping the query string of path.
func Join(origin url.URL, path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return origin.String()
	}
	return origin.ResolveReference(ref).String()
}
