package outbound

import (
	"net/url"
	"strings"

	"github.com/chunkytofustudios/analytics-gate/pkg/urlutil"
)

// IsExternalURL reports whether href, resolved against the site origin,
// points at a different hostname. Unparsable hrefs are not external.
func IsExternalURL(href string, siteOrigin url.URL) bool {
	resolved, err := urlutil.Resolve(siteOrigin, href)
	if err != nil {
		return false
	}
	return !strings.EqualFold(resolved.Hostname(), siteOrigin.Hostname())
}

// Label picks the text reported for a link: its visible text, then its
// aria-label, then the href itself.
func Label(text string, ariaLabel string, href string) string {
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		return strings.Join(strings.Fields(trimmed), " ")
	}
	if ariaLabel != "" {
		return ariaLabel
	}
	return href
}

var redirectSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"mailto": true,
	"tel":    true,
}

// redirectable reports whether href is absolute and safe to send a browser to.
func redirectable(href string) bool {
	parsed, err := url.Parse(href)
	if err != nil || !parsed.IsAbs() {
		return false
	}
	return redirectSchemes[strings.ToLower(parsed.Scheme)]
}
