package outbound_test

import (
	"net/url"
	"testing"

	"github.com/chunkytofustudios/analytics-gate/internal/outbound"
	"github.com/stretchr/testify/assert"
)

var siteOrigin = url.URL{Scheme: "https", Host: "chunkytofustudios.com"}

func TestIsExternalURL(t *testing.T) {
	tests := []struct {
		href string
		want bool
	}{
		{"https://github.com/chunkytofu", true},
		{"http://play.google.com/store", true},
		{"//cdn.example.com/file.js", true},
		{"mailto:hello@chunkytofustudios.com", true},
		{"/beehive", false},
		{"privacy-policy", false},
		{"#features", false},
		{"https://chunkytofustudios.com/dozy", false},
		{"https://CHUNKYTOFUSTUDIOS.com/dozy", false},
		{"http://chunkytofustudios.com:8080/", false},
		{"http://[::1", false},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			assert.Equal(t, tt.want, outbound.IsExternalURL(tt.href, siteOrigin))
		})
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		ariaLabel string
		href      string
		want      string
	}{
		{"visible text wins", "  Get it on\n  Google Play ", "Play Store", "https://play.google.com", "Get it on Google Play"},
		{"aria label when text empty", "   ", "GitHub", "https://github.com", "GitHub"},
		{"href as last resort", "", "", "https://github.com", "https://github.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outbound.Label(tt.text, tt.ariaLabel, tt.href))
		})
	}
}
