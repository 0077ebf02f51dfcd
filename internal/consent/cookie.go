package consent

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/chunkytofustudios/analytics-gate/pkg/failure"
	"github.com/google/uuid"
)

// Encode renders choices as a cc_cookie value.
func Encode(choices Choices) string {
	value := cookieValue{
		Categories: []string{categoryNecessary},
		ConsentID:  uuid.NewString(),
	}
	if choices.Analytics {
		value.Categories = append(value.Categories, categoryAnalytics)
	}
	if choices.Ads {
		value.Categories = append(value.Categories, categoryAds)
	}

	// marshalling a struct of strings cannot fail
	raw, _ := json.Marshal(value)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode parses a cc_cookie value. Both the base64 form written by Encode
// and the URL-escaped JSON written by the browser consent banner are accepted.
func Decode(raw string) (Choices, failure.ClassifiedError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Choices{}, &ConsentError{
			Message: "empty cookie value",
			Cause:   ErrCauseCookieMissing,
		}
	}

	var doc []byte
	if unescaped, err := url.QueryUnescape(raw); err == nil && strings.HasPrefix(unescaped, "{") {
		doc = []byte(unescaped)
	} else {
		decoded, decodeErr := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
		if decodeErr != nil {
			return Choices{}, &ConsentError{
				Message: fmt.Sprintf("not base64: %v", decodeErr),
				Cause:   ErrCauseCookieMalformed,
			}
		}
		doc = decoded
	}

	var value cookieValue
	if err := json.Unmarshal(doc, &value); err != nil {
		return Choices{}, &ConsentError{
			Message: fmt.Sprintf("not json: %v", err),
			Cause:   ErrCauseCookieMalformed,
		}
	}

	return Choices{
		Analytics: slices.Contains(value.Categories, categoryAnalytics),
		Ads:       slices.Contains(value.Categories, categoryAds),
	}, nil
}

// FromRequest reads the visitor's choices. The second return value is false
// when no valid cookie is present, in which case everything is denied.
func FromRequest(r *http.Request) (Choices, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return Choices{}, false
	}
	choices, decodeErr := Decode(cookie.Value)
	if decodeErr != nil {
		return Choices{}, false
	}
	return choices, true
}

// Write stores choices on the response.
func Write(w http.ResponseWriter, choices Choices, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    Encode(choices),
		Path:     "/",
		MaxAge:   int(cookieMaxAge / time.Second),
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
