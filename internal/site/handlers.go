package site

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/chunkytofustudios/analytics-gate/internal/build"
	"github.com/chunkytofustudios/analytics-gate/internal/consent"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Gate    string `json:"gate"`
	Pending int    `json:"pending"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{
		Status:  "ok",
		Version: build.FullVersion(),
		Gate:    s.gate.State().String(),
		Pending: s.gate.Pending(),
	})
}

// handleConsent stores the visitor's choices and tells the analytics
// backend. Form fields: analytics, ads, and an optional local redirect.
func (s *Server) handleConsent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.recordError("Server.handleConsent", r, &SiteError{
			Message: err.Error(),
			Cause:   ErrCauseBadForm,
		})
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	choices := consent.Choices{
		Analytics: formBool(r.PostForm.Get("analytics")),
		Ads:       formBool(r.PostForm.Get("ads")),
	}

	consent.Write(w, choices, s.secureCookies)
	if !choices.Analytics {
		consent.Forget(w)
	}
	clientID := consent.ClientID(w, r, choices, s.now(), s.secureCookies)
	consent.UpdateFor(s.gate.EnsureDataLayerReady(), clientID, choices)

	if redirect := r.PostForm.Get("redirect"); isLocalPath(redirect) {
		http.Redirect(w, r, redirect, http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func formBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "yes", "granted":
		return true
	}
	parsed, err := strconv.ParseBool(value)
	return err == nil && parsed
}

// isLocalPath rejects anything a browser could read as another origin.
func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") &&
		!strings.HasPrefix(p, "//") &&
		!strings.HasPrefix(p, "/\\")
}
