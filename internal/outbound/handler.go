package outbound

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/chunkytofustudios/analytics-gate/internal/metadata"
	"github.com/chunkytofustudios/analytics-gate/pkg/failure"
)

// Tracker receives outbound clicks.
type Tracker interface {
	TrackOutboundLink(rawURL string, label string)
}

// Handler serves the redirect endpoint: it tracks the click and sends the
// browser on to the target. The mux restricts it to GET and HEAD.
type Handler struct {
	tracker      Tracker
	siteOrigin   url.URL
	metadataSink metadata.MetadataSink
}

func NewHandler(tracker Tracker, siteOrigin url.URL, metadataSink metadata.MetadataSink) *Handler {
	return &Handler{
		tracker:      tracker,
		siteOrigin:   siteOrigin,
		metadataSink: metadataSink,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get(queryURL)
	if err := h.validate(target); err != nil {
		h.reject(w, r, http.StatusBadRequest, err)
		return
	}

	label := r.URL.Query().Get(queryLabel)
	h.tracker.TrackOutboundLink(target, label)

	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) validate(target string) failure.ClassifiedError {
	if target == "" {
		return &OutboundError{
			Message: "no target given",
			Cause:   ErrCauseMissingURL,
		}
	}
	parsed, err := url.Parse(target)
	if err != nil || !parsed.IsAbs() {
		return &OutboundError{
			Message: target,
			Cause:   ErrCauseInvalidURL,
		}
	}
	if !redirectable(target) {
		return &OutboundError{
			Message: parsed.Scheme,
			Cause:   ErrCauseSchemeNotAllowed,
		}
	}
	if !IsExternalURL(target, h.siteOrigin) {
		return &OutboundError{
			Message: target,
			Cause:   ErrCauseInternalLink,
		}
	}
	return nil
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, status int, err failure.ClassifiedError) {
	cause := metadata.CauseUnknown
	var outboundErr *OutboundError
	if errors.As(err, &outboundErr) {
		cause = mapOutboundErrorToMetadataCause(outboundErr)
	}

	h.metadataSink.RecordError(
		time.Now(),
		"outbound",
		"Handler.ServeHTTP",
		cause,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrPath, r.URL.RequestURI()),
		},
	)
	http.Error(w, http.StatusText(status), status)
}
