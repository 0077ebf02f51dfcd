package outbound

import (
	"fmt"

	"github.com/chunkytofustudios/analytics-gate/internal/metadata"
	"github.com/chunkytofustudios/analytics-gate/pkg/failure"
)

type OutboundErrorCause string

const (
	ErrCauseMissingURL       OutboundErrorCause = "missing url"
	ErrCauseInvalidURL       OutboundErrorCause = "invalid url"
	ErrCauseSchemeNotAllowed OutboundErrorCause = "scheme not allowed"
	ErrCauseInternalLink     OutboundErrorCause = "link is not external"
	ErrCauseRenderFailure    OutboundErrorCause = "failed to render document"
)

type OutboundError struct {
	Message   string
	Retryable bool
	Cause     OutboundErrorCause
}

func (e *OutboundError) Error() string {
	return fmt.Sprintf("outbound error: %s: %s", e.Cause, e.Message)
}

func (e *OutboundError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *OutboundError) IsRetryable() bool {
	return e.Retryable
}

func mapOutboundErrorToMetadataCause(err *OutboundError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseMissingURL, ErrCauseInvalidURL:
		return metadata.CauseContentInvalid
	case ErrCauseSchemeNotAllowed, ErrCauseInternalLink:
		return metadata.CausePolicyDisallow
	case ErrCauseRenderFailure:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
