package dispatcher

import (
	"fmt"

	"github.com/chunkytofustudios/analytics-gate/internal/metadata"
	"github.com/chunkytofustudios/analytics-gate/pkg/failure"
)

type DispatchErrorCause string

const (
	ErrCauseEncodeFailure  DispatchErrorCause = "failed to encode payload"
	ErrCauseInvalidRequest DispatchErrorCause = "invalid request"
	ErrCauseNetworkFailure DispatchErrorCause = "network issues"
	ErrCauseCancelled      DispatchErrorCause = "cancelled"
	ErrCauseRequestTooMany DispatchErrorCause = "too many requests"
	ErrCauseRequest4xx     DispatchErrorCause = "4xx"
	ErrCauseRequest5xx     DispatchErrorCause = "5xx"
)

type DispatchError struct {
	Message   string
	Retryable bool
	Cause     DispatchErrorCause
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatcher error: %s: %s", e.Cause, e.Message)
}

func (e *DispatchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *DispatchError) IsRetryable() bool {
	return e.Retryable
}

// mapDispatchErrorToMetadataCause is observational only.
func mapDispatchErrorToMetadataCause(err *DispatchError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseNetworkFailure, ErrCauseRequest5xx:
		return metadata.CauseNetworkFailure
	case ErrCauseRequestTooMany:
		return metadata.CausePolicyDisallow
	case ErrCauseInvalidRequest, ErrCauseRequest4xx:
		return metadata.CauseContentInvalid
	case ErrCauseEncodeFailure:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
