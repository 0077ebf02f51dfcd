package loader

import (
	"fmt"

	"github.com/chunkytofustudios/analytics-gate/internal/metadata"
	"github.com/chunkytofustudios/analytics-gate/pkg/failure"
)

type LoadErrorCause string

const (
	ErrCauseInvalidURL            LoadErrorCause = "invalid script url"
	ErrCauseNetworkFailure        LoadErrorCause = "network issues"
	ErrCauseReadResponseBodyError LoadErrorCause = "failed to read response body"
	ErrCauseContentTypeInvalid    LoadErrorCause = "non-JavaScript content"
	ErrCauseEmptyScript           LoadErrorCause = "empty script"
	ErrCauseRedirectLimitExceeded LoadErrorCause = "reached redirect limit"
	ErrCauseRequestForbidden      LoadErrorCause = "forbidden"
	ErrCauseRequestTooMany        LoadErrorCause = "too many requests"
	ErrCauseRequest4xx            LoadErrorCause = "4xx"
	ErrCauseRequest5xx            LoadErrorCause = "5xx"
)

type LoadError struct {
	Message   string
	Retryable bool
	Cause     LoadErrorCause
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loader error: %s: %s", e.Cause, e.Message)
}

func (e *LoadError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// IsRetryable returns whether this error is retryable
func (e *LoadError) IsRetryable() bool {
	return e.Retryable
}

// mapLoadErrorToMetadataCause maps loader-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapLoadErrorToMetadataCause(err *LoadError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseNetworkFailure, ErrCauseRequest5xx, ErrCauseReadResponseBodyError:
		return metadata.CauseNetworkFailure
	case ErrCauseRequestForbidden, ErrCauseRequestTooMany:
		return metadata.CausePolicyDisallow
	case ErrCauseContentTypeInvalid, ErrCauseEmptyScript, ErrCauseInvalidURL:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
