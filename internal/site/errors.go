package site

import (
	"fmt"

	"github.com/chunkytofustudios/analytics-gate/internal/metadata"
	"github.com/chunkytofustudios/analytics-gate/pkg/failure"
)

type SiteErrorCause string

const (
	ErrCauseSiteDirMissing SiteErrorCause = "site directory missing"
	ErrCauseReadFailure    SiteErrorCause = "failed to read file"
	ErrCauseParseFailure   SiteErrorCause = "failed to parse html"
	ErrCauseListenFailure  SiteErrorCause = "failed to listen"
	ErrCauseBadForm        SiteErrorCause = "bad form"
)

type SiteError struct {
	Message   string
	Retryable bool
	Cause     SiteErrorCause
}

func (e *SiteError) Error() string {
	return fmt.Sprintf("site error: %s: %s", e.Cause, e.Message)
}

func (e *SiteError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *SiteError) IsRetryable() bool {
	return e.Retryable
}

func mapSiteErrorToMetadataCause(err *SiteError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseReadFailure, ErrCauseListenFailure, ErrCauseSiteDirMissing:
		return metadata.CauseUnknown
	case ErrCauseParseFailure, ErrCauseBadForm:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
