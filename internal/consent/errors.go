package consent

import (
	"fmt"

	"github.com/chunkytofustudios/analytics-gate/pkg/failure"
)

type ConsentErrorCause string

const (
	ErrCauseCookieMissing   ConsentErrorCause = "cookie missing"
	ErrCauseCookieMalformed ConsentErrorCause = "cookie malformed"
)

type ConsentError struct {
	Message   string
	Retryable bool
	Cause     ConsentErrorCause
}

func (e *ConsentError) Error() string {
	return fmt.Sprintf("consent error: %s: %s", e.Cause, e.Message)
}

func (e *ConsentError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *ConsentError) IsRetryable() bool {
	return e.Retryable
}
