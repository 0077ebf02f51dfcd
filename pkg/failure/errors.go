package failure

import "errors"

type Severity int

// gate and dispatcher control flow
const (
	SeverityFatal Severity = iota
	SeverityRecoverable
)

func (s Severity) String() string {
	switch s {
	case SeverityFatal:
		return "fatal"
	case SeverityRecoverable:
		return "recoverable"
	default:
		return "unknown"
	}
}

type ClassifiedError interface {
	error
	Severity() Severity
}

// IsRetryable reports whether err asks to be retried.
// Errors that say nothing about retryability are treated as retryable.
func IsRetryable(err error) bool {
	type hasRetryable interface {
		IsRetryable() bool
	}

	var r hasRetryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return true
}
