package metadata

import (
	"time"
)

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, reporting).

	Rules:
	 - ErrorCause MUST NOT influence control flow.
	 - ErrorCause MUST NOT be used for retry, re-initialization, or drop decisions.
	 - Packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown
  - The failure does not map cleanly to any known category.

# CauseNetworkFailure
  - Transport or remote availability: timeouts, DNS, resets, 5xx.

# CausePolicyDisallow
  - The remote refused: 401/403, 429 rate limiting.

# CauseContentInvalid
  - A response arrived but is unusable: wrong content type, empty script,
    malformed request input such as an unparsable outbound URL.

# CauseRetryFailure
  - All retry attempts were exhausted or the retry loop was cancelled.

# CauseInvariantViolation
  - An internal consistency check failed.
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CausePolicyDisallow
	CauseContentInvalid
	CauseRetryFailure
	CauseInvariantViolation
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CausePolicyDisallow:
		return "policy_disallow"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseRetryFailure:
		return "retry_failure"
	case CauseInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrURL           AttributeKey = "url"
	AttrHost          AttributeKey = "host"
	AttrPath          AttributeKey = "path"
	AttrMessage       AttributeKey = "message"
	AttrHTTPStatus    AttributeKey = "http_status"
	AttrEventName     AttributeKey = "event_name"
	AttrMeasurementID AttributeKey = "measurement_id"
	AttrState         AttributeKey = "state"
)

// LoadRecord describes one remote script load attempt sequence.
type LoadRecord struct {
	ScriptURL   string
	HTTPStatus  int
	Duration    time.Duration
	SizeByte    int
	ContentHash string
	Attempts    int
	Err         error
	Cause       ErrorCause
}

// DeliveryRecord describes one request to the analytics backend.
type DeliveryRecord struct {
	EventNames []string
	HTTPStatus int
	Duration   time.Duration
	Attempts   int
	DryRun     bool
	// Payload is the request body. Only logged for dry runs.
	Payload string
}
