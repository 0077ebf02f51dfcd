package limiter

import "time"

// timing-related data used to pace requests to a single host
type hostTiming struct {
	lastSendAt   time.Time
	backoffDelay time.Duration
	hostDelay    time.Duration
	backoffCount int
}

func (h hostTiming) HostDelay() time.Duration {
	return h.hostDelay
}

func (h hostTiming) BackoffDelay() time.Duration {
	return h.backoffDelay
}

func (h hostTiming) LastSendAt() time.Time {
	return h.lastSendAt
}

func (h hostTiming) BackoffCount() int {
	return h.backoffCount
}
