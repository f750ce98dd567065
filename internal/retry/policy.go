package retry

import "time"

// Policy governs job-level redelivery when a dispatch job cannot resolve
// its recipients (store down). Per-recipient delivery is never retried.
type Policy struct {
	MaxAttempts int
	backoff     *Backoff
}

func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts: 5,
		backoff:     DefaultBackoff(),
	}
}

func NewPolicy(maxAttempts int, backoff *Backoff) *Policy {
	if backoff == nil {
		backoff = DefaultBackoff()
	}
	return &Policy{MaxAttempts: maxAttempts, backoff: backoff}
}

func (p *Policy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxAttempts
}

func (p *Policy) NextDelay(attempt int) time.Duration {
	return p.backoff.NextDelay(attempt)
}
