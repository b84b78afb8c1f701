// ABOUTME: Reconnection backoff schedule
// ABOUTME: Exponential delay doubling from an initial value up to a cap
package protocol

import "time"

const (
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 60 * time.Second
)

// Backoff computes reconnection delays
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultBackoff returns the 1s..60s schedule
func DefaultBackoff() Backoff {
	return Backoff{Initial: DefaultInitialBackoff, Max: DefaultMaxBackoff}
}

// Delay returns the wait before the given attempt (1-based)
func (b Backoff) Delay(attempt int) time.Duration {
	initial := b.Initial
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	max := b.Max
	if max < initial {
		max = initial
	}
	if attempt < 1 {
		attempt = 1
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max || delay <= 0 {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
