package redditstream

import (
	"math/rand"
	"time"
)

// backoff holds the reconnect delay state for transient failures: the current
// delay grows multiplicatively with jitter on every failure, is capped at a
// ceiling, and resets to the initial delay on every successful reconnect.
type backoff struct {
	initial time.Duration
	ceiling time.Duration
	current time.Duration
	rng     *rand.Rand
}

func newBackoff(initial, ceiling time.Duration) *backoff {
	return &backoff{
		initial: initial,
		ceiling: ceiling,
		current: initial,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// reset restores the initial delay. Called after every successful reconnect.
func (b *backoff) reset() {
	b.current = b.initial
}

// next returns the delay to sleep before the coming reconnect attempt and
// grows the state for the following failure. The jitter factor is drawn from
// [0.5, 1.0) so simultaneous instances do not retry in lockstep.
func (b *backoff) next() time.Duration {
	jitter := 0.5 + b.rng.Float64()*0.5

	sleepFor := time.Duration(float64(b.current) * (1.5 + jitter))
	if sleepFor > b.ceiling {
		sleepFor = b.ceiling
	}

	grown := sleepFor * 2
	if grown < b.initial {
		grown = b.initial
	}
	if grown > b.ceiling {
		grown = b.ceiling
	}
	b.current = grown

	return sleepFor
}
