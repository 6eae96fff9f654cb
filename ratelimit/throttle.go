// Package ratelimit throttles publication of slowly drifting readings.
package ratelimit

import (
	"math"
	"strings"
	"sync"
	"time"
)

type reading struct {
	at    time.Time
	value float64
}

// Throttle decides per topic whether a reading is worth publishing. A reading passes when it is
// the first one of its topic, when it moved by at least delta since the last one that passed,
// when it drops to zero, or when the topic has been quiet for the refresh interval.
type Throttle struct {
	refresh time.Duration
	now     func() time.Time

	mu   sync.Mutex
	last map[string]reading
}

func NewThrottle(refresh time.Duration) *Throttle {
	return &Throttle{refresh: refresh, now: time.Now, last: map[string]reading{}}
}

func (t *Throttle) Allow(topic string, value, delta float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	last, seen := t.last[topic]
	if seen && math.Abs(value-last.value) < delta && now.Sub(last.at) < t.refresh {
		// a session that ended must show up right away
		if value != 0 || last.value == 0 {
			return false
		}
	}
	t.last[topic] = reading{at: now, value: value}
	return true
}

// Forget drops the history of every topic below prefix, so their next readings pass.
func (t *Throttle) Forget(prefix string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for topic := range t.last {
		if strings.HasPrefix(topic, prefix) {
			delete(t.last, topic)
		}
	}
}
