package testutil

import (
	"sync"
	"time"
)

// Epoch is the wall time a DeterministicClock starts from.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock stands in for time.Now when baselines are recorded.
// Every call to Now is one second after the previous one, starting at
// Epoch plus one second, so recorded_at values in tests are reproducible.
//
// Thread-safety: safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	ticks int64
}

// NewDeterministicClock creates a clock that has not ticked yet.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Now advances the clock by one second and returns the new time.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return Epoch.Add(time.Duration(c.ticks) * time.Second)
}

// Ticks returns how many times Now has been called.
func (c *DeterministicClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}
