// Package ratelimit gates how often a side effect may run.
package ratelimit

import (
	"sync"
	"time"
)

// DefaultInterval is the minimum spacing between two notification sounds.
const DefaultInterval = time.Second

// Gate remembers when it last fired. The zero value is not usable; build one
// with New at session start.
type Gate struct {
	mu   sync.Mutex
	last time.Time
}

// New returns a gate that treats start as its last firing.
func New(start time.Time) *Gate {
	return &Gate{last: start}
}

// TryFire reports whether at least minInterval has passed since the last
// firing. When it has, now becomes the new last firing.
func (g *Gate) TryFire(now time.Time, minInterval time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if now.Sub(g.last) < minInterval {
		return false
	}
	g.last = now
	return true
}
