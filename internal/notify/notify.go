// Package notify plays the audible cue a server can ask for.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Notifier plays count tones of the given pitch (Hz), each lasting duration.
type Notifier interface {
	Notify(count int, frequency float64, duration time.Duration) error
}

// Func adapts a function to Notifier.
type Func func(count int, frequency float64, duration time.Duration) error

func (f Func) Notify(count int, frequency float64, duration time.Duration) error {
	if f == nil {
		return nil
	}
	return f(count, frequency, duration)
}

// Nop returns a Notifier that does nothing.
func Nop() Notifier {
	return Func(func(int, float64, time.Duration) error { return nil })
}

// Bell rings the terminal bell. Terminals have no pitch control, so frequency
// is ignored and duration spaces the rings.
type Bell struct {
	mu    sync.Mutex
	w     io.Writer
	sleep func(time.Duration)
}

// NewBell returns a Bell writing to w.
func NewBell(w io.Writer) *Bell {
	return &Bell{w: w, sleep: time.Sleep}
}

func (b *Bell) Notify(count int, _ float64, duration time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := 0; i < count; i++ {
		if i > 0 {
			b.sleep(duration)
		}
		if _, err := io.WriteString(b.w, "\a"); err != nil {
			return fmt.Errorf("ring bell: %w", err)
		}
	}
	return nil
}
