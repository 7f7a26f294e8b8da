package notify

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestBellRingsCountTimes(t *testing.T) {
	var buf bytes.Buffer
	var slept []time.Duration
	b := NewBell(&buf)
	b.sleep = func(d time.Duration) { slept = append(slept, d) }

	if err := b.Notify(3, 261.63, 200*time.Millisecond); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if buf.String() != "\a\a\a" {
		t.Fatalf("expected three bells, got %q", buf.String())
	}
	if len(slept) != 2 {
		t.Fatalf("expected two pauses between rings, got %d", len(slept))
	}
	for _, d := range slept {
		if d != 200*time.Millisecond {
			t.Fatalf("expected 200ms pause, got %v", d)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestBellWriteError(t *testing.T) {
	b := NewBell(failingWriter{})
	b.sleep = func(time.Duration) {}
	if err := b.Notify(1, 0, 0); err == nil {
		t.Fatal("expected error")
	}
}

func TestNilFuncIsNop(t *testing.T) {
	var f Func
	if err := f.Notify(3, 1, time.Millisecond); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if err := Nop().Notify(1, 1, 1); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
