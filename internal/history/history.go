// Package history keeps fixed-size trailing windows of entries.
package history

// DefaultCapacity is the number of chat entries a client keeps.
const DefaultCapacity = 100

// Append returns a new slice holding seq followed by item, trimmed from the
// front so that it never holds more than capacity entries. The result never
// shares memory with seq.
func Append[T any](seq []T, item T, capacity int) []T {
	if capacity <= 0 {
		return []T{}
	}
	total := len(seq) + 1
	start := 0
	if total > capacity {
		start = total - capacity
	}
	out := make([]T, 0, total-start)
	if start < len(seq) {
		out = append(out, seq[start:]...)
	}
	return append(out, item)
}
