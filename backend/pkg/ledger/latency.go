package ledger

import (
	"math"
	"sort"
	"time"
)

// latencySeries keeps the most recent consensus latencies in a ring.
type latencySeries struct {
	values []time.Duration
	next   int
	full   bool
}

func newLatencySeries(capacity int) *latencySeries {
	if capacity <= 0 {
		capacity = 1
	}

	return &latencySeries{values: make([]time.Duration, capacity)}
}

func (s *latencySeries) Add(d time.Duration) {
	s.values[s.next] = d
	s.next++
	if s.next == len(s.values) {
		s.next = 0
		s.full = true
	}
}

func (s *latencySeries) Len() int {
	if s.full {
		return len(s.values)
	}
	return s.next
}

func (s *latencySeries) Snapshot() []time.Duration {
	out := make([]time.Duration, s.Len())
	copy(out, s.values[:s.Len()])
	return out
}

func (s *latencySeries) Average() time.Duration {
	n := s.Len()
	if n == 0 {
		return 0
	}

	var total time.Duration
	for _, v := range s.values[:n] {
		total += v
	}

	return total / time.Duration(n)
}

// Percentile returns the nearest-rank percentile of values, q in [0, 1].
func Percentile(values []time.Duration, q float64) time.Duration {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]time.Duration, n)
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(math.Ceil(q*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}

	return sorted[idx]
}
