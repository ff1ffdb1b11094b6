package generator

import (
	"sync"

	"github.com/schedcu/residency-engine/internal/entity"
)

// inFlightIndex tracks the date ranges currently being generated in
// this process, guarding against two overlapping concurrent requests
// racing to insert the same Blocks. It is intentionally process-local
// rather than store-backed: a multi-process deployment would need a
// database lock instead (recorded as an open question in DESIGN.md).
type inFlightIndex struct {
	mu     sync.Mutex
	ranges []dateRange
}

type dateRange struct {
	start, end entity.Date
}

func newInFlightIndex() *inFlightIndex { return &inFlightIndex{} }

// acquire reports whether [start, end] is free of any other in-flight
// range, reserving it if so.
func (idx *inFlightIndex) acquire(start, end entity.Date) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	candidate := dateRange{start, end}
	for _, r := range idx.ranges {
		if overlaps(r, candidate) {
			return false
		}
	}
	idx.ranges = append(idx.ranges, candidate)
	return true
}

func (idx *inFlightIndex) release(start, end entity.Date) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i, r := range idx.ranges {
		if r.start.Equal(start) && r.end.Equal(end) {
			idx.ranges = append(idx.ranges[:i], idx.ranges[i+1:]...)
			return
		}
	}
}

func overlaps(a, b dateRange) bool {
	return !a.end.Before(b.start) && !b.end.Before(a.start)
}
