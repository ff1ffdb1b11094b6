package swap

import (
	"sync"

	"github.com/schedcu/residency-engine/internal/entity"
)

// inFlightIndex tracks the (person, week) pairs currently involved in a
// swap in this process, per spec.md §4.D's concurrency rule: "a swap
// whose affected weeks overlap an in-flight swap or generation for any
// of the same persons fails with Conflict". Like generator.inFlightIndex
// it is process-local; composing this with the generator's own index
// into one shared tracker is a wiring-layer concern (cmd/engine would
// construct one shared instance and hand it to both), left as an open
// question since nothing in the retrieved pack shows a cross-package
// lock registry to generalize from.
type inFlightIndex struct {
	mu  sync.Mutex
	set map[personWeek]bool
}

type personWeek struct {
	person entity.PersonID
	week   entity.Date
}

func newInFlightIndex() *inFlightIndex {
	return &inFlightIndex{set: map[personWeek]bool{}}
}

// acquireAll reports whether every claim is free, claiming all of them
// atomically if so (all-or-nothing, so a request never holds a partial
// lock).
func (idx *inFlightIndex) acquireAll(claims []personWeek) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, c := range claims {
		if idx.set[c] {
			return false
		}
	}
	for _, c := range claims {
		idx.set[c] = true
	}
	return true
}

func (idx *inFlightIndex) releaseAll(claims []personWeek) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, c := range claims {
		delete(idx.set, c)
	}
}
