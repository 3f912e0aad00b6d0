package sim

import (
	"sort"

	"github.com/playmatatu/pinball/internal/physics"
)

// pairKey identifies an overlapping pair. For trigger pairs A is the trigger;
// for contact pairs A is the lower actor ID.
type pairKey struct {
	A, B physics.ActorID
}

// pairTracker remembers which pairs were touching at the end of the last step
// so that only transitions are reported.
type pairTracker struct {
	active map[pairKey]bool
	seen   map[pairKey]bool // touched at any point during the current step
	now    map[pairKey]bool // touching at the end of the current step
}

func newPairTracker() *pairTracker {
	return &pairTracker{
		active: make(map[pairKey]bool),
		seen:   make(map[pairKey]bool),
		now:    make(map[pairKey]bool),
	}
}

// touch records an overlap observed during the current sub-step.
func (pt *pairTracker) touch(k pairKey) {
	pt.seen[k] = true
}

// settle marks the final sub-step's overlaps.
func (pt *pairTracker) settle(k pairKey) {
	pt.seen[k] = true
	pt.now[k] = true
}

// commit closes the step. A pair that both began and ended inside the step is
// reported as found and then lost.
func (pt *pairTracker) commit() (found, lost []pairKey) {
	for k := range pt.seen {
		if !pt.active[k] {
			found = append(found, k)
		}
	}
	for k := range pt.active {
		if !pt.now[k] {
			lost = append(lost, k)
		}
	}
	for k := range pt.seen {
		if !pt.active[k] && !pt.now[k] {
			lost = append(lost, k)
		}
	}

	pt.active = pt.now
	pt.now = make(map[pairKey]bool)
	pt.seen = make(map[pairKey]bool)

	sortPairs(found)
	sortPairs(lost)
	return found, lost
}

// forget drops every pair involving id without reporting it.
func (pt *pairTracker) forget(id physics.ActorID) {
	for _, m := range []map[pairKey]bool{pt.active, pt.seen, pt.now} {
		for k := range m {
			if k.A == id || k.B == id {
				delete(m, k)
			}
		}
	}
}

func sortPairs(keys []pairKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].A != keys[j].A {
			return keys[i].A < keys[j].A
		}
		return keys[i].B < keys[j].B
	})
}

func contactKey(a, b physics.ActorID) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{A: a, B: b}
}
