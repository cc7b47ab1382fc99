// Package plan turns a caller's frame request into an ascending decode plan.
package plan

import (
	"errors"
	"sort"
)

// ErrEmpty is returned when no frames are requested.
var ErrEmpty = errors.New("plan: no frames requested")

// Entry pairs an output slot with the frame that must land in it.
type Entry struct {
	Slot  int   // position in the caller's index list
	Frame int64 // target frame number, never negative
}

// Plan is sorted ascending by Frame. Entries sharing a frame receive
// identical pixels, so their relative order carries no meaning.
type Plan struct {
	Entries []Entry
}

// Build pairs every index with its slot, clamps negative indices to 0
// and sorts by target frame.
func Build(indices []int64) (Plan, error) {
	if len(indices) == 0 {
		return Plan{}, ErrEmpty
	}

	entries := make([]Entry, len(indices))
	for slot, idx := range indices {
		if idx < 0 {
			idx = 0
		}
		entries[slot] = Entry{Slot: slot, Frame: idx}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Frame < entries[j].Frame
	})

	return Plan{Entries: entries}, nil
}

// Len returns the number of entries.
func (p Plan) Len() int {
	return len(p.Entries)
}

// First returns the smallest target frame, used as the initial seek target.
func (p Plan) First() int64 {
	if len(p.Entries) == 0 {
		return 0
	}
	return p.Entries[0].Frame
}

// Distinct returns the number of different target frames.
func (p Plan) Distinct() int {
	n := 0
	for i, e := range p.Entries {
		if i == 0 || e.Frame != p.Entries[i-1].Frame {
			n++
		}
	}
	return n
}
