// Package proxy implements the per-remote-endpoint bookkeeping that drives
// RTPS reliability: ReaderLocator (stateless writer side), ReaderProxy
// (stateful writer side) and WriterProxy (stateful reader side), per
// spec.md §4.C.
package proxy

import (
	"sort"

	"rtps-go/pkg/rtps"
)

// snSet is an unordered set of sequence numbers with sorted iteration,
// generalizing the teacher's Session.ACKQueue dedup-map and NACKQueue
// ordered-slice pair into a single reusable type.
type snSet map[rtps.SequenceNumber]struct{}

func newSNSet() snSet {
	return make(snSet)
}

func (s snSet) add(sn rtps.SequenceNumber) {
	s[sn] = struct{}{}
}

func (s snSet) remove(sn rtps.SequenceNumber) {
	delete(s, sn)
}

func (s snSet) has(sn rtps.SequenceNumber) bool {
	_, ok := s[sn]
	return ok
}

func (s snSet) empty() bool {
	return len(s) == 0
}

// sorted returns the set's members in ascending order.
func (s snSet) sorted() []rtps.SequenceNumber {
	out := make([]rtps.SequenceNumber, 0, len(s))
	for sn := range s {
		out = append(out, sn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// min returns the smallest member and whether the set is non-empty.
func (s snSet) min() (rtps.SequenceNumber, bool) {
	first := true
	var best rtps.SequenceNumber
	for sn := range s {
		if first || sn < best {
			best = sn
			first = false
		}
	}
	return best, !first
}

// popMin removes and returns the smallest member.
func (s snSet) popMin() (rtps.SequenceNumber, bool) {
	sn, ok := s.min()
	if ok {
		delete(s, sn)
	}
	return sn, ok
}
