package proxy

import "rtps-go/pkg/rtps"

// ReaderLocator is a stateless writer's per-destination bookkeeping: just
// enough to know what has been sent there, per spec.md §3.
type ReaderLocator struct {
	Locator          rtps.Locator
	ExpectsInlineQos bool

	highestSentChangeSN rtps.SequenceNumber
	requested           snSet
}

func NewReaderLocator(locator rtps.Locator, expectsInlineQos bool) *ReaderLocator {
	return &ReaderLocator{Locator: locator, ExpectsInlineQos: expectsInlineQos, requested: newSNSet()}
}

// HighestSent returns the highest sequence number sent to this locator so
// far (SequenceNumberZero if nothing has been sent).
func (rl *ReaderLocator) HighestSent() rtps.SequenceNumber {
	return rl.highestSentChangeSN
}

// NextUnsentChange mirrors ReaderProxy.NextUnsentChange: advances and
// returns highestSentChangeSN+1 if it is still within [.., last].
func (rl *ReaderLocator) NextUnsentChange(last rtps.SequenceNumber) (rtps.SequenceNumber, bool) {
	next := rl.highestSentChangeSN + 1
	if next > last {
		return 0, false
	}
	rl.highestSentChangeSN = next
	return next, true
}

// UnsentChanges returns the still-to-send range (highestSentChangeSN,
// last].
func (rl *ReaderLocator) UnsentChanges(last rtps.SequenceNumber) []rtps.SequenceNumber {
	var out []rtps.SequenceNumber
	for sn := rl.highestSentChangeSN + 1; sn <= last; sn++ {
		out = append(out, sn)
	}
	return out
}

// RequestedChangesSet unions S into the locator's requested set (reliable
// stateless writers reuse ReaderProxy's ACKNACK-driven repair path at
// locator granularity).
func (rl *ReaderLocator) RequestedChangesSet(members []rtps.SequenceNumber) {
	for _, sn := range members {
		rl.requested.add(sn)
	}
}

// NextRequestedChange pops the smallest requested sequence number.
func (rl *ReaderLocator) NextRequestedChange() (rtps.SequenceNumber, bool) {
	return rl.requested.popMin()
}

// HasRequested reports whether any requested changes remain.
func (rl *ReaderLocator) HasRequested() bool {
	return !rl.requested.empty()
}
