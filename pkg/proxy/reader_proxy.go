package proxy

import (
	"time"

	"rtps-go/pkg/guid"
	"rtps-go/pkg/rtps"
)

// ReaderProxy is a stateful writer's bookkeeping for one matched remote
// reader, per spec.md §3/§4.C.
type ReaderProxy struct {
	RemoteGUID          guid.GUID
	UnicastLocators     []rtps.Locator
	MulticastLocators   []rtps.Locator
	ExpectsInlineQos    bool
	IsActive            bool

	highestSentSN             rtps.SequenceNumber
	highestAckedSN            rtps.SequenceNumber
	requestedSet              snSet
	heartbeatCount            uint32
	LastSentInstant           time.Time
	LastNackInstant           time.Time
	HighestNackCountReceived  uint32
}

func NewReaderProxy(remote guid.GUID, unicast, multicast []rtps.Locator, expectsInlineQos bool) *ReaderProxy {
	return &ReaderProxy{
		RemoteGUID:        remote,
		UnicastLocators:   unicast,
		MulticastLocators: multicast,
		ExpectsInlineQos:  expectsInlineQos,
		IsActive:          true,
		highestAckedSN:    rtps.SequenceNumberZero,
		requestedSet:      newSNSet(),
	}
}

// HighestSent returns the highest sequence number pushed to this reader so
// far.
func (rp *ReaderProxy) HighestSent() rtps.SequenceNumber {
	return rp.highestSentSN
}

// HighestAcked returns the highest sequence number this reader has
// acknowledged.
func (rp *ReaderProxy) HighestAcked() rtps.SequenceNumber {
	return rp.highestAckedSN
}

// NextUnsentChange returns highestSentSN+1 and advances it, if that is
// still <= last; otherwise reports false (spec.md §4.C).
func (rp *ReaderProxy) NextUnsentChange(last rtps.SequenceNumber) (rtps.SequenceNumber, bool) {
	next := rp.highestSentSN + 1
	if next > last {
		return 0, false
	}
	rp.highestSentSN = next
	return next, true
}

// UnsentChanges returns (highestSentSN, last].
func (rp *ReaderProxy) UnsentChanges(last rtps.SequenceNumber) []rtps.SequenceNumber {
	var out []rtps.SequenceNumber
	for sn := rp.highestSentSN + 1; sn <= last; sn++ {
		out = append(out, sn)
	}
	return out
}

// AckedChangesSet sets highestAckedSN to n.
func (rp *ReaderProxy) AckedChangesSet(n rtps.SequenceNumber) {
	rp.highestAckedSN = n
}

// UnackedChanges returns (highestAckedSN, last].
func (rp *ReaderProxy) UnackedChanges(last rtps.SequenceNumber) []rtps.SequenceNumber {
	var out []rtps.SequenceNumber
	for sn := rp.highestAckedSN + 1; sn <= last; sn++ {
		out = append(out, sn)
	}
	return out
}

// RequestedChangesSet unions S into the requested set; it never replaces
// it, per spec.md §4.C.
func (rp *ReaderProxy) RequestedChangesSet(members []rtps.SequenceNumber) {
	for _, sn := range members {
		rp.requestedSet.add(sn)
	}
}

// NextRequestedChange pops the smallest pending requested sequence number.
func (rp *ReaderProxy) NextRequestedChange() (rtps.SequenceNumber, bool) {
	return rp.requestedSet.popMin()
}

// HasRequested reports whether any requested changes remain outstanding.
func (rp *ReaderProxy) HasRequested() bool {
	return !rp.requestedSet.empty()
}

// IncrementHeartbeatCount advances and returns the writer's heartbeat
// Count for this reader, monotonically (wrapping).
func (rp *ReaderProxy) IncrementHeartbeatCount() uint32 {
	rp.heartbeatCount++
	return rp.heartbeatCount
}

// HeartbeatCount returns the current heartbeat count without advancing it.
func (rp *ReaderProxy) HeartbeatCount() uint32 {
	return rp.heartbeatCount
}
