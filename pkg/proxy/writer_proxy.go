package proxy

import (
	"time"

	"rtps-go/pkg/guid"
	"rtps-go/pkg/rtps"
)

// WriterProxy is a stateful reader's bookkeeping for one matched remote
// writer: the three disjoint sets unknown/missing/lost partition
// [1, highestProcessedSN] together with the implicit "received" set, per
// spec.md §3/§4.C.
type WriterProxy struct {
	RemoteGUID        guid.GUID
	UnicastLocators   []rtps.Locator
	MulticastLocators []rtps.Locator

	highestProcessedSN rtps.SequenceNumber
	unknown            snSet
	missing            snSet
	lost               snSet

	MustSendAck                  bool
	LastHeartbeatInstant         time.Time
	acknackCount                 uint32
	HighestHeartbeatCountReceived uint32
}

func NewWriterProxy(remote guid.GUID, unicast, multicast []rtps.Locator) *WriterProxy {
	return &WriterProxy{
		RemoteGUID:        remote,
		UnicastLocators:   unicast,
		MulticastLocators: multicast,
		unknown:           newSNSet(),
		missing:           newSNSet(),
		lost:              newSNSet(),
	}
}

// HighestProcessed returns the highest sequence number this proxy has
// processed (received, gapped, marked lost, or announced by a heartbeat
// and marked missing).
func (wp *WriterProxy) HighestProcessed() rtps.SequenceNumber {
	return wp.highestProcessedSN
}

// Unknown, Missing, Lost expose the three sets for inspection/testing.
func (wp *WriterProxy) Unknown() []rtps.SequenceNumber { return wp.unknown.sorted() }
func (wp *WriterProxy) Missing() []rtps.SequenceNumber { return wp.missing.sorted() }
func (wp *WriterProxy) Lost() []rtps.SequenceNumber    { return wp.lost.sorted() }

// ReceivedChangeSet records that sequence number n has now been accounted
// for (delivered, or known irrelevant), per spec.md §4.C. If n is beyond
// the previously processed range, every sequence number strictly between
// the old high-water mark and n is provisionally unknown.
func (wp *WriterProxy) ReceivedChangeSet(n rtps.SequenceNumber) {
	if n > wp.highestProcessedSN {
		for sn := wp.highestProcessedSN + 1; sn < n; sn++ {
			wp.unknown.add(sn)
		}
		wp.highestProcessedSN = n
	}
	// Tie-break: whether or not n was newly introduced above, it is now
	// accounted for. Entries already removed are never revived.
	wp.unknown.remove(n)
	wp.missing.remove(n)
}

// LostChangesUpdate declares that nothing before firstAvailable will ever
// arrive: every unknown/missing entry below it moves to lost, and if the
// writer's range starts even later than the current high-water mark, the
// gap between them is also lost.
func (wp *WriterProxy) LostChangesUpdate(firstAvailable rtps.SequenceNumber) {
	for _, sn := range wp.unknown.sorted() {
		if sn < firstAvailable {
			wp.unknown.remove(sn)
			wp.lost.add(sn)
		}
	}
	for _, sn := range wp.missing.sorted() {
		if sn < firstAvailable {
			wp.missing.remove(sn)
			wp.lost.add(sn)
		}
	}
	if firstAvailable > wp.highestProcessedSN+1 {
		for sn := wp.highestProcessedSN + 1; sn < firstAvailable; sn++ {
			wp.lost.add(sn)
		}
		wp.highestProcessedSN = firstAvailable - 1
	}
}

// MissingChangesUpdate declares that everything up to lastAvailable has
// been produced by the writer: unknown entries up to it become missing,
// and if the writer's range extends past the current high-water mark the
// new tail is also missing.
func (wp *WriterProxy) MissingChangesUpdate(lastAvailable rtps.SequenceNumber) {
	for _, sn := range wp.unknown.sorted() {
		if sn <= lastAvailable {
			wp.unknown.remove(sn)
			wp.missing.add(sn)
		}
	}
	if lastAvailable > wp.highestProcessedSN {
		for sn := wp.highestProcessedSN + 1; sn <= lastAvailable; sn++ {
			wp.missing.add(sn)
		}
		wp.highestProcessedSN = lastAvailable
	}
}

// AvailableChangesMax is the highest sequence number at or below which
// every change is known to be either received or lost, per spec.md §4.C.
func (wp *WriterProxy) AvailableChangesMax() rtps.SequenceNumber {
	max := wp.highestProcessedSN
	if sn, ok := wp.unknown.min(); ok && sn-1 < max {
		max = sn - 1
	}
	if sn, ok := wp.missing.min(); ok && sn-1 < max {
		max = sn - 1
	}
	return max
}

// IncrementAckNackCount advances and returns the reader's ACKNACK Count
// for this writer.
func (wp *WriterProxy) IncrementAckNackCount() uint32 {
	wp.acknackCount++
	return wp.acknackCount
}

func (wp *WriterProxy) AckNackCount() uint32 {
	return wp.acknackCount
}

// UnknownBelow returns the unknown entries at or below last, the set
// ACKNACK must fold into its requested range per spec.md §4.E.
func (wp *WriterProxy) UnknownBelow(last rtps.SequenceNumber) []rtps.SequenceNumber {
	var out []rtps.SequenceNumber
	for _, sn := range wp.unknown.sorted() {
		if sn <= last {
			out = append(out, sn)
		}
	}
	return out
}

// wrappingGreater implements spec.md §9/§4.E's wrapping-signed comparison
// for Counts: "greater than" means the wrapping difference a-b is
// positive, so a Count can overtake after wraparound without falling
// permanently behind.
func wrappingGreater(a, b uint32) bool {
	return int32(a-b) > 0
}

// CountGreater exposes wrappingGreater for use by callers comparing
// received heartbeat/acknack counts against the last one seen.
func CountGreater(a, b uint32) bool {
	return wrappingGreater(a, b)
}
