// Package endpoint implements the four reliability state machines RTPS
// defines over a history cache and a set of matched proxies: the stateless
// writer/reader (spec.md §4.D) and the stateful writer/reader (spec.md
// §4.E). Where the teacher drives one flat per-session Update() tick that
// drains an ACK queue, a NACK queue and a retransmit map, these endpoints
// generalize that same drain-on-tick shape across one state machine per
// matched proxy.
package endpoint

import (
	"sync"

	"rtps-go/pkg/guid"
	"rtps-go/pkg/history"
	"rtps-go/pkg/proxy"
	"rtps-go/pkg/rtps"
	"rtps-go/pkg/wire"
)

// Reliability selects between the best-effort and reliable behaviors spec.md
// §4.D/§4.E describe for every endpoint kind.
type Reliability int

const (
	BestEffort Reliability = iota
	Reliable
)

// Outbound is one submessage a writer wants sent to one destination
// locator, decoupled from any particular transport so both stateless and
// stateful writers can hand work to the same pkg/sender.MessageSender.
type Outbound struct {
	Locator    rtps.Locator
	Submessage wire.RawSubmessage
}

// StatelessWriter holds a set of ReaderLocators and pushes changes to all of
// them without tracking their identity, per spec.md §4.D.
type StatelessWriter struct {
	mu          sync.Mutex
	GUID        guid.GUID
	Reliability Reliability
	Cache       *history.Cache
	locators    []*proxy.ReaderLocator
}

func NewStatelessWriter(g guid.GUID, reliability Reliability, cache *history.Cache) *StatelessWriter {
	return &StatelessWriter{GUID: g, Reliability: reliability, Cache: cache}
}

// AddReaderLocator matches a new destination locator.
func (w *StatelessWriter) AddReaderLocator(rl *proxy.ReaderLocator) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.locators = append(w.locators, rl)
}

// RemoveReaderLocator drops a previously matched locator.
func (w *StatelessWriter) RemoveReaderLocator(target rtps.Locator) {
	w.mu.Lock()
	defer w.mu.Unlock()
	kept := w.locators[:0]
	for _, rl := range w.locators {
		if !rl.Locator.Equal(target) {
			kept = append(kept, rl)
		}
	}
	w.locators = kept
}

// ReceiveAckNackFrom adapts ReceiveAckNack to the receiver package's
// uniform WriterSink shape: a stateless writer has no notion of remote
// identity, only the source locator the datagram arrived from.
func (w *StatelessWriter) ReceiveAckNackFrom(remote guid.GUID, source rtps.Locator, a wire.AckNack) {
	w.ReceiveAckNack(source, a)
}

// ReceiveAckNack folds an inbound ACKNACK into the locator matching its
// source, for the reliable stateless path described in spec.md §4.D.
func (w *StatelessWriter) ReceiveAckNack(source rtps.Locator, a wire.AckNack) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, rl := range w.locators {
		if rl.Locator.Equal(source) {
			rl.RequestedChangesSet(a.ReaderSNState.Members())
		}
	}
}

// Tick drains one round of work for every matched locator: unsent changes
// first (or requested changes, if reliable and any are outstanding), one
// submessage per pending sequence number. endian picks the wire
// representation for the emitted submessages.
func (w *StatelessWriter) Tick(endian wire.Endianness) []Outbound {
	w.mu.Lock()
	defer w.mu.Unlock()

	last, hasLast := w.Cache.MaxSeq()
	if !hasLast {
		last = rtps.SequenceNumberZero
	}

	var out []Outbound
	for _, rl := range w.locators {
		if w.Reliability == Reliable && rl.HasRequested() {
			for rl.HasRequested() {
				sn, _ := rl.NextRequestedChange()
				out = append(out, w.emitOne(rl.Locator, sn, endian))
			}
			continue
		}
		for {
			sn, ok := rl.NextUnsentChange(last)
			if !ok {
				break
			}
			out = append(out, w.emitOne(rl.Locator, sn, endian))
		}
	}
	return out
}

func (w *StatelessWriter) emitOne(loc rtps.Locator, sn rtps.SequenceNumber, endian wire.Endianness) Outbound {
	if change, ok := w.Cache.Get(sn); ok {
		d := wire.Data{
			ReaderId:     guid.EntityIdUnknown,
			WriterId:     w.GUID.Entity,
			WriterSN:     sn,
			HasPayload:   true,
			Payload:      change.DataValue,
			PayloadIsKey: change.Kind != rtps.ChangeAlive,
		}
		if len(change.InlineQos) > 0 {
			d.HasInlineQos = true
			d.InlineQos = change.InlineQos
		}
		return Outbound{Locator: loc, Submessage: wire.EncodeData(d, endian)}
	}
	gapsEmitted.WithLabelValues(w.GUID.Entity.Kind.String()).Inc()
	g := wire.Gap{
		ReaderId: guid.EntityIdUnknown,
		WriterId: w.GUID.Entity,
		GapStart: sn,
		GapList:  rtps.NewSequenceNumberSet(sn+1, nil),
	}
	return Outbound{Locator: loc, Submessage: wire.EncodeGap(g, endian)}
}

// Heartbeats builds one HEARTBEAT per matched locator, for reliable
// stateless writers on their periodic timer (spec.md §4.D).
func (w *StatelessWriter) Heartbeats(count uint32, endian wire.Endianness) []Outbound {
	if w.Reliability != Reliable {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	first, hasFirst := w.Cache.MinSeq()
	last, hasLast := w.Cache.MaxSeq()
	if !hasFirst || !hasLast {
		first, last = 1, 0
	}
	hb := wire.Heartbeat{
		ReaderId:  guid.EntityIdUnknown,
		WriterId:  w.GUID.Entity,
		FirstSN:   first,
		LastSN:    last,
		Count:     count,
		FinalFlag: true,
	}
	var out []Outbound
	for _, rl := range w.locators {
		out = append(out, Outbound{Locator: rl.Locator, Submessage: wire.EncodeHeartbeat(hb, endian)})
	}
	return out
}
