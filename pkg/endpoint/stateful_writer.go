package endpoint

import (
	"sync"
	"time"

	"rtps-go/pkg/guid"
	"rtps-go/pkg/history"
	"rtps-go/pkg/proxy"
	"rtps-go/pkg/rtps"
	"rtps-go/pkg/wire"
)

// WriterProxyState is the per-ReaderProxy state of a reliable StatefulWriter,
// per spec.md §4.E.
type WriterProxyState int

const (
	Announcing WriterProxyState = iota
	Pushing
	Repairing
	Waiting
)

func (s WriterProxyState) String() string {
	switch s {
	case Announcing:
		return "ANNOUNCING"
	case Pushing:
		return "PUSHING"
	case Repairing:
		return "REPAIRING"
	case Waiting:
		return "WAITING"
	default:
		return "UNKNOWN"
	}
}

type matchedReader struct {
	proxy              *proxy.ReaderProxy
	state              WriterProxyState
	nackReceivedAt     time.Time
}

// StatefulWriter matches a set of ReaderProxies and drives each through the
// Announcing/Pushing/Repairing/Waiting cycle of spec.md §4.E.
type StatefulWriter struct {
	mu sync.Mutex

	GUID            guid.GUID
	Reliability     Reliability
	PushMode        bool
	Cache           *history.Cache
	HeartbeatPeriod time.Duration
	NackResponseDelay time.Duration

	// Deadline and LivelinessLeaseDuration are zero ("disabled") until a
	// discovery layer (pkg/discovery/sedp) populates them from the
	// matched topic's QoS. Listener, if set, is notified on the
	// not-missed -> missed edge of either check.
	Deadline                time.Duration
	LivelinessLeaseDuration  time.Duration
	Listener                 Listener

	heartbeatCount uint32
	readers        map[guid.GUID]*matchedReader
	lastHeartbeat  time.Time

	lastWrite      time.Time
	deadlineMissed bool
	deadlineMissedCount uint32

	lastAsserted   time.Time
	livelinessLost bool
	livelinessLostCount uint32
}

func NewStatefulWriter(g guid.GUID, reliability Reliability, pushMode bool, cache *history.Cache, heartbeatPeriod, nackResponseDelay time.Duration) *StatefulWriter {
	return &StatefulWriter{
		GUID:              g,
		Reliability:       reliability,
		PushMode:          pushMode,
		Cache:             cache,
		HeartbeatPeriod:   heartbeatPeriod,
		NackResponseDelay: nackResponseDelay,
		readers:           make(map[guid.GUID]*matchedReader),
	}
}

// MatchReader adds a new matched ReaderProxy, entering Pushing (push mode)
// or Announcing (pull mode) as its initial state.
func (w *StatefulWriter) MatchReader(rp *proxy.ReaderProxy) {
	w.mu.Lock()
	defer w.mu.Unlock()
	initial := Announcing
	if w.PushMode {
		initial = Pushing
	}
	w.readers[rp.RemoteGUID] = &matchedReader{proxy: rp, state: initial}
}

// UnmatchReader drops a previously matched reader.
func (w *StatefulWriter) UnmatchReader(remote guid.GUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.readers, remote)
}

// ReaderProxyFor returns the ReaderProxy matched for remote, if any.
func (w *StatefulWriter) ReaderProxyFor(remote guid.GUID) (*proxy.ReaderProxy, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	mr, ok := w.readers[remote]
	if !ok {
		return nil, false
	}
	return mr.proxy, true
}

// NewChange notifies every matched reader that a sample was added to the
// cache: push-mode writers move straight to Pushing. It also records the
// write for the deadline check and clears a previously missed deadline,
// since a fresh write satisfies it again.
func (w *StatefulWriter) NewChange() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastWrite = time.Now()
	w.deadlineMissed = false
	if !w.PushMode {
		return
	}
	for _, mr := range w.readers {
		if mr.state == Waiting || mr.state == Announcing {
			mr.state = Pushing
		}
	}
}

// CheckDeadline raises OfferedDeadlineMissed if no new change has been
// added within Deadline of the last one, per spec.md §4.I. A Deadline of
// zero disables the check. now is passed in explicitly so callers control
// the clock.
func (w *StatefulWriter) CheckDeadline(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Deadline <= 0 {
		return
	}
	if w.lastWrite.IsZero() {
		w.lastWrite = now
		return
	}
	if now.Sub(w.lastWrite) <= w.Deadline {
		return
	}
	if w.deadlineMissed {
		return
	}
	w.deadlineMissed = true
	w.deadlineMissedCount++
	statusTransitions.WithLabelValues(OfferedDeadlineMissed.String()).Inc()
	notify(w.Listener, StatusChange{Kind: OfferedDeadlineMissed, Count: w.deadlineMissedCount})
}

// AssertLiveliness records that this writer is alive, the registry-driven
// counterpart of a writer's AUTOMATIC liveliness QoS being refreshed by
// the middleware rather than the application. It also clears a previously
// lost-liveliness transition.
func (w *StatefulWriter) AssertLiveliness(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastAsserted = now
	w.livelinessLost = false
}

// CheckLiveliness raises LivelinessLost if liveliness has not been
// asserted within LivelinessLeaseDuration, per spec.md §4.I. A lease
// duration of zero disables the check.
func (w *StatefulWriter) CheckLiveliness(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.LivelinessLeaseDuration <= 0 {
		return
	}
	if w.lastAsserted.IsZero() {
		w.lastAsserted = now
		return
	}
	if now.Sub(w.lastAsserted) <= w.LivelinessLeaseDuration {
		return
	}
	if w.livelinessLost {
		return
	}
	w.livelinessLost = true
	w.livelinessLostCount++
	statusTransitions.WithLabelValues(LivelinessLost.String()).Inc()
	notify(w.Listener, StatusChange{Kind: LivelinessLost, Count: w.livelinessLostCount})
}

// DeadlineMissedCount returns the cumulative count of OfferedDeadlineMissed
// transitions.
func (w *StatefulWriter) DeadlineMissedCount() uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.deadlineMissedCount
}

// LivelinessLostCount returns the cumulative count of LivelinessLost
// transitions.
func (w *StatefulWriter) LivelinessLostCount() uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.livelinessLostCount
}

// ReceiveAckNack applies an inbound ACKNACK from remote, per spec.md §4.E:
// stale counts (not strictly greater than the last seen) are dropped.
// ReceiveAckNackFrom adapts ReceiveAckNack to the receiver package's
// uniform WriterSink shape.
func (w *StatefulWriter) ReceiveAckNackFrom(remote guid.GUID, source rtps.Locator, a wire.AckNack) {
	w.ReceiveAckNack(remote, a)
}

func (w *StatefulWriter) ReceiveAckNack(remote guid.GUID, a wire.AckNack) {
	w.mu.Lock()
	defer w.mu.Unlock()
	mr, ok := w.readers[remote]
	if !ok {
		return
	}
	if !proxy.CountGreater(a.Count, mr.proxy.HighestNackCountReceived) {
		staleCountsDropped.WithLabelValues("acknack").Inc()
		return
	}
	mr.proxy.HighestNackCountReceived = a.Count
	mr.proxy.AckedChangesSet(a.ReaderSNState.Base - 1)
	mr.proxy.RequestedChangesSet(a.ReaderSNState.Members())
	mr.state = Repairing
	mr.nackReceivedAt = time.Now()
}

// Tick drains one round of pending work across all matched readers:
// heartbeat emission on the period timer, pushing unsent data, and
// responding to outstanding NACKs after the response delay. now is passed
// in explicitly so callers control the clock.
func (w *StatefulWriter) Tick(now time.Time, endian wire.Endianness) []Outbound {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []Outbound
	last, hasLast := w.Cache.MaxSeq()
	if !hasLast {
		last = rtps.SequenceNumberZero
	}

	if w.Reliability == Reliable && (w.lastHeartbeat.IsZero() || now.Sub(w.lastHeartbeat) >= w.HeartbeatPeriod) {
		for _, mr := range w.readers {
			if mr.state == Announcing || (mr.state == Waiting && len(mr.proxy.UnackedChanges(last)) > 0) {
				out = append(out, w.emitHeartbeat(mr, last, endian))
			}
		}
		w.lastHeartbeat = now
	}

	for _, mr := range w.readers {
		switch mr.state {
		case Pushing:
			progressed := false
			for {
				sn, ok := mr.proxy.NextUnsentChange(last)
				if !ok {
					break
				}
				out = append(out, w.emitOne(mr.proxy.RemoteGUID, sn, endian))
				progressed = true
			}
			if progressed || mr.proxy.HighestSent() >= last {
				mr.state = Waiting
			}
		case Repairing:
			if w.NackResponseDelay > 0 && now.Sub(mr.nackReceivedAt) < w.NackResponseDelay {
				continue
			}
			for mr.proxy.HasRequested() {
				sn, _ := mr.proxy.NextRequestedChange()
				out = append(out, w.emitOne(mr.proxy.RemoteGUID, sn, endian))
				retransmitsEmitted.WithLabelValues(mr.proxy.RemoteGUID.Entity.Kind.String()).Inc()
			}
			log.WithField("reader", mr.proxy.RemoteGUID).Debug("repair complete, returning to waiting")
			mr.state = Waiting
		}
	}
	return out
}

func (w *StatefulWriter) emitOne(remote guid.GUID, sn rtps.SequenceNumber, endian wire.Endianness) Outbound {
	mr := w.readers[remote]
	loc := primaryLocator(mr.proxy.UnicastLocators, mr.proxy.MulticastLocators)
	if change, ok := w.Cache.Get(sn); ok {
		d := wire.Data{
			ReaderId:   guid.EntityIdUnknown,
			WriterId:   w.GUID.Entity,
			WriterSN:   sn,
			HasPayload: true,
			Payload:    change.DataValue,
		}
		if len(change.InlineQos) > 0 || mr.proxy.ExpectsInlineQos {
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

func (w *StatefulWriter) emitHeartbeat(mr *matchedReader, last rtps.SequenceNumber, endian wire.Endianness) Outbound {
	first, hasFirst := w.Cache.MinSeq()
	if !hasFirst {
		first, last = 1, 0
	}
	w.heartbeatCount++
	mr.proxy.IncrementHeartbeatCount()
	hb := wire.Heartbeat{
		ReaderId:  guid.EntityIdUnknown,
		WriterId:  w.GUID.Entity,
		FirstSN:   first,
		LastSN:    last,
		Count:     w.heartbeatCount,
		FinalFlag: len(mr.proxy.UnackedChanges(last)) == 0,
	}
	loc := primaryLocator(mr.proxy.UnicastLocators, mr.proxy.MulticastLocators)
	return Outbound{Locator: loc, Submessage: wire.EncodeHeartbeat(hb, endian)}
}

func primaryLocator(unicast, multicast []rtps.Locator) rtps.Locator {
	if len(unicast) > 0 {
		return unicast[0]
	}
	if len(multicast) > 0 {
		return multicast[0]
	}
	return rtps.InvalidLocator
}
