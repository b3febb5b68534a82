package endpoint

import (
	"sort"
	"sync"
	"time"

	"rtps-go/pkg/guid"
	"rtps-go/pkg/history"
	"rtps-go/pkg/proxy"
	"rtps-go/pkg/rtps"
	"rtps-go/pkg/wire"
)

type matchedWriter struct {
	proxy           *proxy.WriterProxy
	mustSendAck     bool
	heartbeatSeenAt time.Time
	lastActivityAt  time.Time
	livelinessLost  bool
}

// StatefulReader matches a set of WriterProxies and drives each through the
// received/lost/missing bookkeeping of spec.md §4.E, surfacing an ACKNACK
// once per matched writer after heartbeat_response_delay.
type StatefulReader struct {
	mu sync.Mutex

	GUID                   guid.GUID
	Reliability            Reliability
	Cache                  *history.Cache
	HeartbeatResponseDelay time.Duration

	// Deadline and LivelinessLeaseDuration are zero ("disabled") until a
	// discovery layer (pkg/discovery/sedp) populates them from the
	// matched topic's QoS. Listener, if set, is notified on the
	// not-missed -> missed edge of either check.
	Deadline                time.Duration
	LivelinessLeaseDuration time.Duration
	Listener                Listener

	writers map[guid.GUID]*matchedWriter

	lastSample          time.Time
	deadlineMissed      bool
	deadlineMissedCount uint32

	livelinessChangedCount uint32

	// OnChange, if set, is invoked synchronously after every newly inserted
	// cache change. SEDP's endpoint-discovery matching hangs off this, the
	// stateful counterpart of StatelessReader.OnChange.
	OnChange func(rtps.CacheChange)
}

func NewStatefulReader(g guid.GUID, reliability Reliability, cache *history.Cache, heartbeatResponseDelay time.Duration) *StatefulReader {
	return &StatefulReader{
		GUID:                   g,
		Reliability:            reliability,
		Cache:                  cache,
		HeartbeatResponseDelay: heartbeatResponseDelay,
		writers:                make(map[guid.GUID]*matchedWriter),
	}
}

func (r *StatefulReader) MatchWriter(wp *proxy.WriterProxy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writers[wp.RemoteGUID] = &matchedWriter{proxy: wp}
}

func (r *StatefulReader) UnmatchWriter(remote guid.GUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.writers, remote)
}

// WriterProxyFor returns the WriterProxy matched for remote, if any.
func (r *StatefulReader) WriterProxyFor(remote guid.GUID) (*proxy.WriterProxy, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mw, ok := r.writers[remote]
	if !ok {
		return nil, false
	}
	return mw.proxy, true
}

// ReceiveData implements the reliable path's "received_change_set(n); add to
// cache" and the best-effort path's "if n > highest_processed then accept
// else drop", selected by r.Reliability, per spec.md §4.E.
// ReceiveDataFrom adapts ReceiveData to the receiver package's uniform
// ReaderSink shape.
func (r *StatefulReader) ReceiveDataFrom(remote guid.GUID, d wire.Data, reception rtps.Time) bool {
	return r.ReceiveData(remote, d, reception)
}

func (r *StatefulReader) ReceiveData(remote guid.GUID, d wire.Data, reception rtps.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	mw, ok := r.writers[remote]
	if !ok {
		return false
	}

	mw.lastActivityAt = time.Now()

	if r.Reliability == BestEffort {
		if d.WriterSN <= mw.proxy.HighestProcessed() {
			return false
		}
		mw.proxy.ReceivedChangeSet(d.WriterSN)
		r.insert(remote, d, reception)
		return true
	}

	mw.proxy.ReceivedChangeSet(d.WriterSN)
	r.insert(remote, d, reception)
	return true
}

func (r *StatefulReader) insert(remote guid.GUID, d wire.Data, reception rtps.Time) {
	kind := rtps.ChangeAlive
	if d.PayloadIsKey {
		kind = rtps.ChangeNotAliveDisposed
	}
	change := rtps.CacheChange{
		Kind:           kind,
		WriterGUID:     remote,
		SequenceNumber: d.WriterSN,
		DataValue:      d.Payload,
		InlineQos:      d.InlineQos,
		ReceptionTime:  reception,
		ViewState:      rtps.ViewStateNew,
		InstanceState:  rtps.InstanceStateForKind(kind),
	}
	r.Cache.Add(change)
	r.lastSample = time.Now()
	r.deadlineMissed = false
	if r.OnChange != nil {
		r.OnChange(change)
	}
}

// ReceiveGap folds an inbound GAP into the matched WriterProxy: every
// sequence number it marks irrelevant is received_change_set without a
// cache insertion, per spec.md §4.E.
func (r *StatefulReader) ReceiveGap(remote guid.GUID, g wire.Gap) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mw, ok := r.writers[remote]
	if !ok {
		return
	}
	for _, sn := range g.Irrelevant() {
		mw.proxy.ReceivedChangeSet(sn)
	}
}

// ReceiveHeartbeat implements spec.md §4.E's heartbeat handling: stale
// counts are dropped, otherwise lost/missing bounds are updated and
// must_send_ack is armed unless the final flag is set.
func (r *StatefulReader) ReceiveHeartbeat(remote guid.GUID, h wire.Heartbeat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mw, ok := r.writers[remote]
	if !ok {
		return
	}
	if !proxy.CountGreater(h.Count, mw.proxy.HighestHeartbeatCountReceived) {
		staleCountsDropped.WithLabelValues("heartbeat").Inc()
		return
	}
	mw.proxy.HighestHeartbeatCountReceived = h.Count
	mw.proxy.LostChangesUpdate(h.FirstSN)
	mw.proxy.MissingChangesUpdate(h.LastSN)
	mw.mustSendAck = !h.FinalFlag
	mw.heartbeatSeenAt = time.Now()
	mw.lastActivityAt = mw.heartbeatSeenAt
	mw.livelinessLost = false
}

// CheckDeadline raises RequestedDeadlineMissed if no sample has been
// received within Deadline of the last one, per spec.md §4.I. A Deadline
// of zero disables the check. now is passed in explicitly so callers
// control the clock.
func (r *StatefulReader) CheckDeadline(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Deadline <= 0 {
		return
	}
	if r.lastSample.IsZero() {
		r.lastSample = now
		return
	}
	if now.Sub(r.lastSample) <= r.Deadline {
		return
	}
	if r.deadlineMissed {
		return
	}
	r.deadlineMissed = true
	r.deadlineMissedCount++
	statusTransitions.WithLabelValues(RequestedDeadlineMissed.String()).Inc()
	notify(r.Listener, StatusChange{Kind: RequestedDeadlineMissed, Count: r.deadlineMissedCount})
}

// CheckLiveliness raises LivelinessChanged if a matched writer has gone
// silent (no data or heartbeat) for longer than LivelinessLeaseDuration,
// per spec.md §4.I. A lease duration of zero disables the check.
func (r *StatefulReader) CheckLiveliness(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LivelinessLeaseDuration <= 0 {
		return
	}
	for _, mw := range r.writers {
		if mw.lastActivityAt.IsZero() {
			mw.lastActivityAt = now
			continue
		}
		if now.Sub(mw.lastActivityAt) <= r.LivelinessLeaseDuration {
			continue
		}
		if mw.livelinessLost {
			continue
		}
		mw.livelinessLost = true
		r.livelinessChangedCount++
		statusTransitions.WithLabelValues(LivelinessChanged.String()).Inc()
		notify(r.Listener, StatusChange{Kind: LivelinessChanged, Count: r.livelinessChangedCount})
	}
}

// DeadlineMissedCount returns the cumulative count of RequestedDeadlineMissed
// transitions.
func (r *StatefulReader) DeadlineMissedCount() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deadlineMissedCount
}

// LivelinessChangedCount returns the cumulative count of LivelinessChanged
// transitions.
func (r *StatefulReader) LivelinessChangedCount() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.livelinessChangedCount
}

// Tick emits one ACKNACK per matched writer whose must_send_ack is armed
// and whose response delay has elapsed, per spec.md §4.E.
func (r *StatefulReader) Tick(now time.Time, endian wire.Endianness) []Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Outbound
	for remote, mw := range r.writers {
		if !mw.mustSendAck {
			continue
		}
		if now.Sub(mw.heartbeatSeenAt) < r.HeartbeatResponseDelay {
			continue
		}
		missing := mw.proxy.Missing()
		unknown := mw.proxy.UnknownBelow(mw.proxy.HighestProcessed())
		members := unionSorted(missing, unknown)
		base := mw.proxy.AvailableChangesMax() + 1
		set := rtps.NewSequenceNumberSet(base, members)
		a := wire.AckNack{
			ReaderId:      r.GUID.Entity,
			WriterId:      remote.Entity,
			ReaderSNState: set,
			Count:         mw.proxy.IncrementAckNackCount(),
			FinalFlag:     len(members) == 0,
		}
		loc := primaryLocator(mw.proxy.UnicastLocators, mw.proxy.MulticastLocators)
		out = append(out, Outbound{Locator: loc, Submessage: wire.EncodeAckNack(a, endian)})
		mw.mustSendAck = false
	}
	return out
}

func unionSorted(a, b []rtps.SequenceNumber) []rtps.SequenceNumber {
	seen := make(map[rtps.SequenceNumber]struct{}, len(a)+len(b))
	var out []rtps.SequenceNumber
	for _, sn := range a {
		if _, dup := seen[sn]; !dup {
			seen[sn] = struct{}{}
			out = append(out, sn)
		}
	}
	for _, sn := range b {
		if _, dup := seen[sn]; !dup {
			seen[sn] = struct{}{}
			out = append(out, sn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
