package endpoint

import (
	"rtps-go/pkg/guid"
	"rtps-go/pkg/history"
	"rtps-go/pkg/rtps"
	"rtps-go/pkg/wire"
)

// StatelessReader accepts DATA whose reader id is UNKNOWN or matches its
// own, filters by writer identity, and inserts straight into its history
// cache with no proxy bookkeeping, per spec.md §4.D.
type StatelessReader struct {
	GUID  guid.GUID
	Cache *history.Cache

	// WriterFilter, if non-empty, restricts accepted writers to this set;
	// an empty filter accepts every writer.
	WriterFilter map[guid.GUID]struct{}

	// OnChange, if set, is invoked synchronously after every newly accepted
	// change is added to Cache. Built-in discovery readers (SPDP) have no
	// matched-proxy bookkeeping to hang a transition off of, so discovery
	// wires its announce/detect logic through this hook instead, per
	// spec.md §4.H's "on receiving a discovered-participant sample in the
	// SPDP reader's cache".
	OnChange func(rtps.CacheChange)
}

func NewStatelessReader(g guid.GUID, cache *history.Cache) *StatelessReader {
	return &StatelessReader{GUID: g, Cache: cache}
}

// AllowWriter adds a writer to the filter; once any writer is added the
// filter becomes exclusive.
func (r *StatelessReader) AllowWriter(w guid.GUID) {
	if r.WriterFilter == nil {
		r.WriterFilter = make(map[guid.GUID]struct{})
	}
	r.WriterFilter[w] = struct{}{}
}

func (r *StatelessReader) acceptsWriter(w guid.GUID) bool {
	if len(r.WriterFilter) == 0 {
		return true
	}
	_, ok := r.WriterFilter[w]
	return ok
}

// ReceiveDataFrom adapts ReceiveData to the receiver package's uniform
// ReaderSink shape, which addresses the remote writer by its full GUID.
func (r *StatelessReader) ReceiveDataFrom(writer guid.GUID, d wire.Data, reception rtps.Time) bool {
	return r.ReceiveData(writer.Prefix, d, reception)
}

// ReceiveGap is a no-op: a stateless reader keeps no writer proxy and so has
// nothing to mark irrelevant, per spec.md §4.D.
func (r *StatelessReader) ReceiveGap(guid.GUID, wire.Gap) {}

// ReceiveHeartbeat is a no-op for the same reason as ReceiveGap.
func (r *StatelessReader) ReceiveHeartbeat(guid.GUID, wire.Heartbeat) {}

// ReceiveData processes one inbound DATA addressed to (or broadcast to)
// this reader, returning whether it was accepted and inserted.
func (r *StatelessReader) ReceiveData(writerPrefix guid.GuidPrefix, d wire.Data, reception rtps.Time) bool {
	if d.ReaderId != guid.EntityIdUnknown && d.ReaderId != r.GUID.Entity {
		return false
	}
	writerGUID := guid.New(writerPrefix, d.WriterId)
	if !r.acceptsWriter(writerGUID) {
		return false
	}
	kind := rtps.ChangeAlive
	if d.PayloadIsKey {
		kind = rtps.ChangeNotAliveDisposed
	}
	change := rtps.CacheChange{
		Kind:           kind,
		WriterGUID:     writerGUID,
		SequenceNumber: d.WriterSN,
		DataValue:      d.Payload,
		InlineQos:      d.InlineQos,
		ReceptionTime:  reception,
		ViewState:      rtps.ViewStateNew,
		InstanceState:  rtps.InstanceStateForKind(kind),
	}
	r.Cache.Add(change)
	if r.OnChange != nil {
		r.OnChange(change)
	}
	return true
}
