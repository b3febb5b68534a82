// Package registry implements spec.md §4.I: a Participant owns an endpoint
// table keyed by local EntityId, dispenses new EntityIds, creates the
// built-in discovery endpoints at construction, and drives the
// heartbeat/deadline/liveliness/SPDP-announce periodic actions. This
// generalizes the teacher's Server (player table, nextPlayerID counter,
// updateLoop/sessionCleanupLoop tickers in source/server/server.go) from a
// game-session registry into an RTPS entity registry.
package registry

import (
	"sync"
	"time"

	"rtps-go/internal/config"
	"rtps-go/pkg/endpoint"
	"rtps-go/pkg/guid"
	"rtps-go/pkg/history"
	"rtps-go/pkg/proxy"
	"rtps-go/pkg/receiver"
	"rtps-go/pkg/rtps"
	"rtps-go/pkg/sender"
	"rtps-go/pkg/transport"
	"rtps-go/pkg/wire"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "registry")

// builtinEndpoints bundles the reader/writer pairs the SPDP/SEDP protocols
// need, matching the reserved EntityId pairs in pkg/guid.
type builtinEndpoints struct {
	SPDPWriter *endpoint.StatelessWriter
	SPDPReader *endpoint.StatelessReader

	SEDPPubWriter *endpoint.StatefulWriter
	SEDPPubReader *endpoint.StatefulReader
	SEDPSubWriter *endpoint.StatefulWriter
	SEDPSubReader *endpoint.StatefulReader
	SEDPTopWriter *endpoint.StatefulWriter
	SEDPTopReader *endpoint.StatefulReader
}

// Participant is the entity table and timer driver for one RTPS
// participant. It implements receiver.Registry so pkg/receiver can route
// inbound submessages to it without importing this package.
type Participant struct {
	mu sync.RWMutex

	Config    config.Config
	GUID      guid.GUID
	transport transport.Transport
	sender    *sender.MessageSender
	receiver  *receiver.MessageReceiver

	readers map[guid.EntityId]receiver.ReaderSink
	writers map[guid.EntityId]receiver.WriterSink

	statelessReaders map[guid.EntityId]*endpoint.StatelessReader
	statelessWriters map[guid.EntityId]*endpoint.StatelessWriter
	statefulReaders  map[guid.EntityId]*endpoint.StatefulReader
	statefulWriters  map[guid.EntityId]*endpoint.StatefulWriter

	nextKey [3]byte

	Builtin builtinEndpoints

	onSPDPAnnounce func()
	onLeaseSweep   func(leaseDuration time.Duration)
}

// SetSPDPAnnounceHook installs the callback Run's spdpAnnounceLoop invokes
// on each tick. pkg/discovery/spdp registers this after construction, since
// Participant cannot import pkg/discovery without a cycle (discovery needs
// the entity table this package owns).
func (p *Participant) SetSPDPAnnounceHook(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onSPDPAnnounce = fn
}

// SetLeaseSweepHook installs the callback Run's leaseExpiryLoop invokes on
// each tick, passed the configured lease duration.
func (p *Participant) SetLeaseSweepHook(fn func(time.Duration)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onLeaseSweep = fn
}

// Sender returns the MessageSender this participant flushes outbound
// submessages through, for discovery announce paths to enqueue onto
// directly.
func (p *Participant) Sender() *sender.MessageSender {
	return p.sender
}

// New constructs a Participant from cfg, binds its transport-facing pieces,
// and creates the built-in SPDP/SEDP endpoints every participant carries
// per spec.md §4.H/§4.I.
func New(cfg config.Config, t transport.Transport) *Participant {
	header := wire.Header{
		Version: wire.ProtocolVersion24,
		Vendor:  wire.VendorIdThisImplementation,
		Prefix:  cfg.GuidPrefix,
	}
	p := &Participant{
		Config:           cfg,
		GUID:             guid.New(cfg.GuidPrefix, guid.EntityIdParticipant),
		transport:        t,
		sender:           sender.New(t, header, wire.LittleEndian),
		readers:          make(map[guid.EntityId]receiver.ReaderSink),
		writers:          make(map[guid.EntityId]receiver.WriterSink),
		statelessReaders: make(map[guid.EntityId]*endpoint.StatelessReader),
		statelessWriters: make(map[guid.EntityId]*endpoint.StatelessWriter),
		statefulReaders:  make(map[guid.EntityId]*endpoint.StatefulReader),
		statefulWriters:  make(map[guid.EntityId]*endpoint.StatefulWriter),
	}
	p.receiver = receiver.New(p)
	p.createBuiltins()
	if err := t.JoinMulticast(rtps.MetatrafficMulticastLocator(cfg.DomainID)); err != nil {
		log.WithError(err).Warn("failed to join metatraffic multicast group, SPDP discovery will be unicast-only")
	}
	return p
}

// LocalPrefix implements receiver.Registry.
func (p *Participant) LocalPrefix() guid.GuidPrefix {
	return p.Config.GuidPrefix
}

// ReaderByEntity implements receiver.Registry.
func (p *Participant) ReaderByEntity(id guid.EntityId) (receiver.ReaderSink, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.readers[id]
	return s, ok
}

// AllReaders implements receiver.Registry.
func (p *Participant) AllReaders() []receiver.ReaderSink {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]receiver.ReaderSink, 0, len(p.readers))
	for _, s := range p.readers {
		out = append(out, s)
	}
	return out
}

// WriterByEntity implements receiver.Registry.
func (p *Participant) WriterByEntity(id guid.EntityId) (receiver.WriterSink, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.writers[id]
	return s, ok
}

// Receiver returns the MessageReceiver wired to this Participant's entity
// table, for a transport read loop to feed decoded messages into.
func (p *Participant) Receiver() *receiver.MessageReceiver {
	return p.receiver
}

// nextEntityId dispenses a monotonic 3-octet key for kind, per spec.md
// §4.I ("the registry dispenses new EntityIds: monotonic 3-octet key per
// kind"). A single shared counter is used across kinds, matching the
// teacher's single nextPlayerID counter rather than one counter per packet
// type — user-defined entities don't need kind-partitioned numbering to
// stay unique.
func (p *Participant) nextEntityId(kind guid.EntityKind) guid.EntityId {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := guid.EntityId{Key: p.nextKey, Kind: kind}
	for i := 2; i >= 0; i-- {
		p.nextKey[i]++
		if p.nextKey[i] != 0 {
			break
		}
	}
	return id
}

// AddStatefulWriter registers w under a freshly dispensed EntityId and
// returns it.
func (p *Participant) AddStatefulWriter(kind guid.EntityKind, reliability endpoint.Reliability, pushMode bool, cache *history.Cache) *endpoint.StatefulWriter {
	id := p.nextEntityId(kind)
	w := endpoint.NewStatefulWriter(guid.New(p.Config.GuidPrefix, id), reliability, pushMode, cache, p.Config.HeartbeatPeriod, p.Config.NackResponseDelay)
	p.mu.Lock()
	p.statefulWriters[id] = w
	p.writers[id] = w
	p.mu.Unlock()
	return w
}

// AddStatefulReader registers r under a freshly dispensed EntityId and
// returns it.
func (p *Participant) AddStatefulReader(kind guid.EntityKind, reliability endpoint.Reliability, cache *history.Cache) *endpoint.StatefulReader {
	id := p.nextEntityId(kind)
	r := endpoint.NewStatefulReader(guid.New(p.Config.GuidPrefix, id), reliability, cache, p.Config.NackResponseDelay)
	p.mu.Lock()
	p.statefulReaders[id] = r
	p.readers[id] = r
	p.mu.Unlock()
	return r
}

// AddStatelessWriter registers w under a freshly dispensed EntityId and
// returns it.
func (p *Participant) AddStatelessWriter(kind guid.EntityKind, reliability endpoint.Reliability, cache *history.Cache) *endpoint.StatelessWriter {
	id := p.nextEntityId(kind)
	w := endpoint.NewStatelessWriter(guid.New(p.Config.GuidPrefix, id), reliability, cache)
	p.mu.Lock()
	p.statelessWriters[id] = w
	p.writers[id] = w
	p.mu.Unlock()
	return w
}

// AddStatelessReader registers r under a freshly dispensed EntityId and
// returns it.
func (p *Participant) AddStatelessReader(kind guid.EntityKind, cache *history.Cache) *endpoint.StatelessReader {
	id := p.nextEntityId(kind)
	r := endpoint.NewStatelessReader(guid.New(p.Config.GuidPrefix, id), cache)
	p.mu.Lock()
	p.statelessReaders[id] = r
	p.readers[id] = r
	p.mu.Unlock()
	return r
}

// registerBuiltin installs a reader/writer pair under one of the reserved
// EntityId pairs from pkg/guid, bypassing nextEntityId since built-in ids
// are fixed by the protocol rather than dispensed.
func (p *Participant) registerBuiltinWriter(id guid.EntityId, w *endpoint.StatefulWriter) {
	p.writers[id] = w
	p.statefulWriters[id] = w
}

func (p *Participant) registerBuiltinReader(id guid.EntityId, r *endpoint.StatefulReader) {
	p.readers[id] = r
	p.statefulReaders[id] = r
}

// registerBuiltinStatelessWriter/Reader mirror registerBuiltinWriter/Reader
// for the SPDP pair: a stateless writer/reader has no remote identity to
// match up front, which is exactly the bootstrap problem SPDP has to solve
// (a participant cannot pre-match proxies for peers it hasn't discovered
// yet), so SPDP rides the ReaderLocator/no-proxy path of spec.md §4.D
// instead of §4.E's matched-proxy machinery SEDP uses.
func (p *Participant) registerBuiltinStatelessWriter(id guid.EntityId, w *endpoint.StatelessWriter) {
	p.writers[id] = w
	p.statelessWriters[id] = w
}

func (p *Participant) registerBuiltinStatelessReader(id guid.EntityId, r *endpoint.StatelessReader) {
	p.readers[id] = r
	p.statelessReaders[id] = r
}

// createBuiltins wires up the SPDP participant-discovery and SEDP
// publications/subscriptions/topics endpoint pairs every participant
// carries, best-effort for SPDP (spec.md §4.H treats discovery samples as
// best-effort, periodically-refreshed state) and reliable for SEDP.
func (p *Participant) createBuiltins() {
	g := p.Config.GuidPrefix

	spdpCache := history.New()
	p.Builtin.SPDPWriter = endpoint.NewStatelessWriter(guid.New(g, guid.EntityIdSPDPBuiltinParticipantWriter), endpoint.BestEffort, spdpCache)
	p.Builtin.SPDPWriter.AddReaderLocator(proxy.NewReaderLocator(rtps.MetatrafficMulticastLocator(p.Config.DomainID), false))
	p.Builtin.SPDPReader = endpoint.NewStatelessReader(guid.New(g, guid.EntityIdSPDPBuiltinParticipantReader), spdpCache)
	p.registerBuiltinStatelessWriter(guid.EntityIdSPDPBuiltinParticipantWriter, p.Builtin.SPDPWriter)
	p.registerBuiltinStatelessReader(guid.EntityIdSPDPBuiltinParticipantReader, p.Builtin.SPDPReader)

	pubCache, subCache, topCache := history.New(), history.New(), history.New()
	p.Builtin.SEDPPubWriter = endpoint.NewStatefulWriter(guid.New(g, guid.EntityIdSEDPBuiltinPublicationsWriter), endpoint.Reliable, true, pubCache, p.Config.HeartbeatPeriod, p.Config.NackResponseDelay)
	p.Builtin.SEDPPubReader = endpoint.NewStatefulReader(guid.New(g, guid.EntityIdSEDPBuiltinPublicationsReader), endpoint.Reliable, pubCache, p.Config.NackResponseDelay)
	p.Builtin.SEDPSubWriter = endpoint.NewStatefulWriter(guid.New(g, guid.EntityIdSEDPBuiltinSubscriptionsWriter), endpoint.Reliable, true, subCache, p.Config.HeartbeatPeriod, p.Config.NackResponseDelay)
	p.Builtin.SEDPSubReader = endpoint.NewStatefulReader(guid.New(g, guid.EntityIdSEDPBuiltinSubscriptionsReader), endpoint.Reliable, subCache, p.Config.NackResponseDelay)
	p.Builtin.SEDPTopWriter = endpoint.NewStatefulWriter(guid.New(g, guid.EntityIdSEDPBuiltinTopicsWriter), endpoint.Reliable, true, topCache, p.Config.HeartbeatPeriod, p.Config.NackResponseDelay)
	p.Builtin.SEDPTopReader = endpoint.NewStatefulReader(guid.New(g, guid.EntityIdSEDPBuiltinTopicsReader), endpoint.Reliable, topCache, p.Config.NackResponseDelay)

	p.registerBuiltinWriter(guid.EntityIdSEDPBuiltinPublicationsWriter, p.Builtin.SEDPPubWriter)
	p.registerBuiltinReader(guid.EntityIdSEDPBuiltinPublicationsReader, p.Builtin.SEDPPubReader)
	p.registerBuiltinWriter(guid.EntityIdSEDPBuiltinSubscriptionsWriter, p.Builtin.SEDPSubWriter)
	p.registerBuiltinReader(guid.EntityIdSEDPBuiltinSubscriptionsReader, p.Builtin.SEDPSubReader)
	p.registerBuiltinWriter(guid.EntityIdSEDPBuiltinTopicsWriter, p.Builtin.SEDPTopWriter)
	p.registerBuiltinReader(guid.EntityIdSEDPBuiltinTopicsReader, p.Builtin.SEDPTopReader)

	log.WithField("guid", p.GUID).Debug("built-in discovery endpoints created")
}

// StatefulWriters returns every registered stateful writer, for the tick
// loop to drive.
func (p *Participant) StatefulWriters() []*endpoint.StatefulWriter {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*endpoint.StatefulWriter, 0, len(p.statefulWriters))
	for _, w := range p.statefulWriters {
		out = append(out, w)
	}
	return out
}

// StatefulReaders returns every registered stateful reader, for the tick
// loop to drive.
func (p *Participant) StatefulReaders() []*endpoint.StatefulReader {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*endpoint.StatefulReader, 0, len(p.statefulReaders))
	for _, r := range p.statefulReaders {
		out = append(out, r)
	}
	return out
}

// StatelessWriters returns every registered stateless writer, for the tick
// loop to drive.
func (p *Participant) StatelessWriters() []*endpoint.StatelessWriter {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*endpoint.StatelessWriter, 0, len(p.statelessWriters))
	for _, w := range p.statelessWriters {
		out = append(out, w)
	}
	return out
}

// MetatrafficUnicastLocator is this participant's receive locator for
// metatraffic (discovery) datagrams.
func (p *Participant) MetatrafficUnicastLocator() rtps.Locator {
	return p.transport.LocalLocator()
}
