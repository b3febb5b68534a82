package spdp

import (
	"sync"
	"time"

	"rtps-go/internal/metrics"
	"rtps-go/pkg/endpoint"
	"rtps-go/pkg/guid"
	"rtps-go/pkg/proxy"
	"rtps-go/pkg/registry"
	"rtps-go/pkg/rtps"
	"rtps-go/pkg/wire"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "spdp")

var (
	samplesAnnounced = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "spdp",
		Name:      "samples_announced_total",
		Help:      "DiscoveredParticipantData samples this participant has announced.",
	})

	proxiesMatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "spdp",
		Name:      "sedp_proxies_matched_total",
		Help:      "SEDP reader/writer proxies added from a discovered participant, by proxy role.",
	}, []string{"role"})

	leasesExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "spdp",
		Name:      "leases_expired_total",
		Help:      "Discovered participants torn down for missing their SPDP lease refresh.",
	})
)

func init() {
	prometheus.MustRegister(samplesAnnounced, proxiesMatched, leasesExpired)
}

// Announcer builds this participant's DiscoveredParticipantData sample and
// enqueues it on the SPDP built-in writer's cache, per spec.md §4.H/§4.I.
type Announcer struct {
	p *registry.Participant

	mu  sync.Mutex
	seq rtps.SequenceNumber
}

// NewAnnouncer constructs an Announcer for p. Install it with
// p.SetSPDPAnnounceHook(a.Announce) so the registry's announce timer drives
// it.
func NewAnnouncer(p *registry.Participant) *Announcer {
	return &Announcer{p: p}
}

// Announce builds and enqueues a fresh sample describing the local
// participant, advertising every built-in endpoint (pkg/registry always
// constructs the full SPDP+SEDP set).
func (a *Announcer) Announce() {
	a.mu.Lock()
	a.seq++
	seq := a.seq
	a.mu.Unlock()

	unicast := a.p.MetatrafficUnicastLocator()
	data := ParticipantData{
		DomainID:                     a.p.Config.DomainID,
		DomainTag:                    a.p.Config.DomainTag,
		ProtocolVersion:              wire.ProtocolVersion24,
		VendorID:                     wire.VendorIdThisImplementation,
		MetatrafficUnicastLocator:    unicast,
		MetatrafficMulticastLocator:  rtps.MetatrafficMulticastLocator(a.p.Config.DomainID),
		DefaultUnicastLocator:        unicast,
		DefaultMulticastLocator:      rtps.InvalidLocator,
		BuiltinEndpointSet:           AllBuiltinEndpoints,
		ParticipantLeaseDuration:     rtps.NewDuration(int32(a.p.Config.ParticipantLeaseDuration/time.Second), 0),
	}

	a.p.Builtin.SPDPWriter.Cache.Add(rtps.CacheChange{
		Kind:           rtps.ChangeAlive,
		WriterGUID:     a.p.Builtin.SPDPWriter.GUID,
		SequenceNumber: seq,
		DataValue:      EncodeParticipantData(data),
	})
	samplesAnnounced.Inc()
	log.WithField("seq", seq).Debug("SPDP sample announced")
}

// sedpPair is one of the three SEDP announcer/detector endpoint pairs a
// discovered participant may advertise.
type sedpPair struct {
	writerBit, readerBit guid.BuiltinEndpointBit
	writerID, readerID   guid.EntityId
	localDetector        *endpoint.StatefulReader
	localAnnouncer       *endpoint.StatefulWriter
}

// Detector processes samples landing in the SPDP built-in reader's cache,
// matching or tearing down SEDP proxies per spec.md §4.H, and tracks each
// discovered participant's last-seen time for lease expiry.
type Detector struct {
	p *registry.Participant

	mu       sync.Mutex
	lastSeen map[guid.GuidPrefix]time.Time
}

// NewDetector constructs a Detector wired to p's SPDP built-in reader;
// construction installs the reader's OnChange hook. Also register
// d.SweepExpiredLeases as p's lease-sweep hook.
func NewDetector(p *registry.Participant) *Detector {
	d := &Detector{p: p, lastSeen: make(map[guid.GuidPrefix]time.Time)}
	p.Builtin.SPDPReader.OnChange = d.handle
	return d
}

func (d *Detector) pairs() [3]sedpPair {
	b := d.p.Builtin
	return [3]sedpPair{
		{guid.BuiltinEndpointPublicationsAnnouncer, guid.BuiltinEndpointPublicationsDetector,
			guid.EntityIdSEDPBuiltinPublicationsWriter, guid.EntityIdSEDPBuiltinPublicationsReader,
			b.SEDPPubReader, b.SEDPPubWriter},
		{guid.BuiltinEndpointSubscriptionsAnnouncer, guid.BuiltinEndpointSubscriptionsDetector,
			guid.EntityIdSEDPBuiltinSubscriptionsWriter, guid.EntityIdSEDPBuiltinSubscriptionsReader,
			b.SEDPSubReader, b.SEDPSubWriter},
		{guid.BuiltinEndpointTopicsAnnouncer, guid.BuiltinEndpointTopicsDetector,
			guid.EntityIdSEDPBuiltinTopicsWriter, guid.EntityIdSEDPBuiltinTopicsReader,
			b.SEDPTopReader, b.SEDPTopWriter},
	}
}

// handle is the SPDP built-in reader's OnChange hook.
func (d *Detector) handle(change rtps.CacheChange) {
	remote := change.WriterGUID.Prefix
	if remote == d.p.Config.GuidPrefix {
		return // our own announcement looped back via multicast
	}

	if change.Kind == rtps.ChangeNotAliveDisposed {
		d.forget(remote)
		return
	}

	data, err := DecodeParticipantData(change.DataValue)
	if err != nil {
		log.WithError(err).Debug("malformed SPDP sample, discarding")
		return
	}
	if data.DomainID != d.p.Config.DomainID || data.DomainTag != d.p.Config.DomainTag {
		return
	}

	d.mu.Lock()
	d.lastSeen[remote] = time.Now()
	d.mu.Unlock()

	d.matchProxies(remote, data)
}

// matchProxies adds, for each advertised built-in endpoint, the
// corresponding proxy to the local SEDP endpoints: readers add writer
// proxies, writers add reader proxies, per spec.md §4.H. A remote already
// matched is left alone so a repeat announcement doesn't reset its
// WriterProxy/ReaderProxy bookkeeping.
func (d *Detector) matchProxies(remote guid.GuidPrefix, data ParticipantData) {
	var unicast, multicast []rtps.Locator
	if !data.MetatrafficUnicastLocator.IsInvalid() {
		unicast = []rtps.Locator{data.MetatrafficUnicastLocator}
	}
	if !data.MetatrafficMulticastLocator.IsInvalid() {
		multicast = []rtps.Locator{data.MetatrafficMulticastLocator}
	}

	for _, pair := range d.pairs() {
		if data.BuiltinEndpointSet&pair.writerBit != 0 {
			remoteWriter := guid.New(remote, pair.writerID)
			if _, ok := pair.localDetector.WriterProxyFor(remoteWriter); !ok {
				pair.localDetector.MatchWriter(proxy.NewWriterProxy(remoteWriter, unicast, multicast))
				proxiesMatched.WithLabelValues("writer").Inc()
			}
		}
		if data.BuiltinEndpointSet&pair.readerBit != 0 {
			remoteReader := guid.New(remote, pair.readerID)
			if _, ok := pair.localAnnouncer.ReaderProxyFor(remoteReader); !ok {
				pair.localAnnouncer.MatchReader(proxy.NewReaderProxy(remoteReader, unicast, multicast, false))
				proxiesMatched.WithLabelValues("reader").Inc()
			}
		}
	}

	log.WithFields(logrus.Fields{"remote": remote, "endpoints": data.BuiltinEndpointSet}).Debug("matched SEDP proxies for discovered participant")
}

// forget tears down every SEDP proxy matched for remote, per spec.md
// §4.H's NotAliveDisposed handling and SPEC_FULL.md's lease-expiry
// supplement.
func (d *Detector) forget(remote guid.GuidPrefix) {
	d.mu.Lock()
	delete(d.lastSeen, remote)
	d.mu.Unlock()

	for _, pair := range d.pairs() {
		pair.localDetector.UnmatchWriter(guid.New(remote, pair.writerID))
		pair.localAnnouncer.UnmatchReader(guid.New(remote, pair.readerID))
	}
	log.WithField("remote", remote).Debug("forgot discovered participant")
}

// SweepExpiredLeases tears down every discovered participant from which no
// refreshing SPDP sample arrived within leaseDuration, as if it had sent
// NotAliveDisposed. Install as p's lease-sweep hook via
// p.SetLeaseSweepHook(d.SweepExpiredLeases).
func (d *Detector) SweepExpiredLeases(leaseDuration time.Duration) {
	now := time.Now()
	d.mu.Lock()
	var expired []guid.GuidPrefix
	for remote, seen := range d.lastSeen {
		if now.Sub(seen) > leaseDuration {
			expired = append(expired, remote)
		}
	}
	d.mu.Unlock()

	for _, remote := range expired {
		log.WithField("remote", remote).Info("SPDP lease expired, tearing down SEDP proxies")
		d.forget(remote)
		leasesExpired.Inc()
	}
}
