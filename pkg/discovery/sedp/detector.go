package sedp

import (
	"sync"

	"rtps-go/internal/metrics"
	"rtps-go/pkg/endpoint"
	"rtps-go/pkg/guid"
	"rtps-go/pkg/history"
	"rtps-go/pkg/registry"
	"rtps-go/pkg/rtps"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "sedp")

var (
	endpointsAnnounced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "sedp",
		Name:      "endpoints_announced_total",
		Help:      "DiscoveredWriterData/DiscoveredReaderData samples announced, by role.",
	}, []string{"role"})

	topicsMatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "sedp",
		Name:      "topic_matches_total",
		Help:      "Remote endpoints matched against a locally registered endpoint sharing a topic.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(endpointsAnnounced, topicsMatched)
}

// localEndpoint is what Announcer tracks for one locally registered writer
// or reader: the topic/type/QoS metadata pkg/registry's generic
// AddStatefulWriter/AddStatefulReader don't carry, plus enough identity to
// build an EndpointData sample and to notify user code of a match.
type localEndpoint struct {
	guid      guid.GUID
	topicName string
	typeName  string
	qos       QoS
	isWriter  bool
	onMatch   func(remote EndpointData)
}

// Announcer tracks this participant's topic-bearing endpoints and
// publishes DiscoveredWriterData/DiscoveredReaderData samples for them on
// the SEDP built-in writers, and matches inbound remote endpoint data
// against them.
//
// pkg/registry's AddStatefulWriter/AddStatefulReader dispense a GUID and
// wire transport plumbing but know nothing of topics; RegisterWriter and
// RegisterReader are how a topic-aware caller (e.g. a publisher/subscriber
// facade built on top of pkg/registry) supplies that metadata.
type Announcer struct {
	p *registry.Participant

	mu        sync.Mutex
	seq       rtps.SequenceNumber
	endpoints map[guid.GUID]*localEndpoint
}

// NewAnnouncer constructs an Announcer for p.
func NewAnnouncer(p *registry.Participant) *Announcer {
	return &Announcer{p: p, endpoints: make(map[guid.GUID]*localEndpoint)}
}

// RegisterWriter records topic/type/QoS metadata for a local writer
// previously created with p.AddStatefulWriter, announces it once on the
// SEDP publications writer, arms onMatch to fire whenever a remote reader
// on the same topic with compatible QoS is discovered, and feeds qos's
// Deadline/Liveliness into w's deadline and liveliness checks. onMatch may
// be nil.
func (a *Announcer) RegisterWriter(w *endpoint.StatefulWriter, topicName, typeName string, qos QoS, onMatch func(remote EndpointData)) {
	w.Deadline = qos.Deadline.AsStdDuration()
	w.LivelinessLeaseDuration = qos.Liveliness.LeaseDuration.AsStdDuration()
	a.register(&localEndpoint{guid: w.GUID, topicName: topicName, typeName: typeName, qos: qos, isWriter: true, onMatch: onMatch})
	a.announce(a.p.Builtin.SEDPPubWriter.GUID, a.p.Builtin.SEDPPubWriter.Cache, w.GUID, topicName, typeName, qos)
	endpointsAnnounced.WithLabelValues("writer").Inc()
}

// RegisterReader records topic/type/QoS metadata for a local reader
// previously created with p.AddStatefulReader, announces it once on the
// SEDP subscriptions writer, arms onMatch to fire whenever a remote writer
// on the same topic with compatible QoS is discovered, and feeds qos's
// Deadline/Liveliness into r's deadline and liveliness checks. onMatch may
// be nil.
func (a *Announcer) RegisterReader(r *endpoint.StatefulReader, topicName, typeName string, qos QoS, onMatch func(remote EndpointData)) {
	r.Deadline = qos.Deadline.AsStdDuration()
	r.LivelinessLeaseDuration = qos.Liveliness.LeaseDuration.AsStdDuration()
	a.register(&localEndpoint{guid: r.GUID, topicName: topicName, typeName: typeName, qos: qos, isWriter: false, onMatch: onMatch})
	a.announce(a.p.Builtin.SEDPSubWriter.GUID, a.p.Builtin.SEDPSubWriter.Cache, r.GUID, topicName, typeName, qos)
	endpointsAnnounced.WithLabelValues("reader").Inc()
}

func (a *Announcer) register(le *localEndpoint) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.endpoints[le.guid] = le
}

// announce encodes g's EndpointData and enqueues it on the owning SEDP
// built-in writer's cache (writerGUID, cache), advertising this
// participant's metatraffic unicast locator as the endpoint's locator
// since this implementation multiplexes all traffic over one socket.
func (a *Announcer) announce(writerGUID guid.GUID, cache *history.Cache, g guid.GUID, topicName, typeName string, qos QoS) {
	a.mu.Lock()
	a.seq++
	seq := a.seq
	a.mu.Unlock()

	data := EndpointData{
		EndpointGUID:    g,
		TopicName:       topicName,
		TypeName:        typeName,
		UnicastLocators: []rtps.Locator{a.p.MetatrafficUnicastLocator()},
		QoS:             qos,
	}
	cache.Add(rtps.CacheChange{
		Kind:           rtps.ChangeAlive,
		WriterGUID:     writerGUID,
		SequenceNumber: seq,
		DataValue:      EncodeEndpointData(data),
	})
}

// localEndpointsSnapshot returns a copy of the currently registered
// endpoints, safe to range over without holding a.mu.
func (a *Announcer) localEndpointsSnapshot() []*localEndpoint {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*localEndpoint, 0, len(a.endpoints))
	for _, le := range a.endpoints {
		out = append(out, le)
	}
	return out
}

// Detector processes samples landing in the SEDP built-in readers'
// caches, matching each against locally registered endpoints sharing a
// topic name, type name, and compatible QoS per SPEC_FULL.md's
// compatibility rule.
type Detector struct {
	a *Announcer
}

// NewDetector constructs a Detector wired to a's participant's SEDP
// publications and subscriptions built-in readers. Construction installs
// the OnChange hook of those two readers; the topics reader is not hooked.
func NewDetector(a *Announcer) *Detector {
	d := &Detector{a: a}
	b := a.p.Builtin
	b.SEDPPubReader.OnChange = func(c rtps.CacheChange) { d.handle(c, true) }
	b.SEDPSubReader.OnChange = func(c rtps.CacheChange) { d.handle(c, false) }
	return d
}

// handle processes one DiscoveredWriterData (remoteIsWriter true) or
// DiscoveredReaderData (remoteIsWriter false) sample, matching it against
// every locally registered endpoint of the opposite role sharing a topic
// and type name with compatible QoS.
func (d *Detector) handle(change rtps.CacheChange, remoteIsWriter bool) {
	if change.WriterGUID.Prefix == d.a.p.Config.GuidPrefix {
		return
	}
	remote, err := DecodeEndpointData(change.DataValue)
	if err != nil {
		log.WithError(err).Debug("malformed SEDP sample, discarding")
		return
	}

	for _, le := range d.a.localEndpointsSnapshot() {
		if le.isWriter == remoteIsWriter {
			continue // need opposite roles to form a match
		}
		if le.topicName != remote.TopicName || le.typeName != remote.TypeName {
			continue
		}

		var offered, requested QoS
		if le.isWriter {
			offered, requested = le.qos, remote.QoS
		} else {
			offered, requested = remote.QoS, le.qos
		}
		if !Compatible(offered, requested) {
			topicsMatched.WithLabelValues("incompatible_qos").Inc()
			log.WithFields(logrus.Fields{"topic": le.topicName, "remote": remote.EndpointGUID}).
				Debug("SEDP QoS incompatible, not matching")
			continue
		}

		topicsMatched.WithLabelValues("matched").Inc()
		if le.onMatch != nil {
			le.onMatch(remote)
		}
	}
}
