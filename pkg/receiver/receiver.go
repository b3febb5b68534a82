// Package receiver implements the per-datagram dispatch loop described in
// spec.md §4.F: decode one RTPS message, walk its submessages updating a
// running context (source identity, timestamp, reply locators), and route
// each DATA/GAP/HEARTBEAT/ACKNACK to the matching local endpoint. This
// generalizes the teacher's server.listen() ReadFromUDP loop plus its
// handleGamePacket switch from one flat per-connection dispatch into a
// context-carrying walk over an arbitrary number of submessages per
// datagram.
package receiver

import (
	"rtps-go/internal/metrics"
	"rtps-go/pkg/guid"
	"rtps-go/pkg/rtps"
	"rtps-go/pkg/wire"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "receiver")

var (
	submessagesRouted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "receiver",
		Name:      "submessages_routed_total",
		Help:      "Submessages successfully routed to a local endpoint, by kind.",
	}, []string{"kind"})

	submessagesUnmatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "receiver",
		Name:      "submessages_unmatched_total",
		Help:      "Submessages discarded for lacking a matching local endpoint, by kind.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(submessagesRouted, submessagesUnmatched)
}

// ReaderSink is the uniform shape both StatelessReader and StatefulReader
// present to the receiver for DATA/GAP/HEARTBEAT routing.
type ReaderSink interface {
	ReceiveDataFrom(writer guid.GUID, d wire.Data, reception rtps.Time) bool
	ReceiveGap(writer guid.GUID, g wire.Gap)
	ReceiveHeartbeat(writer guid.GUID, h wire.Heartbeat)
}

// WriterSink is the uniform shape both StatelessWriter and StatefulWriter
// present to the receiver for ACKNACK routing.
type WriterSink interface {
	ReceiveAckNackFrom(remote guid.GUID, source rtps.Locator, a wire.AckNack)
}

// Registry resolves local endpoint EntityIds to the sinks that own them.
// pkg/registry.Participant implements this; it is expressed as an interface
// here so pkg/receiver never imports pkg/registry.
type Registry interface {
	LocalPrefix() guid.GuidPrefix
	ReaderByEntity(id guid.EntityId) (ReaderSink, bool)
	AllReaders() []ReaderSink
	WriterByEntity(id guid.EntityId) (WriterSink, bool)
}

// MessageReceiver owns the per-datagram context spec.md §4.F defines and
// applies its dispatch rules against a Registry.
type MessageReceiver struct {
	registry Registry

	sourceGuidPrefix guid.GuidPrefix
	sourceVersion    wire.VendorProtocolVersion
	sourceVendor     wire.VendorId
	destGuidPrefix   guid.GuidPrefix

	unicastReplyLocators   []rtps.Locator
	multicastReplyLocators []rtps.Locator

	haveTimestamp bool
	timestamp     rtps.Time
}

func New(registry Registry) *MessageReceiver {
	return &MessageReceiver{registry: registry}
}

// ProcessMessage resets the per-datagram context from msg's header and
// source locator, then walks its submessages in order applying spec.md
// §4.F's dispatch rules.
func (r *MessageReceiver) ProcessMessage(msg wire.Message, source rtps.Locator, reception rtps.Time) {
	r.sourceGuidPrefix = msg.Header.Prefix
	r.sourceVersion = wire.VendorProtocolVersion{Major: msg.Header.Version.Major, Minor: msg.Header.Version.Minor}
	r.sourceVendor = msg.Header.Vendor
	r.destGuidPrefix = r.registry.LocalPrefix()
	r.unicastReplyLocators = []rtps.Locator{source}
	r.multicastReplyLocators = nil
	r.haveTimestamp = false
	r.timestamp = rtps.Time{}

	for _, sub := range msg.Submessages {
		if !r.dispatch(sub, reception) {
			return // INFO_DST addressed elsewhere: drop the rest of the datagram
		}
	}
}

// dispatch applies one submessage and reports whether processing of the
// datagram should continue.
func (r *MessageReceiver) dispatch(sub wire.RawSubmessage, reception rtps.Time) bool {
	switch sub.Kind {
	case wire.KindPad:
		return true

	case wire.KindInfoTS:
		ts, err := wire.DecodeInfoTS(sub)
		if err != nil {
			log.WithError(err).Debug("malformed INFO_TS, skipping")
			return true
		}
		r.haveTimestamp = !ts.InvalidateFlag
		r.timestamp = ts.Time
		return true

	case wire.KindInfoSrc:
		is, err := wire.DecodeInfoSrc(sub)
		if err != nil {
			log.WithError(err).Debug("malformed INFO_SRC, skipping")
			return true
		}
		r.sourceVersion = is.Version
		r.sourceVendor = is.Vendor
		r.sourceGuidPrefix = is.Prefix
		return true

	case wire.KindInfoDst:
		id, err := wire.DecodeInfoDst(sub)
		if err != nil {
			log.WithError(err).Debug("malformed INFO_DST, skipping")
			return true
		}
		r.destGuidPrefix = id.Prefix
		local := r.registry.LocalPrefix()
		return id.Prefix.IsZero() || id.Prefix == local

	case wire.KindInfoReply:
		ir, err := wire.DecodeInfoReply(sub)
		if err != nil {
			log.WithError(err).Debug("malformed INFO_REPLY, skipping")
			return true
		}
		r.unicastReplyLocators = ir.UnicastLocators
		r.multicastReplyLocators = ir.MulticastLocators
		return true

	case wire.KindData:
		r.routeData(sub, reception)
		return true

	case wire.KindGap:
		r.routeGap(sub)
		return true

	case wire.KindHeartbeat:
		r.routeHeartbeat(sub)
		return true

	case wire.KindAckNack:
		r.routeAckNack(sub)
		return true

	default:
		// NACK_FRAG, HEARTBEAT_FRAG, DATA_FRAG and anything unrecognized:
		// spec.md's non-goals exclude fragmentation reassembly, and any
		// truly unknown kind is skipped per §4.A.
		submessagesUnmatched.WithLabelValues("other").Inc()
		return true
	}
}

func (r *MessageReceiver) routeData(sub wire.RawSubmessage, reception rtps.Time) {
	d, err := wire.DecodeData(sub)
	if err != nil {
		log.WithError(err).Debug("malformed DATA, discarding")
		return
	}
	writer := guid.New(r.sourceGuidPrefix, d.WriterId)

	if d.ReaderId == guid.EntityIdUnknown {
		delivered := false
		for _, sink := range r.registry.AllReaders() {
			if sink.ReceiveDataFrom(writer, d, reception) {
				delivered = true
			}
		}
		r.countRoute("data", delivered)
		return
	}
	sink, ok := r.registry.ReaderByEntity(d.ReaderId)
	if !ok {
		submessagesUnmatched.WithLabelValues("data").Inc()
		return
	}
	r.countRoute("data", sink.ReceiveDataFrom(writer, d, reception))
}

func (r *MessageReceiver) routeGap(sub wire.RawSubmessage) {
	g, err := wire.DecodeGap(sub)
	if err != nil {
		log.WithError(err).Debug("malformed GAP, discarding")
		return
	}
	writer := guid.New(r.sourceGuidPrefix, g.WriterId)
	if g.ReaderId == guid.EntityIdUnknown {
		for _, sink := range r.registry.AllReaders() {
			sink.ReceiveGap(writer, g)
		}
		submessagesRouted.WithLabelValues("gap").Inc()
		return
	}
	sink, ok := r.registry.ReaderByEntity(g.ReaderId)
	if !ok {
		submessagesUnmatched.WithLabelValues("gap").Inc()
		return
	}
	sink.ReceiveGap(writer, g)
	submessagesRouted.WithLabelValues("gap").Inc()
}

func (r *MessageReceiver) routeHeartbeat(sub wire.RawSubmessage) {
	h, err := wire.DecodeHeartbeat(sub)
	if err != nil {
		log.WithError(err).Debug("malformed HEARTBEAT, discarding")
		return
	}
	writer := guid.New(r.sourceGuidPrefix, h.WriterId)
	if h.ReaderId == guid.EntityIdUnknown {
		for _, sink := range r.registry.AllReaders() {
			sink.ReceiveHeartbeat(writer, h)
		}
		submessagesRouted.WithLabelValues("heartbeat").Inc()
		return
	}
	sink, ok := r.registry.ReaderByEntity(h.ReaderId)
	if !ok {
		submessagesUnmatched.WithLabelValues("heartbeat").Inc()
		return
	}
	sink.ReceiveHeartbeat(writer, h)
	submessagesRouted.WithLabelValues("heartbeat").Inc()
}

func (r *MessageReceiver) routeAckNack(sub wire.RawSubmessage) {
	a, err := wire.DecodeAckNack(sub)
	if err != nil {
		log.WithError(err).Debug("malformed ACKNACK, discarding")
		return
	}
	sink, ok := r.registry.WriterByEntity(a.WriterId)
	if !ok {
		submessagesUnmatched.WithLabelValues("acknack").Inc()
		return
	}
	remote := guid.New(r.sourceGuidPrefix, a.ReaderId)
	source := rtps.InvalidLocator
	if len(r.unicastReplyLocators) > 0 {
		source = r.unicastReplyLocators[0]
	}
	sink.ReceiveAckNackFrom(remote, source, a)
	submessagesRouted.WithLabelValues("acknack").Inc()
}

func (r *MessageReceiver) countRoute(kind string, delivered bool) {
	if delivered {
		submessagesRouted.WithLabelValues(kind).Inc()
	} else {
		submessagesUnmatched.WithLabelValues(kind).Inc()
	}
}
