// Package sender implements the outbound side of spec.md §4.G: collect the
// (Locator, RawSubmessage) pairs each local endpoint's Tick produces,
// aggregate them by destination locator, and flush one RTPS message per
// destination. This generalizes the teacher's Server.sendServerMessage/
// broadcastServerMessage — build a payload once, hand it to the RakNet
// layer for one or many recipients — into a locator-keyed aggregation
// stage sitting in front of a transport.Transport.
package sender

import (
	"rtps-go/pkg/endpoint"
	"rtps-go/pkg/guid"
	"rtps-go/pkg/rtps"
	"rtps-go/pkg/transport"
	"rtps-go/pkg/wire"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "sender")

// MessageSender batches Outbound submessages from every local endpoint by
// destination locator and flushes them as complete RTPS messages.
type MessageSender struct {
	transport transport.Transport
	header    wire.Header
	endian    wire.Endianness

	byLocator map[rtps.Locator][]wire.RawSubmessage
}

// New builds a MessageSender that prepends header to every flushed message
// and encodes submessages in endian order.
func New(t transport.Transport, header wire.Header, endian wire.Endianness) *MessageSender {
	return &MessageSender{
		transport: t,
		header:    header,
		endian:    endian,
		byLocator: make(map[rtps.Locator][]wire.RawSubmessage),
	}
}

// Enqueue folds a batch of Outbound values, as produced by an endpoint's
// Tick, into the per-locator aggregation. It does not send anything until
// Flush is called, so submessages addressed to the same locator across
// several endpoints' ticks land in one datagram.
func (s *MessageSender) Enqueue(out []endpoint.Outbound) {
	for _, o := range out {
		s.byLocator[o.Locator] = append(s.byLocator[o.Locator], o.Submessage)
	}
}

// EnqueueTo appends one submessage addressed to loc directly, for senders
// that don't go through an endpoint's Tick (e.g. discovery announces).
func (s *MessageSender) EnqueueTo(loc rtps.Locator, sub wire.RawSubmessage) {
	s.byLocator[loc] = append(s.byLocator[loc], sub)
}

// Flush encodes and sends one RtpsMessage per destination locator queued
// since the last Flush. A locator whose send succeeds is removed from the
// queue; one whose send fails stays queued, and the first such error is
// returned. When dest names a specific participant (not the all-zero
// GuidPrefix), an INFO_DST
// submessage is prepended so the remote receiver's MessageReceiver can
// apply the foreign-destination drop rule of spec.md §4.F.
func (s *MessageSender) Flush(dest guid.GuidPrefix) error {
	var firstErr error
	for loc, subs := range s.byLocator {
		msg := wire.Message{Header: s.header}
		if dest != (guid.GuidPrefix{}) {
			msg.Submessages = append(msg.Submessages, wire.EncodeInfoDst(wire.InfoDst{Prefix: dest}, s.endian))
		}
		msg.Submessages = append(msg.Submessages, subs...)

		if err := s.transport.Send(loc, msg.Encode()); err != nil {
			log.WithError(err).WithField("locator", loc).Warn("failed to send message")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		delete(s.byLocator, loc)
	}
	return firstErr
}

// Pending reports how many distinct destination locators currently hold
// queued submessages, for tests and metrics.
func (s *MessageSender) Pending() int {
	return len(s.byLocator)
}
