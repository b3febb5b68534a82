package registry

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"rtps-go/pkg/guid"
	"rtps-go/pkg/rtps"
	"rtps-go/pkg/wire"
)

// tickPeriod is the cadence Tick is called on every endpoint, mirroring the
// teacher's 50ms updateLoop ticker in source/server/server.go. It is finer
// than HeartbeatPeriod/NackResponseDelay so those deadlines are always
// caught within one tick's slack.
const tickPeriod = 50 * time.Millisecond

// Run drives the participant's receive loop and its periodic actions
// (endpoint tick, SPDP announce, lease expiry, deadline check, liveliness)
// until ctx is cancelled, fanning the
// goroutines out with an errgroup the way linkerd2 supervises its
// controller workers, replacing the teacher's two bare
// "go s.updateLoop()"/"go s.sessionCleanupLoop()" calls with a
// cancellation-aware group that reports the first error.
func (p *Participant) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return p.recvLoop(ctx) })
	g.Go(func() error { p.tickLoop(ctx); return nil })
	g.Go(func() error { p.spdpAnnounceLoop(ctx); return nil })
	g.Go(func() error { p.leaseExpiryLoop(ctx); return nil })
	g.Go(func() error { p.deadlineCheckLoop(ctx); return nil })
	g.Go(func() error { p.livelinessLoop(ctx); return nil })

	return g.Wait()
}

// recvLoop reads datagrams off the transport and feeds them to the
// MessageReceiver, mirroring the teacher's listen() ReadFromUDP loop.
func (p *Participant) recvLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		loc, data, err := p.transport.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithError(err).Warn("transport recv failed")
			continue
		}
		msg, err := wire.DecodeMessage(data)
		if err != nil {
			log.WithError(err).Debug("malformed datagram, discarding")
			continue
		}
		p.receiver.ProcessMessage(msg, loc, nowAsRtpsTime())
	}
}

// tickLoop drives every endpoint's Tick once per tickPeriod and flushes the
// resulting submessages, replacing the teacher's updateLoop's single
// "s.raknet.Update()" call with one Tick per matched endpoint.
func (p *Participant) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(tickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			p.tickOnce(now)
		}
	}
}

func (p *Participant) tickOnce(now time.Time) {
	for _, w := range p.StatefulWriters() {
		out := w.Tick(now, wire.LittleEndian)
		if len(out) > 0 {
			p.sender.Enqueue(out)
		}
	}
	for _, r := range p.StatefulReaders() {
		out := r.Tick(now, wire.LittleEndian)
		if len(out) > 0 {
			p.sender.Enqueue(out)
		}
	}
	for _, w := range p.StatelessWriters() {
		out := w.Tick(wire.LittleEndian)
		if len(out) > 0 {
			p.sender.Enqueue(out)
		}
	}
	if p.sender.Pending() > 0 {
		if err := p.sender.Flush(noDest); err != nil {
			log.WithError(err).Warn("flush failed for one or more destinations")
		}
	}
}

// spdpAnnounceLoop periodically re-sends this participant's SPDP sample,
// per spec.md §4.I's "SPDP announcement at a fixed cadence". The payload
// itself is built by pkg/discovery/spdp; Participant only owns the timer
// and the matched-ReaderLocator fan-out, via the SPDP built-in writer's own
// Tick once a sample has been added to its cache.
func (p *Participant) spdpAnnounceLoop(ctx context.Context) {
	ticker := time.NewTicker(p.Config.SPDPAnnouncePeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.RLock()
			fn := p.onSPDPAnnounce
			p.mu.RUnlock()
			if fn != nil {
				fn()
			}
		}
	}
}

// leaseExpiryLoop periodically sweeps discovered participants whose SPDP
// lease has expired, per SPEC_FULL.md's lease-expiry supplement: a
// participant from which no refreshing sample arrived within
// participant_lease_duration is torn down as if it had sent
// NotAliveDisposed.
func (p *Participant) leaseExpiryLoop(ctx context.Context) {
	period := p.Config.ParticipantLeaseDuration / 2
	if period <= 0 {
		period = time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.RLock()
			fn := p.onLeaseSweep
			p.mu.RUnlock()
			if fn != nil {
				fn(p.Config.ParticipantLeaseDuration)
			}
		}
	}
}

// deadlineCheckLoop drives the "deadline check per writer/reader at its
// QoS deadline" periodic action of spec.md §4.I. A single shared tick
// period is used rather than one timer per endpoint's own deadline,
// matching tickLoop's fixed-cadence style; each endpoint's CheckDeadline
// no-ops until its own Deadline has actually elapsed.
func (p *Participant) deadlineCheckLoop(ctx context.Context) {
	ticker := time.NewTicker(p.statusCheckPeriod())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			p.checkDeadlinesOnce(now)
		}
	}
}

func (p *Participant) checkDeadlinesOnce(now time.Time) {
	for _, w := range p.StatefulWriters() {
		w.CheckDeadline(now)
	}
	for _, r := range p.StatefulReaders() {
		r.CheckDeadline(now)
	}
}

// livelinessLoop drives the "liveliness assertion per writer at its
// liveliness-lease interval" periodic action of spec.md §4.I. Every
// writer is asserted automatically on this participant's behalf (the
// AUTOMATIC liveliness QoS kind, the only one this implementation drives
// without an explicit application call), so a writer never locally
// misses its own lease; "lost liveliness" is instead observed by a
// matched reader when a remote writer goes silent, which CheckLiveliness
// on each StatefulReader detects from the writer proxies' last activity.
func (p *Participant) livelinessLoop(ctx context.Context) {
	ticker := time.NewTicker(p.statusCheckPeriod())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			p.checkLivelinessOnce(now)
		}
	}
}

func (p *Participant) checkLivelinessOnce(now time.Time) {
	for _, w := range p.StatefulWriters() {
		w.AssertLiveliness(now)
	}
	for _, r := range p.StatefulReaders() {
		r.CheckLiveliness(now)
	}
}

func (p *Participant) statusCheckPeriod() time.Duration {
	if p.Config.StatusCheckPeriod <= 0 {
		return tickPeriod
	}
	return p.Config.StatusCheckPeriod
}

// noDest is the "no specific destination participant" sentinel passed to
// Flush for multicast/best-effort metatraffic, where every recipient
// accepts the datagram regardless of its dest_guid_prefix.
var noDest guid.GuidPrefix

// nowAsRtpsTime converts the wall clock into an rtps.Time for stamping
// reception timestamps handed to the MessageReceiver.
func nowAsRtpsTime() rtps.Time {
	now := time.Now()
	return rtps.NewTime(int32(now.Unix()), uint32(now.Nanosecond()))
}
