package transport

import (
	"context"
	"fmt"
	"net"

	"rtps-go/pkg/rtps"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "transport")

// maxDatagramSize bounds a single recv buffer; RTPS datagrams are not
// expected to exceed the path MTU, and fragmentation is out of scope.
const maxDatagramSize = 65507

// inboundQueueDepth bounds how many not-yet-Recv'd datagrams each socket's
// reader goroutine may buffer before it blocks on a slow consumer.
const inboundQueueDepth = 64

type inboundPacket struct {
	loc  rtps.Locator
	data []byte
	err  error
}

// UDP is a Transport backed by a unicast net.UDPConn plus, once joined, a
// second net.UDPConn bound to a multicast group. This generalizes the
// teacher's bare net.ListenUDP/ReadFromUDP/WriteToUDP handling in
// source/server/server.go into the Transport capability spec.md §5
// describes. Each bound socket is drained by its own goroutine feeding a
// shared channel, so Recv can select across an arbitrary number of sockets
// instead of polling read deadlines on one.
type UDP struct {
	conn      *net.UDPConn
	multicast *net.UDPConn
	local     rtps.Locator

	inbound chan inboundPacket
}

// ListenUDPv4 binds a UDP socket on host:port and returns a Transport ready
// to Send/Recv, mirroring the teacher's Server.Start() bind step.
func ListenUDPv4(host string, port uint32) (*UDP, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(host), Port: int(port)}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("bind udp socket %s:%d: %w", host, port, err)
	}
	local := rtps.NewUDPv4Locator(conn.LocalAddr().(*net.UDPAddr).IP, uint32(conn.LocalAddr().(*net.UDPAddr).Port))
	t := &UDP{conn: conn, local: local, inbound: make(chan inboundPacket, inboundQueueDepth)}
	go t.readLoop(conn)
	log.WithField("locator", local).Info("transport bound")
	return t, nil
}

func (t *UDP) LocalLocator() rtps.Locator {
	return t.local
}

// Send writes data to loc as a single datagram.
func (t *UDP) Send(loc rtps.Locator, data []byte) error {
	addr := loc.UDPAddr()
	if addr == nil {
		return fmt.Errorf("transport: cannot send to non-UDP locator %s", loc)
	}
	_, err := t.conn.WriteToUDP(data, addr)
	return err
}

// readLoop drains one socket into t.inbound until it closes, mirroring the
// teacher's per-connection receive goroutine in source/server/server.go but
// fanning into a shared channel so Recv can serve both the unicast and
// multicast sockets from one call.
func (t *UDP) readLoop(conn *net.UDPConn) {
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case t.inbound <- inboundPacket{err: err}:
			default:
			}
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		t.inbound <- inboundPacket{loc: rtps.NewUDPv4Locator(addr.IP, uint32(addr.Port)), data: data}
	}
}

// Recv blocks for one datagram from either the unicast socket or, once
// JoinMulticast has been called, the multicast socket, returning its source
// locator and a copy of its payload.
func (t *UDP) Recv(ctx context.Context) (rtps.Locator, []byte, error) {
	select {
	case <-ctx.Done():
		return rtps.Locator{}, nil, ctx.Err()
	case pkt := <-t.inbound:
		if pkt.err != nil {
			return rtps.Locator{}, nil, pkt.err
		}
		return pkt.loc, pkt.data, nil
	}
}

// JoinMulticast joins the metatraffic multicast group at loc, required for
// discovery per spec.md §5. The standard library only offers multicast
// membership via a socket opened through ListenMulticastUDP, so this opens
// a second conn dedicated to multicast receive rather than reusing the
// unicast one; its own readLoop feeds the same channel Recv drains.
func (t *UDP) JoinMulticast(loc rtps.Locator) error {
	addr := loc.UDPAddr()
	if addr == nil {
		return fmt.Errorf("transport: cannot join non-UDP multicast locator %s", loc)
	}
	conn, err := net.ListenMulticastUDP("udp4", nil, addr)
	if err != nil {
		return fmt.Errorf("join multicast group %s: %w", addr.IP, err)
	}
	t.multicast = conn
	go t.readLoop(conn)
	log.WithField("group", addr.IP).Info("joined multicast group")
	return nil
}

func (t *UDP) Close() error {
	if t.multicast != nil {
		t.multicast.Close()
	}
	return t.conn.Close()
}
