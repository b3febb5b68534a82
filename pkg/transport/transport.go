// Package transport defines the datagram carrier capability pkg/sender and
// pkg/registry depend on, and provides a UDPv4 implementation over
// net.UDPConn, generalizing the teacher's bare net.ListenUDP/ReadFromUDP/
// WriteToUDP usage in source/server/server.go into a named, swappable
// capability per spec.md §1's "a transport capability is assumed".
package transport

import (
	"context"

	"rtps-go/pkg/rtps"
)

// Transport is any carrier supporting datagram send to a Locator and
// datagram receive returning (source locator, octets), per spec.md §5.
type Transport interface {
	Send(loc rtps.Locator, data []byte) error
	Recv(ctx context.Context) (rtps.Locator, []byte, error)
	JoinMulticast(loc rtps.Locator) error
	LocalLocator() rtps.Locator
	Close() error
}
