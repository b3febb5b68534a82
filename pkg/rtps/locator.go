package rtps

import (
	"fmt"
	"net"
)

// LocatorKind selects the transport kind a Locator addresses.
type LocatorKind int32

const (
	LocatorKindInvalid  LocatorKind = -1
	LocatorKindReserved LocatorKind = 0
	LocatorKindUDPv4    LocatorKind = 1
	LocatorKindUDPv6    LocatorKind = 2
)

// Locator is a (transport kind, port, 16-octet address) tuple. For UDPv4
// the address's last four octets hold the IPv4 address and the rest are
// zero.
type Locator struct {
	Kind    LocatorKind
	Port    uint32
	Address [16]byte
}

// InvalidLocator is the wire sentinel for "no locator".
var InvalidLocator = Locator{Kind: LocatorKindInvalid}

// NewUDPv4Locator builds a Locator from an IPv4 address and port.
func NewUDPv4Locator(ip net.IP, port uint32) Locator {
	var loc Locator
	loc.Kind = LocatorKindUDPv4
	loc.Port = port
	v4 := ip.To4()
	if v4 != nil {
		copy(loc.Address[12:], v4)
	}
	return loc
}

// IsInvalid reports whether the locator is the invalid sentinel.
func (l Locator) IsInvalid() bool {
	return l.Kind == LocatorKindInvalid
}

// UDPAddr converts a UDPv4/UDPv6 Locator into a net.UDPAddr. Returns nil for
// any other kind.
func (l Locator) UDPAddr() *net.UDPAddr {
	switch l.Kind {
	case LocatorKindUDPv4:
		ip := make(net.IP, 4)
		copy(ip, l.Address[12:16])
		return &net.UDPAddr{IP: ip, Port: int(l.Port)}
	case LocatorKindUDPv6:
		ip := make(net.IP, 16)
		copy(ip, l.Address[:])
		return &net.UDPAddr{IP: ip, Port: int(l.Port)}
	default:
		return nil
	}
}

func (l Locator) String() string {
	if addr := l.UDPAddr(); addr != nil {
		return addr.String()
	}
	return fmt.Sprintf("locator(kind=%d,port=%d)", l.Kind, l.Port)
}

// Equal reports field-wise equality.
func (l Locator) Equal(o Locator) bool {
	return l.Kind == o.Kind && l.Port == o.Port && l.Address == o.Address
}

// MetatrafficMulticastLocator computes the well-known discovery multicast
// locator for a domain, per spec.md §6: 239.255.0.1:7400+250*domainId.
func MetatrafficMulticastLocator(domainID uint32) Locator {
	port := 7400 + 250*domainID
	return NewUDPv4Locator(net.IPv4(239, 255, 0, 1), port)
}

// UserUnicastPort computes the default user unicast port for a domain and
// participant index, per spec.md §6: 7410+250*domainId+10*participantId.
func UserUnicastPort(domainID, participantID uint32) uint32 {
	return 7410 + 250*domainID + 10*participantID
}
