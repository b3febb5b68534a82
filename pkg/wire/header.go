package wire

import "rtps-go/pkg/guid"

// ProtocolMagic is the 4-octet magic every RTPS message header starts with.
var ProtocolMagic = [4]byte{'R', 'T', 'P', 'S'}

// ProtocolVersion is the (major, minor) pair carried in the header.
type ProtocolVersion struct {
	Major byte
	Minor byte
}

// ProtocolVersion24 is the version this implementation speaks.
var ProtocolVersion24 = ProtocolVersion{Major: 2, Minor: 4}

// VendorId identifies the implementation that produced a message.
type VendorId [2]byte

// VendorIdThisImplementation is the unregistered vendor id this
// implementation stamps on messages it originates, per spec.md §6's
// participant construction. 0x01,0x01 falls outside the reserved RTI/OSPL/
// OpenDDS range the DDSI-RTPS vendor table assigns.
var VendorIdThisImplementation = VendorId{0x01, 0x01}

// Header is the fixed 20-octet RTPS message header: it is always encoded
// big-endian regardless of any submessage's own endianness flag.
type Header struct {
	Version ProtocolVersion
	Vendor  VendorId
	Prefix  guid.GuidPrefix
}

// HeaderLength is the fixed size in octets of an encoded Header.
const HeaderLength = 20

// Encode serializes the header: magic, version, vendor, prefix.
func (h Header) Encode() []byte {
	out := make([]byte, 0, HeaderLength)
	out = append(out, ProtocolMagic[:]...)
	out = append(out, h.Version.Major, h.Version.Minor)
	out = append(out, h.Vendor[0], h.Vendor[1])
	out = append(out, h.Prefix[:]...)
	return out
}

// DecodeHeader parses the fixed header from the front of buf.
func DecodeHeader(buf []byte) (Header, []byte, error) {
	if len(buf) < HeaderLength {
		return Header{}, nil, truncated("message header truncated")
	}
	if buf[0] != ProtocolMagic[0] || buf[1] != ProtocolMagic[1] || buf[2] != ProtocolMagic[2] || buf[3] != ProtocolMagic[3] {
		return Header{}, nil, malformed("bad protocol magic")
	}
	var h Header
	h.Version = ProtocolVersion{Major: buf[4], Minor: buf[5]}
	h.Vendor = VendorId{buf[6], buf[7]}
	copy(h.Prefix[:], buf[8:20])
	return h, buf[HeaderLength:], nil
}
