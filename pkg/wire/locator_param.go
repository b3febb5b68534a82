package wire

import "rtps-go/pkg/rtps"

// LocatorLength is the fixed wire size of a single Locator (kind + port +
// 16-octet address).
const LocatorLength = 24

// EncodeLocator serializes a single Locator, the form discovery parameter
// values use (spec.md §4.H: MetatrafficUnicastLocator etc. are "Locator (24
// octets)").
func EncodeLocator(l rtps.Locator, endian Endianness) []byte {
	w := newWriter(endian)
	writeLocator(w, l)
	return w.bytes()
}

// DecodeLocator parses a single Locator value.
func DecodeLocator(buf []byte, endian Endianness) (rtps.Locator, error) {
	r := newReader(buf, endian)
	return readLocator(r)
}
