package wire

import (
	"rtps-go/pkg/guid"
	"rtps-go/pkg/rtps"
)

const flagInfoTSInvalidate = 0x02 // I

// InfoTS carries the timestamp applied to subsequent Data submessages in
// the same message, until invalidated or superseded.
type InfoTS struct {
	Time           rtps.Time
	InvalidateFlag bool
}

func EncodeInfoTS(i InfoTS, endian Endianness) RawSubmessage {
	w := newWriter(endian)
	flags := byte(0)
	if i.InvalidateFlag {
		flags |= flagInfoTSInvalidate
	} else {
		w.putI32(i.Time.Seconds)
		w.putU32(i.Time.Nanos)
	}
	return RawSubmessage{Kind: KindInfoTS, Flags: flags, Endian: endian, Content: w.bytes()}
}

func DecodeInfoTS(raw RawSubmessage) (InfoTS, error) {
	if raw.Kind != KindInfoTS {
		return InfoTS{}, malformed("not an INFO_TS submessage")
	}
	if raw.Flags&flagInfoTSInvalidate != 0 {
		return InfoTS{InvalidateFlag: true}, nil
	}
	r := newReader(raw.Content, raw.Endian)
	sec, err := r.i32()
	if err != nil {
		return InfoTS{}, err
	}
	nanos, err := r.u32()
	if err != nil {
		return InfoTS{}, err
	}
	return InfoTS{Time: rtps.Time{Seconds: sec, Nanos: nanos}}, nil
}

// InfoSrc overrides the message receiver's notion of source
// version/vendor/prefix, used when a message is relayed.
type InfoSrc struct {
	Version VendorProtocolVersion
	Vendor  VendorId
	Prefix  guid.GuidPrefix
}

// VendorProtocolVersion is the (major, minor) pair carried by INFO_SRC.
type VendorProtocolVersion struct {
	Major byte
	Minor byte
}

func EncodeInfoSrc(i InfoSrc, endian Endianness) RawSubmessage {
	w := newWriter(endian)
	w.putU32(0) // unused
	w.putU8(i.Version.Major)
	w.putU8(i.Version.Minor)
	w.putU8(i.Vendor[0])
	w.putU8(i.Vendor[1])
	w.putBytes(i.Prefix[:])
	return RawSubmessage{Kind: KindInfoSrc, Flags: 0, Endian: endian, Content: w.bytes()}
}

func DecodeInfoSrc(raw RawSubmessage) (InfoSrc, error) {
	if raw.Kind != KindInfoSrc {
		return InfoSrc{}, malformed("not an INFO_SRC submessage")
	}
	r := newReader(raw.Content, raw.Endian)
	if _, err := r.u32(); err != nil {
		return InfoSrc{}, err
	}
	major, err := r.u8()
	if err != nil {
		return InfoSrc{}, err
	}
	minor, err := r.u8()
	if err != nil {
		return InfoSrc{}, err
	}
	v0, err := r.u8()
	if err != nil {
		return InfoSrc{}, err
	}
	v1, err := r.u8()
	if err != nil {
		return InfoSrc{}, err
	}
	prefixBytes, err := r.bytes(guid.PrefixLength)
	if err != nil {
		return InfoSrc{}, err
	}
	var prefix guid.GuidPrefix
	copy(prefix[:], prefixBytes)
	return InfoSrc{Version: VendorProtocolVersion{Major: major, Minor: minor}, Vendor: VendorId{v0, v1}, Prefix: prefix}, nil
}

// InfoDst sets the destination guid prefix; if it doesn't match the local
// participant the receiver drops the rest of the message (spec.md §4.F).
type InfoDst struct {
	Prefix guid.GuidPrefix
}

func EncodeInfoDst(i InfoDst, endian Endianness) RawSubmessage {
	w := newWriter(endian)
	w.putBytes(i.Prefix[:])
	return RawSubmessage{Kind: KindInfoDst, Flags: 0, Endian: endian, Content: w.bytes()}
}

func DecodeInfoDst(raw RawSubmessage) (InfoDst, error) {
	if raw.Kind != KindInfoDst {
		return InfoDst{}, malformed("not an INFO_DST submessage")
	}
	r := newReader(raw.Content, raw.Endian)
	prefixBytes, err := r.bytes(guid.PrefixLength)
	if err != nil {
		return InfoDst{}, err
	}
	var prefix guid.GuidPrefix
	copy(prefix[:], prefixBytes)
	return InfoDst{Prefix: prefix}, nil
}

const flagInfoReplyMulticast = 0x02 // M

// InfoReply overrides the reply locator lists used to address ACKNACK/
// HEARTBEAT responses back at the sender.
type InfoReply struct {
	UnicastLocators   []rtps.Locator
	MulticastLocators []rtps.Locator
}

func EncodeInfoReply(i InfoReply, endian Endianness) RawSubmessage {
	w := newWriter(endian)
	writeLocatorList(w, i.UnicastLocators)
	flags := byte(0)
	if len(i.MulticastLocators) > 0 {
		flags |= flagInfoReplyMulticast
		writeLocatorList(w, i.MulticastLocators)
	}
	return RawSubmessage{Kind: KindInfoReply, Flags: flags, Endian: endian, Content: w.bytes()}
}

func DecodeInfoReply(raw RawSubmessage) (InfoReply, error) {
	if raw.Kind != KindInfoReply {
		return InfoReply{}, malformed("not an INFO_REPLY submessage")
	}
	r := newReader(raw.Content, raw.Endian)
	unicast, err := readLocatorList(r)
	if err != nil {
		return InfoReply{}, err
	}
	out := InfoReply{UnicastLocators: unicast}
	if raw.Flags&flagInfoReplyMulticast != 0 {
		multicast, err := readLocatorList(r)
		if err != nil {
			return InfoReply{}, err
		}
		out.MulticastLocators = multicast
	}
	return out, nil
}

func writeLocatorList(w *writer, locs []rtps.Locator) {
	w.putU32(uint32(len(locs)))
	for _, l := range locs {
		writeLocator(w, l)
	}
}

func readLocatorList(r *reader) ([]rtps.Locator, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]rtps.Locator, 0, count)
	for i := uint32(0); i < count; i++ {
		l, err := readLocator(r)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func writeLocator(w *writer, l rtps.Locator) {
	w.putI32(int32(l.Kind))
	w.putU32(l.Port)
	w.putBytes(l.Address[:])
}

func readLocator(r *reader) (rtps.Locator, error) {
	kind, err := r.i32()
	if err != nil {
		return rtps.Locator{}, err
	}
	port, err := r.u32()
	if err != nil {
		return rtps.Locator{}, err
	}
	addr, err := r.bytes(16)
	if err != nil {
		return rtps.Locator{}, err
	}
	var l rtps.Locator
	l.Kind = rtps.LocatorKind(kind)
	l.Port = port
	copy(l.Address[:], addr)
	return l, nil
}
