package wire

import (
	"rtps-go/pkg/guid"
	"rtps-go/pkg/rtps"
)

// Data submessage flag bits (in addition to the shared endianness bit).
const (
	flagInlineQos = 0x02 // Q
	flagData      = 0x04 // D
	flagKey       = 0x08 // K
)

// Data is the DATA submessage: the primary sample carrier, per spec.md
// §4.A.
type Data struct {
	ReaderId       guid.EntityId
	WriterId       guid.EntityId
	WriterSN       rtps.SequenceNumber
	InlineQos      []rtps.Parameter
	HasInlineQos   bool
	Payload        []byte
	HasPayload     bool
	PayloadIsKey   bool // payload is the serialized key, not the full data
}

// EncodeData builds the RawSubmessage for a Data, choosing Q/D/K flags
// from which fields are populated.
func EncodeData(d Data, endian Endianness) RawSubmessage {
	w := newWriter(endian)
	w.putU16(0) // extraFlags, reserved
	// octetsToInlineQos counts octets from right after this field to the
	// start of inline QoS (or payload if no QoS): readerId+writerId+SN = 16.
	w.putU16(16)
	rid := d.ReaderId.Bytes()
	w.putBytes(rid[:])
	wid := d.WriterId.Bytes()
	w.putBytes(wid[:])
	w.putI32(d.WriterSN.High())
	w.putU32(d.WriterSN.Low())

	flags := byte(0)
	if d.HasInlineQos {
		flags |= flagInlineQos
		w.putBytes(EncodeParameterList(d.InlineQos, endian))
	}
	if d.HasPayload {
		flags |= flagData
		if d.PayloadIsKey {
			flags |= flagKey
		}
		w.putBytes(d.Payload)
	}
	return RawSubmessage{Kind: KindData, Flags: flags, Endian: endian, Content: w.bytes()}
}

// DecodeData parses a Data submessage's content.
func DecodeData(raw RawSubmessage) (Data, error) {
	if raw.Kind != KindData {
		return Data{}, malformed("not a DATA submessage")
	}
	r := newReader(raw.Content, raw.Endian)
	if _, err := r.u16(); err != nil { // extraFlags
		return Data{}, err
	}
	octetsToInlineQos, err := r.u16()
	if err != nil {
		return Data{}, err
	}
	var ridb, widb [4]byte
	for i := range ridb {
		b, err := r.u8()
		if err != nil {
			return Data{}, err
		}
		ridb[i] = b
	}
	for i := range widb {
		b, err := r.u8()
		if err != nil {
			return Data{}, err
		}
		widb[i] = b
	}
	high, err := r.i32()
	if err != nil {
		return Data{}, err
	}
	low, err := r.u32()
	if err != nil {
		return Data{}, err
	}

	d := Data{
		ReaderId: guid.EntityIdFromBytes(ridb),
		WriterId: guid.EntityIdFromBytes(widb),
		WriterSN: rtps.SequenceNumberFromParts(high, low),
	}

	// octetsToInlineQos is measured from right after that field; our
	// reader offset already sits there once the fixed 16 octets of
	// readerId+writerId+SN are consumed, which is the value this codec
	// always writes. A conforming peer may pad further; skip to respect
	// whatever it declared.
	consumedSinceField := 16
	if int(octetsToInlineQos) > consumedSinceField {
		if _, err := r.bytes(int(octetsToInlineQos) - consumedSinceField); err != nil {
			return Data{}, err
		}
	}

	if raw.Flags&flagInlineQos != 0 {
		rest, err := r.bytes(r.remaining())
		if err != nil {
			return Data{}, err
		}
		// Parameter list is self-terminating; find the sentinel by
		// decoding, then recover the remainder for the payload.
		params, consumed, err := decodeParameterListPrefixed(rest, raw.Endian)
		if err != nil {
			return Data{}, err
		}
		d.InlineQos = params
		d.HasInlineQos = true
		rest = rest[consumed:]
		if raw.Flags&flagData != 0 {
			d.Payload = append([]byte(nil), rest...)
			d.HasPayload = true
			d.PayloadIsKey = raw.Flags&flagKey != 0
		}
		return d, nil
	}

	if raw.Flags&flagData != 0 {
		payload, err := r.bytes(r.remaining())
		if err != nil {
			return Data{}, err
		}
		d.Payload = append([]byte(nil), payload...)
		d.HasPayload = true
		d.PayloadIsKey = raw.Flags&flagKey != 0
	}
	return d, nil
}

// decodeParameterListPrefixed decodes a parameter list from the start of
// buf and also reports how many octets it consumed, so a caller can
// recover whatever payload bytes follow it in the same submessage content.
func decodeParameterListPrefixed(buf []byte, endian Endianness) ([]rtps.Parameter, int, error) {
	r := newReader(buf, endian)
	var params []rtps.Parameter
	for {
		if r.remaining() < 4 {
			return nil, 0, truncated("parameter list truncated before sentinel")
		}
		id, err := r.u16()
		if err != nil {
			return nil, 0, err
		}
		length, err := r.i16()
		if err != nil {
			return nil, 0, err
		}
		if id == ParameterIdSentinel {
			return params, r.offset, nil
		}
		if length < 0 {
			return nil, 0, malformed("negative parameter length")
		}
		value, err := r.bytes(int(length))
		if err != nil {
			return nil, 0, err
		}
		cp := make([]byte, len(value))
		copy(cp, value)
		params = append(params, rtps.Parameter{ID: id, Value: cp})
		if err := r.align4(); err != nil {
			return nil, 0, err
		}
	}
}
