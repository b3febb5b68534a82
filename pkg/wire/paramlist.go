package wire

import "rtps-go/pkg/rtps"

// ParameterIdSentinel terminates a parameter list.
const ParameterIdSentinel uint16 = 0x0001

// EncodeParameterList serializes params followed by the sentinel
// (id=0x0001, length=0), padding each value to a 4-octet boundary per
// spec.md §4.H, using endian for every id/length field so it round-trips
// with DecodeParameterList(..., endian). Unknown parameter ids are opaque
// octets the caller already holds; this function never inspects their
// meaning, only their length.
func EncodeParameterList(params []rtps.Parameter, endian Endianness) []byte {
	w := newWriter(endian)
	for _, p := range params {
		w.putU16(p.ID)
		w.putU16(uint16(len(p.Value)))
		w.putBytes(p.Value)
		w.align4()
	}
	w.putU16(ParameterIdSentinel)
	w.putU16(0)
	return w.bytes()
}

// DecodeParameterList parses a sentinel-terminated parameter list encoded
// with the given endianness. Unknown parameter ids are preserved as opaque
// Parameter values rather than rejected, per spec.md §4.A.
func DecodeParameterList(buf []byte, endian Endianness) ([]rtps.Parameter, error) {
	r := newReader(buf, endian)
	var params []rtps.Parameter
	for {
		if r.remaining() < 4 {
			return nil, truncated("parameter list truncated before sentinel")
		}
		id, err := r.u16()
		if err != nil {
			return nil, err
		}
		length, err := r.i16()
		if err != nil {
			return nil, err
		}
		if id == ParameterIdSentinel {
			return params, nil
		}
		if length < 0 {
			return nil, malformed("negative parameter length")
		}
		value, err := r.bytes(int(length))
		if err != nil {
			return nil, err
		}
		cp := make([]byte, len(value))
		copy(cp, value)
		params = append(params, rtps.Parameter{ID: id, Value: cp})
		if err := r.align4(); err != nil {
			return nil, err
		}
	}
}

// FindParameter returns the first parameter with the given id.
func FindParameter(params []rtps.Parameter, id uint16) ([]byte, bool) {
	for _, p := range params {
		if p.ID == id {
			return p.Value, true
		}
	}
	return nil, false
}

// representationIdentifier selects PL_CDR_BE/PL_CDR_LE for a standalone
// discovery payload (spec.md §4.H); unlike inline QoS, discovery payloads
// carry this 4-octet header in front of the parameter list.
type representationIdentifier uint16

const (
	representationPLCDRBE representationIdentifier = 0x0002
	representationPLCDRLE representationIdentifier = 0x0003
)

// EncodeDiscoveryPayload wraps a parameter list with the PL_CDR
// representation header discovery payloads require.
func EncodeDiscoveryPayload(params []rtps.Parameter, endian Endianness) []byte {
	rep := representationPLCDRBE
	if endian == LittleEndian {
		rep = representationPLCDRLE
	}
	w := newWriter(BigEndian)
	w.putU16(uint16(rep))
	w.putU16(0) // options, reserved
	return append(w.bytes(), EncodeParameterList(params, endian)...)
}

// DecodeDiscoveryPayload parses a PL_CDR-framed discovery payload.
func DecodeDiscoveryPayload(buf []byte) ([]rtps.Parameter, error) {
	r := newReader(buf, BigEndian)
	rep, err := r.u16()
	if err != nil {
		return nil, err
	}
	if _, err := r.u16(); err != nil { // options
		return nil, err
	}
	endian := BigEndian
	if representationIdentifier(rep) == representationPLCDRLE {
		endian = LittleEndian
	}
	rest, err := r.bytes(r.remaining())
	if err != nil {
		return nil, err
	}
	return DecodeParameterList(rest, endian)
}
