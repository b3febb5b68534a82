package wire

// SubmessageKind is the submessage_id octet, per spec.md §4.A.
type SubmessageKind byte

const (
	KindPad           SubmessageKind = 0x01
	KindAckNack       SubmessageKind = 0x06
	KindHeartbeat     SubmessageKind = 0x07
	KindGap           SubmessageKind = 0x08
	KindInfoTS        SubmessageKind = 0x09
	KindInfoSrc       SubmessageKind = 0x0c
	KindInfoReplyIP4  SubmessageKind = 0x0d
	KindInfoDst       SubmessageKind = 0x0e
	KindInfoReply     SubmessageKind = 0x0f
	KindNackFrag      SubmessageKind = 0x12
	KindHeartbeatFrag SubmessageKind = 0x13
	KindData          SubmessageKind = 0x15
	KindDataFrag      SubmessageKind = 0x16
)

// FlagEndianness is bit 0 of a submessage's flags octet.
const FlagEndianness = 0x01

// RawSubmessage is a decoded-but-not-necessarily-understood submessage:
// its header plus its content octets. Unknown kinds are carried through
// round-trips unexamined, per spec.md §4.A ("unknown submessage IDs are
// skipped"); known kinds are further parsed by DecodeData/DecodeHeartbeat/
// etc.
type RawSubmessage struct {
	Kind    SubmessageKind
	Flags   byte
	Endian  Endianness
	Content []byte
}

// submessageHeaderLength is the fixed 4-octet submessage header size.
const submessageHeaderLength = 4

func (s RawSubmessage) encode() []byte {
	flags := s.Flags
	if s.Endian == LittleEndian {
		flags |= FlagEndianness
	} else {
		flags &^= FlagEndianness
	}
	out := make([]byte, submessageHeaderLength)
	out[0] = byte(s.Kind)
	out[1] = flags
	s.Endian.order().PutUint16(out[2:4], uint16(len(s.Content)))
	return append(out, s.Content...)
}

// splitSubmessages walks buf splitting it into raw submessages, following
// spec.md §4.A's framing and truncation rules: a submessage_length of 0 on
// the last submessage means "until end of datagram", and a submessage that
// would extend past the datagram boundary terminates parsing (the partial
// submessage is dropped, the submessages decoded so far are kept).
func splitSubmessages(buf []byte) ([]RawSubmessage, error) {
	var out []RawSubmessage
	for len(buf) > 0 {
		if len(buf) < submessageHeaderLength {
			break
		}
		kind := SubmessageKind(buf[0])
		flags := buf[1]
		endian := BigEndian
		if flags&FlagEndianness != 0 {
			endian = LittleEndian
		}
		length := endian.order().Uint16(buf[2:4])
		buf = buf[submessageHeaderLength:]

		var content []byte
		if length == 0 {
			// Last submessage in the datagram: consume the rest.
			content = buf
			buf = nil
		} else {
			if int(length) > len(buf) {
				// Would extend past the datagram boundary: stop, keeping
				// what was already parsed.
				break
			}
			content = buf[:length]
			buf = buf[length:]
		}
		out = append(out, RawSubmessage{Kind: kind, Flags: flags &^ FlagEndianness, Endian: endian, Content: content})
	}
	return out, nil
}

// Message is a full RTPS datagram: header plus an ordered list of
// submessages.
type Message struct {
	Header      Header
	Submessages []RawSubmessage
}

// Encode serializes the message: header then each submessage in order.
// Per spec.md's "codec monotone growth" property this never produces fewer
// octets than the sum of header + per-submessage sizes.
func (m Message) Encode() []byte {
	out := m.Header.Encode()
	for _, s := range m.Submessages {
		out = append(out, s.encode()...)
	}
	return out
}

// DecodeMessage parses a full datagram into a header and its submessages.
func DecodeMessage(buf []byte) (Message, error) {
	header, rest, err := DecodeHeader(buf)
	if err != nil {
		return Message{}, err
	}
	subs, err := splitSubmessages(rest)
	if err != nil {
		return Message{}, err
	}
	return Message{Header: header, Submessages: subs}, nil
}
