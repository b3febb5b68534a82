package wire

import (
	"rtps-go/pkg/guid"
	"rtps-go/pkg/rtps"
)

const (
	flagHeartbeatFinal      = 0x02 // F
	flagHeartbeatLiveliness = 0x04 // L
)

// Heartbeat is the writer-to-reader HEARTBEAT submessage: the announced
// available sequence number range plus a monotonic count.
type Heartbeat struct {
	ReaderId    guid.EntityId
	WriterId    guid.EntityId
	FirstSN     rtps.SequenceNumber
	LastSN      rtps.SequenceNumber
	Count       uint32
	FinalFlag   bool
	Liveliness  bool
}

func EncodeHeartbeat(h Heartbeat, endian Endianness) RawSubmessage {
	w := newWriter(endian)
	rid := h.ReaderId.Bytes()
	w.putBytes(rid[:])
	wid := h.WriterId.Bytes()
	w.putBytes(wid[:])
	w.putI32(h.FirstSN.High())
	w.putU32(h.FirstSN.Low())
	w.putI32(h.LastSN.High())
	w.putU32(h.LastSN.Low())
	w.putU32(h.Count)

	flags := byte(0)
	if h.FinalFlag {
		flags |= flagHeartbeatFinal
	}
	if h.Liveliness {
		flags |= flagHeartbeatLiveliness
	}
	return RawSubmessage{Kind: KindHeartbeat, Flags: flags, Endian: endian, Content: w.bytes()}
}

func DecodeHeartbeat(raw RawSubmessage) (Heartbeat, error) {
	if raw.Kind != KindHeartbeat {
		return Heartbeat{}, malformed("not a HEARTBEAT submessage")
	}
	r := newReader(raw.Content, raw.Endian)
	rid, err := readEntityId(r)
	if err != nil {
		return Heartbeat{}, err
	}
	wid, err := readEntityId(r)
	if err != nil {
		return Heartbeat{}, err
	}
	fh, err := r.i32()
	if err != nil {
		return Heartbeat{}, err
	}
	fl, err := r.u32()
	if err != nil {
		return Heartbeat{}, err
	}
	lh, err := r.i32()
	if err != nil {
		return Heartbeat{}, err
	}
	ll, err := r.u32()
	if err != nil {
		return Heartbeat{}, err
	}
	count, err := r.u32()
	if err != nil {
		return Heartbeat{}, err
	}
	return Heartbeat{
		ReaderId:   rid,
		WriterId:   wid,
		FirstSN:    rtps.SequenceNumberFromParts(fh, fl),
		LastSN:     rtps.SequenceNumberFromParts(lh, ll),
		Count:      count,
		FinalFlag:  raw.Flags&flagHeartbeatFinal != 0,
		Liveliness: raw.Flags&flagHeartbeatLiveliness != 0,
	}, nil
}

func readEntityId(r *reader) (guid.EntityId, error) {
	var b [4]byte
	for i := range b {
		v, err := r.u8()
		if err != nil {
			return guid.EntityId{}, err
		}
		b[i] = v
	}
	return guid.EntityIdFromBytes(b), nil
}

func writeSequenceNumber(w *writer, sn rtps.SequenceNumber) {
	w.putI32(sn.High())
	w.putU32(sn.Low())
}

func readSequenceNumber(r *reader) (rtps.SequenceNumber, error) {
	h, err := r.i32()
	if err != nil {
		return 0, err
	}
	l, err := r.u32()
	if err != nil {
		return 0, err
	}
	return rtps.SequenceNumberFromParts(h, l), nil
}

func writeSequenceNumberSet(w *writer, set rtps.SequenceNumberSet) {
	writeSequenceNumber(w, set.Base)
	w.putU32(set.NumBits)
	words := (set.NumBits + 31) / 32
	for i := uint32(0); i < words; i++ {
		if i < uint32(len(set.Bitmap)) {
			w.putU32(set.Bitmap[i])
		} else {
			w.putU32(0)
		}
	}
}

func readSequenceNumberSet(r *reader) (rtps.SequenceNumberSet, error) {
	base, err := readSequenceNumber(r)
	if err != nil {
		return rtps.SequenceNumberSet{}, err
	}
	numBits, err := r.u32()
	if err != nil {
		return rtps.SequenceNumberSet{}, err
	}
	if numBits > rtps.MaxSetBits {
		return rtps.SequenceNumberSet{}, malformed("sequence number set numBits exceeds 256")
	}
	words := (numBits + 31) / 32
	bitmap := make([]uint32, 0, words)
	for i := uint32(0); i < words; i++ {
		v, err := r.u32()
		if err != nil {
			return rtps.SequenceNumberSet{}, err
		}
		bitmap = append(bitmap, v)
	}
	return rtps.SequenceNumberSet{Base: base, NumBits: numBits, Bitmap: bitmap}, nil
}
