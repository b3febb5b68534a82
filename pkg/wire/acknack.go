package wire

import (
	"rtps-go/pkg/guid"
	"rtps-go/pkg/rtps"
)

const flagAckNackFinal = 0x02 // F

// AckNack is the reader-to-writer ACKNACK submessage: the requested set
// plus a monotonic count.
type AckNack struct {
	ReaderId      guid.EntityId
	WriterId      guid.EntityId
	ReaderSNState rtps.SequenceNumberSet
	Count         uint32
	FinalFlag     bool
}

func EncodeAckNack(a AckNack, endian Endianness) RawSubmessage {
	w := newWriter(endian)
	rid := a.ReaderId.Bytes()
	w.putBytes(rid[:])
	wid := a.WriterId.Bytes()
	w.putBytes(wid[:])
	writeSequenceNumberSet(w, a.ReaderSNState)
	w.putU32(a.Count)

	flags := byte(0)
	if a.FinalFlag {
		flags |= flagAckNackFinal
	}
	return RawSubmessage{Kind: KindAckNack, Flags: flags, Endian: endian, Content: w.bytes()}
}

func DecodeAckNack(raw RawSubmessage) (AckNack, error) {
	if raw.Kind != KindAckNack {
		return AckNack{}, malformed("not an ACKNACK submessage")
	}
	r := newReader(raw.Content, raw.Endian)
	rid, err := readEntityId(r)
	if err != nil {
		return AckNack{}, err
	}
	wid, err := readEntityId(r)
	if err != nil {
		return AckNack{}, err
	}
	set, err := readSequenceNumberSet(r)
	if err != nil {
		return AckNack{}, err
	}
	count, err := r.u32()
	if err != nil {
		return AckNack{}, err
	}
	return AckNack{
		ReaderId:      rid,
		WriterId:      wid,
		ReaderSNState: set,
		Count:         count,
		FinalFlag:     raw.Flags&flagAckNackFinal != 0,
	}, nil
}
