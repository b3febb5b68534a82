package wire

import (
	"rtps-go/pkg/guid"
	"rtps-go/pkg/rtps"
)

// Gap is the writer-to-reader GAP submessage: a declaration that the range
// [GapStart, GapList.Base) union GapList is irrelevant.
type Gap struct {
	ReaderId guid.EntityId
	WriterId guid.EntityId
	GapStart rtps.SequenceNumber
	GapList  rtps.SequenceNumberSet
}

func EncodeGap(g Gap, endian Endianness) RawSubmessage {
	w := newWriter(endian)
	rid := g.ReaderId.Bytes()
	w.putBytes(rid[:])
	wid := g.WriterId.Bytes()
	w.putBytes(wid[:])
	writeSequenceNumber(w, g.GapStart)
	writeSequenceNumberSet(w, g.GapList)
	return RawSubmessage{Kind: KindGap, Flags: 0, Endian: endian, Content: w.bytes()}
}

func DecodeGap(raw RawSubmessage) (Gap, error) {
	if raw.Kind != KindGap {
		return Gap{}, malformed("not a GAP submessage")
	}
	r := newReader(raw.Content, raw.Endian)
	rid, err := readEntityId(r)
	if err != nil {
		return Gap{}, err
	}
	wid, err := readEntityId(r)
	if err != nil {
		return Gap{}, err
	}
	start, err := readSequenceNumber(r)
	if err != nil {
		return Gap{}, err
	}
	list, err := readSequenceNumberSet(r)
	if err != nil {
		return Gap{}, err
	}
	return Gap{ReaderId: rid, WriterId: wid, GapStart: start, GapList: list}, nil
}

// Irrelevant enumerates the sequence numbers this Gap marks irrelevant:
// [GapStart, GapList.Base) union GapList's members, per spec.md §4.E.
func (g Gap) Irrelevant() []rtps.SequenceNumber {
	var out []rtps.SequenceNumber
	for sn := g.GapStart; sn < g.GapList.Base; sn++ {
		out = append(out, sn)
	}
	out = append(out, g.GapList.Members()...)
	return out
}
