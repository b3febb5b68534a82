package wire

import (
	"encoding/binary"
	"math"
)

// Endianness selects the byte order a submessage's integer fields are
// encoded with. RTPS fixes the 20-octet message header to a canonical
// order but lets each submessage declare its own via a flag bit.
type Endianness bool

const (
	BigEndian    Endianness = false
	LittleEndian Endianness = true
)

func (e Endianness) order() binary.ByteOrder {
	if e == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// reader is a cursor over an octet slice. Every read checks bounds and
// returns a *WireError rather than panicking, generalizing the teacher's
// BitStream.ReadByte/ReadBytes bounds checks (source/protocol/raknet.go) to
// an endian-parametric cursor.
type reader struct {
	data   []byte
	offset int
	endian Endianness
}

func newReader(data []byte, endian Endianness) *reader {
	return &reader{data: data, endian: endian}
}

func (r *reader) remaining() int {
	return len(r.data) - r.offset
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.offset+n > len(r.data) {
		return nil, truncated("buffer underrun")
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b, nil
}

func (r *reader) u8() (byte, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return r.endian.order().Uint16(b), nil
}

func (r *reader) i16() (int16, error) {
	v, err := r.u16()
	return int16(v), err
}

func (r *reader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return r.endian.order().Uint32(b), nil
}

func (r *reader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

func (r *reader) u64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return r.endian.order().Uint64(b), nil
}

func (r *reader) f32() (float32, error) {
	v, err := r.u32()
	return math.Float32frombits(v), err
}

func (r *reader) align4() error {
	pad := (4 - (r.offset % 4)) % 4
	_, err := r.bytes(pad)
	return err
}

// writer accumulates encoded octets, mirroring the teacher's
// BitStream.WriteByte/WriteBytes append-only style.
type writer struct {
	buf    []byte
	endian Endianness
}

func newWriter(endian Endianness) *writer {
	return &writer{endian: endian}
}

func (w *writer) bytes() []byte { return w.buf }

func (w *writer) putBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *writer) putU8(v byte) {
	w.buf = append(w.buf, v)
}

func (w *writer) putU16(v uint16) {
	b := make([]byte, 2)
	w.endian.order().PutUint16(b, v)
	w.buf = append(w.buf, b...)
}

func (w *writer) putI16(v int16) { w.putU16(uint16(v)) }

func (w *writer) putU32(v uint32) {
	b := make([]byte, 4)
	w.endian.order().PutUint32(b, v)
	w.buf = append(w.buf, b...)
}

func (w *writer) putI32(v int32) { w.putU32(uint32(v)) }

func (w *writer) putU64(v uint64) {
	b := make([]byte, 8)
	w.endian.order().PutUint64(b, v)
	w.buf = append(w.buf, b...)
}

func (w *writer) putF32(v float32) { w.putU32(math.Float32bits(v)) }

func (w *writer) align4() {
	pad := (4 - (len(w.buf) % 4)) % 4
	for i := 0; i < pad; i++ {
		w.buf = append(w.buf, 0)
	}
}
