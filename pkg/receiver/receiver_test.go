package receiver

import (
	"testing"
	"time"

	"rtps-go/pkg/endpoint"
	"rtps-go/pkg/guid"
	"rtps-go/pkg/history"
	"rtps-go/pkg/proxy"
	"rtps-go/pkg/rtps"
	"rtps-go/pkg/wire"

	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	localPrefix guid.GuidPrefix
	readers     map[guid.EntityId]ReaderSink
	writers     map[guid.EntityId]WriterSink
}

func newFakeRegistry(local guid.GuidPrefix) *fakeRegistry {
	return &fakeRegistry{
		localPrefix: local,
		readers:     make(map[guid.EntityId]ReaderSink),
		writers:     make(map[guid.EntityId]WriterSink),
	}
}

func (f *fakeRegistry) LocalPrefix() guid.GuidPrefix { return f.localPrefix }

func (f *fakeRegistry) ReaderByEntity(id guid.EntityId) (ReaderSink, bool) {
	s, ok := f.readers[id]
	return s, ok
}

func (f *fakeRegistry) AllReaders() []ReaderSink {
	out := make([]ReaderSink, 0, len(f.readers))
	for _, s := range f.readers {
		out = append(out, s)
	}
	return out
}

func (f *fakeRegistry) WriterByEntity(id guid.EntityId) (WriterSink, bool) {
	s, ok := f.writers[id]
	return s, ok
}

func testHeader(prefix guid.GuidPrefix) wire.Header {
	return wire.Header{Version: wire.ProtocolVersion24, Vendor: wire.VendorId{1, 1}, Prefix: prefix}
}

func TestProcessMessageRoutesDataToMatchedReader(t *testing.T) {
	writerPrefix := guid.GuidPrefix{5, 5, 5}
	writerId := guid.EntityId{Key: [3]byte{0, 1, 0}, Kind: guid.EntityKindWriterNoKey}
	readerId := guid.EntityId{Key: [3]byte{0, 4, 0}, Kind: guid.EntityKindReaderNoKey}

	cache := history.New()
	localPrefix := guid.GuidPrefix{1}
	reader := endpoint.NewStatefulReader(guid.New(localPrefix, readerId), endpoint.Reliable, cache, time.Millisecond)
	reader.MatchWriter(proxy.NewWriterProxy(guid.New(writerPrefix, writerId), nil, nil))

	reg := newFakeRegistry(localPrefix)
	reg.readers[readerId] = reader

	mr := New(reg)
	d := wire.Data{ReaderId: readerId, WriterId: writerId, WriterSN: 1, HasPayload: true, Payload: []byte("hi")}
	msg := wire.Message{Header: testHeader(writerPrefix), Submessages: []wire.RawSubmessage{wire.EncodeData(d, wire.LittleEndian)}}

	mr.ProcessMessage(msg, rtps.InvalidLocator, rtps.Time{})

	require.Equal(t, 1, cache.Len())
}

func TestProcessMessageBroadcastsUnknownReaderId(t *testing.T) {
	writerPrefix := guid.GuidPrefix{5}
	writerId := guid.EntityId{Kind: guid.EntityKindWriterNoKey}
	localPrefix := guid.GuidPrefix{1}

	cacheA := history.New()
	cacheB := history.New()
	readerA := endpoint.NewStatelessReader(guid.New(localPrefix, guid.EntityId{Key: [3]byte{1}}), cacheA)
	readerB := endpoint.NewStatelessReader(guid.New(localPrefix, guid.EntityId{Key: [3]byte{2}}), cacheB)

	reg := newFakeRegistry(localPrefix)
	reg.readers[guid.EntityId{Key: [3]byte{1}}] = readerA
	reg.readers[guid.EntityId{Key: [3]byte{2}}] = readerB

	mr := New(reg)
	d := wire.Data{ReaderId: guid.EntityIdUnknown, WriterId: writerId, WriterSN: 1, HasPayload: true, Payload: []byte("broadcast")}
	msg := wire.Message{Header: testHeader(writerPrefix), Submessages: []wire.RawSubmessage{wire.EncodeData(d, wire.LittleEndian)}}

	mr.ProcessMessage(msg, rtps.InvalidLocator, rtps.Time{})

	require.Equal(t, 1, cacheA.Len())
	require.Equal(t, 1, cacheB.Len())
}

func TestProcessMessageDropsRestAfterForeignInfoDst(t *testing.T) {
	localPrefix := guid.GuidPrefix{1}
	readerId := guid.EntityId{Key: [3]byte{0, 4, 0}, Kind: guid.EntityKindReaderNoKey}
	cache := history.New()
	reader := endpoint.NewStatelessReader(guid.New(localPrefix, readerId), cache)

	reg := newFakeRegistry(localPrefix)
	reg.readers[readerId] = reader

	mr := New(reg)
	foreignDst := wire.EncodeInfoDst(wire.InfoDst{Prefix: guid.GuidPrefix{9, 9, 9}}, wire.LittleEndian)
	d := wire.Data{ReaderId: guid.EntityIdUnknown, WriterId: guid.EntityId{}, WriterSN: 1, HasPayload: true, Payload: []byte("x")}
	msg := wire.Message{
		Header:      testHeader(guid.GuidPrefix{7}),
		Submessages: []wire.RawSubmessage{foreignDst, wire.EncodeData(d, wire.LittleEndian)},
	}

	mr.ProcessMessage(msg, rtps.InvalidLocator, rtps.Time{})

	require.Equal(t, 0, cache.Len(), "submessages after a foreign INFO_DST must be dropped")
}

func TestProcessMessageRoutesAckNackToMatchedWriter(t *testing.T) {
	localPrefix := guid.GuidPrefix{1}
	writerId := guid.EntityId{Key: [3]byte{0, 1, 0}, Kind: guid.EntityKindWriterNoKey}
	readerPrefix := guid.GuidPrefix{2}
	readerId := guid.EntityId{Key: [3]byte{0, 4, 0}, Kind: guid.EntityKindReaderNoKey}

	cache := history.New()
	writer := endpoint.NewStatefulWriter(guid.New(localPrefix, writerId), endpoint.Reliable, true, cache, time.Hour, 0)
	writer.MatchReader(proxy.NewReaderProxy(guid.New(readerPrefix, readerId), nil, nil, false))

	reg := newFakeRegistry(localPrefix)
	reg.writers[writerId] = writer

	mr := New(reg)
	a := wire.AckNack{ReaderId: readerId, WriterId: writerId, ReaderSNState: rtps.NewSequenceNumberSet(1, nil), Count: 1, FinalFlag: true}
	msg := wire.Message{Header: testHeader(readerPrefix), Submessages: []wire.RawSubmessage{wire.EncodeAckNack(a, wire.LittleEndian)}}

	mr.ProcessMessage(msg, rtps.InvalidLocator, rtps.Time{})

	// The matched ReaderProxy's HighestNackCountReceived is updated only on a
	// non-stale count, confirming the ACKNACK reached the writer.
	rp, ok := writer.ReaderProxyFor(guid.New(readerPrefix, readerId))
	require.True(t, ok)
	require.Equal(t, uint32(1), rp.HighestNackCountReceived)
}
