package endpoint

import (
	"testing"

	"rtps-go/pkg/guid"
	"rtps-go/pkg/history"
	"rtps-go/pkg/proxy"
	"rtps-go/pkg/rtps"
	"rtps-go/pkg/wire"

	"github.com/stretchr/testify/require"
)

func testWriterGUID() guid.GUID {
	return guid.New(guid.GuidPrefix{1, 2, 3}, guid.EntityId{Key: [3]byte{0, 1, 0}, Kind: guid.EntityKindWriterNoKey})
}

// Best-effort DATA-then-GAP, at the endpoint level rather than pure wire
// codec (c.f. spec.md §8 Scenario 4).
func TestStatelessWriterEmitsDataThenGapWhenCacheMisses(t *testing.T) {
	cache := history.New()
	cache.Add(rtps.CacheChange{SequenceNumber: 1, DataValue: []byte("abc")})
	// sequence number 2 is deliberately absent: the writer must gap it.

	w := NewStatelessWriter(testWriterGUID(), BestEffort, cache)
	loc := rtps.NewUDPv4Locator([]byte{127, 0, 0, 1}, 7410)
	rl := proxy.NewReaderLocator(loc, false)
	w.AddReaderLocator(rl)

	// Advance the cache's logical "last" past the gap by adding sn=3.
	cache.Add(rtps.CacheChange{SequenceNumber: 3, DataValue: []byte("xyz")})

	out := w.Tick(wire.LittleEndian)
	require.Len(t, out, 3)

	d1, err := wire.DecodeData(out[0].Submessage)
	require.NoError(t, err)
	require.Equal(t, rtps.SequenceNumber(1), d1.WriterSN)
	require.Equal(t, []byte("abc"), d1.Payload)

	g, err := wire.DecodeGap(out[1].Submessage)
	require.NoError(t, err)
	require.Equal(t, rtps.SequenceNumber(2), g.GapStart)

	d3, err := wire.DecodeData(out[2].Submessage)
	require.NoError(t, err)
	require.Equal(t, rtps.SequenceNumber(3), d3.WriterSN)
}

func TestStatelessReaderFiltersByReaderIdAndWriter(t *testing.T) {
	cache := history.New()
	readerGUID := guid.New(guid.GuidPrefix{9}, guid.EntityId{Key: [3]byte{0, 4, 0}, Kind: guid.EntityKindReaderNoKey})
	r := NewStatelessReader(readerGUID, cache)

	writerPrefix := guid.GuidPrefix{1, 2, 3}
	writerId := guid.EntityId{Key: [3]byte{0, 1, 0}, Kind: guid.EntityKindWriterNoKey}

	wrongReader := wire.Data{ReaderId: guid.EntityId{Kind: guid.EntityKindReaderNoKey, Key: [3]byte{9, 9, 9}}, WriterId: writerId, WriterSN: 1, HasPayload: true, Payload: []byte("x")}
	require.False(t, r.ReceiveData(writerPrefix, wrongReader, rtps.Time{}))
	require.Equal(t, 0, cache.Len())

	ok := wire.Data{ReaderId: guid.EntityIdUnknown, WriterId: writerId, WriterSN: 1, HasPayload: true, Payload: []byte("hello")}
	require.True(t, r.ReceiveData(writerPrefix, ok, rtps.Time{}))
	require.Equal(t, 1, cache.Len())

	change, found := cache.Get(1)
	require.True(t, found)
	require.Equal(t, []byte("hello"), change.DataValue)
}

func TestStatelessReaderRejectsUnlistedWriter(t *testing.T) {
	cache := history.New()
	r := NewStatelessReader(guid.GUID{}, cache)
	allowed := guid.New(guid.GuidPrefix{1}, guid.EntityId{Kind: guid.EntityKindWriterNoKey})
	r.AllowWriter(allowed)

	other := wire.Data{ReaderId: guid.EntityIdUnknown, WriterId: guid.EntityId{Kind: guid.EntityKindWriterNoKey, Key: [3]byte{7, 7, 7}}, WriterSN: 1, HasPayload: true}
	require.False(t, r.ReceiveData(guid.GuidPrefix{2}, other, rtps.Time{}))

	match := wire.Data{ReaderId: guid.EntityIdUnknown, WriterId: allowed.Entity, WriterSN: 1, HasPayload: true}
	require.True(t, r.ReceiveData(allowed.Prefix, match, rtps.Time{}))
}
