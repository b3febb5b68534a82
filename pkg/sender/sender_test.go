package sender

import (
	"context"
	"testing"

	"rtps-go/pkg/endpoint"
	"rtps-go/pkg/guid"
	"rtps-go/pkg/rtps"
	"rtps-go/pkg/wire"

	"github.com/stretchr/testify/require"
)

type sentDatagram struct {
	loc  rtps.Locator
	data []byte
}

type fakeTransport struct {
	sent []sentDatagram
	err  error
}

func (f *fakeTransport) Send(loc rtps.Locator, data []byte) error {
	if f.err != nil {
		return f.err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.sent = append(f.sent, sentDatagram{loc: loc, data: cp})
	return nil
}
func (f *fakeTransport) Recv(ctx context.Context) (rtps.Locator, []byte, error) {
	return rtps.Locator{}, nil, context.Canceled
}
func (f *fakeTransport) JoinMulticast(rtps.Locator) error { return nil }
func (f *fakeTransport) LocalLocator() rtps.Locator       { return rtps.InvalidLocator }
func (f *fakeTransport) Close() error                     { return nil }

func testHeader() wire.Header {
	return wire.Header{Version: wire.ProtocolVersion24, Vendor: wire.VendorId{1, 1}, Prefix: guid.GuidPrefix{1}}
}

func TestFlushAggregatesSubmessagesByLocator(t *testing.T) {
	ft := &fakeTransport{}
	s := New(ft, testHeader(), wire.LittleEndian)

	locA := rtps.NewUDPv4Locator([]byte{127, 0, 0, 1}, 7410)
	locB := rtps.NewUDPv4Locator([]byte{127, 0, 0, 1}, 7411)

	d := wire.Data{WriterId: guid.EntityId{Kind: guid.EntityKindWriterNoKey}, WriterSN: 1, HasPayload: true, Payload: []byte("a")}
	s.Enqueue([]endpoint.Outbound{
		{Locator: locA, Submessage: wire.EncodeData(d, wire.LittleEndian)},
		{Locator: locA, Submessage: wire.EncodeData(d, wire.LittleEndian)},
		{Locator: locB, Submessage: wire.EncodeData(d, wire.LittleEndian)},
	})

	require.Equal(t, 2, s.Pending())
	require.NoError(t, s.Flush(guid.GuidPrefix{}))
	require.Equal(t, 0, s.Pending())
	require.Len(t, ft.sent, 2)

	for _, dg := range ft.sent {
		msg, err := wire.DecodeMessage(dg.data)
		require.NoError(t, err)
		if dg.loc.Equal(locA) {
			require.Len(t, msg.Submessages, 2)
		} else {
			require.Len(t, msg.Submessages, 1)
		}
	}
}

func TestFlushPrependsInfoDstWhenDestKnown(t *testing.T) {
	ft := &fakeTransport{}
	s := New(ft, testHeader(), wire.LittleEndian)

	loc := rtps.NewUDPv4Locator([]byte{127, 0, 0, 1}, 7410)
	d := wire.Data{WriterId: guid.EntityId{Kind: guid.EntityKindWriterNoKey}, WriterSN: 1, HasPayload: true, Payload: []byte("a")}
	s.EnqueueTo(loc, wire.EncodeData(d, wire.LittleEndian))

	dest := guid.GuidPrefix{9, 9, 9}
	require.NoError(t, s.Flush(dest))
	require.Len(t, ft.sent, 1)

	msg, err := wire.DecodeMessage(ft.sent[0].data)
	require.NoError(t, err)
	require.Len(t, msg.Submessages, 2)
	require.Equal(t, wire.KindInfoDst, msg.Submessages[0].Kind)

	got, err := wire.DecodeInfoDst(msg.Submessages[0])
	require.NoError(t, err)
	require.Equal(t, dest, got.Prefix)
}

func TestFlushKeepsQueueOnSendError(t *testing.T) {
	ft := &fakeTransport{err: context.Canceled}
	s := New(ft, testHeader(), wire.LittleEndian)
	loc := rtps.NewUDPv4Locator([]byte{127, 0, 0, 1}, 7410)
	s.EnqueueTo(loc, wire.EncodeData(wire.Data{WriterId: guid.EntityId{Kind: guid.EntityKindWriterNoKey}, WriterSN: 1}, wire.LittleEndian))

	err := s.Flush(guid.GuidPrefix{})
	require.Error(t, err)
	require.Equal(t, 1, s.Pending(), "failed sends must stay queued for retry")
}
