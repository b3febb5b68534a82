package transport

import (
	"context"
	"testing"
	"time"

	"rtps-go/pkg/rtps"

	"github.com/stretchr/testify/require"
)

func TestUDPSendRecvRoundTrip(t *testing.T) {
	a, err := ListenUDPv4("127.0.0.1", 0)
	require.NoError(t, err)
	defer a.Close()

	b, err := ListenUDPv4("127.0.0.1", 0)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Send(b.LocalLocator(), []byte("hello")))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	loc, data, err := b.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
	require.Equal(t, a.LocalLocator().Port, loc.Port)
}

func TestUDPRecvRespectsContextCancellation(t *testing.T) {
	a, err := ListenUDPv4("127.0.0.1", 0)
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err = a.Recv(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUDPSendToNonUDPLocatorErrors(t *testing.T) {
	a, err := ListenUDPv4("127.0.0.1", 0)
	require.NoError(t, err)
	defer a.Close()

	err = a.Send(rtps.InvalidLocator, []byte("x"))
	require.Error(t, err)
}

func TestUDPJoinMulticastDeliversToRecv(t *testing.T) {
	group := rtps.MetatrafficMulticastLocator(0)

	listener, err := ListenUDPv4("0.0.0.0", group.Port)
	require.NoError(t, err)
	defer listener.Close()
	require.NoError(t, listener.JoinMulticast(group))

	sender, err := ListenUDPv4("127.0.0.1", 0)
	require.NoError(t, err)
	defer sender.Close()

	require.NoError(t, sender.Send(group, []byte("announce")))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, data, err := listener.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("announce"), data)
}
