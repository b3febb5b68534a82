package proxy

import (
	"testing"

	"rtps-go/pkg/rtps"

	"github.com/stretchr/testify/require"
)

func TestReaderProxyNextUnsentChange(t *testing.T) {
	rp := NewReaderProxy(zeroGUID(), nil, nil, false)

	sn, ok := rp.NextUnsentChange(2)
	require.True(t, ok)
	require.Equal(t, rtps.SequenceNumber(1), sn)

	sn, ok = rp.NextUnsentChange(2)
	require.True(t, ok)
	require.Equal(t, rtps.SequenceNumber(2), sn)

	_, ok = rp.NextUnsentChange(2)
	require.False(t, ok)
}

func TestReaderProxyAckedAndUnacked(t *testing.T) {
	rp := NewReaderProxy(zeroGUID(), nil, nil, false)
	rp.AckedChangesSet(3)
	require.Equal(t, rtps.SequenceNumber(3), rp.HighestAcked())
	require.Equal(t, []rtps.SequenceNumber{4, 5}, rp.UnackedChanges(5))
}

func TestReaderProxyRequestedChangesQueue(t *testing.T) {
	rp := NewReaderProxy(zeroGUID(), nil, nil, false)
	rp.RequestedChangesSet([]rtps.SequenceNumber{5, 2, 8})
	rp.RequestedChangesSet([]rtps.SequenceNumber{2}) // union, not replace

	var popped []rtps.SequenceNumber
	for rp.HasRequested() {
		sn, ok := rp.NextRequestedChange()
		require.True(t, ok)
		popped = append(popped, sn)
	}
	require.Equal(t, []rtps.SequenceNumber{2, 5, 8}, popped)
}

func TestReaderProxyHeartbeatCountMonotonic(t *testing.T) {
	rp := NewReaderProxy(zeroGUID(), nil, nil, false)
	first := rp.IncrementHeartbeatCount()
	second := rp.IncrementHeartbeatCount()
	require.True(t, CountGreater(second, first))
}
