package proxy

import (
	"testing"

	"rtps-go/pkg/rtps"

	"github.com/stretchr/testify/require"
)

// Scenario 1 from spec.md §8.
func TestWriterProxyOrderedDelivery(t *testing.T) {
	wp := NewWriterProxy(zeroGUID(), nil, nil)
	wp.ReceivedChangeSet(1)
	wp.ReceivedChangeSet(2)
	wp.ReceivedChangeSet(3)
	require.Equal(t, rtps.SequenceNumber(3), wp.AvailableChangesMax())
	require.Empty(t, wp.Unknown())
}

// Scenario 2 from spec.md §8.
func TestWriterProxyOutOfOrderDelivery(t *testing.T) {
	wp := NewWriterProxy(zeroGUID(), nil, nil)

	wp.ReceivedChangeSet(3)
	require.Equal(t, []rtps.SequenceNumber{1, 2}, wp.Unknown())
	require.Equal(t, rtps.SequenceNumber(0), wp.AvailableChangesMax())

	wp.ReceivedChangeSet(1)
	require.Equal(t, []rtps.SequenceNumber{2}, wp.Unknown())
	require.Equal(t, rtps.SequenceNumber(1), wp.AvailableChangesMax())

	wp.ReceivedChangeSet(2)
	require.Empty(t, wp.Unknown())
	require.Equal(t, rtps.SequenceNumber(3), wp.AvailableChangesMax())
}

// Scenario 3 from spec.md §8.
func TestWriterProxyLostUpdateAcrossHighest(t *testing.T) {
	wp := NewWriterProxy(zeroGUID(), nil, nil)
	wp.ReceivedChangeSet(3)

	wp.LostChangesUpdate(3)
	require.Equal(t, []rtps.SequenceNumber{1, 2}, wp.Lost())
	require.Equal(t, rtps.SequenceNumber(3), wp.AvailableChangesMax())

	wp.LostChangesUpdate(5)
	require.Equal(t, []rtps.SequenceNumber{1, 2, 4}, wp.Lost())
	require.Equal(t, rtps.SequenceNumber(4), wp.AvailableChangesMax())
}

func TestWriterProxyMissingChangesUpdate(t *testing.T) {
	wp := NewWriterProxy(zeroGUID(), nil, nil)
	wp.MissingChangesUpdate(3)
	require.Equal(t, []rtps.SequenceNumber{1, 2, 3}, wp.Missing())
	require.Equal(t, rtps.SequenceNumber(0), wp.AvailableChangesMax())
}

func TestWriterProxySetsStayDisjoint(t *testing.T) {
	wp := NewWriterProxy(zeroGUID(), nil, nil)
	wp.ReceivedChangeSet(5)
	wp.MissingChangesUpdate(5)
	wp.LostChangesUpdate(3)

	seen := map[rtps.SequenceNumber]int{}
	for _, sn := range wp.Unknown() {
		seen[sn]++
	}
	for _, sn := range wp.Missing() {
		seen[sn]++
	}
	for _, sn := range wp.Lost() {
		seen[sn]++
	}
	for sn, count := range seen {
		require.Equalf(t, 1, count, "sequence number %d appeared in more than one set", sn)
	}
}

func TestCountGreaterWrapsAround(t *testing.T) {
	require.True(t, CountGreater(1, 0))
	require.False(t, CountGreater(0, 1))
	require.True(t, CountGreater(0, ^uint32(0))) // wraps past max uint32
	require.False(t, CountGreater(^uint32(0), 0))
}
