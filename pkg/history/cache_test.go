package history

import (
	"testing"

	"rtps-go/pkg/rtps"

	"github.com/stretchr/testify/require"
)

func change(sn rtps.SequenceNumber) rtps.CacheChange {
	return rtps.CacheChange{SequenceNumber: sn, Kind: rtps.ChangeAlive, DataValue: []byte("x")}
}

func TestCacheAddGetRemove(t *testing.T) {
	c := New()
	c.Add(change(1))
	c.Add(change(2))

	got, ok := c.Get(1)
	require.True(t, ok)
	require.Equal(t, rtps.SequenceNumber(1), got.SequenceNumber)

	c.Remove(1)
	_, ok = c.Get(1)
	require.False(t, ok)
	require.Equal(t, 1, c.Len())
}

func TestCacheAddIsIdempotentPerSequence(t *testing.T) {
	c := New()
	c.Add(change(1))
	dup := change(1)
	dup.DataValue = []byte("different")
	c.Add(dup)

	got, ok := c.Get(1)
	require.True(t, ok)
	require.Equal(t, []byte("x"), got.DataValue)
}

func TestCacheMinMax(t *testing.T) {
	c := New()
	_, ok := c.MinSeq()
	require.False(t, ok)

	c.Add(change(5))
	c.Add(change(1))
	c.Add(change(3))

	min, ok := c.MinSeq()
	require.True(t, ok)
	require.Equal(t, rtps.SequenceNumber(1), min)

	max, ok := c.MaxSeq()
	require.True(t, ok)
	require.Equal(t, rtps.SequenceNumber(5), max)
}

func TestCacheIter(t *testing.T) {
	c := New()
	c.Add(change(1))
	c.Add(change(2))
	seen := map[rtps.SequenceNumber]bool{}
	c.Iter(func(ch rtps.CacheChange) { seen[ch.SequenceNumber] = true })
	require.Len(t, seen, 2)
}
