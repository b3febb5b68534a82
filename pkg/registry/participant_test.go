package registry

import (
	"context"
	"testing"
	"time"

	"rtps-go/internal/config"
	"rtps-go/pkg/endpoint"
	"rtps-go/pkg/guid"
	"rtps-go/pkg/history"
	"rtps-go/pkg/rtps"

	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	sent []struct {
		loc  rtps.Locator
		data []byte
	}
}

func (f *fakeTransport) Send(loc rtps.Locator, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	f.sent = append(f.sent, struct {
		loc  rtps.Locator
		data []byte
	}{loc, cp})
	return nil
}
func (f *fakeTransport) Recv(ctx context.Context) (rtps.Locator, []byte, error) {
	<-ctx.Done()
	return rtps.Locator{}, nil, ctx.Err()
}
func (f *fakeTransport) JoinMulticast(rtps.Locator) error { return nil }
func (f *fakeTransport) LocalLocator() rtps.Locator       { return rtps.NewUDPv4Locator([]byte{127, 0, 0, 1}, 7410) }
func (f *fakeTransport) Close() error                     { return nil }

func testConfig() config.Config {
	cfg := config.Default()
	cfg.GuidPrefix = guid.GuidPrefix{1}
	return cfg
}

func TestNewCreatesBuiltinEndpointsUnderReservedIds(t *testing.T) {
	p := New(testConfig(), &fakeTransport{})

	_, ok := p.ReaderByEntity(guid.EntityIdSPDPBuiltinParticipantReader)
	require.True(t, ok)
	_, ok = p.WriterByEntity(guid.EntityIdSPDPBuiltinParticipantWriter)
	require.True(t, ok)
	_, ok = p.WriterByEntity(guid.EntityIdSEDPBuiltinPublicationsWriter)
	require.True(t, ok)
	_, ok = p.ReaderByEntity(guid.EntityIdSEDPBuiltinSubscriptionsReader)
	require.True(t, ok)
}

func TestNextEntityIdIsMonotonicAndUnique(t *testing.T) {
	p := New(testConfig(), &fakeTransport{})

	seen := make(map[guid.EntityId]struct{})
	for i := 0; i < 5; i++ {
		id := p.nextEntityId(guid.EntityKindWriterNoKey)
		_, dup := seen[id]
		require.False(t, dup, "entity id %v reused", id)
		seen[id] = struct{}{}
	}
}

func TestAddStatefulWriterRegistersUnderDispensedId(t *testing.T) {
	p := New(testConfig(), &fakeTransport{})
	w := p.AddStatefulWriter(guid.EntityKindWriterNoKey, endpoint.Reliable, true, history.New())

	sink, ok := p.WriterByEntity(w.GUID.Entity)
	require.True(t, ok)
	require.Same(t, w, sink)
}

func TestLocalPrefixMatchesConfig(t *testing.T) {
	cfg := testConfig()
	p := New(cfg, &fakeTransport{})
	require.Equal(t, cfg.GuidPrefix, p.LocalPrefix())
}

func TestTickOnceFlushesPendingSubmessagesThroughTransport(t *testing.T) {
	ft := &fakeTransport{}
	p := New(testConfig(), ft)

	// createBuiltins already matched the SPDP writer to the metatraffic
	// multicast locator's ReaderLocator; a fresh cache change should be
	// emitted as DATA to it on the first tick without any further matching.
	p.Builtin.SPDPWriter.Cache.Add(rtps.CacheChange{
		Kind:           rtps.ChangeAlive,
		WriterGUID:     p.Builtin.SPDPWriter.GUID,
		SequenceNumber: 1,
		DataValue:      []byte("spdp-sample"),
	})

	p.tickOnce(time.Now())

	require.NotEmpty(t, ft.sent, "tick should have flushed the pushed DATA for the SPDP writer")
}

func TestCheckDeadlinesOnceFlagsStatefulWriter(t *testing.T) {
	p := New(testConfig(), &fakeTransport{})
	w := p.AddStatefulWriter(guid.EntityKindWriterNoKey, endpoint.Reliable, true, history.New())
	w.Deadline = time.Millisecond
	w.NewChange()

	var got endpoint.StatusChange
	w.Listener = func(sc endpoint.StatusChange) { got = sc }

	p.checkDeadlinesOnce(time.Now().Add(time.Second))

	require.Equal(t, endpoint.OfferedDeadlineMissed, got.Kind)
}

func TestCheckLivelinessOnceAssertsEveryStatefulWriter(t *testing.T) {
	p := New(testConfig(), &fakeTransport{})
	w := p.AddStatefulWriter(guid.EntityKindWriterNoKey, endpoint.Reliable, true, history.New())
	w.LivelinessLeaseDuration = time.Hour

	now := time.Now()
	p.checkLivelinessOnce(now)

	require.Equal(t, uint32(0), w.LivelinessLostCount(), "a freshly asserted writer must not be flagged lost")
}
