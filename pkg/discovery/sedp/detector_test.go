package sedp_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"rtps-go/internal/config"
	"rtps-go/pkg/discovery/sedp"
	"rtps-go/pkg/endpoint"
	"rtps-go/pkg/guid"
	"rtps-go/pkg/history"
	"rtps-go/pkg/registry"
	"rtps-go/pkg/rtps"
)

type fakeTransport struct{}

func (fakeTransport) Send(rtps.Locator, []byte) error { return nil }
func (fakeTransport) Recv(ctx context.Context) (rtps.Locator, []byte, error) {
	<-ctx.Done()
	return rtps.Locator{}, nil, ctx.Err()
}
func (fakeTransport) JoinMulticast(rtps.Locator) error { return nil }
func (fakeTransport) LocalLocator() rtps.Locator {
	return rtps.NewUDPv4Locator(net.IPv4(127, 0, 0, 1), 7410)
}
func (fakeTransport) Close() error { return nil }

func newTestParticipant(prefixByte byte) *registry.Participant {
	cfg := config.Default()
	cfg.GuidPrefix = guid.GuidPrefix{prefixByte}
	return registry.New(cfg, fakeTransport{})
}

func TestRegisterWriterAnnouncesOnSEDPPubWriter(t *testing.T) {
	p := newTestParticipant(1)
	a := sedp.NewAnnouncer(p)

	w := p.AddStatefulWriter(guid.EntityKindWriterNoKey, endpoint.Reliable, true, history.New())
	before, _ := p.Builtin.SEDPPubWriter.Cache.MaxSeq()
	a.RegisterWriter(w, "sensors/temperature", "Temperature", sedp.QoS{Reliability: sedp.ReliabilityReliable}, nil)
	after, ok := p.Builtin.SEDPPubWriter.Cache.MaxSeq()
	require.True(t, ok)
	require.Greater(t, after, before)
}

func TestDetectorMatchesCompatibleWriterAndReader(t *testing.T) {
	p := newTestParticipant(1)
	a := sedp.NewAnnouncer(p)
	sedp.NewDetector(a)

	w := p.AddStatefulWriter(guid.EntityKindWriterNoKey, endpoint.Reliable, true, history.New())

	var matched sedp.EndpointData
	matchedCh := make(chan struct{}, 1)
	a.RegisterWriter(w, "sensors/temperature", "Temperature", sedp.QoS{Reliability: sedp.ReliabilityReliable}, func(remote sedp.EndpointData) {
		matched = remote
		matchedCh <- struct{}{}
	})

	remotePrefix := guid.GuidPrefix{9}
	remoteReaderGUID := guid.New(remotePrefix, guid.EntityId{Key: [3]byte{4, 5, 6}, Kind: guid.EntityKindReaderNoKey})
	remoteData := sedp.EndpointData{
		EndpointGUID: remoteReaderGUID,
		TopicName:    "sensors/temperature",
		TypeName:     "Temperature",
		QoS:          sedp.QoS{Reliability: sedp.ReliabilityReliable},
	}
	change := rtps.CacheChange{
		Kind:           rtps.ChangeAlive,
		WriterGUID:     guid.New(remotePrefix, guid.EntityIdSEDPBuiltinSubscriptionsWriter),
		SequenceNumber: 1,
		DataValue:      sedp.EncodeEndpointData(remoteData),
	}
	p.Builtin.SEDPSubReader.OnChange(change)

	select {
	case <-matchedCh:
	default:
		t.Fatal("onMatch was never invoked for a compatible remote reader")
	}
	require.Equal(t, remoteReaderGUID, matched.EndpointGUID)
}

func TestDetectorDoesNotMatchIncompatibleQoS(t *testing.T) {
	p := newTestParticipant(1)
	a := sedp.NewAnnouncer(p)
	sedp.NewDetector(a)

	w := p.AddStatefulWriter(guid.EntityKindWriterNoKey, endpoint.Reliable, true, history.New())
	matched := false
	a.RegisterWriter(w, "sensors/temperature", "Temperature", sedp.QoS{Reliability: sedp.ReliabilityBestEffort}, func(remote sedp.EndpointData) {
		matched = true
	})

	remotePrefix := guid.GuidPrefix{9}
	remoteData := sedp.EndpointData{
		EndpointGUID: guid.New(remotePrefix, guid.EntityId{Key: [3]byte{4, 5, 6}, Kind: guid.EntityKindReaderNoKey}),
		TopicName:    "sensors/temperature",
		TypeName:     "Temperature",
		QoS:          sedp.QoS{Reliability: sedp.ReliabilityReliable},
	}
	change := rtps.CacheChange{
		Kind:           rtps.ChangeAlive,
		WriterGUID:     guid.New(remotePrefix, guid.EntityIdSEDPBuiltinSubscriptionsWriter),
		SequenceNumber: 1,
		DataValue:      sedp.EncodeEndpointData(remoteData),
	}
	p.Builtin.SEDPSubReader.OnChange(change)

	require.False(t, matched, "a BEST_EFFORT writer must not satisfy a RELIABLE request")
}

func TestDetectorIgnoresSamplesFromItself(t *testing.T) {
	p := newTestParticipant(1)
	a := sedp.NewAnnouncer(p)
	sedp.NewDetector(a)

	w := p.AddStatefulWriter(guid.EntityKindWriterNoKey, endpoint.Reliable, true, history.New())
	matched := false
	a.RegisterWriter(w, "sensors/temperature", "Temperature", sedp.QoS{}, func(remote sedp.EndpointData) {
		matched = true
	})

	selfData := sedp.EndpointData{
		EndpointGUID: guid.New(p.Config.GuidPrefix, guid.EntityId{Key: [3]byte{7, 7, 7}, Kind: guid.EntityKindReaderNoKey}),
		TopicName:    "sensors/temperature",
		TypeName:     "Temperature",
	}
	change := rtps.CacheChange{
		Kind:           rtps.ChangeAlive,
		WriterGUID:     guid.New(p.Config.GuidPrefix, guid.EntityIdSEDPBuiltinSubscriptionsWriter),
		SequenceNumber: 1,
		DataValue:      sedp.EncodeEndpointData(selfData),
	}
	p.Builtin.SEDPSubReader.OnChange(change)

	require.False(t, matched, "a looped-back self announcement must not match")
}
