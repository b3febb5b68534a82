package spdp_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"rtps-go/internal/config"
	"rtps-go/pkg/discovery/spdp"
	"rtps-go/pkg/guid"
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

func TestAnnounceEnqueuesSampleOnSPDPWriter(t *testing.T) {
	p := newTestParticipant(1)
	a := spdp.NewAnnouncer(p)

	before, _ := p.Builtin.SPDPWriter.Cache.MaxSeq()
	a.Announce()
	after, ok := p.Builtin.SPDPWriter.Cache.MaxSeq()
	require.True(t, ok)
	require.Greater(t, after, before)
}

func TestDetectorMatchesSEDPProxiesFromRemoteSample(t *testing.T) {
	local := newTestParticipant(1)
	spdp.NewDetector(local)

	remotePrefix := guid.GuidPrefix{9}
	data := spdp.ParticipantData{
		DomainID:                  local.Config.DomainID,
		DomainTag:                 local.Config.DomainTag,
		MetatrafficUnicastLocator: rtps.NewUDPv4Locator(net.IPv4(10, 0, 0, 9), 7410),
		BuiltinEndpointSet:        spdp.AllBuiltinEndpoints,
	}
	change := rtps.CacheChange{
		Kind:           rtps.ChangeAlive,
		WriterGUID:     guid.New(remotePrefix, guid.EntityIdSPDPBuiltinParticipantWriter),
		SequenceNumber: 1,
		DataValue:      spdp.EncodeParticipantData(data),
	}

	local.Builtin.SPDPReader.OnChange(change)

	remoteSEDPPubWriter := guid.New(remotePrefix, guid.EntityIdSEDPBuiltinPublicationsWriter)
	_, ok := local.Builtin.SEDPPubReader.WriterProxyFor(remoteSEDPPubWriter)
	require.True(t, ok, "expected a WriterProxy for the remote's SEDP publications writer")

	remoteSEDPSubReader := guid.New(remotePrefix, guid.EntityIdSEDPBuiltinSubscriptionsReader)
	_, ok = local.Builtin.SEDPSubWriter.ReaderProxyFor(remoteSEDPSubReader)
	require.True(t, ok, "expected a ReaderProxy for the remote's SEDP subscriptions reader")
}

func TestDetectorIgnoresSamplesFromOtherDomains(t *testing.T) {
	local := newTestParticipant(1)
	spdp.NewDetector(local)

	remotePrefix := guid.GuidPrefix{9}
	data := spdp.ParticipantData{
		DomainID:           local.Config.DomainID + 1,
		BuiltinEndpointSet: spdp.AllBuiltinEndpoints,
	}
	change := rtps.CacheChange{
		Kind:           rtps.ChangeAlive,
		WriterGUID:     guid.New(remotePrefix, guid.EntityIdSPDPBuiltinParticipantWriter),
		SequenceNumber: 1,
		DataValue:      spdp.EncodeParticipantData(data),
	}

	local.Builtin.SPDPReader.OnChange(change)

	_, ok := local.Builtin.SEDPPubReader.WriterProxyFor(guid.New(remotePrefix, guid.EntityIdSEDPBuiltinPublicationsWriter))
	require.False(t, ok, "a sample from a different domain must not be matched")
}

func TestSweepExpiredLeasesForgetsStaleParticipant(t *testing.T) {
	local := newTestParticipant(1)
	detector := spdp.NewDetector(local)

	remotePrefix := guid.GuidPrefix{9}
	data := spdp.ParticipantData{
		DomainID:           local.Config.DomainID,
		BuiltinEndpointSet: spdp.AllBuiltinEndpoints,
	}
	change := rtps.CacheChange{
		Kind:           rtps.ChangeAlive,
		WriterGUID:     guid.New(remotePrefix, guid.EntityIdSPDPBuiltinParticipantWriter),
		SequenceNumber: 1,
		DataValue:      spdp.EncodeParticipantData(data),
	}
	local.Builtin.SPDPReader.OnChange(change)

	remoteWriter := guid.New(remotePrefix, guid.EntityIdSEDPBuiltinPublicationsWriter)
	_, ok := local.Builtin.SEDPPubReader.WriterProxyFor(remoteWriter)
	require.True(t, ok)

	detector.SweepExpiredLeases(0)

	_, ok = local.Builtin.SEDPPubReader.WriterProxyFor(remoteWriter)
	require.False(t, ok, "a lease older than the sweep duration should be forgotten")
}
