package spdp

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"rtps-go/pkg/rtps"
	"rtps-go/pkg/wire"
)

func TestEncodeDecodeParticipantDataRoundTrips(t *testing.T) {
	want := ParticipantData{
		DomainID:                         3,
		DomainTag:                        "lab",
		ProtocolVersion:                  wire.ProtocolVersion24,
		VendorID:                         wire.VendorIdThisImplementation,
		ExpectsInlineQos:                 true,
		MetatrafficUnicastLocator:        rtps.NewUDPv4Locator(net.IPv4(10, 0, 0, 5), 7410),
		MetatrafficMulticastLocator:      rtps.MetatrafficMulticastLocator(3),
		DefaultUnicastLocator:            rtps.NewUDPv4Locator(net.IPv4(10, 0, 0, 5), 7411),
		DefaultMulticastLocator:          rtps.InvalidLocator,
		BuiltinEndpointSet:               AllBuiltinEndpoints,
		ParticipantLeaseDuration:         rtps.NewDuration(10, 0),
		ParticipantManualLivelinessCount: 2,
	}

	buf := EncodeParticipantData(want)
	got, err := DecodeParticipantData(buf)
	require.NoError(t, err)

	require.Equal(t, want.DomainID, got.DomainID)
	require.Equal(t, want.DomainTag, got.DomainTag)
	require.Equal(t, want.ProtocolVersion, got.ProtocolVersion)
	require.Equal(t, want.VendorID, got.VendorID)
	require.Equal(t, want.ExpectsInlineQos, got.ExpectsInlineQos)
	require.True(t, want.MetatrafficUnicastLocator.Equal(got.MetatrafficUnicastLocator))
	require.True(t, want.MetatrafficMulticastLocator.Equal(got.MetatrafficMulticastLocator))
	require.True(t, want.DefaultUnicastLocator.Equal(got.DefaultUnicastLocator))
	require.True(t, got.DefaultMulticastLocator.IsInvalid())
	require.Equal(t, want.BuiltinEndpointSet, got.BuiltinEndpointSet)
	require.Equal(t, want.ParticipantLeaseDuration, got.ParticipantLeaseDuration)
	require.Equal(t, want.ParticipantManualLivelinessCount, got.ParticipantManualLivelinessCount)
}

func TestDecodeParticipantDataDefaultsOptionalFieldsWhenAbsent(t *testing.T) {
	minimal := ParticipantData{
		DomainID:           7,
		BuiltinEndpointSet: AllBuiltinEndpoints,
	}
	buf := EncodeParticipantData(minimal)
	got, err := DecodeParticipantData(buf)
	require.NoError(t, err)

	require.Equal(t, uint32(7), got.DomainID)
	require.Equal(t, "", got.DomainTag)
	require.True(t, got.MetatrafficUnicastLocator.IsInvalid())
	require.True(t, got.MetatrafficMulticastLocator.IsInvalid())
	require.True(t, got.DefaultUnicastLocator.IsInvalid())
	require.True(t, got.DefaultMulticastLocator.IsInvalid())
}
