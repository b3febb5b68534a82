// Package spdp implements the Simple Participant Discovery Protocol: the
// DiscoveredParticipantData payload schema, and the announce/detect
// workflow that turns a received sample into SEDP proxy matches.
package spdp

import (
	"encoding/binary"

	"rtps-go/pkg/guid"
	"rtps-go/pkg/rtps"
	"rtps-go/pkg/wire"
)

// Parameter ids for DiscoveredParticipantData, per spec.md §4.H's table.
const (
	pidDomainID                         uint16 = 0x000f
	pidDomainTag                        uint16 = 0x4014
	pidProtocolVersion                  uint16 = 0x0015
	pidVendorID                         uint16 = 0x0016
	pidExpectsInlineQos                 uint16 = 0x0043
	pidMetatrafficUnicastLocator        uint16 = 0x0032
	pidMetatrafficMulticastLocator      uint16 = 0x0033
	pidDefaultUnicastLocator            uint16 = 0x0031
	pidDefaultMulticastLocator          uint16 = 0x0048
	pidBuiltinEndpointSet               uint16 = 0x0058
	pidParticipantLeaseDuration         uint16 = 0x0002
	pidParticipantManualLivelinessCount uint16 = 0x0034
)

// AllBuiltinEndpoints is the BuiltInEndpointSet bitfield value advertised by
// a participant that carries all eight built-in discovery endpoints, which
// every participant in this implementation does (pkg/registry.createBuiltins
// always constructs the full SPDP+SEDP set).
const AllBuiltinEndpoints = guid.BuiltinEndpointParticipantAnnouncer |
	guid.BuiltinEndpointParticipantDetector |
	guid.BuiltinEndpointPublicationsAnnouncer |
	guid.BuiltinEndpointPublicationsDetector |
	guid.BuiltinEndpointSubscriptionsAnnouncer |
	guid.BuiltinEndpointSubscriptionsDetector |
	guid.BuiltinEndpointTopicsAnnouncer |
	guid.BuiltinEndpointTopicsDetector

// ParticipantData is the DiscoveredParticipantData payload spec.md §4.H
// defines.
type ParticipantData struct {
	DomainID                         uint32
	DomainTag                        string
	ProtocolVersion                  wire.ProtocolVersion
	VendorID                         wire.VendorId
	ExpectsInlineQos                 bool
	MetatrafficUnicastLocator        rtps.Locator
	MetatrafficMulticastLocator      rtps.Locator
	DefaultUnicastLocator            rtps.Locator
	DefaultMulticastLocator          rtps.Locator
	BuiltinEndpointSet               guid.BuiltinEndpointBit
	ParticipantLeaseDuration         rtps.Duration
	ParticipantManualLivelinessCount int32
}

// EncodeParticipantData serializes d as a PL_CDR_LE discovery payload.
func EncodeParticipantData(d ParticipantData) []byte {
	params := []rtps.Parameter{
		{ID: pidDomainID, Value: encodeU32(d.DomainID)},
		{ID: pidProtocolVersion, Value: []byte{d.ProtocolVersion.Major, d.ProtocolVersion.Minor}},
		{ID: pidVendorID, Value: []byte{d.VendorID[0], d.VendorID[1]}},
		{ID: pidExpectsInlineQos, Value: encodeBool(d.ExpectsInlineQos)},
		{ID: pidBuiltinEndpointSet, Value: encodeU32(uint32(d.BuiltinEndpointSet))},
		{ID: pidParticipantLeaseDuration, Value: encodeDuration(d.ParticipantLeaseDuration)},
		{ID: pidParticipantManualLivelinessCount, Value: encodeU32(uint32(d.ParticipantManualLivelinessCount))},
	}
	if d.DomainTag != "" {
		params = append(params, rtps.Parameter{ID: pidDomainTag, Value: encodeString(d.DomainTag)})
	}
	if !d.MetatrafficUnicastLocator.IsInvalid() {
		params = append(params, rtps.Parameter{ID: pidMetatrafficUnicastLocator, Value: wire.EncodeLocator(d.MetatrafficUnicastLocator, wire.LittleEndian)})
	}
	if !d.MetatrafficMulticastLocator.IsInvalid() {
		params = append(params, rtps.Parameter{ID: pidMetatrafficMulticastLocator, Value: wire.EncodeLocator(d.MetatrafficMulticastLocator, wire.LittleEndian)})
	}
	if !d.DefaultUnicastLocator.IsInvalid() {
		params = append(params, rtps.Parameter{ID: pidDefaultUnicastLocator, Value: wire.EncodeLocator(d.DefaultUnicastLocator, wire.LittleEndian)})
	}
	if !d.DefaultMulticastLocator.IsInvalid() {
		params = append(params, rtps.Parameter{ID: pidDefaultMulticastLocator, Value: wire.EncodeLocator(d.DefaultMulticastLocator, wire.LittleEndian)})
	}
	return wire.EncodeDiscoveryPayload(params, wire.LittleEndian)
}

// DecodeParticipantData parses a DiscoveredParticipantData payload.
// Parameters absent from buf do not cause an error, since an
// implementation may omit optional fields: absent locators are set to
// rtps.InvalidLocator, and every other absent field is left at its zero
// value.
func DecodeParticipantData(buf []byte) (ParticipantData, error) {
	params, err := wire.DecodeDiscoveryPayload(buf)
	if err != nil {
		return ParticipantData{}, err
	}
	var d ParticipantData
	d.MetatrafficUnicastLocator = rtps.InvalidLocator
	d.MetatrafficMulticastLocator = rtps.InvalidLocator
	d.DefaultUnicastLocator = rtps.InvalidLocator
	d.DefaultMulticastLocator = rtps.InvalidLocator

	if v, ok := wire.FindParameter(params, pidDomainID); ok {
		d.DomainID = decodeU32(v)
	}
	if v, ok := wire.FindParameter(params, pidDomainTag); ok {
		d.DomainTag = decodeString(v)
	}
	if v, ok := wire.FindParameter(params, pidProtocolVersion); ok && len(v) >= 2 {
		d.ProtocolVersion = wire.ProtocolVersion{Major: v[0], Minor: v[1]}
	}
	if v, ok := wire.FindParameter(params, pidVendorID); ok && len(v) >= 2 {
		d.VendorID = wire.VendorId{v[0], v[1]}
	}
	if v, ok := wire.FindParameter(params, pidExpectsInlineQos); ok {
		d.ExpectsInlineQos = decodeBool(v)
	}
	if v, ok := wire.FindParameter(params, pidMetatrafficUnicastLocator); ok {
		if loc, err := wire.DecodeLocator(v, wire.LittleEndian); err == nil {
			d.MetatrafficUnicastLocator = loc
		}
	}
	if v, ok := wire.FindParameter(params, pidMetatrafficMulticastLocator); ok {
		if loc, err := wire.DecodeLocator(v, wire.LittleEndian); err == nil {
			d.MetatrafficMulticastLocator = loc
		}
	}
	if v, ok := wire.FindParameter(params, pidDefaultUnicastLocator); ok {
		if loc, err := wire.DecodeLocator(v, wire.LittleEndian); err == nil {
			d.DefaultUnicastLocator = loc
		}
	}
	if v, ok := wire.FindParameter(params, pidDefaultMulticastLocator); ok {
		if loc, err := wire.DecodeLocator(v, wire.LittleEndian); err == nil {
			d.DefaultMulticastLocator = loc
		}
	}
	if v, ok := wire.FindParameter(params, pidBuiltinEndpointSet); ok {
		d.BuiltinEndpointSet = guid.BuiltinEndpointBit(decodeU32(v))
	}
	if v, ok := wire.FindParameter(params, pidParticipantLeaseDuration); ok {
		d.ParticipantLeaseDuration = decodeDuration(v)
	}
	if v, ok := wire.FindParameter(params, pidParticipantManualLivelinessCount); ok {
		d.ParticipantManualLivelinessCount = int32(decodeU32(v))
	}
	return d, nil
}

func encodeU32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func decodeU32(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func encodeBool(v bool) []byte {
	if v {
		return []byte{1, 0, 0, 0}
	}
	return []byte{0, 0, 0, 0}
}

func decodeBool(b []byte) bool {
	return len(b) > 0 && b[0] != 0
}

// encodeString writes a CDR string: a 4-octet length (including the
// trailing NUL) followed by the octets and the NUL.
func encodeString(s string) []byte {
	raw := append([]byte(s), 0)
	b := make([]byte, 4+len(raw))
	binary.LittleEndian.PutUint32(b, uint32(len(raw)))
	copy(b[4:], raw)
	return b
}

func decodeString(b []byte) string {
	if len(b) < 4 {
		return ""
	}
	n := int(binary.LittleEndian.Uint32(b))
	if n == 0 || n > len(b)-4 {
		return ""
	}
	s := b[4 : 4+n]
	if len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return string(s)
}

func encodeDuration(d rtps.Duration) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:4], uint32(d.Seconds))
	binary.LittleEndian.PutUint32(b[4:8], d.Nanos)
	return b
}

func decodeDuration(b []byte) rtps.Duration {
	if len(b) < 8 {
		return rtps.Duration{}
	}
	return rtps.Duration{
		Seconds: int32(binary.LittleEndian.Uint32(b[0:4])),
		Nanos:   binary.LittleEndian.Uint32(b[4:8]),
	}
}
