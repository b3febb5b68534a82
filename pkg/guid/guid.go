// Package guid implements the RTPS entity identification types: the
// 12-octet GuidPrefix shared by every endpoint of a participant, the
// 4-octet EntityId naming an endpoint within it, and the 16-octet GUID
// formed by concatenating the two.
package guid

import (
	"encoding/hex"
	"fmt"

	"github.com/rs/xid"
)

// PrefixLength is the size in octets of a GuidPrefix.
const PrefixLength = 12

// EntityIdLength is the size in octets of an EntityId.
const EntityIdLength = 4

// GuidPrefix identifies a participant; shared by all of its endpoints.
type GuidPrefix [PrefixLength]byte

// String renders the prefix as hex, e.g. for logging.
func (p GuidPrefix) String() string {
	return hex.EncodeToString(p[:])
}

// IsZero reports whether the prefix is the all-zero sentinel.
func (p GuidPrefix) IsZero() bool {
	return p == GuidPrefix{}
}

// NewRandomPrefix returns a GuidPrefix seeded from a freshly minted xid,
// the same globally-unique-identifier library runZeroInc-conniver and
// runZeroInc-sockstats use for their own session identifiers. xid packs a
// 12-byte value (4-byte timestamp + 3-byte machine id + 2-byte pid + 3-byte
// counter), which maps onto GuidPrefix without truncation.
func NewRandomPrefix() GuidPrefix {
	var p GuidPrefix
	id := xid.New()
	copy(p[:], id.Bytes())
	return p
}

// EntityKind is the low byte of an EntityId, encoding entity category,
// direction (reader/writer), and key-ness.
type EntityKind byte

// Entity kind bytes, per the DDSI-RTPS 2.4 reserved-ID table.
const (
	EntityKindUnknown                       EntityKind = 0x00
	EntityKindParticipant                   EntityKind = 0x01
	EntityKindWriterWithKey                 EntityKind = 0x02
	EntityKindWriterNoKey                   EntityKind = 0x03
	EntityKindReaderNoKey                   EntityKind = 0x04
	EntityKindReaderWithKey                 EntityKind = 0x07
	EntityKindWriterGroup                   EntityKind = 0x08
	EntityKindReaderGroup                   EntityKind = 0x09
	EntityKindBuiltinParticipant             EntityKind = 0xc1
	EntityKindBuiltinWriterWithKey           EntityKind = 0xc2
	EntityKindBuiltinWriterNoKey             EntityKind = 0xc3
	EntityKindBuiltinReaderNoKey             EntityKind = 0xc4
	EntityKindBuiltinReaderWithKey           EntityKind = 0xc7
	EntityKindBuiltinWriterGroup             EntityKind = 0xc8
	EntityKindBuiltinReaderGroup             EntityKind = 0xc9
)

// String renders the kind byte as hex, for use as a low-cardinality metric
// label.
func (k EntityKind) String() string {
	return hex.EncodeToString([]byte{byte(k)})
}

// EntityId is a 3-octet entity key plus a 1-octet kind.
type EntityId struct {
	Key  [3]byte
	Kind EntityKind
}

// Bytes returns the 4-octet wire form, key then kind.
func (e EntityId) Bytes() [4]byte {
	return [4]byte{e.Key[0], e.Key[1], e.Key[2], byte(e.Kind)}
}

// EntityIdFromBytes parses the 4-octet wire form.
func EntityIdFromBytes(b [4]byte) EntityId {
	return EntityId{Key: [3]byte{b[0], b[1], b[2]}, Kind: EntityKind(b[3])}
}

func (e EntityId) String() string {
	return fmt.Sprintf("%02x%02x%02x.%02x", e.Key[0], e.Key[1], e.Key[2], byte(e.Kind))
}

// IsBuiltin reports whether the kind byte marks a built-in (vendor-reserved)
// entity rather than a user-defined one.
func (e EntityId) IsBuiltin() bool {
	return byte(e.Kind)&0xc0 == 0xc0
}

// Reserved built-in entity ids, one pair per discovery protocol plus the
// participant itself. Readers and writers of a pair share the same 3-byte
// key; only the kind byte differs.
var (
	EntityIdUnknown = EntityId{Kind: EntityKindUnknown}

	EntityIdParticipant = EntityId{Key: [3]byte{0x00, 0x00, 0x01}, Kind: EntityKindBuiltinParticipant}

	// SPDP: participant discovery.
	EntityIdSPDPBuiltinParticipantWriter = EntityId{Key: [3]byte{0x00, 0x01, 0x00}, Kind: EntityKindBuiltinWriterWithKey}
	EntityIdSPDPBuiltinParticipantReader = EntityId{Key: [3]byte{0x00, 0x01, 0x00}, Kind: EntityKindBuiltinReaderWithKey}

	// SEDP: endpoint discovery, one pair per topic kind. Keys match the
	// DDSI-RTPS 2.4 reserved ID table (9.3.1.3): topics {00,00,02},
	// publications {00,00,03}, subscriptions {00,00,04}.
	EntityIdSEDPBuiltinTopicsWriter        = EntityId{Key: [3]byte{0x00, 0x00, 0x02}, Kind: EntityKindBuiltinWriterWithKey}
	EntityIdSEDPBuiltinTopicsReader        = EntityId{Key: [3]byte{0x00, 0x00, 0x02}, Kind: EntityKindBuiltinReaderWithKey}
	EntityIdSEDPBuiltinPublicationsWriter  = EntityId{Key: [3]byte{0x00, 0x00, 0x03}, Kind: EntityKindBuiltinWriterWithKey}
	EntityIdSEDPBuiltinPublicationsReader  = EntityId{Key: [3]byte{0x00, 0x00, 0x03}, Kind: EntityKindBuiltinReaderWithKey}
	EntityIdSEDPBuiltinSubscriptionsWriter = EntityId{Key: [3]byte{0x00, 0x00, 0x04}, Kind: EntityKindBuiltinWriterWithKey}
	EntityIdSEDPBuiltinSubscriptionsReader = EntityId{Key: [3]byte{0x00, 0x00, 0x04}, Kind: EntityKindBuiltinReaderWithKey}

	// Participant message: liveliness assertion carrier.
	EntityIdParticipantMessageWriter = EntityId{Key: [3]byte{0x00, 0x02, 0x00}, Kind: EntityKindBuiltinWriterNoKey}
	EntityIdParticipantMessageReader = EntityId{Key: [3]byte{0x00, 0x02, 0x00}, Kind: EntityKindBuiltinReaderNoKey}
)

// GUID is a participant's GuidPrefix combined with an EntityId.
type GUID struct {
	Prefix GuidPrefix
	Entity EntityId
}

func New(prefix GuidPrefix, entity EntityId) GUID {
	return GUID{Prefix: prefix, Entity: entity}
}

func (g GUID) String() string {
	return fmt.Sprintf("%s:%s", g.Prefix, g.Entity)
}

func (g GUID) IsUnknown() bool {
	return g.Entity == EntityIdUnknown
}

// BuiltinEndpointBit indexes the BuiltInEndpointSet bitfield carried in
// DiscoveredParticipantData (spec.md §4.H).
type BuiltinEndpointBit uint32

const (
	BuiltinEndpointParticipantAnnouncer BuiltinEndpointBit = 1 << 0
	BuiltinEndpointParticipantDetector  BuiltinEndpointBit = 1 << 1
	BuiltinEndpointPublicationsAnnouncer BuiltinEndpointBit = 1 << 2
	BuiltinEndpointPublicationsDetector  BuiltinEndpointBit = 1 << 3
	BuiltinEndpointSubscriptionsAnnouncer BuiltinEndpointBit = 1 << 4
	BuiltinEndpointSubscriptionsDetector  BuiltinEndpointBit = 1 << 5
	BuiltinEndpointTopicsAnnouncer BuiltinEndpointBit = 1 << 6
	BuiltinEndpointTopicsDetector  BuiltinEndpointBit = 1 << 7
)
