// Package sedp implements the Endpoint Discovery Protocol: the
// DiscoveredWriterData/DiscoveredReaderData/DiscoveredTopicData payload
// schemas, QoS compatibility, and the announce/detect workflow that
// matches a local endpoint against a remote one sharing a topic.
package sedp

import (
	"encoding/binary"

	"rtps-go/pkg/guid"
	"rtps-go/pkg/rtps"
	"rtps-go/pkg/wire"
)

// Parameter ids for DiscoveredWriterData/DiscoveredReaderData/
// DiscoveredTopicData, beyond the ones spec.md §4.H already names for
// SPDP.
const (
	pidEndpointGUID     uint16 = 0x005a
	pidTopicName        uint16 = 0x0005
	pidTypeName         uint16 = 0x0007
	pidReliability      uint16 = 0x001a
	pidDurability       uint16 = 0x001d
	pidDeadline         uint16 = 0x0023
	pidLiveliness       uint16 = 0x001b
	pidHistory          uint16 = 0x0040
	pidResourceLimits   uint16 = 0x0041
	pidUserData         uint16 = 0x002c
	pidPartition        uint16 = 0x0029
	pidUnicastLocator   uint16 = 0x002f
	pidMulticastLocator uint16 = 0x0030
)

// ReliabilityKind mirrors endpoint.Reliability at the wire level; kept as
// its own type since the wire enum values (1, 2) don't match endpoint.
// Reliability's iota-based (0, 1).
type ReliabilityKind uint32

const (
	ReliabilityBestEffort ReliabilityKind = 1
	ReliabilityReliable   ReliabilityKind = 2
)

// DurabilityKind selects how long a writer retains samples for
// late-joining readers.
type DurabilityKind uint32

const (
	DurabilityVolatile       DurabilityKind = 0
	DurabilityTransientLocal DurabilityKind = 1
	DurabilityTransient      DurabilityKind = 2
	DurabilityPersistent     DurabilityKind = 3
)

// LivelinessKind selects who is responsible for asserting an endpoint is
// still alive.
type LivelinessKind uint32

const (
	LivelinessAutomatic          LivelinessKind = 0
	LivelinessManualByParticipant LivelinessKind = 1
	LivelinessManualByTopic      LivelinessKind = 2
)

// HistoryKind selects whether a cache keeps only the last N samples per
// instance or all of them.
type HistoryKind uint32

const (
	HistoryKeepLast HistoryKind = 0
	HistoryKeepAll  HistoryKind = 1
)

// LivelinessQoS is the PID_LIVELINESS payload: kind plus lease duration.
type LivelinessQoS struct {
	Kind          LivelinessKind
	LeaseDuration rtps.Duration
}

// HistoryQoS is the PID_HISTORY payload: kind plus keep-last depth.
type HistoryQoS struct {
	Kind  HistoryKind
	Depth int32
}

// ResourceLimitsQoS is the PID_RESOURCE_LIMITS payload.
type ResourceLimitsQoS struct {
	MaxSamples             int32
	MaxInstances           int32
	MaxSamplesPerInstance  int32
}

// QoS bundles the endpoint QoS policies spec.md §4.H lists as carried by
// DiscoveredWriterData/DiscoveredReaderData.
type QoS struct {
	Reliability    ReliabilityKind
	Durability     DurabilityKind
	Deadline       rtps.Duration
	Liveliness     LivelinessQoS
	History        HistoryQoS
	ResourceLimits ResourceLimitsQoS
	UserData       []byte
	Partition      []string
}

// EndpointData is the DiscoveredWriterData/DiscoveredReaderData payload:
// identical shape for both, distinguished only by which SEDP endpoint
// carries it.
type EndpointData struct {
	EndpointGUID      guid.GUID
	TopicName         string
	TypeName          string
	UnicastLocators   []rtps.Locator
	MulticastLocators []rtps.Locator
	QoS               QoS
}

// TopicData is the DiscoveredTopicData payload: purely descriptive, no
// locators or endpoint identity.
type TopicData struct {
	TopicName string
	TypeName  string
	QoS       QoS
}

// EncodeEndpointData serializes d as a PL_CDR_LE discovery payload.
func EncodeEndpointData(d EndpointData) []byte {
	params := []rtps.Parameter{
		{ID: pidEndpointGUID, Value: encodeGUID(d.EndpointGUID)},
		{ID: pidTopicName, Value: encodeString(d.TopicName)},
		{ID: pidTypeName, Value: encodeString(d.TypeName)},
	}
	params = append(params, encodeQoS(d.QoS)...)
	for _, loc := range d.UnicastLocators {
		params = append(params, rtps.Parameter{ID: pidUnicastLocator, Value: wire.EncodeLocator(loc, wire.LittleEndian)})
	}
	for _, loc := range d.MulticastLocators {
		params = append(params, rtps.Parameter{ID: pidMulticastLocator, Value: wire.EncodeLocator(loc, wire.LittleEndian)})
	}
	return wire.EncodeDiscoveryPayload(params, wire.LittleEndian)
}

// DecodeEndpointData parses a DiscoveredWriterData/DiscoveredReaderData
// payload.
func DecodeEndpointData(buf []byte) (EndpointData, error) {
	params, err := wire.DecodeDiscoveryPayload(buf)
	if err != nil {
		return EndpointData{}, err
	}
	var d EndpointData
	if v, ok := wire.FindParameter(params, pidEndpointGUID); ok {
		d.EndpointGUID = decodeGUID(v)
	}
	if v, ok := wire.FindParameter(params, pidTopicName); ok {
		d.TopicName = decodeString(v)
	}
	if v, ok := wire.FindParameter(params, pidTypeName); ok {
		d.TypeName = decodeString(v)
	}
	d.QoS = decodeQoS(params)
	for _, v := range findAllParameters(params, pidUnicastLocator) {
		if loc, err := wire.DecodeLocator(v, wire.LittleEndian); err == nil {
			d.UnicastLocators = append(d.UnicastLocators, loc)
		}
	}
	for _, v := range findAllParameters(params, pidMulticastLocator) {
		if loc, err := wire.DecodeLocator(v, wire.LittleEndian); err == nil {
			d.MulticastLocators = append(d.MulticastLocators, loc)
		}
	}
	return d, nil
}

// EncodeTopicData serializes t as a PL_CDR_LE discovery payload.
func EncodeTopicData(t TopicData) []byte {
	params := []rtps.Parameter{
		{ID: pidTopicName, Value: encodeString(t.TopicName)},
		{ID: pidTypeName, Value: encodeString(t.TypeName)},
	}
	params = append(params, encodeQoS(t.QoS)...)
	return wire.EncodeDiscoveryPayload(params, wire.LittleEndian)
}

// DecodeTopicData parses a DiscoveredTopicData payload.
func DecodeTopicData(buf []byte) (TopicData, error) {
	params, err := wire.DecodeDiscoveryPayload(buf)
	if err != nil {
		return TopicData{}, err
	}
	var t TopicData
	if v, ok := wire.FindParameter(params, pidTopicName); ok {
		t.TopicName = decodeString(v)
	}
	if v, ok := wire.FindParameter(params, pidTypeName); ok {
		t.TypeName = decodeString(v)
	}
	t.QoS = decodeQoS(params)
	return t, nil
}

func encodeQoS(q QoS) []rtps.Parameter {
	var params []rtps.Parameter
	relBuf := make([]byte, 12)
	binary.LittleEndian.PutUint32(relBuf[0:4], uint32(q.Reliability))
	params = append(params, rtps.Parameter{ID: pidReliability, Value: relBuf})

	durBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(durBuf, uint32(q.Durability))
	params = append(params, rtps.Parameter{ID: pidDurability, Value: durBuf})

	params = append(params, rtps.Parameter{ID: pidDeadline, Value: encodeDuration(q.Deadline)})

	liveBuf := make([]byte, 12)
	binary.LittleEndian.PutUint32(liveBuf[0:4], uint32(q.Liveliness.Kind))
	copy(liveBuf[4:12], encodeDuration(q.Liveliness.LeaseDuration))
	params = append(params, rtps.Parameter{ID: pidLiveliness, Value: liveBuf})

	histBuf := make([]byte, 8)
	binary.LittleEndian.PutUint32(histBuf[0:4], uint32(q.History.Kind))
	binary.LittleEndian.PutUint32(histBuf[4:8], uint32(q.History.Depth))
	params = append(params, rtps.Parameter{ID: pidHistory, Value: histBuf})

	rlBuf := make([]byte, 12)
	binary.LittleEndian.PutUint32(rlBuf[0:4], uint32(q.ResourceLimits.MaxSamples))
	binary.LittleEndian.PutUint32(rlBuf[4:8], uint32(q.ResourceLimits.MaxInstances))
	binary.LittleEndian.PutUint32(rlBuf[8:12], uint32(q.ResourceLimits.MaxSamplesPerInstance))
	params = append(params, rtps.Parameter{ID: pidResourceLimits, Value: rlBuf})

	if len(q.UserData) > 0 {
		params = append(params, rtps.Parameter{ID: pidUserData, Value: encodeOctetSeq(q.UserData)})
	}
	for _, part := range q.Partition {
		params = append(params, rtps.Parameter{ID: pidPartition, Value: encodeString(part)})
	}
	return params
}

func decodeQoS(params []rtps.Parameter) QoS {
	var q QoS
	if v, ok := wire.FindParameter(params, pidReliability); ok && len(v) >= 4 {
		q.Reliability = ReliabilityKind(binary.LittleEndian.Uint32(v[0:4]))
	}
	if v, ok := wire.FindParameter(params, pidDurability); ok && len(v) >= 4 {
		q.Durability = DurabilityKind(binary.LittleEndian.Uint32(v[0:4]))
	}
	if v, ok := wire.FindParameter(params, pidDeadline); ok {
		q.Deadline = decodeDuration(v)
	}
	if v, ok := wire.FindParameter(params, pidLiveliness); ok && len(v) >= 12 {
		q.Liveliness = LivelinessQoS{
			Kind:          LivelinessKind(binary.LittleEndian.Uint32(v[0:4])),
			LeaseDuration: decodeDuration(v[4:12]),
		}
	}
	if v, ok := wire.FindParameter(params, pidHistory); ok && len(v) >= 8 {
		q.History = HistoryQoS{
			Kind:  HistoryKind(binary.LittleEndian.Uint32(v[0:4])),
			Depth: int32(binary.LittleEndian.Uint32(v[4:8])),
		}
	}
	if v, ok := wire.FindParameter(params, pidResourceLimits); ok && len(v) >= 12 {
		q.ResourceLimits = ResourceLimitsQoS{
			MaxSamples:            int32(binary.LittleEndian.Uint32(v[0:4])),
			MaxInstances:          int32(binary.LittleEndian.Uint32(v[4:8])),
			MaxSamplesPerInstance: int32(binary.LittleEndian.Uint32(v[8:12])),
		}
	}
	if v, ok := wire.FindParameter(params, pidUserData); ok {
		q.UserData = decodeOctetSeq(v)
	}
	for _, v := range findAllParameters(params, pidPartition) {
		q.Partition = append(q.Partition, decodeString(v))
	}
	return q
}

func findAllParameters(params []rtps.Parameter, id uint16) [][]byte {
	var out [][]byte
	for _, p := range params {
		if p.ID == id {
			out = append(out, p.Value)
		}
	}
	return out
}

func encodeGUID(g guid.GUID) []byte {
	b := make([]byte, 16)
	copy(b[0:12], g.Prefix[:])
	eb := g.Entity.Bytes()
	copy(b[12:16], eb[:])
	return b
}

func decodeGUID(b []byte) guid.GUID {
	if len(b) < 16 {
		return guid.GUID{}
	}
	var prefix guid.GuidPrefix
	copy(prefix[:], b[0:12])
	var eb [4]byte
	copy(eb[:], b[12:16])
	return guid.New(prefix, guid.EntityIdFromBytes(eb))
}

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

func encodeOctetSeq(data []byte) []byte {
	b := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(b, uint32(len(data)))
	copy(b[4:], data)
	return b
}

func decodeOctetSeq(b []byte) []byte {
	if len(b) < 4 {
		return nil
	}
	n := int(binary.LittleEndian.Uint32(b))
	if n == 0 || n > len(b)-4 {
		return nil
	}
	out := make([]byte, n)
	copy(out, b[4:4+n])
	return out
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

// Compatible implements SPEC_FULL.md's QoS-compatibility rule: a requested
// RELIABLE against an offered BEST_EFFORT is incompatible; an offered
// deadline looser (longer) than a requested one is incompatible; every
// other combination in scope is compatible.
func Compatible(offered, requested QoS) bool {
	if requested.Reliability == ReliabilityReliable && offered.Reliability == ReliabilityBestEffort {
		return false
	}
	if requested.Deadline != (rtps.Duration{}) && durationGreater(offered.Deadline, requested.Deadline) {
		return false
	}
	return true
}

func durationGreater(a, b rtps.Duration) bool {
	if a.Seconds != b.Seconds {
		return a.Seconds > b.Seconds
	}
	return a.Nanos > b.Nanos
}
