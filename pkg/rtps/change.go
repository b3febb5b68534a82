package rtps

import "rtps-go/pkg/guid"

// ChangeKind distinguishes a live sample from the various tombstone kinds.
type ChangeKind byte

const (
	ChangeAlive ChangeKind = iota
	ChangeAliveFiltered
	ChangeNotAliveDisposed
	ChangeNotAliveUnregistered
)

// Parameter is one (id, value) entry of an inline-QoS or discovery
// parameter list; length is implied by len(Value) at encode time.
type Parameter struct {
	ID    uint16
	Value []byte
}

// CacheChange is the unit of replication: a single sample, or a tombstone,
// produced by one writer at one sequence number.
type CacheChange struct {
	Kind            ChangeKind
	WriterGUID      guid.GUID
	InstanceHandle  [16]byte
	SequenceNumber  SequenceNumber
	DataValue       []byte
	InlineQos       []Parameter

	// Reader-side metadata, attached by the receiver at insertion time;
	// zero-valued for writer-side changes.
	SourceTimestamp  Time
	HasTimestamp     bool
	ReceptionTime    Time
	SampleState      SampleState
	ViewState        ViewState
	InstanceState    InstanceState
}

type SampleState byte

const (
	SampleStateNotRead SampleState = iota
	SampleStateRead
)

type ViewState byte

const (
	ViewStateNew ViewState = iota
	ViewStateNotNew
)

type InstanceState byte

const (
	InstanceStateAlive InstanceState = iota
	InstanceStateNotAliveDisposed
	InstanceStateNotAliveUnregistered
)

// InstanceStateForKind maps a change kind to the instance-state it implies
// on the reader side, per spec.md §4.B.
func InstanceStateForKind(k ChangeKind) InstanceState {
	switch k {
	case ChangeAlive, ChangeAliveFiltered:
		return InstanceStateAlive
	case ChangeNotAliveDisposed:
		return InstanceStateNotAliveDisposed
	case ChangeNotAliveUnregistered:
		return InstanceStateNotAliveUnregistered
	default:
		return InstanceStateAlive
	}
}
