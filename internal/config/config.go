// Package config holds the per-participant configuration spec.md §6
// defines, with the same defaults the teacher's core/main.go loadConfig
// hardcodes for its Server — generalized from SA-MP server options (host,
// port, max players) to the RTPS options a Participant needs.
package config

import (
	"time"

	"rtps-go/pkg/guid"
)

// Config is the full set of options a Participant is constructed from.
type Config struct {
	DomainID                  uint32
	DomainTag                 string
	GuidPrefix                guid.GuidPrefix
	FragmentSize              uint16
	HeartbeatPeriod           time.Duration
	NackResponseDelay         time.Duration
	ParticipantLeaseDuration  time.Duration
	SPDPAnnouncePeriod        time.Duration
	StatusCheckPeriod         time.Duration
	InterfaceWhitelist        []string
}

// Default returns the spec.md §6 default configuration, minting a fresh
// random GuidPrefix the way the teacher mints a fresh nextPlayerID counter
// at Server construction.
func Default() Config {
	return Config{
		DomainID:                 0,
		DomainTag:                "",
		GuidPrefix:               guid.NewRandomPrefix(),
		FragmentSize:             1344,
		HeartbeatPeriod:          200 * time.Millisecond,
		NackResponseDelay:        200 * time.Millisecond,
		ParticipantLeaseDuration: 100 * time.Second,
		SPDPAnnouncePeriod:       5 * time.Second,
		StatusCheckPeriod:        100 * time.Millisecond,
		InterfaceWhitelist:       nil, // nil means "all interfaces"
	}
}
