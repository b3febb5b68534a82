package guid

import "testing"

func TestEntityIdRoundTrip(t *testing.T) {
	cases := []EntityId{
		EntityIdUnknown,
		EntityIdParticipant,
		EntityIdSPDPBuiltinParticipantWriter,
		EntityIdSEDPBuiltinPublicationsReader,
	}
	for _, want := range cases {
		got := EntityIdFromBytes(want.Bytes())
		if got != want {
			t.Errorf("round trip %v -> %v", want, got)
		}
	}
}

func TestBuiltinIdsAreBuiltin(t *testing.T) {
	for _, id := range []EntityId{
		EntityIdParticipant,
		EntityIdSPDPBuiltinParticipantWriter,
		EntityIdSPDPBuiltinParticipantReader,
		EntityIdSEDPBuiltinPublicationsWriter,
	} {
		if !id.IsBuiltin() {
			t.Errorf("%v should be builtin", id)
		}
	}
	if EntityIdUnknown.IsBuiltin() {
		t.Errorf("unknown should not be builtin")
	}
}

func TestNewRandomPrefixNotZero(t *testing.T) {
	p := NewRandomPrefix()
	if p.IsZero() {
		t.Fatal("random prefix should not be zero")
	}
}

func TestGUIDString(t *testing.T) {
	g := New(GuidPrefix{1, 2, 3}, EntityIdParticipant)
	if g.String() == "" {
		t.Fatal("expected non-empty string")
	}
	if g.IsUnknown() {
		t.Fatal("should not be unknown")
	}
}
