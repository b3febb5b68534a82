package rtps

import (
	"reflect"
	"testing"
)

func TestSequenceNumberPartsRoundTrip(t *testing.T) {
	cases := []SequenceNumber{0, 1, 42, 1 << 40, SequenceNumberUnknown}
	for _, sn := range cases {
		got := SequenceNumberFromParts(sn.High(), sn.Low())
		if got != sn {
			t.Errorf("round trip %d -> %d", sn, got)
		}
	}
}

func TestSequenceNumberSetMembers(t *testing.T) {
	set := NewSequenceNumberSet(5, []SequenceNumber{5, 7, 10})
	got := set.Members()
	want := []SequenceNumber{5, 7, 10}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("members = %v, want %v", got, want)
	}
	if set.Empty() {
		t.Fatal("set should not be empty")
	}
}

func TestSequenceNumberSetEmpty(t *testing.T) {
	set := NewSequenceNumberSet(1, nil)
	if !set.Empty() {
		t.Fatal("expected empty set")
	}
}

func TestSequenceNumberSetMaxBits(t *testing.T) {
	base := SequenceNumber(1)
	set := SequenceNumberSet{Base: base}
	set.Set(255)
	if set.NumBits != 256 {
		t.Fatalf("numBits = %d, want 256", set.NumBits)
	}
	if !set.Has(255) {
		t.Fatal("expected bit 255 set")
	}
	if set.Has(254) {
		t.Fatal("bit 254 should not be set")
	}
}
