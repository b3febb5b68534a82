package rtps

import "testing"

func TestNewTimeNormalizes(t *testing.T) {
	tm := NewTime(1, 1_500_000_000)
	if tm.Seconds != 2 || tm.Nanos != 500_000_000 {
		t.Fatalf("got %+v", tm)
	}
}

func TestTimeBefore(t *testing.T) {
	a := NewTime(1, 0)
	b := NewTime(1, 500)
	if !a.Before(b) {
		t.Fatal("expected a before b")
	}
	if b.Before(a) {
		t.Fatal("expected b not before a")
	}
}

func TestDurationInfinite(t *testing.T) {
	if !DurationInfinite.IsInfinite() {
		t.Fatal("expected infinite")
	}
	if NewDuration(1, 0).IsInfinite() {
		t.Fatal("expected not infinite")
	}
}

func TestTimeAdd(t *testing.T) {
	tm := NewTime(1, 900_000_000)
	got := tm.Add(Duration{Seconds: 0, Nanos: 200_000_000})
	if got.Seconds != 2 || got.Nanos != 100_000_000 {
		t.Fatalf("got %+v", got)
	}
}
