package checkpoint

import (
	"testing"

	"github.com/kolkov/progressmon/internal/monitor/timebase"
)

func TestInitAndLoad(t *testing.T) {
	var e Entry
	loc := Location{File: "foo.go", Line: 12, Function: "Foo"}
	e.Init(timebase.Time(100), ID(7), loc, timebase.Time(50), 3)

	if e.LoadDeadline() != 100 {
		t.Fatalf("LoadDeadline() = %d, want 100", e.LoadDeadline())
	}
	if e.ID != 7 || e.Location != loc || e.Start != 50 || e.Sequence != 3 {
		t.Fatalf("fields not initialized as expected: %+v", e)
	}
	if e.Claimed() {
		t.Fatalf("freshly initialized entry must not be claimed")
	}
}

func TestClaimIsExclusive(t *testing.T) {
	var e Entry
	e.Init(timebase.Time(100), ID(1), Location{}, timebase.Time(0), 0)

	firstOK := e.Claim(timebase.Time(100))
	secondOK := e.Claim(timebase.Time(100))

	if !firstOK {
		t.Fatalf("first claim should succeed")
	}
	if secondOK {
		t.Fatalf("second claim on an already-claimed entry must fail")
	}
	if !e.Claimed() {
		t.Fatalf("entry should be claimed after a successful CAS")
	}
}

func TestLocationString(t *testing.T) {
	loc := Location{File: "a.go", Line: 5, Function: "F"}
	want := "file a.go line 5 function F"
	if got := loc.String(); got != want {
		t.Fatalf("Location.String() = %q, want %q", got, want)
	}
}
