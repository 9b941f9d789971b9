package threadstate

import (
	"sync"
	"testing"

	"github.com/kolkov/progressmon/internal/monitor/checkpoint"
)

func TestHandlerSwapAndInvoke(t *testing.T) {
	var s State
	var calls int
	var mu sync.Mutex

	s.SetHandler(func(*checkpoint.Entry) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	s.InvokeHandler(&checkpoint.Entry{})
	s.InvokeHandler(&checkpoint.Entry{})

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestUnsetHandlerStopsInvocation(t *testing.T) {
	var s State
	called := false
	s.SetHandler(func(*checkpoint.Entry) { called = true })
	s.UnsetHandler()
	s.InvokeHandler(&checkpoint.Entry{})
	if called {
		t.Fatalf("handler invoked after being unset")
	}
}

func TestInvokeHandlerNoopWithoutHandler(t *testing.T) {
	var s State
	// Must not panic.
	s.InvokeHandler(&checkpoint.Entry{})
}

func TestResetClearsState(t *testing.T) {
	var s State
	s.GoroutineID = 99
	s.SetHandler(func(*checkpoint.Entry) {})
	s.Deadlines.Push(&checkpoint.Entry{})

	s.Reset(3)

	if s.GoroutineID != 0 || s.Index != 3 || !s.Deadlines.Empty() {
		t.Fatalf("state not cleared by Reset: %+v", s)
	}
	called := false
	s.SetHandler(func(*checkpoint.Entry) { called = true })
	s.InvokeHandler(&checkpoint.Entry{})
	if !called {
		t.Fatalf("handler should be settable again after reset")
	}
}
