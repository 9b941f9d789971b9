package deadlinestack

import (
	"sync"
	"testing"

	"github.com/kolkov/progressmon/internal/monitor/checkpoint"
)

func TestPushPopBalances(t *testing.T) {
	var s Stack
	if !s.Empty() {
		t.Fatalf("fresh stack should be empty")
	}

	e1 := &checkpoint.Entry{ID: 1}
	e2 := &checkpoint.Entry{ID: 2}

	s.Push(e1)
	s.Push(e2)

	if s.Count() != 2 {
		t.Fatalf("count = %d, want 2", s.Count())
	}
	if s.Top() != e2 {
		t.Fatalf("top should be the most recently pushed entry")
	}

	got := s.Pop()
	if got != e2 {
		t.Fatalf("pop should return e2 first (LIFO)")
	}
	got = s.Pop()
	if got != e1 {
		t.Fatalf("pop should return e1 second")
	}
	if !s.Empty() {
		t.Fatalf("stack should be empty after matched pushes/pops")
	}
	if s.Pop() != nil {
		t.Fatalf("pop on empty stack must return nil")
	}
}

func TestCountMonotonicAcrossPushesNotPops(t *testing.T) {
	var s Stack
	e1 := &checkpoint.Entry{}
	e2 := &checkpoint.Entry{}

	s.Push(e1)
	s.Push(e2)
	afterPushes := s.Count()

	s.Pop()
	if s.Count() != afterPushes {
		t.Fatalf("count must not change on pop, got %d want %d", s.Count(), afterPushes)
	}
}

func TestPeekConsistent(t *testing.T) {
	var s Stack
	e := &checkpoint.Entry{ID: 42}
	s.Push(e)

	var result checkpoint.Entry
	if !s.Peek(&result) {
		t.Fatalf("peek on a quiescent stack must succeed")
	}
	if result.ID != 42 {
		t.Fatalf("peeked entry ID = %d, want 42", result.ID)
	}
}

func TestPeekEmpty(t *testing.T) {
	var s Stack
	var result checkpoint.Entry
	if s.Peek(&result) {
		t.Fatalf("peek on an empty stack must report false")
	}
}

func TestWalkVisitsInLIFOOrder(t *testing.T) {
	var s Stack
	e1 := &checkpoint.Entry{ID: 1}
	e2 := &checkpoint.Entry{ID: 2}
	e3 := &checkpoint.Entry{ID: 3}
	s.Push(e1)
	s.Push(e2)
	s.Push(e3)

	var seen []checkpoint.ID
	complete := s.Walk(func(e *checkpoint.Entry) bool {
		seen = append(seen, e.ID)
		return true
	})

	if !complete {
		t.Fatalf("walk over a quiescent stack should report complete")
	}
	want := []checkpoint.ID{3, 2, 1}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("seen = %v, want %v", seen, want)
		}
	}
}

func TestConcurrentWriterAndReader(t *testing.T) {
	var s Stack
	var wg sync.WaitGroup
	entries := make([]*checkpoint.Entry, 1000)
	for i := range entries {
		entries[i] = &checkpoint.Entry{ID: checkpoint.ID(i)}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, e := range entries {
			s.Push(e)
		}
		for range entries {
			s.Pop()
		}
	}()

	// Concurrent reader: walk/peek must never panic or corrupt, regardless
	// of whether it observes a consistent snapshot.
	for i := 0; i < 2000; i++ {
		var result checkpoint.Entry
		s.Peek(&result)
		s.Walk(func(*checkpoint.Entry) bool { return true })
	}

	wg.Wait()
	if !s.Empty() {
		t.Fatalf("stack should be empty after matched push/pop sequence")
	}
}
