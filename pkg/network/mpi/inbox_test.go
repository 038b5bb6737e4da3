package mpi

import (
	"testing"
	"time"
)

func TestStateHolderBlocksUntilPut(t *testing.T) {
	s := newStateHolder()
	done := make(chan interface{}, 1)
	go func() {
		done <- s.take()
	}()

	select {
	case <-done:
		t.Fatalf("take returned before any put")
	case <-time.After(20 * time.Millisecond):
	}

	s.put(42)
	select {
	case v := <-done:
		if v.(int) != 42 {
			t.Fatalf("expected 42, got %v", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("take never woke up after put")
	}
}

func TestStateHolderFIFO(t *testing.T) {
	s := newStateHolder()
	s.put(1)
	s.put(2)
	if got := s.take(); got != 1 {
		t.Fatalf("expected 1 first, got %v", got)
	}
	if got := s.take(); got != 2 {
		t.Fatalf("expected 2 second, got %v", got)
	}
}
