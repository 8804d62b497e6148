package sequence

import (
	"sync"
	"testing"
)

func TestSequencer_Monotonic(t *testing.T) {
	s := New(0)
	if s.Next() != 1 || s.Next() != 2 {
		t.Fatal("expected 1, 2")
	}
	if s.Current() != 2 {
		t.Fatalf("expected current 2, got %d", s.Current())
	}
}

func TestSequencer_Resume(t *testing.T) {
	s := New(5)
	s.Resume(3)
	if s.Current() != 5 {
		t.Fatalf("resume must not move backwards, got %d", s.Current())
	}
	s.Resume(10)
	if s.Next() != 11 {
		t.Fatal("expected 11 after resume to 10")
	}
}

func TestSequencer_Concurrent(t *testing.T) {
	s := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				s.Next()
			}
		}()
	}
	wg.Wait()
	if s.Current() != 8000 {
		t.Fatalf("expected 8000, got %d", s.Current())
	}
}
