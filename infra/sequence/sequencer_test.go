package sequence

import "testing"

func TestSequencerMonotonic(t *testing.T) {
	s := New(0)
	if got := s.Next(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := s.Next(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := s.Current(); got != 2 {
		t.Fatalf("expected current 2, got %d", got)
	}
}

func TestSequencerResumesAfterReset(t *testing.T) {
	s := New(0)
	s.Reset(41)
	if got := s.Next(); got != 42 {
		t.Fatalf("expected 42 after reset, got %d", got)
	}
}
