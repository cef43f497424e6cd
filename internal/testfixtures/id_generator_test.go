package testfixtures

import (
	"slices"
	"testing"
)

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("booking")

	first := gen.Next()
	second := gen.Next()

	if first != "booking-1" || second != "booking-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if issued := gen.Issued(); !slices.Equal(issued, []string{"booking-1", "booking-2"}) {
		t.Fatalf("unexpected issued identifiers: %v", issued)
	}
}

func TestIDGeneratorReset(t *testing.T) {
	gen := NewIDGenerator("")
	_ = gen.Next()
	gen.Reset("item")

	if next := gen.Next(); next != "item-1" {
		t.Fatalf("expected item-1 after reset, got %q", next)
	}
	if issued := gen.Issued(); len(issued) != 1 {
		t.Fatalf("expected reset to clear history, got %v", issued)
	}
}
