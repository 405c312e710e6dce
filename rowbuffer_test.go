package oracle

import "testing"

func TestAdaptiveRowBufferDefault(t *testing.T) {
	b := NewAdaptiveRowBuffer()
	if b.Target() != RowBufferDefaultTarget {
		t.Fatalf("expected default target %d, got %d", RowBufferDefaultTarget, b.Target())
	}
}

func TestAdaptiveRowBufferBackoffFloor(t *testing.T) {
	b := NewAdaptiveRowBuffer()
	for i := 0; i < 20; i++ {
		b.Backoff()
	}
	if b.Target() != RowBufferMin {
		t.Fatalf("expected floor %d, got %d", RowBufferMin, b.Target())
	}
}

func TestAdaptiveRowBufferGrowCeiling(t *testing.T) {
	b := NewAdaptiveRowBuffer()
	for i := 0; i < 20; i++ {
		b.GrowUp()
	}
	if b.Target() != RowBufferMax {
		t.Fatalf("expected ceiling %d, got %d", RowBufferMax, b.Target())
	}
}

func TestAdaptiveRowBufferHalveThenDouble(t *testing.T) {
	b := NewAdaptiveRowBuffer()
	b.Backoff()
	half := RowBufferDefaultTarget / 2
	if b.Target() != half {
		t.Fatalf("expected %d after one backoff, got %d", half, b.Target())
	}
	b.GrowUp()
	if b.Target() != RowBufferDefaultTarget {
		t.Fatalf("expected target back to %d, got %d", RowBufferDefaultTarget, b.Target())
	}
}
