package jitter

import "testing"

func TestGetReturnsExactCount(t *testing.T) {
	b := New()
	for _, c := range []int{64, 128, 256, 1} {
		out := b.Get(c)
		if len(out) != c {
			t.Errorf("Get(%d) returned %d samples", c, len(out))
		}
	}
}

func TestFillingReturnsZerosUntilTargetDepth(t *testing.T) {
	b := New()
	s := make([]float32, MinDepth)
	for i := range s {
		s[i] = 1.0
	}
	b.Append(s)

	out := b.Get(128)
	if b.IsFilling() {
		t.Fatalf("expected buffer to leave filling state once target depth reached")
	}
	for _, v := range out {
		if v != 1.0 {
			t.Fatalf("expected primed data, got zero-filled read")
		}
	}
}

func TestFIFOOrderAfterPriming(t *testing.T) {
	b := New()
	s := make([]float32, MinDepth+256)
	for i := range s {
		s[i] = float32(i)
	}
	b.Append(s)

	out := b.Get(64)
	for i, v := range out {
		if v != float32(i) {
			t.Fatalf("out[%d] = %v, want %v (FIFO order)", i, v, float32(i))
		}
	}
}

func TestUnderrunPadsWithZerosAndReentersFilling(t *testing.T) {
	b := New()
	b.Append(make([]float32, MinDepth)) // prime
	b.Get(MinDepth - 10)                // drain down to 10 remaining

	out := b.Get(100)
	if len(out) != 100 {
		t.Fatalf("Get returned %d samples, want 100", len(out))
	}
	if b.Underruns() != 1 {
		t.Errorf("Underruns = %d, want 1", b.Underruns())
	}
	if !b.IsFilling() {
		t.Errorf("expected buffer to re-enter filling after underrun")
	}
}

func TestOverrunDropsFromHead(t *testing.T) {
	b := New()
	// Push far more than MaxDepth so the target depth clamp and the
	// overrun drop both engage deterministically regardless of sigma.
	big := make([]float32, MaxDepth*2)
	for i := range big {
		big[i] = float32(i)
	}
	b.Append(big)

	// Prime.
	for b.IsFilling() {
		b.Get(128)
	}

	out := b.Get(128)
	if b.Overruns() == 0 {
		t.Errorf("expected at least one overrun after pushing 2x MaxDepth")
	}
	// After dropping from the head, the next samples read should still be
	// monotonically increasing (freshest retained data), not the oldest.
	for i := 1; i < len(out); i++ {
		if out[i] <= out[i-1] {
			t.Fatalf("expected monotonically increasing retained samples, got %v", out)
		}
	}
}

func TestTargetDepthBounds(t *testing.T) {
	b := New()
	if b.TargetDepth() < MinDepth || b.TargetDepth() > MaxDepth {
		t.Fatalf("initial target depth %d out of bounds [%d, %d]", b.TargetDepth(), MinDepth, MaxDepth)
	}
	b.Append(make([]float32, MaxDepth*4))
	for i := 0; i < 200; i++ {
		b.Get(128)
		if b.TargetDepth() < MinDepth || b.TargetDepth() > MaxDepth {
			t.Fatalf("target depth %d out of bounds after adaptation", b.TargetDepth())
		}
	}
}
