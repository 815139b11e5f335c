package audiodev

import "testing"

func TestInterleaveDeinterleaveRoundTrip(t *testing.T) {
	left := []float32{0.1, 0.2, 0.3}
	right := []float32{-0.1, -0.2, -0.3}

	interleaved := make([]float32, 6)
	interleave(left, right, interleaved)

	want := []float32{0.1, -0.1, 0.2, -0.2, 0.3, -0.3}
	for i := range want {
		if interleaved[i] != want[i] {
			t.Fatalf("interleaved[%d] = %v, want %v", i, interleaved[i], want[i])
		}
	}

	gotLeft := make([]float32, 3)
	gotRight := make([]float32, 3)
	deinterleave(interleaved, gotLeft, gotRight)
	for i := range left {
		if gotLeft[i] != left[i] || gotRight[i] != right[i] {
			t.Fatalf("round trip mismatch at %d: left=%v right=%v", i, gotLeft[i], gotRight[i])
		}
	}
}

func TestDeinterleaveToleratesShortDestination(t *testing.T) {
	src := make([]float32, 8)
	left := make([]float32, 2)
	right := make([]float32, 2)
	deinterleave(src, left, right) // must not panic on mismatched lengths
}
