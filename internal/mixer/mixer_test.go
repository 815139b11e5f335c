package mixer

import (
	"math"
	"testing"
)

func TestConstantPowerPanLaw(t *testing.T) {
	s := NewChannelStrip()
	for _, pan := range []float32{-1, -0.5, 0, 0.5, 1} {
		s.Pan = pan
		left, right := s.PanCoefficients()
		sum := float64(left*left + right*right)
		if math.Abs(sum-2.0) > 1e-6 {
			t.Errorf("pan=%v: left^2+right^2 = %v, want 2.0", pan, sum)
		}
	}
}

func TestMutedStripStillMetersButContributesZero(t *testing.T) {
	s := NewChannelStrip()
	s.Mute = true
	frame := make([]float32, 8192)
	for i := range frame {
		frame[i] = 0.5
	}
	s.JB.Append(frame)

	busL := make([]float32, 128)
	busR := make([]float32, 128)
	s.MixInto(128, busL, busR)

	for i, v := range busL {
		if v != 0 {
			t.Fatalf("muted strip contributed nonzero sample at %d: %v", i, v)
		}
	}
	_ = busR
	if avg := s.AvgLevel(); avg <= 0 {
		t.Fatalf("muted strip avg level = %v, want > 0 (metering is pre-fader)", avg)
	}
}

func TestMixerFrameSilentWithNoActiveStrips(t *testing.T) {
	m := New()
	m.MasterGain = 1.0
	outL := make([]float32, 128)
	outR := make([]float32, 128)

	m.Frame(128, 0, outL, outR)
	for i, v := range outL {
		if v != 0 {
			t.Fatalf("expected silence with no active strips, got %v at %d", v, i)
		}
	}
	_ = outR
}
