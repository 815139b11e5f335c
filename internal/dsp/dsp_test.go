package dsp

import (
	"math"
	"testing"
)

func TestRMSSilence(t *testing.T) {
	frame := make([]float32, 128)
	if got := RMS(frame); got != 0 {
		t.Errorf("RMS(silence) = %v, want 0", got)
	}
}

func TestRMSFullScale(t *testing.T) {
	frame := make([]float32, 128)
	for i := range frame {
		frame[i] = 1.0
	}
	if got := RMS(frame); got != 1.0 {
		t.Errorf("RMS(full scale) = %v, want 1.0", got)
	}
}

func TestSmootherConvergesToConstant(t *testing.T) {
	s := NewSmoother(0.5)
	var v float64
	for i := 0; i < 50; i++ {
		v = s.Push(1.0)
	}
	if v < 0.999 {
		t.Errorf("smoother did not converge: got %v", v)
	}
}

func TestBiquadLowPassAttenuatesHighFreq(t *testing.T) {
	const sr = 48000.0
	b := NewBiquad(LowPass, 200, sr, 0.707)
	frame := make([]float32, 2048)
	for i := range frame {
		frame[i] = float32(math.Sin(2 * math.Pi * 8000 * float64(i) / sr))
	}
	b.Process(frame)
	out := RMS(frame[512:])
	if out > 0.3 {
		t.Errorf("low-pass did not attenuate 8 kHz tone: rms=%v", out)
	}
}
