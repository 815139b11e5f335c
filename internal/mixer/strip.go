// Package mixer implements the channel strip and mixer that merge up to
// MixerChannels/2-1 remote participant streams (plus the local monitor) into
// one stereo output, absorbing jitter via a per-strip JitterBuffer and
// applying constant-power pan and per-strip/master gain.
package mixer

import (
	"math"

	"jamcore/internal/dsp"
	"jamcore/internal/jitter"
)

// MixerChannels is the fixed number of channel strips a Mixer owns.
// Indices 0-1 are reserved for the local monitor; the rest are paired
// stereo slots for remote participants.
const MixerChannels = 24

// ChannelStrip is one participant's per-side mix path: a jitter buffer
// feeding gain, pan, and mute, with pre-fader average/peak metering.
type ChannelStrip struct {
	JB   *jitter.Buffer
	Gain float32
	Pan  float32 // [-1, +1]
	Mute bool

	avgMeter  *dsp.PowerMeter
	peakMeter *dsp.PowerMeter
}

// NewChannelStrip returns a ChannelStrip with unity gain, centered pan, and
// a fresh jitter buffer.
func NewChannelStrip() *ChannelStrip {
	return &ChannelStrip{
		JB:        jitter.New(),
		Gain:      1.0,
		Pan:       0.0,
		avgMeter:  dsp.NewPowerMeter(),
		peakMeter: dsp.NewPowerMeter(),
	}
}

// PanCoefficients returns the constant-power left/right gain coefficients
// for the strip's current pan: left = sqrt(1-pan), right = sqrt(1+pan).
func (s *ChannelStrip) PanCoefficients() (left, right float32) {
	left = float32(math.Sqrt(float64(1 - s.Pan)))
	right = float32(math.Sqrt(float64(1 + s.Pan)))
	return left, right
}

// MixInto draws frameSize samples from the strip's jitter buffer, updates
// its meters (always, even when muted — metering is pre-fader), and
// accumulates the gained, panned result into the stereo bus busL/busR.
// Muted strips still meter but contribute zero to the bus.
func (s *ChannelStrip) MixInto(frameSize int, busL, busR []float32) {
	frame := s.JB.Get(frameSize)

	s.avgMeter.Update(frame)
	s.peakMeter.Update(frame)

	if s.Mute {
		return
	}

	left, right := s.PanCoefficients()
	for i, v := range frame {
		g := v * s.Gain
		busL[i] += dsp.Clamp(g * left)
		busR[i] += dsp.Clamp(g * right)
	}
}

// AvgLevel returns the strip's averaged pre-fader RMS meter reading.
func (s *ChannelStrip) AvgLevel() float32 { return s.avgMeter.Avg() }

// PeakLevel returns the strip's decaying pre-fader peak meter reading.
func (s *ChannelStrip) PeakLevel() float32 { return s.peakMeter.PeakLevel() }

// Reset clears the strip's jitter buffer and meters (e.g. when a remote
// slot is reassigned to a new participant).
func (s *ChannelStrip) Reset() {
	s.JB.Reset()
	s.avgMeter.Reset()
	s.peakMeter.Reset()
}
