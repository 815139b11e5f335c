package mixer

import "jamcore/internal/dsp"

// Mixer owns a fixed array of MixerChannels ChannelStrips (0-1 reserved for
// the local monitor), a ClickTrack, a master gain, and a master power
// meter. Frame() ordering is fixed so tests are deterministic: zero the
// bus, sum strips, sum the click track, scale by master gain, then update
// the master meter.
type Mixer struct {
	Strips [MixerChannels]*ChannelStrip
	Click  *ClickTrack

	MasterGain float32

	masterMeter *dsp.PowerMeter
}

// New returns a Mixer with all strips allocated and unity master gain.
func New() *Mixer {
	m := &Mixer{
		MasterGain:  1.0,
		masterMeter: dsp.NewPowerMeter(),
	}
	for i := range m.Strips {
		m.Strips[i] = NewChannelStrip()
	}
	return m
}

// Frame mixes one frameSize-sample stereo frame for the given metronome
// beat into outL/outR, which must already be sized to frameSize and will
// be overwritten (not accumulated into).
func (m *Mixer) Frame(frameSize int, beat byte, outL, outR []float32) {
	for i := range outL[:frameSize] {
		outL[i] = 0
		outR[i] = 0
	}

	for _, s := range m.Strips {
		s.MixInto(frameSize, outL, outR)
	}

	if m.Click != nil {
		m.Click.MixInto(beat, outL, outR)
	}

	for i := 0; i < frameSize; i++ {
		outL[i] = dsp.Clamp(outL[i] * m.MasterGain)
		outR[i] = dsp.Clamp(outR[i] * m.MasterGain)
	}

	m.masterMeter.Update(outL[:frameSize])
}

// MasterAvgLevel returns the master bus's averaged RMS meter reading.
func (m *Mixer) MasterAvgLevel() float32 { return m.masterMeter.Avg() }

// MasterPeakLevel returns the master bus's decaying peak meter reading.
func (m *Mixer) MasterPeakLevel() float32 { return m.masterMeter.PeakLevel() }
