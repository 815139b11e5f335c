// Package dsp collects the small signal-processing building blocks shared
// by the pedal board, the click track, and the channel strip meters: a
// one-pole smoother, an RMS/peak level meter, a biquad filter, and a simple
// LFO. None of these allocate on their hot path.
package dsp

import "math"

// RMS returns the root-mean-square of a mono float32 frame.
func RMS(frame []float32) float32 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(frame))))
}

// Peak returns the largest absolute sample value in frame.
func Peak(frame []float32) float32 {
	var p float32
	for _, s := range frame {
		a := s
		if a < 0 {
			a = -a
		}
		if a > p {
			p = a
		}
	}
	return p
}

// Smoother is a one-pole exponential moving-average filter.
type Smoother struct {
	coeff float64
	value float64
	init  bool
}

// NewSmoother returns a Smoother with the given coefficient in [0, 1].
// Larger coefficients react faster; smaller ones smooth more.
func NewSmoother(coeff float64) *Smoother {
	return &Smoother{coeff: coeff}
}

// Push feeds one sample and returns the updated smoothed value.
func (s *Smoother) Push(x float64) float64 {
	if !s.init {
		s.value = x
		s.init = true
		return s.value
	}
	s.value += s.coeff * (x - s.value)
	return s.value
}

// Value returns the current smoothed value without pushing a new sample.
func (s *Smoother) Value() float64 { return s.value }

// Reset clears the smoother back to an uninitialized state.
func (s *Smoother) Reset() {
	s.value = 0
	s.init = false
}

// PowerMeter tracks an averaging and a peak level over successive frames.
// The average is a smoothed RMS; the peak jumps up at once and decays
// toward each new frame's peak, so the displayed level falls off gracefully
// rather than jumping down.
type PowerMeter struct {
	avg  *Smoother
	peak float32
}

// NewPowerMeter returns a PowerMeter whose average uses a 0.2 smoothing
// coefficient, i.e. it settles over roughly five updates.
func NewPowerMeter() *PowerMeter {
	return &PowerMeter{avg: NewSmoother(0.2)}
}

// Update feeds one frame's worth of samples into the meter.
func (m *PowerMeter) Update(frame []float32) {
	rms := RMS(frame)
	m.avg.Push(float64(rms))

	peak := Peak(frame)
	if peak > m.peak {
		m.peak = peak
	} else {
		// Peak decays toward the instantaneous value so a held peak
		// eventually falls back to the current signal level.
		m.peak -= (m.peak - peak) * 0.05
	}
}

// Avg returns the current averaged RMS level.
func (m *PowerMeter) Avg() float32 { return float32(m.avg.Value()) }

// PeakLevel returns the current decaying peak level.
func (m *PowerMeter) PeakLevel() float32 { return m.peak }

// Reset clears the meter state.
func (m *PowerMeter) Reset() {
	m.avg.Reset()
	m.peak = 0
}

// BiquadKind selects the biquad's filter response.
type BiquadKind int

const (
	LowPass BiquadKind = iota
	HighPass
	BandPass
	Peaking
)

// Biquad is a standard Direct Form I biquadratic IIR filter (RBJ Audio EQ
// Cookbook coefficients), used by filter-type pedals.
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	x1, x2     float64
	y1, y2     float64
}

// NewBiquad returns a Biquad configured for the given kind, center
// frequency (Hz), sample rate (Hz), and Q factor.
func NewBiquad(kind BiquadKind, freq, sampleRate, q float64) *Biquad {
	b := &Biquad{}
	b.Configure(kind, freq, sampleRate, q)
	return b
}

// Configure recomputes the filter coefficients without resetting the
// internal state, so parameter changes don't click.
func (b *Biquad) Configure(kind BiquadKind, freq, sampleRate, q float64) {
	if freq <= 0 {
		freq = 1
	}
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	if q <= 0 {
		q = 0.707
	}

	w0 := 2 * math.Pi * freq / sampleRate
	cosW0 := math.Cos(w0)
	sinW0 := math.Sin(w0)
	alpha := sinW0 / (2 * q)

	var b0, b1, b2, a0, a1, a2 float64
	switch kind {
	case HighPass:
		b0 = (1 + cosW0) / 2
		b1 = -(1 + cosW0)
		b2 = (1 + cosW0) / 2
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	case BandPass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	case Peaking:
		gainDB := 6.0
		A := math.Pow(10, gainDB/40)
		b0 = 1 + alpha*A
		b1 = -2 * cosW0
		b2 = 1 - alpha*A
		a0 = 1 + alpha/A
		a1 = -2 * cosW0
		a2 = 1 - alpha/A
	default: // LowPass
		b0 = (1 - cosW0) / 2
		b1 = 1 - cosW0
		b2 = (1 - cosW0) / 2
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	}

	b.b0, b.b1, b.b2 = b0/a0, b1/a0, b2/a0
	b.a1, b.a2 = a1/a0, a2/a0
}

// Process runs the filter over frame in place.
func (b *Biquad) Process(frame []float32) {
	for i, x := range frame {
		xf := float64(x)
		y := b.b0*xf + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2
		b.x2, b.x1 = b.x1, xf
		b.y2, b.y1 = b.y1, y
		frame[i] = float32(y)
	}
}

// Reset clears the filter's delay lines without changing coefficients.
func (b *Biquad) Reset() {
	b.x1, b.x2, b.y1, b.y2 = 0, 0, 0, 0
}

// LFO is a low-frequency oscillator used to modulate pedal parameters
// (tremolo depth, chorus delay, phaser sweep).
type LFO struct {
	phase float64
	freq  float64
	rate  float64 // sampleRate
}

// NewLFO returns an LFO at freq Hz; each Next call advances its phase by
// one sample at sampleRate.
func NewLFO(freq, sampleRate float64) *LFO {
	return &LFO{freq: freq, rate: sampleRate}
}

// SetFreq changes the oscillator frequency in Hz.
func (l *LFO) SetFreq(freq float64) { l.freq = freq }

// Next advances the oscillator by one sample and returns sin(phase) in
// [-1, 1].
func (l *LFO) Next() float64 {
	v := math.Sin(2 * math.Pi * l.phase)
	l.phase += l.freq / l.rate
	if l.phase >= 1.0 {
		l.phase -= 1.0
	}
	return v
}

// Reset zeroes the oscillator phase.
func (l *LFO) Reset() { l.phase = 0 }

// Clamp restricts x to [-1.0, 1.0].
func Clamp(x float32) float32 {
	if x > 1.0 {
		return 1.0
	}
	if x < -1.0 {
		return -1.0
	}
	return x
}
