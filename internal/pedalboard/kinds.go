package pedalboard

import "jamcore/internal/dsp"

// --- Noise Gate ---------------------------------------------------------
//
// Adapted from the teacher's noisegate.Gate: zeroes frames whose RMS falls
// below a threshold, with a hold period so the gate doesn't chop speech
// during brief pauses.

type noiseGateState struct {
	threshold float64
	holdMs    float64
	remaining int
	open      bool
}

func newNoiseGateState() noiseGateState {
	return noiseGateState{threshold: 0.01, holdMs: 200}
}

func (g *noiseGateState) settings() []SettingDescriptor {
	return []SettingDescriptor{
		{Name: "threshold", Unit: UnitLinear, Min: 0.001, Max: 0.1, Step: 0.001},
		{Name: "hold_ms", Unit: UnitMsec, Min: 0, Max: 1000, Step: 10},
	}
}

func (g *noiseGateState) apply(dirty map[string]float64) {
	if v, ok := dirty["threshold"]; ok {
		g.threshold = v
	}
	if v, ok := dirty["hold_ms"]; ok {
		g.holdMs = v
	}
}

func (g *noiseGateState) currentValue(name string) float64 {
	switch name {
	case "threshold":
		return g.threshold
	case "hold_ms":
		return g.holdMs
	}
	return 0
}

func (g *noiseGateState) process(input, output []float32) {
	copy(output, input)
	rms := float64(dsp.RMS(output))
	holdFrames := int(g.holdMs / 2.667) // frames at 128-sample/48kHz cadence

	if rms >= g.threshold {
		g.remaining = holdFrames
		g.open = true
		return
	}
	if g.remaining > 0 {
		g.remaining--
		g.open = true
		return
	}
	g.open = false
	for i := range output {
		output[i] = 0
	}
}

// --- Compressor (auto-gain) ----------------------------------------------
//
// Adapted from the teacher's agc.AGC: attack/release smoothed gain toward
// a target RMS level.

type compressorState struct {
	target  float64
	gain    float64
	attack  float64
	release float64
}

func newCompressorState() compressorState {
	return compressorState{target: 0.2, gain: 1.0, attack: 0.8, release: 0.02}
}

func (c *compressorState) settings() []SettingDescriptor {
	return []SettingDescriptor{
		{Name: "target", Unit: UnitLinear, Min: 0.01, Max: 0.9, Step: 0.01},
		{Name: "attack", Unit: UnitLinear, Min: 0.01, Max: 1.0, Step: 0.01},
		{Name: "release", Unit: UnitLinear, Min: 0.001, Max: 0.5, Step: 0.001},
	}
}

func (c *compressorState) apply(dirty map[string]float64) {
	if v, ok := dirty["target"]; ok {
		c.target = v
	}
	if v, ok := dirty["attack"]; ok {
		c.attack = v
	}
	if v, ok := dirty["release"]; ok {
		c.release = v
	}
}

func (c *compressorState) currentValue(name string) float64 {
	switch name {
	case "target":
		return c.target
	case "attack":
		return c.attack
	case "release":
		return c.release
	}
	return 0
}

const minCompressorRMS = 0.001

func (c *compressorState) process(input, output []float32) {
	rms := float64(dsp.RMS(input))
	for i, s := range input {
		v := s * float32(c.gain)
		output[i] = dsp.Clamp(v)
	}
	if rms < minCompressorRMS {
		return
	}
	desired := c.target / rms
	if desired < 0.1 {
		desired = 0.1
	}
	if desired > 10.0 {
		desired = 10.0
	}
	coeff := c.release
	if desired < c.gain {
		coeff = c.attack
	}
	c.gain += coeff * (desired - c.gain)
}

// --- Filter (low/high pass biquad) ---------------------------------------

type filterKind int

const (
	lowPass filterKind = iota
	highPass
)

type filterState struct {
	kind   filterKind
	freq   float64
	q      float64
	biquad *dsp.Biquad
}

func newFilterState(kind filterKind) filterState {
	freq := 2000.0
	q := 0.707
	bk := dsp.LowPass
	if kind == highPass {
		bk = dsp.HighPass
	}
	return filterState{kind: kind, freq: freq, q: q, biquad: dsp.NewBiquad(bk, freq, 48000, q)}
}

func (f *filterState) settings() []SettingDescriptor {
	return []SettingDescriptor{
		{Name: "freq_hz", Unit: UnitLinear, Min: 20, Max: 20000, Step: 1},
		{Name: "q", Unit: UnitLinear, Min: 0.1, Max: 10, Step: 0.1},
	}
}

func (f *filterState) apply(dirty map[string]float64) {
	changed := false
	if v, ok := dirty["freq_hz"]; ok {
		f.freq = v
		changed = true
	}
	if v, ok := dirty["q"]; ok {
		f.q = v
		changed = true
	}
	if changed {
		bk := dsp.LowPass
		if f.kind == highPass {
			bk = dsp.HighPass
		}
		f.biquad.Configure(bk, f.freq, 48000, f.q)
	}
}

func (f *filterState) currentValue(name string) float64 {
	switch name {
	case "freq_hz":
		return f.freq
	case "q":
		return f.q
	}
	return 0
}

func (f *filterState) process(input, output []float32) {
	copy(output, input)
	f.biquad.Process(output)
}

// --- Tremolo (LFO-modulated amplitude) ------------------------------------

type tremoloState struct {
	rateHz float64
	depth  float64
	lfo    *dsp.LFO
}

func newTremoloState() tremoloState {
	return tremoloState{rateHz: 5.0, depth: 0.5, lfo: dsp.NewLFO(5.0, 48000)}
}

func (t *tremoloState) settings() []SettingDescriptor {
	return []SettingDescriptor{
		{Name: "rate_hz", Unit: UnitLinear, Min: 0.1, Max: 20, Step: 0.1},
		{Name: "depth", Unit: UnitLinear, Min: 0, Max: 1, Step: 0.01},
	}
}

func (t *tremoloState) apply(dirty map[string]float64) {
	if v, ok := dirty["rate_hz"]; ok {
		t.rateHz = v
		t.lfo.SetFreq(v)
	}
	if v, ok := dirty["depth"]; ok {
		t.depth = v
	}
}

func (t *tremoloState) currentValue(name string) float64 {
	switch name {
	case "rate_hz":
		return t.rateHz
	case "depth":
		return t.depth
	}
	return 0
}

func (t *tremoloState) process(input, output []float32) {
	for i, s := range input {
		mod := 1.0 - t.depth*(0.5-0.5*t.lfo.Next())
		output[i] = dsp.Clamp(s * float32(mod))
	}
}

// --- Delay -----------------------------------------------------------------

type delayState struct {
	delayMs  float64
	feedback float64
	mix      float64
	line     []float32
	pos      int
}

const maxDelaySamples = 48000 // 1 second at 48 kHz

func newDelayState() delayState {
	return delayState{delayMs: 250, feedback: 0.35, mix: 0.3, line: make([]float32, maxDelaySamples)}
}

func (d *delayState) settings() []SettingDescriptor {
	return []SettingDescriptor{
		{Name: "delay_ms", Unit: UnitMsec, Min: 1, Max: 1000, Step: 1},
		{Name: "feedback", Unit: UnitLinear, Min: 0, Max: 0.95, Step: 0.01},
		{Name: "mix", Unit: UnitLinear, Min: 0, Max: 1, Step: 0.01},
	}
}

func (d *delayState) apply(dirty map[string]float64) {
	if v, ok := dirty["delay_ms"]; ok {
		d.delayMs = v
	}
	if v, ok := dirty["feedback"]; ok {
		d.feedback = v
	}
	if v, ok := dirty["mix"]; ok {
		d.mix = v
	}
}

func (d *delayState) currentValue(name string) float64 {
	switch name {
	case "delay_ms":
		return d.delayMs
	case "feedback":
		return d.feedback
	case "mix":
		return d.mix
	}
	return 0
}

func (d *delayState) process(input, output []float32) {
	delaySamples := int(d.delayMs / 1000.0 * 48000.0)
	if delaySamples < 1 {
		delaySamples = 1
	}
	if delaySamples >= maxDelaySamples {
		delaySamples = maxDelaySamples - 1
	}

	for i, s := range input {
		readPos := (d.pos - delaySamples + maxDelaySamples) % maxDelaySamples
		delayed := d.line[readPos]

		output[i] = dsp.Clamp(s*float32(1-d.mix) + delayed*float32(d.mix))

		d.line[d.pos] = dsp.Clamp(s + delayed*float32(d.feedback))
		d.pos = (d.pos + 1) % maxDelaySamples
	}
}

// --- Overdrive (soft clipper) ----------------------------------------------

type overdriveState struct {
	drive float64
	level float64
}

func newOverdriveState() overdriveState {
	return overdriveState{drive: 2.0, level: 1.0}
}

func (o *overdriveState) settings() []SettingDescriptor {
	return []SettingDescriptor{
		{Name: "drive", Unit: UnitLinear, Min: 1, Max: 20, Step: 0.1},
		{Name: "level", Unit: UnitLinear, Min: 0, Max: 2, Step: 0.01},
	}
}

func (o *overdriveState) apply(dirty map[string]float64) {
	if v, ok := dirty["drive"]; ok {
		o.drive = v
	}
	if v, ok := dirty["level"]; ok {
		o.level = v
	}
}

func (o *overdriveState) currentValue(name string) float64 {
	switch name {
	case "drive":
		return o.drive
	case "level":
		return o.level
	}
	return 0
}

func (o *overdriveState) process(input, output []float32) {
	for i, s := range input {
		x := float64(s) * o.drive
		// tanh-style soft clip without importing math.Tanh's full cost
		// profile per-sample: a cheap rational approximation.
		y := x / (1 + absF(x))
		output[i] = dsp.Clamp(float32(y * o.level))
	}
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
