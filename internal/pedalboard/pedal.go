// Package pedalboard implements an ordered chain of effect pedals applied
// to one mono audio buffer per frame. Pedals are modeled as a tagged union
// of known kinds (not trait objects / interfaces), so a board snapshot
// (SerializedBoard) is value-typed. A live board holds its pedals by
// pointer.
package pedalboard

// SettingUnit documents how a UI should render a pedal's control without
// knowing the pedal's internals.
type SettingUnit int

const (
	UnitLinear SettingUnit = iota
	UnitDB
	UnitMsec
	UnitSelector
	UnitFootswitch
)

// SettingDescriptor describes one named, numeric control on a pedal.
type SettingDescriptor struct {
	Name   string
	Unit   SettingUnit
	Min    float64
	Max    float64
	Step   float64
	Labels []string // only meaningful for UnitSelector
}

// Kind identifies which concrete pedal a Pedal value holds.
type Kind int

const (
	KindNoiseGate Kind = iota
	KindCompressor
	KindLowPassFilter
	KindHighPassFilter
	KindTremolo
	KindDelay
	KindOverdrive
)

// Pedal is one stage in a PedalBoard. It is a tagged union: exactly one of
// the kind-specific state fields is meaningful, selected by Kind. All
// pedals share the same capability set: Process, ChangeSetting, Serialize,
// and a zeroth "bypass" setting.
type Pedal struct {
	Kind    Kind
	Name    string
	Bypass  bool
	dirty   map[string]float64
	gate    noiseGateState
	comp    compressorState
	filter  filterState
	trem    tremoloState
	delay   delayState
	odrive  overdriveState
}

// NewPedal returns a Pedal of the given kind with default settings.
func NewPedal(kind Kind) *Pedal {
	p := &Pedal{Kind: kind, dirty: make(map[string]float64)}
	switch kind {
	case KindNoiseGate:
		p.Name = "Noise Gate"
		p.gate = newNoiseGateState()
	case KindCompressor:
		p.Name = "Compressor"
		p.comp = newCompressorState()
	case KindLowPassFilter:
		p.Name = "Low Pass"
		p.filter = newFilterState(lowPass)
	case KindHighPassFilter:
		p.Name = "High Pass"
		p.filter = newFilterState(highPass)
	case KindTremolo:
		p.Name = "Tremolo"
		p.trem = newTremoloState()
	case KindDelay:
		p.Name = "Delay"
		p.delay = newDelayState()
	case KindOverdrive:
		p.Name = "Overdrive"
		p.odrive = newOverdriveState()
	}
	return p
}

// Settings returns the pedal's full list of named settings, with the
// zero-th entry always the boolean bypass footswitch.
func (p *Pedal) Settings() []SettingDescriptor {
	base := []SettingDescriptor{{Name: "bypass", Unit: UnitFootswitch, Min: 0, Max: 1, Step: 1}}
	switch p.Kind {
	case KindNoiseGate:
		return append(base, p.gate.settings()...)
	case KindCompressor:
		return append(base, p.comp.settings()...)
	case KindLowPassFilter, KindHighPassFilter:
		return append(base, p.filter.settings()...)
	case KindTremolo:
		return append(base, p.trem.settings()...)
	case KindDelay:
		return append(base, p.delay.settings()...)
	case KindOverdrive:
		return append(base, p.odrive.settings()...)
	}
	return base
}

// ChangeSetting marks a named setting dirty with its new value. The change
// takes effect on the next LoadFromSettings call (§4.5), which is invoked
// at a frame boundary so the audio thread never observes a half-applied
// setting.
func (p *Pedal) ChangeSetting(name string, value float64) {
	if name == "bypass" {
		p.Bypass = value != 0
		return
	}
	p.dirty[name] = value
}

// LoadFromSettings applies all dirty settings to the pedal's internal DSP
// state and clears the dirty flags.
func (p *Pedal) LoadFromSettings() {
	if len(p.dirty) == 0 {
		return
	}
	switch p.Kind {
	case KindNoiseGate:
		p.gate.apply(p.dirty)
	case KindCompressor:
		p.comp.apply(p.dirty)
	case KindLowPassFilter, KindHighPassFilter:
		p.filter.apply(p.dirty)
	case KindTremolo:
		p.trem.apply(p.dirty)
	case KindDelay:
		p.delay.apply(p.dirty)
	case KindOverdrive:
		p.odrive.apply(p.dirty)
	}
	for k := range p.dirty {
		delete(p.dirty, k)
	}
}

// Process runs the pedal over input, writing the result to output. When
// Bypass is true it's the identity function: output == input sample for
// sample.
func (p *Pedal) Process(input, output []float32) {
	if p.Bypass {
		copy(output, input)
		return
	}
	switch p.Kind {
	case KindNoiseGate:
		p.gate.process(input, output)
	case KindCompressor:
		p.comp.process(input, output)
	case KindLowPassFilter, KindHighPassFilter:
		p.filter.process(input, output)
	case KindTremolo:
		p.trem.process(input, output)
	case KindDelay:
		p.delay.process(input, output)
	case KindOverdrive:
		p.odrive.process(input, output)
	default:
		copy(output, input)
	}
}

// SerializedSetting is one entry in Pedal.Serialize's output.
type SerializedSetting struct {
	Name  string
	Value float64
}

// SerializedPedal is the JSON-shaped serialization of one pedal (§4.5).
type SerializedPedal struct {
	Index    int
	Name     string
	Settings []SerializedSetting
}

// Serialize returns this pedal's {index, name, settings} snapshot. The
// zero-th setting is always the bypass footswitch.
func (p *Pedal) Serialize(index int) SerializedPedal {
	descs := p.Settings()
	out := make([]SerializedSetting, len(descs))
	bypassVal := 0.0
	if p.Bypass {
		bypassVal = 1.0
	}
	out[0] = SerializedSetting{Name: "bypass", Value: bypassVal}
	for i := 1; i < len(descs); i++ {
		out[i] = SerializedSetting{Name: descs[i].Name, Value: p.currentValue(descs[i].Name)}
	}
	return SerializedPedal{Index: index, Name: p.Name, Settings: out}
}

func (p *Pedal) currentValue(name string) float64 {
	switch p.Kind {
	case KindNoiseGate:
		return p.gate.currentValue(name)
	case KindCompressor:
		return p.comp.currentValue(name)
	case KindLowPassFilter, KindHighPassFilter:
		return p.filter.currentValue(name)
	case KindTremolo:
		return p.trem.currentValue(name)
	case KindDelay:
		return p.delay.currentValue(name)
	case KindOverdrive:
		return p.odrive.currentValue(name)
	}
	return 0
}
