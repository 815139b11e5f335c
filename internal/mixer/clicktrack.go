package mixer

// ClickTrack holds two pre-rendered one-shot buffers — a downbeat accent
// and the other three beats — and mixes the current beat's one-shot into
// the stereo bus, restarting whenever the beat index changes.
type ClickTrack struct {
	downbeat []float32
	other    []float32

	currentBeat byte
	pos         int
	primed      bool
}

// NewClickTrack returns a ClickTrack with the given pre-rendered one-shot
// buffers (mono; the same samples are mixed into both output channels).
func NewClickTrack(downbeat, other []float32) *ClickTrack {
	return &ClickTrack{downbeat: downbeat, other: other}
}

// MixInto restarts the one-shot whenever beat differs from the stored
// value, then mixes the next frameSize samples (or silence once the
// one-shot is exhausted) into outA/outB.
func (c *ClickTrack) MixInto(beat byte, outA, outB []float32) {
	if !c.primed || beat != c.currentBeat {
		c.currentBeat = beat
		c.pos = 0
		c.primed = true
	}

	shot := c.other
	if beat == 0 {
		shot = c.downbeat
	}

	n := len(outA)
	if len(outB) < n {
		n = len(outB)
	}
	for i := 0; i < n; i++ {
		if c.pos < len(shot) {
			v := shot[c.pos]
			outA[i] += v
			outB[i] += v
			c.pos++
		}
	}
}
