// Package jitter implements the per-stream adaptive elastic jitter buffer
// that absorbs wide-area network jitter between a reads's fixed-size pull
// and a network's irregular packet arrival, bounding added latency via a
// sigma-driven adaptive target depth.
package jitter

import "math"

const (
	// MinDepth and MaxDepth bound the adaptive target depth, in samples.
	MinDepth = 512
	MaxDepth = 8192

	// MinSigma is the number of standard deviations of headroom kept above
	// the observed depth variance when computing the target depth.
	MinSigma = 7

	// depthWindow is the number of recent depth samples averaged to
	// estimate sigma.
	depthWindow = 50
)

// Buffer is a per-stream adaptive elastic FIFO of float32 samples. Not safe
// for concurrent use — the audio thread is its sole reader and writer.
type Buffer struct {
	samples []float32

	targetDepth int
	isFilling   bool

	underruns int
	overruns  int

	depthHist  [depthWindow]float64
	depthIdx   int
	depthCount int
}

// New returns a Buffer starting in the filling state with the minimum
// target depth.
func New() *Buffer {
	return &Buffer{
		targetDepth: MinDepth,
		isFilling:   true,
	}
}

// Append adds samples to the tail of the queue.
func (b *Buffer) Append(s []float32) {
	b.samples = append(b.samples, s...)
}

// Len returns the number of samples currently queued.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// Underruns returns the cumulative underrun count.
func (b *Buffer) Underruns() int { return b.underruns }

// Overruns returns the cumulative overrun count.
func (b *Buffer) Overruns() int { return b.overruns }

// TargetDepth returns the current adaptive target depth, in samples.
func (b *Buffer) TargetDepth() int { return b.targetDepth }

// IsFilling reports whether the buffer is currently priming before
// resuming playback.
func (b *Buffer) IsFilling() bool { return b.isFilling }

// recordDepth feeds the current queue length into the moving window used
// to estimate sigma and recompute the adaptive target depth.
func (b *Buffer) recordDepth(depth int) {
	d := float64(depth)

	if b.depthCount < depthWindow {
		b.depthCount++
	}
	b.depthHist[b.depthIdx] = d
	b.depthIdx = (b.depthIdx + 1) % depthWindow

	n := b.depthCount
	if n == 0 {
		return
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += b.depthHist[i]
	}
	mean := sum / float64(n)

	var variance float64
	for i := 0; i < n; i++ {
		diff := b.depthHist[i] - mean
		variance += diff * diff
	}
	variance /= float64(n)
	sigma := math.Sqrt(variance)

	target := int(float64(MinDepth) + MinSigma*sigma)
	if target < MinDepth {
		target = MinDepth
	}
	if target > MaxDepth {
		target = MaxDepth
	}
	b.targetDepth = target
}

// Get returns exactly count samples, applying the adaptive fill/drain/drop
// policy described in §4.2:
//  1. record the current depth and recompute sigma/target
//  2. while filling, return zeros until the target depth is reached
//  3. if the queue exceeds target depth, drop the oldest excess (overrun);
//     the read that ends filling skips this step, so it returns the oldest
//     buffered samples in FIFO order
//  4. drain count samples if available, else pad with zeros (underrun)
func (b *Buffer) Get(count int) []float32 {
	b.recordDepth(len(b.samples))

	justPrimed := false
	if b.isFilling {
		if len(b.samples) >= b.targetDepth {
			b.isFilling = false
			justPrimed = true
		} else {
			return make([]float32, count)
		}
	}

	if !justPrimed && len(b.samples) > b.targetDepth {
		excess := len(b.samples) - b.targetDepth
		b.samples = b.samples[excess:]
		b.overruns++
	}

	out := make([]float32, count)
	if len(b.samples) >= count {
		copy(out, b.samples[:count])
		b.samples = b.samples[count:]
		return out
	}

	// Underrun: drain whatever remains and re-enter filling.
	copy(out, b.samples)
	b.samples = b.samples[:0]
	b.underruns++
	b.isFilling = true
	return out
}

// Reset clears all buffered samples and statistics, returning the buffer
// to its initial filling state.
func (b *Buffer) Reset() {
	b.samples = b.samples[:0]
	b.targetDepth = MinDepth
	b.isFilling = true
	b.depthIdx = 0
	b.depthCount = 0
	b.underruns = 0
	b.overruns = 0
}
