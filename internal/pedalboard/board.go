package pedalboard

import "sync"

// MaxPedals bounds one board's chain length.
const MaxPedals = 8

// PedalBoard is an ordered chain of pedals applied to one channel's mono
// signal. Insert, Delete, Reorder, and ChangeSetting are serialized with
// each other behind mu. Process holds mu only while it reads the chain and
// then runs without it; Delete and Reorder rewrite the chain's backing
// array in place, so they are not safe to run while Process is running.
// JamEngine applies every board mutation from Frame, before Process.
type PedalBoard struct {
	mu      sync.Mutex
	pedals  []*Pedal
	scratch [2][]float32
}

// NewPedalBoard returns an empty board sized for frameSize-sample frames.
func NewPedalBoard(frameSize int) *PedalBoard {
	return &PedalBoard{
		scratch: [2][]float32{make([]float32, frameSize), make([]float32, frameSize)},
	}
}

// Insert appends a new pedal of the given kind to the end of the chain.
// Returns false if the board is already at MaxPedals.
func (b *PedalBoard) Insert(kind Kind) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pedals) >= MaxPedals {
		return false
	}
	b.pedals = append(b.pedals, NewPedal(kind))
	return true
}

// Delete removes the pedal at index. Returns false if index is out of
// range.
func (b *PedalBoard) Delete(index int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.pedals) {
		return false
	}
	b.pedals = append(b.pedals[:index], b.pedals[index+1:]...)
	return true
}

// Reorder moves the pedal at from to position to, shifting the pedals in
// between. Returns false if either index is out of range.
func (b *PedalBoard) Reorder(from, to int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.pedals)
	if from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	p := b.pedals[from]
	b.pedals = append(b.pedals[:from], b.pedals[from+1:]...)
	b.pedals = append(b.pedals[:to], append([]*Pedal{p}, b.pedals[to:]...)...)
	return true
}

// ChangeSetting locates the pedal at index and marks name dirty with value.
// Returns false if index is out of range.
func (b *PedalBoard) ChangeSetting(index int, name string, value float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.pedals) {
		return false
	}
	b.pedals[index].ChangeSetting(name, value)
	return true
}

// Process runs input through every pedal in order, ping-ponging between two
// scratch buffers so no pedal's process method has to be alias-safe, and
// writes the final result to output. It also applies any dirty settings at
// this frame boundary so audio-thread state only ever changes between
// frames, never mid-frame.
func (b *PedalBoard) Process(input, output []float32) {
	b.mu.Lock()
	pedals := b.pedals
	b.mu.Unlock()

	if len(pedals) == 0 {
		copy(output, input)
		return
	}

	src := input
	dstIdx := 0
	for _, p := range pedals {
		p.LoadFromSettings()
		dst := b.scratch[dstIdx][:len(src)]
		p.Process(src, dst)
		src = dst
		dstIdx = 1 - dstIdx
	}
	copy(output, src)
}

// SerializedBoard is the JSON-shaped board snapshot sent to clients (§4.5):
// the owning channel and its ordered pedal list.
type SerializedBoard struct {
	Channel int
	Pedals  []SerializedPedal
}

// Serialize returns the board's current {channel, pedals} snapshot.
func (b *PedalBoard) Serialize(channel int) SerializedBoard {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]SerializedPedal, len(b.pedals))
	for i, p := range b.pedals {
		out[i] = p.Serialize(i)
	}
	return SerializedBoard{Channel: channel, Pedals: out}
}

// Len returns the number of pedals currently on the board.
func (b *PedalBoard) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pedals)
}
