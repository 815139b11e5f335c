// Package packet implements the JamPacket wire codec: a fixed-layout UDP
// datagram carrying two interleaved mono audio channels plus a small header
// of room/session bookkeeping fields.
//
// A JamPacket owns its backing buffer and callers reuse one instance per
// direction (one for outbound encode, one for inbound decode). EncodeAudio
// and the header accessors do not allocate; DecodeAudio returns two newly
// allocated sample slices on every call.
package packet

import (
	"encoding/binary"
	"errors"
)

// Wire layout offsets and sizes (network byte order, big-endian).
const (
	OffChannel        = 0
	OffSampleRate     = 1
	OffNumSubChannels = 2
	OffBeat           = 3
	OffServerTime     = 4
	OffClientTime     = 12
	OffClientID       = 20
	OffSequenceNumber = 24
	OffPayload        = 28

	// HeaderSize is the fixed header length in bytes.
	HeaderSize = OffPayload

	// MaxDatagramSize is the largest JamPacket the wire format allows.
	MaxDatagramSize = 1024

	// MaxPayloadSize is the largest payload a single datagram can carry.
	MaxPayloadSize = MaxDatagramSize - HeaderSize
)

// sampleScale is the encode factor of the §3 quantization law (decode
// divides by 32768):
// encode: round(clamp(x+1.0, 0.0, 2.0) * 32766) as uint16
// decode: n/32768 - 1.0
const sampleScale = 32766.0

// ErrNotConnected is returned by a sender when no remote endpoint is set.
var ErrNotConnected = errors.New("packet: not connected")

// JamPacket is a fixed-size buffer holding one UDP datagram's worth of
// header and audio payload. The zero value is a valid, empty packet.
type JamPacket struct {
	buf    [MaxDatagramSize]byte
	nbytes int
}

// New returns a JamPacket with the header zeroed and no payload.
func New() *JamPacket {
	p := &JamPacket{}
	p.nbytes = HeaderSize
	return p
}

// Reset clears the packet back to an empty header with no payload.
func (p *JamPacket) Reset() {
	for i := 0; i < HeaderSize; i++ {
		p.buf[i] = 0
	}
	p.nbytes = HeaderSize
}

// Bytes returns the packet's active bytes (header + payload).
func (p *JamPacket) Bytes() []byte {
	return p.buf[:p.nbytes]
}

// HeaderBytes returns just the 28-byte header, independent of payload
// length. Used by the broadcast loop's echo-suppression path (§4.8).
func (p *JamPacket) HeaderBytes() []byte {
	return p.buf[:HeaderSize]
}

// Buffer returns the full backing array, for use as a recv target.
// Callers must call SetLength after a successful read.
func (p *JamPacket) Buffer() []byte {
	return p.buf[:]
}

// SetLength records the number of valid bytes after an out-of-band fill
// (e.g. a socket read directly into Buffer()).
func (p *JamPacket) SetLength(n int) {
	p.nbytes = n
}

// Length returns the number of active bytes in the packet.
func (p *JamPacket) Length() int {
	return p.nbytes
}

// IsValid reports whether nbytes describes a structurally valid datagram:
// at least header-sized, and even (payload splits evenly between the two
// channels).
func IsValid(nbytes int) bool {
	return nbytes >= HeaderSize && nbytes%2 == 0
}

// Channel returns the room-assignment hint set by the server.
func (p *JamPacket) Channel() byte { return p.buf[OffChannel] }

// SetChannel sets the room-assignment hint.
func (p *JamPacket) SetChannel(v byte) { p.buf[OffChannel] = v }

// SampleRate returns the encoded sample-rate code.
func (p *JamPacket) SampleRate() byte { return p.buf[OffSampleRate] }

// SetSampleRate sets the encoded sample-rate code.
func (p *JamPacket) SetSampleRate(v byte) { p.buf[OffSampleRate] = v }

// NumSubChannels returns the channel count set by the client.
func (p *JamPacket) NumSubChannels() byte { return p.buf[OffNumSubChannels] }

// SetNumSubChannels sets the channel count.
func (p *JamPacket) SetNumSubChannels(v byte) { p.buf[OffNumSubChannels] = v }

// Beat returns the shared metronome beat index set by the server.
func (p *JamPacket) Beat() byte { return p.buf[OffBeat] }

// SetBeat sets the shared metronome beat index.
func (p *JamPacket) SetBeat(v byte) { p.buf[OffBeat] = v }

// ServerTime returns the server timestamp in microseconds.
func (p *JamPacket) ServerTime() uint64 {
	return binary.BigEndian.Uint64(p.buf[OffServerTime:])
}

// SetServerTime sets the server timestamp in microseconds.
func (p *JamPacket) SetServerTime(v uint64) {
	binary.BigEndian.PutUint64(p.buf[OffServerTime:], v)
}

// ClientTime returns the client timestamp in microseconds.
func (p *JamPacket) ClientTime() uint64 {
	return binary.BigEndian.Uint64(p.buf[OffClientTime:])
}

// SetClientTime sets the client timestamp in microseconds.
func (p *JamPacket) SetClientTime(v uint64) {
	binary.BigEndian.PutUint64(p.buf[OffClientTime:], v)
}

// ClientID returns the sender's identity within the room.
func (p *JamPacket) ClientID() uint32 {
	return binary.BigEndian.Uint32(p.buf[OffClientID:])
}

// SetClientID sets the sender's identity within the room.
func (p *JamPacket) SetClientID(v uint32) {
	binary.BigEndian.PutUint32(p.buf[OffClientID:], v)
}

// SequenceNumber returns the per-sender monotonic sequence counter.
func (p *JamPacket) SequenceNumber() uint32 {
	return binary.BigEndian.Uint32(p.buf[OffSequenceNumber:])
}

// SetSequenceNumber sets the per-sender monotonic sequence counter.
func (p *JamPacket) SetSequenceNumber(v uint32) {
	binary.BigEndian.PutUint32(p.buf[OffSequenceNumber:], v)
}

// EncodeAudio writes chan1 then chan2 into the payload as interleaved
// (channel-major, not sample-interleaved) big-endian 16-bit samples and
// updates the packet's active length. Returns the total byte count.
func (p *JamPacket) EncodeAudio(chan1, chan2 []float32) int {
	n := len(chan1)
	if len(chan2) < n {
		n = len(chan2)
	}
	if 4*n > MaxPayloadSize {
		n = MaxPayloadSize / 4
	}

	off := OffPayload
	for i := 0; i < n; i++ {
		binary.BigEndian.PutUint16(p.buf[off:], encodeSample(chan1[i]))
		off += 2
	}
	for i := 0; i < n; i++ {
		binary.BigEndian.PutUint16(p.buf[off:], encodeSample(chan2[i]))
		off += 2
	}

	p.nbytes = off
	return p.nbytes
}

// DecodeAudio splits the payload into two equally sized sample vectors.
func (p *JamPacket) DecodeAudio() (chan1, chan2 []float32) {
	if p.nbytes < HeaderSize {
		return nil, nil
	}
	payload := p.nbytes - HeaderSize
	n := payload / 4 // two channels, 2 bytes per sample each

	chan1 = make([]float32, n)
	chan2 = make([]float32, n)

	off := OffPayload
	for i := 0; i < n; i++ {
		chan1[i] = decodeSample(binary.BigEndian.Uint16(p.buf[off:]))
		off += 2
	}
	for i := 0; i < n; i++ {
		chan2[i] = decodeSample(binary.BigEndian.Uint16(p.buf[off:]))
		off += 2
	}
	return chan1, chan2
}

func encodeSample(x float32) uint16 {
	v := float64(x) + 1.0
	if v < 0.0 {
		v = 0.0
	}
	if v > 2.0 {
		v = 2.0
	}
	return uint16(v*sampleScale + 0.5)
}

func decodeSample(n uint16) float32 {
	return float32(n)/32768.0 - 1.0
}

// CopyFrom overwrites p with the bytes in src (up to MaxDatagramSize).
func (p *JamPacket) CopyFrom(src []byte) {
	n := copy(p.buf[:], src)
	p.nbytes = n
}
