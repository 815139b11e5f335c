// Package playback implements PlaybackMixer (§4.11): injecting a recorded
// room as a synthetic participant into a live broadcast, or simply
// rendering a recording to local monitoring.
package playback

import (
	"time"

	"jamcore/internal/channelmap"
	"jamcore/internal/mixer"
	"jamcore/internal/packet"
	"jamcore/internal/packetfile"
)

// PlaybackMixer drains a PacketReader into a Mixer via a ChannelMap, and
// can re-emit the mixed result as a freshly stamped JamPacket under a
// synthetic sender ID.
type PlaybackMixer struct {
	reader     *packetfile.PacketReader
	channelMap *channelmap.Map
	mix        *mixer.Mixer

	syntheticID uint32
	sequence    uint32
	frameSize   int
}

// Open starts playback of the recording at path under syntheticID, the
// client ID stamped on synthetic packets produced by GetAPacket.
func Open(path string, syntheticID uint32, frameSize int) (*PlaybackMixer, error) {
	reader, err := packetfile.NewPacketReader(path)
	if err != nil {
		return nil, err
	}
	return &PlaybackMixer{
		reader:      reader,
		channelMap:  channelmap.New(mixer.MixerChannels/2 - 1),
		mix:         mixer.New(),
		syntheticID: syntheticID,
		frameSize:   frameSize,
	}, nil
}

// Mixer exposes the underlying mixer for meter/status reporting.
func (p *PlaybackMixer) Mixer() *mixer.Mixer { return p.mix }

// LoadUpTillNow drains every packet due by now from the reader into the
// mixer's channel strips via the channel map, stopping at StreamEnd or the
// first not-yet-due packet.
func (p *PlaybackMixer) LoadUpTillNow(now time.Time) error {
	for {
		pkt, err := p.reader.ReadUpTo(now)
		if err != nil {
			return err
		}
		if pkt == nil {
			return nil
		}
		p.ingest(pkt, now)
	}
}

func (p *PlaybackMixer) ingest(pkt *packet.JamPacket, now time.Time) {
	channelIndex, ok := p.channelMap.Lookup(pkt.ClientID(), now)
	if !ok {
		return
	}
	chanA, chanB := pkt.DecodeAudio()
	p.mix.Strips[channelIndex].JB.Append(chanA)
	p.mix.Strips[channelIndex+1].JB.Append(chanB)
}

// GetAPacket pulls one frame from the mixer and wraps it as a freshly
// stamped JamPacket: synthetic sender ID, a fresh sequence number, and
// ServerTime set to now. This is how a recorded room becomes a "virtual
// participant" the broadcast loop can fan out like any other sender.
func (p *PlaybackMixer) GetAPacket(now time.Time) *packet.JamPacket {
	a := make([]float32, p.frameSize)
	b := make([]float32, p.frameSize)
	p.mix.Frame(p.frameSize, 0, a, b)

	out := packet.New()
	out.SetClientID(p.syntheticID)
	out.SetSequenceNumber(p.sequence)
	p.sequence++
	out.SetServerTime(uint64(now.UnixMicro()))
	out.EncodeAudio(a, b)
	return out
}

// MicrosTillNextPacket reports how long until the reader's next packet is
// due, for scheduling the playback thread's synthetic-packet cadence.
func (p *PlaybackMixer) MicrosTillNextPacket(now time.Time) (int64, error) {
	return p.reader.MicrosTillPacket(now)
}

// SeekTo moves the underlying reader's cursor and resets the channel map
// so stale sender IDs from before the seek cannot leak into strips they
// no longer belong to.
func (p *PlaybackMixer) SeekTo(now time.Time, percent float64) error {
	if err := p.reader.SeekTo(now, percent); err != nil {
		return err
	}
	p.channelMap.Reset()
	return nil
}

// GetPosition returns percent complete through the recording.
func (p *PlaybackMixer) GetPosition() float64 {
	return p.reader.GetPosition()
}

// GetStatus returns the reader's JSON-shaped playback status snapshot.
func (p *PlaybackMixer) GetStatus() packetfile.PlaybackStatus {
	return p.reader.GetStatus()
}

// Close stops playback and releases the underlying file.
func (p *PlaybackMixer) Close() error {
	return p.reader.Close()
}
