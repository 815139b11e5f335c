// Package packetfile implements recording and playback of raw JamPacket
// streams to disk (§4.10). New recordings are length-prefixed and
// versioned so a reader can distinguish them from legacy unprefixed
// recordings, which predate this implementation and are read by replaying
// the header + sample-count framing rule instead (§9 Design Notes).
package packetfile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"time"

	"jamcore/internal/packet"
)

// magic identifies a length-prefixed, versioned recording produced by
// PacketWriter. Files without this magic are treated as legacy unprefixed
// recordings.
var magic = [4]byte{'J', 'A', 'M', 'F'}

// formatVersion is written immediately after magic.
const formatVersion uint32 = 1

// ErrEOF is returned by ReadPacket when the stream is exhausted.
var ErrEOF = errors.New("packetfile: eof")

// PacketWriter appends JamPackets to a recording file, length-prefixed and
// versioned.
type PacketWriter struct {
	f       *os.File
	w       *bufio.Writer
	count   int
	started time.Time
}

// NewPacketWriter creates (or truncates) path and writes the format header.
func NewPacketWriter(path string) (*PacketWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(f)
	if _, err := w.Write(magic[:]); err != nil {
		f.Close()
		return nil, err
	}
	var verBuf [4]byte
	binary.BigEndian.PutUint32(verBuf[:], formatVersion)
	if _, err := w.Write(verBuf[:]); err != nil {
		f.Close()
		return nil, err
	}
	return &PacketWriter{f: f, w: w, started: time.Now()}, nil
}

// WriteMessage appends one packet's active bytes, length-prefixed.
func (pw *PacketWriter) WriteMessage(p *packet.JamPacket) error {
	data := p.Bytes()
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := pw.w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := pw.w.Write(data); err != nil {
		return err
	}
	pw.count++
	return nil
}

// Status is the JSON-shaped recording snapshot returned by Stat.
type Status struct {
	Name      string    `json:"name"`
	SizeBytes int64     `json:"sizeBytes"`
	Modified  time.Time `json:"modified"`
	Packets   int       `json:"packets"`
}

// Stat reports the recording's current file metadata.
func (pw *PacketWriter) Stat() (Status, error) {
	if err := pw.w.Flush(); err != nil {
		return Status{}, err
	}
	info, err := pw.f.Stat()
	if err != nil {
		return Status{}, err
	}
	return Status{
		Name:      info.Name(),
		SizeBytes: info.Size(),
		Modified:  info.ModTime(),
		Packets:   pw.count,
	}, nil
}

// Close flushes buffered writes and closes the file.
func (pw *PacketWriter) Close() error {
	if err := pw.w.Flush(); err != nil {
		pw.f.Close()
		return err
	}
	return pw.f.Close()
}

// PacketReader replays a recording, pacing emission against the wall clock
// so ReadUpTo reproduces the original packet cadence relative to the
// moment playback started.
type PacketReader struct {
	f            *os.File
	r            *bufio.Reader
	lengthPrefix bool

	firstServerTime uint64
	haveFirst       bool
	openedAt        time.Time

	fileSize int64
	readSize int64

	pending    *packet.JamPacket // one packet of lookahead, for ReadUpTo/MicrosTillPacket
	pendingErr error
}

// NewPacketReader opens path for playback.
func NewPacketReader(path string) (*PacketReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	r := bufio.NewReader(f)
	lengthPrefix := false

	var hdr [8]byte
	n, _ := io.ReadFull(r, hdr[:])
	if n == 8 && [4]byte{hdr[0], hdr[1], hdr[2], hdr[3]} == magic {
		lengthPrefix = true
	} else {
		// Not a versioned recording; rewind and parse as legacy
		// unprefixed stream (header + implied sample-count framing).
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return nil, err
		}
		r = bufio.NewReader(f)
	}

	pr := &PacketReader{
		f:            f,
		r:            r,
		lengthPrefix: lengthPrefix,
		openedAt:     time.Now(),
		fileSize:     info.Size(),
	}

	first, err := pr.ReadPacket()
	if err != nil {
		if err == ErrEOF {
			return pr, nil
		}
		f.Close()
		return nil, err
	}
	pr.firstServerTime = first.ServerTime()
	pr.haveFirst = true
	if err := pr.rewindToStart(); err != nil {
		f.Close()
		return nil, err
	}
	return pr, nil
}

func (pr *PacketReader) rewindToStart() error {
	if _, err := pr.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	pr.r = bufio.NewReader(pr.f)
	pr.readSize = 0
	if pr.lengthPrefix {
		var hdr [8]byte
		if _, err := io.ReadFull(pr.r, hdr[:]); err != nil {
			return err
		}
		pr.readSize = 8
	}
	return nil
}

// ReadPacket parses the next packet from the stream, returning ErrEOF when
// exhausted.
func (pr *PacketReader) ReadPacket() (*packet.JamPacket, error) {
	if pr.lengthPrefix {
		return pr.readPacketLengthPrefixed()
	}
	return pr.readPacketLegacy()
}

func (pr *PacketReader) readPacketLengthPrefixed() (*packet.JamPacket, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(pr.r, lenBuf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrEOF
		}
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > packet.MaxDatagramSize {
		return nil, errors.New("packetfile: corrupt length prefix")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(pr.r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrEOF
		}
		return nil, err
	}
	pr.readSize += int64(4 + n)
	p := packet.New()
	p.CopyFrom(buf)
	return p, nil
}

// legacyFrameSamples is the fixed per-channel sample count assumed for
// pre-length-prefix recordings, matching the engine's default frame size
// (§ GLOSSARY "Frame"). Legacy files carry no self-describing length, so
// readers must already know the frame size used at capture time.
const legacyFrameSamples = 128
const legacyPayloadSize = legacyFrameSamples * 4 // stereo, 2 bytes/sample

// readPacketLegacy parses a recording with no length prefix, recovering
// frame boundaries from the header plus the implied sample count (§6).
func (pr *PacketReader) readPacketLegacy() (*packet.JamPacket, error) {
	buf := make([]byte, packet.HeaderSize+legacyPayloadSize)
	n, err := io.ReadFull(pr.r, buf)
	if err != nil {
		if n == 0 && (err == io.EOF || err == io.ErrUnexpectedEOF) {
			return nil, ErrEOF
		}
		if err == io.ErrUnexpectedEOF {
			return nil, ErrEOF
		}
		return nil, err
	}
	p := packet.New()
	p.CopyFrom(buf)
	pr.readSize += int64(len(buf))
	return p, nil
}

// peek fills pending with the next unread packet, without consuming it on
// repeated calls.
func (pr *PacketReader) peek() (*packet.JamPacket, error) {
	if pr.pending != nil || pr.pendingErr != nil {
		return pr.pending, pr.pendingErr
	}
	p, err := pr.ReadPacket()
	if err != nil {
		pr.pendingErr = err
		return nil, err
	}
	pr.pending = p
	return p, nil
}

// ReadUpTo returns the next packet whose scheduled emission time
// (packet.ServerTime - firstServerTime) + openedAt is at or before now, or
// nil if the next packet is still in the future.
func (pr *PacketReader) ReadUpTo(now time.Time) (*packet.JamPacket, error) {
	p, err := pr.peek()
	if err != nil {
		return nil, err
	}
	if pr.dueTime(p).After(now) {
		return nil, nil
	}
	pr.pending = nil
	return p, nil
}

func (pr *PacketReader) dueTime(p *packet.JamPacket) time.Time {
	if !pr.haveFirst {
		return pr.openedAt
	}
	elapsed := time.Duration(p.ServerTime()-pr.firstServerTime) * time.Microsecond
	return pr.openedAt.Add(elapsed)
}

// MicrosTillPacket peeks the current read position's packet and reports
// how many microseconds remain until it is due, without consuming it.
// Negative or zero means it is already due. Returns ErrEOF once the
// stream is exhausted.
func (pr *PacketReader) MicrosTillPacket(now time.Time) (int64, error) {
	p, err := pr.peek()
	if err != nil {
		return 0, err
	}
	return pr.dueTime(p).Sub(now).Microseconds(), nil
}

// SeekTo moves the playback cursor to the packet nearest percent%, and
// realigns timing so the next emission lines up with now.
func (pr *PacketReader) SeekTo(now time.Time, percent float64) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	target := int64(float64(pr.fileSize) * percent / 100.0)

	if err := pr.rewindToStart(); err != nil {
		return err
	}
	pr.pending = nil
	pr.pendingErr = nil
	for pr.readSize < target {
		if _, err := pr.ReadPacket(); err != nil {
			break
		}
	}
	pr.openedAt = now

	// Re-anchor pacing at the packet now under the cursor so dueTime
	// resumes computing relative offsets from here instead of reporting
	// openedAt (i.e. "already due") for every packet read post-seek.
	pr.haveFirst = false
	if p, err := pr.peek(); err == nil {
		pr.firstServerTime = p.ServerTime()
		pr.haveFirst = true
	}
	return nil
}

// GetPosition returns percent complete through the file, 0-100.
func (pr *PacketReader) GetPosition() float64 {
	if pr.fileSize == 0 {
		return 100
	}
	pos := pr.readSize
	if pr.pending != nil {
		// The lookahead packet has been read from the file but not yet
		// handed out, so it does not count as played.
		pos -= int64(pr.pending.Length())
		if pr.lengthPrefix {
			pos -= 4
		}
	}
	return float64(pos) / float64(pr.fileSize) * 100.0
}

// PlaybackStatus is the JSON-shaped snapshot returned by GetStatus.
type PlaybackStatus struct {
	PercentComplete float64 `json:"percentComplete"`
	SizeBytes       int64   `json:"sizeBytes"`
}

// GetStatus returns a JSON-shaped playback snapshot.
func (pr *PacketReader) GetStatus() PlaybackStatus {
	return PlaybackStatus{PercentComplete: pr.GetPosition(), SizeBytes: pr.fileSize}
}

// Close releases the underlying file.
func (pr *PacketReader) Close() error {
	return pr.f.Close()
}
