package main

import (
	"encoding/binary"
	"fmt"
	"io"
)

// wavSampleRate matches the data plane's fixed device rate (§ GLOSSARY
// "Frame").
const wavSampleRate = 48000

// wavWriter emits a minimal 32-bit float PCM WAV file. No WAV-encoding
// library appears anywhere in the example pack (see DESIGN.md), so this
// writes the format directly: a canonical RIFF/fmt/data layout with the
// data-chunk size patched in on close once the sample count is known.
type wavWriter struct {
	w           io.WriteSeeker
	channels    int
	sampleRate  int
	dataBytes   uint32
	dataChunkAt int64
}

func newWavWriter(w io.WriteSeeker, channels, sampleRate int) (*wavWriter, error) {
	ww := &wavWriter{w: w, channels: channels, sampleRate: sampleRate}
	if err := ww.writeHeader(); err != nil {
		return nil, err
	}
	return ww, nil
}

const (
	bitsPerSample  = 32
	wavFormatFloat = 3 // IEEE float, per the WAVE format tag registry
)

func (w *wavWriter) writeHeader() error {
	bytesPerSample := bitsPerSample / 8
	blockAlign := w.channels * bytesPerSample
	byteRate := w.sampleRate * blockAlign

	if _, err := w.w.Write([]byte("RIFF")); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, uint32(0)); err != nil { // placeholder RIFF size
		return err
	}
	if _, err := w.w.Write([]byte("WAVE")); err != nil {
		return err
	}

	if _, err := w.w.Write([]byte("fmt ")); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, uint32(16)); err != nil {
		return err
	}
	fields := []any{
		uint16(wavFormatFloat),
		uint16(w.channels),
		uint32(w.sampleRate),
		uint32(byteRate),
		uint16(blockAlign),
		uint16(bitsPerSample),
	}
	for _, f := range fields {
		if err := binary.Write(w.w, binary.LittleEndian, f); err != nil {
			return err
		}
	}

	if _, err := w.w.Write([]byte("data")); err != nil {
		return err
	}
	pos, err := w.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	w.dataChunkAt = pos
	return binary.Write(w.w, binary.LittleEndian, uint32(0)) // placeholder data size
}

// writeInterleaved writes one frame of left/right samples, interleaved
// L,R,L,R,... as the format requires.
func (w *wavWriter) writeInterleaved(left, right []float32) error {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	for i := 0; i < n; i++ {
		if err := binary.Write(w.w, binary.LittleEndian, left[i]); err != nil {
			return err
		}
		if err := binary.Write(w.w, binary.LittleEndian, right[i]); err != nil {
			return err
		}
		w.dataBytes += uint32(2 * 4)
	}
	return nil
}

// close patches the RIFF and data chunk sizes now that the total sample
// count is known.
func (w *wavWriter) close() error {
	riffSize := uint32(4 + (8 + 16) + (8 + w.dataBytes))

	if _, err := w.w.Seek(4, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, riffSize); err != nil {
		return err
	}

	if _, err := w.w.Seek(w.dataChunkAt, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, w.dataBytes); err != nil {
		return fmt.Errorf("wav: write data size: %w", err)
	}
	return nil
}
