// Command pkt2wav renders a packet file to a stereo 32-bit float WAV file
// by draining it through a PlaybackMixer exactly as a broadcast server's
// optional playback thread would, mirroring the upstream rt_2_wave
// utility's CLI shape (§6 CLI surface, §4.11). It is a diagnostic tool,
// not part of the data plane.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"jamcore/internal/engine"
	"jamcore/internal/packetfile"
	"jamcore/internal/playback"
)

// frameStep mirrors the upstream tool's fixed 2.667ms-per-frame clock
// (engine.DefaultFrameSize samples at 48 kHz).
const frameStep = 2667 * time.Microsecond

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Println("pkt2wav (jamcore)")
		return
	}

	inFile := flag.String("in-file", "", "packet file to read")
	outFile := flag.String("out-file", "", "WAV file to write")
	flag.Parse()

	if *inFile == "" || *outFile == "" {
		log.Fatal("pkt2wav: -in-file and -out-file are required")
	}

	pm, err := playback.Open(*inFile, 0, engine.DefaultFrameSize)
	if err != nil {
		log.Fatalf("[pkt2wav] open %s: %v", *inFile, err)
	}
	defer pm.Close()

	out, err := os.Create(*outFile)
	if err != nil {
		log.Fatalf("[pkt2wav] create %s: %v", *outFile, err)
	}
	defer out.Close()

	w, err := newWavWriter(out, 2, wavSampleRate)
	if err != nil {
		log.Fatalf("[pkt2wav] %v", err)
	}

	// tailFrames keeps rendering a few frames past end-of-stream so audio
	// still sitting in the jitter buffers at the last packet gets flushed
	// to the file instead of being silently dropped.
	const tailFrames = 4

	now := time.Now()
	left := make([]float32, engine.DefaultFrameSize)
	right := make([]float32, engine.DefaultFrameSize)
	frames, tail := 0, 0
	for tail < tailFrames {
		now = now.Add(frameStep)
		err := pm.LoadUpTillNow(now)
		if err != nil && !errors.Is(err, packetfile.ErrEOF) {
			log.Fatalf("[pkt2wav] load: %v", err)
		}
		if errors.Is(err, packetfile.ErrEOF) {
			tail++
		}
		pm.Mixer().Frame(engine.DefaultFrameSize, 0, left, right)
		if werr := w.writeInterleaved(left, right); werr != nil {
			log.Fatalf("[pkt2wav] write frame %d: %v", frames, werr)
		}
		frames++
	}

	if err := w.close(); err != nil {
		log.Fatalf("[pkt2wav] finalize: %v", err)
	}
	log.Printf("[pkt2wav] wrote %d frames to %s", frames, *outFile)
}
