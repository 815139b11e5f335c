// Package audiodev wires a portaudio duplex stream to a JamEngine,
// de-interleaving capture into JamEngine.Frame's two mono buffers and
// re-interleaving its stereo output for playback (§4.9, §5 "audio
// thread").
package audiodev

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gordonklaus/portaudio"

	"jamcore/internal/engine"
)

// SampleRate is the fixed device sample rate (§ GLOSSARY "Frame").
const SampleRate = 48000

// Device describes one available capture or playback device.
type Device struct {
	ID   int
	Name string
}

// ListInputDevices returns every device with at least one input channel.
func ListInputDevices() []Device {
	return listDevices(func(d *portaudio.DeviceInfo) bool { return d.MaxInputChannels > 0 })
}

// ListOutputDevices returns every device with at least one output channel.
func ListOutputDevices() []Device {
	return listDevices(func(d *portaudio.DeviceInfo) bool { return d.MaxOutputChannels > 0 })
}

func listDevices(match func(*portaudio.DeviceInfo) bool) []Device {
	devices, err := portaudio.Devices()
	if err != nil {
		log.Printf("[audiodev] list devices: %v", err)
		return nil
	}
	var out []Device
	for i, d := range devices {
		if match(d) {
			out = append(out, Device{ID: i, Name: d.Name})
		}
	}
	return out
}

func resolveDevice(devices []*portaudio.DeviceInfo, idx int, fallback func() (*portaudio.DeviceInfo, error)) (*portaudio.DeviceInfo, error) {
	if idx >= 0 && idx < len(devices) {
		return devices[idx], nil
	}
	return fallback()
}

// Stream drives a JamEngine from a single duplex portaudio callback
// stream: one Frame call per device period, capture going in, mix going
// out — the engine itself is the callback's only logic.
type Stream struct {
	stream *portaudio.Stream

	eng       *engine.JamEngine
	frameSize int

	inA, inB   []float32
	outA, outB []float32
}

// Open resolves inputID/outputID (-1 selects the host default), opens a
// SampleRate stereo duplex stream at frameSize samples per period, and
// wires each period's callback into eng.Frame.
func Open(inputID, outputID, frameSize int, eng *engine.JamEngine) (*Stream, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("audiodev: list devices: %w", err)
	}

	inputDev, err := resolveDevice(devices, inputID, portaudio.DefaultInputDevice)
	if err != nil {
		return nil, fmt.Errorf("audiodev: resolve input device: %w", err)
	}
	outputDev, err := resolveDevice(devices, outputID, portaudio.DefaultOutputDevice)
	if err != nil {
		return nil, fmt.Errorf("audiodev: resolve output device: %w", err)
	}

	s := &Stream{
		eng:       eng,
		frameSize: frameSize,
		inA:       make([]float32, frameSize),
		inB:       make([]float32, frameSize),
		outA:      make([]float32, frameSize),
		outB:      make([]float32, frameSize),
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   inputDev,
			Channels: 2,
			Latency:  inputDev.DefaultLowInputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Device:   outputDev,
			Channels: 2,
			Latency:  outputDev.DefaultLowOutputLatency,
		},
		SampleRate:      SampleRate,
		FramesPerBuffer: frameSize,
	}

	stream, err := portaudio.OpenStream(params, s.callback)
	if err != nil {
		return nil, fmt.Errorf("audiodev: open stream: %w", err)
	}
	s.stream = stream
	return s, nil
}

// callback runs once per device period. in/out are interleaved stereo
// frames (L, R, L, R, ...) of length 2*frameSize.
func (s *Stream) callback(in, out []float32) {
	deinterleave(in, s.inA, s.inB)
	s.eng.Frame(time.Now(), s.inA, s.inB, s.outA, s.outB)
	interleave(s.outA, s.outB, out)
}

func deinterleave(src []float32, left, right []float32) {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	for i := 0; i < n && 2*i+1 < len(src); i++ {
		left[i] = src[2*i]
		right[i] = src[2*i+1]
	}
}

func interleave(left, right []float32, dst []float32) {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	for i := 0; i < n && 2*i+1 < len(dst); i++ {
		dst[2*i] = left[i]
		dst[2*i+1] = right[i]
	}
}

// errDeviceUnavailable is a ResourceError sentinel (§7): the device could
// not be opened or has disappeared.
var errDeviceUnavailable = errors.New("audiodev: device unavailable")

// Start begins streaming. A failure here is a ResourceError per §7 — the
// caller is expected to retry with back-off.
func (s *Stream) Start() error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("%w: %v", errDeviceUnavailable, err)
	}
	return nil
}

// Stop halts streaming without releasing device handles.
func (s *Stream) Stop() error {
	return s.stream.Stop()
}

// Close stops and releases the stream.
func (s *Stream) Close() error {
	return s.stream.Close()
}
