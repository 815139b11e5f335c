// Package engine implements JamEngine, the client-side per-frame
// orchestrator driven by the audio device callback (§4.9): capture,
// pedal processing, network send/receive, mixing, and playback, with a
// bounded one-command-per-frame control inlet and a bounded telemetry
// outlet to the control thread.
package engine

import (
	"time"

	"jamcore/internal/channelmap"
	"jamcore/internal/mixer"
	"jamcore/internal/packet"
	"jamcore/internal/packetfile"
	"jamcore/internal/pedalboard"
	"jamcore/internal/socket"
)

// DefaultFrameSize is 128 samples at 48 kHz (2.667 ms per frame).
const DefaultFrameSize = 128

// controlQueueDepth and telemetryQueueDepth bound the SPSC queues
// connecting the audio thread to the control thread (§5).
const (
	controlQueueDepth   = 8
	telemetryQueueDepth = 8
)

// statusInterval is how often the engine emits a Telemetry snapshot.
const statusInterval = time.Second

// ControlKind discriminates the ParamMessage-derived commands the control
// thread may enqueue (§6).
type ControlKind int

const (
	CmdConnect ControlKind = iota
	CmdDisconnect
	CmdSetMasterVolume
	CmdPedalInsert
	CmdPedalDelete
	CmdPedalReorder
	CmdPedalChangeSetting
	CmdSetRecording
)

// ControlCommand is one queued control-thread instruction. Only the fields
// relevant to Kind are meaningful.
type ControlCommand struct {
	Kind ControlKind

	// CmdConnect
	Host     string
	Port     int
	ClientID uint32

	// CmdSetMasterVolume
	Volume float32

	// Pedal-board ops: Channel selects 0 (A) or 1 (B).
	Channel      int
	PedalKind    pedalboard.Kind
	PedalIndex   int
	PedalTo      int
	SettingName  string
	SettingValue float64

	// CmdSetRecording
	RecordingPath string
	RecordingOn   bool
}

// Telemetry is the per-second status snapshot handed to the control
// thread, the JamEngine-side source of the chat channel's levelEvent
// payload (§6).
type Telemetry struct {
	Connected       bool
	Sequence        uint32
	MasterAvgLevel  float32
	MasterPeakLevel float32
	Beat            byte
}

// JamEngine owns every handle the audio callback touches: the socket, the
// two local pedal boards, the channel map, and the mixer. It performs no
// blocking I/O. Frame still allocates: each jitter-buffer read and each
// inbound DecodeAudio returns newly allocated sample slices.
type JamEngine struct {
	sock      *socket.JamSocket
	frameSize int

	channelA *pedalboard.PedalBoard
	channelB *pedalboard.PedalBoard

	channelMap *channelmap.Map
	mix        *mixer.Mixer

	outPacket *packet.JamPacket
	inPacket  *packet.JamPacket
	sequence  uint32
	beat      byte

	recorder *packetfile.PacketWriter

	controlQueue   chan ControlCommand
	telemetryQueue chan Telemetry

	lastStatusEmit time.Time

	processedA []float32
	processedB []float32
}

// New returns a JamEngine bound to sock, with frameSize-sized scratch
// buffers and a channel map sized per §9's (MixerChannels/2)-1 rule.
func New(sock *socket.JamSocket, frameSize int) *JamEngine {
	if frameSize <= 0 {
		frameSize = DefaultFrameSize
	}
	return &JamEngine{
		sock:           sock,
		frameSize:      frameSize,
		channelA:       pedalboard.NewPedalBoard(frameSize),
		channelB:       pedalboard.NewPedalBoard(frameSize),
		channelMap:     channelmap.New(mixer.MixerChannels/2 - 1),
		mix:            mixer.New(),
		outPacket:      packet.New(),
		inPacket:       packet.New(),
		controlQueue:   make(chan ControlCommand, controlQueueDepth),
		telemetryQueue: make(chan Telemetry, telemetryQueueDepth),
		processedA:     make([]float32, frameSize),
		processedB:     make([]float32, frameSize),
	}
}

// Mixer exposes the engine's mixer for status reporting (meters, strip
// gain/pan) from the control thread.
func (e *JamEngine) Mixer() *mixer.Mixer { return e.mix }

// PedalBoard returns the pedal board for channel 0 (A) or 1 (B).
func (e *JamEngine) PedalBoard(channel int) *pedalboard.PedalBoard {
	if channel == 0 {
		return e.channelA
	}
	return e.channelB
}

// Telemetry returns the channel the control thread drains status
// snapshots from.
func (e *JamEngine) Telemetry() <-chan Telemetry {
	return e.telemetryQueue
}

// EnqueueControl is called by the control thread. On a full queue the
// newest command is the one dropped — the UI may simply reissue it
// (§5's control-direction overflow policy).
func (e *JamEngine) EnqueueControl(cmd ControlCommand) {
	select {
	case e.controlQueue <- cmd:
	default:
	}
}

// emitTelemetry pushes one snapshot, dropping the oldest queued snapshot
// on overflow (§5's telemetry-direction overflow policy).
func (e *JamEngine) emitTelemetry(t Telemetry) {
	select {
	case e.telemetryQueue <- t:
		return
	default:
	}
	select {
	case <-e.telemetryQueue:
	default:
	}
	select {
	case e.telemetryQueue <- t:
	default:
	}
}

// drainControl applies exactly one queued control command, if any.
func (e *JamEngine) drainControl() {
	select {
	case cmd := <-e.controlQueue:
		e.apply(cmd)
	default:
	}
}

func (e *JamEngine) apply(cmd ControlCommand) {
	switch cmd.Kind {
	case CmdConnect:
		if err := e.sock.Connect(cmd.Host, cmd.Port, cmd.ClientID); err == nil {
			e.outPacket.SetClientID(cmd.ClientID)
		}
	case CmdDisconnect:
		e.sock.Disconnect()
	case CmdSetMasterVolume:
		e.mix.MasterGain = cmd.Volume
	case CmdPedalInsert:
		e.PedalBoard(cmd.Channel).Insert(cmd.PedalKind)
	case CmdPedalDelete:
		e.PedalBoard(cmd.Channel).Delete(cmd.PedalIndex)
	case CmdPedalReorder:
		e.PedalBoard(cmd.Channel).Reorder(cmd.PedalIndex, cmd.PedalTo)
	case CmdPedalChangeSetting:
		e.PedalBoard(cmd.Channel).ChangeSetting(cmd.PedalIndex, cmd.SettingName, cmd.SettingValue)
	case CmdSetRecording:
		e.setRecording(cmd.RecordingOn, cmd.RecordingPath)
	}
}

func (e *JamEngine) setRecording(on bool, path string) {
	if !on {
		if e.recorder != nil {
			e.recorder.Close()
			e.recorder = nil
		}
		return
	}
	if e.recorder != nil {
		return
	}
	w, err := packetfile.NewPacketWriter(path)
	if err != nil {
		return
	}
	e.recorder = w
}

// Frame runs one full §4.9 orchestration cycle. inA/inB are the capture
// buffers; outA/outB receive the frame to hand to playback. Both pairs
// must be frameSize samples long.
func (e *JamEngine) Frame(now time.Time, inA, inB, outA, outB []float32) {
	if now.Sub(e.lastStatusEmit) >= statusInterval {
		e.emitTelemetry(Telemetry{
			Connected:       e.sock.Connected(),
			Sequence:        e.sequence,
			MasterAvgLevel:  e.mix.MasterAvgLevel(),
			MasterPeakLevel: e.mix.MasterPeakLevel(),
			Beat:            e.beat,
		})
		e.lastStatusEmit = now
	}

	e.drainControl()

	e.channelA.Process(inA, e.processedA)
	e.channelB.Process(inB, e.processedB)

	outN := e.outPacket.EncodeAudio(e.processedA, e.processedB)
	e.outPacket.SetSequenceNumber(e.sequence)
	e.outPacket.SetClientTime(uint64(now.UnixMicro()))
	e.sequence++
	if e.sock.Connected() {
		e.sock.Send(e.outPacket.Bytes()) //nolint:errcheck
	}

	e.sock.SetRecvTimeout(0) //nolint:errcheck
	for {
		n, _, err := e.sock.RecvRaw(e.inPacket.Buffer())
		if err != nil {
			break
		}
		e.inPacket.SetLength(n)
		if !packet.IsValid(n) {
			continue
		}
		e.beat = e.inPacket.Beat()

		channelIndex, ok := e.channelMap.Lookup(e.inPacket.ClientID(), now)
		if !ok {
			continue
		}
		chanA, chanB := e.inPacket.DecodeAudio()
		e.mix.Strips[channelIndex].JB.Append(chanA)
		e.mix.Strips[channelIndex+1].JB.Append(chanB)

		if e.recorder != nil {
			e.recorder.WriteMessage(e.inPacket) //nolint:errcheck
		}
	}

	if e.recorder != nil && outN > 0 {
		e.recorder.WriteMessage(e.outPacket) //nolint:errcheck
	}

	e.mix.Strips[0].JB.Append(e.processedA)
	e.mix.Strips[1].JB.Append(e.processedB)

	e.mix.Frame(e.frameSize, e.beat, outA, outB)

	e.channelMap.Prune(now)
}

// Close releases any open recording file.
func (e *JamEngine) Close() error {
	if e.recorder != nil {
		return e.recorder.Close()
	}
	return nil
}
