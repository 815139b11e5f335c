// Package broadcast implements the single-threaded per-room server loop
// that fans inbound JamPacket datagrams out to every other player (§4.8).
package broadcast

import (
	"log"
	"net"
	"time"

	"jamcore/internal/packet"
	"jamcore/internal/playerlist"
	"jamcore/internal/socket"
)

// latencyInterval is how often the loop publishes players.Latency() to the
// control channel.
const latencyInterval = time.Second

// metricsInterval is how often the loop logs room-wide datagram/byte
// counters, mirroring the teacher's RunMetrics ticker.
const metricsInterval = time.Second

// recvTimeout is the blocking read timeout on the bound UDP socket (§4.8).
const recvTimeout = time.Second

// circuitBreakerThreshold and circuitBreakerProbeInterval implement the
// same per-peer send circuit breaker as the teacher's datagram fan-out: it
// counts consecutive send failures (a successful send resets the count).
const (
	circuitBreakerThreshold     uint32 = 50
	circuitBreakerProbeInterval uint32 = 25
)

// health is the per-player send circuit breaker state.
type health struct {
	failures uint32
	skips    uint32
}

func (h *health) shouldSkip() bool {
	if h.failures < circuitBreakerThreshold {
		return false
	}
	h.skips++
	return h.skips%circuitBreakerProbeInterval != 0
}

func (h *health) recordFailure() {
	h.failures++
}

func (h *health) recordSuccess() {
	h.failures = 0
	h.skips = 0
}

// LatencyPublisher receives the room's client_id -> average loop-time (ms)
// mapping once per latencyInterval, forwarded to the control channel.
type LatencyPublisher func(map[uint32]float64)

// syntheticQueueDepth bounds the playback thread's bounded channel into the
// broadcast thread (§5: "playback packets from playback -> broadcast").
const syntheticQueueDepth = 4

// Recorder receives every packet the room fans out, live or synthetic,
// so a whole-room session can be captured server-side (§4.8 "Optionally
// runs a packet-recorder ... that can inject a virtual participant back
// into the broadcast stream").
type Recorder interface {
	WriteMessage(p *packet.JamPacket) error
}

// Room runs the broadcast loop for a single room over one bound JamSocket.
type Room struct {
	sock    *socket.JamSocket
	players *playerlist.List
	publish LatencyPublisher

	health map[uint32]*health

	datagrams uint64
	bytes     uint64

	synthetic chan *packet.JamPacket
	recorder  Recorder
}

// SetRecorder attaches a Recorder; every packet accepted into the
// fan-out (live or synthetic) is written through it. Pass nil to stop
// recording.
func (r *Room) SetRecorder(rec Recorder) {
	r.recorder = rec
}

// Stats returns the cumulative inbound datagram and byte counters.
func (r *Room) Stats() (datagrams, bytes uint64) {
	return r.datagrams, r.bytes
}

// NewRoom returns a Room bound to port, ready for Run.
func NewRoom(port int, publish LatencyPublisher) (*Room, error) {
	sock, err := socket.Listen(port)
	if err != nil {
		return nil, err
	}
	return &Room{
		sock:      sock,
		players:   playerlist.New(),
		publish:   publish,
		health:    make(map[uint32]*health),
		synthetic: make(chan *packet.JamPacket, syntheticQueueDepth),
	}, nil
}

// InjectSynthetic enqueues a packet from an optional playback thread
// (§4.11, §5: "playback packets from playback -> broadcast"), fanned out
// on the next loop iteration exactly like a real participant's datagram.
// Non-blocking: a full queue drops the packet, same as control-direction
// overflow policy, since the playback thread can simply try again next
// frame.
func (r *Room) InjectSynthetic(p *packet.JamPacket) {
	select {
	case r.synthetic <- p:
	default:
	}
}

// Close releases the bound socket.
func (r *Room) Close() error {
	return r.sock.Close()
}

// LocalPort returns the UDP port the room is bound to, useful when NewRoom
// was called with port 0 (ephemeral, as in tests).
func (r *Room) LocalPort() int {
	return r.sock.LocalPort()
}

// Players returns the room's player list, for status reporting by the
// admin API and control channel.
func (r *Room) Players() *playerlist.List {
	return r.players
}

// Admit adds clientID to the room's allow-list, called by the admin API's
// POST /api/admit once the client presents a valid room token.
func (r *Room) Admit(clientID uint32) {
	r.players.Admit(clientID)
}

// Revoke removes clientID from the allow-list and drops its player entry,
// called by the admin API's POST /api/revoke.
func (r *Room) Revoke(clientID uint32) {
	r.players.Revoke(clientID)
	delete(r.health, clientID)
}

// Run executes the broadcast loop until stop is closed or a non-timeout
// socket error occurs (§4.8's "any other socket error is fatal to the
// room"). It returns that fatal error, or nil on a clean stop.
func (r *Room) Run(stop <-chan struct{}) error {
	buf := make([]byte, packet.MaxDatagramSize)
	var lastLatencyEmit, lastMetricsEmit time.Time
	var metricsDatagrams, metricsBytes uint64

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		if err := r.sock.SetRecvTimeout(recvTimeout); err != nil {
			return err
		}
		n, src, err := r.sock.RecvRaw(buf)
		now := time.Now()

		r.players.Prune(now)
		if now.Sub(lastLatencyEmit) >= latencyInterval {
			if r.publish != nil {
				r.publish(r.players.Latency())
			}
			lastLatencyEmit = now
		}

	drainSynthetic:
		for {
			select {
			case sp := <-r.synthetic:
				r.fanOut(sp, sp.Bytes(), nil)
			default:
				break drainSynthetic
			}
		}

		if err != nil {
			if err == socket.ErrWouldBlock {
				continue
			}
			return err
		}

		if n <= 0 || !packet.IsValid(n) {
			continue
		}

		var p packet.JamPacket
		p.CopyFrom(buf[:n])

		clientID := p.ClientID()
		if !r.players.IsAllowed(clientID) {
			continue
		}

		r.datagrams++
		r.bytes += uint64(n)
		metricsDatagrams++
		metricsBytes += uint64(n)
		if now.Sub(lastMetricsEmit) >= metricsInterval {
			if metricsDatagrams > 0 {
				log.Printf("[broadcast] clients=%d datagrams=%d bytes=%d (%.1f KB/s)",
					r.players.Len(), metricsDatagrams, metricsBytes,
					float64(metricsBytes)/metricsInterval.Seconds()/1024)
			}
			metricsDatagrams, metricsBytes = 0, 0
			lastMetricsEmit = now
		}

		loopTime := now.UnixMicro() - int64(p.ServerTime())
		if loopTime < 0 {
			loopTime = 0
		}
		r.players.Update(now, float64(loopTime)/1000.0, clientID, src)

		p.SetServerTime(uint64(now.UnixMicro()))
		r.fanOut(&p, p.Buffer()[:n], src)
	}
}

// fanOut sends p to every allowed player, preferring a header-only echo
// back to the packet's own source address (§4.8) and the full datagram
// to everyone else. src is nil for synthetic (playback-originated)
// packets, which have no sender to echo a short form back to.
func (r *Room) fanOut(p *packet.JamPacket, full []byte, src *net.UDPAddr) {
	if r.recorder != nil {
		if err := r.recorder.WriteMessage(p); err != nil {
			log.Printf("[broadcast] recorder write: %v", err)
		}
	}
	for _, player := range r.players.Snapshot() {
		h := r.health[player.ClientID]
		if h == nil {
			h = &health{}
			r.health[player.ClientID] = h
		}
		if h.shouldSkip() {
			continue
		}

		var sendErr error
		if src != nil && sameAddr(player.Addr, src) {
			sendErr = r.sock.SendTo(p.HeaderBytes(), player.Addr)
		} else {
			sendErr = r.sock.SendTo(full, player.Addr)
		}
		if sendErr != nil {
			h.recordFailure()
			log.Printf("[broadcast] send to client %d failed: %v", player.ClientID, sendErr)
			continue
		}
		h.recordSuccess()
	}
}

func sameAddr(a, b *net.UDPAddr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.IP.Equal(b.IP) && a.Port == b.Port
}
