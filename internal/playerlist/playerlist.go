// Package playerlist tracks the server's view of connected clients: their
// network address, loop-time latency statistic, and last-seen time.
package playerlist

import (
	"net"
	"sync"
	"time"
)

// PruneAfter is how long a player may go unrefreshed before being dropped
// (§4.7).
const PruneAfter = 500 * time.Millisecond

// maxLoopTimeMs clamps the loop-time statistic before it enters the
// moving-average filter, so one wild outlier can't skew Latency.
const maxLoopTimeMs = 100.0

// loopTimeSmoothing is the exponential moving-average coefficient applied
// to each new loop-time sample.
const loopTimeSmoothing = 0.1

// Player is one tracked remote participant.
type Player struct {
	ClientID uint32
	Addr     *net.UDPAddr
	LastSeen time.Time
	loopTime float64 // smoothed loop time in milliseconds
	primed   bool
}

// List holds the server's player set for one room. Safe for concurrent use.
// allowed is the room-membership roster filled through the admin API's
// admit route; a client_id must appear here before its datagrams are
// admitted into Update by the broadcast loop (§4.8).
type List struct {
	mu      sync.Mutex
	players []*Player
	allowed map[uint32]bool
}

// New returns an empty player list.
func New() *List {
	return &List{allowed: make(map[uint32]bool)}
}

// Admit adds clientID to the room's allow-list, called when the admin
// API's POST /api/admit accepts a client's room token.
func (l *List) Admit(clientID uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowed[clientID] = true
}

// Revoke removes clientID from the allow-list and drops its player entries,
// called by the admin API's POST /api/revoke so late-arriving datagrams
// are no longer forwarded.
func (l *List) Revoke(clientID uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.allowed, clientID)
	kept := l.players[:0]
	for _, p := range l.players {
		if p.ClientID != clientID {
			kept = append(kept, p)
		}
	}
	l.players = kept
}

// Update finds a player by address, refreshing LastSeen and folding
// loopTimeMs into its moving average, or appends a new player entry if no
// address match exists. loopTimeMs is clamped to [0, maxLoopTimeMs] before
// filtering (§4.7).
func (l *List) Update(now time.Time, loopTimeMs float64, clientID uint32, addr *net.UDPAddr) {
	if loopTimeMs < 0 {
		loopTimeMs = 0
	}
	if loopTimeMs > maxLoopTimeMs {
		loopTimeMs = maxLoopTimeMs
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range l.players {
		if sameAddr(p.Addr, addr) {
			p.ClientID = clientID
			p.LastSeen = now
			p.foldLoopTime(loopTimeMs)
			return
		}
	}
	p := &Player{ClientID: clientID, Addr: addr, LastSeen: now}
	p.foldLoopTime(loopTimeMs)
	l.players = append(l.players, p)
}

func (p *Player) foldLoopTime(sample float64) {
	if !p.primed {
		p.loopTime = sample
		p.primed = true
		return
	}
	p.loopTime += loopTimeSmoothing * (sample - p.loopTime)
}

// Prune drops every player whose LastSeen is older than PruneAfter
// relative to now.
func (l *List) Prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.players[:0]
	for _, p := range l.players {
		if now.Sub(p.LastSeen) <= PruneAfter {
			kept = append(kept, p)
		}
	}
	l.players = kept
}

// IsAllowed reports whether clientID is on the allow-list (admitted and not
// since revoked). The broadcast loop (§4.8) uses this to reject datagrams
// from clients that were never admitted, or were revoked.
func (l *List) IsAllowed(clientID uint32) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowed[clientID]
}

// Snapshot returns a copy of the current player slice, safe to range over
// without holding the list's lock (used by the broadcast loop's fan-out).
func (l *List) Snapshot() []*Player {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Player, len(l.players))
	copy(out, l.players)
	return out
}

// Latency returns a client_id -> average loop time (ms) mapping, consumed
// by the control channel's status messages (§4.7).
func (l *List) Latency() map[uint32]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[uint32]float64, len(l.players))
	for _, p := range l.players {
		out[p.ClientID] = p.loopTime
	}
	return out
}

// Len returns the number of currently tracked players.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.players)
}

func sameAddr(a, b *net.UDPAddr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.IP.Equal(b.IP) && a.Port == b.Port
}
