// Package channelmap maps transient client IDs to stable mixer channel-pair
// slots, aging out slots whose client has gone quiet.
package channelmap

import "time"

// StaleAfter is how long a slot may go unrefreshed before it is pruned.
const StaleAfter = time.Second

// slot is one client's assignment within the map.
type slot struct {
	clientID uint32
	lastSeen time.Time
	used     bool
}

// Map holds a fixed array of slots, one per potential remote participant.
// Capacity is (MixerChannels/2) - 1, reserving channel-pair 0 for the
// local monitor.
type Map struct {
	slots []slot
}

// New returns a Map with the given capacity (number of remote slots).
func New(capacity int) *Map {
	return &Map{slots: make([]slot, capacity)}
}

// Lookup returns the mixer channel-pair index (even: 2, 4, 6, ...)
// assigned to clientID, refreshing its last-seen time on a hit or
// allocating the first empty slot on a miss. ok is false if the map is
// full and clientID has no existing slot.
func (m *Map) Lookup(clientID uint32, now time.Time) (channelIndex int, ok bool) {
	for i := range m.slots {
		if m.slots[i].used && m.slots[i].clientID == clientID {
			m.slots[i].lastSeen = now
			return (i + 1) * 2, true
		}
	}
	for i := range m.slots {
		if !m.slots[i].used {
			m.slots[i] = slot{clientID: clientID, lastSeen: now, used: true}
			return (i + 1) * 2, true
		}
	}
	return 0, false
}

// Prune empties any slot whose last-seen time is older than StaleAfter
// relative to now.
func (m *Map) Prune(now time.Time) {
	for i := range m.slots {
		if m.slots[i].used && now.Sub(m.slots[i].lastSeen) > StaleAfter {
			m.slots[i] = slot{}
		}
	}
}

// Reset empties every slot, used when seeking a packet-file playback
// stream so stale IDs don't leak across the seek boundary.
func (m *Map) Reset() {
	for i := range m.slots {
		m.slots[i] = slot{}
	}
}
