package playback

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"jamcore/internal/packet"
	"jamcore/internal/packetfile"
)

func writeFixture(t *testing.T, path string, clientID uint32, n int, gap time.Duration) {
	t.Helper()
	w, err := packetfile.NewPacketWriter(path)
	if err != nil {
		t.Fatalf("NewPacketWriter: %v", err)
	}
	defer w.Close()

	a := make([]float32, 8)
	for i := range a {
		a[i] = 0.25
	}
	b := make([]float32, 8)

	var serverTime uint64
	for i := 0; i < n; i++ {
		p := packet.New()
		p.SetClientID(clientID)
		p.SetSequenceNumber(uint32(i))
		p.SetServerTime(serverTime)
		p.EncodeAudio(a, b)
		if err := w.WriteMessage(p); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
		serverTime += uint64(gap.Microseconds())
	}
}

func TestLoadUpTillNowIngestsDuePackets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.jamf")
	writeFixture(t, path, 7, 5, 100*time.Millisecond)

	pm, err := Open(path, 999, 8)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer pm.Close()

	now := time.Now()
	if err := pm.LoadUpTillNow(now); err != nil {
		t.Fatalf("LoadUpTillNow: %v", err)
	}

	if n := pm.Mixer().Strips[2].JB.Len(); n <= 0 {
		t.Fatalf("strip buffered %d samples after ingesting a due packet, want > 0", n)
	}
}

func TestGetAPacketStampsSyntheticID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.jamf")
	writeFixture(t, path, 7, 3, 10*time.Millisecond)

	pm, err := Open(path, 999, 8)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer pm.Close()

	now := time.Now()
	out := pm.GetAPacket(now)
	if out.ClientID() != 999 {
		t.Fatalf("ClientID = %d, want 999", out.ClientID())
	}
	if out.SequenceNumber() != 0 {
		t.Fatalf("SequenceNumber = %d, want 0 on first call", out.SequenceNumber())
	}

	out2 := pm.GetAPacket(now)
	if out2.SequenceNumber() != 1 {
		t.Fatalf("SequenceNumber = %d, want 1 on second call", out2.SequenceNumber())
	}
}

func TestLoadUpTillNowReportsStreamEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.jamf")
	writeFixture(t, path, 7, 3, 0)

	pm, err := Open(path, 999, 8)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer pm.Close()

	// All three packets share ServerTime=0, so they are all immediately
	// due; draining them should exhaust the file and report EOF.
	err = pm.LoadUpTillNow(time.Now().Add(time.Second))
	if !errors.Is(err, packetfile.ErrEOF) {
		t.Fatalf("LoadUpTillNow err = %v, want ErrEOF", err)
	}
}

func TestSeekToResetsChannelMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.jamf")
	writeFixture(t, path, 7, 10, 10*time.Millisecond)

	pm, err := Open(path, 999, 8)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer pm.Close()

	now := time.Now()
	pm.LoadUpTillNow(now) //nolint:errcheck

	if err := pm.SeekTo(now, 50); err != nil {
		t.Fatalf("SeekTo: %v", err)
	}
	if pos := pm.GetPosition(); pos < 40 || pos > 60 {
		t.Fatalf("GetPosition = %v, want roughly 50", pos)
	}
	// Client 7 held slot 2 before the seek; after the reset a new sender
	// must be assigned that first slot again.
	if idx, ok := pm.channelMap.Lookup(8, now); !ok || idx != 2 {
		t.Fatalf("after SeekTo, new sender got channel %d (ok=%v), want 2", idx, ok)
	}
}
