package packet

import "testing"

func TestIsValid(t *testing.T) {
	cases := []struct {
		n    int
		want bool
	}{
		{0, false},
		{HeaderSize - 1, false},
		{HeaderSize, true},
		{HeaderSize + 1, false},
		{HeaderSize + 2, true},
		{MaxDatagramSize, true},
	}
	for _, c := range cases {
		if got := IsValid(c.n); got != c.want {
			t.Errorf("IsValid(%d) = %v, want %v", c.n, got, c.want)
		}
	}
}

func TestEncodeDecodeAudioRoundTrip(t *testing.T) {
	a := make([]float32, 128)
	b := make([]float32, 128)
	for i := range a {
		a[i] = float32(i-64) / 64.0
		b[i] = -a[i]
	}

	p := New()
	n := p.EncodeAudio(a, b)
	if n != HeaderSize+4*len(a) {
		t.Fatalf("EncodeAudio returned %d bytes, want %d", n, HeaderSize+4*len(a))
	}
	if !IsValid(n) {
		t.Fatalf("encoded packet length %d is not valid", n)
	}

	gotA, gotB := p.DecodeAudio()
	if len(gotA) != len(a) || len(gotB) != len(b) {
		t.Fatalf("decoded lengths = %d/%d, want %d/%d", len(gotA), len(gotB), len(a), len(b))
	}
	for i := range a {
		if d := gotA[i] - a[i]; d > 1.0/32768.0 || d < -1.0/32768.0 {
			t.Errorf("chan1[%d] = %v, want ~%v", i, gotA[i], a[i])
		}
		if d := gotB[i] - b[i]; d > 1.0/32768.0 || d < -1.0/32768.0 {
			t.Errorf("chan2[%d] = %v, want ~%v", i, gotB[i], b[i])
		}
		if gotA[i] > 1.0 || gotA[i] < -1.0 {
			t.Errorf("chan1[%d] = %v out of range", i, gotA[i])
		}
	}
}

func TestHeaderFieldRoundTrip(t *testing.T) {
	p := New()
	p.SetChannel(3)
	p.SetSampleRate(48)
	p.SetNumSubChannels(2)
	p.SetBeat(1)
	p.SetServerTime(123456789)
	p.SetClientTime(987654321)
	p.SetClientID(42)
	p.SetSequenceNumber(7)

	if p.Channel() != 3 {
		t.Errorf("Channel = %d, want 3", p.Channel())
	}
	if p.SampleRate() != 48 {
		t.Errorf("SampleRate = %d, want 48", p.SampleRate())
	}
	if p.NumSubChannels() != 2 {
		t.Errorf("NumSubChannels = %d, want 2", p.NumSubChannels())
	}
	if p.Beat() != 1 {
		t.Errorf("Beat = %d, want 1", p.Beat())
	}
	if p.ServerTime() != 123456789 {
		t.Errorf("ServerTime = %d, want 123456789", p.ServerTime())
	}
	if p.ClientTime() != 987654321 {
		t.Errorf("ClientTime = %d, want 987654321", p.ClientTime())
	}
	if p.ClientID() != 42 {
		t.Errorf("ClientID = %d, want 42", p.ClientID())
	}
	if p.SequenceNumber() != 7 {
		t.Errorf("SequenceNumber = %d, want 7", p.SequenceNumber())
	}
}

func TestHeaderBytesLength(t *testing.T) {
	p := New()
	a := make([]float32, 64)
	p.EncodeAudio(a, a)
	if got := len(p.HeaderBytes()); got != HeaderSize {
		t.Errorf("HeaderBytes length = %d, want %d", got, HeaderSize)
	}
}
