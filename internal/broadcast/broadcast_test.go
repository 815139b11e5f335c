package broadcast

import (
	"testing"
	"time"

	"jamcore/internal/packet"
	"jamcore/internal/socket"
)

func TestRoomEchoesHeaderOnlyToSender(t *testing.T) {
	room, err := NewRoom(0, nil)
	if err != nil {
		t.Fatalf("NewRoom: %v", err)
	}
	defer room.Close()
	room.Admit(1)

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- room.Run(stop) }()
	defer func() {
		close(stop)
		<-done
	}()

	client, err := socket.Listen(0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer client.Close()
	if err := client.Connect("127.0.0.1", room.sock.LocalPort(), 1); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	var p packet.JamPacket
	p.SetClientID(1)
	p.SetSequenceNumber(1)
	left := make([]float32, 4)
	right := make([]float32, 4)
	p.EncodeAudio(left, right)
	if err := client.Send(p.Bytes()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	buf := make([]byte, packet.MaxDatagramSize)
	var n int
	for i := 0; i < 3000; i++ {
		n, _, err = client.Recv(buf)
		if err == nil {
			break
		}
	}
	if err != nil {
		t.Fatal("timed out waiting for echo")
	}
	if n != packet.HeaderSize {
		t.Fatalf("echo length = %d, want %d (header only)", n, packet.HeaderSize)
	}

	datagrams, bytes := room.Stats()
	if datagrams != 1 {
		t.Fatalf("datagrams = %d, want 1", datagrams)
	}
	if bytes == 0 {
		t.Fatal("bytes = 0, want > 0 after accepting a packet")
	}
}

func TestRoomFansOutSyntheticPacket(t *testing.T) {
	room, err := NewRoom(0, nil)
	if err != nil {
		t.Fatalf("NewRoom: %v", err)
	}
	defer room.Close()
	room.Admit(1)

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- room.Run(stop) }()
	defer func() {
		close(stop)
		<-done
	}()

	client, err := socket.Listen(0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer client.Close()
	if err := client.Connect("127.0.0.1", room.sock.LocalPort(), 1); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	var p packet.JamPacket
	p.SetClientID(99)
	p.SetSequenceNumber(1)
	left := make([]float32, 4)
	right := make([]float32, 4)
	p.EncodeAudio(left, right)
	room.InjectSynthetic(&p)

	buf := make([]byte, packet.MaxDatagramSize)
	var n int
	for i := 0; i < 3000; i++ {
		n, _, err = client.Recv(buf)
		if err == nil {
			break
		}
	}
	if err != nil {
		t.Fatal("timed out waiting for synthetic packet")
	}
	var got packet.JamPacket
	got.CopyFrom(buf[:n])
	if got.ClientID() != 99 {
		t.Fatalf("ClientID() = %d, want 99 (synthetic sender)", got.ClientID())
	}
}

type fakeRecorder struct {
	written []*packet.JamPacket
}

func (f *fakeRecorder) WriteMessage(p *packet.JamPacket) error {
	cp := *p
	f.written = append(f.written, &cp)
	return nil
}

func TestRoomRecordsAcceptedPackets(t *testing.T) {
	room, err := NewRoom(0, nil)
	if err != nil {
		t.Fatalf("NewRoom: %v", err)
	}
	defer room.Close()
	room.Admit(1)

	rec := &fakeRecorder{}
	room.SetRecorder(rec)

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- room.Run(stop) }()
	defer func() {
		close(stop)
		<-done
	}()

	client, err := socket.Listen(0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer client.Close()
	if err := client.Connect("127.0.0.1", room.sock.LocalPort(), 1); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	var p packet.JamPacket
	p.SetClientID(1)
	left := make([]float32, 4)
	right := make([]float32, 4)
	p.EncodeAudio(left, right)
	if err := client.Send(p.Bytes()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	buf := make([]byte, packet.MaxDatagramSize)
	for i := 0; i < 3000; i++ {
		if _, _, err := client.Recv(buf); err == nil {
			break
		}
	}

	if len(rec.written) != 1 {
		t.Fatalf("recorder saw %d packets, want 1", len(rec.written))
	}
}

func TestRoomRejectsUnadmittedClient(t *testing.T) {
	room, err := NewRoom(0, nil)
	if err != nil {
		t.Fatalf("NewRoom: %v", err)
	}
	defer room.Close()
	// No Admit call for client 1.

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- room.Run(stop) }()
	defer func() {
		close(stop)
		<-done
	}()

	client, err := socket.Listen(0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer client.Close()
	if err := client.Connect("127.0.0.1", room.sock.LocalPort(), 1); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	var p packet.JamPacket
	p.SetClientID(1)
	left := make([]float32, 4)
	right := make([]float32, 4)
	p.EncodeAudio(left, right)
	if err := client.Send(p.Bytes()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	buf := make([]byte, packet.MaxDatagramSize)
	_, _, err = client.Recv(buf)
	time.Sleep(20 * time.Millisecond)
	_, _, err = client.Recv(buf)
	if err != socket.ErrWouldBlock {
		t.Fatalf("expected no echo for unadmitted client, got err=%v", err)
	}
}
