package engine

import (
	"testing"
	"time"

	"jamcore/internal/broadcast"
	"jamcore/internal/socket"
)

func silentFrame(n int) []float32 { return make([]float32, n) }

func TestFrameSendsWhenConnected(t *testing.T) {
	server, err := socket.Listen(0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer server.Close()

	client, err := socket.Listen(0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer client.Close()

	e := New(client, 8)
	e.apply(ControlCommand{Kind: CmdConnect, Host: "127.0.0.1", Port: server.LocalPort(), ClientID: 42})

	inA, inB := silentFrame(8), silentFrame(8)
	outA, outB := silentFrame(8), silentFrame(8)
	e.Frame(time.Now(), inA, inB, outA, outB)

	buf := make([]byte, 1024)
	server.SetRecvTimeout(200 * time.Millisecond)
	n, _, err := server.RecvRaw(buf)
	if err != nil {
		t.Fatalf("server did not receive a packet: %v", err)
	}
	if n < 28 {
		t.Fatalf("received %d bytes, want at least a header", n)
	}
}

func TestFrameDoesNotBlockWhenIdle(t *testing.T) {
	client, err := socket.Listen(0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer client.Close()

	e := New(client, 8)
	inA, inB := silentFrame(8), silentFrame(8)
	outA, outB := silentFrame(8), silentFrame(8)

	start := time.Now()
	e.Frame(start, inA, inB, outA, outB)
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("Frame took %v with no inbound traffic, want near-zero", elapsed)
	}
}

func TestTwoParticipantsMixThroughBroadcastRoom(t *testing.T) {
	room, err := broadcast.NewRoom(0, nil)
	if err != nil {
		t.Fatalf("NewRoom: %v", err)
	}
	defer room.Close()

	room.Admit(1)
	room.Admit(2)

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- room.Run(stop) }()
	defer func() {
		close(stop)
		<-done
	}()

	sockA, err := socket.Listen(0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer sockA.Close()
	sockB, err := socket.Listen(0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer sockB.Close()

	const frameSize = 8
	engineA := New(sockA, frameSize)
	engineB := New(sockB, frameSize)

	engineA.apply(ControlCommand{Kind: CmdConnect, Host: "127.0.0.1", Port: room.LocalPort(), ClientID: 1})
	engineB.apply(ControlCommand{Kind: CmdConnect, Host: "127.0.0.1", Port: room.LocalPort(), ClientID: 2})

	toneA := make([]float32, frameSize)
	for i := range toneA {
		toneA[i] = 0.5
	}
	silence := silentFrame(frameSize)
	outA, outB := silentFrame(frameSize), silentFrame(frameSize)

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		now := time.Now()
		engineA.Frame(now, toneA, silence, outA, outB)
		engineB.Frame(now, silence, silence, outA, outB)
		time.Sleep(time.Millisecond)
	}

	// Client B's first remote slot (channel pair 2/3) should have picked up
	// A's tone by now.
	if avg := engineB.Mixer().Strips[2].AvgLevel(); avg <= 0 {
		t.Fatalf("engineB remote strip avg level = %v, want > 0 after receiving A's tone", avg)
	}
}
