package socket

import "testing"

func TestSendWithoutConnectFails(t *testing.T) {
	s, err := Listen(0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer s.Close()

	if err := s.Send([]byte("hi")); err != ErrNotConnected {
		t.Fatalf("Send on unconnected socket = %v, want ErrNotConnected", err)
	}
}

func TestRecvWouldBlockWhenIdle(t *testing.T) {
	s, err := Listen(0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer s.Close()

	buf := make([]byte, 64)
	_, _, err = s.Recv(buf)
	if err != ErrWouldBlock {
		t.Fatalf("Recv on idle socket = %v, want ErrWouldBlock", err)
	}
}

func TestConnectSendRecvRoundTrip(t *testing.T) {
	a, err := Listen(0)
	if err != nil {
		t.Fatalf("Listen a: %v", err)
	}
	defer a.Close()
	b, err := Listen(0)
	if err != nil {
		t.Fatalf("Listen b: %v", err)
	}
	defer b.Close()

	if err := a.Connect("127.0.0.1", b.LocalPort(), 7); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !a.Connected() {
		t.Fatal("expected Connected() == true")
	}
	if a.ClientID() != 7 {
		t.Fatalf("ClientID() = %d, want 7", a.ClientID())
	}

	payload := []byte("jam-packet")
	if err := a.Send(payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	buf := make([]byte, 64)
	var n int
	for i := 0; i < 2000; i++ {
		n, _, err = b.Recv(buf)
		if err == nil {
			break
		}
		if err != ErrWouldBlock {
			t.Fatalf("Recv: %v", err)
		}
	}
	if err != nil {
		t.Fatal("timed out waiting for datagram")
	}
	if string(buf[:n]) != string(payload) {
		t.Fatalf("received %q, want %q", buf[:n], payload)
	}
}

func TestDisconnectClearsRemote(t *testing.T) {
	s, err := Listen(0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer s.Close()

	if err := s.Connect("127.0.0.1", 9999, 1); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	s.Disconnect()
	if s.Connected() {
		t.Fatal("expected Connected() == false after Disconnect")
	}
	if err := s.Send([]byte("x")); err != ErrNotConnected {
		t.Fatalf("Send after Disconnect = %v, want ErrNotConnected", err)
	}
}
