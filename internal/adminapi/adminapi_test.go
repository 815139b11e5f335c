package adminapi

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"jamcore/internal/playerlist"
)

type fakeRoom struct {
	players *playerlist.List
}

func (f *fakeRoom) Players() *playerlist.List { return f.players }
func (f *fakeRoom) Admit(clientID uint32)     { f.players.Admit(clientID) }
func (f *fakeRoom) Revoke(clientID uint32)    { f.players.Revoke(clientID) }

func TestHandleHealthReportsClientCount(t *testing.T) {
	players := playerlist.New()
	players.Admit(1)
	players.Update(time.Now(), 0, 1, &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9001})
	s := New(&fakeRoom{players: players}, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if resp.Clients != 1 {
		t.Fatalf("clients = %d, want 1", resp.Clients)
	}
}

func TestHandleLatencyReturnsJSON(t *testing.T) {
	players := playerlist.New()
	s := New(&fakeRoom{players: players}, "")

	req := httptest.NewRequest(http.MethodGet, "/api/latency", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct == "" {
		t.Fatal("expected a Content-Type header on JSON response")
	}
}

func TestHandleAdmitRequiresValidToken(t *testing.T) {
	players := playerlist.New()
	s := New(&fakeRoom{players: players}, "secret-token")

	body := strings.NewReader(`{"token":"wrong","clientId":42}`)
	req := httptest.NewRequest(http.MethodPost, "/api/admit", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if players.IsAllowed(42) {
		t.Fatal("client should not be admitted with an invalid token")
	}
}

func TestHandleAdmitAddsClientToAllowList(t *testing.T) {
	players := playerlist.New()
	s := New(&fakeRoom{players: players}, "secret-token")

	body := strings.NewReader(`{"token":"secret-token","clientId":42}`)
	req := httptest.NewRequest(http.MethodPost, "/api/admit", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !players.IsAllowed(42) {
		t.Fatal("client should be admitted after a valid admit request")
	}
}

func TestHandleRevokeRemovesClientFromAllowList(t *testing.T) {
	players := playerlist.New()
	players.Admit(42)
	s := New(&fakeRoom{players: players}, "secret-token")

	body := strings.NewReader(`{"token":"secret-token","clientId":42}`)
	req := httptest.NewRequest(http.MethodPost, "/api/revoke", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if players.IsAllowed(42) {
		t.Fatal("client should no longer be admitted after revoke")
	}
}
