// Package adminapi exposes a local HTTP status surface on the broadcast
// server: health, room client count, per-client latency, and the admit/
// revoke allow-list routes, mirroring the teacher's echo-based REST API.
package adminapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"jamcore/internal/playerlist"
)

// RoomView is the subset of broadcast.Room state the admin API needs;
// implemented by *broadcast.Room in production and a fake in tests.
type RoomView interface {
	Players() *playerlist.List
	Admit(clientID uint32)
	Revoke(clientID uint32)
}

// Server serves the admin HTTP API for one broadcast server process. token
// is the room token issued at room creation (§6 Directory REST API); a
// client must present it to be admitted onto the broadcast loop's
// allow-list (internal/playerlist), closing the gate spec.md §4.8's
// `is_allowed` pseudocode describes.
type Server struct {
	echo  *echo.Echo
	room  RoomView
	token string
}

// New constructs a Server and registers its routes. token gates
// POST /api/admit and POST /api/revoke; an empty token disables the check
// (used by tests that exercise the other routes).
func New(room RoomView, token string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logRequest(v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = jsonErrorHandler

	s := &Server{echo: e, room: room, token: token}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/api/room", s.handleRoom)
	s.echo.GET("/api/latency", s.handleLatency)
	s.echo.POST("/api/admit", s.handleAdmit)
	s.echo.POST("/api/revoke", s.handleRevoke)
}

// Run starts the HTTP server on addr and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) {
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			logRequest("START", addr, 0)
		}
	}()
	<-ctx.Done()
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.echo.Shutdown(shutCtx) //nolint:errcheck
}

// HealthResponse is the payload for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Clients: s.room.Players().Len(),
	})
}

// RoomResponse is the payload for GET /api/room.
type RoomResponse struct {
	Clients int `json:"clients"`
}

func (s *Server) handleRoom(c echo.Context) error {
	return c.JSON(http.StatusOK, RoomResponse{Clients: s.room.Players().Len()})
}

func (s *Server) handleLatency(c echo.Context) error {
	return c.JSON(http.StatusOK, s.room.Players().Latency())
}

// AdmitRequest is the payload for POST /api/admit and /api/revoke: the
// room token issued at room creation, and the client ID to gate.
type AdmitRequest struct {
	Token    string `json:"token"`
	ClientID uint32 `json:"clientId"`
}

func (s *Server) handleAdmit(c echo.Context) error {
	var req AdmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if s.token != "" && req.Token != s.token {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid room token")
	}
	s.room.Admit(req.ClientID)
	return c.JSON(http.StatusOK, map[string]bool{"admitted": true})
}

func (s *Server) handleRevoke(c echo.Context) error {
	var req AdmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if s.token != "" && req.Token != s.token {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid room token")
	}
	s.room.Revoke(req.ClientID)
	return c.JSON(http.StatusOK, map[string]bool{"revoked": true})
}

func jsonErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if !c.Response().Committed {
		c.JSON(code, map[string]string{"error": msg}) //nolint:errcheck
	}
}
