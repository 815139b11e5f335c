// Package directory implements the REST client that registers a broadcast
// server (or client) with the external nation/directory service and
// maintains its heartbeat (§6 External Interfaces, §5 Control thread).
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pion/stun"
)

// ErrDirectory wraps any registration/heartbeat failure against the
// directory service (§7 DirectoryError: retried with back-off, never
// affects ongoing audio).
var ErrDirectory = errors.New("directory: request failed")

// unauthenticatedBackoff and authenticatedPingInterval match §5's fixed
// retry cadence.
const (
	unauthenticatedBackoff = 2 * time.Second
	authenticatedPingInterval = 10 * time.Second
)

// stunServer is used to discover this host's LAN-facing address for the
// directory registration payload's lanIp field.
const stunServer = "stun.l.google.com:19302"

// Identity is the {token, lanIp, macAddress, gitHash} body every directory
// call carries once registered.
type Identity struct {
	Token      string `json:"token"`
	LanIP      string `json:"lanIp"`
	MacAddress string `json:"macAddress"`
	GitHash    string `json:"gitHash"`
}

// RegisterResponse is the body of a successful POST /broadcastUnit or
// POST /jamUnit call.
type RegisterResponse struct {
	BroadcastUnit struct {
		Token string `json:"token"`
	} `json:"broadcastUnit"`
}

// Client talks to the directory service's REST API over net/http.
type Client struct {
	baseURL    string
	httpClient *http.Client
	macAddress string
	gitHash    string
}

// New returns a directory Client pointed at baseURL (the configured
// api_url).
func New(baseURL, macAddress, gitHash string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		macAddress: macAddress,
		gitHash:    gitHash,
	}
}

// DiscoverLANAddress performs a single STUN binding request to learn this
// host's externally-visible address, used to populate lanIp.
func DiscoverLANAddress(ctx context.Context) (string, error) {
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return "", fmt.Errorf("%w: open udp socket: %v", ErrDirectory, err)
	}
	defer conn.Close()

	serverAddr, err := net.ResolveUDPAddr("udp", stunServer)
	if err != nil {
		return "", fmt.Errorf("%w: resolve stun server: %v", ErrDirectory, err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(5 * time.Second)
	}
	conn.SetDeadline(deadline)

	msg := stun.MustBuild(stun.TransactionID, stun.BindingRequest)
	if _, err := conn.WriteToUDP(msg.Raw, serverAddr); err != nil {
		return "", fmt.Errorf("%w: send stun request: %v", ErrDirectory, err)
	}

	buf := make([]byte, 1024)
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		return "", fmt.Errorf("%w: read stun response: %v", ErrDirectory, err)
	}

	var resp stun.Message
	resp.Raw = buf[:n]
	if err := resp.Decode(); err != nil {
		return "", fmt.Errorf("%w: decode stun response: %v", ErrDirectory, err)
	}

	var xorAddr stun.XORMappedAddress
	if err := xorAddr.GetFrom(&resp); err != nil {
		return "", fmt.Errorf("%w: read xor-mapped-address: %v", ErrDirectory, err)
	}
	return xorAddr.IP.String(), nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: marshal body: %v", ErrDirectory, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrDirectory, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	return c.do(req, out)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: marshal body: %v", ErrDirectory, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrDirectory, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDirectory, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s: status %d", ErrDirectory, req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// RegisterBroadcastUnit registers this broadcast server and returns the
// issued room token.
func (c *Client) RegisterBroadcastUnit(ctx context.Context, lanIP string) (string, error) {
	body := Identity{LanIP: lanIP, MacAddress: c.macAddress, GitHash: c.gitHash}
	var resp RegisterResponse
	if err := c.post(ctx, "/broadcastUnit", body, &resp); err != nil {
		return "", err
	}
	return resp.BroadcastUnit.Token, nil
}

// PingBroadcastUnit heartbeats an already-registered broadcast server.
func (c *Client) PingBroadcastUnit(ctx context.Context, token, lanIP string) error {
	body := Identity{Token: token, LanIP: lanIP, MacAddress: c.macAddress, GitHash: c.gitHash}
	return c.put(ctx, "/broadcastUnit/ping", body, nil)
}

// ActivateRoom tells the directory service which UDP port a registered
// broadcast server is listening on.
func (c *Client) ActivateRoom(ctx context.Context, port int) error {
	body := struct {
		Port int `json:"port"`
	}{Port: port}
	return c.post(ctx, "/room", body, nil)
}

// RegisterJamUnit registers this client and returns the issued token.
func (c *Client) RegisterJamUnit(ctx context.Context, lanIP string) (string, error) {
	body := Identity{LanIP: lanIP, MacAddress: c.macAddress, GitHash: c.gitHash}
	var resp RegisterResponse
	if err := c.post(ctx, "/jamUnit", body, &resp); err != nil {
		return "", err
	}
	return resp.BroadcastUnit.Token, nil
}

// PingJamUnit heartbeats an already-registered client.
func (c *Client) PingJamUnit(ctx context.Context, token, lanIP string) error {
	body := Identity{Token: token, LanIP: lanIP, MacAddress: c.macAddress, GitHash: c.gitHash}
	return c.put(ctx, "/jamUnit/ping", body, nil)
}

// HeartbeatLoop runs until ctx is cancelled, pinging at
// authenticatedPingInterval once registered and retrying registration at
// unauthenticatedBackoff until it succeeds. ping is called with the
// current token on each successful tick; register is called (and its
// result stored as the active token) whenever the token is empty, which
// is also the case after any failed ping.
func HeartbeatLoop(ctx context.Context, lanIP string, register func(ctx context.Context) (string, error), ping func(ctx context.Context, token string) error) {
	var token string
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if token == "" {
			t, err := register(ctx)
			if err != nil {
				log.Printf("[directory] registration failed: %v", err)
				sleepOrDone(ctx, unauthenticatedBackoff)
				continue
			}
			token = t
			log.Printf("[directory] registered, token issued")
			continue
		}

		if err := ping(ctx, token); err != nil {
			log.Printf("[directory] heartbeat failed, re-registering: %v", err)
			token = ""
			continue
		}
		sleepOrDone(ctx, authenticatedPingInterval)
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
