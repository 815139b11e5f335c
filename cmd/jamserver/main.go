// Command jamserver runs one broadcast-server process: a UDP room, its
// admin status API, optional directory-service registration, and an
// optional packet recorder / playback-mixer virtual participant.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"jamcore/internal/adminapi"
	"jamcore/internal/broadcast"
	"jamcore/internal/catalog"
	"jamcore/internal/directory"
	"jamcore/internal/engine"
	"jamcore/internal/packetfile"
	"jamcore/internal/playback"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Println("jamserver (jamcore)")
		return
	}

	port := flag.Int("port", 7891, "UDP port this room listens on")
	apiAddr := flag.String("api-addr", ":8090", "admin HTTP API listen address (empty to disable)")
	dbPath := flag.String("db", "jamserver.db", "SQLite catalog database path")
	roomName := flag.String("room-name", "Jam Room", "display name recorded for this room")
	recordingsDir := flag.String("recordings-dir", "recordings", "directory for packet-file recordings (relative to -db directory)")
	recordPath := flag.String("record", "", "start recording this session to the given packet file immediately (empty to disable)")
	playbackPath := flag.String("playback", "", "inject a recorded packet file as a virtual participant (empty to disable)")
	directoryURL := flag.String("directory-url", "", "directory service base URL (empty disables registration)")
	macAddress := flag.String("mac-address", "", "MAC address reported to the directory service")
	gitHash := flag.String("git-hash", "dev", "build identifier reported to the directory service")
	flag.Parse()

	cat, err := catalog.Open(*dbPath)
	if err != nil {
		log.Fatalf("[catalog] %v", err)
	}
	defer cat.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		log.Println("[jamserver] shutting down...")
		cancel()
	}()

	publishLatency := func(latency map[uint32]float64) {
		for clientID, ms := range latency {
			log.Printf("[broadcast] client %d loop latency %.1fms", clientID, ms)
		}
	}
	room, err := broadcast.NewRoom(*port, publishLatency)
	if err != nil {
		log.Fatalf("[broadcast] %v", err)
	}
	defer room.Close()

	roomID := uuid.NewString()
	roomToken := uuid.NewString()
	if err := cat.CreateRoom(ctx, roomID, *roomName, room.LocalPort(), roomToken); err != nil {
		log.Printf("[catalog] record room: %v", err)
	} else {
		log.Printf("[jamserver] room %q persisted, token issued", *roomName)
	}

	if *directoryURL != "" {
		go runDirectoryRegistration(ctx, *directoryURL, *macAddress, *gitHash, room.LocalPort())
	}

	if *recordPath != "" {
		fullPath := *recordPath
		if filepath.Dir(fullPath) == "." {
			fullPath = filepath.Join(filepath.Dir(*dbPath), *recordingsDir, fullPath)
		}
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			log.Fatalf("[recorder] create recordings dir: %v", err)
		}
		writer, err := packetfile.NewPacketWriter(fullPath)
		if err != nil {
			log.Fatalf("[recorder] %v", err)
		}
		room.SetRecorder(writer)
		log.Printf("[recorder] recording to %s", fullPath)
		recordingID := uuid.NewString()
		defer func() {
			room.SetRecorder(nil)
			writer.Close()
			status, err := writer.Stat()
			if err != nil {
				log.Printf("[recorder] stat %s: %v", fullPath, err)
				return
			}
			if err := cat.RecordRecording(context.Background(), recordingID, roomID, fullPath, status.SizeBytes); err != nil {
				log.Printf("[catalog] record recording: %v", err)
			}
		}()
	}

	if *playbackPath != "" {
		go runPlaybackThread(ctx, room, *playbackPath)
	}

	if *apiAddr != "" {
		api := adminapi.New(room, roomToken)
		go api.Run(ctx, *apiAddr)
		log.Printf("[adminapi] listening on %s (POST /api/admit with the room token to let a client in)", *apiAddr)
	}

	log.Printf("[broadcast] room listening on UDP port %d", room.LocalPort())
	done := make(chan error, 1)
	stop := make(chan struct{})
	go func() { done <- room.Run(stop) }()

	select {
	case <-ctx.Done():
		close(stop)
		<-done
	case err := <-done:
		if err != nil {
			log.Fatalf("[broadcast] %v", err)
		}
	}
}

// runDirectoryRegistration registers this broadcast server with the
// external directory service and maintains its heartbeat for the
// lifetime of ctx (§5 control thread, §6 Directory REST API).
func runDirectoryRegistration(ctx context.Context, baseURL, macAddress, gitHash string, port int) {
	client := directory.New(baseURL, macAddress, gitHash)
	lanIP, err := directory.DiscoverLANAddress(ctx)
	if err != nil {
		log.Printf("[directory] discover lan address: %v", err)
		lanIP = ""
	}

	register := func(ctx context.Context) (string, error) {
		token, err := client.RegisterBroadcastUnit(ctx, lanIP)
		if err != nil {
			return "", err
		}
		if err := client.ActivateRoom(ctx, port); err != nil {
			log.Printf("[directory] activate room: %v", err)
		}
		return token, nil
	}
	ping := func(ctx context.Context, token string) error {
		return client.PingBroadcastUnit(ctx, token, lanIP)
	}
	directory.HeartbeatLoop(ctx, lanIP, register, ping)
}

// runPlaybackThread owns a PlaybackMixer and fires one synthetic packet
// per due frame into room's broadcast loop via InjectSynthetic, exactly
// the "playback -> broadcast" bounded channel the concurrency model
// describes (§4.11, §5).
func runPlaybackThread(ctx context.Context, room *broadcast.Room, path string) {
	pm, err := playback.Open(path, syntheticPlaybackClientID, engine.DefaultFrameSize)
	if err != nil {
		log.Printf("[playback] open %s: %v", path, err)
		return
	}
	defer pm.Close()
	log.Printf("[playback] injecting %s as a virtual participant", path)

	ticker := time.NewTicker(time.Second / time.Duration(audioFramesPerSecond()))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := time.Now()
		if err := pm.LoadUpTillNow(now); err != nil {
			log.Printf("[playback] stream ended: %v", err)
			return
		}
		room.InjectSynthetic(pm.GetAPacket(now))
	}
}

// syntheticPlaybackClientID is the fixed sender ID stamped on every
// packet the playback thread injects; it does not collide with any
// directory-issued client ID since those are assigned starting from 1
// by the control thread's connect handshake.
const syntheticPlaybackClientID = 0xFFFFFFFE

func audioFramesPerSecond() int {
	return audiodevSampleRate / engine.DefaultFrameSize
}

// audiodevSampleRate mirrors audiodev.SampleRate without importing the
// portaudio-backed package into a binary that may run headless.
const audiodevSampleRate = 48000
