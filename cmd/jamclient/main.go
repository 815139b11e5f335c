// Command jamclient is the headless sound client: it drives a JamEngine
// from a real portaudio duplex stream, connects to a broadcast room over
// UDP, and bridges a control-channel websocket into the engine's
// control/telemetry queues. There is no GUI (see Non-goals).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"jamcore/internal/audiodev"
	"jamcore/internal/config"
	"jamcore/internal/control"
	"jamcore/internal/directory"
	"jamcore/internal/engine"
	"jamcore/internal/socket"
)

// clientBindPort is the client's default local UDP bind port (§6 External
// Interfaces: "client bind port 9991").
const clientBindPort = 9991

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Println("jamclient (jamcore)")
		return
	}

	cfg := config.Load()

	bindPort := flag.Int("bind-port", clientBindPort, "local UDP port for the data-plane socket")
	serverHost := flag.String("server-host", "", "broadcast server host to connect to (empty to wait for a control-channel connect command)")
	serverPort := flag.Int("server-port", cfg.Port, "broadcast server UDP port")
	clientID := flag.Uint("client-id", 1, "client ID stamped on outbound packets")
	wsURL := flag.String("ws-url", cfg.WSURL, "control-channel websocket URL (empty disables the control channel)")
	directoryURL := flag.String("directory-url", cfg.APIURL, "directory service base URL (empty disables registration)")
	macAddress := flag.String("mac-address", "", "MAC address reported to the directory service")
	gitHash := flag.String("git-hash", "dev", "build identifier reported to the directory service")
	inputDevice := flag.Int("input-device", cfg.InputDeviceID, "portaudio input device index (-1 for default)")
	outputDevice := flag.Int("output-device", cfg.OutputDeviceID, "portaudio output device index (-1 for default)")
	frameSize := flag.Int("frame-size", engine.DefaultFrameSize, "samples per audio callback period")
	listDevices := flag.Bool("list-devices", false, "print available input/output devices and exit")
	register := flag.Bool("register", false, "register with the directory service before connecting")
	flag.Parse()

	if *listDevices {
		printDevices()
		return
	}

	roomToken := cfg.LastRoomToken
	if *register {
		token, err := discoverAndRegister(context.Background(), *directoryURL, *macAddress, *gitHash)
		if err != nil {
			log.Printf("[directory] register: %v (continuing with last known token)", err)
		} else {
			roomToken = token
			cfg.LastRoomToken = token
			if err := config.Save(cfg); err != nil {
				log.Printf("[config] save: %v", err)
			}
			log.Printf("[directory] registered, token issued")
		}
	}

	sock, err := socket.Listen(*bindPort)
	if err != nil {
		log.Fatalf("[socket] %v", err)
	}
	defer sock.Close()

	eng := engine.New(sock, *frameSize)
	defer eng.Close()

	if *serverHost != "" {
		if err := sock.Connect(*serverHost, *serverPort, uint32(*clientID)); err != nil {
			log.Fatalf("[socket] connect: %v", err)
		}
		log.Printf("[jamclient] connected to %s:%d as client %d", *serverHost, *serverPort, *clientID)
	}

	stream, err := audiodev.Open(*inputDevice, *outputDevice, *frameSize, eng)
	if err != nil {
		log.Fatalf("[audiodev] %v", err)
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		log.Fatalf("[audiodev] %v", err)
	}
	defer stream.Stop()
	log.Printf("[jamclient] audio stream running at %d Hz, %d samples/frame", audiodev.SampleRate, *frameSize)

	var ctl *control.Client
	if *wsURL != "" {
		ctl, err = control.Dial(*wsURL, eng, roomToken)
		if err != nil {
			log.Printf("[control] dial %s: %v (continuing without a control channel)", *wsURL, err)
		} else {
			defer ctl.Close()
			go ctl.Run()
			log.Printf("[control] connected to %s", *wsURL)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh
	log.Println("[jamclient] shutting down...")
}

// printDevices lists portaudio input/output devices, used for operators
// picking -input-device/-output-device values before running headless.
func printDevices() {
	fmt.Println("input devices:")
	for _, d := range audiodev.ListInputDevices() {
		fmt.Printf("  %2d  %s\n", d.ID, d.Name)
	}
	fmt.Println("output devices:")
	for _, d := range audiodev.ListOutputDevices() {
		fmt.Printf("  %2d  %s\n", d.ID, d.Name)
	}
}

// discoverAndRegister resolves this host's LAN-facing address via STUN and
// registers it as a jam unit with the directory service, returning the
// issued token.
func discoverAndRegister(ctx context.Context, apiURL, macAddress, gitHash string) (string, error) {
	client := directory.New(apiURL, macAddress, gitHash)
	lanIP, err := directory.DiscoverLANAddress(ctx)
	if err != nil {
		return "", err
	}
	return client.RegisterJamUnit(ctx, lanIP)
}
