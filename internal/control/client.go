package control

import (
	"log"
	"time"

	"github.com/gorilla/websocket"

	"jamcore/internal/engine"
	"jamcore/internal/pedalboard"
)

// writeTimeout bounds a single status-message write.
const writeTimeout = 5 * time.Second

// Client owns the control-thread side of one engine's chat-room
// connection: it decodes inbound ParamMessages into engine.ControlCommand
// values and republishes the engine's Telemetry as StatusMessages.
type Client struct {
	conn      *websocket.Conn
	eng       *engine.JamEngine
	roomToken string
	done      chan struct{}
}

// Dial opens a websocket connection to wsURL and returns a Client bound to
// eng. roomToken is echoed back in every status message.
func Dial(wsURL string, eng *engine.JamEngine, roomToken string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn:      conn,
		eng:       eng,
		roomToken: roomToken,
		done:      make(chan struct{}),
	}, nil
}

// Run starts the status pump and blocks reading inbound ParamMessages
// until the connection closes or errors. It never propagates a read error
// to the audio thread — per §7 a DirectoryError/control-channel failure
// does not affect ongoing audio.
func (c *Client) Run() {
	go c.statusPump()
	for {
		var msg ParamMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			log.Printf("[control] read: %v", err)
			close(c.done)
			return
		}
		if cmd, ok := translate(msg); ok {
			c.eng.EnqueueControl(cmd)
		}
	}
}

func (c *Client) statusPump() {
	for {
		select {
		case <-c.done:
			return
		case t, ok := <-c.eng.Telemetry():
			if !ok {
				return
			}
			msg := StatusMessage{
				Speaker: "UnitChatRobot",
				LevelEvent: LevelEvent{
					Connected:       t.Connected,
					MasterAvgLevel:  t.MasterAvgLevel,
					MasterPeakLevel: t.MasterPeakLevel,
					Beat:            int(t.Beat),
					RoomToken:       c.roomToken,
				},
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Printf("[control] write status: %v", err)
				return
			}
		}
	}
}

// translate maps a known ParamMessage code to an engine control command.
// Unknown codes are reported false so callers can log-and-ignore them.
func translate(msg ParamMessage) (engine.ControlCommand, bool) {
	switch msg.Param {
	case ParamConnect:
		return engine.ControlCommand{
			Kind:     engine.CmdConnect,
			Host:     msg.SValue,
			Port:     msg.IValue1,
			ClientID: uint32(msg.IValue2),
		}, true
	case ParamDisconnect:
		return engine.ControlCommand{Kind: engine.CmdDisconnect}, true
	case ParamSetMasterVolume:
		return engine.ControlCommand{
			Kind:   engine.CmdSetMasterVolume,
			Volume: float32(msg.IValue1) / 100.0,
		}, true
	case ParamPedalInsert:
		return engine.ControlCommand{
			Kind:      engine.CmdPedalInsert,
			Channel:   msg.IValue1,
			PedalKind: pedalboard.Kind(msg.IValue2),
		}, true
	case ParamPedalDelete:
		return engine.ControlCommand{
			Kind:       engine.CmdPedalDelete,
			Channel:    msg.IValue1,
			PedalIndex: msg.IValue2,
		}, true
	case ParamPedalReorder:
		return engine.ControlCommand{
			Kind:       engine.CmdPedalReorder,
			Channel:    msg.IValue1,
			PedalIndex: msg.IValue2,
			PedalTo:    int(msg.FValue),
		}, true
	case ParamPedalChangeSetting:
		return engine.ControlCommand{
			Kind:         engine.CmdPedalChangeSetting,
			Channel:      msg.IValue1,
			PedalIndex:   msg.IValue2,
			SettingName:  msg.SValue,
			SettingValue: msg.FValue,
		}, true
	default:
		return engine.ControlCommand{}, false
	}
}

// Close tears down the websocket connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
