// Package control implements the chat-room control channel: a
// gorilla/websocket connection carrying JSON ParamMessage commands from
// the control thread into the audio thread's command queue, and
// per-second status snapshots back out (§6).
package control

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Known param codes recognized by the audio engine (§6, non-exhaustive).
// The pedal-board codes are this implementation's own sentinel choice —
// §6 names insert, delete, and change-setting as pedal-board ops the engine
// must recognize but leaves their wire codes unspecified, and reorder gets
// a code here as well; this is the same
// kind of decision already recorded for the synthetic playback client ID
// and packet-file format version (see DESIGN.md "Open question
// decisions").
const (
	ParamConnect         = 21
	ParamDisconnect      = 22
	ParamSetMasterVolume = 1006

	// ParamPedalInsert: iValue1=channel (0 or 1), iValue2=pedal kind.
	ParamPedalInsert = 2001
	// ParamPedalDelete: iValue1=channel, iValue2=pedal index.
	ParamPedalDelete = 2002
	// ParamPedalReorder: iValue1=channel, iValue2=pedal index, fValue=
	// destination index (reorder needs three integers; fValue carries the
	// third since ParamMessage has only two int fields).
	ParamPedalReorder = 2003
	// ParamPedalChangeSetting: iValue1=channel, iValue2=pedal index,
	// sValue=setting name, fValue=setting value.
	ParamPedalChangeSetting = 2004
)

// ParamMessage is the control channel's command envelope. Both string and
// numeric JSON encodings of the integer/float fields must decode
// correctly, since different sender implementations use either form.
type ParamMessage struct {
	Param   int
	IValue1 int
	IValue2 int
	FValue  float64
	SValue  string
}

// UnmarshalJSON accepts {param, iValue1, iValue2, fValue, sValue} where
// the numeric fields may arrive as JSON numbers or as quoted strings.
func (m *ParamMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Param   json.RawMessage `json:"param"`
		IValue1 json.RawMessage `json:"iValue1"`
		IValue2 json.RawMessage `json:"iValue2"`
		FValue  json.RawMessage `json:"fValue"`
		SValue  string          `json:"sValue"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var err error
	if m.Param, err = decodeInt(raw.Param); err != nil {
		return fmt.Errorf("control: param: %w", err)
	}
	if m.IValue1, err = decodeInt(raw.IValue1); err != nil {
		return fmt.Errorf("control: iValue1: %w", err)
	}
	if m.IValue2, err = decodeInt(raw.IValue2); err != nil {
		return fmt.Errorf("control: iValue2: %w", err)
	}
	if m.FValue, err = decodeFloat(raw.FValue); err != nil {
		return fmt.Errorf("control: fValue: %w", err)
	}
	m.SValue = raw.SValue
	return nil
}

// MarshalJSON always emits the numeric fields as JSON numbers.
func (m ParamMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Param   int     `json:"param"`
		IValue1 int     `json:"iValue1"`
		IValue2 int     `json:"iValue2"`
		FValue  float64 `json:"fValue"`
		SValue  string  `json:"sValue"`
	}{m.Param, m.IValue1, m.IValue2, m.FValue, m.SValue})
}

func decodeInt(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return 0, nil
		}
		return strconv.Atoi(s)
	}
	return 0, fmt.Errorf("cannot decode %s as int", raw)
}

func decodeFloat(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	}
	return 0, fmt.Errorf("cannot decode %s as float", raw)
}

// LevelEvent carries the per-second meter/connection snapshot (§6).
type LevelEvent struct {
	Connected       bool    `json:"connected"`
	MasterAvgLevel  float32 `json:"masterAvgLevel"`
	MasterPeakLevel float32 `json:"masterPeakLevel"`
	Beat            int     `json:"beat"`
	RoomToken       string  `json:"roomToken"`
}

// StatusMessage is the once-per-second chat-room status broadcast.
type StatusMessage struct {
	Speaker    string     `json:"speaker"`
	LevelEvent LevelEvent `json:"levelEvent"`
}
