package core

import (
	"encoding/json"
	"fmt"
)

// Inbound event types.
const (
	EventJoin         = "join"
	EventLeave        = "leave"
	EventAuthenticate = "authenticate"
	EventOffer        = "offer"
	EventAnswer       = "answer"
	EventICECandidate = "ice_candidate"
	EventVoiceData    = "voice_data"
	EventPing         = "ping"
	EventWhoAmI       = "whoami"
)

// Outbound event types.
const (
	EventConnectSuccess    = "connect_success"
	EventUserJoined        = "user_joined"
	EventUserLeft          = "user_left"
	EventParticipantUpdate = "participant_update"
	EventAuthSuccess       = "authentication_success"
	EventAuthFailed        = "authentication_failed"
	EventError             = "error"
	EventPong              = "pong"
)

// Envelope is the wire shape of every text message in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IsSignal reports whether t is one of the negotiation message kinds.
func IsSignal(t string) bool {
	return t == EventOffer || t == EventAnswer || t == EventICECandidate
}

// Encode marshals data once into a text frame ready for fan-out.
func Encode(eventType string, data any) (Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s: %w", eventType, err)
	}
	return EncodeRaw(eventType, raw), nil
}

// EncodeRaw wraps an already encoded payload without touching its bytes,
// so relayed negotiation data reaches peers exactly as it was sent.
func EncodeRaw(eventType string, raw json.RawMessage) Frame {
	typ, _ := json.Marshal(eventType)
	buf := make([]byte, 0, len(raw)+len(typ)+20)
	buf = append(buf, `{"type":`...)
	buf = append(buf, typ...)
	if len(raw) > 0 {
		buf = append(buf, `,"data":`...)
		buf = append(buf, raw...)
	}
	buf = append(buf, '}')
	return TextFrame(buf)
}
