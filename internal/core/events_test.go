package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRaw_PreservesPayloadBytes(t *testing.T) {
	raw := json.RawMessage(`{"room":"alpha", "sdp":"v=0\r\n",  "extra":{"k":[1,2]}}`)
	f := EncodeRaw(EventOffer, raw)

	assert.False(t, f.Binary)
	assert.Equal(t, `{"type":"offer","data":`+string(raw)+`}`, string(f.Data))

	var env Envelope
	require.NoError(t, json.Unmarshal(f.Data, &env))
	assert.Equal(t, EventOffer, env.Type)
	assert.Equal(t, string(raw), string(env.Data))
}

func TestEncodeRaw_NoData(t *testing.T) {
	f := EncodeRaw(EventPong, nil)
	assert.Equal(t, `{"type":"pong"}`, string(f.Data))
}

func TestEncode(t *testing.T) {
	f, err := Encode(EventUserJoined, map[string]any{"count": 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"user_joined","data":{"count":2}}`, string(f.Data))
}

func TestIsSignal(t *testing.T) {
	for _, typ := range []string{EventOffer, EventAnswer, EventICECandidate} {
		assert.True(t, IsSignal(typ), typ)
	}
	assert.False(t, IsSignal(EventVoiceData))
	assert.False(t, IsSignal(EventJoin))
}
