package rtc

import (
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/VoiceRelay/internal/config"
	"github.com/dkeye/VoiceRelay/internal/domain"
)

func TestICEServers(t *testing.T) {
	tests := []struct {
		name    string
		in      []config.ICEServer
		want    []webrtc.ICEServer
		wantErr bool
	}{
		{
			name: "stun",
			in:   []config.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}},
			want: []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}},
		},
		{
			name: "turn with credentials",
			in:   []config.ICEServer{{URLs: []string{"turn:turn.example.org:3478"}, Username: "u", Credential: "p"}},
			want: []webrtc.ICEServer{{
				URLs:           []string{"turn:turn.example.org:3478"},
				Username:       "u",
				Credential:     "p",
				CredentialType: webrtc.ICECredentialTypePassword,
			}},
		},
		{name: "turn without credentials", in: []config.ICEServer{{URLs: []string{"turn:turn.example.org:3478"}}}, wantErr: true},
		{name: "bad scheme", in: []config.ICEServer{{URLs: []string{"http://example.org"}}}, wantErr: true},
		{name: "no urls", in: []config.ICEServer{{}}, wantErr: true},
		{name: "empty list", in: nil, want: []webrtc.ICEServer{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ICEServers(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
