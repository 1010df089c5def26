// Package rtc turns the configured STUN/TURN list into the ICE server
// description browsers feed to RTCPeerConnection. The relay never
// terminates WebRTC itself; peers negotiate directly through the signal
// channel.
package rtc

import (
	"fmt"

	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceRelay/internal/config"
	"github.com/dkeye/VoiceRelay/internal/domain"
)

// ICEServers validates every URL and converts the list to pion's type.
// TURN entries must carry credentials.
func ICEServers(in []config.ICEServer) ([]webrtc.ICEServer, error) {
	out := make([]webrtc.ICEServer, 0, len(in))
	for i, s := range in {
		if len(s.URLs) == 0 {
			return nil, fmt.Errorf("%w: ice_servers[%d] has no urls", domain.ErrValidation, i)
		}
		for _, raw := range s.URLs {
			u, err := stun.ParseURI(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: ice_servers[%d] url %q: %v", domain.ErrValidation, i, raw, err)
			}
			if (u.Scheme == stun.SchemeTypeTURN || u.Scheme == stun.SchemeTypeTURNS) && (s.Username == "" || s.Credential == "") {
				return nil, fmt.Errorf("%w: ice_servers[%d] turn url %q needs username and credential", domain.ErrValidation, i, raw)
			}
		}
		srv := webrtc.ICEServer{URLs: append([]string(nil), s.URLs...)}
		if s.Username != "" {
			srv.Username = s.Username
			srv.Credential = s.Credential
			srv.CredentialType = webrtc.ICECredentialTypePassword
		}
		out = append(out, srv)
	}
	log.Debug().Str("module", "rtc").Int("count", len(out)).Msg("ice servers ready")
	return out, nil
}
