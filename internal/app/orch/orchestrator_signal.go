package orch

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceRelay/internal/core"
	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/dkeye/VoiceRelay/internal/metrics"
)

// signalTarget is the only field read from a negotiation payload.
type signalTarget struct {
	Room domain.RoomID `json:"room"`
}

// RelaySignal forwards an offer, answer or ice_candidate payload, byte for
// byte, to the other members of the room it names. The sender must be an
// authenticated member of that room; otherwise nothing is sent anywhere.
func (o *Orchestrator) RelaySignal(from domain.ConnectionID, kind string, payload json.RawMessage) Outcome {
	current, ok := o.authorize(from)
	if !ok {
		o.Metrics.Inc(metrics.DropUnauthorized)
		log.Debug().Str("module", "orch").Str("conn", string(from)).Str("kind", kind).Msg("signal dropped: unauthenticated")
		return DroppedUnauthorized
	}

	var target signalTarget
	if err := json.Unmarshal(payload, &target); err != nil || target.Room == "" || target.Room != current {
		o.Metrics.Inc(metrics.DropNotMember)
		log.Debug().Str("module", "orch").Str("conn", string(from)).Str("kind", kind).Str("room", string(target.Room)).Msg("signal dropped: not a member")
		return DroppedNotMember
	}

	peers, ok := o.Rooms.PeersOf(target.Room, from)
	if !ok {
		o.Metrics.Inc(metrics.DropNotMember)
		return DroppedNotMember
	}
	sent := o.Gateway.SendToEach(peers, core.EncodeRaw(kind, payload))
	o.Metrics.Add(metrics.SignalsRelayed, uint64(sent))
	log.Debug().Str("module", "orch").Str("conn", string(from)).Str("kind", kind).Str("room", string(target.Room)).Int("sent_to", sent).Msg("signal relayed")
	return Delivered
}
