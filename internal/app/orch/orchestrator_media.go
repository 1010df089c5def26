package orch

import (
	"github.com/dkeye/VoiceRelay/internal/core"
	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/dkeye/VoiceRelay/internal/metrics"
)

// RelayMedia forwards one voice frame according to the configured scope:
// the sender's room, or every connected client in global mode. The sender
// is always excluded and must be authenticated.
func (o *Orchestrator) RelayMedia(from domain.ConnectionID, f core.Frame) Outcome {
	room, ok := o.authorize(from)
	if !ok {
		o.Metrics.Inc(metrics.DropUnauthorized)
		return DroppedUnauthorized
	}

	var sent int
	switch o.Options.MediaScope {
	case domain.MediaScopeGlobal:
		sent = o.Gateway.SendToAllExcept(from, f)
	default:
		// Authentication is granted only to members and cleared when they leave.
		sent = o.Gateway.SendToRoomExcept(room, from, f)
	}
	o.Metrics.Add(metrics.MediaRelayed, uint64(sent))
	return Delivered
}
