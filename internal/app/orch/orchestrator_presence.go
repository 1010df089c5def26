package orch

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceRelay/internal/app"
	"github.com/dkeye/VoiceRelay/internal/core"
	"github.com/dkeye/VoiceRelay/internal/domain"
)

type presenceNotice struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

type participantUpdate struct {
	Count int `json:"count"`
}

type authSuccess struct {
	RoomID domain.RoomID `json:"room_id"`
	Count  int           `json:"count"`
}

// announceJoined tells every member, the newcomer included, the new count.
func (o *Orchestrator) announceJoined(m app.Membership) {
	o.broadcast(m.Members, core.EventUserJoined, presenceNotice{
		Message: fmt.Sprintf("A user joined room %s", m.Room),
		Count:   m.Count,
	})
}

// announceLeft reaches the remaining members only; the leaver is gone.
func (o *Orchestrator) announceLeft(m app.Membership) {
	if len(m.Members) == 0 {
		return
	}
	o.broadcast(m.Members, core.EventUserLeft, presenceNotice{
		Message: fmt.Sprintf("A user left room %s", m.Room),
		Count:   m.Count,
	})
}

func (o *Orchestrator) announceAuthenticated(id domain.ConnectionID, m app.Membership) {
	if f, err := core.Encode(core.EventAuthSuccess, authSuccess{RoomID: m.Room, Count: m.Count}); err == nil {
		o.Gateway.SendTo(id, f)
	}
	o.broadcast(m.Members, core.EventParticipantUpdate, participantUpdate{Count: m.Count})
}

func (o *Orchestrator) broadcast(to []domain.ConnectionID, eventType string, data any) {
	f, err := core.Encode(eventType, data)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("event", eventType).Msg("encode presence")
		return
	}
	o.Gateway.SendToEach(to, f)
}
