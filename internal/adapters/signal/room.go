package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceRelay/internal/core"
	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/dkeye/VoiceRelay/internal/metrics"
)

type joinPayload struct {
	Room domain.RoomID `json:"room"`
}

func (ctl *SignalWSController) handleJoin(id domain.ConnectionID, c *wsSignalConn, data json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" {
		ctl.sendError(c, "room is required")
		return
	}
	if err := ctl.Orch.Join(id, p.Room); err != nil {
		log.Info().Err(err).Str("module", "signal").Str("conn", string(id)).Str("room", string(p.Room)).Msg("join refused")
		ctl.replyFailure(c, err, false)
	}
}

type leavePayload struct {
	Room domain.RoomID `json:"room"`
}

// handleLeave leaves the named room; without a room it leaves the current one.
func (ctl *SignalWSController) handleLeave(id domain.ConnectionID, data json.RawMessage) {
	var p leavePayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			log.Debug().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad leave payload")
			return
		}
	}
	ctl.Orch.LeaveRoom(id, p.Room)
}

type authenticatePayload struct {
	RoomID   domain.RoomID `json:"room_id"`
	Password string        `json:"password"`
}

func (ctl *SignalWSController) handleAuthenticate(id domain.ConnectionID, c *wsSignalConn, data json.RawMessage) {
	if !ctl.limiter.Allow(id) {
		ctl.Orch.Metrics.Inc(metrics.AuthRateLimited)
		ctl.sendEvent(c, core.EventAuthFailed, messageData{Message: "Too many attempts"})
		return
	}
	var p authenticatePayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			ctl.sendEvent(c, core.EventAuthFailed, messageData{Message: "room_id and password are required"})
			return
		}
	}
	if err := ctl.Orch.Authenticate(id, p.RoomID, p.Password); err != nil {
		ctl.replyFailure(c, err, true)
	}
}

// replyFailure maps an admission error to the event the client sees.
func (ctl *SignalWSController) replyFailure(c *wsSignalConn, err error, authenticating bool) {
	switch {
	case errors.Is(err, domain.ErrAuthentication):
		ctl.sendEvent(c, core.EventAuthFailed, messageData{Message: "Invalid password"})
	case errors.Is(err, domain.ErrUnauthorized):
		ctl.sendEvent(c, core.EventAuthFailed, messageData{Message: "Authentication required"})
	case errors.Is(err, domain.ErrValidation) && authenticating:
		ctl.sendEvent(c, core.EventAuthFailed, messageData{Message: "room_id and password are required"})
	case errors.Is(err, domain.ErrValidation):
		ctl.sendError(c, "Invalid room id")
	case errors.Is(err, domain.ErrRoomNotFound):
		ctl.sendError(c, "Room not found")
	default:
		log.Error().Err(err).Str("module", "signal").Msg("admission failed")
		ctl.sendError(c, "Internal error")
	}
}
