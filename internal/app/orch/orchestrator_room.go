package orch

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceRelay/internal/app"
	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/dkeye/VoiceRelay/internal/metrics"
)

func (o *Orchestrator) CreateRoom(id domain.RoomID, password string) (domain.Room, error) {
	return o.Rooms.CreateRoom(id, password)
}

// Join admits a connection to a room without a password. It is refused
// with domain.ErrUnauthorized when authentication is mandatory.
func (o *Orchestrator) Join(id domain.ConnectionID, room domain.RoomID) error {
	if o.Options.RequireAuthentication {
		return domain.ErrUnauthorized
	}
	m, err := o.admit(id, room, "", true)
	if err != nil {
		return err
	}
	o.announceJoined(m)
	return nil
}

// Authenticate admits a connection to a room after checking its password.
// On success the connection is sent authentication_success and the room a
// participant_update.
func (o *Orchestrator) Authenticate(id domain.ConnectionID, room domain.RoomID, password string) error {
	if room == "" || password == "" {
		return fmt.Errorf("%w: room_id and password are required", domain.ErrValidation)
	}
	m, err := o.admit(id, room, password, false)
	if errors.Is(err, domain.ErrRoomNotFound) {
		// Authentication never creates a room.
		err = domain.ErrAuthentication
	}
	if err != nil {
		if errors.Is(err, domain.ErrAuthentication) {
			o.Metrics.Inc(metrics.AuthFailures)
			log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", string(room)).Msg("authentication failed")
		}
		return err
	}
	o.announceAuthenticated(id, m)
	return nil
}

// LeaveRoom is Leave restricted to one room: when room is set and is not
// the connection's current room, nothing happens.
func (o *Orchestrator) LeaveRoom(id domain.ConnectionID, room domain.RoomID) bool {
	if room != "" {
		if cur, ok := o.Rooms.RoomOf(id); !ok || cur != room {
			return false
		}
	}
	return o.Leave(id)
}

// Leave removes a connection from its room. It reports false when the
// connection was not in a room.
func (o *Orchestrator) Leave(id domain.ConnectionID) bool {
	if auth, ok := o.Gateway.Auth(id); ok {
		auth.Revoke()
	}
	m, ok := o.Rooms.Leave(id)
	if !ok {
		return false
	}
	o.announceLeft(m)
	return true
}

// OnDisconnect is the reaper. The gateway calls it once per connection,
// before the transport is closed; repeated calls are no-ops.
func (o *Orchestrator) OnDisconnect(id domain.ConnectionID) {
	m, ok := o.Rooms.Leave(id)
	if !ok {
		return
	}
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", string(m.Room)).Msg("reaped")
	o.announceLeft(m)
}

// admit moves the connection into room and marks it authenticated for it.
// A refused admission leaves the connection where it was.
func (o *Orchestrator) admit(id domain.ConnectionID, room domain.RoomID, password string, create bool) (app.Membership, error) {
	m, left, moved, err := o.Rooms.Move(id, room, password, create)
	if moved {
		o.announceLeft(left)
	}
	if err != nil {
		if moved {
			// The target vanished after the old room was left.
			if auth, ok := o.Gateway.Auth(id); ok {
				auth.Revoke()
			}
		}
		return m, err
	}
	auth, ok := o.Gateway.Auth(id)
	if !ok {
		// The connection went away while joining; the reaper already ran.
		o.Rooms.Leave(id)
		return m, domain.ErrUnauthorized
	}
	auth.Grant(room)
	return m, nil
}
