package domain

import (
	"fmt"
	"time"
)

const MaxRoomIDLen = 64

type RoomID string

// RoomPolicy decides what happens to a room once its last member leaves.
type RoomPolicy string

const (
	// RoomEphemeral rooms are deleted as soon as they become empty.
	RoomEphemeral RoomPolicy = "ephemeral"
	// RoomPersistent rooms survive emptiness; they are pre-created with a password.
	RoomPersistent RoomPolicy = "persistent"
)

// Room is the immutable description of a room. Membership lives in app.Rooms.
type Room struct {
	ID           RoomID     `json:"id"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	Policy       RoomPolicy `json:"policy"`
}

func (r *Room) Protected() bool { return r.PasswordHash != "" }

func (id RoomID) Validate() error {
	if id == "" {
		return fmt.Errorf("%w: room id is empty", ErrValidation)
	}
	if len(id) > MaxRoomIDLen {
		return fmt.Errorf("%w: room id too long", ErrValidation)
	}
	return nil
}
