package app

import (
	"sync"

	"github.com/dkeye/VoiceRelay/internal/domain"
)

// AuthContext is the authentication state of one connection:
// Unauthenticated, or Authenticated(room). It lives in the gateway's
// per-connection record and is never shared between connections.
type AuthContext struct {
	mu   sync.RWMutex
	room domain.RoomID
	ok   bool
}

func (a *AuthContext) Grant(room domain.RoomID) {
	a.mu.Lock()
	a.room, a.ok = room, true
	a.mu.Unlock()
}

// Revoke returns the room the connection was authenticated for, if any.
func (a *AuthContext) Revoke() (domain.RoomID, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	room, ok := a.room, a.ok
	a.room, a.ok = "", false
	return room, ok
}

func (a *AuthContext) Authenticated() (domain.RoomID, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.room, a.ok
}
