package app

import (
	"sync"

	"github.com/dkeye/VoiceRelay/internal/domain"
)

// roomState is one room's membership set behind its own lock.
// It never touches transport resources.
type roomState struct {
	mu      sync.Mutex
	room    domain.Room
	members map[domain.ConnectionID]struct{}
	// closed is set, under mu, when the room has been removed from the
	// registry. A goroutine that looked the room up earlier must retry.
	closed bool
}

func newRoomState(room domain.Room) *roomState {
	return &roomState{
		room:    room,
		members: make(map[domain.ConnectionID]struct{}),
	}
}

// membersLocked returns the member ids, skipping exclude.
func (s *roomState) membersLocked(exclude domain.ConnectionID) []domain.ConnectionID {
	out := make([]domain.ConnectionID, 0, len(s.members))
	for id := range s.members {
		if id == exclude {
			continue
		}
		out = append(out, id)
	}
	return out
}

func (s *roomState) info() RoomInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RoomInfo{
		ID:          s.room.ID,
		MemberCount: len(s.members),
		Policy:      s.room.Policy,
		Protected:   s.room.Protected(),
		CreatedAt:   s.room.CreatedAt,
	}
}
