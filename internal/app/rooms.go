package app

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/dkeye/VoiceRelay/internal/metrics"
)

var ErrAlreadyInRoom = errors.New("connection already in another room")

// Membership is the state of a room right after a join or leave, read
// inside the same critical section as the mutation.
type Membership struct {
	Room domain.RoomID
	// Count is the member count after the mutation.
	Count int
	// Members is the member set after the mutation.
	Members []domain.ConnectionID
	// Deleted reports that the room was garbage-collected by this mutation.
	Deleted bool
}

type RoomInfo struct {
	ID          domain.RoomID     `json:"id"`
	MemberCount int               `json:"count"`
	Policy      domain.RoomPolicy `json:"policy"`
	Protected   bool              `json:"protected"`
	CreatedAt   time.Time         `json:"created_at"`
}

type RoomsOptions struct {
	// ImplicitCreate lets Join create an ephemeral room for an unknown id.
	ImplicitCreate bool
	Hasher         *PasswordHasher
	Metrics        *metrics.Metrics
	Now            func() time.Time
}

// Rooms is the registry of rooms and the single source of truth for presence.
//
// Lock order: a room's lock may be held while taking r.mu or r.idxMu, never
// the other way round. Mutations of one room are serialized by that room's
// lock, so different rooms proceed in parallel.
type Rooms struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomState

	idxMu sync.RWMutex
	index map[domain.ConnectionID]domain.RoomID

	implicit bool
	hasher   *PasswordHasher
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewRooms(opts RoomsOptions) *Rooms {
	if opts.Hasher == nil {
		opts.Hasher = NewPasswordHasher(0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Rooms{
		rooms:    make(map[domain.RoomID]*roomState),
		index:    make(map[domain.ConnectionID]domain.RoomID),
		implicit: opts.ImplicitCreate,
		hasher:   opts.Hasher,
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
}

// CreateRoom inserts an empty persistent room. An empty password leaves the
// room open. It fails with domain.ErrRoomConflict if id is taken.
func (r *Rooms) CreateRoom(id domain.RoomID, password string) (domain.Room, error) {
	if err := id.Validate(); err != nil {
		return domain.Room{}, err
	}
	if r.lookup(id) != nil {
		return domain.Room{}, domain.ErrRoomConflict
	}
	var hash string
	if password != "" {
		h, err := r.hasher.Hash(password)
		if err != nil {
			return domain.Room{}, err
		}
		hash = h
	}

	room := domain.Room{
		ID:           id,
		PasswordHash: hash,
		CreatedAt:    r.now(),
		Policy:       domain.RoomPersistent,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[id]; ok {
		return domain.Room{}, domain.ErrRoomConflict
	}
	r.rooms[id] = newRoomState(room)
	r.metrics.Inc(metrics.RoomsCreated)
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Bool("protected", hash != "").Msg("room created")
	return room, nil
}

// Join adds conn to the room and returns the membership after the change.
// Joining the room conn is already in is a no-op that reports the current
// state; joining a different one fails with ErrAlreadyInRoom.
func (r *Rooms) Join(conn domain.ConnectionID, id domain.RoomID, password string) (Membership, error) {
	m, _, _, err := r.join(conn, id, password, true, false)
	return m, err
}

// Move is Join for a connection that may sit in another room. The target
// is resolved and its password checked first; only then is the old room
// left, so a refused move changes nothing. When moved is true, left is
// the old room's membership after the departure.
// With create false an unknown room is domain.ErrRoomNotFound even when
// implicit creation is enabled.
func (r *Rooms) Move(conn domain.ConnectionID, id domain.RoomID, password string, create bool) (joined, left Membership, moved bool, err error) {
	return r.join(conn, id, password, create, true)
}

func (r *Rooms) join(conn domain.ConnectionID, id domain.RoomID, password string, create, move bool) (joined, left Membership, moved bool, err error) {
	if err := id.Validate(); err != nil {
		return Membership{}, Membership{}, false, err
	}
	for {
		rs, err := r.lookupOrCreate(id, create)
		if err != nil {
			return Membership{}, left, moved, err
		}
		// The hash is immutable, so the slow compare runs outside the lock.
		if rs.room.Protected() && !r.hasher.Verify(password, rs.room.PasswordHash) {
			return Membership{}, left, moved, domain.ErrAuthentication
		}
		if cur, ok := r.roomOf(conn); move && ok && cur != id {
			left, moved = r.Leave(conn)
		}

		rs.mu.Lock()
		if rs.closed {
			rs.mu.Unlock()
			continue
		}
		if cur, ok := r.roomOf(conn); ok && cur != id {
			r.dropIfEmptyLocked(rs)
			rs.mu.Unlock()
			return Membership{}, left, moved, ErrAlreadyInRoom
		}
		_, already := rs.members[conn]
		rs.members[conn] = struct{}{}
		r.setIndex(conn, id)
		m := Membership{Room: id, Count: len(rs.members), Members: rs.membersLocked("")}
		rs.mu.Unlock()

		if !already {
			r.metrics.Inc(metrics.Joins)
			log.Info().Str("module", "app.rooms").Str("conn", string(conn)).Str("room", string(id)).Int("count", m.Count).Msg("member joined")
		}
		return m, left, moved, nil
	}
}

// Leave removes conn from its current room. The bool is false when conn
// was not in a room, which makes repeated calls harmless.
func (r *Rooms) Leave(conn domain.ConnectionID) (Membership, bool) {
	id, ok := r.RoomOf(conn)
	if !ok {
		return Membership{}, false
	}
	rs := r.lookup(id)
	if rs == nil {
		r.clearIndex(conn)
		return Membership{}, false
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, member := rs.members[conn]; !member {
		return Membership{}, false
	}
	delete(rs.members, conn)
	r.clearIndex(conn)

	m := Membership{Room: id, Count: len(rs.members), Members: rs.membersLocked("")}
	m.Deleted = r.dropIfEmptyLocked(rs)
	r.metrics.Inc(metrics.Leaves)
	log.Info().Str("module", "app.rooms").Str("conn", string(conn)).Str("room", string(id)).Int("count", m.Count).Bool("deleted", m.Deleted).Msg("member left")
	return m, true
}

func (r *Rooms) CountOf(id domain.RoomID) int {
	rs := r.lookup(id)
	if rs == nil {
		return 0
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.members)
}

// RoomOf is the O(1) reverse lookup connection -> room.
func (r *Rooms) RoomOf(conn domain.ConnectionID) (domain.RoomID, bool) {
	return r.roomOf(conn)
}

// PeersOf returns the other members of id, provided conn is itself a member.
func (r *Rooms) PeersOf(id domain.RoomID, conn domain.ConnectionID) ([]domain.ConnectionID, bool) {
	rs := r.lookup(id)
	if rs == nil {
		return nil, false
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, ok := rs.members[conn]; !ok || rs.closed {
		return nil, false
	}
	return rs.membersLocked(conn), true
}

// MembersExcept returns the members of id other than exclude.
func (r *Rooms) MembersExcept(id domain.RoomID, exclude domain.ConnectionID) []domain.ConnectionID {
	rs := r.lookup(id)
	if rs == nil {
		return nil
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.membersLocked(exclude)
}

func (r *Rooms) Get(id domain.RoomID) (RoomInfo, bool) {
	rs := r.lookup(id)
	if rs == nil {
		return RoomInfo{}, false
	}
	return rs.info(), true
}

// Room returns the stored room description, including its password hash.
func (r *Rooms) Room(id domain.RoomID) (domain.Room, bool) {
	rs := r.lookup(id)
	if rs == nil {
		return domain.Room{}, false
	}
	return rs.room, true
}

func (r *Rooms) List() []RoomInfo {
	r.mu.RLock()
	states := make([]*roomState, 0, len(r.rooms))
	for _, rs := range r.rooms {
		states = append(states, rs)
	}
	r.mu.RUnlock()

	out := make([]RoomInfo, 0, len(states))
	for _, rs := range states {
		out = append(out, rs.info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// dropIfEmptyLocked deletes an empty ephemeral room. rs.mu must be held.
func (r *Rooms) dropIfEmptyLocked(rs *roomState) bool {
	if len(rs.members) != 0 || rs.room.Policy != domain.RoomEphemeral || rs.closed {
		return false
	}
	rs.closed = true
	r.mu.Lock()
	if r.rooms[rs.room.ID] == rs {
		delete(r.rooms, rs.room.ID)
	}
	r.mu.Unlock()
	r.metrics.Inc(metrics.RoomsDeleted)
	return true
}

func (r *Rooms) lookup(id domain.RoomID) *roomState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[id]
}

func (r *Rooms) lookupOrCreate(id domain.RoomID, create bool) (*roomState, error) {
	if rs := r.lookup(id); rs != nil {
		return rs, nil
	}
	if !r.implicit || !create {
		return nil, domain.ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if rs, ok := r.rooms[id]; ok {
		return rs, nil
	}
	rs := newRoomState(domain.Room{ID: id, CreatedAt: r.now(), Policy: domain.RoomEphemeral})
	r.rooms[id] = rs
	r.metrics.Inc(metrics.RoomsCreated)
	log.Debug().Str("module", "app.rooms").Str("room", string(id)).Msg("ephemeral room created")
	return rs, nil
}

func (r *Rooms) roomOf(conn domain.ConnectionID) (domain.RoomID, bool) {
	r.idxMu.RLock()
	defer r.idxMu.RUnlock()
	id, ok := r.index[conn]
	return id, ok
}

func (r *Rooms) setIndex(conn domain.ConnectionID, id domain.RoomID) {
	r.idxMu.Lock()
	r.index[conn] = id
	r.idxMu.Unlock()
}

func (r *Rooms) clearIndex(conn domain.ConnectionID) {
	r.idxMu.Lock()
	delete(r.index, conn)
	r.idxMu.Unlock()
}
