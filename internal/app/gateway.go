package app

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceRelay/internal/core"
	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/dkeye/VoiceRelay/internal/metrics"
)

// RoomView is the slice of the room registry the gateway needs for
// room-scoped sends.
type RoomView interface {
	MembersExcept(id domain.RoomID, exclude domain.ConnectionID) []domain.ConnectionID
}

type sessionEntry struct {
	Signal      core.SignalConnection
	Auth        *AuthContext
	Client      string
	ConnectedAt time.Time
}

// Gateway owns one channel per connected client and the send primitives.
// Sends are fire-and-forget: an unknown, closed or slow recipient never
// produces an error for the caller.
type Gateway struct {
	mu       sync.RWMutex
	sessions map[domain.ConnectionID]*sessionEntry

	rooms        RoomView
	policy       Policy
	metrics      *metrics.Metrics
	onDisconnect func(domain.ConnectionID)
}

func NewGateway(rooms RoomView, policy Policy, m *metrics.Metrics) *Gateway {
	if policy == nil {
		policy = DropPolicy{}
	}
	return &Gateway{
		sessions: make(map[domain.ConnectionID]*sessionEntry),
		rooms:    rooms,
		policy:   policy,
		metrics:  m,
	}
}

// OnDisconnect registers the cleanup run for every disconnected connection
// before its transport is closed.
func (g *Gateway) OnDisconnect(fn func(domain.ConnectionID)) {
	g.mu.Lock()
	g.onDisconnect = fn
	g.mu.Unlock()
}

// Connect registers a transport and assigns it a fresh connection id.
// client is an optional browser token used only for log correlation.
func (g *Gateway) Connect(sig core.SignalConnection, client string) domain.ConnectionID {
	id := domain.ConnectionID(uuid.NewString())
	g.mu.Lock()
	g.sessions[id] = &sessionEntry{
		Signal:      sig,
		Auth:        &AuthContext{},
		Client:      client,
		ConnectedAt: time.Now(),
	}
	g.mu.Unlock()
	g.metrics.Inc(metrics.ConnectionsOpened)
	log.Info().Str("module", "app.gateway").Str("conn", string(id)).Str("client", client).Msg("connected")
	return id
}

// Disconnect is idempotent. The first call unregisters id, runs the
// disconnect hook, revokes authentication and closes the transport, in
// that order.
func (g *Gateway) Disconnect(id domain.ConnectionID) {
	g.mu.Lock()
	e, ok := g.sessions[id]
	if ok {
		delete(g.sessions, id)
	}
	hook := g.onDisconnect
	g.mu.Unlock()
	if !ok {
		return
	}

	if hook != nil {
		hook(id)
	}
	e.Auth.Revoke()
	e.Signal.Close()
	g.metrics.Inc(metrics.ConnectionsClosed)
	log.Info().Str("module", "app.gateway").Str("conn", string(id)).Dur("session", time.Since(e.ConnectedAt)).Msg("disconnected")
}

// Auth returns the authentication context of a live connection.
func (g *Gateway) Auth(id domain.ConnectionID) (*AuthContext, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.sessions[id]
	if !ok {
		return nil, false
	}
	return e.Auth, true
}

func (g *Gateway) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}

func (g *Gateway) SendTo(id domain.ConnectionID, f core.Frame) {
	g.mu.RLock()
	e, ok := g.sessions[id]
	g.mu.RUnlock()
	if !ok {
		return
	}
	g.deliver(id, e, f)
}

// SendToEach sends f to every listed connection and returns how many
// accepted it.
func (g *Gateway) SendToEach(ids []domain.ConnectionID, f core.Frame) int {
	type target struct {
		id domain.ConnectionID
		e  *sessionEntry
	}
	g.mu.RLock()
	targets := make([]target, 0, len(ids))
	for _, id := range ids {
		if e, ok := g.sessions[id]; ok {
			targets = append(targets, target{id, e})
		}
	}
	g.mu.RUnlock()

	sent := 0
	for _, t := range targets {
		if g.deliver(t.id, t.e, f) {
			sent++
		}
	}
	return sent
}

func (g *Gateway) SendToRoomExcept(room domain.RoomID, exclude domain.ConnectionID, f core.Frame) int {
	if g.rooms == nil {
		return 0
	}
	return g.SendToEach(g.rooms.MembersExcept(room, exclude), f)
}

func (g *Gateway) SendToAllExcept(exclude domain.ConnectionID, f core.Frame) int {
	g.mu.RLock()
	ids := make([]domain.ConnectionID, 0, len(g.sessions))
	for id := range g.sessions {
		if id != exclude {
			ids = append(ids, id)
		}
	}
	g.mu.RUnlock()
	return g.SendToEach(ids, f)
}

// Close disconnects every connection, e.g. on server shutdown.
func (g *Gateway) Close() {
	g.mu.RLock()
	ids := make([]domain.ConnectionID, 0, len(g.sessions))
	for id := range g.sessions {
		ids = append(ids, id)
	}
	g.mu.RUnlock()
	for _, id := range ids {
		g.Disconnect(id)
	}
}

func (g *Gateway) deliver(id domain.ConnectionID, e *sessionEntry, f core.Frame) bool {
	err := e.Signal.TrySend(f)
	switch {
	case err == nil:
		return true
	case errors.Is(err, core.ErrBackpressure):
		g.metrics.Inc(metrics.DropBackpressure)
		if g.policy.OnBackPressure(id) == KickMember {
			g.metrics.Inc(metrics.BackpressureKicks)
			log.Warn().Str("module", "app.gateway").Str("conn", string(id)).Msg("slow peer kicked")
			// Closing the transport ends its read loop, which disconnects it.
			e.Signal.Close()
		}
	default:
		log.Debug().Err(err).Str("module", "app.gateway").Str("conn", string(id)).Msg("send skipped")
	}
	return false
}
