package orch

import (
	"github.com/dkeye/VoiceRelay/internal/app"
	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/dkeye/VoiceRelay/internal/metrics"
)

type Options struct {
	// RequireAuthentication refuses plain join; only Authenticate admits.
	RequireAuthentication bool
	MediaScope            domain.MediaScope
}

// Outcome tags the result of a relay. Drops are silent towards the sender.
type Outcome int

const (
	Delivered Outcome = iota
	DroppedUnauthorized
	DroppedNotMember
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case DroppedUnauthorized:
		return "dropped_unauthorized"
	case DroppedNotMember:
		return "dropped_not_member"
	}
	return "unknown"
}

type Orchestrator struct {
	Rooms   *app.Rooms
	Gateway *app.Gateway
	Options Options
	Metrics *metrics.Metrics
}

// New wires the orchestrator as the gateway's disconnect hook.
func New(rooms *app.Rooms, gw *app.Gateway, opts Options, m *metrics.Metrics) *Orchestrator {
	if opts.MediaScope == "" {
		opts.MediaScope = domain.MediaScopeRoom
	}
	o := &Orchestrator{Rooms: rooms, Gateway: gw, Options: opts, Metrics: m}
	gw.OnDisconnect(o.OnDisconnect)
	return o
}

// Describe is the whoami view of a connection.
func (o *Orchestrator) Describe(id domain.ConnectionID) domain.Connection {
	c := domain.Connection{ID: id}
	if auth, ok := o.Gateway.Auth(id); ok {
		c.Room, c.Authenticated = auth.Authenticated()
	}
	return c
}

// authorize is the gate for privileged operations.
func (o *Orchestrator) authorize(id domain.ConnectionID) (domain.RoomID, bool) {
	auth, ok := o.Gateway.Auth(id)
	if !ok {
		return "", false
	}
	return auth.Authenticated()
}
