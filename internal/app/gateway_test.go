package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/VoiceRelay/internal/core"
	"github.com/dkeye/VoiceRelay/internal/core/coretest"
	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/dkeye/VoiceRelay/internal/metrics"
)

func TestGateway_ConnectAssignsUniqueIDs(t *testing.T) {
	g := NewGateway(nil, nil, nil)
	a := g.Connect(&coretest.Conn{}, "")
	b := g.Connect(&coretest.Conn{}, "")
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, g.Count())
}

func TestGateway_SendToUnknownIsNoop(t *testing.T) {
	g := NewGateway(nil, nil, nil)
	assert.NotPanics(t, func() {
		g.SendTo("ghost", core.TextFrame([]byte(`{}`)))
	})
	assert.Equal(t, 0, g.SendToEach([]domain.ConnectionID{"ghost"}, core.TextFrame(nil)))
}

func TestGateway_SendToClosedIsNoop(t *testing.T) {
	g := NewGateway(nil, nil, nil)
	conn := &coretest.Conn{}
	id := g.Connect(conn, "")
	conn.Close()

	assert.Equal(t, 0, g.SendToEach([]domain.ConnectionID{id}, core.TextFrame([]byte("x"))))
	assert.Empty(t, conn.Frames())
}

func TestGateway_DisconnectIsIdempotent(t *testing.T) {
	g := NewGateway(nil, nil, nil)
	conn := &coretest.Conn{}
	id := g.Connect(conn, "")

	calls := 0
	g.OnDisconnect(func(got domain.ConnectionID) {
		assert.Equal(t, id, got)
		assert.False(t, conn.Closed(), "hook must run before the transport is released")
		calls++
	})

	auth, ok := g.Auth(id)
	require.True(t, ok)
	auth.Grant("lobby")

	g.Disconnect(id)
	g.Disconnect(id)

	assert.Equal(t, 1, calls)
	assert.True(t, conn.Closed())
	_, alive := g.Auth(id)
	assert.False(t, alive)
	_, authed := auth.Authenticated()
	assert.False(t, authed)
}

func TestGateway_SendToAllExcept(t *testing.T) {
	g := NewGateway(nil, nil, nil)
	a, b, c := &coretest.Conn{}, &coretest.Conn{}, &coretest.Conn{}
	ida := g.Connect(a, "")
	g.Connect(b, "")
	g.Connect(c, "")

	sent := g.SendToAllExcept(ida, core.BinaryFrame([]byte{1, 2, 3}))
	assert.Equal(t, 2, sent)
	assert.Empty(t, a.Frames())
	require.Len(t, b.Frames(), 1)
	assert.True(t, b.Frames()[0].Binary)
	assert.Len(t, c.Frames(), 1)
}

func TestGateway_SendToRoomExcept(t *testing.T) {
	rooms := newTestRooms(true)
	g := NewGateway(rooms, nil, nil)
	a, b, outsider := &coretest.Conn{}, &coretest.Conn{}, &coretest.Conn{}
	ida, idb, ido := g.Connect(a, ""), g.Connect(b, ""), g.Connect(outsider, "")

	for id, room := range map[domain.ConnectionID]domain.RoomID{ida: "r", idb: "r", ido: "other"} {
		_, err := rooms.Join(id, room, "")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, g.SendToRoomExcept("r", ida, core.TextFrame([]byte("hi"))))
	assert.Empty(t, a.Frames())
	assert.Len(t, b.Frames(), 1)
	assert.Empty(t, outsider.Frames())
}

func TestGateway_BackpressurePolicies(t *testing.T) {
	tests := []struct {
		name       string
		policy     Policy
		wantClosed bool
	}{
		{name: "drop keeps the peer", policy: DropPolicy{}, wantClosed: false},
		{name: "kick closes the peer", policy: KickPolicy{}, wantClosed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			g := NewGateway(nil, tt.policy, m)
			slow := &coretest.Conn{Limit: 1}
			id := g.Connect(slow, "")

			g.SendTo(id, core.TextFrame([]byte("1")))
			g.SendTo(id, core.TextFrame([]byte("2")))

			assert.Len(t, slow.Frames(), 1)
			assert.Equal(t, uint64(1), m.Get(metrics.DropBackpressure))
			assert.Equal(t, tt.wantClosed, slow.Closed())
		})
	}
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("drop")
	require.NoError(t, err)
	assert.IsType(t, DropPolicy{}, p)
	p, err = PolicyByName("kick")
	require.NoError(t, err)
	assert.IsType(t, KickPolicy{}, p)
	_, err = PolicyByName("explode")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAuthContext(t *testing.T) {
	var a AuthContext
	_, ok := a.Authenticated()
	assert.False(t, ok)

	a.Grant("alpha")
	room, ok := a.Authenticated()
	assert.True(t, ok)
	assert.Equal(t, domain.RoomID("alpha"), room)

	room, ok = a.Revoke()
	assert.True(t, ok)
	assert.Equal(t, domain.RoomID("alpha"), room)
	_, ok = a.Revoke()
	assert.False(t, ok)
}
