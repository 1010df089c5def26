package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dkeye/VoiceRelay/internal/adapters/signal"
	"github.com/dkeye/VoiceRelay/internal/app"
	"github.com/dkeye/VoiceRelay/internal/app/orch"
	"github.com/dkeye/VoiceRelay/internal/config"
	"github.com/dkeye/VoiceRelay/internal/metrics"
)

func newTestRouter(t *testing.T) (*gin.Engine, *orch.Orchestrator) {
	t.Helper()
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>voice</html>"), 0o600))

	cfg := &config.Config{
		Mode:       "test",
		StaticPath: static,
		Secret:     "test-secret",
		ReadLimit:  1 << 20,
		PingPeriod: time.Minute,
		SendBuffer: 8,
	}
	m := metrics.New()
	rooms := app.NewRooms(app.RoomsOptions{
		ImplicitCreate: true,
		Hasher:         app.NewPasswordHasher(bcrypt.MinCost),
		Metrics:        m,
	})
	gw := app.NewGateway(rooms, app.DropPolicy{}, m)
	o := orch.New(rooms, gw, orch.Options{}, m)

	r := SetupRouter(context.Background(), cfg, Deps{
		Orch:       o,
		Signal:     signal.NewSignalWSController(o, cfg),
		Metrics:    m,
		ICEServers: []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}},
	})
	return r, o
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateRoom(t *testing.T) {
	r, o := newTestRouter(t)

	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantField string
		wantValue string
	}{
		{name: "created", body: `{"room_id":"alpha","password":"secret123"}`, wantCode: http.StatusOK, wantField: "room_id", wantValue: "alpha"},
		{name: "duplicate", body: `{"room_id":"alpha","password":"other"}`, wantCode: http.StatusBadRequest, wantField: "error", wantValue: "Room already exists"},
		{name: "missing password", body: `{"room_id":"beta"}`, wantCode: http.StatusBadRequest, wantField: "error", wantValue: "room_id and password are required"},
		{name: "missing room", body: `{"password":"x"}`, wantCode: http.StatusBadRequest, wantField: "error", wantValue: "room_id and password are required"},
		{name: "not json", body: `room_id=alpha`, wantCode: http.StatusBadRequest, wantField: "error", wantValue: "room_id and password are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/create_room", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantValue, decode(t, w)[tt.wantField])
		})
	}

	room, ok := o.Rooms.Room("alpha")
	require.True(t, ok)
	assert.True(t, room.Protected())
	assert.NotContains(t, room.PasswordHash, "secret123")
	_, ok = o.Rooms.Room("beta")
	assert.False(t, ok)
}

func TestRoomsAPI(t *testing.T) {
	r, o := newTestRouter(t)
	_, err := o.CreateRoom("alpha", "secret123")
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/api/rooms", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	var list struct {
		Rooms []app.RoomInfo `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Rooms, 1)
	assert.EqualValues(t, "alpha", list.Rooms[0].ID)
	assert.True(t, list.Rooms[0].Protected)

	w = do(r, http.MethodGet, "/api/rooms/alpha", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["count"])

	w = do(r, http.MethodGet, "/api/rooms/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestICEServersAPI(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodGet, "/api/ice_servers", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stun:stun.l.google.com:19302")
}

func TestHealthAndMetrics(t *testing.T) {
	r, o := newTestRouter(t)
	_, err := o.CreateRoom("alpha", "secret123")
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `voice_relay_events_total{event="rooms_created"} 1`)
}

func TestIndexAndClientToken(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "voice")

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "VoiceSessions" {
			found = true
		}
	}
	assert.True(t, found, "session cookie carries the client token")
}
