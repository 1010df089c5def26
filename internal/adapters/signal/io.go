package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceRelay/internal/core"
	"github.com/dkeye/VoiceRelay/internal/domain"
)

func (ctl *SignalWSController) writePump(ctx context.Context, id domain.ConnectionID, c *wsSignalConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(id)).Msg("writePump ctx done")
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
				time.Now().Add(writeWait))
			return
		case f, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("writePump set deadline")
				return
			}
			mt := websocket.TextMessage
			if f.Binary {
				mt = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(mt, f.Data); err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("writePump ping error")
				return
			}
		}
	}
}

// readPump owns the connection's lifetime: when it returns, the gateway
// disconnect runs the reaper and the transport is closed.
func (ctl *SignalWSController) readPump(id domain.ConnectionID, c *wsSignalConn) {
	defer func() {
		ctl.limiter.Forget(id)
		ctl.Orch.Gateway.Disconnect(id)
		c.Close()
		log.Debug().Str("module", "signal").Str("conn", string(id)).Msg("readPump closed")
	}()

	c.conn.SetReadLimit(ctl.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait))
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("readPump read error")
			}
			return
		}
		switch mt {
		case websocket.BinaryMessage:
			ctl.Orch.RelayMedia(id, core.BinaryFrame(data))
		case websocket.TextMessage:
			ctl.handleSignal(id, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(id domain.ConnectionID, c *wsSignalConn, data []byte) {
	var env core.Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		log.Debug().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad json")
		ctl.sendError(c, "Invalid message format")
		return
	}

	if core.IsSignal(env.Type) {
		ctl.Orch.RelaySignal(id, env.Type, env.Data)
		return
	}

	switch env.Type {
	case core.EventJoin:
		ctl.handleJoin(id, c, env.Data)
	case core.EventLeave:
		ctl.handleLeave(id, env.Data)
	case core.EventAuthenticate:
		ctl.handleAuthenticate(id, c, env.Data)
	case core.EventVoiceData:
		ctl.Orch.RelayMedia(id, core.EncodeRaw(core.EventVoiceData, env.Data))
	case core.EventPing:
		ctl.handlePing(c)
	case core.EventWhoAmI:
		ctl.handleWhoAmI(id, c)
	default:
		log.Debug().Str("module", "signal").Str("conn", string(id)).Str("type", env.Type).Msg("unknown signal")
		ctl.sendError(c, "Unknown message type")
	}
}

func (ctl *SignalWSController) sendEvent(c *wsSignalConn, eventType string, v any) {
	f, err := core.Encode(eventType, v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendEvent encode")
		return
	}
	_ = c.TrySend(f)
}

type messageData struct {
	Message string `json:"message"`
}

func (ctl *SignalWSController) sendError(c *wsSignalConn, msg string) {
	ctl.sendEvent(c, core.EventError, messageData{Message: msg})
}
