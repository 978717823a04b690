package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var errMalformed = domain.Reject(domain.ErrInvalidInput, "Malformed request.")

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func (ctl *SignalWSController) writePump(ctx context.Context, c *wsSignalConn) {
	var tick <-chan time.Time
	if ctl.opts.PingPeriod > 0 {
		ticker := time.NewTicker(ctl.opts.PingPeriod)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer c.Close()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(ctl.writeWait()))
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.writeWait())); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-tick:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.writeWait())); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping failed")
				return
			}
		}
	}
}

func (ctl *SignalWSController) writeWait() time.Duration {
	if ctl.opts.WriteWait > 0 {
		return ctl.opts.WriteWait
	}
	return 5 * time.Second
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sid domain.ConnID, c *wsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(sid)).Msg("readPump closing")
		ctl.Orch.Disconnect(sid)
		ctl.Hub.Unregister(sid)
		if ctl.Joins != nil {
			ctl.Joins.Forget(sid)
		}
		cancel()
		c.Close()
	}()

	if ctl.opts.PongWait > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
		})
	}

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
					log.Warn().Err(err).Str("module", "signal").Str("conn", string(sid)).Msg("readPump read error")
				}
				return
			}
			ctl.handleSignal(sid, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(sid domain.ConnID, c *wsSignalConn, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
		log.Warn().Str("module", "signal").Str("conn", string(sid)).Msg("bad json")
		_ = ctl.Orch.Reject(sid, "", errMalformed)
		return
	}

	switch env.Event {
	case core.EventCreateRoom:
		ctl.handleCreateRoom(sid, env.Data)
	case core.EventJoinRoom:
		ctl.handleJoinRoom(sid, env.Data)
	case core.EventSendMessage:
		ctl.handleSendMessage(sid, c, env.Data)
	case core.EventLeaveRoom:
		ctl.handleLeaveRoom(sid)
	case core.EventPing:
		ctl.handlePing(sid)
	default:
		log.Warn().Str("module", "signal").Str("conn", string(sid)).Str("event", env.Event).Msg("unknown event")
	}
}
