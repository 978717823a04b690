package signal

import (
	"encoding/json"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
)

var errTooFast = domain.Reject(domain.ErrRateLimited, "You are sending messages too quickly.")

type messagePayload struct {
	RoomCode text `json:"roomCode"`
	Username text `json:"username"`
	Message  text `json:"message"`
}

func (ctl *SignalWSController) handleSendMessage(sid domain.ConnID, c *wsSignalConn, data json.RawMessage) {
	if !c.limiter.Allow() {
		_ = ctl.Orch.Reject(sid, core.EventSendMessage, errTooFast)
		return
	}
	var p messagePayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			log.Debug().Err(err).Str("module", "signal").Str("conn", string(sid)).Msg("bad sendMessage payload")
		}
	}
	_ = ctl.Orch.SendMessage(sid, string(p.RoomCode), string(p.Username), string(p.Message))
}
