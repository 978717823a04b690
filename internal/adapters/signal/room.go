package signal

import (
	"bytes"
	"encoding/json"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
)

var errTooManyJoins = domain.Reject(domain.ErrRateLimited, "Too many attempts. Please wait and try again.")

// text accepts a JSON string or number; anything else decodes as empty.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*t = text(n.String())
		return nil
	}
	*t = ""
	return nil
}

type joinPayload struct {
	RoomCode text `json:"roomCode"`
	Username text `json:"username"`
}

func (ctl *SignalWSController) allowJoin(sid domain.ConnID, event string) bool {
	if ctl.Joins == nil || ctl.Joins.Allow(sid) {
		return true
	}
	_ = ctl.Orch.Reject(sid, event, errTooManyJoins)
	return false
}

func (ctl *SignalWSController) handleCreateRoom(sid domain.ConnID, data json.RawMessage) {
	if !ctl.allowJoin(sid, core.EventCreateRoom) {
		return
	}
	var username text
	if len(data) > 0 {
		if err := json.Unmarshal(data, &username); err != nil {
			log.Debug().Err(err).Str("module", "signal").Str("conn", string(sid)).Msg("bad createRoom payload")
		}
	}
	_, _ = ctl.Orch.CreateRoom(sid, string(username))
}

func (ctl *SignalWSController) handleJoinRoom(sid domain.ConnID, data json.RawMessage) {
	if !ctl.allowJoin(sid, core.EventJoinRoom) {
		return
	}
	var p joinPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			log.Debug().Err(err).Str("module", "signal").Str("conn", string(sid)).Msg("bad joinRoom payload")
		}
	}
	log.Info().Str("module", "signal").Str("conn", string(sid)).Str("room", string(p.RoomCode)).Msg("join request")
	_ = ctl.Orch.JoinRoom(sid, string(p.RoomCode), string(p.Username))
}

// handleLeaveRoom leaves the current room without closing the connection.
func (ctl *SignalWSController) handleLeaveRoom(sid domain.ConnID) {
	log.Info().Str("module", "signal").Str("conn", string(sid)).Msg("leave")
	_ = ctl.Orch.Leave(sid)
}
