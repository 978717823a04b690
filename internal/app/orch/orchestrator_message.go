package orch

import (
	"strings"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	errMessageFields = domain.Reject(domain.ErrInvalidInput, "Message sending failed: Missing required fields.")
	errNotMember     = domain.Reject(domain.ErrNotMember, "You are not a member of this room.")
)

// SendMessage broadcasts a chat line to every member of roomCode, sender
// included. Unknown rooms swallow the message.
func (o *Orchestrator) SendMessage(id domain.ConnID, roomCode, username, message string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	defer o.observe(core.EventSendMessage)

	code := domain.ParseRoomCode(roomCode)
	name := strings.TrimSpace(username)
	if code == "" || name == "" || message == "" {
		return o.reject(id, core.EventSendMessage, errMessageFields)
	}
	if o.RequireMembership {
		if cur, ok := o.Registry.RoomOf(id); !ok || cur != code {
			return o.reject(id, core.EventSendMessage, errNotMember)
		}
	}
	if !o.Registry.Exists(code) {
		log.Debug().Str("module", "orch").Str("conn", string(id)).Str("room", string(code)).Msg("message to unknown room dropped")
		return nil
	}

	log.Debug().Str("module", "orch").Str("conn", string(id)).Str("room", string(code)).Str("username", name).Msg("message")
	o.Out.SendRoom(code, core.Event{
		Name: core.EventReceiveMessage,
		Data: domain.ChatMessage{Username: name, Message: message},
	})
	if o.Metrics != nil {
		o.Metrics.Broadcasts.Inc()
	}
	return nil
}
