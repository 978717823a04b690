package orch

import (
	"errors"
	"fmt"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	errCreateNeedsName = domain.Reject(domain.ErrInvalidInput, "Username is required to create a room.")
	errJoinNeedsFields = domain.Reject(domain.ErrInvalidInput, "Room code and username are required to join.")
	errUsernameTooLong = domain.Reject(domain.ErrInvalidInput,
		fmt.Sprintf("Username must be at most %d characters.", domain.MaxUsernameLen))
	errRoomMissing = domain.Reject(domain.ErrRoomNotFound, "Room does not exist.")
	errNotInRoom   = domain.Reject(domain.ErrNotMember, "You are not in a room.")
	errNoCode      = domain.Reject(domain.ErrNoCodeAvailable, "No room code is available. Please try again later.")
)

func usernameRejection(err error, empty *domain.Rejection) *domain.Rejection {
	if errors.Is(err, domain.ErrUsernameTooLong) {
		return errUsernameTooLong
	}
	return empty
}

// CreateRoom opens a room with the requester as its only member.
// A connection already in a room leaves it first.
func (o *Orchestrator) CreateRoom(id domain.ConnID, username string) (domain.RoomCode, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	defer o.observe(core.EventCreateRoom)

	m, err := domain.NewMember(id, username)
	if err != nil {
		return "", o.reject(id, core.EventCreateRoom, usernameRejection(err, errCreateNeedsName))
	}

	// Pick the code before leaving so a full registry keeps the current room.
	code, ok := o.Registry.FreeCode()
	if !ok {
		return "", o.reject(id, core.EventCreateRoom, errNoCode)
	}
	o.leaveLocked(id)
	if err := o.Registry.OpenRoom(code, m); err != nil {
		if errors.Is(err, domain.ErrNoCodeAvailable) {
			return "", o.reject(id, core.EventCreateRoom, errNoCode)
		}
		return "", o.reject(id, core.EventCreateRoom, domain.Reject(err, "Could not create room."))
	}

	o.Out.Attach(code, id)
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", string(code)).Str("username", m.Username).Msg("room created")
	o.Out.SendTo(id, core.Event{Name: core.EventRoomCreated, Data: code})
	o.Out.SendRoom(code, core.Event{Name: core.EventUserCount, Data: o.Registry.MemberCount(code)})
	return code, nil
}

// JoinRoom adds the requester to a live room and announces it.
func (o *Orchestrator) JoinRoom(id domain.ConnID, roomCode, username string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	defer o.observe(core.EventJoinRoom)

	if roomCode == "" {
		return o.reject(id, core.EventJoinRoom, errJoinNeedsFields)
	}
	code := domain.ParseRoomCode(roomCode)
	m, err := domain.NewMember(id, username)
	if err != nil {
		return o.reject(id, core.EventJoinRoom, usernameRejection(err, errJoinNeedsFields))
	}
	if !o.Registry.Exists(code) {
		log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", string(code)).Msg("room does not exist")
		return o.reject(id, core.EventJoinRoom, errRoomMissing)
	}
	if cur, ok := o.Registry.RoomOf(id); ok && cur == code {
		o.Out.SendTo(id, core.Event{Name: core.EventRoomJoined, Data: code})
		return nil
	}

	o.leaveLocked(id)
	n, err := o.Registry.JoinRoom(code, m)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return o.reject(id, core.EventJoinRoom, errRoomMissing)
		}
		return o.reject(id, core.EventJoinRoom, domain.Reject(err, "Could not join room."))
	}

	o.Out.Attach(code, id)
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", string(code)).Str("username", m.Username).Msg("user joined room")
	o.Out.SendTo(id, core.Event{Name: core.EventRoomJoined, Data: code})
	o.Out.SendRoom(code, core.Event{Name: core.EventUserCount, Data: n})
	o.Out.SendRoom(code, core.Event{
		Name: core.EventReceiveMessage,
		Data: domain.SystemMessage(m.Username + " has joined the room!"),
	})
	return nil
}

// Leave takes the requester out of its room but keeps the connection.
func (o *Orchestrator) Leave(id domain.ConnID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	defer o.observe(core.EventLeaveRoom)

	code, ok := o.leaveLocked(id)
	if !ok {
		return o.reject(id, core.EventLeaveRoom, errNotInRoom)
	}
	o.Out.SendTo(id, core.Event{Name: core.EventRoomLeft, Data: code})
	return nil
}

// Disconnect cleans up after a closed connection. Connections that never
// joined a room produce no events.
func (o *Orchestrator) Disconnect(id domain.ConnID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	defer o.observe(core.EventDisconnect)

	if code, ok := o.leaveLocked(id); ok {
		log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", string(code)).Msg("user disconnected from room")
	}
}

func (o *Orchestrator) leaveLocked(id domain.ConnID) (domain.RoomCode, bool) {
	o.Out.Detach(id)
	rem, ok := o.Registry.RemoveMember(id)
	if !ok {
		return "", false
	}
	if rem.Remaining > 0 {
		o.Out.SendRoom(rem.Code, core.Event{Name: core.EventUserCount, Data: rem.Remaining})
		o.Out.SendRoom(rem.Code, core.Event{
			Name: core.EventReceiveMessage,
			Data: domain.SystemMessage(rem.Member.Username + " has left the room."),
		})
	}
	return rem.Code, true
}
