package core

import "github.com/dkeye/Chat/internal/domain"

// Frame is a raw encoded payload (one JSON envelope).
type Frame []byte

// SignalConnection abstracts a client messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Dispatcher is the transport fan-out the event handler instructs.
// Delivery is fire-and-forget: implementations must not block.
type Dispatcher interface {
	// Attach adds a connection to the broadcast group of a room.
	Attach(code domain.RoomCode, id domain.ConnID)
	// Detach removes a connection from whatever group it is in.
	Detach(id domain.ConnID)
	SendTo(id domain.ConnID, ev Event)
	SendRoom(code domain.RoomCode, ev Event)
}

// RoomService is the core-facing API of a room.
// It owns the ordered member list but never touches transport resources.
type RoomService interface {
	Code() domain.RoomCode
	MemberCount() int
	Members() []domain.Member

	AddMember(m domain.Member)
	RemoveMember(id domain.ConnID) (domain.Member, bool)
}

type RoomInfo struct {
	Code        domain.RoomCode `json:"code"`
	MemberCount int             `json:"memberCount"`
}

// CodeGenerator produces candidate room codes. It does not check liveness.
type CodeGenerator interface {
	Generate() domain.RoomCode
}
