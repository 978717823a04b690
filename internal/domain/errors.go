// Package domain contains entities without logic, just meta-data
package domain

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrRoomNotFound    = errors.New("room not found")
	ErrNotMember       = errors.New("not a member of room")
	ErrRateLimited     = errors.New("rate limited")
	ErrAlreadyJoined   = errors.New("connection already in a room")
	ErrNoCodeAvailable = errors.New("no free room code")

	ErrUsernameEmpty   = errors.New("username empty")
	ErrUsernameTooLong = errors.New("username too long")
)

// Rejection is a refused client request: the sentinel kind for callers and
// the text shown to the client in the error event.
type Rejection struct {
	Kind   error
	Reason string
}

func Reject(kind error, reason string) *Rejection {
	return &Rejection{Kind: kind, Reason: reason}
}

func (r *Rejection) Error() string { return r.Reason }

func (r *Rejection) Unwrap() error { return r.Kind }
