package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxUsernameLen bounds display names in characters (runes); longer names are rejected.
const MaxUsernameLen = 64

// ConnID identifies one transport connection. Opaque to the core.
type ConnID string

// NewConnID returns a fresh random connection identifier.
func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}

// Member represents a connection's participation in a room.
// No transport or lifecycle logic here.
type Member struct {
	ConnID   ConnID `json:"-"`
	Username string `json:"username"`
}

// NewMember trims the display name and validates it.
func NewMember(id ConnID, username string) (Member, error) {
	name, err := NormalizeUsername(username)
	if err != nil {
		return Member{}, err
	}
	return Member{ConnID: id, Username: name}, nil
}

// NormalizeUsername returns the trimmed name or ErrUsernameEmpty/ErrUsernameTooLong.
func NormalizeUsername(username string) (string, error) {
	name := strings.TrimSpace(username)
	if name == "" {
		return "", ErrUsernameEmpty
	}
	if utf8.RuneCountInString(name) > MaxUsernameLen {
		return "", ErrUsernameTooLong
	}
	return name, nil
}
