package core

import (
	"math/rand/v2"
	"strconv"

	"github.com/dkeye/Chat/internal/domain"
)

const (
	MinRoomCode = 10000
	MaxRoomCode = 99999
)

// RandomCodes draws 5-digit codes uniformly from [MinRoomCode, MaxRoomCode].
type RandomCodes struct{}

func (RandomCodes) Generate() domain.RoomCode {
	n := MinRoomCode + rand.IntN(MaxRoomCode-MinRoomCode+1)
	return domain.RoomCode(strconv.Itoa(n))
}

// ValidCode reports whether code has the shape Generate produces.
func ValidCode(code domain.RoomCode) bool {
	if len(code) != 5 {
		return false
	}
	n, err := strconv.Atoi(string(code))
	return err == nil && n >= MinRoomCode && n <= MaxRoomCode
}
