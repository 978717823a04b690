package app

import (
	"sort"
	"strconv"
	"sync"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
)

// randomAttempts bounds how often CreateRoom redraws before scanning.
const randomAttempts = 32

// Removal describes a member taken out of a room.
type Removal struct {
	Code      domain.RoomCode
	Member    domain.Member
	Remaining int
}

// Registry maps live room codes to rooms and connections to their room.
// A room never stays in the map once its last member is gone.
type Registry struct {
	mu     sync.RWMutex
	codes  core.CodeGenerator
	rooms  map[domain.RoomCode]core.RoomService
	byConn map[domain.ConnID]domain.RoomCode
}

func NewRegistry(codes core.CodeGenerator) *Registry {
	if codes == nil {
		codes = core.RandomCodes{}
	}
	return &Registry{
		codes:  codes,
		rooms:  make(map[domain.RoomCode]core.RoomService),
		byConn: make(map[domain.ConnID]domain.RoomCode),
	}
}

// CreateRoom opens a room under a fresh code with m as its only member.
func (r *Registry) CreateRoom(m domain.Member) (domain.RoomCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byConn[m.ConnID]; ok {
		return "", domain.ErrAlreadyJoined
	}
	code, ok := r.freeCodeLocked()
	if !ok {
		return "", domain.ErrNoCodeAvailable
	}
	r.openLocked(code, m)
	return code, nil
}

// FreeCode picks a code no live room uses without claiming it. The caller
// must serialise FreeCode and OpenRoom against other creates.
func (r *Registry) FreeCode() (domain.RoomCode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.freeCodeLocked()
}

// OpenRoom creates a room under code, which must not be live.
func (r *Registry) OpenRoom(code domain.RoomCode, m domain.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byConn[m.ConnID]; ok {
		return domain.ErrAlreadyJoined
	}
	if _, taken := r.rooms[code]; taken {
		return domain.ErrNoCodeAvailable
	}
	r.openLocked(code, m)
	return nil
}

func (r *Registry) openLocked(code domain.RoomCode, m domain.Member) {
	r.rooms[code] = core.NewRoomService(code, m)
	r.byConn[m.ConnID] = code
	log.Info().Str("module", "app.registry").Str("room", string(code)).Str("conn", string(m.ConnID)).Msg("room created")
}

func (r *Registry) freeCodeLocked() (domain.RoomCode, bool) {
	for range randomAttempts {
		code := r.codes.Generate()
		if _, taken := r.rooms[code]; !taken {
			return code, true
		}
		log.Warn().Str("module", "app.registry").Str("room", string(code)).Msg("room code collision")
	}
	for n := core.MinRoomCode; n <= core.MaxRoomCode; n++ {
		code := domain.RoomCode(strconv.Itoa(n))
		if _, taken := r.rooms[code]; !taken {
			return code, true
		}
	}
	return "", false
}

// JoinRoom appends m to a live room and returns the new member count.
func (r *Registry) JoinRoom(code domain.RoomCode, m domain.Member) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[code]
	if !ok {
		return 0, domain.ErrRoomNotFound
	}
	if _, joined := r.byConn[m.ConnID]; joined {
		return 0, domain.ErrAlreadyJoined
	}
	room.AddMember(m)
	r.byConn[m.ConnID] = code
	log.Info().Str("module", "app.registry").Str("room", string(code)).Str("conn", string(m.ConnID)).Msg("member joined")
	return room.MemberCount(), nil
}

// RemoveMember drops the connection from its room, deleting the room when
// it empties. Reports false if the connection was in no room.
func (r *Registry) RemoveMember(id domain.ConnID) (Removal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.byConn[id]
	if !ok {
		return Removal{}, false
	}
	delete(r.byConn, id)
	room, ok := r.rooms[code]
	if !ok {
		return Removal{}, false
	}
	m, ok := room.RemoveMember(id)
	if !ok {
		return Removal{}, false
	}
	rem := Removal{Code: code, Member: m, Remaining: room.MemberCount()}
	if rem.Remaining == 0 {
		delete(r.rooms, code)
		log.Info().Str("module", "app.registry").Str("room", string(code)).Msg("room deleted as it is empty")
	}
	return rem, true
}

// MemberCount is 0 for rooms that do not exist.
func (r *Registry) MemberCount(code domain.RoomCode) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if room, ok := r.rooms[code]; ok {
		return room.MemberCount()
	}
	return 0
}

// Members returns a copy of the room's members in join order.
func (r *Registry) Members(code domain.RoomCode) []domain.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if room, ok := r.rooms[code]; ok {
		return room.Members()
	}
	return nil
}

func (r *Registry) Exists(code domain.RoomCode) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[code]
	return ok
}

func (r *Registry) RoomOf(id domain.ConnID) (domain.RoomCode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.byConn[id]
	return code, ok
}

// List returns live rooms ordered by code.
func (r *Registry) List() []core.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(r.rooms))
	for code, room := range r.rooms {
		out = append(out, core.RoomInfo{Code: code, MemberCount: room.MemberCount()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (r *Registry) Stats() (rooms, members int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms), len(r.byConn)
}
