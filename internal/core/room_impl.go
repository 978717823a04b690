package core

import (
	"slices"

	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is an in-memory room keeping members in join order.
// Not safe for concurrent use; the registry serialises access.
type roomImpl struct {
	code    domain.RoomCode
	members []domain.Member
}

func NewRoomService(code domain.RoomCode, first domain.Member) RoomService {
	return &roomImpl{
		code:    code,
		members: []domain.Member{first},
	}
}

func (r *roomImpl) Code() domain.RoomCode { return r.code }

func (r *roomImpl) MemberCount() int { return len(r.members) }

func (r *roomImpl) Members() []domain.Member {
	return slices.Clone(r.members)
}

func (r *roomImpl) AddMember(m domain.Member) {
	r.members = append(r.members, m)
	log.Debug().Str("module", "core.room").Str("room", string(r.code)).Str("conn", string(m.ConnID)).Msg("member added")
}

func (r *roomImpl) RemoveMember(id domain.ConnID) (domain.Member, bool) {
	i := slices.IndexFunc(r.members, func(m domain.Member) bool { return m.ConnID == id })
	if i < 0 {
		return domain.Member{}, false
	}
	m := r.members[i]
	r.members = slices.Delete(r.members, i, i+1)
	log.Debug().Str("module", "core.room").Str("room", string(r.code)).Str("conn", string(id)).Msg("member removed")
	return m, true
}
