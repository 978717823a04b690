package signal

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/dkeye/Chat/internal/app"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/dkeye/Chat/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Hub is the broadcast dispatcher: it knows every open connection and which
// room broadcast group each one belongs to. It implements core.Dispatcher.
type Hub struct {
	mu      sync.RWMutex
	conns   map[domain.ConnID]core.SignalConnection
	groups  map[domain.RoomCode]map[domain.ConnID]struct{}
	groupOf map[domain.ConnID]domain.RoomCode

	policy  app.Policy
	metrics *metrics.Metrics
}

var _ core.Dispatcher = (*Hub)(nil)

func NewHub(policy app.Policy, m *metrics.Metrics) *Hub {
	if policy == nil {
		policy = app.SimplePolicy{}
	}
	return &Hub{
		conns:   make(map[domain.ConnID]core.SignalConnection),
		groups:  make(map[domain.RoomCode]map[domain.ConnID]struct{}),
		groupOf: make(map[domain.ConnID]domain.RoomCode),
		policy:  policy,
		metrics: m,
	}
}

func (h *Hub) Register(id domain.ConnID, conn core.SignalConnection) {
	h.mu.Lock()
	h.conns[id] = conn
	n := len(h.conns)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.Connections.Inc()
	}
	log.Info().Str("module", "signal.hub").Str("conn", string(id)).Int("total", n).Msg("connection registered")
}

func (h *Hub) Unregister(id domain.ConnID) {
	h.mu.Lock()
	_, ok := h.conns[id]
	delete(h.conns, id)
	h.detachLocked(id)
	n := len(h.conns)
	h.mu.Unlock()
	if !ok {
		return
	}
	if h.metrics != nil {
		h.metrics.Connections.Dec()
	}
	log.Info().Str("module", "signal.hub").Str("conn", string(id)).Int("total", n).Msg("connection unregistered")
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) Attach(code domain.RoomCode, id domain.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(id)
	g, ok := h.groups[code]
	if !ok {
		g = make(map[domain.ConnID]struct{})
		h.groups[code] = g
	}
	g[id] = struct{}{}
	h.groupOf[id] = code
}

func (h *Hub) Detach(id domain.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(id)
}

func (h *Hub) detachLocked(id domain.ConnID) {
	code, ok := h.groupOf[id]
	if !ok {
		return
	}
	delete(h.groupOf, id)
	if g, ok := h.groups[code]; ok {
		delete(g, id)
		if len(g) == 0 {
			delete(h.groups, code)
		}
	}
}

// GroupSize is the number of connections attached to a room's group.
func (h *Hub) GroupSize(code domain.RoomCode) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[code])
}

func (h *Hub) SendTo(id domain.ConnID, ev core.Event) {
	frame, ok := encode(ev)
	if !ok {
		return
	}
	h.mu.RLock()
	conn, found := h.conns[id]
	h.mu.RUnlock()
	if !found {
		log.Debug().Str("module", "signal.hub").Str("conn", string(id)).Str("event", ev.Name).Msg("send to unknown connection")
		return
	}
	h.deliver(id, conn, frame)
}

func (h *Hub) SendRoom(code domain.RoomCode, ev core.Event) {
	frame, ok := encode(ev)
	if !ok {
		return
	}
	type target struct {
		id   domain.ConnID
		conn core.SignalConnection
	}
	h.mu.RLock()
	targets := make([]target, 0, len(h.groups[code]))
	for id := range h.groups[code] {
		if conn, ok := h.conns[id]; ok {
			targets = append(targets, target{id, conn})
		}
	}
	h.mu.RUnlock()

	for _, t := range targets {
		h.deliver(t.id, t.conn, frame)
	}
	log.Debug().Str("module", "signal.hub").Str("room", string(code)).Str("event", ev.Name).Int("sent_to", len(targets)).Msg("broadcast")
}

func (h *Hub) deliver(id domain.ConnID, conn core.SignalConnection, frame core.Frame) {
	err := conn.TrySend(frame)
	if err == nil {
		return
	}
	if h.metrics != nil {
		h.metrics.Dropped.Inc()
	}
	if !errors.Is(err, ErrBackpressure) {
		return
	}
	switch h.policy.OnBackPressure(id) {
	case app.KickMember:
		log.Warn().Str("module", "signal.hub").Str("conn", string(id)).Msg("slow consumer kicked")
		conn.Close()
	case app.DropFrame, app.NoAction:
	}
}

func encode(ev core.Event) (core.Frame, bool) {
	b, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "signal.hub").Str("event", ev.Name).Msg("encode event")
		return nil, false
	}
	return b, true
}
