package orch

import (
	"errors"
	"sync"

	"github.com/dkeye/Chat/internal/app"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/dkeye/Chat/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Orchestrator turns inbound connection events into registry mutations and
// outbound events. Events are handled one at a time.
type Orchestrator struct {
	Registry *app.Registry
	Out      core.Dispatcher
	Metrics  *metrics.Metrics

	// RequireMembership refuses sendMessage into rooms the sender is not in.
	RequireMembership bool

	mu sync.Mutex
}

func New(reg *app.Registry, out core.Dispatcher, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{Registry: reg, Out: out, Metrics: m}
}

func (o *Orchestrator) reject(id domain.ConnID, event string, err error) error {
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("event", event).Err(err).Msg("rejected")
	o.Out.SendTo(id, core.Event{Name: core.EventError, Data: err.Error()})
	if o.Metrics != nil {
		o.Metrics.Rejections.WithLabelValues(reasonLabel(err)).Inc()
	}
	return err
}

// Reject reports a refusal decided outside the orchestrator, e.g. by a rate limiter.
func (o *Orchestrator) Reject(id domain.ConnID, event string, err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reject(id, event, err)
}

func (o *Orchestrator) observe(event string) {
	if o.Metrics == nil {
		return
	}
	o.Metrics.Events.WithLabelValues(event).Inc()
	o.Metrics.SetOccupancy(o.Registry.Stats())
}

func reasonLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, domain.ErrNotMember):
		return "not_member"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	default:
		return "internal"
	}
}
