package signal

import (
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
)

func (ctl *SignalWSController) handlePing(sid domain.ConnID) {
	ctl.Hub.SendTo(sid, core.Event{Name: core.EventPong})
}
