package signal

import (
	"github.com/dkeye/VoiceRelay/internal/core"
	"github.com/dkeye/VoiceRelay/internal/domain"
)

func (ctl *SignalWSController) handlePing(c *wsSignalConn) {
	f := core.EncodeRaw(core.EventPong, nil)
	_ = c.TrySend(f)
}

func (ctl *SignalWSController) handleWhoAmI(id domain.ConnectionID, c *wsSignalConn) {
	ctl.sendEvent(c, core.EventWhoAmI, ctl.Orch.Describe(id))
}
