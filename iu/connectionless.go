package iu

import (
	"go.uber.org/zap"

	"github.com/osmo-iu/iu-adaptor/encoding/ranap"
)

// dispatchConnectionLess is the Connection-Less RANAP Dispatcher (spec.md
// 3.3.1, component C5): it handles N-UNITDATA.indication payloads, which
// carry RESET and ERROR INDICATION rather than a per-dialogue message.
// The source adaptor stubbed ranap_handle_cl_reset_req() as a permanent
// failure (spec.md 9 Open Questions); this adaptor closes that gap by
// replying with Reset-Acknowledge.
func (a *Adaptor) dispatchConnectionLess(link Link, payload []byte) {
	msg, err := ranap.Decode(payload)
	if err != nil {
		a.log.Warn("cl-dispatch: decode failed", zap.Error(errDecode("%v", err)))
		return
	}

	switch {
	case msg.Reset != nil:
		a.log.Info("RESET received", zap.Any("cause", msg.Reset.Cause))
		ack := ranap.EncodeResetAcknowledge()
		if err := link.SendUnitData(ack); err != nil {
			a.log.Error("failed to send Reset-Acknowledge", zap.Error(err))
		}
	case msg.ErrorIndication != nil:
		if msg.ErrorIndication.Cause != nil {
			a.log.Error("Rx Error Indication", zap.Any("cause", *msg.ErrorIndication.Cause))
		} else {
			a.log.Error("Rx Error Indication")
		}
	default:
		a.log.Warn("cl-dispatch: unhandled procedure",
			zap.String("dir", msg.Direction.String()), zap.Int("proc", msg.ProcedureCode))
	}
}
