package iu

import (
	"go.uber.org/zap"

	"github.com/osmo-iu/iu-adaptor/encoding/ranap"
)

// dispatchConnectionOriented is the Connection-Oriented RANAP Dispatcher
// (spec.md 3.3, component C4): it decodes one N-DATA.indication payload
// and routes it by (direction, procedure code), resolving spec.md 9's
// fallthrough ambiguity by giving successfulOutcome and outcome their own
// independent cases.
func (a *Adaptor) dispatchConnectionOriented(ctx *Context, payload []byte) {
	msg, err := ranap.Decode(payload)
	if err != nil {
		a.log.Warn("co-dispatch: decode failed", zap.String("trace", ctx.TraceID), zap.Error(errDecode("%v", err)))
		return
	}

	switch {
	case msg.InitialUE != nil:
		a.handleInitialUE(ctx, msg.InitialUE)
	case msg.DirectTransfer != nil:
		a.handleDirectTransfer(ctx, msg.DirectTransfer)
	case msg.ErrorIndication != nil:
		a.handleErrorIndication(ctx, msg.ErrorIndication)
	case msg.IuReleaseRequest != nil:
		a.handleIuReleaseRequest(ctx, msg.IuReleaseRequest)
	case msg.SecurityModeComplete:
		a.emitEvent(UEEvent{Context: ctx, Kind: EventSecurityModeComplete})
	case msg.IuReleaseComplete:
		// Notification only: the dispatcher does not destroy ctx itself,
		// matching the source adaptor (ue_conn_ctx survives its own
		// IU_EVENT_IU_RELEASE callback). The host forgets ctx by calling
		// ReleaseContext.
		a.emitEvent(UEEvent{Context: ctx, Kind: EventIuRelease})
	case msg.RABAssignmentResp != nil:
		for i := range msg.RABAssignmentResp.SetupOrModified {
			item := msg.RABAssignmentResp.SetupOrModified[i]
			a.emitEvent(UEEvent{Context: ctx, Kind: EventRABAssign, RAB: &item})
		}
	default:
		a.log.Warn("co-dispatch: unhandled procedure",
			zap.String("trace", ctx.TraceID),
			zap.Error(errRouting("no handler for dir=%s proc=%d", msg.Direction, msg.ProcedureCode)))
	}
}

func (a *Adaptor) handleInitialUE(ctx *Context, m *ranap.InitialUEMessage) {
	prev := a.rncs.Register(m.GlobalRNCID, m.LAI.LAC, m.RAC, ctx.Link())
	if prev != nil && (prev.LAC != m.LAI.LAC || !racEqual(prev.RAC, m.RAC) || prev.Link != ctx.Link()) {
		a.log.Warn("RNC registration changed",
			zap.Uint16("rnc-id", m.GlobalRNCID.RNCID),
			zap.Uint16("old-lac", prev.LAC), zap.Uint16("new-lac", m.LAI.LAC))
	}
	rnc, _ := a.rncs.Find(m.GlobalRNCID.RNCID)
	ctx.RNC = rnc

	ra := RAId{PLMN: m.LAI.PLMN, LAC: m.LAI.LAC, RAC: m.RAC}
	if a.nasRecv != nil {
		a.nasRecv(ctx, m.NAS, ra)
	}
}

func (a *Adaptor) handleDirectTransfer(ctx *Context, m *ranap.DirectTransfer) {
	ra := RAId{}
	if m.LAI != nil {
		ra = RAId{PLMN: m.LAI.PLMN, LAC: m.LAI.LAC, RAC: m.RAC}
	} else if ctx.RNC != nil {
		ra = RAId{PLMN: ctx.RNC.GlobalID.PLMN, LAC: ctx.RNC.LAC, RAC: ctx.RNC.RAC}
	}
	if a.nasRecv != nil {
		a.nasRecv(ctx, m.NAS, ra)
	}
}

func (a *Adaptor) handleErrorIndication(ctx *Context, m *ranap.ErrorIndication) {
	a.log.Info("ERROR INDICATION", zap.String("trace", ctx.TraceID), zap.Any("cause", m.Cause))
	a.emitEvent(UEEvent{Context: ctx, Kind: EventErrorIndication, Cause: m.Cause})
}

func (a *Adaptor) handleIuReleaseRequest(ctx *Context, m *ranap.IuReleaseRequest) {
	pdu := ranap.EncodeIuReleaseCommand(m.Cause)
	if ctx.Link() != nil {
		if err := ctx.Link().SendData(ctx.ConnID(), pdu); err != nil {
			a.log.Error("failed to send Iu-ReleaseCommand", zap.String("trace", ctx.TraceID), zap.Error(err))
		}
	}
}

func racEqual(a, b *uint8) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
