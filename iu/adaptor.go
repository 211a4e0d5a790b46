// Package iu implements the Iu interface core-network adaptation layer: a
// single-threaded-cooperative signalling adaptor letting a mobile core
// (CS/MSC, PS/SGSN) speak RANAP to 3G RNCs/HNB-GWs over SCCP-User-
// Adaptation transport. Adaptor is the Upper-Layer Façade (spec.md 3.7,
// component C7): the one type a host program constructs and calls.
package iu

import (
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/osmo-iu/iu-adaptor/encoding/ranap"
	"github.com/osmo-iu/iu-adaptor/transport/sua"
)

// Adaptor is the core of this package: it owns the UE Dialogue Table, the
// RNC Registry, and the transport Server, and dispatches every inbound
// primitive through a single mutex — spec.md 6's "no internal locks in the
// core, one dispatch mutex at the transport edge."
type Adaptor struct {
	log      *zap.Logger
	contexts *ContextTable
	rncs     *RNCRegistry
	server   *sua.Server

	nasRecv NASReceiveFunc
	ueEvent UEEventFunc

	dispatch sync.Mutex
}

// New constructs an Adaptor. log may be nil, in which case a no-op logger
// is used.
func New(log *zap.Logger) *Adaptor {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Adaptor{
		log:      log.Named("iu"),
		contexts: NewContextTable(),
		rncs:     NewRNCRegistry(),
	}
	return a
}

// Init starts the transport Server and registers the host callbacks. It
// blocks serving inbound associations until the listener errors or is
// closed, matching the teacher's ngap.NewNGAP + serve-loop split: config
// loading happens before Init, serving happens inside it.
func (a *Adaptor) Init(addr net.IP, port int, nasRecv NASReceiveFunc, ueEvent UEEventFunc) error {
	a.nasRecv = nasRecv
	a.ueEvent = ueEvent
	a.server = sua.NewServer(a, a.log)
	return a.server.ListenAndServe(addr, port)
}

// Close stops accepting new associations.
func (a *Adaptor) Close() error {
	if a.server == nil {
		return nil
	}
	return a.server.Close()
}

// RNCs returns a snapshot of the RNC Registry for host introspection.
func (a *Adaptor) RNCs() []RNC { return a.rncs.Snapshot() }

func (a *Adaptor) emitEvent(evt UEEvent) {
	if a.ueEvent != nil {
		a.ueEvent(evt)
	}
}

// --- sua.Handler: component C1 glue, every call serialized by a.dispatch ---

func (a *Adaptor) HandleConnectIndication(link *sua.Link, connID uint32, payload []byte) {
	a.connectIndication(link, connID, payload)
}

// connectIndication is HandleConnectIndication over the Link interface.
func (a *Adaptor) connectIndication(link Link, connID uint32, payload []byte) {
	a.dispatch.Lock()
	defer a.dispatch.Unlock()

	ctx := a.contexts.Allocate(link, connID)
	if err := link.ConnectResponse(connID); err != nil {
		a.log.Error("N-CONNECT.response failed", zap.String("trace", ctx.TraceID), zap.Error(err))
		return
	}
	if len(payload) > 0 {
		a.dispatchConnectionOriented(ctx, payload)
	}
}

func (a *Adaptor) HandleDataIndication(link *sua.Link, connID uint32, payload []byte) {
	a.dispatch.Lock()
	defer a.dispatch.Unlock()

	ctx, ok := a.contexts.Find(link, connID)
	if !ok {
		a.log.Warn("N-DATA.indication for unknown connection", zap.Uint32("conn-id", connID))
		return
	}
	a.dispatchConnectionOriented(ctx, payload)
}

func (a *Adaptor) HandleDisconnectIndication(link *sua.Link, connID uint32, payload []byte) {
	a.dispatch.Lock()
	defer a.dispatch.Unlock()

	ctx, ok := a.contexts.Find(link, connID)
	if !ok {
		return
	}
	if len(payload) > 0 {
		a.dispatchConnectionOriented(ctx, payload)
	}
	a.emitEvent(UEEvent{Context: ctx, Kind: EventIuRelease})
	a.contexts.Remove(ctx)
}

func (a *Adaptor) HandleUnitData(link *sua.Link, payload []byte) {
	a.dispatch.Lock()
	defer a.dispatch.Unlock()
	a.dispatchConnectionLess(link, payload)
}

// HandleLinkInvalidated is the source adaptor's iu_link_del(): every RNC
// record pointing at link is dropped, and every Context still bound to it
// is forgotten, has its link reference cleared, and is then told via
// EventLinkInvalidated.
func (a *Adaptor) HandleLinkInvalidated(link *sua.Link) {
	a.linkInvalidated(link)
}

// linkInvalidated is HandleLinkInvalidated over the Link interface.
func (a *Adaptor) linkInvalidated(link Link) {
	a.dispatch.Lock()
	defer a.dispatch.Unlock()

	removed := a.rncs.InvalidateLink(link)
	for _, rnc := range removed {
		a.log.Info("RNC unregistered", zap.Uint16("rnc-id", rnc.GlobalID.RNCID))
	}
	for _, ctx := range a.contexts.ByLink(link) {
		a.contexts.Remove(ctx)
		ctx.link = nil
		a.emitEvent(UEEvent{Context: ctx, Kind: EventLinkInvalidated})
	}
}

// --- outbound operations (component C7) ---

// SendNAS forwards an opaque uplink-originated NAS PDU downlink to ctx's
// RNC as a DIRECT TRANSFER, 3GPP TS 25.413 9.1.14.
func (a *Adaptor) SendNAS(ctx *Context, sapi uint8, nas []byte) error {
	if ctx.Link() == nil {
		return errTransport("SendNAS: context %s has no live link", ctx.TraceID)
	}
	pdu := ranap.EncodeDirectTransfer(sapi, nas)
	if err := ctx.Link().SendData(ctx.ConnID(), pdu); err != nil {
		return errTransport("SendNAS: %v", err)
	}
	return nil
}

// ActivateRABCS requests a CS voice RAB carrying RTP to rtpIP:rtpPort,
// 3GPP TS 25.413 9.1.1, the source adaptor's iu_rab_act_cs().
func (a *Adaptor) ActivateRABCS(ctx *Context, rabID uint8, rtpIP net.IP, rtpPort uint16) error {
	if ctx.Link() == nil {
		return errTransport("ActivateRABCS: context %s has no live link", ctx.TraceID)
	}
	v4 := rtpIP.To4()
	if v4 == nil {
		return errHost("ActivateRABCS: rtp address %s is not IPv4", rtpIP)
	}
	pdu := ranap.EncodeRABAssignmentRequestVoice(rabID, v4, rtpPort)
	if err := ctx.Link().SendData(ctx.ConnID(), pdu); err != nil {
		return errTransport("ActivateRABCS: %v", err)
	}
	return nil
}

// ActivateRABPS requests a PS data RAB carrying GTP-U to ggsnIP/teid,
// 3GPP TS 25.413 9.1.1, the source adaptor's iu_rab_act_ps().
func (a *Adaptor) ActivateRABPS(ctx *Context, rabID uint8, ggsnIP net.IP, teid uint32) error {
	if ctx.Link() == nil {
		return errTransport("ActivateRABPS: context %s has no live link", ctx.TraceID)
	}
	v4 := ggsnIP.To4()
	if v4 == nil {
		return errHost("ActivateRABPS: ggsn address %s is not IPv4", ggsnIP)
	}
	pdu := ranap.EncodeRABAssignmentRequestData(rabID, v4, teid)
	if err := ctx.Link().SendData(ctx.ConnID(), pdu); err != nil {
		return errTransport("ActivateRABPS: %v", err)
	}
	return nil
}

// DeactivateRAB requests release of rabID, 3GPP TS 25.413 9.1.5. The
// source adaptor stubbed this operation permanently (iu_rab_deact()
// returning -1, "/* FIXME */"); SPEC_FULL.md wires the encoder this
// adaptor was missing.
func (a *Adaptor) DeactivateRAB(ctx *Context, rabID uint8) error {
	if ctx.Link() == nil {
		return errTransport("DeactivateRAB: context %s has no live link", ctx.TraceID)
	}
	pdu := ranap.EncodeIuRABDeactivateRequest(rabID)
	if err := ctx.Link().SendData(ctx.ConnID(), pdu); err != nil {
		return errTransport("DeactivateRAB: %v", err)
	}
	return nil
}

// SendSecurityMode sends a SECURITY MODE COMMAND deriving IK (and, if
// sendCK, CK) from tuple.Kc, 3GPP TS 25.413 9.1.8, the source adaptor's
// iu_tx_sec_mode_cmd().
func (a *Adaptor) SendSecurityMode(ctx *Context, tuple AuthTuple, sendCK, newKey bool) error {
	if ctx.Link() == nil {
		return errTransport("SendSecurityMode: context %s has no live link", ctx.TraceID)
	}
	ik := DeriveIK(tuple.Kc)
	var ckPtr []byte
	if sendCK {
		ck := DeriveCK(tuple.Kc)
		ckPtr = ck[:]
	}
	status := ranap.KeyStatusOld
	if newKey {
		status = ranap.KeyStatusNew
	}
	pdu := ranap.EncodeSecurityModeCommand(ik[:], ckPtr, status)
	if err := ctx.Link().SendData(ctx.ConnID(), pdu); err != nil {
		return errTransport("SendSecurityMode: %v", err)
	}
	return nil
}

// ReleaseContext sends an Iu-ReleaseCommand for cause and forgets ctx. This
// is the host-initiated counterpart to handleIuReleaseRequest: the
// dispatcher's own Iu-ReleaseComplete handling only emits EventIuRelease
// and never touches the UE Dialogue Table (matching the source adaptor,
// whose ue_conn_ctx outlives its own IU_EVENT_IU_RELEASE callback); the
// host is expected to call ReleaseContext — typically on receiving
// EventIuRelease, or to proactively tear a dialogue down — to actually
// destroy ctx. SPEC_FULL.md makes this release contract explicit rather
// than leaving it implicit in the dispatcher.
func (a *Adaptor) ReleaseContext(ctx *Context, cause ranap.Cause) error {
	defer a.contexts.Remove(ctx)
	if ctx.Link() == nil {
		return errTransport("ReleaseContext: context %s has no live link", ctx.TraceID)
	}
	pdu := ranap.EncodeIuReleaseCommand(cause)
	if err := ctx.Link().SendData(ctx.ConnID(), pdu); err != nil {
		return errTransport("ReleaseContext: %v", err)
	}
	return nil
}

var _ fmt.Stringer = Domain(0)

func (d Domain) String() string {
	if d == DomainPS {
		return "PS"
	}
	return "CS"
}
