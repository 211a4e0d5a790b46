package iu

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osmo-iu/iu-adaptor/encoding/ranap"
)

// fakeLink is a recording Link used so dispatch and façade logic can be
// exercised without a live SCTP association.
type fakeLink struct {
	id         uint64
	data       [][]byte
	unitData   [][]byte
	disconnect []uint32
}

func (f *fakeLink) ID() uint64         { return f.id }
func (f *fakeLink) RemoteAddr() string { return "fake" }
func (f *fakeLink) ConnectResponse(connID uint32) error { return nil }
func (f *fakeLink) SendData(connID uint32, payload []byte) error {
	f.data = append(f.data, payload)
	return nil
}
func (f *fakeLink) Disconnect(connID uint32) error {
	f.disconnect = append(f.disconnect, connID)
	return nil
}
func (f *fakeLink) SendUnitData(payload []byte) error {
	f.unitData = append(f.unitData, payload)
	return nil
}

func TestInitialUERegistersRNCAndDeliversNAS(t *testing.T) {
	a := New(nil)

	var gotNAS []byte
	var gotRA RAId
	a.nasRecv = func(ctx *Context, nas []byte, ra RAId) {
		gotNAS = nas
		gotRA = ra
	}

	link := &fakeLink{id: 1}
	lai := ranap.LAI{PLMN: ranap.PLMN{MCC: 262, MNC: 2}, LAC: 0x1234}
	rac := uint8(0x56)
	grnc := ranap.GlobalRNCID{PLMN: lai.PLMN, RNCID: 7}
	pdu := ranap.EncodeInitialUEMessage(lai, &rac, nil, grnc, []byte{0xde, 0xad})

	a.connectIndication(link, 1, pdu)

	require.Equal(t, []byte{0xde, 0xad}, gotNAS)
	require.Equal(t, uint16(0x1234), gotRA.LAC)
	require.NotNil(t, gotRA.RAC)
	require.Equal(t, uint8(0x56), *gotRA.RAC)

	rnc, ok := a.rncs.Find(7)
	require.True(t, ok)
	require.Equal(t, uint16(0x1234), rnc.LAC)

	ctx, ok := a.contexts.Find(link, 1)
	require.True(t, ok)
	require.NotNil(t, ctx.RNC)
	require.Equal(t, uint16(7), ctx.RNC.GlobalID.RNCID)
}

func TestPagingMatchesByLACAndReturnsErrorWhenUnmatched(t *testing.T) {
	a := New(nil)
	link := &fakeLink{id: 1}
	grnc := ranap.GlobalRNCID{PLMN: ranap.PLMN{MCC: 262, MNC: 2}, RNCID: 7}
	a.rncs.Register(grnc, 0x1234, nil, link)

	n, err := a.Page(PagingCriteria{IMSI: "001010000000001", LAC: 0x1234, Domain: DomainCS})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Len(t, link.unitData, 1)

	_, err = a.Page(PagingCriteria{IMSI: "001010000000001", LAC: 0x9999, Domain: DomainCS})
	require.Error(t, err)
	var pagingErr *PagingError
	require.ErrorAs(t, err, &pagingErr)
}

func TestLinkInvalidationCascadesToContextsAndRNCs(t *testing.T) {
	a := New(nil)
	var events []EventKind
	a.ueEvent = func(evt UEEvent) { events = append(events, evt.Kind) }

	link := &fakeLink{id: 1}
	grnc := ranap.GlobalRNCID{PLMN: ranap.PLMN{MCC: 262, MNC: 2}, RNCID: 7}
	a.rncs.Register(grnc, 0x1234, nil, link)
	a.contexts.Allocate(link, 1)
	a.contexts.Allocate(link, 2)

	a.linkInvalidated(link)

	require.Len(t, events, 2)
	for _, k := range events {
		require.Equal(t, EventLinkInvalidated, k)
	}
	require.Equal(t, 0, a.contexts.Len())
	_, ok := a.rncs.Find(7)
	require.False(t, ok)
}

func TestIuReleaseRequestTriggersReleaseCommand(t *testing.T) {
	a := New(nil)
	link := &fakeLink{id: 1}
	ctx := a.contexts.Allocate(link, 1)

	cause := ranap.Cause{Group: ranap.CauseGroupRadioNetwork, Value: ranap.CauseRadioNetworkUserInactivity}
	pdu := ranap.EncodeIuReleaseRequest(cause)

	a.dispatchConnectionOriented(ctx, pdu)

	require.Len(t, link.data, 1)
	msg, err := ranap.Decode(link.data[0])
	require.NoError(t, err)
	require.NotNil(t, msg.IuReleaseCommand)
	require.Equal(t, cause, msg.IuReleaseCommand.Cause)
}

func TestRABAssignmentEmitsOneEventPerEntry(t *testing.T) {
	a := New(nil)
	link := &fakeLink{id: 1}
	ctx := a.contexts.Allocate(link, 1)

	var rabEvents []UEEvent
	a.ueEvent = func(evt UEEvent) {
		if evt.Kind == EventRABAssign {
			rabEvents = append(rabEvents, evt)
		}
	}

	// RAB-Assignment outcome: PDU header (outcome, RAB-Assignment, ignore),
	// a one-IE container, then the SetupOrModifiedList IE (id 35, 18 octets)
	// holding two entries of RAB-ID + IPv4 + TEID.
	pdu := []byte{
		0xc0, 0x00, 0x40,
		0x00, 0x01,
		0x00, 0x23, 0x40, 0x12,
		0x01, 10, 0, 0, 1, 0x00, 0x00, 0x00, 0x64,
		0x02, 10, 0, 0, 2, 0x00, 0x00, 0x00, 0xc8,
	}
	a.dispatchConnectionOriented(ctx, pdu)

	require.Len(t, rabEvents, 2)
	require.Equal(t, uint8(1), rabEvents[0].RAB.RABID)
	require.Equal(t, uint8(2), rabEvents[1].RAB.RABID)
}

func TestPagingSendsToEveryRNCEvenWhenSharingOneLink(t *testing.T) {
	a := New(nil)
	link := &fakeLink{id: 1}
	grnc1 := ranap.GlobalRNCID{PLMN: ranap.PLMN{MCC: 262, MNC: 2}, RNCID: 7}
	grnc2 := ranap.GlobalRNCID{PLMN: ranap.PLMN{MCC: 262, MNC: 2}, RNCID: 8}
	a.rncs.Register(grnc1, 0x1234, nil, link)
	a.rncs.Register(grnc2, 0x1234, nil, link)

	n, err := a.Page(PagingCriteria{IMSI: "001010000000001", LAC: 0x1234, Domain: DomainCS})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, link.unitData, 2)
}

func TestSendNASSendsDirectTransfer(t *testing.T) {
	a := New(nil)
	link := &fakeLink{id: 1}
	ctx := a.contexts.Allocate(link, 1)

	err := a.SendNAS(ctx, 3, []byte{0xca, 0xfe})
	require.NoError(t, err)
	require.Equal(t, [][]byte{ranap.EncodeDirectTransfer(3, []byte{0xca, 0xfe})}, link.data)
}

func TestSendNASNoLink(t *testing.T) {
	a := New(nil)
	ctx := &Context{TraceID: "no-link"}
	err := a.SendNAS(ctx, 3, []byte{0xca, 0xfe})
	require.Error(t, err)
}

func TestActivateRABCSSendsVoiceAssignment(t *testing.T) {
	a := New(nil)
	link := &fakeLink{id: 1}
	ctx := a.contexts.Allocate(link, 1)

	rtpIP := net.IPv4(10, 0, 0, 1)
	err := a.ActivateRABCS(ctx, 5, rtpIP, 16384)
	require.NoError(t, err)
	require.Equal(t, [][]byte{ranap.EncodeRABAssignmentRequestVoice(5, rtpIP.To4(), 16384)}, link.data)
}

func TestActivateRABCSRejectsNonIPv4(t *testing.T) {
	a := New(nil)
	link := &fakeLink{id: 1}
	ctx := a.contexts.Allocate(link, 1)

	err := a.ActivateRABCS(ctx, 5, net.ParseIP("::1"), 16384)
	require.Error(t, err)
	require.Empty(t, link.data)
}

func TestActivateRABPSSendsDataAssignment(t *testing.T) {
	a := New(nil)
	link := &fakeLink{id: 1}
	ctx := a.contexts.Allocate(link, 1)

	ggsnIP := net.IPv4(10, 0, 0, 2)
	err := a.ActivateRABPS(ctx, 9, ggsnIP, 0xdeadbeef)
	require.NoError(t, err)
	require.Equal(t, [][]byte{ranap.EncodeRABAssignmentRequestData(9, ggsnIP.To4(), 0xdeadbeef)}, link.data)
}

func TestDeactivateRABSendsRequest(t *testing.T) {
	a := New(nil)
	link := &fakeLink{id: 1}
	ctx := a.contexts.Allocate(link, 1)

	err := a.DeactivateRAB(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, [][]byte{ranap.EncodeIuRABDeactivateRequest(5)}, link.data)
}

func TestSendSecurityModeDerivesIKAndCK(t *testing.T) {
	a := New(nil)
	link := &fakeLink{id: 1}
	ctx := a.contexts.Allocate(link, 1)

	kc := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	err := a.SendSecurityMode(ctx, AuthTuple{Kc: kc}, true, true)
	require.NoError(t, err)

	ik := DeriveIK(kc)
	ck := DeriveCK(kc)
	want := ranap.EncodeSecurityModeCommand(ik[:], ck[:], ranap.KeyStatusNew)
	require.Equal(t, [][]byte{want}, link.data)
}

func TestSendSecurityModeOmitsCKWhenNotRequested(t *testing.T) {
	a := New(nil)
	link := &fakeLink{id: 1}
	ctx := a.contexts.Allocate(link, 1)

	kc := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	err := a.SendSecurityMode(ctx, AuthTuple{Kc: kc}, false, false)
	require.NoError(t, err)

	ik := DeriveIK(kc)
	want := ranap.EncodeSecurityModeCommand(ik[:], nil, ranap.KeyStatusOld)
	require.Equal(t, [][]byte{want}, link.data)
}

func TestReleaseContextSendsCommandAndForgetsContext(t *testing.T) {
	a := New(nil)
	link := &fakeLink{id: 1}
	ctx := a.contexts.Allocate(link, 1)

	cause := ranap.Cause{Group: ranap.CauseGroupRadioNetwork, Value: ranap.CauseRadioNetworkUserInactivity}
	err := a.ReleaseContext(ctx, cause)
	require.NoError(t, err)

	require.Len(t, link.data, 1)
	msg, err := ranap.Decode(link.data[0])
	require.NoError(t, err)
	require.NotNil(t, msg.IuReleaseCommand)
	require.Equal(t, cause, msg.IuReleaseCommand.Cause)

	_, ok := a.contexts.Find(link, 1)
	require.False(t, ok)
}

func TestIuReleaseCompleteNotifiesWithoutDestroyingContext(t *testing.T) {
	a := New(nil)
	link := &fakeLink{id: 1}
	ctx := a.contexts.Allocate(link, 1)

	var events []EventKind
	a.ueEvent = func(evt UEEvent) { events = append(events, evt.Kind) }

	a.dispatchConnectionOriented(ctx, ranap.EncodeIuReleaseComplete())

	require.Equal(t, []EventKind{EventIuRelease}, events)
	_, ok := a.contexts.Find(link, 1)
	require.True(t, ok, "dispatcher must not remove the context itself; only ReleaseContext does")
}
