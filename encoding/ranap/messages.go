package ranap

import (
	"fmt"
	"net"
)

// InitialUEMessage is the decoded content of an INITIAL UE MESSAGE,
// 3GPP TS 25.413 9.1.11. The LAI and GlobalRNC-ID are mandatory; the
// optional SAI/RAC mirror what the adaptor actually consumes.
type InitialUEMessage struct {
	LAI         LAI
	RAC         *uint8
	SAI         *uint16
	GlobalRNCID GlobalRNCID
	NAS         []byte
}

// DirectTransfer is the decoded content of a DIRECT TRANSFER message in
// either direction, 3GPP TS 25.413 9.1.13/9.1.14. LAI/RAC/SAI are only
// present on the uplink (RANAP -> core) direction, per the presence mask
// semantics documented in spec.md 4.4.
type DirectTransfer struct {
	SAPI uint8
	NAS  []byte
	LAI  *LAI
	RAC  *uint8
	SAI  *uint16
}

// ErrorIndication is the decoded content of an ERROR INDICATION, 3GPP TS
// 25.413 9.1.19. Cause is nil when the peer omitted it, matching
// spec.md 4.4's "Log cause (if present)".
type ErrorIndication struct {
	Cause *Cause
}

// IuReleaseRequest is the decoded content of an IU RELEASE REQUEST, 3GPP TS
// 25.413 9.1.17.
type IuReleaseRequest struct {
	Cause Cause
}

// RABSetupItem is one entry of a RAB-Assignment-Response's
// SetupOrModifiedList, 3GPP TS 25.413 9.1.2. Only the fields the adaptor's
// callers act on are modeled.
type RABSetupItem struct {
	RABID    uint8
	Endpoint GTPEndpoint
}

// RABAssignmentResponse is the decoded content of a RAB ASSIGNMENT
// response, which this codec treats as a class-2 "outcome", 3GPP TS 25.413
// 9.1.2. SPEC_FULL.md resolves the source adaptor's first-entry-only
// shortcut: every entry of SetupOrModifiedList is decoded.
type RABAssignmentResponse struct {
	SetupOrModified []RABSetupItem
}

// Reset is the decoded content of a connection-less RESET, 3GPP TS 25.413
// 9.1.15.
type Reset struct {
	Cause Cause
}

// IuReleaseCommand is the decoded content of an IU RELEASE COMMAND, 3GPP TS
// 25.413 9.1.16. Only used by tests to confirm the cause mirrors the
// triggering IU RELEASE REQUEST; the live adaptor never receives this
// message, it only sends it.
type IuReleaseCommand struct {
	Cause Cause
}

// Message is the tagged union this codec's Decode returns: at most one of
// the procedure-shaped fields is set, selected by (Direction,
// ProcedureCode); none is set for a procedure this codec does not decode.
type Message struct {
	Direction           Direction
	ProcedureCode       int
	InitialUE           *InitialUEMessage
	DirectTransfer      *DirectTransfer
	ErrorIndication     *ErrorIndication
	IuReleaseRequest    *IuReleaseRequest
	SecurityModeComplete bool
	IuReleaseComplete   bool
	RABAssignmentResp   *RABAssignmentResponse
	Reset               *Reset
	IuReleaseCommand    *IuReleaseCommand
}

// EncodeInitialUEMessage builds an INITIAL UE MESSAGE, 3GPP TS 25.413
// 9.1.11. This direction (RNC -> core) is normally built by the peer, not
// this adaptor; the encoder exists alongside Decode so RNC/HNB-GW
// simulators and this package's own tests can produce wire-accurate
// fixtures instead of hand-rolling IE bytes.
func EncodeInitialUEMessage(lai LAI, rac *uint8, sai *uint16, grnc GlobalRNCID, nas []byte) []byte {
	ies := []([]byte){
		encIE(ieLAI, CriticalityReject, EncodeLAI(lai)),
		encIE(ieGlobalRNCID, CriticalityReject, EncodeGlobalRNCID(grnc)),
		encIE(ieNASPDU, CriticalityReject, nas),
	}
	if rac != nil {
		ies = append(ies, encIE(ieRAC, CriticalityIgnore, []byte{*rac}))
	}
	if sai != nil {
		sb := []byte{byte(*sai >> 8), byte(*sai)}
		ies = append(ies, encIE(ieSAI, CriticalityIgnore, sb))
	}
	body := encContainer(ies...)
	return append(encPDUHeader(Initiating, ProcInitialUEMessage, CriticalityIgnore), body...)
}

// EncodeIuReleaseRequest builds an IU RELEASE REQUEST carrying cause,
// 3GPP TS 25.413 9.1.17. Like EncodeInitialUEMessage, this direction
// (RNC -> core) exists for RNC/HNB-GW simulators and this package's tests.
func EncodeIuReleaseRequest(cause Cause) []byte {
	ie := encIE(ieCause, CriticalityIgnore, encCause(cause))
	body := encContainer(ie)
	return append(encPDUHeader(Initiating, ProcIuReleaseRequest, CriticalityReject), body...)
}

// EncodeResetRequest builds a connection-less RESET carrying cause,
// 3GPP TS 25.413 9.1.15. Like EncodeInitialUEMessage, this direction
// (RNC -> core) exists for RNC/HNB-GW simulators and this package's tests.
func EncodeResetRequest(cause Cause) []byte {
	ie := encIE(ieCause, CriticalityIgnore, encCause(cause))
	body := encContainer(ie)
	return append(encPDUHeader(Initiating, ProcReset, CriticalityReject), body...)
}

// Decode parses a raw RANAP PDU into a tagged Message. Unknown procedure
// codes are not an error: Decode returns a Message with every procedure
// field nil so the caller can log-and-ignore, per spec.md 4.4's
// forward-compatibility rule for "any/other/unknown".
func Decode(pdu []byte) (*Message, error) {
	buf := append([]byte{}, pdu...)
	dir, procCode, _, err := decPDUHeader(&buf)
	if err != nil {
		return nil, fmt.Errorf("ranap: decode header: %w", err)
	}
	msg := &Message{Direction: dir, ProcedureCode: procCode}

	count, err := decContainerCount(&buf)
	if err != nil {
		return nil, fmt.Errorf("ranap: decode container: %w", err)
	}

	raw := make(map[int][]byte, count)
	for i := 0; i < count; i++ {
		id, _, length, err := decIEHeader(&buf)
		if err != nil {
			return nil, fmt.Errorf("ranap: decode IE %d header: %w", i, err)
		}
		val, err := readBytes(&buf, length)
		if err != nil {
			return nil, fmt.Errorf("ranap: decode IE %d value: %w", i, err)
		}
		raw[id] = val
	}

	switch {
	case dir == Initiating && procCode == ProcInitialUEMessage:
		m, err := decodeInitialUE(raw)
		if err != nil {
			return nil, err
		}
		msg.InitialUE = m
	case dir == Initiating && procCode == ProcDirectTransfer:
		m, err := decodeDirectTransfer(raw)
		if err != nil {
			return nil, err
		}
		msg.DirectTransfer = m
	case dir == Initiating && procCode == ProcErrorIndication:
		msg.ErrorIndication = decodeErrorIndication(raw)
	case dir == Initiating && procCode == ProcIuReleaseRequest:
		m, err := decodeIuReleaseRequest(raw)
		if err != nil {
			return nil, err
		}
		msg.IuReleaseRequest = m
	case dir == SuccessfulOutcome && procCode == ProcSecurityModeControl:
		msg.SecurityModeComplete = true
	case dir == SuccessfulOutcome && procCode == ProcIuRelease:
		msg.IuReleaseComplete = true
	case dir == Outcome && procCode == ProcRABAssignment:
		m, err := decodeRABAssignmentResponse(raw)
		if err != nil {
			return nil, err
		}
		msg.RABAssignmentResp = m
	case dir == Initiating && procCode == ProcReset:
		m, err := decodeReset(raw)
		if err != nil {
			return nil, err
		}
		msg.Reset = m
	case dir == Initiating && procCode == ProcIuRelease:
		causeBuf, ok := raw[ieCause]
		if !ok {
			return nil, fmt.Errorf("ranap: IuReleaseCommand missing mandatory Cause IE")
		}
		c, err := decCause(causeBuf)
		if err != nil {
			return nil, fmt.Errorf("ranap: IuReleaseCommand Cause: %w", err)
		}
		msg.IuReleaseCommand = &IuReleaseCommand{Cause: c}
	}

	return msg, nil
}

func decodeInitialUE(raw map[int][]byte) (*InitialUEMessage, error) {
	laiBuf, ok := raw[ieLAI]
	if !ok {
		return nil, fmt.Errorf("ranap: InitialUE missing mandatory LAI IE")
	}
	lai, err := DecodeLAI(laiBuf)
	if err != nil {
		return nil, fmt.Errorf("ranap: InitialUE LAI: %w", err)
	}

	grncBuf, ok := raw[ieGlobalRNCID]
	if !ok {
		return nil, fmt.Errorf("ranap: InitialUE missing mandatory GlobalRNC-ID IE")
	}
	grnc, err := DecodeGlobalRNCID(grncBuf)
	if err != nil {
		return nil, fmt.Errorf("ranap: InitialUE GlobalRNC-ID: %w", err)
	}

	nas, ok := raw[ieNASPDU]
	if !ok {
		return nil, fmt.Errorf("ranap: InitialUE missing mandatory NAS-PDU IE")
	}

	m := &InitialUEMessage{LAI: lai, GlobalRNCID: grnc, NAS: nas}
	if racBuf, ok := raw[ieRAC]; ok && len(racBuf) == 1 {
		rac := racBuf[0]
		m.RAC = &rac
	}
	if saiBuf, ok := raw[ieSAI]; ok && len(saiBuf) == 2 {
		sai := uint16(saiBuf[0])<<8 | uint16(saiBuf[1])
		m.SAI = &sai
	}
	return m, nil
}

func decodeDirectTransfer(raw map[int][]byte) (*DirectTransfer, error) {
	nas, ok := raw[ieNASPDU]
	if !ok {
		return nil, fmt.Errorf("ranap: DirectTransfer missing mandatory NAS-PDU IE")
	}
	m := &DirectTransfer{NAS: nas}
	if sapiBuf, ok := raw[ieSAPI]; ok && len(sapiBuf) == 1 {
		m.SAPI = sapiBuf[0]
	}
	if laiBuf, ok := raw[ieLAI]; ok {
		lai, err := DecodeLAI(laiBuf)
		if err != nil {
			return nil, fmt.Errorf("ranap: DirectTransfer LAI: %w", err)
		}
		m.LAI = &lai
		if racBuf, ok := raw[ieRAC]; ok && len(racBuf) == 1 {
			rac := racBuf[0]
			m.RAC = &rac
		}
		if saiBuf, ok := raw[ieSAI]; ok && len(saiBuf) == 2 {
			sai := uint16(saiBuf[0])<<8 | uint16(saiBuf[1])
			m.SAI = &sai
		}
	}
	return m, nil
}

func decodeErrorIndication(raw map[int][]byte) *ErrorIndication {
	m := &ErrorIndication{}
	if causeBuf, ok := raw[ieCause]; ok {
		if c, err := decCause(causeBuf); err == nil {
			m.Cause = &c
		}
	}
	return m
}

func decodeIuReleaseRequest(raw map[int][]byte) (*IuReleaseRequest, error) {
	causeBuf, ok := raw[ieCause]
	if !ok {
		return nil, fmt.Errorf("ranap: IuReleaseRequest missing mandatory Cause IE")
	}
	c, err := decCause(causeBuf)
	if err != nil {
		return nil, fmt.Errorf("ranap: IuReleaseRequest Cause: %w", err)
	}
	return &IuReleaseRequest{Cause: c}, nil
}

func decodeReset(raw map[int][]byte) (*Reset, error) {
	causeBuf, ok := raw[ieCause]
	if !ok {
		return nil, fmt.Errorf("ranap: Reset missing mandatory Cause IE")
	}
	c, err := decCause(causeBuf)
	if err != nil {
		return nil, fmt.Errorf("ranap: Reset Cause: %w", err)
	}
	return &Reset{Cause: c}, nil
}

func decodeRABAssignmentResponse(raw map[int][]byte) (*RABAssignmentResponse, error) {
	listBuf, ok := raw[ieRABSetupList]
	if !ok {
		// Optional in the real IE set (failure-to-setup is a sibling IE);
		// an empty response is not an error for this adaptor.
		return &RABAssignmentResponse{}, nil
	}
	const itemSize = 1 + 8 // RAB-ID octet + GTPEndpoint
	if len(listBuf) == 0 || len(listBuf)%itemSize != 0 {
		return nil, fmt.Errorf("ranap: malformed RAB-SetupOrModifiedList (%d bytes)", len(listBuf))
	}
	var items []RABSetupItem
	for off := 0; off < len(listBuf); off += itemSize {
		rabID := listBuf[off]
		ep, err := decGTPEndpoint(listBuf[off+1 : off+itemSize])
		if err != nil {
			return nil, fmt.Errorf("ranap: RAB-SetupOrModifiedList item: %w", err)
		}
		items = append(items, RABSetupItem{RABID: rabID, Endpoint: ep})
	}
	return &RABAssignmentResponse{SetupOrModified: items}, nil
}

// EncodeIuReleaseCommand builds an IU RELEASE COMMAND mirroring cause back
// at the peer, 3GPP TS 25.413 9.1.16 — the reply to an IU RELEASE REQUEST
// per spec.md 4.4.
func EncodeIuReleaseCommand(cause Cause) []byte {
	ie := encIE(ieCause, CriticalityIgnore, encCause(cause))
	body := encContainer(ie)
	return append(encPDUHeader(Initiating, ProcIuRelease, CriticalityReject), body...)
}

// KeyStatus is the RANAP KeyStatus enumeration, 3GPP TS 25.413 9.2.3.10.
type KeyStatus int

const (
	KeyStatusOld KeyStatus = iota
	KeyStatusNew
)

// EncodeSecurityModeCommand builds a SECURITY MODE COMMAND carrying IK and,
// if ck is non-nil, CK, 3GPP TS 25.413 9.1.8.
func EncodeSecurityModeCommand(ik []byte, ck []byte, status KeyStatus) []byte {
	ies := []([]byte){encIE(ieIntegrityKey, CriticalityReject, ik)}
	if ck != nil {
		ies = append(ies, encIE(ieEncryptionKey, CriticalityReject, ck))
	}
	ies = append(ies, encIE(ieKeyStatus, CriticalityIgnore, []byte{byte(status)}))
	body := encContainer(ies...)
	return append(encPDUHeader(Initiating, ProcSecurityModeControl, CriticalityReject), body...)
}

// EncodeDirectTransfer builds a DIRECT TRANSFER carrying a downlink NAS PDU,
// 3GPP TS 25.413 9.1.13.
func EncodeDirectTransfer(sapi uint8, nas []byte) []byte {
	ies := []([]byte){
		encIE(ieSAPI, CriticalityIgnore, []byte{sapi}),
		encIE(ieNASPDU, CriticalityReject, nas),
	}
	body := encContainer(ies...)
	return append(encPDUHeader(Initiating, ProcDirectTransfer, CriticalityIgnore), body...)
}

// EncodeRABAssignmentRequestVoice builds a RAB ASSIGNMENT REQUEST for a CS
// voice bearer carrying an RTP endpoint, 3GPP TS 25.413 9.1.1.
func EncodeRABAssignmentRequestVoice(rabID uint8, rtpIP []byte, rtpPort uint16) []byte {
	ep := GTPEndpoint{Addr: ipFrom4(rtpIP), TEID: uint32(rtpPort)}
	item := append([]byte{rabID}, encGTPEndpoint(ep)...)
	ie := encIE(ieRABSetupList, CriticalityReject, item)
	body := encContainer(ie)
	return append(encPDUHeader(Initiating, ProcRABAssignment, CriticalityIgnore), body...)
}

// EncodeRABAssignmentRequestData builds a RAB ASSIGNMENT REQUEST for a PS
// data bearer carrying a GGSN GTP-U endpoint, 3GPP TS 25.413 9.1.1.
func EncodeRABAssignmentRequestData(rabID uint8, ggsnIP []byte, teid uint32) []byte {
	ep := GTPEndpoint{Addr: ipFrom4(ggsnIP), TEID: teid}
	item := append([]byte{rabID}, encGTPEndpoint(ep)...)
	ie := encIE(ieRABSetupList, CriticalityReject, item)
	body := encContainer(ie)
	return append(encPDUHeader(Initiating, ProcRABAssignment, CriticalityIgnore), body...)
}

// EncodeIuRABDeactivateRequest builds an IU RAB DEACTIVATE request for the
// given RAB id. The source adaptor stubbed this as a permanent failure
// (spec.md 9 Open Questions); SPEC_FULL.md wires the encoder.
func EncodeIuRABDeactivateRequest(rabID uint8) []byte {
	ie := encIE(ieRABID, CriticalityReject, []byte{rabID})
	body := encContainer(ie)
	return append(encPDUHeader(Initiating, ProcIuRABDeactivate, CriticalityReject), body...)
}

// EncodePagingCommand builds a PAGING COMMAND for imsi, optionally carrying
// tmsiOrPTMSI instead of sending the IMSI over the air, 3GPP TS 25.413
// 9.1.9. IMSI is always included in the IE set: the RNC/HNB-GW still
// resolves by IMSI even when the temporary identity rides the air
// interface (spec.md 4.6).
func EncodePagingCommand(imsi string, tmsiOrPTMSI *uint32, isPS bool) []byte {
	ies := []([]byte){encIE(ieIMSI, CriticalityReject, []byte(imsi))}
	if tmsiOrPTMSI != nil {
		id := iePTMSI
		if !isPS {
			id = ieTMSI
		}
		tb := make([]byte, 4)
		tb[0] = byte(*tmsiOrPTMSI >> 24)
		tb[1] = byte(*tmsiOrPTMSI >> 16)
		tb[2] = byte(*tmsiOrPTMSI >> 8)
		tb[3] = byte(*tmsiOrPTMSI)
		ies = append(ies, encIE(id, CriticalityIgnore, tb))
	}
	body := encContainer(ies...)
	return append(encPDUHeader(Initiating, ProcPaging, CriticalityIgnore), body...)
}

// EncodeResetAcknowledge builds a RESET ACKNOWLEDGE reply to a connection-
// less RESET, 3GPP TS 25.413 9.1.15a. Closing this gap is one of the
// spec.md 9 Open Questions.
func EncodeResetAcknowledge() []byte {
	body := encContainer()
	return append(encPDUHeader(SuccessfulOutcome, ProcReset, CriticalityReject), body...)
}

// EncodeIuReleaseComplete builds an IU RELEASE COMPLETE, 3GPP TS 25.413
// 9.1.17a — the successfulOutcome an RNC sends to confirm an
// Iu-ReleaseCommand. This direction (RNC -> core) exists for RNC/HNB-GW
// simulators and this package's own tests.
func EncodeIuReleaseComplete() []byte {
	body := encContainer()
	return append(encPDUHeader(SuccessfulOutcome, ProcIuRelease, CriticalityReject), body...)
}

func ipFrom4(b []byte) net.IP {
	if v4 := net.IP(b).To4(); v4 != nil {
		return v4
	}
	return net.IPv4zero
}
