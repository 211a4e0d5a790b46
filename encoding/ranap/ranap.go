// Package ranap implements the subset of the Radio Access Network
// Application Part (RANAP, 3GPP TS 25.413) needed by the Iu interface
// core-network adaptation layer: PDU framing, the protocol-IE container,
// and the handful of procedures that adaptor actually speaks. It plays the
// role that an out-of-tree ASN.1 PER codec would play in a production
// stack: decode(bytes) -> tagged Message, plus one encoder per outgoing
// procedure.
package ranap

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/osmo-iu/iu-adaptor/encoding/per"
)

// Direction tags which branch of the RANAP-PDU CHOICE a Message belongs to.
// RAB Assignment is a class-2 (request/response) procedure and is tagged
// Outcome rather than SuccessfulOutcome, matching the asn1c-generated
// RANAP-PDU CHOICE this codec's wire format is modeled on.
type Direction int

const (
	Initiating Direction = iota
	SuccessfulOutcome
	UnsuccessfulOutcome
	Outcome
)

func (d Direction) String() string {
	switch d {
	case Initiating:
		return "initiatingMessage"
	case SuccessfulOutcome:
		return "successfulOutcome"
	case UnsuccessfulOutcome:
		return "unsuccessfulOutcome"
	case Outcome:
		return "outcome"
	default:
		return "unknown"
	}
}

// Criticality, 3GPP TS 25.413 9.3.
const (
	CriticalityReject = iota
	CriticalityIgnore
	CriticalityNotify
)

// Procedure codes, 3GPP TS 25.413 9.1 / table 9.1.
const (
	ProcRABAssignment       = 0
	ProcIuRelease           = 1
	ProcSecurityModeControl = 6
	ProcReset               = 8
	ProcIuReleaseRequest    = 10
	ProcPaging              = 13
	ProcInitialUEMessage    = 18
	ProcDirectTransfer      = 19
	ProcErrorIndication     = 21
	ProcIuRABDeactivate     = 28
)

var procName = map[int]string{
	ProcRABAssignment:       "id-RAB-Assignment",
	ProcIuRelease:           "id-Iu-Release",
	ProcSecurityModeControl: "id-SecurityModeControl",
	ProcReset:               "id-Reset",
	ProcIuReleaseRequest:    "id-Iu-ReleaseRequest",
	ProcPaging:              "id-Paging",
	ProcInitialUEMessage:    "id-InitialUE-Message",
	ProcDirectTransfer:      "id-DirectTransfer",
	ProcErrorIndication:     "id-ErrorIndication",
	ProcIuRABDeactivate:     "id-Iu-RAB-Deactivate",
}

// ProcedureName returns the 3GPP procedure identifier name, or "" if unknown
// to this codec.
func ProcedureName(procCode int) string { return procName[procCode] }

// Protocol IE identifiers, 3GPP TS 25.413 9.3.6, restricted to the IEs this
// codec actually encodes or decodes.
const (
	ieGlobalRNCID       = 3
	ieLAI               = 28
	ieNASPDU            = 26
	ieSAI               = 50
	ieRAC               = 72
	ieCause             = 4
	ieSAPI              = 49
	ieRABID             = 11
	ieIMSI              = 20
	ieTMSI              = 94
	iePTMSI             = 95
	ieEncryptionKey     = 60  // CK (optional)
	ieIntegrityKey      = 61  // IK (mandatory)
	ieKeyStatus         = 62
	ieRABSetupList      = 35
	ieTransportAddr     = 78
	ieTEID              = 79
)

// readU8/readU16/readU32/readBytes mirror the teacher's readPduByte-family
// helpers: they consume from the front of *pdu and panic-free short-read by
// returning an error instead of indexing out of range.
func readU8(pdu *[]byte) (v uint8, err error) {
	if len(*pdu) < 1 {
		return 0, fmt.Errorf("ranap: buffer underrun reading 1 byte")
	}
	v = (*pdu)[0]
	*pdu = (*pdu)[1:]
	return
}

func readU16(pdu *[]byte) (v uint16, err error) {
	if len(*pdu) < 2 {
		return 0, fmt.Errorf("ranap: buffer underrun reading 2 bytes")
	}
	v = binary.BigEndian.Uint16(*pdu)
	*pdu = (*pdu)[2:]
	return
}

func readU32(pdu *[]byte) (v uint32, err error) {
	if len(*pdu) < 4 {
		return 0, fmt.Errorf("ranap: buffer underrun reading 4 bytes")
	}
	v = binary.BigEndian.Uint32(*pdu)
	*pdu = (*pdu)[4:]
	return
}

func readBytes(pdu *[]byte, n int) (v []byte, err error) {
	if len(*pdu) < n {
		return nil, fmt.Errorf("ranap: buffer underrun reading %d bytes", n)
	}
	v = (*pdu)[:n]
	*pdu = (*pdu)[n:]
	return
}

// encPDUHeader emits the outer RANAP-PDU CHOICE selector, procedure code and
// criticality, X.691-ish short form used throughout this codec.
func encPDUHeader(dir Direction, procCode, criticality int) []byte {
	b, _ := per.EncChoice(int(dir), 0, 3, false)
	pc, _ := per.EncInteger(int64(procCode), 0, 255, false)
	cr, _ := per.EncEnumerated(uint(criticality), 0, 2, false)
	pdu := append(b.Value, pc.Value...)
	pdu = append(pdu, cr.Value...)
	return pdu
}

func decPDUHeader(pdu *[]byte) (dir Direction, procCode, criticality int, err error) {
	d, err := readU8(pdu)
	if err != nil {
		return
	}
	dir = Direction(d >> 6)
	pc, err := readU8(pdu)
	if err != nil {
		return
	}
	procCode = int(pc)
	cr, err := readU8(pdu)
	if err != nil {
		return
	}
	criticality = int(cr)
	return
}

// encIE emits one ProtocolIE-Field entry: id, criticality and an
// octet-aligned length-prefixed value, X.691 clause for
// ProtocolIE-Container.
func encIE(id int, criticality int, value []byte) []byte {
	idB, _ := per.EncInteger(int64(id), 0, 65535, false)
	crB, _ := per.EncEnumerated(uint(criticality), 0, 2, false)
	lenB, _ := per.EncLengthDeterminant(len(value), 0)
	out := append(idB.Value, crB.Value...)
	out = append(out, lenB.Value...)
	out = append(out, value...)
	return out
}

func decIEHeader(pdu *[]byte) (id int, criticality int, length int, err error) {
	idv, err := readU16(pdu)
	if err != nil {
		return
	}
	id = int(idv)
	cr, err := readU8(pdu)
	if err != nil {
		return
	}
	criticality = int(cr)
	l, err := per.DecLengthDeterminant(pdu, 0)
	if err != nil {
		return
	}
	length = l
	return
}

// encContainer wraps a slice of already-encoded IE entries in the
// ProtocolIE-Container count prefix.
func encContainer(ies ...[]byte) []byte {
	count, _ := per.EncInteger(int64(len(ies)), 0, 65535, false)
	out := append([]byte{}, count.Value...)
	for _, ie := range ies {
		out = append(out, ie...)
	}
	return out
}

func decContainerCount(pdu *[]byte) (count int, err error) {
	c, err := readU16(pdu)
	if err != nil {
		return
	}
	count = int(c)
	return
}

// PLMN is a parsed Mobile Country/Network Code pair.
type PLMN struct {
	MCC uint16
	MNC uint16
}

// EncodePLMN renders mcc/mnc as the 3-octet BCD PLMN identity, 3GPP TS
// 24.008 10.5.1.3. A 2-digit MNC is padded with the 0xF filler digit.
func EncodePLMN(mcc, mnc uint16) []byte {
	v := make([]byte, 3)
	v[0] = byte(mcc%1000/100) | byte(mcc%100/10)<<4
	v[1] = byte(mcc % 10)
	if mnc >= 100 {
		v[1] |= byte(mnc%1000/100) << 4
		v[2] = byte(mnc%100/10) | byte(mnc%10)<<4
	} else {
		v[1] |= 0xf0
		v[2] = byte(mnc%100/10) | byte(mnc%10)<<4
	}
	return v
}

// DecodePLMN parses a PLMN identity BCD buffer. Any size other than 3
// octets is a decode error, matching the source adaptor's
// iu_grnc_id_parse() size check.
func DecodePLMN(buf []byte) (mcc, mnc uint16, err error) {
	if len(buf) != 3 {
		err = fmt.Errorf("ranap: invalid PLMN identity size: want 3, got %d", len(buf))
		return
	}
	mcc = uint16(buf[0]&0x0f)*100 + uint16(buf[0]>>4)*10 + uint16(buf[1]&0x0f)
	if buf[1]>>4 == 0xf {
		mnc = uint16(buf[2]&0x0f)*10 + uint16(buf[2]>>4)
	} else {
		mnc = uint16(buf[1]>>4)*100 + uint16(buf[2]&0x0f)*10 + uint16(buf[2]>>4)
	}
	return
}

// LAI is a decoded Location Area Identity: PLMN identity plus LAC. The
// PS-domain RAC is carried in its own IE, not in LAI.
type LAI struct {
	PLMN PLMN
	LAC  uint16
}

// EncodeLAI renders a LAI IE value: PLMN identity (3 octets) + LAC (2 octets).
func EncodeLAI(lai LAI) []byte {
	v := EncodePLMN(lai.PLMN.MCC, lai.PLMN.MNC)
	lac := make([]byte, 2)
	binary.BigEndian.PutUint16(lac, lai.LAC)
	return append(v, lac...)
}

// DecodeLAI parses a LAI IE value.
func DecodeLAI(buf []byte) (lai LAI, err error) {
	if len(buf) != 5 {
		err = fmt.Errorf("ranap: invalid LAI size: want 5, got %d", len(buf))
		return
	}
	mcc, mnc, err := DecodePLMN(buf[:3])
	if err != nil {
		return
	}
	lai.PLMN = PLMN{MCC: mcc, MNC: mnc}
	lai.LAC = binary.BigEndian.Uint16(buf[3:5])
	return
}

// GlobalRNCID is the parsed GlobalRNC-ID IE: PLMN identity plus a 16-bit
// rnc-id, 3GPP TS 25.413 9.3.3.3.
type GlobalRNCID struct {
	PLMN  PLMN
	RNCID uint16
}

// EncodeGlobalRNCID renders a GlobalRNC-ID IE value.
func EncodeGlobalRNCID(id GlobalRNCID) []byte {
	v := EncodePLMN(id.PLMN.MCC, id.PLMN.MNC)
	rnc := make([]byte, 2)
	binary.BigEndian.PutUint16(rnc, id.RNCID)
	return append(v, rnc...)
}

// DecodeGlobalRNCID parses a GlobalRNC-ID IE value.
func DecodeGlobalRNCID(buf []byte) (id GlobalRNCID, err error) {
	if len(buf) != 5 {
		err = fmt.Errorf("ranap: invalid GlobalRNC-ID size: want 5, got %d", len(buf))
		return
	}
	mcc, mnc, err := DecodePLMN(buf[:3])
	if err != nil {
		return
	}
	id.PLMN = PLMN{MCC: mcc, MNC: mnc}
	id.RNCID = binary.BigEndian.Uint16(buf[3:5])
	return
}

// Cause is a RANAP Cause IE: a (group, value) pair, 3GPP TS 25.413 9.2.1.4.
// Only the CauseRadioNetwork group is named here; others pass through as
// raw values.
type Cause struct {
	Group uint8
	Value uint8
}

const (
	CauseGroupRadioNetwork = 0
	CauseGroupTransport    = 1
	CauseGroupNAS          = 2
	CauseGroupProtocol     = 3
	CauseGroupMisc         = 4
)

// Cause values within CauseGroupRadioNetwork actually used by this adaptor.
const (
	CauseRadioNetworkNormal           = 0
	CauseRadioNetworkUserInactivity   = 6
	CauseRadioNetworkReleaseDueToUER  = 47 // "release due to UTRAN generated reason"
)

func encCause(c Cause) []byte { return []byte{c.Group, c.Value} }

func decCause(buf []byte) (c Cause, err error) {
	if len(buf) != 2 {
		err = fmt.Errorf("ranap: invalid Cause size: want 2, got %d", len(buf))
		return
	}
	c = Cause{Group: buf[0], Value: buf[1]}
	return
}

// GTPEndpoint names a GTP-U tunnel endpoint as RANAP signals it in a
// RAB-Assignment-Request transferred-IE: an IPv4 address and a TEID. RANAP
// never moves the user-plane octets itself, only this address/TEID pair.
type GTPEndpoint struct {
	Addr net.IP
	TEID uint32
}

func encGTPEndpoint(ep GTPEndpoint) []byte {
	v4 := ep.Addr.To4()
	if v4 == nil {
		v4 = net.IPv4zero.To4()
	}
	out := append([]byte{}, v4...)
	teid := make([]byte, 4)
	binary.BigEndian.PutUint32(teid, ep.TEID)
	return append(out, teid...)
}

func decGTPEndpoint(buf []byte) (ep GTPEndpoint, err error) {
	if len(buf) != 8 {
		err = fmt.Errorf("ranap: invalid GTP endpoint size: want 8, got %d", len(buf))
		return
	}
	ep.Addr = net.IPv4(buf[0], buf[1], buf[2], buf[3])
	ep.TEID = binary.BigEndian.Uint32(buf[4:8])
	return
}
