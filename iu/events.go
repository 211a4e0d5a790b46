package iu

import "github.com/osmo-iu/iu-adaptor/encoding/ranap"

// EventKind enumerates the UE-event notifications delivered north through
// the Event Fan-out (spec.md 3.7, component C8).
type EventKind int

const (
	// EventLinkInvalidated fires once per Context when its owning
	// association is torn down, whether by peer disconnect or local
	// link-invalidate fan-out.
	EventLinkInvalidated EventKind = iota
	// EventSecurityModeComplete fires when the RNC confirms a Security
	// Mode Command this adaptor sent.
	EventSecurityModeComplete
	// EventIuRelease fires when an Iu-ReleaseComplete closes out a
	// dialogue this adaptor requested release of.
	EventIuRelease
	// EventRABAssign fires once per RAB-Assignment-Response entry, per
	// spec.md's resolution of the first-entry-only open question.
	EventRABAssign
	// EventErrorIndication fires when the RNC sends a connection-
	// oriented ERROR INDICATION the host should be told about.
	EventErrorIndication
)

func (k EventKind) String() string {
	switch k {
	case EventLinkInvalidated:
		return "LINK-INVALIDATED"
	case EventSecurityModeComplete:
		return "SECURITY-MODE-COMPLETE"
	case EventIuRelease:
		return "IU-RELEASE"
	case EventRABAssign:
		return "RAB-ASSIGN"
	case EventErrorIndication:
		return "ERROR-INDICATION"
	default:
		return "UNKNOWN"
	}
}

// UEEvent is one notification the Upper-Layer Façade (C7) delivers to its
// host via the UEEventFunc callback.
type UEEvent struct {
	Context *Context
	Kind    EventKind

	// RAB is populated for EventRABAssign: one call per setup/modified
	// entry, never a batch.
	RAB *ranap.RABSetupItem

	// Cause is populated for EventErrorIndication when the peer supplied
	// one.
	Cause *ranap.Cause
}

// RAId is a Routing Area Identity: a LAI plus the PS-domain RAC, the
// LAC/RAC pair RNC records carry and the paging engine matches on.
type RAId struct {
	PLMN ranap.PLMN
	LAC  uint16
	RAC  *uint8
}

// NASReceiveFunc delivers an opaque uplink NAS PDU to the host, alongside
// the routing-area context it arrived on (spec.md 3.1's "core does not
// decode NAS semantics").
type NASReceiveFunc func(ctx *Context, nas []byte, ra RAId)

// UEEventFunc delivers a UE-lifecycle notification to the host.
type UEEventFunc func(evt UEEvent)
