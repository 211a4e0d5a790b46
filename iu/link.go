package iu

// Link is the boundary this package depends on for the Link Primitive
// Adaptor (component C1): the handful of SCCP-User-ish operations a
// dialogue needs to send on. *sua.Link satisfies this structurally; tests
// substitute a recording fake so dispatch and façade logic can be
// exercised without a live SCTP association.
type Link interface {
	ID() uint64
	RemoteAddr() string
	ConnectResponse(connID uint32) error
	SendData(connID uint32, payload []byte) error
	Disconnect(connID uint32) error
	SendUnitData(payload []byte) error
}
