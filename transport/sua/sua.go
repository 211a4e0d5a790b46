// Package sua implements the Link Primitive Adaptor (spec.md component C1):
// it owns the SCTP associations carried between this core and its RNCs/
// HNB-GWs and turns their octet streams into the small set of SCCP-User
// primitives (N-CONNECT, N-DATA, N-DISCONNECT, N-UNITDATA) the iu package
// dispatches on. It does not implement the full SCCP-User-Adaptation
// protocol (RFC 3868); like the teacher's encoding/per, it is a pragmatic
// stand-in sized to what this adaptor actually needs: a connection id to
// multiplex dialogues onto one association, and a request/indication shape
// for connection-oriented vs connection-less delivery.
package sua

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ishidawataru/sctp"
	"go.uber.org/zap"
)

// PPID is the SCTP Payload Protocol Identifier this transport registers
// its associations under. IANA assigns 4 to SUA; this pragmatic framing
// reuses that value since it plays the same role in the stack.
const PPID = 4

// primitive tags the 1-byte frame header. See the package doc: this is a
// minimal stand-in for real SUA, not its wire format.
type primitive uint8

const (
	primConnectIndication primitive = iota + 1
	primConnectResponse
	primDataIndication
	primDataRequest
	primDisconnectIndication
	primDisconnectRequest
	primUnitDataIndication
	primUnitDataRequest
)

// Link is one SCTP association to an RNC or HNB-GW. The adaptor never
// holds a Link beyond link-invalidation: iu.Context resolves its Link by
// identity at send time and nulls the reference when HandleLinkInvalidated
// fires, matching the weak-reference design spec.md 5 calls for.
type Link struct {
	id   uint64
	conn *sctp.SCTPConn
	wmu  sync.Mutex // serializes writes onto the association
}

var linkSeq uint64

func newLink(conn *sctp.SCTPConn) *Link {
	return &Link{id: atomic.AddUint64(&linkSeq, 1), conn: conn}
}

// ID is a process-local identity token; two *Link values with the same ID
// are the same association.
func (l *Link) ID() uint64 { return l.id }

func (l *Link) RemoteAddr() string {
	if l.conn == nil {
		return "<invalidated>"
	}
	return l.conn.RemoteAddr().String()
}

func (l *Link) writeFrame(p primitive, connID uint32, payload []byte) error {
	l.wmu.Lock()
	defer l.wmu.Unlock()
	if l.conn == nil {
		return fmt.Errorf("sua: link %d already invalidated", l.id)
	}
	frame := make([]byte, 9+len(payload))
	frame[0] = byte(p)
	binary.BigEndian.PutUint32(frame[1:5], connID)
	binary.BigEndian.PutUint32(frame[5:9], uint32(len(payload)))
	copy(frame[9:], payload)
	info := &sctp.SndRcvInfo{Stream: 0, PPID: PPID}
	_, err := l.conn.SCTPWrite(frame, info)
	if err != nil {
		return fmt.Errorf("sua: write link %d: %w", l.id, err)
	}
	return nil
}

// ConnectResponse sends an N-CONNECT.response accepting connID.
func (l *Link) ConnectResponse(connID uint32) error {
	return l.writeFrame(primConnectResponse, connID, nil)
}

// SendData sends an N-DATA.request carrying payload on connID.
func (l *Link) SendData(connID uint32, payload []byte) error {
	return l.writeFrame(primDataRequest, connID, payload)
}

// Disconnect sends an N-DISCONNECT.request tearing down connID.
func (l *Link) Disconnect(connID uint32) error {
	return l.writeFrame(primDisconnectRequest, connID, nil)
}

// SendUnitData sends an N-UNITDATA.request: connection-less delivery, no
// dialogue id.
func (l *Link) SendUnitData(payload []byte) error {
	return l.writeFrame(primUnitDataRequest, 0, payload)
}

// Handler receives the primitives a Link's read loop decodes. Calls arrive
// on whatever goroutine is reading that Link's association; implementors
// (iu.Adaptor) are expected to serialize them into the single-threaded core
// behind one dispatch mutex, per spec.md 6.
type Handler interface {
	HandleConnectIndication(link *Link, connID uint32, payload []byte)
	HandleDataIndication(link *Link, connID uint32, payload []byte)
	HandleDisconnectIndication(link *Link, connID uint32, payload []byte)
	HandleUnitData(link *Link, payload []byte)
	HandleLinkInvalidated(link *Link)
}

// Server accepts inbound SCTP associations from RNCs/HNB-GWs and feeds
// their primitives to a Handler.
type Server struct {
	handler Handler
	log     *zap.Logger

	mu       sync.Mutex
	listener *sctp.SCTPListener
}

func NewServer(handler Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{handler: handler, log: log.Named("sua")}
}

// ListenAndServe binds addr:port and accepts associations until Close is
// called or the listener errors. Each accepted association gets its own
// read goroutine, mirroring the teacher's per-dial goroutine+channel
// pattern in cmd/gnbsim_sctp.go.
func (s *Server) ListenAndServe(addr net.IP, port int) error {
	sctpAddr := &sctp.SCTPAddr{IPAddrs: []net.IPAddr{{IP: addr}}, Port: port}
	ln, err := sctp.ListenSCTP("sctp", sctpAddr)
	if err != nil {
		return fmt.Errorf("sua: listen %s:%d: %w", addr, port, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.log.Info("listening", zap.String("addr", addr.String()), zap.Int("port", port))
	for {
		conn, err := ln.AcceptSCTP()
		if err != nil {
			return fmt.Errorf("sua: accept: %w", err)
		}
		conn.SubscribeEvents(sctp.SCTP_EVENT_DATA_IO)
		link := newLink(conn)
		s.log.Info("association accepted", zap.Uint64("link", link.id), zap.String("remote", link.RemoteAddr()))
		go s.serve(link)
	}
}

// Close releases the listener. Associations already accepted are not
// closed: their read loops keep running until a read on the association
// fails, and only then invalidate their Link.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) serve(link *Link) {
	defer func() {
		link.wmu.Lock()
		link.conn = nil
		link.wmu.Unlock()
		s.handler.HandleLinkInvalidated(link)
	}()

	buf := make([]byte, 16384)
	for {
		link.conn.SetReadDeadline(time.Time{})
		n, _, err := link.conn.SCTPRead(buf)
		if err != nil {
			s.log.Info("association closed", zap.Uint64("link", link.id), zap.Error(err))
			return
		}
		s.dispatch(link, append([]byte{}, buf[:n]...))
	}
}

func (s *Server) dispatch(link *Link, frame []byte) {
	if len(frame) < 9 {
		s.log.Warn("short frame dropped", zap.Uint64("link", link.id), zap.Int("len", len(frame)))
		return
	}
	p := primitive(frame[0])
	connID := binary.BigEndian.Uint32(frame[1:5])
	length := binary.BigEndian.Uint32(frame[5:9])
	if uint32(len(frame)-9) < length {
		s.log.Warn("truncated frame dropped", zap.Uint64("link", link.id))
		return
	}
	payload := frame[9 : 9+length]

	switch p {
	case primConnectIndication:
		s.handler.HandleConnectIndication(link, connID, payload)
	case primDataIndication:
		s.handler.HandleDataIndication(link, connID, payload)
	case primDisconnectIndication:
		s.handler.HandleDisconnectIndication(link, connID, payload)
	case primUnitDataIndication:
		s.handler.HandleUnitData(link, payload)
	default:
		s.log.Warn("unexpected primitive from peer", zap.Uint8("primitive", uint8(p)))
	}
}
