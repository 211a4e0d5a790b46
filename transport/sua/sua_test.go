package sua

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	connectInd    []uint32
	dataInd       [][]byte
	disconnectInd []uint32
	unitData      [][]byte
	invalidated   int
}

func (f *fakeHandler) HandleConnectIndication(link *Link, connID uint32, payload []byte) {
	f.connectInd = append(f.connectInd, connID)
}

func (f *fakeHandler) HandleDataIndication(link *Link, connID uint32, payload []byte) {
	f.dataInd = append(f.dataInd, payload)
}

func (f *fakeHandler) HandleDisconnectIndication(link *Link, connID uint32, payload []byte) {
	f.disconnectInd = append(f.disconnectInd, connID)
}

func (f *fakeHandler) HandleUnitData(link *Link, payload []byte) {
	f.unitData = append(f.unitData, payload)
}

func (f *fakeHandler) HandleLinkInvalidated(link *Link) {
	f.invalidated++
}

func frame(p primitive, connID uint32, payload []byte) []byte {
	out := make([]byte, 9+len(payload))
	out[0] = byte(p)
	binary.BigEndian.PutUint32(out[1:5], connID)
	binary.BigEndian.PutUint32(out[5:9], uint32(len(payload)))
	copy(out[9:], payload)
	return out
}

func TestDispatchRoutesByPrimitive(t *testing.T) {
	h := &fakeHandler{}
	s := NewServer(h, nil)
	link := newLink(nil)

	s.dispatch(link, frame(primConnectIndication, 7, []byte("hello")))
	require.Equal(t, []uint32{7}, h.connectInd)

	s.dispatch(link, frame(primDataIndication, 7, []byte("world")))
	require.Equal(t, [][]byte{[]byte("world")}, h.dataInd)

	s.dispatch(link, frame(primDisconnectIndication, 7, nil))
	require.Equal(t, []uint32{7}, h.disconnectInd)

	s.dispatch(link, frame(primUnitDataIndication, 0, []byte("page")))
	require.Equal(t, [][]byte{[]byte("page")}, h.unitData)
}

func TestDispatchDropsShortAndTruncatedFrames(t *testing.T) {
	h := &fakeHandler{}
	s := NewServer(h, nil)
	link := newLink(nil)

	s.dispatch(link, []byte{1, 2, 3})
	require.Empty(t, h.connectInd)

	bad := frame(primDataIndication, 1, []byte("short"))
	binary.BigEndian.PutUint32(bad[5:9], 99)
	s.dispatch(link, bad)
	require.Empty(t, h.dataInd)
}

func TestDispatchIgnoresUnknownPrimitive(t *testing.T) {
	h := &fakeHandler{}
	s := NewServer(h, nil)
	link := newLink(nil)

	s.dispatch(link, frame(primitive(0xEE), 1, nil))
	require.Empty(t, h.connectInd)
	require.Empty(t, h.dataInd)
	require.Empty(t, h.disconnectInd)
	require.Empty(t, h.unitData)
}

func TestLinkWriteFrameAfterInvalidation(t *testing.T) {
	link := newLink(nil)
	err := link.SendData(1, []byte("x"))
	require.Error(t, err)
}
