package iu

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osmo-iu/iu-adaptor/encoding/ranap"
)

func TestRNCRegistryRegisterFind(t *testing.T) {
	reg := NewRNCRegistry()
	link := &fakeLink{id: 1}
	grnc := ranap.GlobalRNCID{PLMN: ranap.PLMN{MCC: 262, MNC: 2}, RNCID: 7}

	prev := reg.Register(grnc, 0x1234, nil, link)
	require.Nil(t, prev)

	rnc, ok := reg.Find(7)
	require.True(t, ok)
	require.Equal(t, uint16(0x1234), rnc.LAC)
	require.Nil(t, rnc.RAC)
}

func TestRNCRegistryRegisterMismatchDetected(t *testing.T) {
	reg := NewRNCRegistry()
	link := &fakeLink{id: 1}
	grnc := ranap.GlobalRNCID{PLMN: ranap.PLMN{MCC: 262, MNC: 2}, RNCID: 7}

	reg.Register(grnc, 0x1234, nil, link)
	prev := reg.Register(grnc, 0x5678, nil, link)
	require.NotNil(t, prev)
	require.Equal(t, uint16(0x1234), prev.LAC)
}

func TestRNCRegistryByLACPSMatchesRAC(t *testing.T) {
	reg := NewRNCRegistry()
	link := &fakeLink{id: 1}
	rac := uint8(0x56)
	grnc := ranap.GlobalRNCID{PLMN: ranap.PLMN{MCC: 262, MNC: 2}, RNCID: 7}
	reg.Register(grnc, 0x1234, &rac, link)

	require.Len(t, reg.ByLAC(0x1234, 0x56, true), 1)
	require.Len(t, reg.ByLAC(0x1234, 0x99, true), 0)
	require.Len(t, reg.ByLAC(0x1234, 0, false), 1)
}

func TestRNCRegistryInvalidateLink(t *testing.T) {
	reg := NewRNCRegistry()
	link := &fakeLink{id: 1}
	grnc := ranap.GlobalRNCID{PLMN: ranap.PLMN{MCC: 262, MNC: 2}, RNCID: 7}
	reg.Register(grnc, 0x1234, nil, link)

	removed := reg.InvalidateLink(link)
	require.Len(t, removed, 1)
	_, ok := reg.Find(7)
	require.False(t, ok)
	require.Empty(t, reg.Snapshot())
}
