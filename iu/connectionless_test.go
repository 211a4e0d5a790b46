package iu

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osmo-iu/iu-adaptor/encoding/ranap"
)

func TestResetReceivesAcknowledge(t *testing.T) {
	a := New(nil)
	link := &fakeLink{id: 1}

	cause := ranap.Cause{Group: ranap.CauseGroupMisc, Value: 0}
	pdu := ranap.EncodeResetRequest(cause)

	a.dispatchConnectionLess(link, pdu)

	require.Len(t, link.unitData, 1)
	msg, err := ranap.Decode(link.unitData[0])
	require.NoError(t, err)
	require.Equal(t, ranap.SuccessfulOutcome, msg.Direction)
	require.Equal(t, ranap.ProcReset, msg.ProcedureCode)
}
