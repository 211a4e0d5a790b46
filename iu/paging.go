package iu

import (
	"go.uber.org/zap"

	"github.com/osmo-iu/iu-adaptor/encoding/ranap"
)

// Domain distinguishes CS (MSC) from PS (SGSN) paging, since the matching
// criteria differ: CS pages by LAC alone, PS additionally narrows by RAC.
type Domain int

const (
	DomainCS Domain = iota
	DomainPS
)

// PagingCriteria is what the Paging Engine (spec.md 3.6, component C6)
// matches RNC records against, mirroring iu_page()/iu_page_cs()/
// iu_page_ps() in the source adaptor.
type PagingCriteria struct {
	IMSI        string
	TMSIOrPTMSI *uint32
	LAC         uint16
	RAC         uint8 // only consulted when Domain == DomainPS
	Domain      Domain
}

// Page sends a PAGING COMMAND as connection-less RANAP to every RNC whose
// registration matches criteria, returning how many RNC records were paged
// (an association shared by several matching records is paged once per
// record). It returns *PagingError when zero RNCs match — the source
// adaptor's iu_page() returning -ENODEV.
func (a *Adaptor) Page(c PagingCriteria) (int, error) {
	rncs := a.rncs.ByLAC(c.LAC, c.RAC, c.Domain == DomainPS)
	if len(rncs) == 0 {
		a.log.Error("no RNC to page",
			zap.String("imsi", c.IMSI), zap.Uint16("lac", c.LAC), zap.Uint8("rac", c.RAC),
			zap.Bool("ps", c.Domain == DomainPS))
		return 0, &PagingError{IMSI: c.IMSI, LAC: c.LAC, RAC: c.RAC, PS: c.Domain == DomainPS}
	}

	pdu := ranap.EncodePagingCommand(c.IMSI, c.TMSIOrPTMSI, c.Domain == DomainPS)
	sent := 0
	for _, rnc := range rncs {
		if rnc.Link == nil {
			continue
		}
		if err := rnc.Link.SendUnitData(pdu); err != nil {
			a.log.Error("paging send failed", zap.Uint16("rnc-id", rnc.GlobalID.RNCID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}
