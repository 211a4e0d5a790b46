package iu

import (
	"sync"

	"github.com/osmo-iu/iu-adaptor/encoding/ranap"
)

// RNC is the RNC Record (spec.md 3.2, component C3): everything the
// adaptor remembers about one radio network controller (or HNB-GW
// masquerading as one), keyed by the rnc-id of its GlobalRNC-ID.
type RNC struct {
	GlobalID ranap.GlobalRNCID
	LAC      uint16
	RAC      *uint8 // nil unless a PS-domain InitialUE registered it
	Link     Link   // not unique: an HNB-GW fronting several cells registers multiple RNC records on one association, enabling multiple RNC records to share one Link
}

// RNCRegistry is the RNC Registry (component C3): the adaptor's single
// source of truth for which association serves which LAC/RAC, used by the
// connection-oriented dispatcher to learn new RNCs and by the paging
// engine to fan a page out to the right associations.
type RNCRegistry struct {
	mu   sync.Mutex // the registry is read from the paging path too, which a host may call off the core's cooperative loop
	byID map[uint16]*RNC
}

func NewRNCRegistry() *RNCRegistry {
	return &RNCRegistry{byID: make(map[uint16]*RNC)}
}

// Register records or refreshes the RNC for id, logging (at the call
// site) any LAC/RAC/link mismatch against a prior registration — the
// source adaptor's iu_rnc_alloc() NOTICE. Register always takes the given
// values as authoritative; it returns the prior record (nil if none) so
// the caller can detect and log the mismatch.
func (r *RNCRegistry) Register(id ranap.GlobalRNCID, lac uint16, rac *uint8, link Link) (prev *RNC) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev = r.byID[id.RNCID]
	r.byID[id.RNCID] = &RNC{GlobalID: id, LAC: lac, RAC: rac, Link: link}
	return prev
}

// Find looks up the RNC record for a GlobalRNC-ID's rnc-id.
func (r *RNCRegistry) Find(rncID uint16) (*RNC, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rnc, ok := r.byID[rncID]
	return rnc, ok
}

// ByLAC returns every RNC registered under lac. When ps is true, only RNCs
// that have also registered a RAC are matched (component C6's paging
// criteria).
func (r *RNCRegistry) ByLAC(lac uint16, rac uint8, ps bool) []*RNC {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*RNC
	for _, rnc := range r.byID {
		if rnc.LAC != lac {
			continue
		}
		if ps {
			if rnc.RAC == nil || *rnc.RAC != rac {
				continue
			}
		}
		out = append(out, rnc)
	}
	return out
}

// InvalidateLink removes every RNC record pointing at link, the source
// adaptor's iu_link_del(). Returns the removed records so the caller can
// fan link-invalidation events out to their dependent UE contexts.
func (r *RNCRegistry) InvalidateLink(link Link) []*RNC {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []*RNC
	for id, rnc := range r.byID {
		if rnc.Link == link {
			removed = append(removed, rnc)
			delete(r.byID, id)
		}
	}
	return removed
}

// Snapshot returns a point-in-time copy of every registered RNC, for
// diagnostics/host introspection (SPEC_FULL.md's resolution of the
// "no read-only view of the registry" open question).
func (r *RNCRegistry) Snapshot() []RNC {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RNC, 0, len(r.byID))
	for _, rnc := range r.byID {
		out = append(out, *rnc)
	}
	return out
}
