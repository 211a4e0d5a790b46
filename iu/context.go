package iu

import (
	"fmt"

	"github.com/google/uuid"
)

// Context is the UE Connection Context (spec.md 3.1, component C2): the
// per-dialogue state the adaptor and its host share across a connection-
// oriented Iu signalling association. It holds a weak reference to its
// Link, resolved by identity at send time and nulled by link-invalidate,
// never locks of its own since the adaptor's dispatch mutex already
// serializes every access (spec.md 6).
type Context struct {
	link    Link
	connID  uint32
	TraceID string

	RNC *RNC // nil until the owning RNC has registered

	// UserData is an opaque slot the host may use to attach its own
	// session state (MSC/SGSN subscriber record) without this package
	// needing to know its shape.
	UserData interface{}
}

// Link returns the association this context is bound to, or nil if it has
// been invalidated.
func (c *Context) Link() Link { return c.link }

// ConnID returns the SCCP-User connection id this context is bound to.
func (c *Context) ConnID() uint32 { return c.connID }

func (c *Context) String() string {
	return fmt.Sprintf("ctx{trace=%s conn=%d link=%v}", c.TraceID, c.connID, c.link)
}

type contextKey struct {
	link   Link
	connID uint32
}

// ContextTable is the UE Dialogue Table (spec.md 3.1, component C2): it
// indexes live Contexts by (link, connection id) and is the only place a
// Context is created, found or removed.
type ContextTable struct {
	byKey map[contextKey]*Context
}

func NewContextTable() *ContextTable {
	return &ContextTable{byKey: make(map[contextKey]*Context)}
}

// Allocate creates and registers a new Context for an inbound N-CONNECT.
func (t *ContextTable) Allocate(link Link, connID uint32) *Context {
	ctx := &Context{link: link, connID: connID, TraceID: uuid.NewString()}
	t.byKey[contextKey{link, connID}] = ctx
	return ctx
}

// Find looks up the Context for (link, connID).
func (t *ContextTable) Find(link Link, connID uint32) (*Context, bool) {
	ctx, ok := t.byKey[contextKey{link, connID}]
	return ctx, ok
}

// Remove deletes ctx from the table, e.g. on N-DISCONNECT, link
// invalidation, or Adaptor.ReleaseContext.
func (t *ContextTable) Remove(ctx *Context) {
	delete(t.byKey, contextKey{ctx.link, ctx.connID})
}

// ByLink returns every Context still bound to link, for link-invalidation
// fan-out (spec.md 5's "RNC unregister" cascading to its UE contexts).
func (t *ContextTable) ByLink(link Link) []*Context {
	var out []*Context
	for k, ctx := range t.byKey {
		if k.link == link {
			out = append(out, ctx)
		}
	}
	return out
}

// Len reports the number of live contexts, for tests and diagnostics.
func (t *ContextTable) Len() int { return len(t.byKey) }
