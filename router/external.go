package router

import (
	"fmt"
	"sort"

	"github.com/netsynth/netsynth/bgproute"
	"github.com/netsynth/netsynth/netid"
)

// ExternalRouter models an external AS peer: it owns an AS number, a set
// of eBGP neighbors, and currently advertised routes (at most one per
// prefix). External routers never run the BGP decision process; they only
// inject or withdraw advertisements.
type ExternalRouter struct {
	ID         netid.RouterID
	AS         netid.ASNumber
	neighbors  map[netid.RouterID]bool
	advertised map[netid.Prefix]bgproute.Route

	undo []func()
}

// NewExternal returns an ExternalRouter with no neighbors or advertisements.
func NewExternal(id netid.RouterID, as netid.ASNumber) *ExternalRouter {
	return &ExternalRouter{
		ID:         id,
		AS:         as,
		neighbors:  make(map[netid.RouterID]bool),
		advertised: make(map[netid.Prefix]bgproute.Route),
	}
}

// Clone returns an independent copy sharing no mutable state.
func (e *ExternalRouter) Clone() *ExternalRouter {
	out := NewExternal(e.ID, e.AS)
	for k, v := range e.neighbors {
		out.neighbors[k] = v
	}
	for k, v := range e.advertised {
		out.advertised[k] = v
	}
	return out
}

func (e *ExternalRouter) pushUndo(f func()) { e.undo = append(e.undo, f) }

// UndoLast pops and runs the most recent undo entry.
func (e *ExternalRouter) UndoLast() error {
	if len(e.undo) == 0 {
		return fmt.Errorf("%w: external router %d", netid.ErrEmptyUndoStack, e.ID)
	}
	n := len(e.undo) - 1
	f := e.undo[n]
	e.undo = e.undo[:n]
	f()
	return nil
}

// ClearUndoStack discards undo history without altering current state.
func (e *ExternalRouter) ClearUndoStack() { e.undo = nil }

// UndoDepth reports the number of undo entries recorded.
func (e *ExternalRouter) UndoDepth() int { return len(e.undo) }

// AddNeighbor registers a new eBGP neighbor.
func (e *ExternalRouter) AddNeighbor(id netid.RouterID) {
	if e.neighbors[id] {
		return
	}
	e.neighbors[id] = true
	e.pushUndo(func() { delete(e.neighbors, id) })
}

// RemoveNeighbor deregisters an eBGP neighbor; future Advertise/Withdraw
// calls stop fanning out to it.
func (e *ExternalRouter) RemoveNeighbor(id netid.RouterID) {
	if !e.neighbors[id] {
		return
	}
	delete(e.neighbors, id)
	e.pushUndo(func() { e.neighbors[id] = true })
}

// Neighbors returns the current eBGP neighbor set in ascending order.
func (e *ExternalRouter) Neighbors() []netid.RouterID {
	out := make([]netid.RouterID, 0, len(e.neighbors))
	for n := range e.neighbors {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AdvertiseExisting re-emits every currently advertised route towards a
// single neighbor, used when a new eBGP session comes up after the
// external already advertised its routes. It records no undo entry: the
// advertisement state itself does not change.
func (e *ExternalRouter) AdvertiseExisting(neighbor netid.RouterID) []OutboundEvent {
	prefixes := make([]netid.Prefix, 0, len(e.advertised))
	for p := range e.advertised {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool { return prefixes[i] < prefixes[j] })

	out := make([]OutboundEvent, 0, len(prefixes))
	for _, p := range prefixes {
		route := e.advertised[p]
		out = append(out, OutboundEvent{To: neighbor, Event: Event{Kind: EventBGPUpdate, From: e.ID, Route: route, Prefix: p}})
	}
	return out
}

// AdvertisedRoute returns the route currently advertised for prefix.
func (e *ExternalRouter) AdvertisedRoute(prefix netid.Prefix) (bgproute.Route, bool) {
	r, ok := e.advertised[prefix]
	return r, ok
}

// Advertise records route as the advertisement for its prefix and returns
// the outbound BGP-update events to fan out to every eBGP neighbor.
func (e *ExternalRouter) Advertise(route bgproute.Route) []OutboundEvent {
	prev, had := e.advertised[route.Prefix]
	e.advertised[route.Prefix] = route
	if had {
		prevCopy := prev
		r := route.Prefix
		e.pushUndo(func() { e.advertised[r] = prevCopy })
	} else {
		r := route.Prefix
		e.pushUndo(func() { delete(e.advertised, r) })
	}

	out := make([]OutboundEvent, 0, len(e.neighbors))
	for _, n := range e.Neighbors() {
		out = append(out, OutboundEvent{To: n, Event: Event{Kind: EventBGPUpdate, From: e.ID, Route: route, Prefix: route.Prefix}})
	}
	return out
}

// Withdraw removes the advertisement for prefix (no-op if none exists) and
// returns the outbound BGP-withdraw events.
func (e *ExternalRouter) Withdraw(prefix netid.Prefix) []OutboundEvent {
	prev, had := e.advertised[prefix]
	if !had {
		return nil
	}
	delete(e.advertised, prefix)
	prevCopy := prev
	e.pushUndo(func() { e.advertised[prefix] = prevCopy })

	out := make([]OutboundEvent, 0, len(e.neighbors))
	for _, n := range e.Neighbors() {
		out = append(out, OutboundEvent{To: n, Event: Event{Kind: EventBGPWithdraw, From: e.ID, Prefix: prefix}})
	}
	return out
}
