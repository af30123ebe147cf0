package router

import (
	"fmt"
	"sort"

	"github.com/netsynth/netsynth/bgproute"
	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/routemap"
	"github.com/netsynth/netsynth/topology"
)

type ribInKey struct {
	Neighbor netid.RouterID
	Prefix   netid.Prefix
}

type ribOutKey struct {
	Peer   netid.RouterID
	Prefix netid.Prefix
}

// ribInEntry is a route learned from a neighbor, without a cached IGP
// cost. The cost is always looked up fresh against the router's current
// IGP table at decision time, so an IGP recompute never leaves stale costs
// behind.
type ribInEntry struct {
	Route       bgproute.Route
	SessionType netid.SessionType
}

// Router is the per-router state machine: RIB-IN/RIB-OUT, the BGP decision
// table, the IGP next-hop table, sessions, route-maps, static routes, and
// the undo log.
type Router struct {
	ID netid.RouterID

	igpTable map[netid.RouterID]topology.IGPEntry
	ribIn    map[ribInKey]ribInEntry
	decision map[netid.Prefix]bgproute.RibEntry
	ribOut   map[ribOutKey]bgproute.Route
	sessions map[netid.RouterID]netid.SessionType
	routeMap map[config.Direction]*routemap.RouteMap
	static   map[netid.Prefix]netid.RouterID

	undo []func()
}

// New returns an empty Router with no sessions, routes, or route-maps.
func New(id netid.RouterID) *Router {
	return &Router{
		ID:       id,
		igpTable: make(map[netid.RouterID]topology.IGPEntry),
		ribIn:    make(map[ribInKey]ribInEntry),
		decision: make(map[netid.Prefix]bgproute.RibEntry),
		ribOut:   make(map[ribOutKey]bgproute.Route),
		sessions: make(map[netid.RouterID]netid.SessionType),
		routeMap: make(map[config.Direction]*routemap.RouteMap),
		static:   make(map[netid.Prefix]netid.RouterID),
	}
}

// Clone returns an independent copy sharing no mutable state. The undo log
// is NOT carried over; a cloned router starts fresh.
func (r *Router) Clone() *Router {
	out := New(r.ID)
	for k, v := range r.igpTable {
		out.igpTable[k] = v
	}
	for k, v := range r.ribIn {
		out.ribIn[k] = v
	}
	for k, v := range r.decision {
		out.decision[k] = v
	}
	for k, v := range r.ribOut {
		out.ribOut[k] = v
	}
	for k, v := range r.sessions {
		out.sessions[k] = v
	}
	for k, v := range r.routeMap {
		rmCopy := *v
		rmCopy.Rules = append([]routemap.Rule(nil), v.Rules...)
		out.routeMap[k] = &rmCopy
	}
	for k, v := range r.static {
		out.static[k] = v
	}
	return out
}

// HasSession reports whether r peers with neighbor.
func (r *Router) HasSession(neighbor netid.RouterID) bool {
	_, ok := r.sessions[neighbor]
	return ok
}

// Decision returns the chosen route for prefix, if any.
func (r *Router) Decision(prefix netid.Prefix) (bgproute.RibEntry, bool) {
	e, ok := r.decision[prefix]
	return e, ok
}

// StaticRoute returns the static next-hop for prefix, if one is configured.
func (r *Router) StaticRoute(prefix netid.Prefix) (netid.RouterID, bool) {
	nh, ok := r.static[prefix]
	return nh, ok
}

// FIBNextHop resolves the immediate next router to forward traffic for
// prefix to, applying "static route supersedes BGP next-hop". It returns
// false if there is no route at all.
func (r *Router) FIBNextHop(prefix netid.Prefix) (netid.RouterID, bool) {
	if nh, ok := r.static[prefix]; ok {
		return nh, true
	}
	entry, ok := r.decision[prefix]
	if !ok {
		return 0, false
	}
	if igp, ok := r.igpTable[entry.Route.NextHop]; ok {
		return igp.NextHop, true
	}
	// An external next-hop never appears in the IGP graph; it is reachable
	// exactly when a direct eBGP session to it exists. An iBGP session is
	// no substitute: it implies no physical adjacency.
	if st, ok := r.sessions[entry.Route.NextHop]; ok && st == netid.EBGP {
		return entry.Route.NextHop, true
	}
	return 0, false
}

func (r *Router) pushUndo(f func()) { r.undo = append(r.undo, f) }

// UndoLast pops and runs the most recent undo entry.
func (r *Router) UndoLast() error {
	if len(r.undo) == 0 {
		return fmt.Errorf("%w: router %d", netid.ErrEmptyUndoStack, r.ID)
	}
	n := len(r.undo) - 1
	f := r.undo[n]
	r.undo = r.undo[:n]
	f()
	return nil
}

// ClearUndoStack discards the undo history without altering current state.
func (r *Router) ClearUndoStack() { r.undo = nil }

// UndoDepth reports the number of undo entries recorded.
func (r *Router) UndoDepth() int { return len(r.undo) }

// sortedPeers returns the session peer ids in ascending order.
func (r *Router) sortedPeers() []netid.RouterID {
	peers := make([]netid.RouterID, 0, len(r.sessions))
	for p := range r.sessions {
		peers = append(peers, p)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })
	return peers
}

// sortedRibInPrefixes returns every prefix present in RIB-IN, ascending.
func (r *Router) sortedRibInPrefixes() []netid.Prefix {
	seen := make(map[netid.Prefix]bool)
	for key := range r.ribIn {
		seen[key.Prefix] = true
	}
	prefixes := make([]netid.Prefix, 0, len(seen))
	for p := range seen {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool { return prefixes[i] < prefixes[j] })
	return prefixes
}

func isEligiblePeer(learnedVia, peerType netid.SessionType) bool {
	switch learnedVia {
	case netid.EBGP, netid.IBGPClient:
		return true
	case netid.IBGPPeer:
		return peerType == netid.IBGPClient || peerType == netid.EBGP
	default:
		return false
	}
}

// recomputeDecision re-runs the BGP decision process for prefix against the
// router's current RIB-IN and IGP table, updates r.decision with undo
// support, and returns whether the chosen route changed plus the outbound
// propagation events that follow from it.
//
// The inbound route-map is applied here, at decision time, rather than at
// ingress: RIB-IN holds routes exactly as received, so a route-map change
// mid-migration re-filters everything already learned without any
// soft-reconfiguration machinery.
func (r *Router) recomputeDecision(prefix netid.Prefix) (changed bool, outbound []OutboundEvent) {
	var candidates []bgproute.RibEntry
	inMap := r.routeMap[config.Inbound]
	for key, in := range r.ribIn {
		if key.Prefix != prefix {
			continue
		}
		route := in.Route
		cost := netid.Infinity
		if igp, ok := r.igpTable[route.NextHop]; ok {
			cost = igp.Cost
		}
		if inMap != nil {
			rewritten, newCost, keep := inMap.Evaluate(key.Neighbor, route, cost)
			if !keep {
				continue
			}
			route, cost = rewritten, newCost
		}
		// A route whose next-hop resolves neither through the IGP nor a
		// direct eBGP session cannot carry traffic; it is no candidate.
		if cost.IsInfinite() {
			if st, ok := r.sessions[route.NextHop]; !ok || st != netid.EBGP {
				continue
			}
		}
		candidates = append(candidates, bgproute.RibEntry{
			Route:         route,
			Neighbor:      key.Neighbor,
			SessionType:   in.SessionType,
			IGPCostToNext: cost,
		})
	}

	prevEntry, hadPrev := r.decision[prefix]
	var newEntry bgproute.RibEntry
	haveNew := false
	if idx := bgproute.Best(candidates); idx >= 0 {
		newEntry = candidates[idx]
		haveNew = true
	}

	switch {
	case haveNew && (!hadPrev || !entriesEqual(prevEntry, newEntry)):
		r.decision[prefix] = newEntry
		changed = true
		if hadPrev {
			prev := prevEntry
			r.pushUndo(func() { r.decision[prefix] = prev })
		} else {
			r.pushUndo(func() { delete(r.decision, prefix) })
		}
	case !haveNew && hadPrev:
		delete(r.decision, prefix)
		changed = true
		prev := prevEntry
		r.pushUndo(func() { r.decision[prefix] = prev })
	}

	if changed {
		outbound = r.propagate(prefix)
	}
	return changed, outbound
}

// entriesEqual compares two decision entries structurally; bgproute.Route
// holds a slice (ASPath), so == cannot be used directly.
func entriesEqual(a, b bgproute.RibEntry) bool {
	return a.Neighbor == b.Neighbor && a.SessionType == b.SessionType &&
		a.IGPCostToNext == b.IGPCostToNext && routesIdentical(a.Route, b.Route)
}

func asPathEqual(a, b []netid.ASNumber) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// propagate pushes the current decision for prefix out to eligible peers
// through the outbound route-map, tracking RIB-OUT so unchanged routes are
// not re-sent and routes no longer eligible/permitted are withdrawn. Peers
// are visited in ascending id order so the emitted event sequence is
// deterministic.
func (r *Router) propagate(prefix netid.Prefix) []OutboundEvent {
	entry, haveDecision := r.decision[prefix]
	outMap := r.routeMap[config.Outbound]

	var outbound []OutboundEvent
	for _, peer := range r.sortedPeers() {
		peerType := r.sessions[peer]
		key := ribOutKey{Peer: peer, Prefix: prefix}
		eligible := haveDecision && peer != entry.Neighbor && isEligiblePeer(entry.SessionType, peerType)

		var rewritten bgproute.Route
		keep := false
		if eligible {
			advertised := entry.Route
			// Next-hop-self at the AS border: an eBGP-learned route carried
			// into iBGP gets this router as its next-hop, so internal peers
			// resolve it through the IGP instead of needing the external
			// router in their shortest-path tables. Reflected routes keep
			// the border router's next-hop untouched.
			if entry.SessionType == netid.EBGP && peerType != netid.EBGP {
				advertised.NextHop = r.ID
			}
			cost := netid.Infinity
			if igp, ok := r.igpTable[peer]; ok {
				cost = igp.Cost
			}
			if outMap != nil {
				rewritten, _, keep = outMap.Evaluate(peer, advertised, cost)
			} else {
				rewritten, keep = advertised, true
			}
		}

		prevOut, hadOut := r.ribOut[key]
		if keep {
			if hadOut && routesIdentical(prevOut, rewritten) {
				continue
			}
			r.ribOut[key] = rewritten
			if hadOut {
				prev := prevOut
				r.pushUndo(func() { r.ribOut[key] = prev })
			} else {
				r.pushUndo(func() { delete(r.ribOut, key) })
			}
			outbound = append(outbound, OutboundEvent{To: peer, Event: Event{Kind: EventBGPUpdate, From: r.ID, Route: rewritten, Prefix: prefix}})
			continue
		}

		if hadOut {
			delete(r.ribOut, key)
			prev := prevOut
			r.pushUndo(func() { r.ribOut[key] = prev })
			outbound = append(outbound, OutboundEvent{To: peer, Event: Event{Kind: EventBGPWithdraw, From: r.ID, Prefix: prefix}})
		}
	}
	return outbound
}

func routesIdentical(a, b bgproute.Route) bool {
	return a.Prefix == b.Prefix && a.NextHop == b.NextHop && a.LocalPref == b.LocalPref &&
		a.MED == b.MED && a.Community == b.Community && asPathEqual(a.ASPath, b.ASPath)
}
