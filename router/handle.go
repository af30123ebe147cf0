package router

import (
	"fmt"
	"sort"

	"github.com/netsynth/netsynth/bgproute"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/routemap"
)

// HandleEvent reacts to an inbound BGP update/withdraw, an IGP
// recomputation trigger, or a local configuration change, and reports
// whether the router's forwarding decisions changed plus any outbound
// events neighbors need to see.
func (r *Router) HandleEvent(e Event) (forwardingChanged bool, outbound []OutboundEvent, err error) {
	switch e.Kind {
	case EventBGPUpdate:
		return r.handleUpdate(e)
	case EventBGPWithdraw:
		return r.handleWithdraw(e)
	case EventIGPRecompute:
		return r.handleIGPRecompute(e)
	case EventLocalChange:
		out, err := r.ApplyLocalChange(e.Change)
		return len(out) > 0, out, err
	default:
		return false, nil, fmt.Errorf("%w: unknown event kind %v", netid.ErrInvalidEvent, e.Kind)
	}
}

func (r *Router) handleUpdate(e Event) (bool, []OutboundEvent, error) {
	if !r.HasSession(e.From) {
		return false, nil, fmt.Errorf("%w: router %d has no session with %d", netid.ErrInvalidEvent, r.ID, e.From)
	}
	sessionType := r.sessions[e.From]

	// RIB-IN stores the route exactly as received; the inbound route-map is
	// applied by recomputeDecision, so later route-map changes re-filter
	// already-learned routes.
	route := e.Route
	key := ribInKey{Neighbor: e.From, Prefix: route.Prefix}
	prev, had := r.ribIn[key]
	r.ribIn[key] = ribInEntry{Route: route, SessionType: sessionType}
	if had {
		prevCopy := prev
		r.pushUndo(func() { r.ribIn[key] = prevCopy })
	} else {
		r.pushUndo(func() { delete(r.ribIn, key) })
	}

	changed, out := r.recomputeDecision(route.Prefix)
	return changed, out, nil
}

func (r *Router) handleWithdraw(e Event) (bool, []OutboundEvent, error) {
	if !r.HasSession(e.From) {
		return false, nil, fmt.Errorf("%w: router %d has no session with %d", netid.ErrInvalidEvent, r.ID, e.From)
	}
	key := ribInKey{Neighbor: e.From, Prefix: e.Prefix}
	prev, had := r.ribIn[key]
	if !had {
		return false, nil, nil
	}
	delete(r.ribIn, key)
	prevCopy := prev
	r.pushUndo(func() { r.ribIn[key] = prevCopy })

	changed, out := r.recomputeDecision(e.Prefix)
	return changed, out, nil
}

func (r *Router) handleIGPRecompute(e Event) (bool, []OutboundEvent, error) {
	prevTable := r.igpTable
	r.igpTable = e.IGPTable
	r.pushUndo(func() { r.igpTable = prevTable })

	changed := false
	var outbound []OutboundEvent
	for _, p := range r.sortedRibInPrefixes() {
		c, out := r.recomputeDecision(p)
		if c {
			changed = true
			outbound = append(outbound, out...)
		}
	}
	return changed, outbound, nil
}

// ApplyLocalChange applies a local configuration mutation: an IGP weight
// update on an incident link, a session add/remove, a route-map
// add/remove/update, or a static-route add/remove.
func (r *Router) ApplyLocalChange(change LocalChange) ([]OutboundEvent, error) {
	switch change.Kind {
	case ChangeIGPWeight:
		_, out, _ := r.handleIGPRecompute(Event{Kind: EventIGPRecompute, IGPTable: change.IGPTable})
		return out, nil

	case ChangeSession:
		return r.applySessionChange(change)

	case ChangeRouteMap:
		return r.applyRouteMapChange(change)

	case ChangeStaticRoute:
		return r.applyStaticRouteChange(change)

	default:
		return nil, fmt.Errorf("%w: unknown local-change kind %v", netid.ErrInvalidEvent, change.Kind)
	}
}

func (r *Router) applySessionChange(change LocalChange) ([]OutboundEvent, error) {
	if change.Add {
		if r.HasSession(change.Neighbor) {
			return nil, fmt.Errorf("%w: router %d already peers with %d", netid.ErrDuplicateSession, r.ID, change.Neighbor)
		}
		r.sessions[change.Neighbor] = change.Type
		r.pushUndo(func() { delete(r.sessions, change.Neighbor) })

		// Send the full RIB-OUT to the new peer. The decisions themselves
		// are unaffected by a new session, so propagate directly: it diffs
		// against RIB-OUT, and only the new peer has anything missing.
		var outbound []OutboundEvent
		prefixes := make([]netid.Prefix, 0, len(r.decision))
		for prefix := range r.decision {
			prefixes = append(prefixes, prefix)
		}
		sort.Slice(prefixes, func(i, j int) bool { return prefixes[i] < prefixes[j] })
		for _, prefix := range prefixes {
			outbound = append(outbound, r.propagate(prefix)...)
		}
		return outbound, nil
	}

	if !r.HasSession(change.Neighbor) {
		return nil, fmt.Errorf("%w: router %d has no session with %d", netid.ErrUnknownNeighbor, r.ID, change.Neighbor)
	}
	prevType := r.sessions[change.Neighbor]
	delete(r.sessions, change.Neighbor)
	r.pushUndo(func() { r.sessions[change.Neighbor] = prevType })

	// Withdraw anything we had advertised to this peer, and anything we had
	// learned from it (which may change other peers' best routes too).
	var outbound []OutboundEvent
	affected := make(map[netid.Prefix]bool)
	for key := range r.ribOut {
		if key.Peer == change.Neighbor {
			affected[key.Prefix] = true
		}
	}
	for key := range r.ribIn {
		if key.Neighbor == change.Neighbor {
			affected[key.Prefix] = true
			prev := r.ribIn[key]
			delete(r.ribIn, key)
			prevCopy := prev
			r.pushUndo(func() { r.ribIn[key] = prevCopy })
		}
	}
	// Drop RIB-OUT entries towards the departed peer now, so a later
	// re-add of the session starts from a clean slate instead of diffing
	// against stale state. No withdraw is emitted; there is no session
	// left to carry it.
	for key := range r.ribOut {
		if key.Peer != change.Neighbor {
			continue
		}
		prev := r.ribOut[key]
		delete(r.ribOut, key)
		keyCopy, prevCopy := key, prev
		r.pushUndo(func() { r.ribOut[keyCopy] = prevCopy })
	}
	prefixes := make([]netid.Prefix, 0, len(affected))
	for p := range affected {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool { return prefixes[i] < prefixes[j] })
	for _, p := range prefixes {
		_, out := r.recomputeDecision(p)
		outbound = append(outbound, out...)
	}
	return outbound, nil
}

func (r *Router) applyRouteMapChange(change LocalChange) ([]OutboundEvent, error) {
	rm, ok := r.routeMap[change.Dir]
	if !ok {
		rm = routemap.NewRouteMap()
		r.routeMap[change.Dir] = rm
		r.pushUndo(func() { delete(r.routeMap, change.Dir) })
	}

	var prevRule *routemap.Rule
	for i, existing := range rm.Rules {
		if existing.Order == change.Rule.Order {
			rc := rm.Rules[i]
			prevRule = &rc
			break
		}
	}

	if prevRule != nil {
		rm.RemoveOrder(change.Rule.Order)
		removed := *prevRule
		r.pushUndo(func() { rm.AddRule(removed) })
	}

	// A change.Rule with a non-empty match/set list (or a non-Allow action)
	// is an add/update; an order-only Rule (zero value besides Order) is a
	// pure removal.
	if change.Rule.Action != routemap.Allow || len(change.Rule.Matches) > 0 || len(change.Rule.Sets) > 0 {
		rm.AddRule(change.Rule)
		added := change.Rule
		r.pushUndo(func() { rm.RemoveOrder(added.Order) })
	} else if prevRule == nil {
		return nil, fmt.Errorf("%w: no route-map rule at order %d on router %d direction %v",
			netid.ErrModifierMismatch, change.Rule.Order, r.ID, change.Dir)
	}

	// Route-map changes can alter both which routes are accepted (inbound,
	// re-evaluated at decision time) and which are exported (outbound).
	// Re-decide every known prefix, then re-propagate: propagate diffs
	// against RIB-OUT, so unchanged exports stay quiet while newly
	// permitted/denied ones update or withdraw.
	var outbound []OutboundEvent
	for _, p := range r.sortedRibInPrefixes() {
		changed, out := r.recomputeDecision(p)
		outbound = append(outbound, out...)
		if !changed {
			outbound = append(outbound, r.propagate(p)...)
		}
	}
	return outbound, nil
}

func (r *Router) applyStaticRouteChange(change LocalChange) ([]OutboundEvent, error) {
	if change.Add {
		if _, exists := r.static[change.Prefix]; exists {
			return nil, fmt.Errorf("%w: router %d already has a static route for prefix %d",
				netid.ErrStaticRouteConflict, r.ID, change.Prefix)
		}
		r.static[change.Prefix] = change.NextHop
		r.pushUndo(func() { delete(r.static, change.Prefix) })
	} else {
		prev, exists := r.static[change.Prefix]
		if !exists {
			return nil, fmt.Errorf("%w: router %d has no static route for prefix %d",
				netid.ErrStaticRouteConflict, r.ID, change.Prefix)
		}
		delete(r.static, change.Prefix)
		r.pushUndo(func() { r.static[change.Prefix] = prev })
	}
	// Static routes affect FIBNextHop, not BGP decision, so forwarding can
	// change without any RIB-IN/decision change or outbound event; the
	// network simulator's forwarding view reads FIBNextHop on demand, so it
	// sees the change directly.
	return nil, nil
}

// RibInSnapshot exposes the router's current RIB-IN for a prefix, sorted by
// neighbor, for diagnostics and tests.
func (r *Router) RibInSnapshot(prefix netid.Prefix) []bgproute.RibEntry {
	var out []bgproute.RibEntry
	for key, in := range r.ribIn {
		if key.Prefix != prefix {
			continue
		}
		cost := netid.Infinity
		if igp, ok := r.igpTable[in.Route.NextHop]; ok {
			cost = igp.Cost
		}
		out = append(out, bgproute.RibEntry{Route: in.Route, Neighbor: key.Neighbor, SessionType: in.SessionType, IGPCostToNext: cost})
	}
	return out
}
