package netsim

import (
	"fmt"

	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/routemap"
	"github.com/netsynth/netsynth/router"
)

// applyAtomInsert translates a single atom insertion into device-level
// local changes and/or graph mutations. For link-weight atoms it returns a
// revert closure that restores the previous edge state; a non-nil revert
// also signals that IGP tables must be recomputed.
func (n *Network) applyAtomInsert(a config.Atom) (revertGraph func(), err error) {
	switch v := a.(type) {
	case config.LinkWeight:
		prev := n.graph.LinkWeight(v.Source, v.Target)
		n.graph.SetLinkWeight(v.Source, v.Target, v.Weight)
		return func() {
			if prev.IsInfinite() {
				n.graph.RemoveLink(v.Source, v.Target)
			} else {
				n.graph.SetLinkWeight(v.Source, v.Target, prev)
			}
		}, nil
	case config.Session:
		r, ok := n.routers[v.Router]
		if !ok {
			return nil, fmt.Errorf("%w: %d", netid.ErrDeviceNotFound, v.Router)
		}
		out, err := r.ApplyLocalChange(router.LocalChange{Kind: router.ChangeSession, Neighbor: v.Neighbor, Type: v.Type, Add: true})
		if err != nil {
			return nil, err
		}
		n.enqueue(out)
		// A session atom configures both endpoints. Both sides are
		// installed before the queue drains, so the adjacency exists by the
		// time either side's updates are delivered.
		if nbr, ok := n.routers[v.Neighbor]; ok {
			out, err := nbr.ApplyLocalChange(router.LocalChange{Kind: router.ChangeSession, Neighbor: v.Router, Type: reciprocalSession(v.Type), Add: true})
			if err != nil {
				return nil, err
			}
			n.enqueue(out)
		} else if ext, ok := n.externals[v.Neighbor]; ok {
			ext.AddNeighbor(v.Router)
			// Routes the external already advertises must reach the newly
			// sessioned router too.
			n.enqueue(ext.AdvertiseExisting(v.Router))
		} else {
			return nil, fmt.Errorf("%w: %d", netid.ErrDeviceNotFound, v.Neighbor)
		}
		return nil, nil
	case config.RouteMapRule:
		r, ok := n.routers[v.Router]
		if !ok {
			return nil, fmt.Errorf("%w: %d", netid.ErrDeviceNotFound, v.Router)
		}
		out, err := r.ApplyLocalChange(router.LocalChange{Kind: router.ChangeRouteMap, Dir: v.Dir, Rule: v.AsRule()})
		if err != nil {
			return nil, err
		}
		n.enqueue(out)
		return nil, nil
	case config.StaticRoute:
		r, ok := n.routers[v.Router]
		if !ok {
			return nil, fmt.Errorf("%w: %d", netid.ErrDeviceNotFound, v.Router)
		}
		out, err := r.ApplyLocalChange(router.LocalChange{Kind: router.ChangeStaticRoute, Prefix: v.Prefix, NextHop: v.NextHop, Add: true})
		if err != nil {
			return nil, err
		}
		n.enqueue(out)
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized atom type %T", netid.ErrModifierMismatch, a)
	}
}

func (n *Network) applyAtomRemove(a config.Atom) (revertGraph func(), err error) {
	switch v := a.(type) {
	case config.LinkWeight:
		prev := n.graph.LinkWeight(v.Source, v.Target)
		n.graph.RemoveLink(v.Source, v.Target)
		return func() {
			if !prev.IsInfinite() {
				n.graph.SetLinkWeight(v.Source, v.Target, prev)
			}
		}, nil
	case config.Session:
		r, ok := n.routers[v.Router]
		if !ok {
			return nil, fmt.Errorf("%w: %d", netid.ErrDeviceNotFound, v.Router)
		}
		out, err := r.ApplyLocalChange(router.LocalChange{Kind: router.ChangeSession, Neighbor: v.Neighbor, Add: false})
		if err != nil {
			return nil, err
		}
		n.enqueue(out)
		if nbr, ok := n.routers[v.Neighbor]; ok {
			out, err := nbr.ApplyLocalChange(router.LocalChange{Kind: router.ChangeSession, Neighbor: v.Router, Add: false})
			if err != nil {
				return nil, err
			}
			n.enqueue(out)
		} else if ext, ok := n.externals[v.Neighbor]; ok {
			ext.RemoveNeighbor(v.Router)
		} else {
			return nil, fmt.Errorf("%w: %d", netid.ErrDeviceNotFound, v.Neighbor)
		}
		return nil, nil
	case config.RouteMapRule:
		r, ok := n.routers[v.Router]
		if !ok {
			return nil, fmt.Errorf("%w: %d", netid.ErrDeviceNotFound, v.Router)
		}
		out, err := r.ApplyLocalChange(router.LocalChange{Kind: router.ChangeRouteMap, Dir: v.Dir, Rule: routemapRemovalRule(v)})
		if err != nil {
			return nil, err
		}
		n.enqueue(out)
		return nil, nil
	case config.StaticRoute:
		r, ok := n.routers[v.Router]
		if !ok {
			return nil, fmt.Errorf("%w: %d", netid.ErrDeviceNotFound, v.Router)
		}
		out, err := r.ApplyLocalChange(router.LocalChange{Kind: router.ChangeStaticRoute, Prefix: v.Prefix, Add: false})
		if err != nil {
			return nil, err
		}
		n.enqueue(out)
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized atom type %T", netid.ErrModifierMismatch, a)
	}
}

// routemapRemovalRule builds the order-only Rule that signals "remove this
// rule" to Router.ApplyLocalChange (see router.applyRouteMapChange).
func routemapRemovalRule(v config.RouteMapRule) routemap.Rule {
	return routemap.Rule{Order: v.Order}
}

// reciprocalSession is the session type the far endpoint of an adjacency
// runs: a route-reflector's client sees the reflector as a plain iBGP peer.
func reciprocalSession(t netid.SessionType) netid.SessionType {
	if t == netid.IBGPClient {
		return netid.IBGPPeer
	}
	return t
}

// rollback reverses everything a failed ApplyModifier (or external
// advertise/withdraw) did: pending events are discarded, every entity that
// accumulated undo entries since `before` pops them, and any graph mutation
// is reverted. After rollback the network is byte-for-byte back at the
// state the snapshot was taken in.
func (n *Network) rollback(before map[entityKey]int, revertGraph func()) {
	n.queue = n.queue[:0]
	for key, times := range n.deltaSince(before) {
		n.undoEntity(key, times)
	}
	if revertGraph != nil {
		revertGraph()
	}
}

// chainReverts composes two optional revert closures, applied most-recent
// first.
func chainReverts(first, second func()) func() {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	default:
		return func() { second(); first() }
	}
}

// ApplyModifier translates m into one or more local changes on the
// affected router(s), drains the event queue to quiescence, and pushes a
// network-level undo frame recording every router's undo-depth delta, not
// just the ones touched while draining; the router receiving the direct
// local change may push undo entries without ever re-entering the queue.
//
// ApplyModifier is atomic: if the modifier is invalid, a device rejects a
// change, or convergence fails, the network is rolled back to the state it
// was in before the call and the error is returned.
func (n *Network) ApplyModifier(m config.Modifier) error {
	n.log.WithFields(logFields(m)).Debug("applying modifier")

	if err := m.Validate(n.current); err != nil {
		return err
	}

	before := n.snapshotDepths()

	var revertGraph func()
	var err error
	switch m.Kind {
	case config.ModInsert:
		revertGraph, err = n.applyAtomInsert(m.Expr)
	case config.ModRemove:
		revertGraph, err = n.applyAtomRemove(m.Expr)
	case config.ModUpdate:
		if _, isLink := m.From.(config.LinkWeight); isLink {
			revertGraph, err = n.applyAtomInsert(m.To) // overwrite weight directly
		} else {
			var rmRevert func()
			rmRevert, err = n.applyAtomRemove(m.From)
			if err == nil {
				var insRevert func()
				insRevert, err = n.applyAtomInsert(m.To)
				revertGraph = chainReverts(rmRevert, insRevert)
			} else {
				revertGraph = rmRevert
			}
		}
	default:
		return fmt.Errorf("%w: unknown modifier kind", netid.ErrModifierMismatch)
	}
	if err != nil {
		n.rollback(before, revertGraph)
		return err
	}

	if revertGraph != nil {
		err = n.recomputeAllIGP()
	} else {
		err = n.drain()
	}
	if err != nil {
		n.log.WithError(err).Warn("convergence failed")
		n.rollback(before, revertGraph)
		return err
	}

	if err := m.ApplyTo(n.current); err != nil {
		n.rollback(before, revertGraph)
		return err
	}
	n.undoFrames = append(n.undoFrames, undoFrame{
		depthDelta:  n.deltaSince(before),
		modifier:    m,
		hasModifier: true,
		revertGraph: revertGraph,
	})
	return nil
}

func logFields(m config.Modifier) map[string]interface{} {
	return map[string]interface{}{
		"kind": m.Kind.String(),
		"key":  m.Key(),
	}
}
