package netsim

import (
	"fmt"

	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/router"
)

func (n *Network) entityUndoDepth(id netid.RouterID) (int, bool) {
	if r, ok := n.routers[id]; ok {
		return r.UndoDepth(), true
	}
	if e, ok := n.externals[id]; ok {
		return e.UndoDepth(), false
	}
	return 0, false
}

// snapshotDepths records the current undo depth of every router and external
// router in the network. ApplyModifier takes one of these before touching
// anything, so the delta it computes afterwards covers both the directly
// changed entity and everything touched indirectly while draining the event
// queue.
func (n *Network) snapshotDepths() map[entityKey]int {
	before := make(map[entityKey]int, len(n.routers)+len(n.externals))
	for id, r := range n.routers {
		before[entityKey{ID: id}] = r.UndoDepth()
	}
	for id, e := range n.externals {
		before[entityKey{ID: id, External: true}] = e.UndoDepth()
	}
	return before
}

// deltaSince compares a snapshot taken by snapshotDepths against current
// depths and returns how many new undo entries each entity accumulated.
func (n *Network) deltaSince(before map[entityKey]int) map[entityKey]int {
	delta := make(map[entityKey]int)
	for key, depthBefore := range before {
		depthAfter, _ := n.entityUndoDepth(key.ID)
		if d := depthAfter - depthBefore; d > 0 {
			delta[key] = d
		}
	}
	return delta
}

// enqueue appends to the back of the global FIFO queue.
func (n *Network) enqueue(events []router.OutboundEvent) {
	for _, e := range events {
		n.queue = append(n.queue, queuedEvent{To: e.To, Event: e.Event})
	}
}

// drain processes the event queue to quiescence, detecting both the
// queue-depth bound and (router,event) recurrence cycles. Callers that need
// an undo frame should snapshotDepths before queuing anything and
// deltaSince afterwards; drain itself only drives the queue.
func (n *Network) drain() error {
	recurrence := make(map[string]int)
	var seenEvents []string
	threshold := loopWindowMultiplier*len(n.routers) + loopWindowMultiplier
	bound := n.queueDepthBound()
	processed := 0

	for len(n.queue) > 0 {
		processed++
		if processed > bound {
			return fmt.Errorf("%w: drained %d events, bound %d", netid.ErrConvergenceTimeout, processed, bound)
		}

		ev := n.queue[0]
		n.queue = n.queue[1:]

		sig := fmt.Sprintf("%d:%d:%d:%d", ev.To, ev.Event.Kind, ev.Event.From, ev.Event.Prefix)
		recurrence[sig]++
		seenEvents = append(seenEvents, sig)
		if recurrence[sig] > threshold {
			return &netid.ConvergenceLoopError{Events: seenEvents, Snapshots: []string{sig}}
		}

		if r, ok := n.routers[ev.To]; ok {
			_, out, err := r.HandleEvent(ev.Event)
			if err != nil {
				return fmt.Errorf("%w: %v", netid.ErrUnexpectedEventDuringConv, err)
			}
			n.enqueue(out)
			continue
		}
		if _, ok := n.externals[ev.To]; ok {
			// External routers never receive BGP updates/withdraws back in
			// this model (they only originate advertisements), but accept
			// them harmlessly to keep convergence total.
			continue
		}
		return fmt.Errorf("%w: %d", netid.ErrDeviceNotFound, ev.To)
	}
	return nil
}

// recomputeAllIGP recomputes every router's shortest-path table from the
// current graph and enqueues an EventIGPRecompute for each in id order,
// then drains to quiescence. Used whenever a link-weight modifier changes
// the topology, since any edge can affect shortest paths rooted anywhere.
func (n *Network) recomputeAllIGP() error {
	for _, id := range n.RouterIDs() {
		table := n.graph.ShortestPathsFrom(id)
		n.queue = append(n.queue, queuedEvent{To: id, Event: router.Event{Kind: router.EventIGPRecompute, IGPTable: table}})
	}
	return n.drain()
}

// undoEntity runs UndoLast n times against the entity named by key.
func (n *Network) undoEntity(key entityKey, times int) {
	for i := 0; i < times; i++ {
		if key.External {
			if e, ok := n.externals[key.ID]; ok {
				_ = e.UndoLast()
			}
			continue
		}
		if r, ok := n.routers[key.ID]; ok {
			_ = r.UndoLast()
		}
	}
}

// UndoAction pops the network undo frame, instructing every participating
// router/external router to pop its own undo log, and inverts any tracked
// configuration change.
func (n *Network) UndoAction() error {
	if len(n.undoFrames) == 0 {
		return fmt.Errorf("%w", netid.ErrEmptyUndoStack)
	}
	idx := len(n.undoFrames) - 1
	frame := n.undoFrames[idx]
	n.undoFrames = n.undoFrames[:idx]

	for key, times := range frame.depthDelta {
		n.undoEntity(key, times)
	}
	if frame.revertGraph != nil {
		frame.revertGraph()
	}
	if frame.hasModifier {
		inv := frame.modifier.Invert()
		_ = inv.ApplyTo(n.current) // best-effort; current config mirrors device state, already validated on the way in
	}
	return nil
}
