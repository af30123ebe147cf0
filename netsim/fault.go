package netsim

import (
	"fmt"

	"github.com/netsynth/netsynth/netid"
)

// SimulateLinkFailure returns an independent clone of the network in which
// the physical link between a and b (both directions) has failed: the edges
// are removed from the topology graph and every router's IGP table and BGP
// decisions are re-converged. The receiver is untouched. Used by the
// reliability policy atom to probe "does the property survive any single
// link failure".
func (n *Network) SimulateLinkFailure(a, b netid.RouterID) (*Network, error) {
	if _, ok := n.routers[a]; !ok {
		return nil, fmt.Errorf("%w: %d", netid.ErrDeviceNotFound, a)
	}
	if _, ok := n.routers[b]; !ok {
		return nil, fmt.Errorf("%w: %d", netid.ErrDeviceNotFound, b)
	}

	clone := n.Clone()
	clone.graph.RemoveLink(a, b)
	clone.graph.RemoveLink(b, a)
	if err := clone.recomputeAllIGP(); err != nil {
		return nil, err
	}
	clone.ClearUndoStack()
	return clone, nil
}
