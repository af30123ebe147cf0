package netsim

import (
	"fmt"

	"github.com/netsynth/netsynth/bgproute"
	"github.com/netsynth/netsynth/netid"
)

// AdvertiseExternalRoute injects a BGP update from the named external
// router, fans it out to every eBGP neighbor, and drains to quiescence.
func (n *Network) AdvertiseExternalRoute(external netid.RouterID, route bgproute.Route) error {
	ext, ok := n.externals[external]
	if !ok {
		return fmt.Errorf("%w: %d", netid.ErrDeviceNotFound, external)
	}

	before := n.snapshotDepths()
	n.enqueue(ext.Advertise(route))
	if err := n.drain(); err != nil {
		n.log.WithError(err).Warn("convergence failed during external advertisement")
		n.rollback(before, nil)
		return err
	}
	n.undoFrames = append(n.undoFrames, undoFrame{depthDelta: n.deltaSince(before)})
	return nil
}

// WithdrawExternalRoute withdraws the named external router's advertisement
// for prefix (a no-op at the external if none exists) and drains to
// quiescence.
func (n *Network) WithdrawExternalRoute(external netid.RouterID, prefix netid.Prefix) error {
	ext, ok := n.externals[external]
	if !ok {
		return fmt.Errorf("%w: %d", netid.ErrDeviceNotFound, external)
	}

	before := n.snapshotDepths()
	n.enqueue(ext.Withdraw(prefix))
	if err := n.drain(); err != nil {
		n.log.WithError(err).Warn("convergence failed during external withdrawal")
		n.rollback(before, nil)
		return err
	}
	n.undoFrames = append(n.undoFrames, undoFrame{depthDelta: n.deltaSince(before)})
	return nil
}
