package netsim

import (
	"github.com/netsynth/netsynth/netid"
)

// ForwardingState is a view over the network's current per-router BGP
// decisions and IGP next-hops. It holds no snapshot of its own: every
// query reads straight through to live router state, so it never goes
// stale, but two queries made around an intervening ApplyModifier may
// disagree.
type ForwardingState struct {
	n *Network
}

// GetForwardingState returns a view over the network's current forwarding
// decisions.
func (n *Network) GetForwardingState() *ForwardingState {
	return &ForwardingState{n: n}
}

// NextHop reports the immediate next router r would forward prefix p to.
func (fs *ForwardingState) NextHop(r netid.RouterID, p netid.Prefix) (netid.RouterID, bool) {
	rtr, ok := fs.n.routers[r]
	if !ok {
		return 0, false
	}
	return rtr.FIBNextHop(p)
}

// GetRoute walks the forwarding path for prefix p starting at router r; see
// Network.GetRoute.
func (fs *ForwardingState) GetRoute(r netid.RouterID, p netid.Prefix) ([]netid.RouterID, error) {
	return fs.n.GetRoute(r, p)
}

// GetRoute walks the forwarding path for prefix p starting at router r,
// returning the ordered list of routers traversed, ending at the external
// router that originated the route. It fails with a ForwardingLoopError if
// the path revisits a router, or a BlackHoleError if it reaches a router
// with no next hop for p before reaching an external router.
func (n *Network) GetRoute(r netid.RouterID, p netid.Prefix) ([]netid.RouterID, error) {
	path := []netid.RouterID{r}
	visited := map[netid.RouterID]bool{r: true}
	cur := r

	for {
		if _, ok := n.externals[cur]; ok {
			return path, nil
		}
		rtr, ok := n.routers[cur]
		if !ok {
			return nil, netid.NewBlackHoleError(path)
		}
		nh, ok := rtr.FIBNextHop(p)
		if !ok {
			return nil, netid.NewBlackHoleError(path)
		}
		if visited[nh] {
			return nil, netid.NewForwardingLoopError(append(path, nh))
		}
		path = append(path, nh)
		visited[nh] = true
		cur = nh
	}
}
