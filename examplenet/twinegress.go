package examplenet

import (
	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/hardpolicy"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/netsim"
	"github.com/netsynth/netsynth/routemap"
)

// TwinEgress is the swap-the-egress gadget: two routers, two externals
// advertising the same prefix, and a policy that forbids BOTH the state
// with no egress and the state where each router egresses locally at the
// same time. The plain swap (damped == false) leaves no valid intermediate
// state at all: any stepwise strategy must report there is no safe
// ordering, and only treating the swap as one atomic group succeeds.
//
// With damped == true the target configuration additionally carries an
// inbound route-map on the new egress that drops its local preference
// below the default. The new session can then come up without the router
// switching over; the forbidden simultaneous-egress state never
// materializes, and an ordinary stepwise ordering exists.
func TwinEgress(damped bool) (*Scenario, error) {
	n := netsim.New()
	r0, err := n.AddRouter()
	if err != nil {
		return nil, err
	}
	r1, err := n.AddRouter()
	if err != nil {
		return nil, err
	}
	e0, err := n.AddExternalRouter(65301)
	if err != nil {
		return nil, err
	}
	e1, err := n.AddExternalRouter(65302)
	if err != nil {
		return nil, err
	}

	if err := symmetricLink(n, r0, r1, 1); err != nil {
		return nil, err
	}

	cfgA := config.NewConfiguration()
	if err := cfgA.Insert(config.Session{Router: r0, Neighbor: e0, Type: netid.EBGP}); err != nil {
		return nil, err
	}
	if err := cfgA.Insert(config.Session{Router: r0, Neighbor: r1, Type: netid.IBGPPeer}); err != nil {
		return nil, err
	}

	cfgB := config.NewConfiguration()
	if err := cfgB.Insert(config.Session{Router: r1, Neighbor: e1, Type: netid.EBGP}); err != nil {
		return nil, err
	}
	if err := cfgB.Insert(config.Session{Router: r0, Neighbor: r1, Type: netid.IBGPPeer}); err != nil {
		return nil, err
	}
	if damped {
		rule := config.RouteMapRule{
			Router:  r1,
			Dir:     config.Inbound,
			Order:   10,
			Action:  routemap.Allow,
			Matches: []routemap.Match{routemap.NeighborMatch{Neighbor: e1}},
			Sets:    []routemap.Set{routemap.SetLocalPref{Value: 50}},
		}
		if err := cfgB.Insert(rule); err != nil {
			return nil, err
		}
	}

	if err := n.SetConfig(cfgA); err != nil {
		return nil, err
	}

	const prefix = netid.Prefix(10)
	if err := advertise(n, prefix, map[netid.RouterID]netid.ASNumber{
		e0: 65301,
		e1: 65302,
	}); err != nil {
		return nil, err
	}

	// localEgress(r) is true when r reaches the prefix without crossing its
	// twin, i.e. through its own external.
	localEgress := func(r, twin netid.RouterID) hardpolicy.Atom {
		return hardpolicy.Reachable{
			Router:    r,
			Prefix:    prefix,
			Predicate: hardpolicy.PathNot{Child: hardpolicy.Node{V: twin}},
		}
	}

	policy := hardpolicy.Policy{
		Atoms: []hardpolicy.Atom{
			hardpolicy.Reachable{Router: r0, Prefix: prefix},
			hardpolicy.Reachable{Router: r1, Prefix: prefix},
			localEgress(r0, r1),
			localEgress(r1, r0),
		},
		Formula: hardpolicy.Globally{Phi: hardpolicy.And{Children: []hardpolicy.Formula{
			hardpolicy.Prop{Index: 0},
			hardpolicy.Prop{Index: 1},
			hardpolicy.Not{Phi: hardpolicy.And{Children: []hardpolicy.Formula{
				hardpolicy.Prop{Index: 2},
				hardpolicy.Prop{Index: 3},
			}}},
		}}},
	}

	return &Scenario{
		Net:      n,
		ConfigA:  cfgA,
		ConfigB:  cfgB,
		Policy:   policy,
		Routers:  []netid.RouterID{r0, r1},
		Prefixes: []netid.Prefix{prefix},
	}, nil
}
