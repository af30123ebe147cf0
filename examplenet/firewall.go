package examplenet

import (
	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/hardpolicy"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/netsim"
)

// Firewall builds the inspected-path switchover: traffic from rx to the
// external must pass one of two firewalled segments: r2--r6 today, r1--r4
// after the migration. The migration re-weights rx's uplinks to move
// it from one to the other.
//
//	   rx
//	  /  \          cheap side A: rx-r2-r6-rb
//	r2    r1        cheap side B: rx-r1-r4-rb
//	 |    |
//	r6    r4
//	  \  /
//	   rb ··· e
//
// With transientCheck, the policy additionally demands that EVERY path
// traffic can take while the network re-converges crosses one of the two
// firewalls; without it, plain reachability suffices.
func Firewall(transientCheck bool) (*Scenario, error) {
	n := netsim.New()

	ids := make([]netid.RouterID, 6)
	for i := range ids {
		id, err := n.AddRouter()
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	rx, r1, r2, r4, r6, rb := ids[0], ids[1], ids[2], ids[3], ids[4], ids[5]

	e, err := n.AddExternalRouter(65401)
	if err != nil {
		return nil, err
	}

	// uplinks carry the migrating weights; everything below is constant
	if err := n.AddLink(rx, r2, 10); err != nil {
		return nil, err
	}
	if err := n.AddLink(rx, r1, 100); err != nil {
		return nil, err
	}
	for _, pair := range [][2]netid.RouterID{{r2, r6}, {r6, rb}, {r1, r4}, {r4, rb}} {
		if err := symmetricLink(n, pair[0], pair[1], 1); err != nil {
			return nil, err
		}
	}
	// return paths towards rx, so rb's IGP covers everyone
	if err := n.AddLink(r2, rx, 10); err != nil {
		return nil, err
	}
	if err := n.AddLink(r1, rx, 100); err != nil {
		return nil, err
	}

	cfgA := config.NewConfiguration()
	sessions := []config.Atom{
		config.Session{Router: rb, Neighbor: e, Type: netid.EBGP},
		config.Session{Router: rb, Neighbor: rx, Type: netid.IBGPPeer},
		config.Session{Router: rb, Neighbor: r1, Type: netid.IBGPPeer},
		config.Session{Router: rb, Neighbor: r2, Type: netid.IBGPPeer},
		config.Session{Router: rb, Neighbor: r4, Type: netid.IBGPPeer},
		config.Session{Router: rb, Neighbor: r6, Type: netid.IBGPPeer},
	}
	for _, a := range sessions {
		if err := cfgA.Insert(a); err != nil {
			return nil, err
		}
	}
	if err := cfgA.Insert(config.LinkWeight{Source: rx, Target: r2, Weight: 10}); err != nil {
		return nil, err
	}
	if err := cfgA.Insert(config.LinkWeight{Source: rx, Target: r1, Weight: 100}); err != nil {
		return nil, err
	}

	cfgB := config.NewConfiguration()
	for _, a := range sessions {
		if err := cfgB.Insert(a); err != nil {
			return nil, err
		}
	}
	if err := cfgB.Insert(config.LinkWeight{Source: rx, Target: r2, Weight: 90}); err != nil {
		return nil, err
	}
	if err := cfgB.Insert(config.LinkWeight{Source: rx, Target: r1, Weight: 20}); err != nil {
		return nil, err
	}

	if err := n.SetConfig(cfgA); err != nil {
		return nil, err
	}

	const prefix = netid.Prefix(10)
	if err := advertise(n, prefix, map[netid.RouterID]netid.ASNumber{e: 65401}); err != nil {
		return nil, err
	}

	throughFirewall := hardpolicy.PathOr{Children: []hardpolicy.PathPredicate{
		hardpolicy.Edge{A: r2, B: r6},
		hardpolicy.Edge{A: r6, B: r2},
		hardpolicy.Edge{A: r1, B: r4},
		hardpolicy.Edge{A: r4, B: r1},
	}}

	routers := []netid.RouterID{rx, r1, r2, r4, r6, rb}
	atoms := []hardpolicy.Atom{
		hardpolicy.Reachable{Router: rx, Prefix: prefix},
		hardpolicy.Reachable{Router: rb, Prefix: prefix},
		hardpolicy.Reachable{Router: rx, Prefix: prefix, Predicate: throughFirewall},
	}
	props := []hardpolicy.Formula{
		hardpolicy.Prop{Index: 0},
		hardpolicy.Prop{Index: 1},
		hardpolicy.Prop{Index: 2},
	}
	if transientCheck {
		atoms = append(atoms, hardpolicy.TransientPath{Router: rx, Prefix: prefix, Predicate: throughFirewall})
		props = append(props, hardpolicy.Prop{Index: 3})
	}

	return &Scenario{
		Net:      n,
		ConfigA:  cfgA,
		ConfigB:  cfgB,
		Policy:   hardpolicy.Policy{Atoms: atoms, Formula: hardpolicy.Globally{Phi: hardpolicy.And{Children: props}}},
		Routers:  routers,
		Prefixes: []netid.Prefix{prefix},
	}, nil
}
