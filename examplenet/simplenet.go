package examplenet

import (
	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/hardpolicy"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/netsim"
)

// SimpleNet is the introductory relocation scenario: four routers in a
// line, an external at each end, and a migration that moves the single
// eBGP egress from r1 to r4 while replacing the iBGP star around r1 with a
// route-reflector star around r4. The policy demands reachability
// everywhere at every step.
//
//	e1 ··· r1 -- r2 -- r3 -- r4 ··· e4
func SimpleNet() (*Scenario, error) {
	n := netsim.New()

	routers := make([]netid.RouterID, 4)
	for i := range routers {
		id, err := n.AddRouter()
		if err != nil {
			return nil, err
		}
		routers[i] = id
	}
	r1, r2, r3, r4 := routers[0], routers[1], routers[2], routers[3]

	e1, err := n.AddExternalRouter(65101)
	if err != nil {
		return nil, err
	}
	e4, err := n.AddExternalRouter(65104)
	if err != nil {
		return nil, err
	}

	for _, pair := range [][2]netid.RouterID{{r1, r2}, {r2, r3}, {r3, r4}} {
		if err := symmetricLink(n, pair[0], pair[1], 1); err != nil {
			return nil, err
		}
	}

	cfgA := config.NewConfiguration()
	for _, a := range []config.Atom{
		config.Session{Router: r1, Neighbor: e1, Type: netid.EBGP},
		config.Session{Router: r1, Neighbor: r2, Type: netid.IBGPPeer},
		config.Session{Router: r1, Neighbor: r3, Type: netid.IBGPPeer},
		config.Session{Router: r1, Neighbor: r4, Type: netid.IBGPPeer},
	} {
		if err := cfgA.Insert(a); err != nil {
			return nil, err
		}
	}

	cfgB := config.NewConfiguration()
	for _, a := range []config.Atom{
		config.Session{Router: r4, Neighbor: e4, Type: netid.EBGP},
		config.Session{Router: r4, Neighbor: r1, Type: netid.IBGPClient},
		config.Session{Router: r4, Neighbor: r2, Type: netid.IBGPClient},
		config.Session{Router: r4, Neighbor: r3, Type: netid.IBGPClient},
	} {
		if err := cfgB.Insert(a); err != nil {
			return nil, err
		}
	}

	if err := n.SetConfig(cfgA); err != nil {
		return nil, err
	}

	const prefix = netid.Prefix(10)
	if err := advertise(n, prefix, map[netid.RouterID]netid.ASNumber{
		e1: 65101,
		e4: 65104,
	}); err != nil {
		return nil, err
	}

	return &Scenario{
		Net:      n,
		ConfigA:  cfgA,
		ConfigB:  cfgB,
		Policy:   hardpolicy.ReachabilityEverywhere(routers, []netid.Prefix{prefix}),
		Routers:  routers,
		Prefixes: []netid.Prefix{prefix},
	}, nil
}
