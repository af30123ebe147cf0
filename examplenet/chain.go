package examplenet

import (
	"fmt"

	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/hardpolicy"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/netsim"
)

// Chain builds a line of reps+1 routers whose single eBGP egress migrates
// from one end to the other. Every router in the middle depends on its
// session towards the new hub existing before its session towards the old
// hub disappears, so the migration is a chain of ordering constraints that
// grows linearly with reps, the shape the push-back search handles in a
// quadratic number of rotations.
func Chain(reps int) (*Scenario, error) {
	if reps < 1 {
		return nil, fmt.Errorf("chain needs at least one repetition, got %d", reps)
	}

	n := netsim.New()
	routers := make([]netid.RouterID, reps+1)
	for i := range routers {
		id, err := n.AddRouter()
		if err != nil {
			return nil, err
		}
		routers[i] = id
	}
	head := routers[0]
	tail := routers[len(routers)-1]

	eHead, err := n.AddExternalRouter(65201)
	if err != nil {
		return nil, err
	}
	eTail, err := n.AddExternalRouter(65202)
	if err != nil {
		return nil, err
	}

	for i := 0; i+1 < len(routers); i++ {
		if err := symmetricLink(n, routers[i], routers[i+1], 1); err != nil {
			return nil, err
		}
	}

	cfgA := config.NewConfiguration()
	if err := cfgA.Insert(config.Session{Router: head, Neighbor: eHead, Type: netid.EBGP}); err != nil {
		return nil, err
	}
	for _, r := range routers[1:] {
		if err := cfgA.Insert(config.Session{Router: head, Neighbor: r, Type: netid.IBGPPeer}); err != nil {
			return nil, err
		}
	}

	cfgB := config.NewConfiguration()
	if err := cfgB.Insert(config.Session{Router: tail, Neighbor: eTail, Type: netid.EBGP}); err != nil {
		return nil, err
	}
	for _, r := range routers[:len(routers)-1] {
		if err := cfgB.Insert(config.Session{Router: tail, Neighbor: r, Type: netid.IBGPClient}); err != nil {
			return nil, err
		}
	}

	if err := n.SetConfig(cfgA); err != nil {
		return nil, err
	}

	const prefix = netid.Prefix(10)
	if err := advertise(n, prefix, map[netid.RouterID]netid.ASNumber{
		eHead: 65201,
		eTail: 65202,
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
