package examplenet

import (
	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/hardpolicy"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/netsim"
	"github.com/netsynth/netsynth/routemap"
)

// Carousel is the route-reflection hierarchy whose reconfiguration chases
// its own tail: four border routers each with an external egress, four
// bottom reflectors (one per border), and a single top reflector tying
// them together. The migration flips the local-preference route-maps on
// the second and third border, which swaps which egress the hierarchy
// prefers; the borders react to each other through the reflector in a
// circular fashion.
func Carousel() (*Scenario, error) {
	n := netsim.New()

	borders := make([]netid.RouterID, 4)
	bottoms := make([]netid.RouterID, 4)
	for i := range borders {
		id, err := n.AddRouter()
		if err != nil {
			return nil, err
		}
		borders[i] = id
	}
	for i := range bottoms {
		id, err := n.AddRouter()
		if err != nil {
			return nil, err
		}
		bottoms[i] = id
	}
	top, err := n.AddRouter()
	if err != nil {
		return nil, err
	}

	externals := make([]netid.RouterID, 5)
	for i := range externals {
		id, err := n.AddExternalRouter(netid.ASNumber(65501 + i))
		if err != nil {
			return nil, err
		}
		externals[i] = id
	}

	for i := range borders {
		if err := symmetricLink(n, borders[i], bottoms[i], 1); err != nil {
			return nil, err
		}
		if err := symmetricLink(n, bottoms[i], top, 1); err != nil {
			return nil, err
		}
	}

	lpRule := func(b netid.RouterID, ext netid.RouterID, lp int) config.RouteMapRule {
		return config.RouteMapRule{
			Router:  b,
			Dir:     config.Inbound,
			Order:   10,
			Action:  routemap.Allow,
			Matches: []routemap.Match{routemap.NeighborMatch{Neighbor: ext}},
			Sets:    []routemap.Set{routemap.SetLocalPref{Value: lp}},
		}
	}

	shared := func(cfg *config.Configuration) error {
		for i, b := range borders {
			if err := cfg.Insert(config.Session{Router: b, Neighbor: externals[i], Type: netid.EBGP}); err != nil {
				return err
			}
			if err := cfg.Insert(config.Session{Router: bottoms[i], Neighbor: b, Type: netid.IBGPClient}); err != nil {
				return err
			}
			if err := cfg.Insert(config.Session{Router: top, Neighbor: bottoms[i], Type: netid.IBGPClient}); err != nil {
				return err
			}
		}
		// the fifth external shares the first border
		return cfg.Insert(config.Session{Router: borders[0], Neighbor: externals[4], Type: netid.EBGP})
	}

	cfgA := config.NewConfiguration()
	if err := shared(cfgA); err != nil {
		return nil, err
	}
	cfgB := config.NewConfiguration()
	if err := shared(cfgB); err != nil {
		return nil, err
	}

	// the migration: b2 and b3 swap how strongly they prefer their own
	// egress
	for _, i := range []int{1, 2} {
		if err := cfgA.Insert(lpRule(borders[i], externals[i], 200)); err != nil {
			return nil, err
		}
		if err := cfgB.Insert(lpRule(borders[i], externals[i], 50)); err != nil {
			return nil, err
		}
	}

	if err := n.SetConfig(cfgA); err != nil {
		return nil, err
	}

	const prefix = netid.Prefix(10)
	adv := make(map[netid.RouterID]netid.ASNumber, len(externals))
	for i, e := range externals {
		adv[e] = netid.ASNumber(65501 + i)
	}
	if err := advertise(n, prefix, adv); err != nil {
		return nil, err
	}

	routers := append(append([]netid.RouterID{}, borders...), bottoms...)
	routers = append(routers, top)

	return &Scenario{
		Net:      n,
		ConfigA:  cfgA,
		ConfigB:  cfgB,
		Policy:   hardpolicy.ReachabilityEverywhere(routers, []netid.Prefix{prefix}),
		Routers:  routers,
		Prefixes: []netid.Prefix{prefix},
	}, nil
}
