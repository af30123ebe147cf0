package examplenet

import (
	"github.com/netsynth/netsynth/bgproute"
	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/hardpolicy"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/netsim"
)

// Scenario is a fully built migration problem: a network converged on
// ConfigA, the target ConfigB, and the hard policy the migration must
// honor throughout.
type Scenario struct {
	Net     *netsim.Network
	ConfigA *config.Configuration
	ConfigB *config.Configuration
	Policy  hardpolicy.Policy

	Routers  []netid.RouterID
	Prefixes []netid.Prefix
}

// Evaluator builds a fresh policy evaluator for the scenario.
func (s *Scenario) Evaluator() *hardpolicy.Evaluator {
	return hardpolicy.NewEvaluator(s.Policy)
}

// Modifiers computes the scenario's migration.
func (s *Scenario) Modifiers() []config.Modifier {
	return config.Diff(s.ConfigA, s.ConfigB)
}

// advertise injects route announcements for prefix from each external.
func advertise(n *netsim.Network, prefix netid.Prefix, externals map[netid.RouterID]netid.ASNumber) error {
	for _, id := range n.ExternalIDs() {
		as, ok := externals[id]
		if !ok {
			continue
		}
		route := bgproute.NewRoute(prefix, []netid.ASNumber{as}, id)
		if err := n.AdvertiseExternalRoute(id, route); err != nil {
			return err
		}
	}
	return nil
}

// symmetricLink adds both directions of an equal-weight link.
func symmetricLink(n *netsim.Network, a, b netid.RouterID, w netid.Weight) error {
	if err := n.AddLink(a, b, w); err != nil {
		return err
	}
	return n.AddLink(b, a, w)
}
