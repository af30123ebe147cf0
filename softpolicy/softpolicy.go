// Package softpolicy defines the optional cost objective a migration
// optimizer minimizes: a scalar cost of each intermediate forwarding state,
// summed across the steps of the migration.
package softpolicy

import (
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/netsim"
)

// SoftPolicy accumulates a scalar cost over the sequence of forwarding
// states a migration passes through. Update is called once per applied
// modifier with the freshly converged state; Cost returns the total
// accumulated so far. Implementations carry state (typically the previous
// forwarding snapshot), so optimizers clone them before exploring a branch.
type SoftPolicy interface {
	Update(fw *netsim.ForwardingState, net *netsim.Network)
	Cost() float64
	Clone() SoftPolicy
}

type fibKey struct {
	Router netid.RouterID
	Prefix netid.Prefix
}

// MinimizeTrafficShift charges each step the fraction of routers whose
// next-hop changed for at least one tracked prefix. A migration that
// reroutes half the network at once costs more than one that moves a
// single router per step; the summed cost is what the optimizer minimizes.
type MinimizeTrafficShift struct {
	prefixes []netid.Prefix
	prev     map[fibKey]netid.RouterID
	total    float64
}

// NewMinimizeTrafficShift builds the policy for the given prefixes. The
// first Update establishes the baseline and costs nothing.
func NewMinimizeTrafficShift(prefixes []netid.Prefix) *MinimizeTrafficShift {
	return &MinimizeTrafficShift{prefixes: append([]netid.Prefix(nil), prefixes...)}
}

func (m *MinimizeTrafficShift) snapshot(net *netsim.Network) map[fibKey]netid.RouterID {
	fib := make(map[fibKey]netid.RouterID)
	for _, id := range net.RouterIDs() {
		r, ok := net.Router(id)
		if !ok {
			continue
		}
		for _, p := range m.prefixes {
			if nh, ok := r.FIBNextHop(p); ok {
				fib[fibKey{Router: id, Prefix: p}] = nh
			}
		}
	}
	return fib
}

// Update compares the current forwarding state against the previous one and
// adds the shifted-router fraction to the running total.
func (m *MinimizeTrafficShift) Update(_ *netsim.ForwardingState, net *netsim.Network) {
	cur := m.snapshot(net)
	if m.prev != nil {
		shifted := make(map[netid.RouterID]bool)
		for key, nh := range cur {
			if old, ok := m.prev[key]; !ok || old != nh {
				shifted[key.Router] = true
			}
		}
		for key := range m.prev {
			if _, ok := cur[key]; !ok {
				shifted[key.Router] = true
			}
		}
		if n := net.NumRouters(); n > 0 {
			m.total += float64(len(shifted)) / float64(n)
		}
	}
	m.prev = cur
}

// Cost returns the cost accumulated across all Update calls.
func (m *MinimizeTrafficShift) Cost() float64 { return m.total }

// Clone returns an independent copy carrying the same baseline and total.
func (m *MinimizeTrafficShift) Clone() SoftPolicy {
	out := &MinimizeTrafficShift{
		prefixes: m.prefixes,
		total:    m.total,
	}
	if m.prev != nil {
		out.prev = make(map[fibKey]netid.RouterID, len(m.prev))
		for k, v := range m.prev {
			out.prev[k] = v
		}
	}
	return out
}
