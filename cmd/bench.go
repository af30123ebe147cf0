package cmd

import (
	"math/rand"
	"sort"

	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/examplenet"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/softpolicy"
)

// sampleResult is one sampled ordering's outcome.
type sampleResult struct {
	success  bool
	cost     float64
	severity float64
	steps    int
}

// runOrder replays mods in the given order on a private clone, stepping a
// fresh policy evaluator and a traffic-shift accumulator alongside. It
// never backtracks: policy violations are tallied as severity (one unit
// per unsatisfied atom per step) and the walk continues, because the
// baseline samplers measure how BAD an order is, not just whether it
// works. A convergence failure ends the walk early.
func runOrder(sc *examplenet.Scenario, mods []config.Modifier) sampleResult {
	net := sc.Net.Clone()
	ev := sc.Evaluator()
	ev.SetNumMods(len(mods))
	soft := softpolicy.NewMinimizeTrafficShift(sc.Prefixes)

	res := sampleResult{success: true}
	if err := ev.Step(net); err != nil {
		return sampleResult{}
	}
	if ok, unsat := ev.Check(); !ok {
		res.success = false
		res.severity += float64(len(unsat))
	}
	soft.Update(net.GetForwardingState(), net)

	for _, m := range mods {
		if err := net.ApplyModifier(m); err != nil {
			res.success = false
			return res
		}
		res.steps++
		if err := ev.Step(net); err != nil {
			res.success = false
			return res
		}
		if ok, unsat := ev.Check(); !ok {
			res.success = false
			res.severity += float64(len(unsat))
		}
		soft.Update(net.GetForwardingState(), net)
	}
	res.cost = soft.Cost()
	return res
}

// shuffled returns a fresh random permutation of mods.
func shuffled(mods []config.Modifier, rng *rand.Rand) []config.Modifier {
	out := append([]config.Modifier(nil), mods...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// insertBefore returns an order with inserts and updates (shuffled) ahead
// of removes (shuffled).
func insertBefore(mods []config.Modifier, rng *rand.Rand) []config.Modifier {
	var front, back []config.Modifier
	for _, m := range mods {
		if m.Kind == config.ModRemove {
			back = append(back, m)
		} else {
			front = append(front, m)
		}
	}
	rng.Shuffle(len(front), func(i, j int) { front[i], front[j] = front[j], front[i] })
	rng.Shuffle(len(back), func(i, j int) { back[i], back[j] = back[j], back[i] })
	return append(front, back...)
}

// modRouter names the router a modifier predominantly touches, for the
// router-grouped ordering baseline.
func modRouter(m config.Modifier) netid.RouterID {
	atom := m.Expr
	if m.Kind == config.ModUpdate {
		atom = m.To
	}
	switch v := atom.(type) {
	case config.LinkWeight:
		return v.Source
	case config.Session:
		return v.Router
	case config.RouteMapRule:
		return v.Router
	case config.StaticRoute:
		return v.Router
	default:
		return 0
	}
}

// routerOrder groups modifiers by router, visits the routers in a random
// order, and keeps each router's modifiers in their given order.
func routerOrder(mods []config.Modifier, rng *rand.Rand) []config.Modifier {
	groups := make(map[netid.RouterID][]config.Modifier)
	var routers []netid.RouterID
	for _, m := range mods {
		r := modRouter(m)
		if _, seen := groups[r]; !seen {
			routers = append(routers, r)
		}
		groups[r] = append(groups[r], m)
	}
	sort.Slice(routers, func(i, j int) bool { return routers[i] < routers[j] })
	rng.Shuffle(len(routers), func(i, j int) { routers[i], routers[j] = routers[j], routers[i] })

	var out []config.Modifier
	for _, r := range routers {
		out = append(out, groups[r]...)
	}
	return out
}

// sampleSeverity runs `count` orders drawn by next and aggregates their
// violation profile.
func sampleSeverity(sc *examplenet.Scenario, mods []config.Modifier, count int, next func() []config.Modifier) SeveritySample {
	var out SeveritySample
	totalSteps := 0
	for i := 0; i < count; i++ {
		res := runOrder(sc, next())
		if res.success {
			out.SuccessCount++
		} else {
			out.FailureCount++
		}
		out.TotalSeverity += res.severity
		totalSteps += res.steps
	}
	if totalSteps > 0 {
		out.PerStepSeverity = out.TotalSeverity / float64(totalSteps)
	}
	return out
}
