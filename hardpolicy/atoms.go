package hardpolicy

import (
	"fmt"
	"sort"

	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/netsim"
)

// FIB is a point-in-time snapshot of the forwarding state restricted to the
// prefixes the policy cares about: (router, prefix) -> next hop. A missing
// key means "no route".
type FIB map[FIBKey]netid.RouterID

// FIBKey addresses one forwarding entry.
type FIBKey struct {
	Router netid.RouterID
	Prefix netid.Prefix
}

// SnapshotFIB captures the current next-hop of every internal router for
// each of the given prefixes.
func SnapshotFIB(net *netsim.Network, prefixes []netid.Prefix) FIB {
	fib := make(FIB)
	for _, id := range net.RouterIDs() {
		r, ok := net.Router(id)
		if !ok {
			continue
		}
		for _, p := range prefixes {
			if nh, ok := r.FIBNextHop(p); ok {
				fib[FIBKey{Router: id, Prefix: p}] = nh
			}
		}
	}
	return fib
}

// Atom is one propositional variable of the hard policy: a predicate over
// the network's forwarding state, or (for transient atoms) over a pair of
// consecutive forwarding states.
type Atom interface {
	// Eval computes the atom's truth value. prev is nil on the first step.
	Eval(net *netsim.Network, prev, cur FIB) bool
	// Prefixes lists the prefixes the atom inspects, so the evaluator can
	// keep its FIB snapshots small.
	Prefixes() []netid.Prefix
	fmt.Stringer
}

// Reachable is true iff traffic from Router towards Prefix reaches an
// external router, and, when a predicate is supplied, the path it takes
// satisfies it.
type Reachable struct {
	Router    netid.RouterID
	Prefix    netid.Prefix
	Predicate PathPredicate // optional
}

func (a Reachable) Eval(net *netsim.Network, _, _ FIB) bool {
	path, err := net.GetRoute(a.Router, a.Prefix)
	if err != nil {
		return false
	}
	if a.Predicate != nil {
		return a.Predicate.Holds(path)
	}
	return true
}

func (a Reachable) Prefixes() []netid.Prefix { return []netid.Prefix{a.Prefix} }

func (a Reachable) String() string {
	if a.Predicate != nil {
		return fmt.Sprintf("Reachable(%d, %d, %s)", a.Router, a.Prefix, a.Predicate)
	}
	return fmt.Sprintf("Reachable(%d, %d)", a.Router, a.Prefix)
}

// NotReachable is the negation of a plain Reachable: true iff traffic from
// Router towards Prefix does NOT reach an external router.
type NotReachable struct {
	Router netid.RouterID
	Prefix netid.Prefix
}

func (a NotReachable) Eval(net *netsim.Network, _, _ FIB) bool {
	_, err := net.GetRoute(a.Router, a.Prefix)
	return err != nil
}

func (a NotReachable) Prefixes() []netid.Prefix { return []netid.Prefix{a.Prefix} }

func (a NotReachable) String() string {
	return fmt.Sprintf("NotReachable(%d, %d)", a.Router, a.Prefix)
}

// Link names one undirected physical link for a Reliable atom.
type Link struct {
	A, B netid.RouterID
}

// Reliable is true iff Reachable(Router, Prefix) survives every single link
// failure drawn from Links, each failure simulated against the current
// converged state.
type Reliable struct {
	Router netid.RouterID
	Prefix netid.Prefix
	Links  []Link
}

func (a Reliable) Eval(net *netsim.Network, _, _ FIB) bool {
	for _, l := range a.Links {
		failed, err := net.SimulateLinkFailure(l.A, l.B)
		if err != nil {
			return false
		}
		if _, err := failed.GetRoute(a.Router, a.Prefix); err != nil {
			return false
		}
	}
	return true
}

func (a Reliable) Prefixes() []netid.Prefix { return []netid.Prefix{a.Prefix} }

func (a Reliable) String() string {
	return fmt.Sprintf("Reliable(%d, %d, %d links)", a.Router, a.Prefix, len(a.Links))
}

// TransientPath constrains the paths traffic can take WHILE the network
// converges between two consecutive stable states. During convergence a
// packet may be forwarded by routers holding either the old or the new
// belief, so the atom builds the union of the two FIBs for its prefix and
// requires the predicate to hold on every resulting path that actually
// delivers traffic (reaches an external router). Paths that dead-end or
// cycle in the union graph drop the packet instead of misrouting it and
// are not judged. On the first step there is no previous state and the
// atom is vacuously true.
type TransientPath struct {
	Router    netid.RouterID
	Prefix    netid.Prefix
	Predicate PathPredicate
}

func (a TransientPath) Eval(net *netsim.Network, prev, cur FIB) bool {
	if prev == nil {
		return true
	}

	// union next-hops per router for this prefix
	union := make(map[netid.RouterID][]netid.RouterID)
	add := func(fib FIB) {
		for key, nh := range fib {
			if key.Prefix != a.Prefix {
				continue
			}
			hops := union[key.Router]
			dup := false
			for _, h := range hops {
				if h == nh {
					dup = true
					break
				}
			}
			if !dup {
				union[key.Router] = append(union[key.Router], nh)
			}
		}
	}
	add(prev)
	add(cur)
	for _, hops := range union {
		sort.Slice(hops, func(i, j int) bool { return hops[i] < hops[j] })
	}

	return a.walkHolds(net, union, []netid.RouterID{a.Router}, map[netid.RouterID]bool{a.Router: true})
}

// walkHolds explores every simple path from the tail of `path` through the
// union forwarding graph. It returns false iff some delivering path
// violates the predicate.
func (a TransientPath) walkHolds(net *netsim.Network, union map[netid.RouterID][]netid.RouterID, path []netid.RouterID, visited map[netid.RouterID]bool) bool {
	cur := path[len(path)-1]
	if _, ok := net.External(cur); ok {
		return a.Predicate == nil || a.Predicate.Holds(path)
	}
	for _, nh := range union[cur] {
		if visited[nh] {
			continue // transient micro-loop; traffic is dropped, not misrouted
		}
		visited[nh] = true
		ok := a.walkHolds(net, union, append(path, nh), visited)
		delete(visited, nh)
		if !ok {
			return false
		}
	}
	return true
}

func (a TransientPath) Prefixes() []netid.Prefix { return []netid.Prefix{a.Prefix} }

func (a TransientPath) String() string {
	return fmt.Sprintf("TransientPath(%d, %d, %s)", a.Router, a.Prefix, a.Predicate)
}
