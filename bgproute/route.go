package bgproute

import (
	"fmt"

	"github.com/netsynth/netsynth/netid"
)

// Defaults applied to a Route's optional attributes.
const (
	DefaultLocalPref = 100
	DefaultMED       = 0
	DefaultCommunity = 0
)

// Route is a BGP route: (prefix, AS-path, next-hop, local-pref, MED,
// community). NewRoute applies standard defaults so every Route value in
// the system already carries effective attributes; there is no separate
// "unset" representation to thread through comparisons.
type Route struct {
	Prefix    netid.Prefix
	ASPath    []netid.ASNumber
	NextHop   netid.RouterID
	LocalPref int
	MED       int
	Community int
}

// RouteOption customizes a Route built by NewRoute.
type RouteOption func(*Route)

func WithLocalPref(v int) RouteOption { return func(r *Route) { r.LocalPref = v } }
func WithMED(v int) RouteOption       { return func(r *Route) { r.MED = v } }
func WithCommunity(v int) RouteOption { return func(r *Route) { r.Community = v } }

// NewRoute builds a Route with spec-mandated defaults, overridden by opts.
func NewRoute(prefix netid.Prefix, asPath []netid.ASNumber, nextHop netid.RouterID, opts ...RouteOption) Route {
	r := Route{
		Prefix:    prefix,
		ASPath:    append([]netid.ASNumber(nil), asPath...),
		NextHop:   nextHop,
		LocalPref: DefaultLocalPref,
		MED:       DefaultMED,
		Community: DefaultCommunity,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Clone returns a Route sharing no slice backing with r.
func (r Route) Clone() Route {
	r.ASPath = append([]netid.ASNumber(nil), r.ASPath...)
	return r
}

func (r Route) String() string {
	return fmt.Sprintf("Route(p=%d path=%v nh=%d lp=%d med=%d comm=%d)",
		r.Prefix, r.ASPath, r.NextHop, r.LocalPref, r.MED, r.Community)
}

// RibEntry is a Route together with the metadata the decision process needs
// that is not part of the wire-visible route attributes: who advertised it,
// over what kind of session, and at what IGP cost the current router
// reaches its next-hop.
type RibEntry struct {
	Route         Route
	Neighbor      netid.RouterID    // advertising neighbor
	SessionType   netid.SessionType // eBGP / iBGP-peer / iBGP-client this was learned over
	IGPCostToNext netid.Weight      // this router's IGP cost to Route.NextHop
}

func (e RibEntry) isEBGP() bool { return e.SessionType == netid.EBGP }

// Less reports whether a is strictly preferred over b under the decision
// process's total order. It is used directly as a sort.Slice/sort.SliceStable
// Less function.
func Less(a, b RibEntry) bool {
	if a.Route.LocalPref != b.Route.LocalPref {
		return a.Route.LocalPref > b.Route.LocalPref // 1: higher local-pref wins
	}
	if la, lb := len(a.Route.ASPath), len(b.Route.ASPath); la != lb {
		return la < lb // 2: shorter as-path wins
	}
	if a.Route.MED != b.Route.MED {
		// 3: lower MED wins unconditionally, regardless of neighboring AS;
		// real BGP only compares MED within the same neighboring AS, but this
		// model has no deterministic way to group RIB-IN entries by origin AS
		// without assuming properties of ASPath this system doesn't guarantee.
		return a.Route.MED < b.Route.MED
	}
	if a.isEBGP() != b.isEBGP() {
		return a.isEBGP() // 4: eBGP-learned beats iBGP-learned
	}
	if a.IGPCostToNext != b.IGPCostToNext {
		return a.IGPCostToNext < b.IGPCostToNext // 5: lower IGP cost to next-hop wins
	}
	if a.Route.NextHop != b.Route.NextHop {
		return a.Route.NextHop < b.Route.NextHop // 6: lower next-hop router id wins
	}
	return a.Neighbor < b.Neighbor // 7: lower advertising-neighbor id wins
}

// Best returns the index of the most-preferred entry in entries, or -1 if
// entries is empty.
func Best(entries []RibEntry) int {
	if len(entries) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(entries); i++ {
		if Less(entries[i], entries[best]) {
			best = i
		}
	}
	return best
}
