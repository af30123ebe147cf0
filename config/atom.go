package config

import (
	"fmt"
	"reflect"

	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/routemap"
)

// Direction is the side of a router a route-map or static route applies to.
type Direction int

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "in"
	}
	return "out"
}

// Atom is a single typed configuration expression: IGP link weight, BGP
// session, BGP route-map rule, or static route. Every Atom is keyed by a
// natural domain key so a Configuration can enforce "at most one expression
// per key".
type Atom interface {
	// Key returns the domain key identifying the slot this atom occupies.
	// Two atoms with the same Key conflict under Insert/Remove semantics.
	Key() string
	// Equal reports whether two atoms (usually sharing the same Key) carry
	// identical values, used to validate Update.From against stored state.
	Equal(other Atom) bool
	fmt.Stringer
}

// LinkWeight is the IGP weight atom keyed by {source,target}.
type LinkWeight struct {
	Source netid.RouterID
	Target netid.RouterID
	Weight netid.Weight
}

func (a LinkWeight) Key() string { return fmt.Sprintf("link:%d->%d", a.Source, a.Target) }
func (a LinkWeight) String() string {
	return fmt.Sprintf("LinkWeight(%d->%d, w=%v)", a.Source, a.Target, a.Weight)
}
func (a LinkWeight) Equal(other Atom) bool {
	o, ok := other.(LinkWeight)
	return ok && a == o
}

// Session is the BGP-session atom. It configures BOTH endpoints of the
// adjacency: Router gets a session of Type towards Neighbor, and Neighbor
// (when internal) gets the reciprocal session back; a route-reflector
// client sees its reflector as an ordinary iBGP peer. The key is the
// unordered router pair, so at most one session exists between two routers
// and re-homing its type or direction is an Update, not an Insert.
type Session struct {
	Router   netid.RouterID
	Neighbor netid.RouterID
	Type     netid.SessionType
}

func (a Session) Key() string {
	lo, hi := a.Router, a.Neighbor
	if lo > hi {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("session:%d-%d", lo, hi)
}
func (a Session) String() string {
	return fmt.Sprintf("Session(%d<->%d, %s)", a.Router, a.Neighbor, a.Type)
}
func (a Session) Equal(other Atom) bool {
	o, ok := other.(Session)
	return ok && a == o
}

// RouteMapRule is a single ordered rule within a router's inbound or
// outbound route-map pipeline, keyed by {router,direction,order}. It embeds
// the actual match/set lists from package routemap so applying this atom
// installs a rule the router's route-map engine can evaluate directly.
type RouteMapRule struct {
	Router  netid.RouterID
	Dir     Direction
	Order   int
	Action  routemap.Action
	Matches []routemap.Match
	Sets    []routemap.Set
}

func (a RouteMapRule) Key() string {
	return fmt.Sprintf("routemap:%d:%s:%d", a.Router, a.Dir, a.Order)
}
func (a RouteMapRule) String() string {
	action := "allow"
	if a.Action == routemap.Deny {
		action = "deny"
	}
	return fmt.Sprintf("RouteMapRule(r=%d dir=%s order=%d action=%s matches=%d sets=%d)",
		a.Router, a.Dir, a.Order, action, len(a.Matches), len(a.Sets))
}

// Equal performs a structural comparison. Matches/Sets hold interface
// values over comparable concrete structs, so reflect.DeepEqual (rather
// than ==, which slices don't support at all) is the right tool here.
func (a RouteMapRule) Equal(other Atom) bool {
	o, ok := other.(RouteMapRule)
	if !ok {
		return false
	}
	return a.Router == o.Router && a.Dir == o.Dir && a.Order == o.Order && a.Action == o.Action &&
		reflect.DeepEqual(a.Matches, o.Matches) && reflect.DeepEqual(a.Sets, o.Sets)
}

// AsRule converts the atom into the routemap.Rule the router's route-map
// engine consumes.
func (a RouteMapRule) AsRule() routemap.Rule {
	return routemap.Rule{Order: a.Order, Action: a.Action, Matches: a.Matches, Sets: a.Sets}
}

// StaticRoute is keyed by {router,prefix} and supersedes the BGP next-hop
// for that prefix on that router.
type StaticRoute struct {
	Router  netid.RouterID
	Prefix  netid.Prefix
	NextHop netid.RouterID
}

func (a StaticRoute) Key() string { return fmt.Sprintf("static:%d:%d", a.Router, a.Prefix) }
func (a StaticRoute) String() string {
	return fmt.Sprintf("StaticRoute(r=%d p=%d -> %d)", a.Router, a.Prefix, a.NextHop)
}
func (a StaticRoute) Equal(other Atom) bool {
	o, ok := other.(StaticRoute)
	return ok && a == o
}
