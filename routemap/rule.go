package routemap

import (
	"sort"

	"github.com/netsynth/netsynth/bgproute"
	"github.com/netsynth/netsynth/netid"
)

// Action is the disposition of a route that matches a rule.
type Action int

const (
	Allow Action = iota
	Deny
)

// Set is a single route-attribute rewrite applied when a rule's match-list
// is satisfied and its action is Allow.
type Set interface {
	Apply(route *bgproute.Route, igpCost *netid.Weight)
}

type SetNextHop struct{ NextHop netid.RouterID }

func (s SetNextHop) Apply(r *bgproute.Route, _ *netid.Weight) { r.NextHop = s.NextHop }

type SetLocalPref struct{ Value int }

func (s SetLocalPref) Apply(r *bgproute.Route, _ *netid.Weight) { r.LocalPref = s.Value }

type SetMED struct{ Value int }

func (s SetMED) Apply(r *bgproute.Route, _ *netid.Weight) { r.MED = s.Value }

type SetCommunity struct{ Value int }

func (s SetCommunity) Apply(r *bgproute.Route, _ *netid.Weight) { r.Community = s.Value }

// SetIGPCost overrides the router's perceived IGP cost to the route's
// next-hop, as used by the decision process's tie-break #5.
type SetIGPCost struct{ Value netid.Weight }

func (s SetIGPCost) Apply(_ *bgproute.Route, cost *netid.Weight) { *cost = s.Value }

// Rule is a single ordered route-map clause.
type Rule struct {
	Order   int
	Action  Action
	Matches []Match
	Sets    []Set
}

// RouteMap is an ordered pipeline of Rules applied to a route crossing a
// router boundary.
type RouteMap struct {
	Rules []Rule
}

// NewRouteMap returns a RouteMap with rules sorted by Order ascending.
func NewRouteMap(rules ...Rule) *RouteMap {
	rm := &RouteMap{Rules: append([]Rule(nil), rules...)}
	rm.sortRules()
	return rm
}

func (rm *RouteMap) sortRules() {
	sort.SliceStable(rm.Rules, func(i, j int) bool { return rm.Rules[i].Order < rm.Rules[j].Order })
}

// AddRule inserts a rule and re-sorts by Order. Collision detection for a
// rule already occupying the same Order is the caller's responsibility
// (router.Router.ApplyLocalChange); this method is a pure data structure.
func (rm *RouteMap) AddRule(r Rule) {
	rm.Rules = append(rm.Rules, r)
	rm.sortRules()
}

// RemoveOrder deletes the rule at the given order, if any.
func (rm *RouteMap) RemoveOrder(order int) {
	for i, r := range rm.Rules {
		if r.Order == order {
			rm.Rules = append(rm.Rules[:i], rm.Rules[i+1:]...)
			return
		}
	}
}

// Evaluate runs route through the pipeline from a given neighbor, with the
// router's current IGP cost to route's next-hop. The first rule whose
// match-list is satisfied decides the outcome: Deny drops the route
// (keep=false); Allow applies its set-list (which may be empty, leaving the
// route unchanged) and returns the rewritten route. If no rule matches, the
// route passes through unmodified; an explicit route-map with no catch-all
// rule is treated as "no filtering configured" rather than an implicit deny
// (see DESIGN.md Open Question decisions).
func (rm *RouteMap) Evaluate(neighbor netid.RouterID, route bgproute.Route, igpCost netid.Weight) (out bgproute.Route, outCost netid.Weight, keep bool) {
	ctx := MatchContext{Neighbor: neighbor, Route: route}
	for _, rule := range rm.Rules {
		if !matchAll(rule.Matches, ctx) {
			continue
		}
		if rule.Action == Deny {
			return bgproute.Route{}, igpCost, false
		}
		rewritten := route.Clone()
		cost := igpCost
		for _, set := range rule.Sets {
			set.Apply(&rewritten, &cost)
		}
		return rewritten, cost, true
	}
	return route, igpCost, true
}
