package routemap

import (
	"github.com/netsynth/netsynth/bgproute"
	"github.com/netsynth/netsynth/netid"
)

// MatchContext is everything a Match predicate can inspect about a route as
// it crosses a router boundary.
type MatchContext struct {
	Neighbor netid.RouterID
	Route    bgproute.Route
}

// Match is a single route-map match predicate.
type Match interface {
	Matches(ctx MatchContext) bool
}

// NeighborMatch matches on the advertising/receiving neighbor's id.
type NeighborMatch struct {
	Neighbor netid.RouterID
}

func (m NeighborMatch) Matches(ctx MatchContext) bool { return ctx.Neighbor == m.Neighbor }

// PrefixMatchMode selects how PrefixMatch compares against ctx.Route.Prefix.
type PrefixMatchMode int

const (
	PrefixEqual PrefixMatchMode = iota
	PrefixRange
	PrefixExclusiveRange
)

// PrefixMatch matches a prefix exactly, within an inclusive range
// [Low,High], or within an exclusive range (Low,High).
type PrefixMatch struct {
	Mode PrefixMatchMode
	// Prefix is used when Mode == PrefixEqual.
	Prefix netid.Prefix
	// Low/High are used when Mode == PrefixRange or PrefixExclusiveRange.
	Low, High netid.Prefix
}

func (m PrefixMatch) Matches(ctx MatchContext) bool {
	p := ctx.Route.Prefix
	switch m.Mode {
	case PrefixEqual:
		return p == m.Prefix
	case PrefixRange:
		return p >= m.Low && p <= m.High
	case PrefixExclusiveRange:
		return p > m.Low && p < m.High
	default:
		return false
	}
}

// ASPathContainsMatch matches if AS appears anywhere in the AS-path.
type ASPathContainsMatch struct {
	AS netid.ASNumber
}

func (m ASPathContainsMatch) Matches(ctx MatchContext) bool {
	for _, a := range ctx.Route.ASPath {
		if a == m.AS {
			return true
		}
	}
	return false
}

// ASPathLengthMode selects ASPathLengthMatch's comparison.
type ASPathLengthMode int

const (
	LengthEqual ASPathLengthMode = iota
	LengthRange
)

// ASPathLengthMatch matches on the AS-path's length, either exactly or
// within an inclusive [Low,High] range.
type ASPathLengthMatch struct {
	Mode      ASPathLengthMode
	Length    int // used when Mode == LengthEqual
	Low, High int // used when Mode == LengthRange
}

func (m ASPathLengthMatch) Matches(ctx MatchContext) bool {
	n := len(ctx.Route.ASPath)
	switch m.Mode {
	case LengthEqual:
		return n == m.Length
	case LengthRange:
		return n >= m.Low && n <= m.High
	default:
		return false
	}
}

// NextHopMatch matches on the route's current next-hop.
type NextHopMatch struct {
	NextHop netid.RouterID
}

func (m NextHopMatch) Matches(ctx MatchContext) bool { return ctx.Route.NextHop == m.NextHop }

// CommunityMatch matches on the route's community value.
type CommunityMatch struct {
	Community int
}

func (m CommunityMatch) Matches(ctx MatchContext) bool { return ctx.Route.Community == m.Community }

// matchAll reports whether every match in list agrees; a rule's
// match-list is an AND of its entries (an empty list always matches, which
// models a catch-all rule).
func matchAll(list []Match, ctx MatchContext) bool {
	for _, m := range list {
		if !m.Matches(ctx) {
			return false
		}
	}
	return true
}
