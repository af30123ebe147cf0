package routemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsynth/netsynth/bgproute"
	"github.com/netsynth/netsynth/netid"
)

func TestRouteMap_FirstMatchWins(t *testing.T) {
	rm := NewRouteMap(
		Rule{Order: 20, Action: Allow, Matches: []Match{NeighborMatch{Neighbor: 1}}, Sets: []Set{SetLocalPref{Value: 50}}},
		Rule{Order: 10, Action: Deny, Matches: []Match{NeighborMatch{Neighbor: 1}}},
	)

	route := bgproute.NewRoute(1, nil, 9)
	_, _, keep := rm.Evaluate(1, route, 0)
	assert.False(t, keep, "lower-order Deny rule should win")
}

func TestRouteMap_AllowAppliesSets(t *testing.T) {
	rm := NewRouteMap(
		Rule{Order: 1, Action: Allow, Matches: []Match{NeighborMatch{Neighbor: 1}}, Sets: []Set{
			SetLocalPref{Value: 200},
			SetIGPCost{Value: 42},
		}},
	)
	route := bgproute.NewRoute(1, nil, 9)
	out, cost, keep := rm.Evaluate(1, route, 5)
	require.True(t, keep)
	assert.Equal(t, 200, out.LocalPref)
	assert.Equal(t, netid.Weight(42), cost)
}

func TestRouteMap_NoMatchPassesThroughUnchanged(t *testing.T) {
	rm := NewRouteMap(Rule{Order: 1, Action: Deny, Matches: []Match{NeighborMatch{Neighbor: 99}}})
	route := bgproute.NewRoute(1, nil, 9)
	out, cost, keep := rm.Evaluate(1, route, 7)
	require.True(t, keep)
	assert.Equal(t, route, out)
	assert.Equal(t, netid.Weight(7), cost)
}

func TestPrefixMatch_Modes(t *testing.T) {
	ctx := MatchContext{Route: bgproute.NewRoute(10, nil, 1)}
	assert.True(t, PrefixMatch{Mode: PrefixEqual, Prefix: 10}.Matches(ctx))
	assert.True(t, PrefixMatch{Mode: PrefixRange, Low: 5, High: 10}.Matches(ctx))
	assert.False(t, PrefixMatch{Mode: PrefixExclusiveRange, Low: 5, High: 10}.Matches(ctx))
}

func TestASPathLengthMatch(t *testing.T) {
	ctx := MatchContext{Route: bgproute.NewRoute(1, []netid.ASNumber{1, 2, 3}, 1)}
	assert.True(t, ASPathLengthMatch{Mode: LengthEqual, Length: 3}.Matches(ctx))
	assert.True(t, ASPathLengthMatch{Mode: LengthRange, Low: 1, High: 5}.Matches(ctx))
	assert.False(t, ASPathLengthMatch{Mode: LengthEqual, Length: 2}.Matches(ctx))
}
