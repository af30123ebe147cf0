package bgproute

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/netsynth/netsynth/netid"
)

func baseEntry() RibEntry {
	return RibEntry{
		Route:       NewRoute(1, []netid.ASNumber{10, 20}, 5),
		Neighbor:    5,
		SessionType: netid.EBGP,
	}
}

func TestLess_TotalOrder(t *testing.T) {
	// Build a handful of distinguishable entries and verify Less gives a
	// total order: for every pair, exactly one of a<b, b<a, or a==b (under
	// the ordering) holds, and cmp(a,b) <=> !cmp(b,a) unless identical.
	entries := []RibEntry{
		{Route: NewRoute(1, nil, 1, WithLocalPref(200)), Neighbor: 1, SessionType: netid.EBGP},
		{Route: NewRoute(1, nil, 2, WithLocalPref(100)), Neighbor: 2, SessionType: netid.EBGP},
		{Route: NewRoute(1, []netid.ASNumber{1, 2, 3}, 3), Neighbor: 3, SessionType: netid.IBGPPeer},
		{Route: NewRoute(1, nil, 4, WithMED(5)), Neighbor: 4, SessionType: netid.IBGPClient, IGPCostToNext: 3},
	}
	for i := range entries {
		for j := range entries {
			if i == j {
				continue
			}
			lij := Less(entries[i], entries[j])
			lji := Less(entries[j], entries[i])
			assert.True(t, lij != lji, "expected exactly one of Less(%d,%d) and Less(%d,%d) to be true", i, j, j, i)
		}
	}
}

func TestLess_LocalPrefDominates(t *testing.T) {
	high := baseEntry()
	high.Route.LocalPref = 200
	low := baseEntry()
	low.Route.LocalPref = 50
	low.Route.ASPath = nil // shorter as-path, should still lose to higher local-pref

	assert.True(t, Less(high, low))
	assert.False(t, Less(low, high))
}

func TestLess_EBGPBeatsIBGPWhenEarlierCriteriaTie(t *testing.T) {
	a := baseEntry()
	a.SessionType = netid.EBGP
	b := baseEntry()
	b.SessionType = netid.IBGPPeer
	b.Neighbor = a.Neighbor // keep later tie-breaks equal

	assert.True(t, Less(a, b))
}

func TestBest_PicksMostPreferred(t *testing.T) {
	entries := []RibEntry{
		{Route: NewRoute(1, nil, 1, WithLocalPref(50)), Neighbor: 1},
		{Route: NewRoute(1, nil, 2, WithLocalPref(200)), Neighbor: 2},
		{Route: NewRoute(1, nil, 3, WithLocalPref(150)), Neighbor: 3},
	}
	idx := Best(entries)
	assert.Equal(t, 1, idx)
}

func TestBest_StableUnderShuffle(t *testing.T) {
	base := []RibEntry{
		{Route: NewRoute(1, nil, 1, WithLocalPref(50)), Neighbor: 1},
		{Route: NewRoute(1, nil, 2, WithLocalPref(200)), Neighbor: 2},
		{Route: NewRoute(1, nil, 3, WithLocalPref(150)), Neighbor: 3},
	}
	want := base[1]

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 5; i++ {
		shuffled := append([]RibEntry(nil), base...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := shuffled[Best(shuffled)]
		assert.Equal(t, want.Neighbor, got.Neighbor)
	}
}
