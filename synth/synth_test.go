package synth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsynth/netsynth/bgproute"
	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/hardpolicy"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/netsim"
	"github.com/netsynth/netsynth/softpolicy"
)

// buildMove returns a configured two-router network plus the source and
// target configurations of the "move the eBGP session" migration.
func buildMove(t *testing.T) (n *netsim.Network, a, b *config.Configuration, r0, r1 netid.RouterID) {
	t.Helper()
	n = netsim.New()
	var err error
	r0, err = n.AddRouter()
	require.NoError(t, err)
	r1, err = n.AddRouter()
	require.NoError(t, err)
	e0, err := n.AddExternalRouter(65001)
	require.NoError(t, err)
	e1, err := n.AddExternalRouter(65002)
	require.NoError(t, err)

	require.NoError(t, n.AddLink(r0, r1, 1))
	require.NoError(t, n.AddLink(r1, r0, 1))

	a = config.NewConfiguration()
	require.NoError(t, a.Insert(config.Session{Router: r0, Neighbor: e0, Type: netid.EBGP}))
	require.NoError(t, a.Insert(config.Session{Router: r0, Neighbor: r1, Type: netid.IBGPPeer}))

	b = config.NewConfiguration()
	require.NoError(t, b.Insert(config.Session{Router: r1, Neighbor: e1, Type: netid.EBGP}))
	require.NoError(t, b.Insert(config.Session{Router: r0, Neighbor: r1, Type: netid.IBGPPeer}))

	require.NoError(t, n.SetConfig(a))
	require.NoError(t, n.AdvertiseExternalRoute(e0, bgproute.NewRoute(10, []netid.ASNumber{65001}, e0)))
	require.NoError(t, n.AdvertiseExternalRoute(e1, bgproute.NewRoute(10, []netid.ASNumber{65002}, e1)))
	return n, a, b, r0, r1
}

func reachability(routers ...netid.RouterID) *hardpolicy.Evaluator {
	return hardpolicy.NewEvaluator(hardpolicy.ReachabilityEverywhere(routers, []netid.Prefix{10}))
}

func TestSynthesize_ReturnsFullDiffInSafeOrder(t *testing.T) {
	n, a, b, r0, r1 := buildMove(t)

	seq, err := Synthesize(n, a, b, reachability(r0, r1))
	require.NoError(t, err)
	require.Len(t, seq, len(config.Diff(a, b)))
	assert.Equal(t, config.ModInsert, seq[0].Kind)
	assert.Equal(t, config.ModRemove, seq[1].Kind)
}

func TestSynthesize_AppliedSequenceReachesTarget(t *testing.T) {
	n, a, b, r0, r1 := buildMove(t)

	seq, err := Synthesize(n, a, b, reachability(r0, r1))
	require.NoError(t, err)

	// replay the sequence on the caller's network: every step converges,
	// and the final configuration equals b
	for _, m := range seq {
		require.NoError(t, n.ApplyModifier(m))
	}
	assert.ElementsMatch(t, b.All(), n.CurrentConfig().All())

	path, err := n.GetRoute(r0, 10)
	require.NoError(t, err)
	assert.Contains(t, path, r1)
}

func TestSynthesize_IdenticalConfigsRefused(t *testing.T) {
	n, a, _, r0, r1 := buildMove(t)

	_, err := Synthesize(n, a, a.Clone(), reachability(r0, r1))
	require.ErrorIs(t, err, netid.ErrInvalidInitialState)
}

func TestSynthesize_EmptyNetworkRefused(t *testing.T) {
	n := netsim.New()
	a := config.NewConfiguration()
	b := config.NewConfiguration()
	require.NoError(t, b.Insert(config.LinkWeight{Source: 0, Target: 1, Weight: 1}))

	_, err := Synthesize(n, a, b, reachability())
	require.ErrorIs(t, err, netid.ErrInvalidInitialState)
}

func TestSynthesize_ZeroTimeBudgetIsTimeout(t *testing.T) {
	n, a, b, r0, r1 := buildMove(t)

	_, err := Synthesize(n, a, b, reachability(r0, r1), WithTimeBudget(0))
	require.ErrorIs(t, err, netid.ErrTimeout)
}

func TestSynthesizeParallel_Succeeds(t *testing.T) {
	n, a, b, r0, r1 := buildMove(t)

	seq, err := SynthesizeParallel(n, a, b, reachability(r0, r1), WithWorkers(3), WithSeed(42))
	require.NoError(t, err)
	assert.Len(t, seq, 2)
}

func TestOptimize_ReturnsSequenceAndCost(t *testing.T) {
	n, a, b, r0, r1 := buildMove(t)

	seq, cost, err := Optimize(n, a, b, reachability(r0, r1), softpolicy.NewMinimizeTrafficShift([]netid.Prefix{10}))
	require.NoError(t, err)
	require.Len(t, seq, 2)
	assert.InDelta(t, 1.0, cost, 1e-9)
}

func TestOptimizeTRTA_WithinOnePercentOfGlobal(t *testing.T) {
	n, a, b, r0, r1 := buildMove(t)

	_, globalCost, err := Optimize(n, a, b, reachability(r0, r1), softpolicy.NewMinimizeTrafficShift([]netid.Prefix{10}))
	require.NoError(t, err)

	_, cost, err := OptimizeTRTA(n, a, b, reachability(r0, r1), softpolicy.NewMinimizeTrafficShift([]netid.Prefix{10}))
	require.NoError(t, err)
	assert.InDelta(t, globalCost, cost, globalCost*0.01+1e-9)
}

func TestSynthesize_LoadsConfigAOntoBareTopology(t *testing.T) {
	n := netsim.New()
	r0, err := n.AddRouter()
	require.NoError(t, err)
	r1, err := n.AddRouter()
	require.NoError(t, err)
	e0, err := n.AddExternalRouter(65001)
	require.NoError(t, err)
	require.NoError(t, n.AddLink(r0, r1, 1))
	require.NoError(t, n.AddLink(r1, r0, 1))

	a := config.NewConfiguration()
	require.NoError(t, a.Insert(config.Session{Router: r0, Neighbor: e0, Type: netid.EBGP}))
	b := a.Clone()
	require.NoError(t, b.Insert(config.Session{Router: r0, Neighbor: r1, Type: netid.IBGPPeer}))

	// no SetConfig, no advertisements: the synthesizer loads configA itself;
	// with nothing advertised there is nothing to reach, so the policy is
	// the empty conjunction
	empty := hardpolicy.NewEvaluator(hardpolicy.Policy{Formula: hardpolicy.Globally{Phi: hardpolicy.And{}}})
	seq, err := Synthesize(n, a, b, empty)
	require.NoError(t, err)
	assert.Len(t, seq, 1)
	assert.False(t, n.Configured(), "the caller's network stays untouched")
}

func TestSynthesize_TimeBudgetInFutureSucceeds(t *testing.T) {
	n, a, b, r0, r1 := buildMove(t)

	seq, err := Synthesize(n, a, b, reachability(r0, r1), WithTimeBudget(time.Minute))
	require.NoError(t, err)
	assert.Len(t, seq, 2)
}
