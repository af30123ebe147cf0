package examplenet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/optimize"
	"github.com/netsynth/netsynth/search"
	"github.com/netsynth/netsynth/softpolicy"
	"github.com/netsynth/netsynth/synth"
)

func TestSimpleNet_RelocationSynthesizes(t *testing.T) {
	sc, err := SimpleNet()
	require.NoError(t, err)

	mods := sc.Modifiers()
	require.NotEmpty(t, mods)

	seq, err := synth.Synthesize(sc.Net, sc.ConfigA, sc.ConfigB, sc.Evaluator())
	require.NoError(t, err)
	assert.Len(t, seq, len(mods), "the sequence carries the whole diff")
}

func TestSimpleNet_SequenceReplaysOnFreshClone(t *testing.T) {
	sc, err := SimpleNet()
	require.NoError(t, err)

	seq, err := synth.Synthesize(sc.Net, sc.ConfigA, sc.ConfigB, sc.Evaluator())
	require.NoError(t, err)

	replay := sc.Net.Clone()
	for _, m := range seq {
		require.NoError(t, replay.ApplyModifier(m))
	}
	assert.ElementsMatch(t, sc.ConfigB.All(), replay.CurrentConfig().All())

	// every router still reaches the prefix, now through the new egress
	for _, r := range sc.Routers {
		_, err := replay.GetRoute(r, sc.Prefixes[0])
		require.NoError(t, err, "router %d lost reachability after the migration", r)
	}
}

func TestSimpleNet_ParallelAgrees(t *testing.T) {
	sc, err := SimpleNet()
	require.NoError(t, err)

	seq, err := synth.SynthesizeParallel(sc.Net, sc.ConfigA, sc.ConfigB, sc.Evaluator(), synth.WithWorkers(2), synth.WithSeed(3))
	require.NoError(t, err)
	assert.Len(t, seq, len(sc.Modifiers()))
}

func TestChain_OptimizersAgreeOnOrdering(t *testing.T) {
	sc, err := Chain(2)
	require.NoError(t, err)

	shift := func() softpolicy.SoftPolicy {
		return softpolicy.NewMinimizeTrafficShift(sc.Prefixes)
	}

	_, globalCost, err := synth.Optimize(sc.Net, sc.ConfigA, sc.ConfigB, sc.Evaluator(), shift())
	require.NoError(t, err)
	assert.Greater(t, globalCost, 0.0)

	seq, trtaCost, err := synth.OptimizeTRTA(sc.Net, sc.ConfigA, sc.ConfigB, sc.Evaluator(), shift())
	require.NoError(t, err)
	assert.Len(t, seq, len(sc.Modifiers()))

	// the exhaustive optimum is a lower bound for the greedy descent
	assert.GreaterOrEqual(t, trtaCost+1e-9, globalCost)
}

func TestChain_PushBackScalesThroughTheChain(t *testing.T) {
	sc, err := Chain(5)
	require.NoError(t, err)

	st, err := search.NewPushBack(sc.Net, sc.Modifiers(), sc.Evaluator())
	require.NoError(t, err)
	seq, err := st.Work()
	require.NoError(t, err)
	assert.Len(t, seq, len(sc.Modifiers()))
}

func TestTwinEgress_PlainSwapHasNoSafeOrdering(t *testing.T) {
	sc, err := TwinEgress(false)
	require.NoError(t, err)
	mods := sc.Modifiers()

	tree, err := search.NewTree(sc.Net, mods, sc.Evaluator())
	require.NoError(t, err)
	_, err = tree.Work()
	require.ErrorIs(t, err, netid.ErrNoSafeOrdering)

	pb, err := search.NewPushBack(sc.Net, mods, sc.Evaluator())
	require.NoError(t, err)
	_, err = pb.Work()
	require.ErrorIs(t, err, netid.ErrNoSafeOrdering)

	g, err := optimize.NewGlobal(sc.Net, mods, sc.Evaluator(), softpolicy.NewMinimizeTrafficShift(sc.Prefixes))
	require.NoError(t, err)
	_, _, err = g.Work()
	require.ErrorIs(t, err, netid.ErrNoSafeOrdering)
}

func TestTwinEgress_GroupDiscoveryRescuesTheSwap(t *testing.T) {
	sc, err := TwinEgress(false)
	require.NoError(t, err)

	st, err := search.NewTRTA(sc.Net, sc.Modifiers(), sc.Evaluator())
	require.NoError(t, err)
	seq, err := st.Work()
	require.NoError(t, err)
	assert.Len(t, seq, 2, "the discovered group carries the whole swap")
}

func TestTwinEgress_DampedVariantOrdersStepwise(t *testing.T) {
	sc, err := TwinEgress(true)
	require.NoError(t, err)

	st, err := search.NewPushBack(sc.Net, sc.Modifiers(), sc.Evaluator())
	require.NoError(t, err)
	seq, err := st.Work()
	require.NoError(t, err)
	assert.Len(t, seq, 3)
}

func TestFirewall_SwitchoverWithTransientCheck(t *testing.T) {
	sc, err := Firewall(true)
	require.NoError(t, err)

	seq, err := synth.Synthesize(sc.Net, sc.ConfigA, sc.ConfigB, sc.Evaluator())
	require.NoError(t, err)
	assert.Len(t, seq, len(sc.Modifiers()))
}

func TestFirewall_SwitchoverWithoutTransientCheck(t *testing.T) {
	sc, err := Firewall(false)
	require.NoError(t, err)

	seq, err := synth.Synthesize(sc.Net, sc.ConfigA, sc.ConfigB, sc.Evaluator())
	require.NoError(t, err)
	assert.Len(t, seq, 2)
}

func TestCarousel_BuildsAndConverges(t *testing.T) {
	sc, err := Carousel()
	require.NoError(t, err)

	// the migration is exactly the two local-pref flips
	mods := sc.Modifiers()
	require.Len(t, mods, 2)
	for _, m := range mods {
		assert.Equal(t, config.ModUpdate, m.Kind)
	}

	// the initial state satisfies the policy, a prerequisite for every
	// strategy's constructor
	ev := sc.Evaluator()
	ev.SetNumMods(len(mods))
	require.NoError(t, ev.Step(sc.Net))
	ok, unsat := ev.Check()
	assert.True(t, ok, "unsatisfied atoms: %v", unsat)
}

func TestScenarios_DiffIsDeterministic(t *testing.T) {
	a, err := SimpleNet()
	require.NoError(t, err)
	b, err := SimpleNet()
	require.NoError(t, err)
	assert.Equal(t, a.Modifiers(), b.Modifiers())
}
