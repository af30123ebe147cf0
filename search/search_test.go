package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsynth/netsynth/bgproute"
	"github.com/netsynth/netsynth/cancel"
	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/hardpolicy"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/netsim"
)

// moveNet is the canonical two-router migration: r0 -- r1 with externals
// e0 (sessioned at r0) and e1 (not yet sessioned), both advertising prefix
// 10. The migration removes the r0--e0 session and inserts r1--e1. Safe
// order: insert before remove.
func moveNet(t *testing.T) (n *netsim.Network, r0, r1, e0, e1 netid.RouterID, mods []config.Modifier) {
	t.Helper()
	n = netsim.New()
	var err error
	r0, err = n.AddRouter()
	require.NoError(t, err)
	r1, err = n.AddRouter()
	require.NoError(t, err)
	e0, err = n.AddExternalRouter(65001)
	require.NoError(t, err)
	e1, err = n.AddExternalRouter(65002)
	require.NoError(t, err)

	require.NoError(t, n.AddLink(r0, r1, 1))
	require.NoError(t, n.AddLink(r1, r0, 1))

	cfg := config.NewConfiguration()
	require.NoError(t, cfg.Insert(config.Session{Router: r0, Neighbor: e0, Type: netid.EBGP}))
	require.NoError(t, cfg.Insert(config.Session{Router: r0, Neighbor: r1, Type: netid.IBGPPeer}))
	require.NoError(t, n.SetConfig(cfg))

	require.NoError(t, n.AdvertiseExternalRoute(e0, bgproute.NewRoute(10, []netid.ASNumber{65001}, e0)))
	require.NoError(t, n.AdvertiseExternalRoute(e1, bgproute.NewRoute(10, []netid.ASNumber{65002}, e1)))

	mods = []config.Modifier{
		{Kind: config.ModRemove, Expr: config.Session{Router: r0, Neighbor: e0, Type: netid.EBGP}},
		{Kind: config.ModInsert, Expr: config.Session{Router: r1, Neighbor: e1, Type: netid.EBGP}},
	}
	return n, r0, r1, e0, e1, mods
}

func reachability(routers ...netid.RouterID) *hardpolicy.Evaluator {
	return hardpolicy.NewEvaluator(hardpolicy.ReachabilityEverywhere(routers, []netid.Prefix{10}))
}

func TestTree_FindsInsertBeforeRemove(t *testing.T) {
	n, r0, r1, _, _, mods := moveNet(t)

	// Unordered keeps the given order, which starts with the failing remove.
	st, err := NewTree(n, mods, reachability(r0, r1), WithOrder(Unordered{}))
	require.NoError(t, err)

	seq, err := st.Work()
	require.NoError(t, err)
	require.Len(t, seq, 2)
	assert.Equal(t, config.ModInsert, seq[0].Kind)
	assert.Equal(t, config.ModRemove, seq[1].Kind)
	assert.Greater(t, st.NumStates(), 0)
}

func TestTree_DoesNotMutateCallersNetwork(t *testing.T) {
	n, r0, r1, _, _, mods := moveNet(t)

	st, err := NewTree(n, mods, reachability(r0, r1), WithOrder(Unordered{}))
	require.NoError(t, err)
	_, err = st.Work()
	require.NoError(t, err)

	// the caller's network still has the original session layout
	path, err := n.GetRoute(r1, 10)
	require.NoError(t, err)
	assert.Equal(t, []netid.RouterID{r1, r0, e0Of(n)}, path)
}

// e0Of recovers the first external id; moveNet allocates e0 before e1.
func e0Of(n *netsim.Network) netid.RouterID {
	return n.ExternalIDs()[0]
}

func TestPushBack_RotatesFailingModifier(t *testing.T) {
	n, r0, r1, _, _, mods := moveNet(t)

	st, err := NewPushBack(n, mods, reachability(r0, r1), WithOrder(Unordered{}))
	require.NoError(t, err)

	seq, err := st.Work()
	require.NoError(t, err)
	require.Len(t, seq, 2)
	assert.Equal(t, config.ModInsert, seq[0].Kind)
	assert.Equal(t, config.ModRemove, seq[1].Kind)
}

// onlyGroupPolicy forbids both the "no session anywhere" and the "both
// sessions at once" intermediate states: at all times, either r1 still
// routes through r0, or r0 already routes through r1. Neither single-step
// order can satisfy it, but the two modifiers applied as one atomic group
// can.
func onlyGroupPolicy(r0, r1 netid.RouterID) *hardpolicy.Evaluator {
	pol := hardpolicy.Policy{
		Atoms: []hardpolicy.Atom{
			hardpolicy.Reachable{Router: r1, Prefix: 10, Predicate: hardpolicy.Node{V: r0}},
			hardpolicy.Reachable{Router: r0, Prefix: 10, Predicate: hardpolicy.Node{V: r1}},
		},
		Formula: hardpolicy.Globally{Phi: hardpolicy.Or{Children: []hardpolicy.Formula{
			hardpolicy.Prop{Index: 0},
			hardpolicy.Prop{Index: 1},
		}}},
	}
	return hardpolicy.NewEvaluator(pol)
}

func TestPushBack_NoSafeOrderingWhenOnlyGroupWorks(t *testing.T) {
	n, r0, r1, _, _, mods := moveNet(t)

	st, err := NewPushBack(n, mods, onlyGroupPolicy(r0, r1), WithOrder(Unordered{}))
	require.NoError(t, err)

	_, err = st.Work()
	require.ErrorIs(t, err, netid.ErrNoSafeOrdering)
}

func TestTRTA_DiscoversDependencyGroup(t *testing.T) {
	n, r0, r1, _, _, mods := moveNet(t)

	st, err := NewTRTA(n, mods, onlyGroupPolicy(r0, r1), WithOrder(Unordered{}))
	require.NoError(t, err)

	seq, err := st.Work()
	require.NoError(t, err)
	assert.Len(t, seq, 2, "the discovered group carries both modifiers")
}

func TestTRTA_SolvesPlainOrderingToo(t *testing.T) {
	n, r0, r1, _, _, mods := moveNet(t)

	st, err := NewTRTA(n, mods, reachability(r0, r1), WithOrder(Unordered{}))
	require.NoError(t, err)

	seq, err := st.Work()
	require.NoError(t, err)
	require.Len(t, seq, 2)
	assert.Equal(t, config.ModInsert, seq[0].Kind)
}

func TestNaiveRandom_InsertBeforeRemoveSucceedsImmediately(t *testing.T) {
	n, r0, r1, _, _, mods := moveNet(t)

	st, err := NewNaiveRandom(n, mods, reachability(r0, r1))
	require.NoError(t, err)

	seq, err := st.Work()
	require.NoError(t, err)
	assert.Len(t, seq, 2)
}

func TestStrategies_InvalidInitialState(t *testing.T) {
	n, _, _, _, _, mods := moveNet(t)

	impossible := hardpolicy.NewEvaluator(hardpolicy.Policy{
		Formula: hardpolicy.Globally{Phi: hardpolicy.False{}},
	})

	_, err := NewTree(n, mods, impossible)
	require.ErrorIs(t, err, netid.ErrInvalidInitialState)
	_, err = NewPushBack(n, mods, impossible)
	require.ErrorIs(t, err, netid.ErrInvalidInitialState)
	_, err = NewTRTA(n, mods, impossible)
	require.ErrorIs(t, err, netid.ErrInvalidInitialState)
	_, err = NewNaiveRandom(n, mods, impossible)
	require.ErrorIs(t, err, netid.ErrInvalidInitialState)
}

func TestWork_ExpiredDeadlineIsTimeout(t *testing.T) {
	n, r0, r1, _, _, mods := moveNet(t)

	st, err := NewTRTA(n, mods, reachability(r0, r1), WithDeadline(time.Now().Add(-time.Second)))
	require.NoError(t, err)

	_, err = st.Work()
	require.ErrorIs(t, err, netid.ErrTimeout)
	assert.Zero(t, st.NumStates(), "no convergence may be attempted after the budget expired")
}

func TestWork_StopFlagAborts(t *testing.T) {
	n, r0, r1, _, _, mods := moveNet(t)

	// The opportunistic poll may miss a freshly raised flag for a few
	// iterations, but the definitive pre-termination read may not: a search
	// that would otherwise conclude NoSafeOrdering reports Aborted instead.
	stop := cancel.New()
	stop.Stop()
	st, err := NewPushBack(n, mods, onlyGroupPolicy(r0, r1), WithStop(stop), WithOrder(Unordered{}))
	require.NoError(t, err)

	_, err = st.Work()
	require.ErrorIs(t, err, netid.ErrAborted)
}

func TestWork_MaxBacktrackBounds(t *testing.T) {
	n, r0, r1, _, _, mods := moveNet(t)

	// With an impossible-without-groups policy the plain tree must unwind;
	// a zero-allowance ceiling converts that into ReachedMaxBacktrack...
	st, err := NewTree(n, mods, onlyGroupPolicy(r0, r1), WithOrder(Unordered{}), WithMaxBacktrack(0))
	require.NoError(t, err)
	_, err = st.Work()
	// ...except MaxBacktrack zero means unlimited, so this is NoSafeOrdering.
	require.ErrorIs(t, err, netid.ErrNoSafeOrdering)

	st, err = NewTree(n, mods, onlyGroupPolicy(r0, r1), WithOrder(Unordered{}), WithMaxBacktrack(1))
	require.NoError(t, err)
	_, err = st.Work()
	require.Error(t, err)
}

func TestModifierOrders(t *testing.T) {
	_, _, _, _, _, mods := moveNet(t)

	simple := append([]config.Modifier(nil), mods...)
	Simple{}.Sort(simple)
	assert.Equal(t, config.ModInsert, simple[0].Kind)
	assert.Equal(t, config.ModRemove, simple[1].Kind)

	unordered := append([]config.Modifier(nil), mods...)
	Unordered{}.Sort(unordered)
	assert.Equal(t, mods, unordered)
}
