package parallel

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
)

// moveNet: r0 -- r1, e0 sessioned at r0, e1 not yet sessioned. When
// advertise1 is true, e1 advertises prefix 10 and the migration is
// solvable; when false, the target state black-holes and no ordering can
// be safe.
func moveNet(t *testing.T, advertise1 bool) (n *netsim.Network, r0, r1 netid.RouterID, mods []config.Modifier) {
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

	cfg := config.NewConfiguration()
	require.NoError(t, cfg.Insert(config.Session{Router: r0, Neighbor: e0, Type: netid.EBGP}))
	require.NoError(t, cfg.Insert(config.Session{Router: r0, Neighbor: r1, Type: netid.IBGPPeer}))
	require.NoError(t, n.SetConfig(cfg))

	require.NoError(t, n.AdvertiseExternalRoute(e0, bgproute.NewRoute(10, []netid.ASNumber{65001}, e0)))
	if advertise1 {
		require.NoError(t, n.AdvertiseExternalRoute(e1, bgproute.NewRoute(10, []netid.ASNumber{65002}, e1)))
	}

	mods = []config.Modifier{
		{Kind: config.ModRemove, Expr: config.Session{Router: r0, Neighbor: e0, Type: netid.EBGP}},
		{Kind: config.ModInsert, Expr: config.Session{Router: r1, Neighbor: e1, Type: netid.EBGP}},
	}
	return n, r0, r1, mods
}

func reachability(routers ...netid.RouterID) *hardpolicy.Evaluator {
	return hardpolicy.NewEvaluator(hardpolicy.ReachabilityEverywhere(routers, []netid.Prefix{10}))
}

func TestRun_FirstSuccessWins(t *testing.T) {
	n, r0, r1, mods := moveNet(t, true)

	seq, err := Run(n, mods, reachability(r0, r1), WithWorkers(4), WithSeed(7))
	require.NoError(t, err)
	require.Len(t, seq, 2)
	assert.Equal(t, config.ModInsert, seq[0].Kind)
	assert.Equal(t, config.ModRemove, seq[1].Kind)
}

func TestRun_SingleWorker(t *testing.T) {
	n, r0, r1, mods := moveNet(t, true)

	seq, err := Run(n, mods, reachability(r0, r1), WithWorkers(1))
	require.NoError(t, err)
	assert.Len(t, seq, 2)
}

func TestRun_AllWorkersFail(t *testing.T) {
	n, r0, r1, mods := moveNet(t, false)

	_, err := Run(n, mods, reachability(r0, r1), WithWorkers(3))
	require.ErrorIs(t, err, netid.ErrNoSafeOrdering)
}

func TestRun_ExpiredDeadline(t *testing.T) {
	n, r0, r1, mods := moveNet(t, true)

	_, err := Run(n, mods, reachability(r0, r1), WithWorkers(2), WithDeadline(time.Now().Add(-time.Second)))
	require.ErrorIs(t, err, netid.ErrTimeout)
}

func TestRun_DoesNotMutateCallersNetwork(t *testing.T) {
	n, _, r1, mods := moveNet(t, true)

	_, err := Run(n, mods, reachability(r1), WithWorkers(2))
	require.NoError(t, err)

	// r1 still routes through r0 towards e0
	path, err := n.GetRoute(r1, 10)
	require.NoError(t, err)
	assert.Len(t, path, 3)
}
