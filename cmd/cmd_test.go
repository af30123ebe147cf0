package cmd

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/examplenet"
)

func TestNewCostStats(t *testing.T) {
	s := newCostStats([]float64{3, 1, 2, 4})
	assert.InDelta(t, 2.5, s.Mean, 1e-9)
	assert.InDelta(t, 1, s.Min, 1e-9)
	assert.InDelta(t, 4, s.Max, 1e-9)
	assert.InDelta(t, 2.5, s.Median, 1e-9)

	odd := newCostStats([]float64{5, 1, 3})
	assert.InDelta(t, 3, odd.Median, 1e-9)

	empty := newCostStats(nil)
	assert.Zero(t, empty.Min)
	assert.Zero(t, empty.Max)
}

func TestBucketize(t *testing.T) {
	buckets := bucketize([]float64{0, 0.5, 1}, 2)
	require.Len(t, buckets, 2)
	assert.Equal(t, 2, buckets[0].Count)
	assert.Equal(t, 1, buckets[1].Count)

	single := bucketize([]float64{2, 2, 2}, 5)
	require.Len(t, single, 1)
	assert.Equal(t, 3, single[0].Count)

	assert.Nil(t, bucketize(nil, 3))
}

func TestInsertBefore_KeepsRemovesLast(t *testing.T) {
	sc, err := examplenet.SimpleNet()
	require.NoError(t, err)
	mods := sc.Modifiers()

	rng := rand.New(rand.NewSource(1))
	ordered := insertBefore(mods, rng)
	require.Len(t, ordered, len(mods))

	seenRemove := false
	for _, m := range ordered {
		if m.Kind == config.ModRemove {
			seenRemove = true
		} else {
			assert.False(t, seenRemove, "non-remove after a remove")
		}
	}
}

func TestRouterOrder_GroupsByRouter(t *testing.T) {
	sc, err := examplenet.SimpleNet()
	require.NoError(t, err)
	mods := sc.Modifiers()

	rng := rand.New(rand.NewSource(1))
	ordered := routerOrder(mods, rng)
	require.Len(t, ordered, len(mods))

	// contiguity: once a router's block ends it never reappears
	seen := make(map[int64]bool)
	var last int64 = -1
	for _, m := range ordered {
		r := int64(modRouter(m))
		if r != last {
			assert.False(t, seen[r], "router %d appears in two separate blocks", r)
			seen[r] = true
			last = r
		}
	}
}

func TestRunOrder_SafeOrderSucceeds(t *testing.T) {
	sc, err := examplenet.Firewall(false)
	require.NoError(t, err)
	mods := sc.Modifiers()

	res := runOrder(sc, mods)
	assert.True(t, res.success)
	assert.Equal(t, len(mods), res.steps)
	assert.Zero(t, res.severity)
}

func TestRunOrder_BadOrderAccumulatesSeverity(t *testing.T) {
	sc, err := examplenet.TwinEgress(false)
	require.NoError(t, err)
	mods := sc.Modifiers()

	// either fixed order passes through a forbidden intermediate state
	res := runOrder(sc, mods)
	assert.False(t, res.success)
	assert.Greater(t, res.severity, 0.0)
}

func TestResolveRun_YAMLOverridesFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"scenario: chain\nrepetitions: 3\niterations: 7\nseed: 99\ntime_budget: 2s\nworkers: 2\n",
	), 0o644))

	rc, err := resolveRun([]string{path})
	require.NoError(t, err)
	assert.Equal(t, "chain", rc.Scenario)
	assert.Equal(t, 3, rc.Reps)
	assert.Equal(t, 7, rc.Iterations)
	assert.Equal(t, int64(99), rc.Seed)
	assert.Equal(t, 2*time.Second, rc.TimeBudget)
	assert.Equal(t, 2, rc.Workers)

	sc, err := rc.build()
	require.NoError(t, err)
	assert.Equal(t, 4, sc.Net.NumRouters())
}

func TestResolveRun_UnknownScenario(t *testing.T) {
	rc := runConfig{Scenario: "nope"}
	_, err := rc.build()
	require.Error(t, err)
}

func TestWriteJSON_ToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	require.NoError(t, writeJSON(path, CostResult{Scenario: "simple"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"scenario": "simple"`)
}
