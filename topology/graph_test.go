package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsynth/netsynth/netid"
)

func chain(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	for i := netid.RouterID(1); i <= 4; i++ {
		g.AddRouter(i)
	}
	g.SetLinkWeight(1, 2, 1)
	g.SetLinkWeight(2, 1, 1)
	g.SetLinkWeight(2, 3, 1)
	g.SetLinkWeight(3, 2, 1)
	g.SetLinkWeight(3, 4, 1)
	g.SetLinkWeight(4, 3, 1)
	return g
}

func TestShortestPathsFrom_Chain(t *testing.T) {
	g := chain(t)
	table := g.ShortestPathsFrom(1)
	require.Contains(t, table, netid.RouterID(4))
	assert.Equal(t, netid.RouterID(2), table[4].NextHop)
	assert.Equal(t, netid.Weight(3), table[4].Cost)
}

func TestShortestPathsFrom_UnreachableOmitted(t *testing.T) {
	g := NewGraph()
	g.AddRouter(1)
	g.AddRouter(2)
	table := g.ShortestPathsFrom(1)
	_, ok := table[2]
	assert.False(t, ok)
}

func TestSetLinkWeight_AsymmetricAllowed(t *testing.T) {
	g := NewGraph()
	g.AddRouter(1)
	g.AddRouter(2)
	g.SetLinkWeight(1, 2, 5)
	g.SetLinkWeight(2, 1, 9)

	assert.Equal(t, netid.Weight(5), g.LinkWeight(1, 2))
	assert.Equal(t, netid.Weight(9), g.LinkWeight(2, 1))
}

func TestClone_Independent(t *testing.T) {
	g := chain(t)
	clone := g.Clone()
	clone.SetLinkWeight(1, 2, 100)

	assert.Equal(t, netid.Weight(1), g.LinkWeight(1, 2))
	assert.Equal(t, netid.Weight(100), clone.LinkWeight(1, 2))
}
