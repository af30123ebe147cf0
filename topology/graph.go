package topology

import (
	"math"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/netsynth/netsynth/netid"
)

// Graph is a directed graph of routers with per-edge IGP link weights.
// Edges are kept symmetric only by convention; the two directions are
// independent gonum edges, so asymmetric weights are representable.
type Graph struct {
	g *simple.WeightedDirectedGraph
}

// NewGraph returns an empty topology graph.
func NewGraph() *Graph {
	return &Graph{g: simple.NewWeightedDirectedGraph(0, math.Inf(1))}
}

func nodeOf(id netid.RouterID) simple.Node { return simple.Node(int64(id)) }

// AddRouter registers id as a node. It is a no-op if id is already present.
func (g *Graph) AddRouter(id netid.RouterID) {
	if g.g.Node(int64(id)) == nil {
		g.g.AddNode(nodeOf(id))
	}
}

// HasRouter reports whether id has been registered.
func (g *Graph) HasRouter(id netid.RouterID) bool {
	return g.g.Node(int64(id)) != nil
}

// SetLinkWeight adds or updates the directed edge source->target with the
// given weight. Both endpoints must already be registered via AddRouter.
func (g *Graph) SetLinkWeight(source, target netid.RouterID, weight netid.Weight) {
	g.g.SetWeightedEdge(g.g.NewWeightedEdge(nodeOf(source), nodeOf(target), float64(weight)))
}

// RemoveLink deletes the directed edge source->target, if present.
func (g *Graph) RemoveLink(source, target netid.RouterID) {
	g.g.RemoveEdge(int64(source), int64(target))
}

// LinkWeight returns the current weight of source->target, or
// netid.Infinity if no such edge exists.
func (g *Graph) LinkWeight(source, target netid.RouterID) netid.Weight {
	e := g.g.WeightedEdge(int64(source), int64(target))
	if e == nil {
		return netid.Infinity
	}
	return netid.Weight(e.Weight())
}

// NumLinks reports the number of directed edges currently present.
func (g *Graph) NumLinks() int {
	return g.g.Edges().Len()
}

// Clone returns an independent copy of the graph.
func (g *Graph) Clone() *Graph {
	out := NewGraph()
	nodes := g.g.Nodes()
	for nodes.Next() {
		out.AddRouter(netid.RouterID(nodes.Node().ID()))
	}
	edges := g.g.WeightedEdges()
	for edges.Next() {
		e := edges.WeightedEdge()
		out.SetLinkWeight(netid.RouterID(e.From().ID()), netid.RouterID(e.To().ID()), netid.Weight(e.Weight()))
	}
	return out
}

// IGPEntry is one row of a router's IGP shortest-path table: the next-hop
// neighbor on the shortest path towards a destination, and the total cost.
type IGPEntry struct {
	NextHop netid.RouterID
	Cost    netid.Weight
}

// ShortestPathsFrom computes the IGP next-hop/cost table for `from` via
// Dijkstra over the current link weights. Unreachable destinations are
// omitted from the result.
func (g *Graph) ShortestPathsFrom(from netid.RouterID) map[netid.RouterID]IGPEntry {
	result := make(map[netid.RouterID]IGPEntry)
	if !g.HasRouter(from) {
		return result
	}

	tree := path.DijkstraFrom(nodeOf(from), g.g)
	nodes := g.g.Nodes()
	for nodes.Next() {
		dst := netid.RouterID(nodes.Node().ID())
		if dst == from {
			continue
		}
		nodePath, weight := tree.To(int64(dst))
		if len(nodePath) < 2 || math.IsInf(weight, 1) {
			continue // unreachable
		}
		result[dst] = IGPEntry{
			NextHop: netid.RouterID(nodePath[1].ID()),
			Cost:    netid.Weight(weight),
		}
	}
	return result
}
