// Package topology owns the directed, weighted graph backing a network's
// IGP and computes per-router shortest-path (next-hop, cost) tables via
// gonum's graph/path Dijkstra implementation.
package topology
