// Package optimize carries the soft-policy-aware variants of the search
// strategies: the exhaustive GlobalOptimizer enumerates every permutation
// of the migration and returns the cheapest valid one, while OptimizerTRTA
// keeps TRTA's pruning and greedily descends the cheapest locally valid
// alternatives.
package optimize
