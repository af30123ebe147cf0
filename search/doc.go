// Package search orders the atomic modifiers of a migration so that every
// intermediate network state satisfies the hard policy. It provides a
// lexicographic permutation-tree search, a push-back tree search that
// rotates failing modifiers to the back of the queue, a dependency-group
// builder that discovers sets of modifiers only valid as an atomic block,
// and the composite TRTA strategy combining the latter two.
package search
