// Package hardpolicy evaluates a linear-temporal-logic formula whose atoms
// are path predicates over the forwarding-state history of a migrating
// network. The Evaluator is stepped once per applied modifier, can be
// undone in lockstep with the simulator's undo stack, and reports whether
// the formula can still hold on the trace observed so far.
package hardpolicy
