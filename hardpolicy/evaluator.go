package hardpolicy

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/netsim"
)

// Policy bundles the propositional atoms with the LTL formula over their
// indices. It is immutable; every worker builds its own Evaluator from it.
type Policy struct {
	Atoms   []Atom
	Formula Formula
}

// ReachabilityEverywhere is the most common hard policy: every router can
// always reach every prefix. The formula is Globally(And(all atoms)).
func ReachabilityEverywhere(routers []netid.RouterID, prefixes []netid.Prefix) Policy {
	var atoms []Atom
	var props []Formula
	for _, r := range routers {
		for _, p := range prefixes {
			props = append(props, Prop{Index: len(atoms)})
			atoms = append(atoms, Reachable{Router: r, Prefix: p})
		}
	}
	return Policy{Atoms: atoms, Formula: Globally{Phi: And{Children: props}}}
}

// Evaluator maintains the truth history of a policy's atoms across a
// stepwise migration and answers whether the formula can still hold.
type Evaluator struct {
	policy   Policy
	watch    []int // atom indices the formula references, ascending
	prefixes []netid.Prefix

	nMods   int
	history [][]bool
	fibs    []FIB

	log *logrus.Entry
}

// NewEvaluator builds an evaluator for the policy. SetNumMods must be
// called once, before the first Step, with the migration length.
func NewEvaluator(p Policy) *Evaluator {
	watchSet := make(map[int]bool)
	p.Formula.atomIndices(watchSet)
	watch := make([]int, 0, len(watchSet))
	for i := range watchSet {
		watch = append(watch, i)
	}
	sort.Ints(watch)

	prefixSet := make(map[netid.Prefix]bool)
	for _, a := range p.Atoms {
		for _, px := range a.Prefixes() {
			prefixSet[px] = true
		}
	}
	prefixes := make([]netid.Prefix, 0, len(prefixSet))
	for px := range prefixSet {
		prefixes = append(prefixes, px)
	}
	sort.Slice(prefixes, func(i, j int) bool { return prefixes[i] < prefixes[j] })

	return &Evaluator{
		policy:   p,
		watch:    watch,
		prefixes: prefixes,
		nMods:    -1,
		log:      logrus.WithField("component", "hardpolicy"),
	}
}

// SetNumMods fixes the migration length: the trace the formula is judged
// against has nMods+1 states (the initial state plus one per modifier).
func (e *Evaluator) SetNumMods(n int) { e.nMods = n }

// NumMods returns the configured migration length, or -1 if unset.
func (e *Evaluator) NumMods() int { return e.nMods }

// Step evaluates every atom against the network's current forwarding state
// and appends the valuation to the history. It fails if SetNumMods was
// never called or the history already spans the full trace.
func (e *Evaluator) Step(net *netsim.Network) error {
	if e.nMods < 0 {
		return fmt.Errorf("%w: migration length not set", netid.ErrHistory)
	}
	if len(e.history) > e.nMods {
		return fmt.Errorf("%w: history already has %d states for %d modifiers", netid.ErrHistory, len(e.history), e.nMods)
	}

	cur := SnapshotFIB(net, e.prefixes)
	var prev FIB
	if len(e.fibs) > 0 {
		prev = e.fibs[len(e.fibs)-1]
	}

	vals := make([]bool, len(e.policy.Atoms))
	for i, a := range e.policy.Atoms {
		vals[i] = a.Eval(net, prev, cur)
	}
	e.history = append(e.history, vals)
	e.fibs = append(e.fibs, cur)
	return nil
}

// Undo pops the most recent step. It fails on an empty history.
func (e *Evaluator) Undo() error {
	if len(e.history) == 0 {
		return fmt.Errorf("%w: nothing to undo", netid.ErrHistory)
	}
	e.history = e.history[:len(e.history)-1]
	e.fibs = e.fibs[:len(e.fibs)-1]
	return nil
}

// HistoryLen reports the number of successful steps since the last Reset.
func (e *Evaluator) HistoryLen() int { return len(e.history) }

// Check evaluates the formula over the observed history using optimistic
// finite-trace semantics: suffix states not yet observed may still turn
// out any way, so the verdict is false only when no completion of the
// trace can satisfy the formula. On failure it also reports the indices of
// the watched atoms that were false at the most recent step.
func (e *Evaluator) Check() (bool, []int) {
	t := trace{history: e.history, total: e.nMods + 1}
	if e.policy.Formula.eval(t, 0) != vFalse {
		return true, nil
	}

	var unsatisfied []int
	if len(e.history) > 0 {
		last := e.history[len(e.history)-1]
		for _, i := range e.watch {
			if !last[i] {
				unsatisfied = append(unsatisfied, i)
			}
		}
	}
	e.log.WithFields(logrus.Fields{
		"step":        len(e.history),
		"unsatisfied": unsatisfied,
	}).Debug("hard policy violated")
	return false, unsatisfied
}

// Reset discards the history; the evaluator is ready for a fresh migration
// of the same length.
func (e *Evaluator) Reset() {
	e.history = nil
	e.fibs = nil
}

// Clone returns an independent evaluator with the same policy, migration
// length, and history.
func (e *Evaluator) Clone() *Evaluator {
	out := NewEvaluator(e.policy)
	out.nMods = e.nMods
	out.history = make([][]bool, len(e.history))
	for i, h := range e.history {
		out.history[i] = append([]bool(nil), h...)
	}
	out.fibs = append([]FIB(nil), e.fibs...)
	return out
}

// Atoms exposes the policy's atoms, for reporting.
func (e *Evaluator) Atoms() []Atom { return e.policy.Atoms }
