package optimize

import (
	"errors"
	"fmt"

	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/hardpolicy"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/netsim"
	"github.com/netsynth/netsynth/softpolicy"
)

// Global is the exhaustive optimizer: it tries every permutation of the
// migration, validates each against the hard policy step by step, and
// returns the valid ordering with the minimum accumulated soft cost. On a
// deadline or stop it reports the best ordering found so far, if any.
type Global struct {
	run  *runner
	mods []config.Modifier
	// Permutations is the enumeration order; defaults to lexicographic.
	Permutations Permutator

	numSuccess int
	numFailed  int
}

// NewGlobal builds the exhaustive optimizer.
func NewGlobal(net *netsim.Network, mods []config.Modifier, hard *hardpolicy.Evaluator, soft softpolicy.SoftPolicy, opts ...Option) (*Global, error) {
	o := buildOptions(opts)
	run, err := newRunner(net, len(mods), hard, soft, o)
	if err != nil {
		return nil, err
	}
	return &Global{
		run:          run,
		mods:         append([]config.Modifier(nil), mods...),
		Permutations: NewLexicographic(len(mods)),
	}, nil
}

// Work enumerates every permutation and returns the cheapest valid
// ordering with its cost.
func (g *Global) Work() ([]config.Modifier, float64, error) {
	r := g.run

	var best []config.Modifier
	bestCost := 0.0
	haveBest := false

	for {
		perm, ok := g.Permutations.Next()
		if !ok {
			break
		}
		if err := r.checkAbort(); err != nil {
			return g.interrupted(best, bestCost, haveBest, err)
		}

		valid := true
		for _, idx := range perm {
			if _, err := r.applyStep([]config.Modifier{g.mods[idx]}); err != nil {
				if terminal(err) {
					r.rewindAll()
					return g.interrupted(best, bestCost, haveBest, err)
				}
				valid = false
				break
			}
		}

		if valid {
			g.numSuccess++
			cost := r.totalCost()
			if !haveBest || cost < bestCost {
				best = r.sequence()
				bestCost = cost
				haveBest = true
			}
		} else {
			g.numFailed++
		}
		r.rewindAll()
	}

	if !haveBest {
		return nil, 0, fmt.Errorf("%w: no permutation satisfies the hard policy", netid.ErrNoSafeOrdering)
	}
	return best, bestCost, nil
}

// interrupted converts a terminal error into the contract's shape: if a
// valid ordering was already found, the caller gets it wrapped in a
// GlobalOptimumNotFoundError; otherwise the terminal error stands.
func (g *Global) interrupted(best []config.Modifier, cost float64, haveBest bool, err error) ([]config.Modifier, float64, error) {
	if haveBest && (errors.Is(err, netid.ErrTimeout) || errors.Is(err, netid.ErrAborted)) {
		idx := make([]int, len(best))
		for i := range best {
			idx[i] = i
		}
		return best, cost, &netid.GlobalOptimumNotFoundError{BestSoFar: idx, Cost: cost}
	}
	return nil, 0, err
}

// Stats reports how many permutations validated and how many failed.
func (g *Global) Stats() (success, failed int) { return g.numSuccess, g.numFailed }

// NumStates reports the number of intermediate states visited.
func (g *Global) NumStates() int { return g.run.states }
