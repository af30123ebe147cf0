package optimize

import (
	"fmt"
	"sort"

	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/hardpolicy"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/netsim"
	"github.com/netsynth/netsynth/softpolicy"
)

// TRTA is the cost-aware counterpart of search.TRTA: at every depth it
// trial-applies each pending unit, orders the valid ones by the
// incremental soft cost they would incur, and descends the cheapest first.
// When no pending unit is valid it falls back to dependency-group
// discovery, exactly like the hard-policy-only strategy. It is not
// exhaustive: it returns the first complete ordering its cheapest-first
// descent reaches.
type TRTA struct {
	run   *runner
	units [][]config.Modifier
}

// NewTRTA builds the cost-aware TRTA optimizer.
func NewTRTA(net *netsim.Network, mods []config.Modifier, hard *hardpolicy.Evaluator, soft softpolicy.SoftPolicy, opts ...Option) (*TRTA, error) {
	o := buildOptions(opts)
	run, err := newRunner(net, len(mods), hard, soft, o)
	if err != nil {
		return nil, err
	}
	units := make([][]config.Modifier, len(mods))
	for i, m := range mods {
		units[i] = []config.Modifier{m}
	}
	return &TRTA{run: run, units: units}, nil
}

// otFrame is one depth of the descent: the pending units, the feasible
// ones ordered by trial cost, and the next to explore.
type otFrame struct {
	pending [][]config.Modifier
	order   []int
	next    int
}

type costedChild struct {
	idx  int
	cost float64
}

// newFrame trial-applies every pending unit to rank the feasible children
// by incremental cost.
func (t *TRTA) newFrame(pending [][]config.Modifier) (otFrame, error) {
	r := t.run
	var children []costedChild
	for i, u := range pending {
		cost, err := r.applyStep(u)
		if err != nil {
			if terminal(err) {
				return otFrame{}, err
			}
			continue
		}
		r.undoStep()
		children = append(children, costedChild{idx: i, cost: cost})
	}
	sort.SliceStable(children, func(a, b int) bool { return children[a].cost < children[b].cost })

	order := make([]int, len(children))
	for i, c := range children {
		order[i] = c.idx
	}
	return otFrame{pending: pending, order: order}, nil
}

// Work runs the descent and returns the ordering it reached with its
// accumulated cost.
func (t *TRTA) Work() ([]config.Modifier, float64, error) {
	units := t.units
restart:
	for {
		seq, cost, augmented, err := t.descend(units)
		if err != nil {
			return nil, 0, err
		}
		if augmented != nil {
			units = augmented
			continue restart
		}
		return seq, cost, nil
	}
}

func (t *TRTA) descend(units [][]config.Modifier) ([]config.Modifier, float64, [][]config.Modifier, error) {
	r := t.run
	root, err := t.newFrame(units)
	if err != nil {
		return nil, 0, nil, err
	}
	frames := []otFrame{root}

	for {
		if err := r.checkAbort(); err != nil {
			return nil, 0, nil, err
		}
		f := &frames[len(frames)-1]

		if len(f.pending) == 0 {
			return r.sequence(), r.totalCost(), nil, nil
		}

		if f.next >= len(f.order) {
			// no (remaining) feasible child: look for a dependency group
			group, found, err := t.discoverGroup(f.pending)
			if err != nil {
				return nil, 0, nil, err
			}
			if found {
				r.rewindAll()
				return nil, 0, mergeUnits(units, group), nil
			}
			frames = frames[:len(frames)-1]
			if len(frames) == 0 {
				if err := r.checkAbortNow(); err != nil {
					return nil, 0, nil, err
				}
				return nil, 0, nil, fmt.Errorf("%w: cost-ordered descent exhausted", netid.ErrNoSafeOrdering)
			}
			r.undoStep()
			continue
		}

		idx := f.order[f.next]
		f.next++
		if _, err := r.applyStep(f.pending[idx]); err != nil {
			if terminal(err) {
				return nil, 0, nil, err
			}
			continue
		}

		child, err := t.newFrame(withoutUnit(f.pending, idx))
		if err != nil {
			return nil, 0, nil, err
		}
		frames = append(frames, child)
	}
}

// discoverGroup mirrors the hard-policy searcher's builder: smallest
// subsets first, every ordering of each, applied as one atomic step.
func (t *TRTA) discoverGroup(pending [][]config.Modifier) ([]config.Modifier, bool, error) {
	max := t.run.opts.MaxGroupSize
	if max > len(pending) {
		max = len(pending)
	}

	for size := 2; size <= max; size++ {
		idx := make([]int, size)
		group, found, err := t.combine(pending, idx, 0, 0, size)
		if err != nil || found {
			return group, found, err
		}
	}
	return nil, false, nil
}

func (t *TRTA) combine(pending [][]config.Modifier, idx []int, start, depth, size int) ([]config.Modifier, bool, error) {
	if depth == size {
		if err := t.run.checkAbort(); err != nil {
			return nil, false, err
		}
		chosen := make([][]config.Modifier, size)
		for i, j := range idx {
			chosen[i] = pending[j]
		}
		return t.tryOrderings(chosen)
	}
	for i := start; i <= len(pending)-(size-depth); i++ {
		idx[depth] = i
		group, found, err := t.combine(pending, idx, i+1, depth+1, size)
		if err != nil || found {
			return group, found, err
		}
	}
	return nil, false, nil
}

func (t *TRTA) tryOrderings(chosen [][]config.Modifier) ([]config.Modifier, bool, error) {
	r := t.run
	var result []config.Modifier
	found := false

	err := permuteUnits(chosen, func(p [][]config.Modifier) (bool, error) {
		var mods []config.Modifier
		for _, u := range p {
			mods = append(mods, u...)
		}
		if _, err := r.applyStep(mods); err != nil {
			if terminal(err) {
				return false, err
			}
			return false, nil
		}
		r.undoStep()
		result, found = mods, true
		return true, nil
	})
	return result, found, err
}

func permuteUnits(items [][]config.Modifier, fn func([][]config.Modifier) (bool, error)) error {
	var rec func(k int) (bool, error)
	rec = func(k int) (bool, error) {
		if k == 1 {
			return fn(items)
		}
		for i := 0; i < k; i++ {
			done, err := rec(k - 1)
			if done || err != nil {
				return done, err
			}
			if k%2 == 0 {
				items[i], items[k-1] = items[k-1], items[i]
			} else {
				items[0], items[k-1] = items[k-1], items[0]
			}
		}
		return false, nil
	}
	_, err := rec(len(items))
	return err
}

func withoutUnit(units [][]config.Modifier, i int) [][]config.Modifier {
	out := make([][]config.Modifier, 0, len(units)-1)
	out = append(out, units[:i]...)
	return append(out, units[i+1:]...)
}

// mergeUnits replaces the group's member units with the single composite,
// at the position of its first member.
func mergeUnits(units [][]config.Modifier, group []config.Modifier) [][]config.Modifier {
	member := make(map[string]bool, len(group))
	for _, m := range group {
		member[m.Key()] = true
	}

	var out [][]config.Modifier
	placed := false
	for _, u := range units {
		owned := true
		for _, m := range u {
			if !member[m.Key()] {
				owned = false
				break
			}
		}
		if owned {
			if !placed {
				out = append(out, group)
				placed = true
			}
			continue
		}
		out = append(out, u)
	}
	return out
}

// NumStates reports the number of intermediate states visited.
func (t *TRTA) NumStates() int { return t.run.states }
