package search

import (
	"fmt"

	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/hardpolicy"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/netsim"
)

// Tree explores the permutation tree of the modifiers depth-first in the
// seeded order. On failure at depth d it advances to the next sibling, and
// once a node's children are exhausted it backtracks. Complete but worst
// case factorial; the push-back variant is almost always preferable.
type Tree struct {
	sess  *session
	units []unit
}

// NewTree builds the lexicographic tree search over net's migration to the
// given modifiers under the hard policy.
func NewTree(net *netsim.Network, mods []config.Modifier, policy *hardpolicy.Evaluator, opts ...Option) (*Tree, error) {
	o := buildOptions(opts)
	ordered := append([]config.Modifier(nil), mods...)
	o.Order.Sort(ordered)

	sess, err := newSession(net, len(ordered), policy, o)
	if err != nil {
		return nil, err
	}
	return &Tree{sess: sess, units: singletons(ordered)}, nil
}

// treeFrame is one depth of the DFS: the units still available there and
// the index of the next one to try.
type treeFrame struct {
	remaining []unit
	next      int
}

func without(units []unit, i int) []unit {
	out := make([]unit, 0, len(units)-1)
	out = append(out, units[:i]...)
	return append(out, units[i+1:]...)
}

// Work runs the search to completion.
func (t *Tree) Work() ([]config.Modifier, error) {
	s := t.sess
	frames := []treeFrame{{remaining: t.units}}

	for {
		if err := s.checkAbort(); err != nil {
			return nil, err
		}
		f := &frames[len(frames)-1]

		if len(f.remaining) == 0 {
			return s.sequence(), nil
		}

		if f.next >= len(f.remaining) {
			// every child failed: give up on this depth
			frames = frames[:len(frames)-1]
			if len(frames) == 0 {
				if err := s.checkAbortNow(); err != nil {
					return nil, err
				}
				return nil, fmt.Errorf("%w: permutation tree exhausted", netid.ErrNoSafeOrdering)
			}
			s.undoUnit()
			if err := s.noteBacktrack(); err != nil {
				return nil, err
			}
			parent := &frames[len(frames)-1]
			parent.next++
			continue
		}

		u := f.remaining[f.next]
		if err := s.applyUnit(u); err != nil {
			if terminal(err) {
				return nil, err
			}
			f.next++
			continue
		}
		frames = append(frames, treeFrame{remaining: without(f.remaining, f.next)})
	}
}

// NumStates reports the number of intermediate states visited.
func (t *Tree) NumStates() int { return t.sess.states }
