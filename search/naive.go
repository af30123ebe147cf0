package search

import (
	"fmt"

	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/hardpolicy"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/netsim"
)

// DefaultNaiveTries bounds how many random orders NaiveRandom samples
// before concluding the problem probably has no safe ordering.
const DefaultNaiveTries = 1000

// NaiveRandom is the baseline the richer strategies are measured against:
// shuffle the modifiers with inserts ahead of removes, apply the whole
// sequence with a policy check per step, and on any failure start over
// with a fresh shuffle. It neither backtracks nor learns; its value is as
// a probabilistic lower bound in benchmarks.
type NaiveRandom struct {
	sess  *session
	mods  []config.Modifier
	tries int
}

// NewNaiveRandom builds the insert-before-remove random baseline.
func NewNaiveRandom(net *netsim.Network, mods []config.Modifier, policy *hardpolicy.Evaluator, opts ...Option) (*NaiveRandom, error) {
	o := buildOptions(opts)
	sess, err := newSession(net, len(mods), policy, o)
	if err != nil {
		return nil, err
	}
	return &NaiveRandom{
		sess:  sess,
		mods:  append([]config.Modifier(nil), mods...),
		tries: DefaultNaiveTries,
	}, nil
}

// shuffledIBR returns a fresh order: inserts and updates shuffled in front,
// removes shuffled behind them.
func (n *NaiveRandom) shuffledIBR() []config.Modifier {
	var front, back []config.Modifier
	for _, m := range n.mods {
		if m.Kind == config.ModRemove {
			back = append(back, m)
		} else {
			front = append(front, m)
		}
	}
	rng := n.sess.opts.Rand
	rng.Shuffle(len(front), func(i, j int) { front[i], front[j] = front[j], front[i] })
	rng.Shuffle(len(back), func(i, j int) { back[i], back[j] = back[j], back[i] })
	return append(front, back...)
}

// Work samples random orders until one passes or the try budget, deadline,
// or stop flag runs out.
func (n *NaiveRandom) Work() ([]config.Modifier, error) {
	s := n.sess
	for try := 0; try < n.tries; try++ {
		if err := s.checkAbort(); err != nil {
			return nil, err
		}

		order := n.shuffledIBR()
		ok := true
		for _, m := range order {
			if err := s.applyUnit(unit{mods: []config.Modifier{m}}); err != nil {
				if terminal(err) {
					return nil, err
				}
				ok = false
				break
			}
		}
		if ok {
			return s.sequence(), nil
		}
		for len(s.applied) > 0 {
			s.undoUnit()
		}
	}
	return nil, fmt.Errorf("%w: %d random orders sampled", netid.ErrProbablyNoSafeOrdering, n.tries)
}

// NumStates reports the number of intermediate states visited.
func (n *NaiveRandom) NumStates() int { return n.sess.states }
