package search

import (
	"fmt"

	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/hardpolicy"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/netsim"
)

// PushBack is the tree search variant that, instead of discarding a
// failing modifier, rotates it to the back of the remaining queue and
// retries it later. A depth is abandoned only once the queue completes a
// full rotation without a single success. For problems whose only
// obstacles are ordering constraints between independent modifiers this
// finds a solution in O(n²) rotations instead of exploring the factorial
// tree.
type PushBack struct {
	sess  *session
	units []unit

	// onStuck, when set, is consulted the moment a depth exhausts its
	// rotation: it may produce a fresh dependency group from the pending
	// units. A non-nil result restarts the search with the augmented unit
	// set. This is the extension point the TRTA strategy plugs into.
	onStuck func(s *session, pending []unit) (unit, bool, error)
}

// NewPushBack builds the push-back tree search.
func NewPushBack(net *netsim.Network, mods []config.Modifier, policy *hardpolicy.Evaluator, opts ...Option) (*PushBack, error) {
	o := buildOptions(opts)
	ordered := append([]config.Modifier(nil), mods...)
	o.Order.Sort(ordered)

	sess, err := newSession(net, len(ordered), policy, o)
	if err != nil {
		return nil, err
	}
	return &PushBack{sess: sess, units: singletons(ordered)}, nil
}

// pbFrame is one depth of the search: the rotating queue of units still to
// apply and how many rotations were burned at this depth.
type pbFrame struct {
	queue []unit
	tried int
}

func rotated(q []unit) []unit {
	out := make([]unit, 0, len(q))
	out = append(out, q[1:]...)
	return append(out, q[0])
}

// Work runs the search to completion.
func (p *PushBack) Work() ([]config.Modifier, error) {
	units := p.units
restart:
	for {
		seq, augmented, err := p.run(units)
		if err != nil {
			return nil, err
		}
		if augmented != nil {
			units = augmented
			continue restart
		}
		return seq, nil
	}
}

// run executes one push-back search over the given unit set. It returns
// either a safe sequence, or an augmented unit set to restart with (when
// onStuck discovered a dependency group), or a terminal error.
func (p *PushBack) run(units []unit) ([]config.Modifier, []unit, error) {
	s := p.sess
	frames := []pbFrame{{queue: append([]unit(nil), units...)}}

	for {
		if err := s.checkAbort(); err != nil {
			return nil, nil, err
		}
		f := &frames[len(frames)-1]

		if len(f.queue) == 0 {
			return s.sequence(), nil, nil
		}

		if f.tried >= len(f.queue) {
			// full rotation without success at this depth
			if p.onStuck != nil {
				group, found, err := p.onStuck(s, f.queue)
				if err != nil {
					return nil, nil, err
				}
				if found {
					// unwind everything and restart with the group merged
					for len(s.applied) > 0 {
						s.undoUnit()
					}
					return nil, mergeGroup(units, group), nil
				}
			}
			frames = frames[:len(frames)-1]
			if len(frames) == 0 {
				if err := s.checkAbortNow(); err != nil {
					return nil, nil, err
				}
				return nil, nil, fmt.Errorf("%w: push-back queue cycled at every depth", netid.ErrNoSafeOrdering)
			}
			s.undoUnit()
			if err := s.noteBacktrack(); err != nil {
				return nil, nil, err
			}
			parent := &frames[len(frames)-1]
			parent.queue = rotated(parent.queue)
			parent.tried++
			continue
		}

		u := f.queue[0]
		if err := s.applyUnit(u); err != nil {
			if terminal(err) {
				return nil, nil, err
			}
			f.queue = rotated(f.queue)
			f.tried++
			continue
		}
		frames = append(frames, pbFrame{queue: append([]unit(nil), f.queue[1:]...)})
	}
}

// mergeGroup replaces group's member units in the unit set with the single
// composite unit, keeping the set's relative order stable (the group takes
// the position of its first member).
func mergeGroup(units []unit, group unit) []unit {
	member := make(map[string]bool, len(group.mods))
	for _, m := range group.mods {
		member[m.Key()] = true
	}

	var out []unit
	placed := false
	for _, u := range units {
		owned := true
		for _, m := range u.mods {
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
func (p *PushBack) NumStates() int { return p.sess.states }
