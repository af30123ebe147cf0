package search

import (
	"time"

	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/hardpolicy"
	"github.com/netsynth/netsynth/netsim"
)

// TRTA is the default strategy: push-back tree search that, whenever a
// depth cycles its whole queue without progress, spends a slice of the
// time budget looking for a dependency group among the stuck units. A
// discovered group becomes a single composite unit and the search restarts
// with it; if nothing is found, the failure propagates into ordinary
// backtracking. It is the only strategy combining rotation pruning with
// dependency discovery.
type TRTA struct {
	pb *PushBack
}

// NewTRTA builds the composite strategy.
func NewTRTA(net *netsim.Network, mods []config.Modifier, policy *hardpolicy.Evaluator, opts ...Option) (*TRTA, error) {
	pb, err := NewPushBack(net, mods, policy, opts...)
	if err != nil {
		return nil, err
	}

	pb.onStuck = func(s *session, pending []unit) (unit, bool, error) {
		return discoverGroup(s, pending, s.opts.MaxGroupSize, discoveryDeadline(s))
	}
	return &TRTA{pb: pb}, nil
}

// discoveryDeadline slices the remaining time budget: one discovery
// attempt gets GroupBudgetFraction of the strategy's total budget, and
// never extends past the overall deadline.
func discoveryDeadline(s *session) time.Time {
	if s.opts.Deadline.IsZero() {
		return time.Time{}
	}
	total := s.opts.Deadline.Sub(s.createdAt)
	slice := time.Duration(float64(total) * s.opts.GroupBudgetFraction)
	d := time.Now().Add(slice)
	if d.After(s.opts.Deadline) {
		return s.opts.Deadline
	}
	return d
}

// Work runs the search to completion.
func (t *TRTA) Work() ([]config.Modifier, error) { return t.pb.Work() }

// NumStates reports the number of intermediate states visited.
func (t *TRTA) NumStates() int { return t.pb.NumStates() }
