package search

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/netsynth/netsynth/cancel"
	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/hardpolicy"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/netsim"
)

// DefaultGroupBudgetFraction is the share of the total time budget one
// dependency-group discovery attempt may consume.
const DefaultGroupBudgetFraction = 1.0 / 30.0

// DefaultMaxGroupSize bounds the subsets the dependency-group builder
// enumerates.
const DefaultMaxGroupSize = 4

// Strategy is the capability every search engine implements: Work runs the
// search to completion and returns a safe ordering of the modifiers the
// strategy was constructed with.
type Strategy interface {
	Work() ([]config.Modifier, error)
	// NumStates reports how many intermediate network states the search
	// visited: a measure of effort, useful for benchmarks and reporting.
	NumStates() int
}

// Options carries the knobs shared by all strategies.
type Options struct {
	// Deadline is the absolute time budget; zero means unlimited.
	Deadline time.Time
	// Stop is the cooperative cancellation flag; nil means none.
	Stop *cancel.Flag
	// Rand seeds order randomization where a strategy wants it.
	Rand *rand.Rand
	// Order seeds the initial modifier order. Defaults to Simple.
	Order ModifierOrder
	// MaxBacktrack bounds how many times the search may unwind an applied
	// modifier; zero means unlimited.
	MaxBacktrack int
	// GroupBudgetFraction is the share of the total time budget a
	// single dependency-group discovery may consume (TRTA only).
	GroupBudgetFraction float64
	// MaxGroupSize bounds dependency-group discovery (TRTA only).
	MaxGroupSize int
}

// Option mutates Options.
type Option func(*Options)

// WithDeadline sets the absolute deadline.
func WithDeadline(d time.Time) Option { return func(o *Options) { o.Deadline = d } }

// WithStop wires the shared stop flag.
func WithStop(f *cancel.Flag) Option { return func(o *Options) { o.Stop = f } }

// WithRand sets the randomization source.
func WithRand(r *rand.Rand) Option { return func(o *Options) { o.Rand = r } }

// WithOrder sets the initial modifier order.
func WithOrder(ord ModifierOrder) Option { return func(o *Options) { o.Order = ord } }

// WithMaxBacktrack bounds the number of backtracks.
func WithMaxBacktrack(n int) Option { return func(o *Options) { o.MaxBacktrack = n } }

func buildOptions(opts []Option) Options {
	o := Options{
		Order:               Simple{},
		GroupBudgetFraction: DefaultGroupBudgetFraction,
		MaxGroupSize:        DefaultMaxGroupSize,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(1))
	}
	return o
}

// unit is what the search permutes: a single modifier, or a dependency
// group of modifiers applied back to back with a single policy check at
// the end.
type unit struct {
	mods []config.Modifier
}

func singletons(mods []config.Modifier) []unit {
	units := make([]unit, len(mods))
	for i, m := range mods {
		units[i] = unit{mods: []config.Modifier{m}}
	}
	return units
}

func flatten(units []unit) []config.Modifier {
	var out []config.Modifier
	for _, u := range units {
		out = append(out, u.mods...)
	}
	return out
}

// session owns one worker's working state: a private clone of the network,
// a private policy evaluator, and the stack of applied units. Strategies
// share its apply/undo/check mechanics and differ only in how they pick
// the next unit.
type session struct {
	net     *netsim.Network
	policy  *hardpolicy.Evaluator
	opts    Options
	applied []unit

	states     int
	backtracks int
	createdAt  time.Time

	log *logrus.Entry
}

// errPolicyViolated marks a step the hard policy rejected; like a
// convergence failure it is recoverable and drives backtracking.
var errPolicyViolated = fmt.Errorf("%w: hard policy violated", netid.ErrUnsatisfiedConstraints)

// newSession clones the inputs, fixes the migration length on the policy,
// and verifies the initial state. A policy that already fails on the
// unmodified network is unsatisfiable by construction.
func newSession(net *netsim.Network, nMods int, policy *hardpolicy.Evaluator, opts Options) (*session, error) {
	s := &session{
		net:       net.Clone(),
		policy:    policy.Clone(),
		opts:      opts,
		createdAt: time.Now(),
		log:       logrus.WithField("component", "search"),
	}
	s.policy.Reset()
	s.policy.SetNumMods(nMods)
	if err := s.policy.Step(s.net); err != nil {
		return nil, fmt.Errorf("%w: %v", netid.ErrInvalidInitialState, err)
	}
	if ok, unsat := s.policy.Check(); !ok {
		return nil, fmt.Errorf("%w: unsatisfied atoms %v before any modifier", netid.ErrInvalidInitialState, unsat)
	}
	return s, nil
}

// checkAbort converts an expired deadline or a raised stop flag into the
// corresponding terminal error. It is consulted at every suspension point.
func (s *session) checkAbort() error {
	if s.opts.Stop.Poll() {
		return netid.ErrAborted
	}
	if !s.opts.Deadline.IsZero() && !time.Now().Before(s.opts.Deadline) {
		return netid.ErrTimeout
	}
	return nil
}

// checkAbortNow is checkAbort with a definitive (non-opportunistic) stop
// read, for use right before returning a terminal result.
func (s *session) checkAbortNow() error {
	if s.opts.Stop.Stopped() {
		return netid.ErrAborted
	}
	if !s.opts.Deadline.IsZero() && !time.Now().Before(s.opts.Deadline) {
		return netid.ErrTimeout
	}
	return nil
}

// applyUnit applies every modifier of u in order, then steps the policy
// ONCE and checks it. A dependency group is a single observed transition:
// the states between its members exist on the simulator but never enter
// the policy history. That is precisely what makes a group worth
// discovering. On any failure the session is left exactly as before the
// call and a recoverable error is returned.
func (s *session) applyUnit(u unit) error {
	for i, m := range u.mods {
		if err := s.net.ApplyModifier(m); err != nil {
			// ApplyModifier is atomic; only the i prior modifiers of this
			// unit need unwinding.
			s.netUnwind(i)
			return err
		}
		s.states++
	}
	if err := s.policy.Step(s.net); err != nil {
		s.netUnwind(len(u.mods))
		return err
	}
	if ok, _ := s.policy.Check(); !ok {
		_ = s.policy.Undo()
		s.netUnwind(len(u.mods))
		return errPolicyViolated
	}
	s.applied = append(s.applied, u)
	return nil
}

// netUnwind reverses count network actions.
func (s *session) netUnwind(count int) {
	for i := 0; i < count; i++ {
		_ = s.net.UndoAction()
	}
}

// undoUnit unwinds the most recently applied unit: one policy step, and one
// network action per member modifier.
func (s *session) undoUnit() {
	if len(s.applied) == 0 {
		return
	}
	u := s.applied[len(s.applied)-1]
	s.applied = s.applied[:len(s.applied)-1]
	_ = s.policy.Undo()
	s.netUnwind(len(u.mods))
}

// noteBacktrack counts an unwound decision and enforces MaxBacktrack.
func (s *session) noteBacktrack() error {
	s.backtracks++
	if s.opts.MaxBacktrack > 0 && s.backtracks > s.opts.MaxBacktrack {
		return fmt.Errorf("%w: %d backtracks", netid.ErrReachedMaxBacktrack, s.backtracks)
	}
	return nil
}

// sequence returns the modifiers applied so far, in order.
func (s *session) sequence() []config.Modifier {
	return flatten(s.applied)
}

// terminal reports whether err must abort the whole search rather than
// drive backtracking.
func terminal(err error) bool {
	return errors.Is(err, netid.ErrTimeout) ||
		errors.Is(err, netid.ErrAborted) ||
		errors.Is(err, netid.ErrReachedMaxBacktrack) ||
		errors.Is(err, netid.ErrHistory)
}
