package optimize

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/netsynth/netsynth/cancel"
	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/hardpolicy"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/netsim"
	"github.com/netsynth/netsynth/softpolicy"
)

// Options carries the knobs shared by both optimizers.
type Options struct {
	// Deadline is the absolute time budget; zero means unlimited.
	Deadline time.Time
	// Stop is the cooperative cancellation flag; nil means none.
	Stop *cancel.Flag
	// MaxGroupSize bounds dependency-group discovery (OptimizerTRTA only).
	MaxGroupSize int
}

// Option mutates Options.
type Option func(*Options)

// WithDeadline sets the absolute deadline.
func WithDeadline(d time.Time) Option { return func(o *Options) { o.Deadline = d } }

// WithStop wires the shared stop flag.
func WithStop(f *cancel.Flag) Option { return func(o *Options) { o.Stop = f } }

func buildOptions(opts []Option) Options {
	o := Options{MaxGroupSize: 4}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// errPolicyViolated marks a step the hard policy rejected.
var errPolicyViolated = fmt.Errorf("%w: hard policy violated", netid.ErrUnsatisfiedConstraints)

// runner owns one optimizer's working state: private clones of the network
// and hard policy, the soft-policy accumulator, and a snapshot stack that
// lets cost accumulation rewind in lockstep with the simulator's undo.
type runner struct {
	net  *netsim.Network
	hard *hardpolicy.Evaluator
	soft softpolicy.SoftPolicy
	opts Options

	// softStack[i] is the accumulator state BEFORE step i was applied.
	softStack []softpolicy.SoftPolicy
	applied   []appliedStep
	states    int

	log *logrus.Entry
}

// appliedStep records one applied unit: its modifiers and the cost the step
// contributed.
type appliedStep struct {
	mods []config.Modifier
	cost float64
}

func newRunner(net *netsim.Network, nMods int, hard *hardpolicy.Evaluator, soft softpolicy.SoftPolicy, opts Options) (*runner, error) {
	r := &runner{
		net:  net.Clone(),
		hard: hard.Clone(),
		soft: soft.Clone(),
		opts: opts,
		log:  logrus.WithField("component", "optimize"),
	}
	r.hard.Reset()
	r.hard.SetNumMods(nMods)
	if err := r.hard.Step(r.net); err != nil {
		return nil, fmt.Errorf("%w: %v", netid.ErrInvalidInitialState, err)
	}
	if ok, unsat := r.hard.Check(); !ok {
		return nil, fmt.Errorf("%w: unsatisfied atoms %v before any modifier", netid.ErrInvalidInitialState, unsat)
	}
	// establish the soft policy's baseline on the initial state
	r.soft.Update(r.net.GetForwardingState(), r.net)
	return r, nil
}

func (r *runner) checkAbort() error {
	if r.opts.Stop.Poll() {
		return netid.ErrAborted
	}
	if !r.opts.Deadline.IsZero() && !time.Now().Before(r.opts.Deadline) {
		return netid.ErrTimeout
	}
	return nil
}

func (r *runner) checkAbortNow() error {
	if r.opts.Stop.Stopped() {
		return netid.ErrAborted
	}
	if !r.opts.Deadline.IsZero() && !time.Now().Before(r.opts.Deadline) {
		return netid.ErrTimeout
	}
	return nil
}

// applyStep applies a unit of modifiers as one observed transition, checks
// the hard policy, and accumulates the soft cost. On failure the runner is
// left exactly as before; on success it returns the step's incremental
// cost.
func (r *runner) applyStep(mods []config.Modifier) (float64, error) {
	for i, m := range mods {
		if err := r.net.ApplyModifier(m); err != nil {
			r.netUnwind(i)
			return 0, err
		}
		r.states++
	}
	if err := r.hard.Step(r.net); err != nil {
		r.netUnwind(len(mods))
		return 0, err
	}
	if ok, _ := r.hard.Check(); !ok {
		_ = r.hard.Undo()
		r.netUnwind(len(mods))
		return 0, errPolicyViolated
	}

	before := r.soft.Clone()
	prevTotal := r.soft.Cost()
	r.soft.Update(r.net.GetForwardingState(), r.net)
	stepCost := r.soft.Cost() - prevTotal

	r.softStack = append(r.softStack, before)
	r.applied = append(r.applied, appliedStep{mods: mods, cost: stepCost})
	return stepCost, nil
}

// undoStep rewinds the most recently applied unit.
func (r *runner) undoStep() {
	if len(r.applied) == 0 {
		return
	}
	step := r.applied[len(r.applied)-1]
	r.applied = r.applied[:len(r.applied)-1]
	_ = r.hard.Undo()
	r.netUnwind(len(step.mods))
	r.soft = r.softStack[len(r.softStack)-1]
	r.softStack = r.softStack[:len(r.softStack)-1]
}

func (r *runner) netUnwind(count int) {
	for i := 0; i < count; i++ {
		_ = r.net.UndoAction()
	}
}

// rewindAll undoes every applied step.
func (r *runner) rewindAll() {
	for len(r.applied) > 0 {
		r.undoStep()
	}
}

// sequence returns the modifiers applied so far, in order.
func (r *runner) sequence() []config.Modifier {
	var out []config.Modifier
	for _, s := range r.applied {
		out = append(out, s.mods...)
	}
	return out
}

// totalCost is the cost accumulated across the applied steps.
func (r *runner) totalCost() float64 {
	var sum float64
	for _, s := range r.applied {
		sum += s.cost
	}
	return sum
}

func terminal(err error) bool {
	return errors.Is(err, netid.ErrTimeout) ||
		errors.Is(err, netid.ErrAborted) ||
		errors.Is(err, netid.ErrHistory)
}
