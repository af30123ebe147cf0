// Package synth is the public face of the migration synthesizer: given a
// configured network, the source and target configurations, and the
// policies, it produces a safe ordering of the configuration changes.
package synth

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/hardpolicy"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/netsim"
	"github.com/netsynth/netsynth/optimize"
	"github.com/netsynth/netsynth/parallel"
	"github.com/netsynth/netsynth/search"
	"github.com/netsynth/netsynth/softpolicy"
)

// Options carries the synthesis knobs.
type Options struct {
	// TimeBudget caps the whole synthesis; unset means unlimited. A zero
	// budget expires immediately: the synthesizer returns Timeout before
	// attempting a single convergence.
	TimeBudget    time.Duration
	HasTimeBudget bool
	// Workers is the parallel driver's worker count; zero means the
	// number of hardware contexts.
	Workers int
	// Seed drives order randomization.
	Seed int64
}

// Option mutates Options.
type Option func(*Options)

// WithTimeBudget caps the synthesis wall time.
func WithTimeBudget(d time.Duration) Option {
	return func(o *Options) { o.TimeBudget = d; o.HasTimeBudget = true }
}

// WithWorkers sets the parallel worker count.
func WithWorkers(n int) Option { return func(o *Options) { o.Workers = n } }

// WithSeed sets the base RNG seed.
func WithSeed(s int64) Option { return func(o *Options) { o.Seed = s } }

func buildOptions(opts []Option) Options {
	o := Options{Seed: 1}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func (o Options) deadline() time.Time {
	if !o.HasTimeBudget {
		return time.Time{}
	}
	return time.Now().Add(o.TimeBudget)
}

// prepare computes the migration and rejects degenerate inputs: a network
// with no routers, or a pair of configurations with nothing to migrate,
// is an operator mistake rather than a trivially solved problem. A network
// that was never configured gets configA loaded onto a private clone, so
// callers may hand over either a bare topology or a running network.
func prepare(net *netsim.Network, configA, configB *config.Configuration) (*netsim.Network, []config.Modifier, error) {
	if net.NumRouters() == 0 {
		return nil, nil, fmt.Errorf("%w: network has no routers", netid.ErrInvalidInitialState)
	}
	mods := config.Diff(configA, configB)
	if len(mods) == 0 {
		return nil, nil, fmt.Errorf("%w: configurations are identical, nothing to migrate", netid.ErrInvalidInitialState)
	}

	work := net
	if !net.Configured() {
		work = net.Clone()
		if err := work.SetConfig(configA); err != nil {
			return nil, nil, fmt.Errorf("%w: loading initial configuration: %v", netid.ErrInvalidInitialState, err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"component": "synth",
		"modifiers": len(mods),
	}).Debug("migration computed")
	return work, mods, nil
}

// Synthesize finds an ordering of diff(configA, configB) that keeps every
// intermediate state compliant with the hard policy. The network either
// already runs configA, or is a bare topology onto which configA is loaded
// first. It is never mutated; all work happens on private clones.
func Synthesize(net *netsim.Network, configA, configB *config.Configuration, policy *hardpolicy.Evaluator, opts ...Option) ([]config.Modifier, error) {
	o := buildOptions(opts)
	work, mods, err := prepare(net, configA, configB)
	if err != nil {
		return nil, err
	}

	strat, err := search.NewTRTA(work, mods, policy, search.WithDeadline(o.deadline()))
	if err != nil {
		return nil, err
	}
	return strat.Work()
}

// SynthesizeParallel runs N TRTA workers with distinct random seeds and
// returns the first safe ordering found.
func SynthesizeParallel(net *netsim.Network, configA, configB *config.Configuration, policy *hardpolicy.Evaluator, opts ...Option) ([]config.Modifier, error) {
	o := buildOptions(opts)
	work, mods, err := prepare(net, configA, configB)
	if err != nil {
		return nil, err
	}

	popts := []parallel.Option{
		parallel.WithSeed(o.Seed),
		parallel.WithDeadline(o.deadline()),
	}
	if o.Workers > 0 {
		popts = append(popts, parallel.WithWorkers(o.Workers))
	}
	return parallel.Run(work, mods, policy, popts...)
}

// Optimize finds the ordering minimizing the soft policy's accumulated
// cost, subject to the hard policy, using the exhaustive optimizer.
func Optimize(net *netsim.Network, configA, configB *config.Configuration, policy *hardpolicy.Evaluator, soft softpolicy.SoftPolicy, opts ...Option) ([]config.Modifier, float64, error) {
	o := buildOptions(opts)
	work, mods, err := prepare(net, configA, configB)
	if err != nil {
		return nil, 0, err
	}

	opt, err := optimize.NewGlobal(work, mods, policy, soft, optimize.WithDeadline(o.deadline()))
	if err != nil {
		return nil, 0, err
	}
	return opt.Work()
}

// OptimizeTRTA is the non-exhaustive cost-aware variant: TRTA pruning with
// cheapest-first descent.
func OptimizeTRTA(net *netsim.Network, configA, configB *config.Configuration, policy *hardpolicy.Evaluator, soft softpolicy.SoftPolicy, opts ...Option) ([]config.Modifier, float64, error) {
	o := buildOptions(opts)
	work, mods, err := prepare(net, configA, configB)
	if err != nil {
		return nil, 0, err
	}

	opt, err := optimize.NewTRTA(work, mods, policy, soft, optimize.WithDeadline(o.deadline()))
	if err != nil {
		return nil, 0, err
	}
	return opt.Work()
}
