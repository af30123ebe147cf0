// Package parallel fans a migration out to several independent TRTA
// workers with different random seeds; the first to find a safe ordering
// wins and cancels the rest.
package parallel

import (
	"errors"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/netsynth/netsynth/cancel"
	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/hardpolicy"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/netsim"
	"github.com/netsynth/netsynth/search"
)

// Options configures the driver.
type Options struct {
	// Workers is the number of worker goroutines; defaults to the number
	// of hardware contexts.
	Workers int
	// Seed is the base RNG seed; worker i derives seed Seed+i.
	Seed int64
	// Deadline is the absolute time budget shared by all workers; zero
	// means unlimited.
	Deadline time.Time
}

// Option mutates Options.
type Option func(*Options)

// WithWorkers sets the worker count.
func WithWorkers(n int) Option { return func(o *Options) { o.Workers = n } }

// WithSeed sets the base RNG seed.
func WithSeed(s int64) Option { return func(o *Options) { o.Seed = s } }

// WithDeadline sets the shared deadline.
func WithDeadline(d time.Time) Option { return func(o *Options) { o.Deadline = d } }

type workerResult struct {
	seq []config.Modifier
	err error
}

// Run spawns the workers, each owning a private clone of the network and
// policy, and returns the first safe ordering found. Losing workers
// observe the shared stop flag and return Aborted; the driver ignores
// those. If every worker fails, the last non-abort error is returned.
func Run(net *netsim.Network, mods []config.Modifier, policy *hardpolicy.Evaluator, opts ...Option) ([]config.Modifier, error) {
	o := Options{Workers: runtime.NumCPU(), Seed: 1}
	for _, fn := range opts {
		fn(&o)
	}
	if o.Workers < 1 {
		o.Workers = 1
	}

	log := logrus.WithField("component", "parallel")
	stop := cancel.New()
	results := make(chan workerResult, o.Workers)

	var wg sync.WaitGroup
	for i := 0; i < o.Workers; i++ {
		wg.Add(1)
		seed := o.Seed + int64(i)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			strat, err := search.NewTRTA(net, mods, policy,
				search.WithRand(rng),
				search.WithOrder(search.Random{Rand: rng}),
				search.WithStop(stop),
				search.WithDeadline(o.Deadline),
			)
			if err != nil {
				results <- workerResult{err: err}
				return
			}
			seq, err := strat.Work()
			results <- workerResult{seq: seq, err: err}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var winner []config.Modifier
	won := false
	lastErr := error(nil)
	for res := range results {
		if res.err == nil && !won {
			winner = res.seq
			won = true
			stop.Stop()
			log.WithField("sequence_len", len(winner)).Debug("worker found a safe ordering")
			continue
		}
		if res.err != nil && !errors.Is(res.err, netid.ErrAborted) {
			lastErr = res.err
		}
	}

	if won {
		return winner, nil
	}
	if lastErr == nil {
		// every worker aborted without a winner: surface the abort itself
		lastErr = netid.ErrAborted
	}
	return nil, lastErr
}
