// Package cancel provides the cooperative stop flag shared between the
// parallel driver and its worker strategies.
package cancel

import "sync/atomic"

// pollStride is how often Poll actually reads the flag: once every
// pollStride calls, the rest return false without touching shared memory.
const pollStride = 9

// Flag is a monotonic stop signal: once set it stays set for the duration
// of a run. It is safe for concurrent use; the expected pattern is many
// readers polling inside hot loops and a single writer flipping it when a
// worker wins.
type Flag struct {
	stopped atomic.Bool
	polls   atomic.Uint64
}

// New returns an unset flag.
func New() *Flag {
	return &Flag{}
}

// Stop sets the flag. Calling it more than once is harmless.
func (f *Flag) Stop() {
	f.stopped.Store(true)
}

// Stopped reads the flag unconditionally. Use it for rare, pre-termination
// checks where a definite answer matters.
func (f *Flag) Stopped() bool {
	if f == nil {
		return false
	}
	return f.stopped.Load()
}

// Poll is the opportunistic read for hot loops: it skips the shared-memory
// load eight times out of nine, so tight search iterations don't contend on
// the flag's cache line. A set flag is therefore observed within a handful
// of iterations rather than instantly, which is acceptable for cooperative
// cancellation.
func (f *Flag) Poll() bool {
	if f == nil {
		return false
	}
	if f.polls.Add(1)%pollStride != 0 {
		return false
	}
	return f.stopped.Load()
}
