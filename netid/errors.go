package netid

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is comparisons. Concrete call sites wrap one of
// these with %w plus structured context (router names, paths, event lists)
// so a caller can both match on kind and log a post-mortem-useful message.
var (
	// Device-level errors.
	ErrInvalidSessionChange  = errors.New("invalid session change")
	ErrDuplicateSession      = errors.New("duplicate session")
	ErrUnknownNeighbor       = errors.New("unknown neighbor")
	ErrStaticRouteConflict   = errors.New("static route add/remove inconsistency")
	ErrRouteMapOrderConflict = errors.New("route-map order collision")
	ErrEmptyUndoStack        = errors.New("empty undo stack")
	ErrUndoStackInconsistent = errors.New("undo stack inconsistency")

	// Config-level errors.
	ErrDuplicateKey     = errors.New("duplicate configuration key")
	ErrModifierMismatch = errors.New("modifier applied against missing or mismatched state")

	// Network-level errors.
	ErrDeviceNotFound            = errors.New("device not found")
	ErrForwardingLoop            = errors.New("forwarding loop")
	ErrBlackHole                 = errors.New("black hole")
	ErrInvalidSessionType        = errors.New("invalid session type")
	ErrConvergenceLoop           = errors.New("convergence loop")
	ErrConvergenceTimeout        = errors.New("convergence timeout")
	ErrNoConvergence             = errors.New("no convergence")
	ErrRoutersNotConnected       = errors.New("routers not connected")
	ErrInvalidBGPTable           = errors.New("invalid bgp table")
	ErrUnexpectedEventDuringConv = errors.New("unexpected event during convergence")
	ErrInvalidEvent              = errors.New("invalid event")
	ErrHistory                   = errors.New("history error")
	ErrUnsatisfiedConstraints    = errors.New("unsatisfied constraints")
	ErrNoEventsToReorder         = errors.New("no events to reorder")

	// Synthesis-level errors.
	ErrNoSafeOrdering         = errors.New("no safe ordering")
	ErrProbablyNoSafeOrdering = errors.New("probably no safe ordering")
	ErrGlobalOptimumNotFound  = errors.New("global optimum not found")
	ErrInvalidInitialState    = errors.New("invalid initial state")
	ErrReachedMaxBacktrack    = errors.New("reached max backtrack")
	ErrTimeout                = errors.New("timeout")
	ErrAborted                = errors.New("aborted")
	ErrZooTopology            = errors.New("zoo topology error")
)

// PathError carries the offending path alongside a forwarding-loop or
// black-hole sentinel, for post-mortem reporting.
type PathError struct {
	Kind error
	Path []RouterID
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%v: path=%v", e.Kind, e.Path)
}

func (e *PathError) Unwrap() error { return e.Kind }

// NewForwardingLoopError builds a PathError wrapping ErrForwardingLoop.
func NewForwardingLoopError(path []RouterID) error {
	return &PathError{Kind: ErrForwardingLoop, Path: path}
}

// NewBlackHoleError builds a PathError wrapping ErrBlackHole.
func NewBlackHoleError(path []RouterID) error {
	return &PathError{Kind: ErrBlackHole, Path: path}
}

// ConvergenceLoopError carries the (router, event) trace that triggered loop
// detection in the simulator's event-queue drain.
type ConvergenceLoopError struct {
	Events    []string
	Snapshots []string
}

func (e *ConvergenceLoopError) Error() string {
	return fmt.Sprintf("%v: %d events observed before loop detected", ErrConvergenceLoop, len(e.Events))
}

func (e *ConvergenceLoopError) Unwrap() error { return ErrConvergenceLoop }

// GlobalOptimumNotFoundError reports the best ordering found before a time
// budget expired during exhaustive optimization.
type GlobalOptimumNotFoundError struct {
	BestSoFar []int
	Cost      float64
}

func (e *GlobalOptimumNotFoundError) Error() string {
	return fmt.Sprintf("%v: best cost so far %.4f over %d modifiers", ErrGlobalOptimumNotFound, e.Cost, len(e.BestSoFar))
}

func (e *GlobalOptimumNotFoundError) Unwrap() error { return ErrGlobalOptimumNotFound }
