package netsim

import (
	"fmt"

	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/netid"
)

// SetConfig applies every atom in c to the network via ApplyModifier(Insert)
// and freezes the topology: add_router/add_external_router/add_link are
// rejected afterwards. It fails if c violates configuration uniqueness or if
// convergence fails partway through, leaving whatever atoms were already
// applied in place; callers that need atomicity should operate on a Clone
// and discard it on error.
//
// Atoms are applied in key order, which puts link weights ahead of
// sessions, so BGP decisions are always made against populated IGP tables.
// The undo history accumulated while loading the configuration is cleared
// at the end: the configured, converged network is the baseline state, and
// UndoAction must never walk back past it.
func (n *Network) SetConfig(c *config.Configuration) error {
	if n.frozen {
		return fmt.Errorf("%w: topology already fixed by a prior set_config", netid.ErrInvalidEvent)
	}
	n.frozen = true

	// Seed every router's IGP table from the physical links added before
	// the freeze; link-weight atoms in c recompute on top of this.
	if err := n.recomputeAllIGP(); err != nil {
		return fmt.Errorf("set_config: %w", err)
	}

	for _, a := range c.All() {
		if err := n.ApplyModifier(config.Modifier{Kind: config.ModInsert, Expr: a}); err != nil {
			return fmt.Errorf("set_config: %w", err)
		}
	}

	n.ClearUndoStack()
	return nil
}

// ClearUndoStack discards the network-level undo frames and every
// router's/external router's undo log without altering current state.
func (n *Network) ClearUndoStack() {
	n.undoFrames = nil
	for _, r := range n.routers {
		r.ClearUndoStack()
	}
	for _, e := range n.externals {
		e.ClearUndoStack()
	}
}
