// Package netsim owns the network topology, the global FIFO event queue,
// and the convergence driver: the deterministic control-plane simulator
// that reproduces IGP shortest-path routing and BGP decision-process
// convergence over an arbitrary topology, with undoable state transitions.
package netsim
