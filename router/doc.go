// Package router implements the per-router state machine: RIB tables, the
// BGP decision process, IGP next-hop bookkeeping, route-map application,
// static routes, and the per-router undo log.
//
// A Router never holds a reference to its neighbors or to the network that
// owns it, only their netid.RouterID indices, so the network can keep
// routers in a flat arena and clone cheaply without untangling cycles.
package router
