package router

import (
	"github.com/netsynth/netsynth/bgproute"
	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/routemap"
	"github.com/netsynth/netsynth/topology"
)

// EventKind distinguishes the event shapes a router reacts to: inbound BGP
// update/withdraw, an IGP table recomputation trigger, and a local
// configuration change.
type EventKind int

const (
	EventBGPUpdate EventKind = iota
	EventBGPWithdraw
	EventIGPRecompute
	EventLocalChange
)

// Event is dispatched to a single router's HandleEvent.
type Event struct {
	Kind EventKind

	// From is the neighbor that sent a BGP update/withdraw.
	From netid.RouterID
	// Route/Prefix are set for BGPUpdate/BGPWithdraw respectively.
	Route  bgproute.Route
	Prefix netid.Prefix

	// IGPTable is the freshly computed shortest-path table, supplied by the
	// network simulator after a topology change (EventIGPRecompute).
	IGPTable map[netid.RouterID]topology.IGPEntry

	// Change carries the local configuration mutation (EventLocalChange).
	Change LocalChange
}

// LocalChangeKind distinguishes the four local-change shapes.
type LocalChangeKind int

const (
	ChangeIGPWeight LocalChangeKind = iota
	ChangeSession
	ChangeRouteMap
	ChangeStaticRoute
)

// LocalChange is one atomic local configuration mutation applied directly
// to a router, outside the BGP update/withdraw event flow.
type LocalChange struct {
	Kind LocalChangeKind

	// ChangeIGPWeight: a freshly recomputed IGP table for this router.
	IGPTable map[netid.RouterID]topology.IGPEntry

	// ChangeSession: add/remove a session with Neighbor of the given Type.
	Neighbor netid.RouterID
	Type     netid.SessionType
	Add      bool // true = add, false = remove

	// ChangeRouteMap: add/remove/update a rule at Dir/Order.
	Dir  config.Direction
	Rule routemap.Rule // zero-value Rule for a pure removal (Order still set)

	// ChangeStaticRoute: add/remove a static route for Prefix -> NextHop.
	Prefix  netid.Prefix
	NextHop netid.RouterID
}

// OutboundEvent is an event this router's handler decided to emit towards
// one of its neighbors; the network simulator enqueues these onto the
// global FIFO event queue.
type OutboundEvent struct {
	To    netid.RouterID
	Event Event
}
