package netsim

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/netsynth/netsynth/config"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/router"
	"github.com/netsynth/netsynth/topology"
)

// DefaultQueueDepthPerRouter is the multiplier used to derive the default
// convergence queue-depth bound.
const DefaultQueueDepthPerRouter = 1000

// loopWindowMultiplier scales the convergence-loop detection threshold with
// topology size.
const loopWindowMultiplier = 4

type entityKey struct {
	ID       netid.RouterID
	External bool
}

// undoFrame records what one ApplyModifier/advertise/withdraw call did, so
// UndoAction can reverse it precisely: how many undo entries each touched
// router/external router accumulated, and (for configuration-changing
// calls) the modifier to invert against the tracked current configuration.
type undoFrame struct {
	depthDelta  map[entityKey]int
	modifier    config.Modifier
	hasModifier bool
	// revertGraph restores any topology-graph mutation (link weights) the
	// frame's modifier performed; nil when the graph was untouched.
	revertGraph func()
}

// Network is the deterministic control-plane simulator: graph, global event
// queue, convergence driver, and network-level undo stack.
type Network struct {
	graph     *topology.Graph
	routers   map[netid.RouterID]*router.Router
	externals map[netid.RouterID]*router.ExternalRouter
	nextID    netid.RouterID

	current *config.Configuration
	frozen  bool // true once SetConfig has been called; topology is then fixed

	queue       []queuedEvent
	undoFrames  []undoFrame
	maxQueueLen int

	log *logrus.Entry
}

type queuedEvent struct {
	To    netid.RouterID
	Event router.Event
}

// New returns an empty network with no routers, links, or configuration.
func New() *Network {
	return &Network{
		graph:     topology.NewGraph(),
		routers:   make(map[netid.RouterID]*router.Router),
		externals: make(map[netid.RouterID]*router.ExternalRouter),
		current:   config.NewConfiguration(),
		log:       logrus.WithField("component", "netsim"),
	}
}

// AddRouter registers a new internal router and returns its id. Valid only
// before the first SetConfig call.
func (n *Network) AddRouter() (netid.RouterID, error) {
	if n.frozen {
		return 0, fmt.Errorf("%w: topology is fixed after set_config", netid.ErrInvalidEvent)
	}
	id := n.nextID
	n.nextID++
	n.routers[id] = router.New(id)
	n.graph.AddRouter(id)
	return id, nil
}

// AddExternalRouter registers a new external router with the given AS
// number and returns its id. Valid only before the first SetConfig call.
func (n *Network) AddExternalRouter(as netid.ASNumber) (netid.RouterID, error) {
	if n.frozen {
		return 0, fmt.Errorf("%w: topology is fixed after set_config", netid.ErrInvalidEvent)
	}
	id := n.nextID
	n.nextID++
	n.externals[id] = router.NewExternal(id, as)
	return id, nil
}

// AddLink adds a directed IGP edge between two internal routers. Valid only
// before the first SetConfig call; external routers never appear in the IGP
// graph (eBGP adjacency is modeled purely via sessions/neighbors).
func (n *Network) AddLink(source, target netid.RouterID, weight netid.Weight) error {
	if n.frozen {
		return fmt.Errorf("%w: topology is fixed after set_config", netid.ErrInvalidEvent)
	}
	if _, ok := n.routers[source]; !ok {
		return fmt.Errorf("%w: %d", netid.ErrDeviceNotFound, source)
	}
	if _, ok := n.routers[target]; !ok {
		return fmt.Errorf("%w: %d", netid.ErrDeviceNotFound, target)
	}
	n.graph.SetLinkWeight(source, target, weight)
	return nil
}

// NumRouters reports the number of internal routers.
func (n *Network) NumRouters() int { return len(n.routers) }

// NumExternals reports the number of external routers.
func (n *Network) NumExternals() int { return len(n.externals) }

// NumLinks reports the number of directed IGP edges.
func (n *Network) NumLinks() int { return n.graph.NumLinks() }

// Configured reports whether SetConfig has run, fixing the topology.
func (n *Network) Configured() bool { return n.frozen }

// CurrentConfig returns the configuration tracked as having been applied so
// far (read-only snapshot; callers should Clone before mutating).
func (n *Network) CurrentConfig() *config.Configuration { return n.current.Clone() }

// Router exposes a router by id for read-only inspection (used by the
// forwarding-state view and tests).
func (n *Network) Router(id netid.RouterID) (*router.Router, bool) {
	r, ok := n.routers[id]
	return r, ok
}

// External exposes an external router by id for read-only inspection.
func (n *Network) External(id netid.RouterID) (*router.ExternalRouter, bool) {
	e, ok := n.externals[id]
	return e, ok
}

// RouterIDs returns every internal router id in ascending order.
func (n *Network) RouterIDs() []netid.RouterID {
	out := make([]netid.RouterID, 0, len(n.routers))
	for id := range n.routers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ExternalIDs returns every external router id in ascending order.
func (n *Network) ExternalIDs() []netid.RouterID {
	out := make([]netid.RouterID, 0, len(n.externals))
	for id := range n.externals {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns an independent copy sharing no mutable state.
func (n *Network) Clone() *Network {
	out := New()
	out.graph = n.graph.Clone()
	out.nextID = n.nextID
	out.frozen = n.frozen
	out.current = n.current.Clone()
	out.maxQueueLen = n.maxQueueLen
	for id, r := range n.routers {
		out.routers[id] = r.Clone()
	}
	for id, e := range n.externals {
		out.externals[id] = e.Clone()
	}
	return out
}

func (n *Network) queueDepthBound() int {
	if n.maxQueueLen > 0 {
		return n.maxQueueLen
	}
	return DefaultQueueDepthPerRouter * len(n.routers)
}

// SetMaxQueueDepth overrides the default convergence queue-depth bound.
func (n *Network) SetMaxQueueDepth(d int) { n.maxQueueLen = d }
