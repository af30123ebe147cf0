package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsynth/netsynth/bgproute"
	"github.com/netsynth/netsynth/netid"
	"github.com/netsynth/netsynth/topology"
)

func twoPeerRouter(t *testing.T) *Router {
	t.Helper()
	r := New(1)
	_, err := r.ApplyLocalChange(LocalChange{Kind: ChangeSession, Neighbor: 2, Type: netid.EBGP, Add: true})
	require.NoError(t, err)
	_, err = r.ApplyLocalChange(LocalChange{Kind: ChangeSession, Neighbor: 3, Type: netid.IBGPPeer, Add: true})
	require.NoError(t, err)
	return r
}

func TestHandleEvent_UnknownNeighborIsInvalidEvent(t *testing.T) {
	r := New(1)
	_, _, err := r.HandleEvent(Event{Kind: EventBGPUpdate, From: 99, Route: bgproute.NewRoute(1, nil, 99)})
	require.ErrorIs(t, err, netid.ErrInvalidEvent)
}

func TestHandleUpdate_InstallsBestRoute(t *testing.T) {
	r := twoPeerRouter(t)
	changed, _, err := r.HandleEvent(Event{
		Kind: EventBGPUpdate, From: 2,
		Route: bgproute.NewRoute(10, []netid.ASNumber{65001}, 2),
	})
	require.NoError(t, err)
	assert.True(t, changed)

	entry, ok := r.Decision(10)
	require.True(t, ok)
	assert.Equal(t, netid.RouterID(2), entry.Neighbor)
}

func TestHandleUpdate_PropagatesEBGPLearnedToEveryone(t *testing.T) {
	r := twoPeerRouter(t)
	_, out, err := r.HandleEvent(Event{
		Kind: EventBGPUpdate, From: 2,
		Route: bgproute.NewRoute(10, []netid.ASNumber{65001}, 2),
	})
	require.NoError(t, err)

	var toThree bool
	for _, o := range out {
		if o.To == 3 {
			toThree = true
		}
	}
	assert.True(t, toThree, "eBGP-learned routes must be advertised to the iBGP peer too")
}

func TestHandleUpdate_IBGPPeerLearnedNotReflectedToOtherIBGPPeer(t *testing.T) {
	r := New(1)
	_, err := r.ApplyLocalChange(LocalChange{Kind: ChangeSession, Neighbor: 3, Type: netid.IBGPPeer, Add: true})
	require.NoError(t, err)
	_, err = r.ApplyLocalChange(LocalChange{Kind: ChangeSession, Neighbor: 4, Type: netid.IBGPPeer, Add: true})
	require.NoError(t, err)

	_, out, err := r.HandleEvent(Event{
		Kind: EventBGPUpdate, From: 3,
		Route: bgproute.NewRoute(10, []netid.ASNumber{65001}, 3),
	})
	require.NoError(t, err)
	for _, o := range out {
		assert.NotEqual(t, netid.RouterID(4), o.To, "must not reflect iBGP-learned route to another iBGP peer")
	}
}

func TestHandleWithdraw_RemovesDecision(t *testing.T) {
	r := twoPeerRouter(t)
	route := bgproute.NewRoute(10, []netid.ASNumber{65001}, 2)
	_, _, err := r.HandleEvent(Event{Kind: EventBGPUpdate, From: 2, Route: route})
	require.NoError(t, err)

	changed, _, err := r.HandleEvent(Event{Kind: EventBGPWithdraw, From: 2, Prefix: 10})
	require.NoError(t, err)
	assert.True(t, changed)
	_, ok := r.Decision(10)
	assert.False(t, ok)
}

func TestUndoLast_RestoresDecisionAfterUpdate(t *testing.T) {
	r := twoPeerRouter(t)
	route := bgproute.NewRoute(10, []netid.ASNumber{65001}, 2)
	_, _, err := r.HandleEvent(Event{Kind: EventBGPUpdate, From: 2, Route: route})
	require.NoError(t, err)
	require.Greater(t, r.UndoDepth(), 0)

	for r.UndoDepth() > 0 {
		require.NoError(t, r.UndoLast())
	}
	_, ok := r.Decision(10)
	assert.False(t, ok)
}

func TestUndoLast_EmptyStackFails(t *testing.T) {
	r := New(1)
	err := r.UndoLast()
	require.ErrorIs(t, err, netid.ErrEmptyUndoStack)
}

func TestStaticRouteSupersedesBGPNextHop(t *testing.T) {
	r := twoPeerRouter(t)
	r.igpTable[2] = topology.IGPEntry{NextHop: 2, Cost: 1}
	route := bgproute.NewRoute(10, []netid.ASNumber{65001}, 2)
	_, _, err := r.HandleEvent(Event{Kind: EventBGPUpdate, From: 2, Route: route})
	require.NoError(t, err)

	nh, ok := r.FIBNextHop(10)
	require.True(t, ok)
	assert.Equal(t, netid.RouterID(2), nh)

	_, err = r.ApplyLocalChange(LocalChange{Kind: ChangeStaticRoute, Prefix: 10, NextHop: 5, Add: true})
	require.NoError(t, err)
	nh, ok = r.FIBNextHop(10)
	require.True(t, ok)
	assert.Equal(t, netid.RouterID(5), nh)
}

func TestApplySessionChange_DuplicateRejected(t *testing.T) {
	r := twoPeerRouter(t)
	_, err := r.ApplyLocalChange(LocalChange{Kind: ChangeSession, Neighbor: 2, Type: netid.EBGP, Add: true})
	require.ErrorIs(t, err, netid.ErrDuplicateSession)
}

func TestApplyStaticRouteChange_DuplicateRejected(t *testing.T) {
	r := New(1)
	_, err := r.ApplyLocalChange(LocalChange{Kind: ChangeStaticRoute, Prefix: 1, NextHop: 2, Add: true})
	require.NoError(t, err)
	_, err = r.ApplyLocalChange(LocalChange{Kind: ChangeStaticRoute, Prefix: 1, NextHop: 3, Add: true})
	require.ErrorIs(t, err, netid.ErrStaticRouteConflict)
}

func TestExternalRouter_AdvertiseReachesAllNeighbors(t *testing.T) {
	e := NewExternal(100, 65000)
	e.AddNeighbor(1)
	e.AddNeighbor(2)
	out := e.Advertise(bgproute.NewRoute(10, nil, 100))
	assert.Len(t, out, 2)
}

func TestExternalRouter_WithdrawUndoRestoresAdvertisement(t *testing.T) {
	e := NewExternal(100, 65000)
	e.AddNeighbor(1)
	e.Advertise(bgproute.NewRoute(10, nil, 100))
	e.Withdraw(10)
	_, ok := e.AdvertisedRoute(10)
	assert.False(t, ok)

	require.NoError(t, e.UndoLast()) // undo withdraw
	_, ok = e.AdvertisedRoute(10)
	assert.True(t, ok)
}
