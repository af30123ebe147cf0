package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsynth/netsynth/netid"
)

func TestConfiguration_InsertRejectsDuplicateKey(t *testing.T) {
	cfg := NewConfiguration()
	lw := LinkWeight{Source: 1, Target: 2, Weight: 5}
	require.NoError(t, cfg.Insert(lw))

	err := cfg.Insert(LinkWeight{Source: 1, Target: 2, Weight: 9})
	require.ErrorIs(t, err, netid.ErrDuplicateKey)
}

func TestConfiguration_RemoveRejectsAbsentKey(t *testing.T) {
	cfg := NewConfiguration()
	err := cfg.Remove("link:1->2")
	require.Error(t, err)
}

func TestConfiguration_CloneIsIndependent(t *testing.T) {
	cfg := NewConfiguration()
	require.NoError(t, cfg.Insert(LinkWeight{Source: 1, Target: 2, Weight: 5}))

	clone := cfg.Clone()
	require.NoError(t, clone.Insert(LinkWeight{Source: 2, Target: 3, Weight: 1}))

	assert.Equal(t, 1, cfg.Len())
	assert.Equal(t, 2, clone.Len())
}

func TestModifier_ApplyTo_InsertRemoveUpdate(t *testing.T) {
	cfg := NewConfiguration()
	ins := Modifier{Kind: ModInsert, Expr: LinkWeight{Source: 1, Target: 2, Weight: 5}}
	require.NoError(t, ins.ApplyTo(cfg))

	upd := Modifier{
		Kind: ModUpdate,
		From: LinkWeight{Source: 1, Target: 2, Weight: 5},
		To:   LinkWeight{Source: 1, Target: 2, Weight: 9},
	}
	require.NoError(t, upd.ApplyTo(cfg))
	stored, ok := cfg.Get("link:1->2")
	require.True(t, ok)
	assert.Equal(t, netid.Weight(9), stored.(LinkWeight).Weight)

	rem := Modifier{Kind: ModRemove, Expr: LinkWeight{Source: 1, Target: 2, Weight: 9}}
	require.NoError(t, rem.ApplyTo(cfg))
	assert.Equal(t, 0, cfg.Len())
}

func TestModifier_ApplyTo_UpdateRejectsFromMismatch(t *testing.T) {
	cfg := NewConfiguration()
	require.NoError(t, cfg.Insert(LinkWeight{Source: 1, Target: 2, Weight: 5}))

	upd := Modifier{
		Kind: ModUpdate,
		From: LinkWeight{Source: 1, Target: 2, Weight: 999}, // wrong stored value
		To:   LinkWeight{Source: 1, Target: 2, Weight: 9},
	}
	err := upd.ApplyTo(cfg)
	require.ErrorIs(t, err, netid.ErrModifierMismatch)
}

func TestModifier_Invert_RoundTrips(t *testing.T) {
	cfg := NewConfiguration()
	m := Modifier{Kind: ModInsert, Expr: LinkWeight{Source: 1, Target: 2, Weight: 5}}
	require.NoError(t, m.ApplyTo(cfg))
	require.NoError(t, m.Invert().ApplyTo(cfg))
	assert.Equal(t, 0, cfg.Len())
}

func TestDiff_ProducesInsertRemoveUpdate(t *testing.T) {
	a := NewConfiguration()
	require.NoError(t, a.Insert(LinkWeight{Source: 1, Target: 2, Weight: 5}))
	require.NoError(t, a.Insert(Session{Router: 1, Neighbor: 4, Type: netid.EBGP}))

	b := NewConfiguration()
	require.NoError(t, b.Insert(LinkWeight{Source: 1, Target: 2, Weight: 9})) // update
	require.NoError(t, b.Insert(Session{Router: 2, Neighbor: 3, Type: netid.IBGPPeer}))

	mods := Diff(a, b)
	require.Len(t, mods, 3)

	var kinds []ModifierKind
	for _, m := range mods {
		kinds = append(kinds, m.Kind)
	}
	assert.Contains(t, kinds, ModUpdate)
	assert.Contains(t, kinds, ModRemove)
	assert.Contains(t, kinds, ModInsert)
}

func TestSession_KeyIsDirectionless(t *testing.T) {
	a := Session{Router: 4, Neighbor: 1, Type: netid.IBGPClient}
	b := Session{Router: 1, Neighbor: 4, Type: netid.IBGPPeer}
	assert.Equal(t, a.Key(), b.Key())

	// Re-homing the reflector side of a session is therefore an Update.
	cfgA := NewConfiguration()
	require.NoError(t, cfgA.Insert(b))
	cfgB := NewConfiguration()
	require.NoError(t, cfgB.Insert(a))
	mods := Diff(cfgA, cfgB)
	require.Len(t, mods, 1)
	assert.Equal(t, ModUpdate, mods[0].Kind)
}

func TestDiff_SetConfigEquivalentToApplyingModifiers(t *testing.T) {
	a := NewConfiguration()
	require.NoError(t, a.Insert(LinkWeight{Source: 1, Target: 2, Weight: 5}))

	b := NewConfiguration()
	require.NoError(t, b.Insert(LinkWeight{Source: 1, Target: 2, Weight: 9}))
	require.NoError(t, b.Insert(LinkWeight{Source: 2, Target: 3, Weight: 1}))

	mods := Diff(a, b)
	applied := a.Clone()
	for _, m := range mods {
		require.NoError(t, m.ApplyTo(applied))
	}

	assert.ElementsMatch(t, b.All(), applied.All())
}
