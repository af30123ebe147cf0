package config

import (
	"fmt"
	"sort"

	"github.com/netsynth/netsynth/netid"
)

// Configuration is a set of configuration atoms keyed by their natural
// domain key. At most one atom may occupy a given key at a time.
type Configuration struct {
	atoms map[string]Atom
}

// NewConfiguration returns an empty configuration.
func NewConfiguration() *Configuration {
	return &Configuration{atoms: make(map[string]Atom)}
}

// Insert adds atom under its key, failing if the key is already occupied.
func (c *Configuration) Insert(a Atom) error {
	if _, exists := c.atoms[a.Key()]; exists {
		return fmt.Errorf("%w: key %q already present", netid.ErrDuplicateKey, a.Key())
	}
	c.atoms[a.Key()] = a
	return nil
}

// Remove deletes the atom at key, failing if absent.
func (c *Configuration) Remove(key string) error {
	if _, exists := c.atoms[key]; !exists {
		return fmt.Errorf("%w: key %q absent", netid.ErrModifierMismatch, key)
	}
	delete(c.atoms, key)
	return nil
}

// Get returns the atom at key, if any.
func (c *Configuration) Get(key string) (Atom, bool) {
	a, ok := c.atoms[key]
	return a, ok
}

// All returns every atom in the configuration, sorted by key. The order is
// insertion-independent, so anything iterating a configuration (SetConfig
// included) behaves identically run after run.
func (c *Configuration) All() []Atom {
	out := make([]Atom, 0, len(c.atoms))
	for _, a := range c.atoms {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Clone returns an independent copy sharing no mutable state.
func (c *Configuration) Clone() *Configuration {
	out := NewConfiguration()
	for k, v := range c.atoms {
		out.atoms[k] = v
	}
	return out
}

// Len reports the number of atoms currently held.
func (c *Configuration) Len() int { return len(c.atoms) }

// ModifierKind distinguishes the three atomic modifier shapes.
type ModifierKind int

const (
	ModInsert ModifierKind = iota
	ModRemove
	ModUpdate
)

func (k ModifierKind) String() string {
	switch k {
	case ModInsert:
		return "insert"
	case ModRemove:
		return "remove"
	case ModUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Modifier is one atomic configuration change: Insert(expr), Remove(expr),
// or Update{from,to}. It is the indivisible unit the synthesizer orders.
type Modifier struct {
	Kind ModifierKind
	// Expr is the atom being inserted or removed (Kind == ModInsert/ModRemove).
	Expr Atom
	// From/To are the prior/new atom values for an update; both share a Key.
	From Atom
	To   Atom
}

func (m Modifier) String() string {
	switch m.Kind {
	case ModInsert:
		return fmt.Sprintf("Insert(%s)", m.Expr)
	case ModRemove:
		return fmt.Sprintf("Remove(%s)", m.Expr)
	case ModUpdate:
		return fmt.Sprintf("Update(%s -> %s)", m.From, m.To)
	default:
		return "Modifier(?)"
	}
}

// Key returns the configuration key this modifier acts on.
func (m Modifier) Key() string {
	switch m.Kind {
	case ModInsert, ModRemove:
		return m.Expr.Key()
	case ModUpdate:
		return m.From.Key()
	default:
		return ""
	}
}

// Validate checks m's preconditions against cfg without mutating anything:
// Insert requires a free key, Remove requires the stored atom to equal the
// removed one, Update requires the stored atom to equal Update.From. The
// network simulator validates before touching any device so a rejected
// modifier has no side effects.
func (m Modifier) Validate(cfg *Configuration) error {
	switch m.Kind {
	case ModInsert:
		if _, exists := cfg.Get(m.Expr.Key()); exists {
			return fmt.Errorf("%w: key %q already present", netid.ErrDuplicateKey, m.Expr.Key())
		}
		return nil
	case ModRemove:
		stored, ok := cfg.Get(m.Expr.Key())
		if !ok {
			return fmt.Errorf("%w: remove of absent key %q", netid.ErrModifierMismatch, m.Expr.Key())
		}
		if !stored.Equal(m.Expr) {
			return fmt.Errorf("%w: remove value mismatch at key %q", netid.ErrModifierMismatch, m.Expr.Key())
		}
		return nil
	case ModUpdate:
		stored, ok := cfg.Get(m.From.Key())
		if !ok {
			return fmt.Errorf("%w: update of absent key %q", netid.ErrModifierMismatch, m.From.Key())
		}
		if !stored.Equal(m.From) {
			return fmt.Errorf("%w: update.from mismatch at key %q", netid.ErrModifierMismatch, m.From.Key())
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown modifier kind %v", netid.ErrModifierMismatch, m.Kind)
	}
}

// ApplyTo mutates cfg according to m, enforcing the configuration-uniqueness
// invariant. It does not touch running router/network state; that is the
// job of netsim.Network.ApplyModifier, which translates a Modifier into
// device-level changes before delegating here.
func (m Modifier) ApplyTo(cfg *Configuration) error {
	switch m.Kind {
	case ModInsert:
		return cfg.Insert(m.Expr)
	case ModRemove:
		stored, ok := cfg.Get(m.Expr.Key())
		if !ok {
			return fmt.Errorf("%w: remove of absent key %q", netid.ErrModifierMismatch, m.Expr.Key())
		}
		if !stored.Equal(m.Expr) {
			return fmt.Errorf("%w: remove value mismatch at key %q", netid.ErrModifierMismatch, m.Expr.Key())
		}
		return cfg.Remove(m.Expr.Key())
	case ModUpdate:
		stored, ok := cfg.Get(m.From.Key())
		if !ok {
			return fmt.Errorf("%w: update of absent key %q", netid.ErrModifierMismatch, m.From.Key())
		}
		if !stored.Equal(m.From) {
			return fmt.Errorf("%w: update.from mismatch at key %q", netid.ErrModifierMismatch, m.From.Key())
		}
		if err := cfg.Remove(m.From.Key()); err != nil {
			return err
		}
		return cfg.Insert(m.To)
	default:
		return fmt.Errorf("%w: unknown modifier kind %v", netid.ErrModifierMismatch, m.Kind)
	}
}

// Invert returns the modifier that undoes m against the configuration it
// was applied to, used to build the per-router/per-network undo logs.
func (m Modifier) Invert() Modifier {
	switch m.Kind {
	case ModInsert:
		return Modifier{Kind: ModRemove, Expr: m.Expr}
	case ModRemove:
		return Modifier{Kind: ModInsert, Expr: m.Expr}
	case ModUpdate:
		return Modifier{Kind: ModUpdate, From: m.To, To: m.From}
	default:
		return Modifier{}
	}
}

// Diff computes the set-difference modifiers taking configuration `a` to
// configuration `b`: Insert for keys only in b, Remove for keys only in a,
// Update for keys present in both with differing values. The result is
// sorted by key so callers get the same modifier list for the same pair of
// configurations, run after run.
func Diff(a, b *Configuration) []Modifier {
	var mods []Modifier
	seen := make(map[string]bool)

	for k, av := range a.atoms {
		seen[k] = true
		bv, ok := b.atoms[k]
		if !ok {
			mods = append(mods, Modifier{Kind: ModRemove, Expr: av})
			continue
		}
		if !av.Equal(bv) {
			mods = append(mods, Modifier{Kind: ModUpdate, From: av, To: bv})
		}
	}
	for k, bv := range b.atoms {
		if seen[k] {
			continue
		}
		mods = append(mods, Modifier{Kind: ModInsert, Expr: bv})
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].Key() < mods[j].Key() })
	return mods
}
