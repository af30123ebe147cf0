package search

import (
	"math/rand"
	"sort"

	"github.com/netsynth/netsynth/config"
)

// ModifierOrder seeds the search with an initial total order over the
// modifier list. The search itself may depart from it; the order only
// decides which permutations are visited first.
type ModifierOrder interface {
	Sort(mods []config.Modifier)
}

// Unordered leaves the modifiers exactly as given.
type Unordered struct{}

func (Unordered) Sort([]config.Modifier) {}

// Simple applies the heuristic that usually front-loads safe work: inserts
// first (new state tends to be unused until something depends on it), then
// updates, then removes. Ties break by configuration key.
type Simple struct{}

func (Simple) Sort(mods []config.Modifier) {
	rank := func(k config.ModifierKind) int {
		switch k {
		case config.ModInsert:
			return 0
		case config.ModUpdate:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(mods, func(i, j int) bool {
		ri, rj := rank(mods[i].Kind), rank(mods[j].Kind)
		if ri != rj {
			return ri < rj
		}
		return mods[i].Key() < mods[j].Key()
	})
}

// Random shuffles the modifiers with the given source, so parallel workers
// seeded differently explore different regions of the permutation tree.
type Random struct {
	Rand *rand.Rand
}

func (r Random) Sort(mods []config.Modifier) {
	r.Rand.Shuffle(len(mods), func(i, j int) {
		mods[i], mods[j] = mods[j], mods[i]
	})
}
