package search

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// discoverGroup looks for a small subset of the pending units that, applied
// back to back as one atomic step, restores policy compliance from the
// current state. Subset sizes are tried smallest first, and for each subset
// every ordering is attempted, since a group is only as valid as its internal
// order. The successful combination is returned as a single composite
// unit; the session is left untouched either way.
//
// The deadline bounds this one discovery attempt. Running out of it is not
// an error: the caller simply proceeds without a new group.
func discoverGroup(s *session, pending []unit, maxSize int, deadline time.Time) (unit, bool, error) {
	max := maxSize
	if max > len(pending) {
		max = len(pending)
	}

	for size := 2; size <= max; size++ {
		found, ok, err := combinations(len(pending), size, func(idx []int) (unit, bool, error) {
			if err := s.checkAbort(); err != nil {
				return unit{}, false, err
			}
			if !deadline.IsZero() && !time.Now().Before(deadline) {
				return unit{}, false, errDiscoveryBudget
			}

			chosen := make([]unit, len(idx))
			for i, j := range idx {
				chosen[i] = pending[j]
			}
			return tryOrderings(s, chosen)
		})
		if err != nil {
			if err == errDiscoveryBudget {
				return unit{}, false, nil
			}
			return unit{}, false, err
		}
		if ok {
			logrus.WithFields(logrus.Fields{
				"component": "search",
				"size":      len(found.mods),
			}).Debug("dependency group discovered")
			return found, true, nil
		}
	}
	return unit{}, false, nil
}

// errDiscoveryBudget never escapes discoverGroup; it just unwinds the
// enumeration when this attempt's slice of the time budget runs out.
var errDiscoveryBudget = errors.New("discovery budget exhausted")

// tryOrderings attempts every permutation of the chosen units as an atomic
// group and returns the first that the policy accepts.
func tryOrderings(s *session, chosen []unit) (unit, bool, error) {
	perm := append([]unit(nil), chosen...)
	var result unit
	found := false

	err := permute(perm, func(p []unit) (bool, error) {
		candidate := unit{mods: flatten(p)}
		if err := s.applyUnit(candidate); err != nil {
			if terminal(err) {
				return false, err
			}
			return false, nil
		}
		s.undoUnit()
		result, found = candidate, true
		return true, nil
	})
	return result, found, err
}

// combinations enumerates all size-k index subsets of [0,n), invoking fn on
// each until fn signals success or errors.
func combinations(n, k int, fn func(idx []int) (unit, bool, error)) (unit, bool, error) {
	idx := make([]int, k)
	var rec func(start, depth int) (unit, bool, error)
	rec = func(start, depth int) (unit, bool, error) {
		if depth == k {
			return fn(idx)
		}
		for i := start; i <= n-(k-depth); i++ {
			idx[depth] = i
			u, ok, err := rec(i+1, depth+1)
			if err != nil || ok {
				return u, ok, err
			}
		}
		return unit{}, false, nil
	}
	return rec(0, 0)
}

// permute runs fn on every permutation of items (Heap's algorithm),
// stopping early when fn reports done.
func permute(items []unit, fn func([]unit) (bool, error)) error {
	var rec func(k int) (bool, error)
	rec = func(k int) (bool, error) {
		if k == 1 {
			return fn(items)
		}
		for i := 0; i < k; i++ {
			done, err := rec(k - 1)
			if done || err != nil {
				return done, err
			}
			if k%2 == 0 {
				items[i], items[k-1] = items[k-1], items[i]
			} else {
				items[0], items[k-1] = items[k-1], items[0]
			}
		}
		return false, nil
	}
	_, err := rec(len(items))
	return err
}
