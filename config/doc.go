// Package config implements the typed configuration model: atomic
// configuration expressions (link weights, BGP sessions, route-map rules,
// static routes), the modifier set that diffs one configuration into
// another, and patch application enforcing that at most one expression
// occupies a given key at a time.
package config
