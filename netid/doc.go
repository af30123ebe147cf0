// Package netid defines the shared identifiers and primitives used across
// the simulator: router indices, AS numbers, prefixes, link weights, and the
// error kinds every other package builds on.
package netid
