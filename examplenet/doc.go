// Package examplenet builds the benchmark topologies and migrations the
// synthesizer is exercised against: a small relocation scenario, a
// parametrized chain, a route-reflector carousel, a firewall-constrained
// switchover, and a twin-egress swap. The builders are ordinary consumers
// of the network API; nothing in the core depends on them.
package examplenet
