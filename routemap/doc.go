// Package routemap implements the filter/transform pipeline applied to BGP
// routes on ingress and egress. A RouteMap is an ordered list of Rules; each
// Rule matches on route attributes and either denies the route or allows it
// through, optionally rewriting attributes first.
package routemap
