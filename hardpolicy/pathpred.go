package hardpolicy

import (
	"fmt"
	"strings"

	"github.com/netsynth/netsynth/netid"
)

// PathPredicate decides whether a forwarding path (an ordered list of
// router ids, ending at an external router) is acceptable.
type PathPredicate interface {
	Holds(path []netid.RouterID) bool
	fmt.Stringer
}

// Node is satisfied when v appears anywhere on the path.
type Node struct {
	V netid.RouterID
}

func (p Node) Holds(path []netid.RouterID) bool {
	for _, r := range path {
		if r == p.V {
			return true
		}
	}
	return false
}

func (p Node) String() string { return fmt.Sprintf("Node(%d)", p.V) }

// Edge is satisfied when the path traverses a->b as consecutive hops.
type Edge struct {
	A, B netid.RouterID
}

func (p Edge) Holds(path []netid.RouterID) bool {
	for i := 0; i+1 < len(path); i++ {
		if path[i] == p.A && path[i+1] == p.B {
			return true
		}
	}
	return false
}

func (p Edge) String() string { return fmt.Sprintf("Edge(%d->%d)", p.A, p.B) }

// PathAnd is satisfied when every child predicate is.
type PathAnd struct {
	Children []PathPredicate
}

func (p PathAnd) Holds(path []netid.RouterID) bool {
	for _, c := range p.Children {
		if !c.Holds(path) {
			return false
		}
	}
	return true
}

func (p PathAnd) String() string { return combineString("And", p.Children) }

// PathOr is satisfied when at least one child predicate is.
type PathOr struct {
	Children []PathPredicate
}

func (p PathOr) Holds(path []netid.RouterID) bool {
	for _, c := range p.Children {
		if c.Holds(path) {
			return true
		}
	}
	return false
}

func (p PathOr) String() string { return combineString("Or", p.Children) }

// PathNot inverts its child predicate.
type PathNot struct {
	Child PathPredicate
}

func (p PathNot) Holds(path []netid.RouterID) bool { return !p.Child.Holds(path) }
func (p PathNot) String() string                   { return fmt.Sprintf("Not(%s)", p.Child) }

func combineString(op string, children []PathPredicate) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = c.String()
	}
	return op + "(" + strings.Join(parts, ", ") + ")"
}

// Literal is one node- or edge-membership test inside a CNF group.
type Literal struct {
	IsEdge bool
	A, B   netid.RouterID // node literal uses A only
}

func (l Literal) onPath(path []netid.RouterID) bool {
	if l.IsEdge {
		return Edge{A: l.A, B: l.B}.Holds(path)
	}
	return Node{V: l.A}.Holds(path)
}

func (l Literal) String() string {
	if l.IsEdge {
		return fmt.Sprintf("%d->%d", l.A, l.B)
	}
	return fmt.Sprintf("%d", l.A)
}

// NodeLit and EdgeLit build CNF literals.
func NodeLit(v netid.RouterID) Literal    { return Literal{A: v} }
func EdgeLit(a, b netid.RouterID) Literal { return Literal{IsEdge: true, A: a, B: b} }

// Group is one conjunct of a CNF path predicate: the path must contain at
// least one positive literal (vacuously true when none are given) and none
// of the negative literals.
type Group struct {
	Positive []Literal
	Negative []Literal
}

func (g Group) holds(path []netid.RouterID) bool {
	posOK := len(g.Positive) == 0
	for _, l := range g.Positive {
		if l.onPath(path) {
			posOK = true
			break
		}
	}
	if !posOK {
		return false
	}
	for _, l := range g.Negative {
		if l.onPath(path) {
			return false
		}
	}
	return true
}

// CNF is a conjunction of Groups. It satisfies PathPredicate, so it can be
// used anywhere an expression tree can.
type CNF []Group

func (c CNF) Holds(path []netid.RouterID) bool {
	for _, g := range c {
		if !g.holds(path) {
			return false
		}
	}
	return true
}

func (c CNF) String() string {
	parts := make([]string, len(c))
	for i, g := range c {
		parts[i] = fmt.Sprintf("(+%v -%v)", g.Positive, g.Negative)
	}
	return "CNF[" + strings.Join(parts, " ∧ ") + "]"
}

// Normalize converts an expression tree into an equivalent CNF, when one
// exists in the group form above. Supported shapes: literals, Not over a
// literal, And over anything supported, and Or whose children are all
// node/edge literals; any other child of an Or makes Normalize report
// ok = false. Shapes whose exact CNF would
// need a negative literal inside a disjunction (e.g. Or(Node(a),
// Not(Node(b)))) are not representable as Groups; Normalize reports ok =
// false for those and callers fall back to evaluating the tree directly.
func Normalize(p PathPredicate) (CNF, bool) {
	switch v := p.(type) {
	case CNF:
		return v, true
	case Node:
		return CNF{{Positive: []Literal{NodeLit(v.V)}}}, true
	case Edge:
		return CNF{{Positive: []Literal{EdgeLit(v.A, v.B)}}}, true
	case PathNot:
		lit, ok := asLiteral(v.Child)
		if !ok {
			return nil, false
		}
		return CNF{{Negative: []Literal{lit}}}, true
	case PathAnd:
		var out CNF
		for _, c := range v.Children {
			sub, ok := Normalize(c)
			if !ok {
				return nil, false
			}
			out = append(out, sub...)
		}
		return out, true
	case PathOr:
		g := Group{}
		for _, c := range v.Children {
			if lit, ok := asLiteral(c); ok {
				g.Positive = append(g.Positive, lit)
				continue
			}
			return nil, false
		}
		return CNF{g}, true
	default:
		return nil, false
	}
}

func asLiteral(p PathPredicate) (Literal, bool) {
	switch v := p.(type) {
	case Node:
		return NodeLit(v.V), true
	case Edge:
		return EdgeLit(v.A, v.B), true
	default:
		return Literal{}, false
	}
}
