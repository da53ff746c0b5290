package predicate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/orneryd/nornicgraph/pkg/record"
)

// Term is anything that can be composed into a MultiCondition: a Condition
// or another MultiCondition.
type Term interface {
	graft(dst *MultiCondition) int
}

type mcNode struct {
	leaf        bool
	cond        Condition
	op          Operator
	left, right int
	negate      bool
}

// MultiCondition is an AND/OR tree of Conditions.
//
// Nodes are stored in an arena owned by the tree and refer to each other by
// index. The tree also keeps the indices of every condition node so property
// names can be collected without walking the tree. Only composite nodes
// carry a negation flag; a Condition's own negation is kept inside the
// Condition.
//
// The zero MultiCondition is empty and fails with ErrInternal when executed.
type MultiCondition struct {
	nodes  []mcNode
	root   int
	leaves []int
}

func (c Condition) graft(dst *MultiCondition) int {
	idx := len(dst.nodes)
	dst.nodes = append(dst.nodes, mcNode{leaf: true, cond: c})
	dst.leaves = append(dst.leaves, idx)
	return idx
}

func (m MultiCondition) graft(dst *MultiCondition) int {
	if len(m.nodes) == 0 {
		return -1
	}
	offset := len(dst.nodes)
	for _, n := range m.nodes {
		if !n.leaf {
			n.left += offset
			n.right += offset
		}
		dst.nodes = append(dst.nodes, n)
	}
	for _, l := range m.leaves {
		dst.leaves = append(dst.leaves, l+offset)
	}
	return m.root + offset
}

func compose(op Operator, a, b Term) MultiCondition {
	var m MultiCondition
	left := a.graft(&m)
	right := b.graft(&m)
	m.nodes = append(m.nodes, mcNode{op: op, left: left, right: right})
	m.root = len(m.nodes) - 1
	return m
}

// And combines two terms into a new tree.
func And(a, b Term) MultiCondition { return compose(OpAnd, a, b) }

// Or combines two terms into a new tree.
func Or(a, b Term) MultiCondition { return compose(OpOr, a, b) }

func (c Condition) And(t Term) MultiCondition      { return compose(OpAnd, c, t) }
func (c Condition) Or(t Term) MultiCondition       { return compose(OpOr, c, t) }
func (m MultiCondition) And(t Term) MultiCondition { return compose(OpAnd, m, t) }
func (m MultiCondition) Or(t Term) MultiCondition  { return compose(OpOr, m, t) }

// Not returns a copy of the tree with the root composite's negation
// flipped. Negation is not pushed down to the children.
func (m MultiCondition) Not() MultiCondition {
	out := MultiCondition{
		nodes:  slices.Clone(m.nodes),
		root:   m.root,
		leaves: slices.Clone(m.leaves),
	}
	if m.root >= 0 && m.root < len(out.nodes) && !out.nodes[m.root].leaf {
		out.nodes[m.root].negate = !out.nodes[m.root].negate
	}
	return out
}

// IsNegative reports whether the root composite is negated.
func (m MultiCondition) IsNegative() bool {
	if m.root < 0 || m.root >= len(m.nodes) {
		return false
	}
	return m.nodes[m.root].negate
}

// Conditions returns every Condition in the tree, in construction order.
func (m MultiCondition) Conditions() []Condition {
	out := make([]Condition, 0, len(m.leaves))
	for _, idx := range m.leaves {
		out = append(out, m.nodes[idx].cond)
	}
	return out
}

// PropertyNames implements Predicate using the leaf index list.
func (m MultiCondition) PropertyNames() []string {
	set := make(map[string]struct{}, len(m.leaves))
	for _, idx := range m.leaves {
		if p := m.nodes[idx].cond.property; p != "" {
			set[p] = struct{}{}
		}
	}
	return sortedNames(set)
}

// Execute implements Predicate. The right operand of a composite is not
// evaluated when the left operand already decides the result.
func (m MultiCondition) Execute(r *record.Record, types PropertyTypes) (bool, error) {
	if len(m.leaves) == 0 {
		return false, fmt.Errorf("%w: empty multi-condition", ErrInternal)
	}
	return m.eval(m.root, r, types)
}

func (m MultiCondition) eval(idx int, r *record.Record, types PropertyTypes) (bool, error) {
	if idx < 0 || idx >= len(m.nodes) {
		return false, fmt.Errorf("%w: multi-condition node %d out of range", ErrInternal, idx)
	}
	n := m.nodes[idx]
	if n.leaf {
		return n.cond.Execute(r, types)
	}

	left, err := m.eval(n.left, r, types)
	if err != nil {
		return false, err
	}
	var result bool
	switch n.op {
	case OpAnd:
		result = left
		if left {
			if result, err = m.eval(n.right, r, types); err != nil {
				return false, err
			}
		}
	case OpOr:
		result = left
		if !left {
			if result, err = m.eval(n.right, r, types); err != nil {
				return false, err
			}
		}
	default:
		return false, fmt.Errorf("%w: multi-condition node %d has no operator", ErrInternal, idx)
	}
	return result != n.negate, nil
}

func (m MultiCondition) String() string {
	if len(m.nodes) == 0 {
		return "<empty>"
	}
	var sb strings.Builder
	m.render(&sb, m.root)
	return sb.String()
}

func (m MultiCondition) render(sb *strings.Builder, idx int) {
	if idx < 0 || idx >= len(m.nodes) {
		sb.WriteString("<empty>")
		return
	}
	n := m.nodes[idx]
	if n.leaf {
		sb.WriteString(n.cond.String())
		return
	}
	if n.negate {
		sb.WriteString("NOT ")
	}
	sb.WriteString("(")
	m.render(sb, n.left)
	sb.WriteString(" ")
	sb.WriteString(n.op.String())
	sb.WriteString(" ")
	m.render(sb, n.right)
	sb.WriteString(")")
}
