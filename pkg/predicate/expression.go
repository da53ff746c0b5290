package predicate

import (
	"fmt"

	"github.com/orneryd/nornicgraph/pkg/compare"
	"github.com/orneryd/nornicgraph/pkg/record"
	"github.com/orneryd/nornicgraph/pkg/value"
)

// Expression is a node of an expression tree. It is one of PropertyExpr,
// FuncExpr or BinaryExpr. Every node carries its own negation flag.
type Expression interface {
	Predicate
	fmt.Stringer
	// IsNegative reports the node's own negation flag.
	IsNegative() bool

	negated() Expression
	collect(names map[string]struct{})
}

// Not returns e with its own negation flag flipped.
func Not(e Expression) Expression { return e.negated() }

// AndExpr builds a binary node requiring both operands.
func AndExpr(l, r Expression) BinaryExpr { return BinaryExpr{op: OpAnd, left: l, right: r} }

// OrExpr builds a binary node requiring either operand.
func OrExpr(l, r Expression) BinaryExpr { return BinaryExpr{op: OpOr, left: l, right: r} }

// PropertyNames returns the distinct property names read by property
// leaves of e, sorted. Function leaves contribute nothing.
func PropertyNames(e Expression) []string {
	set := make(map[string]struct{})
	e.collect(set)
	return sortedNames(set)
}

// PropertyExpr is a leaf testing one property. Builders return a new leaf.
type PropertyExpr struct {
	cond Condition
}

// Prop starts a property leaf that tests for a non-null value.
func Prop(name string) PropertyExpr {
	return PropertyExpr{cond: NewCondition(name)}
}

// PropWith builds a property leaf with an explicit comparator and operands.
func PropWith(name string, cmp compare.Comparator, operands ...value.Value) PropertyExpr {
	return PropertyExpr{cond: NewCondition(name).Using(cmp, operands...)}
}

func (p PropertyExpr) Eq(v value.Value) PropertyExpr      { return PropertyExpr{p.cond.Eq(v)} }
func (p PropertyExpr) Gt(v value.Value) PropertyExpr      { return PropertyExpr{p.cond.Gt(v)} }
func (p PropertyExpr) Lt(v value.Value) PropertyExpr      { return PropertyExpr{p.cond.Lt(v)} }
func (p PropertyExpr) Ge(v value.Value) PropertyExpr      { return PropertyExpr{p.cond.Ge(v)} }
func (p PropertyExpr) Le(v value.Value) PropertyExpr      { return PropertyExpr{p.cond.Le(v)} }
func (p PropertyExpr) Contain(v value.Value) PropertyExpr { return PropertyExpr{p.cond.Contain(v)} }
func (p PropertyExpr) EndWith(v value.Value) PropertyExpr { return PropertyExpr{p.cond.EndWith(v)} }
func (p PropertyExpr) Null() PropertyExpr                 { return PropertyExpr{p.cond.Null()} }
func (p PropertyExpr) NotNull() PropertyExpr              { return PropertyExpr{p.cond.NotNull()} }

func (p PropertyExpr) BeginWith(v value.Value) PropertyExpr {
	return PropertyExpr{p.cond.BeginWith(v)}
}

func (p PropertyExpr) Like(pattern string) PropertyExpr {
	return PropertyExpr{p.cond.Like(pattern)}
}

func (p PropertyExpr) Regex(pattern string) PropertyExpr {
	return PropertyExpr{p.cond.Regex(pattern)}
}

func (p PropertyExpr) In(values ...value.Value) PropertyExpr {
	return PropertyExpr{p.cond.In(values...)}
}

func (p PropertyExpr) Between(lower, upper value.Value, b Bound) PropertyExpr {
	return PropertyExpr{p.cond.Between(lower, upper, b)}
}

func (p PropertyExpr) IgnoreCase() PropertyExpr { return PropertyExpr{p.cond.IgnoreCase()} }
func (p PropertyExpr) Not() PropertyExpr        { return PropertyExpr{p.cond.Not()} }

func (p PropertyExpr) And(e Expression) BinaryExpr { return AndExpr(p, e) }
func (p PropertyExpr) Or(e Expression) BinaryExpr  { return OrExpr(p, e) }

// Condition returns the leaf's test as a Condition.
func (p PropertyExpr) Condition() Condition { return p.cond }

func (p PropertyExpr) IsNegative() bool        { return p.cond.negate }
func (p PropertyExpr) negated() Expression     { return p.Not() }
func (p PropertyExpr) String() string          { return p.cond.String() }
func (p PropertyExpr) PropertyNames() []string { return p.cond.PropertyNames() }

func (p PropertyExpr) collect(names map[string]struct{}) {
	if p.cond.property != "" {
		names[p.cond.property] = struct{}{}
	}
}

// Execute resolves the leaf's property type from types and evaluates the
// comparison. A property missing from types fails with
// compare.ErrInvalidPropertyType.
func (p PropertyExpr) Execute(r *record.Record, types PropertyTypes) (bool, error) {
	if p.cond.property == "" {
		return false, fmt.Errorf("%w: property leaf without a property name", ErrInvalidExpression)
	}
	typ, ok := types[p.cond.property]
	if !ok {
		return false, fmt.Errorf("%w: property %q is not resolved", compare.ErrInvalidPropertyType, p.cond.property)
	}
	return p.cond.Evaluate(r.Get(p.cond.property), typ)
}

// FuncExpr is a leaf that delegates to an Evaluator.
type FuncExpr struct {
	name   string
	eval   Evaluator
	negate bool
}

// Fn builds a function leaf.
func Fn(e Evaluator) FuncExpr { return FuncExpr{eval: e} }

// NamedFn builds a function leaf that renders as name.
func NamedFn(name string, e Evaluator) FuncExpr { return FuncExpr{name: name, eval: e} }

// Match builds a function leaf from a plain function.
func Match(f func(r *record.Record) bool) FuncExpr { return FuncExpr{eval: EvaluatorFunc(f)} }

func (f FuncExpr) Not() FuncExpr {
	f.negate = !f.negate
	return f
}

func (f FuncExpr) And(e Expression) BinaryExpr { return AndExpr(f, e) }
func (f FuncExpr) Or(e Expression) BinaryExpr  { return OrExpr(f, e) }

func (f FuncExpr) IsNegative() bool            { return f.negate }
func (f FuncExpr) negated() Expression         { return f.Not() }
func (f FuncExpr) collect(map[string]struct{}) {}
func (f FuncExpr) PropertyNames() []string     { return nil }

// Execute calls the evaluator and applies the leaf's negation.
func (f FuncExpr) Execute(r *record.Record, _ PropertyTypes) (bool, error) {
	if f.eval == nil {
		return false, fmt.Errorf("%w: function leaf without an evaluator", ErrInvalidExpression)
	}
	return f.eval.Evaluate(r) != f.negate, nil
}

func (f FuncExpr) String() string {
	name := f.name
	if name == "" {
		name = "func"
	}
	s := name + "()"
	if f.negate {
		s = "NOT (" + s + ")"
	}
	return s
}

// BinaryExpr combines two expressions with AND or OR. The operands keep
// their own negation flags.
type BinaryExpr struct {
	op          Operator
	left, right Expression
	negate      bool
}

func (b BinaryExpr) Not() BinaryExpr {
	b.negate = !b.negate
	return b
}

func (b BinaryExpr) And(e Expression) BinaryExpr { return AndExpr(b, e) }
func (b BinaryExpr) Or(e Expression) BinaryExpr  { return OrExpr(b, e) }

func (b BinaryExpr) Operator() Operator  { return b.op }
func (b BinaryExpr) Left() Expression    { return b.left }
func (b BinaryExpr) Right() Expression   { return b.right }
func (b BinaryExpr) IsNegative() bool    { return b.negate }
func (b BinaryExpr) negated() Expression { return b.Not() }

func (b BinaryExpr) collect(names map[string]struct{}) {
	if b.left != nil {
		b.left.collect(names)
	}
	if b.right != nil {
		b.right.collect(names)
	}
}

func (b BinaryExpr) PropertyNames() []string { return PropertyNames(b) }

// Execute evaluates the operands with short-circuiting and applies the
// node's own negation.
func (b BinaryExpr) Execute(r *record.Record, types PropertyTypes) (bool, error) {
	if b.left == nil || b.right == nil {
		return false, fmt.Errorf("%w: binary node is missing an operand", ErrInvalidExpression)
	}
	left, err := b.left.Execute(r, types)
	if err != nil {
		return false, err
	}
	var result bool
	switch b.op {
	case OpAnd:
		result = left
		if left {
			if result, err = b.right.Execute(r, types); err != nil {
				return false, err
			}
		}
	case OpOr:
		result = left
		if !left {
			if result, err = b.right.Execute(r, types); err != nil {
				return false, err
			}
		}
	default:
		return false, fmt.Errorf("%w: binary node with operator %s", ErrInvalidExpression, b.op)
	}
	return result != b.negate, nil
}

func (b BinaryExpr) String() string {
	render := func(e Expression) string {
		if e == nil {
			return "<nil>"
		}
		return e.String()
	}
	s := "(" + render(b.left) + " " + b.op.String() + " " + render(b.right) + ")"
	if b.negate {
		s = "NOT " + s
	}
	return s
}
