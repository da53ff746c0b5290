// Package predicate provides the filters evaluated against stored records.
//
// There are four ways to express a filter:
//
//   - Condition: one immutable property-scoped test, e.g. age > 30.
//   - MultiCondition: AND/OR composition of Conditions, negatable only at
//     composite nodes.
//   - Expression: AND/OR composition of property leaves and function leaves,
//     negatable at every node.
//   - FuncExpr on its own: an arbitrary Evaluator over the record.
//
// All of them implement Predicate, which is what the query executor
// consumes. Every value in this package is immutable once built, so a single
// predicate may be evaluated concurrently against many records.
//
// Example:
//
//	adults := predicate.NewCondition("age").Ge(value.Int(18))
//	named := predicate.NewCondition("name").BeginWith(value.Text("a")).IgnoreCase()
//	tree := adults.And(named).Not()
//
//	expr := predicate.Prop("age").Ge(value.Int(18)).
//		Or(predicate.Match(func(r *record.Record) bool { return r.Has("guardian") }))
package predicate

import (
	"sort"

	"github.com/orneryd/nornicgraph/pkg/record"
	"github.com/orneryd/nornicgraph/pkg/value"
)

// PropertyTypes maps a property name to the type it must be interpreted as
// during one scan. It is resolved once per scan, before any record is read.
type PropertyTypes map[string]value.PropertyType

// Predicate is a filter the query executor can evaluate.
type Predicate interface {
	// PropertyNames returns the distinct property names the predicate reads,
	// in sorted order.
	PropertyNames() []string
	// Execute evaluates the predicate against r using the pre-resolved
	// property types.
	Execute(r *record.Record, types PropertyTypes) (bool, error)
}

// Evaluator is an opaque test over a record. Implementations must not
// mutate storage or retain r after returning.
type Evaluator interface {
	Evaluate(r *record.Record) bool
}

// EvaluatorFunc adapts a plain function to Evaluator.
type EvaluatorFunc func(r *record.Record) bool

func (f EvaluatorFunc) Evaluate(r *record.Record) bool { return f(r) }

// Operator combines two subtrees.
type Operator uint8

const (
	OpNone Operator = iota
	OpAnd
	OpOr
)

func (o Operator) String() string {
	switch o {
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	}
	return "NONE"
}

func sortedNames(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
