package predicate

import (
	"fmt"
	"strings"

	"github.com/orneryd/nornicgraph/pkg/compare"
	"github.com/orneryd/nornicgraph/pkg/record"
	"github.com/orneryd/nornicgraph/pkg/value"
)

// Bound selects which ends of a between range are inclusive.
type Bound struct {
	Lower bool
	Upper bool
}

// Inclusive includes both ends of a between range.
var Inclusive = Bound{Lower: true, Upper: true}

// Condition is an immutable single-property test. Every builder returns a
// new Condition with one aspect changed.
type Condition struct {
	property   string
	comparator compare.Comparator
	operands   []value.Value
	ignoreCase bool
	negate     bool
}

// NewCondition starts a condition on property. It defaults to NotNull.
func NewCondition(property string) Condition {
	return Condition{property: property, comparator: compare.NotNull}
}

func (c Condition) with(cmp compare.Comparator, operands ...value.Value) Condition {
	c.comparator = cmp
	if len(operands) == 0 {
		c.operands = nil
	} else {
		c.operands = append([]value.Value(nil), operands...)
	}
	return c
}

func (c Condition) Eq(v value.Value) Condition        { return c.with(compare.Equal, v) }
func (c Condition) Gt(v value.Value) Condition        { return c.with(compare.Greater, v) }
func (c Condition) Lt(v value.Value) Condition        { return c.with(compare.Less, v) }
func (c Condition) Ge(v value.Value) Condition        { return c.with(compare.GreaterEqual, v) }
func (c Condition) Le(v value.Value) Condition        { return c.with(compare.LessEqual, v) }
func (c Condition) Contain(v value.Value) Condition   { return c.with(compare.Contains, v) }
func (c Condition) BeginWith(v value.Value) Condition { return c.with(compare.BeginsWith, v) }
func (c Condition) EndWith(v value.Value) Condition   { return c.with(compare.EndsWith, v) }
func (c Condition) Null() Condition                   { return c.with(compare.IsNull) }
func (c Condition) NotNull() Condition                { return c.with(compare.NotNull) }

// Like matches text against a pattern where % is any run of characters and
// _ is exactly one.
func (c Condition) Like(pattern string) Condition {
	return c.with(compare.Like, value.Text(pattern))
}

// Regex matches text against a regular expression anchored at both ends.
func (c Condition) Regex(pattern string) Condition {
	return c.with(compare.Regex, value.Text(pattern))
}

// In matches when the property equals any of values.
func (c Condition) In(values ...value.Value) Condition {
	return c.with(compare.In, values...)
}

// Between matches values in the range [lower, upper] with the given
// inclusivity.
func (c Condition) Between(lower, upper value.Value, b Bound) Condition {
	return c.with(compare.BetweenFor(b.Lower, b.Upper), lower, upper)
}

// Using sets an explicit comparator and operands. Operand counts are checked
// when the condition is evaluated.
func (c Condition) Using(cmp compare.Comparator, operands ...value.Value) Condition {
	return c.with(cmp, operands...)
}

// IgnoreCase makes text comparisons case-insensitive.
func (c Condition) IgnoreCase() Condition {
	c.ignoreCase = true
	return c
}

// Not flips the condition's negation.
func (c Condition) Not() Condition {
	c.negate = !c.negate
	return c
}

func (c Condition) Property() string               { return c.property }
func (c Condition) Comparator() compare.Comparator { return c.comparator }
func (c Condition) IsIgnoreCase() bool             { return c.ignoreCase }
func (c Condition) IsNegative() bool               { return c.negate }

// Operands returns a copy of the operand values.
func (c Condition) Operands() []value.Value {
	return append([]value.Value(nil), c.operands...)
}

// PropertyNames implements Predicate.
func (c Condition) PropertyNames() []string {
	if c.property == "" {
		return nil
	}
	return []string{c.property}
}

// Execute implements Predicate. The type map must contain the condition's
// property; a missing entry is an ErrInternal.
func (c Condition) Execute(r *record.Record, types PropertyTypes) (bool, error) {
	typ, ok := types[c.property]
	if !ok {
		return false, fmt.Errorf("%w: no resolved type for property %q", ErrInternal, c.property)
	}
	return c.Evaluate(r.Get(c.property), typ)
}

// Evaluate tests v interpreted as typ. Membership is true when any operand
// is equal; the negation flag is applied to the final result.
func (c Condition) Evaluate(v value.Value, typ value.PropertyType) (bool, error) {
	ok, err := compare.Compare(v, c.comparator, typ, c.ignoreCase, c.operands...)
	if err != nil {
		return false, fmt.Errorf("condition on %q: %w", c.property, err)
	}
	return ok != c.negate, nil
}

func (c Condition) String() string {
	var s string
	switch {
	case c.comparator == compare.IsNull:
		s = c.property + " IS NULL"
	case c.comparator == compare.NotNull:
		s = c.property + " IS NOT NULL"
	case c.comparator == compare.In:
		parts := make([]string, len(c.operands))
		for i, v := range c.operands {
			parts[i] = v.Format()
		}
		s = c.property + " IN (" + strings.Join(parts, ", ") + ")"
	case c.comparator.IsBetween() && len(c.operands) == 2:
		lower, upper := c.comparator.Bounds()
		open, closing := "(", ")"
		if lower {
			open = "["
		}
		if upper {
			closing = "]"
		}
		s = fmt.Sprintf("%s BETWEEN %s%s, %s%s", c.property, open, c.operands[0].Format(), c.operands[1].Format(), closing)
	default:
		operand := "?"
		if len(c.operands) > 0 {
			operand = c.operands[0].Format()
		}
		s = c.property + " " + symbol(c.comparator) + " " + operand
	}
	if c.ignoreCase {
		s += " IGNORE CASE"
	}
	if c.negate {
		s = "NOT (" + s + ")"
	}
	return s
}

func symbol(c compare.Comparator) string {
	switch c {
	case compare.Equal:
		return "="
	case compare.Greater:
		return ">"
	case compare.Less:
		return "<"
	case compare.GreaterEqual:
		return ">="
	case compare.LessEqual:
		return "<="
	}
	return strings.ToUpper(strings.ReplaceAll(c.String(), "_", " "))
}
