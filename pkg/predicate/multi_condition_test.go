package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nornicgraph/pkg/compare"
	"github.com/orneryd/nornicgraph/pkg/record"
	"github.com/orneryd/nornicgraph/pkg/value"
)

func TestMultiConditionAndOr(t *testing.T) {
	adult := NewCondition("age").Ge(value.Int(18))
	startsA := NewCondition("name").BeginWith(value.Text("A"))

	and := adult.And(startsA)
	or := adult.Or(startsA)

	assert.True(t, exec(t, and, person("Alice", 30)))
	assert.False(t, exec(t, and, person("Bob", 30)))
	assert.False(t, exec(t, and, person("Ann", 10)))

	assert.True(t, exec(t, or, person("Bob", 30)))
	assert.True(t, exec(t, or, person("Ann", 10)))
	assert.False(t, exec(t, or, person("Bob", 10)))
}

func TestMultiConditionNotOnlyFlipsRoot(t *testing.T) {
	adult := NewCondition("age").Ge(value.Int(18))
	startsA := NewCondition("name").BeginWith(value.Text("A"))
	tree := adult.And(startsA)
	neg := tree.Not()

	assert.False(t, tree.IsNegative())
	assert.True(t, neg.IsNegative())
	for _, c := range neg.Conditions() {
		assert.False(t, c.IsNegative(), "children keep their own flags")
	}

	for _, r := range []*record.Record{person("Alice", 30), person("Bob", 30), person("Ann", 1)} {
		assert.NotEqual(t, exec(t, tree, r), exec(t, neg, r))
		assert.Equal(t, exec(t, tree, r), exec(t, neg.Not(), r))
	}
}

func TestMultiConditionLeafNegationIsKept(t *testing.T) {
	notAdult := NewCondition("age").Ge(value.Int(18)).Not()
	tree := notAdult.And(NewCondition("name").NotNull())
	assert.True(t, exec(t, tree, person("kid", 5)))
	assert.False(t, exec(t, tree, person("grown", 50)))
}

func TestMultiConditionNesting(t *testing.T) {
	a := NewCondition("age").Gt(value.Int(10))
	b := NewCondition("age").Lt(value.Int(20))
	c := NewCondition("name").Eq(value.Text("root"))

	teen := a.And(b)
	tree := teen.Or(c)
	assert.True(t, exec(t, tree, person("x", 15)))
	assert.True(t, exec(t, tree, person("root", 99)))
	assert.False(t, exec(t, tree, person("x", 99)))

	other := And(c, teen.Not())
	assert.True(t, exec(t, other, person("root", 99)))
	assert.False(t, exec(t, other, person("root", 15)))

	assert.Len(t, tree.Conditions(), 3)
	assert.Len(t, teen.Conditions(), 2, "composing does not alias the source arena")
}

func TestMultiConditionShortCircuit(t *testing.T) {
	// age is an integer, so treating it as text with LIKE would fail.
	bad := NewCondition("age").Like("1%")
	_, err := bad.Execute(person("a", 1), personTypes)
	require.ErrorIs(t, err, compare.ErrInvalidComparator)

	falseLeft := NewCondition("name").Eq(value.Text("nobody"))
	ok, err := falseLeft.And(bad).Execute(person("a", 1), personTypes)
	require.NoError(t, err, "right operand is not evaluated")
	assert.False(t, ok)

	trueLeft := NewCondition("name").Eq(value.Text("a"))
	ok, err = trueLeft.Or(bad).Execute(person("a", 1), personTypes)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = trueLeft.And(bad).Execute(person("a", 1), personTypes)
	assert.ErrorIs(t, err, compare.ErrInvalidComparator)
}

func TestMultiConditionMissingTypeIsInternal(t *testing.T) {
	tree := NewCondition("name").NotNull().And(NewCondition("salary").Gt(value.Int(1)))
	_, err := tree.Execute(person("a", 1), personTypes)
	assert.ErrorIs(t, err, ErrInternal)
}

func TestMultiConditionEmpty(t *testing.T) {
	var empty MultiCondition
	_, err := empty.Execute(person("a", 1), personTypes)
	assert.ErrorIs(t, err, ErrInternal)
	assert.Equal(t, "<empty>", empty.String())

	withEmpty := NewCondition("name").And(empty)
	_, err = withEmpty.Execute(person("a", 1), personTypes)
	assert.ErrorIs(t, err, ErrInternal)
}

func TestMultiConditionPropertyNames(t *testing.T) {
	tree := NewCondition("name").NotNull().
		And(NewCondition("age").Gt(value.Int(1))).
		Or(NewCondition("age").Lt(value.Int(100)))
	assert.Equal(t, []string{"age", "name"}, tree.PropertyNames())
}

func TestMultiConditionDoubleNegation(t *testing.T) {
	tree := NewCondition("age").Gt(value.Int(20)).Or(NewCondition("name").Like("B%"))
	for _, r := range []*record.Record{person("Alice", 30), person("Bob", 10), person("Cy", 1), record.New()} {
		assert.Equal(t, exec(t, tree, r), exec(t, tree.Not().Not(), r))
	}
}
