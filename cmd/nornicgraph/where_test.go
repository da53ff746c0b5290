package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nornicgraph/pkg/compare"
	"github.com/orneryd/nornicgraph/pkg/predicate"
	"github.com/orneryd/nornicgraph/pkg/record"
	"github.com/orneryd/nornicgraph/pkg/schema"
	"github.com/orneryd/nornicgraph/pkg/value"
)

var testTypes = propertyTypes{
	"name":  value.TypeText,
	"age":   value.TypeInteger,
	"score": value.TypeReal,
	"photo": value.TypeBlob,
}

func TestParseWhere(t *testing.T) {
	tests := []struct {
		clause   string
		cmp      compare.Comparator
		operands []value.Value
		negate   bool
	}{
		{"age >= 18", compare.GreaterEqual, []value.Value{value.Int(18)}, false},
		{"age ge 18", compare.GreaterEqual, []value.Value{value.Int(18)}, false},
		{"  not   age < 3 ", compare.Less, []value.Value{value.Int(3)}, true},
		{"NOT name null", compare.IsNull, nil, true},
		{"name = ann", compare.Equal, []value.Value{value.Text("ann")}, false},
		{`name = "ann smith"`, compare.Equal, []value.Value{value.Text("ann smith")}, false},
		{"name contains ann smith", compare.Contains, []value.Value{value.Text("ann smith")}, false},
		{"age in 1, 2,3", compare.In, []value.Value{value.Int(1), value.Int(2), value.Int(3)}, false},
		{"age between 1,9", compare.Between, []value.Value{value.Int(1), value.Int(9)}, false},
		{"age between_no_bound 1,9", compare.BetweenNoBound, []value.Value{value.Int(1), value.Int(9)}, false},
		{"score < 2.5", compare.Less, []value.Value{value.Real(2.5)}, false},
		{"photo = 0xcafe", compare.Equal, []value.Value{value.Blob([]byte{0xca, 0xfe})}, false},
		{"age regex ^4", compare.Regex, []value.Value{value.Text("^4")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.clause, func(t *testing.T) {
			cond, err := parseWhere(tt.clause, testTypes, false)
			require.NoError(t, err)
			assert.Equal(t, tt.cmp, cond.Comparator())
			assert.Equal(t, tt.negate, cond.IsNegative())
			require.Len(t, cond.Operands(), len(tt.operands))
			for i, want := range tt.operands {
				assert.True(t, want.Equal(cond.Operands()[i]), "operand %d: want %s, got %s", i, want, cond.Operands()[i])
			}
		})
	}
}

func TestParseWhere_Errors(t *testing.T) {
	tests := []struct {
		clause string
		target error
	}{
		{"", nil},
		{"age", nil},
		{"age ~= 3", compare.ErrInvalidComparator},
		{"height > 3", schema.ErrNoSuchProperty},
		{"age > old", value.ErrInvalidType},
		{"age > 99999999999", value.ErrInvalidType},
		{"age null 3", nil},
		{"age between 1", nil},
		{`name = "unterminated`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.clause, func(t *testing.T) {
			_, err := parseWhere(tt.clause, testTypes, false)
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestBuildPredicate(t *testing.T) {
	ann := record.FromMap(map[string]value.Value{"name": value.Text("Ann"), "age": value.Int(31)})
	types := predicate.PropertyTypes(testTypes)

	pred, err := buildPredicate(nil, testTypes, false, false)
	require.NoError(t, err)
	assert.Nil(t, pred)

	pred, err = buildPredicate([]string{"name = ann"}, testTypes, true, false)
	require.NoError(t, err)
	ok, err := pred.Execute(ann, types)
	require.NoError(t, err)
	assert.True(t, ok, "ignore case")

	pred, err = buildPredicate([]string{"age > 40", "name begins_with A", "age < 35"}, testTypes, false, false)
	require.NoError(t, err)
	ok, err = pred.Execute(ann, types)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"age", "name"}, pred.PropertyNames())

	pred, err = buildPredicate([]string{"age > 40", "name begins_with A", "age < 35"}, testTypes, false, true)
	require.NoError(t, err)
	ok, err = pred.Execute(ann, types)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = buildPredicate([]string{"age > 1", "bogus"}, testTypes, false, false)
	assert.Error(t, err)
}

func TestTypesOf(t *testing.T) {
	person := schema.ClassInfo{Properties: schema.NewPropertyCatalog(
		schema.PropertyDescriptor{ID: 1, Name: "age", Type: value.TypeInteger},
	)}
	legacy := schema.ClassInfo{Properties: schema.NewPropertyCatalog(
		schema.PropertyDescriptor{ID: 2, Name: "age", Type: value.TypeText},
		schema.PropertyDescriptor{ID: 3, Name: "code", Type: value.TypeBlob},
	)}
	types := typesOf([]schema.ClassInfo{person, legacy})
	assert.Equal(t, propertyTypes{"age": value.TypeInteger, "code": value.TypeBlob}, types)
}
