package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nornicgraph/pkg/value"
)

func TestPropertyCatalog(t *testing.T) {
	c := NewPropertyCatalog(
		PropertyDescriptor{ID: 1, Name: "name", Type: value.TypeText},
		PropertyDescriptor{ID: 2, Name: "age", Type: value.TypeInteger},
	)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"age", "name"}, c.Names())

	p, ok := c.Lookup("age")
	require.True(t, ok)
	assert.Equal(t, PropertyID(2), p.ID)

	p, ok = c.ByID(1)
	require.True(t, ok)
	assert.Equal(t, "name", p.Name)

	_, ok = c.Lookup("missing")
	assert.False(t, ok)
	_, ok = c.ByID(9)
	assert.False(t, ok)
}

func TestPropertyCatalogReplace(t *testing.T) {
	var c PropertyCatalog
	c.Add(PropertyDescriptor{ID: 1, Name: "x", Type: value.TypeText})
	c.Add(PropertyDescriptor{ID: 7, Name: "x", Type: value.TypeReal})

	p, ok := c.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, value.TypeReal, p.Type)
	_, ok = c.ByID(1)
	assert.False(t, ok, "old id is dropped")
}

func TestClassTypeMatches(t *testing.T) {
	assert.True(t, Vertex.Matches(Undefined))
	assert.True(t, Vertex.Matches(Vertex))
	assert.False(t, Vertex.Matches(Edge))
	assert.True(t, Edge.Matches(Edge))
}

func TestParseClassType(t *testing.T) {
	for in, want := range map[string]ClassType{"vertex": Vertex, "EDGE": Edge, "": Undefined, "any": Undefined} {
		got, err := ParseClassType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseClassType("hyperedge")
	assert.Error(t, err)
}

func TestValidateName(t *testing.T) {
	for _, ok := range []string{"Person", "_tmp", "knows2", "prénom"} {
		assert.NoError(t, ValidateName(ok), ok)
	}
	for _, bad := range []string{"", "2fast", "@className", "has space", "a-b"} {
		assert.ErrorIs(t, ValidateName(bad), ErrInvalidName, bad)
	}
}
