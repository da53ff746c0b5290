package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsAndAccessors(t *testing.T) {
	assert.Equal(t, int8(-3), TinyInt(-3).Int8())
	assert.Equal(t, uint8(200), UTinyInt(200).Uint8())
	assert.Equal(t, int16(-1234), SmallInt(-1234).Int16())
	assert.Equal(t, uint16(65000), USmallInt(65000).Uint16())
	assert.Equal(t, int32(-42), Int(-42).Int32())
	assert.Equal(t, uint32(math.MaxUint32), UInt(math.MaxUint32).Uint32())
	assert.Equal(t, int64(math.MinInt64), BigInt(math.MinInt64).Int64())
	assert.Equal(t, uint64(math.MaxUint64), UBigInt(math.MaxUint64).Uint64())
	assert.Equal(t, 3.25, Real(3.25).Float64())
	assert.Equal(t, "hello", Text("hello").AsText())
	assert.Equal(t, []byte{1, 2, 3}, Blob([]byte{1, 2, 3}).Bytes())
}

func TestWidthsAndTags(t *testing.T) {
	cases := []struct {
		v     Value
		typ   PropertyType
		width int
	}{
		{TinyInt(1), TypeTinyInt, 1},
		{UTinyInt(1), TypeUnsignedTinyInt, 1},
		{SmallInt(1), TypeSmallInt, 2},
		{USmallInt(1), TypeUnsignedSmallInt, 2},
		{Int(1), TypeInteger, 4},
		{UInt(1), TypeUnsignedInteger, 4},
		{BigInt(1), TypeBigInt, 8},
		{UBigInt(1), TypeUnsignedBigInt, 8},
		{Real(1), TypeReal, 8},
	}
	for _, tc := range cases {
		t.Run(tc.typ.String(), func(t *testing.T) {
			assert.Equal(t, tc.typ, tc.v.Type())
			assert.Equal(t, tc.width, tc.v.Len())
			assert.Equal(t, tc.width, tc.typ.Width())
		})
	}
}

func TestShortBuffersZeroExtend(t *testing.T) {
	v := Int(7)
	assert.Equal(t, int64(7), v.Int64())
	assert.Equal(t, uint64(7), v.Uint64())
}

func TestEmptyValue(t *testing.T) {
	v := Empty()
	assert.True(t, v.IsEmpty())
	assert.Equal(t, 0, v.Len())
	assert.Nil(t, v.Bytes())
	assert.Equal(t, "<empty>", v.Format())

	assert.True(t, Text("").IsEmpty(), "empty text has no bytes")
}

func TestFromBytesCopies(t *testing.T) {
	src := []byte{9, 8, 7}
	v := FromBytes(TypeBlob, src)
	src[0] = 0
	assert.Equal(t, []byte{9, 8, 7}, v.Bytes())

	out := v.Bytes()
	out[1] = 0
	assert.Equal(t, []byte{9, 8, 7}, v.Bytes())
}

func TestParse(t *testing.T) {
	v, err := Parse(TypeInteger, " 42 ")
	require.NoError(t, err)
	assert.Equal(t, int32(42), v.Int32())

	v, err = Parse(TypeUnsignedTinyInt, "255")
	require.NoError(t, err)
	assert.Equal(t, uint8(255), v.Uint8())

	_, err = Parse(TypeTinyInt, "300")
	assert.ErrorIs(t, err, ErrInvalidType)

	v, err = Parse(TypeReal, "1.5")
	require.NoError(t, err)
	assert.Equal(t, 1.5, v.Float64())

	v, err = Parse(TypeBlob, "0xcafe")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xca, 0xfe}, v.Bytes())

	v, err = Parse(TypeText, "Alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", v.AsText())

	_, err = Parse(TypeUndefined, "x")
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestParsePropertyType(t *testing.T) {
	for typ, name := range typeNames {
		if typ == TypeUndefined {
			continue
		}
		got, err := ParsePropertyType(name)
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}

	got, err := ParsePropertyType("VARCHAR")
	require.NoError(t, err)
	assert.Equal(t, TypeText, got)

	_, err = ParsePropertyType("undefined")
	assert.ErrorIs(t, err, ErrInvalidType)
	_, err = ParsePropertyType("decimal")
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "-5", TinyInt(-5).Format())
	assert.Equal(t, "65535", USmallInt(65535).Format())
	assert.Equal(t, "2.5", Real(2.5).Format())
	assert.Equal(t, `"bob"`, Text("bob").Format())
	assert.Equal(t, "0x0102", Blob([]byte{1, 2}).Format())
}

func TestEqual(t *testing.T) {
	assert.True(t, Int(3).Equal(Int(3)))
	assert.False(t, Int(3).Equal(UInt(3)), "tags differ")
	assert.False(t, Int(3).Equal(Int(4)))
	assert.True(t, Empty().Equal(Value{}))
}
