package compare

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nornicgraph/pkg/value"
)

func mustCompare(t *testing.T, lhs value.Value, c Comparator, typ value.PropertyType, ignoreCase bool, rhs ...value.Value) bool {
	t.Helper()
	ok, err := Compare(lhs, c, typ, ignoreCase, rhs...)
	require.NoError(t, err)
	return ok
}

func TestCompareIntegerBasics(t *testing.T) {
	assert.True(t, mustCompare(t, value.Int(5), Equal, value.TypeInteger, false, value.Int(5)))
	assert.False(t, mustCompare(t, value.Int(3), Greater, value.TypeInteger, false, value.Int(5)))
	assert.True(t, mustCompare(t, value.Int(3), Less, value.TypeInteger, false, value.Int(5)))
	assert.True(t, mustCompare(t, value.Int(5), GreaterEqual, value.TypeInteger, false, value.Int(5)))
	assert.True(t, mustCompare(t, value.Int(5), LessEqual, value.TypeInteger, false, value.Int(5)))
	assert.False(t, mustCompare(t, value.Int(6), LessEqual, value.TypeInteger, false, value.Int(5)))
}

func TestCompareNumericOrderPerType(t *testing.T) {
	cases := []struct {
		typ    value.PropertyType
		lo, hi value.Value
	}{
		{value.TypeTinyInt, value.TinyInt(-128), value.TinyInt(127)},
		{value.TypeUnsignedTinyInt, value.UTinyInt(1), value.UTinyInt(255)},
		{value.TypeSmallInt, value.SmallInt(-300), value.SmallInt(300)},
		{value.TypeUnsignedSmallInt, value.USmallInt(10), value.USmallInt(65535)},
		{value.TypeInteger, value.Int(math.MinInt32), value.Int(math.MaxInt32)},
		{value.TypeUnsignedInteger, value.UInt(0), value.UInt(math.MaxUint32)},
		{value.TypeBigInt, value.BigInt(math.MinInt64), value.BigInt(-1)},
		{value.TypeUnsignedBigInt, value.UBigInt(1 << 40), value.UBigInt(math.MaxUint64)},
		{value.TypeReal, value.Real(-0.5), value.Real(1e10)},
	}
	for _, tc := range cases {
		t.Run(tc.typ.String(), func(t *testing.T) {
			assert.True(t, mustCompare(t, tc.lo, Less, tc.typ, false, tc.hi))
			assert.True(t, mustCompare(t, tc.hi, Greater, tc.typ, false, tc.lo))
			assert.False(t, mustCompare(t, tc.lo, Equal, tc.typ, false, tc.hi))
			assert.True(t, mustCompare(t, tc.lo, Equal, tc.typ, false, tc.lo))
			assert.True(t, mustCompare(t, tc.lo, Between, tc.typ, false, tc.lo, tc.hi))
			assert.False(t, mustCompare(t, tc.lo, BetweenNoLower, tc.typ, false, tc.lo, tc.hi))
		})
	}
}

func TestCompareSignedIsNotUnsigned(t *testing.T) {
	// -1 as a tinyint is 0xff, which is larger than 1 only when read unsigned.
	assert.True(t, mustCompare(t, value.TinyInt(-1), Less, value.TypeTinyInt, false, value.TinyInt(1)))
	assert.True(t, mustCompare(t, value.TinyInt(-1), Greater, value.TypeUnsignedTinyInt, false, value.TinyInt(1)))
}

func TestCompareTextCase(t *testing.T) {
	assert.True(t, mustCompare(t, value.Text("Foo"), Equal, value.TypeText, true, value.Text("foo")))
	assert.False(t, mustCompare(t, value.Text("Foo"), Equal, value.TypeText, false, value.Text("foo")))

	assert.True(t, mustCompare(t, value.Text("apple"), Less, value.TypeText, false, value.Text("banana")))
	assert.True(t, mustCompare(t, value.Text("Zebra"), Less, value.TypeText, false, value.Text("apple")), "uppercase sorts first bytewise")
	assert.False(t, mustCompare(t, value.Text("Zebra"), Less, value.TypeText, true, value.Text("apple")))
}

func TestCompareTextSubstrings(t *testing.T) {
	s := value.Text("Hello World")
	assert.True(t, mustCompare(t, s, Contains, value.TypeText, false, value.Text("lo W")))
	assert.False(t, mustCompare(t, s, Contains, value.TypeText, false, value.Text("WORLD")))
	assert.True(t, mustCompare(t, s, Contains, value.TypeText, true, value.Text("WORLD")))
	assert.True(t, mustCompare(t, s, BeginsWith, value.TypeText, false, value.Text("Hell")))
	assert.False(t, mustCompare(t, s, BeginsWith, value.TypeText, false, value.Text("hell")))
	assert.True(t, mustCompare(t, s, BeginsWith, value.TypeText, true, value.Text("hell")))
	assert.True(t, mustCompare(t, s, EndsWith, value.TypeText, false, value.Text("World")))
	assert.True(t, mustCompare(t, s, EndsWith, value.TypeText, true, value.Text("WORLD")))
	assert.True(t, mustCompare(t, s, Contains, value.TypeText, false, value.Text("")), "empty needle is always contained")
}

func TestCompareTextContainsHasNoTerminatorArtifacts(t *testing.T) {
	for _, s := range []string{"a", "ab", "abc", "héllo"} {
		v := value.Text(s)
		assert.True(t, mustCompare(t, v, EndsWith, value.TypeText, false, value.Text(s[len(s)-1:])))
		assert.False(t, mustCompare(t, v, Contains, value.TypeText, false, value.Text(s+"\x00")))
	}
}

func TestCompareLike(t *testing.T) {
	like := func(s, pattern string, ignoreCase bool) bool {
		return mustCompare(t, value.Text(s), Like, value.TypeText, ignoreCase, value.Text(pattern))
	}
	assert.True(t, like("axxxc", "a%c", false))
	assert.True(t, like("abc", "a%c", false))
	assert.True(t, like("ac", "a%c", false), "% matches the empty sequence")
	assert.False(t, like("ab", "a%c", false))
	assert.False(t, like("xabc", "a%c", false), "anchored at the start")
	assert.True(t, like("abc", "a_c", false))
	assert.False(t, like("ac", "a_c", false))
	assert.False(t, like("abbc", "a_c", false))
	assert.True(t, like("a.c", "a.c", false))
	assert.False(t, like("abc", "a.c", false), "dots are literal")
	assert.True(t, like("ABC", "a%", true))
	assert.False(t, like("ABC", "a%", false))
	assert.True(t, like("line1\nline2", "line1%", false))
}

func TestCompareRegex(t *testing.T) {
	assert.True(t, mustCompare(t, value.Text("abc123"), Regex, value.TypeText, false, value.Text(`[a-z]+\d+`)))
	assert.False(t, mustCompare(t, value.Text("abc123x"), Regex, value.TypeText, false, value.Text(`[a-z]+\d+`)), "full match required")
	assert.True(t, mustCompare(t, value.Text("ABC"), Regex, value.TypeText, true, value.Text(`abc`)))
	assert.False(t, mustCompare(t, value.Text("ABC"), Regex, value.TypeText, false, value.Text(`abc`)))

	_, err := Compare(value.Text("x"), Regex, value.TypeText, false, value.Text(`(`))
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestCompareBlob(t *testing.T) {
	b := value.Blob([]byte{1, 2, 3})
	assert.True(t, mustCompare(t, b, Equal, value.TypeBlob, false, value.Blob([]byte{1, 2, 3})))
	assert.False(t, mustCompare(t, b, Equal, value.TypeBlob, false, value.Blob([]byte{1, 2})))
	assert.True(t, mustCompare(t, b, In, value.TypeBlob, false, value.Blob([]byte{9}), value.Blob([]byte{1, 2, 3})))

	for _, c := range []Comparator{Greater, Less, GreaterEqual, LessEqual, Contains, Like, Regex} {
		_, err := Compare(b, c, value.TypeBlob, false, value.Blob([]byte{1}))
		assert.ErrorIs(t, err, ErrInvalidComparator, c.String())
	}
	_, err := Compare(b, Between, value.TypeBlob, false, value.Blob([]byte{0}), value.Blob([]byte{9}))
	assert.ErrorIs(t, err, ErrInvalidComparator)
}

func TestCompareTextOnlyComparatorsRejectNumbers(t *testing.T) {
	for _, c := range []Comparator{Contains, BeginsWith, EndsWith, Like, Regex} {
		_, err := Compare(value.Int(1), c, value.TypeInteger, false, value.Int(1))
		assert.ErrorIs(t, err, ErrInvalidComparator, c.String())
	}
}

func TestCompareUndefinedType(t *testing.T) {
	_, err := Compare(value.Int(1), Equal, value.TypeUndefined, false, value.Int(1))
	assert.ErrorIs(t, err, ErrInvalidPropertyType)

	_, err = Compare(value.Int(1), Equal, value.PropertyType(99), false, value.Int(1))
	assert.ErrorIs(t, err, ErrInvalidPropertyType)

	ok, err := Compare(value.Int(1), NotNull, value.TypeUndefined, false)
	require.NoError(t, err, "null checks ignore the type")
	assert.True(t, ok)
}

func TestCompareNullChecks(t *testing.T) {
	assert.True(t, mustCompare(t, value.Int(0), NotNull, value.TypeInteger, false))
	assert.False(t, mustCompare(t, value.Empty(), NotNull, value.TypeInteger, false))
	assert.True(t, mustCompare(t, value.Empty(), IsNull, value.TypeInteger, false))
	assert.False(t, mustCompare(t, value.Text("x"), IsNull, value.TypeText, false))
}

func TestCompareEmptyLeftHandSide(t *testing.T) {
	for _, c := range []Comparator{Equal, Greater, Less, GreaterEqual, LessEqual} {
		assert.False(t, mustCompare(t, value.Empty(), c, value.TypeInteger, false, value.Int(0)), c.String())
	}
	assert.False(t, mustCompare(t, value.Empty(), Contains, value.TypeText, false, value.Text("")))
	assert.False(t, mustCompare(t, value.Empty(), In, value.TypeInteger, false, value.Int(0)))
	assert.False(t, mustCompare(t, value.Empty(), Between, value.TypeInteger, false, value.Int(0), value.Int(9)))
}

func TestCompareIn(t *testing.T) {
	set := []value.Value{value.Int(1), value.Int(3), value.Int(5)}
	assert.True(t, mustCompare(t, value.Int(3), In, value.TypeInteger, false, set...))
	assert.False(t, mustCompare(t, value.Int(4), In, value.TypeInteger, false, set...))

	names := []value.Value{value.Text("alice"), value.Text("bob")}
	assert.True(t, mustCompare(t, value.Text("BOB"), In, value.TypeText, true, names...))
	assert.False(t, mustCompare(t, value.Text("BOB"), In, value.TypeText, false, names...))

	_, err := Compare(value.Int(3), In, value.TypeInteger, false)
	assert.ErrorIs(t, err, ErrInvalidComparator)
}

func TestCompareBetweenMatrix(t *testing.T) {
	lo, hi := value.Int(5), value.Int(10)
	cases := []struct {
		v                  int32
		incLower, incUpper bool
		want               bool
	}{
		{5, false, true, false},
		{5, true, true, true},
		{5, true, false, true},
		{5, false, false, false},
		{10, true, true, true},
		{10, true, false, false},
		{10, false, true, true},
		{7, false, false, true},
		{4, true, true, false},
		{11, true, true, false},
	}
	for _, tc := range cases {
		c := BetweenFor(tc.incLower, tc.incUpper)
		got := mustCompare(t, value.Int(tc.v), c, value.TypeInteger, false, lo, hi)
		assert.Equal(t, tc.want, got, "%d %s", tc.v, c)
	}
}

func TestCompareBetweenText(t *testing.T) {
	assert.True(t, mustCompare(t, value.Text("M"), Between, value.TypeText, true, value.Text("a"), value.Text("z")))
	assert.False(t, mustCompare(t, value.Text("M"), Between, value.TypeText, false, value.Text("a"), value.Text("z")))
	assert.False(t, mustCompare(t, value.Text("a"), BetweenNoLower, value.TypeText, false, value.Text("a"), value.Text("z")))
	assert.True(t, mustCompare(t, value.Text("a"), BetweenNoUpper, value.TypeText, false, value.Text("a"), value.Text("z")))
}

func TestCompareOperandCounts(t *testing.T) {
	_, err := Compare(value.Int(5), Between, value.TypeInteger, false, value.Int(1))
	assert.ErrorIs(t, err, ErrInvalidComparator)

	_, err = Compare(value.Int(5), Equal, value.TypeInteger, false)
	assert.ErrorIs(t, err, ErrInvalidComparator)

	_, err = Compare(value.Int(5), Equal, value.TypeInteger, false, value.Int(1), value.Int(2))
	assert.ErrorIs(t, err, ErrInvalidComparator)

	_, err = Compare(value.Int(5), Comparator(200), value.TypeInteger, false, value.Int(1))
	assert.ErrorIs(t, err, ErrInvalidComparator)
}

func TestCompareValidatesBeforeEmptyShortCircuit(t *testing.T) {
	_, err := Compare(value.Empty(), Greater, value.TypeBlob, false, value.Blob([]byte{1}))
	assert.ErrorIs(t, err, ErrInvalidComparator)
}

func TestBetweenForRoundTrip(t *testing.T) {
	for _, c := range []Comparator{Between, BetweenNoLower, BetweenNoUpper, BetweenNoBound} {
		lower, upper := c.Bounds()
		assert.Equal(t, c, BetweenFor(lower, upper))
	}
}

func TestParseComparator(t *testing.T) {
	for i := range comparatorNames {
		c := Comparator(i)
		got, err := ParseComparator(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	got, err := ParseComparator(">=")
	require.NoError(t, err)
	assert.Equal(t, GreaterEqual, got)

	_, err = ParseComparator("approximately")
	assert.ErrorIs(t, err, ErrInvalidComparator)
}
