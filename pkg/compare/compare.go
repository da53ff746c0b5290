package compare

import (
	"bytes"
	"cmp"
	"fmt"

	"github.com/orneryd/nornicgraph/pkg/value"
)

// Compare reports whether lhs satisfies c against the operands in rhs when
// both sides are interpreted as typ.
//
// Operand counts: none for IsNull/NotNull, two (lower, upper) for the
// between family, one or more for In and exactly one otherwise. The null
// checks never look at typ. Every other comparator is validated against typ
// first and then returns false for an empty lhs, so an absent property never
// matches a value comparison.
//
// ignoreCase applies to text only and folds ASCII letters on both sides.
func Compare(lhs value.Value, c Comparator, typ value.PropertyType, ignoreCase bool, rhs ...value.Value) (bool, error) {
	switch c {
	case NotNull:
		return !lhs.IsEmpty(), nil
	case IsNull:
		return lhs.IsEmpty(), nil
	}
	if err := Validate(c, typ, len(rhs)); err != nil {
		return false, err
	}
	if lhs.IsEmpty() {
		return false, nil
	}

	if c == In {
		for _, v := range rhs {
			ok, err := compareScalar(lhs, Equal, typ, ignoreCase, v, value.Value{})
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}

	var hi value.Value
	if c.IsBetween() {
		hi = rhs[1]
	}
	return compareScalar(lhs, c, typ, ignoreCase, rhs[0], hi)
}

// Validate checks that c is defined for typ and receives n operands.
func Validate(c Comparator, typ value.PropertyType, n int) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidComparator, c)
	}
	if c.IsNullCheck() {
		return nil
	}
	if !typ.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidPropertyType, typ)
	}
	switch want := c.Operands(); {
	case want < 0 && n == 0:
		return fmt.Errorf("%w: %s requires at least one operand", ErrInvalidComparator, c)
	case want >= 0 && n != want:
		return fmt.Errorf("%w: %s requires %d operand(s), got %d", ErrInvalidComparator, c, want, n)
	}
	switch {
	case typ == value.TypeBlob && c != Equal && c != In:
		return fmt.Errorf("%w: %s on %s", ErrInvalidComparator, c, typ)
	case typ.IsNumeric() && c.TextOnly():
		return fmt.Errorf("%w: %s on %s", ErrInvalidComparator, c, typ)
	}
	return nil
}

func compareScalar(lhs value.Value, c Comparator, typ value.PropertyType, ignoreCase bool, lo, hi value.Value) (bool, error) {
	switch {
	case typ == value.TypeText:
		return compareText(lhs.Raw(), c, ignoreCase, lo.Raw(), hi.Raw())
	case typ == value.TypeBlob:
		return bytes.Equal(lhs.Raw(), lo.Raw()), nil
	case typ == value.TypeReal:
		return ordered(lhs.Float64(), c, lo.Float64(), hi.Float64()), nil
	case typ.IsSigned():
		return ordered(signed(lhs, typ), c, signed(lo, typ), signed(hi, typ)), nil
	default:
		return ordered(unsigned(lhs, typ), c, unsigned(lo, typ), unsigned(hi, typ)), nil
	}
}

// signed reinterprets v at the width of typ and sign-extends it.
func signed(v value.Value, typ value.PropertyType) int64 {
	switch typ {
	case value.TypeTinyInt:
		return int64(v.Int8())
	case value.TypeSmallInt:
		return int64(v.Int16())
	case value.TypeInteger:
		return int64(v.Int32())
	}
	return v.Int64()
}

func unsigned(v value.Value, typ value.PropertyType) uint64 {
	switch typ {
	case value.TypeUnsignedTinyInt:
		return uint64(v.Uint8())
	case value.TypeUnsignedSmallInt:
		return uint64(v.Uint16())
	case value.TypeUnsignedInteger:
		return uint64(v.Uint32())
	}
	return v.Uint64()
}

func ordered[T cmp.Ordered](v T, c Comparator, lo, hi T) bool {
	switch c {
	case Equal:
		return v == lo
	case Greater:
		return v > lo
	case Less:
		return v < lo
	case GreaterEqual:
		return v >= lo
	case LessEqual:
		return v <= lo
	case Between:
		return lo <= v && v <= hi
	case BetweenNoLower:
		return lo < v && v <= hi
	case BetweenNoUpper:
		return lo <= v && v < hi
	case BetweenNoBound:
		return lo < v && v < hi
	}
	return false
}

func compareText(v []byte, c Comparator, ignoreCase bool, lo, hi []byte) (bool, error) {
	switch c {
	case Like, Regex:
		re, err := patterns.compile(c, string(lo), ignoreCase)
		if err != nil {
			return false, err
		}
		return re.Match(v), nil
	}

	if ignoreCase {
		v, lo, hi = foldASCII(v), foldASCII(lo), foldASCII(hi)
	}
	switch c {
	case Contains:
		return bytes.Contains(v, lo), nil
	case BeginsWith:
		return bytes.HasPrefix(v, lo), nil
	case EndsWith:
		return bytes.HasSuffix(v, lo), nil
	case Equal:
		return bytes.Equal(v, lo), nil
	}

	lower := bytes.Compare(v, lo)
	switch c {
	case Greater:
		return lower > 0, nil
	case Less:
		return lower < 0, nil
	case GreaterEqual:
		return lower >= 0, nil
	case LessEqual:
		return lower <= 0, nil
	}

	upper := bytes.Compare(v, hi)
	incLo, incHi := c.Bounds()
	okLo := lower > 0 || (incLo && lower == 0)
	okHi := upper < 0 || (incHi && upper == 0)
	return okLo && okHi, nil
}

// foldASCII lower-cases ASCII letters and leaves every other byte alone.
func foldASCII(b []byte) []byte {
	var out []byte
	for i, ch := range b {
		if 'A' <= ch && ch <= 'Z' {
			if out == nil {
				out = make([]byte, len(b))
				copy(out, b)
			}
			out[i] = ch + ('a' - 'A')
		}
	}
	if out == nil {
		return b
	}
	return out
}
