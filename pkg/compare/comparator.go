// Package compare implements the typed comparison algebra used by every
// predicate in the engine.
//
// Compare dispatches on a (Comparator, value.PropertyType) pair and reports
// whether a stored value satisfies the comparison against one or more
// operands. Dispatch is pure: the only shared state is the bounded cache of
// compiled LIKE/REGEX patterns, which is safe for concurrent use.
//
// Example:
//
//	ok, err := compare.Compare(value.Int(5), compare.Equal, value.TypeInteger, false, value.Int(5))
//	// ok == true
//
//	ok, err = compare.Compare(value.Text("Foo"), compare.Equal, value.TypeText, true, value.Text("foo"))
//	// ok == true (case-insensitive)
//
//	ok, err = compare.Compare(value.Int(5), compare.BetweenNoLower, value.TypeInteger, false,
//		value.Int(5), value.Int(10))
//	// ok == false (lower bound excluded)
package compare

import (
	"fmt"
	"strings"
)

// Comparator is the operation a predicate requests.
type Comparator uint8

const (
	IsNull Comparator = iota
	NotNull
	Equal
	Greater
	Less
	GreaterEqual
	LessEqual
	Contains
	BeginsWith
	EndsWith
	Like
	Regex
	In
	Between        // lower <= v <= upper
	BetweenNoLower // lower < v <= upper
	BetweenNoUpper // lower <= v < upper
	BetweenNoBound // lower < v < upper
)

var comparatorNames = [...]string{
	IsNull:         "is_null",
	NotNull:        "not_null",
	Equal:          "eq",
	Greater:        "gt",
	Less:           "lt",
	GreaterEqual:   "ge",
	LessEqual:      "le",
	Contains:       "contains",
	BeginsWith:     "begins_with",
	EndsWith:       "ends_with",
	Like:           "like",
	Regex:          "regex",
	In:             "in",
	Between:        "between",
	BetweenNoLower: "between_no_lower",
	BetweenNoUpper: "between_no_upper",
	BetweenNoBound: "between_no_bound",
}

var comparatorAliases = map[string]Comparator{
	"null":        IsNull,
	"notnull":     NotNull,
	"=":           Equal,
	"==":          Equal,
	">":           Greater,
	"<":           Less,
	">=":          GreaterEqual,
	"<=":          LessEqual,
	"contain":     Contains,
	"begin_with":  BeginsWith,
	"end_with":    EndsWith,
	"starts_with": BeginsWith,
}

func (c Comparator) String() string {
	if int(c) < len(comparatorNames) {
		return comparatorNames[c]
	}
	return fmt.Sprintf("Comparator(%d)", uint8(c))
}

// Valid reports whether c is a known comparator.
func (c Comparator) Valid() bool { return int(c) < len(comparatorNames) }

// IsBetween reports whether c belongs to the between family.
func (c Comparator) IsBetween() bool {
	return c >= Between && c <= BetweenNoBound
}

// IsNullCheck reports whether c is IsNull or NotNull.
func (c Comparator) IsNullCheck() bool {
	return c == IsNull || c == NotNull
}

// TextOnly reports whether c is only defined for text values.
func (c Comparator) TextOnly() bool {
	switch c {
	case Contains, BeginsWith, EndsWith, Like, Regex:
		return true
	}
	return false
}

// Operands returns how many operands c takes; -1 means one or more.
func (c Comparator) Operands() int {
	switch {
	case c.IsNullCheck():
		return 0
	case c.IsBetween():
		return 2
	case c == In:
		return -1
	}
	return 1
}

// BetweenFor returns the between variant for the given bound inclusivity.
func BetweenFor(includeLower, includeUpper bool) Comparator {
	switch {
	case includeLower && includeUpper:
		return Between
	case includeUpper:
		return BetweenNoLower
	case includeLower:
		return BetweenNoUpper
	}
	return BetweenNoBound
}

// Bounds returns the inclusivity of a between variant.
func (c Comparator) Bounds() (includeLower, includeUpper bool) {
	switch c {
	case Between:
		return true, true
	case BetweenNoLower:
		return false, true
	case BetweenNoUpper:
		return true, false
	}
	return false, false
}

// ParseComparator converts a comparator name or symbol into a Comparator.
func ParseComparator(s string) (Comparator, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range comparatorNames {
		if n == name {
			return Comparator(i), nil
		}
	}
	if c, ok := comparatorAliases[name]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("%w: unknown comparator %q", ErrInvalidComparator, s)
}
