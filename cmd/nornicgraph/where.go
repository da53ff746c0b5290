package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/orneryd/nornicgraph/pkg/compare"
	"github.com/orneryd/nornicgraph/pkg/predicate"
	"github.com/orneryd/nornicgraph/pkg/schema"
	"github.com/orneryd/nornicgraph/pkg/value"
)

// propertyTypes maps property names to the type used to parse operands.
type propertyTypes map[string]value.PropertyType

// typesOf collects the property types declared by classes. The first class
// declaring a name wins; the executor reports real conflicts at scan time.
func typesOf(classes []schema.ClassInfo) propertyTypes {
	types := make(propertyTypes)
	for _, c := range classes {
		for name, desc := range c.Properties.NameToDesc {
			if _, ok := types[name]; !ok {
				types[name] = desc.Type
			}
		}
	}
	return types
}

// parseWhere parses one clause of the form
//
//	[not] <property> <comparator> [operand]
//
// Comparators accept names ("ge", "begins_with") and symbols (">=").
// IN and BETWEEN operands are comma separated. Text operands may be
// double-quoted.
func parseWhere(clause string, types propertyTypes, ignoreCase bool) (predicate.Condition, error) {
	rest := strings.TrimSpace(clause)
	negate := false
	if head, tail, ok := cutWord(rest); ok && strings.EqualFold(head, "not") {
		negate = true
		rest = tail
	}

	property, rest, ok := cutWord(rest)
	if !ok {
		return predicate.Condition{}, fmt.Errorf("where %q: expected <property> <comparator> [operand]", clause)
	}
	op, operand, _ := cutWord(rest)
	cmp, err := compare.ParseComparator(op)
	if err != nil {
		return predicate.Condition{}, fmt.Errorf("where %q: %w", clause, err)
	}

	typ, ok := types[property]
	if !ok {
		return predicate.Condition{}, fmt.Errorf("where %q: %w: %q", clause, schema.ErrNoSuchProperty, property)
	}
	if cmp.TextOnly() {
		typ = value.TypeText
	}

	operands, err := parseOperands(cmp, typ, operand)
	if err != nil {
		return predicate.Condition{}, fmt.Errorf("where %q: %w", clause, err)
	}

	cond := predicate.NewCondition(property).Using(cmp, operands...)
	if ignoreCase {
		cond = cond.IgnoreCase()
	}
	if negate {
		cond = cond.Not()
	}
	return cond, nil
}

func parseOperands(cmp compare.Comparator, typ value.PropertyType, raw string) ([]value.Value, error) {
	raw = strings.TrimSpace(raw)
	var parts []string
	switch n := cmp.Operands(); {
	case n == 0:
		if raw != "" {
			return nil, fmt.Errorf("%s takes no operand", cmp)
		}
		return nil, nil
	case n == 1:
		parts = []string{raw}
	default:
		parts = strings.Split(raw, ",")
		if n > 0 && len(parts) != n {
			return nil, fmt.Errorf("%s takes %d comma separated operands, got %d", cmp, n, len(parts))
		}
	}

	out := make([]value.Value, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if typ == value.TypeText && strings.HasPrefix(p, `"`) {
			unquoted, err := strconv.Unquote(p)
			if err != nil {
				return nil, fmt.Errorf("operand %s: %w", p, err)
			}
			p = unquoted
		}
		v, err := value.Parse(typ, p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// buildPredicate parses every clause and joins them with AND, or OR when anyOf
// is set. No clauses yields a nil predicate, which matches every record.
func buildPredicate(clauses []string, types propertyTypes, ignoreCase, anyOf bool) (predicate.Predicate, error) {
	var conds []predicate.Condition
	for _, clause := range clauses {
		cond, err := parseWhere(clause, types, ignoreCase)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	switch len(conds) {
	case 0:
		return nil, nil
	case 1:
		return conds[0], nil
	}

	join := predicate.And
	if anyOf {
		join = predicate.Or
	}
	tree := join(conds[0], conds[1])
	for _, c := range conds[2:] {
		tree = join(tree, c)
	}
	return tree, nil
}

// cutWord splits s at the first run of whitespace.
func cutWord(s string) (word, rest string, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", false
	}
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, "", true
	}
	return s[:i], strings.TrimSpace(s[i:]), true
}
