package predicate

import (
	"strings"

	"github.com/orneryd/nornicgraph/pkg/record"
)

// ClassFilter restricts a traversal to a set of class names. An empty filter
// means no restriction. Add and Remove replace the underlying set, so copies
// of a filter never observe each other's changes.
type ClassFilter struct {
	names map[string]struct{}
}

// NewClassFilter builds a filter from names. Duplicates and empty names are
// ignored.
func NewClassFilter(names ...string) ClassFilter {
	var f ClassFilter
	f.Add(names...)
	return f
}

func (f *ClassFilter) Add(names ...string) {
	next := f.clone(len(names))
	for _, n := range names {
		if n != "" {
			next[n] = struct{}{}
		}
	}
	if len(next) == 0 {
		next = nil
	}
	f.names = next
}

func (f *ClassFilter) Remove(names ...string) {
	if len(f.names) == 0 {
		return
	}
	next := f.clone(0)
	for _, n := range names {
		delete(next, n)
	}
	f.names = next
}

func (f ClassFilter) clone(extra int) map[string]struct{} {
	out := make(map[string]struct{}, len(f.names)+extra)
	for n := range f.names {
		out[n] = struct{}{}
	}
	return out
}

func (f ClassFilter) Has(name string) bool {
	_, ok := f.names[name]
	return ok
}

func (f ClassFilter) Len() int      { return len(f.names) }
func (f ClassFilter) IsEmpty() bool { return len(f.names) == 0 }

// Names returns the class names in sorted order.
func (f ClassFilter) Names() []string { return sortedNames(f.names) }

func (f ClassFilter) String() string {
	return "{" + strings.Join(f.Names(), ", ") + "}"
}

// PathFilter holds optional vertex and edge evaluators applied while walking
// multi-hop paths. A missing evaluator accepts everything.
type PathFilter struct {
	vertex Evaluator
	edge   Evaluator
}

// NewPathFilter returns a filter that accepts every vertex and edge.
func NewPathFilter() PathFilter { return PathFilter{} }

func (p PathFilter) WithVertex(e Evaluator) PathFilter {
	p.vertex = e
	return p
}

func (p PathFilter) WithEdge(e Evaluator) PathFilter {
	p.edge = e
	return p
}

// IsEnabled reports whether either evaluator is set.
func (p PathFilter) IsEnabled() bool { return p.vertex != nil || p.edge != nil }

func (p PathFilter) AcceptVertex(r *record.Record) bool {
	return p.vertex == nil || p.vertex.Evaluate(r)
}

func (p PathFilter) AcceptEdge(r *record.Record) bool {
	return p.edge == nil || p.edge.Evaluate(r)
}
