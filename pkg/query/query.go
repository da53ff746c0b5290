// Package query runs predicates over the records of a storage snapshot.
//
// The Executor supports two scanning modes:
//
//   - Class scan: every record of a class and its subclasses is decoded and
//     tested against a predicate.
//   - Traversal scan: the edges adjacent to a vertex, in one direction, are
//     decoded and tested against a predicate.
//
// On top of those, BreadthFirst, DepthFirst and ShortestPath walk multiple
// hops through the graph under a PathFilter.
//
// The executor reads through a caller-supplied Snapshot and never begins or
// commits transactions. Property types are resolved once per scan from the
// schema catalog, before any record is read, so a type conflict fails the
// scan without touching storage.
//
// Example:
//
//	err := engine.View(func(snap *storage.Snapshot) error {
//		exec := query.New(snap, query.WithLogger(log))
//		adults, err := exec.Find("Person", schema.Vertex,
//			predicate.NewCondition("age").Ge(value.Int(18)))
//		if err != nil {
//			return err
//		}
//		for _, r := range adults {
//			fmt.Println(r.ID, r.Record.Get("name"))
//		}
//		return nil
//	})
package query

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/orneryd/nornicgraph/pkg/record"
	"github.com/orneryd/nornicgraph/pkg/schema"
)

// Catalog resolves classes of the schema. Name resolution includes every
// subclass of the named classes.
type Catalog interface {
	ClassesByName(names []string, kind schema.ClassType) ([]schema.ClassInfo, error)
	ClassesByID(ids []schema.ClassID, kind schema.ClassType) ([]schema.ClassInfo, error)
	ClassByID(id schema.ClassID, kind schema.ClassType) (schema.ClassInfo, error)
}

// RecordStore reads stored record payloads.
type RecordStore interface {
	// ScanClass visits every record of a class. raw is only valid during fn.
	ScanClass(id schema.ClassID, fn func(pos record.Position, raw []byte) error) error
	GetRecord(rid record.ID) ([]byte, error)
}

// EdgeLister lists the edges adjacent to a vertex, narrowed to one edge class
// unless edgeClass is schema.AnyClass.
type EdgeLister func(rid record.ID, edgeClass schema.ClassID) ([]record.ID, error)

// EdgeClassLister lists the edge classes incident to a vertex.
type EdgeClassLister func(rid record.ID) ([]schema.ClassID, error)

// Graph answers adjacency questions.
type Graph interface {
	VertexStatus(rid record.ID) (record.Existence, error)

	InEdges(rid record.ID, edgeClass schema.ClassID) ([]record.ID, error)
	OutEdges(rid record.ID, edgeClass schema.ClassID) ([]record.ID, error)
	AllEdges(rid record.ID, edgeClass schema.ClassID) ([]record.ID, error)

	InEdgeClasses(rid record.ID) ([]schema.ClassID, error)
	OutEdgeClasses(rid record.ID) ([]schema.ClassID, error)
	AllEdgeClasses(rid record.ID) ([]schema.ClassID, error)

	EdgeEnds(edge record.ID) (src, dst record.ID, err error)
}

// Snapshot is the consistent read view a scan runs against.
type Snapshot interface {
	Catalog
	RecordStore
	Graph
}

// Direction selects which adjacent edges a traversal follows.
type Direction uint8

const (
	Out Direction = iota
	In
	All
)

func (d Direction) String() string {
	switch d {
	case Out:
		return "out"
	case In:
		return "in"
	case All:
		return "all"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// ParseDirection converts "out", "in" or "all" (also "both") to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "out", "outgoing":
		return Out, nil
	case "in", "incoming":
		return In, nil
	case "all", "both", "any":
		return All, nil
	}
	return Out, fmt.Errorf("unknown direction %q", s)
}

// listers returns the adjacency functions of g for d.
func (d Direction) listers(g Graph) (EdgeLister, EdgeClassLister) {
	switch d {
	case In:
		return g.InEdges, g.InEdgeClasses
	case All:
		return g.AllEdges, g.AllEdgeClasses
	}
	return g.OutEdges, g.OutEdgeClasses
}

// Result is one matched record.
type Result struct {
	ID     record.ID
	Record *record.Record
}

// ResultSet is the ordered list of matches produced by one scan.
type ResultSet []Result

func (rs ResultSet) Len() int { return len(rs) }

// IDs returns the record ids of rs in order.
func (rs ResultSet) IDs() []record.ID {
	if len(rs) == 0 {
		return nil
	}
	ids := make([]record.ID, len(rs))
	for i, r := range rs {
		ids[i] = r.ID
	}
	return ids
}

// Executor runs scans against one Snapshot. It holds no per-scan state and
// is safe for concurrent use.
type Executor struct {
	snap    Snapshot
	log     *logrus.Entry
	metrics *Metrics
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger routes scan logs to l.
func WithLogger(l *logrus.Entry) Option {
	return func(e *Executor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetrics records scan counters and durations in m.
func WithMetrics(m *Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// New returns an Executor reading through snap.
func New(snap Snapshot, opts ...Option) *Executor {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	e := &Executor{snap: snap, log: logrus.NewEntry(quiet)}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithField("component", "query")
	return e
}
