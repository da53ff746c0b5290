package query

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/orneryd/nornicgraph/pkg/predicate"
	"github.com/orneryd/nornicgraph/pkg/record"
	"github.com/orneryd/nornicgraph/pkg/schema"
)

// Edges returns the edges adjacent to rid in direction dir that satisfy
// pred. A non-empty filter restricts the scan to those edge classes and their
// subclasses; otherwise every edge class incident to rid is scanned.
//
// A vertex that does not exist fails with record.ErrVertexNotFound. A vertex
// that only exists in newer committed state than the snapshot yields an
// empty result and no error.
//
// Example:
//
//	rs, err := exec.Edges(alice, query.Out,
//		predicate.NewCondition("since").Lt(value.SmallInt(2020)),
//		predicate.NewClassFilter("Knows"))
func (e *Executor) Edges(rid record.ID, dir Direction, pred predicate.Predicate, filter predicate.ClassFilter) (ResultSet, error) {
	edges, classes := dir.listers(e.snap)
	return e.Traverse(rid, edges, classes, pred, filter)
}

// EdgeIDs is Edges returning edge ids only.
func (e *Executor) EdgeIDs(rid record.ID, dir Direction, pred predicate.Predicate, filter predicate.ClassFilter) ([]record.ID, error) {
	edges, classes := dir.listers(e.snap)
	var ids []record.ID
	err := e.traverse(rid, edges, classes, pred, filter, func(r Result) {
		ids = append(ids, r.ID)
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (e *Executor) InEdges(rid record.ID, pred predicate.Predicate, filter predicate.ClassFilter) (ResultSet, error) {
	return e.Edges(rid, In, pred, filter)
}

func (e *Executor) OutEdges(rid record.ID, pred predicate.Predicate, filter predicate.ClassFilter) (ResultSet, error) {
	return e.Edges(rid, Out, pred, filter)
}

func (e *Executor) AllEdges(rid record.ID, pred predicate.Predicate, filter predicate.ClassFilter) (ResultSet, error) {
	return e.Edges(rid, All, pred, filter)
}

// Traverse is Edges with explicit adjacency functions. edges lists the
// adjacent edges of one class and classes the incident edge classes.
func (e *Executor) Traverse(rid record.ID, edges EdgeLister, classes EdgeClassLister, pred predicate.Predicate, filter predicate.ClassFilter) (ResultSet, error) {
	var rs ResultSet
	err := e.traverse(rid, edges, classes, pred, filter, func(r Result) {
		rs = append(rs, r)
	})
	if err != nil {
		return nil, err
	}
	return rs, nil
}

func (e *Executor) traverse(rid record.ID, edges EdgeLister, classes EdgeClassLister, pred predicate.Predicate, filter predicate.ClassFilter, emit func(Result)) (err error) {
	run := e.begin(modeTraversal, logrus.Fields{"rid": rid.String(), "filter": filter.String()})
	defer func() { run.finish(err) }()

	proceed, err := e.checkVertex(rid)
	if err != nil || !proceed {
		return err
	}

	edgeClasses, err := e.edgeClasses(rid, classes, filter)
	if err != nil {
		return err
	}
	types, err := resolvePropertyTypes(edgeClasses, propertyNames(pred))
	if err != nil {
		return err
	}

	ids := classIDs(edgeClasses)
	if len(ids) == 0 {
		ids = []schema.ClassID{schema.AnyClass}
	}
	cache := newClassCache(e.snap, schema.Edge)
	for _, classID := range ids {
		adjacent, err := edges(rid, classID)
		if err != nil {
			return e.adjacencyError(rid, err)
		}
		for _, edge := range adjacent {
			rec, err := cache.load(e.snap, edge)
			if err != nil {
				return fmt.Errorf("load edge %s: %w", edge, err)
			}
			ok, err := run.evaluate(pred, rec, types)
			if err != nil {
				return err
			}
			if ok {
				emit(Result{ID: edge, Record: rec})
			}
		}
	}
	run.log.WithFields(logrus.Fields{
		"class_cache_hits":   cache.hits,
		"class_cache_misses": cache.misses,
	}).Trace("edge class cache")
	return nil
}

// checkVertex verifies that rid is a vertex of the snapshot. It returns
// false without error when the vertex is only visible outside the snapshot.
func (e *Executor) checkVertex(rid record.ID) (bool, error) {
	if _, err := e.snap.ClassByID(rid.ClassID, schema.Vertex); err != nil {
		return false, err
	}
	status, err := e.snap.VertexStatus(rid)
	if err != nil {
		return false, err
	}
	switch status {
	case record.Exists:
		return true, nil
	case record.NotExistInSnapshot:
		return false, nil
	}
	return false, fmt.Errorf("%w: %s", record.ErrVertexNotFound, rid)
}

// edgeClasses resolves the edge classes a traversal from rid covers.
func (e *Executor) edgeClasses(rid record.ID, classes EdgeClassLister, filter predicate.ClassFilter) ([]schema.ClassInfo, error) {
	if !filter.IsEmpty() {
		return e.snap.ClassesByName(filter.Names(), schema.Edge)
	}
	ids, err := classes(rid)
	if err != nil {
		return nil, e.adjacencyError(rid, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return e.snap.ClassesByID(ids, schema.Edge)
}

// adjacencyError remaps a missing vertex reported by the adjacency layer
// after the vertex was already found to exist.
func (e *Executor) adjacencyError(rid record.ID, err error) error {
	if !errors.Is(err, record.ErrVertexNotFound) {
		return err
	}
	e.log.WithError(err).WithField("rid", rid.String()).Warn("adjacency lost a vertex that exists")
	return fmt.Errorf("%w: adjacency of %s: %v", predicate.ErrInternal, rid, err)
}
