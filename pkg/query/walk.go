package query

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/orneryd/nornicgraph/pkg/predicate"
	"github.com/orneryd/nornicgraph/pkg/record"
	"github.com/orneryd/nornicgraph/pkg/schema"
)

// walker expands vertices hop by hop for the multi-hop walks.
type walker struct {
	e       *Executor
	run     *scanRun
	dir     Direction
	edges   EdgeLister
	classes []schema.ClassID
	path    predicate.PathFilter
	idsOnly bool

	edgeCache   *classCache
	vertexCache *classCache
}

func (e *Executor) newWalker(run *scanRun, dir Direction, filter predicate.ClassFilter, path predicate.PathFilter, idsOnly bool) (*walker, error) {
	edges, _ := dir.listers(e.snap)
	w := &walker{
		e:           e,
		run:         run,
		dir:         dir,
		edges:       edges,
		classes:     []schema.ClassID{schema.AnyClass},
		path:        path,
		idsOnly:     idsOnly,
		edgeCache:   newClassCache(e.snap, schema.Edge),
		vertexCache: newClassCache(e.snap, schema.Vertex),
	}
	if !filter.IsEmpty() {
		infos, err := e.snap.ClassesByName(filter.Names(), schema.Edge)
		if err != nil {
			return nil, err
		}
		w.classes = classIDs(infos)
	}
	return w, nil
}

// neighbors lists the vertices one accepted edge away from v, in adjacency
// order.
func (w *walker) neighbors(v record.ID) ([]record.ID, error) {
	var out []record.ID
	for _, classID := range w.classes {
		adjacent, err := w.edges(v, classID)
		if err != nil {
			return nil, w.e.adjacencyError(v, err)
		}
		for _, edge := range adjacent {
			if w.path.IsEnabled() {
				rec, err := w.edgeCache.load(w.e.snap, edge)
				if err != nil {
					return nil, w.internal(edge, err)
				}
				if !w.path.AcceptEdge(rec) {
					continue
				}
			}
			src, dst, err := w.e.snap.EdgeEnds(edge)
			if err != nil {
				return nil, w.internal(edge, err)
			}
			switch {
			case w.dir == In:
				out = append(out, src)
			case w.dir == Out:
				out = append(out, dst)
			case src == v:
				out = append(out, dst)
			default:
				out = append(out, src)
			}
		}
	}
	return out, nil
}

// visit loads vertex v and applies the vertex filter. IDs-only walks skip
// the load when no path filter is set and return a nil record.
func (w *walker) visit(v record.ID) (*record.Record, bool, error) {
	if w.idsOnly && !w.path.IsEnabled() {
		w.count()
		return nil, true, nil
	}
	rec, err := w.vertexCache.load(w.e.snap, v)
	if err != nil {
		return nil, false, w.internal(v, err)
	}
	ok, err := w.run.evaluate(predicate.Match(w.path.AcceptVertex), rec, nil)
	return rec, ok, err
}

// start loads the walk's origin. The vertex filter does not apply to it.
func (w *walker) start(v record.ID) (*record.Record, error) {
	if w.idsOnly {
		w.count()
		return nil, nil
	}
	rec, err := w.vertexCache.load(w.e.snap, v)
	if err != nil {
		return nil, w.internal(v, err)
	}
	w.count()
	return rec, nil
}

func (w *walker) count() {
	w.run.scanned++
	w.run.matched++
}

// origin answers a walk whose start vertex exists outside the snapshot
// only. With minDepth 0 the start vertex is still reported, as far as the
// snapshot can read it.
func (w *walker) origin(v record.ID, minDepth uint32) (ResultSet, error) {
	if minDepth != 0 {
		return nil, nil
	}
	if w.idsOnly {
		w.count()
		return ResultSet{{ID: v}}, nil
	}
	rec, err := w.vertexCache.load(w.e.snap, v)
	if errors.Is(err, record.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	w.count()
	return ResultSet{hop(v, rec, 0)}, nil
}

func (w *walker) internal(rid record.ID, err error) error {
	if errors.Is(err, record.ErrRecordNotFound) {
		return fmt.Errorf("%w: dangling reference to %s: %v", predicate.ErrInternal, rid, err)
	}
	return err
}

type walkStep struct {
	vertex record.ID
	depth  uint32
}

// hop builds a walk result. rec is nil in IDs-only walks.
func hop(id record.ID, rec *record.Record, depth uint32) Result {
	if rec != nil {
		rec.WithDepth(depth)
	}
	return Result{ID: id, Record: rec}
}

// BreadthFirst walks from rid in level order and returns the vertices found
// between minDepth and maxDepth hops away, each carrying its depth in
// @depth. rid itself is returned at depth 0 when minDepth is 0.
//
// A non-empty filter restricts the walk to those edge classes. The path
// filter prunes edges and vertices: a rejected vertex is neither returned
// nor expanded. Every vertex is reached at most once.
//
// Example:
//
//	friendsOfFriends, err := exec.BreadthFirst(alice, 2, 2, query.Out,
//		predicate.NewClassFilter("Knows"), predicate.NewPathFilter())
func (e *Executor) BreadthFirst(rid record.ID, minDepth, maxDepth uint32, dir Direction, filter predicate.ClassFilter, path predicate.PathFilter) (ResultSet, error) {
	return e.breadthFirst(rid, minDepth, maxDepth, dir, filter, path, false)
}

// BreadthFirstIDs is BreadthFirst returning only the vertex ids. Vertex
// records are read only when a path filter needs them.
func (e *Executor) BreadthFirstIDs(rid record.ID, minDepth, maxDepth uint32, dir Direction, filter predicate.ClassFilter, path predicate.PathFilter) ([]record.ID, error) {
	rs, err := e.breadthFirst(rid, minDepth, maxDepth, dir, filter, path, true)
	return rs.IDs(), err
}

func (e *Executor) breadthFirst(rid record.ID, minDepth, maxDepth uint32, dir Direction, filter predicate.ClassFilter, path predicate.PathFilter, idsOnly bool) (rs ResultSet, err error) {
	run := e.begin(modeWalk, logrus.Fields{
		"walk":      "bfs",
		"rid":       rid.String(),
		"min_depth": minDepth,
		"max_depth": maxDepth,
		"direction": dir.String(),
		"ids_only":  idsOnly,
	})
	defer func() { run.finish(err) }()

	proceed, err := e.checkVertex(rid)
	if err != nil {
		return nil, err
	}
	w, err := e.newWalker(run, dir, filter, path, idsOnly)
	if err != nil {
		return nil, err
	}
	if !proceed {
		return w.origin(rid, minDepth)
	}
	if minDepth > maxDepth {
		return nil, nil
	}

	if minDepth == 0 {
		rec, err := w.start(rid)
		if err != nil {
			return nil, err
		}
		rs = append(rs, hop(rid, rec, 0))
	}

	visited := map[record.ID]struct{}{rid: {}}
	queue := []walkStep{{vertex: rid}}
	for len(queue) > 0 {
		step := queue[0]
		queue = queue[1:]
		if step.depth >= maxDepth {
			continue
		}
		next, err := w.neighbors(step.vertex)
		if err != nil {
			return nil, err
		}
		for _, n := range next {
			if _, seen := visited[n]; seen {
				continue
			}
			visited[n] = struct{}{}
			rec, ok, err := w.visit(n)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			depth := step.depth + 1
			if depth >= minDepth {
				rs = append(rs, hop(n, rec, depth))
			}
			queue = append(queue, walkStep{vertex: n, depth: depth})
		}
	}
	return rs, nil
}

// DepthFirst walks from rid depth first, following adjacency order, and
// returns the vertices found between minDepth and maxDepth hops away in
// visiting order. Filters behave as in BreadthFirst.
func (e *Executor) DepthFirst(rid record.ID, minDepth, maxDepth uint32, dir Direction, filter predicate.ClassFilter, path predicate.PathFilter) (ResultSet, error) {
	return e.depthFirst(rid, minDepth, maxDepth, dir, filter, path, false)
}

// DepthFirstIDs is DepthFirst returning only the vertex ids.
func (e *Executor) DepthFirstIDs(rid record.ID, minDepth, maxDepth uint32, dir Direction, filter predicate.ClassFilter, path predicate.PathFilter) ([]record.ID, error) {
	rs, err := e.depthFirst(rid, minDepth, maxDepth, dir, filter, path, true)
	return rs.IDs(), err
}

func (e *Executor) depthFirst(rid record.ID, minDepth, maxDepth uint32, dir Direction, filter predicate.ClassFilter, path predicate.PathFilter, idsOnly bool) (rs ResultSet, err error) {
	run := e.begin(modeWalk, logrus.Fields{
		"walk":      "dfs",
		"rid":       rid.String(),
		"min_depth": minDepth,
		"max_depth": maxDepth,
		"direction": dir.String(),
		"ids_only":  idsOnly,
	})
	defer func() { run.finish(err) }()

	proceed, err := e.checkVertex(rid)
	if err != nil {
		return nil, err
	}
	w, err := e.newWalker(run, dir, filter, path, idsOnly)
	if err != nil {
		return nil, err
	}
	if !proceed {
		return w.origin(rid, minDepth)
	}
	if minDepth > maxDepth {
		return nil, nil
	}

	visited := make(map[record.ID]struct{})
	stack := []walkStep{{vertex: rid}}
	for len(stack) > 0 {
		step := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[step.vertex]; seen {
			continue
		}
		visited[step.vertex] = struct{}{}

		var rec *record.Record
		if step.depth == 0 {
			rec, err = w.start(step.vertex)
		} else {
			var ok bool
			rec, ok, err = w.visit(step.vertex)
			if err == nil && !ok {
				continue
			}
		}
		if err != nil {
			return nil, err
		}
		if step.depth >= minDepth {
			rs = append(rs, hop(step.vertex, rec, step.depth))
		}
		if step.depth >= maxDepth {
			continue
		}

		next, err := w.neighbors(step.vertex)
		if err != nil {
			return nil, err
		}
		for i := len(next) - 1; i >= 0; i-- {
			if _, seen := visited[next[i]]; !seen {
				stack = append(stack, walkStep{vertex: next[i], depth: step.depth + 1})
			}
		}
	}
	return rs, nil
}

// ShortestPath returns the vertices of a shortest outgoing path from src to
// dst, src first, each carrying its position on the path in @depth. The
// result is empty when dst is unreachable. Filters behave as in
// BreadthFirst; src itself is never filtered.
func (e *Executor) ShortestPath(src, dst record.ID, filter predicate.ClassFilter, path predicate.PathFilter) (ResultSet, error) {
	return e.shortestPath(src, dst, filter, path, false)
}

// ShortestPathIDs is ShortestPath returning only the vertex ids.
func (e *Executor) ShortestPathIDs(src, dst record.ID, filter predicate.ClassFilter, path predicate.PathFilter) ([]record.ID, error) {
	rs, err := e.shortestPath(src, dst, filter, path, true)
	return rs.IDs(), err
}

func (e *Executor) shortestPath(src, dst record.ID, filter predicate.ClassFilter, path predicate.PathFilter, idsOnly bool) (rs ResultSet, err error) {
	run := e.begin(modeWalk, logrus.Fields{
		"walk":     "shortest_path",
		"src":      src.String(),
		"dst":      dst.String(),
		"ids_only": idsOnly,
	})
	defer func() { run.finish(err) }()

	proceedSrc, err := e.checkVertex(src)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	proceedDst, err := e.checkVertex(dst)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}
	if !proceedSrc || !proceedDst {
		return nil, nil
	}
	w, err := e.newWalker(run, Out, filter, path, idsOnly)
	if err != nil {
		return nil, err
	}

	origin, err := w.start(src)
	if err != nil {
		return nil, err
	}
	if src == dst {
		return ResultSet{hop(src, origin, 0)}, nil
	}

	parent := map[record.ID]record.ID{src: {}}
	found := map[record.ID]*record.Record{src: origin}
	queue := []record.ID{src}
search:
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		next, err := w.neighbors(v)
		if err != nil {
			return nil, err
		}
		for _, n := range next {
			if _, seen := parent[n]; seen {
				continue
			}
			rec, ok, err := w.visit(n)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			parent[n] = v
			found[n] = rec
			if n == dst {
				break search
			}
			queue = append(queue, n)
		}
	}
	if _, ok := found[dst]; !ok {
		return nil, nil
	}

	for v := dst; ; v = parent[v] {
		rs = append(rs, Result{ID: v, Record: found[v]})
		if v == src {
			break
		}
	}
	for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
		rs[i], rs[j] = rs[j], rs[i]
	}
	for i := range rs {
		rs[i] = hop(rs[i].ID, rs[i].Record, uint32(i))
	}
	return rs, nil
}
