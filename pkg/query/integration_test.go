package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nornicgraph/pkg/predicate"
	"github.com/orneryd/nornicgraph/pkg/query"
	"github.com/orneryd/nornicgraph/pkg/record"
	"github.com/orneryd/nornicgraph/pkg/schema"
	"github.com/orneryd/nornicgraph/pkg/storage"
	"github.com/orneryd/nornicgraph/pkg/value"
)

// graphFixture is a small social graph stored in an in-memory engine:
//
//	ann -> bob -> cid -> dan
//	ann -> eve (Blocks)
//	eve is an Employee (subclass of Person)
type graphFixture struct {
	engine *storage.BadgerEngine
	v      map[string]record.ID
	e      map[string]record.ID
}

func newGraphFixture(t *testing.T) *graphFixture {
	engine, err := storage.NewBadgerEngineInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	must := func(_ any, err error) { require.NoError(t, err) }
	must(engine.CreateClass("Person", schema.Vertex))
	must(engine.AddProperty("Person", "name", value.TypeText))
	must(engine.AddProperty("Person", "age", value.TypeInteger))
	must(engine.CreateSubclass("Employee", "Person"))
	must(engine.AddProperty("Employee", "salary", value.TypeBigInt))
	must(engine.CreateClass("Knows", schema.Edge))
	must(engine.AddProperty("Knows", "since", value.TypeSmallInt))
	must(engine.CreateClass("Blocks", schema.Edge))

	fx := &graphFixture{engine: engine, v: map[string]record.ID{}, e: map[string]record.ID{}}
	for name, age := range map[string]int32{"ann": 31, "bob": 25, "cid": 40, "dan": 19} {
		rid, err := engine.AddVertex("Person", map[string]value.Value{
			"name": value.Text(name),
			"age":  value.Int(age),
		})
		require.NoError(t, err)
		fx.v[name] = rid
	}
	eve, err := engine.AddVertex("Employee", map[string]value.Value{
		"name":   value.Text("eve"),
		"age":    value.Int(35),
		"salary": value.BigInt(90000),
	})
	require.NoError(t, err)
	fx.v["eve"] = eve

	link := func(class, label, src, dst string, since int16) {
		var props map[string]value.Value
		if class == "Knows" {
			props = map[string]value.Value{"since": value.SmallInt(since)}
		}
		rid, err := engine.AddEdge(class, fx.v[src], fx.v[dst], props)
		require.NoError(t, err)
		fx.e[label] = rid
	}
	link("Knows", "ab", "ann", "bob", 2010)
	link("Knows", "bc", "bob", "cid", 2012)
	link("Knows", "cd", "cid", "dan", 2020)
	link("Blocks", "ae", "ann", "eve", 0)
	return fx
}

func (fx *graphFixture) executor(t *testing.T) *query.Executor {
	snap, err := fx.engine.Snapshot()
	require.NoError(t, err)
	t.Cleanup(snap.Close)
	return query.New(snap)
}

func names(rs query.ResultSet) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Record.Get("name").AsText()
	}
	return out
}

func depths(rs query.ResultSet) []uint32 {
	out := make([]uint32, len(rs))
	for i, r := range rs {
		out[i] = r.Record.Depth()
	}
	return out
}

func TestFind_IncludesSubclasses(t *testing.T) {
	fx := newGraphFixture(t)
	exec := fx.executor(t)

	rs, err := exec.Find("Person", schema.Vertex, predicate.NewCondition("age").Ge(value.Int(31)))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ann", "cid", "eve"}, names(rs))

	rs, err = exec.Find("Employee", schema.Vertex, predicate.Prop("salary").Gt(value.BigInt(0)))
	require.NoError(t, err)
	assert.Equal(t, []string{"eve"}, names(rs))
	assert.Equal(t, "Employee", rs[0].Record.ClassName())

	rs, err = exec.Find("Person", schema.Vertex, predicate.Prop("salary").Null())
	require.NoError(t, err, "salary resolves from the Employee subclass")
	assert.Len(t, rs, 4)
}

func TestEdges_SnapshotIsolation(t *testing.T) {
	fx := newGraphFixture(t)
	exec := fx.executor(t)

	late, err := fx.engine.AddVertex("Person", map[string]value.Value{"name": value.Text("fay")})
	require.NoError(t, err)
	_, err = fx.engine.AddEdge("Knows", late, fx.v["ann"], nil)
	require.NoError(t, err)

	rs, err := exec.OutEdges(late, nil, predicate.NewClassFilter())
	require.NoError(t, err, "vertex created after the snapshot")
	assert.Empty(t, rs)

	rs, err = exec.InEdges(fx.v["ann"], nil, predicate.NewClassFilter())
	require.NoError(t, err)
	assert.Empty(t, rs, "edge created after the snapshot is invisible")

	_, err = exec.OutEdges(record.ID{ClassID: late.ClassID, Position: 999}, nil, predicate.NewClassFilter())
	assert.ErrorIs(t, err, record.ErrVertexNotFound)
}

func TestEdges_ClassFilter(t *testing.T) {
	fx := newGraphFixture(t)
	exec := fx.executor(t)

	rs, err := exec.OutEdges(fx.v["ann"], nil, predicate.NewClassFilter("Blocks"))
	require.NoError(t, err)
	assert.Equal(t, []record.ID{fx.e["ae"]}, rs.IDs())

	rs, err = exec.OutEdges(fx.v["ann"], predicate.NewCondition("since").Lt(value.SmallInt(2011)), predicate.NewClassFilter())
	require.NoError(t, err)
	assert.Equal(t, []record.ID{fx.e["ab"]}, rs.IDs())
}

func TestBreadthFirst(t *testing.T) {
	fx := newGraphFixture(t)
	exec := fx.executor(t)
	knows := predicate.NewClassFilter("Knows")

	t.Run("depth window", func(t *testing.T) {
		rs, err := exec.BreadthFirst(fx.v["ann"], 0, 2, query.Out, knows, predicate.NewPathFilter())
		require.NoError(t, err)
		assert.Equal(t, []string{"ann", "bob", "cid"}, names(rs))
		assert.Equal(t, []uint32{0, 1, 2}, depths(rs))

		rs, err = exec.BreadthFirst(fx.v["ann"], 2, 3, query.Out, knows, predicate.NewPathFilter())
		require.NoError(t, err)
		assert.Equal(t, []string{"cid", "dan"}, names(rs))
	})

	t.Run("any edge class", func(t *testing.T) {
		rs, err := exec.BreadthFirst(fx.v["ann"], 1, 1, query.Out, predicate.NewClassFilter(), predicate.NewPathFilter())
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"bob", "eve"}, names(rs))
	})

	t.Run("incoming", func(t *testing.T) {
		rs, err := exec.BreadthFirst(fx.v["dan"], 1, 10, query.In, knows, predicate.NewPathFilter())
		require.NoError(t, err)
		assert.Equal(t, []string{"cid", "bob", "ann"}, names(rs))
	})

	t.Run("vertex filter prunes", func(t *testing.T) {
		notBob := predicate.NewPathFilter().WithVertex(predicate.EvaluatorFunc(func(r *record.Record) bool {
			return r.Get("name").AsText() != "bob"
		}))
		rs, err := exec.BreadthFirst(fx.v["ann"], 1, 3, query.Out, knows, notBob)
		require.NoError(t, err)
		assert.Empty(t, rs, "bob is rejected and not expanded")
	})

	t.Run("edge filter prunes", func(t *testing.T) {
		recent := predicate.NewPathFilter().WithEdge(predicate.EvaluatorFunc(func(r *record.Record) bool {
			return r.Get("since").Int16() < 2015
		}))
		rs, err := exec.BreadthFirst(fx.v["ann"], 1, 5, query.Out, knows, recent)
		require.NoError(t, err)
		assert.Equal(t, []string{"bob", "cid"}, names(rs))
	})

	t.Run("min above max", func(t *testing.T) {
		rs, err := exec.BreadthFirst(fx.v["ann"], 3, 1, query.Out, knows, predicate.NewPathFilter())
		require.NoError(t, err)
		assert.Empty(t, rs)
	})
}

func TestDepthFirst(t *testing.T) {
	fx := newGraphFixture(t)
	exec := fx.executor(t)

	rs, err := exec.DepthFirst(fx.v["ann"], 0, 10, query.All, predicate.NewClassFilter(), predicate.NewPathFilter())
	require.NoError(t, err)
	assert.Equal(t, "ann", names(rs)[0])
	assert.ElementsMatch(t, []string{"ann", "bob", "cid", "dan", "eve"}, names(rs))

	rs, err = exec.DepthFirst(fx.v["ann"], 1, 10, query.Out, predicate.NewClassFilter("Knows"), predicate.NewPathFilter())
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "cid", "dan"}, names(rs))
	assert.Equal(t, []uint32{1, 2, 3}, depths(rs))
}

func TestShortestPath(t *testing.T) {
	fx := newGraphFixture(t)
	exec := fx.executor(t)

	rs, err := exec.ShortestPath(fx.v["ann"], fx.v["dan"], predicate.NewClassFilter(), predicate.NewPathFilter())
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "bob", "cid", "dan"}, names(rs))
	assert.Equal(t, []uint32{0, 1, 2, 3}, depths(rs))

	rs, err = exec.ShortestPath(fx.v["dan"], fx.v["ann"], predicate.NewClassFilter(), predicate.NewPathFilter())
	require.NoError(t, err)
	assert.Empty(t, rs, "edges are followed outwards only")

	rs, err = exec.ShortestPath(fx.v["ann"], fx.v["ann"], predicate.NewClassFilter(), predicate.NewPathFilter())
	require.NoError(t, err)
	assert.Equal(t, []string{"ann"}, names(rs))

	_, err = exec.ShortestPath(fx.v["ann"], record.ID{ClassID: fx.v["ann"].ClassID, Position: 500},
		predicate.NewClassFilter(), predicate.NewPathFilter())
	assert.ErrorIs(t, err, record.ErrVertexNotFound)

	rs, err = exec.ShortestPath(fx.v["ann"], fx.v["eve"], predicate.NewClassFilter("Knows"), predicate.NewPathFilter())
	require.NoError(t, err)
	assert.Empty(t, rs, "Blocks is filtered out")
}
