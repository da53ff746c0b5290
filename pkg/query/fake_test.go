package query

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orneryd/nornicgraph/pkg/record"
	"github.com/orneryd/nornicgraph/pkg/schema"
	"github.com/orneryd/nornicgraph/pkg/value"
)

// fakeSnapshot is an in-memory Snapshot for executor tests that need to
// observe or break the collaborator contract.
type fakeSnapshot struct {
	classes  map[schema.ClassID]schema.ClassInfo
	byName   map[string]schema.ClassID
	records  map[schema.ClassID]map[record.Position][]byte
	out      map[record.ID][]record.ID
	in       map[record.ID][]record.ID
	ends     map[record.ID][2]record.ID
	status   map[record.ID]record.Existence
	adjErr   error
	reads    int
	sentinel bool
}

func newFakeSnapshot() *fakeSnapshot {
	return &fakeSnapshot{
		classes: make(map[schema.ClassID]schema.ClassInfo),
		byName:  make(map[string]schema.ClassID),
		records: make(map[schema.ClassID]map[record.Position][]byte),
		out:     make(map[record.ID][]record.ID),
		in:      make(map[record.ID][]record.ID),
		ends:    make(map[record.ID][2]record.ID),
		status:  make(map[record.ID]record.Existence),
	}
}

func (f *fakeSnapshot) addClass(id schema.ClassID, name string, kind schema.ClassType, props ...schema.PropertyDescriptor) {
	for i := range props {
		props[i].ClassID = id
	}
	f.classes[id] = schema.ClassInfo{
		Descriptor: schema.ClassDescriptor{ID: id, Name: name, Type: kind},
		Properties: schema.NewPropertyCatalog(props...),
	}
	f.byName[name] = id
	f.records[id] = make(map[record.Position][]byte)
}

func (f *fakeSnapshot) addRecord(t *testing.T, class schema.ClassID, props map[string]value.Value) record.ID {
	t.Helper()
	raw, err := record.Encode(record.FromMap(props), f.classes[class].Properties)
	require.NoError(t, err)
	rid := record.ID{ClassID: class, Position: record.Position(len(f.records[class]))}
	f.records[class][rid.Position] = raw
	return rid
}

func (f *fakeSnapshot) addEdge(t *testing.T, class schema.ClassID, src, dst record.ID, props map[string]value.Value) record.ID {
	t.Helper()
	rid := f.addRecord(t, class, props)
	f.out[src] = append(f.out[src], rid)
	f.in[dst] = append(f.in[dst], rid)
	f.ends[rid] = [2]record.ID{src, dst}
	return rid
}

func (f *fakeSnapshot) ClassesByName(names []string, kind schema.ClassType) ([]schema.ClassInfo, error) {
	var out []schema.ClassInfo
	for _, n := range names {
		id, ok := f.byName[n]
		if !ok {
			return nil, fmt.Errorf("%w: %q", schema.ErrNoSuchClass, n)
		}
		info, err := f.ClassByID(id, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

func (f *fakeSnapshot) ClassesByID(ids []schema.ClassID, kind schema.ClassType) ([]schema.ClassInfo, error) {
	var out []schema.ClassInfo
	for _, id := range ids {
		info, err := f.ClassByID(id, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

func (f *fakeSnapshot) ClassByID(id schema.ClassID, kind schema.ClassType) (schema.ClassInfo, error) {
	info, ok := f.classes[id]
	if !ok {
		return schema.ClassInfo{}, fmt.Errorf("%w: id %d", schema.ErrNoSuchClass, id)
	}
	if !info.Type().Matches(kind) {
		return schema.ClassInfo{}, schema.ErrClassTypeMismatch
	}
	return info, nil
}

func (f *fakeSnapshot) ScanClass(id schema.ClassID, fn func(record.Position, []byte) error) error {
	var positions []record.Position
	for pos := range f.records[id] {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
	if f.sentinel {
		if err := fn(record.SentinelPosition, []byte{0xFF}); err != nil {
			return err
		}
	}
	for _, pos := range positions {
		f.reads++
		if err := fn(pos, f.records[id][pos]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSnapshot) GetRecord(rid record.ID) ([]byte, error) {
	f.reads++
	raw, ok := f.records[rid.ClassID][rid.Position]
	if !ok {
		return nil, record.ErrRecordNotFound
	}
	return raw, nil
}

func (f *fakeSnapshot) VertexStatus(rid record.ID) (record.Existence, error) {
	if s, ok := f.status[rid]; ok {
		return s, nil
	}
	if _, ok := f.records[rid.ClassID][rid.Position]; ok {
		return record.Exists, nil
	}
	return record.NotExist, nil
}

func (f *fakeSnapshot) list(index map[record.ID][]record.ID, rid record.ID, class schema.ClassID) ([]record.ID, error) {
	if f.adjErr != nil {
		return nil, f.adjErr
	}
	var out []record.ID
	for _, e := range index[rid] {
		if class == schema.AnyClass || e.ClassID == class {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeSnapshot) InEdges(rid record.ID, class schema.ClassID) ([]record.ID, error) {
	return f.list(f.in, rid, class)
}

func (f *fakeSnapshot) OutEdges(rid record.ID, class schema.ClassID) ([]record.ID, error) {
	return f.list(f.out, rid, class)
}

func (f *fakeSnapshot) AllEdges(rid record.ID, class schema.ClassID) ([]record.ID, error) {
	out, err := f.list(f.out, rid, class)
	if err != nil {
		return nil, err
	}
	in, err := f.list(f.in, rid, class)
	return append(out, in...), err
}

func (f *fakeSnapshot) classesOf(edges []record.ID, err error) ([]schema.ClassID, error) {
	if err != nil {
		return nil, err
	}
	seen := make(map[schema.ClassID]bool)
	var out []schema.ClassID
	for _, e := range edges {
		if !seen[e.ClassID] {
			seen[e.ClassID] = true
			out = append(out, e.ClassID)
		}
	}
	return out, nil
}

func (f *fakeSnapshot) InEdgeClasses(rid record.ID) ([]schema.ClassID, error) {
	return f.classesOf(f.InEdges(rid, schema.AnyClass))
}

func (f *fakeSnapshot) OutEdgeClasses(rid record.ID) ([]schema.ClassID, error) {
	return f.classesOf(f.OutEdges(rid, schema.AnyClass))
}

func (f *fakeSnapshot) AllEdgeClasses(rid record.ID) ([]schema.ClassID, error) {
	return f.classesOf(f.AllEdges(rid, schema.AnyClass))
}

func (f *fakeSnapshot) EdgeEnds(edge record.ID) (record.ID, record.ID, error) {
	ends, ok := f.ends[edge]
	if !ok {
		return record.ID{}, record.ID{}, record.ErrRecordNotFound
	}
	return ends[0], ends[1], nil
}

func prop(name string, typ value.PropertyType, id schema.PropertyID) schema.PropertyDescriptor {
	return schema.PropertyDescriptor{ID: id, Name: name, Type: typ}
}
