package storage

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/orneryd/nornicgraph/pkg/record"
	"github.com/orneryd/nornicgraph/pkg/schema"
)

// Snapshot is a read-only, point-in-time view of the engine backed by one
// Badger read transaction. It implements the catalog, record store and graph
// interfaces consumed by the query executor.
//
// A Snapshot may be shared by concurrent readers. It must be closed to
// release the transaction.
//
// Example:
//
//	err := engine.View(func(snap *storage.Snapshot) error {
//		exec := query.New(snap)
//		rs, err := exec.Find("Person", schema.Vertex, predicate.Prop("age").Gt(value.Int(30)))
//		...
//	})
type Snapshot struct {
	engine *BadgerEngine
	txn    *badger.Txn

	once   sync.Once
	cat    *catalogView
	catErr error
}

// Snapshot opens a new read-only snapshot.
func (b *BadgerEngine) Snapshot() (*Snapshot, error) {
	if err := b.ensureOpen(); err != nil {
		return nil, err
	}
	return &Snapshot{engine: b, txn: b.db.NewTransaction(false)}, nil
}

// View runs fn against a snapshot that is closed when fn returns.
func (b *BadgerEngine) View(fn func(snap *Snapshot) error) error {
	snap, err := b.Snapshot()
	if err != nil {
		return err
	}
	defer snap.Close()
	return fn(snap)
}

// Close discards the underlying transaction.
func (s *Snapshot) Close() {
	s.txn.Discard()
}

func (s *Snapshot) catalog() (*catalogView, error) {
	s.once.Do(func() {
		s.cat, s.catErr = loadCatalog(s.txn)
	})
	return s.cat, s.catErr
}

// ============================================================================
// Catalog
// ============================================================================

// ClassesByName resolves class names of the given kind. Every subclass of a
// named class is included. Duplicates are dropped and the first occurrence
// order is kept.
func (s *Snapshot) ClassesByName(names []string, kind schema.ClassType) ([]schema.ClassInfo, error) {
	cv, err := s.catalog()
	if err != nil {
		return nil, err
	}
	seen := make(map[schema.ClassID]struct{})
	var out []schema.ClassInfo
	for _, name := range names {
		c, err := cv.lookupName(name, kind)
		if err != nil {
			return nil, err
		}
		for _, id := range cv.withSubclasses(c.ID) {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, cv.info(cv.classes[id]))
		}
	}
	return out, nil
}

// ClassesByID resolves class ids of the given kind, without subclasses.
func (s *Snapshot) ClassesByID(ids []schema.ClassID, kind schema.ClassType) ([]schema.ClassInfo, error) {
	cv, err := s.catalog()
	if err != nil {
		return nil, err
	}
	out := make([]schema.ClassInfo, 0, len(ids))
	for _, id := range ids {
		c, err := cv.lookupID(id, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, cv.info(c))
	}
	return out, nil
}

// ClassByID resolves one class id of the given kind.
func (s *Snapshot) ClassByID(id schema.ClassID, kind schema.ClassType) (schema.ClassInfo, error) {
	cv, err := s.catalog()
	if err != nil {
		return schema.ClassInfo{}, err
	}
	c, err := cv.lookupID(id, kind)
	if err != nil {
		return schema.ClassInfo{}, err
	}
	return cv.info(c), nil
}

// Classes lists every class of kind visible in the snapshot, ordered by id.
func (s *Snapshot) Classes(kind schema.ClassType) ([]schema.ClassInfo, error) {
	cv, err := s.catalog()
	if err != nil {
		return nil, err
	}
	var out []schema.ClassInfo
	for _, c := range cv.sortedClasses(kind) {
		out = append(out, cv.info(c))
	}
	return out, nil
}

// ============================================================================
// Record store
// ============================================================================

// ScanClass visits every record of one class in position order. The
// sentinel slot is skipped. raw is only valid during fn.
func (s *Snapshot) ScanClass(id schema.ClassID, fn func(pos record.Position, raw []byte) error) error {
	prefix := classRecordPrefix(id)
	return forEachValue(s.txn, prefix, func(key, val []byte) error {
		if len(key) != 1+ridSize {
			return fmt.Errorf("%w: record key of %d bytes", ErrInvalidData, len(key))
		}
		pos := record.Position(binary.BigEndian.Uint32(key[3:]))
		if pos == record.SentinelPosition {
			return nil
		}
		return fn(pos, val)
	})
}

// GetRecord returns a copy of the stored payload of rid.
func (s *Snapshot) GetRecord(rid record.ID) ([]byte, error) {
	if rid.Position == record.SentinelPosition {
		return nil, fmt.Errorf("%w: %s", ErrInvalidID, rid)
	}
	raw, err := getCopy(s.txn, recordKey(rid))
	if isNotFound(err) {
		return nil, fmt.Errorf("%w: %s", record.ErrRecordNotFound, rid)
	}
	return raw, err
}

// ============================================================================
// Graph
// ============================================================================

// VertexStatus reports whether rid is a vertex of this snapshot. A vertex
// that only exists in a newer committed state reports NotExistInSnapshot.
func (s *Snapshot) VertexStatus(rid record.ID) (record.Existence, error) {
	cv, err := s.catalog()
	if err != nil {
		return record.NotExist, err
	}
	if rid.Position == record.SentinelPosition {
		return record.NotExist, nil
	}
	if _, err := cv.lookupID(rid.ClassID, schema.Vertex); err == nil {
		ok, err := keyExists(s.txn, recordKey(rid))
		if err != nil {
			return record.NotExist, err
		}
		if ok {
			return record.Exists, nil
		}
	}

	var later bool
	err = s.engine.withView(func(txn *badger.Txn) error {
		latest, err := loadCatalog(txn)
		if err != nil {
			return err
		}
		if _, err := latest.lookupID(rid.ClassID, schema.Vertex); err != nil {
			return nil
		}
		later, err = keyExists(txn, recordKey(rid))
		return err
	})
	if err != nil {
		return record.NotExist, err
	}
	if later {
		return record.NotExistInSnapshot, nil
	}
	return record.NotExist, nil
}

// InEdges lists edges ending at rid, narrowed to one edge class unless
// edgeClass is schema.AnyClass.
func (s *Snapshot) InEdges(rid record.ID, edgeClass schema.ClassID) ([]record.ID, error) {
	return s.adjacent(rid, edgeClass, prefixIncoming)
}

// OutEdges lists edges starting at rid.
func (s *Snapshot) OutEdges(rid record.ID, edgeClass schema.ClassID) ([]record.ID, error) {
	return s.adjacent(rid, edgeClass, prefixOutgoing)
}

// AllEdges lists edges incident to rid in either direction. A self-loop is
// listed once.
func (s *Snapshot) AllEdges(rid record.ID, edgeClass schema.ClassID) ([]record.ID, error) {
	return s.adjacent(rid, edgeClass, prefixOutgoing, prefixIncoming)
}

func (s *Snapshot) adjacent(rid record.ID, edgeClass schema.ClassID, prefixes ...byte) ([]record.ID, error) {
	if err := s.requireVertex(rid); err != nil {
		return nil, err
	}
	var out []record.ID
	seen := make(map[record.ID]struct{})
	for _, p := range prefixes {
		err := forEachKey(s.txn, adjacencyPrefix(p, rid, edgeClass), func(key []byte) error {
			e := extractEdgeFromAdjacencyKey(key)
			if _, dup := seen[e]; dup {
				return nil
			}
			seen[e] = struct{}{}
			out = append(out, e)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// InEdgeClasses lists the distinct classes of edges ending at rid.
func (s *Snapshot) InEdgeClasses(rid record.ID) ([]schema.ClassID, error) {
	return s.edgeClasses(rid, prefixIncoming)
}

// OutEdgeClasses lists the distinct classes of edges starting at rid.
func (s *Snapshot) OutEdgeClasses(rid record.ID) ([]schema.ClassID, error) {
	return s.edgeClasses(rid, prefixOutgoing)
}

// AllEdgeClasses lists the distinct classes of edges incident to rid.
func (s *Snapshot) AllEdgeClasses(rid record.ID) ([]schema.ClassID, error) {
	return s.edgeClasses(rid, prefixOutgoing, prefixIncoming)
}

func (s *Snapshot) edgeClasses(rid record.ID, prefixes ...byte) ([]schema.ClassID, error) {
	edges, err := s.adjacent(rid, schema.AnyClass, prefixes...)
	if err != nil {
		return nil, err
	}
	seen := make(map[schema.ClassID]struct{})
	var out []schema.ClassID
	for _, e := range edges {
		if _, dup := seen[e.ClassID]; dup {
			continue
		}
		seen[e.ClassID] = struct{}{}
		out = append(out, e.ClassID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// EdgeEnds returns the source and destination vertices of an edge.
func (s *Snapshot) EdgeEnds(edge record.ID) (src, dst record.ID, err error) {
	raw, err := getCopy(s.txn, edgeEndsKey(edge))
	if isNotFound(err) {
		return src, dst, fmt.Errorf("%w: edge %s", record.ErrRecordNotFound, edge)
	}
	if err != nil {
		return src, dst, err
	}
	return decodeEnds(raw)
}

func (s *Snapshot) requireVertex(rid record.ID) error {
	cv, err := s.catalog()
	if err != nil {
		return err
	}
	return requireVertex(s.txn, cv, rid)
}
