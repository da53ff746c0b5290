package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/orneryd/nornicgraph/pkg/record"
	"github.com/orneryd/nornicgraph/pkg/schema"
	"github.com/orneryd/nornicgraph/pkg/value"
)

// ============================================================================
// Record Operations
// ============================================================================

// AddVertex stores a new vertex of className and returns its id.
//
// Example:
//
//	rid, err := engine.AddVertex("Person", map[string]value.Value{
//		"name": value.Text("Alice"),
//		"age":  value.Int(30),
//	})
func (b *BadgerEngine) AddVertex(className string, props map[string]value.Value) (record.ID, error) {
	var rid record.ID
	err := b.withUpdate(func(txn *badger.Txn) error {
		var err error
		rid, err = b.insertRecord(txn, className, schema.Vertex, props)
		return err
	})
	if err != nil {
		return record.ID{}, err
	}
	b.log.WithFields(logrus.Fields{"class": className, "rid": rid.String()}).Debug("vertex added")
	return rid, nil
}

// AddEdge stores a new edge of className from src to dst. Both endpoints
// must be existing vertices.
func (b *BadgerEngine) AddEdge(className string, src, dst record.ID, props map[string]value.Value) (record.ID, error) {
	var rid record.ID
	err := b.withUpdate(func(txn *badger.Txn) error {
		cv, err := loadCatalog(txn)
		if err != nil {
			return err
		}
		for _, end := range []record.ID{src, dst} {
			if err := requireVertex(txn, cv, end); err != nil {
				return err
			}
		}

		rid, err = b.insertRecord(txn, className, schema.Edge, props)
		if err != nil {
			return err
		}
		if err := txn.Set(edgeEndsKey(rid), encodeEnds(src, dst)); err != nil {
			return err
		}
		if err := txn.Set(adjacencyKey(prefixOutgoing, src, rid), []byte{}); err != nil {
			return err
		}
		return txn.Set(adjacencyKey(prefixIncoming, dst, rid), []byte{})
	})
	if err != nil {
		return record.ID{}, err
	}
	b.log.WithFields(logrus.Fields{
		"class": className,
		"rid":   rid.String(),
		"src":   src.String(),
		"dst":   dst.String(),
	}).Debug("edge added")
	return rid, nil
}

func requireVertex(txn *badger.Txn, cv *catalogView, rid record.ID) error {
	if _, err := cv.lookupID(rid.ClassID, schema.Vertex); err != nil {
		return fmt.Errorf("%w: %s: %v", record.ErrVertexNotFound, rid, err)
	}
	ok, err := keyExists(txn, recordKey(rid))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", record.ErrVertexNotFound, rid)
	}
	return nil
}

func (b *BadgerEngine) insertRecord(txn *badger.Txn, className string, kind schema.ClassType, props map[string]value.Value) (record.ID, error) {
	cv, err := loadCatalog(txn)
	if err != nil {
		return record.ID{}, err
	}
	class, err := cv.lookupName(className, kind)
	if err != nil {
		return record.ID{}, err
	}
	raw, err := record.Encode(record.FromMap(props), cv.info(class).Properties)
	if err != nil {
		return record.ID{}, err
	}
	pos, err := nextPosition(txn, class.ID)
	if err != nil {
		return record.ID{}, err
	}
	rid := record.ID{ClassID: class.ID, Position: pos}
	return rid, txn.Set(recordKey(rid), raw)
}

// nextPosition reserves the next slot of a class using its sentinel key.
func nextPosition(txn *badger.Txn, classID schema.ClassID) (record.Position, error) {
	key := sentinelKey(classID)
	var next uint32
	raw, err := getCopy(txn, key)
	switch {
	case isNotFound(err):
	case err != nil:
		return 0, err
	default:
		next = binary.BigEndian.Uint32(raw)
	}
	if record.Position(next) == record.SentinelPosition {
		return 0, fmt.Errorf("%w: class %d is full", ErrInvalidData, classID)
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, next+1)
	if err := txn.Set(key, buf); err != nil {
		return 0, err
	}
	return record.Position(next), nil
}

// UpdateRecord merges props into an existing vertex or edge. An empty value
// clears the property.
func (b *BadgerEngine) UpdateRecord(rid record.ID, props map[string]value.Value) error {
	if rid.Position == record.SentinelPosition {
		return ErrInvalidID
	}
	return b.withUpdate(func(txn *badger.Txn) error {
		cv, err := loadCatalog(txn)
		if err != nil {
			return err
		}
		class, err := cv.lookupID(rid.ClassID, schema.Undefined)
		if err != nil {
			return err
		}
		catalog := cv.info(class).Properties

		raw, err := getCopy(txn, recordKey(rid))
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", record.ErrRecordNotFound, rid)
		}
		if err != nil {
			return err
		}
		rec, err := record.Decode(raw, catalog)
		if err != nil {
			return err
		}
		for name, v := range props {
			if v.IsEmpty() {
				rec.Unset(name)
				continue
			}
			rec.Set(name, v)
		}
		updated, err := record.Encode(rec, catalog)
		if err != nil {
			return err
		}
		return txn.Set(recordKey(rid), updated)
	})
}

// RemoveEdge deletes an edge and its adjacency entries.
func (b *BadgerEngine) RemoveEdge(rid record.ID) error {
	return b.withUpdate(func(txn *badger.Txn) error {
		return deleteEdgeInTxn(txn, rid)
	})
}

func deleteEdgeInTxn(txn *badger.Txn, rid record.ID) error {
	raw, err := getCopy(txn, edgeEndsKey(rid))
	if isNotFound(err) {
		return fmt.Errorf("%w: edge %s", record.ErrRecordNotFound, rid)
	}
	if err != nil {
		return err
	}
	src, dst, err := decodeEnds(raw)
	if err != nil {
		return err
	}
	for _, key := range [][]byte{
		adjacencyKey(prefixOutgoing, src, rid),
		adjacencyKey(prefixIncoming, dst, rid),
		edgeEndsKey(rid),
		recordKey(rid),
	} {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// RemoveVertex deletes a vertex together with every incident edge.
func (b *BadgerEngine) RemoveVertex(rid record.ID) error {
	var removed int
	err := b.withUpdate(func(txn *badger.Txn) error {
		cv, err := loadCatalog(txn)
		if err != nil {
			return err
		}
		if err := requireVertex(txn, cv, rid); err != nil {
			return err
		}

		var edges []record.ID
		for _, prefix := range []byte{prefixOutgoing, prefixIncoming} {
			err := forEachKey(txn, adjacencyPrefix(prefix, rid, schema.AnyClass), func(key []byte) error {
				edges = append(edges, extractEdgeFromAdjacencyKey(key))
				return nil
			})
			if err != nil {
				return err
			}
		}
		seen := make(map[record.ID]struct{}, len(edges))
		for _, e := range edges {
			if _, dup := seen[e]; dup {
				continue
			}
			seen[e] = struct{}{}
			if err := deleteEdgeInTxn(txn, e); err != nil {
				return err
			}
		}
		removed = len(seen)
		return txn.Delete(recordKey(rid))
	})
	if err == nil {
		b.log.WithFields(logrus.Fields{"rid": rid.String(), "edges_removed": removed}).Debug("vertex removed")
	}
	return err
}

// Get reads and decodes a record using the latest committed state.
func (b *BadgerEngine) Get(rid record.ID) (*record.Record, error) {
	var out *record.Record
	err := b.withView(func(txn *badger.Txn) error {
		cv, err := loadCatalog(txn)
		if err != nil {
			return err
		}
		class, err := cv.lookupID(rid.ClassID, schema.Undefined)
		if err != nil {
			return err
		}
		raw, err := getCopy(txn, recordKey(rid))
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", record.ErrRecordNotFound, rid)
		}
		if err != nil {
			return err
		}
		out, err = record.DecodeWithBasicInfo(class.Name, rid, raw, cv.info(class).Properties)
		return err
	})
	return out, err
}
