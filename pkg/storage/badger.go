// Package storage provides the BadgerDB-backed storage engine for NornicGraph.
//
// BadgerEngine stores class record spaces, the schema catalog and the graph
// adjacency indexes in one BadgerDB instance. Reads go through a Snapshot,
// a read-only Badger transaction that implements the collaborator interfaces
// consumed by the query executor (catalog, record store and graph).
package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/orneryd/nornicgraph/pkg/record"
	"github.com/orneryd/nornicgraph/pkg/schema"
)

// Key prefixes for BadgerDB storage organization
// Using single-byte prefixes for efficiency
const (
	prefixRecord    = byte(0x01) // record:class:pos -> encoded properties
	prefixEdgeEnds  = byte(0x02) // edgeends:edgeRID -> srcRID + dstRID
	prefixOutgoing  = byte(0x03) // outgoing:vertexRID:edgeClass:edgePos -> []byte{}
	prefixIncoming  = byte(0x04) // incoming:vertexRID:edgeClass:edgePos -> []byte{}
	prefixClass     = byte(0x10) // class:classID -> gob(ClassDescriptor)
	prefixClassName = byte(0x11) // classname:name -> classID
	prefixProperty  = byte(0x12) // property:classID:name -> gob(PropertyDescriptor)
	prefixCounter   = byte(0x1F) // counter:name -> uint64
)

const (
	ridSize = 6

	counterClass    = "class"
	counterProperty = "property"
)

// BadgerEngine provides persistent storage using BadgerDB.
//
// Key Structure (all integers big-endian so keys sort numerically):
//   - Records: 0x01 + classID(2) + position(4) -> encoded record
//   - Class sentinel: 0x01 + classID(2) + 0xFFFFFFFF -> next position(4)
//   - Edge endpoints: 0x02 + edgeRID(6) -> srcRID(6) + dstRID(6)
//   - Outgoing Index: 0x03 + vertexRID(6) + edgeClassID(2) + edgePos(4) -> empty
//   - Incoming Index: 0x04 + vertexRID(6) + edgeClassID(2) + edgePos(4) -> empty
//   - Classes: 0x10 + classID(2) -> gob(ClassDescriptor)
//   - Class names: 0x11 + name -> classID(2)
//   - Properties: 0x12 + classID(2) + name -> gob(PropertyDescriptor)
//
// Example:
//
//	engine, err := storage.NewBadgerEngine("/path/to/data")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	engine.CreateClass("Person", schema.Vertex)
//	engine.AddProperty("Person", "name", value.TypeText)
//	alice, _ := engine.AddVertex("Person", map[string]value.Value{
//		"name": value.Text("Alice"),
//	})
//
//	snap, _ := engine.Snapshot()
//	defer snap.Close()
//	raw, _ := snap.GetRecord(alice)
type BadgerEngine struct {
	db       *badger.DB
	log      *logrus.Entry
	mu       sync.RWMutex // Protects closed
	writeMu  sync.Mutex   // Serializes update transactions
	closed   bool
	inMemory bool // True if running in memory-only mode (testing)
}

// BadgerOptions configures the BadgerDB engine.
type BadgerOptions struct {
	// DataDir is the directory for storing data files.
	// Required unless InMemory is set.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode.
	// Useful for testing. Data is not persisted.
	InMemory bool

	// SyncWrites forces fsync after each write.
	// Slower but more durable.
	SyncWrites bool

	// Logger receives engine logs and BadgerDB's internal logs.
	// If nil, both are discarded.
	Logger *logrus.Entry

	// LowMemory enables memory-constrained settings.
	// Reduces MemTableSize and other buffers to use less RAM.
	LowMemory bool
}

// NewBadgerEngine creates a new persistent storage engine with default settings.
//
// Parameters:
//   - dataDir: Directory path for storing data files. Created if it doesn't exist.
//
// Example:
//
//	engine, err := storage.NewBadgerEngine("./data/nornicgraph")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
// Thread Safety:
//
//	Safe for concurrent use from multiple goroutines.
func NewBadgerEngine(dataDir string) (*BadgerEngine, error) {
	return NewBadgerEngineWithOptions(BadgerOptions{
		DataDir: dataDir,
	})
}

// NewBadgerEngineWithOptions creates a BadgerEngine with custom configuration.
//
// Example 1 - In-Memory Database for Testing:
//
//	engine, err := storage.NewBadgerEngineWithOptions(storage.BadgerOptions{
//		InMemory: true, // All data in RAM, lost on shutdown
//	})
//
// Example 2 - Durable writes with logging:
//
//	engine, err := storage.NewBadgerEngineWithOptions(storage.BadgerOptions{
//		DataDir:    "./data/graph",
//		SyncWrites: true,
//		Logger:     logrus.WithField("component", "storage"),
//	})
//
// Configuration Trade-offs:
//   - SyncWrites=true: Slower writes (2-5x) but maximum safety
//   - LowMemory=true: Less RAM but slightly slower
//   - InMemory=true: Fastest but data lost on shutdown
func NewBadgerEngineWithOptions(opts BadgerOptions) (*BadgerEngine, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)

	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}

	entry := opts.Logger
	if entry != nil {
		badgerOpts = badgerOpts.WithLogger(entry)
	} else {
		// Use a quiet logger by default
		badgerOpts = badgerOpts.WithLogger(nil)
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		entry = logrus.NewEntry(quiet)
	}

	if opts.LowMemory {
		// LOW MEMORY MODE: Minimize RAM usage
		badgerOpts = badgerOpts.
			WithMemTableSize(8 << 20).      // 8MB memtable
			WithValueLogFileSize(32 << 20). // 32MB value log
			WithNumMemtables(1).            // Single memtable
			WithNumLevelZeroTables(1).      // Aggressive compaction
			WithNumLevelZeroTablesStall(2).
			WithValueThreshold(512).     // Small values in LSM
			WithBlockCacheSize(8 << 20). // 8MB block cache
			WithIndexCacheSize(4 << 20)  // 4MB index cache
	} else {
		// DEFAULT: Balanced settings
		badgerOpts = badgerOpts.
			WithMemTableSize(64 << 20).      // 64MB memtable (default)
			WithValueLogFileSize(128 << 20). // 128MB value log
			WithNumMemtables(3).             // 3 memtables
			WithNumLevelZeroTables(5).       // Default L0 tables
			WithNumLevelZeroTablesStall(10).
			WithValueThreshold(64 << 10). // 64KB threshold - allows larger property values
			WithBlockCacheSize(64 << 20). // 64MB block cache
			WithIndexCacheSize(32 << 20)  // 32MB index cache
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	engine := &BadgerEngine{
		db:       db,
		log:      entry.WithField("component", "storage"),
		inMemory: opts.InMemory,
	}
	engine.log.WithFields(logrus.Fields{
		"data_dir":  opts.DataDir,
		"in_memory": opts.InMemory,
	}).Debug("storage engine opened")
	return engine, nil
}

// NewBadgerEngineInMemory creates an in-memory BadgerDB for testing.
//
// Data is not persisted and is lost when the engine is closed.
//
// Example:
//
//	engine, err := storage.NewBadgerEngineInMemory()
//	if err != nil {
//		t.Fatal(err)
//	}
//	defer engine.Close()
func NewBadgerEngineInMemory() (*BadgerEngine, error) {
	return NewBadgerEngineWithOptions(BadgerOptions{
		InMemory: true,
	})
}

// IsInMemory reports whether the engine runs without persistence.
func (b *BadgerEngine) IsInMemory() bool {
	return b.inMemory
}

// Close closes the underlying database. Open snapshots must be closed first.
func (b *BadgerEngine) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

// ============================================================================
// Key encoding helpers
// ============================================================================

func putRID(dst []byte, rid record.ID) {
	binary.BigEndian.PutUint16(dst, uint16(rid.ClassID))
	binary.BigEndian.PutUint32(dst[2:], uint32(rid.Position))
}

func readRID(src []byte) record.ID {
	return record.ID{
		ClassID:  schema.ClassID(binary.BigEndian.Uint16(src)),
		Position: record.Position(binary.BigEndian.Uint32(src[2:])),
	}
}

// recordKey creates the key of a record slot.
func recordKey(rid record.ID) []byte {
	key := make([]byte, 1+ridSize)
	key[0] = prefixRecord
	putRID(key[1:], rid)
	return key
}

// sentinelKey is the reserved slot that stores a class's next position.
func sentinelKey(classID schema.ClassID) []byte {
	return recordKey(record.ID{ClassID: classID, Position: record.SentinelPosition})
}

// classRecordPrefix covers every record slot of a class, sentinel included.
func classRecordPrefix(classID schema.ClassID) []byte {
	key := make([]byte, 3)
	key[0] = prefixRecord
	binary.BigEndian.PutUint16(key[1:], uint16(classID))
	return key
}

func edgeEndsKey(edge record.ID) []byte {
	key := make([]byte, 1+ridSize)
	key[0] = prefixEdgeEnds
	putRID(key[1:], edge)
	return key
}

// adjacencyKey creates an outgoing or incoming index entry.
func adjacencyKey(prefix byte, vertex, edge record.ID) []byte {
	key := make([]byte, 1+ridSize+ridSize)
	key[0] = prefix
	putRID(key[1:], vertex)
	putRID(key[1+ridSize:], edge)
	return key
}

// adjacencyPrefix covers the index entries of a vertex, optionally narrowed
// to one edge class.
func adjacencyPrefix(prefix byte, vertex record.ID, edgeClass schema.ClassID) []byte {
	size := 1 + ridSize
	if edgeClass != schema.AnyClass {
		size += 2
	}
	key := make([]byte, size)
	key[0] = prefix
	putRID(key[1:], vertex)
	if edgeClass != schema.AnyClass {
		binary.BigEndian.PutUint16(key[1+ridSize:], uint16(edgeClass))
	}
	return key
}

// extractEdgeFromAdjacencyKey returns the edge id stored at the tail of an
// adjacency index key.
func extractEdgeFromAdjacencyKey(key []byte) record.ID {
	return readRID(key[1+ridSize:])
}

func classKey(id schema.ClassID) []byte {
	key := make([]byte, 3)
	key[0] = prefixClass
	binary.BigEndian.PutUint16(key[1:], uint16(id))
	return key
}

func classNameKey(name string) []byte {
	return append([]byte{prefixClassName}, name...)
}

func propertyKey(classID schema.ClassID, name string) []byte {
	key := make([]byte, 3, 3+len(name))
	key[0] = prefixProperty
	binary.BigEndian.PutUint16(key[1:], uint16(classID))
	return append(key, name...)
}

func counterKey(name string) []byte {
	return append([]byte{prefixCounter}, name...)
}

// ============================================================================
// Serialization helpers
// ============================================================================

// encodeClass serializes a ClassDescriptor using gob.
func encodeClass(c schema.ClassDescriptor) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeClass deserializes a ClassDescriptor from gob.
func decodeClass(data []byte) (schema.ClassDescriptor, error) {
	var c schema.ClassDescriptor
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&c); err != nil {
		return c, fmt.Errorf("%w: class descriptor: %v", ErrInvalidData, err)
	}
	return c, nil
}

// encodeProperty serializes a PropertyDescriptor using gob.
func encodeProperty(p schema.PropertyDescriptor) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeProperty deserializes a PropertyDescriptor from gob.
func decodeProperty(data []byte) (schema.PropertyDescriptor, error) {
	var p schema.PropertyDescriptor
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		return p, fmt.Errorf("%w: property descriptor: %v", ErrInvalidData, err)
	}
	return p, nil
}

func encodeEnds(src, dst record.ID) []byte {
	out := make([]byte, 2*ridSize)
	putRID(out, src)
	putRID(out[ridSize:], dst)
	return out
}

func decodeEnds(data []byte) (src, dst record.ID, err error) {
	if len(data) != 2*ridSize {
		return src, dst, fmt.Errorf("%w: edge endpoints are %d bytes", ErrInvalidData, len(data))
	}
	return readRID(data), readRID(data[ridSize:]), nil
}
