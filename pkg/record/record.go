// Package record holds record identifiers, parsed records and the binary
// codec used to store record properties.
package record

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/orneryd/nornicgraph/pkg/schema"
	"github.com/orneryd/nornicgraph/pkg/value"
)

// Basic info keys attached to every parsed record. They start with '@' so
// they can never collide with user property names.
const (
	ClassNameKey = "@className"
	RecordIDKey  = "@recordId"
	VersionKey   = "@version"
	DepthKey     = "@depth"
)

// Position is a record's slot within its class record space.
type Position uint32

// SentinelPosition is the reserved slot holding a class's next position.
const SentinelPosition Position = math.MaxUint32

// ID identifies a record by class and position.
type ID struct {
	ClassID  schema.ClassID
	Position Position
}

// String renders the id as "#class:position".
func (id ID) String() string {
	return "#" + strconv.FormatUint(uint64(id.ClassID), 10) + ":" + strconv.FormatUint(uint64(id.Position), 10)
}

// IsZero reports whether id is the zero id.
func (id ID) IsZero() bool { return id == ID{} }

// ParseID parses "#class:position" (the leading '#' is optional).
func ParseID(s string) (ID, error) {
	body := strings.TrimPrefix(strings.TrimSpace(s), "#")
	cls, pos, ok := strings.Cut(body, ":")
	if !ok {
		return ID{}, fmt.Errorf("invalid record id %q", s)
	}
	c, err := strconv.ParseUint(cls, 10, 16)
	if err != nil {
		return ID{}, fmt.Errorf("invalid record id %q: class: %w", s, err)
	}
	p, err := strconv.ParseUint(pos, 10, 32)
	if err != nil {
		return ID{}, fmt.Errorf("invalid record id %q: position: %w", s, err)
	}
	return ID{ClassID: schema.ClassID(c), Position: Position(p)}, nil
}

// Existence is the three-valued answer to "does this vertex exist".
type Existence uint8

const (
	// Exists means the vertex is visible in the current snapshot.
	Exists Existence = iota
	// NotExist means the vertex is absent everywhere.
	NotExist
	// NotExistInSnapshot means the vertex is absent from the current
	// snapshot but present in newer committed state.
	NotExistInSnapshot
)

func (e Existence) String() string {
	switch e {
	case Exists:
		return "exists"
	case NotExist:
		return "not_exist"
	case NotExistInSnapshot:
		return "not_exist_in_snapshot"
	}
	return "unknown"
}

// Record is a parsed record: user properties plus basic info.
type Record struct {
	props     map[string]value.Value
	className string
	id        ID
	version   uint64
	depth     uint32
}

// New returns an empty record.
func New() *Record {
	return &Record{props: make(map[string]value.Value)}
}

// FromMap builds a record from a property map. The map is copied.
func FromMap(props map[string]value.Value) *Record {
	r := &Record{props: make(map[string]value.Value, len(props))}
	for k, v := range props {
		r.props[k] = v
	}
	return r
}

// Set stores a property value and returns the record for chaining.
func (r *Record) Set(name string, v value.Value) *Record {
	if r.props == nil {
		r.props = make(map[string]value.Value)
	}
	r.props[name] = v
	return r
}

// Unset removes a property.
func (r *Record) Unset(name string) {
	delete(r.props, name)
}

// Get returns the value of a property or basic info key. Absent properties
// yield the empty value.
func (r *Record) Get(name string) value.Value {
	if r == nil {
		return value.Empty()
	}
	if strings.HasPrefix(name, "@") {
		return r.basicInfo(name)
	}
	return r.props[name]
}

// Has reports whether the record stores name (basic info excluded).
func (r *Record) Has(name string) bool {
	_, ok := r.props[name]
	return ok
}

func (r *Record) basicInfo(name string) value.Value {
	switch name {
	case ClassNameKey:
		if r.className == "" {
			return value.Empty()
		}
		return value.Text(r.className)
	case RecordIDKey:
		if r.id.IsZero() {
			return value.Empty()
		}
		return value.Text(r.id.String())
	case VersionKey:
		return value.UBigInt(r.version)
	case DepthKey:
		return value.UInt(r.depth)
	}
	return value.Empty()
}

// Properties returns a copy of the user properties.
func (r *Record) Properties() map[string]value.Value {
	out := make(map[string]value.Value, len(r.props))
	for k, v := range r.props {
		out[k] = v
	}
	return out
}

// Names returns the user property names in sorted order.
func (r *Record) Names() []string {
	names := make([]string, 0, len(r.props))
	for k := range r.props {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of user properties.
func (r *Record) Len() int { return len(r.props) }

func (r *Record) ClassName() string { return r.className }
func (r *Record) ID() ID            { return r.id }
func (r *Record) Version() uint64   { return r.version }
func (r *Record) Depth() uint32     { return r.depth }

// WithBasicInfo sets the identity fields attached at parse time.
func (r *Record) WithBasicInfo(className string, id ID, version uint64) *Record {
	r.className = className
	r.id = id
	r.version = version
	return r
}

// WithDepth sets the traversal depth reported through @depth.
func (r *Record) WithDepth(depth uint32) *Record {
	r.depth = depth
	return r
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := FromMap(r.props)
	c.className, c.id, c.version, c.depth = r.className, r.id, r.version, r.depth
	return c
}

// String renders the record for logs and CLI output.
func (r *Record) String() string {
	var sb strings.Builder
	sb.WriteString(r.className)
	sb.WriteString(r.id.String())
	sb.WriteString("{")
	for i, name := range r.Names() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(r.props[name].Format())
	}
	sb.WriteString("}")
	return sb.String()
}
