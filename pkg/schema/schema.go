// Package schema defines the class and property descriptors shared by the
// storage engine and the query executor.
//
// A class is either a vertex class or an edge class and may extend a single
// superclass. Resolving a class yields a ClassInfo whose PropertyCatalog
// contains both the class's own properties and everything it inherits, which
// is what record decoding and property type resolution work against.
package schema

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/orneryd/nornicgraph/pkg/value"
)

// ClassID identifies a class. Zero is never assigned and doubles as the
// "any class" wildcard in adjacency lookups.
type ClassID uint16

// AnyClass is the wildcard class id.
const AnyClass ClassID = 0

// PropertyID identifies a property within the catalog.
type PropertyID uint16

// ClassType restricts a class to vertices or edges. Undefined matches both
// when used as a filter.
type ClassType uint8

const (
	Undefined ClassType = iota
	Vertex
	Edge
)

func (t ClassType) String() string {
	switch t {
	case Vertex:
		return "vertex"
	case Edge:
		return "edge"
	}
	return "undefined"
}

// Matches reports whether a class of type t satisfies the restriction want.
func (t ClassType) Matches(want ClassType) bool {
	return want == Undefined || t == want
}

// ParseClassType converts "vertex", "edge" or "" / "any" into a ClassType.
func ParseClassType(s string) (ClassType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vertex", "v":
		return Vertex, nil
	case "edge", "e":
		return Edge, nil
	case "", "any", "undefined":
		return Undefined, nil
	}
	return Undefined, fmt.Errorf("unknown class type %q", s)
}

// PropertyDescriptor describes one property of a class.
type PropertyDescriptor struct {
	ID      PropertyID         `json:"id"`
	Name    string             `json:"name"`
	Type    value.PropertyType `json:"type"`
	ClassID ClassID            `json:"class_id"`
}

// ClassDescriptor describes one class.
type ClassDescriptor struct {
	ID           ClassID   `json:"id"`
	Name         string    `json:"name"`
	Type         ClassType `json:"type"`
	SuperClassID ClassID   `json:"super_class_id,omitempty"`
}

// PropertyCatalog maps property names to descriptors and property ids back
// to names for one resolved class.
type PropertyCatalog struct {
	NameToDesc map[string]PropertyDescriptor
	IDToName   map[PropertyID]string
}

// NewPropertyCatalog builds a catalog from descriptors. Later descriptors
// with the same name replace earlier ones.
func NewPropertyCatalog(props ...PropertyDescriptor) PropertyCatalog {
	c := PropertyCatalog{
		NameToDesc: make(map[string]PropertyDescriptor, len(props)),
		IDToName:   make(map[PropertyID]string, len(props)),
	}
	for _, p := range props {
		c.Add(p)
	}
	return c
}

// Add registers p in the catalog.
func (c *PropertyCatalog) Add(p PropertyDescriptor) {
	if c.NameToDesc == nil {
		c.NameToDesc = make(map[string]PropertyDescriptor)
		c.IDToName = make(map[PropertyID]string)
	}
	if old, ok := c.NameToDesc[p.Name]; ok {
		delete(c.IDToName, old.ID)
	}
	c.NameToDesc[p.Name] = p
	c.IDToName[p.ID] = p.Name
}

// Lookup returns the descriptor for name.
func (c PropertyCatalog) Lookup(name string) (PropertyDescriptor, bool) {
	p, ok := c.NameToDesc[name]
	return p, ok
}

// ByID returns the descriptor for id.
func (c PropertyCatalog) ByID(id PropertyID) (PropertyDescriptor, bool) {
	name, ok := c.IDToName[id]
	if !ok {
		return PropertyDescriptor{}, false
	}
	return c.NameToDesc[name], true
}

// Len returns the number of properties.
func (c PropertyCatalog) Len() int { return len(c.NameToDesc) }

// Names returns property names in sorted order.
func (c PropertyCatalog) Names() []string {
	names := make([]string, 0, len(c.NameToDesc))
	for name := range c.NameToDesc {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClassInfo is a resolved class: its descriptor plus the complete property
// catalog including inherited properties.
type ClassInfo struct {
	Descriptor ClassDescriptor
	Properties PropertyCatalog
}

func (ci ClassInfo) ID() ClassID     { return ci.Descriptor.ID }
func (ci ClassInfo) Name() string    { return ci.Descriptor.Name }
func (ci ClassInfo) Type() ClassType { return ci.Descriptor.Type }

// ValidateName checks a class or property name. Names must be non-empty,
// start with a letter or underscore, contain only letters, digits and
// underscores, and must not start with '@' (reserved for basic info).
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}
