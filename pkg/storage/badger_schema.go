package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/orneryd/nornicgraph/pkg/schema"
	"github.com/orneryd/nornicgraph/pkg/value"
)

// catalogView is the schema catalog as seen by one transaction.
type catalogView struct {
	classes  map[schema.ClassID]schema.ClassDescriptor
	byName   map[string]schema.ClassID
	children map[schema.ClassID][]schema.ClassID
	props    map[schema.ClassID][]schema.PropertyDescriptor
}

// loadCatalog reads every class and property descriptor visible in txn.
func loadCatalog(txn *badger.Txn) (*catalogView, error) {
	cv := &catalogView{
		classes:  make(map[schema.ClassID]schema.ClassDescriptor),
		byName:   make(map[string]schema.ClassID),
		children: make(map[schema.ClassID][]schema.ClassID),
		props:    make(map[schema.ClassID][]schema.PropertyDescriptor),
	}
	err := forEachValue(txn, []byte{prefixClass}, func(_, val []byte) error {
		c, err := decodeClass(val)
		if err != nil {
			return err
		}
		cv.classes[c.ID] = c
		cv.byName[c.Name] = c.ID
		if c.SuperClassID != schema.AnyClass {
			cv.children[c.SuperClassID] = append(cv.children[c.SuperClassID], c.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = forEachValue(txn, []byte{prefixProperty}, func(_, val []byte) error {
		p, err := decodeProperty(val)
		if err != nil {
			return err
		}
		cv.props[p.ClassID] = append(cv.props[p.ClassID], p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, kids := range cv.children {
		sort.Slice(kids, func(i, j int) bool { return kids[i] < kids[j] })
	}
	return cv, nil
}

func (cv *catalogView) lookupName(name string, kind schema.ClassType) (schema.ClassDescriptor, error) {
	id, ok := cv.byName[name]
	if !ok {
		return schema.ClassDescriptor{}, fmt.Errorf("%w: %q", schema.ErrNoSuchClass, name)
	}
	return cv.lookupID(id, kind)
}

func (cv *catalogView) lookupID(id schema.ClassID, kind schema.ClassType) (schema.ClassDescriptor, error) {
	c, ok := cv.classes[id]
	if !ok {
		return schema.ClassDescriptor{}, fmt.Errorf("%w: id %d", schema.ErrNoSuchClass, id)
	}
	if !c.Type.Matches(kind) {
		return schema.ClassDescriptor{}, fmt.Errorf("%w: %q is a %s class, want %s", schema.ErrClassTypeMismatch, c.Name, c.Type, kind)
	}
	return c, nil
}

// info resolves a class with its own and inherited properties.
func (cv *catalogView) info(c schema.ClassDescriptor) schema.ClassInfo {
	var chain []schema.ClassID
	for id := c.ID; id != schema.AnyClass; id = cv.classes[id].SuperClassID {
		chain = append(chain, id)
		if len(chain) > len(cv.classes) {
			break
		}
	}
	catalog := schema.NewPropertyCatalog()
	// Ancestors first so that nothing below overrides them.
	for i := len(chain) - 1; i >= 0; i-- {
		for _, p := range cv.props[chain[i]] {
			catalog.Add(p)
		}
	}
	return schema.ClassInfo{Descriptor: c, Properties: catalog}
}

// withSubclasses returns id followed by all of its descendants, depth first.
func (cv *catalogView) withSubclasses(id schema.ClassID) []schema.ClassID {
	out := []schema.ClassID{id}
	for _, child := range cv.children[id] {
		out = append(out, cv.withSubclasses(child)...)
	}
	return out
}

// subtreeHasProperty reports whether id or any descendant declares name.
func (cv *catalogView) subtreeHasProperty(id schema.ClassID, name string) bool {
	for _, cid := range cv.withSubclasses(id) {
		for _, p := range cv.props[cid] {
			if p.Name == name {
				return true
			}
		}
	}
	return false
}

func (cv *catalogView) sortedClasses(kind schema.ClassType) []schema.ClassDescriptor {
	out := make([]schema.ClassDescriptor, 0, len(cv.classes))
	for _, c := range cv.classes {
		if c.Type.Matches(kind) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ============================================================================
// Schema operations
// ============================================================================

// CreateClass creates a vertex or edge class.
//
// Example:
//
//	person, err := engine.CreateClass("Person", schema.Vertex)
//	knows, err := engine.CreateClass("Knows", schema.Edge)
func (b *BadgerEngine) CreateClass(name string, kind schema.ClassType) (schema.ClassDescriptor, error) {
	if kind != schema.Vertex && kind != schema.Edge {
		return schema.ClassDescriptor{}, fmt.Errorf("%w: class type must be vertex or edge", schema.ErrClassTypeMismatch)
	}
	return b.createClass(name, kind, "")
}

// CreateSubclass creates a class extending super. The subclass inherits the
// superclass's type and properties, and class scans over super include it.
func (b *BadgerEngine) CreateSubclass(name, super string) (schema.ClassDescriptor, error) {
	return b.createClass(name, schema.Undefined, super)
}

func (b *BadgerEngine) createClass(name string, kind schema.ClassType, super string) (schema.ClassDescriptor, error) {
	if err := schema.ValidateName(name); err != nil {
		return schema.ClassDescriptor{}, err
	}

	var created schema.ClassDescriptor
	err := b.withUpdate(func(txn *badger.Txn) error {
		exists, err := keyExists(txn, classNameKey(name))
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %q", schema.ErrDuplicateClass, name)
		}

		desc := schema.ClassDescriptor{Name: name, Type: kind}
		if super != "" {
			cv, err := loadCatalog(txn)
			if err != nil {
				return err
			}
			parent, err := cv.lookupName(super, schema.Undefined)
			if err != nil {
				return err
			}
			desc.SuperClassID = parent.ID
			desc.Type = parent.Type
		}

		n, err := nextCounter(txn, counterClass)
		if err != nil {
			return err
		}
		if n > math.MaxUint16 {
			return fmt.Errorf("%w: class id space exhausted", ErrInvalidData)
		}
		desc.ID = schema.ClassID(n)

		raw, err := encodeClass(desc)
		if err != nil {
			return err
		}
		if err := txn.Set(classKey(desc.ID), raw); err != nil {
			return err
		}
		idBuf := make([]byte, 2)
		binary.BigEndian.PutUint16(idBuf, uint16(desc.ID))
		if err := txn.Set(classNameKey(name), idBuf); err != nil {
			return err
		}
		created = desc
		return nil
	})
	if err != nil {
		return schema.ClassDescriptor{}, err
	}

	b.log.WithFields(logrus.Fields{
		"class":    created.Name,
		"class_id": created.ID,
		"type":     created.Type.String(),
		"super":    super,
	}).Debug("class created")
	return created, nil
}

// AddProperty declares a property on a class. The name must be unique across
// the class's ancestors and descendants.
func (b *BadgerEngine) AddProperty(className, name string, typ value.PropertyType) (schema.PropertyDescriptor, error) {
	if err := schema.ValidateName(name); err != nil {
		return schema.PropertyDescriptor{}, err
	}
	if !typ.Valid() {
		return schema.PropertyDescriptor{}, fmt.Errorf("%w: %s", value.ErrInvalidType, typ)
	}

	var created schema.PropertyDescriptor
	err := b.withUpdate(func(txn *badger.Txn) error {
		cv, err := loadCatalog(txn)
		if err != nil {
			return err
		}
		class, err := cv.lookupName(className, schema.Undefined)
		if err != nil {
			return err
		}
		if _, ok := cv.info(class).Properties.Lookup(name); ok || cv.subtreeHasProperty(class.ID, name) {
			return fmt.Errorf("%w: %s.%s", schema.ErrDuplicateProperty, className, name)
		}

		n, err := nextCounter(txn, counterProperty)
		if err != nil {
			return err
		}
		if n > math.MaxUint16 {
			return fmt.Errorf("%w: property id space exhausted", ErrInvalidData)
		}
		desc := schema.PropertyDescriptor{ID: schema.PropertyID(n), Name: name, Type: typ, ClassID: class.ID}
		raw, err := encodeProperty(desc)
		if err != nil {
			return err
		}
		created = desc
		return txn.Set(propertyKey(class.ID, name), raw)
	})
	if err != nil {
		return schema.PropertyDescriptor{}, err
	}

	b.log.WithFields(logrus.Fields{
		"class":    className,
		"property": name,
		"type":     typ.String(),
	}).Debug("property added")
	return created, nil
}

// Classes returns every class of the given kind (Undefined for all) with its
// resolved properties, ordered by id.
func (b *BadgerEngine) Classes(kind schema.ClassType) ([]schema.ClassInfo, error) {
	var out []schema.ClassInfo
	err := b.withView(func(txn *badger.Txn) error {
		cv, err := loadCatalog(txn)
		if err != nil {
			return err
		}
		for _, c := range cv.sortedClasses(kind) {
			out = append(out, cv.info(c))
		}
		return nil
	})
	return out, err
}

// Class returns one class by name with its resolved properties.
func (b *BadgerEngine) Class(name string) (schema.ClassInfo, error) {
	var out schema.ClassInfo
	err := b.withView(func(txn *badger.Txn) error {
		cv, err := loadCatalog(txn)
		if err != nil {
			return err
		}
		c, err := cv.lookupName(name, schema.Undefined)
		if err != nil {
			return err
		}
		out = cv.info(c)
		return nil
	})
	return out, err
}

func isNotFound(err error) bool {
	return errors.Is(err, badger.ErrKeyNotFound)
}
