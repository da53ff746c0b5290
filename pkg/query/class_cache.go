package query

import (
	"github.com/orneryd/nornicgraph/pkg/record"
	"github.com/orneryd/nornicgraph/pkg/schema"
)

// classCache remembers the last class resolved while loading a stream of
// records. Consecutive records of the same class reuse the cached info; a
// different class id replaces it.
type classCache struct {
	cat  Catalog
	kind schema.ClassType

	id    schema.ClassID
	info  schema.ClassInfo
	valid bool

	hits   int
	misses int
}

func newClassCache(cat Catalog, kind schema.ClassType) *classCache {
	return &classCache{cat: cat, kind: kind}
}

func (c *classCache) get(id schema.ClassID) (schema.ClassInfo, error) {
	if c.valid && c.id == id {
		c.hits++
		return c.info, nil
	}
	c.misses++
	info, err := c.cat.ClassByID(id, c.kind)
	if err != nil {
		c.valid = false
		return schema.ClassInfo{}, err
	}
	c.id, c.info, c.valid = id, info, true
	return info, nil
}

// load reads and decodes rid with its class's catalog.
func (c *classCache) load(store RecordStore, rid record.ID) (*record.Record, error) {
	info, err := c.get(rid.ClassID)
	if err != nil {
		return nil, err
	}
	raw, err := store.GetRecord(rid)
	if err != nil {
		return nil, err
	}
	return record.DecodeWithBasicInfo(info.Name(), rid, raw, info.Properties)
}
