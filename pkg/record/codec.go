package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/orneryd/nornicgraph/pkg/schema"
	"github.com/orneryd/nornicgraph/pkg/value"
)

// Stored layout, one block per property:
//
//	| property id (uint16 LE) | size header | value bytes |
//
// The size header is a single byte (size << 1) when the value is shorter
// than 128 bytes, otherwise a uint32 LE ((size << 1) | 1). The low bit of the
// first header byte selects the form. A record without properties is stored
// as a single zero byte so that the stored value is never empty.

const (
	shortSizeLimit = 1 << 7
	maxValueSize   = math.MaxUint32 >> 1
)

var emptyPayload = []byte{0}

// Encode serializes the user properties of rec against the class catalog.
// Properties are written in property id order. Empty values are kept so a
// property can be explicitly cleared.
func Encode(rec *Record, props schema.PropertyCatalog) ([]byte, error) {
	type block struct {
		id  schema.PropertyID
		raw []byte
	}
	blocks := make([]block, 0, rec.Len())
	size := 0
	for name, v := range rec.props {
		desc, ok := props.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", schema.ErrNoSuchProperty, name)
		}
		raw := v.Raw()
		if len(raw) > maxValueSize {
			return nil, fmt.Errorf("%w: property %q is %d bytes", ErrMalformedRecord, name, len(raw))
		}
		blocks = append(blocks, block{id: desc.ID, raw: raw})
		size += 2 + headerSize(len(raw)) + len(raw)
	}
	if len(blocks) == 0 {
		return append([]byte(nil), emptyPayload...), nil
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].id < blocks[j].id })

	out := make([]byte, 0, size)
	for _, b := range blocks {
		out = binary.LittleEndian.AppendUint16(out, uint16(b.id))
		if len(b.raw) < shortSizeLimit {
			out = append(out, byte(len(b.raw)<<1))
		} else {
			out = binary.LittleEndian.AppendUint32(out, uint32(len(b.raw))<<1|1)
		}
		out = append(out, b.raw...)
	}
	return out, nil
}

func headerSize(n int) int {
	if n < shortSizeLimit {
		return 1
	}
	return 4
}

// Decode parses a stored value into a record. Each value is tagged with the
// catalog's property type. Blocks whose property id is not in the catalog
// (dropped properties) are skipped.
func Decode(raw []byte, props schema.PropertyCatalog) (*Record, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedRecord)
	}
	rec := New()
	if bytes.Equal(raw, emptyPayload) {
		return rec, nil
	}
	offset := 0
	for offset < len(raw) {
		if offset+3 > len(raw) {
			return nil, fmt.Errorf("%w: truncated header at offset %d", ErrMalformedRecord, offset)
		}
		id := schema.PropertyID(binary.LittleEndian.Uint16(raw[offset:]))
		offset += 2

		var size int
		if raw[offset]&1 == 1 {
			if offset+4 > len(raw) {
				return nil, fmt.Errorf("%w: truncated size at offset %d", ErrMalformedRecord, offset)
			}
			size = int(binary.LittleEndian.Uint32(raw[offset:]) >> 1)
			offset += 4
		} else {
			size = int(raw[offset] >> 1)
			offset++
		}
		if offset+size > len(raw) {
			return nil, fmt.Errorf("%w: property %d overruns payload", ErrMalformedRecord, id)
		}

		if desc, ok := props.ByID(id); ok {
			rec.props[desc.Name] = value.FromBytes(desc.Type, raw[offset:offset+size])
		}
		offset += size
	}
	return rec, nil
}

// DecodeWithBasicInfo decodes raw and attaches class name, id and version.
func DecodeWithBasicInfo(className string, id ID, raw []byte, props schema.PropertyCatalog) (*Record, error) {
	rec, err := Decode(raw, props)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	return rec.WithBasicInfo(className, id, 1), nil
}
