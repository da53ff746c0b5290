// Package value provides the typed byte buffers that flow through the
// predicate engine.
//
// A Value is an immutable pair of a PropertyType tag and the raw bytes of a
// stored property. Accessors reinterpret those bytes as a specific Go scalar
// regardless of the tag, which mirrors how stored records are read: the
// catalog, not the buffer, decides how bytes are interpreted.
//
// Example:
//
//	age := value.Int(42)
//	age.Int32()   // 42
//	age.Int64()   // 42 (zero-extended)
//	age.Format()  // "42"
//
//	name := value.Text("Alice")
//	name.AsText() // "Alice"
package value

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PropertyType is the scalar kind a stored value is interpreted as.
type PropertyType uint8

const (
	TypeUndefined PropertyType = iota
	TypeTinyInt
	TypeUnsignedTinyInt
	TypeSmallInt
	TypeUnsignedSmallInt
	TypeInteger
	TypeUnsignedInteger
	TypeBigInt
	TypeUnsignedBigInt
	TypeReal
	TypeText
	TypeBlob
)

var typeNames = map[PropertyType]string{
	TypeUndefined:        "undefined",
	TypeTinyInt:          "tinyint",
	TypeUnsignedTinyInt:  "unsigned_tinyint",
	TypeSmallInt:         "smallint",
	TypeUnsignedSmallInt: "unsigned_smallint",
	TypeInteger:          "integer",
	TypeUnsignedInteger:  "unsigned_integer",
	TypeBigInt:           "bigint",
	TypeUnsignedBigInt:   "unsigned_bigint",
	TypeReal:             "real",
	TypeText:             "text",
	TypeBlob:             "blob",
}

// ErrInvalidType is returned when a type name or a textual value cannot be
// interpreted.
var ErrInvalidType = errors.New("invalid property type")

func (t PropertyType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("PropertyType(%d)", uint8(t))
}

// Valid reports whether t is a concrete, comparable property type.
func (t PropertyType) Valid() bool {
	return t >= TypeTinyInt && t <= TypeBlob
}

// IsNumeric reports whether t is one of the integer widths or TypeReal.
func (t PropertyType) IsNumeric() bool {
	return t >= TypeTinyInt && t <= TypeReal
}

// IsSigned reports whether t is a signed integer type.
func (t PropertyType) IsSigned() bool {
	switch t {
	case TypeTinyInt, TypeSmallInt, TypeInteger, TypeBigInt:
		return true
	}
	return false
}

// Width returns the fixed byte width of numeric types and 0 for variable
// length types.
func (t PropertyType) Width() int {
	switch t {
	case TypeTinyInt, TypeUnsignedTinyInt:
		return 1
	case TypeSmallInt, TypeUnsignedSmallInt:
		return 2
	case TypeInteger, TypeUnsignedInteger:
		return 4
	case TypeBigInt, TypeUnsignedBigInt, TypeReal:
		return 8
	}
	return 0
}

// ParsePropertyType converts a type name (case-insensitive) into a
// PropertyType. A few common aliases are accepted.
func ParsePropertyType(s string) (PropertyType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "int", "int32":
		return TypeInteger, nil
	case "uint", "uint32":
		return TypeUnsignedInteger, nil
	case "int64", "long":
		return TypeBigInt, nil
	case "float", "double", "float64":
		return TypeReal, nil
	case "string", "varchar":
		return TypeText, nil
	case "bytes":
		return TypeBlob, nil
	}
	for t, n := range typeNames {
		if n == name && t != TypeUndefined {
			return t, nil
		}
	}
	return TypeUndefined, fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// Value is an immutable tagged byte buffer. The zero Value is empty and
// represents an absent property.
type Value struct {
	typ PropertyType
	raw []byte
}

// Empty returns the empty value.
func Empty() Value { return Value{} }

// FromBytes wraps a copy of b with the given type tag.
func FromBytes(t PropertyType, b []byte) Value {
	if len(b) == 0 {
		return Value{typ: t}
	}
	c := make([]byte, len(b))
	copy(c, b)
	return Value{typ: t, raw: c}
}

// Constructors store numbers little-endian at their natural width.
func TinyInt(v int8) Value   { return Value{typ: TypeTinyInt, raw: []byte{byte(v)}} }
func UTinyInt(v uint8) Value { return Value{typ: TypeUnsignedTinyInt, raw: []byte{v}} }
func SmallInt(v int16) Value { return USmallInt(uint16(v)).retag(TypeSmallInt) }
func Int(v int32) Value      { return UInt(uint32(v)).retag(TypeInteger) }
func BigInt(v int64) Value   { return UBigInt(uint64(v)).retag(TypeBigInt) }
func Real(v float64) Value   { return UBigInt(math.Float64bits(v)).retag(TypeReal) }
func Text(s string) Value    { return Value{typ: TypeText, raw: []byte(s)} }
func Blob(b []byte) Value    { return FromBytes(TypeBlob, b) }

func USmallInt(v uint16) Value {
	raw := make([]byte, 2)
	binary.LittleEndian.PutUint16(raw, v)
	return Value{typ: TypeUnsignedSmallInt, raw: raw}
}

func UInt(v uint32) Value {
	raw := make([]byte, 4)
	binary.LittleEndian.PutUint32(raw, v)
	return Value{typ: TypeUnsignedInteger, raw: raw}
}

func UBigInt(v uint64) Value {
	raw := make([]byte, 8)
	binary.LittleEndian.PutUint64(raw, v)
	return Value{typ: TypeUnsignedBigInt, raw: raw}
}

func (v Value) retag(t PropertyType) Value {
	v.typ = t
	return v
}

// Type returns the tag the value was built with.
func (v Value) Type() PropertyType { return v.typ }

// Len returns the number of stored bytes.
func (v Value) Len() int { return len(v.raw) }

// IsEmpty reports whether the value holds no bytes.
func (v Value) IsEmpty() bool { return len(v.raw) == 0 }

// Bytes returns a copy of the stored bytes.
func (v Value) Bytes() []byte {
	if len(v.raw) == 0 {
		return nil
	}
	c := make([]byte, len(v.raw))
	copy(c, v.raw)
	return c
}

// Raw exposes the stored bytes without copying. Callers must not modify the
// returned slice.
func (v Value) Raw() []byte { return v.raw }

// word zero-extends the stored bytes to 8 bytes and decodes them
// little-endian.
func (v Value) word() uint64 {
	var buf [8]byte
	copy(buf[:], v.raw)
	return binary.LittleEndian.Uint64(buf[:])
}

func (v Value) Int8() int8       { return int8(v.word()) }
func (v Value) Uint8() uint8     { return uint8(v.word()) }
func (v Value) Int16() int16     { return int16(v.word()) }
func (v Value) Uint16() uint16   { return uint16(v.word()) }
func (v Value) Int32() int32     { return int32(v.word()) }
func (v Value) Uint32() uint32   { return uint32(v.word()) }
func (v Value) Int64() int64     { return int64(v.word()) }
func (v Value) Uint64() uint64   { return v.word() }
func (v Value) Float64() float64 { return math.Float64frombits(v.word()) }
func (v Value) AsText() string   { return string(v.raw) }

// Equal reports whether both values carry the same tag and bytes.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ || len(v.raw) != len(o.raw) {
		return false
	}
	for i := range v.raw {
		if v.raw[i] != o.raw[i] {
			return false
		}
	}
	return true
}

// As reinterprets the value under another tag without copying.
func (v Value) As(t PropertyType) Value { return v.retag(t) }

// Format renders the value according to its tag.
func (v Value) Format() string {
	if v.IsEmpty() {
		return "<empty>"
	}
	switch v.typ {
	case TypeTinyInt:
		return strconv.FormatInt(int64(v.Int8()), 10)
	case TypeSmallInt:
		return strconv.FormatInt(int64(v.Int16()), 10)
	case TypeInteger:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case TypeBigInt:
		return strconv.FormatInt(v.Int64(), 10)
	case TypeUnsignedTinyInt:
		return strconv.FormatUint(uint64(v.Uint8()), 10)
	case TypeUnsignedSmallInt:
		return strconv.FormatUint(uint64(v.Uint16()), 10)
	case TypeUnsignedInteger:
		return strconv.FormatUint(uint64(v.Uint32()), 10)
	case TypeUnsignedBigInt:
		return strconv.FormatUint(v.Uint64(), 10)
	case TypeReal:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case TypeText:
		return strconv.Quote(v.AsText())
	default:
		return "0x" + hex.EncodeToString(v.raw)
	}
}

func (v Value) String() string { return v.Format() }

// Parse converts user supplied text into a value of type t. Blobs are
// expected as hex, optionally prefixed with 0x.
func Parse(t PropertyType, s string) (Value, error) {
	switch t {
	case TypeTinyInt, TypeSmallInt, TypeInteger, TypeBigInt:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, t.Width()*8)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s %q: %v", ErrInvalidType, t, s, err)
		}
		return fromInt(t, n), nil
	case TypeUnsignedTinyInt, TypeUnsignedSmallInt, TypeUnsignedInteger, TypeUnsignedBigInt:
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, t.Width()*8)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s %q: %v", ErrInvalidType, t, s, err)
		}
		return fromUint(t, n), nil
	case TypeReal:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s %q: %v", ErrInvalidType, t, s, err)
		}
		return Real(f), nil
	case TypeText:
		return Text(s), nil
	case TypeBlob:
		b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
		if err != nil {
			return Value{}, fmt.Errorf("%w: blob %q: %v", ErrInvalidType, s, err)
		}
		return Blob(b), nil
	}
	return Value{}, fmt.Errorf("%w: cannot parse into %s", ErrInvalidType, t)
}

func fromInt(t PropertyType, n int64) Value {
	switch t {
	case TypeTinyInt:
		return TinyInt(int8(n))
	case TypeSmallInt:
		return SmallInt(int16(n))
	case TypeInteger:
		return Int(int32(n))
	}
	return BigInt(n)
}

func fromUint(t PropertyType, n uint64) Value {
	switch t {
	case TypeUnsignedTinyInt:
		return UTinyInt(uint8(n))
	case TypeUnsignedSmallInt:
		return USmallInt(uint16(n))
	case TypeUnsignedInteger:
		return UInt(uint32(n))
	}
	return UBigInt(n)
}
