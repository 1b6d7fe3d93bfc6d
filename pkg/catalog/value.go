// Package catalog implements the schema/value system and the table and
// index registries that the executors consult: typed columns, value
// extraction, and lookup of TableInfo/IndexInfo by name or oid.
package catalog

import (
	"encoding/binary"
	"fmt"
	"math"
)

// TypeID tags a column's storage type.
type TypeID byte

const (
	TypeInvalid TypeID = iota
	TypeBoolean
	TypeInteger
	TypeFloat
	TypeVarchar
)

func (t TypeID) String() string {
	switch t {
	case TypeBoolean:
		return "boolean"
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeVarchar:
		return "varchar"
	default:
		return "invalid"
	}
}

// Value is a typed, possibly-null column value.
type Value struct {
	Type    TypeID
	IsNull  bool
	Boolean bool
	Integer int64
	Float   float64
	Varchar string
}

// NewNull returns a null value of the given type.
func NewNull(t TypeID) Value { return Value{Type: t, IsNull: true} }

// NewBoolean, NewInteger, NewFloat, NewVarchar build non-null typed
// values.
func NewBoolean(v bool) Value     { return Value{Type: TypeBoolean, Boolean: v} }
func NewInteger(v int64) Value    { return Value{Type: TypeInteger, Integer: v} }
func NewFloat(v float64) Value    { return Value{Type: TypeFloat, Float: v} }
func NewVarchar(v string) Value   { return Value{Type: TypeVarchar, Varchar: v} }

// CompareTo orders two values of the same type; null sorts before any
// non-null value. Comparing values of differing types is a caller bug
// and panics, matching the catalog's role as a trusted internal
// collaborator rather than a user-facing boundary.
func (v Value) CompareTo(other Value) int {
	if v.Type != other.Type {
		panic(fmt.Sprintf("catalog: cannot compare %s to %s", v.Type, other.Type))
	}
	if v.IsNull || other.IsNull {
		switch {
		case v.IsNull && other.IsNull:
			return 0
		case v.IsNull:
			return -1
		default:
			return 1
		}
	}
	switch v.Type {
	case TypeBoolean:
		return boolCompare(v.Boolean, other.Boolean)
	case TypeInteger:
		return int64Compare(v.Integer, other.Integer)
	case TypeFloat:
		return float64Compare(v.Float, other.Float)
	case TypeVarchar:
		switch {
		case v.Varchar < other.Varchar:
			return -1
		case v.Varchar > other.Varchar:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}

func boolCompare(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

func int64Compare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func float64Compare(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Encode appends the value's serialized bytes to buf, using a leading
// null flag byte followed by a fixed or length-prefixed payload.
func (v Value) Encode(buf []byte) []byte {
	if v.IsNull {
		return append(buf, 1)
	}
	buf = append(buf, 0)
	switch v.Type {
	case TypeBoolean:
		if v.Boolean {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case TypeInteger:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(v.Integer))
		buf = append(buf, b[:]...)
	case TypeFloat:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v.Float))
		buf = append(buf, b[:]...)
	case TypeVarchar:
		var lb [4]byte
		binary.LittleEndian.PutUint32(lb[:], uint32(len(v.Varchar)))
		buf = append(buf, lb[:]...)
		buf = append(buf, v.Varchar...)
	}
	return buf
}

// DecodeValue reads one encoded value of the given type from buf,
// returning the value and the number of bytes consumed.
func DecodeValue(t TypeID, buf []byte) (Value, int, error) {
	if len(buf) < 1 {
		return Value{}, 0, fmt.Errorf("catalog: truncated value")
	}
	if buf[0] == 1 {
		return NewNull(t), 1, nil
	}
	off := 1
	switch t {
	case TypeBoolean:
		if len(buf) < off+1 {
			return Value{}, 0, fmt.Errorf("catalog: truncated boolean")
		}
		return NewBoolean(buf[off] != 0), off + 1, nil
	case TypeInteger:
		if len(buf) < off+8 {
			return Value{}, 0, fmt.Errorf("catalog: truncated integer")
		}
		return NewInteger(int64(binary.LittleEndian.Uint64(buf[off : off+8]))), off + 8, nil
	case TypeFloat:
		if len(buf) < off+8 {
			return Value{}, 0, fmt.Errorf("catalog: truncated float")
		}
		return NewFloat(math.Float64frombits(binary.LittleEndian.Uint64(buf[off : off+8]))), off + 8, nil
	case TypeVarchar:
		if len(buf) < off+4 {
			return Value{}, 0, fmt.Errorf("catalog: truncated varchar length")
		}
		n := int(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
		if len(buf) < off+n {
			return Value{}, 0, fmt.Errorf("catalog: truncated varchar data")
		}
		return NewVarchar(string(buf[off : off+n])), off + n, nil
	default:
		return Value{}, 0, fmt.Errorf("catalog: unsupported type %s", t)
	}
}
