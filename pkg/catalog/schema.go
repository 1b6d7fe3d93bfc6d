package catalog

import "fmt"

// Column names and types a single attribute.
type Column struct {
	Name string
	Type TypeID
}

// Schema is an ordered list of columns. Tuples are serialized as the
// concatenation of each column's Encode output, in schema order.
type Schema struct {
	Columns []Column
}

// NewSchema builds a schema from columns.
func NewSchema(columns []Column) *Schema {
	return &Schema{Columns: columns}
}

// ColumnIndex returns the position of name, or -1 if absent.
func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// CopySchema projects a subset of columns (by index into the source
// schema) into a new schema, preserving the given order. Used by
// executors to build the output schema of a projection or a partial
// undo-log tuple.
func (s *Schema) CopySchema(indices []int) *Schema {
	cols := make([]Column, len(indices))
	for i, idx := range indices {
		cols[i] = s.Columns[idx]
	}
	return NewSchema(cols)
}

// Tuple is a row of typed values matching some schema, in column order.
type Tuple struct {
	Values []Value
}

// NewTuple wraps values as a tuple.
func NewTuple(values []Value) Tuple { return Tuple{Values: values} }

// GetValue returns the value at column index idx.
func (t Tuple) GetValue(idx int) Value { return t.Values[idx] }

// Encode serializes a tuple according to schema, column by column.
func (t Tuple) Encode(schema *Schema) []byte {
	if len(t.Values) != len(schema.Columns) {
		panic(fmt.Sprintf("catalog: tuple has %d values, schema has %d columns", len(t.Values), len(schema.Columns)))
	}
	var buf []byte
	for _, v := range t.Values {
		buf = v.Encode(buf)
	}
	return buf
}

// DecodeTuple parses a tuple's raw bytes according to schema.
func DecodeTuple(schema *Schema, raw []byte) (Tuple, error) {
	values := make([]Value, len(schema.Columns))
	off := 0
	for i, col := range schema.Columns {
		v, n, err := DecodeValue(col.Type, raw[off:])
		if err != nil {
			return Tuple{}, fmt.Errorf("catalog: decoding column %q: %w", col.Name, err)
		}
		values[i] = v
		off += n
	}
	return NewTuple(values), nil
}

// Project builds a new tuple over a subset of columns (by index),
// mirroring CopySchema for values instead of column definitions.
func (t Tuple) Project(indices []int) Tuple {
	values := make([]Value, len(indices))
	for i, idx := range indices {
		values[i] = t.Values[idx]
	}
	return NewTuple(values)
}
