package queryapi

import (
	"github.com/graphql-go/graphql"

	"github.com/relcore-db/relcore/pkg/catalog"
)

// RowScalar serializes a decoded tuple as a JSON object, one entry per
// column, so a table's row shape doesn't need its own GraphQL object
// type per table. Grounded on the teacher's JSONScalar
// (pkg/graphql/scalars.go), narrowed to Serialize only: this surface
// is read-only, so rows never arrive as GraphQL input.
var RowScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "Row",
	Description: "A table row serialized as a JSON object",
	Serialize: func(value interface{}) interface{} {
		return value
	},
})

// valueToGo converts a catalog.Value into the Go-native representation
// the Row scalar serializes: nil for SQL NULL, the matching primitive
// otherwise.
func valueToGo(v catalog.Value) interface{} {
	if v.IsNull {
		return nil
	}
	switch v.Type {
	case catalog.TypeBoolean:
		return v.Boolean
	case catalog.TypeInteger:
		return v.Integer
	case catalog.TypeFloat:
		return v.Float
	case catalog.TypeVarchar:
		return v.Varchar
	default:
		return nil
	}
}

// rowToMap flattens a tuple into a map keyed by column name, the shape
// the Row scalar serializes.
func rowToMap(schema *catalog.Schema, tup catalog.Tuple) map[string]interface{} {
	out := make(map[string]interface{}, len(schema.Columns))
	for i, col := range schema.Columns {
		out[col.Name] = valueToGo(tup.GetValue(i))
	}
	return out
}
