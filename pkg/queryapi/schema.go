package queryapi

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/mvcc"
)

// Schema builds the read-only GraphQL schema exposed over this
// engine's executors: a scan(table, limit) query and a listTables
// query. Grounded on the teacher's Schema (pkg/graphql/schema.go),
// narrowed to a single Query root with no Mutation or Subscription
// type, since this surface never writes.
func Schema(cat *catalog.Catalog, txnMgr *mvcc.TransactionManager) (graphql.Schema, error) {
	resolver := NewResolver(cat, txnMgr)

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Query",
		Description: "Root query type for the relcore read-only query surface",
		Fields: graphql.Fields{
			"scan": &graphql.Field{
				Type:        graphql.NewList(RowScalar),
				Description: "Scan a table's visible rows under a fresh read-only transaction",
				Args: graphql.FieldConfigArgument{
					"table": &graphql.ArgumentConfig{
						Type:        graphql.NewNonNull(graphql.String),
						Description: "Table name",
					},
					"limit": &graphql.ArgumentConfig{
						Type:        graphql.Int,
						Description: "Maximum number of rows to return",
					},
				},
				Resolve: resolver.Scan,
			},
			"listTables": &graphql.Field{
				Type:        graphql.NewList(graphql.NewNonNull(graphql.String)),
				Description: "List all tables in the catalog",
				Resolve:     resolver.ListTables,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("queryapi: building schema: %w", err)
	}
	return schema, nil
}
