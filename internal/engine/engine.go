// Package engine is the boundary to the columnar store. Pipelines talk to the
// Engine interface; the postgres implementation lives alongside it.
package engine

import "context"

// Column is one named, typed column of a table schema.
type Column struct {
	Name string
	Type string
}

// Schema describes a store table: column order is the declaration order,
// PrimaryKey names a subset of columns, OrderBy is advisory read ordering.
type Schema struct {
	Table      string
	Columns    []Column
	PrimaryKey []string
	OrderBy    []string
}

// Source names the table a view reads from.
type Source struct {
	Table string
}

// SaveResult reports how many rows a save actually wrote.
type SaveResult struct {
	Rows int
}

// QueryResult carries query rows as column-name maps.
type QueryResult struct {
	Data []map[string]any
}

// Engine is the store collaborator. Save with zero rows registers the schema
// without writing anything; saves never update existing rows.
type Engine interface {
	Save(ctx context.Context, schema Schema, rows []map[string]any) (SaveResult, error)
	CreateView(ctx context.Context, name string, src Source) error
	Query(ctx context.Context, query string) (QueryResult, error)
}
