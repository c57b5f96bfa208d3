package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

type postgresEngine struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPostgres returns an Engine backed by a pgx connection pool.
func NewPostgres(db *pgxpool.Pool, log *logrus.Logger) Engine {
	return &postgresEngine{db: db, log: log}
}

func (e *postgresEngine) Save(ctx context.Context, schema Schema, rows []map[string]any) (SaveResult, error) {
	// Registering the schema is part of every save so that a zero-row save
	// still creates the table.
	if _, err := e.db.Exec(ctx, createTableSQL(schema)); err != nil {
		return SaveResult{}, fmt.Errorf("failed to ensure table %s: %w", schema.Table, err)
	}
	if len(rows) == 0 {
		return SaveResult{}, nil
	}

	sql, args := insertSQL(schema, rows)
	tag, err := e.db.Exec(ctx, sql, args...)
	if err != nil {
		return SaveResult{}, fmt.Errorf("failed to save %d rows to %s: %w", len(rows), schema.Table, err)
	}

	res := SaveResult{Rows: int(tag.RowsAffected())}
	e.log.WithFields(logrus.Fields{
		"table":   schema.Table,
		"rows":    len(rows),
		"written": res.Rows,
	}).Debug("Batch saved")
	return res, nil
}

func (e *postgresEngine) CreateView(ctx context.Context, name string, src Source) error {
	if _, err := e.db.Exec(ctx, createViewSQL(name, src)); err != nil {
		return fmt.Errorf("failed to create view %s over %s: %w", name, src.Table, err)
	}
	return nil
}

func (e *postgresEngine) Query(ctx context.Context, query string) (QueryResult, error) {
	rows, err := e.db.Query(ctx, query)
	if err != nil {
		return QueryResult{}, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := QueryResult{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return QueryResult{}, fmt.Errorf("failed to read query row: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		result.Data = append(result.Data, row)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, fmt.Errorf("query iteration failed: %w", err)
	}
	return result, nil
}

func createTableSQL(schema Schema) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(pgx.Identifier{schema.Table}.Sanitize())
	b.WriteString(" (")
	for i, col := range schema.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgx.Identifier{col.Name}.Sanitize())
		b.WriteString(" ")
		b.WriteString(col.Type)
	}
	if len(schema.PrimaryKey) > 0 {
		b.WriteString(", PRIMARY KEY (")
		for i, col := range schema.PrimaryKey {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(pgx.Identifier{col}.Sanitize())
		}
		b.WriteString(")")
	}
	b.WriteString(")")
	return b.String()
}

func insertSQL(schema Schema, rows []map[string]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgx.Identifier{schema.Table}.Sanitize())
	b.WriteString(" (")
	for i, col := range schema.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgx.Identifier{col.Name}.Sanitize())
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(schema.Columns))
	n := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, col := range schema.Columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", n)
			n++
			args = append(args, row[col.Name])
		}
		b.WriteString(")")
	}
	// Rows are write-once; re-saving an existing key is a no-op.
	b.WriteString(" ON CONFLICT DO NOTHING")
	return b.String(), args
}

func createViewSQL(name string, src Source) string {
	return fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM %s",
		pgx.Identifier{name}.Sanitize(), pgx.Identifier{src.Table}.Sanitize())
}
