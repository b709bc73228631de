// Package engine abstracts a SQL backend the way spec.md §4.1 describes:
// execute statements, batch inserts, create/drop schemas and tables,
// install/uninstall the audit trigger, and read the change log.
//
// The source system dispatches a single "run_sql" call polymorphically
// over a shape enum (scalar / row / column / table). Per spec.md §9's
// "dynamic SQL shapes" design note, this package instead exposes four
// distinct, statically-typed methods and keeps the shape enum for
// internal dispatch only.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cxz/splitgraph/internal/apperrors"
)

// shape selects how a result set is collapsed, mirroring the source's
// ResultShape enum. It is never exposed outside this package.
type shape int

const (
	shapeOneOne shape = iota
	shapeOneMany
	shapeManyOne
	shapeManyMany
)

// ChangeKind is the kind of a row-level change captured by the audit
// trigger, or recorded in a DIFF object.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// ChangeRow is one row-level change, as read from the pending-changes
// side table (spec.md §4.2) or stored in a DIFF object (spec.md §4.3).
type ChangeRow struct {
	PK      map[string]any
	Kind    ChangeKind
	Payload map[string]any
	RowSeq  int64
}

// ColumnDef is one column of a table schema, per spec.md §3 ("Table
// entry"): (ordinal, column_name, column_type, is_pk).
type ColumnDef struct {
	Ordinal    int
	Name       string
	Type       string
	PrimaryKey bool
}

// Row is a single result row, column-ordered.
type Row []any

// Rows is a full result set.
type Rows struct {
	Columns []string
	Data    [][]any
}

// Engine is the SQL backend abstraction every other component depends
// on. Implementations exist for MySQL-wire-compatible servers
// (including Dolt in server mode) and for Dolt's embedded driver.
type Engine interface {
	QueryScalar(ctx context.Context, sqlText string, args ...any) (any, error)
	QueryRow(ctx context.Context, sqlText string, args ...any) (Row, error)
	QueryColumn(ctx context.Context, sqlText string, args ...any) ([]any, error)
	QueryAll(ctx context.Context, sqlText string, args ...any) (*Rows, error)

	// RunBatch runs sqlText once per row of argRows inside a single
	// transaction, per spec.md §4.1: "the adapter guarantees that
	// batched statements run in a single transaction; callers use this
	// to make commit atomic."
	RunBatch(ctx context.Context, sqlText string, argRows [][]any) error

	// RunInTransaction runs fn against a transaction-scoped Engine; a
	// non-nil return rolls the transaction back.
	RunInTransaction(ctx context.Context, fn func(tx Engine) error) error

	CreateSchema(ctx context.Context, schema string) error
	DropSchema(ctx context.Context, schema string) error
	SchemaExists(ctx context.Context, schema string) (bool, error)
	CreateTable(ctx context.Context, schema, table string, columns []ColumnDef) error
	GetPrimaryKeys(ctx context.Context, schema, table string) ([]string, error)
	TableColumns(ctx context.Context, schema, table string) ([]ColumnDef, error)

	InstallAuditTrigger(ctx context.Context, schema, table string, pk []string) error
	UninstallAuditTrigger(ctx context.Context, schema, table string) error
	ReadPendingChanges(ctx context.Context, schema, table string) ([]ChangeRow, error)
	ClearPendingChanges(ctx context.Context, schema, table string) error

	Close() error
}

// runner is the subset of *sql.DB/*sql.Tx this package needs; both
// satisfy it, which lets sqlEngine wrap either transparently.
type runner interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func quoteIdent(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func qualify(schema, table string) string {
	return quoteIdent(schema) + "." + quoteIdent(table)
}

// runShape is the single internal dispatch point every public Query*
// method funnels through, matching the source's shape-polymorphic
// run_sql but keeping that polymorphism private.
func runShape(ctx context.Context, r runner, s shape, sqlText string, args ...any) (any, error) {
	switch s {
	case shapeOneOne:
		row := r.QueryRowContext(ctx, sqlText, args...)
		var v any
		if err := row.Scan(&v); err != nil {
			if err == sql.ErrNoRows {
				return nil, nil
			}
			return nil, apperrors.NewEngineError(sqlText, err)
		}
		return v, nil
	case shapeOneMany:
		return scanAll(ctx, r, sqlText, args...)
	case shapeManyOne:
		rows, err := scanAll(ctx, r, sqlText, args...)
		if err != nil {
			return nil, err
		}
		col := make([]any, 0, len(rows.Data))
		for _, row := range rows.Data {
			if len(row) > 0 {
				col = append(col, row[0])
			}
		}
		return col, nil
	case shapeManyMany:
		return scanAll(ctx, r, sqlText, args...)
	default:
		return nil, fmt.Errorf("engine: unknown result shape %d", s)
	}
}

func scanAll(ctx context.Context, r runner, sqlText string, args ...any) (*Rows, error) {
	rows, err := r.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, apperrors.NewEngineError(sqlText, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, apperrors.NewEngineError(sqlText, err)
	}

	out := &Rows{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, apperrors.NewEngineError(sqlText, err)
		}
		out.Data = append(out.Data, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewEngineError(sqlText, err)
	}
	return out, nil
}

func queryRowHelper(ctx context.Context, r runner, sqlText string, args ...any) (Row, error) {
	v, err := runShape(ctx, r, shapeOneMany, sqlText, args...)
	if err != nil {
		return nil, err
	}
	rows := v.(*Rows)
	if len(rows.Data) == 0 {
		return nil, apperrors.NewEngineError(sqlText, sql.ErrNoRows)
	}
	return Row(rows.Data[0]), nil
}
