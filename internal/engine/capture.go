package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cxz/splitgraph/internal/apperrors"
)

// pendingChangesTable is the shadow table an audit trigger appends to,
// per spec.md §4.2: "a pending-changes side table keyed by (schema,
// table, pk, kind, payload, row_seq)".
func pendingChangesTable(table string) string {
	return "sgr_changes__" + table
}

func triggerName(table, event string) string {
	return "sgr_trg_" + table + "_" + event
}

// InstallAuditTrigger creates the pending-changes shadow table and the
// three row-level triggers (insert/update/delete) that append to it.
// row_seq is an AUTO_INCREMENT column, which gives the "monotonically
// assigned within a session" guarantee spec.md §4.2 requires.
func (e *sqlEngine) InstallAuditTrigger(ctx context.Context, schema, table string, pk []string) error {
	shadow := pendingChangesTable(table)
	createShadow := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			row_seq BIGINT AUTO_INCREMENT PRIMARY KEY,
			pk_json TEXT NOT NULL,
			kind VARCHAR(8) NOT NULL,
			payload_json TEXT
		)`, qualify(schema, shadow))
	if _, err := e.run.ExecContext(ctx, createShadow); err != nil {
		return apperrors.NewEngineError(createShadow, err)
	}

	cols, err := e.tableColumns(ctx, schema, table)
	if err != nil {
		return err
	}

	pkJSON := jsonObjectExpr(pk, "NEW")
	newPayloadJSON := jsonObjectExpr(cols, "NEW")
	oldPKJSON := jsonObjectExpr(pk, "OLD")

	insertTrg := fmt.Sprintf(
		`CREATE TRIGGER %s AFTER INSERT ON %s FOR EACH ROW
			INSERT INTO %s (pk_json, kind, payload_json) VALUES (%s, 'insert', %s)`,
		quoteIdent(triggerName(table, "ins")), qualify(schema, table), qualify(schema, shadow), pkJSON, newPayloadJSON)

	updateTrg := fmt.Sprintf(
		`CREATE TRIGGER %s AFTER UPDATE ON %s FOR EACH ROW
			INSERT INTO %s (pk_json, kind, payload_json) VALUES (%s, 'update', %s)`,
		quoteIdent(triggerName(table, "upd")), qualify(schema, table), qualify(schema, shadow), pkJSON, newPayloadJSON)

	deleteTrg := fmt.Sprintf(
		`CREATE TRIGGER %s AFTER DELETE ON %s FOR EACH ROW
			INSERT INTO %s (pk_json, kind, payload_json) VALUES (%s, 'delete', NULL)`,
		quoteIdent(triggerName(table, "del")), qualify(schema, table), qualify(schema, shadow), oldPKJSON)

	for _, stmt := range []string{insertTrg, updateTrg, deleteTrg} {
		if _, err := e.run.ExecContext(ctx, stmt); err != nil {
			return apperrors.NewEngineError(stmt, err)
		}
	}
	return nil
}

// UninstallAuditTrigger drops the triggers and shadow table installed by
// InstallAuditTrigger.
func (e *sqlEngine) UninstallAuditTrigger(ctx context.Context, schema, table string) error {
	for _, event := range []string{"ins", "upd", "del"} {
		stmt := fmt.Sprintf("DROP TRIGGER IF EXISTS %s", quoteIdent(triggerName(table, event)))
		if _, err := e.run.ExecContext(ctx, stmt); err != nil {
			return apperrors.NewEngineError(stmt, err)
		}
	}
	stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s", qualify(schema, pendingChangesTable(table)))
	_, err := e.run.ExecContext(ctx, stmt)
	return apperrors.NewEngineError(stmt, err)
}

// ReadPendingChanges reads the shadow table ordered by row_seq and
// collapses multiple changes to the same primary key per spec.md §4.2:
//   insert -> delete           cancels
//   insert -> update           collapses to insert with final payload
//   update -> delete           yields delete
//   update -> update           keeps the last payload
func (e *sqlEngine) ReadPendingChanges(ctx context.Context, schema, table string) ([]ChangeRow, error) {
	stmt := fmt.Sprintf("SELECT row_seq, pk_json, kind, payload_json FROM %s ORDER BY row_seq",
		qualify(schema, pendingChangesTable(table)))
	rows, err := e.QueryAll(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return collapseChangeRows(rows)
}

// collapseChangeRows applies the collapsing rules to raw (row_seq,
// pk_json, kind, payload_json) tuples. Split out from ReadPendingChanges
// so the collapsing logic can be unit tested without a database.
func collapseChangeRows(rows *Rows) ([]ChangeRow, error) {
	order := make([]string, 0, len(rows.Data))
	collapsed := make(map[string]*ChangeRow, len(rows.Data))
	listed := make(map[string]bool, len(rows.Data))
	for _, r := range rows.Data {
		rowSeq := toInt64(r[0])
		var pk map[string]any
		if err := json.Unmarshal([]byte(asString(r[1])), &pk); err != nil {
			return nil, fmt.Errorf("%w: malformed pk_json at row_seq %d: %v", apperrors.ErrObjectCorruption, rowSeq, err)
		}
		kind := ChangeKind(asString(r[2]))
		var payload map[string]any
		if r[3] != nil {
			if err := json.Unmarshal([]byte(asString(r[3])), &payload); err != nil {
				return nil, fmt.Errorf("%w: malformed payload_json at row_seq %d: %v", apperrors.ErrObjectCorruption, rowSeq, err)
			}
		}

		key := pkKey(pk)
		existing, seen := collapsed[key]
		if !seen {
			// An insert→delete pair removes the entry but leaves its key in
			// order; a later change to the same key must not list it twice.
			if !listed[key] {
				listed[key] = true
				order = append(order, key)
			}
			collapsed[key] = &ChangeRow{PK: pk, Kind: kind, Payload: payload, RowSeq: rowSeq}
			continue
		}
		switch {
		case existing.Kind == ChangeInsert && kind == ChangeDelete:
			delete(collapsed, key)
		case existing.Kind == ChangeInsert && kind == ChangeUpdate:
			existing.Payload = payload
		case existing.Kind == ChangeUpdate && kind == ChangeDelete:
			existing.Kind = ChangeDelete
			existing.Payload = nil
			existing.RowSeq = rowSeq
		case existing.Kind == ChangeUpdate && kind == ChangeUpdate:
			existing.Payload = payload
			existing.RowSeq = rowSeq
		default:
			existing.Kind = kind
			existing.Payload = payload
			existing.RowSeq = rowSeq
		}
	}

	out := make([]ChangeRow, 0, len(order))
	for _, key := range order {
		if c, ok := collapsed[key]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

// ClearPendingChanges truncates the shadow table. It must only ever be
// called as part of the transaction that installs the new image
// (spec.md §4.2/§5), a discipline enforced by the repository package,
// not this one.
func (e *sqlEngine) ClearPendingChanges(ctx context.Context, schema, table string) error {
	stmt := fmt.Sprintf("DELETE FROM %s", qualify(schema, pendingChangesTable(table)))
	_, err := e.run.ExecContext(ctx, stmt)
	return apperrors.NewEngineError(stmt, err)
}

func (e *sqlEngine) tableColumns(ctx context.Context, schema, table string) ([]string, error) {
	col, err := e.QueryColumn(ctx, `SELECT column_name FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ? ORDER BY ordinal_position`, schema, table)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(col))
	for i, v := range col {
		out[i] = asString(v)
	}
	return out, nil
}

func jsonObjectExpr(cols []string, alias string) string {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		parts = append(parts, fmt.Sprintf("'%s', %s.%s", c, alias, quoteIdent(c)))
	}
	return "JSON_OBJECT(" + strings.Join(parts, ", ") + ")"
}

func pkKey(pk map[string]any) string {
	b, _ := json.Marshal(pk)
	return string(b)
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}
