// Package objects implements the content-addressed object store of
// spec.md §4.3: SNAP (full snapshot) and DIFF (changeset) objects,
// written and read by hash, materialized by replaying a chain.
package objects

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cxz/splitgraph/internal/apperrors"
	"github.com/cxz/splitgraph/internal/engine"
)

// Kind distinguishes a full snapshot from a changeset, per spec.md §3.
type Kind string

const (
	KindSnap Kind = "SNAP"
	KindDiff Kind = "DIFF"
)

// TableRow is one row of a materialized table: its primary-key values
// and the full column payload.
type TableRow struct {
	PK      map[string]any
	Payload map[string]any
}

// rowKey returns a canonical string for a row's primary key, used both
// to sort rows deterministically and to index a materialized table by
// primary key during DIFF application.
func rowKey(pk map[string]any) string {
	b, _ := json.Marshal(pk) // json.Marshal sorts map keys, giving a canonical encoding
	return string(b)
}

func sortedRows(rows []TableRow) []TableRow {
	out := make([]TableRow, len(rows))
	copy(out, rows)
	sort.Slice(out, func(i, j int) bool { return rowKey(out[i].PK) < rowKey(out[j].PK) })
	return out
}

func sortedChanges(changes []engine.ChangeRow) []engine.ChangeRow {
	out := make([]engine.ChangeRow, len(changes))
	copy(out, changes)
	sort.Slice(out, func(i, j int) bool { return rowKey(out[i].PK) < rowKey(out[j].PK) })
	return out
}

// HashSnap computes object_id = hash(schema_sorted || rows_sorted_by_pk),
// per spec.md §4.3 and invariant 2 of §8.
func HashSnap(columns []engine.ColumnDef, rows []TableRow) string {
	h := sha256.New()
	cols := make([]engine.ColumnDef, len(columns))
	copy(cols, columns)
	sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })
	for _, c := range cols {
		fmt.Fprintf(h, "col:%s:%s:%v;", c.Name, c.Type, c.PrimaryKey)
	}
	for _, r := range sortedRows(rows) {
		b, _ := json.Marshal(r.Payload)
		h.Write(b)
		h.Write([]byte(";"))
	}
	return "SNAP_" + hex.EncodeToString(h.Sum(nil))
}

// HashDiff computes object_id = hash(parent_id || sorted_change_rows).
func HashDiff(parentID string, changes []engine.ChangeRow) string {
	h := sha256.New()
	fmt.Fprintf(h, "parent:%s;", parentID)
	for _, c := range sortedChanges(changes) {
		pk, _ := json.Marshal(c.PK)
		payload, _ := json.Marshal(c.Payload)
		fmt.Fprintf(h, "kind:%s;pk:%s;payload:%s;", c.Kind, pk, payload)
	}
	return "DIFF_" + hex.EncodeToString(h.Sum(nil))
}

// Object is a stored content-addressed artifact: a SNAP's full row set,
// or a DIFF's changeset applying on top of ParentID.
type Object struct {
	ID       string
	Kind     Kind
	ParentID string // empty for SNAP
	Columns  []engine.ColumnDef // populated for SNAP, needed to recompute/verify its hash
	Rows     []TableRow         // populated for SNAP
	Changes  []engine.ChangeRow // populated for DIFF
}

// Apply replays a DIFF object on top of a materialized table, enforcing
// the application rules of spec.md §4.3:
//
//	insert(pk, payload) fails if pk present (corruption signal)
//	update(pk, payload) requires pk present; replaces the row
//	delete(pk)          requires pk present; removes the row
func Apply(table map[string]TableRow, diff *Object) error {
	if diff.Kind != KindDiff {
		return fmt.Errorf("objects: Apply called with non-DIFF object %s", diff.ID)
	}
	for _, c := range diff.Changes {
		key := rowKey(c.PK)
		switch c.Kind {
		case engine.ChangeInsert:
			if _, exists := table[key]; exists {
				return fmt.Errorf("%w: insert of existing pk %s in object %s", apperrors.ErrObjectCorruption, key, diff.ID)
			}
			table[key] = TableRow{PK: c.PK, Payload: c.Payload}
		case engine.ChangeUpdate:
			if _, exists := table[key]; !exists {
				return fmt.Errorf("%w: update of missing pk %s in object %s", apperrors.ErrObjectCorruption, key, diff.ID)
			}
			table[key] = TableRow{PK: c.PK, Payload: c.Payload}
		case engine.ChangeDelete:
			if _, exists := table[key]; !exists {
				return fmt.Errorf("%w: delete of missing pk %s in object %s", apperrors.ErrObjectCorruption, key, diff.ID)
			}
			delete(table, key)
		default:
			return fmt.Errorf("%w: unknown change kind %q in object %s", apperrors.ErrObjectCorruption, c.Kind, diff.ID)
		}
	}
	return nil
}

// ToMap indexes a row slice by primary key, the working representation
// materialization uses while replaying a chain.
func ToMap(rows []TableRow) map[string]TableRow {
	out := make(map[string]TableRow, len(rows))
	for _, r := range rows {
		out[rowKey(r.PK)] = r
	}
	return out
}

// FromMap flattens a working table back into a sorted row slice, used
// when a materialized table itself becomes the base for a new SNAP.
func FromMap(m map[string]TableRow) []TableRow {
	rows := make([]TableRow, 0, len(m))
	for _, r := range m {
		rows = append(rows, r)
	}
	return sortedRows(rows)
}
