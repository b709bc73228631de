package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cxz/splitgraph/internal/engine"
)

// SetTableEntry writes or replaces the (image, table_name) binding.
func (s *Store) SetTableEntry(ctx context.Context, entry TableEntry) error {
	schemaJSON, err := json.Marshal(entry.Columns)
	if err != nil {
		return err
	}
	objectIDsJSON, err := json.Marshal(entry.ObjectIDs)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf(
		"REPLACE INTO %s (repository, image_hash, table_name, schema_json, object_ids) VALUES (?, ?, ?, ?, ?)",
		q("tables"))
	return s.eng.RunBatch(ctx, stmt, [][]any{{
		entry.Repository.Schema(), entry.ImageHash, entry.TableName, string(schemaJSON), string(objectIDsJSON),
	}})
}

// GetTableEntry fetches one table's entry within an image.
func (s *Store) GetTableEntry(ctx context.Context, repo Repository, imageHash, tableName string) (*TableEntry, error) {
	row, err := s.eng.QueryRow(ctx,
		fmt.Sprintf("SELECT schema_json, object_ids FROM %s WHERE repository = ? AND image_hash = ? AND table_name = ?", q("tables")),
		repo.Schema(), imageHash, tableName)
	if err != nil {
		return nil, err
	}
	entry := &TableEntry{Repository: repo, ImageHash: imageHash, TableName: tableName}
	if err := json.Unmarshal([]byte(asString(row[0])), &entry.Columns); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(asString(row[1])), &entry.ObjectIDs); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListTableEntries returns every table entry bound to an image.
func (s *Store) ListTableEntries(ctx context.Context, repo Repository, imageHash string) ([]TableEntry, error) {
	rows, err := s.eng.QueryAll(ctx,
		fmt.Sprintf("SELECT table_name, schema_json, object_ids FROM %s WHERE repository = ? AND image_hash = ?", q("tables")),
		repo.Schema(), imageHash)
	if err != nil {
		return nil, err
	}
	out := make([]TableEntry, 0, len(rows.Data))
	for _, r := range rows.Data {
		entry := TableEntry{Repository: repo, ImageHash: imageHash, TableName: asString(r[0])}
		if err := json.Unmarshal([]byte(asString(r[1])), &entry.Columns); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(asString(r[2])), &entry.ObjectIDs); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// AllLiveObjectIDs walks every table entry in every image of repo and
// returns the set of referenced object ids, the input `cleanup` needs
// to determine what can be physically deleted (spec.md §4.3).
func (s *Store) AllLiveObjectIDs(ctx context.Context, repo Repository) (map[string]bool, error) {
	col, err := s.eng.QueryColumn(ctx, fmt.Sprintf("SELECT object_ids FROM %s WHERE repository = ?", q("tables")), repo.Schema())
	if err != nil {
		return nil, err
	}
	live := make(map[string]bool)
	for _, v := range col {
		var ids []string
		if err := json.Unmarshal([]byte(asString(v)), &ids); err != nil {
			return nil, err
		}
		for _, id := range ids {
			live[id] = true
		}
	}
	return live, nil
}

// ColumnsEqual reports whether two column schemas are identical,
// ordinal-for-ordinal; used by commit to decide whether an unchanged
// table chain can be reused verbatim.
func ColumnsEqual(a, b []engine.ColumnDef) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
