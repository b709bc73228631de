package repository

import (
	"context"
	"encoding/json"

	"github.com/cxz/splitgraph/internal/catalog"
	"github.com/cxz/splitgraph/internal/engine"
	"github.com/cxz/splitgraph/internal/objects"
)

// TableDiff summarizes the row-level change between two images for one
// table.
type TableDiff struct {
	TableName string
	Added     int
	Removed   int
	Changes   []engine.ChangeRow // populated only when row-level detail is requested
}

// Diff compares the table entries of two images, per spec.md §4.4. An
// empty fromRef means HEAD. When toRef is "", it reports the pending
// changes captured in the live schema since HEAD; fromRef is resolved
// but those changes are not compared against it. Tables whose object
// chains are identical are skipped; every other table is compared by
// materializing both sides and matching rows by primary key, so DIFF
// objects are never read directly as the change set.
func (a *API) Diff(ctx context.Context, repo catalog.Repository, fromRef, toRef string, detail bool) ([]TableDiff, error) {
	if fromRef == "" {
		fromRef = catalog.ReservedTagHead
	}
	fromHash, err := a.ResolveImage(ctx, repo, fromRef)
	if err != nil {
		return nil, err
	}
	fromEntries, err := a.Catalog.ListTableEntries(ctx, repo, fromHash)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]catalog.TableEntry, len(fromEntries))
	for _, e := range fromEntries {
		byName[e.TableName] = e
	}

	if toRef == "" {
		return a.diffAgainstPending(ctx, repo, byName, detail)
	}

	toHash, err := a.ResolveImage(ctx, repo, toRef)
	if err != nil {
		return nil, err
	}
	toEntries, err := a.Catalog.ListTableEntries(ctx, repo, toHash)
	if err != nil {
		return nil, err
	}

	var out []TableDiff
	seen := make(map[string]bool)
	for _, to := range toEntries {
		seen[to.TableName] = true
		from, existed := byName[to.TableName]
		if !existed {
			td, err := a.diffFullTable(ctx, nil, to.ObjectIDs, to.TableName, detail)
			if err != nil {
				return nil, err
			}
			out = append(out, td)
			continue
		}
		if sameChain(from.ObjectIDs, to.ObjectIDs) {
			continue
		}
		td, err := a.diffFullTable(ctx, from.ObjectIDs, to.ObjectIDs, to.TableName, detail)
		if err != nil {
			return nil, err
		}
		out = append(out, td)
	}
	for _, from := range fromEntries {
		if !seen[from.TableName] {
			td, err := a.diffFullTable(ctx, from.ObjectIDs, nil, from.TableName, detail)
			if err != nil {
				return nil, err
			}
			out = append(out, td)
		}
	}
	return out, nil
}

func (a *API) diffAgainstPending(ctx context.Context, repo catalog.Repository, byName map[string]catalog.TableEntry, detail bool) ([]TableDiff, error) {
	tables, err := a.listDataTables(ctx, repo)
	if err != nil {
		return nil, err
	}
	var out []TableDiff
	for _, table := range tables {
		changes, err := a.Engine.ReadPendingChanges(ctx, repo.Schema(), table)
		if err != nil || len(changes) == 0 {
			continue
		}
		td := TableDiff{TableName: table}
		for _, c := range changes {
			switch c.Kind {
			case engine.ChangeInsert:
				td.Added++
			case engine.ChangeDelete:
				td.Removed++
			case engine.ChangeUpdate:
				td.Added++
				td.Removed++
			}
		}
		if detail {
			td.Changes = changes
		}
		out = append(out, td)
	}
	return out, nil
}

// diffFullTable materializes both chains (a nil chain means the table
// does not exist on that side) and compares row sets by primary key.
func (a *API) diffFullTable(ctx context.Context, fromChain, toChain []string, table string, detail bool) (TableDiff, error) {
	if err := a.ensureObjectsLocal(ctx, fromChain); err != nil {
		return TableDiff{}, err
	}
	if err := a.ensureObjectsLocal(ctx, toChain); err != nil {
		return TableDiff{}, err
	}
	fromRows, err := a.Objects.Materialize(ctx, fromChain)
	if err != nil {
		return TableDiff{}, err
	}
	toRows, err := a.Objects.Materialize(ctx, toChain)
	if err != nil {
		return TableDiff{}, err
	}
	fromMap := objects.ToMap(fromRows)
	toMap := objects.ToMap(toRows)

	td := TableDiff{TableName: table}
	for key, row := range toMap {
		if old, existed := fromMap[key]; !existed {
			td.Added++
			if detail {
				td.Changes = append(td.Changes, engine.ChangeRow{PK: row.PK, Kind: engine.ChangeInsert, Payload: row.Payload})
			}
		} else if !payloadEqual(old.Payload, row.Payload) {
			td.Added++
			td.Removed++
			if detail {
				td.Changes = append(td.Changes, engine.ChangeRow{PK: row.PK, Kind: engine.ChangeUpdate, Payload: row.Payload})
			}
		}
	}
	for key, row := range fromMap {
		if _, existed := toMap[key]; !existed {
			td.Removed++
			if detail {
				td.Changes = append(td.Changes, engine.ChangeRow{PK: row.PK, Kind: engine.ChangeDelete})
			}
		}
	}
	return td, nil
}

func payloadEqual(a, b map[string]any) bool {
	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	return string(ab) == string(bb)
}

func sameChain(a, b []string) bool {
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
