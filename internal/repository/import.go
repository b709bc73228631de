package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/cxz/splitgraph/internal/catalog"
	"github.com/cxz/splitgraph/internal/engine"
	"github.com/cxz/splitgraph/internal/objects"
)

// ImportOptions describes one `sgr import`/Splitfile IMPORT invocation:
// either a straight table import from SourceRef, or a query import
// whose Query, when non-empty, takes precedence over TableName. A
// query import runs Query verbatim on the engine without switching to
// the source repository's schema; it reads the live tables the query
// names, so the source image must already be checked out there.
type ImportOptions struct {
	SourceRepo catalog.Repository
	SourceRef  string
	TableName  string // ignored if Query is set
	Query      string
	TargetName string
}

// Import binds a table (or the result of a query) from another
// repository's image into targetRepo's checked-out schema, per
// spec.md §4.4/§4.5, and returns the target hash the caller should
// pass as CommitOptions.TargetHash to land the new image: Import only
// stages the table into the live schema, it does not create an image
// itself, since a single Splitfile IMPORT step may import several
// tables that must all land in one commit.
//
// A plain table import reuses the source table's object chain
// directly — no new objects are written, since the source rows are
// already content-addressed. A query import executes the query
// against the already-checked-out source schema and snapshots the
// result as a fresh SNAP.
func (a *API) Import(ctx context.Context, targetRepo catalog.Repository, opts ImportOptions) (string, error) {
	sourceHash, err := a.ResolveImage(ctx, opts.SourceRepo, opts.SourceRef)
	if err != nil {
		return "", err
	}

	if opts.Query == "" {
		entry, err := a.Catalog.GetTableEntry(ctx, opts.SourceRepo, sourceHash, opts.TableName)
		if err != nil {
			return "", err
		}
		if err := a.loadTable(ctx, targetRepo.Schema(), catalog.TableEntry{
			TableName: opts.TargetName, Columns: entry.Columns, ObjectIDs: entry.ObjectIDs,
		}); err != nil {
			return "", err
		}
		return ImportTargetHash(sourceHash, opts.TableName, opts.TargetName), nil
	}

	rows, err := a.Engine.QueryAll(ctx, opts.Query)
	if err != nil {
		return "", err
	}
	cols := make([]engine.ColumnDef, len(rows.Columns))
	for i, name := range rows.Columns {
		cols[i] = engine.ColumnDef{Ordinal: i + 1, Name: name}
	}
	tableRows := make([]objects.TableRow, 0, len(rows.Data))
	for i, r := range rows.Data {
		payload := make(map[string]any, len(cols))
		for j, c := range cols {
			payload[c.Name] = r[j]
		}
		tableRows = append(tableRows, objects.TableRow{PK: map[string]any{"_row": i}, Payload: payload})
	}

	snapID, err := a.Objects.WriteSnap(ctx, cols, tableRows)
	if err != nil {
		return "", err
	}
	if err := a.loadTable(ctx, targetRepo.Schema(), catalog.TableEntry{
		TableName: opts.TargetName, Columns: cols, ObjectIDs: []string{snapID},
	}); err != nil {
		return "", err
	}

	return ImportTargetHash(sourceHash, opts.Query, opts.TargetName), nil
}

// ImportTargetHash resolves the query-import "Open Question" in
// spec.md §9: a query import's cache key is
// H(parent || H(canonical_query) || H(alias)). Import returns it for
// `sgr import` to commit under; the Splitfile executor keys its IMPORT
// cache with its own importTargetHash instead.
func ImportTargetHash(parent, canonicalQuery, alias string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s", parent, canonicalQueryHash(canonicalQuery), canonicalQueryHash(alias))
	return hex.EncodeToString(h.Sum(nil))
}

func canonicalQueryHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
