// Package repository implements the repository/image API of spec.md
// §4.4: init, commit, checkout, diff, rm, prune, tag, and reference
// resolution, built on top of the engine adapter, the object store, and
// the metadata catalog.
package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/cxz/splitgraph/internal/apperrors"
	"github.com/cxz/splitgraph/internal/catalog"
	"github.com/cxz/splitgraph/internal/engine"
	"github.com/cxz/splitgraph/internal/mount"
	"github.com/cxz/splitgraph/internal/objects"
)

// shadowPrefix lets the repository package recognize
// and skip the engine adapter's own bookkeeping tables when it walks a
// schema's data tables.
const shadowPrefix = "sgr_changes__"

// ObjectFetcher pulls object bodies the local store lacks from wherever
// a prior lazily-downloaded clone got them from. internal/sync.Syncer
// satisfies this without repository needing to import it directly.
type ObjectFetcher interface {
	FetchObjects(ctx context.Context, ids []string) error
}

// API is the repository/image operations surface, holding the three
// collaborators every operation composes: the engine adapter, the
// content-addressed object store, and the metadata catalog. Mounts is
// optional: when set, Commit and Checkout consult it to refuse
// versioning a schema that is currently a live foreign mount. Fetcher
// is optional: when set, Checkout and Diff use it to pull any object bodies a
// clone(download_all=false) deferred, before materializing a table.
type API struct {
	Engine  engine.Engine
	Catalog *catalog.Store
	Objects *objects.Store
	Mounts  *mount.Registry
	Fetcher ObjectFetcher
}

// New wires an API to its three collaborators.
func New(eng engine.Engine, cat *catalog.Store, obj *objects.Store) *API {
	return &API{Engine: eng, Catalog: cat, Objects: obj}
}

// rejectForeignSchema refuses an operation against repo's schema when
// it is currently a live foreign mount, per spec.md §4.7: a mounted
// schema "cannot be committed into — no audit trigger on foreign
// tables".
func (a *API) rejectForeignSchema(repo catalog.Repository) error {
	if a.Mounts != nil && a.Mounts.IsMounted(repo.Schema()) {
		return fmt.Errorf("%s: %w", repo.Schema(), apperrors.ErrForeignSchema)
	}
	return nil
}

// Init registers a new repository: a catalog entry with a root image
// and a null HEAD, and the backing data schema it will check images out
// into.
func (a *API) Init(ctx context.Context, repo catalog.Repository) error {
	if err := a.Engine.CreateSchema(ctx, repo.Schema()); err != nil {
		return err
	}
	return a.Catalog.CreateRepository(ctx, repo)
}

// ResolveImage delegates to the catalog's tag/hash-prefix resolution.
func (a *API) ResolveImage(ctx context.Context, repo catalog.Repository, ref string) (string, error) {
	return a.Catalog.ResolveImage(ctx, repo, ref)
}

// Log walks an image's ancestry from ref back to the root, the shape
// `sgr log` needs.
func (a *API) Log(ctx context.Context, repo catalog.Repository, ref string) ([]catalog.Image, error) {
	hash, err := a.ResolveImage(ctx, repo, ref)
	if err != nil {
		return nil, err
	}
	var out []catalog.Image
	for hash != "" && hash != catalog.RootImage {
		img, err := a.Catalog.GetImage(ctx, repo, hash)
		if err != nil {
			return nil, err
		}
		out = append(out, *img)
		hash = img.ParentID
	}
	return out, nil
}

// Show returns the table entries recorded for an image, the data `sgr
// show` presents.
func (a *API) Show(ctx context.Context, repo catalog.Repository, ref string) ([]catalog.TableEntry, error) {
	hash, err := a.ResolveImage(ctx, repo, ref)
	if err != nil {
		return nil, err
	}
	return a.Catalog.ListTableEntries(ctx, repo, hash)
}

// listDataTables enumerates the physical tables in repo's schema,
// excluding the engine adapter's pending-changes shadow tables.
func (a *API) listDataTables(ctx context.Context, repo catalog.Repository) ([]string, error) {
	col, err := a.Engine.QueryColumn(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = ?", repo.Schema())
	if err != nil {
		return nil, err
	}
	var out []string
	for _, v := range col {
		name := fmt.Sprintf("%v", v)
		if strings.HasPrefix(name, shadowPrefix) {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// primaryKeyNames extracts the primary-key column names, in ordinal
// order, from a column schema.
func primaryKeyNames(cols []engine.ColumnDef) []string {
	ordered := make([]engine.ColumnDef, len(cols))
	copy(ordered, cols)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Ordinal < ordered[j].Ordinal })
	var out []string
	for _, c := range ordered {
		if c.PrimaryKey {
			out = append(out, c.Name)
		}
	}
	return out
}

// snapshotTable reads every row of a live table and splits each row
// into its primary-key and full-payload parts, the shape objects.Store
// needs for WriteSnap.
func (a *API) snapshotTable(ctx context.Context, schema, table string, cols []engine.ColumnDef) ([]objects.TableRow, error) {
	ordered := make([]engine.ColumnDef, len(cols))
	copy(ordered, cols)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Ordinal < ordered[j].Ordinal })

	names := make([]string, len(ordered))
	for i, c := range ordered {
		names[i] = c.Name
	}
	stmt := fmt.Sprintf("SELECT %s FROM %s", quoteList(names), qualify(schema, table))
	rows, err := a.Engine.QueryAll(ctx, stmt)
	if err != nil {
		return nil, err
	}

	out := make([]objects.TableRow, 0, len(rows.Data))
	for _, r := range rows.Data {
		payload := make(map[string]any, len(names))
		pk := make(map[string]any)
		for i, c := range ordered {
			payload[c.Name] = r[i]
			if c.PrimaryKey {
				pk[c.Name] = r[i]
			}
		}
		out = append(out, objects.TableRow{PK: pk, Payload: payload})
	}
	return out, nil
}

// loadTable materializes a table entry's chain and rebuilds it as a
// live table in schema, the inverse of snapshotTable, used by checkout.
func (a *API) loadTable(ctx context.Context, schema string, entry catalog.TableEntry) error {
	if err := a.Engine.CreateTable(ctx, schema, entry.TableName, entry.Columns); err != nil {
		return err
	}
	if err := a.ensureObjectsLocal(ctx, entry.ObjectIDs); err != nil {
		return err
	}
	rows, err := a.Objects.Materialize(ctx, entry.ObjectIDs)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	ordered := make([]engine.ColumnDef, len(entry.Columns))
	copy(ordered, entry.Columns)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Ordinal < ordered[j].Ordinal })
	names := make([]string, len(ordered))
	for i, c := range ordered {
		names[i] = c.Name
	}
	placeholders := strings.TrimRight(strings.Repeat("?, ", len(names)), ", ")
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", qualify(schema, entry.TableName), quoteList(names), placeholders)

	argRows := make([][]any, 0, len(rows))
	for _, r := range rows {
		row := make([]any, len(names))
		for i, name := range names {
			row[i] = r.Payload[name]
		}
		argRows = append(argRows, row)
	}
	return a.Engine.RunBatch(ctx, stmt, argRows)
}

// ensureObjectsLocal pulls any of ids not yet in the local object store
// via Fetcher, the lazy-download path a checkout takes after a
// clone(download_all=false) (spec.md §4.6/§8 scenario S4). A nil
// Fetcher is a no-op: materializing will simply fail with whatever
// error a missing object produces, same as before this existed.
func (a *API) ensureObjectsLocal(ctx context.Context, ids []string) error {
	if a.Fetcher == nil || len(ids) == 0 {
		return nil
	}
	var missing []string
	for _, id := range ids {
		exists, err := a.Objects.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return a.Fetcher.FetchObjects(ctx, missing)
}

// computeImageHash implements spec.md §4.4's commit target_hash default:
// hash(parent_hash || all_new_object_ids_sorted || comment). newObjectIDs
// is the set of objects actually written by this commit — an unchanged
// table's reused chain contributes nothing, so a commit that changes
// nothing still produces a stable, reproducible hash when comment is
// also held fixed.
func computeImageHash(parent string, newObjectIDs []string, comment string) string {
	sorted := make([]string, len(newObjectIDs))
	copy(sorted, newObjectIDs)
	sort.Strings(sorted)

	h := sha256.New()
	fmt.Fprintf(h, "parent:%s;objects:%s;comment:%s;", parent, strings.Join(sorted, ","), comment)
	return hex.EncodeToString(h.Sum(nil))
}

// tablePlan is the computed (name, columns, chain) triple for one table
// about to be committed, before the new image hash it will be filed
// under is known. newObjectID is the object this commit actually wrote
// for the table (empty when the table's chain was reused unchanged).
type tablePlan struct {
	name       string
	columns    []engine.ColumnDef
	chain      []string
	newObjectID string
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "`" + strings.ReplaceAll(n, "`", "``") + "`"
	}
	return strings.Join(quoted, ", ")
}

func qualify(schema, table string) string {
	return "`" + schema + "`.`" + table + "`"
}
