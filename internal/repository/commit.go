package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cxz/splitgraph/internal/apperrors"
	"github.com/cxz/splitgraph/internal/catalog"
	"github.com/cxz/splitgraph/internal/engine"
)

// CommitOptions carries the user-supplied metadata for a commit.
// TargetHash mirrors spec.md §4.4's optional commit(repo, target_hash?,
// ...) parameter: when set, it overrides the default
// hash(parent || new_object_ids || comment) derivation, which the
// Splitfile executor needs so a SQL/IMPORT step lands on the exact
// hash its own cache-key formula predicts.
type CommitOptions struct {
	Comment    string
	TargetHash string
	// ForceSnap mirrors the CLI's `-s`: every table is written as a
	// fresh SNAP regardless of pending-change volume, instead of the
	// usual DIFF-append-with-compaction path.
	ForceSnap bool
}

// Commit snapshots the live state of every table in repo's checked-out
// schema into a new image, per spec.md §4.4/§4.2:
//
//   - a table with no prior entry (or no audit trigger yet) is
//     captured as a fresh SNAP and the trigger is installed for the
//     next commit;
//   - a tracked table with no pending changes and an unchanged schema
//     reuses its existing object chain verbatim;
//   - a tracked table with pending changes gets a new DIFF appended to
//     its chain, compacted into a fresh SNAP once the chain exceeds
//     the store's CompactionThreshold;
//
// and atomically records the new image, its table entries, and moves
// HEAD, clearing pending changes in the same transaction. Fails with
// ErrNoImageCheckedOut if repo has no image checked out (a freshly
// init'd repository starts with HEAD unset; check out the root image
// first).
func (a *API) Commit(ctx context.Context, repo catalog.Repository, opts CommitOptions) (string, error) {
	if err := a.rejectForeignSchema(repo); err != nil {
		return "", err
	}

	unlock := catalog.Lock(repo)
	defer unlock()

	parent, err := a.Catalog.GetTag(ctx, repo, catalog.ReservedTagHead)
	if err != nil {
		return "", err
	}
	if parent == "" {
		return "", fmt.Errorf("%s: %w", repo.Schema(), apperrors.ErrNoImageCheckedOut)
	}

	tables, err := a.listDataTables(ctx, repo)
	if err != nil {
		return "", err
	}

	plan := make([]tablePlan, 0, len(tables))
	for _, table := range tables {
		p, err := a.planTable(ctx, repo, parent, table, opts.ForceSnap)
		if err != nil {
			return "", err
		}
		plan = append(plan, p)
	}

	var newObjectIDs []string
	for _, p := range plan {
		if p.newObjectID != "" {
			newObjectIDs = append(newObjectIDs, p.newObjectID)
		}
	}
	newHash := opts.TargetHash
	if newHash == "" {
		newHash = computeImageHash(parent, newObjectIDs, opts.Comment)
	}
	now := time.Now().UTC()

	err = a.Engine.RunInTransaction(ctx, func(tx engine.Engine) error {
		catTx := a.Catalog.WithEngine(tx)
		if err := catTx.InsertImage(ctx, catalog.Image{
			Repository: repo, ImageHash: newHash, ParentID: parent, CreatedAt: now, Comment: opts.Comment,
		}); err != nil {
			return err
		}
		for _, p := range plan {
			if err := catTx.SetTableEntry(ctx, catalog.TableEntry{
				Repository: repo, ImageHash: newHash, TableName: p.name, Columns: p.columns, ObjectIDs: p.chain,
			}); err != nil {
				return err
			}
			if err := tx.ClearPendingChanges(ctx, repo.Schema(), p.name); err != nil {
				return err
			}
		}
		return catTx.SetTag(ctx, repo, catalog.ReservedTagHead, newHash)
	})
	if err != nil {
		return "", err
	}
	return newHash, nil
}

// planTable decides how one table will be represented in the new
// image, writing any new SNAP/DIFF objects it needs along the way.
// Object writes are content-addressed and idempotent, so doing them
// ahead of the commit's metadata transaction is safe even if that
// transaction later retries.
func (a *API) planTable(ctx context.Context, repo catalog.Repository, parent, table string, forceSnap bool) (tablePlan, error) {
	cols, err := a.Engine.TableColumns(ctx, repo.Schema(), table)
	if err != nil {
		return tablePlan{}, err
	}

	prevEntry, prevErr := a.Catalog.GetTableEntry(ctx, repo, parent, table)
	changes, changesErr := a.Engine.ReadPendingChanges(ctx, repo.Schema(), table)
	untracked := prevErr != nil || changesErr != nil

	if untracked {
		rows, err := a.snapshotTable(ctx, repo.Schema(), table, cols)
		if err != nil {
			return tablePlan{}, err
		}
		snapID, err := a.Objects.WriteSnap(ctx, cols, rows)
		if err != nil {
			return tablePlan{}, err
		}
		if err := a.Engine.InstallAuditTrigger(ctx, repo.Schema(), table, primaryKeyNames(cols)); err != nil {
			return tablePlan{}, err
		}
		return tablePlan{name: table, columns: cols, chain: []string{snapID}, newObjectID: snapID}, nil
	}

	if !forceSnap && len(changes) == 0 && catalog.ColumnsEqual(cols, prevEntry.Columns) {
		return tablePlan{name: table, columns: cols, chain: prevEntry.ObjectIDs}, nil
	}

	if forceSnap {
		rows, err := a.snapshotTable(ctx, repo.Schema(), table, cols)
		if err != nil {
			return tablePlan{}, err
		}
		snapID, err := a.Objects.WriteSnap(ctx, cols, rows)
		if err != nil {
			return tablePlan{}, err
		}
		return tablePlan{name: table, columns: cols, chain: []string{snapID}, newObjectID: snapID}, nil
	}

	parentObj := ""
	if len(prevEntry.ObjectIDs) > 0 {
		parentObj = prevEntry.ObjectIDs[len(prevEntry.ObjectIDs)-1]
	}
	diffID, err := a.Objects.WriteDiff(ctx, parentObj, changes)
	if err != nil {
		return tablePlan{}, err
	}
	chain := append(append([]string{}, prevEntry.ObjectIDs...), diffID)
	newObjectID := diffID

	if len(chain) > a.Objects.CompactionThreshold {
		rows, err := a.Objects.Materialize(ctx, chain)
		if err != nil {
			return tablePlan{}, err
		}
		snapID, err := a.Objects.WriteSnap(ctx, cols, rows)
		if err != nil {
			return tablePlan{}, err
		}
		chain = []string{snapID}
		newObjectID = snapID
	}
	return tablePlan{name: table, columns: cols, chain: chain, newObjectID: newObjectID}, nil
}
