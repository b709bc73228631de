package repository

import (
	"context"
	"fmt"

	"github.com/cxz/splitgraph/internal/apperrors"
	"github.com/cxz/splitgraph/internal/catalog"
)

// UncommittedChanges reports whether the live schema has state that a
// checkout would discard: pending changes on a tracked table, or a
// table not recorded in the currently checked-out image at all.
func (a *API) UncommittedChanges(ctx context.Context, repo catalog.Repository) (bool, error) {
	head, err := a.Catalog.GetTag(ctx, repo, catalog.ReservedTagHead)
	if err != nil {
		return false, err
	}
	tables, err := a.listDataTables(ctx, repo)
	if err != nil {
		return false, err
	}
	for _, table := range tables {
		if head == "" {
			return true, nil
		}
		if _, err := a.Catalog.GetTableEntry(ctx, repo, head, table); err != nil {
			return true, nil // table not recorded in HEAD: new, uncommitted
		}
		changes, err := a.Engine.ReadPendingChanges(ctx, repo.Schema(), table)
		if err != nil {
			return true, nil // no shadow table yet: untracked, uncommitted
		}
		if len(changes) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// Checkout replaces repo's live schema contents with the materialized
// tables of the image ref resolves to and moves HEAD there, per
// spec.md §4.4. It refuses to discard uncommitted changes unless force
// is set.
func (a *API) Checkout(ctx context.Context, repo catalog.Repository, ref string, force bool) (string, error) {
	if err := a.rejectForeignSchema(repo); err != nil {
		return "", err
	}

	unlock := catalog.Lock(repo)
	defer unlock()

	if !force {
		dirty, err := a.UncommittedChanges(ctx, repo)
		if err != nil {
			return "", err
		}
		if dirty {
			return "", apperrors.ErrUncommittedChanges
		}
	}

	hash, err := a.ResolveImage(ctx, repo, ref)
	if err != nil {
		return "", err
	}

	if err := a.clearWorkingTables(ctx, repo); err != nil {
		return "", err
	}

	entries, err := a.Catalog.ListTableEntries(ctx, repo, hash)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if err := a.loadTable(ctx, repo.Schema(), entry); err != nil {
			return "", err
		}
		if err := a.Engine.InstallAuditTrigger(ctx, repo.Schema(), entry.TableName, primaryKeyNames(entry.Columns)); err != nil {
			return "", err
		}
	}

	if err := a.Catalog.SetTag(ctx, repo, catalog.ReservedTagHead, hash); err != nil {
		return "", err
	}
	return hash, nil
}

// Uncheckout drops the live tables of repo's working copy and clears
// HEAD, leaving the repository with no checked-out image.
func (a *API) Uncheckout(ctx context.Context, repo catalog.Repository, force bool) error {
	unlock := catalog.Lock(repo)
	defer unlock()

	if !force {
		dirty, err := a.UncommittedChanges(ctx, repo)
		if err != nil {
			return err
		}
		if dirty {
			return apperrors.ErrUncommittedChanges
		}
	}
	if err := a.clearWorkingTables(ctx, repo); err != nil {
		return err
	}
	return a.Catalog.SetTag(ctx, repo, catalog.ReservedTagHead, "")
}

// clearWorkingTables uninstalls audit triggers and drops every live
// data table in repo's schema, in preparation for loading a different
// image's tables.
func (a *API) clearWorkingTables(ctx context.Context, repo catalog.Repository) error {
	tables, err := a.listDataTables(ctx, repo)
	if err != nil {
		return err
	}
	for _, table := range tables {
		if err := a.Engine.UninstallAuditTrigger(ctx, repo.Schema(), table); err != nil {
			return err
		}
		stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s", qualify(repo.Schema(), table))
		if err := a.Engine.RunBatch(ctx, stmt, [][]any{{}}); err != nil {
			return err
		}
	}
	return nil
}
