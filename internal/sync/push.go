package sync

import (
	"context"
	"fmt"

	"github.com/cxz/splitgraph/internal/apperrors"
	"github.com/cxz/splitgraph/internal/catalog"
)

// Push uploads every local image the remote lacks and moves remote
// tags to match, per spec.md §4.6. It always transfers object bodies
// (there is no lazy-download analogue on the remote side: once pushed,
// the remote must be able to materialize on its own). It rejects with
// NonFastForward per spec.md §4.6's two conflict cases: a shared-hash
// image whose content disagrees (treated as corruption, since correct
// hashing makes that impossible), or a tag move the remote already has
// pointed somewhere else.
func (s *Syncer) Push(ctx context.Context, repo catalog.Repository) error {
	exists, err := s.Remote.Catalog.RepositoryExists(ctx, repo)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("push %s: %w", repo.Schema(), apperrors.ErrRepositoryNotFound)
	}

	if err := verifySharedImages(ctx, s.Local, s.Remote, repo); err != nil {
		return err
	}

	if _, err := reconcileImages(ctx, s, s.Local, s.Remote, repo, true); err != nil {
		return err
	}

	localTags, err := s.Local.Catalog.ListTags(ctx, repo)
	if err != nil {
		return err
	}
	remoteTags, err := s.Remote.Catalog.ListTags(ctx, repo)
	if err != nil {
		return err
	}
	for name, hash := range localTags {
		if name == catalog.ReservedTagHead || hash == "" {
			continue
		}
		if err := ensureNoTagConflict(remoteTags, name, hash); err != nil {
			return err
		}
		if err := s.Remote.Catalog.SetTag(ctx, repo, name, hash); err != nil {
			return err
		}
	}
	return nil
}

// verifySharedImages checks every image present on both sides agrees
// on parent and table entries, the corruption check spec.md §4.6 calls
// for before trusting a same-hash image on the remote.
func verifySharedImages(ctx context.Context, local, remote *Peer, repo catalog.Repository) error {
	localHashes, err := local.Catalog.ListImages(ctx, repo)
	if err != nil {
		return err
	}
	remoteHashes, err := remote.Catalog.ListImages(ctx, repo)
	if err != nil {
		return err
	}
	remoteSet := make(map[string]bool, len(remoteHashes))
	for _, h := range remoteHashes {
		remoteSet[h] = true
	}

	for _, hash := range localHashes {
		if !remoteSet[hash] {
			continue
		}
		localImg, err := local.Catalog.GetImage(ctx, repo, hash)
		if err != nil {
			return err
		}
		remoteImg, err := remote.Catalog.GetImage(ctx, repo, hash)
		if err != nil {
			return err
		}
		if localImg.ParentID != remoteImg.ParentID {
			return fmt.Errorf("image %s: parent mismatch between local (%s) and remote (%s): %w",
				hash, localImg.ParentID, remoteImg.ParentID, apperrors.ErrNonFastForward)
		}
		localEntries, err := local.Catalog.ListTableEntries(ctx, repo, hash)
		if err != nil {
			return err
		}
		remoteEntries, err := remote.Catalog.ListTableEntries(ctx, repo, hash)
		if err != nil {
			return err
		}
		if !tableEntriesEqual(localEntries, remoteEntries) {
			return fmt.Errorf("image %s: table entries disagree between local and remote: %w",
				hash, apperrors.ErrNonFastForward)
		}
	}
	return nil
}

func tableEntriesEqual(a, b []catalog.TableEntry) bool {
	if len(a) != len(b) {
		return false
	}
	byName := make(map[string]catalog.TableEntry, len(a))
	for _, e := range a {
		byName[e.TableName] = e
	}
	for _, e := range b {
		other, ok := byName[e.TableName]
		if !ok || !catalog.ColumnsEqual(e.Columns, other.Columns) || !stringSliceEqual(e.ObjectIDs, other.ObjectIDs) {
			return false
		}
	}
	return true
}

func stringSliceEqual(a, b []string) bool {
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
