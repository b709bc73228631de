package sync

import (
	"context"
	"fmt"

	"github.com/cxz/splitgraph/internal/apperrors"
	"github.com/cxz/splitgraph/internal/catalog"
)

// Pull fetches every image the remote has that the local repository
// lacks and fast-forwards local tags to match, per spec.md §4.6's
// phases run in the remote->local direction. repo must already be
// registered locally (via Init or a prior Clone).
func (s *Syncer) Pull(ctx context.Context, repo catalog.Repository, downloadAll bool) error {
	exists, err := s.Local.Catalog.RepositoryExists(ctx, repo)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("pull %s: %w", repo.Schema(), apperrors.ErrRepositoryNotFound)
	}

	if _, err := reconcileImages(ctx, s, s.Remote, s.Local, repo, downloadAll); err != nil {
		return err
	}

	remoteTags, err := s.Remote.Catalog.ListTags(ctx, repo)
	if err != nil {
		return err
	}
	for name, hash := range remoteTags {
		if name == catalog.ReservedTagHead {
			continue // HEAD tracks the local working copy; pull never moves it
		}
		if err := s.Local.Catalog.SetTag(ctx, repo, name, hash); err != nil {
			return err
		}
	}
	return nil
}
