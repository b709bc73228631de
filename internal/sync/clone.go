package sync

import (
	"context"

	"github.com/cxz/splitgraph/internal/catalog"
)

// Clone registers repo locally (if absent) and applies every image the
// remote has, per spec.md §4.6: "clone(repo, download_all=false):
// phases 1-2, then metadata apply; object bodies are fetched lazily on
// first materialization unless download_all is set." Tags are copied
// last so they only ever point at metadata that has already landed;
// HEAD is not copied.
func (s *Syncer) Clone(ctx context.Context, repo catalog.Repository, downloadAll bool) error {
	exists, err := s.Local.Catalog.RepositoryExists(ctx, repo)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.Local.Engine.CreateSchema(ctx, repo.Schema()); err != nil {
			return err
		}
		if err := s.Local.Catalog.CreateRepository(ctx, repo); err != nil {
			return err
		}
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
			continue // a fresh clone has no working copy until an explicit checkout
		}
		if err := s.Local.Catalog.SetTag(ctx, repo, name, hash); err != nil {
			return err
		}
	}
	return nil
}
