package repository

import (
	"context"

	"github.com/cxz/splitgraph/internal/apperrors"
	"github.com/cxz/splitgraph/internal/catalog"
)

// Tag binds a new non-reserved tag name to ref's resolved image,
// refusing to overwrite an existing tag (spec.md §3: "non-reserved tag
// is unique per repository").
func (a *API) Tag(ctx context.Context, repo catalog.Repository, tagName, ref string) error {
	if tagName == catalog.ReservedTagHead || tagName == catalog.ReservedTagLatest {
		return apperrors.ErrTagExists
	}
	exists, err := a.Catalog.TagExists(ctx, repo, tagName)
	if err != nil {
		return err
	}
	if exists {
		return apperrors.ErrTagExists
	}
	hash, err := a.ResolveImage(ctx, repo, ref)
	if err != nil {
		return err
	}
	return a.Catalog.SetTag(ctx, repo, tagName, hash)
}

// Untag removes a non-reserved tag.
func (a *API) Untag(ctx context.Context, repo catalog.Repository, tagName string) error {
	if tagName == catalog.ReservedTagHead || tagName == catalog.ReservedTagLatest {
		return apperrors.ErrTagNotFound
	}
	exists, err := a.Catalog.TagExists(ctx, repo, tagName)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.ErrTagNotFound
	}
	return a.Catalog.DeleteTag(ctx, repo, tagName)
}
