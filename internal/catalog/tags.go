package catalog

import (
	"context"
	"fmt"

	"github.com/cxz/splitgraph/internal/apperrors"
)

// SetTag creates or moves a tag. Callers are responsible for enforcing
// the "non-reserved tag is unique per repository" invariant (spec.md
// §3) before calling this for anything but HEAD.
func (s *Store) SetTag(ctx context.Context, repo Repository, tagName, imageHash string) error {
	stmt := fmt.Sprintf("REPLACE INTO %s (repository, tag_name, image_hash) VALUES (?, ?, ?)", q("tags"))
	return s.eng.RunBatch(ctx, stmt, [][]any{{repo.Schema(), tagName, imageHash}})
}

// GetTag resolves a tag name to an image hash. HEAD may resolve to ""
// (no working copy, per spec.md §3).
func (s *Store) GetTag(ctx context.Context, repo Repository, tagName string) (string, error) {
	row, err := s.eng.QueryRow(ctx,
		fmt.Sprintf("SELECT image_hash FROM %s WHERE repository = ? AND tag_name = ?", q("tags")),
		repo.Schema(), tagName)
	if err != nil {
		return "", apperrors.Wrap(fmt.Sprintf("get tag %s", tagName), err, apperrors.ErrTagNotFound)
	}
	return asString(row[0]), nil
}

// TagExists reports whether a non-reserved tag is already bound.
func (s *Store) TagExists(ctx context.Context, repo Repository, tagName string) (bool, error) {
	v, err := s.eng.QueryScalar(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE repository = ? AND tag_name = ?", q("tags")),
		repo.Schema(), tagName)
	if err != nil {
		return false, err
	}
	n, _ := v.(int64)
	return n > 0, nil
}

// DeleteTag removes a tag binding.
func (s *Store) DeleteTag(ctx context.Context, repo Repository, tagName string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE repository = ? AND tag_name = ?", q("tags"))
	return s.eng.RunBatch(ctx, stmt, [][]any{{repo.Schema(), tagName}})
}

// ListTags returns every tag->image_hash binding for repo, including HEAD.
func (s *Store) ListTags(ctx context.Context, repo Repository) (map[string]string, error) {
	rows, err := s.eng.QueryAll(ctx,
		fmt.Sprintf("SELECT tag_name, image_hash FROM %s WHERE repository = ?", q("tags")), repo.Schema())
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows.Data))
	for _, r := range rows.Data {
		out[asString(r[0])] = asString(r[1])
	}
	return out, nil
}

// TagsPointingAt returns every non-reserved tag bound to imageHash, used
// by `rm` to know which tags to drop when an image is deleted.
func (s *Store) TagsPointingAt(ctx context.Context, repo Repository, imageHash string) ([]string, error) {
	col, err := s.eng.QueryColumn(ctx,
		fmt.Sprintf("SELECT tag_name FROM %s WHERE repository = ? AND image_hash = ? AND tag_name != ? AND tag_name != ?", q("tags")),
		repo.Schema(), imageHash, ReservedTagHead, ReservedTagLatest)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(col))
	for i, v := range col {
		out[i] = asString(v)
	}
	return out, nil
}

// LatestImage resolves the reserved "latest" tag: the most recently
// created image in repo.
func (s *Store) LatestImage(ctx context.Context, repo Repository) (string, error) {
	row, err := s.eng.QueryRow(ctx,
		fmt.Sprintf("SELECT image_hash FROM %s WHERE repository = ? ORDER BY created_at DESC LIMIT 1", q("images")),
		repo.Schema())
	if err != nil {
		return "", apperrors.Wrap("resolve latest", err, apperrors.ErrImageNotFound)
	}
	return asString(row[0]), nil
}

// SetUpstream sets the default pull/push target for repo.
func (s *Store) SetUpstream(ctx context.Context, up Upstream) error {
	stmt := fmt.Sprintf("REPLACE INTO %s (repository, remote_name, remote_repository) VALUES (?, ?, ?)", q("upstream"))
	return s.eng.RunBatch(ctx, stmt, [][]any{{up.Repository.Schema(), up.RemoteEngineName, up.RemoteRepository}})
}

// GetUpstream fetches repo's upstream pointer, if any.
func (s *Store) GetUpstream(ctx context.Context, repo Repository) (*Upstream, error) {
	row, err := s.eng.QueryRow(ctx,
		fmt.Sprintf("SELECT remote_name, remote_repository FROM %s WHERE repository = ?", q("upstream")), repo.Schema())
	if err != nil {
		return nil, err
	}
	return &Upstream{Repository: repo, RemoteEngineName: asString(row[0]), RemoteRepository: asString(row[1])}, nil
}

// ResetUpstream removes repo's upstream pointer.
func (s *Store) ResetUpstream(ctx context.Context, repo Repository) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE repository = ?", q("upstream"))
	return s.eng.RunBatch(ctx, stmt, [][]any{{repo.Schema()}})
}
