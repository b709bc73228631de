package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/cxz/splitgraph/internal/apperrors"
)

// ResolveImage accepts a 64-char hash, a hash prefix (>=4 chars), or a
// tag name, and returns the concrete image hash, per spec.md §4.4.
// Tag lookup takes precedence over hash/prefix interpretation.
func (s *Store) ResolveImage(ctx context.Context, repo Repository, ref string) (string, error) {
	switch ref {
	case ReservedTagLatest:
		return s.LatestImage(ctx, repo)
	case "":
		return "", fmt.Errorf("resolve image: empty reference: %w", apperrors.ErrImageNotFound)
	}

	if hash, err := s.GetTag(ctx, repo, ref); err == nil {
		return hash, nil
	}

	prefix, ok := NormalizeHashPrefix(ref)
	if !ok {
		return "", fmt.Errorf("resolve image %q: %w", ref, apperrors.ErrImageNotFound)
	}
	if len(prefix) == 64 {
		if _, err := s.GetImage(ctx, repo, prefix); err != nil {
			return "", err
		}
		return prefix, nil
	}

	matches, err := s.matchingHashes(ctx, repo, prefix)
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("resolve image %q: %w", ref, apperrors.ErrImageNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("prefix %q matches %d images: %w", ref, len(matches), apperrors.ErrAmbiguousReference)
	}
}

func (s *Store) matchingHashes(ctx context.Context, repo Repository, prefix string) ([]string, error) {
	all, err := s.ListImages(ctx, repo)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, h := range all {
		if strings.HasPrefix(h, prefix) {
			out = append(out, h)
		}
	}
	return out, nil
}
