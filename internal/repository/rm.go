package repository

import (
	"context"

	"github.com/cxz/splitgraph/internal/apperrors"
	"github.com/cxz/splitgraph/internal/catalog"
)

// Rm deletes ref and every image descended from it, refusing to touch
// an image that is currently checked out (spec.md §4.4). Tags pointing
// at deleted images are dropped along with them.
func (a *API) Rm(ctx context.Context, repo catalog.Repository, ref string) error {
	unlock := catalog.Lock(repo)
	defer unlock()

	target, err := a.ResolveImage(ctx, repo, ref)
	if err != nil {
		return err
	}

	head, err := a.Catalog.GetTag(ctx, repo, catalog.ReservedTagHead)
	if err != nil {
		return err
	}

	all, err := a.Catalog.ListImages(ctx, repo)
	if err != nil {
		return err
	}
	children := make(map[string][]string)
	for _, hash := range all {
		img, err := a.Catalog.GetImage(ctx, repo, hash)
		if err != nil {
			return err
		}
		children[img.ParentID] = append(children[img.ParentID], hash)
	}

	toDelete := collectDescendants(target, children)
	for _, hash := range toDelete {
		if hash == head {
			return apperrors.ErrCheckedOutImage
		}
	}

	for _, hash := range toDelete {
		if hash == catalog.RootImage {
			continue
		}
		tags, err := a.Catalog.TagsPointingAt(ctx, repo, hash)
		if err != nil {
			return err
		}
		for _, tag := range tags {
			if err := a.Catalog.DeleteTag(ctx, repo, tag); err != nil {
				return err
			}
		}
		if err := a.Catalog.DeleteImage(ctx, repo, hash); err != nil {
			return err
		}
	}
	return nil
}

func collectDescendants(root string, children map[string][]string) []string {
	out := []string{root}
	for _, child := range children[root] {
		out = append(out, collectDescendants(child, children)...)
	}
	return out
}

// Prune deletes every image in repo that is not reachable from any
// stored tag (including HEAD; the dynamic latest does not protect the
// newest image), the per-repository half of
// spec.md §4.4's cleanup discipline. It does not touch the object
// store: objects are only physically reclaimed by the global Cleanup
// operation, since a single object store is shared across repositories
// and an object live in one repository may be unreferenced in another.
func (a *API) Prune(ctx context.Context, repo catalog.Repository) (int, error) {
	unlock := catalog.Lock(repo)
	defer unlock()

	tags, err := a.Catalog.ListTags(ctx, repo)
	if err != nil {
		return 0, err
	}
	all, err := a.Catalog.ListImages(ctx, repo)
	if err != nil {
		return 0, err
	}
	parentOf := make(map[string]string, len(all))
	for _, hash := range all {
		img, err := a.Catalog.GetImage(ctx, repo, hash)
		if err != nil {
			return 0, err
		}
		parentOf[hash] = img.ParentID
	}

	reachable := map[string]bool{catalog.RootImage: true}
	for _, hash := range tags {
		for h := hash; h != "" && !reachable[h]; h = parentOf[h] {
			reachable[h] = true
		}
	}

	removed := 0
	for _, hash := range all {
		if reachable[hash] {
			continue
		}
		if err := a.Catalog.DeleteImage(ctx, repo, hash); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
