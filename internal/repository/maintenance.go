package repository

import (
	"context"
)

// Cleanup unions the live object ids of every registered repository and
// physically deletes everything else from the object store, per
// spec.md §4.3's cleanup/prune refcount discipline. Run repository.Prune
// on each repository first so unreachable images (and the objects they
// alone referenced) are actually excluded from the live set.
func (a *API) Cleanup(ctx context.Context) (int, error) {
	repos, err := a.Catalog.ListRepositories(ctx)
	if err != nil {
		return 0, err
	}
	live := make(map[string]bool)
	for _, repo := range repos {
		repoLive, err := a.Catalog.AllLiveObjectIDs(ctx, repo)
		if err != nil {
			return 0, err
		}
		for id := range repoLive {
			live[id] = true
		}
	}
	return a.Objects.Cleanup(ctx, live)
}
