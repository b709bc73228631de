// Package sync implements the clone/pull/push protocol of spec.md
// §4.6: reconcile image/tag metadata between two engines and transfer
// only the objects the destination doesn't already have.
package sync

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/cxz/splitgraph/internal/apperrors"
	"github.com/cxz/splitgraph/internal/catalog"
	"github.com/cxz/splitgraph/internal/engine"
	"github.com/cxz/splitgraph/internal/objects"
	"github.com/cxz/splitgraph/internal/retry"
)

// Peer bundles the three collaborators one side of a sync needs —
// mirroring repository.API, but a Peer has no notion of a checked-out
// working copy; sync only ever moves metadata and object bodies.
type Peer struct {
	Engine  engine.Engine
	Catalog *catalog.Store
	Objects *objects.Store
}

// Syncer drives clone/pull/push between a Local and a Remote peer.
// "Remote" is just the other side of the wire — for an embedded
// engine-to-engine sync within a single process, it is simply a second
// Peer bound to a different engine.Engine handle.
type Syncer struct {
	Local  *Peer
	Remote *Peer

	// TransferConcurrency bounds how many objects are fetched at once
	// (spec.md §5: "the process may run several engine adapter calls
	// concurrently, e.g. parallel object uploads during push").
	TransferConcurrency int
	RetryPolicy         retry.Policy
}

func (s *Syncer) concurrency() int {
	if s.TransferConcurrency > 0 {
		return s.TransferConcurrency
	}
	return 4
}

func (s *Syncer) retryPolicy() retry.Policy {
	if s.RetryPolicy.MaxAttempts > 0 {
		return s.RetryPolicy
	}
	return retry.DefaultPolicy()
}

// missingHashes returns the hashes present in have but absent from has,
// preserving have's order — phase 1, metadata diff.
func missingHashes(have, has []string) []string {
	present := make(map[string]bool, len(has))
	for _, h := range has {
		present[h] = true
	}
	var out []string
	for _, h := range have {
		if !present[h] {
			out = append(out, h)
		}
	}
	return out
}

// topoOrderImages orders a set of images so that every image follows
// its parent, as metadata apply requires (spec.md §4.6: "parents must
// be present before children are applied"). Images whose parent isn't
// in the set (the root, or an image already present on the
// destination) are treated as already-satisfied roots.
func topoOrderImages(images []catalog.Image) []catalog.Image {
	byHash := make(map[string]catalog.Image, len(images))
	for _, img := range images {
		byHash[img.ImageHash] = img
	}

	var ordered []catalog.Image
	visited := make(map[string]bool, len(images))
	var visit func(hash string)
	visit = func(hash string) {
		if visited[hash] {
			return
		}
		img, ok := byHash[hash]
		if !ok {
			return
		}
		visited[hash] = true
		if img.ParentID != "" {
			visit(img.ParentID)
		}
		ordered = append(ordered, img)
	}

	hashes := make([]string, 0, len(images))
	for _, img := range images {
		hashes = append(hashes, img.ImageHash)
	}
	sort.Strings(hashes) // deterministic traversal order, parent edges still respected
	for _, h := range hashes {
		visit(h)
	}
	return ordered
}

// objectIDsForImages fetches the table_entries of every image in
// hashes from src and returns the union of referenced object ids —
// phase 2, object enumeration.
func objectIDsForImages(ctx context.Context, src *Peer, repo catalog.Repository, hashes []string) (map[string]bool, error) {
	ids := make(map[string]bool)
	for _, hash := range hashes {
		entries, err := src.Catalog.ListTableEntries(ctx, repo, hash)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			for _, id := range e.ObjectIDs {
				ids[id] = true
			}
		}
	}
	return ids, nil
}

// missingObjectIDs intersects wanted with what dst already stores and
// returns only the ones dst lacks — phase 3, object diff.
func missingObjectIDs(ctx context.Context, dst *Peer, wanted map[string]bool) ([]string, error) {
	var out []string
	for id := range wanted {
		exists, err := dst.Objects.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

// transferObjects streams each object in ids from src to dst, with
// bounded concurrency and retry on transient failure — phase 4, object
// transfer. Objects are immutable and content-addressed, so fetching
// them in any order (even concurrently) is safe; Store.Put verifies
// each one's hash before accepting it.
func transferObjects(ctx context.Context, src, dst *Peer, ids []string, concurrency int, policy retry.Policy) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, span := syncTracer.Start(ctx, "sync.transfer_objects",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("sgr.sync.object_count", len(ids))),
	)

	sem := make(chan struct{}, concurrency)
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			err := retry.Do(gctx, policy, func(ctx context.Context) error {
				obj, err := src.Objects.Get(ctx, id)
				if err != nil {
					return err
				}
				return dst.Objects.Put(ctx, obj)
			})
			if err == nil {
				syncMetrics.objectsTransferred.Add(gctx, 1)
			}
			return err
		})
	}
	err := g.Wait()
	endSpan(span, err)
	return err
}

// applyImageMetadata writes the image row and table entries for every
// transferred image, one image atomically at a time — phase 5. Tags are
// not written here: Clone, Pull and Push set them afterwards, outside
// these per-image transactions.
func applyImageMetadata(ctx context.Context, src, dst *Peer, repo catalog.Repository, images []catalog.Image) error {
	for _, img := range images {
		if err := dst.Engine.RunInTransaction(ctx, func(tx engine.Engine) error {
			catTx := dst.Catalog.WithEngine(tx)
			if err := catTx.InsertImage(ctx, img); err != nil {
				return err
			}
			entries, err := src.Catalog.ListTableEntries(ctx, repo, img.ImageHash)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if err := catTx.SetTableEntry(ctx, e); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// fetchAllImages loads every catalog.Image row for the given hashes
// from src, in the order hashes is given.
func fetchAllImages(ctx context.Context, src *Peer, repo catalog.Repository, hashes []string) ([]catalog.Image, error) {
	out := make([]catalog.Image, 0, len(hashes))
	for _, h := range hashes {
		img, err := src.Catalog.GetImage(ctx, repo, h)
		if err != nil {
			return nil, err
		}
		out = append(out, *img)
	}
	return out, nil
}

// reconcileImages runs phases 1-5 of spec.md §4.6 moving whatever src
// has that dst lacks into dst, returning the set of newly applied
// image hashes. When downloadAll is false, only metadata is applied;
// object bodies are left to be fetched lazily on first materialization.
func reconcileImages(ctx context.Context, s *Syncer, src, dst *Peer, repo catalog.Repository, downloadAll bool) ([]string, error) {
	srcHashes, err := src.Catalog.ListImages(ctx, repo)
	if err != nil {
		return nil, err
	}
	dstHashes, err := dst.Catalog.ListImages(ctx, repo)
	if err != nil {
		return nil, err
	}
	missing := missingHashes(srcHashes, dstHashes)
	if len(missing) == 0 {
		return nil, nil
	}

	images, err := fetchAllImages(ctx, src, repo, missing)
	if err != nil {
		return nil, err
	}
	ordered := topoOrderImages(images)

	if downloadAll {
		wanted, err := objectIDsForImages(ctx, src, repo, missing)
		if err != nil {
			return nil, err
		}
		need, err := missingObjectIDs(ctx, dst, wanted)
		if err != nil {
			return nil, err
		}
		if err := transferObjects(ctx, src, dst, need, s.concurrency(), s.retryPolicy()); err != nil {
			return nil, err
		}
	}

	if err := applyImageMetadata(ctx, src, dst, repo, ordered); err != nil {
		return nil, err
	}

	out := make([]string, len(ordered))
	for i, img := range ordered {
		out[i] = img.ImageHash
	}
	return out, nil
}

// FetchObjects fetches whatever object ids aren't yet stored locally,
// pulling each from the remote — the lazy-download path a checkout
// takes after a clone(download_all=false), when materializing a table
// hits an object id the local store doesn't have.
func (s *Syncer) FetchObjects(ctx context.Context, ids []string) error {
	need, err := missingObjectIDs(ctx, s.Local, boolSet(ids))
	if err != nil {
		return err
	}
	return transferObjects(ctx, s.Remote, s.Local, need, s.concurrency(), s.retryPolicy())
}

func boolSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// ensureNoTagConflict enforces spec.md §4.6's push conflict rule: a tag
// move is rejected if the destination already has that tag pointing at
// a different image.
func ensureNoTagConflict(dstTags map[string]string, tagName, imageHash string) error {
	if existing, ok := dstTags[tagName]; ok && existing != imageHash {
		return fmt.Errorf("tag %q already set to %s remotely, wanted %s: %w",
			tagName, existing, imageHash, apperrors.ErrNonFastForward)
	}
	return nil
}
