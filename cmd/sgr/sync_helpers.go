package main

import (
	"context"

	"github.com/cxz/splitgraph/internal/catalog"
	"github.com/cxz/splitgraph/internal/engine"
	"github.com/cxz/splitgraph/internal/objects"
	"github.com/cxz/splitgraph/internal/retry"
	"github.com/cxz/splitgraph/internal/sync"
)

// withUpstreamFetcher points a.repo.Fetcher at repo's configured
// upstream for the duration of fn, so a Checkout/Diff against a
// lazily-cloned image (clone --download-all=false) can pull whatever
// object bodies it's missing. It is a no-op (fn just runs with no
// Fetcher set) when repo has no upstream configured.
func withUpstreamFetcher(ctx context.Context, repo catalog.Repository, fn func() error) error {
	up, err := a.catalog.GetUpstream(ctx, repo)
	if err != nil {
		return fn()
	}

	syncer, closeRemote, err := dialSyncer(ctx, up.RemoteEngineName)
	if err != nil {
		return fn()
	}
	defer closeRemote()

	prev := a.repo.Fetcher
	a.repo.Fetcher = syncer
	defer func() { a.repo.Fetcher = prev }()
	return fn()
}

// dialSyncer opens remoteDSN as the Remote side of a Syncer rooted at
// the already-wired local app, closing it via the returned cleanup func
// once the caller's sync operation is done.
func dialSyncer(ctx context.Context, remoteDSN string) (*sync.Syncer, func() error, error) {
	remoteEngine, err := engine.Open(ctx, remoteDSN)
	if err != nil {
		return nil, nil, err
	}
	remoteCatalog, err := catalog.NewStore(ctx, remoteEngine)
	if err != nil {
		remoteEngine.Close()
		return nil, nil, err
	}
	remoteObjects, err := objects.NewStore(ctx, remoteEngine)
	if err != nil {
		remoteEngine.Close()
		return nil, nil, err
	}
	remoteObjects.CompactionThreshold = a.cfg.CompactionThreshold

	policy := retry.DefaultPolicy()
	policy.MaxAttempts = a.cfg.RetryMaxAttempts

	syncer := &sync.Syncer{
		Local:               &sync.Peer{Engine: a.engine, Catalog: a.catalog, Objects: a.objects},
		Remote:              &sync.Peer{Engine: remoteEngine, Catalog: remoteCatalog, Objects: remoteObjects},
		TransferConcurrency: a.cfg.SyncConcurrency,
		RetryPolicy:         policy,
	}
	return syncer, remoteEngine.Close, nil
}
