package splitfile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/cxz/splitgraph/internal/apperrors"
	"github.com/cxz/splitgraph/internal/catalog"
	"github.com/cxz/splitgraph/internal/repository"
)

// Cloner fetches a shallow copy of a remote repository so an IMPORT's
// 'FROM <conn_string> <repo> IMPORT ...' form has something to resolve
// against locally. Concrete clients (internal/sync) satisfy this
// without the splitfile package needing to import them directly.
type Cloner interface {
	Clone(ctx context.Context, connString string, repo catalog.Repository) error
}

// Executor runs a parsed Splitfile against a repository/image API,
// per spec.md §4.5's execution rules and content-addressed layer
// caching.
type Executor struct {
	Repo   *repository.API
	Cloner Cloner
}

// Result is what running a Splitfile produces: the output repository
// and its final image. Provenance is written to the catalog as each
// step runs, not returned here.
type Result struct {
	OutputRepo catalog.Repository
	ImageHash  string
}

// Execute preprocesses, parses, and runs script against params, per
// spec.md §4.5. Every command that creates (or cache-hits) an image
// has its provenance recorded so provenance/rebuild can reconstruct it.
func (e *Executor) Execute(ctx context.Context, script string, params map[string]string) (*Result, error) {
	pre, err := Preprocess(script, params)
	if err != nil {
		return nil, err
	}
	commands, err := Parse(pre)
	if err != nil {
		return nil, err
	}
	return e.executeCommands(ctx, commands, script)
}

func (e *Executor) executeCommands(ctx context.Context, commands []Command, script string) (*Result, error) {
	var (
		outputRepo   catalog.Repository
		outputSet    bool
		currentHead  string
		sources      []catalog.ProvenanceSource
	)

	for _, cmd := range commands {
		switch c := cmd.(type) {
		case Comment:
			continue

		case Output:
			outputRepo = parseRepoRef(c.Repo)
			exists, err := e.Repo.Catalog.RepositoryExists(ctx, outputRepo)
			if err != nil {
				return nil, err
			}
			if !exists {
				if err := e.Repo.Init(ctx, outputRepo); err != nil {
					return nil, err
				}
			}
			if c.ImageHash != "" {
				hash, err := e.Repo.Checkout(ctx, outputRepo, c.ImageHash, true)
				if err != nil {
					return nil, err
				}
				currentHead = hash
			} else {
				head, err := e.Repo.Catalog.GetTag(ctx, outputRepo, catalog.ReservedTagHead)
				if err != nil {
					return nil, err
				}
				if head == "" {
					// Nothing checked out yet (a freshly Init'd repo, or one
					// left uncheckout'd) — Commit requires an image checked
					// out, so start from the implicit root.
					head, err = e.Repo.Checkout(ctx, outputRepo, catalog.RootImage, true)
					if err != nil {
						return nil, err
					}
				}
				currentHead = head
			}
			outputSet = true

		case Import:
			if !outputSet {
				return nil, apperrors.ErrNoOutputSet
			}
			sourceRepo := parseRepoRef(c.Repo)
			if c.ConnString != "" {
				if e.Cloner == nil {
					return nil, fmt.Errorf("%w: remote FROM import requires a configured cloner", apperrors.ErrNetwork)
				}
				if err := e.Cloner.Clone(ctx, c.ConnString, sourceRepo); err != nil {
					return nil, err
				}
			}
			ref := c.Tag
			if ref == "" {
				ref = catalog.ReservedTagLatest
			}
			sourceHash, err := e.Repo.ResolveImage(ctx, sourceRepo, ref)
			if err != nil {
				return nil, err
			}

			target := importTargetHash(currentHead, sourceHash, c.Tables)
			hit, err := e.tryCacheHit(ctx, outputRepo, target)
			if err != nil {
				return nil, err
			}
			if hit {
				fmt.Fprintf(os.Stderr, "Using the cache for IMPORT from %s\n", c.Repo)
				currentHead = target
				sources = append(sources, catalog.ProvenanceSource{Repository: sourceRepo, ImageHash: sourceHash})
				if err := e.Repo.Catalog.SetProvenance(ctx, catalog.ProvenanceRecord{
					Repository: outputRepo, ImageHash: currentHead, Sources: dedupSources(sources), Script: script,
				}); err != nil {
					return nil, err
				}
				continue
			}

			for _, t := range c.Tables {
				if _, err := e.Repo.Import(ctx, outputRepo, repository.ImportOptions{
					SourceRepo: sourceRepo, SourceRef: sourceHash, TableName: t.Name, TargetName: t.Alias,
				}); err != nil {
					return nil, err
				}
			}
			newHash, err := e.Repo.Commit(ctx, outputRepo, repository.CommitOptions{
				TargetHash: target, Comment: fmt.Sprintf("IMPORT from %s", c.Repo),
			})
			if err != nil {
				return nil, err
			}
			currentHead = newHash
			sources = append(sources, catalog.ProvenanceSource{Repository: sourceRepo, ImageHash: sourceHash})
			if err := e.Repo.Catalog.SetProvenance(ctx, catalog.ProvenanceRecord{
				Repository: outputRepo, ImageHash: currentHead, Sources: dedupSources(sources), Script: script,
			}); err != nil {
				return nil, err
			}

		case Sql:
			if !outputSet {
				return nil, apperrors.ErrNoOutputSet
			}
			canonical := canonicalizeSQL(c.Statement)
			target := sqlTargetHash(currentHead, canonical)

			hit, err := e.tryCacheHit(ctx, outputRepo, target)
			if err != nil {
				return nil, err
			}
			if hit {
				fmt.Fprintf(os.Stderr, "Using the cache for %s\n", canonical)
				currentHead = target
				if err := e.Repo.Catalog.SetProvenance(ctx, catalog.ProvenanceRecord{
					Repository: outputRepo, ImageHash: currentHead, Sources: dedupSources(sources), Script: script,
				}); err != nil {
					return nil, err
				}
				continue
			}

			if _, err := e.Repo.Engine.QueryAll(ctx, fmt.Sprintf("USE `%s`", outputRepo.Schema())); err != nil {
				// not every backend supports USE; ignore and rely on
				// fully-qualified statements if this fails
				_ = err
			}
			if _, err := e.Repo.Engine.QueryAll(ctx, c.Statement); err != nil {
				return nil, err
			}
			newHash, err := e.Repo.Commit(ctx, outputRepo, repository.CommitOptions{
				TargetHash: target, Comment: canonical,
			})
			if err != nil {
				return nil, err
			}
			currentHead = newHash
			if err := e.Repo.Catalog.SetProvenance(ctx, catalog.ProvenanceRecord{
				Repository: outputRepo, ImageHash: currentHead, Sources: dedupSources(sources), Script: script,
			}); err != nil {
				return nil, err
			}
		}
	}

	return &Result{OutputRepo: outputRepo, ImageHash: currentHead}, nil
}

// tryCacheHit checks out target if it already exists in repo, reporting
// whether it did.
func (e *Executor) tryCacheHit(ctx context.Context, repo catalog.Repository, target string) (bool, error) {
	if _, err := e.Repo.Catalog.GetImage(ctx, repo, target); err != nil {
		return false, nil
	}
	if _, err := e.Repo.Checkout(ctx, repo, target, true); err != nil {
		return false, err
	}
	return true, nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// canonicalizeSQL lowercases and collapses whitespace, per spec.md
// §4.5's SQL step target_hash derivation.
func canonicalizeSQL(stmt string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(stmt)), " ")
}

func sha256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// sqlTargetHash implements H(current_output_head || H(canonical_stmt)).
func sqlTargetHash(head, canonical string) string {
	return sha256Hex(head + sha256Hex(canonical))
}

// importTargetHash implements
// H(current_output_head || source_image_hash || H(t1) || H(a1) || H(t2) || H(a2) || …)
// over table names and aliases in declared order.
func importTargetHash(head, sourceHash string, tables []ImportTable) string {
	var b strings.Builder
	b.WriteString(head)
	b.WriteString(sourceHash)
	for _, t := range tables {
		b.WriteString(sha256Hex(t.Name))
		b.WriteString(sha256Hex(t.Alias))
	}
	return sha256Hex(b.String())
}

// parseRepoRef splits a "namespace/name" or bare "name" repository
// reference into a catalog.Repository.
func parseRepoRef(ref string) catalog.Repository {
	if i := strings.Index(ref, "/"); i >= 0 {
		return catalog.Repository{Namespace: ref[:i], Name: ref[i+1:]}
	}
	return catalog.Repository{Name: ref}
}

func dedupSources(sources []catalog.ProvenanceSource) []catalog.ProvenanceSource {
	seen := make(map[string]bool, len(sources))
	var out []catalog.ProvenanceSource
	for _, s := range sources {
		key := s.Repository.Schema() + ":" + s.ImageHash
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
