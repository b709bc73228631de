package splitfile

import (
	"context"

	"github.com/cxz/splitgraph/internal/catalog"
)

// Provenance returns the recorded sources and reconstructable script
// text for an image built by Execute.
func (e *Executor) Provenance(ctx context.Context, repo catalog.Repository, imageHash string) (*catalog.ProvenanceRecord, error) {
	return e.Repo.Catalog.GetProvenance(ctx, repo, imageHash)
}

// Rebuild re-executes the recorded commands that produced imageHash,
// with optional (source_repo -> new_tag_or_hash) overrides and fresh
// $PARAM substitutions, per spec.md §4.5's rebuild.
func (e *Executor) Rebuild(ctx context.Context, repo catalog.Repository, imageHash string, tagSubstitutions, params map[string]string) (*Result, error) {
	rec, err := e.Repo.Catalog.GetProvenance(ctx, repo, imageHash)
	if err != nil {
		return nil, err
	}
	pre, err := Preprocess(rec.Script, params)
	if err != nil {
		return nil, err
	}
	commands, err := Parse(pre)
	if err != nil {
		return nil, err
	}
	for i, cmd := range commands {
		imp, ok := cmd.(Import)
		if !ok {
			continue
		}
		if sub, ok := tagSubstitutions[imp.Repo]; ok {
			imp.Tag = sub
			commands[i] = imp
		}
	}
	return e.executeCommands(ctx, commands, rec.Script)
}
