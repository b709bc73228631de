package catalog

import (
	"context"
	"encoding/json"
	"fmt"
)

type provenanceSourceJSON struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	ImageHash string `json:"image_hash"`
}

// SetProvenance records the source images and reconstructable script
// text for an image built by the Splitfile executor (spec.md §3/§4.5).
func (s *Store) SetProvenance(ctx context.Context, rec ProvenanceRecord) error {
	sources := make([]provenanceSourceJSON, 0, len(rec.Sources))
	for _, src := range rec.Sources {
		sources = append(sources, provenanceSourceJSON{Namespace: src.Repository.Namespace, Name: src.Repository.Name, ImageHash: src.ImageHash})
	}
	b, err := json.Marshal(sources)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf("REPLACE INTO %s (repository, image_hash, sources_json, script) VALUES (?, ?, ?, ?)", q("provenance"))
	return s.eng.RunBatch(ctx, stmt, [][]any{{rec.Repository.Schema(), rec.ImageHash, string(b), rec.Script}})
}

// GetProvenance fetches the recorded sources and script for an image,
// used by `provenance` and `rebuild`.
func (s *Store) GetProvenance(ctx context.Context, repo Repository, imageHash string) (*ProvenanceRecord, error) {
	row, err := s.eng.QueryRow(ctx,
		fmt.Sprintf("SELECT sources_json, script FROM %s WHERE repository = ? AND image_hash = ?", q("provenance")),
		repo.Schema(), imageHash)
	if err != nil {
		return nil, err
	}
	var sources []provenanceSourceJSON
	if err := json.Unmarshal([]byte(asString(row[0])), &sources); err != nil {
		return nil, err
	}
	rec := &ProvenanceRecord{Repository: repo, ImageHash: imageHash, Script: asString(row[1])}
	for _, src := range sources {
		rec.Sources = append(rec.Sources, ProvenanceSource{
			Repository: Repository{Namespace: src.Namespace, Name: src.Name},
			ImageHash:  src.ImageHash,
		})
	}
	return rec, nil
}
