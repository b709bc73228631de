package objects

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cxz/splitgraph/internal/apperrors"
	"github.com/cxz/splitgraph/internal/engine"
)

// DefaultCompactionThreshold is the DIFF-chain length past which a
// commit should write a fresh SNAP instead of appending another DIFF,
// resolving the "Open Question" in spec.md §9 as a configured value
// rather than an invented constant.
const DefaultCompactionThreshold = 250

// metaSchema is the reserved schema objects live in, analogous to the
// catalog package's own reserved metadata schema.
const metaSchema = "sgr_objects"

// Store persists and retrieves SNAP/DIFF objects by content hash.
type Store struct {
	eng                 engine.Engine
	CompactionThreshold int
}

// WithEngine returns a shallow copy of the store bound to a different
// engine handle, used to make object writes participate in a caller's
// transaction (see catalog.Store.WithEngine for the same pattern).
func (s *Store) WithEngine(eng engine.Engine) *Store {
	return &Store{eng: eng, CompactionThreshold: s.CompactionThreshold}
}

// NewStore wires a Store to an engine adapter and ensures its backing
// schema exists.
func NewStore(ctx context.Context, eng engine.Engine) (*Store, error) {
	if err := eng.CreateSchema(ctx, metaSchema); err != nil {
		return nil, err
	}
	s := &Store{eng: eng, CompactionThreshold: DefaultCompactionThreshold}
	if err := s.ensureTable(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureTable(ctx context.Context) error {
	return s.eng.CreateTable(ctx, metaSchema, "bodies", []engine.ColumnDef{
		{Ordinal: 1, Name: "object_id", Type: "VARCHAR(255)", PrimaryKey: true},
		{Ordinal: 2, Name: "kind", Type: "VARCHAR(8)"},
		{Ordinal: 3, Name: "parent_id", Type: "VARCHAR(255)"},
		{Ordinal: 4, Name: "size", Type: "BIGINT"},
		{Ordinal: 5, Name: "content", Type: "LONGTEXT"},
	})
}

// Exists reports whether an object with the given id is already stored,
// used by Write to deduplicate (spec.md §4.3: "If the resulting
// object_id already exists, the store deduplicates (no write, just
// reference)").
func (s *Store) Exists(ctx context.Context, objectID string) (bool, error) {
	v, err := s.eng.QueryScalar(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE object_id = ?", qualified()), objectID)
	if err != nil {
		return false, err
	}
	n, _ := v.(int64)
	return n > 0, nil
}

func qualified() string { return "`" + metaSchema + "`.`bodies`" }

// WriteSnap stores a SNAP object (deduplicating by content hash) and
// returns its object id.
func (s *Store) WriteSnap(ctx context.Context, columns []engine.ColumnDef, rows []TableRow) (string, error) {
	id := HashSnap(columns, rows)
	exists, err := s.Exists(ctx, id)
	if err != nil {
		return "", err
	}
	if exists {
		return id, nil
	}
	body, err := json.Marshal(struct {
		Columns []engine.ColumnDef `json:"columns"`
		Rows    []TableRow         `json:"rows"`
	}{Columns: columns, Rows: sortedRows(rows)})
	if err != nil {
		return "", err
	}
	return id, s.insertBody(ctx, id, KindSnap, "", body)
}

// WriteDiff stores a DIFF object on top of parentID (deduplicating by
// content hash) and returns its object id.
func (s *Store) WriteDiff(ctx context.Context, parentID string, changes []engine.ChangeRow) (string, error) {
	id := HashDiff(parentID, changes)
	exists, err := s.Exists(ctx, id)
	if err != nil {
		return "", err
	}
	if exists {
		return id, nil
	}
	body, err := json.Marshal(struct {
		Changes []engine.ChangeRow `json:"changes"`
	}{Changes: sortedChanges(changes)})
	if err != nil {
		return "", err
	}
	return id, s.insertBody(ctx, id, KindDiff, parentID, body)
}

func (s *Store) insertBody(ctx context.Context, id string, kind Kind, parentID string, body []byte) error {
	stmt := fmt.Sprintf("INSERT INTO %s (object_id, kind, parent_id, size, content) VALUES (?, ?, ?, ?, ?)", qualified())
	return s.eng.RunBatch(ctx, stmt, [][]any{{id, string(kind), parentID, int64(len(body)), string(body)}})
}

// Get loads a single object by id.
func (s *Store) Get(ctx context.Context, objectID string) (*Object, error) {
	row, err := s.eng.QueryRow(ctx,
		fmt.Sprintf("SELECT kind, parent_id, content FROM %s WHERE object_id = ?", qualified()), objectID)
	if err != nil {
		return nil, err
	}
	kind := Kind(asString(row[0]))
	parent := asString(row[1])
	content := []byte(asString(row[2]))

	obj := &Object{ID: objectID, Kind: kind, ParentID: parent}
	switch kind {
	case KindSnap:
		var body struct {
			Columns []engine.ColumnDef `json:"columns"`
			Rows    []TableRow         `json:"rows"`
		}
		if err := json.Unmarshal(content, &body); err != nil {
			return nil, err
		}
		obj.Rows = body.Rows
		obj.Columns = body.Columns
	case KindDiff:
		var body struct {
			Changes []engine.ChangeRow `json:"changes"`
		}
		if err := json.Unmarshal(content, &body); err != nil {
			return nil, err
		}
		obj.Changes = body.Changes
	}
	return obj, nil
}

// Materialize reconstructs a table by loading the SNAP at the head of
// chain into a working table and applying each DIFF in order, per
// spec.md §4.3's Read/materialize rules.
func (s *Store) Materialize(ctx context.Context, chain []string) ([]TableRow, error) {
	if len(chain) == 0 {
		return nil, nil
	}
	snap, err := s.Get(ctx, chain[0])
	if err != nil {
		return nil, err
	}
	if snap.Kind != KindSnap {
		return nil, fmt.Errorf("objects: chain %v does not start with a SNAP", chain)
	}
	working := ToMap(snap.Rows)
	for _, id := range chain[1:] {
		diff, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := Apply(working, diff); err != nil {
			return nil, err
		}
	}
	return FromMap(working), nil
}

// Put writes an object fetched from a remote store, verifying its
// content hash still matches its claimed id before accepting it — the
// sync protocol's defense against a corrupted or tampered transfer.
// A dedicated write path is needed because WriteSnap/WriteDiff derive
// the id from content rather than accepting one, as a replica (unlike
// the originating side) must preserve the transferred id exactly.
func (s *Store) Put(ctx context.Context, obj *Object) error {
	exists, err := s.Exists(ctx, obj.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	switch obj.Kind {
	case KindSnap:
		if got := HashSnap(obj.Columns, obj.Rows); got != obj.ID {
			return fmt.Errorf("%w: SNAP %s does not match its content", apperrors.ErrObjectCorruption, obj.ID)
		}
		body, err := json.Marshal(struct {
			Columns []engine.ColumnDef `json:"columns"`
			Rows    []TableRow         `json:"rows"`
		}{Columns: obj.Columns, Rows: sortedRows(obj.Rows)})
		if err != nil {
			return err
		}
		return s.insertBody(ctx, obj.ID, KindSnap, "", body)
	case KindDiff:
		if got := HashDiff(obj.ParentID, obj.Changes); got != obj.ID {
			return fmt.Errorf("%w: DIFF %s does not match its content", apperrors.ErrObjectCorruption, obj.ID)
		}
		body, err := json.Marshal(struct {
			Changes []engine.ChangeRow `json:"changes"`
		}{Changes: sortedChanges(obj.Changes)})
		if err != nil {
			return err
		}
		return s.insertBody(ctx, obj.ID, KindDiff, obj.ParentID, body)
	default:
		return fmt.Errorf("%w: unknown object kind %q", apperrors.ErrObjectCorruption, obj.Kind)
	}
}

// Cleanup enumerates the objects referenced by liveIDs and physically
// removes everything else, per spec.md §4.3/§4.4's `cleanup`/`prune`
// refcount discipline. It reports the count of objects removed.
func (s *Store) Cleanup(ctx context.Context, liveIDs map[string]bool) (int, error) {
	all, err := s.eng.QueryColumn(ctx, fmt.Sprintf("SELECT object_id FROM %s", qualified()))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, v := range all {
		id := asString(v)
		if liveIDs[id] {
			continue
		}
		stmt := fmt.Sprintf("DELETE FROM %s WHERE object_id = ?", qualified())
		if err := s.eng.RunBatch(ctx, stmt, [][]any{{id}}); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
