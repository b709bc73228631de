// Package catalog is the metadata store of spec.md §4.4: repositories,
// images, tags, table->object mappings, upstream pointers, and
// provenance records, persisted as ordinary SQL tables in a reserved
// schema on the engine adapter.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cxz/splitgraph/internal/apperrors"
	"github.com/cxz/splitgraph/internal/engine"
)

// metaSchema is the reserved schema the catalog's own tables live in,
// mirroring the persisted state layout of spec.md §6.
const metaSchema = "sgr_meta"

// RootImage is the implicit root image of every freshly initialized
// repository, per spec.md §3.
const RootImage = "0000000000000000000000000000000000000000000000000000000000000000"

// ReservedTagHead and ReservedTagLatest are the two reserved tag names
// of spec.md §3: HEAD denotes the checked-out image (nullable), latest
// resolves dynamically to the most recently created image.
const (
	ReservedTagHead   = "HEAD"
	ReservedTagLatest = "latest"
)

// Repository identifies a named table container by (namespace, name).
type Repository struct {
	Namespace string
	Name      string
}

// Schema returns "namespace/name" when namespace is set, else "name",
// per spec.md §3.
func (r Repository) Schema() string {
	if r.Namespace == "" {
		return r.Name
	}
	return r.Namespace + "/" + r.Name
}

// Image is a commit: a content-addressed binding of (repository,
// image_hash) to a parent and a set of table entries.
type Image struct {
	Repository Repository
	ImageHash  string
	ParentID   string
	CreatedAt  time.Time
	Comment    string
}

// TableEntry binds (image, table_name) to a schema and an ordered
// object chain, per spec.md §3.
type TableEntry struct {
	Repository Repository
	ImageHash  string
	TableName  string
	Columns    []engine.ColumnDef
	ObjectIDs  []string
}

// Upstream is the default pull/push target for a repository.
type Upstream struct {
	Repository       Repository
	RemoteEngineName string
	RemoteRepository string
}

// ProvenanceSource is one (source_repository, source_image_hash) input
// recorded for a Splitfile-built image.
type ProvenanceSource struct {
	Repository Repository
	ImageHash  string
}

// ProvenanceRecord is the recorded inputs and script for an image built
// by the Splitfile executor.
type ProvenanceRecord struct {
	Repository Repository
	ImageHash  string
	Sources    []ProvenanceSource
	Script     string
}

// Store is the metadata store: repositories, images, tags, table
// entries, upstream, and provenance, all persisted via an engine.Engine.
type Store struct {
	eng engine.Engine
}

// WithEngine returns a shallow copy of the store bound to a different
// engine handle — typically a transaction-scoped Engine returned by
// engine.Engine.RunInTransaction, so catalog writes participate in the
// caller's transaction instead of auto-committing individually.
func (s *Store) WithEngine(eng engine.Engine) *Store {
	return &Store{eng: eng}
}

// NewStore creates the reserved metadata schema and tables if absent.
func NewStore(ctx context.Context, eng engine.Engine) (*Store, error) {
	if err := eng.CreateSchema(ctx, metaSchema); err != nil {
		return nil, err
	}
	s := &Store{eng: eng}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	tables := map[string][]engine.ColumnDef{
		"repositories": {
			{Ordinal: 1, Name: "namespace", Type: "VARCHAR(255)", PrimaryKey: true},
			{Ordinal: 2, Name: "name", Type: "VARCHAR(255)", PrimaryKey: true},
		},
		"images": {
			{Ordinal: 1, Name: "repository", Type: "VARCHAR(512)", PrimaryKey: true},
			{Ordinal: 2, Name: "image_hash", Type: "VARCHAR(64)", PrimaryKey: true},
			{Ordinal: 3, Name: "parent_id", Type: "VARCHAR(64)"},
			{Ordinal: 4, Name: "created_at", Type: "DATETIME"},
			{Ordinal: 5, Name: "comment", Type: "TEXT"},
		},
		"tables": {
			{Ordinal: 1, Name: "repository", Type: "VARCHAR(512)", PrimaryKey: true},
			{Ordinal: 2, Name: "image_hash", Type: "VARCHAR(64)", PrimaryKey: true},
			{Ordinal: 3, Name: "table_name", Type: "VARCHAR(255)", PrimaryKey: true},
			{Ordinal: 4, Name: "schema_json", Type: "TEXT"},
			{Ordinal: 5, Name: "object_ids", Type: "TEXT"},
		},
		"tags": {
			{Ordinal: 1, Name: "repository", Type: "VARCHAR(512)", PrimaryKey: true},
			{Ordinal: 2, Name: "tag_name", Type: "VARCHAR(255)", PrimaryKey: true},
			{Ordinal: 3, Name: "image_hash", Type: "VARCHAR(64)"},
		},
		"upstream": {
			{Ordinal: 1, Name: "repository", Type: "VARCHAR(512)", PrimaryKey: true},
			{Ordinal: 2, Name: "remote_name", Type: "VARCHAR(255)"},
			{Ordinal: 3, Name: "remote_repository", Type: "VARCHAR(512)"},
		},
		"provenance": {
			{Ordinal: 1, Name: "repository", Type: "VARCHAR(512)", PrimaryKey: true},
			{Ordinal: 2, Name: "image_hash", Type: "VARCHAR(64)", PrimaryKey: true},
			{Ordinal: 3, Name: "sources_json", Type: "TEXT"},
			{Ordinal: 4, Name: "script", Type: "LONGTEXT"},
		},
	}
	for name, cols := range tables {
		if err := s.eng.CreateTable(ctx, metaSchema, name, cols); err != nil {
			return err
		}
	}
	return nil
}

func q(table string) string {
	return fmt.Sprintf("`%s`.`%s`", metaSchema, table)
}

// CreateRepository registers a new repository and writes its root
// image and null HEAD, per spec.md §4.4's `init`.
func (s *Store) CreateRepository(ctx context.Context, repo Repository) error {
	exists, err := s.RepositoryExists(ctx, repo)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("repository %s: %w", repo.Schema(), apperrors.ErrRepositoryExists)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (namespace, name) VALUES (?, ?)", q("repositories"))
	if err := s.eng.RunBatch(ctx, stmt, [][]any{{repo.Namespace, repo.Name}}); err != nil {
		return err
	}
	if err := s.InsertImage(ctx, Image{Repository: repo, ImageHash: RootImage, ParentID: "", CreatedAt: time.Now().UTC()}); err != nil {
		return err
	}
	return s.SetTag(ctx, repo, ReservedTagHead, "")
}

// RepositoryExists reports whether repo is registered.
func (s *Store) RepositoryExists(ctx context.Context, repo Repository) (bool, error) {
	v, err := s.eng.QueryScalar(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE namespace = ? AND name = ?", q("repositories")),
		repo.Namespace, repo.Name)
	if err != nil {
		return false, err
	}
	n, _ := v.(int64)
	return n > 0, nil
}

// DeleteRepository removes a repository and all its images/tags.
func (s *Store) DeleteRepository(ctx context.Context, repo Repository) error {
	schema := repo.Schema()
	for _, table := range []string{"images", "tables", "tags", "upstream", "provenance"} {
		stmt := fmt.Sprintf("DELETE FROM %s WHERE repository = ?", q(table))
		if err := s.eng.RunBatch(ctx, stmt, [][]any{{schema}}); err != nil {
			return err
		}
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE namespace = ? AND name = ?", q("repositories"))
	return s.eng.RunBatch(ctx, stmt, [][]any{{repo.Namespace, repo.Name}})
}

// InsertImage writes a new image row.
func (s *Store) InsertImage(ctx context.Context, img Image) error {
	stmt := fmt.Sprintf("INSERT INTO %s (repository, image_hash, parent_id, created_at, comment) VALUES (?, ?, ?, ?, ?)", q("images"))
	return s.eng.RunBatch(ctx, stmt, [][]any{{img.Repository.Schema(), img.ImageHash, img.ParentID, img.CreatedAt, img.Comment}})
}

// GetImage fetches a single image by exact hash.
func (s *Store) GetImage(ctx context.Context, repo Repository, imageHash string) (*Image, error) {
	row, err := s.eng.QueryRow(ctx,
		fmt.Sprintf("SELECT parent_id, created_at, comment FROM %s WHERE repository = ? AND image_hash = ?", q("images")),
		repo.Schema(), imageHash)
	if err != nil {
		return nil, apperrors.Wrap(fmt.Sprintf("get image %s:%s", repo.Schema(), imageHash), err, apperrors.ErrImageNotFound)
	}
	return &Image{Repository: repo, ImageHash: imageHash, ParentID: asString(row[0]), Comment: asString(row[2])}, nil
}

// DeleteImage removes a single image row and its table entries. It
// does not check for tags or descendants pointing at it; callers
// (repository.Rm, repository.Prune) are responsible for that.
func (s *Store) DeleteImage(ctx context.Context, repo Repository, imageHash string) error {
	for _, table := range []string{"images", "tables"} {
		stmt := fmt.Sprintf("DELETE FROM %s WHERE repository = ? AND image_hash = ?", q(table))
		if err := s.eng.RunBatch(ctx, stmt, [][]any{{repo.Schema(), imageHash}}); err != nil {
			return err
		}
	}
	return nil
}

// ListImages returns every image hash recorded for repo.
func (s *Store) ListImages(ctx context.Context, repo Repository) ([]string, error) {
	col, err := s.eng.QueryColumn(ctx, fmt.Sprintf("SELECT image_hash FROM %s WHERE repository = ?", q("images")), repo.Schema())
	if err != nil {
		return nil, err
	}
	out := make([]string, len(col))
	for i, v := range col {
		out[i] = asString(v)
	}
	return out, nil
}

// ListRepositories returns every registered repository, the input
// a global object-store cleanup needs to union live object ids across
// every repository rather than just one.
func (s *Store) ListRepositories(ctx context.Context) ([]Repository, error) {
	rows, err := s.eng.QueryAll(ctx, fmt.Sprintf("SELECT namespace, name FROM %s", q("repositories")))
	if err != nil {
		return nil, err
	}
	out := make([]Repository, 0, len(rows.Data))
	for _, r := range rows.Data {
		out = append(out, Repository{Namespace: asString(r[0]), Name: asString(r[1])})
	}
	return out, nil
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

// NormalizeHashPrefix lowercases and validates a candidate hash/prefix
// string used by ResolveImage.
func NormalizeHashPrefix(ref string) (string, bool) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if len(ref) < 4 || len(ref) > 64 {
		return "", false
	}
	for _, c := range ref {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", false
		}
	}
	return ref, true
}
