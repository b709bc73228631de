package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxz/splitgraph/internal/apperrors"
	"github.com/cxz/splitgraph/internal/catalog"
	"github.com/cxz/splitgraph/internal/engine"
	"github.com/cxz/splitgraph/internal/mount"
)

func TestComputeImageHashDeterministic(t *testing.T) {
	ids := []string{"SNAP_2", "DIFF_1"}
	reordered := []string{"DIFF_1", "SNAP_2"}

	assert.Equal(t, computeImageHash("parent1", ids, "hello"), computeImageHash("parent1", reordered, "hello"))
	assert.NotEqual(t, computeImageHash("parent1", ids, "hello"), computeImageHash("parent2", ids, "hello"))
	assert.NotEqual(t, computeImageHash("parent1", ids, "hello"), computeImageHash("parent1", ids, "goodbye"))
	assert.NotEqual(t, computeImageHash("parent1", ids, "hello"), computeImageHash("parent1", []string{"DIFF_2"}, "hello"))
}

func TestImportTargetHashStableAndSensitive(t *testing.T) {
	h1 := ImportTargetHash("img1", "SELECT * FROM t", "out")
	h2 := ImportTargetHash("img1", "SELECT * FROM t", "out")
	assert.Equal(t, h1, h2)

	assert.NotEqual(t, h1, ImportTargetHash("img2", "SELECT * FROM t", "out"))
	assert.NotEqual(t, h1, ImportTargetHash("img1", "SELECT * FROM t2", "out"))
	assert.NotEqual(t, h1, ImportTargetHash("img1", "SELECT * FROM t", "out2"))
}

func TestPrimaryKeyNamesOrdersByOrdinal(t *testing.T) {
	cols := []engine.ColumnDef{
		{Ordinal: 2, Name: "b", PrimaryKey: true},
		{Ordinal: 1, Name: "a", PrimaryKey: true},
		{Ordinal: 3, Name: "c"},
	}
	assert.Equal(t, []string{"a", "b"}, primaryKeyNames(cols))
}

func TestQuoteListAndQualify(t *testing.T) {
	assert.Equal(t, "`a`, `b`", quoteList([]string{"a", "b"}))
	assert.Equal(t, "`myschema`.`mytable`", qualify("myschema", "mytable"))
}

func TestSameChain(t *testing.T) {
	assert.True(t, sameChain([]string{"x", "y"}, []string{"x", "y"}))
	assert.False(t, sameChain([]string{"x"}, []string{"x", "y"}))
	assert.False(t, sameChain([]string{"x"}, []string{"z"}))
}

type noopMountHandler struct{}

func (noopMountHandler) Mount(ctx context.Context, eng engine.Engine, schema, conn string, options map[string]string) error {
	return nil
}
func (noopMountHandler) Unmount(ctx context.Context, eng engine.Engine, schema string) error {
	return nil
}

func TestRejectForeignSchema(t *testing.T) {
	mount.Register("noop-test", noopMountHandler{})
	registry := mount.NewRegistry()
	repo := catalog.Repository{Namespace: "ns", Name: "foreign"}

	a := &API{Mounts: registry}
	assert.NoError(t, a.rejectForeignSchema(repo))

	_, err := registry.Mount(context.Background(), nil, "noop-test", repo.Schema(), "conn", nil)
	require.NoError(t, err)

	err = a.rejectForeignSchema(repo)
	assert.ErrorIs(t, err, apperrors.ErrForeignSchema)
}

func TestRejectForeignSchemaNilMounts(t *testing.T) {
	a := &API{}
	assert.NoError(t, a.rejectForeignSchema(catalog.Repository{Name: "any"}))
}

type errFetcher struct{ err error }

func (e errFetcher) FetchObjects(ctx context.Context, ids []string) error { return e.err }

func TestEnsureObjectsLocalNoopWithoutFetcherOrIDs(t *testing.T) {
	a := &API{}
	assert.NoError(t, a.ensureObjectsLocal(context.Background(), []string{"x"}))

	a2 := &API{Fetcher: errFetcher{err: errors.New("should not be called")}}
	assert.NoError(t, a2.ensureObjectsLocal(context.Background(), nil))
}

func TestCollectDescendants(t *testing.T) {
	children := map[string][]string{
		"root":  {"a", "b"},
		"a":     {"c"},
	}
	got := collectDescendants("root", children)
	assert.ElementsMatch(t, []string{"root", "a", "b", "c"}, got)
}
