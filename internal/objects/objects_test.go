package objects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxz/splitgraph/internal/apperrors"
	"github.com/cxz/splitgraph/internal/engine"
)

func cols() []engine.ColumnDef {
	return []engine.ColumnDef{
		{Ordinal: 1, Name: "fruit_id", Type: "integer", PrimaryKey: true},
		{Ordinal: 2, Name: "name", Type: "varchar"},
	}
}

func TestHashSnap_DeterministicRegardlessOfRowOrder(t *testing.T) {
	rowsA := []TableRow{
		{PK: map[string]any{"fruit_id": "1"}, Payload: map[string]any{"fruit_id": "1", "name": "apple"}},
		{PK: map[string]any{"fruit_id": "2"}, Payload: map[string]any{"fruit_id": "2", "name": "orange"}},
	}
	rowsB := []TableRow{rowsA[1], rowsA[0]}

	assert.Equal(t, HashSnap(cols(), rowsA), HashSnap(cols(), rowsB))
}

func TestHashSnap_DifferentContentDifferentHash(t *testing.T) {
	a := HashSnap(cols(), []TableRow{{PK: map[string]any{"fruit_id": "1"}, Payload: map[string]any{"name": "apple"}}})
	b := HashSnap(cols(), []TableRow{{PK: map[string]any{"fruit_id": "1"}, Payload: map[string]any{"name": "banana"}}})
	assert.NotEqual(t, a, b)
}

func TestHashDiff_IncludesParent(t *testing.T) {
	changes := []engine.ChangeRow{{PK: map[string]any{"fruit_id": "3"}, Kind: engine.ChangeInsert, Payload: map[string]any{"name": "mayonnaise"}}}
	a := HashDiff("parent-a", changes)
	b := HashDiff("parent-b", changes)
	assert.NotEqual(t, a, b)
}

func TestApply_InsertOnExistingPKIsCorruption(t *testing.T) {
	table := ToMap([]TableRow{{PK: map[string]any{"id": "1"}, Payload: map[string]any{"id": "1"}}})
	diff := &Object{ID: "d1", Kind: KindDiff, Changes: []engine.ChangeRow{
		{PK: map[string]any{"id": "1"}, Kind: engine.ChangeInsert, Payload: map[string]any{"id": "1"}},
	}}
	err := Apply(table, diff)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrObjectCorruption)
}

func TestApply_UpdateOnMissingPKIsCorruption(t *testing.T) {
	table := map[string]TableRow{}
	diff := &Object{ID: "d1", Kind: KindDiff, Changes: []engine.ChangeRow{
		{PK: map[string]any{"id": "1"}, Kind: engine.ChangeUpdate, Payload: map[string]any{"id": "1"}},
	}}
	err := Apply(table, diff)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrObjectCorruption)
}

func TestApply_DeleteOnMissingPKIsCorruption(t *testing.T) {
	table := map[string]TableRow{}
	diff := &Object{ID: "d1", Kind: KindDiff, Changes: []engine.ChangeRow{
		{PK: map[string]any{"id": "1"}, Kind: engine.ChangeDelete},
	}}
	err := Apply(table, diff)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrObjectCorruption)
}

func TestApply_InsertUpdateDeleteRoundTrip(t *testing.T) {
	table := map[string]TableRow{}
	insert := &Object{ID: "d1", Kind: KindDiff, Changes: []engine.ChangeRow{
		{PK: map[string]any{"id": "1"}, Kind: engine.ChangeInsert, Payload: map[string]any{"id": "1", "name": "apple"}},
	}}
	require.NoError(t, Apply(table, insert))
	assert.Len(t, table, 1)

	update := &Object{ID: "d2", Kind: KindDiff, Changes: []engine.ChangeRow{
		{PK: map[string]any{"id": "1"}, Kind: engine.ChangeUpdate, Payload: map[string]any{"id": "1", "name": "pear"}},
	}}
	require.NoError(t, Apply(table, update))
	assert.Equal(t, "pear", table[rowKey(map[string]any{"id": "1"})].Payload["name"])

	del := &Object{ID: "d3", Kind: KindDiff, Changes: []engine.ChangeRow{
		{PK: map[string]any{"id": "1"}, Kind: engine.ChangeDelete},
	}}
	require.NoError(t, Apply(table, del))
	assert.Empty(t, table)
}

func TestFromMapSortedRoundTrip(t *testing.T) {
	m := ToMap([]TableRow{
		{PK: map[string]any{"id": "2"}, Payload: map[string]any{"id": "2"}},
		{PK: map[string]any{"id": "1"}, Payload: map[string]any{"id": "1"}},
	})
	rows := FromMap(m)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0].PK["id"])
	assert.Equal(t, "2", rows[1].PK["id"])
}
