package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cxz/splitgraph/internal/catalog"
)

func TestMissingHashes(t *testing.T) {
	have := []string{"a", "b", "c"}
	has := []string{"b"}
	assert.Equal(t, []string{"a", "c"}, missingHashes(have, has))
	assert.Empty(t, missingHashes(nil, has))
}

func TestTopoOrderImagesParentsFirst(t *testing.T) {
	images := []catalog.Image{
		{ImageHash: "c", ParentID: "b"},
		{ImageHash: "a", ParentID: ""},
		{ImageHash: "b", ParentID: "a"},
	}
	ordered := topoOrderImages(images)
	pos := make(map[string]int, len(ordered))
	for i, img := range ordered {
		pos[img.ImageHash] = i
	}
	assert.Less(t, pos["a"], pos["b"])
	assert.Less(t, pos["b"], pos["c"])
}

func TestTopoOrderImagesIgnoresParentOutsideSet(t *testing.T) {
	images := []catalog.Image{
		{ImageHash: "child", ParentID: catalog.RootImage},
	}
	ordered := topoOrderImages(images)
	assert.Len(t, ordered, 1)
	assert.Equal(t, "child", ordered[0].ImageHash)
}

func TestEnsureNoTagConflict(t *testing.T) {
	tags := map[string]string{"latest": "hash1"}
	assert.NoError(t, ensureNoTagConflict(tags, "latest", "hash1"))
	assert.NoError(t, ensureNoTagConflict(tags, "other", "hash2"))
	assert.Error(t, ensureNoTagConflict(tags, "latest", "hash2"))
}

func TestTableEntriesEqual(t *testing.T) {
	a := []catalog.TableEntry{{TableName: "t1", ObjectIDs: []string{"o1", "o2"}}}
	b := []catalog.TableEntry{{TableName: "t1", ObjectIDs: []string{"o1", "o2"}}}
	assert.True(t, tableEntriesEqual(a, b))

	c := []catalog.TableEntry{{TableName: "t1", ObjectIDs: []string{"o1", "o3"}}}
	assert.False(t, tableEntriesEqual(a, c))
}

func TestBoolSet(t *testing.T) {
	s := boolSet([]string{"x", "y"})
	assert.True(t, s["x"])
	assert.True(t, s["y"])
	assert.False(t, s["z"])
}
