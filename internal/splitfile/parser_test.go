package splitfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessLineContinuationAndParams(t *testing.T) {
	script := "SQL SELECT * \\\nFROM $TABLE WHERE x = \\$literal"
	out, err := Preprocess(script, map[string]string{"TABLE": "orders"})
	require.NoError(t, err)
	assert.Equal(t, "SQL SELECT * FROM orders WHERE x = $literal", out)
}

func TestPreprocessUnresolvedParamFails(t *testing.T) {
	_, err := Preprocess("SQL SELECT * FROM $MISSING", nil)
	assert.Error(t, err)
}

func TestParseOutputImportSql(t *testing.T) {
	script := `# build orders
OUTPUT myorg/orders
FROM source/raw:latest IMPORT customers, items AS line_items
SQL UPDATE customers SET active = true`

	cmds, err := Parse(script)
	require.NoError(t, err)
	require.Len(t, cmds, 4)

	_, ok := cmds[0].(Comment)
	assert.True(t, ok)

	out, ok := cmds[1].(Output)
	require.True(t, ok)
	assert.Equal(t, "myorg/orders", out.Repo)
	assert.Empty(t, out.ImageHash)

	imp, ok := cmds[2].(Import)
	require.True(t, ok)
	assert.Equal(t, "source/raw", imp.Repo)
	assert.Equal(t, "latest", imp.Tag)
	require.Len(t, imp.Tables, 2)
	assert.Equal(t, ImportTable{Name: "customers", Alias: "customers"}, imp.Tables[0])
	assert.Equal(t, ImportTable{Name: "items", Alias: "line_items"}, imp.Tables[1])

	sql, ok := cmds[3].(Sql)
	require.True(t, ok)
	assert.Equal(t, "UPDATE customers SET active = true", sql.Statement)
}

func TestParseImportWithConnString(t *testing.T) {
	cmds, err := Parse("FROM user:pwd@host:5432/db source/raw IMPORT t1")
	require.NoError(t, err)
	imp := cmds[0].(Import)
	assert.Equal(t, "user:pwd@host:5432/db", imp.ConnString)
	assert.Equal(t, "source/raw", imp.Repo)
}

func TestParseRejectsUnknownCommand(t *testing.T) {
	_, err := Parse("FROB something")
	assert.Error(t, err)
}

func TestCanonicalizeSQL(t *testing.T) {
	assert.Equal(t, "select 1 from t", canonicalizeSQL("  SELECT   1\nFROM  T  "))
}

func TestSQLTargetHashDeterministic(t *testing.T) {
	h1 := sqlTargetHash("head1", canonicalizeSQL("SELECT 1"))
	h2 := sqlTargetHash("head1", canonicalizeSQL("select   1"))
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, sqlTargetHash("head2", canonicalizeSQL("SELECT 1")))
}

func TestImportTargetHashOrderSensitive(t *testing.T) {
	t1 := []ImportTable{{Name: "a", Alias: "a"}, {Name: "b", Alias: "b"}}
	t2 := []ImportTable{{Name: "b", Alias: "b"}, {Name: "a", Alias: "a"}}
	assert.NotEqual(t, importTargetHash("head", "src", t1), importTargetHash("head", "src", t2))
}
