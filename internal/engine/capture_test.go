package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowsFixture(rows ...[]any) *Rows {
	return &Rows{
		Columns: []string{"row_seq", "pk_json", "kind", "payload_json"},
		Data:    rows,
	}
}

func TestCollapseChangeRows_InsertThenDeleteCancels(t *testing.T) {
	rows := rowsFixture(
		[]any{int64(1), `{"id":"1"}`, "insert", `{"id":"1","name":"a"}`},
		[]any{int64(2), `{"id":"1"}`, "delete", nil},
	)
	out, err := collapseChangeRows(rows)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCollapseChangeRows_InsertThenUpdateCollapsesToInsertWithFinalPayload(t *testing.T) {
	rows := rowsFixture(
		[]any{int64(1), `{"id":"1"}`, "insert", `{"id":"1","name":"a"}`},
		[]any{int64(2), `{"id":"1"}`, "update", `{"id":"1","name":"b"}`},
	)
	out, err := collapseChangeRows(rows)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, ChangeInsert, out[0].Kind)
	assert.Equal(t, "b", out[0].Payload["name"])
}

func TestCollapseChangeRows_UpdateThenDeleteYieldsDelete(t *testing.T) {
	rows := rowsFixture(
		[]any{int64(1), `{"id":"1"}`, "update", `{"id":"1","name":"a"}`},
		[]any{int64(2), `{"id":"1"}`, "delete", nil},
	)
	out, err := collapseChangeRows(rows)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, ChangeDelete, out[0].Kind)
}

func TestCollapseChangeRows_UpdateThenUpdateKeepsLastPayload(t *testing.T) {
	rows := rowsFixture(
		[]any{int64(1), `{"id":"1"}`, "update", `{"id":"1","name":"a"}`},
		[]any{int64(2), `{"id":"1"}`, "update", `{"id":"1","name":"b"}`},
	)
	out, err := collapseChangeRows(rows)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].Payload["name"])
}

func TestCollapseChangeRows_PreservesFirstSeenOrderAcrossKeys(t *testing.T) {
	rows := rowsFixture(
		[]any{int64(1), `{"id":"2"}`, "insert", `{"id":"2"}`},
		[]any{int64(2), `{"id":"1"}`, "insert", `{"id":"1"}`},
	)
	out, err := collapseChangeRows(rows)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "2", out[0].PK["id"])
	assert.Equal(t, "1", out[1].PK["id"])
}

func TestCollapseChangeRows_MalformedJSONIsCorruption(t *testing.T) {
	rows := rowsFixture([]any{int64(1), `not-json`, "insert", nil})
	_, err := collapseChangeRows(rows)
	require.Error(t, err)
}

func TestParseDSN(t *testing.T) {
	driver, ds, err := parseDSN("mysql://root:pw@localhost:3306/sgr")
	require.NoError(t, err)
	assert.Equal(t, "mysql", driver)
	assert.Equal(t, "root:pw@tcp(localhost:3306)/sgr", ds)

	driver, ds, err = parseDSN("dolt:///tmp/sgr-db")
	require.NoError(t, err)
	assert.Equal(t, "dolt", driver)
	assert.Equal(t, "/tmp/sgr-db", ds)

	_, _, err = parseDSN("postgres://localhost/x")
	require.Error(t, err)
}
