package mount

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cxz/splitgraph/internal/engine"
)

// FileCSV mounts a directory of CSV files as a schema of plain tables,
// one table per file (basename minus extension), first row as the
// header. It is the one reference Handler implementation spec.md §4.7
// calls for to exercise the interface end-to-end; real mount handlers
// (foreign databases, document stores) are external collaborators.
type FileCSV struct{}

// Mount reads every *.csv file directly under conn (a directory path)
// and loads each into its own table in schema. There is no live
// connection to hold open afterward — CSV files are snapshotted at
// mount time, matching spec.md §4.7's "data is snapshotted at import
// time" for foreign-mounted sources.
func (FileCSV) Mount(ctx context.Context, eng engine.Engine, schema, conn string, options map[string]string) error {
	entries, err := os.ReadDir(conn)
	if err != nil {
		return fmt.Errorf("filecsv mount %q: %w", conn, err)
	}
	if err := eng.CreateSchema(ctx, schema); err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		table := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if err := loadCSVFile(ctx, eng, schema, table, filepath.Join(conn, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func loadCSVFile(ctx context.Context, eng engine.Engine, schema, table, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("filecsv: reading header of %s: %w", path, err)
	}

	cols := make([]engine.ColumnDef, len(header))
	for i, name := range header {
		cols[i] = engine.ColumnDef{Ordinal: i + 1, Name: name, Type: "TEXT"}
	}
	if err := eng.CreateTable(ctx, schema, table, cols); err != nil {
		return err
	}

	quoted := make([]string, len(header))
	for i, name := range header {
		quoted[i] = "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	placeholders := strings.TrimRight(strings.Repeat("?, ", len(header)), ", ")
	stmt := fmt.Sprintf("INSERT INTO `%s`.`%s` (%s) VALUES (%s)", schema, table, strings.Join(quoted, ", "), placeholders)

	var batch [][]any
	for {
		record, err := r.Read()
		if err != nil {
			break // io.EOF or malformed trailing line: stop, CSV mounting is best-effort
		}
		row := make([]any, len(record))
		for i, v := range record {
			row[i] = v
		}
		batch = append(batch, row)
	}
	if len(batch) == 0 {
		return nil
	}
	return eng.RunBatch(ctx, stmt, batch)
}

// Unmount drops every table filecsv created in schema.
func (FileCSV) Unmount(ctx context.Context, eng engine.Engine, schema string) error {
	return eng.DropSchema(ctx, schema)
}

func init() {
	Register("filecsv", FileCSV{})
}
