package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var sqlCmd = &cobra.Command{
	Use:   "sql [--schema S] <stmt>",
	Short: "execute ad-hoc SQL and print the result textually",
	Args:  exactArgs(1, "sql [--schema S] \"<stmt>\""),
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, _ := cmd.Flags().GetString("schema")
		stmt := args[0]
		if schema != "" {
			if _, err := a.engine.QueryAll(ctxOf(cmd), fmt.Sprintf("USE `%s`", schema)); err != nil {
				return err
			}
		}
		rows, err := a.engine.QueryAll(ctxOf(cmd), stmt)
		if err != nil {
			return err
		}
		if rows == nil || len(rows.Columns) == 0 {
			fmt.Println("OK")
			return nil
		}
		fmt.Println(strings.Join(rows.Columns, "\t"))
		for _, row := range rows.Data {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = fmt.Sprintf("%v", v)
			}
			fmt.Println(strings.Join(cells, "\t"))
		}
		return nil
	},
}

func init() {
	sqlCmd.Flags().String("schema", "", "schema to run the statement against")
	rootCmd.AddCommand(sqlCmd)
}
