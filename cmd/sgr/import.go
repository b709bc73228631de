package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cxz/splitgraph/internal/repository"
)

var importCmd = &cobra.Command{
	Use:   "import <source>:<ref> <table> <target> [<target-table>]",
	Short: "bind a table, or the result of a query, from another repository's image",
	Args:  rangeArgs(3, 4, "import <source>:<ref> <table-or-query> <target> [<target-table>]"),
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		sourceRepo, sourceRef := parseRepoRef(args[0])
		if sourceRef == "" {
			return fmt.Errorf("%w: import requires a source ref, e.g. repo:latest", errUsage)
		}
		targetRepo, ref := parseRepoRef(args[2])
		if ref != "" {
			return fmt.Errorf("%w: import's target is a bare repository, not a ref", errUsage)
		}

		opts := repository.ImportOptions{SourceRepo: sourceRepo, SourceRef: sourceRef}
		targetTable := args[1]
		if query != "" {
			opts.Query = query
		} else {
			opts.TableName = args[1]
		}
		if len(args) == 4 {
			targetTable = args[3]
		}
		opts.TargetName = targetTable

		ctx := ctxOf(cmd)
		target, err := a.repo.Import(ctx, targetRepo, opts)
		if err != nil {
			return err
		}
		comment := fmt.Sprintf("IMPORT %s from %s:%s", targetTable, args[0], sourceRef)
		hash, err := a.repo.Commit(ctx, targetRepo, repository.CommitOptions{
			TargetHash: target, Comment: comment,
		})
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	importCmd.Flags().String("query", "", "run this query against the source schema instead of importing a table directly")
	rootCmd.AddCommand(importCmd)
}
