package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <repo>[:ref]",
	Short: "list the tables recorded in an image",
	Args:  exactArgs(1, "show <repo>[:ref]"),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, ref := parseRepoRef(args[0])
		entries, err := a.repo.Show(ctxOf(cmd), repo, ref)
		if err != nil {
			return err
		}
		if wantsJSON() {
			return emitJSON(entries)
		}
		for _, e := range entries {
			fmt.Printf("%s\t%d columns\t%d objects\n", e.TableName, len(e.Columns), len(e.ObjectIDs))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
