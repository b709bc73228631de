package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune <repo>",
	Short: "delete every image in repo unreachable from any tag",
	Args:  exactArgs(1, "prune <repo>"),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, ref := parseRepoRef(args[0])
		if ref != "" {
			return fmt.Errorf("%w: prune takes a bare repository, not a ref", errUsage)
		}
		n, err := a.repo.Prune(ctxOf(cmd), repo)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d image(s)\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}
