package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init <repo>",
	Short: "create an empty repository",
	Args:  exactArgs(1, "init <repo>"),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, ref := parseRepoRef(args[0])
		if ref != "" {
			return fmt.Errorf("%w: init takes a bare repository, not a ref", errUsage)
		}
		if err := a.repo.Init(ctxOf(cmd), repo); err != nil {
			return err
		}
		fmt.Printf("initialized %s\n", repo.Schema())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
