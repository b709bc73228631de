package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <repo>:<ref>",
	Short: "delete an image and every image descended from it",
	Args:  exactArgs(1, "rm <repo>:<ref>"),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, ref := parseRepoRef(args[0])
		if ref == "" {
			return fmt.Errorf("%w: rm requires a ref, e.g. repo:latest", errUsage)
		}
		return a.repo.Rm(ctxOf(cmd), repo, ref)
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
