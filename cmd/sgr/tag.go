package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tagCmd = &cobra.Command{
	Use:   "tag <repo>:<ref> <tag>",
	Short: "bind a new tag name to an image",
	Args:  exactArgs(2, "tag <repo>:<ref> <tag>"),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, ref := parseRepoRef(args[0])
		if ref == "" {
			return fmt.Errorf("%w: tag requires a ref, e.g. repo:latest", errUsage)
		}
		return a.repo.Tag(ctxOf(cmd), repo, args[1], ref)
	},
}

var untagCmd = &cobra.Command{
	Use:   "untag <repo> <tag>",
	Short: "remove a tag",
	Args:  exactArgs(2, "untag <repo> <tag>"),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, ref := parseRepoRef(args[0])
		if ref != "" {
			return fmt.Errorf("%w: untag takes a bare repository, not a ref", errUsage)
		}
		return a.repo.Untag(ctxOf(cmd), repo, args[1])
	},
}

func init() {
	rootCmd.AddCommand(tagCmd, untagCmd)
}
