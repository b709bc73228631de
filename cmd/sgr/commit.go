package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cxz/splitgraph/internal/repository"
)

var commitCmd = &cobra.Command{
	Use:   "commit <repo>",
	Short: "snapshot the checked-out schema's live state into a new image",
	Args:  exactArgs(1, "commit <repo> [-m comment] [-s]"),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, ref := parseRepoRef(args[0])
		if ref != "" {
			return fmt.Errorf("%w: commit takes a bare repository, not a ref", errUsage)
		}
		comment, _ := cmd.Flags().GetString("message")
		forceSnap, _ := cmd.Flags().GetBool("snap")

		hash, err := a.repo.Commit(ctxOf(cmd), repo, repository.CommitOptions{
			Comment:   comment,
			ForceSnap: forceSnap,
		})
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	commitCmd.Flags().StringP("message", "m", "", "commit comment")
	commitCmd.Flags().BoolP("snap", "s", false, "force every table to a fresh SNAP")
	rootCmd.AddCommand(commitCmd)
}
