package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cxz/splitgraph/internal/apperrors"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout <repo>[:ref]",
	Short: "check out an image, or uncheckout with -u",
	Args:  exactArgs(1, "checkout <repo>[:ref] [-f] [-u]"),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		uncheckout, _ := cmd.Flags().GetBool("uncheckout")
		repo, ref := parseRepoRef(args[0])
		ctx := ctxOf(cmd)

		if uncheckout {
			if err := a.repo.Uncheckout(ctx, repo, force); err != nil {
				if errors.Is(err, apperrors.ErrUncommittedChanges) {
					fmt.Println("uncommitted changes present; use -f to discard")
				}
				return err
			}
			fmt.Printf("%s: uncheckout complete\n", repo.Schema())
			return nil
		}

		if ref == "" {
			ref = "latest"
		}
		var hash string
		err := withUpstreamFetcher(ctx, repo, func() error {
			var err error
			hash, err = a.repo.Checkout(ctx, repo, ref, force)
			return err
		})
		if err != nil {
			if errors.Is(err, apperrors.ErrUncommittedChanges) {
				fmt.Println("uncommitted changes present; use -f to discard")
			}
			return err
		}
		fmt.Printf("%s: checked out %s\n", repo.Schema(), hash)
		return nil
	},
}

func init() {
	checkoutCmd.Flags().BoolP("force", "f", false, "discard pending changes")
	checkoutCmd.Flags().BoolP("uncheckout", "u", false, "uncheckout instead of checking out")
	rootCmd.AddCommand(checkoutCmd)
}
