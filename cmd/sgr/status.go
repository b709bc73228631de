package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cxz/splitgraph/internal/catalog"
)

var statusCmd = &cobra.Command{
	Use:   "status [repo]",
	Short: "list repositories, or show HEAD and pending changes for one",
	Args:  rangeArgs(0, 1, "status [repo]"),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxOf(cmd)
		if len(args) == 0 {
			repos, err := a.catalog.ListRepositories(ctx)
			if err != nil {
				return err
			}
			if wantsJSON() {
				return emitJSON(repos)
			}
			for _, r := range repos {
				fmt.Println(r.Schema())
			}
			return nil
		}

		repo, ref := parseRepoRef(args[0])
		if ref != "" {
			return fmt.Errorf("%w: status takes a bare repository, not a ref", errUsage)
		}
		head, err := a.catalog.GetTag(ctx, repo, catalog.ReservedTagHead)
		if err != nil {
			return err
		}
		if head == "" {
			if wantsJSON() {
				return emitJSON(map[string]any{"repository": repo.Schema(), "head": nil})
			}
			fmt.Printf("%s: no checked-out image\n", repo.Schema())
			return nil
		}

		dirty, err := a.repo.UncommittedChanges(ctx, repo)
		if err != nil {
			return err
		}
		if wantsJSON() {
			return emitJSON(map[string]any{"repository": repo.Schema(), "head": head, "dirty": dirty})
		}
		fmt.Printf("%s: HEAD %s\n", repo.Schema(), head)
		if dirty {
			fmt.Println("  uncommitted changes present")
		} else {
			fmt.Println("  clean")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
