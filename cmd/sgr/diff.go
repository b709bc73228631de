package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cxz/splitgraph/internal/repository"
)

var diffCmd = &cobra.Command{
	Use:   "diff <repo>[:from] [<repo>:to]",
	Short: "show added/removed row counts between two images, or an image and pending changes",
	Args:  rangeArgs(1, 2, "diff <repo>[:from] [<repo>:to]"),
	RunE: func(cmd *cobra.Command, args []string) error {
		detail, _ := cmd.Flags().GetBool("verbose")
		repo, fromRef := parseRepoRef(args[0])
		toRef := ""
		if len(args) == 2 {
			_, toRef = parseRepoRef(args[1])
		}

		ctx := ctxOf(cmd)
		var diffs []repository.TableDiff
		err := withUpstreamFetcher(ctx, repo, func() error {
			var err error
			diffs, err = a.repo.Diff(ctx, repo, fromRef, toRef, detail)
			return err
		})
		if err != nil {
			return err
		}
		if len(diffs) == 0 {
			fmt.Println("no differences")
			return nil
		}
		for _, d := range diffs {
			fmt.Printf("%s: +%d -%d\n", d.TableName, d.Added, d.Removed)
			for _, c := range d.Changes {
				fmt.Printf("  %s %v\n", c.Kind, c.PK)
			}
		}
		return nil
	},
}

func init() {
	diffCmd.Flags().BoolP("verbose", "v", false, "print row-level change detail")
	rootCmd.AddCommand(diffCmd)
}
