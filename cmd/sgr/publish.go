package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// publishCmd is a stub per spec.md's own out-of-scope note on
// "publishing README/preview metadata": it only verifies the tag
// resolves and echoes what would be published, it does not write any
// README/preview metadata anywhere.
var publishCmd = &cobra.Command{
	Use:   "publish <repo> <tag> [-r readme]",
	Short: "verify a tagged image resolves and is ready to publish",
	Args:  exactArgs(2, "publish <repo> <tag> [-r readme]"),
	RunE: func(cmd *cobra.Command, args []string) error {
		readmePath, _ := cmd.Flags().GetString("readme")
		repo, ref := parseRepoRef(args[0])
		if ref != "" {
			return fmt.Errorf("%w: publish takes a bare repository, not a ref", errUsage)
		}
		hash, err := a.repo.ResolveImage(ctxOf(cmd), repo, args[1])
		if err != nil {
			return err
		}
		if readmePath != "" {
			if _, err := os.Stat(readmePath); err != nil {
				return err
			}
		}
		fmt.Printf("%s:%s (%s) is ready to publish\n", repo.Schema(), args[1], hash)
		return nil
	},
}

func init() {
	publishCmd.Flags().StringP("readme", "r", "", "readme file to accompany the published image")
	rootCmd.AddCommand(publishCmd)
}
