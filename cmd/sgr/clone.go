package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cxz/splitgraph/internal/catalog"
)

var cloneCmd = &cobra.Command{
	Use:   "clone <remote-dsn> <repo>",
	Short: "register a repository locally and pull every image the remote has",
	Args:  exactArgs(2, "clone <remote-dsn> <repo> [--download-all]"),
	RunE: func(cmd *cobra.Command, args []string) error {
		downloadAll, _ := cmd.Flags().GetBool("download-all")
		remoteDSN := args[0]
		repo, ref := parseRepoRef(args[1])
		if ref != "" {
			return fmt.Errorf("%w: clone takes a bare repository, not a ref", errUsage)
		}
		ctx := ctxOf(cmd)

		syncer, closeRemote, err := dialSyncer(ctx, remoteDSN)
		if err != nil {
			return err
		}
		defer closeRemote()

		if err := syncer.Clone(ctx, repo, downloadAll); err != nil {
			return err
		}
		if err := a.catalog.SetUpstream(ctx, catalog.Upstream{
			Repository: repo, RemoteEngineName: remoteDSN, RemoteRepository: repo.Schema(),
		}); err != nil {
			return err
		}
		fmt.Printf("cloned %s\n", repo.Schema())
		return nil
	},
}

func init() {
	cloneCmd.Flags().Bool("download-all", false, "fetch every object body now instead of lazily on first checkout")
	rootCmd.AddCommand(cloneCmd)
}
