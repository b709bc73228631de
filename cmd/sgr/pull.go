package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pullCmd = &cobra.Command{
	Use:   "pull <repo> [<remote-dsn>]",
	Short: "fetch every image the upstream (or given remote) has that repo lacks",
	Args:  rangeArgs(1, 2, "pull <repo> [<remote-dsn>] [--download-all]"),
	RunE: func(cmd *cobra.Command, args []string) error {
		downloadAll, _ := cmd.Flags().GetBool("download-all")
		repo, ref := parseRepoRef(args[0])
		if ref != "" {
			return fmt.Errorf("%w: pull takes a bare repository, not a ref", errUsage)
		}
		ctx := ctxOf(cmd)

		remoteDSN := ""
		if len(args) == 2 {
			remoteDSN = args[1]
		} else {
			up, err := a.catalog.GetUpstream(ctx, repo)
			if err != nil {
				return fmt.Errorf("pull %s: no remote given and no upstream configured: %w", repo.Schema(), err)
			}
			remoteDSN = up.RemoteEngineName
		}

		syncer, closeRemote, err := dialSyncer(ctx, remoteDSN)
		if err != nil {
			return err
		}
		defer closeRemote()

		if err := syncer.Pull(ctx, repo, downloadAll); err != nil {
			return err
		}
		fmt.Printf("pulled into %s\n", repo.Schema())
		return nil
	},
}

func init() {
	pullCmd.Flags().Bool("download-all", false, "fetch every object body now instead of lazily on first checkout")
	rootCmd.AddCommand(pullCmd)
}
