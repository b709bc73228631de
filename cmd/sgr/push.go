package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pushCmd = &cobra.Command{
	Use:   "push <repo> [<remote-dsn>]",
	Short: "upload every local image the upstream (or given remote) lacks",
	Args:  rangeArgs(1, 2, "push <repo> [<remote-dsn>]"),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, ref := parseRepoRef(args[0])
		if ref != "" {
			return fmt.Errorf("%w: push takes a bare repository, not a ref", errUsage)
		}
		ctx := ctxOf(cmd)

		remoteDSN := ""
		if len(args) == 2 {
			remoteDSN = args[1]
		} else {
			up, err := a.catalog.GetUpstream(ctx, repo)
			if err != nil {
				return fmt.Errorf("push %s: no remote given and no upstream configured: %w", repo.Schema(), err)
			}
			remoteDSN = up.RemoteEngineName
		}

		syncer, closeRemote, err := dialSyncer(ctx, remoteDSN)
		if err != nil {
			return err
		}
		defer closeRemote()

		if err := syncer.Push(ctx, repo); err != nil {
			return err
		}
		fmt.Printf("pushed %s\n", repo.Schema())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)
}
