package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cxz/splitgraph/internal/catalog"
)

var upstreamCmd = &cobra.Command{
	Use:   "upstream",
	Short: "inspect or change a repository's default pull/push remote",
}

var upstreamSetCmd = &cobra.Command{
	Use:   "set <repo> <remote-dsn> [<remote-repo>]",
	Short: "set the default remote for push/pull",
	Args:  rangeArgs(2, 3, "upstream set <repo> <remote-dsn> [<remote-repo>]"),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, ref := parseRepoRef(args[0])
		if ref != "" {
			return fmt.Errorf("%w: upstream set takes a bare repository, not a ref", errUsage)
		}
		remoteRepo := repo.Schema()
		if len(args) == 3 {
			remoteRepo = args[2]
		}
		return a.catalog.SetUpstream(ctxOf(cmd), catalog.Upstream{
			Repository: repo, RemoteEngineName: args[1], RemoteRepository: remoteRepo,
		})
	},
}

var upstreamGetCmd = &cobra.Command{
	Use:   "get <repo>",
	Short: "show the current upstream",
	Args:  exactArgs(1, "upstream get <repo>"),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, _ := parseRepoRef(args[0])
		up, err := a.catalog.GetUpstream(ctxOf(cmd), repo)
		if err != nil {
			return err
		}
		fmt.Printf("%s -> %s (%s)\n", repo.Schema(), up.RemoteRepository, up.RemoteEngineName)
		return nil
	},
}

var upstreamResetCmd = &cobra.Command{
	Use:   "reset <repo>",
	Short: "remove the upstream pointer",
	Args:  exactArgs(1, "upstream reset <repo>"),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, _ := parseRepoRef(args[0])
		return a.catalog.ResetUpstream(ctxOf(cmd), repo)
	},
}

func init() {
	upstreamCmd.AddCommand(upstreamSetCmd, upstreamGetCmd, upstreamResetCmd)
	rootCmd.AddCommand(upstreamCmd)
}
