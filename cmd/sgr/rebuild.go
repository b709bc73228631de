package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cxz/splitgraph/internal/splitfile"
	"github.com/cxz/splitgraph/internal/sync"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild <repo>:<ref> [source=tag_or_hash ...] [--param key=value ...]",
	Short: "re-execute the Splitfile that produced an image, with optional source/param overrides",
	Args:  rangeArgs(1, 64, "rebuild <repo>:<ref> [source=tag_or_hash ...]"),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, ref := parseRepoRef(args[0])
		if ref == "" {
			return fmt.Errorf("%w: rebuild requires a ref, e.g. repo:latest", errUsage)
		}
		ctx := ctxOf(cmd)
		hash, err := a.repo.ResolveImage(ctx, repo, ref)
		if err != nil {
			return err
		}

		subs, err := parseParams(args[1:])
		if err != nil {
			return err
		}
		paramsFlag, _ := cmd.Flags().GetStringToString("param")

		exec := &splitfile.Executor{
			Repo: a.repo,
			Cloner: &sync.DialCloner{
				Local: &sync.Peer{Engine: a.engine, Catalog: a.catalog, Objects: a.objects},
			},
		}
		result, err := exec.Rebuild(ctx, repo, hash, subs, paramsFlag)
		if err != nil {
			return err
		}
		fmt.Printf("%s: rebuilt %s\n", result.OutputRepo.Schema(), result.ImageHash)
		return nil
	},
}

func init() {
	rebuildCmd.Flags().StringToString("param", nil, "fresh $PARAM substitutions, e.g. --param DATE=2026-07-31")
	rootCmd.AddCommand(rebuildCmd)
}
