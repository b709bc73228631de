package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cxz/splitgraph/internal/splitfile"
)

var provenanceCmd = &cobra.Command{
	Use:   "provenance <repo>:<ref>",
	Short: "show the recorded sources and script that built an image",
	Args:  exactArgs(1, "provenance <repo>:<ref>"),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, ref := parseRepoRef(args[0])
		if ref == "" {
			return fmt.Errorf("%w: provenance requires a ref, e.g. repo:latest", errUsage)
		}
		ctx := ctxOf(cmd)
		hash, err := a.repo.ResolveImage(ctx, repo, ref)
		if err != nil {
			return err
		}

		exec := &splitfile.Executor{Repo: a.repo}
		rec, err := exec.Provenance(ctx, repo, hash)
		if err != nil {
			return err
		}
		fmt.Printf("image %s built from:\n", rec.ImageHash)
		for _, s := range rec.Sources {
			fmt.Printf("  %s:%s\n", s.Repository.Schema(), s.ImageHash)
		}
		fmt.Println("---")
		fmt.Println(rec.Script)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(provenanceCmd)
}
