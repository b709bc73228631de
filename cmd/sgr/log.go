package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log <repo>[:ref]",
	Short: "walk an image's ancestry back to the root",
	Args:  exactArgs(1, "log <repo>[:ref]"),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, ref := parseRepoRef(args[0])
		images, err := a.repo.Log(ctxOf(cmd), repo, ref)
		if err != nil {
			return err
		}
		if wantsJSON() {
			return emitJSON(images)
		}
		for _, img := range images {
			fmt.Printf("%s %s %q\n", img.ImageHash, img.CreatedAt.Format("2006-01-02T15:04:05Z"), img.Comment)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
}
