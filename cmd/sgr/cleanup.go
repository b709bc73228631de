package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "physically delete objects unreferenced by any repository",
	Args:  exactArgs(0, "cleanup"),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := a.repo.Cleanup(ctxOf(cmd))
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d object(s)\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
