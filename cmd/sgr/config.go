package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cxz/splitgraph/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "inspect or initialize sgr's configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "print the resolved configuration",
	Args:  exactArgs(0, "config show"),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		fmt.Printf("engine-dsn: %s\n", cfg.EngineDSN)
		fmt.Printf("namespace: %s\n", cfg.DefaultNamespace)
		fmt.Printf("compaction-threshold: %d\n", cfg.CompactionThreshold)
		fmt.Printf("retry-max-attempts: %d\n", cfg.RetryMaxAttempts)
		fmt.Printf("sync-concurrency: %d\n", cfg.SyncConcurrency)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "write a .sgr/config.toml with default settings in the current directory",
	Args:  exactArgs(0, "config init"),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.WriteDefault(".")
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}
