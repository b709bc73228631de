package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cxz/splitgraph/internal/mount"
)

var mountCmd = &cobra.Command{
	Use:   "mount <handler> <mountpoint> <conn> [option=value ...]",
	Short: "mount a foreign dataset as a schema of live tables",
	Args:  rangeArgs(3, 32, "mount <handler> <mountpoint> <conn> [option=value ...]"),
	RunE: func(cmd *cobra.Command, args []string) error {
		options := make(map[string]string, len(args)-3)
		for _, kv := range args[3:] {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("%w: mount option %q must be key=value", errUsage, kv)
			}
			options[k] = v
		}
		schema, err := a.mounts.Mount(ctxOf(cmd), a.engine, args[0], args[1], args[2], options)
		if err != nil {
			return err
		}
		fmt.Printf("mounted %s via %s\n", schema, args[0])
		return nil
	},
}

var unmountCmd = &cobra.Command{
	Use:   "unmount <mountpoint>",
	Short: "tear down a foreign mount",
	Args:  exactArgs(1, "unmount <mountpoint>"),
	RunE: func(cmd *cobra.Command, args []string) error {
		return a.mounts.Unmount(ctxOf(cmd), a.engine, args[0])
	},
}

var mountHandlersCmd = &cobra.Command{
	Use:   "mount-handlers",
	Short: "list registered foreign mount handlers",
	Args:  exactArgs(0, "mount-handlers"),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range mount.Names() {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mountCmd, unmountCmd, mountHandlersCmd)
}
