// Command sgr is the CLI surface of spec.md §6: status, sql, init,
// checkout, commit, diff, show, log, tag, import, clone/pull/push, rm,
// cleanup, prune, mount, build, rebuild, provenance, publish, upstream,
// and config, each a thin wrapper over internal/repository,
// internal/splitfile, internal/sync, and internal/mount.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		fmt.Fprintln(os.Stderr, "sgr:", err)
		return 1
	}
	return 0
}
