package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cxz/splitgraph/internal/splitfile"
	"github.com/cxz/splitgraph/internal/sync"
)

var buildCmd = &cobra.Command{
	Use:   "build <splitfile-path> [key=value ...]",
	Short: "execute a Splitfile and produce an image",
	Args:  rangeArgs(1, 32, "build <splitfile-path> [key=value ...]"),
	RunE: func(cmd *cobra.Command, args []string) error {
		script, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		params, err := parseParams(args[1:])
		if err != nil {
			return err
		}

		exec := &splitfile.Executor{
			Repo: a.repo,
			Cloner: &sync.DialCloner{
				Local: &sync.Peer{Engine: a.engine, Catalog: a.catalog, Objects: a.objects},
			},
		}
		result, err := exec.Execute(ctxOf(cmd), string(script), params)
		if err != nil {
			return err
		}
		fmt.Printf("%s: built %s\n", result.OutputRepo.Schema(), result.ImageHash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func parseParams(args []string) (map[string]string, error) {
	params := make(map[string]string, len(args))
	for _, kv := range args {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("%w: parameter %q must be key=value", errUsage, kv)
		}
		params[k] = v
	}
	return params, nil
}
