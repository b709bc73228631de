package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cxz/splitgraph/internal/catalog"
	"github.com/cxz/splitgraph/internal/config"
	"github.com/cxz/splitgraph/internal/engine"
	"github.com/cxz/splitgraph/internal/mount"
	"github.com/cxz/splitgraph/internal/objects"
	"github.com/cxz/splitgraph/internal/repository"
)

// errUsage marks an error as a usage error (bad arguments/flags),
// mapped to exit code 2 per spec.md §7; everything else a command
// returns is a user-visible failure, exit code 1.
var errUsage = errors.New("usage error")

// app bundles the wired collaborators every subcommand's RunE needs.
// It is built once in rootCmd's PersistentPreRunE and torn down in
// PersistentPostRunE.
type app struct {
	cfg     *config.Config
	engine  engine.Engine
	catalog *catalog.Store
	objects *objects.Store
	repo    *repository.API
	mounts  *mount.Registry
}

var a *app

func setupApp(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	eng, err := engine.Open(ctx, cfg.EngineDSN)
	if err != nil {
		return err
	}
	cat, err := catalog.NewStore(ctx, eng)
	if err != nil {
		eng.Close()
		return err
	}
	objStore, err := objects.NewStore(ctx, eng)
	if err != nil {
		eng.Close()
		return err
	}
	objStore.CompactionThreshold = cfg.CompactionThreshold

	mounts := mount.NewRegistry()
	repoAPI := repository.New(eng, cat, objStore)
	repoAPI.Mounts = mounts

	a = &app{
		cfg:     cfg,
		engine:  eng,
		catalog: cat,
		objects: objStore,
		repo:    repoAPI,
		mounts:  mounts,
	}
	return nil
}

func teardownApp() error {
	if a == nil || a.engine == nil {
		return nil
	}
	return a.engine.Close()
}

// parseRepoRef splits "namespace/name[:ref]" into a repository and an
// optional ref, defaulting ref to "" when absent. A bare name with no
// "/" takes the configured default namespace (spec.md's "namespace,
// name" identity), same as the teacher resolving an unqualified
// reference against its own configured default.
func parseRepoRef(s string) (catalog.Repository, string) {
	name, ref := s, ""
	if i := strings.LastIndex(s, ":"); i >= 0 {
		name, ref = s[:i], s[i+1:]
	}
	var repo catalog.Repository
	if i := strings.Index(name, "/"); i >= 0 {
		repo = catalog.Repository{Namespace: name[:i], Name: name[i+1:]}
	} else {
		repo = catalog.Repository{Namespace: wantsDefaultNamespace(), Name: name}
	}
	return repo, ref
}

// wantsDefaultNamespace returns the configured default namespace, or
// "" before app setup has run (e.g. usage errors raised by Args
// validators, which fire before PersistentPreRunE).
func wantsDefaultNamespace() string {
	if a == nil {
		return ""
	}
	return a.cfg.DefaultNamespace
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("%w: %s", errUsage, usage)
		}
		return nil
	}
}

func rangeArgs(min, max int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < min || len(args) > max {
			return fmt.Errorf("%w: %s", errUsage, usage)
		}
		return nil
	}
}

func ctxOf(cmd *cobra.Command) context.Context {
	return cmd.Context()
}

// wantsJSON reports whether the current invocation asked for machine-
// readable output, mirroring the teacher's global jsonOutput switch
// (cmd/bd's --json flag, checked throughout its read commands).
func wantsJSON() bool {
	return a != nil && a.cfg.JSONOutput
}

// emitJSON writes v to stdout as indented JSON, the machine-readable
// branch status/show/log take when --json is set.
func emitJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
