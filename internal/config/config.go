// Package config layers CLI flags over SG_-prefixed environment
// variables over a repo-local .sgr/config.toml, the precedence order
// SPEC_FULL.md's ambient-stack section calls for, built the way the
// teacher layers bd's own config.yaml over BD_/BEADS_ env vars with
// viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cxz/splitgraph/internal/objects"
	"github.com/cxz/splitgraph/internal/retry"
)

// ConfigDirName and ConfigFileName name the repo-local config file,
// mirroring the teacher's ".beads/config.yaml" convention.
const (
	ConfigDirName  = ".sgr"
	ConfigFileName = "config.toml"
)

// Config is the resolved set of settings every subcommand needs,
// layered CLI flags > SG_ENGINE_*/SG_* env vars > config.toml > defaults.
type Config struct {
	EngineDSN           string `mapstructure:"engine-dsn" toml:"engine_dsn"`
	DefaultNamespace    string `mapstructure:"namespace" toml:"namespace"`
	CompactionThreshold int    `mapstructure:"compaction-threshold" toml:"compaction_threshold"`
	RetryMaxAttempts    int    `mapstructure:"retry-max-attempts" toml:"retry_max_attempts"`
	SyncConcurrency     int    `mapstructure:"sync-concurrency" toml:"sync_concurrency"`
	JSONOutput          bool   `mapstructure:"json" toml:"-"`
}

// defaults returns the settings used when nothing else specifies them.
func defaults() Config {
	return Config{
		EngineDSN:           "dolt://./.sgr/data",
		DefaultNamespace:    "",
		CompactionThreshold: objects.DefaultCompactionThreshold,
		RetryMaxAttempts:    retry.DefaultMaxAttempts,
		SyncConcurrency:     4,
		JSONOutput:          false,
	}
}

// Load resolves a Config from (in increasing precedence) built-in
// defaults, the nearest repo-local .sgr/config.toml found by walking up
// from the working directory, SG_-prefixed environment variables, and
// finally flags — typically a cobra command's persistent flag set,
// bound by name so e.g. --engine-dsn outranks SG_ENGINE_DSN.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	d := defaults()
	v.SetDefault("engine-dsn", d.EngineDSN)
	v.SetDefault("namespace", d.DefaultNamespace)
	v.SetDefault("compaction-threshold", d.CompactionThreshold)
	v.SetDefault("retry-max-attempts", d.RetryMaxAttempts)
	v.SetDefault("sync-concurrency", d.SyncConcurrency)
	v.SetDefault("json", d.JSONOutput)

	if path, ok := findProjectConfigToml(); ok {
		if err := mergeTomlFile(v, path); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("SG")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"engine-dsn", "namespace", "compaction-threshold", "retry-max-attempts", "sync-concurrency", "json"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		EngineDSN:           v.GetString("engine-dsn"),
		DefaultNamespace:    v.GetString("namespace"),
		CompactionThreshold: v.GetInt("compaction-threshold"),
		RetryMaxAttempts:    v.GetInt("retry-max-attempts"),
		SyncConcurrency:     v.GetInt("sync-concurrency"),
		JSONOutput:          v.GetBool("json"),
	}
	return cfg, nil
}

// mergeTomlFile decodes a TOML file directly (viper's own TOML support
// goes through a third encoder; BurntSushi/toml is what the rest of
// this module and the teacher's dependency set already carry) and
// feeds the result into v as a config layer below env vars and flags.
func mergeTomlFile(v *viper.Viper, path string) error {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return err
	}
	// The file spells keys with underscores (its toml tags); viper's keys
	// use hyphens, so translate before merging.
	normalized := make(map[string]any, len(raw))
	for k, val := range raw {
		normalized[strings.ReplaceAll(k, "_", "-")] = val
	}
	return v.MergeConfigMap(normalized)
}

// findProjectConfigToml walks up from the working directory looking
// for .sgr/config.toml, the same upward search the teacher's
// findProjectConfigYaml does for .beads/config.yaml.
func findProjectConfigToml() (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, ConfigDirName, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// WriteDefault creates an .sgr/config.toml with the built-in defaults
// under dir, for `sgr init`-adjacent bootstrapping.
func WriteDefault(dir string) (string, error) {
	confDir := filepath.Join(dir, ConfigDirName)
	if err := os.MkdirAll(confDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(confDir, ConfigFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return path, nil
		}
		return "", err
	}
	defer f.Close()
	return path, toml.NewEncoder(f).Encode(defaults())
}
