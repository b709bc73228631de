package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withCwd(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestLoadDefaults(t *testing.T) {
	withCwd(t, t.TempDir())
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "dolt://./.sgr/data", cfg.EngineDSN)
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
}

func TestLoadReadsProjectConfigToml(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ConfigDirName), 0o755))
	content := "engine_dsn = \"mysql://root@127.0.0.1:3306/sgr\"\ncompaction_threshold = 50\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigDirName, ConfigFileName), []byte(content), 0o644))

	nested := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	withCwd(t, nested)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "mysql://root@127.0.0.1:3306/sgr", cfg.EngineDSN)
	assert.Equal(t, 50, cfg.CompactionThreshold)
}

func TestLoadEnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ConfigDirName), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigDirName, ConfigFileName),
		[]byte("engine_dsn = \"dolt:///file\"\n"), 0o644))
	withCwd(t, dir)

	t.Setenv("SG_ENGINE_DSN", "dolt:///env")
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "dolt:///env", cfg.EngineDSN)
}

func TestLoadFlagOverridesEnv(t *testing.T) {
	withCwd(t, t.TempDir())
	t.Setenv("SG_ENGINE_DSN", "dolt:///env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("engine-dsn", "", "")
	require.NoError(t, flags.Set("engine-dsn", "dolt:///flag"))

	cfg, err := Load(flags)
	require.NoError(t, err)
	assert.Equal(t, "dolt:///flag", cfg.EngineDSN)
}

func TestWriteDefaultIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path1, err := WriteDefault(dir)
	require.NoError(t, err)
	path2, err := WriteDefault(dir)
	require.NoError(t, err)
	assert.Equal(t, path1, path2)
	assert.FileExists(t, path1)
}
