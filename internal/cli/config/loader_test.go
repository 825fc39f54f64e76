package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlscope-dev/sqlscope/internal/cli/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultSchemaDir, cfg.SchemaDir)
	assert.Equal(t, config.DefaultDialect, cfg.Dialect)
	assert.Equal(t, config.DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, config.DefaultAddr, cfg.Server.Addr)
	assert.False(t, cfg.Verbose)
	assert.Positive(t, cfg.Server.ReadTimeoutSec)
	assert.Positive(t, cfg.Server.MaxBodyBytes)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sqlscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
schema_dir: /srv/schemas
verbose: true
server:
  addr: ":9999"
`), 0o644))

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/srv/schemas", cfg.SchemaDir)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, config.DefaultDialect, cfg.Dialect, "unset keys keep defaults")
	assert.Equal(t, path, config.GetConfigFileUsed())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sqlscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schema_dir: /from/file\n"), 0o644))

	t.Setenv("SQLSCOPE_SCHEMA_DIR", "/from/env")
	t.Setenv("SQLSCOPE_SERVER__ADDR", ":7777")

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.SchemaDir)
	assert.Equal(t, ":7777", cfg.Server.Addr)
}

func TestLoad_FlagsWin(t *testing.T) {
	t.Setenv("SQLSCOPE_DIALECT", "from-env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("dialect", "", "")
	flags.String("schema-dir", "", "")
	require.NoError(t, flags.Parse([]string{"--dialect", "postgres", "--schema-dir", "/from/flag"}))

	cfg, err := config.Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Dialect)
	assert.Equal(t, "/from/flag", cfg.SchemaDir)
}

func TestLoad_UnchangedFlagsDoNotOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("dialect", "", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := config.Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultDialect, cfg.Dialect)
}
