package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"PORT", "DIALOG_STORAGE", "DATABASE_URL", "MEMGRAPH_URI", "MEMGRAPH_USER",
		"MEMGRAPH_PASSWORD", "DIALOG_LOG_LEVEL", "DIALOG_LOG_FORMAT", "DIALOG_AUTO_COMPILE"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Editor.AutoCompile)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, "dialog.toml", `
[server]
port = "9090"

[memgraph]
uri = "bolt://localhost:7687"
user = "memgraph"

[log]
level = "debug"
format = "json"

[editor]
auto_compile = false
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, BackendMemgraph, cfg.ResolvedBackend())
	assert.Equal(t, "memgraph", cfg.Memgraph.User)
	assert.False(t, cfg.Editor.AutoCompile)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = Load(writeFile(t, "bad.toml", `[server`))
	assert.ErrorContains(t, err, "failed to parse TOML")

	_, err = Load(writeFile(t, "invalid.toml", "[storage]\nbackend = \"redis\"\n[log]\nlevel = \"loud\""))
	require.Error(t, err)
	assert.ErrorContains(t, err, `unknown storage backend "redis"`)
	assert.ErrorContains(t, err, `unknown log level "loud"`)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":                "3000",
		"DATABASE_URL":        "postgres://localhost/dialog",
		"DIALOG_AUTO_COMPILE": "false",
		"DIALOG_LOG_LEVEL":    "warn",
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, BackendPostgres, cfg.ResolvedBackend())
	assert.False(t, cfg.Editor.AutoCompile)
	assert.NoError(t, cfg.Validate())

	env["DIALOG_AUTO_COMPILE"] = "sometimes"
	assert.Error(t, Default().ApplyEnv(func(k string) string { return env[k] }))
}

func TestValidate_BackendNeedsConnection(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = BackendPostgres
	assert.ErrorContains(t, cfg.Validate(), "postgres.url is required")

	cfg.Storage.Backend = BackendMemgraph
	assert.ErrorContains(t, cfg.Validate(), "memgraph.uri is required")

	cfg.Server.Port = "http"
	assert.ErrorContains(t, cfg.Validate(), "not a valid port")
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("DIALOG_DOTENV_TEST", "")
	os.Unsetenv("DIALOG_DOTENV_TEST")

	p := writeFile(t, ".env", "DIALOG_DOTENV_TEST=from-file\n")
	require.NoError(t, LoadDotEnv(p))
	assert.Equal(t, "from-file", os.Getenv("DIALOG_DOTENV_TEST"))

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Log = LogConfig{Level: "warn", Format: "json"}
	logger := cfg.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "graph", "intro")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "intro", line["graph"])
}

func TestLoad_ExampleFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join("..", "dialog.example.toml"))
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.ResolvedBackend())
	assert.Equal(t, "bolt://localhost:7687", cfg.Memgraph.URI)
}
