// Package config loads the settings of the dialog server and CLI from a
// TOML file, an optional .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMemgraph = "memgraph"
)

type ServerConfig struct {
	Port string `toml:"port"`
}

type StorageConfig struct {
	// Backend is memory, postgres or memgraph. Empty picks the first
	// backend with a connection string, falling back to memory.
	Backend string `toml:"backend"`
}

type PostgresConfig struct {
	URL string `toml:"url"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type EditorConfig struct {
	// AutoCompile recompiles a graph after every edit.
	AutoCompile bool `toml:"auto_compile"`
}

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Postgres PostgresConfig `toml:"postgres"`
	Memgraph MemgraphConfig `toml:"memgraph"`
	Log      LogConfig      `toml:"log"`
	Editor   EditorConfig   `toml:"editor"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Editor: EditorConfig{AutoCompile: true},
	}
}

// Load reads the TOML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads .env style files into the process environment. Missing
// files are ignored; variables already set are kept.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from environment variables read with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Server.Port, "PORT")
	set(&c.Storage.Backend, "DIALOG_STORAGE")
	set(&c.Postgres.URL, "DATABASE_URL")
	set(&c.Memgraph.URI, "MEMGRAPH_URI")
	set(&c.Memgraph.User, "MEMGRAPH_USER")
	set(&c.Memgraph.Password, "MEMGRAPH_PASSWORD")
	set(&c.Log.Level, "DIALOG_LOG_LEVEL")
	set(&c.Log.Format, "DIALOG_LOG_FORMAT")

	if v := getenv("DIALOG_AUTO_COMPILE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DIALOG_AUTO_COMPILE %q: %w", v, err)
		}
		c.Editor.AutoCompile = b
	}
	return nil
}

// ResolvedBackend returns the storage backend to use.
func (c *Config) ResolvedBackend() string {
	switch {
	case c.Storage.Backend != "":
		return c.Storage.Backend
	case c.Postgres.URL != "":
		return BackendPostgres
	case c.Memgraph.URI != "":
		return BackendMemgraph
	}
	return BackendMemory
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	} else if p, err := strconv.Atoi(c.Server.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("server.port %q is not a valid port", c.Server.Port))
	}

	switch c.ResolvedBackend() {
	case BackendMemory:
	case BackendPostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("postgres.url is required for the postgres backend"))
		}
	case BackendMemgraph:
		if c.Memgraph.URI == "" {
			errs = append(errs, errors.New("memgraph.uri is required for the memgraph backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// NewLogger creates a slog.Logger writing to w with the configured level
// and format. It does not set the global logger.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	return NewLogger(c.Log.Level, c.Log.Format, w)
}

// NewLogger creates and configures a new slog.Logger instance.
func NewLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}
	return slog.New(handler)
}
