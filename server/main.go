package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/dialog"
	"github.com/meikuraledutech/dialog/config"
	"github.com/meikuraledutech/dialog/editor"
	"github.com/meikuraledutech/dialog/memgraph"
	"github.com/meikuraledutech/dialog/memory"
	"github.com/meikuraledutech/dialog/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "backend", cfg.ResolvedBackend(), "error", err)
		os.Exit(1)
	}
	defer closeStore()

	ws := editor.New(store, editor.WithAutoCompile(cfg.Editor.AutoCompile))
	app := newApp(ws, logger)

	logger.Info("dialog server listening", "port", cfg.Server.Port, "backend", cfg.ResolvedBackend())
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		logger.Error("server stopped", "error", err)
		closeStore()
		os.Exit(1)
	}
}

// openStore connects the configured backend. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config) (dialog.Store, func(), error) {
	switch cfg.ResolvedBackend() {
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}
		return postgres.New(pool), pool.Close, nil

	case config.BackendMemgraph:
		driver, err := memgraph.Connect(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password)
		if err != nil {
			return nil, nil, err
		}
		return memgraph.New(driver), func() { driver.Close(context.Background()) }, nil
	}
	return memory.New(), func() {}, nil
}
