package main

import (
	"context"
	"fmt"
	"os"

	"fylr/internal/config"
	"fylr/internal/database"
	"fylr/internal/database/memstore"
	"fylr/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "fylr",
	Short: "fylr file storage server",
	// Running the binary without a subcommand starts the server.
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}

	return cfg, log, nil
}

// openStore returns the configured store and a function releasing it.
func openStore(ctx context.Context, cfg config.DBConfig, log *zap.Logger) (database.Store, func(), error) {
	switch cfg.Driver {
	case "memory":
		log.Warn("using in-memory store; data is lost on exit")
		return memstore.New(), func() {}, nil
	case "postgres", "":
		dbpool, err := pgxpool.New(ctx, cfg.Source)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := dbpool.Ping(ctx); err != nil {
			dbpool.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}
		log.Info("connected to database")
		return database.NewStore(dbpool), dbpool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
