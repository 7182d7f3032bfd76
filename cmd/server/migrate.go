package main

import (
	"fylr/internal/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync()

		store, closeStore, err := openStore(cmd.Context(), cfg.DB, log)
		if err != nil {
			return err
		}
		defer closeStore()

		pg, ok := store.(*database.PostgresStore)
		if !ok {
			log.Info("nothing to migrate", zap.String("driver", cfg.DB.Driver))
			return nil
		}

		if err := database.Migrate(cmd.Context(), pg.GetPool()); err != nil {
			return err
		}
		log.Info("schema applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
