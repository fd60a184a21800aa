package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"secmonitor/internal/pkg/database"
	"secmonitor/internal/pkg/logger"
	mysqlRepo "secmonitor/internal/repo/mysql/monitor"
)

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the MySQL tables used by the mysql storage driver",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadRuntime(opts)
			if err != nil {
				return err
			}

			db, err := database.NewMySQLConnection(&cfg.Database.MySQL)
			if err != nil {
				return err
			}
			defer database.CloseMySQL(db)

			if err := mysqlRepo.AutoMigrate(db); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}

			logger.LogSystemEvent("migrate", "done", "database migration completed", logrus.InfoLevel, map[string]interface{}{
				"operation": "database_migration",
				"option":    "AutoMigrate",
				"func_name": "main.migrate",
				"database":  cfg.Database.MySQL.Database,
			})
			fmt.Fprintf(cmd.OutOrStdout(), "migrated database %s\n", cfg.Database.MySQL.Database)
			return nil
		},
	}
}
