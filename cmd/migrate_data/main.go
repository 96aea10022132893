// Command migrate_data copies the diagnostics journal from the local SQLite
// file into PostgreSQL. Run it once when moving a console to postgres.
package main

import (
	"os"

	"agentai-console/internal/config"
	"agentai-console/internal/database"
	"agentai-console/internal/models"

	"github.com/mudler/xlog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const batchSize = 200

func main() {
	cfg := config.LoadConfig()
	if !cfg.UsePostgres() {
		xlog.Error("DB_HOST must point at the PostgreSQL destination")
		os.Exit(1)
	}

	// 1. Connect to SQLite (Source)
	sqliteDB, err := database.OpenSQLite(cfg.DBPath)
	if err != nil {
		xlog.Error("Failed to connect to SQLite", "error", err)
		os.Exit(1)
	}

	// 2. Connect to PostgreSQL (Destination)
	pgDB := database.InitGorm(cfg)

	xlog.Info("Starting data migration...")

	// Runs before steps, so step foreign keys resolve.
	failed := false
	failed = !migrateTable[models.SagaRun](sqliteDB, pgDB, "saga_runs") || failed
	failed = !migrateTable[models.SagaStep](sqliteDB, pgDB, "saga_steps") || failed
	failed = !migrateTable[models.CompositeAgent](sqliteDB, pgDB, "composite_agents") || failed
	failed = !migrateTable[models.ConnectionStatus](sqliteDB, pgDB, "connection_statuses") || failed

	if failed {
		xlog.Error("Migration finished with errors")
		os.Exit(1)
	}
	xlog.Info("Migration complete. Run sync_sequences next.")
}

// migrateTable copies every row of T. Rows already present are skipped so
// the command can be re-run.
func migrateTable[T any](src, dst *gorm.DB, table string) bool {
	xlog.Info("Migrating table", "table", table)

	var rows []T
	if err := src.Omit(clause.Associations).Find(&rows).Error; err != nil {
		xlog.Error("Error reading from SQLite", "table", table, "error", err)
		return false
	}
	if len(rows) == 0 {
		xlog.Info("Nothing to migrate", "table", table)
		return true
	}

	err := dst.Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			CreateInBatches(&rows, batchSize).Error
	})
	if err != nil {
		xlog.Error("Error writing to Postgres", "table", table, "error", err)
		return false
	}

	xlog.Info("Successfully migrated", "table", table, "rows", len(rows))
	return true
}
