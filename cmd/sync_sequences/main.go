// Command sync_sequences resets PostgreSQL serial sequences after rows were
// copied in with explicit ids by migrate_data.
package main

import (
	"os"

	"agentai-console/internal/config"
	"agentai-console/internal/database"

	"github.com/mudler/xlog"
)

// serialTables have an auto-increment id column. The other tables are keyed
// by uuid or by upstream ids.
var serialTables = []string{
	"saga_steps",
}

func main() {
	cfg := config.LoadConfig()
	if !cfg.UsePostgres() {
		xlog.Error("Sequences only exist on PostgreSQL, set DB_HOST")
		os.Exit(1)
	}
	db := database.InitGorm(cfg)

	xlog.Info("Syncing PostgreSQL sequences...")

	failed := false
	for _, table := range serialTables {
		query := "SELECT setval(pg_get_serial_sequence('" + table + "', 'id'), coalesce(max(id), 0) + 1, false) FROM " + table
		if err := db.Exec(query).Error; err != nil {
			xlog.Error("Error syncing sequence", "table", table, "error", err)
			failed = true
			continue
		}
		xlog.Info("Successfully synced sequence", "table", table)
	}

	if failed {
		os.Exit(1)
	}
	xlog.Info("DONE!")
}
