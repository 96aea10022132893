package database

import (
	"fmt"
	"os"

	"agentai-console/internal/config"
	"agentai-console/internal/models"

	"github.com/mudler/xlog"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitGorm opens the configured database and migrates it. Startup cannot
// continue without it.
func InitGorm(cfg *config.Config) *gorm.DB {
	db, err := Open(cfg)
	if err != nil {
		xlog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}

	if err := Migrate(db); err != nil {
		xlog.Error("Failed to run auto-migration", "error", err)
		os.Exit(1)
	}
	xlog.Info("Database migration completed")

	return db
}

// Open connects to postgres when a host is configured, sqlite otherwise.
func Open(cfg *config.Config) (*gorm.DB, error) {
	if cfg.UsePostgres() {
		return OpenPostgres(cfg)
	}
	return OpenSQLite(cfg.DBPath)
}

func OpenPostgres(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect to PostgreSQL")
	}
	xlog.Info("Connected to PostgreSQL", "host", cfg.DBHost, "db", cfg.DBName)
	return db, nil
}

func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open SQLite at %s", path)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "access SQLite pool")
	}
	// one writer; also keeps :memory: databases on a single connection
	sqlDB.SetMaxOpenConns(1)

	xlog.Info("Connected to SQLite", "path", path)
	return db, nil
}

// Tables lists every model in dependency order.
func Tables() []interface{} {
	return []interface{}{
		&models.SagaRun{},
		&models.SagaStep{},
		&models.CompositeAgent{},
		&models.ConnectionStatus{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Tables()...)
}
