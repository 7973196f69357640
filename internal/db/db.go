package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"absence-visualizer-backend/config"
	"absence-visualizer-backend/internal/model"
)

// Models lists every table managed by AutoMigrate.
var Models = []any{
	&model.Employee{},
	&model.Absence{},
	&model.PublicHoliday{},
	&model.AvailabilityOpen{},
	&model.AvailabilityHistory{},
	&model.PushSubscription{},
}

// Dialector picks the GORM driver from the DSN: "sqlite:" and "file:" prefixes open SQLite,
// everything else is handed to postgres.
func Dialector(dsn string) (gorm.Dialector, bool) {
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite:")), false
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:":
		return sqlite.Open(dsn), false
	default:
		return postgres.Open(dsn), true
	}
}

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, isPostgres := Dialector(cfg.DSN)
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	if !isPostgres {
		// SQLite allows a single writer; an in-memory database lives only as long as its connection.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	}

	logrus.Info("Running database migrations...")
	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	if cfg.EnableTimescale {
		if !isPostgres {
			logrus.Warn("enable_timescale is set but the database is not postgres; skipping")
		} else {
			logrus.Info("TimescaleDB is enabled, applying TimescaleDB-specific DDL...")
			if err := applyTimescaleDDL(db); err != nil {
				logrus.WithError(err).Warn("failed to apply some TimescaleDB DDL; continuing without them")
			}
		}
	}

	logrus.Info("Database initialization complete.")
	return db, nil
}

func applyTimescaleDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS timescaledb;",
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",

		"SELECT create_hypertable('availability_histories', 'observed_at', if_not_exists => TRUE);",

		"ALTER TABLE availability_histories " +
			"ADD CONSTRAINT availability_histories_period_valid CHECK (period_start <= period_end);",

		// Range lookups: which status did an employee have at a given instant.
		"CREATE INDEX IF NOT EXISTS idx_availability_history_period_expr ON availability_histories " +
			"USING GIST (employee_id, tstzrange(period_start, period_end, '[)'));",

		"CREATE INDEX IF NOT EXISTS idx_availability_history_employee_observed ON availability_histories (employee_id, observed_at DESC);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
