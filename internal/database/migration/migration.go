package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_blood_pressure",
		SQL: `CREATE TABLE IF NOT EXISTS blood_pressure (
  id          BIGSERIAL   PRIMARY KEY,
  recorded_at TIMESTAMPTZ NOT NULL,
  systolic    INTEGER     NOT NULL CHECK (systolic > 0 AND systolic < 300),
  diastolic   INTEGER     NOT NULL CHECK (diastolic > 0 AND diastolic < 200),
  pulse       INTEGER     CHECK (pulse IS NULL OR (pulse > 0 AND pulse < 250)),
  photo_path  TEXT        NOT NULL DEFAULT '',
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_blood_pressure_recorded_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_blood_pressure_recorded_at ON blood_pressure (recorded_at DESC);`,
	},
}

// EnsureMigrated checks if the 'blood_pressure' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	start := time.Now()
	logger = logger.With(zap.String("component", "database"))

	var exists bool
	query := "SELECT to_regclass('public.blood_pressure') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		logger.Error("db migration failed",
			zap.String("event", "db_migration_failed"),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logger.Info("schema already exists, skipping migration",
			zap.String("event", "db_migration_skip"),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	logger.Info("running migrations", zap.String("event", "db_migration_start"))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			logger.Error("db migration step failed",
				zap.String("event", "db_migration_failed"),
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logger.Info("migration step applied",
			zap.String("event", "db_migration_step"),
			zap.String("migration_step", step.Name),
			zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
		)
	}

	logger.Info("migrations complete",
		zap.String("event", "db_migration_success"),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}
