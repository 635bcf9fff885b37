package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/guttosm/stockdaily/config"
	"github.com/guttosm/stockdaily/internal/logger"
	"github.com/guttosm/stockdaily/internal/storage"
)

// BootstrapDatabase prepares the target database for ingestion and returns a
// connection to it.
//
// Steps:
//  1. Connect to the admin database (cfg.Postgres.AdminDB).
//  2. Create cfg.Postgres.DBName when pg_database lacks it.
//  3. Close the admin connection and connect to the target database.
//  4. Apply every statement of the DDL script at ddlPath.
//
// Re-running is safe as long as the DDL uses IF NOT EXISTS.
//
// Returns:
//   - *sql.DB: connection to the target database; the caller closes it.
//   - error: wrapped failure of any step.
func BootstrapDatabase(ctx context.Context, cfg config.Config, ddlPath string) (*sql.DB, error) {
	log := logger.With("bootstrap")

	adminDB := cfg.Postgres.AdminDB
	if adminDB == "" {
		adminDB = "postgres"
	}

	admin, err := openPostgres(cfg.Postgres.DSN(adminDB))
	if err != nil {
		return nil, fmt.Errorf("admin connection: %w", err)
	}
	created, err := storage.EnsureDatabase(ctx, admin, cfg.Postgres.DBName)
	_ = admin.Close()
	if err != nil {
		return nil, err
	}
	if created {
		log.Info().Str("database", cfg.Postgres.DBName).Msg("database created")
	}

	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(ddlPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open ddl %q: %w", ddlPath, err)
	}
	defer func() { _ = f.Close() }()

	n, err := storage.ApplySchema(ctx, db, f)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply %q: %w", ddlPath, err)
	}
	log.Info().Str("ddl", ddlPath).Int("statements", n).Msg("schema applied")

	return db, nil
}
