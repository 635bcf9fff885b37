package app

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/guttosm/stockdaily/config"
)

const existsQuery = `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`

func writeDDL(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.sql")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write ddl: %v", err)
	}
	return path
}

// stubOpeners hands out the given handles in order and records the DSNs asked for.
func stubOpeners(t *testing.T, dbs ...*sql.DB) *[]string {
	t.Helper()
	var dsns []string
	old := sqlOpener
	sqlOpener = func(_ string, dsn string) (*sql.DB, error) {
		if len(dbs) == 0 {
			return nil, errors.New("no more handles")
		}
		dsns = append(dsns, dsn)
		db := dbs[0]
		dbs = dbs[1:]
		return db, nil
	}
	t.Cleanup(func() { sqlOpener = old })
	return &dsns
}

func bootstrapCfg() config.Config {
	return config.Config{Postgres: config.PostgresConfig{
		User: "u", Password: "p", Host: "h", Port: 5432,
		DBName: "stockdaily", AdminDB: "postgres", SSLMode: "disable",
	}}
}

func TestBootstrapDatabase_CreatesAndApplies(t *testing.T) {
	admin, adminMock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	target, targetMock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	dsns := stubOpeners(t, admin, target)

	adminMock.ExpectQuery(regexp.QuoteMeta(existsQuery)).
		WithArgs("stockdaily").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	adminMock.ExpectExec(regexp.QuoteMeta(`CREATE DATABASE "stockdaily"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	adminMock.ExpectClose()

	targetMock.ExpectExec("CREATE TABLE IF NOT EXISTS t").WillReturnResult(sqlmock.NewResult(0, 0))
	targetMock.ExpectExec("CREATE INDEX IF NOT EXISTS i").WillReturnResult(sqlmock.NewResult(0, 0))

	ddl := writeDDL(t, "-- header\nCREATE TABLE IF NOT EXISTS t (id INT);\n\nCREATE INDEX IF NOT EXISTS i ON t (id);\n")

	db, err := BootstrapDatabase(context.Background(), bootstrapCfg(), ddl)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if db != target {
		t.Fatalf("expected target handle to be returned")
	}
	_ = db.Close()

	if len(*dsns) != 2 || !strings.Contains((*dsns)[0], "/postgres?") || !strings.Contains((*dsns)[1], "/stockdaily?") {
		t.Fatalf("unexpected dsns %v", *dsns)
	}
	if err := adminMock.ExpectationsWereMet(); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if err := targetMock.ExpectationsWereMet(); err != nil {
		t.Fatalf("target: %v", err)
	}
}

func TestBootstrapDatabase_ExistingDatabase(t *testing.T) {
	admin, adminMock, _ := sqlmock.New()
	target, targetMock, _ := sqlmock.New()
	stubOpeners(t, admin, target)

	adminMock.ExpectQuery(regexp.QuoteMeta(existsQuery)).
		WithArgs("stockdaily").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	targetMock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))

	db, err := BootstrapDatabase(context.Background(), bootstrapCfg(), writeDDL(t, "CREATE TABLE IF NOT EXISTS t (id INT);"))
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	_ = db.Close()
	if err := adminMock.ExpectationsWereMet(); err != nil {
		t.Fatalf("admin: %v", err)
	}
}

func TestBootstrapDatabase_Failures(t *testing.T) {
	t.Run("admin connection", func(t *testing.T) {
		stubOpeners(t)
		if _, err := BootstrapDatabase(context.Background(), bootstrapCfg(), "unused.sql"); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("missing ddl file", func(t *testing.T) {
		admin, adminMock, _ := sqlmock.New()
		target, _, _ := sqlmock.New()
		stubOpeners(t, admin, target)
		adminMock.ExpectQuery(regexp.QuoteMeta(existsQuery)).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := BootstrapDatabase(context.Background(), bootstrapCfg(), filepath.Join(t.TempDir(), "nope.sql"))
		if err == nil || !strings.Contains(err.Error(), "open ddl") {
			t.Fatalf("expected open ddl error, got %v", err)
		}
	})

	t.Run("statement fails", func(t *testing.T) {
		admin, adminMock, _ := sqlmock.New()
		target, targetMock, _ := sqlmock.New()
		stubOpeners(t, admin, target)
		adminMock.ExpectQuery(regexp.QuoteMeta(existsQuery)).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		targetMock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("syntax error"))

		_, err := BootstrapDatabase(context.Background(), bootstrapCfg(), writeDDL(t, "CREATE TABLE broken;"))
		if err == nil || !strings.Contains(err.Error(), "syntax error") {
			t.Fatalf("expected ddl error, got %v", err)
		}
	})
}
