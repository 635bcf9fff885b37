package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	pq "github.com/lib/pq"
)

// execer is the subset of *sql.DB / *sql.Tx the schema helpers need.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SplitStatements splits a DDL script on ';' and drops blank or comment-only pieces.
func SplitStatements(script string) []string {
	var out []string
	for _, raw := range strings.Split(script, ";") {
		if stmt := strings.TrimSpace(raw); stmt != "" && !commentOnly(stmt) {
			out = append(out, stmt)
		}
	}
	return out
}

func commentOnly(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}

// ApplySchema executes every statement of the DDL script in order and
// returns how many ran. It stops at the first failing statement.
func ApplySchema(ctx context.Context, db execer, r io.Reader) (int, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read ddl: %w", err)
	}

	stmts := SplitStatements(string(b))
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return i, fmt.Errorf("ddl statement %d: %w", i+1, err)
		}
	}
	return len(stmts), nil
}

// EnsureDatabase creates the named database when pg_database does not list it.
// It reports whether the database was created.
func EnsureDatabase(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check database %q: %w", name, err)
	}
	if exists {
		return false, nil
	}

	// CREATE DATABASE takes no bind parameters.
	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		return false, fmt.Errorf("create database %q: %w", name, err)
	}
	return true, nil
}
