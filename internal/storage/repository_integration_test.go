//go:build integration
// +build integration

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/guttosm/stockdaily/internal/domain/models"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres spins up a Postgres container and returns a DSN and terminate func.
func startPostgres(t *testing.T) (dsn string, terminate func()) {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "stockdaily",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
		},
		WaitingFor: wait.ForSQL("5432/tcp", "postgres", func(host string, port nat.Port) string {
			return fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=stockdaily sslmode=disable", host, port.Port())
		}).WithStartupTimeout(60 * time.Second),
	}

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err, "container start")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/stockdaily?sslmode=disable", host, port.Port())
	terminate = func() { _ = container.Terminate(context.Background()) }
	return dsn, terminate
}

func openAndBootstrap(t *testing.T, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, db.Ping())

	// schema path relative to this test file (internal/storage → ../../db/schema.sql)
	f, err := os.Open(filepath.Join("..", "..", "db", "schema.sql"))
	require.NoError(t, err)
	defer f.Close()
	_, err = ApplySchema(context.Background(), db, f)
	require.NoError(t, err)
	return db
}

func rec(symbol string, d time.Time, open, close string, vol int64) models.DailyPrice {
	return models.DailyPrice{
		Symbol:     symbol,
		Date:       d,
		OpenPrice:  decimal.RequireFromString(open),
		ClosePrice: decimal.RequireFromString(close),
		Volume:     vol,
	}
}

func TestRepository_Integration(t *testing.T) {
	dsn, terminate := startPostgres(t)
	defer terminate()
	db := openAndBootstrap(t, dsn)
	defer db.Close()

	ctx := context.Background()
	repo := NewPricesRepository(db)

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	seed := []models.DailyPrice{
		rec("ACME", base, "10.005", "20.00", 1000),
		rec("ACME", base.AddDate(0, 0, 1), "10.015", "21.00", 2001),
		rec("ACME", base.AddDate(0, 0, 2), "11.000", "22.00", 3000),
		rec("BETA", base, "5.00", "5.50", 10),
		rec("BETA", base.AddDate(0, 0, 3), "6.00", "6.50", 20),
	}
	n, err := repo.UpsertRecords(ctx, seed)
	require.NoError(t, err)
	require.Equal(t, int64(len(seed)), n)

	t.Run("count narrows monotonically", func(t *testing.T) {
		start := base.AddDate(0, 0, 1)
		end := base.AddDate(0, 0, 2)

		all, err := repo.CountRecords(ctx, models.RecordFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(5), all)

		filters := []models.RecordFilter{
			{Symbol: "ACME"},
			{Symbol: "ACME", StartDate: &start},
			{Symbol: "ACME", StartDate: &start, EndDate: &end},
		}
		prev := all
		for _, f := range filters {
			got, err := repo.CountRecords(ctx, f)
			require.NoError(t, err)
			assert.LessOrEqual(t, got, prev)
			prev = got
		}
		assert.Equal(t, int64(2), prev)
	})

	t.Run("list pages are ordered and bounded", func(t *testing.T) {
		page1, err := repo.ListRecords(ctx, models.RecordFilter{Symbol: "ACME"}, 2, 0)
		require.NoError(t, err)
		require.Len(t, page1, 2)
		page2, err := repo.ListRecords(ctx, models.RecordFilter{Symbol: "ACME"}, 2, 2)
		require.NoError(t, err)
		require.Len(t, page2, 1)

		assert.True(t, page1[0].Date.Before(page1[1].Date))
		assert.True(t, page1[1].Date.Before(page2[0].Date))
	})

	t.Run("average rounds prices to cents", func(t *testing.T) {
		start := base
		end := base.AddDate(0, 0, 1)
		f := models.RecordFilter{StartDate: &start, EndDate: &end, Symbol: "ACME"}

		open, err := repo.AverageColumn(ctx, ColumnOpenPrice, f)
		require.NoError(t, err)
		assert.Equal(t, "10.01", open.String())

		vol, err := repo.AverageColumn(ctx, ColumnVolume, f)
		require.NoError(t, err)
		assert.Equal(t, "1501", vol.String())
	})

	t.Run("average over empty range is not found", func(t *testing.T) {
		start := base.AddDate(1, 0, 0)
		end := start.AddDate(0, 0, 5)
		_, err := repo.AverageColumn(ctx, ColumnClosePrice, models.RecordFilter{StartDate: &start, EndDate: &end, Symbol: "ACME"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("upsert overwrites the natural key", func(t *testing.T) {
		_, err := repo.UpsertRecords(ctx, []models.DailyPrice{rec("BETA", base, "5.00", "7.77", 99)})
		require.NoError(t, err)

		var rows int
		var closePrice string
		var volume int64
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM daily_prices WHERE symbol = 'BETA' AND date = $1`, base.Format(dateLayout)).Scan(&rows))
		require.NoError(t, db.QueryRow(`SELECT close_price, volume FROM daily_prices WHERE symbol = 'BETA' AND date = $1`, base.Format(dateLayout)).Scan(&closePrice, &volume))
		assert.Equal(t, 1, rows)
		assert.True(t, decimal.RequireFromString("7.77").Equal(decimal.RequireFromString(closePrice)))
		assert.Equal(t, int64(99), volume)
	})

	t.Run("schema is re-runnable", func(t *testing.T) {
		f, err := os.Open(filepath.Join("..", "..", "db", "schema.sql"))
		require.NoError(t, err)
		defer f.Close()
		_, err = ApplySchema(ctx, db, f)
		assert.NoError(t, err)
	})
}
