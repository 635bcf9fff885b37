//go:build integration
// +build integration

package api_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/guttosm/stockdaily/config"
	"github.com/guttosm/stockdaily/internal/app"
	"github.com/guttosm/stockdaily/internal/storage"
)

func startPG(t *testing.T) (dsn string, host string, port nat.Port, terminate func()) {
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
		WaitingFor: wait.ForSQL("5432/tcp", "postgres", func(h string, p nat.Port) string {
			return fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=stockdaily sslmode=disable", h, p.Port())
		}).WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container: %v", err)
	}
	h, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", "postgres", "postgres", h, mp.Port(), "stockdaily")
	terminate = func() { _ = c.Terminate(context.Background()) }
	return dsn, h, mp, terminate
}

func openAndApplySchema(t *testing.T, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	f, err := os.Open(filepath.Join("..", "..", "db", "schema.sql"))
	if err != nil {
		t.Fatalf("open schema: %v", err)
	}
	defer f.Close()
	if _, err := storage.ApplySchema(context.Background(), db, f); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return db
}

func seedForE2E(t *testing.T, db *sql.DB, first time.Time, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		d := first.AddDate(0, 0, i)
		_, err := db.Exec(`INSERT INTO daily_prices (symbol, date, open_price, close_price, volume) VALUES ($1, $2, $3, $4, $5)`,
			"ACME", d.Format("2006-01-02"), 10+i, 11+i, 1000*(i+1))
		if err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
}

func TestAPI_E2E_RecordsAndStatistics(t *testing.T) {
	dsn, host, port, term := startPG(t)
	defer term()
	db := openAndApplySchema(t, dsn)
	defer db.Close()

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedForE2E(t, db, first, 5)

	// Point application config to containerized DB
	old := config.AppConfig
	t.Cleanup(func() { config.AppConfig = old })
	config.AppConfig.Postgres.Host = host
	p, _ := nat.ParsePort(port.Port())
	config.AppConfig.Postgres.Port = int(p)
	config.AppConfig.Postgres.User = "postgres"
	config.AppConfig.Postgres.Password = "postgres"
	config.AppConfig.Postgres.DBName = "stockdaily"
	config.AppConfig.Postgres.SSLMode = "disable"
	config.AppConfig.Server.RateLimitPerMinute = 100

	router, cleanup, err := app.InitializeApp()
	if err != nil {
		t.Fatalf("init app: %v", err)
	}
	defer cleanup()

	t.Run("records page", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/records?symbol=ACME&limit=2&page=1", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
		}
		var body struct {
			Data []struct {
				Symbol string `json:"symbol"`
				Date   string `json:"date"`
			} `json:"data"`
			Pagination struct {
				Count int64 `json:"count"`
				Page  int   `json:"page"`
				Limit int   `json:"limit"`
				Pages int64 `json:"pages"`
			} `json:"pagination"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("json: %v", err)
		}
		if len(body.Data) != 2 || body.Pagination.Pages != 3 || body.Pagination.Count != 5 {
			t.Fatalf("unexpected body: %+v", body)
		}
		if body.Data[0].Date != "2024-01-01" || body.Data[1].Date != "2024-01-02" {
			t.Fatalf("unexpected order: %+v", body.Data)
		}
	})

	t.Run("statistics", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/statistics?symbol=ACME&start_date=2024-01-01&end_date=2024-01-05", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
		}
		var body struct {
			Data struct {
				AvgOpen   string `json:"avg_open"`
				AvgClose  string `json:"avg_close"`
				AvgVolume int64  `json:"avg_volume"`
			} `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("json: %v", err)
		}
		if body.Data.AvgOpen != "12" || body.Data.AvgClose != "13" || body.Data.AvgVolume != 3000 {
			t.Fatalf("unexpected statistics: %+v", body.Data)
		}
	})

	t.Run("statistics outside data is 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/statistics?symbol=ACME&start_date=2025-01-01&end_date=2025-01-05", nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})
}
