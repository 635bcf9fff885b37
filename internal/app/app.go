package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/stockdaily/config"
	"github.com/guttosm/stockdaily/internal/api"
	"github.com/guttosm/stockdaily/internal/service"
	"github.com/guttosm/stockdaily/internal/storage"
)

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Connects to PostgreSQL using InitPostgres().
//   - Initializes the repository layer (PricesRepository).
//   - Initializes the service layer (RecordsService).
//   - Configures the Gin router with /records, /statistics and swagger.
//   - Registers health and readiness probes.
//   - Provides a cleanup function to close resources (e.g., DB connection).
//
// Returns:
//   - *gin.Engine: the configured Gin HTTP router.
//   - func(): cleanup function to be executed on shutdown.
//   - error: any initialization error that occurred.
func InitializeApp() (*gin.Engine, func(), error) {
	cfg := config.AppConfig

	// indirection for unit testing
	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	repo := storage.NewPricesRepository(db)
	svc := service.NewRecordsService(repo)
	handler := api.NewHandler(svc)
	router := api.NewRouter(handler, cfg.Server.RateLimitPerMinute)

	api.NewHealthHandler(db.PingContext).Register(router)

	cleanup := func() {
		_ = db.Close()
	}

	return router, cleanup, nil
}
