package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/guttosm/stockdaily/config"
	"github.com/guttosm/stockdaily/internal/app"
	"github.com/guttosm/stockdaily/internal/ingestion"
	"github.com/guttosm/stockdaily/internal/logger"
)

// errAllSymbolsFailed makes the ingest command exit non-zero when nothing was fetched.
var errAllSymbolsFailed = errors.New("every symbol failed")

// Indirections overridden in tests.
var (
	loadConfig     = config.LoadConfig
	initializeApp  = app.InitializeApp
	bootstrapDB    = app.BootstrapDatabase
	openDB         = app.InitPostgres
	newFetcher     = func(cfg config.ProviderConfig) ingestion.Fetcher { return ingestion.NewAlphaVantageClient(cfg) }
	serveUntilStop = func(ctx context.Context, router http.Handler, port string, cleanup func()) {
		gracefulShutdown(ctx, startServer(router, port), cleanup)
	}
)

// newRootCmd creates the root command.
func newRootCmd() *cobra.Command {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:   "stockdaily",
		Short: "stockdaily - daily stock prices API and ingestion job",
		Long: `stockdaily serves daily open/close/volume records for a set of symbols
and ingests the trailing window of prices from Alpha Vantage.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load configuration from environment, .env or --config file
			loadConfig(cfgPath)
			logger.Init()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Configuration file path (default .env)")

	rootCmd.AddCommand(newAPICmd())
	rootCmd.AddCommand(newIngestCmd())

	return rootCmd
}

// newAPICmd creates the api command.
func newAPICmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "api",
		Short: "Start the REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("port") {
				port = config.AppConfig.Server.Port
			}
			logger.L().Info().Msg("starting API server")

			router, cleanup, err := initializeApp()
			if err != nil {
				return fmt.Errorf("app init: %w", err)
			}

			serveUntilStop(cmd.Context(), router, port, cleanup)
			return nil
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Port for the API server (defaults to SERVER_PORT)")
	return cmd
}

// ingestFlags are the ingest command overrides; zero values keep the configuration.
type ingestFlags struct {
	symbols       string
	days          int
	parallel      int
	ddl           string
	skipBootstrap bool
}

// newIngestCmd creates the ingest command.
func newIngestCmd() *cobra.Command {
	var f ingestFlags

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch the trailing window from Alpha Vantage and upsert it",
		Long: `Fetch the last N calendar days (default 14) of daily prices for every
configured symbol and upsert them into daily_prices. Unless --skip-bootstrap
is given, the database and schema are created first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIngest(ctx, config.AppConfig, f)
		},
	}

	cmd.Flags().StringVar(&f.symbols, "symbols", "", "Comma separated symbols (defaults to INGEST_SYMBOLS)")
	cmd.Flags().IntVar(&f.days, "days", 0, "Trailing window in calendar days (defaults to INGEST_WINDOW_DAYS)")
	cmd.Flags().IntVar(&f.parallel, "parallel", 1, "How many symbols to fetch concurrently")
	cmd.Flags().StringVar(&f.ddl, "ddl", "", "DDL script applied before ingesting (defaults to INGEST_DDL_PATH)")
	cmd.Flags().BoolVar(&f.skipBootstrap, "skip-bootstrap", false, "Do not create the database or apply the DDL")

	return cmd
}

// runIngest applies flag overrides, prepares the database and runs the job.
func runIngest(ctx context.Context, cfg config.Config, f ingestFlags) error {
	if f.symbols != "" {
		cfg.Ingestion.Symbols = config.SplitSymbols(f.symbols)
	}
	if f.days > 0 {
		cfg.Ingestion.WindowDays = f.days
	}
	if f.ddl != "" {
		cfg.Ingestion.DDLPath = f.ddl
	}
	if err := cfg.ValidateIngestion(); err != nil {
		return err
	}

	var (
		db  *sql.DB
		err error
	)
	if f.skipBootstrap {
		db, err = openDB(cfg)
	} else {
		db, err = bootstrapDB(ctx, cfg, cfg.Ingestion.DDLPath)
	}
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer func() { _ = db.Close() }()

	report, err := ingestion.RunWithDB(ctx, db, newFetcher(cfg.Provider), ingestion.Options{
		Symbols:    cfg.Ingestion.Symbols,
		WindowDays: cfg.Ingestion.WindowDays,
		Parallel:   f.parallel,
	})
	if err != nil {
		return fmt.Errorf("ingestion aborted: %w", err)
	}

	for _, o := range report.Failed() {
		logger.L().Warn().Str("symbol", o.Symbol).Err(o.Err).Msg("symbol not ingested")
	}
	if report.AllFailed() {
		return errAllSymbolsFailed
	}

	logger.L().Info().
		Int64("records", report.Records()).
		Int("symbols", len(report.Outcomes)).
		Int("failed", len(report.Failed())).
		Msg("ingestion completed")
	return nil
}
