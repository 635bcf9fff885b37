package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment variables,
// an optional .env file, or an explicit config file.
//
// It is composed of smaller structs that represent different concerns of the system.
// A Config is built once by Load and treated as read-only afterwards.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	POSTGRES_HOST=localhost
//	POSTGRES_PORT=5432
//	POSTGRES_USER=postgres
//	POSTGRES_PASSWORD=postgres
//	POSTGRES_DB=stockdaily
//	POSTGRES_SSLMODE=disable
//	ALPHAVANTAGE_API_KEY=/run/secrets/alphavantage_key
//	INGEST_SYMBOLS=IBM,AAPL
type Config struct {
	Server    ServerConfig    // HTTP server configuration
	Postgres  PostgresConfig  // PostgreSQL connection settings
	Provider  ProviderConfig  // Alpha Vantage settings
	Ingestion IngestionConfig // Batch job settings
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string // The TCP port the HTTP server will listen on (e.g., "8080")
	RateLimitPerMinute int    // Requests allowed per client IP per minute
}

// PostgresConfig defines connection details for PostgreSQL.
//
// Fields:
//   - Host: hostname of the database server.
//   - Port: port number of the database server (default 5432).
//   - User: username for authentication.
//   - Password: password for authentication.
//   - DBName: target database name.
//   - AdminDB: database used for the bootstrap connection before DBName exists.
//   - SSLMode: SSL mode (e.g., "disable", "require").
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	AdminDB  string
	SSLMode  string
}

// DSN renders a lib/pq URL for the given database name.
func (p PostgresConfig) DSN(dbName string) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		dbName,
		p.SSLMode,
	)
}

// ProviderConfig describes the external market-data API.
//
// APIKey holds the key itself. In the environment, ALPHAVANTAGE_API_KEY is a
// path to a file; its trimmed contents become APIKey.
type ProviderConfig struct {
	BaseURL    string
	Action     string
	Function   string
	OutputSize string
	APIKey     string
}

// Endpoint joins BaseURL and Action into the URL the provider client calls.
func (p ProviderConfig) Endpoint() string {
	return strings.TrimRight(p.BaseURL, "/") + "/" + strings.TrimLeft(p.Action, "/")
}

// IngestionConfig holds settings for the ingest command.
type IngestionConfig struct {
	Symbols    []string
	WindowDays int
	DDLPath    string
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and used throughout the application.
var AppConfig Config

// ErrMissingVariables is returned by Load when required settings are empty.
var ErrMissingVariables = errors.New("missing required environment variables")

// LoadConfig initializes the global AppConfig and terminates the process when
// configuration is invalid.
//
// Precedence (from lowest to highest):
//  1. Defaults set in setDefaults.
//  2. Values from the config file (".env" when path is empty).
//  3. Environment variables.
func LoadConfig(path string) {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v\n", err)
	}
	AppConfig = cfg
}

// Load reads configuration into a fresh Config without touching AppConfig.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = ".env"
	}
	v.SetConfigFile(path)
	if strings.HasSuffix(path, ".env") {
		v.SetConfigType("env")
	}
	_ = v.ReadInConfig() // ignore error if no file

	v.AutomaticEnv()

	cfg := Config{
		Server: ServerConfig{
			Port:               v.GetString("SERVER_PORT"),
			RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
		},
		Postgres: PostgresConfig{
			Host:     v.GetString("POSTGRES_HOST"),
			Port:     v.GetInt("POSTGRES_PORT"),
			User:     v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PASSWORD"),
			DBName:   v.GetString("POSTGRES_DB"),
			AdminDB:  v.GetString("POSTGRES_ADMIN_DB"),
			SSLMode:  v.GetString("POSTGRES_SSLMODE"),
		},
		Provider: ProviderConfig{
			BaseURL:    v.GetString("ALPHAVANTAGE_BASE_URL"),
			Action:     v.GetString("ALPHAVANTAGE_ACTION"),
			Function:   v.GetString("ALPHAVANTAGE_FUNCTION"),
			OutputSize: v.GetString("ALPHAVANTAGE_OUTPUT_SIZE"),
		},
		Ingestion: IngestionConfig{
			Symbols:    SplitSymbols(v.GetString("INGEST_SYMBOLS")),
			WindowDays: v.GetInt("INGEST_WINDOW_DAYS"),
			DDLPath:    v.GetString("INGEST_DDL_PATH"),
		},
	}

	if keyPath := v.GetString("ALPHAVANTAGE_API_KEY"); keyPath != "" {
		key, err := readSecretFile(keyPath)
		if err != nil {
			return Config{}, err
		}
		cfg.Provider.APIKey = key
	}

	if missing := cfg.missing(); len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %v", ErrMissingVariables, missing)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 60)

	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", 5432)
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "postgres")
	v.SetDefault("POSTGRES_DB", "stockdaily")
	v.SetDefault("POSTGRES_ADMIN_DB", "postgres")
	v.SetDefault("POSTGRES_SSLMODE", "disable")

	v.SetDefault("ALPHAVANTAGE_BASE_URL", "https://www.alphavantage.co")
	v.SetDefault("ALPHAVANTAGE_ACTION", "query")
	v.SetDefault("ALPHAVANTAGE_FUNCTION", "TIME_SERIES_DAILY")
	v.SetDefault("ALPHAVANTAGE_OUTPUT_SIZE", "compact")

	v.SetDefault("INGEST_SYMBOLS", "IBM,AAPL,MSFT")
	v.SetDefault("INGEST_WINDOW_DAYS", 14)
	v.SetDefault("INGEST_DDL_PATH", "db/schema.sql")
}

// readSecretFile substitutes a key file path with its contents.
func readSecretFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read ALPHAVANTAGE_API_KEY file %q: %w", path, err)
	}
	return strings.TrimSpace(string(b)), nil
}

// SplitSymbols parses a comma separated ticker list, dropping blanks and
// upper-casing each entry.
func SplitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToUpper(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// missing lists the critical fields that are empty.
func (c Config) missing() []string {
	var missing []string

	if c.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if c.Postgres.Host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if c.Postgres.Port == 0 {
		missing = append(missing, "POSTGRES_PORT")
	}
	if c.Postgres.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if c.Postgres.Password == "" {
		missing = append(missing, "POSTGRES_PASSWORD")
	}
	if c.Postgres.DBName == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	return missing
}

// ValidateIngestion checks the settings only the ingest command needs.
func (c Config) ValidateIngestion() error {
	var missing []string
	if c.Provider.BaseURL == "" {
		missing = append(missing, "ALPHAVANTAGE_BASE_URL")
	}
	if c.Provider.Function == "" {
		missing = append(missing, "ALPHAVANTAGE_FUNCTION")
	}
	if c.Provider.APIKey == "" {
		missing = append(missing, "ALPHAVANTAGE_API_KEY")
	}
	if len(c.Ingestion.Symbols) == 0 {
		missing = append(missing, "INGEST_SYMBOLS")
	}
	if c.Ingestion.WindowDays < 1 {
		missing = append(missing, "INGEST_WINDOW_DAYS")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingVariables, missing)
	}
	return nil
}
