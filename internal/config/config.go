package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL           string
	WatchlistFile         string
	CoinGeckoURL          string
	CoinGeckoAPIKey       string
	RefreshInterval       time.Duration
	SearchDebounce        time.Duration
	HTTPPort              string
	ExportXLSXPath        string
	SheetsSpreadsheetID   string
	SheetsCredentialsJSON string
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory is applied first when
// present. With an empty DATABASE_URL the watchlist falls back to the
// JSON file at WatchlistFile.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		DatabaseURL:           envOrDefault("DATABASE_URL", ""),
		WatchlistFile:         envOrDefault("WATCHLIST_FILE", "watchlist.json"),
		CoinGeckoURL:          envOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoAPIKey:       envOrDefault("CG_API_KEY", ""),
		RefreshInterval:       envOrDefaultDuration("REFRESH_INTERVAL", 1*time.Minute),
		SearchDebounce:        envOrDefaultDuration("SEARCH_DEBOUNCE", 250*time.Millisecond),
		HTTPPort:              envOrDefault("HTTP_PORT", "8080"),
		ExportXLSXPath:        envOrDefault("EXPORT_XLSX_PATH", "dashboard.xlsx"),
		SheetsSpreadsheetID:   envOrDefault("SHEETS_SPREADSHEET_ID", ""),
		SheetsCredentialsJSON: envOrDefault("SHEETS_CREDENTIALS_JSON", ""),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
