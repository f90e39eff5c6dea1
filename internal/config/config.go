package config

import (
	"os"
	"strconv"
	"strings"
)

// Config carries all environment-driven settings.
type Config struct {
	Port        string
	Environment string

	AlphaVantageKey  string
	FirestoreProject string

	CacheTTLHours        int
	MaxConcurrentFetches int

	// Engine parameters.
	RiskFreeRate   float64
	InflationRate  float64
	NumSimulations int
	Seed           int64
	HistoryYears   int

	// Universe is the default candidate ticker set for optimization.
	Universe []string
}

var defaultUniverse = []string{
	"AAPL", "MSFT", "NVDA", "GOOGL", "AMZN", "META",
	"IEF", "HYG", "GLD", "IAU", "BTC-USD",
}

func Load() *Config {
	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		Environment:          getEnv("ENVIRONMENT", "production"),
		AlphaVantageKey:      getEnv("ALPHA_VANTAGE_KEY", ""),
		FirestoreProject:     getEnv("FIRESTORE_PROJECT_ID", ""),
		CacheTTLHours:        getEnvInt("CACHE_TTL_HOURS", 24),
		MaxConcurrentFetches: getEnvInt("MAX_CONCURRENT_FETCHES", 10),
		RiskFreeRate:         getEnvFloat("RISK_FREE_RATE", 0.02),
		InflationRate:        getEnvFloat("INFLATION_RATE", 0.031),
		NumSimulations:       getEnvInt("NUM_SIMULATIONS", 1000),
		Seed:                 int64(getEnvInt("SIMULATION_SEED", 42)),
		HistoryYears:         getEnvInt("HISTORY_YEARS", 3),
		Universe:             getEnvList("ASSET_UNIVERSE", defaultUniverse),
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
