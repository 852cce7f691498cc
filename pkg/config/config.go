package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	DatabaseURL string
	Port        string
	Environment string

	// External enrichment APIs
	ProfileAPIEndpoint string
	AwardsAPIEndpoint  string
	AwardsAPIKey       string

	// Flywheel tuning
	FlywheelInterval     time.Duration
	FlywheelBatchSize    int
	StaleAfterDays       int
	ScoreBackfillLimit   int
	ContractEnrichLimit  int
	AuditOrphanBatchSize int
}

// New creates a new configuration instance from environment variables
func New() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		ProfileAPIEndpoint: getEnv("PROFILE_API_ENDPOINT", "https://companyprofiles.example.com/lookup"),
		AwardsAPIEndpoint:  getEnv("AWARDS_API_ENDPOINT", "https://api.usaspending.gov/api/v2/awards"),
		AwardsAPIKey:       getEnv("AWARDS_API_KEY", ""),

		FlywheelInterval:     time.Duration(getEnvAsInt("FLYWHEEL_INTERVAL_MINUTES", 5)) * time.Minute,
		FlywheelBatchSize:    getEnvAsInt("FLYWHEEL_BATCH_SIZE", 5),
		StaleAfterDays:       getEnvAsInt("STALE_AFTER_DAYS", 7),
		ScoreBackfillLimit:   getEnvAsInt("SCORE_BACKFILL_LIMIT", 10),
		ContractEnrichLimit:  getEnvAsInt("CONTRACT_ENRICH_LIMIT", 10),
		AuditOrphanBatchSize: getEnvAsInt("AUDIT_ORPHAN_BATCH_SIZE", 100),
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
