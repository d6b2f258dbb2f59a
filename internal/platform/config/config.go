package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// MatchingPolicy holds the tunable thresholds of the rule catalog. These are
// policy, not constants: deployments adjust them per organization.
type MatchingPolicy struct {
	ToleranceAmount    decimal.Decimal // amount_tolerance rule: max |sum(bank) - sum(ledger)|
	DateWindowDays     int             // amount_tolerance rule: max date distance
	TokenOverlapRatio  float64         // exact_match rule: min description token overlap
	ReferenceMinDigits int             // reference_match rule: min digits in a reference token
	MaxGroupSize       int             // max items per side in 1:N / N:1 grouping
	ClaimRetries       int             // retries on concurrent claim conflicts before skipping
	MatchWorkers       int             // parallel workers per auto-match run
}

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool

	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string

	Matching MatchingPolicy

	// Exception aging thresholds (days) driving derived priority.
	AgingMediumDays int
	AgingHighDays   int

	RateLimit string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("JWT_ISSUER", "recon-backend")
	viper.SetDefault("MATCH_TOLERANCE_AMOUNT", "10.00")
	viper.SetDefault("MATCH_DATE_WINDOW_DAYS", 3)
	viper.SetDefault("MATCH_TOKEN_OVERLAP_RATIO", 0.6)
	viper.SetDefault("MATCH_REFERENCE_MIN_DIGITS", 4)
	viper.SetDefault("MATCH_MAX_GROUP_SIZE", 3)
	viper.SetDefault("MATCH_CLAIM_RETRIES", 3)
	viper.SetDefault("MATCH_WORKERS", 4)
	viper.SetDefault("EXCEPTION_AGING_MEDIUM_DAYS", 7)
	viper.SetDefault("EXCEPTION_AGING_HIGH_DAYS", 30)
	viper.SetDefault("RATE_LIMIT", "100-M")

	// Read actual environment variables; these override defaults and any
	// values loaded from the .env file above.
	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET not set. Using default insecure key.")
	}
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	jwtExpiryStr := viper.GetString("JWT_EXPIRY_DURATION")
	jwtExpiryDuration, err := time.ParseDuration(jwtExpiryStr)
	if err != nil {
		jwtExpiryDuration = time.Hour
		log.Printf("Warning: Invalid value for JWT_EXPIRY_DURATION ('%s'). Defaulting to %s.\n", jwtExpiryStr, jwtExpiryDuration.String())
	}
	cfg.JWTExpiryDuration = jwtExpiryDuration

	toleranceStr := viper.GetString("MATCH_TOLERANCE_AMOUNT")
	tolerance, err := decimal.NewFromString(toleranceStr)
	if err != nil || tolerance.IsNegative() {
		tolerance = decimal.RequireFromString("10.00")
		log.Printf("Warning: Invalid value for MATCH_TOLERANCE_AMOUNT ('%s'). Defaulting to %s.\n", toleranceStr, tolerance.String())
	}

	cfg.Matching = MatchingPolicy{
		ToleranceAmount:    tolerance,
		DateWindowDays:     viper.GetInt("MATCH_DATE_WINDOW_DAYS"),
		TokenOverlapRatio:  viper.GetFloat64("MATCH_TOKEN_OVERLAP_RATIO"),
		ReferenceMinDigits: viper.GetInt("MATCH_REFERENCE_MIN_DIGITS"),
		MaxGroupSize:       viper.GetInt("MATCH_MAX_GROUP_SIZE"),
		ClaimRetries:       viper.GetInt("MATCH_CLAIM_RETRIES"),
		MatchWorkers:       viper.GetInt("MATCH_WORKERS"),
	}
	if cfg.Matching.MaxGroupSize < 1 {
		cfg.Matching.MaxGroupSize = 1
	}
	if cfg.Matching.MatchWorkers < 1 {
		cfg.Matching.MatchWorkers = 1
	}

	cfg.AgingMediumDays = viper.GetInt("EXCEPTION_AGING_MEDIUM_DAYS")
	cfg.AgingHighDays = viper.GetInt("EXCEPTION_AGING_HIGH_DAYS")
	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	return cfg, nil
}
