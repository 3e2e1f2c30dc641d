package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

const defaultJWTSecret = "a-very-secret-key-should-be-longer-and-random"

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	StorageDriver  string
	MigrationsPath string

	JWTSecret           string
	JWTIssuer           string
	ServiceAPIKeyHashes []string // bcrypt hashes of accepted X-API-Key values
	RateLimit           string   // ulule/limiter format, e.g. "100-M"
	CORSAllowedOrigins  []string

	WebhookURL     string // empty selects the logging dispatcher
	WebhookSecret  string
	WebhookTimeout time.Duration

	SettlementRetryAttempts int
	SettlementRetryBackoff  time.Duration

	SchedulerEnabled  bool
	SchedulerInterval time.Duration
	OrphanDebitAge    time.Duration

	PosthogAPIKey   string
	PosthogEndpoint string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("STORAGE_DRIVER", StoragePostgres)
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("JWT_ISSUER", "")
	viper.SetDefault("SERVICE_API_KEY_HASHES", "")
	viper.SetDefault("RATE_LIMIT", "300-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("WEBHOOK_URL", "")
	viper.SetDefault("WEBHOOK_SECRET", "")
	viper.SetDefault("WEBHOOK_TIMEOUT", "5s")
	viper.SetDefault("SETTLEMENT_RETRY_ATTEMPTS", 3)
	viper.SetDefault("SETTLEMENT_RETRY_BACKOFF", "200ms")
	viper.SetDefault("SCHEDULER_ENABLED", true)
	viper.SetDefault("SCHEDULER_INTERVAL", "5m")
	viper.SetDefault("ORPHAN_DEBIT_AGE", "2m")
	viper.SetDefault("POSTHOG_API_KEY", "")
	viper.SetDefault("POSTHOG_ENDPOINT", "https://us.i.posthog.com")

	viper.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:             viper.GetString("PGSQL_URL"),
		Port:                    viper.GetString("PORT"),
		IsProduction:            viper.GetBool("IS_PRODUCTION"),
		EnableDBCheck:           viper.GetBool("ENABLE_DB_CHECK"),
		StorageDriver:           strings.ToLower(viper.GetString("STORAGE_DRIVER")),
		MigrationsPath:          viper.GetString("MIGRATIONS_PATH"),
		JWTSecret:               viper.GetString("JWT_SECRET"),
		JWTIssuer:               viper.GetString("JWT_ISSUER"),
		ServiceAPIKeyHashes:     splitList(viper.GetString("SERVICE_API_KEY_HASHES")),
		RateLimit:               viper.GetString("RATE_LIMIT"),
		CORSAllowedOrigins:      splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		WebhookURL:              viper.GetString("WEBHOOK_URL"),
		WebhookSecret:           viper.GetString("WEBHOOK_SECRET"),
		WebhookTimeout:          duration("WEBHOOK_TIMEOUT", 5*time.Second),
		SettlementRetryAttempts: viper.GetInt("SETTLEMENT_RETRY_ATTEMPTS"),
		SettlementRetryBackoff:  duration("SETTLEMENT_RETRY_BACKOFF", 200*time.Millisecond),
		SchedulerEnabled:        viper.GetBool("SCHEDULER_ENABLED"),
		SchedulerInterval:       duration("SCHEDULER_INTERVAL", 5*time.Minute),
		OrphanDebitAge:          duration("ORPHAN_DEBIT_AGE", 2*time.Minute),
		PosthogAPIKey:           viper.GetString("POSTHOG_API_KEY"),
		PosthogEndpoint:         viper.GetString("POSTHOG_ENDPOINT"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080" // Default port
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	switch cfg.StorageDriver {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			log.Println("Warning: PGSQL_URL environment variable not set.")
		}
	case StorageMemory:
		log.Println("Warning: STORAGE_DRIVER=memory, balances are lost on restart.")
	default:
		log.Printf("Warning: unknown STORAGE_DRIVER ('%s'). Defaulting to %s.\n", cfg.StorageDriver, StoragePostgres)
		cfg.StorageDriver = StoragePostgres
	}

	if cfg.JWTSecret == "" || cfg.JWTSecret == defaultJWTSecret {
		cfg.JWTSecret = defaultJWTSecret // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	if cfg.SettlementRetryAttempts < 1 {
		log.Printf("Warning: Invalid value for SETTLEMENT_RETRY_ATTEMPTS (%d). Defaulting to 3.\n", cfg.SettlementRetryAttempts)
		cfg.SettlementRetryAttempts = 3
	}

	return cfg, nil
}

func duration(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback.String())
		}
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
