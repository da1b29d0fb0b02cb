package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds application configuration values.
type Config struct {
	Secret          string
	HTTPPort        string
	DatabaseDriver  string
	DatabaseDSN     string
	MenuCSV         string
	DeliveryRules   string
	TrackingBaseURL string
	AMQPURL         string
	LogLevel        string
	LogFormat       string
	AdminEmail      string
	AdminPassword   string
	CORSOrigins     []string
	KDSUrgentAfter  time.Duration
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	cfg := Config{
		Secret:          getEnv("SECRET", "dev_secret"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DatabaseDriver:  strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DatabaseDSN:     os.Getenv("DATABASE_DSN"),
		MenuCSV:         getEnv("MENU_CSV", "assets/menu.csv"),
		DeliveryRules:   os.Getenv("DELIVERY_RULES"),
		TrackingBaseURL: strings.TrimRight(getEnv("TRACKING_BASE_URL", "http://localhost:8080/track"), "/"),
		AMQPURL:         os.Getenv("AMQP_URL"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		AdminEmail:      strings.ToLower(getEnv("ADMIN_EMAIL", "admin@dinepos.local")),
		AdminPassword:   getEnv("ADMIN_PASSWORD", "admin"),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "*")),
		KDSUrgentAfter:  15 * time.Minute,
	}

	if cfg.DatabaseDSN == "" {
		switch cfg.DatabaseDriver {
		case "pgx", "postgres":
			host := getEnv("DB_HOST", "localhost")
			user := getEnv("DB_USER", "postgres")
			dbPort := getEnv("DB_PORT", "5432")
			name := getEnv("DB_NAME", "dinepos")
			password := os.Getenv("DB_PASSWORD")
			cfg.DatabaseDSN = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, dbPort, name)
		default:
			cfg.DatabaseDSN = "dinepos.db"
		}
	}

	// Validate that port is numeric.
	if _, err := strconv.Atoi(cfg.HTTPPort); err != nil {
		log.Warn().Str("value", cfg.HTTPPort).Msg("invalid HTTP_PORT, defaulting to 8080")
		cfg.HTTPPort = "8080"
	}

	if raw := os.Getenv("KDS_URGENT_AFTER"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.KDSUrgentAfter = d
		} else {
			log.Warn().Str("value", raw).Msg("invalid KDS_URGENT_AFTER, keeping 15m")
		}
	}

	return cfg
}

// String returns a printable form of the config with secrets masked.
func (c Config) String() string {
	return fmt.Sprintf("Config{port: %s, db: %s, menu: %s, rules: %q, amqp: %t, secret: ***}",
		c.HTTPPort, c.DatabaseDriver, c.MenuCSV, c.DeliveryRules, c.AMQPURL != "")
}

func getEnv(key, defaultVal string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return defaultVal
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
