package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewPricingConfigHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	NodeID      int64

	OTLPEndpoint string
	OTLPProtocol string
	OtelEnabled  bool
	LogLevel     string
	LogFormat    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBSQLitePath      string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime time.Duration
	DBAutoMigrate     bool

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	BookingLockTTL  time.Duration
	RabbitMQURL     string
	EventsExchange  string
	PricingFilePath string

	EditRatePerSecond float64
	EditRateBurst     int

	Pricing PricingDefaults
}

// PricingDefaults seeds the pricing holder when no pricing.yml is present.
type PricingDefaults struct {
	DefaultTaxRate float64
	TaxPolicy      string
	Currency       string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:      getenv("APP_SERVICE", "campstay"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		NodeID:       getenvInt64("SNOWFLAKE_NODE", 1),
		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTLPProtocol: strings.ToLower(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
		OtelEnabled:  getenvBool("OTEL_ENABLED", false),
		LogLevel:     strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:    strings.ToLower(getenv("LOG_FORMAT", "json")),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "campstay"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBSQLitePath:      getenv("DATABASE_SQLITE_PATH", "campstay.db"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime: getenvDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		DBAutoMigrate:     getenvBool("DATABASE_AUTO_MIGRATE", true),

		RedisAddr:       strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:   getenv("REDIS_PASSWORD", ""),
		RedisDB:         int(getenvInt64("REDIS_DB", 0)),
		BookingLockTTL:  getenvDuration("BOOKING_LOCK_TTL", 15*time.Second),
		RabbitMQURL:     strings.TrimSpace(getenv("RABBITMQ_URL", "")),
		EventsExchange:  getenv("EVENTS_EXCHANGE", "campstay.events"),
		PricingFilePath: strings.TrimSpace(getenv("PRICING_CONFIG_PATH", "")),

		EditRatePerSecond: getenvFloat("BOOKING_EDIT_RATE", 2),
		EditRateBurst:     int(getenvInt64("BOOKING_EDIT_BURST", 10)),

		Pricing: PricingDefaults{
			DefaultTaxRate: getenvFloat("DEFAULT_TAX_RATE", 0.10),
			TaxPolicy:      strings.ToLower(getenv("TAX_POLICY", TaxPolicyAuto)),
			Currency:       strings.ToUpper(getenv("CURRENCY", "VND")),
		},
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
