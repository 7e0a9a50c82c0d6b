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
	fx.Provide(NewIngestPolicyHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPPort    string
	PublicDir   string
	NodeID      int64

	AuthJWTSecret string
	AuthDevTokens bool

	Telemetry TelemetryConfig

	DBType            string
	DBURL             string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBSQLitePath      string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBSlowQueryMs     int

	CatalogCacheTTL time.Duration

	Storage     StorageConfig
	RateLimit   RateLimitConfig
	PushMetrics PushMetricsConfig
}

type StorageConfig struct {
	Bucket          string
	CredentialsJSON string
	CredentialsFile string
	UploadURLTTL    time.Duration
}

// TelemetryConfig carries the raw logging and OpenTelemetry settings.
type TelemetryConfig struct {
	DeploymentEnv string
	LogLevel      string
	LogFormat     string
	OtelEnabled   bool
	OtlpEndpoint  string
	OtlpProtocol  string
	SamplingRatio float64
}

// PushMetricsConfig controls pushing vault gauges to a central Prometheus.
type PushMetricsConfig struct {
	Enabled   bool
	Exporter  string
	Endpoint  string
	AuthToken string
	Interval  time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	BatchIngestUserRate           float64
	BatchIngestUserBurst          int
	BatchIngestConcurrencyTTLSecs int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:       getenv("APP_SERVICE", "healx"),
		AppVersion:    getenv("APP_VERSION", "0.1.0"),
		Environment:   environment,
		HTTPPort:      getenv("PORT", "8080"),
		PublicDir:     getenv("PUBLIC_DIR", "./public"),
		NodeID:        getenvInt64("NODE_ID", 1),
		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AuthDevTokens: getenvBool("AUTH_DEV_TOKENS", environment != "production"),
		Telemetry: TelemetryConfig{
			DeploymentEnv: strings.TrimSpace(getenv("DEPLOYMENT_ENV", environment)),
			LogLevel:      strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:     strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			OtelEnabled:   getenvBool("OTEL_ENABLED", false),
			OtlpEndpoint:  strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317"))),
			OtlpProtocol:  strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")))),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},

		DBType:            strings.ToLower(getenv("DATABASE_TYPE", "postgres")),
		DBURL:             strings.TrimSpace(getenv("DATABASE_URL", "")),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "healx"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBSQLitePath:      getenv("DATABASE_SQLITE_PATH", "healx.db"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 10)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 50)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
		DBSlowQueryMs:     int(getenvInt64("DATABASE_SLOW_QUERY_MS", 250)),

		CatalogCacheTTL: getenvDuration("CATALOG_CACHE_TTL", 10*time.Minute),

		Storage: StorageConfig{
			Bucket:          strings.TrimSpace(getenv("STORAGE_BUCKET", getenv("FIREBASE_STORAGE_BUCKET", ""))),
			CredentialsJSON: strings.TrimSpace(getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")),
			CredentialsFile: strings.TrimSpace(getenv("GOOGLE_APPLICATION_CREDENTIALS", "")),
			UploadURLTTL:    getenvDuration("STORAGE_UPLOAD_URL_TTL", 15*time.Minute),
		},
		PushMetrics: PushMetricsConfig{
			Enabled:   getenvBool("PUSH_METRICS_ENABLED", false),
			Exporter:  strings.ToLower(strings.TrimSpace(getenv("PUSH_METRICS_EXPORTER", "prometheus_pushgateway"))),
			Endpoint:  strings.TrimSpace(getenv("PUSH_METRICS_ENDPOINT", "")),
			AuthToken: strings.TrimSpace(getenv("PUSH_METRICS_AUTH_TOKEN", "")),
			Interval:  getenvDuration("PUSH_METRICS_INTERVAL", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			Enabled:                       getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:                     strings.TrimSpace(getenv("REDIS_ADDR", "localhost:6379")),
			RedisPassword:                 getenv("REDIS_PASSWORD", ""),
			RedisDB:                       int(getenvInt64("REDIS_DB", 0)),
			BatchIngestUserRate:           getenvFloat("RATE_LIMIT_BATCH_USER_RATE", 5),
			BatchIngestUserBurst:          int(getenvInt64("RATE_LIMIT_BATCH_USER_BURST", 20)),
			BatchIngestConcurrencyTTLSecs: int(getenvInt64("RATE_LIMIT_BATCH_LOCK_TTL_SECONDS", 30)),
		},
	}

	return cfg
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
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
