package config

import (
	"os"
	"strconv"
	"time"
)

const (
	DefaultProvince           = "hanoi"
	DefaultRefreshInterval    = 5 * time.Minute
	DefaultFeedURL            = ""
	DefaultLogLevel           = "info"
	DefaultMetricsPort        = 3000
	DefaultMetricsHost        = "127.0.0.1"
	DefaultTracingEnabled     = false
	DefaultTracingSampleRate  = 1.0
	DefaultOTLPEndpoint       = "localhost:4318"
	DefaultHTTPTimeout        = 10 * time.Second
	DefaultDispatchRatePerMin = 10
	DefaultDispatchBurst      = 5
	DefaultMaxRetries         = 3
	DefaultRetryBackoffBase   = 1 * time.Second
	DefaultMaxPayloadSize     = 1024 * 1024
	DefaultMaxFeedSize        = 4 * 1024 * 1024
	DefaultHazardAlertTTL     = 3 * time.Hour
	DefaultShutdownTimeout    = 5 * time.Second
	DefaultVersion            = "v0.3.0"
)

const (
	DefaultMetricsReadTimeout     = 5 * time.Second
	DefaultMetricsWriteTimeout    = 10 * time.Second
	DefaultMetricsShutdownTimeout = 5 * time.Second
	MinRefreshInterval            = 10 * time.Second
	MaxRefreshInterval            = 24 * time.Hour
	MaxRequestSize                = 1024 * 1024
	DefaultRateLimitPerSec        = 10
	DefaultRateLimitBurst         = 20
)

var (
	RefreshInterval    = getDurationEnvOrDefault("STORMWATCH_REFRESH_INTERVAL", DefaultRefreshInterval)
	FeedURL            = getEnvOrDefault("STORMWATCH_FEED_URL", DefaultFeedURL)
	WebhookURL         = getEnvOrDefault("STORMWATCH_WEBHOOK_URL", "")
	SlackWebhookURL    = getEnvOrDefault("STORMWATCH_SLACK_WEBHOOK_URL", "")
	SlackChannel       = getEnvOrDefault("STORMWATCH_SLACK_CHANNEL", "#weather-alerts")
	HTTPTimeout        = getDurationEnvOrDefault("STORMWATCH_HTTP_TIMEOUT", DefaultHTTPTimeout)
	DispatchRatePerMin = getIntEnvOrDefault("STORMWATCH_DISPATCH_RATE_LIMIT", DefaultDispatchRatePerMin)
	DispatchBurst      = getIntEnvOrDefault("STORMWATCH_DISPATCH_BURST", DefaultDispatchBurst)
	MaxRetries         = getIntEnvOrDefault("STORMWATCH_MAX_RETRIES", DefaultMaxRetries)
	RetryBackoffBase   = getDurationEnvOrDefault("STORMWATCH_RETRY_BACKOFF_BASE", DefaultRetryBackoffBase)
	MaxPayloadSize     = getInt64EnvOrDefault("STORMWATCH_MAX_PAYLOAD_SIZE", DefaultMaxPayloadSize)
	MaxFeedSize        = getInt64EnvOrDefault("STORMWATCH_MAX_FEED_SIZE", DefaultMaxFeedSize)
	HazardAlertTTL     = getDurationEnvOrDefault("STORMWATCH_HAZARD_ALERT_TTL", DefaultHazardAlertTTL)
	ShutdownTimeout    = getDurationEnvOrDefault("STORMWATCH_SHUTDOWN_TIMEOUT", DefaultShutdownTimeout)
	TracingEnabled     = getEnvOrDefault("STORMWATCH_TRACING_ENABLED", "false") == "true"
	TracingSampleRate  = getFloatEnvOrDefault("STORMWATCH_TRACING_SAMPLE_RATE", DefaultTracingSampleRate)
	OTLPEndpoint       = getEnvOrDefault("STORMWATCH_OTLP_ENDPOINT", DefaultOTLPEndpoint)
	Version            = getEnvOrDefault("STORMWATCH_VERSION", DefaultVersion)
)

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil && i > 0 {
			return i
		}
	}
	return defaultValue
}

func getInt64EnvOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil && i > 0 {
			return i
		}
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func GetMetricsAddress() string {
	addr := os.Getenv("STORMWATCH_METRICS_ADDR")
	if addr == "" {
		addr = DefaultMetricsHost + ":" + strconv.Itoa(DefaultMetricsPort)
	}
	return addr
}

func AllowNonLoopbackMetrics() bool {
	return os.Getenv("STORMWATCH_METRICS_INSECURE_ALLOW_ANY_ADDR") == "1"
}

func GetMinSeverity() string {
	return getEnvOrDefault("STORMWATCH_MIN_SEVERITY", "minor")
}

func GetVersion() string {
	return Version
}

func GetUserAgent() string {
	return "Stormwatch/" + Version
}
