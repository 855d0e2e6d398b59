package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	// Server
	Port        string
	Environment string

	// Auth
	JWTSecret string

	// Stream chat
	StreamAPIKey    string
	StreamAPISecret string

	// Storage
	S3Bucket string
	S3Region string
	S3CDNURL string

	// Attachment byte cap enforced before upload
	MaxAttachmentBytes int64

	// Recording
	RecordingDir        string
	RecordingSampleRate int

	// Giphy
	GiphyAPIKey string

	// Telemetry
	OTLPEndpoint     string
	TracingEnabled   bool
	TraceSampleRate  float64
	MetricsNamespace string
}

// Load reads configuration from the environment, applying defaults where a
// variable is unset. Secrets (JWT, Stream credentials) are required.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "3001"),
		Environment: getEnv("ENVIRONMENT", "development"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		StreamAPIKey:    os.Getenv("STREAM_API_KEY"),
		StreamAPISecret: os.Getenv("STREAM_API_SECRET"),

		S3Bucket: getEnv("S3_BUCKET", "voxchat-uploads"),
		S3Region: getEnv("AWS_REGION", "us-east-1"),
		S3CDNURL: os.Getenv("S3_CDN_URL"),

		MaxAttachmentBytes: getEnvInt64("MAX_ATTACHMENT_BYTES", 100*1024*1024),

		RecordingDir:        getEnv("RECORDING_DIR", ""),
		RecordingSampleRate: getEnvInt("RECORDING_SAMPLE_RATE", 44100),

		GiphyAPIKey: os.Getenv("GIPHY_API_KEY"),

		OTLPEndpoint:     getEnv("OTLP_ENDPOINT", "localhost:4318"),
		TracingEnabled:   getEnvBool("TRACING_ENABLED", false),
		TraceSampleRate:  getEnvFloat("TRACE_SAMPLE_RATE", 0.1),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "voxchat"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}
	if cfg.StreamAPIKey == "" || cfg.StreamAPISecret == "" {
		return nil, fmt.Errorf("STREAM_API_KEY and STREAM_API_SECRET environment variables must be set")
	}

	return cfg, nil
}

// IsProduction reports whether the app is running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DraftTTL is how long inactive drafts stay cached
func (c *Config) DraftTTL() time.Duration {
	return 7 * 24 * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
