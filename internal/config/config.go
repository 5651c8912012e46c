package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	StoreBackend     string // "dynamo" | "memory"
	AWSRegion        string
	AWSEndpointURL   string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID   string
	AWSSecretKey     string
	StoreCallTimeout time.Duration
	DynamoBootstrap  bool
	DynamoTables     DynamoTables

	JWTSecret          string // HS256 when set, otherwise RS256 from the key paths
	JWTPrivateKeyPath  string
	JWTPublicKeyPath   string
	JWTExpiry          time.Duration
	RefreshTokenExpiry time.Duration

	BcryptCost         int
	OTPTTL             time.Duration
	RequireActiveLogin bool

	AllowedOrigin string // CORS headers are only sent when set
	ClientHost    string

	NotifyTransport string // "smtp" | "sns" | "log"
	SMTPHost        string
	SMTPPort        string
	SMTPFrom        string
	SMTPUsername    string
	SMTPPassword    string
	SNSRegion       string
	SNSTopicARN     string

	RateLimitRPS   float64
	RateLimitBurst int
}

// DynamoTables holds the DynamoDB table name for each logical table.
type DynamoTables struct {
	Users         string
	UserLookup    string
	OTPs          string
	RefreshTokens string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:  getEnv("APP_PORT", "3000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend:     getEnv("STORE_BACKEND", "dynamo"),
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL:   getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID:   getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:     getEnv("AWS_SECRET_ACCESS_KEY", ""),
		StoreCallTimeout: getEnvDuration("STORE_CALL_TIMEOUT", 5*time.Second),
		DynamoBootstrap:  getEnvBool("DYNAMO_BOOTSTRAP", false),
		DynamoTables: DynamoTables{
			Users:         getEnv("USERS_TABLE_NAME", "users"),
			UserLookup:    getEnv("USER_LOOKUP_TABLE_NAME", "user-lookup"),
			OTPs:          getEnv("OTP_TABLE_NAME", "otp"),
			RefreshTokens: getEnv("REFRESH_TOKENS_TABLE_NAME", "refresh-tokens"),
		},

		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTPrivateKeyPath:  getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:   getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:          getEnvDuration("JWT_EXPIRATION", 15*time.Minute),
		RefreshTokenExpiry: getEnvDuration("JWT_REFRESH_EXPIRATION", 30*24*time.Hour),

		BcryptCost:         getEnvInt("BCRYPT_COST", 10),
		OTPTTL:             getEnvDuration("OTP_TTL", 24*time.Hour),
		RequireActiveLogin: getEnvBool("REQUIRE_ACTIVE_LOGIN", false),

		AllowedOrigin: getEnv("CORS_ORIGIN", ""),
		ClientHost:    strings.TrimSuffix(getEnv("CLIENT_HOST", "http://localhost:8080"), "/"),

		NotifyTransport: getEnv("NOTIFY_TRANSPORT", "smtp"),
		SMTPHost:        getEnv("SMTP_HOST", "localhost"),
		SMTPPort:        getEnv("SMTP_PORT", "1025"),
		SMTPFrom:        getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SNSRegion:       getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN:     getEnv("SNS_TOPIC_ARN", ""),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
	}
}

// IsDevelopment reports whether the service runs with APP_ENV=development.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
