package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Runtime
	Environment string `env:"APP_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Database
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"surveyhub"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Sessions
	AuthProvider      string        `env:"AUTH_PROVIDER" envDefault:"hmac"` // hmac or jwks
	SessionSecret     string        `env:"SESSION_SECRET" envDefault:"change-me-session-secret-32-bytes"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	SessionCookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"surveyhub_session"`
	JWKSIssuer        string        `env:"JWKS_ISSUER"`

	// WorkOS AuthKit
	WorkOSAPIKey      string `env:"WORKOS_API_KEY"`
	WorkOSClientID    string `env:"WORKOS_CLIENT_ID"`
	WorkOSRedirectURI string `env:"WORKOS_REDIRECT_URI" envDefault:"http://localhost:8000/api/auth/callback"`

	// Stripe
	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`

	// Plans
	PlansFile string `env:"PLANS_FILE"`

	// Invitations
	InvitationTTL time.Duration `env:"INVITATION_TTL" envDefault:"168h"`

	// Impersonation
	ImpersonationTTL time.Duration `env:"IMPERSONATION_TTL" envDefault:"1h"`

	// Email Configuration
	EmailFrom     string `env:"EMAIL_FROM" envDefault:"noreply@surveyhub.app"`
	EmailFromName string `env:"EMAIL_FROM_NAME" envDefault:"SurveyHub"`
	SMTPHost      string `env:"SMTP_HOST" envDefault:"smtp.example.com"`
	SMTPPort      string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername  string `env:"SMTP_USERNAME"`
	SMTPPassword  string `env:"SMTP_PASSWORD"`
	SMTPUseTLS    bool   `env:"SMTP_USE_TLS" envDefault:"false"`
	MailTemplates string `env:"MAIL_TEMPLATE_DIR"` // overrides the built-in templates

	// Rate Limiting
	RateLimitMaxRequests    int           `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"100"`
	RateLimitTimeWindow     time.Duration `env:"RATE_LIMIT_TIME_WINDOW" envDefault:"60s"`
	RateLimitBlockDuration  time.Duration `env:"RATE_LIMIT_BLOCK_DURATION" envDefault:"15m"`
	RateLimitCleanupPeriod  time.Duration `env:"RATE_LIMIT_CLEANUP_PERIOD" envDefault:"5m"`
	PublicRateLimitRequests int           `env:"PUBLIC_RATE_LIMIT_MAX_REQUESTS" envDefault:"30"`

	// Frontend URL
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	// Service URLs
	APIGatewayURL          string `env:"API_GATEWAY_URL" envDefault:"http://localhost:8000"`
	AuthServiceURL         string `env:"AUTH_SERVICE_URL" envDefault:"http://localhost:8001"`
	CoreServiceURL         string `env:"CORE_SERVICE_URL" envDefault:"http://localhost:8002"`
	SurveyServiceURL       string `env:"SURVEY_SERVICE_URL" envDefault:"http://localhost:8003"`
	BillingServiceURL      string `env:"BILLING_SERVICE_URL" envDefault:"http://localhost:8004"`
	ContentServiceURL      string `env:"CONTENT_SERVICE_URL" envDefault:"http://localhost:8005"`
	NotificationServiceURL string `env:"NOTIFICATION_SERVICE_URL" envDefault:"http://localhost:8006"`

	// MinIO Configuration
	MinIOServerURL    string `env:"MINIO_SERVER_URL" envDefault:"http://localhost:9000"`
	MinIORootUser     string `env:"MINIO_ROOT_USER" envDefault:"minioadmin"`
	MinIORootPassword string `env:"MINIO_ROOT_PASSWORD" envDefault:"minioadmin"`
	MinIOUseSSL       bool   `env:"MINIO_USE_SSL" envDefault:"false"`
	MinIOBucketName   string `env:"MINIO_BUCKET_NAME" envDefault:"surveyhub-media"`
	MaxUploadBytes    int64  `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"`

	// Tracing
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// Super Admin
	SuperAdminEmail string `env:"SUPER_ADMIN_EMAIL" envDefault:"admin@surveyhub.app"`
}

var cfg *Config

// LoadConfig loads configuration from .env files and environment variables
func LoadConfig() {
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("environment loaded from %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Println("warning: .env file not found, using system environment variables")
	}

	parsed, err := Parse()
	if err != nil {
		log.Fatalf("failed to parse configuration: %v", err)
	}
	cfg = parsed
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	if cfg == nil {
		LoadConfig()
	}
	return cfg
}

// SetConfig replaces the process-wide configuration. Used by tests and the CLI.
func SetConfig(c *Config) {
	cfg = c
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// DatabaseDSN builds the postgres DSN used by gorm
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost,
		c.DBUser,
		c.DBPassword,
		c.DBName,
		c.DBPort,
		c.DBSSLMode,
	)
}

// RedisAddr returns host:port for the redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// ListenAddr extracts ":port" from a service URL such as http://localhost:8002
func ListenAddr(serviceURL string) string {
	u, err := url.Parse(serviceURL)
	if err != nil || u.Port() == "" {
		return ":8080"
	}
	return ":" + u.Port()
}
