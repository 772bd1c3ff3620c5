package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// SourceConfig holds settings for the remote tender source API.
type SourceConfig struct {
	BaseURL           string // JSON API origin
	StaticOrigin      string // static-file origin for image paths
	Username          string // Basic auth
	Password          string
	RequestsPerSecond float64 // ingestion pacing
	PageSize          int     // expected page size, used as a fallback only
}

// StorageConfig holds settings for the object storage service.
type StorageConfig struct {
	BaseURL    string // storage API origin
	ServiceKey string
	Bucket     string
}

// ImageConfig holds settings for the image pipeline.
type ImageConfig struct {
	ProxyURLs     []string // ordered CORS proxy fallbacks
	RemovalAPIURL string   // watermark-removal vendor endpoint
	RemovalAPIKey string
	BatchSize     int
	FetchTimeout  time.Duration
	WatermarkText string
}

// MailConfig holds SES SMTP settings for alert emails.
type MailConfig struct {
	SMTPHost string
	SMTPPort string
	Username string
	Password string
	From     string
}

// PushConfig holds FCM and VAPID settings.
type PushConfig struct {
	FCMServerKey    string
	FCMEndpoint     string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
}

// BillingConfig holds payment provider settings.
type BillingConfig struct {
	APIURL        string
	SecretKey     string
	WebhookSecret string
	WebhookURL    string
}

type Config struct {
	// Server
	Port string
	Env  string // "development", "production"

	// Database
	DatabaseURL string

	// CORS
	AllowedOrigins []string
	FrontendURL    string

	Source  SourceConfig
	Storage StorageConfig
	Image   ImageConfig
	Mail    MailConfig
	Push    PushConfig
	Billing BillingConfig

	// Scheduler
	CheckerEnabled  bool
	CheckerSchedule string        // Cron expression for the incremental check
	ImageSchedule   string        // Cron expression for the image batch
	JobTimeout      time.Duration // Timeout for one scheduled job
}

func Load() *Config {
	return &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/tenderspro?sslmode=disable"),

		// CORS
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),

		Source: SourceConfig{
			BaseURL:           getEnv("TENDER_SOURCE_URL", "https://api.dztenders.com"),
			StaticOrigin:      getEnv("TENDER_STATIC_ORIGIN", "https://old.dztenders.com"),
			Username:          os.Getenv("DZTENDERS_USERNAME"),
			Password:          os.Getenv("DZTENDERS_PASSWORD"),
			RequestsPerSecond: getFloatEnv("SOURCE_REQUESTS_PER_SECOND", 1.0),
			PageSize:          getIntEnv("SOURCE_PAGE_SIZE", 20),
		},

		Storage: StorageConfig{
			BaseURL:    os.Getenv("STORAGE_URL"),
			ServiceKey: os.Getenv("STORAGE_SERVICE_KEY"),
			Bucket:     getEnv("STORAGE_BUCKET", "tender-documents"),
		},

		Image: ImageConfig{
			ProxyURLs: strings.Split(getEnv("IMAGE_PROXY_URLS",
				"https://api.codetabs.com/v1/proxy?quest="), ","),
			RemovalAPIURL: getEnv("WATERMARK_REMOVAL_URL", "https://api.remove.bg/v1.0/removebg"),
			RemovalAPIKey: os.Getenv("WATERMARK_REMOVAL_API_KEY"),
			BatchSize:     getIntEnv("IMAGE_BATCH_SIZE", 10),
			FetchTimeout:  getDurationEnv("IMAGE_FETCH_TIMEOUT", 30*time.Second),
			WatermarkText: getEnv("WATERMARK_TEXT", "TENDERSPRO.CO"),
		},

		Mail: MailConfig{
			SMTPHost: getEnv("SES_SMTP_HOST", "email-smtp.us-east-1.amazonaws.com"),
			SMTPPort: getEnv("SES_SMTP_PORT", "587"),
			Username: os.Getenv("SES_SMTP_USERNAME"),
			Password: os.Getenv("SES_SMTP_PASSWORD"),
			From:     getEnv("MAIL_FROM", "alerts@tenderspro.co"),
		},

		Push: PushConfig{
			FCMServerKey:    os.Getenv("FCM_SERVER_KEY"),
			FCMEndpoint:     getEnv("FCM_ENDPOINT", "https://fcm.googleapis.com/fcm/send"),
			VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
			VAPIDSubject:    getEnv("VAPID_SUBJECT", "mailto:alerts@tenderspro.co"),
		},

		Billing: BillingConfig{
			APIURL:        getEnv("CHARGILY_API_URL", "https://pay.chargily.net/api/v2"),
			SecretKey:     os.Getenv("CHARGILY_SECRET_KEY"),
			WebhookSecret: os.Getenv("CHARGILY_WEBHOOK_SECRET"),
			WebhookURL:    os.Getenv("PAYMENT_WEBHOOK_URL"),
		},

		// Scheduler
		CheckerEnabled:  getBoolEnv("CHECKER_ENABLED", true),
		CheckerSchedule: getEnv("CHECKER_SCHEDULE", "*/30 * * * *"), // every 30 minutes
		ImageSchedule:   getEnv("IMAGE_SCHEDULE", "15 * * * *"),     // hourly at minute 15
		JobTimeout:      getDurationEnv("JOB_TIMEOUT", 5*time.Minute),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
