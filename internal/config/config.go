package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"payment-bridge-service/internal/entity"
)

// Config is built once at startup and handed to each component explicitly;
// nothing reads the environment after Load returns.
type Config struct {
	Port string

	// Commerce platform
	ShopDomain    string
	AccessToken   string
	APIVersion    string
	WebhookSecret string
	GatewayLabel  string

	// Payment processor
	ProcessorMasterKey  string
	ProcessorPrivateKey string
	ProcessorPublicKey  string
	ProcessorToken      string
	ProcessorMode       string // "test" or "live"

	Store entity.StoreProfile

	// SMTP
	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	EmailFrom string

	// Cache
	RedisAddr        string
	RedisPassword    string
	DedupTTL         time.Duration
	CacheBudgetBytes int64

	// Audit DB; empty host disables the audit trail
	MySQLHost string
	MySQLPort string
	MySQLUser string
	MySQLPass string
	MySQLName string

	KafkaTopic string

	AdminJWTSecret string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		ShopDomain:    os.Getenv("SHOPIFY_SHOP_DOMAIN"),
		AccessToken:   os.Getenv("SHOPIFY_ACCESS_TOKEN"),
		APIVersion:    getEnv("SHOPIFY_API_VERSION", "2024-01"),
		WebhookSecret: os.Getenv("SHOPIFY_WEBHOOK_SECRET"),
		GatewayLabel:  os.Getenv("PAYMENT_GATEWAY_LABEL"),

		ProcessorMasterKey:  os.Getenv("PAYDUNYA_MASTER_KEY"),
		ProcessorPrivateKey: os.Getenv("PAYDUNYA_PRIVATE_KEY"),
		ProcessorPublicKey:  os.Getenv("PAYDUNYA_PUBLIC_KEY"),
		ProcessorToken:      os.Getenv("PAYDUNYA_TOKEN"),
		ProcessorMode:       getEnv("PAYDUNYA_MODE", "test"),

		Store: entity.StoreProfile{
			Name:          os.Getenv("STORE_NAME"),
			Tagline:       os.Getenv("STORE_TAGLINE"),
			PhoneNumber:   os.Getenv("STORE_PHONE"),
			PostalAddress: os.Getenv("STORE_ADDRESS"),
			WebsiteURL:    os.Getenv("STORE_WEBSITE"),
			LogoURL:       os.Getenv("STORE_LOGO_URL"),
			CallbackURL:   os.Getenv("STORE_GLOBAL_CALLBACK_URL"),
			CancelURL:     os.Getenv("STORE_GLOBAL_CANCEL_URL"),
			ReturnURL:     os.Getenv("STORE_GLOBAL_RETURN_URL"),
		},

		SMTPHost:  os.Getenv("SMTP_HOST"),
		SMTPUser:  os.Getenv("SMTP_USER"),
		SMTPPass:  os.Getenv("SMTP_PASS"),
		EmailFrom: os.Getenv("EMAIL_FROM"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		MySQLHost: os.Getenv("MYSQL_HOST"),
		MySQLPort: getEnv("MYSQL_PORT", "3306"),
		MySQLUser: os.Getenv("MYSQL_USER"),
		MySQLPass: os.Getenv("MYSQL_PASS"),
		MySQLName: getEnv("MYSQL_NAME", "payment_bridge"),

		KafkaTopic: getEnv("KAFKA_TOPIC", "payment-topic"),

		AdminJWTSecret: os.Getenv("ADMIN_JWT_SECRET"),
	}

	var err error
	cfg.SMTPPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	ttlHours, err := strconv.Atoi(getEnv("DEDUP_TTL_HOURS", "24"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEDUP_TTL_HOURS: %w", err)
	}
	cfg.DedupTTL = time.Duration(ttlHours) * time.Hour

	cfg.CacheBudgetBytes, err = strconv.ParseInt(getEnv("CACHE_BUDGET_BYTES", "26214400"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_BUDGET_BYTES: %w", err)
	}

	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("SHOPIFY_WEBHOOK_SECRET is required")
	}
	if cfg.ProcessorMasterKey == "" {
		return nil, fmt.Errorf("PAYDUNYA_MASTER_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
