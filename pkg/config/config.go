package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"chefscan_backend/pkg/plan"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	Stripe      StripeConfig
	MercadoPago MercadoPagoConfig
	Wompi       WompiConfig
	Redis       RedisConfig
	Email       EmailConfig
	Archive     ArchiveConfig
	Billing     BillingConfig
	App         AppConfig
}

type ServerConfig struct {
	Port      string
	LogLevel  string
	LogPretty bool
}

type DatabaseConfig struct {
	URL string
}

type AuthConfig struct {
	// JWTSecret verifies the auth system's HS256 session tokens.
	JWTSecret string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string
}

type MercadoPagoConfig struct {
	AccessToken string
}

type WompiConfig struct {
	PublicKey       string
	PrivateKey      string
	IntegritySecret string
	EventsSecret    string
	APIURL          string
}

type RedisConfig struct {
	URL string
}

type EmailConfig struct {
	ResendAPIKey string
}

type ArchiveConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type BillingConfig struct {
	// PriceCOPCents is the premium subscription price charged by the COP
	// providers (Wompi, Mercado Pago). Stripe prices through its own
	// price object and ignores this.
	PriceCOPCents int64
}

type AppConfig struct {
	// BaseURL is the public origin used for provider return URLs and
	// webhook callbacks.
	BaseURL string
}

// Load reads the environment. Provider secrets have no defaults: a missing
// one is a fatal misconfiguration reported by name, never degraded
// silently.
func Load() (*Config, error) {
	godotenv.Load()

	var missing []string
	required := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:      getEnv("PORT", "3000"),
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogPretty: getBool("LOG_PRETTY", false),
		},
		Database: DatabaseConfig{
			URL: required("DATABASE_URL"),
		},
		Auth: AuthConfig{
			JWTSecret: required("SUPABASE_JWT_SECRET"),
		},
		Stripe: StripeConfig{
			SecretKey:     required("STRIPE_SECRET_KEY"),
			WebhookSecret: required("STRIPE_WEBHOOK_SECRET"),
			PriceID:       required("STRIPE_PRICE_ID"),
		},
		MercadoPago: MercadoPagoConfig{
			AccessToken: required("MERCADOPAGO_ACCESS_TOKEN"),
		},
		Wompi: WompiConfig{
			PublicKey:       required("WOMPI_PUBLIC_KEY"),
			PrivateKey:      required("WOMPI_PRIVATE_KEY"),
			IntegritySecret: required("WOMPI_INTEGRITY_SECRET"),
			EventsSecret:    os.Getenv("WOMPI_EVENTS_SECRET"),
			APIURL:          os.Getenv("WOMPI_API_URL"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Email: EmailConfig{
			ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		},
		Archive: ArchiveConfig{
			Bucket:    os.Getenv("ARCHIVE_BUCKET"),
			Region:    getEnv("ARCHIVE_REGION", "us-east-1"),
			Endpoint:  os.Getenv("ARCHIVE_ENDPOINT"),
			AccessKey: os.Getenv("ARCHIVE_ACCESS_KEY"),
			SecretKey: os.Getenv("ARCHIVE_SECRET_KEY"),
		},
		App: AppConfig{
			BaseURL: required("APP_BASE_URL"),
		},
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	price, err := getInt64("PREMIUM_PRICE_COP_CENTS", plan.PriceCOPCents)
	if err != nil {
		return nil, err
	}
	cfg.Billing.PriceCOPCents = price

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt64 errors on a malformed value instead of silently defaulting;
// a mistyped price must never reach a checkout.
func getInt64(key string, defaultValue int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func getBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}
