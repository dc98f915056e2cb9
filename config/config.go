package config

import (
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnvironmentVariable struct {
	GO_ENV string `env:"GO_ENV" env-default:"development"`
	PORT   int    `env:"PORT" env-default:"8080"`

	// Database
	DB_USER_NAME string `env:"DB_USER_NAME"`
	DB_PASSWORD  string `env:"DB_PASSWORD"`
	DB_NAME      string `env:"DB_NAME"`
	DB_HOST      string `env:"DB_HOST" env-default:"localhost"`
	DB_PORT      string `env:"DB_PORT" env-default:"5432"`
	DB_SSL_MODE  string `env:"DB_SSL_MODE" env-default:"disable"`

	// JWT Configuration
	JWT_SECRET string `env:"JWT_SECRET"`
	JWT_ISSUER string `env:"JWT_ISSUER" env-default:"tech-centre-api"`

	// Redis / idempotency
	REDIS_URL             string `env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
	IDEMPOTENCY_BOLT_PATH string `env:"IDEMPOTENCY_BOLT_PATH" env-default:"idempotency.db"`

	// HTTP
	ALLOWED_ORIGINS string `env:"ALLOWED_ORIGINS" env-default:"http://localhost:3000"`
	CRON_ENABLED    bool   `env:"CRON_ENABLED" env-default:"true"`

	// Checkout
	CHECKOUT_PUBLIC_URL           string  `env:"CHECKOUT_PUBLIC_URL" env-default:"http://localhost:3000"`
	PAYMENT_PROVIDER              string  `env:"PAYMENT_PROVIDER" env-default:"wompi"`
	PAYMENT_CURRENCY              string  `env:"PAYMENT_CURRENCY" env-default:"COP"`
	PAYMENT_LINK_MIN_AMOUNT       int64   `env:"PAYMENT_LINK_MIN_AMOUNT" env-default:"150000"`
	FULL_PAYMENT_DISCOUNT_PERCENT float64 `env:"FULL_PAYMENT_DISCOUNT_PERCENT" env-default:"10"`
	INVOICE_ISSUER                string  `env:"INVOICE_ISSUER" env-default:"Tech Centre"`

	// Wompi
	WOMPI_BASE_URL     string `env:"WOMPI_BASE_URL" env-default:"https://sandbox.wompi.co/v1"`
	WOMPI_CHECKOUT_URL string `env:"WOMPI_CHECKOUT_URL" env-default:"https://checkout.wompi.co"`
	WOMPI_PRIVATE_KEY  string `env:"WOMPI_PRIVATE_KEY"`

	// Midtrans
	MIDTRANS_SERVER_KEY string `env:"MIDTRANS_SERVER_KEY"`
	MIDTRANS_PRODUCTION bool   `env:"MIDTRANS_PRODUCTION" env-default:"false"`

	// Stripe
	STRIPE_API_KEY string `env:"STRIPE_API_KEY"`

	// Events & alerts
	KAFKA_BROKERS     string `env:"KAFKA_BROKERS"`
	KAFKA_TOPIC       string `env:"KAFKA_TOPIC" env-default:"checkout.events"`
	KAFKA_VERSION     string `env:"KAFKA_VERSION" env-default:"3.6.0"`
	SLACK_WEBHOOK_URL string `env:"SLACK_WEBHOOK_URL"`
}

func Get() (*EnvironmentVariable, error) {
	var envVariables EnvironmentVariable
	if err := cleanenv.ReadEnv(&envVariables); err != nil {
		return nil, err
	}
	return &envVariables, nil
}

// KafkaBrokers splits the comma separated broker list, dropping blanks
func (e *EnvironmentVariable) KafkaBrokers() []string {
	var brokers []string
	for _, b := range strings.Split(e.KAFKA_BROKERS, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// IsProduction reports whether the service runs with production settings
func (e *EnvironmentVariable) IsProduction() bool {
	return e.GO_ENV == "production"
}
