package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Primary  Primary        `koanf:"primary"`
	Server   ServerConfig   `koanf:"server"`
	Commerce CommerceConfig `koanf:"commerce"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Retry    RetryConfig    `koanf:"retry"`
	Security SecurityConfig `koanf:"security"`
	Logger   LoggerConfig   `koanf:"logger"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
	// Currency is the deployment's settlement currency. Gift cards in any
	// other currency are rejected with CurrencyNotMatch.
	Currency string `koanf:"currency" validate:"required"`
	// PaymentInterface identifies this connector on payment records.
	PaymentInterface string `koanf:"payment_interface" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

// CommerceConfig holds credentials for the commerce platform that owns the
// cart/payment/order aggregate.
type CommerceConfig struct {
	ProjectKey     string        `koanf:"project_key" validate:"required"`
	ClientID       string        `koanf:"client_id" validate:"required"`
	ClientSecret   string        `koanf:"client_secret" validate:"required"`
	AuthURL        string        `koanf:"auth_url" validate:"required"`
	APIURL         string        `koanf:"api_url" validate:"required"`
	SessionURL     string        `koanf:"session_url" validate:"required"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"required"`
}

// UpstreamConfig holds the gift-card issuer endpoints and credentials. The
// issuer serves balance checks and transactions from different hosts.
type UpstreamConfig struct {
	Provider       string        `koanf:"provider" validate:"required,oneof=issuer mock"`
	BalanceURL     string        `koanf:"balance_url" validate:"required"`
	TransactionURL string        `koanf:"transaction_url" validate:"required"`
	Username       string        `koanf:"username"`
	Password       string        `koanf:"password"`
	APIKey         string        `koanf:"api_key"`
	CardCurrency   string        `koanf:"card_currency" validate:"required"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"required"`
	HealthTimeout  time.Duration `koanf:"health_timeout" validate:"required"`
}

type RetryConfig struct {
	BaseDelay  int32 `koanf:"base_delay"`
	MaxRetries int32 `koanf:"max_retries"`
}

type SecurityConfig struct {
	// EncryptionKey protects gift-card PINs at rest: 32 bytes, hex
	// encoded. Startup fails without it.
	EncryptionKey string `koanf:"encryption_key" validate:"required,len=64,hexadecimal"`
	JWTSecret     string `koanf:"jwt_secret" validate:"required"`
	// RequiredScope must appear in the token's scope claim for the
	// operations surface.
	RequiredScope string `koanf:"required_scope" validate:"required"`
	SessionHeader string `koanf:"session_header" validate:"required"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

// NewLogger builds the process logger at the configured level.
func (c LoggerConfig) NewLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("CONNECTOR_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "CONNECTOR_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
