package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Port    string `mapstructure:"PORT"`
	GinMode string `mapstructure:"GIN_MODE"`

	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`

	// FirebaseAPIKey is the Identity Toolkit web API key used by the REST
	// identity backend. Not required when IDENTITY_BACKEND is "local".
	FirebaseAPIKey  string `mapstructure:"FIREBASE_API_KEY"`
	IdentityBackend string `mapstructure:"IDENTITY_BACKEND"`

	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`

	// Plan pricing in the smallest currency unit. The free tier is always zero.
	PremiumAmount int64  `mapstructure:"PREMIUM_AMOUNT"`
	GoldAmount    int64  `mapstructure:"GOLD_AMOUNT"`
	Currency      string `mapstructure:"CURRENCY"`

	ClientURL string `mapstructure:"CLIENT_URL"`

	SessionStorePath       string `mapstructure:"SESSION_STORE_PATH"`
	SessionStorePassphrase string `mapstructure:"SESSION_STORE_PASSPHRASE"`
}

// LoadConfig loads configuration from environment variables using Viper.
func LoadConfig() (*Config, error) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("PORT", "4242")
	viper.SetDefault("GIN_MODE", "debug")
	viper.SetDefault("IDENTITY_BACKEND", "firebase")
	viper.SetDefault("PREMIUM_AMOUNT", int64(2289))
	viper.SetDefault("GOLD_AMOUNT", int64(0))
	viper.SetDefault("CURRENCY", "bgn")

	// Bind environment variables
	viper.BindEnv("PORT")
	viper.BindEnv("GIN_MODE")
	viper.BindEnv("FIREBASE_PROJECT_ID")
	viper.BindEnv("GOOGLE_APPLICATION_CREDENTIALS")
	viper.BindEnv("FIREBASE_SERVICE_ACCOUNT_JSON_BASE64")
	viper.BindEnv("FIREBASE_API_KEY")
	viper.BindEnv("IDENTITY_BACKEND")
	viper.BindEnv("STRIPE_SECRET_KEY")
	viper.BindEnv("STRIPE_WEBHOOK_SECRET")
	viper.BindEnv("PREMIUM_AMOUNT")
	viper.BindEnv("GOLD_AMOUNT")
	viper.BindEnv("CURRENCY")
	viper.BindEnv("CLIENT_URL")
	viper.BindEnv("SESSION_STORE_PATH")
	viper.BindEnv("SESSION_STORE_PASSPHRASE")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	// Validate required fields
	if cfg.FirebaseProjectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is required")
	}
	if cfg.GoogleApplicationCredentials == "" && cfg.FirebaseServiceAccountJSONBase64 == "" {
		return nil, errors.New("either GOOGLE_APPLICATION_CREDENTIALS or FIREBASE_SERVICE_ACCOUNT_JSON_BASE64 is required")
	}
	if cfg.StripeSecretKey == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is required")
	}
	if cfg.StripeWebhookSecret == "" {
		return nil, errors.New("STRIPE_WEBHOOK_SECRET is required")
	}
	switch cfg.IdentityBackend {
	case "firebase":
		if cfg.FirebaseAPIKey == "" {
			return nil, errors.New("FIREBASE_API_KEY is required when IDENTITY_BACKEND is 'firebase'")
		}
	case "local":
		// The local backend needs no remote credentials.
	default:
		return nil, errors.New("IDENTITY_BACKEND must be 'firebase' or 'local'")
	}

	return &cfg, nil
}
