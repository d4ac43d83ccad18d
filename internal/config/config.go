package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string        `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32         `mapstructure:"DB_MIN_CONNS"`
	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	AccessTokenTTL  time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS    float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `mapstructure:"RATE_LIMIT_BURST"`
	ClinicName      string        `mapstructure:"CLINIC_NAME"`
	ClinicAddress   string        `mapstructure:"CLINIC_ADDRESS"`
	ClinicPhone     string        `mapstructure:"CLINIC_PHONE"`
	DefaultLocale   string        `mapstructure:"DEFAULT_LOCALE"`
	Timezone        string        `mapstructure:"TIMEZONE"`
	SMSAPIKey       string        `mapstructure:"SMS_API_KEY"`
	SMSUsername     string        `mapstructure:"SMS_USERNAME"`
	SMSSenderID     string        `mapstructure:"SMS_SENDER_ID"`
	SMSBaseURL      string        `mapstructure:"SMS_BASE_URL"`
	MaxFileSizeMB   int64         `mapstructure:"MAX_FILE_SIZE_MB"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("ACCESS_TOKEN_TTL", "60m")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 25)
	v.SetDefault("RATE_LIMIT_BURST", 50)
	v.SetDefault("CLINIC_NAME", "ClinicFlow")
	v.SetDefault("DEFAULT_LOCALE", "fr")
	v.SetDefault("TIMEZONE", "Africa/Kinshasa")
	v.SetDefault("SMS_BASE_URL", "https://api.africastalking.com/version1/messaging")
	v.SetDefault("MAX_FILE_SIZE_MB", 10)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("ACCESS_TOKEN_TTL")
	v.BindEnv("REFRESH_TOKEN_TTL")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("CLINIC_NAME")
	v.BindEnv("CLINIC_ADDRESS")
	v.BindEnv("CLINIC_PHONE")
	v.BindEnv("DEFAULT_LOCALE")
	v.BindEnv("TIMEZONE")
	v.BindEnv("SMS_API_KEY")
	v.BindEnv("SMS_USERNAME")
	v.BindEnv("SMS_SENDER_ID")
	v.BindEnv("SMS_BASE_URL")
	v.BindEnv("MAX_FILE_SIZE_MB")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-only-insecure-secret"
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: Using an insecure built-in JWT secret.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: Set ENV=production and configure JWT_SECRET for production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location resolves the configured clinic timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks that the configuration is safe to run. Outside development
// JWT_SECRET must be set so that tokens cannot be forged with a known key.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf(
			"JWT_SECRET must be set when ENV is not \"development\" (current ENV=%q). "+
				"Refusing to start without authentication configuration", c.Env)
	}
	if !c.IsDev() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters, got %d", len(c.JWTSecret))
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive, got %s", c.AccessTokenTTL)
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		return fmt.Errorf("REFRESH_TOKEN_TTL must exceed ACCESS_TOKEN_TTL")
	}
	if c.DefaultLocale != "en" && c.DefaultLocale != "fr" {
		return fmt.Errorf("DEFAULT_LOCALE must be \"en\" or \"fr\", got %q", c.DefaultLocale)
	}
	if c.MaxFileSizeMB <= 0 || c.MaxFileSizeMB > 100 {
		return fmt.Errorf("MAX_FILE_SIZE_MB must be between 1 and 100, got %d", c.MaxFileSizeMB)
	}
	return nil
}
