package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	SuperAdmin SuperAdminConfig
	Access     AccessConfig
	Grades     GradesConfig
	Stripe     StripeConfig
	Mail       MailConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SuperAdminConfig seeds the bootstrap superadmin account.
type SuperAdminConfig struct {
	Name     string
	Password string
}

// AccessConfig controls how long a confirmed payment grants course access.
type AccessConfig struct {
	Validity time.Duration
}

// GradesConfig tunes caching of the public grade listing.
type GradesConfig struct {
	CacheTTL time.Duration
}

// StripeConfig holds checkout session parameters and webhook verification secrets.
type StripeConfig struct {
	SecretKey          string
	WebhookSecret      string
	SuccessURL         string
	CancelURL          string
	Currency           string
	UnitAmount         int64
	ProductName        string
	ProductDescription string
}

// MailConfig configures outbound notification delivery.
type MailConfig struct {
	SendGridAPIKey string
	FromName       string
	FromAddress    string
	Workers        int
	Retries        int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.SuperAdmin = SuperAdminConfig{
		Name:     v.GetString("SUPERADMIN_NAME"),
		Password: v.GetString("SUPERADMIN_PASSWORD"),
	}

	cfg.Access = AccessConfig{
		Validity: parseDuration(v.GetString("ACCESS_VALIDITY"), 365*24*time.Hour),
	}

	cfg.Grades = GradesConfig{
		CacheTTL: parseDuration(v.GetString("GRADES_CACHE_TTL"), 2*time.Minute),
	}

	unitAmount := v.GetInt64("STRIPE_UNIT_AMOUNT")
	if unitAmount <= 0 {
		unitAmount = 3500
	}
	cfg.Stripe = StripeConfig{
		SecretKey:          v.GetString("STRIPE_SECRET_KEY"),
		WebhookSecret:      v.GetString("STRIPE_WEBHOOK_SECRET"),
		SuccessURL:         v.GetString("STRIPE_SUCCESS_URL"),
		CancelURL:          v.GetString("STRIPE_CANCEL_URL"),
		Currency:           strings.ToLower(v.GetString("STRIPE_CURRENCY")),
		UnitAmount:         unitAmount,
		ProductName:        v.GetString("STRIPE_PRODUCT_NAME"),
		ProductDescription: v.GetString("STRIPE_PRODUCT_DESCRIPTION"),
	}

	cfg.Mail = MailConfig{
		SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
		FromName:       v.GetString("MAIL_FROM_NAME"),
		FromAddress:    v.GetString("MAIL_FROM_ADDRESS"),
		Workers:        v.GetInt("MAIL_WORKERS"),
		Retries:        v.GetInt("MAIL_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "coursepass")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "coursepass-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SUPERADMIN_NAME", "")
	v.SetDefault("SUPERADMIN_PASSWORD", "")

	v.SetDefault("ACCESS_VALIDITY", "8760h")
	v.SetDefault("GRADES_CACHE_TTL", "2m")

	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	v.SetDefault("STRIPE_SUCCESS_URL", "http://localhost:5173/payment/success")
	v.SetDefault("STRIPE_CANCEL_URL", "http://localhost:5173/payment/cancel")
	v.SetDefault("STRIPE_CURRENCY", "usd")
	v.SetDefault("STRIPE_UNIT_AMOUNT", 3500)
	v.SetDefault("STRIPE_PRODUCT_NAME", "Course Access Fee")
	v.SetDefault("STRIPE_PRODUCT_DESCRIPTION", "One-time payment for 12 months of course access")

	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM_NAME", "CoursePass")
	v.SetDefault("MAIL_FROM_ADDRESS", "no-reply@coursepass.local")
	v.SetDefault("MAIL_WORKERS", 2)
	v.SetDefault("MAIL_RETRIES", 3)
}

// isMissingFile reports whether viper failed only because the optional .env file is absent.
func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
