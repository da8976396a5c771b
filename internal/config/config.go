package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	JWT        JWTConfig
	S3         S3Config
	Log        LogConfig
	Classifier ClassifierConfig
	Analysis   AnalysisConfig
	CORS       CORSConfig
	Operator   OperatorConfig
	Email      EmailConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds JWT signing and expiry settings.
type JWTConfig struct {
	Secret             string        `mapstructure:"secret"`
	AccessTokenExpiry  time.Duration `mapstructure:"access_expiry"`
	RefreshTokenExpiry time.Duration `mapstructure:"refresh_expiry"`
	Issuer             string        `mapstructure:"issuer"`
}

// OperatorConfig holds the review operator's login credentials. The
// segmentation desk is a single-operator tool; accounts live in config,
// not in a user table.
type OperatorConfig struct {
	Email        string `mapstructure:"email"`
	PasswordHash string `mapstructure:"password_hash"`
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ClassifierProviderConfig holds settings for one LLM provider.
type ClassifierProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// ClassifierConfig holds boundary classifier settings with an optional
// secondary provider used as a fallback.
type ClassifierConfig struct {
	Primary   ClassifierProviderConfig `mapstructure:"primary"`
	Secondary ClassifierProviderConfig `mapstructure:"secondary"`
}

// SecondaryConfig returns the secondary provider config, or nil if not
// configured.
func (c *ClassifierConfig) SecondaryConfig() *ClassifierProviderConfig {
	if c.Secondary.Provider != "" {
		return &c.Secondary
	}
	return nil
}

// AnalysisConfig holds segmentation analysis settings.
type AnalysisConfig struct {
	// PageTextLimit bounds how many characters of each page's text are
	// handed to the classifier, to bound prompt size.
	PageTextLimit int `mapstructure:"page_text_limit"`
}

// EmailConfig holds notification delivery settings.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	NotifyTo    string `mapstructure:"notify_to"`
}

// Load reads configuration from environment variables with the DOCSLICE_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCSLICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "docslice")
	v.SetDefault("db.password", "docslice_secret")
	v.SetDefault("db.name", "docslice_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.access_expiry", "15m")
	v.SetDefault("jwt.refresh_expiry", "168h")
	v.SetDefault("jwt.issuer", "docslice")

	// Operator defaults (hash is bcrypt of "docslice-dev", dev only)
	v.SetDefault("operator.email", "operator@docslice.local")
	v.SetDefault("operator.password_hash", "$2a$10$3euPcmQFCiblsZeEu5s7p.9OVHgeHWFDk9nhMqZ0m/3pd/lhwZgES")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "docslice-bundles")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.max_file_size_mb", 200)
	v.SetDefault("s3.presign_expiry", 3600)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Classifier defaults
	v.SetDefault("classifier.primary.provider", "gemini")
	v.SetDefault("classifier.primary.api_key", "")
	v.SetDefault("classifier.primary.default_model", "gemini-2.0-flash")
	v.SetDefault("classifier.primary.timeout_secs", 120)
	v.SetDefault("classifier.secondary.provider", "")
	v.SetDefault("classifier.secondary.api_key", "")
	v.SetDefault("classifier.secondary.default_model", "")
	v.SetDefault("classifier.secondary.timeout_secs", 120)

	// Analysis defaults
	v.SetDefault("analysis.page_text_limit", 600)

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.from_address", "noreply@docslice.local")
	v.SetDefault("email.notify_to", "")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                        "DOCSLICE_SERVER_PORT",
		"server.read_timeout":                "DOCSLICE_SERVER_READ_TIMEOUT",
		"server.write_timeout":               "DOCSLICE_SERVER_WRITE_TIMEOUT",
		"server.environment":                 "DOCSLICE_SERVER_ENVIRONMENT",
		"db.host":                            "DOCSLICE_DB_HOST",
		"db.port":                            "DOCSLICE_DB_PORT",
		"db.user":                            "DOCSLICE_DB_USER",
		"db.password":                        "DOCSLICE_DB_PASSWORD",
		"db.name":                            "DOCSLICE_DB_NAME",
		"db.sslmode":                         "DOCSLICE_DB_SSLMODE",
		"db.max_open":                        "DOCSLICE_DB_MAX_OPEN",
		"db.max_idle":                        "DOCSLICE_DB_MAX_IDLE",
		"jwt.secret":                         "DOCSLICE_JWT_SECRET",
		"jwt.access_expiry":                  "DOCSLICE_JWT_ACCESS_EXPIRY",
		"jwt.refresh_expiry":                 "DOCSLICE_JWT_REFRESH_EXPIRY",
		"jwt.issuer":                         "DOCSLICE_JWT_ISSUER",
		"operator.email":                     "DOCSLICE_OPERATOR_EMAIL",
		"operator.password_hash":             "DOCSLICE_OPERATOR_PASSWORD_HASH",
		"s3.region":                          "DOCSLICE_S3_REGION",
		"s3.bucket":                          "DOCSLICE_S3_BUCKET",
		"s3.endpoint":                        "DOCSLICE_S3_ENDPOINT",
		"s3.access_key":                      "DOCSLICE_S3_ACCESS_KEY",
		"s3.secret_key":                      "DOCSLICE_S3_SECRET_KEY",
		"s3.max_file_size_mb":                "DOCSLICE_S3_MAX_FILE_SIZE_MB",
		"s3.presign_expiry":                  "DOCSLICE_S3_PRESIGN_EXPIRY",
		"log.level":                          "DOCSLICE_LOG_LEVEL",
		"log.format":                         "DOCSLICE_LOG_FORMAT",
		"cors.allowed_origins":               "DOCSLICE_CORS_ALLOWED_ORIGINS",
		"classifier.primary.provider":        "DOCSLICE_CLASSIFIER_PRIMARY_PROVIDER",
		"classifier.primary.api_key":         "DOCSLICE_CLASSIFIER_PRIMARY_API_KEY",
		"classifier.primary.default_model":   "DOCSLICE_CLASSIFIER_PRIMARY_DEFAULT_MODEL",
		"classifier.primary.timeout_secs":    "DOCSLICE_CLASSIFIER_PRIMARY_TIMEOUT_SECS",
		"classifier.secondary.provider":      "DOCSLICE_CLASSIFIER_SECONDARY_PROVIDER",
		"classifier.secondary.api_key":       "DOCSLICE_CLASSIFIER_SECONDARY_API_KEY",
		"classifier.secondary.default_model": "DOCSLICE_CLASSIFIER_SECONDARY_DEFAULT_MODEL",
		"classifier.secondary.timeout_secs":  "DOCSLICE_CLASSIFIER_SECONDARY_TIMEOUT_SECS",
		"analysis.page_text_limit":           "DOCSLICE_ANALYSIS_PAGE_TEXT_LIMIT",
		"email.provider":                     "DOCSLICE_EMAIL_PROVIDER",
		"email.region":                       "DOCSLICE_EMAIL_REGION",
		"email.from_address":                 "DOCSLICE_EMAIL_FROM_ADDRESS",
		"email.notify_to":                    "DOCSLICE_EMAIL_NOTIFY_TO",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if DOCSLICE_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("DOCSLICE_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.JWT = JWTConfig{
		Secret:             v.GetString("jwt.secret"),
		AccessTokenExpiry:  v.GetDuration("jwt.access_expiry"),
		RefreshTokenExpiry: v.GetDuration("jwt.refresh_expiry"),
		Issuer:             v.GetString("jwt.issuer"),
	}
	cfg.Operator = OperatorConfig{
		Email:        v.GetString("operator.email"),
		PasswordHash: v.GetString("operator.password_hash"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.Classifier = ClassifierConfig{
		Primary: ClassifierProviderConfig{
			Provider:     v.GetString("classifier.primary.provider"),
			APIKey:       v.GetString("classifier.primary.api_key"),
			DefaultModel: v.GetString("classifier.primary.default_model"),
			TimeoutSecs:  v.GetInt("classifier.primary.timeout_secs"),
		},
		Secondary: ClassifierProviderConfig{
			Provider:     v.GetString("classifier.secondary.provider"),
			APIKey:       v.GetString("classifier.secondary.api_key"),
			DefaultModel: v.GetString("classifier.secondary.default_model"),
			TimeoutSecs:  v.GetInt("classifier.secondary.timeout_secs"),
		},
	}

	cfg.Analysis = AnalysisConfig{
		PageTextLimit: v.GetInt("analysis.page_text_limit"),
	}

	cfg.Email = EmailConfig{
		Provider:    v.GetString("email.provider"),
		Region:      v.GetString("email.region"),
		FromAddress: v.GetString("email.from_address"),
		NotifyTo:    v.GetString("email.notify_to"),
	}

	return cfg, nil
}
