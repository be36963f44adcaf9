package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	MailProviderBrevo = "brevo"
	MailProviderLog   = "log"

	minBcryptCost = 12
	maxBcryptCost = 31
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	AWS       AWSConfig       `yaml:"aws"`
	JWT       JWTConfig       `yaml:"jwt"`
	Auth      AuthConfig      `yaml:"auth"`
	Mail      MailConfig      `yaml:"mail"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cleanup   CleanupConfig   `yaml:"cleanup"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration. URL wins over the discrete fields.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// StorageConfig selects the backing store
type StorageConfig struct {
	Driver string `yaml:"driver"`
}

// AWSConfig holds S3 configuration for memory photo uploads
type AWSConfig struct {
	Region        string `yaml:"region"`
	S3Bucket      string `yaml:"s3_bucket"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Endpoint      string `yaml:"endpoint"`        // S3-compatible endpoint, empty for AWS
	PublicBaseURL string `yaml:"public_base_url"` // base of photo URLs handed to clients
}

// Enabled reports whether photo uploads are configured
func (c *AWSConfig) Enabled() bool {
	return c.S3Bucket != ""
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// AuthConfig holds password hashing configuration
type AuthConfig struct {
	BcryptCost int `yaml:"bcrypt_cost"`
}

// MailConfig holds outbound email configuration
type MailConfig struct {
	Provider      string `yaml:"provider"`
	BrevoAPIKey   string `yaml:"brevo_api_key"`
	BrevoEndpoint string `yaml:"brevo_endpoint"`
	SenderName    string `yaml:"sender_name"`
	SenderEmail   string `yaml:"sender_email"`
	PublicBaseURL string `yaml:"public_base_url"` // base of the verification link
}

// RateLimitConfig holds limits for the unauthenticated auth endpoints
type RateLimitConfig struct {
	AuthPerMinute int `yaml:"auth_per_minute"`
	AuthBurst     int `yaml:"auth_burst"`
}

// CleanupConfig schedules the purge of signups that never verified.
// Schedule is a cron spec; an empty value after defaults means "@hourly".
type CleanupConfig struct {
	Disabled           bool   `yaml:"disabled"`
	Schedule           string `yaml:"schedule"`
	UnverifiedTTLHours int    `yaml:"unverified_ttl_hours"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file, applies environment overrides and defaults, and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("BREVO_API_KEY"); v != "" {
		c.Mail.BrevoAPIKey = v
	}
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		c.Mail.PublicBaseURL = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageDriverPostgres
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = minBcryptCost
	}
	if c.Mail.Provider == "" {
		c.Mail.Provider = MailProviderBrevo
	}
	if c.Mail.BrevoEndpoint == "" {
		c.Mail.BrevoEndpoint = "https://api.brevo.com/v3/smtp/email"
	}
	if c.Mail.SenderName == "" {
		c.Mail.SenderName = "Closer App"
	}
	if c.Mail.PublicBaseURL == "" {
		c.Mail.PublicBaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	if c.RateLimit.AuthPerMinute == 0 {
		c.RateLimit.AuthPerMinute = 10
	}
	if c.RateLimit.AuthBurst == 0 {
		c.RateLimit.AuthBurst = 3
	}
	if c.Cleanup.Schedule == "" {
		c.Cleanup.Schedule = "@hourly"
	}
	if c.Cleanup.UnverifiedTTLHours == 0 {
		c.Cleanup.UnverifiedTTLHours = 72
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks settings that have no safe default
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required (jwt.secret or JWT_SECRET)")
	}
	if c.Auth.BcryptCost < minBcryptCost || c.Auth.BcryptCost > maxBcryptCost {
		return fmt.Errorf("auth.bcrypt_cost must be between %d and %d, got %d", minBcryptCost, maxBcryptCost, c.Auth.BcryptCost)
	}
	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Database.URL == "" && c.Database.Host == "" {
			return fmt.Errorf("database url or host is required for the postgres storage driver")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Cleanup.UnverifiedTTLHours < 0 {
		return fmt.Errorf("cleanup.unverified_ttl_hours must not be negative")
	}
	switch c.Mail.Provider {
	case MailProviderBrevo:
		if c.Mail.BrevoAPIKey == "" || c.Mail.SenderEmail == "" {
			return fmt.Errorf("mail.brevo_api_key and mail.sender_email are required for the brevo provider")
		}
	case MailProviderLog:
	default:
		return fmt.Errorf("unknown mail provider %q", c.Mail.Provider)
	}
	return nil
}

// DSN returns the PostgreSQL connection URL
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
