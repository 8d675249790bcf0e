package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// envConfig mirrors the environment variables WithEnv understands. Empty
// values leave the current setting untouched.
type envConfig struct {
	Port        string `env:"PORT" env-description:"HTTP listen port"`
	Environment string `env:"ENVIRONMENT" env-description:"development, production or testing"`

	DatabaseURL string `env:"DATABASE_URL" env-description:"memory or postgres connection string"`
	DBSchema    string `env:"DB_SCHEMA" env-description:"Postgres schema used as search_path"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" env-description:"apply the embedded schema on start"`

	SessionBackend string        `env:"SESSION_BACKEND" env-description:"memory or jwt"`
	SessionSecret  string        `env:"SESSION_SECRET" env-description:"HS256 secret for jwt sessions"`
	SessionTTL     time.Duration `env:"SESSION_TTL" env-description:"session lifetime"`
	SessionCookie  string        `env:"SESSION_COOKIE" env-description:"session cookie name"`

	StorageURL        string `env:"STORAGE_URL" env-description:"memory://, none, file:///path or s3://bucket?region=..."`
	S3Region          string `env:"S3_REGION"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle    bool   `env:"S3_USE_PATH_STYLE"`
	S3PresignDuration int    `env:"S3_PRESIGN_DURATION"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`

	RateLimitBackend  string `env:"RATE_LIMIT_BACKEND" env-description:"memory or postgres"`
	RateLimitDisabled bool   `env:"RATE_LIMIT_DISABLED"`
	TrustProxyHeaders bool   `env:"TRUST_PROXY_HEADERS" env-description:"key clients on X-Forwarded-For / X-Real-IP"`

	SiteName     string `env:"SITE_NAME"`
	ContactEmail string `env:"CONTACT_EMAIL"`

	LogLevel string `env:"LOG_LEVEL" env-description:"debug, info, warn or error"`
	LogFile  string `env:"LOG_FILE" env-description:"optional rotating log file"`
}

// WithEnv applies environment variable overrides.
//
// Database:
//
//	DATABASE_URL - "memory" (default) or "postgres://..." / "postgresql://..."
//
// Storage:
//
//	STORAGE_URL - one of:
//	              - "memory://" - In-memory storage (default)
//	              - "none" - media uploads disabled
//	              - "file:///var/lib/platform/media" - local filesystem
//	              - "s3://bucket?region=us-east-1&endpoint=http://localhost:9000&path_style=true"
//
// Mail is sent over SMTP when SMTP_HOST is set, otherwise it is logged.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return env.apply(c)
	}
}

// WithDotEnv loads variables from a .env file into the process environment
// before later options read it. Variables already set win. A missing file
// is ignored.
func WithDotEnv(path string) Option {
	return func(c *ServerConfig) error {
		if path == "" {
			path = ".env"
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		return nil
	}
}

func (e envConfig) apply(c *ServerConfig) error {
	setString(&c.Port, e.Port)
	setString(&c.Environment, e.Environment)

	if err := applyDatabaseURL(c, e.DatabaseURL); err != nil {
		return err
	}
	setString(&c.DBSchema, e.DBSchema)
	if e.AutoMigrate {
		c.AutoMigrate = true
	}

	setString(&c.SessionBackend, e.SessionBackend)
	setString(&c.SessionSecret, e.SessionSecret)
	if e.SessionTTL > 0 {
		c.SessionTTL = e.SessionTTL
	}
	setString(&c.SessionCookie, e.SessionCookie)

	if err := applyStorageURL(c, e.StorageURL); err != nil {
		return err
	}
	setString(&c.S3.Region, firstNonEmpty(e.S3Region, os.Getenv("AWS_REGION")))
	setString(&c.S3.Endpoint, e.S3Endpoint)
	setString(&c.S3.AccessKeyID, firstNonEmpty(e.S3AccessKeyID, os.Getenv("AWS_ACCESS_KEY_ID")))
	setString(&c.S3.SecretAccessKey, firstNonEmpty(e.S3SecretAccessKey, os.Getenv("AWS_SECRET_ACCESS_KEY")))
	if e.S3UsePathStyle {
		c.S3.UsePathStyle = true
	}
	if e.S3PresignDuration > 0 {
		c.S3.PresignDuration = e.S3PresignDuration
	}

	if e.SMTPHost != "" {
		c.MailType = "smtp"
		c.SMTP.Host = e.SMTPHost
	}
	if e.SMTPPort > 0 {
		c.SMTP.Port = e.SMTPPort
	}
	setString(&c.SMTP.Username, e.SMTPUsername)
	setString(&c.SMTP.Password, e.SMTPPassword)
	setString(&c.SMTP.From, e.SMTPFrom)

	setString(&c.RateLimitBackend, e.RateLimitBackend)
	if e.RateLimitDisabled {
		c.RateLimitDisabled = true
	}
	if e.TrustProxyHeaders {
		c.TrustProxyHeaders = true
	}

	setString(&c.SiteName, e.SiteName)
	setString(&c.ContactEmail, e.ContactEmail)
	setString(&c.LogLevel, strings.ToLower(e.LogLevel))
	setString(&c.LogFile, e.LogFile)
	return nil
}

// applyDatabaseURL detects the database type from the URL scheme
func applyDatabaseURL(c *ServerConfig, dbURL string) error {
	switch {
	case dbURL == "":
		return nil
	case dbURL == "memory":
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
	default:
		return fmt.Errorf("unsupported DATABASE_URL format (use 'memory' or 'postgresql://...')")
	}
	return nil
}

// applyStorageURL configures media storage from STORAGE_URL
func applyStorageURL(c *ServerConfig, storageURL string) error {
	switch {
	case storageURL == "":
		return nil
	case storageURL == "memory" || storageURL == "memory://":
		c.StorageType = "memory"
		return nil
	case storageURL == "none":
		c.StorageType = "none"
		return nil
	case strings.HasPrefix(storageURL, "file://"):
		dir := strings.TrimPrefix(storageURL, "file://")
		if dir == "" {
			return fmt.Errorf("directory cannot be empty in STORAGE_URL")
		}
		c.StorageType = "fs"
		c.FS.BaseDir = dir
		return nil
	case strings.HasPrefix(storageURL, "s3://"):
		return applyS3URL(c, storageURL)
	}
	return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'none', 'file://...' or 's3://...')", storageURL)
}

// applyS3URL parses s3://bucket?region=...&endpoint=...&path_style=true
func applyS3URL(c *ServerConfig, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
	}

	c.StorageType = "s3"
	c.S3.Bucket = u.Host

	q := u.Query()
	setString(&c.S3.Region, q.Get("region"))
	setString(&c.S3.Endpoint, q.Get("endpoint"))
	if v := q.Get("path_style"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid path_style in STORAGE_URL: %w", err)
		}
		c.S3.UsePathStyle = b
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
