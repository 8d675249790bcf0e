package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-platform/pkg/platform"
	"github.com/tendant/simple-platform/pkg/platform/mail"
	"github.com/tendant/simple-platform/pkg/platform/ratelimit"
	"github.com/tendant/simple-platform/pkg/platform/repo/memory"
	repopg "github.com/tendant/simple-platform/pkg/platform/repo/postgres"
	"github.com/tendant/simple-platform/pkg/platform/respond"
	"github.com/tendant/simple-platform/pkg/platform/session"
	"github.com/tendant/simple-platform/pkg/platform/settings"
	fsstorage "github.com/tendant/simple-platform/pkg/platform/storage/fs"
	memorystorage "github.com/tendant/simple-platform/pkg/platform/storage/memory"
	s3storage "github.com/tendant/simple-platform/pkg/platform/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:             "8080",
		Environment:      "development",
		DatabaseType:     "memory",
		DBSchema:         "platform",
		SessionBackend:   "memory",
		SessionTTL:       session.DefaultTTL,
		SessionCookie:    "session_token",
		StorageType:      "memory",
		MailType:         "log",
		RateLimitBackend: "memory",
		SiteName:         "Simple Platform",
		LogLevel:         "info",
	}
}

// ServerConfig represents configuration for the platform server and CLI
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string // Postgres schema to use (default: platform)
	AutoMigrate  bool   // Apply the embedded schema on start

	// Sessions
	SessionBackend string // "memory", "jwt"
	SessionSecret  string
	SessionTTL     time.Duration
	SessionCookie  string

	// Media storage
	StorageType string // "memory", "fs", "s3", "none"
	FS          fsstorage.Config
	S3          s3storage.Config

	// Outbound mail
	MailType string // "log", "smtp"
	SMTP     mail.SMTPConfig

	// Rate limiting
	RateLimitBackend  string // "memory", "postgres"
	RateLimitDisabled bool
	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Only set it behind a proxy that overwrites those headers.
	TrustProxyHeaders bool

	// Site settings seeded into the settings store
	SiteName     string
	ContactEmail string

	// Logging
	LogLevel string
	LogFile  string

	Logger *slog.Logger
}

// IsProduction reports whether responses must be sanitized.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.Environment {
	case "development", "production", "testing":
	default:
		return fmt.Errorf("environment must be 'development', 'production' or 'testing', got %q", c.Environment)
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	switch c.SessionBackend {
	case "memory":
	case "jwt":
		if len(c.SessionSecret) < session.MinSecretLength {
			return fmt.Errorf("session_secret must be at least %d bytes for jwt sessions", session.MinSecretLength)
		}
	default:
		return errors.New("session_backend must be 'memory' or 'jwt'")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session_ttl must be positive")
	}
	if c.SessionCookie == "" {
		return errors.New("session_cookie is required")
	}

	switch c.StorageType {
	case "memory", "none":
	case "fs":
		if c.FS.BaseDir == "" {
			return errors.New("fs base directory is required when using fs storage")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("s3 bucket is required when using s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}

	switch c.MailType {
	case "log":
	case "smtp":
		if c.SMTP.Host == "" || c.SMTP.From == "" {
			return errors.New("smtp host and from address are required when using smtp mail")
		}
	default:
		return fmt.Errorf("unsupported mail type: %s", c.MailType)
	}

	switch c.RateLimitBackend {
	case "memory":
	case "postgres":
		if c.DatabaseType != "postgres" {
			return errors.New("rate_limit_backend 'postgres' requires a postgres database")
		}
	default:
		return errors.New("rate_limit_backend must be 'memory' or 'postgres'")
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// Components is everything BuildService wires together. Close releases
// the pool and stops background sweepers.
type Components struct {
	Service   platform.Service
	Sessions  platform.SessionStore
	Limiter   *ratelimit.Limiter // nil when rate limiting is disabled
	Settings  *settings.Store
	Formatter *respond.Formatter
	Pool      *pgxpool.Pool // nil for the memory database

	closers []func()
}

// Close releases resources in reverse order of creation.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func (c *Components) onClose(fn func()) {
	c.closers = append(c.closers, fn)
}

// BuildService creates the service and its collaborators from the configuration
func (c *ServerConfig) BuildService(ctx context.Context) (*Components, error) {
	comp := &Components{}
	logger := c.logger()

	repo, pool, err := c.buildRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	if pool != nil {
		comp.Pool = pool
		comp.onClose(pool.Close)
		if c.AutoMigrate {
			if err := repopg.EnsureSchema(ctx, pool); err != nil {
				comp.Close()
				return nil, fmt.Errorf("failed to apply schema: %w", err)
			}
		}
	}

	sessions, err := c.buildSessionStore()
	if err != nil {
		comp.Close()
		return nil, fmt.Errorf("failed to build session store: %w", err)
	}
	comp.Sessions = sessions

	options := []platform.Option{
		platform.WithRepository(repo),
		platform.WithSessionStore(sessions),
		platform.WithLogger(logger),
	}

	blobStore, err := c.buildBlobStore()
	if err != nil {
		comp.Close()
		return nil, fmt.Errorf("failed to build storage backend %s: %w", c.StorageType, err)
	}
	if blobStore != nil {
		options = append(options, platform.WithBlobStore(blobStore))
	}

	mailer, err := c.buildMailer(logger)
	if err != nil {
		comp.Close()
		return nil, fmt.Errorf("failed to build mailer: %w", err)
	}
	options = append(options, platform.WithMailer(mailer))

	svc, err := platform.New(options...)
	if err != nil {
		comp.Close()
		return nil, err
	}
	comp.Service = svc

	if !c.RateLimitDisabled {
		limiter, err := c.buildLimiter(comp, pool, logger)
		if err != nil {
			comp.Close()
			return nil, fmt.Errorf("failed to build rate limiter: %w", err)
		}
		comp.Limiter = limiter
	}

	comp.Settings = settings.NewStore(settings.Settings{
		SiteName:     c.SiteName,
		ContactEmail: c.ContactEmail,
	})
	comp.Formatter = &respond.Formatter{
		Production:     c.IsProduction(),
		SessionCookies: []string{c.SessionCookie},
		Logger:         logger,
	}

	return comp, nil
}

func (c *ServerConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context) (platform.Repository, *pgxpool.Pool, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil, nil
	case "postgres":
		pool, err := NewPool(ctx, c.DatabaseURL, c.DBSchema)
		if err != nil {
			return nil, nil, err
		}
		return repopg.NewWithPool(pool), pool, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// NewPool opens a pgx pool whose connections use schema as search_path.
func NewPool(ctx context.Context, databaseURL, schema string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.New("database_url is required for postgres")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			// set search_path for this session
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", pgx.Identifier{schema}.Sanitize()))
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

// PingPostgres verifies connectivity to Postgres and optionally sets search_path for the session.
// It fails if the schema (when provided) does not exist.
func PingPostgres(databaseURL, schema string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := NewPool(ctx, databaseURL, schema)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (c *ServerConfig) buildSessionStore() (platform.SessionStore, error) {
	switch c.SessionBackend {
	case "jwt":
		return session.NewJWT(c.SessionSecret, c.SessionTTL)
	default:
		return session.NewMemory(c.SessionTTL), nil
	}
}

// buildBlobStore returns nil when media storage is turned off.
func (c *ServerConfig) buildBlobStore() (platform.BlobStore, error) {
	switch c.StorageType {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(c.FS)
	case "s3":
		return s3storage.New(c.S3)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", c.StorageType)
	}
}

func (c *ServerConfig) buildMailer(logger *slog.Logger) (platform.Mailer, error) {
	if c.MailType == "smtp" {
		return mail.NewSMTP(c.SMTP)
	}
	return mail.NewLog(logger), nil
}

func (c *ServerConfig) buildLimiter(comp *Components, pool *pgxpool.Pool, logger *slog.Logger) (*ratelimit.Limiter, error) {
	if c.RateLimitBackend == "postgres" {
		counters := repopg.NewCountersWithPool(pool)
		stop := sweepCounters(counters, ratelimit.DefaultSweepInterval, logger)
		comp.onClose(stop)
		return ratelimit.New(counters)
	}

	backend := ratelimit.NewMemory(ratelimit.DefaultSweepInterval)
	comp.onClose(func() { _ = backend.Close() })
	return ratelimit.New(backend)
}

// sweepCounters deletes expired shared counters until the returned stop
// function is called.
func sweepCounters(counters *repopg.Counters, interval time.Duration, logger *slog.Logger) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if _, err := counters.Sweep(ctx, now); err != nil && ctx.Err() == nil {
					logger.Warn("Failed to sweep rate limit counters", "err", err)
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
