package config

import (
	"fmt"
	"log/slog"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithJWTSessions switches to signed, stateless session tokens
func WithJWTSessions(secret string, ttl time.Duration) Option {
	return func(c *ServerConfig) error {
		c.SessionBackend = "jwt"
		c.SessionSecret = secret
		if ttl > 0 {
			c.SessionTTL = ttl
		}
		return nil
	}
}

// WithoutRateLimit turns rate limiting off, for tests and local tools
func WithoutRateLimit() Option {
	return func(c *ServerConfig) error {
		c.RateLimitDisabled = true
		return nil
	}
}

// WithTrustedProxy makes the server read the client address from proxy
// headers
func WithTrustedProxy() Option {
	return func(c *ServerConfig) error {
		c.TrustProxyHeaders = true
		return nil
	}
}

// WithLogger sets the logger handed to every component
func WithLogger(logger *slog.Logger) Option {
	return func(c *ServerConfig) error {
		c.Logger = logger
		return nil
	}
}
