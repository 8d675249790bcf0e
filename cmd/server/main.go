package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/tendant/simple-platform/pkg/platform/api"
	"github.com/tendant/simple-platform/pkg/platform/config"
)

func main() {
	// Load configuration from .env and the environment
	serverConfig, err := config.Load(config.WithDotEnv(""), config.WithEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load server configuration: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser := serverConfig.NewLogger(os.Stdout)
	defer logCloser.Close()
	slog.SetDefault(logger)
	serverConfig.Logger = logger

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	components, err := serverConfig.BuildService(ctx)
	cancel()
	if err != nil {
		logger.Error("Failed to build service", "err", err)
		os.Exit(1)
	}
	defer components.Close()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", serverConfig.Port),
		Handler:           NewHTTPServer(serverConfig, components).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Simple Platform server starting",
			"port", serverConfig.Port,
			"env", serverConfig.Environment,
			"database", serverConfig.DatabaseType,
			"storage", serverConfig.StorageType,
			"sessions", serverConfig.SessionBackend,
			"rate_limit", !serverConfig.RateLimitDisabled)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "err", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Create a deadline to wait for
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "err", err)
	}

	logger.Info("Server exiting")
}

// HTTPServer wraps the platform components for HTTP access
type HTTPServer struct {
	config     *config.ServerConfig
	components *config.Components
}

// NewHTTPServer creates a new HTTP server wrapper
func NewHTTPServer(serverConfig *config.ServerConfig, components *config.Components) *HTTPServer {
	return &HTTPServer{
		config:     serverConfig,
		components: components,
	}
}

// Routes sets up the HTTP routes
func (s *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	if s.config.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS for development
	if s.config.Environment == "development" {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

				if r.Method == "OPTIONS" {
					w.WriteHeader(http.StatusOK)
					return
				}

				next.ServeHTTP(w, r)
			})
		})
	}

	// Health check
	r.Get("/health", s.handleHealth)

	r.Mount("/", api.NewRouter(api.Config{
		Service:       s.components.Service,
		Limiter:       s.components.Limiter,
		Settings:      s.components.Settings,
		Formatter:     s.components.Formatter,
		SessionCookie: s.config.SessionCookie,
		SessionTTL:    s.config.SessionTTL,
		SecureCookies: s.config.IsProduction(),
	}))

	return r
}

type healthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Database    string `json:"database"`
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:      "healthy",
		Environment: s.config.Environment,
		Database:    s.config.DatabaseType,
	}

	if pool := s.components.Pool; pool != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			slog.WarnContext(r.Context(), "Health check database ping failed", "err", err)
			resp.Status = "degraded"
			render.Status(r, http.StatusServiceUnavailable)
		}
	}

	render.JSON(w, r, resp)
}
