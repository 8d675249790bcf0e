package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tendant/simple-platform/pkg/platform"
	"github.com/tendant/simple-platform/pkg/platform/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli holds the state shared by every subcommand. Components are built on
// first use so that --help never touches the database.
type cli struct {
	envFile    string
	verbose    bool
	cfg        *config.ServerConfig
	components *config.Components
	owned      bool // components were built here and must be closed
}

// NewRootCommand creates the platformctl command tree
func NewRootCommand() *cobra.Command {
	return newRootCommand(&cli{})
}

func newRootCommand(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "platformctl",
		Short: "Simple Platform administration CLI",
		Long: `Simple Platform administration CLI

Bootstraps administrator accounts, applies the database schema and works
through the moderation queue. Configuration is read from the same
environment variables as the server.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.close()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(NewCreateAdminCommand(c))
	rootCmd.AddCommand(NewPendingCommand(c))
	rootCmd.AddCommand(NewModerateCommand(c, "approve"))
	rootCmd.AddCommand(NewModerateCommand(c, "reject"))
	rootCmd.AddCommand(NewMigrateCommand(c))
	rootCmd.AddCommand(NewPingCommand(c))

	return rootCmd
}

func (c *cli) config() (*config.ServerConfig, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(
		config.WithDotEnv(c.envFile),
		config.WithEnv(),
		config.WithoutRateLimit(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, _ := cfg.NewLogger(os.Stderr)
	cfg.Logger = logger
	c.cfg = cfg
	return cfg, nil
}

func (c *cli) service(ctx context.Context) (platform.Service, error) {
	if c.components != nil {
		return c.components.Service, nil
	}
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	if c.verbose {
		cfg.Logger.Info("Connecting", "database", cfg.DatabaseType, "storage", cfg.StorageType)
	}
	components, err := cfg.BuildService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build service: %w", err)
	}
	c.components = components
	c.owned = true
	return components.Service, nil
}

func (c *cli) close() {
	if c.owned {
		c.components.Close()
		c.components = nil
		c.owned = false
	}
}

// operator is the identity CLI actions run as.
func operator() *platform.Actor {
	return &platform.Actor{
		ID:    uuid.Nil,
		Email: "platformctl",
		Role:  platform.RolePlatformAdmin,
	}
}
