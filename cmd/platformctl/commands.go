package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
	"github.com/tendant/simple-platform/pkg/platform"
	"github.com/tendant/simple-platform/pkg/platform/config"
	repopg "github.com/tendant/simple-platform/pkg/platform/repo/postgres"
)

// NewCreateAdminCommand creates the create-admin command
func NewCreateAdminCommand(c *cli) *cobra.Command {
	var email, password, role, tenant string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long: `Create a platform or tenant administrator account.

The password may be passed with --password or the PLATFORM_ADMIN_PASSWORD
environment variable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("PLATFORM_ADMIN_PASSWORD")
			}

			req := platform.CreateAccountRequest{
				Email:    email,
				Password: password,
				Role:     platform.Role(role),
			}
			if tenant != "" {
				id, err := uuid.Parse(tenant)
				if err != nil {
					return fmt.Errorf("invalid tenant id: %w", err)
				}
				req.TenantID = &id
			}

			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			account, err := svc.CreateAccount(cmd.Context(), operator(), req)
			if err != nil {
				return describe(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (%s)\n", account.Role, account.Email, account.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&role, "role", string(platform.RolePlatformAdmin), "tenant_admin or platform_admin")
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id for tenant_admin accounts")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// NewPendingCommand creates the pending command
func NewPendingCommand(c *cli) *cobra.Command {
	var kind string
	var limit int

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List items waiting for moderation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}

			pending := platform.ApprovalPending
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tID\tOWNER\tTITLE\tCREATED")

			if kind == "" || kind == "tenant" {
				tenants, err := svc.ListTenants(cmd.Context(), operator(), platform.ListTenantsRequest{ApprovalState: &pending, Limit: limit})
				if err != nil {
					return describe(err)
				}
				for _, t := range tenants {
					fmt.Fprintf(w, "tenant\t%s\t-\t%s\t%s\n", t.ID, t.Name, t.CreatedAt.Format("2006-01-02 15:04"))
				}
			}

			if kind != "tenant" {
				req := platform.ListContentRequest{ApprovalState: &pending, Limit: limit}
				if kind != "" {
					k := platform.Kind(kind)
					if !k.IsValid() {
						return fmt.Errorf("unknown kind %q (use tenant, story, media or event)", kind)
					}
					req.Kind = &k
				}
				items, err := svc.ListContent(cmd.Context(), operator(), req)
				if err != nil {
					return describe(err)
				}
				for _, item := range items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", item.Kind, item.ID, item.OwnerTenantID, item.Title, item.CreatedAt.Format("2006-01-02 15:04"))
				}
			}

			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "only list one of tenant, story, media, event")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows per type")

	return cmd
}

// NewModerateCommand creates the approve or reject command
func NewModerateCommand(c *cli, action string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   action + " <tenant|story|media|event|message> <id>",
		Short: strings.ToUpper(action[:1]) + action[1:] + " a tenant, content item or message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid id: %w", err)
			}

			svc, err := c.service(cmd.Context())
			if err != nil {
				return err
			}
			ctx, actor := cmd.Context(), operator()
			approve := action == "approve"

			var state platform.ApprovalState
			switch args[0] {
			case "tenant":
				var t *platform.Tenant
				if approve {
					t, err = svc.ApproveTenant(ctx, actor, id)
				} else {
					t, err = svc.RejectTenant(ctx, actor, id)
				}
				if t != nil {
					state = t.ApprovalState
				}
			case "message":
				var m *platform.Message
				if approve {
					m, err = svc.ApproveMessage(ctx, actor, id)
				} else {
					m, err = svc.RejectMessage(ctx, actor, id)
				}
				if m != nil {
					state = m.ApprovalState
				}
			default:
				kind := platform.Kind(args[0])
				if !kind.IsValid() {
					return fmt.Errorf("unknown type %q", args[0])
				}
				var content *platform.Content
				if approve {
					content, err = svc.ApproveContent(ctx, actor, kind, id)
				} else {
					content, err = svc.RejectContent(ctx, actor, kind, id)
				}
				if content != nil {
					state = content.ApprovalState
				}
			}
			if err != nil {
				return describe(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s is now %s\n", args[0], id, state)
			return nil
		},
	}

	return cmd
}

// NewMigrateCommand creates the migrate command
func NewMigrateCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long:  `Create the platform tables in DB_SCHEMA. Safe to run repeatedly.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if cfg.DatabaseType != "postgres" {
				return errors.New("migrate requires DATABASE_URL to point at postgres")
			}

			if cfg.DBSchema != "" {
				if err := createSchema(cmd.Context(), cfg.DatabaseURL, cfg.DBSchema); err != nil {
					return err
				}
			}

			pool, err := config.NewPool(cmd.Context(), cfg.DatabaseURL, cfg.DBSchema)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := repopg.EnsureSchema(cmd.Context(), pool); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Schema applied to %s\n", cfg.DBSchema)
			return nil
		},
	}

	return cmd
}

// NewPingCommand creates the ping command
func NewPingCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the database connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if cfg.DatabaseType != "postgres" {
				fmt.Fprintf(cmd.OutOrStdout(), "Database is %s, nothing to check\n", cfg.DatabaseType)
				return nil
			}
			if err := config.PingPostgres(cfg.DatabaseURL, cfg.DBSchema); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database reachable (schema %s)\n", cfg.DBSchema)
			return nil
		},
	}
}

func createSchema(ctx context.Context, databaseURL, schema string) error {
	pool, err := config.NewPool(ctx, databaseURL, "")
	if err != nil {
		return err
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", schema, err)
	}
	return nil
}

// describe turns a platform error into a one-line CLI message, keeping
// field errors readable.
func describe(err error) error {
	perr := platform.AsError(err)
	if len(perr.FieldErrors) == 0 {
		return err
	}
	fields := make([]string, 0, len(perr.FieldErrors))
	for field := range perr.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+" "+strings.Join(perr.FieldErrors[field], ", "))
	}
	return fmt.Errorf("%s: %s", perr.Message, strings.Join(parts, "; "))
}
