package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sebuszqo/FinanceLedger/internal/config"
	database "github.com/sebuszqo/FinanceLedger/internal/db"
	"github.com/sebuszqo/FinanceLedger/internal/db/migrations"
	"github.com/sebuszqo/FinanceLedger/internal/email"
	"github.com/sebuszqo/FinanceLedger/internal/logger"
	"github.com/sebuszqo/FinanceLedger/internal/user"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "financeledger",
		Short:        "Personal finance ledger backed by PostgreSQL",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newUsersCmd())
	return root
}

// app holds what every command needs: configuration, logger and an open pool.
type app struct {
	cfg *config.Config
	log *logrus.Logger
	db  *database.DBService
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	dbService, err := database.NewDBService(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("could not initialize database: %w", err)
	}
	return &app{cfg: cfg, log: log, db: dbService}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.log.WithError(err).Error("could not close database")
	}
}

func (a *app) migrator() (*database.Migrator, error) {
	return database.NewMigrator(a.db.DB, migrations.SeedOptions{
		AdminPassword: a.cfg.Seed.AdminPassword,
		UserPassword:  a.cfg.Seed.UserPassword,
		DemoPassword:  a.cfg.Seed.DemoPassword,
	}, a.log)
}

func (a *app) userService(mailer email.EmailSender) user.Service {
	return user.NewUserService(user.NewUserRepository(a.db.DB), database.NewTxManager(a.db.DB, a.log), mailer, user.Options{
		LockoutThreshold: a.cfg.Auth.LockoutThreshold,
		LockoutDuration:  a.cfg.Auth.LockoutDuration,
		CodeTTL:          a.cfg.Email.CodeTTL,
		ResendInterval:   a.cfg.Email.ResendInterval,
		CheckEmailHost:   a.cfg.Email.CheckHost,
	}, a.log.WithField("component", "user"))
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.cfg.Validate(); err != nil {
				a.log.WithError(err).Error("Missing configuration, update to start server")
				return err
			}
			return runServer(cmd.Context(), a)
		},
	}
}

// migrationCommand wires a Migrator action into a cobra command.
func migrationCommand(use, short string, args cobra.PositionalArgs, run func(ctx context.Context, m *database.Migrator, cmd *cobra.Command, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			m, err := a.migrator()
			if err != nil {
				return err
			}
			return run(cmd.Context(), m, cmd, args)
		},
	}
}

func parseVersion(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid migration version %q", s)
	}
	return v, nil
}

func newMigrateCmd() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	migrate.AddCommand(
		migrationCommand("up", "Apply all pending migrations", cobra.NoArgs,
			func(ctx context.Context, m *database.Migrator, _ *cobra.Command, _ []string) error {
				return m.Up(ctx)
			}),
		migrationCommand("up-to VERSION", "Apply pending migrations up to VERSION", cobra.ExactArgs(1),
			func(ctx context.Context, m *database.Migrator, _ *cobra.Command, args []string) error {
				v, err := parseVersion(args[0])
				if err != nil {
					return err
				}
				return m.UpTo(ctx, v)
			}),
		migrationCommand("down", "Roll back the latest migration", cobra.NoArgs,
			func(ctx context.Context, m *database.Migrator, _ *cobra.Command, _ []string) error {
				return m.Down(ctx)
			}),
		migrationCommand("down-to VERSION", "Roll back migrations newer than VERSION (0 empties the schema)", cobra.ExactArgs(1),
			func(ctx context.Context, m *database.Migrator, _ *cobra.Command, args []string) error {
				v, err := parseVersion(args[0])
				if err != nil {
					return err
				}
				return m.DownTo(ctx, v)
			}),
		migrationCommand("redo", "Roll back and re-apply the latest migration", cobra.NoArgs,
			func(ctx context.Context, m *database.Migrator, _ *cobra.Command, _ []string) error {
				return m.Redo(ctx)
			}),
		migrationCommand("status", "List migrations and whether they are applied", cobra.NoArgs,
			func(ctx context.Context, m *database.Migrator, cmd *cobra.Command, _ []string) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return err
				}
				printStatus(cmd, statuses)
				return nil
			}),
		migrationCommand("version", "Print the current schema version", cobra.NoArgs,
			func(ctx context.Context, m *database.Migrator, cmd *cobra.Command, _ []string) error {
				v, err := m.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			}),
	)
	return migrate
}

func printStatus(cmd *cobra.Command, statuses []database.MigrationStatus) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tSOURCE")
	for _, s := range statuses {
		state, appliedAt := "pending", "-"
		if s.Applied {
			state, appliedAt = "applied", s.AppliedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Version, state, appliedAt, s.Source)
	}
	w.Flush()
}

func newUsersCmd() *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}

	var password string
	setPassword := &cobra.Command{
		Use:   "set-password LOGIN_OR_EMAIL",
		Short: "Replace a user's password, e.g. for seeded accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password given: use --password or pipe it on stdin")
				}
				password = strings.TrimRight(line, "\r\n")
			}

			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			// Setting a password sends no mail, so the queue is never started.
			mailer, err := email.NewEmailService(a.cfg.Email, a.log)
			if err != nil {
				return err
			}
			users := a.userService(mailer)
			u, err := users.GetByLoginOrEmail(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("could not find user %q: %w", args[0], err)
			}
			if err := users.SetPassword(cmd.Context(), u.ID, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", u.UserName)
			return nil
		},
	}
	setPassword.Flags().StringVar(&password, "password", "", "new password (read from stdin when empty)")

	users.AddCommand(setPassword)
	return users
}
