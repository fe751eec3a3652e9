package cli

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/IUPAC-InChI/RInChI/internal/app"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/database/postgres"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

func newServeCmd() *cobra.Command {
	var port int
	var stateless bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: "serve exposes the conversion operations over HTTP. Unless --stateless is\n" +
			"given it also serves the reaction registry and accepts batch jobs, which\n" +
			"needs PostgreSQL, MinIO and Kafka.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if port > 0 {
				cliCtx.Config.Server.Port = port
			}
			return app.RunAPIServer(cmd.Context(), cliCtx.Config, cliCtx.Logger, app.APIServerOptions{
				Version:   cliCtx.Build.Version,
				Stateless: stateless,
			})
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	cmd.Flags().BoolVar(&stateless, "stateless", false, "serve only the conversion endpoints")
	return cmd
}

func newWorkerCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the batch job worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return app.RunWorker(cmd.Context(), cliCtx.Config, cliCtx.Logger, app.WorkerOptions{
				Version:     cliCtx.Build.Version,
				Concurrency: concurrency,
			})
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel jobs (overrides worker.concurrency)")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the registry database schema",
	}

	run := func(fn func(*postgres.Migrator, []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			conn, err := postgres.NewConnection(cmd.Context(), cliCtx.Config.Postgres, cliCtx.Logger)
			if err != nil {
				return err
			}
			defer conn.Close()
			m, err := conn.NewMigrator()
			if err != nil {
				return err
			}
			defer m.Close()
			return fn(m, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: run(func(m *postgres.Migrator, _ []string) error {
				if err := m.Up(); err != nil {
					return err
				}
				PrintSuccess(cmd, "schema is up to date")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations (default one step)",
			Args:  cobra.MaximumNArgs(1),
			RunE: run(func(m *postgres.Migrator, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n <= 0 {
						return fmt.Errorf("steps must be a positive integer, got %q", args[0])
					}
					steps = n
				}
				if err := m.Down(steps); err != nil {
					return err
				}
				PrintSuccess(cmd, fmt.Sprintf("rolled back %d migration(s)", steps))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(m *postgres.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("version must be an integer, got %q", args[0])
				}
				return m.Force(v)
			}),
		},
	)

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
	}
	status.RunE = run(func(m *postgres.Migrator, _ []string) error {
		st, err := m.Status()
		if err != nil {
			return err
		}
		return PrintResult(status, migrationView(st))
	})
	cmd.AddCommand(status)
	return cmd
}

type migrationView postgres.MigrationStatus

func (v migrationView) String() string {
	s := fmt.Sprintf("version %d", v.Version)
	if v.Dirty {
		s += " " + color.YellowString("(dirty)")
	}
	return s
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "version")
			}
			return PrintResult(cmd, versionView(cliCtx.Build))
		},
	}
}

type versionView BuildInfo

func (v versionView) String() string {
	return fmt.Sprintf("rinchi %s\ncommit: %s\nbuilt:  %s", color.CyanString(v.Version), v.Commit, v.BuildDate)
}
