package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carlosnayan/agentdb/internal/migrations"
	"github.com/carlosnayan/agentdb/schema"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Commands to interact directly with the database:
  - push: Create the missing tables and indexes
  - status: Report tables and columns the database is missing
  - health: Check connectivity and pool usage
  - execute: Execute arbitrary SQL`,
	}
	cmd.AddCommand(newDBPushCmd(), newDBStatusCmd(), newDBHealthCmd(), newDBExecuteCmd())
	return cmd
}

func newDBPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Create the missing tables and indexes",
		Long: `Creates every model table and index that does not exist yet. Existing
tables are never altered or dropped; use db status to see what differs.`,
		Args: cobra.NoArgs,
		RunE: runDBPush,
	}
}

func runDBPush(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	db, d, _, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintln(out, Info("Applying schema to database..."))
	ran, err := migrations.Push(cmd.Context(), db, d, schema.Default())
	if err != nil {
		return fmt.Errorf("error pushing schema: %w", err)
	}

	fmt.Fprintln(out, Success(fmt.Sprintf("Schema applied (%d statements)", len(ran))))
	return nil
}

func newDBStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report tables and columns missing from the database",
		Args:  cobra.NoArgs,
		RunE:  runDBStatus,
	}
}

func runDBStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	db, d, _, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	drift, err := migrations.DetectDrift(cmd.Context(), db, d, schema.Default())
	if err != nil {
		return fmt.Errorf("error introspecting database: %w", err)
	}
	if drift.Empty() {
		fmt.Fprintln(out, Success("Database is in sync with the models."))
		return nil
	}

	fmt.Fprintln(out, Warning("Database differs from the models:"))
	fmt.Fprint(out, migrations.FormatDrift(drift))
	fmt.Fprintln(out, Info("Run 'agentdb db push' to create what is missing."))
	return fmt.Errorf("schema drift detected")
}

func newDBHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity and pool usage",
		Args:  cobra.NoArgs,
		RunE:  runDBHealth,
	}
}

func runDBHealth(cmd *cobra.Command, args []string) error {
	db, d, cfg, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	check, err := migrations.CheckHealth(cmd.Context(), db, d, cfg.Timeouts.Query.Duration)
	if check != nil {
		migrations.PrintHealthCheck(cmd.OutOrStdout(), check)
	}
	return err
}

func newDBExecuteCmd() *cobra.Command {
	var (
		file  string
		stdin bool
	)

	cmd := &cobra.Command{
		Use:   "execute [sql]",
		Short: "Execute arbitrary SQL on the database",
		Long: `Executes SQL statements on the database, one at a time. The script comes
from --file, from standard input with --stdin, or from the arguments.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sql string
			switch {
			case file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("error reading file: %w", err)
				}
				sql = string(data)
			case stdin:
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("error reading stdin: %w", err)
				}
				sql = string(data)
			default:
				sql = strings.Join(args, " ")
			}
			return runDBExecute(cmd, sql)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "SQL file to execute")
	cmd.Flags().BoolVar(&stdin, "stdin", false, "Read SQL from standard input")
	cmd.MarkFlagsMutuallyExclusive("file", "stdin")
	return cmd
}

func runDBExecute(cmd *cobra.Command, sql string) error {
	statements := migrations.SplitSQLStatements(sql)
	if len(statements) == 0 {
		return fmt.Errorf("no SQL provided")
	}

	out := cmd.OutOrStdout()
	db, _, _, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	for _, stmt := range statements {
		result, err := db.Exec(cmd.Context(), stmt)
		if err != nil {
			return fmt.Errorf("error executing SQL: %w\nSQL: %s", err, stmt)
		}
		fmt.Fprintf(out, "%s %d row(s) affected\n", Info("Executed:"), result.RowsAffected())
	}

	fmt.Fprintln(out, Success("SQL executed successfully!"))
	return nil
}
