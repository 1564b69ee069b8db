package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/carlosnayan/agentdb/schema"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate agentdb.conf and the model registry",
		Long: `Validates the configuration and the built-in models:
  - datasource provider and URL
  - pool, timeout and log settings
  - relations, unique keys and primary keys of every model`,
		Args: cobra.NoArgs,
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	relPath, err := filepath.Rel(".", cfg.Path())
	if err != nil {
		relPath = cfg.Path()
	}
	fmt.Fprintf(out, "%s %s\n", Info("Config loaded from"), Prompt(relPath))
	fmt.Fprintf(out, "%s %s\n\n", Info("Datasource provider:"), cfg.GetProvider())

	reg, err := schema.NewRegistry(schema.Definitions()...)
	if err != nil {
		fmt.Fprintln(out, Warning("Model registry validation error:"))
		fmt.Fprintf(out, "  %v\n", err)
		return fmt.Errorf("invalid model registry")
	}

	fmt.Fprintln(out, Success(fmt.Sprintf("The configuration at %s is valid (%d models)", relPath, len(reg.Models()))))
	return nil
}
