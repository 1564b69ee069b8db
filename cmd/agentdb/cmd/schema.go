package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carlosnayan/agentdb/internal/dialect"
	"github.com/carlosnayan/agentdb/internal/migrations"
	"github.com/carlosnayan/agentdb/schema"
)

func newSchemaCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the CREATE statements of every model",
		Long: `Prints the DDL db push would run on an empty database. The provider
defaults to the one in agentdb.conf.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider == "" {
				cfg, err := loadConfig()
				if err != nil {
					return fmt.Errorf("no --provider given and %w", err)
				}
				provider = cfg.GetProvider()
			}
			if !dialect.IsKnownProvider(provider) {
				return fmt.Errorf("unsupported provider %q", provider)
			}

			d := dialect.GetDialect(provider)
			fmt.Fprint(cmd.OutOrStdout(), migrations.PlanFor(schema.Default(), d).SQL(d))
			return nil
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "postgresql, mysql or sqlite")
	return cmd
}
