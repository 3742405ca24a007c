package cli

import (
	"fmt"

	infraPostgres "github.com/sifan077/shrtnr/internal/infra/postgres"
	"github.com/spf13/cobra"
)

func (a *app) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the links, clicks and credentials tables.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := infraPostgres.AutoMigrate(a.ctx(cmd), a.reg.db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}
