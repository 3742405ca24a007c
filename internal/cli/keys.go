package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/sifan077/shrtnr/internal/app/service"
	"github.com/spf13/cobra"
)

func (a *app) keysCommand() *cobra.Command {
	keys := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys.",
	}

	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Issue a new API key. The token is printed once.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cred, err := a.reg.credentials.CreateCredential(a.ctx(cmd), name)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:    %s\n", cred.ID)
			fmt.Fprintf(out, "name:  %s\n", cred.Label)
			fmt.Fprintf(out, "token: %s\n", cred.Token)
			return nil
		},
	}
	create.Flags().StringVarP(&name, "name", "n", "", "label for the key")
	_ = create.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List active API keys with masked tokens.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := a.reg.credentials.ListCredentials(a.ctx(cmd))
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTOKEN\tCREATED")
			for _, c := range creds {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Label, service.MaskToken(c.Token), c.CreatedAt.UTC().Format(timeLayout))
			}
			return w.Flush()
		},
	}

	revoke := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Deactivate an API key.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.reg.credentials.RevokeCredential(a.ctx(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
			return nil
		},
	}

	keys.AddCommand(create, list, revoke)
	return keys
}
