package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/sifan077/shrtnr/internal/app/service"
	"github.com/spf13/cobra"
)

const timeLayout = "2006-01-02 15:04:05"

func (a *app) linksCommand() *cobra.Command {
	links := &cobra.Command{
		Use:   "links",
		Short: "Create, list and delete short links.",
	}

	var custom string
	create := &cobra.Command{
		Use:   "create <url>",
		Short: "Shorten a URL, optionally under a custom code.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			link, err := a.reg.links.CreateLink(a.ctx(cmd), service.CreateLinkInput{URL: args[0], CustomCode: custom})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", link.Code, link.Destination)
			return nil
		},
	}
	create.Flags().StringVarP(&custom, "code", "c", "", "custom code to claim")

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List links, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summaries, err := a.reg.links.ListLinks(a.ctx(cmd), service.ListLinksInput{Limit: limit, Offset: offset})
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tCLICKS\tCREATED\tDESTINATION")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.Code, s.ClickCount, s.CreatedAt.UTC().Format(timeLayout), s.Destination)
			}
			return w.Flush()
		},
	}
	list.Flags().IntVar(&limit, "limit", 50, "maximum number of links (0 for all)")
	list.Flags().IntVar(&offset, "offset", 0, "links to skip")

	remove := &cobra.Command{
		Use:   "delete <code>",
		Short: "Delete an unowned link and its click history.",
		Long:  "Delete a link and its click history. Owned links can only be deleted through the API with the owner's key.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.reg.links.DeleteLink(a.ctx(cmd), args[0], nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	links.AddCommand(create, list, remove)
	return links
}
