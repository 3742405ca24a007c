package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/sifan077/shrtnr/internal/app/service"
	"github.com/spf13/cobra"
)

func (a *app) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [code]",
		Short: "Show service totals, or the analytics of one link.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				stats, err := a.reg.analytics.GlobalStats(a.ctx(cmd))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "links:         %d\n", stats.TotalLinks)
				fmt.Fprintf(out, "clicks:        %d\n", stats.TotalClicks)
				fmt.Fprintf(out, "links today:   %d\n", stats.LinksCreatedToday)
				fmt.Fprintf(out, "clicks today:  %d\n", stats.ClicksToday)
				return nil
			}

			stats, err := a.reg.analytics.LinkStats(a.ctx(cmd), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "code:         %s\n", stats.Link.Code)
			fmt.Fprintf(out, "destination:  %s\n", stats.Link.Destination)
			fmt.Fprintf(out, "created:      %s\n", stats.Link.CreatedAt.UTC().Format(timeLayout))
			fmt.Fprintf(out, "clicks:       %d\n", stats.ClickCount)

			if len(stats.ClicksByDay) > 0 {
				days := make([]string, 0, len(stats.ClicksByDay))
				for day := range stats.ClicksByDay {
					days = append(days, day)
				}
				sort.Strings(days)
				fmt.Fprintln(out, "\nclicks by day:")
				for _, day := range days {
					fmt.Fprintf(out, "  %s  %d\n", day, stats.ClicksByDay[day])
				}
			}
			if len(stats.TopReferers) > 0 {
				fmt.Fprintln(out, "\ntop referers:")
				for _, r := range stats.TopReferers {
					fmt.Fprintf(out, "  %-40s %d\n", r.Referer, r.Count)
				}
			}
			return nil
		},
	}
}

func (a *app) trendingCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Rank links by clicks over the last seven days.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			links, err := a.reg.analytics.Trending(a.ctx(cmd), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tRECENT\tTOTAL\tDESTINATION")
			for _, t := range links {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", t.Link.Code, t.RecentClicks, t.ClickCount, t.Link.Destination)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", service.DefaultTrendingSize, "number of links to show")
	return cmd
}
