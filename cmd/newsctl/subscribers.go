package main

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/noticias/core/internal/app"
	"github.com/noticias/core/internal/models"
	"github.com/noticias/core/internal/modules/newsletter/subscription"
	"github.com/noticias/core/internal/pkg/pagination"
	"github.com/spf13/cobra"
)

func (c *cli) subscribersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscribers",
		Aliases: []string{"subs"},
		Short:   "Inspect newsletter subscribers",
	}
	cmd.AddCommand(c.subscribersListCmd(), c.subscribersStatsCmd())
	return cmd
}

func (c *cli) subscribersListCmd() *cobra.Command {
	var (
		page, limit       int
		active, confirmed string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscribers of a site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := subscription.ListFilter{Active: optionalBool(active), Confirmed: optionalBool(confirmed)}
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				items, pag, err := a.Services().Subscriptions.List(ctx, filter, pagination.New(page, limit))
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(items))
				for _, s := range items {
					rows = append(rows, []string{
						s.Email,
						s.Name,
						yesNo(s.IsActive),
						yesNo(s.IsConfirmed),
						preferenceList(s.Preferences),
						s.SubscribedAt.Format(time.DateOnly),
					})
				}
				p := c.out(cmd)
				if err := p.table([]string{"EMAIL", "NAME", "ACTIVE", "CONFIRMED", "BULLETINS", "SINCE"}, rows); err != nil {
					return err
				}
				p.Info("page %d of %d, %d total", pag.CurrentPage, pag.TotalPage, pag.Total)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", pagination.DefaultLimit, "page size")
	cmd.Flags().StringVar(&active, "active", "", "filter by active flag (true|false)")
	cmd.Flags().StringVar(&confirmed, "confirmed", "", "filter by confirmed flag (true|false)")
	return cmd
}

func (c *cli) subscribersStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show subscriber counters of a site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				st, err := a.Services().Subscriptions.Stats(ctx)
				if err != nil {
					return err
				}
				rows := [][]string{
					{"total", strconv.FormatInt(st.Total, 10)},
					{"active", strconv.FormatInt(st.Active, 10)},
					{"confirmed", strconv.FormatInt(st.Confirmed, 10)},
					{"unconfirmed", strconv.FormatInt(st.Unconfirmed, 10)},
				}
				for _, t := range models.BulletinTypes {
					rows = append(rows, []string{"bulletin " + string(t), strconv.FormatInt(st.ByType[t], 10)})
				}
				return c.out(cmd).table([]string{"METRIC", "COUNT"}, rows)
			})
		},
	}
}

func optionalBool(raw string) *bool {
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func preferenceList(p models.Preferences) string {
	var on []string
	for _, t := range models.BulletinTypes {
		if p.Wants(t) {
			on = append(on, string(t))
		}
	}
	return strings.Join(on, ",")
}
