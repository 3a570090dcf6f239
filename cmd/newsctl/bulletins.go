package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/noticias/core/internal/app"
	"github.com/noticias/core/internal/database"
	"github.com/noticias/core/internal/models"
	"github.com/spf13/cobra"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create indexes (mongo) or tables (mysql)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.load(); err != nil {
				return err
			}
			if err := database.EnsureSchema(cmd.Context(), c.cfg, c.logger); err != nil {
				return fmt.Errorf("migrate %s: %w", c.cfg.Database.Driver, err)
			}
			c.out(cmd).Success("schema ready (%s)", c.cfg.Database.Driver)
			return nil
		},
	}
}

func bulletinTypeArg(args []string) (models.BulletinType, error) {
	return models.ParseBulletinType(args[0])
}

func (c *cli) previewCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "preview <morning|evening|weekly|sports>",
		Short: "Render today's bulletin without saving or sending it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := bulletinTypeArg(args)
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				b, err := a.Services().Dispatcher.Preview(ctx, t)
				if errors.Is(err, models.ErrNoContent) {
					c.out(cmd).Warning("no published articles for the %s bulletin", t)
					return nil
				}
				if err != nil {
					return err
				}
				p := c.out(cmd)
				switch format {
				case "html":
					p.Plain("%s", b.Content.HTML)
				case "text":
					p.Plain("%s", b.Content.Text)
				default:
					p.Header(b.Subject)
					rows := make([][]string, 0, len(b.Snapshots))
					for i, s := range b.Snapshots {
						rows = append(rows, []string{strconv.Itoa(i + 1), s.Title, s.Category, s.Slug})
					}
					return p.table([]string{"#", "TITLE", "CATEGORY", "SLUG"}, rows)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, text or html")
	return cmd
}

func (c *cli) dispatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch <morning|evening|weekly|sports>",
		Short: "Generate and send today's bulletin now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := bulletinTypeArg(args)
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				p := c.out(cmd)
				b, err := a.Services().Dispatcher.Dispatch(ctx, t)
				switch {
				case errors.Is(err, models.ErrNoContent):
					p.Warning("nothing to send: no published articles for the %s bulletin", t)
					return nil
				case errors.Is(err, models.ErrAlreadySent), errors.Is(err, models.ErrDispatchInProgress):
					p.Warning("%v", err)
					return nil
				case err != nil:
					return err
				}
				if b.Status == models.BulletinSent {
					p.Success("%s sent", b.Subject)
				} else {
					p.Warning("%s finished as %s", b.Subject, b.Status)
				}
				return p.table([]string{"ID", "STATUS", "ARTICLES", "SENT", "BOUNCED", "ARCHIVE"}, [][]string{{
					b.ID,
					string(b.Status),
					strconv.Itoa(len(b.ArticleIDs)),
					strconv.FormatInt(b.Stats.Sent, 10),
					strconv.FormatInt(b.Stats.Bounced, 10),
					b.ArchiveURL,
				}})
			})
		},
	}
}
