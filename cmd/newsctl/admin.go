package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/noticias/core/internal/app"
	"github.com/noticias/core/internal/config"
	"github.com/noticias/core/internal/modules/auth"
	"github.com/spf13/cobra"
)

func (c *cli) hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for admin.password_hash",
		Long: `Print a bcrypt hash for admin.password_hash. Without an argument
the password is read from the first line of stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pw string
			if len(args) == 1 {
				pw = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				pw = strings.TrimRight(line, "\r\n")
			}
			if pw == "" {
				return errors.New("password is empty")
			}
			hash, err := auth.HashPassword(pw)
			if err != nil {
				return err
			}
			c.out(cmd).Plain("%s", hash)
			return nil
		},
	}
}

func (c *cli) cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage server-side caches",
	}
	var all bool
	invalidate := &cobra.Command{
		Use:   "invalidate",
		Short: "Drop cached categories on every running instance",
		Long: `Publish category.updated on the configured event bus. Every server
subscribed to the bus drops its cached category list for the site, or for
all sites with --all.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				site, _ := c.siteKey()
				if all {
					site = ""
				}
				p := c.out(cmd)
				if c.cfg.Events.Driver == config.EventsLocal {
					p.Warning("events.driver is local: running servers will not receive this event")
				}
				if err := a.PublishCategoryUpdated(ctx, site); err != nil {
					return err
				}
				if site == "" {
					site = "all sites"
				}
				p.Success("category.updated published (%s)", site)
				return nil
			})
		},
	}
	invalidate.Flags().BoolVar(&all, "all", false, "invalidate every site")
	cmd.AddCommand(invalidate)
	return cmd
}
