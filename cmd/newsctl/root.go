package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/noticias/core/internal/app"
	"github.com/noticias/core/internal/config"
	"github.com/noticias/core/internal/pkg/tenant"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cli holds the state shared by every subcommand.
type cli struct {
	configPath string
	site       string
	verbose    bool
	noColor    bool

	cfg    *config.AppConfig
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "newsctl",
		Short: "Operate the noticias newsletter backend",
		Long: `newsctl runs maintenance tasks against the same stores, mailer and
event bus the server uses.

Example usage:
  newsctl migrate                        # Create indexes and tables
  newsctl preview morning --format text  # Render today's morning bulletin
  newsctl dispatch weekly --site hidalgo # Send the weekly digest now
  newsctl subscribers stats              # Subscriber counters
  newsctl hash-password                  # Hash an admin password`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if c.noColor {
				color.NoColor = true
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", config.DefaultConfigPath, "path to YAML config file")
	root.PersistentFlags().StringVar(&c.site, "site", "", "site key (default: sites.default)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log at debug level")
	root.PersistentFlags().BoolVar(&c.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		c.migrateCmd(),
		c.previewCmd(),
		c.dispatchCmd(),
		c.subscribersCmd(),
		c.hashPasswordCmd(),
		c.cacheCmd(),
	)
	return root
}

func (c *cli) out(cmd *cobra.Command) printer { return printer{out: cmd.OutOrStdout()} }

// load reads config and builds a stderr logger, so stdout carries only
// command output. Only warnings are logged unless --verbose is set.
func (c *cli) load() error {
	if c.cfg != nil {
		return nil
	}
	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.OutputPaths = []string{"stderr"}
	zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if c.verbose {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	c.cfg, c.logger = cfg, logger.Named("newsctl")
	return nil
}

// siteKey resolves --site against the configured sites.
func (c *cli) siteKey() (string, error) {
	site := strings.TrimSpace(c.site)
	if site == "" {
		return c.cfg.Sites.Default, nil
	}
	for _, k := range c.cfg.Sites.Keys() {
		if k == site {
			return site, nil
		}
	}
	return "", fmt.Errorf("unknown site %q (configured: %s)", site, strings.Join(c.cfg.Sites.Keys(), ", "))
}

// withApp boots the application without the scheduler and runs fn with a
// context scoped to the selected site.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	if err := c.load(); err != nil {
		return err
	}
	site, err := c.siteKey()
	if err != nil {
		return err
	}
	cfg := *c.cfg
	cfg.Newsletter.Scheduler = false

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, c.logger, &cfg)
	if err != nil {
		return err
	}
	defer a.Shutdown(context.WithoutCancel(ctx))
	return fn(tenant.WithSite(ctx, site), a)
}
