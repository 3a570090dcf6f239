package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/noticias/core/internal/config"
	"github.com/noticias/core/internal/pkg/archive"
	"github.com/noticias/core/internal/pkg/eventbus"
	"github.com/noticias/core/internal/pkg/mail"
	pkgredis "github.com/noticias/core/internal/pkg/redis"
	"github.com/noticias/core/internal/pkg/token"
	"go.uber.org/zap"
)

// jwtSecret returns the configured admin signing secret. Development runs
// without one get a random per-process secret, so tokens do not survive a
// restart.
func jwtSecret(cfg *config.AppConfig, logger *zap.Logger) string {
	if secret := strings.TrimSpace(cfg.Admin.JWTSecret); secret != "" {
		return secret
	}
	secret, err := token.New()
	if err != nil {
		return ""
	}
	logger.Warn("admin.jwt_secret is empty, using a random per-process secret")
	return secret
}

func newBus(cfg *config.AppConfig, rc *pkgredis.Client, logger *zap.Logger) (eventbus.Bus, error) {
	switch cfg.Events.Driver {
	case config.EventsRedis:
		if rc == nil {
			return nil, fmt.Errorf("events.driver redis requires redis")
		}
		return eventbus.NewRedis(rc, cfg.Events.Prefix, logger), nil
	case config.EventsNATS:
		nb, err := eventbus.ConnectNATS(cfg.Events.NATSURL, cfg.Events.Prefix, logger)
		if err != nil {
			return nil, err
		}
		return nb, nil
	default:
		return eventbus.NewLocal(), nil
	}
}

func mailConfig(c config.MailConfig) mail.Config {
	return mail.Config{
		Enable:          c.Enable,
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Pass:            c.Pass,
		SSL:             c.SSL,
		From:            c.From,
		FromName:        c.FromName,
		ReplyTo:         c.ReplyTo,
		UseResend:       c.ResendKey != "",
		ResendKey:       c.ResendKey,
		BulkConcurrency: c.BulkConcurrency,
	}
}

func archiveConfig(c config.ArchiveConfig) archive.Config {
	return archive.Config{
		Bucket:    c.Bucket,
		Region:    c.Region,
		Endpoint:  c.Endpoint,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Prefix:    c.Prefix,
		PublicURL: c.PublicURL,
		PathStyle: c.PathStyle,
	}
}

func humanizeDuration(d time.Duration) string {
	if d < time.Minute {
		return d.Truncate(time.Second).String()
	}
	if d < time.Hour {
		return d.Truncate(time.Minute).String()
	}
	if d < 24*time.Hour {
		return d.Truncate(time.Hour).String()
	}
	days := int(d / (24 * time.Hour))
	rest := (d % (24 * time.Hour)).Truncate(time.Hour)
	if rest == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%s", days, rest)
}
