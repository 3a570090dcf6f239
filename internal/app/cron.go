package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/noticias/core/internal/config"
	"github.com/noticias/core/internal/models"
	pkgcron "github.com/noticias/core/internal/pkg/cron"
	"github.com/noticias/core/internal/pkg/tenant"
	"go.uber.org/zap"
)

type bulletinDispatcher interface {
	Dispatch(ctx context.Context, t models.BulletinType) (*models.Bulletin, error)
}

var bulletinDescriptions = map[models.BulletinType]string{
	models.BulletinMorning: "Boletín matutino",
	models.BulletinEvening: "Boletín vespertino",
	models.BulletinWeekly:  "Resumen semanal",
	models.BulletinSports:  "Boletín deportivo",
}

// registerCronJobs adds one dispatch job per site and configured schedule.
// Job names are "bulletin:<site>:<type>".
func registerCronJobs(sched *pkgcron.Scheduler, cfg *config.AppConfig, d bulletinDispatcher, logger *zap.Logger) error {
	cronLogger := logger.Named("CronService")

	names := make([]string, 0, len(cfg.Newsletter.Schedules))
	for name := range cfg.Newsletter.Schedules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := cfg.Newsletter.Schedules[name]
		bt, err := models.ParseBulletinType(name)
		if err != nil {
			return fmt.Errorf("newsletter.schedules: %w", err)
		}
		schedule, err := pkgcron.Parse(spec, cfg.Location)
		if err != nil {
			return fmt.Errorf("newsletter.schedules.%s: %w", name, err)
		}
		for _, site := range cfg.Sites.Keys() {
			sched.Register(pkgcron.Job{
				Name:        fmt.Sprintf("bulletin:%s:%s", site, bt),
				Description: fmt.Sprintf("%s de %s (%s)", bulletinDescriptions[bt], cfg.Sites.Name(site), spec),
				Schedule:    schedule,
				Fn:          dispatchJob(d, site, bt, cronLogger),
			})
		}
	}
	return nil
}

func dispatchJob(d bulletinDispatcher, site string, bt models.BulletinType, logger *zap.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		b, err := d.Dispatch(tenant.WithSite(ctx, site), bt)
		switch {
		case errors.Is(err, models.ErrNoContent):
			logger.Info("bulletin skipped, no content", zap.String("site", site), zap.String("type", string(bt)))
			return nil
		case errors.Is(err, models.ErrAlreadySent):
			logger.Info("bulletin already sent today", zap.String("site", site), zap.String("type", string(bt)))
			return nil
		case errors.Is(err, models.ErrDispatchInProgress):
			logger.Info("bulletin is being sent by another run", zap.String("site", site), zap.String("type", string(bt)))
			return nil
		case err != nil:
			logger.Warn("bulletin dispatch failed", zap.String("site", site), zap.String("type", string(bt)), zap.Error(err))
			return err
		}
		logger.Info("bulletin dispatched",
			zap.String("site", site),
			zap.String("type", string(bt)),
			zap.String("status", string(b.Status)),
			zap.Int64("sent", b.Stats.Sent),
			zap.Int64("bounced", b.Stats.Bounced),
		)
		return nil
	}
}
