package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/noticias/core/internal/middleware"
	"github.com/noticias/core/internal/modules/auth"
	"github.com/noticias/core/internal/modules/contact"
	"github.com/noticias/core/internal/modules/content/category"
	"github.com/noticias/core/internal/modules/content/noticia"
	"github.com/noticias/core/internal/modules/newsletter/bulletin"
	"github.com/noticias/core/internal/modules/newsletter/subscription"
	"github.com/noticias/core/internal/modules/system/health"
	"github.com/noticias/core/internal/pkg/eventbus"
	"github.com/noticias/core/internal/pkg/response"
	"github.com/noticias/core/internal/pkg/validate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const httpCacheTTL = 30 * time.Second

// Paths never served from the HTTP cache: article detail bumps view counts
// and newsletter endpoints carry per-subscriber tokens.
// Newsletter calls are idempotent by themselves and a repeated subscribe
// must be able to resend the confirmation.
var idempotenceSkip = []string{
	"/public-content/newsletter/*",
}

var httpCacheSkip = []string{
	"/public-content/noticias/*",
	"/public-content/newsletter/*",
	"/public-content/contact",
}

func (a *App) registerRoutes() {
	validate.Gin()

	r := a.router
	r.Use(middleware.Site(a.resolver))

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	authMW := middleware.Auth(a.svc.Tokens)

	r.GET("/", func(c *gin.Context) {
		response.OK(c, gin.H{
			"name":   "noticias-core",
			"env":    a.cfg.Env,
			"site":   middleware.CurrentSite(c),
			"uptime": humanizeDuration(time.Since(processStart)),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	checks := map[string]health.Pinger{"database": a.stores}
	if a.redis != nil {
		checks["redis"] = a.redis
	}
	health.RegisterRoutes(&r.RouterGroup, health.Deps{
		Checks:     checks,
		Scheduler:  a.sched,
		Mailer:     a.svc.Mailer,
		AdminEmail: a.cfg.Contact.AdminEmail,
		LogDir:     a.cfg.Log.Dir,
	}, authMW)

	pub := r.Group("/public-content", middleware.OptionalAuth(a.svc.Tokens))
	pub.Use(middleware.RateLimit(a.limiter(), a.cfg.RateLimit.Window, a.logger))
	if a.redis != nil {
		pub.Use(middleware.Idempotence(a.redis, idempotenceSkip...))
		pub.Use(middleware.HTTPCache(a.redis, middleware.HTTPCacheOptions{
			TTL:       httpCacheTTL,
			SkipPaths: httpCacheSkip,
		}))
	}

	categories := category.NewHandler(a.svc.Categories, a.logger)
	subscriptions := subscription.NewHandler(a.svc.Subscriptions, a.logger)
	bulletins := bulletin.NewHandler(a.svc.Dispatcher, a.logger)

	categories.RegisterRoutes(pub)
	noticia.NewHandler(a.svc.Noticias, a.logger).RegisterRoutes(pub)
	contact.NewHandler(a.svc.Contact, a.logger).RegisterRoutes(pub)
	subscriptions.RegisterRoutes(pub)
	bulletins.RegisterRoutes(pub)

	admin := r.Group("/admin")
	auth.NewHandler(a.svc.Auth).RegisterRoutes(admin, authMW)

	protected := admin.Group("", authMW)
	subscriptions.RegisterAdminRoutes(protected)
	bulletins.RegisterAdminRoutes(protected)
	categories.RegisterAdminRoutes(protected, a.onCategoryInvalidate)
}

func (a *App) limiter() middleware.Limiter {
	if a.redis != nil {
		return middleware.NewRedisLimiter(a.redis, a.cfg.RateLimit.Max, a.cfg.RateLimit.Window)
	}
	return middleware.NewMemoryLimiter(a.cfg.RateLimit.Max, a.cfg.RateLimit.Window)
}

// onCategoryInvalidate fans a manual invalidation out to every instance and
// drops cached public responses of the site.
func (a *App) onCategoryInvalidate(c *gin.Context, site string) {
	ctx := c.Request.Context()
	if err := a.PublishCategoryUpdated(ctx, site); err != nil {
		a.logger.Warn("publish category.updated", zap.String("site", site), zap.Error(err))
	}
	a.purgeHTTPCache(ctx, site)
}

// onCategoryUpdated handles category.updated from the bus. Cached public
// responses embed category lists, so they go along with the in-process cell.
func (a *App) onCategoryUpdated(ctx context.Context, e eventbus.Event) {
	a.svc.Categories.HandleEvent(ctx, e)
	a.purgeHTTPCache(ctx, e.Site)
}

func (a *App) purgeHTTPCache(ctx context.Context, site string) {
	if a.redis == nil {
		return
	}
	n, err := middleware.PurgeHTTPCache(ctx, a.redis, site)
	if err != nil {
		a.logger.Warn("purge http cache", zap.String("site", site), zap.Error(err))
		return
	}
	a.logger.Info("http cache purged", zap.String("site", site), zap.Int64("keys", n))
}

// PublishCategoryUpdated announces that the categories of site changed.
// An empty site applies to every site.
func (a *App) PublishCategoryUpdated(ctx context.Context, site string) error {
	e, err := eventbus.NewEvent(eventbus.TopicCategoryUpdated, site, nil)
	if err != nil {
		return err
	}
	return a.bus.Publish(ctx, e)
}
