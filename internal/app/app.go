package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/noticias/core/internal/config"
	"github.com/noticias/core/internal/database"
	"github.com/noticias/core/internal/middleware"
	"github.com/noticias/core/internal/modules/auth"
	"github.com/noticias/core/internal/modules/contact"
	"github.com/noticias/core/internal/modules/content/category"
	"github.com/noticias/core/internal/modules/content/noticia"
	"github.com/noticias/core/internal/modules/newsletter/bulletin"
	"github.com/noticias/core/internal/modules/newsletter/links"
	"github.com/noticias/core/internal/modules/newsletter/subscription"
	"github.com/noticias/core/internal/pkg/archive"
	pkgcron "github.com/noticias/core/internal/pkg/cron"
	"github.com/noticias/core/internal/pkg/eventbus"
	jwtpkg "github.com/noticias/core/internal/pkg/jwt"
	"github.com/noticias/core/internal/pkg/mail"
	pkgredis "github.com/noticias/core/internal/pkg/redis"
	"github.com/noticias/core/internal/pkg/tenant"
	"go.uber.org/zap"
)

// Services are the domain services shared by the HTTP surface, the
// scheduler and newsctl.
type Services struct {
	Links         *links.Builder
	Mailer        *mail.Mailer
	Categories    *category.Service
	Noticias      *noticia.Service
	Subscriptions *subscription.Service
	Generator     *bulletin.Generator
	Dispatcher    *bulletin.Dispatcher
	Contact       *contact.Service
	Auth          *auth.Service
	Tokens        *jwtpkg.Manager
}

// App holds all application dependencies.
type App struct {
	cfg      *config.AppConfig
	router   *gin.Engine
	logger   *zap.Logger
	stores   *database.Stores
	redis    *pkgredis.Client
	bus      eventbus.Bus
	resolver *tenant.Resolver
	sched    *pkgcron.Scheduler
	svc      *Services
	unsub    []func()
	cancel   context.CancelFunc
}

// Option tweaks New.
type Option func(*options)

type options struct {
	stores *database.Stores
	mailer *mail.Mailer
	setup  bool
}

// WithStores injects an already opened store set instead of connecting
// from config.
func WithStores(s *database.Stores) Option {
	return func(o *options) { o.stores = s }
}

// WithMailer overrides the mailer built from config.
func WithMailer(m *mail.Mailer) Option {
	return func(o *options) { o.mailer = m }
}

// WithSchemaSetup creates indexes and tables while connecting.
func WithSchemaSetup() Option {
	return func(o *options) { o.setup = true }
}

// New initializes the application: stores → Redis → event bus → services →
// routes → scheduler.
func New(ctx context.Context, logger *zap.Logger, cfg *config.AppConfig, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.release(context.Background())
		}
	}()

	a.stores = o.stores
	if a.stores == nil {
		stores, err := database.Open(ctx, cfg, logger, o.setup)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		a.stores = stores
	}

	if cfg.Redis.Enable {
		rc, err := pkgredis.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.redis = rc
	}

	bus, err := newBus(cfg, a.redis, logger)
	if err != nil {
		return nil, fmt.Errorf("event bus: %w", err)
	}
	a.bus = bus

	svc, err := buildServices(cfg, a.stores, bus, o.mailer, logger)
	if err != nil {
		return nil, err
	}
	a.svc = svc

	unsub, err := bus.Subscribe(eventbus.TopicCategoryUpdated, a.onCategoryUpdated)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", eventbus.TopicCategoryUpdated, err)
	}
	a.unsub = append(a.unsub, unsub)

	a.resolver = tenant.NewResolver(cfg.Sites.Domains, cfg.Sites.Default)
	a.router = a.newRouter()
	a.sched = pkgcron.New(pkgcron.WithLogger(logger))
	a.registerRoutes()

	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	if cfg.Newsletter.Scheduler {
		if err := registerCronJobs(a.sched, cfg, svc.Dispatcher, logger); err != nil {
			return nil, err
		}
		a.sched.Start(runCtx)
	}

	ok = true
	return a, nil
}

func buildServices(cfg *config.AppConfig, stores *database.Stores, bus eventbus.Bus, mailer *mail.Mailer, logger *zap.Logger) (*Services, error) {
	tokens, err := jwtpkg.NewManager(jwtSecret(cfg, logger), cfg.Admin.TokenTTL, "noticias")
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}
	if mailer == nil {
		mailer = mail.New(mailConfig(cfg.Mail), mail.WithLogger(logger))
	}

	lb := links.New(cfg.Newsletter.PublicURL, cfg.Sites)
	categories := category.NewService(stores.Categories, stores.Articles, category.WithLogger(logger))
	noticias := noticia.NewService(stores.Articles, categories, noticia.WithLogger(logger))
	subs := subscription.NewService(stores.Subscribers, mailer, lb,
		subscription.WithLogger(logger),
		subscription.WithConfirmTTL(cfg.Newsletter.ConfirmTTL),
		subscription.WithEventBus(bus),
		subscription.WithBulletinStats(stores.Bulletins),
	)
	gen := bulletin.NewGenerator(stores.Articles, categories, lb,
		bulletin.WithGeneratorLogger(logger),
		bulletin.WithLocation(cfg.Location),
	)
	dispatchOpts := []bulletin.DispatcherOption{
		bulletin.WithLogger(logger),
		bulletin.WithEventBus(bus),
	}
	if cfg.Archive.Enable {
		dispatchOpts = append(dispatchOpts, bulletin.WithArchive(archive.New(archiveConfig(cfg.Archive))))
	}
	dispatcher := bulletin.NewDispatcher(gen, stores.Bulletins, stores.Subscribers, mailer, lb, dispatchOpts...)
	contactSvc := contact.NewService(stores.Contacts, mailer, cfg.Contact.AdminEmail,
		contact.WithLogger(logger),
		contact.WithThreshold(cfg.Contact.SpamThreshold),
		contact.WithScorer(contact.NewScorer(cfg.Contact.SpamKeywords, cfg.Contact.BlockedIPs)),
		contact.WithSiteNames(cfg.Sites.Name),
	)

	return &Services{
		Links:         lb,
		Mailer:        mailer,
		Categories:    categories,
		Noticias:      noticias,
		Subscriptions: subs,
		Generator:     gen,
		Dispatcher:    dispatcher,
		Contact:       contactSvc,
		Auth:          auth.NewService(cfg.Admin.Username, cfg.Admin.PasswordHash, tokens, logger),
		Tokens:        tokens,
	}, nil
}

func (a *App) newRouter() *gin.Engine {
	if a.cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Metrics())

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.SiteDomainHeader, "x-idempotence"},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader, middleware.CacheStatusHeader},
		AllowCredentials: true,
	}
	if len(a.cfg.AllowedOrigins) > 0 && !a.cfg.IsDev() {
		patterns := a.cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			host := extractOriginHost(origin)
			for _, pattern := range patterns {
				if matchOriginPattern(pattern, host) {
					return true
				}
			}
			return false
		}
	} else {
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	}
	router.Use(cors.New(corsConfig))
	return router
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Services exposes the wired domain services.
func (a *App) Services() *Services { return a.svc }

// Bus returns the event bus the services publish on.
func (a *App) Bus() eventbus.Bus { return a.bus }

// Scheduler returns the job scheduler. Jobs are registered only when the
// newsletter scheduler is enabled.
func (a *App) Scheduler() *pkgcron.Scheduler { return a.sched }

// Shutdown stops background jobs and releases connections.
func (a *App) Shutdown(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.sched != nil {
		done := make(chan struct{})
		go func() {
			a.sched.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			a.logger.Warn("scheduler did not stop before shutdown deadline")
		}
	}
	a.release(ctx)
}

func (a *App) release(ctx context.Context) {
	for _, fn := range a.unsub {
		fn()
	}
	a.unsub = nil
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.logger.Warn("close event bus", zap.Error(err))
		}
		a.bus = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
		a.redis = nil
	}
	if a.stores != nil {
		if err := a.stores.Close(ctx); err != nil {
			a.logger.Warn("close database", zap.Error(err))
		}
		a.stores = nil
	}
}

var processStart = time.Now()
