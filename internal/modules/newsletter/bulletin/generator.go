// Package bulletin generates the periodic newsletter digests and delivers
// them to subscribers.
package bulletin

import (
	"context"
	"fmt"
	"time"

	"github.com/noticias/core/internal/database"
	"github.com/noticias/core/internal/models"
	"github.com/noticias/core/internal/modules/newsletter/links"
	"github.com/noticias/core/internal/pkg/tenant"
	"go.uber.org/zap"
)

// SportsKeywords are matched exactly against article tags and keywords.
var SportsKeywords = []string{
	"deportes", "Deportes",
	"futbol", "fútbol", "Futbol", "Fútbol",
	"Liga MX", "Tuzos", "Pachuca", "Club Pachuca",
	"beisbol", "béisbol", "Béisbol",
	"box", "Box", "NFL", "NBA", "MLB", "Fórmula 1", "F1",
}

// profile is the article query behind one bulletin type.
type profile struct {
	since    func(now time.Time) time.Time
	sort     models.ArticleSort
	limit    int
	anyTerms []string
}

// CategoryLabeler resolves category ids to display names.
type CategoryLabeler interface {
	Labels(ctx context.Context, ids []string) (map[string]string, error)
}

// Generator builds bulletins from recently published articles.
type Generator struct {
	articles database.ArticleStore
	labels   CategoryLabeler
	links    *links.Builder
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
	profiles map[models.BulletinType]profile
}

type GeneratorOption func(*Generator)

func WithGeneratorLogger(l *zap.Logger) GeneratorOption {
	return func(g *Generator) {
		if l != nil {
			g.logger = l.Named("BulletinGenerator")
		}
	}
}

func WithGeneratorClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// WithLocation sets the timezone that defines calendar days.
func WithLocation(loc *time.Location) GeneratorOption {
	return func(g *Generator) {
		if loc != nil {
			g.loc = loc
		}
	}
}

func NewGenerator(articles database.ArticleStore, labels CategoryLabeler, lb *links.Builder, opts ...GeneratorOption) *Generator {
	g := &Generator{
		articles: articles,
		labels:   labels,
		links:    lb,
		loc:      time.UTC,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(g)
	}
	g.profiles = map[models.BulletinType]profile{
		models.BulletinMorning: {since: lookback(24 * time.Hour), sort: models.SortByDate, limit: 5},
		models.BulletinEvening: {since: g.startOfDay, sort: models.SortByViews, limit: 3},
		models.BulletinWeekly:  {since: lookback(7 * 24 * time.Hour), sort: models.SortByViews, limit: 10},
		models.BulletinSports:  {since: lookback(24 * time.Hour), sort: models.SortByDate, limit: 5, anyTerms: SportsKeywords},
	}
	return g
}

func lookback(d time.Duration) func(time.Time) time.Time {
	return func(now time.Time) time.Time { return now.Add(-d) }
}

func (g *Generator) startOfDay(now time.Time) time.Time {
	t := now.In(g.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, g.loc)
}

// PublishDay is the calendar day, in the generator's timezone, that a
// bulletin built now belongs to.
func (g *Generator) PublishDay() time.Time {
	return g.startOfDay(g.now())
}

func (g *Generator) Morning(ctx context.Context) (*models.Bulletin, error) {
	return g.Generate(ctx, models.BulletinMorning)
}

func (g *Generator) Evening(ctx context.Context) (*models.Bulletin, error) {
	return g.Generate(ctx, models.BulletinEvening)
}

func (g *Generator) Weekly(ctx context.Context) (*models.Bulletin, error) {
	return g.Generate(ctx, models.BulletinWeekly)
}

// Sports returns nil, nil when no sports article was published in the
// window.
func (g *Generator) Sports(ctx context.Context) (*models.Bulletin, error) {
	return g.Generate(ctx, models.BulletinSports)
}

// Generate builds an unsaved bulletin of type t for the request's site. Only
// the sports profile yields a nil bulletin on an empty window; the others
// return a bulletin with no articles.
func (g *Generator) Generate(ctx context.Context, t models.BulletinType) (*models.Bulletin, error) {
	p, ok := g.profiles[t]
	if !ok {
		return nil, fmt.Errorf("%w: unknown bulletin type %q", models.ErrInvalidInput, t)
	}
	site := tenant.Site(ctx)
	now := g.now()

	items, err := g.articles.Find(ctx, models.ArticleQuery{
		Site:           site,
		AnyTerms:       p.anyTerms,
		PublishedSince: p.since(now),
		Sort:           p.sort,
		Limit:          p.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("generate %s bulletin: %w", t, err)
	}
	if len(items) == 0 && t == models.BulletinSports {
		g.logger.Debug("no sports articles in window", zap.String("site", site))
		return nil, nil
	}

	snaps, err := g.snapshots(ctx, items)
	if err != nil {
		return nil, err
	}
	day := g.startOfDay(now)
	b := &models.Bulletin{
		Site:        site,
		Type:        t,
		PublishDate: day,
		Subject:     subject(t, day),
		ArticleIDs:  make([]string, 0, len(items)),
		Snapshots:   snaps,
		Status:      models.BulletinDraft,
	}
	for _, a := range items {
		b.ArticleIDs = append(b.ArticleIDs, a.ID)
	}

	b.Content, err = Render(b, Links{
		SiteName: g.links.SiteName(site),
		SiteURL:  g.links.SiteURL(site),
		Article:  func(s string) string { return g.links.Article(site, s) },
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (g *Generator) snapshots(ctx context.Context, items []models.Article) ([]models.ArticleSnapshot, error) {
	var ids []string
	seen := map[string]bool{}
	for _, a := range items {
		if a.CategoryID != "" && !seen[a.CategoryID] {
			seen[a.CategoryID] = true
			ids = append(ids, a.CategoryID)
		}
	}
	names := map[string]string{}
	if len(ids) > 0 && g.labels != nil {
		var err error
		if names, err = g.labels.Labels(ctx, ids); err != nil {
			return nil, fmt.Errorf("category labels: %w", err)
		}
	}

	out := make([]models.ArticleSnapshot, 0, len(items))
	for _, a := range items {
		label := a.CategoryName
		if n, ok := names[a.CategoryID]; ok {
			label = n
		}
		out = append(out, models.ArticleSnapshot{
			ID:       a.ID,
			Title:    a.Title,
			Slug:     a.Slug,
			Category: label,
			Image:    a.Image,
			Summary:  a.Summary,
		})
	}
	return out, nil
}
