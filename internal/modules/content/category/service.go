package category

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noticias/core/internal/database"
	"github.com/noticias/core/internal/models"
	"github.com/noticias/core/internal/pkg/eventbus"
	"github.com/noticias/core/internal/pkg/metrics"
	"github.com/noticias/core/internal/pkg/slug"
	"github.com/noticias/core/internal/pkg/tenant"
	"go.uber.org/zap"
)

// DefaultTTL bounds how stale a cached category list may get.
const DefaultTTL = 5 * time.Minute

type cacheCell struct {
	value     []models.Category
	expiresAt time.Time
}

// Service serves the category list from a per-site cache. Concurrent misses
// may both reload; the last writer wins.
type Service struct {
	categories database.CategoryStore
	articles   database.ArticleStore
	ttl        time.Duration
	now        func() time.Time
	logger     *zap.Logger

	mu    sync.Mutex
	cells map[string]cacheCell
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("CategoryService")
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewService(categories database.CategoryStore, articles database.ArticleStore, opts ...Option) *Service {
	s := &Service{
		categories: categories,
		articles:   articles,
		ttl:        DefaultTTL,
		now:        time.Now,
		logger:     zap.NewNop(),
		cells:      make(map[string]cacheCell),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetCategories returns the active categories of the request's site with
// live published-article counts. Sites without a categories collection get
// pseudo-categories derived from the raw category names of their articles.
func (s *Service) GetCategories(ctx context.Context) ([]models.Category, error) {
	site := tenant.Site(ctx)
	if cats, ok := s.cached(site); ok {
		metrics.CategoryCacheHits.Inc()
		return cats, nil
	}
	metrics.CategoryCacheMisses.Inc()

	cats, err := s.load(ctx, site)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cells[site] = cacheCell{value: cats, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return clone(cats), nil
}

func (s *Service) cached(site string) ([]models.Category, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cell, ok := s.cells[site]
	if !ok || !s.now().Before(cell.expiresAt) {
		return nil, false
	}
	return clone(cell.value), true
}

func (s *Service) load(ctx context.Context, site string) ([]models.Category, error) {
	cats, err := s.categories.ListActive(ctx, site)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if len(cats) == 0 {
		return s.legacy(ctx, site)
	}
	for i := range cats {
		n, err := s.articles.Count(ctx, models.ArticleQuery{Site: site, Category: models.ByCategoryID(cats[i].ID)})
		if err != nil {
			return nil, fmt.Errorf("count articles of %s: %w", cats[i].Slug, err)
		}
		cats[i].ArticleCount = n
	}
	return cats, nil
}

// legacy folds raw category names that differ only in case or accents
// into one pseudo-category, keeping the first spelling seen.
func (s *Service) legacy(ctx context.Context, site string) ([]models.Category, error) {
	counts, err := s.articles.LegacyCategoryCounts(ctx, site)
	if err != nil {
		return nil, fmt.Errorf("legacy categories: %w", err)
	}
	bySlug := make(map[string]int)
	out := make([]models.Category, 0, len(counts))
	for _, c := range counts {
		sl := slug.Make(c.Name)
		if sl == "" {
			continue
		}
		if i, ok := bySlug[sl]; ok {
			out[i].ArticleCount += c.Count
			continue
		}
		bySlug[sl] = len(out)
		out = append(out, models.Category{
			Site:         site,
			Name:         c.Name,
			Slug:         sl,
			IsActive:     true,
			ArticleCount: c.Count,
			Legacy:       true,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	for i := range out {
		out[i].Order = i
	}
	return out, nil
}

// Invalidate drops the cached list of site, or of every site when empty.
func (s *Service) Invalidate(site string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if site == "" {
		s.cells = make(map[string]cacheCell)
		return
	}
	delete(s.cells, site)
}

// HandleEvent is the eventbus handler for category.updated.
func (s *Service) HandleEvent(_ context.Context, e eventbus.Event) {
	if e.Topic != eventbus.TopicCategoryUpdated {
		return
	}
	s.logger.Debug("category cache invalidated", zap.String("site", e.Site))
	s.Invalidate(e.Site)
}

// GetCategory looks a category up by slug, falling back to the derived
// legacy categories.
func (s *Service) GetCategory(ctx context.Context, categorySlug string) (*models.Category, error) {
	site := tenant.Site(ctx)
	cat, err := s.categories.GetBySlug(ctx, site, categorySlug)
	if err == nil {
		n, err := s.articles.Count(ctx, models.ArticleQuery{Site: site, Category: models.ByCategoryID(cat.ID)})
		if err != nil {
			return nil, fmt.Errorf("count articles of %s: %w", cat.Slug, err)
		}
		cat.ArticleCount = n
		return cat, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	all, err := s.GetCategories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Legacy && all[i].Slug == categorySlug {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("%w: categoría %q", models.ErrNotFound, categorySlug)
}

// Resolve maps a category slug to the way articles reference it: by id when
// the category exists, otherwise by an accent-insensitive pattern over the
// raw category name. The returned label is the category's display name.
func (s *Service) Resolve(ctx context.Context, categorySlug string) (*models.CategoryMatch, string, error) {
	cat, err := s.categories.GetBySlug(ctx, tenant.Site(ctx), categorySlug)
	switch {
	case err == nil:
		return models.ByCategoryID(cat.ID), cat.Name, nil
	case errors.Is(err, models.ErrNotFound):
		return models.ByLegacyCategory(slug.Pattern(categorySlug)), categorySlug, nil
	default:
		return nil, "", err
	}
}

// Labels returns the display names of the given category ids.
func (s *Service) Labels(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cats, err := s.categories.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range cats {
		out[c.ID] = c.Name
	}
	return out, nil
}

func clone(cats []models.Category) []models.Category {
	return append([]models.Category(nil), cats...)
}
