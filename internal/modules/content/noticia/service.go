package noticia

import (
	"context"
	"fmt"
	"strings"

	"github.com/noticias/core/internal/database"
	"github.com/noticias/core/internal/models"
	"github.com/noticias/core/internal/pkg/pagination"
	"github.com/noticias/core/internal/pkg/response"
	"github.com/noticias/core/internal/pkg/slug"
	"github.com/noticias/core/internal/pkg/tenant"
	"go.uber.org/zap"
)

// CategoryResolver is the part of the category service listings depend on.
type CategoryResolver interface {
	Resolve(ctx context.Context, categorySlug string) (*models.CategoryMatch, string, error)
	Labels(ctx context.Context, ids []string) (map[string]string, error)
}

// Service serves published-article listings, search and detail.
type Service struct {
	articles   database.ArticleStore
	categories CategoryResolver
	logger     *zap.Logger
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("NoticiaService")
		}
	}
}

func NewService(articles database.ArticleStore, categories CategoryResolver, opts ...Option) *Service {
	s := &Service{articles: articles, categories: categories, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ByCategory lists the articles of a category, matched by reference or by
// the legacy category name.
func (s *Service) ByCategory(ctx context.Context, categorySlug string, pq pagination.Query) ([]models.Article, response.Pagination, error) {
	match, _, err := s.categories.Resolve(ctx, categorySlug)
	if err != nil {
		return nil, response.Pagination{}, fmt.Errorf("resolve category: %w", err)
	}
	q := models.ArticleQuery{Category: match}
	return s.list(ctx, q, pq, "categoría", categorySlug)
}

func (s *Service) ByTag(ctx context.Context, tagSlug string, pq pagination.Query) ([]models.Article, response.Pagination, error) {
	q := models.ArticleQuery{TagPattern: slug.Pattern(tagSlug)}
	return s.list(ctx, q, pq, "etiqueta", tagSlug)
}

func (s *Service) ByAuthor(ctx context.Context, authorSlug string, pq pagination.Query) ([]models.Article, response.Pagination, error) {
	q := models.ArticleQuery{AuthorPattern: slug.Pattern(authorSlug)}
	return s.list(ctx, q, pq, "autor", authorSlug)
}

// list runs a date-ordered listing. An empty first page means the slug
// names nothing and is reported as ErrNotFound.
func (s *Service) list(ctx context.Context, q models.ArticleQuery, pq pagination.Query, kind, name string) ([]models.Article, response.Pagination, error) {
	q.Site = tenant.Site(ctx)
	q.Sort = models.SortByDate
	items, pag, err := s.page(ctx, q, pq)
	if err != nil {
		return nil, pag, err
	}
	if pag.Total == 0 && pq.Page == 1 {
		return nil, pag, fmt.Errorf("%w: no hay noticias para %s %q", models.ErrNotFound, kind, name)
	}
	return items, pag, nil
}

// Search runs the store's native text search. Relevance orders by text
// score then publish date; date orders by publish date only.
func (s *Service) Search(ctx context.Context, text, categorySlug string, sortBy models.ArticleSort, pq pagination.Query) ([]models.Article, response.Pagination, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, response.Pagination{}, fmt.Errorf("%w: la búsqueda está vacía", models.ErrInvalidInput)
	}
	switch sortBy {
	case "":
		sortBy = models.SortByRelevance
	case models.SortByRelevance, models.SortByDate:
	default:
		return nil, response.Pagination{}, fmt.Errorf("%w: orden %q no soportado", models.ErrInvalidInput, sortBy)
	}

	q := models.ArticleQuery{Site: tenant.Site(ctx), Text: text, Sort: sortBy}
	if categorySlug != "" {
		match, _, err := s.categories.Resolve(ctx, categorySlug)
		if err != nil {
			return nil, response.Pagination{}, fmt.Errorf("resolve category: %w", err)
		}
		q.Category = match
	}
	return s.page(ctx, q, pq)
}

func (s *Service) page(ctx context.Context, q models.ArticleQuery, pq pagination.Query) ([]models.Article, response.Pagination, error) {
	total, err := s.articles.Count(ctx, q)
	if err != nil {
		return nil, response.Pagination{}, fmt.Errorf("count articles: %w", err)
	}
	pag := pq.Meta(total)
	if total == 0 {
		return []models.Article{}, pag, nil
	}
	q.Skip, q.Limit = pq.Skip(), pq.Limit
	items, err := s.articles.Find(ctx, q)
	if err != nil {
		return nil, pag, fmt.Errorf("find articles: %w", err)
	}
	if err := s.label(ctx, items); err != nil {
		return nil, pag, err
	}
	return items, pag, nil
}

// GetNoticia returns a published article and bumps its view counter. A
// failed increment is logged and does not fail the read.
func (s *Service) GetNoticia(ctx context.Context, articleSlug string) (*models.Article, error) {
	a, err := s.articles.GetBySlug(ctx, tenant.Site(ctx), articleSlug)
	if err != nil {
		return nil, err
	}
	if err := s.articles.IncrementViews(ctx, a.ID); err != nil {
		s.logger.Warn("increment views", zap.String("id", a.ID), zap.Error(err))
	} else {
		a.Views++
	}
	items := []models.Article{*a}
	if err := s.label(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

// label fills the display name of id-referenced categories.
func (s *Service) label(ctx context.Context, items []models.Article) error {
	var ids []string
	seen := map[string]bool{}
	for _, a := range items {
		if a.CategoryID != "" && !seen[a.CategoryID] {
			seen[a.CategoryID] = true
			ids = append(ids, a.CategoryID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	names, err := s.categories.Labels(ctx, ids)
	if err != nil {
		return fmt.Errorf("category labels: %w", err)
	}
	for i := range items {
		if n, ok := names[items[i].CategoryID]; ok {
			items[i].CategoryName = n
		}
	}
	return nil
}
