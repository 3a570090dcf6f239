package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/noticias/core/internal/models"
	"gorm.io/gorm"
)

// relevance weights the per-column FULLTEXT scores. A whole-query tag hit
// counts like a summary match.
const relevance = "(MATCH(title) AGAINST (? IN NATURAL LANGUAGE MODE) * 10" +
	" + MATCH(summary) AGAINST (? IN NATURAL LANGUAGE MODE) * 5" +
	" + MATCH(content) AGAINST (? IN NATURAL LANGUAGE MODE)" +
	" + IF(JSON_SEARCH(LOWER(tags), 'one', LOWER(?)) IS NULL, 0, 5))"

// anyElementMatches tests a JSON string array column element-wise.
const anyElementMatches = "EXISTS (SELECT 1 FROM JSON_TABLE(%s, '$[*]' COLUMNS (v VARCHAR(255) PATH '$')) jt WHERE REGEXP_LIKE(jt.v, ?, 'i'))"

type Articles struct {
	db *gorm.DB
}

func relevanceArgs(text string) []any { return []any{text, text, text, text} }

// articleScope applies every filter of q except ordering and paging.
func articleScope(q models.ArticleQuery) (func(*gorm.DB) *gorm.DB, error) {
	var terms []byte
	if len(q.AnyTerms) > 0 {
		var err error
		if terms, err = json.Marshal(q.AnyTerms); err != nil {
			return nil, err
		}
	}
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("noticias.status = ?", string(models.ArticlePublished))
		if q.Site != "" {
			db = db.Where("noticias.site = ?", q.Site)
		}
		if !q.PublishedSince.IsZero() {
			db = db.Where("noticias.published_at >= ?", q.PublishedSince)
		}
		if !q.PublishedUntil.IsZero() {
			db = db.Where("noticias.published_at < ?", q.PublishedUntil)
		}
		if q.Category != nil {
			switch q.Category.Kind {
			case models.MatchCategoryID:
				db = db.Where("noticias.category_id = ?", q.Category.ID)
			case models.MatchLegacyCategory:
				db = db.Where("REGEXP_LIKE(noticias.category, ?, 'i')", q.Category.Pattern)
			}
		}
		if q.TagPattern != "" {
			db = db.Where(fmt.Sprintf(anyElementMatches, "noticias.tags"), q.TagPattern)
		}
		if q.AuthorPattern != "" {
			db = db.Where("REGEXP_LIKE(noticias.author, ?, 'i')", q.AuthorPattern)
		}
		if terms != nil {
			db = db.Where("(JSON_OVERLAPS(noticias.tags, ?) OR JSON_OVERLAPS(noticias.keywords, ?))", string(terms), string(terms))
		}
		if q.Text != "" {
			db = db.Where(relevance+" > 0", relevanceArgs(q.Text)...)
		}
		return db
	}, nil
}

func articleOrder(db *gorm.DB, q models.ArticleQuery) *gorm.DB {
	switch {
	case q.Sort == models.SortByRelevance && q.Text != "":
		return db.Order("score DESC").Order("noticias.published_at DESC")
	case q.Sort == models.SortByViews:
		return db.Order("noticias.views DESC").Order("noticias.published_at DESC")
	default:
		return db.Order("noticias.published_at DESC")
	}
}

func (r *Articles) query(ctx context.Context, q models.ArticleQuery) (*gorm.DB, error) {
	scope, err := articleScope(q)
	if err != nil {
		return nil, err
	}
	db := r.db.WithContext(ctx).Model(&articleRecord{}).Scopes(scope)
	if q.Text != "" {
		db = db.Select("noticias.*, "+relevance+" AS score", relevanceArgs(q.Text)...)
	}
	return articleOrder(db, q).Scopes(paginate(q.Skip, q.Limit)), nil
}

func (r *Articles) Find(ctx context.Context, q models.ArticleQuery) ([]models.Article, error) {
	db, err := r.query(ctx, q)
	if err != nil {
		return nil, err
	}
	var rows []articleRecord
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find articles: %w", err)
	}
	out := make([]models.Article, len(rows))
	for i, row := range rows {
		out[i] = row.model()
	}
	return out, nil
}

func (r *Articles) Count(ctx context.Context, q models.ArticleQuery) (int64, error) {
	scope, err := articleScope(q)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := r.db.WithContext(ctx).Model(&articleRecord{}).Scopes(scope).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

func (r *Articles) GetBySlug(ctx context.Context, site, slug string) (*models.Article, error) {
	db := r.db.WithContext(ctx).Where("slug = ? AND status = ?", slug, string(models.ArticlePublished))
	if site != "" {
		db = db.Where("site = ?", site)
	}
	var row articleRecord
	if err := db.Take(&row).Error; err != nil {
		return nil, translate(err)
	}
	a := row.model()
	return &a, nil
}

func (r *Articles) IncrementViews(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&articleRecord{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Articles) LegacyCategoryCounts(ctx context.Context, site string) ([]models.CategoryCount, error) {
	db := r.db.WithContext(ctx).Model(&articleRecord{}).
		Select("category AS name, COUNT(*) AS count").
		Where("status = ? AND category_id IS NULL AND category <> ''", string(models.ArticlePublished))
	if site != "" {
		db = db.Where("site = ?", site)
	}
	var rows []models.CategoryCount
	if err := db.Group("category").Order("category").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("legacy categories: %w", err)
	}
	return rows, nil
}
